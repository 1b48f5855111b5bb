package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"wellnessAPI/internal/apperrors"
	"wellnessAPI/utils"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps the service's error kinds onto HTTP statuses.
// Persistence details stay in the logs.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case apperrors.IsNotFound(err):
		respondWithError(w, http.StatusNotFound, err.Error())
	case apperrors.IsTransition(err):
		respondWithError(w, http.StatusConflict, err.Error())
	case apperrors.IsValidation(err):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func challengeIDFromPath(r *http.Request) (uuid.UUID, error) {
	raw := mux.Vars(r)["id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.Invalid("id", "must be a UUID")
	}
	return id, nil
}

// evaluationTime honours an optional now=YYYY-MM-DD query parameter.
func evaluationTime(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("now")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	t, err := utils.ParseDate(raw)
	if err != nil {
		return time.Time{}, apperrors.Invalid("now", err.Error())
	}
	return t, nil
}
