package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"wellnessAPI/internal/apperrors"
	"wellnessAPI/internal/types/challenge"
	"wellnessAPI/middleware"
	"wellnessAPI/services"
)

type ChallengeHandler struct {
	challengeService *services.ChallengeService
	log              logrus.FieldLogger
}

func NewChallengeHandler(challengeService *services.ChallengeService, log logrus.FieldLogger) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
		log:              log,
	}
}

// ListChallenges refreshes every challenge of the caller. Challenges that fail
// are reported next to the ones that succeeded.
func (h *ChallengeHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	ownerID, ok := middleware.GetOwnerID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	now, err := evaluationTime(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	result, err := h.challengeService.RefreshUserChallenges(ctx, ownerID, now)
	if err != nil {
		h.log.WithError(err).WithField("owner_id", ownerID).Error("failed to refresh challenges")
		respondWithServiceError(w, err)
		return
	}

	resp := challenge.BatchResponse{
		Challenges: make([]challenge.ChallengeResponse, 0, len(result.Challenges)),
		Failures:   make([]challenge.RefreshFailure, 0, len(result.Failures)),
	}
	for i := range result.Challenges {
		resp.Challenges = append(resp.Challenges, challenge.NewChallengeResponse(&result.Challenges[i]))
	}
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, challenge.RefreshFailure{
			ChallengeID: f.ChallengeID.String(),
			Error:       f.Err.Error(),
		})
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *ChallengeHandler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ownerID, ok := middleware.GetOwnerID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := challengeIDFromPath(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	now, err := evaluationTime(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	enriched, err := h.challengeService.RefreshChallenge(ctx, ownerID, id, now)
	if err != nil {
		h.logFailure(err, "refresh challenge", id.String())
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, challenge.NewChallengeResponse(enriched))
}

func (h *ChallengeHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ownerID, ok := middleware.GetOwnerID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := challengeIDFromPath(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	now, err := evaluationTime(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	enriched, err := h.challengeService.GetMetrics(ctx, ownerID, id, now)
	if err != nil {
		h.logFailure(err, "compute metrics", id.String())
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, challenge.NewMetricsResponse(id.String(), enriched.DerivedMetrics))
}

func (h *ChallengeHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ownerID, ok := middleware.GetOwnerID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := challengeIDFromPath(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	now, err := evaluationTime(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	var req challenge.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.Status.Valid() {
		respondWithServiceError(w, apperrors.Invalid("status", "must be active, completed or abandoned"))
		return
	}

	if _, err := h.challengeService.UpdateStatus(ctx, ownerID, id, req.Status); err != nil {
		h.logFailure(err, "update status", id.String())
		respondWithServiceError(w, err)
		return
	}

	h.respondWithChallenge(ctx, w, ownerID, id, now, http.StatusOK)
}

func (h *ChallengeHandler) UpsertProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ownerID, ok := middleware.GetOwnerID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := challengeIDFromPath(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	var req challenge.UpsertProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.challengeService.RecordProgress(ctx, ownerID, id, req)
	if err != nil {
		h.logFailure(err, "record progress", id.String())
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, challenge.NewProgressEntryResponse(entry))
}

func (h *ChallengeHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ownerID, ok := middleware.GetOwnerID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	now, err := evaluationTime(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	var req challenge.CreateChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.challengeService.CreateChallenge(ctx, ownerID, services.CreateChallengeInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Frequency:   req.Frequency,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		TargetValue: req.TargetValue,
	})
	if err != nil {
		h.logFailure(err, "create challenge", ownerID)
		respondWithServiceError(w, err)
		return
	}

	h.respondWithChallenge(ctx, w, ownerID, created.ID, now, http.StatusCreated)
}

func (h *ChallengeHandler) UpdateChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ownerID, ok := middleware.GetOwnerID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := challengeIDFromPath(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	now, err := evaluationTime(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	var req challenge.UpdateChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	upd, err := req.ToUpdate()
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	if _, err := h.challengeService.UpdateChallenge(ctx, ownerID, id, upd); err != nil {
		h.logFailure(err, "update challenge", id.String())
		respondWithServiceError(w, err)
		return
	}

	h.respondWithChallenge(ctx, w, ownerID, id, now, http.StatusOK)
}

func (h *ChallengeHandler) DeleteChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ownerID, ok := middleware.GetOwnerID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := challengeIDFromPath(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	if err := h.challengeService.DeleteChallenge(ctx, ownerID, id); err != nil {
		h.logFailure(err, "delete challenge", id.String())
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Challenge deleted successfully"})
}

// respondWithChallenge writes the display view of id after a write. No
// auto-transition is applied here.
func (h *ChallengeHandler) respondWithChallenge(ctx context.Context, w http.ResponseWriter, ownerID string, id uuid.UUID, now time.Time, code int) {
	enriched, err := h.challengeService.GetMetrics(ctx, ownerID, id, now)
	if err != nil {
		h.logFailure(err, "load challenge", id.String())
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, code, challenge.NewChallengeResponse(enriched))
}

// logFailure logs unexpected errors only. Client mistakes are not worth a
// log line.
func (h *ChallengeHandler) logFailure(err error, op, id string) {
	if apperrors.IsNotFound(err) || apperrors.IsValidation(err) || apperrors.IsTransition(err) {
		return
	}
	h.log.WithError(err).WithField("id", id).Errorf("failed to %s", op)
}
