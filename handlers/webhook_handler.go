package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	svix "github.com/svix/svix-webhooks/go"

	"wellnessAPI/services"
)

const maxWebhookBodyBytes = int64(65536)

type clerkWebhookEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// WebhookHandler receives Clerk account events. Deleting an account removes
// the challenges owned by it.
type WebhookHandler struct {
	challengeService *services.ChallengeService
	// verifier is nil when no signing secret is configured. Every event is
	// refused then.
	verifier *svix.Webhook
	log      logrus.FieldLogger
}

// NewWebhookHandler takes the Clerk signing secret ("whsec_..."). An empty
// secret is allowed, a malformed one is an error.
func NewWebhookHandler(challengeService *services.ChallengeService, secret string, log logrus.FieldLogger) (*WebhookHandler, error) {
	h := &WebhookHandler{
		challengeService: challengeService,
		log:              log,
	}
	if secret == "" {
		return h, nil
	}

	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid CLERK_WEBHOOK_SECRET: %w", err)
	}
	h.verifier = wh
	return h, nil
}

func (h *WebhookHandler) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		http.Error(w, "Error reading body", http.StatusBadRequest)
		return
	}

	if !h.verifySignature(r, body) {
		h.log.Warn("Invalid webhook signature")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var event clerkWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "Error parsing webhook", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "user.deleted":
		var userData struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Data, &userData); err != nil || userData.ID == "" {
			http.Error(w, "Error parsing webhook", http.StatusBadRequest)
			return
		}

		n, err := h.challengeService.DeleteOwnerChallenges(r.Context(), userData.ID)
		if err != nil {
			h.log.WithError(err).WithField("owner_id", userData.ID).Error("failed to delete challenges of deleted user")
			http.Error(w, "Error processing webhook", http.StatusInternalServerError)
			return
		}
		h.log.WithFields(logrus.Fields{"owner_id": userData.ID, "deleted": n}).Info("removed challenges of deleted user")

	default:
		h.log.WithField("type", event.Type).Debug("Unhandled webhook event type")
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// verifySignature checks the svix-id, svix-timestamp and svix-signature
// headers. Stale timestamps are rejected, which stops replays.
func (h *WebhookHandler) verifySignature(r *http.Request, body []byte) bool {
	if h.verifier == nil {
		return false
	}
	if err := h.verifier.Verify(body, r.Header); err != nil {
		h.log.WithError(err).Debug("webhook verification failed")
		return false
	}
	return true
}
