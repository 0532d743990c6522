package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"affiliate-ledger-backend/internal/domain"
	"affiliate-ledger-backend/internal/logger"
	"affiliate-ledger-backend/internal/service"
)

const (
	signatureHeader = "X-Webhook-Signature"
	maxEventBytes   = 1 << 20
)

// WebhookHandler receives the payment provider's event stream
type WebhookHandler struct {
	webhookSvc    service.WebhookService
	signingSecret []byte
}

func NewWebhookHandler(webhookSvc service.WebhookService, signingSecret string) *WebhookHandler {
	return &WebhookHandler{
		webhookSvc:    webhookSvc,
		signingSecret: []byte(signingSecret),
	}
}

// HandlePaymentEvent verifies the event signature and dispatches it.
// Guarded no-ops (duplicates, unknown customers) answer 200 so the
// provider does not retry; only transient failures answer 5xx.
func (h *WebhookHandler) HandlePaymentEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if !h.verifySignature(body, r.Header.Get(signatureHeader)) {
		logger.Warn("Webhook signature verification failed", "remote_addr", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var event domain.PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeError(w, http.StatusBadRequest, "malformed event envelope")
		return
	}
	if event.ID == "" || event.Type == "" {
		writeError(w, http.StatusBadRequest, "event id and type are required")
		return
	}

	if err := h.webhookSvc.ProcessEvent(r.Context(), &event); err != nil {
		if errors.Is(err, service.ErrMalformedEvent) {
			logger.Warn("Malformed event payload", "event_id", event.ID, "type", event.Type, "error", err)
			writeError(w, http.StatusBadRequest, "malformed event payload")
			return
		}
		logger.Error("Failed to process payment event",
			"event_id", event.ID, "type", event.Type, "error", err)
		writeError(w, http.StatusInternalServerError, "event processing failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, h.signingSecret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
