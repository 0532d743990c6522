package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"affiliate-ledger-backend/internal/domain"
	"affiliate-ledger-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockWebhookService struct {
	mock.Mock
}

func (m *mockWebhookService) ProcessEvent(ctx context.Context, event *domain.PaymentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookHandler_HandlePaymentEvent(t *testing.T) {
	const secret = "test-signing-secret"
	body := []byte(`{"id":"evt_1","type":"invoice.paid","data":{"invoice_ref":"inv_1","customer_ref":"cus_1"}}`)

	t.Run("Success", func(t *testing.T) {
		svc := new(mockWebhookService)
		handler := NewWebhookHandler(svc, secret)

		svc.On("ProcessEvent", mock.Anything, mock.MatchedBy(func(e *domain.PaymentEvent) bool {
			return e.ID == "evt_1" && e.Type == domain.EventInvoicePaid
		})).Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
		req.Header.Set("X-Webhook-Signature", sign(secret, body))
		rec := httptest.NewRecorder()

		handler.HandlePaymentEvent(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("MissingSignature", func(t *testing.T) {
		svc := new(mockWebhookService)
		handler := NewWebhookHandler(svc, secret)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.HandlePaymentEvent(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		svc.AssertNotCalled(t, "ProcessEvent", mock.Anything, mock.Anything)
	})

	t.Run("WrongSignature", func(t *testing.T) {
		svc := new(mockWebhookService)
		handler := NewWebhookHandler(svc, secret)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
		req.Header.Set("X-Webhook-Signature", sign("another-secret", body))
		rec := httptest.NewRecorder()

		handler.HandlePaymentEvent(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("MalformedEnvelope", func(t *testing.T) {
		svc := new(mockWebhookService)
		handler := NewWebhookHandler(svc, secret)

		bad := []byte(`{"id":"","type":""}`)
		req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(bad))
		req.Header.Set("X-Webhook-Signature", sign(secret, bad))
		rec := httptest.NewRecorder()

		handler.HandlePaymentEvent(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("MalformedPayloadAnswers400", func(t *testing.T) {
		svc := new(mockWebhookService)
		handler := NewWebhookHandler(svc, secret)

		svc.On("ProcessEvent", mock.Anything, mock.Anything).Return(service.ErrMalformedEvent)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
		req.Header.Set("X-Webhook-Signature", sign(secret, body))
		rec := httptest.NewRecorder()

		handler.HandlePaymentEvent(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("TransientFailureAnswers500", func(t *testing.T) {
		svc := new(mockWebhookService)
		handler := NewWebhookHandler(svc, secret)

		svc.On("ProcessEvent", mock.Anything, mock.Anything).Return(assert.AnError)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
		req.Header.Set("X-Webhook-Signature", sign(secret, body))
		rec := httptest.NewRecorder()

		handler.HandlePaymentEvent(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
