package http

import (
	"net/http"

	"affiliate-ledger-backend/internal/security"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the public webhook ingress, the authenticated admin
// surface and the metrics endpoint.
func NewRouter(
	webhookHandler *WebhookHandler,
	adminHandler *AdminHandler,
	tokenManager security.TokenManager,
) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/webhooks/payment", webhookHandler.HandlePaymentEvent).Methods(http.MethodPost)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(OperatorAuthMiddleware(tokenManager))
	admin.HandleFunc("/accounts/{id}/reconcile", adminHandler.HandleReconcile).Methods(http.MethodPost)
	admin.HandleFunc("/accounts/{id}/recompute", adminHandler.HandleRecompute).Methods(http.MethodPost)
	admin.HandleFunc("/accounts/{id}/balance", adminHandler.HandleBalance).Methods(http.MethodGet)
	admin.HandleFunc("/accounts/{id}/audits", adminHandler.HandleAudits).Methods(http.MethodGet)
	admin.HandleFunc("/promote", adminHandler.HandlePromote).Methods(http.MethodPost)
	admin.HandleFunc("/migrate", adminHandler.HandleMigrate).Methods(http.MethodPost)

	return r
}
