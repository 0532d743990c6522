package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"affiliate-ledger-backend/internal/domain"
	"affiliate-ledger-backend/internal/jobs"
	"affiliate-ledger-backend/internal/logger"
	"affiliate-ledger-backend/internal/repository"
	"affiliate-ledger-backend/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// AdminHandler exposes the operator repair surface: reconciliation,
// recomputation, migration and balance inspection.
type AdminHandler struct {
	accountRepo     repository.AccountRepository
	auditRepo       repository.AuditRepository
	commissionSvc   service.CommissionService
	subscriptionSvc service.SubscriptionService
	jobRunner       *jobs.JobRunner
}

func NewAdminHandler(
	accountRepo repository.AccountRepository,
	auditRepo repository.AuditRepository,
	commissionSvc service.CommissionService,
	subscriptionSvc service.SubscriptionService,
	jobRunner *jobs.JobRunner,
) *AdminHandler {
	return &AdminHandler{
		accountRepo:     accountRepo,
		auditRepo:       auditRepo,
		commissionSvc:   commissionSvc,
		subscriptionSvc: subscriptionSvc,
		jobRunner:       jobRunner,
	}
}

// HandleReconcile overwrites an account's subscription snapshot with
// provider truth and returns the before/after diff.
func (h *AdminHandler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathAccountID(w, r)
	if !ok {
		return
	}

	diff, err := h.subscriptionSvc.Reconcile(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		logger.Error("Reconciliation failed", "account_id", accountID, "error", err)
		writeError(w, http.StatusInternalServerError, "reconciliation failed")
		return
	}
	writeJSON(w, http.StatusOK, diff)
}

// HandleRecompute recomputes one account from the raw ledger and returns
// the audit record.
func (h *AdminHandler) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathAccountID(w, r)
	if !ok {
		return
	}

	audit, err := h.commissionSvc.RecomputeWithAudit(r.Context(), uuid.NewString(), domain.StepRecompute, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		logger.Error("Recompute failed", "account_id", accountID, "error", err)
		writeError(w, http.StatusInternalServerError, "recompute failed")
		return
	}
	writeJSON(w, http.StatusOK, audit)
}

// HandlePromote is the maturation hook for external schedulers.
func (h *AdminHandler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	promoted, err := h.commissionSvc.PromotePendingToAvailable(r.Context(), time.Now().UTC())
	if err != nil {
		logger.Error("Maturation pass failed", "error", err)
		writeError(w, http.StatusInternalServerError, "maturation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"promoted": promoted})
}

type migrateRequest struct {
	Steps []string `json:"steps"`
}

// HandleMigrate runs the requested migration pipeline stages in order.
func (h *AdminHandler) HandleMigrate(w http.ResponseWriter, r *http.Request) {
	var req migrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if len(req.Steps) == 0 {
		writeError(w, http.StatusBadRequest, "at least one step is required")
		return
	}

	if err := h.jobRunner.RunMigration(req.Steps); err != nil {
		logger.Error("Migration failed", "steps", req.Steps, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "completed", "steps": req.Steps})
}

type balanceResponse struct {
	AccountID    int32                     `json:"account_id"`
	Status       domain.SubscriptionStatus `json:"status"`
	BalanceCents map[string]int64          `json:"balance_cents"`
	DebtCents    map[string]int64          `json:"debt_cents"`
	Entries      []domain.LedgerEntry      `json:"entries"`
	TotalEntries int32                     `json:"total_entries"`
}

// HandleBalance returns the cached balance snapshot and a page of ledger
// entries for one affiliate.
func (h *AdminHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathAccountID(w, r)
	if !ok {
		return
	}

	account, err := h.accountRepo.GetByID(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		logger.Error("Failed to load account", "account_id", accountID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load account")
		return
	}

	page := queryInt32(r, "page", 1)
	pageSize := queryInt32(r, "page_size", 50)
	entries, total, err := h.commissionSvc.ListEntries(r.Context(), accountID, page, pageSize)
	if err != nil {
		logger.Error("Failed to list ledger entries", "account_id", accountID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list entries")
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		AccountID:    account.ID,
		Status:       account.Status,
		BalanceCents: account.BalanceCents,
		DebtCents:    account.DebtCents,
		Entries:      entries,
		TotalEntries: total,
	})
}

// HandleAudits returns recent recompute audit records for one account,
// newest first.
func (h *AdminHandler) HandleAudits(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathAccountID(w, r)
	if !ok {
		return
	}

	limit := queryInt32(r, "limit", 20)
	audits, err := h.auditRepo.ListByAccount(r.Context(), accountID, limit)
	if err != nil {
		logger.Error("Failed to list recompute audits", "account_id", accountID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list audits")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_id": accountID, "audits": audits})
}

func pathAccountID(w http.ResponseWriter, r *http.Request) (int32, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return 0, false
	}
	return int32(id), true
}

func queryInt32(r *http.Request, name string, fallback int32) int32 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || v <= 0 {
		return fallback
	}
	return int32(v)
}
