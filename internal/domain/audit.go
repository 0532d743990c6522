package domain

import "time"

// Migration/recomputation step names. Each step is idempotent and
// independently re-runnable; they communicate only through the persisted
// ledger.
const (
	StepNormalize = "normalize"
	StepBackfill  = "backfill"
	StepRecompute = "recompute"
)

// RecomputeAudit is one before/after record for one account and one run of
// a recomputation or migration step. A record is written even when nothing
// changed, so that "no drift" is itself provable.
type RecomputeAudit struct {
	ID            string           `json:"id"`
	RunID         string           `json:"run_id"`
	Step          string           `json:"step"`
	AccountID     int32            `json:"account_id"`
	BeforeBalance map[string]int64 `json:"before_balance"`
	BeforeDebt    map[string]int64 `json:"before_debt"`
	AfterBalance  map[string]int64 `json:"after_balance"`
	AfterDebt     map[string]int64 `json:"after_debt"`
	BalanceDeltas map[string]int64 `json:"balance_deltas,omitempty"`
	DebtDeltas    map[string]int64 `json:"debt_deltas,omitempty"`
	Warnings      []string         `json:"warnings,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Drifted reports whether the recomputation found any difference between
// the cached snapshot and the fresh aggregation.
func (a *RecomputeAudit) Drifted() bool {
	return len(a.BalanceDeltas) > 0 || len(a.DebtDeltas) > 0
}
