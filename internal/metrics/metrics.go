package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Aggregate counters for event processing. Guard conflicts are expected
// and silent at the guard level; this is the only place they surface.
var (
	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_events_processed_total",
		Help: "Payment provider events processed, by event type.",
	}, []string{"type"})

	EventsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_events_duplicate_total",
		Help: "Events rejected by the per-account last-event marker.",
	})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_events_dropped_total",
		Help: "Events dropped without ledger effect, by reason.",
	}, []string{"reason"})

	GuardConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idempotency_guard_conflicts_total",
		Help: "Uniqueness-claim rejections, by guard kind.",
	}, []string{"kind"})

	CommissionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commission_entries_created_total",
		Help: "Pending commission entries appended to the ledger.",
	})

	Reversals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commission_reversals_total",
		Help: "Refund-driven reversals applied, by mode (full or partial).",
	}, []string{"mode"})

	RecomputeDrift = promauto.NewCounter(prometheus.CounterOpts{
		Name: "balance_recompute_drift_total",
		Help: "Recomputation runs where cached balance or debt diverged from the ledger.",
	})
)
