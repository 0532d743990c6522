package domain

import (
	"fmt"
	"sort"
)

const WarningNegativeBalanceClamped = "negative_balance_clamped"

// BalanceReport is the deterministic output of aggregating an affiliate's
// full ledger entry set. Balances never go negative; any deficit is carried
// in Debt instead.
type BalanceReport struct {
	Balances map[string]int64 `json:"balances"`
	Debt     map[string]int64 `json:"debt"`
	// ReversedAdjustmentCents tracks the absolute value of reversed
	// adjustments per currency, surfaced for the audit trail.
	ReversedAdjustmentCents map[string]int64 `json:"reversed_adjustment_cents,omitempty"`
	Warnings                []string         `json:"warnings,omitempty"`
}

// countedAmount returns the signed contribution of an entry to its
// currency's running balance, and whether the entry counts at all.
// The switch over entry types is exhaustive so a new type cannot be
// silently ignored.
func countedAmount(e *LedgerEntry) (int64, bool, error) {
	switch e.EntryType {
	case EntryTypeCommission:
		// Pending commissions have not matured; canceled and reversed
		// ones never count or no longer count.
		if e.Status == EntryStatusAvailable {
			return e.AmountCents, true, nil
		}
		return 0, false, nil
	case EntryTypeAdjustment:
		// A reversed adjustment still contributes its signed amount: it
		// is the durable record of a correction (e.g. a partial-refund
		// clawback), not an undone one.
		if e.Status == EntryStatusAvailable || e.Status == EntryStatusReversed {
			return e.AmountCents, true, nil
		}
		return 0, false, nil
	case EntryTypeRedeem:
		if e.Status == EntryStatusPaid {
			return e.AmountCents, true, nil
		}
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("unknown entry type %q", e.EntryType)
	}
}

// AggregateBalances derives per-currency balances and debt from the full
// entry set of one affiliate. It is pure and re-runnable: the batch
// recomputation job relies on it producing identical output to the cached
// snapshot maintained after each mutation.
func AggregateBalances(entries []LedgerEntry) *BalanceReport {
	report := &BalanceReport{
		Balances:                make(map[string]int64),
		Debt:                    make(map[string]int64),
		ReversedAdjustmentCents: make(map[string]int64),
	}

	net := make(map[string]int64)
	for i := range entries {
		e := &entries[i]
		amount, counted, err := countedAmount(e)
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("entry %d: %v", e.ID, err))
			continue
		}
		if counted {
			net[e.Currency] += amount
		}
		if e.EntryType == EntryTypeAdjustment && e.Status == EntryStatusReversed {
			abs := e.AmountCents
			if abs < 0 {
				abs = -abs
			}
			report.ReversedAdjustmentCents[e.Currency] += abs
		}
	}

	currencies := make([]string, 0, len(net))
	for currency := range net {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)

	for _, currency := range currencies {
		sum := net[currency]
		if sum < 0 {
			report.Debt[currency] += -sum
			report.Balances[currency] = 0
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("%s:%s", WarningNegativeBalanceClamped, currency))
			continue
		}
		report.Balances[currency] = sum
	}

	return report
}

// BalanceDeltas returns per-currency differences between a cached snapshot
// and a freshly recomputed report. Empty result means no drift.
func BalanceDeltas(cachedBalances, cachedDebt map[string]int64, fresh *BalanceReport) (balanceDeltas, debtDeltas map[string]int64) {
	balanceDeltas = mapDeltas(cachedBalances, fresh.Balances)
	debtDeltas = mapDeltas(cachedDebt, fresh.Debt)
	return balanceDeltas, debtDeltas
}

func mapDeltas(cached, fresh map[string]int64) map[string]int64 {
	deltas := make(map[string]int64)
	for currency, v := range fresh {
		if cached[currency] != v {
			deltas[currency] = v - cached[currency]
		}
	}
	for currency, v := range cached {
		if _, ok := fresh[currency]; !ok && v != 0 {
			deltas[currency] = -v
		}
	}
	return deltas
}
