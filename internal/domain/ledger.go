package domain

import "time"

type EntryType string

const (
	EntryTypeCommission EntryType = "COMMISSION"
	EntryTypeAdjustment EntryType = "ADJUSTMENT"
	EntryTypeRedeem     EntryType = "REDEEM"
)

type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "PENDING"
	EntryStatusAvailable EntryStatus = "AVAILABLE"
	EntryStatusPaid      EntryStatus = "PAID"
	EntryStatusCanceled  EntryStatus = "CANCELED"
	EntryStatusReversed  EntryStatus = "REVERSED"
)

// LedgerEntry is one financial record affecting an affiliate's balance.
// Entries are immutable once they reach a terminal status (PAID, CANCELED,
// REVERSED); corrections are expressed as new ADJUSTMENT entries.
type LedgerEntry struct {
	ID              int32       `json:"id"`
	EntryType       EntryType   `json:"entry_type"`
	Status          EntryStatus `json:"status"`
	Currency        string      `json:"currency"`
	AmountCents     int64       `json:"amount_cents"` // positive for credit, negative for debit
	AffiliateUserID int32       `json:"affiliate_user_id"`
	BuyerUserID     *int32      `json:"buyer_user_id,omitempty"`
	InvoiceRef      *string     `json:"invoice_ref,omitempty"`
	SubscriptionRef *string     `json:"subscription_ref,omitempty"`
	AvailableAt     time.Time   `json:"available_at"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	ReversedAt      *time.Time  `json:"reversed_at,omitempty"`
	ReversalReason  *string     `json:"reversal_reason,omitempty"`
}

// allowedTransitions encodes the entry state machine. No transition
// re-enters a prior state.
var allowedTransitions = map[EntryStatus]map[EntryStatus]bool{
	EntryStatusPending: {
		EntryStatusAvailable: true,
		EntryStatusCanceled:  true,
		EntryStatusReversed:  true,
	},
	EntryStatusAvailable: {
		EntryStatusPaid:     true,
		EntryStatusReversed: true,
	},
}

// CanTransition reports whether the entry state machine permits moving
// from one status to another.
func CanTransition(from, to EntryStatus) bool {
	return allowedTransitions[from][to]
}

// IsTerminal reports whether a status permits no further transitions.
func IsTerminal(status EntryStatus) bool {
	return len(allowedTransitions[status]) == 0
}
