package domain

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusActive            SubscriptionStatus = "ACTIVE"
	SubscriptionStatusTrial             SubscriptionStatus = "TRIAL"
	SubscriptionStatusPastDue           SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusUnpaid            SubscriptionStatus = "UNPAID"
	SubscriptionStatusIncomplete        SubscriptionStatus = "INCOMPLETE"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "INCOMPLETE_EXPIRED"
	SubscriptionStatusCanceled          SubscriptionStatus = "CANCELED"
	SubscriptionStatusInactive          SubscriptionStatus = "INACTIVE"
)

// Account is a party that can be both a payer and, separately, a referrer.
// The subscription snapshot and balance maps are denormalized caches owned
// exclusively by this subsystem.
type Account struct {
	ID               int32              `json:"id"`
	ReferralCode     string             `json:"referral_code"`
	ReferredByCode   *string            `json:"referred_by_code,omitempty"`
	CustomerRef      *string            `json:"customer_ref,omitempty"`
	SubscriptionRef  *string            `json:"subscription_ref,omitempty"`
	Status           SubscriptionStatus `json:"status"`
	PriceRef         *string            `json:"price_ref,omitempty"`
	PlanInterval     *string            `json:"plan_interval,omitempty"`
	CurrentPeriodEnd *time.Time         `json:"current_period_end,omitempty"`
	LastPaymentError *string            `json:"last_payment_error,omitempty"`
	LastEventID      *string            `json:"last_event_id,omitempty"`
	BalanceCents     map[string]int64   `json:"balance_cents"`
	DebtCents        map[string]int64   `json:"debt_cents"`
	// BalanceVersion increments on every snapshot write. Writers pass
	// the version they read, so a snapshot derived from a stale entry
	// read can never overwrite a newer one.
	BalanceVersion int64     `json:"balance_version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SubscriptionSnapshot is the denormalized view maintained by the
// subscription state synchronizer and returned by reconciliation diffs.
type SubscriptionSnapshot struct {
	SubscriptionRef  *string            `json:"subscription_ref,omitempty"`
	Status           SubscriptionStatus `json:"status"`
	PriceRef         *string            `json:"price_ref,omitempty"`
	PlanInterval     *string            `json:"plan_interval,omitempty"`
	CurrentPeriodEnd *time.Time         `json:"current_period_end,omitempty"`
}

// Snapshot extracts the subscription snapshot portion of an account.
func (a *Account) Snapshot() SubscriptionSnapshot {
	return SubscriptionSnapshot{
		SubscriptionRef:  a.SubscriptionRef,
		Status:           a.Status,
		PriceRef:         a.PriceRef,
		PlanInterval:     a.PlanInterval,
		CurrentPeriodEnd: a.CurrentPeriodEnd,
	}
}

// ReconcileDiff is the before/after result of overwriting a local
// subscription snapshot with provider truth.
type ReconcileDiff struct {
	AccountID int32                `json:"account_id"`
	Before    SubscriptionSnapshot `json:"before"`
	After     SubscriptionSnapshot `json:"after"`
	Changed   bool                 `json:"changed"`
}
