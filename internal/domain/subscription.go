package domain

// Raw subscription statuses as reported by the payment provider.
const (
	ProviderStatusActive            = "active"
	ProviderStatusTrialing          = "trialing"
	ProviderStatusPastDue           = "past_due"
	ProviderStatusUnpaid            = "unpaid"
	ProviderStatusIncomplete        = "incomplete"
	ProviderStatusIncompleteExpired = "incomplete_expired"
	ProviderStatusCanceled          = "canceled"
)

// statusPriority is the explicit total order used when one customer has
// several subscriptions (reconciliation/admin path). Lower is better.
// Adding a new provider status is a one-line change here.
var statusPriority = map[string]int{
	ProviderStatusActive:            0,
	ProviderStatusTrialing:          1,
	ProviderStatusPastDue:           2,
	ProviderStatusUnpaid:            3,
	ProviderStatusIncomplete:        4,
	ProviderStatusIncompleteExpired: 5,
}

// PickBestSubscription selects the most relevant of a customer's
// subscriptions by status priority, falling back to the first returned
// when no status is ranked.
func PickBestSubscription(subs []ProviderSubscription) *ProviderSubscription {
	if len(subs) == 0 {
		return nil
	}
	best := 0
	bestRank, ok := statusPriority[subs[0].RawStatus]
	if !ok {
		bestRank = len(statusPriority)
	}
	for i := 1; i < len(subs); i++ {
		rank, ok := statusPriority[subs[i].RawStatus]
		if !ok {
			continue
		}
		if rank < bestRank {
			best = i
			bestRank = rank
		}
	}
	return &subs[best]
}

// StatusFromProvider maps a raw provider status to the local snapshot
// status. A subscription flagged cancel_at_period_end is non-renewing and
// reads as CANCELED even while still entitled.
func StatusFromProvider(raw string, cancelAtPeriodEnd bool) SubscriptionStatus {
	if cancelAtPeriodEnd {
		return SubscriptionStatusCanceled
	}
	switch raw {
	case ProviderStatusActive:
		return SubscriptionStatusActive
	case ProviderStatusTrialing:
		return SubscriptionStatusTrial
	case ProviderStatusPastDue:
		return SubscriptionStatusPastDue
	case ProviderStatusUnpaid:
		return SubscriptionStatusUnpaid
	case ProviderStatusIncomplete:
		return SubscriptionStatusIncomplete
	case ProviderStatusIncompleteExpired:
		return SubscriptionStatusIncompleteExpired
	case ProviderStatusCanceled:
		return SubscriptionStatusCanceled
	default:
		return SubscriptionStatusInactive
	}
}
