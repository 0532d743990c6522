package service

import (
	"context"
	"errors"
	"time"

	"affiliate-ledger-backend/internal/domain"
)

// ErrMalformedEvent means a webhook payload could not be decoded; the
// handler answers 400 so the provider surfaces the failure instead of
// retrying forever.
var ErrMalformedEvent = errors.New("malformed payment event payload")

type WebhookService interface {
	// ProcessEvent converts one provider event into its ledger and
	// snapshot effects. Duplicates and unknown customers are guarded
	// no-ops, not errors.
	ProcessEvent(ctx context.Context, event *domain.PaymentEvent) error
}

type CommissionService interface {
	// RecordInvoicePaid appends a pending commission entry for the
	// buyer's referrer when this invoice represents first-time revenue.
	RecordInvoicePaid(ctx context.Context, buyer *domain.Account, invoice *domain.InvoiceEvent) error

	// CancelPendingForInvoice cancels the pending commission of a voided
	// invoice. No balance effect; pending entries are never counted.
	CancelPendingForInvoice(ctx context.Context, invoiceRef string) error

	// PromotePendingToAvailable matures due pending entries and refreshes
	// the balance snapshots of affected affiliates. Invoked by the cron
	// runner; also exposed for external schedulers.
	PromotePendingToAvailable(ctx context.Context, now time.Time) (int64, error)

	// RecomputeBalance re-runs the aggregator over the affiliate's full
	// entry set and persists the snapshot.
	RecomputeBalance(ctx context.Context, affiliateID int32) (*domain.BalanceReport, error)

	// RecomputeWithAudit recomputes one account, persists a before/after
	// audit record regardless of drift, and repairs the snapshot when
	// drift is found.
	RecomputeWithAudit(ctx context.Context, runID, step string, accountID int32) (*domain.RecomputeAudit, error)

	ListEntries(ctx context.Context, affiliateID int32, page, pageSize int32) ([]domain.LedgerEntry, int32, error)
}

type RefundService interface {
	// ProcessRefund applies the commission impact of a full or partial
	// refund. A refund with no matching commission entry is a no-op.
	ProcessRefund(ctx context.Context, refund *domain.RefundEvent) error
}

type SubscriptionService interface {
	MarkActiveFromInvoice(ctx context.Context, account *domain.Account, invoice *domain.InvoiceEvent) error
	RecordPaymentFailure(ctx context.Context, account *domain.Account, invoice *domain.InvoiceEvent) error
	ApplySubscription(ctx context.Context, account *domain.Account, sub *domain.ProviderSubscription) error
	ApplyDeletion(ctx context.Context, account *domain.Account, subscriptionRef string) error

	// Reconcile fetches provider truth for the account's customer,
	// overwrites the local snapshot and returns the before/after diff.
	Reconcile(ctx context.Context, accountID int32) (*domain.ReconcileDiff, error)
}

type AlertService interface {
	SendDriftAlert(ctx context.Context, audit *domain.RecomputeAudit) error
}
