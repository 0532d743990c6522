package repository

import (
	"context"
	"time"

	"affiliate-ledger-backend/internal/domain"
)

type AccountRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Account, error)
	GetByCustomerRef(ctx context.Context, customerRef string) (*domain.Account, error)
	GetByReferralCode(ctx context.Context, code string) (*domain.Account, error)

	// UpdateSubscriptionSnapshot persists the denormalized subscription
	// state (status, refs, period end, last payment error).
	UpdateSubscriptionSnapshot(ctx context.Context, account *domain.Account) error

	// UpdateBalanceSnapshot persists the cached per-currency balance and
	// debt maps for one affiliate. The write is a compare-and-swap on the
	// snapshot version read along with the account; it returns
	// domain.ErrStaleSnapshot when a concurrent write moved the version,
	// in which case the caller re-reads and recomputes.
	UpdateBalanceSnapshot(ctx context.Context, accountID int32, balances, debt map[string]int64, expectedVersion int64) error

	// MarkEventProcessed advances the single-slot last-processed-event
	// marker. It only detects immediate re-delivery of the same event.
	MarkEventProcessed(ctx context.Context, accountID int32, eventID string) error
}

// Idempotency claim kinds. One claim per invoice that yields commission,
// one per subscription that yields its first commission.
const (
	ClaimKindInvoice           = "invoice"
	ClaimKindSubscriptionFirst = "subscription_first"
)

// CommissionRef links a historical commission entry to its external
// references; used by the migration backfill stage.
type CommissionRef struct {
	AffiliateUserID int32
	InvoiceRef      string
	SubscriptionRef string
}

type LedgerRepository interface {
	// CreateCommissionWithGuards atomically claims the invoice guard and,
	// when the entry references a subscription, the subscription-first-time
	// guard, then inserts the commission entry, all in one transaction.
	// Either every claim and the entry are durable, or nothing is. Returns
	// domain.ErrDuplicateClaim when a guard key was already claimed.
	CreateCommissionWithGuards(ctx context.Context, entry *domain.LedgerEntry) error

	CreateEntry(ctx context.Context, entry *domain.LedgerEntry) error
	ListByAffiliate(ctx context.Context, affiliateID int32) ([]domain.LedgerEntry, error)
	ListByAffiliatePage(ctx context.Context, affiliateID int32, page, pageSize int32) ([]domain.LedgerEntry, int32, error)

	// FindCommissionByInvoice resolves the commission entry for an
	// invoice, restricted to the given statuses. Returns
	// domain.ErrEntryNotFound when no entry matches.
	FindCommissionByInvoice(ctx context.Context, invoiceRef string, statuses []domain.EntryStatus) (*domain.LedgerEntry, error)

	// TransitionStatus updates an entry's status guarded by its expected
	// current status, so concurrent transitions cannot double-apply.
	TransitionStatus(ctx context.Context, id int32, from, to domain.EntryStatus, reversedAt *time.Time, reason *string) error

	// PromotePending matures every PENDING entry whose hold period has
	// elapsed and returns the affected affiliate ids.
	PromotePending(ctx context.Context, now time.Time) ([]int32, int64, error)

	// ListAffiliateIDs returns every affiliate that owns ledger entries.
	ListAffiliateIDs(ctx context.Context) ([]int32, error)

	// NormalizeCurrencies uppercases non-canonical entry currency codes
	// and returns the affected affiliate ids.
	NormalizeCurrencies(ctx context.Context) ([]int32, error)

	// CountAmountAnomalies counts non-terminal entries with a zero amount.
	// Such entries should never exist; the migration normalize stage
	// surfaces them for manual review.
	CountAmountAnomalies(ctx context.Context) (int64, error)

	// ListCommissionRefs returns external references for every commission
	// entry, for guard backfill.
	ListCommissionRefs(ctx context.Context) ([]CommissionRef, error)
}

type IdempotencyRepository interface {
	// TryClaim atomically creates the unique record (kind, key) -> owner.
	// Returns true on the first claim, false when the key already exists.
	// Claims are append-only and permanent.
	TryClaim(ctx context.Context, kind, key string, ownerID int32) (bool, error)
}

type AuditRepository interface {
	CreateRecomputeAudit(ctx context.Context, audit *domain.RecomputeAudit) error
	ListByAccount(ctx context.Context, accountID int32, limit int32) ([]domain.RecomputeAudit, error)
}
