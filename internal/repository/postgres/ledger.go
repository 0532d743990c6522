package postgres

import (
	"context"
	"database/sql"
	"time"

	"affiliate-ledger-backend/internal/domain"
	"affiliate-ledger-backend/internal/metrics"
	"affiliate-ledger-backend/internal/repository"

	"github.com/lib/pq"
)

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

const entryColumns = `id, entry_type, status, currency, amount_cents, affiliate_user_id,
	buyer_user_id, invoice_ref, subscription_ref, available_at, created_at, updated_at,
	reversed_at, reversal_reason`

const insertEntryQuery = `INSERT INTO ledger_entries
	(entry_type, status, currency, amount_cents, affiliate_user_id, buyer_user_id,
	 invoice_ref, subscription_ref, available_at, reversed_at, reversal_reason,
	 created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	RETURNING id, created_at, updated_at`

const claimQuery = `INSERT INTO idempotency_claims (kind, key, owner_id, created_at)
	VALUES ($1, $2, $3, NOW()) ON CONFLICT (kind, key) DO NOTHING`

// CreateCommissionWithGuards claims the invoice guard and, when the
// entry references a subscription, the subscription-first-time guard,
// then inserts the entry in one transaction.
// A claim can therefore never exist without its ledger effect. The
// affiliate's account row is locked so concurrent mutations for the same
// affiliate serialize.
func (r *ledgerRepository) CreateCommissionWithGuards(ctx context.Context, entry *domain.LedgerEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var locked int32
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, entry.AffiliateUserID).Scan(&locked)
	if err == sql.ErrNoRows {
		return domain.ErrAccountNotFound
	}
	if err != nil {
		return err
	}

	if err := tryClaimTx(ctx, tx, repository.ClaimKindInvoice, derefString(entry.InvoiceRef), entry.AffiliateUserID); err != nil {
		return err
	}
	// The subscription-first guard only exists for entries that belong to
	// a subscription. Claiming an empty key would turn the unique index
	// on (kind, key) into a single global slot.
	if subscriptionRef := derefString(entry.SubscriptionRef); subscriptionRef != "" {
		if err := tryClaimTx(ctx, tx, repository.ClaimKindSubscriptionFirst, subscriptionRef, entry.AffiliateUserID); err != nil {
			return err
		}
	}

	err = tx.QueryRowContext(ctx, insertEntryQuery,
		entry.EntryType, entry.Status, entry.Currency, entry.AmountCents,
		entry.AffiliateUserID, entry.BuyerUserID, entry.InvoiceRef,
		entry.SubscriptionRef, entry.AvailableAt, entry.ReversedAt, entry.ReversalReason,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func tryClaimTx(ctx context.Context, tx *sql.Tx, kind, key string, ownerID int32) error {
	result, err := tx.ExecContext(ctx, claimQuery, kind, key, ownerID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		metrics.GuardConflicts.WithLabelValues(kind).Inc()
		return domain.ErrDuplicateClaim
	}
	return nil
}

func (r *ledgerRepository) CreateEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	return r.db.QueryRowContext(ctx, insertEntryQuery,
		entry.EntryType, entry.Status, entry.Currency, entry.AmountCents,
		entry.AffiliateUserID, entry.BuyerUserID, entry.InvoiceRef,
		entry.SubscriptionRef, entry.AvailableAt, entry.ReversedAt, entry.ReversalReason,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
}

func (r *ledgerRepository) ListByAffiliate(ctx context.Context, affiliateID int32) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries
	          WHERE affiliate_user_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, affiliateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *ledgerRepository) ListByAffiliatePage(ctx context.Context, affiliateID int32, page, pageSize int32) ([]domain.LedgerEntry, int32, error) {
	offset := (page - 1) * pageSize
	query := `SELECT ` + entryColumns + ` FROM ledger_entries
	          WHERE affiliate_user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, affiliateID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, 0, err
	}

	var count int32
	countQuery := `SELECT count(*) FROM ledger_entries WHERE affiliate_user_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, affiliateID).Scan(&count); err != nil {
		return nil, 0, err
	}
	return entries, count, nil
}

func (r *ledgerRepository) FindCommissionByInvoice(ctx context.Context, invoiceRef string, statuses []domain.EntryStatus) (*domain.LedgerEntry, error) {
	statusStrings := make([]string, len(statuses))
	for i, s := range statuses {
		statusStrings[i] = string(s)
	}
	query := `SELECT ` + entryColumns + ` FROM ledger_entries
	          WHERE invoice_ref = $1 AND entry_type = $2 AND status = ANY($3)
	          ORDER BY id LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, invoiceRef, domain.EntryTypeCommission, pq.Array(statusStrings))
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *ledgerRepository) TransitionStatus(ctx context.Context, id int32, from, to domain.EntryStatus, reversedAt *time.Time, reason *string) error {
	if !domain.CanTransition(from, to) {
		return domain.ErrInvalidTransition
	}
	query := `UPDATE ledger_entries
	          SET status = $3, reversed_at = COALESCE($4, reversed_at),
	              reversal_reason = COALESCE($5, reversal_reason), updated_at = NOW()
	          WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, from, to, reversedAt, reason)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Another transition won the race, or the entry moved on already.
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *ledgerRepository) PromotePending(ctx context.Context, now time.Time) ([]int32, int64, error) {
	query := `UPDATE ledger_entries
	          SET status = $1, updated_at = NOW()
	          WHERE status = $2 AND available_at <= $3
	          RETURNING affiliate_user_id`
	rows, err := r.db.QueryContext(ctx, query, domain.EntryStatusAvailable, domain.EntryStatusPending, now)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	seen := make(map[int32]bool)
	var affiliateIDs []int32
	var promoted int64
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, 0, err
		}
		promoted++
		if !seen[id] {
			seen[id] = true
			affiliateIDs = append(affiliateIDs, id)
		}
	}
	return affiliateIDs, promoted, rows.Err()
}

func (r *ledgerRepository) ListAffiliateIDs(ctx context.Context) ([]int32, error) {
	query := `SELECT DISTINCT affiliate_user_id FROM ledger_entries ORDER BY affiliate_user_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ledgerRepository) NormalizeCurrencies(ctx context.Context) ([]int32, error) {
	query := `UPDATE ledger_entries
	          SET currency = UPPER(TRIM(currency)), updated_at = NOW()
	          WHERE currency <> UPPER(TRIM(currency))
	          RETURNING affiliate_user_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[int32]bool)
	var ids []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

func (r *ledgerRepository) CountAmountAnomalies(ctx context.Context) (int64, error) {
	query := `SELECT count(*) FROM ledger_entries
	          WHERE amount_cents = 0 AND status IN ($1, $2)`
	var count int64
	err := r.db.QueryRowContext(ctx, query,
		domain.EntryStatusPending, domain.EntryStatusAvailable).Scan(&count)
	return count, err
}

func (r *ledgerRepository) ListCommissionRefs(ctx context.Context) ([]repository.CommissionRef, error) {
	query := `SELECT affiliate_user_id, invoice_ref, COALESCE(subscription_ref, '')
	          FROM ledger_entries
	          WHERE entry_type = $1 AND invoice_ref IS NOT NULL
	          ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, domain.EntryTypeCommission)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []repository.CommissionRef
	for rows.Next() {
		var ref repository.CommissionRef
		if err := rows.Scan(&ref.AffiliateUserID, &ref.InvoiceRef, &ref.SubscriptionRef); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := row.Scan(
		&e.ID, &e.EntryType, &e.Status, &e.Currency, &e.AmountCents,
		&e.AffiliateUserID, &e.BuyerUserID, &e.InvoiceRef, &e.SubscriptionRef,
		&e.AvailableAt, &e.CreatedAt, &e.UpdatedAt, &e.ReversedAt, &e.ReversalReason,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
