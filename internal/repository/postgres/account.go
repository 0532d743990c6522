package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"affiliate-ledger-backend/internal/domain"
	"affiliate-ledger-backend/internal/repository"
)

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, referral_code, referred_by_code, customer_ref, subscription_ref,
	subscription_status, price_ref, plan_interval, current_period_end, last_payment_error,
	last_event_id, balance_cents, debt_cents, balance_version, created_at, updated_at`

func (r *accountRepository) GetByID(ctx context.Context, id int32) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *accountRepository) GetByCustomerRef(ctx context.Context, customerRef string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE customer_ref = $1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, customerRef))
}

func (r *accountRepository) GetByReferralCode(ctx context.Context, code string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE referral_code = $1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, code))
}

func (r *accountRepository) scanAccount(row *sql.Row) (*domain.Account, error) {
	var account domain.Account
	var balanceRaw, debtRaw []byte
	err := row.Scan(
		&account.ID,
		&account.ReferralCode,
		&account.ReferredByCode,
		&account.CustomerRef,
		&account.SubscriptionRef,
		&account.Status,
		&account.PriceRef,
		&account.PlanInterval,
		&account.CurrentPeriodEnd,
		&account.LastPaymentError,
		&account.LastEventID,
		&balanceRaw,
		&debtRaw,
		&account.BalanceVersion,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	if account.BalanceCents, err = unmarshalCentsMap(balanceRaw); err != nil {
		return nil, fmt.Errorf("failed to decode balance map: %w", err)
	}
	if account.DebtCents, err = unmarshalCentsMap(debtRaw); err != nil {
		return nil, fmt.Errorf("failed to decode debt map: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) UpdateSubscriptionSnapshot(ctx context.Context, account *domain.Account) error {
	query := `UPDATE accounts
	          SET subscription_ref = $2, subscription_status = $3, price_ref = $4,
	              plan_interval = $5, current_period_end = $6, last_payment_error = $7,
	              updated_at = NOW()
	          WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.SubscriptionRef,
		account.Status,
		account.PriceRef,
		account.PlanInterval,
		account.CurrentPeriodEnd,
		account.LastPaymentError,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// UpdateBalanceSnapshot writes the maps guarded by the snapshot version,
// so two unserialized recomputations for the same account cannot clobber
// each other. The loser gets ErrStaleSnapshot and recomputes from a
// fresh read.
func (r *accountRepository) UpdateBalanceSnapshot(ctx context.Context, accountID int32, balances, debt map[string]int64, expectedVersion int64) error {
	balanceRaw, err := json.Marshal(balances)
	if err != nil {
		return err
	}
	debtRaw, err := json.Marshal(debt)
	if err != nil {
		return err
	}
	query := `UPDATE accounts
	          SET balance_cents = $2, debt_cents = $3,
	              balance_version = balance_version + 1, updated_at = NOW()
	          WHERE id = $1 AND balance_version = $4`
	result, err := r.db.ExecContext(ctx, query, accountID, balanceRaw, debtRaw, expectedVersion)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		var one int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id = $1`, accountID).Scan(&one)
		if err == sql.ErrNoRows {
			return domain.ErrAccountNotFound
		}
		if err != nil {
			return err
		}
		return domain.ErrStaleSnapshot
	}
	return nil
}

func (r *accountRepository) MarkEventProcessed(ctx context.Context, accountID int32, eventID string) error {
	query := `UPDATE accounts SET last_event_id = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, accountID, eventID)
	return err
}

func unmarshalCentsMap(raw []byte) (map[string]int64, error) {
	m := make(map[string]int64)
	if len(raw) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
