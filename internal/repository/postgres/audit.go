package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"affiliate-ledger-backend/internal/domain"
	"affiliate-ledger-backend/internal/repository"

	"github.com/lib/pq"
)

type auditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) CreateRecomputeAudit(ctx context.Context, audit *domain.RecomputeAudit) error {
	beforeBalance, err := json.Marshal(audit.BeforeBalance)
	if err != nil {
		return err
	}
	beforeDebt, err := json.Marshal(audit.BeforeDebt)
	if err != nil {
		return err
	}
	afterBalance, err := json.Marshal(audit.AfterBalance)
	if err != nil {
		return err
	}
	afterDebt, err := json.Marshal(audit.AfterDebt)
	if err != nil {
		return err
	}
	balanceDeltas, err := json.Marshal(audit.BalanceDeltas)
	if err != nil {
		return err
	}
	debtDeltas, err := json.Marshal(audit.DebtDeltas)
	if err != nil {
		return err
	}

	query := `INSERT INTO recompute_audits
	          (id, run_id, step, account_id, before_balance, before_debt,
	           after_balance, after_debt, balance_deltas, debt_deltas, warnings, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	          RETURNING created_at`
	return r.db.QueryRowContext(ctx, query,
		audit.ID, audit.RunID, audit.Step, audit.AccountID,
		beforeBalance, beforeDebt, afterBalance, afterDebt,
		balanceDeltas, debtDeltas, pq.Array(audit.Warnings),
	).Scan(&audit.CreatedAt)
}

func (r *auditRepository) ListByAccount(ctx context.Context, accountID int32, limit int32) ([]domain.RecomputeAudit, error) {
	query := `SELECT id, run_id, step, account_id, before_balance, before_debt,
	                 after_balance, after_debt, balance_deltas, debt_deltas, warnings, created_at
	          FROM recompute_audits
	          WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var audits []domain.RecomputeAudit
	for rows.Next() {
		var a domain.RecomputeAudit
		var beforeBalance, beforeDebt, afterBalance, afterDebt, balanceDeltas, debtDeltas []byte
		err := rows.Scan(&a.ID, &a.RunID, &a.Step, &a.AccountID,
			&beforeBalance, &beforeDebt, &afterBalance, &afterDebt,
			&balanceDeltas, &debtDeltas, pq.Array(&a.Warnings), &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		if err := decodeAuditMaps(&a, beforeBalance, beforeDebt, afterBalance, afterDebt, balanceDeltas, debtDeltas); err != nil {
			return nil, err
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}

func decodeAuditMaps(a *domain.RecomputeAudit, raws ...[]byte) error {
	targets := []*map[string]int64{
		&a.BeforeBalance, &a.BeforeDebt, &a.AfterBalance, &a.AfterDebt,
		&a.BalanceDeltas, &a.DebtDeltas,
	}
	for i, raw := range raws {
		if len(raw) == 0 {
			continue
		}
		if err := json.Unmarshal(raw, targets[i]); err != nil {
			return fmt.Errorf("failed to decode audit map: %w", err)
		}
	}
	return nil
}
