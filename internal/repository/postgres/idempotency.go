package postgres

import (
	"context"
	"database/sql"

	"affiliate-ledger-backend/internal/metrics"
	"affiliate-ledger-backend/internal/repository"
)

type idempotencyRepository struct {
	db *sql.DB
}

func NewIdempotencyRepository(db *sql.DB) repository.IdempotencyRepository {
	return &idempotencyRepository{db: db}
}

// TryClaim relies on the unique index on (kind, key): under concurrent
// claims for the same key exactly one INSERT lands a row and every other
// caller sees zero rows affected. Claims are never updated or deleted.
func (r *idempotencyRepository) TryClaim(ctx context.Context, kind, key string, ownerID int32) (bool, error) {
	result, err := r.db.ExecContext(ctx, claimQuery, kind, key, ownerID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		metrics.GuardConflicts.WithLabelValues(kind).Inc()
		return false, nil
	}
	return true, nil
}
