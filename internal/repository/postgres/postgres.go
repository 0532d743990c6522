package postgres

import (
	"database/sql"

	"affiliate-ledger-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.AccountRepository
	repository.LedgerRepository
	repository.IdempotencyRepository
	repository.AuditRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                    db,
		AccountRepository:     NewAccountRepository(db),
		LedgerRepository:      NewLedgerRepository(db),
		IdempotencyRepository: NewIdempotencyRepository(db),
		AuditRepository:       NewAuditRepository(db),
	}
}
