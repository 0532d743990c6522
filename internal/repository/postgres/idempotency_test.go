package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestIdempotencyRepository_TryClaim(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewIdempotencyRepository(db)
	ctx := context.Background()

	t.Run("FirstClaimWins", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO idempotency_claims").
			WithArgs("invoice", "inv_1", int32(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		created, err := repo.TryClaim(ctx, "invoice", "inv_1", 1)
		assert.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("SecondClaimIsRejectedWithoutError", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO idempotency_claims").
			WithArgs("invoice", "inv_1", int32(2)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		created, err := repo.TryClaim(ctx, "invoice", "inv_1", 2)
		assert.NoError(t, err)
		assert.False(t, created)
	})
}
