package jobs

import (
	"context"
	"time"

	"affiliate-ledger-backend/internal/logger"
)

// PromotePendingCommissions matures every pending commission whose hold
// period has elapsed. The hold period absorbs refund risk: a commission
// only counts toward balance once it survives the hold.
func (jr *JobRunner) PromotePendingCommissions() {
	jr.runWithRecovery("PromotePendingCommissions", func() {
		ctx := context.Background()

		promoted, err := jr.services.Commission.PromotePendingToAvailable(ctx, time.Now().UTC())
		if err != nil {
			logger.Error("Failed to promote pending commissions", "error", err)
			return
		}

		logger.Info("Maturation pass finished", "promoted", promoted)
	})
}
