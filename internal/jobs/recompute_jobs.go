package jobs

import (
	"context"

	"affiliate-ledger-backend/internal/domain"
	"affiliate-ledger-backend/internal/logger"

	"github.com/google/uuid"
)

// RecomputeBalances recomputes every affiliate's balance and debt from the
// raw ledger and records a before/after audit record per account, drift or
// not. Accounts are processed independently so one failure does not abort
// the batch. The job runs concurrently with live event processing; a
// transient delta taken mid-mutation self-corrects on the next run.
func (jr *JobRunner) RecomputeBalances() {
	jr.runWithRecovery("RecomputeBalances", func() {
		ctx := context.Background()
		runID := uuid.NewString()

		affiliateIDs, err := jr.ledgerRepo.ListAffiliateIDs(ctx)
		if err != nil {
			logger.Error("Failed to list affiliates for recomputation", "error", err)
			return
		}

		drifted := 0
		for _, accountID := range affiliateIDs {
			audit, err := jr.services.Commission.RecomputeWithAudit(ctx, runID, domain.StepRecompute, accountID)
			if err != nil {
				logger.Error("Failed to recompute account balance",
					"account_id", accountID, "run_id", runID, "error", err)
				continue
			}
			if audit.Drifted() {
				drifted++
				if err := jr.services.Alert.SendDriftAlert(ctx, audit); err != nil {
					logger.Error("Failed to send drift alert",
						"account_id", accountID, "run_id", runID, "error", err)
				}
			}
		}

		logger.Info("Balance recomputation finished",
			"run_id", runID,
			"accounts", len(affiliateIDs),
			"drifted", drifted)
	})
}
