package jobs

import (
	"context"
	"fmt"

	"affiliate-ledger-backend/internal/domain"
	"affiliate-ledger-backend/internal/logger"
	"affiliate-ledger-backend/internal/repository"

	"github.com/google/uuid"
)

// RunMigration runs the requested pipeline stages in order. Every stage is
// idempotent and independently re-runnable; stages communicate only
// through the persisted ledger, so any stage can be re-run in isolation
// after a partial failure.
func (jr *JobRunner) RunMigration(steps []string) error {
	runID := uuid.NewString()
	for _, step := range steps {
		var err error
		switch step {
		case domain.StepNormalize:
			err = jr.normalizeStep(runID)
		case domain.StepBackfill:
			err = jr.backfillStep(runID)
		case domain.StepRecompute:
			jr.RecomputeBalances()
		default:
			return fmt.Errorf("unknown migration step %q", step)
		}
		if err != nil {
			return fmt.Errorf("migration step %s failed: %w", step, err)
		}
	}
	return nil
}

// normalizeStep canonicalizes entry currency codes, then re-audits every
// touched account so the step leaves a per-account before/after trail.
func (jr *JobRunner) normalizeStep(runID string) error {
	ctx := context.Background()

	affected, err := jr.ledgerRepo.NormalizeCurrencies(ctx)
	if err != nil {
		return err
	}
	logger.Info("Currency normalization finished", "run_id", runID, "accounts", len(affected))

	anomalies, err := jr.ledgerRepo.CountAmountAnomalies(ctx)
	if err != nil {
		return err
	}
	if anomalies > 0 {
		logger.Warn("Zero-amount ledger entries found, manual review needed",
			"run_id", runID, "count", anomalies)
	}

	return jr.auditAccounts(ctx, runID, domain.StepNormalize, affected)
}

// backfillStep creates guard claims for historical commission entries that
// predate the idempotency guard. Claim creation is ON CONFLICT DO NOTHING,
// so re-running the step is harmless.
func (jr *JobRunner) backfillStep(runID string) error {
	ctx := context.Background()

	refs, err := jr.ledgerRepo.ListCommissionRefs(ctx)
	if err != nil {
		return err
	}

	claimed := 0
	affectedSet := make(map[int32]bool)
	var affected []int32
	for _, ref := range refs {
		created, err := jr.idempotencyRepo.TryClaim(ctx, repository.ClaimKindInvoice, ref.InvoiceRef, ref.AffiliateUserID)
		if err != nil {
			logger.Error("Failed to backfill invoice guard",
				"invoice_ref", ref.InvoiceRef, "error", err)
			continue
		}
		if created {
			claimed++
			if !affectedSet[ref.AffiliateUserID] {
				affectedSet[ref.AffiliateUserID] = true
				affected = append(affected, ref.AffiliateUserID)
			}
		}
		if ref.SubscriptionRef == "" {
			continue
		}
		created, err = jr.idempotencyRepo.TryClaim(ctx, repository.ClaimKindSubscriptionFirst, ref.SubscriptionRef, ref.AffiliateUserID)
		if err != nil {
			logger.Error("Failed to backfill subscription guard",
				"subscription_ref", ref.SubscriptionRef, "error", err)
			continue
		}
		if created {
			claimed++
			if !affectedSet[ref.AffiliateUserID] {
				affectedSet[ref.AffiliateUserID] = true
				affected = append(affected, ref.AffiliateUserID)
			}
		}
	}
	logger.Info("Guard backfill finished",
		"run_id", runID, "claims_created", claimed, "accounts", len(affected))

	return jr.auditAccounts(ctx, runID, domain.StepBackfill, affected)
}

func (jr *JobRunner) auditAccounts(ctx context.Context, runID, step string, accountIDs []int32) error {
	for _, accountID := range accountIDs {
		if _, err := jr.services.Commission.RecomputeWithAudit(ctx, runID, step, accountID); err != nil {
			logger.Error("Failed to audit account after migration step",
				"account_id", accountID, "step", step, "run_id", runID, "error", err)
		}
	}
	return nil
}
