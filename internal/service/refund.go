package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"affiliate-ledger-backend/internal/domain"
	"affiliate-ledger-backend/internal/logger"
	"affiliate-ledger-backend/internal/metrics"
	"affiliate-ledger-backend/internal/repository"
	"affiliate-ledger-backend/internal/utils"

	"github.com/shopspring/decimal"
)

type refundService struct {
	ledgerRepo     repository.LedgerRepository
	commissionSvc  CommissionService
	partialRefunds bool
}

func NewRefundService(ledgerRepo repository.LedgerRepository, commissionSvc CommissionService, partialRefunds bool) RefundService {
	return &refundService{
		ledgerRepo:     ledgerRepo,
		commissionSvc:  commissionSvc,
		partialRefunds: partialRefunds,
	}
}

func (s *refundService) ProcessRefund(ctx context.Context, refund *domain.RefundEvent) error {
	entry, err := s.ledgerRepo.FindCommissionByInvoice(ctx, refund.InvoiceRef,
		[]domain.EntryStatus{domain.EntryStatusPending, domain.EntryStatusAvailable})
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			// Below-threshold invoice, non-referred buyer, or an already
			// reversed entry (duplicate refund notification).
			logger.Debug("Refund without matching commission entry, nothing to reverse",
				"invoice_ref", refund.InvoiceRef, "charge_ref", refund.ChargeRef)
			return nil
		}
		return err
	}

	fraction := utils.RefundFraction(refund.AmountRefundedCents, refund.AmountCapturedCents)
	if fraction.IsZero() {
		logger.Warn("Refund event carries no refunded amount, skipping",
			"invoice_ref", refund.InvoiceRef, "charge_ref", refund.ChargeRef)
		return nil
	}

	reason := fmt.Sprintf("charge.refunded %s", refund.ChargeRef)
	if !s.partialRefunds || fraction.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return s.reverseFully(ctx, entry, reason)
	}
	return s.reversePartially(ctx, entry, fraction, reason)
}

// reverseFully transitions the whole entry to REVERSED. If it was
// AVAILABLE its amount drops out of the balance on recompute; a balance
// already below the clawback lands in debt via the aggregator's clamp.
func (s *refundService) reverseFully(ctx context.Context, entry *domain.LedgerEntry, reason string) error {
	now := time.Now().UTC()
	err := s.ledgerRepo.TransitionStatus(ctx, entry.ID, entry.Status, domain.EntryStatusReversed, &now, &reason)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			// A concurrent delivery already reversed it.
			logger.Debug("Commission entry already transitioned, skipping reversal", "entry_id", entry.ID)
			return nil
		}
		return err
	}

	metrics.Reversals.WithLabelValues("full").Inc()
	logger.Info("Commission reversed",
		"entry_id", entry.ID,
		"affiliate_id", entry.AffiliateUserID,
		"amount_cents", entry.AmountCents,
		"was_status", entry.Status,
		"reason", reason)

	_, err = s.commissionSvc.RecomputeBalance(ctx, entry.AffiliateUserID)
	return err
}

// reversePartially appends a reversed adjustment for the proportional
// amount instead of mutating the original entry, preserving its audit
// trail.
func (s *refundService) reversePartially(ctx context.Context, entry *domain.LedgerEntry, fraction decimal.Decimal, reason string) error {
	amount := utils.ProportionalCents(entry.AmountCents, fraction)
	if amount <= 0 {
		logger.Warn("Proportional clawback rounds to zero, skipping adjustment",
			"entry_id", entry.ID, "fraction", fraction.String())
		return nil
	}

	now := time.Now().UTC()
	adjustment := &domain.LedgerEntry{
		EntryType:       domain.EntryTypeAdjustment,
		Status:          domain.EntryStatusReversed,
		Currency:        entry.Currency,
		AmountCents:     -amount,
		AffiliateUserID: entry.AffiliateUserID,
		BuyerUserID:     entry.BuyerUserID,
		InvoiceRef:      entry.InvoiceRef,
		SubscriptionRef: entry.SubscriptionRef,
		AvailableAt:     now,
		ReversedAt:      &now,
		ReversalReason:  &reason,
	}
	if err := s.ledgerRepo.CreateEntry(ctx, adjustment); err != nil {
		return err
	}

	metrics.Reversals.WithLabelValues("partial").Inc()
	logger.Info("Partial refund adjustment created",
		"entry_id", adjustment.ID,
		"original_entry_id", entry.ID,
		"affiliate_id", entry.AffiliateUserID,
		"amount_cents", adjustment.AmountCents,
		"reason", reason)

	_, err := s.commissionSvc.RecomputeBalance(ctx, entry.AffiliateUserID)
	return err
}
