package service

import (
	"context"
	"errors"
	"time"

	"affiliate-ledger-backend/internal/domain"
	"affiliate-ledger-backend/internal/logger"
	"affiliate-ledger-backend/internal/metrics"
	"affiliate-ledger-backend/internal/repository"
	"affiliate-ledger-backend/internal/utils"

	"github.com/google/uuid"
)

type commissionService struct {
	ledgerRepo      repository.LedgerRepository
	accountRepo     repository.AccountRepository
	auditRepo       repository.AuditRepository
	holdDays        int
	rateBasisPoints int64
}

func NewCommissionService(
	ledgerRepo repository.LedgerRepository,
	accountRepo repository.AccountRepository,
	auditRepo repository.AuditRepository,
	holdDays int,
	rateBasisPoints int64,
) CommissionService {
	return &commissionService{
		ledgerRepo:      ledgerRepo,
		accountRepo:     accountRepo,
		auditRepo:       auditRepo,
		holdDays:        holdDays,
		rateBasisPoints: rateBasisPoints,
	}
}

func (s *commissionService) RecordInvoicePaid(ctx context.Context, buyer *domain.Account, invoice *domain.InvoiceEvent) error {
	if buyer.ReferredByCode == nil || *buyer.ReferredByCode == "" {
		return nil
	}

	affiliate, err := s.accountRepo.GetByReferralCode(ctx, *buyer.ReferredByCode)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			logger.Warn("Referral code has no owning account, skipping commission",
				"buyer_id", buyer.ID, "referral_code", *buyer.ReferredByCode)
			metrics.EventsDropped.WithLabelValues("unknown_affiliate").Inc()
			return nil
		}
		return err
	}
	if affiliate.ID == buyer.ID {
		logger.Warn("Buyer used own referral code, skipping commission", "buyer_id", buyer.ID)
		return nil
	}

	currency, err := domain.NormalizeCurrency(invoice.Currency)
	if err != nil {
		// Never create a zero-amount entry that could be mistaken for a
		// legitimate adjustment.
		logger.Warn("Malformed invoice currency, skipping commission",
			"invoice_ref", invoice.InvoiceRef, "currency", invoice.Currency, "error", err)
		metrics.EventsDropped.WithLabelValues("malformed_currency").Inc()
		return nil
	}

	amount := utils.CommissionCents(invoice.AmountPaidCents, s.rateBasisPoints)
	if amount <= 0 {
		logger.Warn("Commission amount not positive, skipping entry",
			"invoice_ref", invoice.InvoiceRef, "amount_paid_cents", invoice.AmountPaidCents)
		metrics.EventsDropped.WithLabelValues("non_positive_amount").Inc()
		return nil
	}

	now := time.Now().UTC()
	invoiceRef := invoice.InvoiceRef
	entry := &domain.LedgerEntry{
		EntryType:       domain.EntryTypeCommission,
		Status:          domain.EntryStatusPending,
		Currency:        currency,
		AmountCents:     amount,
		AffiliateUserID: affiliate.ID,
		BuyerUserID:     &buyer.ID,
		InvoiceRef:      &invoiceRef,
		AvailableAt:     now.AddDate(0, 0, s.holdDays),
	}
	// One-off invoices carry no subscription. The ref stays nil so the
	// subscription-first guard is not claimed under the empty key, which
	// would be shared by every one-off invoice in the system.
	if invoice.SubscriptionRef != "" {
		subscriptionRef := invoice.SubscriptionRef
		entry.SubscriptionRef = &subscriptionRef
	}

	err = s.ledgerRepo.CreateCommissionWithGuards(ctx, entry)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateClaim) {
			// Re-delivered invoice or a later invoice on an already
			// credited subscription. Expected, silent at this level.
			logger.Debug("Commission already credited, guard rejected claim",
				"invoice_ref", invoice.InvoiceRef, "subscription_ref", invoice.SubscriptionRef)
			return nil
		}
		return err
	}

	metrics.CommissionsCreated.Inc()
	logger.Info("Pending commission created",
		"entry_id", entry.ID,
		"affiliate_id", affiliate.ID,
		"buyer_id", buyer.ID,
		"amount_cents", amount,
		"currency", currency,
		"available_at", entry.AvailableAt)
	return nil
}

func (s *commissionService) CancelPendingForInvoice(ctx context.Context, invoiceRef string) error {
	entry, err := s.ledgerRepo.FindCommissionByInvoice(ctx, invoiceRef,
		[]domain.EntryStatus{domain.EntryStatusPending})
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return nil
		}
		return err
	}

	reason := "invoice.voided " + invoiceRef
	err = s.ledgerRepo.TransitionStatus(ctx, entry.ID,
		domain.EntryStatusPending, domain.EntryStatusCanceled, nil, &reason)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			// Matured or already canceled in the meantime.
			return nil
		}
		return err
	}

	logger.Info("Pending commission canceled", "entry_id", entry.ID, "invoice_ref", invoiceRef)
	return nil
}

func (s *commissionService) PromotePendingToAvailable(ctx context.Context, now time.Time) (int64, error) {
	affiliateIDs, promoted, err := s.ledgerRepo.PromotePending(ctx, now)
	if err != nil {
		return 0, err
	}
	if promoted == 0 {
		return 0, nil
	}

	for _, affiliateID := range affiliateIDs {
		if _, err := s.RecomputeBalance(ctx, affiliateID); err != nil {
			// One affiliate's snapshot failure must not abort the rest;
			// the recompute job repairs it on the next run.
			logger.Error("Failed to refresh balance after maturation",
				"affiliate_id", affiliateID, "error", err)
		}
	}

	logger.Info("Promoted pending commissions", "count", promoted, "affiliates", len(affiliateIDs))
	return promoted, nil
}

// snapshotWriteAttempts bounds version-conflict retries in RecomputeBalance.
const snapshotWriteAttempts = 5

// RecomputeBalance re-derives the affiliate's balances from the full
// entry set and persists the snapshot. The version is read before the
// entries and checked on write, so a snapshot computed from a stale
// entry read loses to the concurrent writer and the whole
// read-aggregate-write cycle runs again.
func (s *commissionService) RecomputeBalance(ctx context.Context, affiliateID int32) (*domain.BalanceReport, error) {
	for attempt := 1; ; attempt++ {
		account, err := s.accountRepo.GetByID(ctx, affiliateID)
		if err != nil {
			return nil, err
		}
		entries, err := s.ledgerRepo.ListByAffiliate(ctx, affiliateID)
		if err != nil {
			return nil, err
		}
		report := domain.AggregateBalances(entries)
		for _, warning := range report.Warnings {
			logger.Warn("Balance aggregation warning", "affiliate_id", affiliateID, "warning", warning)
		}

		err = s.accountRepo.UpdateBalanceSnapshot(ctx, affiliateID, report.Balances, report.Debt, account.BalanceVersion)
		if err == nil {
			return report, nil
		}
		if !errors.Is(err, domain.ErrStaleSnapshot) || attempt == snapshotWriteAttempts {
			return nil, err
		}
		logger.Debug("Balance snapshot moved during recompute, retrying",
			"affiliate_id", affiliateID, "attempt", attempt)
	}
}

func (s *commissionService) RecomputeWithAudit(ctx context.Context, runID, step string, accountID int32) (*domain.RecomputeAudit, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	entries, err := s.ledgerRepo.ListByAffiliate(ctx, accountID)
	if err != nil {
		return nil, err
	}
	report := domain.AggregateBalances(entries)
	balanceDeltas, debtDeltas := domain.BalanceDeltas(account.BalanceCents, account.DebtCents, report)

	audit := &domain.RecomputeAudit{
		ID:            uuid.NewString(),
		RunID:         runID,
		Step:          step,
		AccountID:     accountID,
		BeforeBalance: account.BalanceCents,
		BeforeDebt:    account.DebtCents,
		AfterBalance:  report.Balances,
		AfterDebt:     report.Debt,
		BalanceDeltas: balanceDeltas,
		DebtDeltas:    debtDeltas,
		Warnings:      report.Warnings,
	}
	// The audit record is written even when nothing changed, so "no
	// drift" is itself provable.
	if err := s.auditRepo.CreateRecomputeAudit(ctx, audit); err != nil {
		return nil, err
	}

	if audit.Drifted() {
		metrics.RecomputeDrift.Inc()
		logger.Warn("Balance drift detected, repairing snapshot",
			"account_id", accountID,
			"run_id", runID,
			"balance_deltas", balanceDeltas,
			"debt_deltas", debtDeltas)
		if err := s.accountRepo.UpdateBalanceSnapshot(ctx, accountID, report.Balances, report.Debt, account.BalanceVersion); err != nil {
			if !errors.Is(err, domain.ErrStaleSnapshot) {
				return nil, err
			}
			// A concurrent mutation refreshed the snapshot while this run
			// was reading. Re-derive instead of overwriting its newer
			// write.
			if _, err := s.RecomputeBalance(ctx, accountID); err != nil {
				return nil, err
			}
		}
	}
	return audit, nil
}

func (s *commissionService) ListEntries(ctx context.Context, affiliateID int32, page, pageSize int32) ([]domain.LedgerEntry, int32, error) {
	return s.ledgerRepo.ListByAffiliatePage(ctx, affiliateID, page, pageSize)
}
