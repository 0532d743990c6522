package service

import (
	"context"
	"fmt"
	"time"

	"affiliate-ledger-backend/internal/domain"
	"affiliate-ledger-backend/internal/logger"
	"affiliate-ledger-backend/internal/provider"
	"affiliate-ledger-backend/internal/repository"
)

type subscriptionService struct {
	accountRepo    repository.AccountRepository
	providerClient provider.Client
}

func NewSubscriptionService(accountRepo repository.AccountRepository, providerClient provider.Client) SubscriptionService {
	return &subscriptionService{
		accountRepo:    accountRepo,
		providerClient: providerClient,
	}
}

func (s *subscriptionService) MarkActiveFromInvoice(ctx context.Context, account *domain.Account, invoice *domain.InvoiceEvent) error {
	account.Status = domain.SubscriptionStatusActive
	account.LastPaymentError = nil
	if invoice.SubscriptionRef != "" {
		ref := invoice.SubscriptionRef
		account.SubscriptionRef = &ref
	}
	return s.accountRepo.UpdateSubscriptionSnapshot(ctx, account)
}

// RecordPaymentFailure stores a structured last-error without changing
// status: status is driven by the subscription object, not the invoice,
// to avoid flapping.
func (s *subscriptionService) RecordPaymentFailure(ctx context.Context, account *domain.Account, invoice *domain.InvoiceEvent) error {
	message := invoice.ErrorMessage
	if message == "" {
		message = "payment failed"
	}
	lastError := fmt.Sprintf("invoice %s: %s", invoice.InvoiceRef, message)
	account.LastPaymentError = &lastError
	logger.Warn("Invoice payment failed",
		"account_id", account.ID, "invoice_ref", invoice.InvoiceRef, "error", message)
	return s.accountRepo.UpdateSubscriptionSnapshot(ctx, account)
}

func (s *subscriptionService) ApplySubscription(ctx context.Context, account *domain.Account, sub *domain.ProviderSubscription) error {
	applySubscriptionToAccount(account, sub)
	return s.accountRepo.UpdateSubscriptionSnapshot(ctx, account)
}

// ApplyDeletion clears the snapshot only when the deleted subscription is
// still the currently recorded one, guarding against a stale or duplicate
// deletion event for an already-superseded subscription.
func (s *subscriptionService) ApplyDeletion(ctx context.Context, account *domain.Account, subscriptionRef string) error {
	if account.SubscriptionRef == nil || *account.SubscriptionRef != subscriptionRef {
		logger.Debug("Ignoring deletion of superseded subscription",
			"account_id", account.ID, "deleted_ref", subscriptionRef)
		return nil
	}
	clearSubscriptionSnapshot(account)
	logger.Info("Subscription deleted, account marked inactive",
		"account_id", account.ID, "subscription_ref", subscriptionRef)
	return s.accountRepo.UpdateSubscriptionSnapshot(ctx, account)
}

func (s *subscriptionService) Reconcile(ctx context.Context, accountID int32) (*domain.ReconcileDiff, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.CustomerRef == nil || *account.CustomerRef == "" {
		return nil, fmt.Errorf("account %d has no customer reference to reconcile against", accountID)
	}

	before := account.Snapshot()

	subs, err := s.providerClient.GetCustomerSubscriptions(ctx, *account.CustomerRef)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch provider subscriptions: %w", err)
	}

	best := domain.PickBestSubscription(subs)
	if best == nil {
		clearSubscriptionSnapshot(account)
	} else {
		applySubscriptionToAccount(account, best)
	}
	if err := s.accountRepo.UpdateSubscriptionSnapshot(ctx, account); err != nil {
		return nil, err
	}

	after := account.Snapshot()
	diff := &domain.ReconcileDiff{
		AccountID: accountID,
		Before:    before,
		After:     after,
		Changed:   !snapshotsEqual(before, after),
	}
	logger.Info("Subscription snapshot reconciled",
		"account_id", accountID, "changed", diff.Changed, "status", account.Status)
	return diff, nil
}

func applySubscriptionToAccount(account *domain.Account, sub *domain.ProviderSubscription) {
	ref := sub.SubscriptionRef
	account.SubscriptionRef = &ref
	account.Status = domain.StatusFromProvider(sub.RawStatus, sub.CancelAtPeriodEnd)
	if sub.PriceRef != "" {
		price := sub.PriceRef
		account.PriceRef = &price
	}
	if sub.PlanInterval != "" {
		interval := sub.PlanInterval
		account.PlanInterval = &interval
	}
	if sub.CurrentPeriodEnd > 0 {
		periodEnd := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		account.CurrentPeriodEnd = &periodEnd
	}
}

func clearSubscriptionSnapshot(account *domain.Account) {
	account.Status = domain.SubscriptionStatusInactive
	account.SubscriptionRef = nil
	account.PriceRef = nil
	account.PlanInterval = nil
	account.CurrentPeriodEnd = nil
}

func snapshotsEqual(a, b domain.SubscriptionSnapshot) bool {
	return a.Status == b.Status &&
		stringPtrEqual(a.SubscriptionRef, b.SubscriptionRef) &&
		stringPtrEqual(a.PriceRef, b.PriceRef) &&
		stringPtrEqual(a.PlanInterval, b.PlanInterval) &&
		timePtrEqual(a.CurrentPeriodEnd, b.CurrentPeriodEnd)
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
