package service

import (
	"context"
	"testing"
	"time"

	"affiliate-ledger-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSubscriptionService_MarkActiveFromInvoice(t *testing.T) {
	ctx := context.Background()
	accountRepo := new(MockAccountRepo)
	svc := NewSubscriptionService(accountRepo, new(MockProviderClient))

	lastError := "invoice inv_0: card declined"
	account := &domain.Account{ID: 1, Status: domain.SubscriptionStatusPastDue, LastPaymentError: &lastError}
	accountRepo.On("UpdateSubscriptionSnapshot", ctx, account).Return(nil)

	err := svc.MarkActiveFromInvoice(ctx, account, &domain.InvoiceEvent{
		InvoiceRef: "inv_1", SubscriptionRef: "sub_1",
	})
	assert.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, account.Status)
	assert.Nil(t, account.LastPaymentError)
	assert.Equal(t, "sub_1", *account.SubscriptionRef)
}

func TestSubscriptionService_RecordPaymentFailure(t *testing.T) {
	ctx := context.Background()
	accountRepo := new(MockAccountRepo)
	svc := NewSubscriptionService(accountRepo, new(MockProviderClient))

	account := &domain.Account{ID: 1, Status: domain.SubscriptionStatusActive}
	accountRepo.On("UpdateSubscriptionSnapshot", ctx, account).Return(nil)

	err := svc.RecordPaymentFailure(ctx, account, &domain.InvoiceEvent{
		InvoiceRef: "inv_1", ErrorMessage: "card declined",
	})
	assert.NoError(t, err)
	// Status is driven by subscription events, not invoice failures.
	assert.Equal(t, domain.SubscriptionStatusActive, account.Status)
	assert.Equal(t, "invoice inv_1: card declined", *account.LastPaymentError)
}

func TestSubscriptionService_ApplySubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("CancelAtPeriodEndReadsCanceled", func(t *testing.T) {
		accountRepo := new(MockAccountRepo)
		svc := NewSubscriptionService(accountRepo, new(MockProviderClient))

		account := &domain.Account{ID: 1, Status: domain.SubscriptionStatusActive}
		accountRepo.On("UpdateSubscriptionSnapshot", ctx, account).Return(nil)

		periodEnd := time.Now().Add(10 * 24 * time.Hour).Unix()
		err := svc.ApplySubscription(ctx, account, &domain.ProviderSubscription{
			SubscriptionRef:   "sub_1",
			RawStatus:         domain.ProviderStatusActive,
			CancelAtPeriodEnd: true,
			CurrentPeriodEnd:  periodEnd,
		})
		assert.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusCanceled, account.Status)
		assert.Equal(t, periodEnd, account.CurrentPeriodEnd.Unix())
	})

	t.Run("PastDuePropagates", func(t *testing.T) {
		accountRepo := new(MockAccountRepo)
		svc := NewSubscriptionService(accountRepo, new(MockProviderClient))

		account := &domain.Account{ID: 1}
		accountRepo.On("UpdateSubscriptionSnapshot", ctx, account).Return(nil)

		err := svc.ApplySubscription(ctx, account, &domain.ProviderSubscription{
			SubscriptionRef: "sub_1",
			RawStatus:       domain.ProviderStatusPastDue,
			PriceRef:        "price_1",
			PlanInterval:    "month",
		})
		assert.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusPastDue, account.Status)
		assert.Equal(t, "price_1", *account.PriceRef)
		assert.Equal(t, "month", *account.PlanInterval)
	})
}

func TestSubscriptionService_ApplyDeletion(t *testing.T) {
	ctx := context.Background()

	t.Run("CurrentSubscriptionClearsSnapshot", func(t *testing.T) {
		accountRepo := new(MockAccountRepo)
		svc := NewSubscriptionService(accountRepo, new(MockProviderClient))

		ref := "sub_1"
		price := "price_1"
		account := &domain.Account{ID: 1, Status: domain.SubscriptionStatusActive, SubscriptionRef: &ref, PriceRef: &price}
		accountRepo.On("UpdateSubscriptionSnapshot", ctx, account).Return(nil)

		err := svc.ApplyDeletion(ctx, account, "sub_1")
		assert.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusInactive, account.Status)
		assert.Nil(t, account.SubscriptionRef)
		assert.Nil(t, account.PriceRef)
	})

	t.Run("StaleDeletionIsIgnored", func(t *testing.T) {
		accountRepo := new(MockAccountRepo)
		svc := NewSubscriptionService(accountRepo, new(MockProviderClient))

		ref := "sub_2"
		account := &domain.Account{ID: 1, Status: domain.SubscriptionStatusActive, SubscriptionRef: &ref}

		err := svc.ApplyDeletion(ctx, account, "sub_1")
		assert.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusActive, account.Status)
		assert.Equal(t, "sub_2", *account.SubscriptionRef)
		accountRepo.AssertNotCalled(t, "UpdateSubscriptionSnapshot", mock.Anything, mock.Anything)
	})
}

func TestSubscriptionService_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("PicksBestSubscriptionAndReportsDiff", func(t *testing.T) {
		accountRepo := new(MockAccountRepo)
		providerClient := new(MockProviderClient)
		svc := NewSubscriptionService(accountRepo, providerClient)

		customer := "cus_1"
		staleRef := "sub_old"
		account := &domain.Account{
			ID:              1,
			CustomerRef:     &customer,
			SubscriptionRef: &staleRef,
			Status:          domain.SubscriptionStatusInactive,
		}
		accountRepo.On("GetByID", ctx, int32(1)).Return(account, nil)
		providerClient.On("GetCustomerSubscriptions", ctx, "cus_1").Return([]domain.ProviderSubscription{
			{SubscriptionRef: "sub_past_due", RawStatus: domain.ProviderStatusPastDue},
			{SubscriptionRef: "sub_active", RawStatus: domain.ProviderStatusActive},
		}, nil)
		accountRepo.On("UpdateSubscriptionSnapshot", ctx, account).Return(nil)

		diff, err := svc.Reconcile(ctx, 1)
		assert.NoError(t, err)
		assert.True(t, diff.Changed)
		assert.Equal(t, "sub_old", *diff.Before.SubscriptionRef)
		assert.Equal(t, "sub_active", *diff.After.SubscriptionRef)
		assert.Equal(t, domain.SubscriptionStatusActive, diff.After.Status)
	})

	t.Run("NoProviderSubscriptionsClearsSnapshot", func(t *testing.T) {
		accountRepo := new(MockAccountRepo)
		providerClient := new(MockProviderClient)
		svc := NewSubscriptionService(accountRepo, providerClient)

		customer := "cus_1"
		ref := "sub_1"
		account := &domain.Account{
			ID:              1,
			CustomerRef:     &customer,
			SubscriptionRef: &ref,
			Status:          domain.SubscriptionStatusActive,
		}
		accountRepo.On("GetByID", ctx, int32(1)).Return(account, nil)
		providerClient.On("GetCustomerSubscriptions", ctx, "cus_1").Return([]domain.ProviderSubscription{}, nil)
		accountRepo.On("UpdateSubscriptionSnapshot", ctx, account).Return(nil)

		diff, err := svc.Reconcile(ctx, 1)
		assert.NoError(t, err)
		assert.True(t, diff.Changed)
		assert.Equal(t, domain.SubscriptionStatusInactive, diff.After.Status)
		assert.Nil(t, diff.After.SubscriptionRef)
	})

	t.Run("UnchangedSnapshotReportsNoChange", func(t *testing.T) {
		accountRepo := new(MockAccountRepo)
		providerClient := new(MockProviderClient)
		svc := NewSubscriptionService(accountRepo, providerClient)

		customer := "cus_1"
		ref := "sub_1"
		account := &domain.Account{
			ID:              1,
			CustomerRef:     &customer,
			SubscriptionRef: &ref,
			Status:          domain.SubscriptionStatusActive,
		}
		accountRepo.On("GetByID", ctx, int32(1)).Return(account, nil)
		providerClient.On("GetCustomerSubscriptions", ctx, "cus_1").Return([]domain.ProviderSubscription{
			{SubscriptionRef: "sub_1", RawStatus: domain.ProviderStatusActive},
		}, nil)
		accountRepo.On("UpdateSubscriptionSnapshot", ctx, account).Return(nil)

		diff, err := svc.Reconcile(ctx, 1)
		assert.NoError(t, err)
		assert.False(t, diff.Changed)
	})

	t.Run("MissingCustomerRefFails", func(t *testing.T) {
		accountRepo := new(MockAccountRepo)
		svc := NewSubscriptionService(accountRepo, new(MockProviderClient))

		accountRepo.On("GetByID", ctx, int32(1)).Return(&domain.Account{ID: 1}, nil)

		_, err := svc.Reconcile(ctx, 1)
		assert.Error(t, err)
	})
}
