package service

import (
	"context"
	"time"

	"affiliate-ledger-backend/internal/domain"
	"affiliate-ledger-backend/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepo
type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) GetByID(ctx context.Context, id int32) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAccountRepo) GetByCustomerRef(ctx context.Context, customerRef string) (*domain.Account, error) {
	args := m.Called(ctx, customerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAccountRepo) GetByReferralCode(ctx context.Context, code string) (*domain.Account, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockAccountRepo) UpdateSubscriptionSnapshot(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}
func (m *MockAccountRepo) UpdateBalanceSnapshot(ctx context.Context, accountID int32, balances, debt map[string]int64, expectedVersion int64) error {
	args := m.Called(ctx, accountID, balances, debt, expectedVersion)
	return args.Error(0)
}
func (m *MockAccountRepo) MarkEventProcessed(ctx context.Context, accountID int32, eventID string) error {
	args := m.Called(ctx, accountID, eventID)
	return args.Error(0)
}

// MockLedgerRepo
type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) CreateCommissionWithGuards(ctx context.Context, entry *domain.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
func (m *MockLedgerRepo) CreateEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
func (m *MockLedgerRepo) ListByAffiliate(ctx context.Context, affiliateID int32) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, affiliateID)
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}
func (m *MockLedgerRepo) ListByAffiliatePage(ctx context.Context, affiliateID int32, page, pageSize int32) ([]domain.LedgerEntry, int32, error) {
	args := m.Called(ctx, affiliateID, page, pageSize)
	return args.Get(0).([]domain.LedgerEntry), args.Get(1).(int32), args.Error(2)
}
func (m *MockLedgerRepo) FindCommissionByInvoice(ctx context.Context, invoiceRef string, statuses []domain.EntryStatus) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, invoiceRef, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}
func (m *MockLedgerRepo) TransitionStatus(ctx context.Context, id int32, from, to domain.EntryStatus, reversedAt *time.Time, reason *string) error {
	args := m.Called(ctx, id, from, to, reversedAt, reason)
	return args.Error(0)
}
func (m *MockLedgerRepo) PromotePending(ctx context.Context, now time.Time) ([]int32, int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]int32), args.Get(1).(int64), args.Error(2)
}
func (m *MockLedgerRepo) ListAffiliateIDs(ctx context.Context) ([]int32, error) {
	args := m.Called(ctx)
	return args.Get(0).([]int32), args.Error(1)
}
func (m *MockLedgerRepo) NormalizeCurrencies(ctx context.Context) ([]int32, error) {
	args := m.Called(ctx)
	return args.Get(0).([]int32), args.Error(1)
}
func (m *MockLedgerRepo) CountAmountAnomalies(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockLedgerRepo) ListCommissionRefs(ctx context.Context) ([]repository.CommissionRef, error) {
	args := m.Called(ctx)
	return args.Get(0).([]repository.CommissionRef), args.Error(1)
}

// MockAuditRepo
type MockAuditRepo struct {
	mock.Mock
}

func (m *MockAuditRepo) CreateRecomputeAudit(ctx context.Context, audit *domain.RecomputeAudit) error {
	args := m.Called(ctx, audit)
	return args.Error(0)
}
func (m *MockAuditRepo) ListByAccount(ctx context.Context, accountID int32, limit int32) ([]domain.RecomputeAudit, error) {
	args := m.Called(ctx, accountID, limit)
	return args.Get(0).([]domain.RecomputeAudit), args.Error(1)
}

// MockProviderClient
type MockProviderClient struct {
	mock.Mock
}

func (m *MockProviderClient) GetCustomerSubscriptions(ctx context.Context, customerRef string) ([]domain.ProviderSubscription, error) {
	args := m.Called(ctx, customerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProviderSubscription), args.Error(1)
}

// MockCommissionService
type MockCommissionService struct {
	mock.Mock
}

func (m *MockCommissionService) RecordInvoicePaid(ctx context.Context, buyer *domain.Account, invoice *domain.InvoiceEvent) error {
	args := m.Called(ctx, buyer, invoice)
	return args.Error(0)
}
func (m *MockCommissionService) CancelPendingForInvoice(ctx context.Context, invoiceRef string) error {
	args := m.Called(ctx, invoiceRef)
	return args.Error(0)
}
func (m *MockCommissionService) PromotePendingToAvailable(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockCommissionService) RecomputeBalance(ctx context.Context, affiliateID int32) (*domain.BalanceReport, error) {
	args := m.Called(ctx, affiliateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BalanceReport), args.Error(1)
}
func (m *MockCommissionService) RecomputeWithAudit(ctx context.Context, runID, step string, accountID int32) (*domain.RecomputeAudit, error) {
	args := m.Called(ctx, runID, step, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecomputeAudit), args.Error(1)
}
func (m *MockCommissionService) ListEntries(ctx context.Context, affiliateID int32, page, pageSize int32) ([]domain.LedgerEntry, int32, error) {
	args := m.Called(ctx, affiliateID, page, pageSize)
	return args.Get(0).([]domain.LedgerEntry), args.Get(1).(int32), args.Error(2)
}

// MockRefundService
type MockRefundService struct {
	mock.Mock
}

func (m *MockRefundService) ProcessRefund(ctx context.Context, refund *domain.RefundEvent) error {
	args := m.Called(ctx, refund)
	return args.Error(0)
}

// MockSubscriptionService
type MockSubscriptionService struct {
	mock.Mock
}

func (m *MockSubscriptionService) MarkActiveFromInvoice(ctx context.Context, account *domain.Account, invoice *domain.InvoiceEvent) error {
	args := m.Called(ctx, account, invoice)
	return args.Error(0)
}
func (m *MockSubscriptionService) RecordPaymentFailure(ctx context.Context, account *domain.Account, invoice *domain.InvoiceEvent) error {
	args := m.Called(ctx, account, invoice)
	return args.Error(0)
}
func (m *MockSubscriptionService) ApplySubscription(ctx context.Context, account *domain.Account, sub *domain.ProviderSubscription) error {
	args := m.Called(ctx, account, sub)
	return args.Error(0)
}
func (m *MockSubscriptionService) ApplyDeletion(ctx context.Context, account *domain.Account, subscriptionRef string) error {
	args := m.Called(ctx, account, subscriptionRef)
	return args.Error(0)
}
func (m *MockSubscriptionService) Reconcile(ctx context.Context, accountID int32) (*domain.ReconcileDiff, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReconcileDiff), args.Error(1)
}
