package provider

import (
	"context"
	"sync"

	"affiliate-ledger-backend/internal/domain"
)

// MockClient implements Client against an in-memory fixture set.
// This is for demo/testing without credentials for the real provider.
type MockClient struct {
	mu            sync.RWMutex
	subscriptions map[string][]domain.ProviderSubscription
}

// NewMockClient creates an empty mock provider client.
func NewMockClient() *MockClient {
	return &MockClient{
		subscriptions: make(map[string][]domain.ProviderSubscription),
	}
}

// SetSubscriptions replaces the fixture subscriptions for one customer.
func (m *MockClient) SetSubscriptions(customerRef string, subs []domain.ProviderSubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[customerRef] = subs
}

func (m *MockClient) GetCustomerSubscriptions(ctx context.Context, customerRef string) ([]domain.ProviderSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	subs := m.subscriptions[customerRef]
	out := make([]domain.ProviderSubscription, len(subs))
	copy(out, subs)
	return out, nil
}
