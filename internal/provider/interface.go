package provider

import (
	"context"

	"affiliate-ledger-backend/internal/domain"
)

// Client is the slice of the payment provider API this core consumes: the
// reconciliation path fetches current subscription truth for one customer.
// The real SDK lives outside this repository.
type Client interface {
	GetCustomerSubscriptions(ctx context.Context, customerRef string) ([]domain.ProviderSubscription, error)
}
