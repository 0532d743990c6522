package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"affiliate-ledger-backend/internal/domain"
	"affiliate-ledger-backend/internal/logger"
	"affiliate-ledger-backend/internal/metrics"
	"affiliate-ledger-backend/internal/repository"
)

type webhookService struct {
	accountRepo     repository.AccountRepository
	commissionSvc   CommissionService
	refundSvc       RefundService
	subscriptionSvc SubscriptionService
}

func NewWebhookService(
	accountRepo repository.AccountRepository,
	commissionSvc CommissionService,
	refundSvc RefundService,
	subscriptionSvc SubscriptionService,
) WebhookService {
	return &webhookService{
		accountRepo:     accountRepo,
		commissionSvc:   commissionSvc,
		refundSvc:       refundSvc,
		subscriptionSvc: subscriptionSvc,
	}
}

func (s *webhookService) ProcessEvent(ctx context.Context, event *domain.PaymentEvent) error {
	switch event.Type {
	case domain.EventInvoicePaid, domain.EventInvoicePaymentFailed, domain.EventInvoiceVoided:
		return s.processInvoiceEvent(ctx, event)
	case domain.EventChargeRefunded:
		return s.processRefundEvent(ctx, event)
	case domain.EventSubscriptionCreated, domain.EventSubscriptionUpdated, domain.EventSubscriptionDeleted:
		return s.processSubscriptionEvent(ctx, event)
	default:
		logger.Debug("Ignoring unhandled event type", "event_id", event.ID, "type", event.Type)
		return nil
	}
}

func (s *webhookService) processInvoiceEvent(ctx context.Context, event *domain.PaymentEvent) error {
	var invoice domain.InvoiceEvent
	if err := json.Unmarshal(event.Data, &invoice); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	account, ok, err := s.resolveAccount(ctx, event, invoice.CustomerRef)
	if err != nil || !ok {
		return err
	}

	switch event.Type {
	case domain.EventInvoicePaid:
		// Snapshot first, ledger second: the commission path has its own
		// invoice and subscription-first guards, so a retried event after
		// a partial failure here converges.
		if err := s.subscriptionSvc.MarkActiveFromInvoice(ctx, account, &invoice); err != nil {
			return err
		}
		if err := s.commissionSvc.RecordInvoicePaid(ctx, account, &invoice); err != nil {
			return err
		}
	case domain.EventInvoicePaymentFailed:
		if err := s.subscriptionSvc.RecordPaymentFailure(ctx, account, &invoice); err != nil {
			return err
		}
	case domain.EventInvoiceVoided:
		if err := s.commissionSvc.CancelPendingForInvoice(ctx, invoice.InvoiceRef); err != nil {
			return err
		}
	}

	return s.finishEvent(ctx, account, event)
}

func (s *webhookService) processRefundEvent(ctx context.Context, event *domain.PaymentEvent) error {
	var refund domain.RefundEvent
	if err := json.Unmarshal(event.Data, &refund); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	account, ok, err := s.resolveAccount(ctx, event, refund.CustomerRef)
	if err != nil || !ok {
		return err
	}

	if err := s.refundSvc.ProcessRefund(ctx, &refund); err != nil {
		return err
	}
	return s.finishEvent(ctx, account, event)
}

func (s *webhookService) processSubscriptionEvent(ctx context.Context, event *domain.PaymentEvent) error {
	var sub domain.ProviderSubscription
	if err := json.Unmarshal(event.Data, &sub); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	account, ok, err := s.resolveAccount(ctx, event, sub.CustomerRef)
	if err != nil || !ok {
		return err
	}

	if event.Type == domain.EventSubscriptionDeleted {
		if err := s.subscriptionSvc.ApplyDeletion(ctx, account, sub.SubscriptionRef); err != nil {
			return err
		}
	} else {
		if err := s.subscriptionSvc.ApplySubscription(ctx, account, &sub); err != nil {
			return err
		}
	}
	return s.finishEvent(ctx, account, event)
}

// resolveAccount maps the provider customer reference to a local account
// and applies the single-slot event marker. An unknown customer is dropped
// with a warning: an orphaned subscription cannot be reconciled. A marker
// hit is an immediate re-delivery of the same event.
func (s *webhookService) resolveAccount(ctx context.Context, event *domain.PaymentEvent, customerRef string) (*domain.Account, bool, error) {
	if customerRef == "" {
		return nil, false, fmt.Errorf("%w: missing customer reference", ErrMalformedEvent)
	}

	account, err := s.accountRepo.GetByCustomerRef(ctx, customerRef)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			logger.Warn("Event for unknown customer dropped",
				"event_id", event.ID, "type", event.Type, "customer_ref", customerRef)
			metrics.EventsDropped.WithLabelValues("unknown_customer").Inc()
			return nil, false, nil
		}
		return nil, false, err
	}

	if account.LastEventID != nil && *account.LastEventID == event.ID {
		logger.Debug("Duplicate event delivery, skipping",
			"event_id", event.ID, "account_id", account.ID)
		metrics.EventsDuplicate.Inc()
		return nil, false, nil
	}
	return account, true, nil
}

// finishEvent advances the event marker only after the event's effects are
// durable (claim-after-write): a marker can never acknowledge an event
// whose ledger write failed.
func (s *webhookService) finishEvent(ctx context.Context, account *domain.Account, event *domain.PaymentEvent) error {
	if err := s.accountRepo.MarkEventProcessed(ctx, account.ID, event.ID); err != nil {
		return err
	}
	metrics.EventsProcessed.WithLabelValues(string(event.Type)).Inc()
	return nil
}
