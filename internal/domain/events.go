package domain

import "encoding/json"

type EventType string

const (
	EventInvoicePaid          EventType = "invoice.paid"
	EventInvoicePaymentFailed EventType = "invoice.payment_failed"
	EventInvoiceVoided        EventType = "invoice.voided"
	EventChargeRefunded       EventType = "charge.refunded"
	EventSubscriptionCreated  EventType = "subscription.created"
	EventSubscriptionUpdated  EventType = "subscription.updated"
	EventSubscriptionDeleted  EventType = "subscription.deleted"
)

// PaymentEvent is the webhook envelope delivered by the payment provider.
// Delivery offers no ordering or at-most-once guarantee.
type PaymentEvent struct {
	ID      string          `json:"id"`
	Type    EventType       `json:"type"`
	Created int64           `json:"created"`
	Data    json.RawMessage `json:"data"`
}

// InvoiceEvent is the payload for invoice.paid, invoice.payment_failed and
// invoice.voided events.
type InvoiceEvent struct {
	InvoiceRef      string `json:"invoice_ref"`
	CustomerRef     string `json:"customer_ref"`
	SubscriptionRef string `json:"subscription_ref"`
	Currency        string `json:"currency"`
	AmountPaidCents int64  `json:"amount_paid_cents"`
	AmountDueCents  int64  `json:"amount_due_cents"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

// RefundEvent is the payload for charge.refunded events. AmountCapturedCents
// is the original charge amount; a partial refund carries a smaller
// AmountRefundedCents.
type RefundEvent struct {
	ChargeRef           string `json:"charge_ref"`
	InvoiceRef          string `json:"invoice_ref"`
	CustomerRef         string `json:"customer_ref"`
	Currency            string `json:"currency"`
	AmountRefundedCents int64  `json:"amount_refunded_cents"`
	AmountCapturedCents int64  `json:"amount_captured_cents"`
}

// ProviderSubscription is the subscription object as reported by the
// provider, both in lifecycle events and in reconciliation fetches.
type ProviderSubscription struct {
	SubscriptionRef   string `json:"subscription_ref"`
	CustomerRef       string `json:"customer_ref"`
	RawStatus         string `json:"status"`
	PriceRef          string `json:"price_ref"`
	PlanInterval      string `json:"plan_interval"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64  `json:"current_period_end"`
}
