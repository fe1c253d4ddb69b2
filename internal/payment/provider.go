// Package payment abstracts the hosted checkout provider. The service layer
// talks to CheckoutProvider only; the Stripe implementation lives alongside.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotConfigured is returned when no provider credentials are set.
var ErrNotConfigured = errors.New("payment provider not configured")

// CheckoutRequest describes one hosted checkout session to create.
// Amount is in major currency units (euros, not cents).
type CheckoutRequest struct {
	Amount        decimal.Decimal
	Currency      string
	Description   string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// CheckoutSession is the provider's answer: a hosted URL plus the provider
// session id used to match webhook events back to our Payment row.
type CheckoutSession struct {
	ID  string
	URL string
}

// EventKind is the normalized webhook outcome.
type EventKind string

const (
	EventPaymentSucceeded EventKind = "payment_succeeded"
	EventPaymentFailed    EventKind = "payment_failed"
	EventPaymentCancelled EventKind = "payment_cancelled"
	EventIgnored          EventKind = "ignored"
)

// WebhookEvent is a verified, normalized provider event.
type WebhookEvent struct {
	Kind              EventKind
	ProviderSessionID string
	ProviderPaymentID string
}

// CheckoutProvider is the boundary to the external payment collaborator.
type CheckoutProvider interface {
	// Configured reports whether credentials are present; the signature
	// cascade skips the payment trigger when they are not.
	Configured() bool

	// CreateCheckoutSession asks the provider for a hosted checkout URL.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// ParseWebhookEvent verifies the provider signature header and returns
	// the normalized event. Events this system does not act on come back
	// with Kind EventIgnored.
	ParseWebhookEvent(payload []byte, signature string) (*WebhookEvent, error)
}
