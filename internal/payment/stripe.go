package payment

import (
	"context"
	"encoding/json"
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"batiflow/internal/config"
	"batiflow/internal/logger"

	"github.com/shopspring/decimal"
)

// StripeProvider implements CheckoutProvider on Stripe Checkout.
type StripeProvider struct {
	client        *stripe.Client
	webhookSecret string
	log           *logger.Logger
}

// NewStripe builds a provider from config. With no secret key it stays
// unconfigured and every call short-circuits with ErrNotConfigured.
func NewStripe(cfg config.StripeConfig, log *logger.Logger) *StripeProvider {
	p := &StripeProvider{webhookSecret: cfg.WebhookSecret, log: log}
	if cfg.SecretKey != "" {
		p.client = stripe.NewClient(cfg.SecretKey)
	}
	return p
}

var _ CheckoutProvider = (*StripeProvider)(nil)

func (p *StripeProvider) Configured() bool {
	return p.client != nil
}

// CreateCheckoutSession creates a one-item Stripe checkout session for the
// exact requested amount.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if p.client == nil {
		return nil, ErrNotConfigured
	}

	amountCents := req.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()

	params := &stripe.CheckoutSessionCreateParams{
		Mode:          stripe.String("payment"),
		SuccessURL:    stripe.String(req.SuccessURL),
		CancelURL:     stripe.String(req.CancelURL),
		CustomerEmail: stripe.String(req.CustomerEmail),
		Metadata:      req.Metadata,
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(amountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: req.Metadata,
		},
	}

	session, err := p.client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		p.log.Errorw("stripe checkout session creation failed", "error", err)
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// ParseWebhookEvent verifies the Stripe-Signature header before trusting the
// payload, then normalizes the event types this system reconciles on.
func (p *StripeProvider) ParseWebhookEvent(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		p.log.Warnw("stripe webhook verification failed", "error", err)
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		s, err := sessionFromEvent(&event)
		if err != nil {
			return nil, err
		}
		out := &WebhookEvent{Kind: EventPaymentSucceeded, ProviderSessionID: s.ID}
		if s.PaymentIntent != nil {
			out.ProviderPaymentID = s.PaymentIntent.ID
		}
		return out, nil
	case "checkout.session.async_payment_failed":
		s, err := sessionFromEvent(&event)
		if err != nil {
			return nil, err
		}
		return &WebhookEvent{Kind: EventPaymentFailed, ProviderSessionID: s.ID}, nil
	case "checkout.session.expired":
		s, err := sessionFromEvent(&event)
		if err != nil {
			return nil, err
		}
		return &WebhookEvent{Kind: EventPaymentCancelled, ProviderSessionID: s.ID}, nil
	default:
		return &WebhookEvent{Kind: EventIgnored}, nil
	}
}

func sessionFromEvent(event *stripe.Event) (*stripe.CheckoutSession, error) {
	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("decode checkout session payload: %w", err)
	}
	return &s, nil
}
