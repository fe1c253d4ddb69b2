package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"batiflow/internal/config"
	"batiflow/internal/logger"
	"batiflow/internal/model"
	"batiflow/internal/payment"
	"batiflow/internal/repository"
)

var (
	// ErrMissingCustomerContact means the client record has no email address.
	// This is a hard failure: no provider call is made and no payment row is
	// written.
	ErrMissingCustomerContact = errors.New("client has no email address")

	// ErrPaymentDisabled means the tenant turned payments off.
	ErrPaymentDisabled = errors.New("payments are disabled for this tenant")

	// ErrPaymentProvider wraps provider-side checkout failures.
	ErrPaymentProvider = errors.New("payment provider error")

	// ErrInvalidPaymentType rejects a payment type outside
	// deposit/invoice/final.
	ErrInvalidPaymentType = errors.New("invalid payment type")

	// ErrNothingDue means a final payment was requested but paid payments
	// already cover the document's gross total.
	ErrNothingDue = errors.New("document balance is already collected")
)

// CreateLinkInput carries the optional per-link knobs.
type CreateLinkInput struct {
	// Type selects what the link collects: a deposit, the full invoice
	// amount, or the final remaining balance. Empty means infer from the
	// document (quotes take a deposit, invoices the full amount).
	Type model.PaymentType

	// DepositPercentOverride, when set, wins over the tenant's configured
	// deposit percentage and the global default.
	DepositPercentOverride *int
}

// PaymentLinkResult is the created pending payment plus the hosted checkout
// URL the client is sent to.
type PaymentLinkResult struct {
	Payment     *model.Payment `json:"payment"`
	CheckoutURL string         `json:"checkout_url"`
}

// PaymentService issues hosted checkout links and reconciles provider
// webhooks against the local payment rows.
type PaymentService interface {
	// CreateLink creates a pending payment and its hosted checkout URL.
	// Deposits resolve their percentage override-first (then tenant
	// setting, then the global default), invoice links collect the full
	// gross amount, and final links collect the gross minus what was
	// already paid. Without an explicit type, quotes take a deposit and
	// invoices the full amount.
	CreateLink(ctx context.Context, tenantID, documentID string, in CreateLinkInput) (*PaymentLinkResult, error)

	// HandleWebhook verifies and applies one provider event. Events for
	// already-settled or unknown sessions are idempotent no-ops.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type paymentService struct {
	payments repository.PaymentRepository
	docs     repository.DocumentRepository
	clients  repository.ClientRepository
	settings repository.TenantSettingsRepository
	audit    repository.AuditRepository
	provider payment.CheckoutProvider
	billing  config.BillingConfig
	stripe   config.StripeConfig
	log      *logger.Logger
	now      func() time.Time
}

func NewPaymentService(
	payments repository.PaymentRepository,
	docs repository.DocumentRepository,
	clients repository.ClientRepository,
	settings repository.TenantSettingsRepository,
	audit repository.AuditRepository,
	provider payment.CheckoutProvider,
	billing config.BillingConfig,
	stripe config.StripeConfig,
	log *logger.Logger,
) PaymentService {
	return &paymentService{
		payments: payments,
		docs:     docs,
		clients:  clients,
		settings: settings,
		audit:    audit,
		provider: provider,
		billing:  billing,
		stripe:   stripe,
		log:      log,
		now:      time.Now,
	}
}

func (s *paymentService) CreateLink(ctx context.Context, tenantID, documentID string, in CreateLinkInput) (*PaymentLinkResult, error) {
	switch in.Type {
	case "", model.PaymentTypeDeposit, model.PaymentTypeInvoice, model.PaymentTypeFinal:
	default:
		return nil, ErrInvalidPaymentType
	}

	doc, err := s.docs.FindByID(ctx, tenantID, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}

	client, err := s.clients.FindByID(ctx, tenantID, doc.ClientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("find client: %w", err)
	}
	if client.Email == "" {
		return nil, ErrMissingCustomerContact
	}

	if !s.provider.Configured() {
		return nil, payment.ErrNotConfigured
	}

	settings, err := s.settings.Find(ctx, tenantID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find tenant settings: %w", err)
	}
	// A tenant that never configured billing gets the defaults; an explicit
	// opt-out is honored.
	if settings != nil && !settings.PaymentEnabled {
		return nil, ErrPaymentDisabled
	}

	amount, payType, err := s.resolveAmount(ctx, doc, settings, in)
	if err != nil {
		return nil, err
	}
	currency := s.billing.Currency
	if settings != nil && settings.Currency != "" {
		currency = settings.Currency
	}

	session, err := s.provider.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		Amount:        amount,
		Currency:      currency,
		Description:   fmt.Sprintf("%s %s", doc.Type, doc.Number),
		CustomerEmail: client.Email,
		SuccessURL:    s.stripe.SuccessURL,
		CancelURL:     s.stripe.CancelURL,
		Metadata: map[string]string{
			"document_id": doc.ID,
			"tenant_id":   tenantID,
		},
	})
	if err != nil {
		// No local row exists yet, so a provider failure leaves nothing to
		// clean up.
		s.log.Errorw("checkout session creation failed",
			"tenant_id", tenantID,
			"document_id", doc.ID,
			"error", err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	now := s.now().UTC()
	created, err := s.payments.Create(ctx, &model.Payment{
		ID:                uuid.NewString(),
		DocumentID:        doc.ID,
		Amount:            amount,
		Currency:          currency,
		Type:              payType,
		Status:            model.PaymentStatusPending,
		ProviderSessionID: session.ID,
		CreatedAt:         now,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if err := s.audit.Append(ctx, &model.AuditLogEntry{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Actor:        "system",
		Action:       model.AuditActionPaymentLink,
		ResourceType: "payment",
		ResourceID:   created.ID,
		Details:      fmt.Sprintf(`{"document_id":%q,"amount":%q,"type":%q}`, doc.ID, amount.StringFixed(2), payType),
		CreatedAt:    now,
	}); err != nil {
		s.log.Errorw("audit append failed",
			"action", model.AuditActionPaymentLink,
			"payment_id", created.ID,
			"error", err)
	}

	s.log.Infow("payment link created",
		"tenant_id", tenantID,
		"document_id", doc.ID,
		"payment_id", created.ID,
		"amount", amount.StringFixed(2),
		"type", payType)

	return &PaymentLinkResult{Payment: created, CheckoutURL: session.URL}, nil
}

// resolveAmount picks what to collect for the requested payment type. With
// no explicit type, quotes take a deposit and invoices the full gross.
func (s *paymentService) resolveAmount(ctx context.Context, doc *model.Document, settings *model.TenantSettings, in CreateLinkInput) (decimal.Decimal, model.PaymentType, error) {
	payType := in.Type
	if payType == "" {
		if doc.Type == model.DocTypeInvoice {
			payType = model.PaymentTypeInvoice
		} else {
			payType = model.PaymentTypeDeposit
		}
	}

	switch payType {
	case model.PaymentTypeInvoice:
		return doc.TotalGross, payType, nil

	case model.PaymentTypeFinal:
		// The remaining balance: gross minus everything already paid
		// against this document (typically the deposit).
		prior, err := s.payments.ListByDocument(ctx, doc.ID)
		if err != nil {
			return decimal.Zero, payType, fmt.Errorf("list document payments: %w", err)
		}
		remaining := doc.TotalGross
		for _, p := range prior {
			if p.Status == model.PaymentStatusPaid {
				remaining = remaining.Sub(p.Amount)
			}
		}
		if !remaining.IsPositive() {
			return decimal.Zero, payType, ErrNothingDue
		}
		return remaining, payType, nil

	case model.PaymentTypeDeposit:
		percent := s.billing.DefaultDepositPercent
		if settings != nil && settings.DepositPercent > 0 {
			percent = settings.DepositPercent
		}
		if in.DepositPercentOverride != nil && *in.DepositPercentOverride > 0 {
			percent = *in.DepositPercentOverride
		}
		amount := doc.TotalGross.
			Mul(decimal.NewFromInt(int64(percent))).
			Div(decimal.NewFromInt(100)).
			Round(2)
		return amount, payType, nil

	default:
		return decimal.Zero, payType, ErrInvalidPaymentType
	}
}

func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.provider.ParseWebhookEvent(payload, signature)
	if err != nil {
		return fmt.Errorf("parse webhook: %w", err)
	}
	if ev.Kind == payment.EventIgnored {
		return nil
	}

	now := s.now().UTC()
	var status model.PaymentStatus
	var paidDate *time.Time
	switch ev.Kind {
	case payment.EventPaymentSucceeded:
		status = model.PaymentStatusPaid
		paidDate = &now
	case payment.EventPaymentFailed:
		status = model.PaymentStatusFailed
	case payment.EventPaymentCancelled:
		status = model.PaymentStatusCancelled
	default:
		return nil
	}

	settled, err := s.payments.SettleByProviderSessionID(ctx, ev.ProviderSessionID, status, ev.ProviderPaymentID, paidDate)
	if err != nil {
		return fmt.Errorf("settle payment: %w", err)
	}
	if !settled {
		// Replayed event, or a session this system never issued.
		s.log.Infow("webhook matched no pending payment, skipping",
			"provider_session_id", ev.ProviderSessionID,
			"kind", ev.Kind)
		return nil
	}

	s.log.Infow("payment settled",
		"provider_session_id", ev.ProviderSessionID,
		"status", status)

	if status != model.PaymentStatusPaid {
		return nil
	}

	pay, err := s.payments.FindByProviderSessionID(ctx, ev.ProviderSessionID)
	if err != nil {
		return fmt.Errorf("find settled payment: %w", err)
	}
	doc, err := s.docs.GetByID(ctx, pay.DocumentID)
	if err != nil {
		return fmt.Errorf("find paid document: %w", err)
	}

	// A paid deposit does not settle the whole document; full invoice or
	// final payments do.
	if pay.Type != model.PaymentTypeDeposit {
		if err := s.docs.UpdateStatus(ctx, doc.ID, model.DocStatusPaid); err != nil {
			return fmt.Errorf("mark document paid: %w", err)
		}
	}

	if err := s.audit.Append(ctx, &model.AuditLogEntry{
		ID:           uuid.NewString(),
		TenantID:     doc.TenantID,
		Actor:        "stripe_webhook",
		Action:       model.AuditActionPaymentPaid,
		ResourceType: "payment",
		ResourceID:   pay.ID,
		Details:      fmt.Sprintf(`{"document_id":%q,"amount":%q}`, doc.ID, pay.Amount.StringFixed(2)),
		CreatedAt:    now,
	}); err != nil {
		s.log.Errorw("audit append failed",
			"action", model.AuditActionPaymentPaid,
			"payment_id", pay.ID,
			"error", err)
	}

	return nil
}
