package repository

import (
	"context"
	"time"

	"batiflow/internal/model"
)

// PaymentRepository persists payment attempts.
type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) (*model.Payment, error)

	// FindByProviderSessionID matches a webhook event back to its payment.
	FindByProviderSessionID(ctx context.Context, providerSessionID string) (*model.Payment, error)

	// SettleByProviderSessionID transitions the matched pending payment to a
	// terminal status. paidDate and providerPaymentID apply only to paid.
	// Returns false when no pending payment matched (already settled or
	// unknown session), which callers treat as an idempotent no-op.
	SettleByProviderSessionID(ctx context.Context, providerSessionID string, status model.PaymentStatus, providerPaymentID string, paidDate *time.Time) (bool, error)

	// ListByDocument returns all payment attempts for a document.
	ListByDocument(ctx context.Context, documentID string) ([]model.Payment, error)
}
