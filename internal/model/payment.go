package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is terminal once it leaves pending.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// PaymentType selects how the collected amount is resolved.
type PaymentType string

const (
	PaymentTypeDeposit PaymentType = "deposit"
	PaymentTypeInvoice PaymentType = "invoice"
	PaymentTypeFinal   PaymentType = "final"
)

// Payment is one attempt to collect money against a document. A document may
// carry several payments (retries, installments) but at most one paid row
// represents full settlement in the simple invoice flow.
type Payment struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"document_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Type       PaymentType     `json:"type"`
	Status     PaymentStatus   `json:"status"`

	ProviderSessionID string     `json:"provider_session_id,omitempty"`
	ProviderPaymentID string     `json:"provider_payment_id,omitempty"`
	PaidDate          *time.Time `json:"paid_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
