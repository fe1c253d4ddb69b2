package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocType identifies the commercial document kind. The values double as the
// human-readable number prefix (DEVIS-2026-001, FACTURE-2026-001).
type DocType string

const (
	DocTypeQuote   DocType = "DEVIS"
	DocTypeInvoice DocType = "FACTURE"
)

// DocStatus is the document lifecycle state. Transitions are forward-only
// except draft->sent, which may repeat on re-send. signed is never undone.
type DocStatus string

const (
	DocStatusDraft     DocStatus = "draft"
	DocStatusSent      DocStatus = "sent"
	DocStatusSigned    DocStatus = "signed"
	DocStatusAccepted  DocStatus = "accepted"
	DocStatusRejected  DocStatus = "rejected"
	DocStatusPaid      DocStatus = "paid"
	DocStatusCancelled DocStatus = "cancelled"
	DocStatusExpired   DocStatus = "expired"
)

// Document is a quote or invoice. Number is assigned once at creation and is
// never renumbered, even if a sequence gap is later discovered.
// Invariant: TotalGross = TotalNet + TotalTax (within currency rounding).
type Document struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	ClientID  string    `json:"client_id"`
	Type      DocType   `json:"type"`
	Number    string    `json:"number"`
	Status    DocStatus `json:"status"`
	LineItems string    `json:"line_items"`

	TotalNet   decimal.Decimal `json:"total_net"`
	TotalTax   decimal.Decimal `json:"total_tax"`
	TotalGross decimal.Decimal `json:"total_gross"`
	TaxRate    decimal.Decimal `json:"tax_rate"`

	Signed        bool       `json:"signed"`
	SignedAt      *time.Time `json:"signed_at,omitempty"`
	SignedBy      string     `json:"signed_by,omitempty"`
	SignaturePath string     `json:"signature_path,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Client is the document counterparty.
type Client struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TenantSettings holds per-tenant billing preferences. DepositPercent <= 0
// means not configured; the billing default applies.
type TenantSettings struct {
	TenantID       string    `json:"tenant_id"`
	PaymentEnabled bool      `json:"payment_enabled"`
	DepositPercent int       `json:"deposit_percent"`
	Currency       string    `json:"currency"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
