package model

import "time"

// Audit action kinds written by the signature and payment flows.
const (
	AuditActionDocumentSigned = "document_signed"
	AuditActionOTPVerified    = "otp_verified"
	AuditActionOTPFailed      = "otp_failed"
	AuditActionPaymentLink    = "payment_link_created"
	AuditActionPaymentPaid    = "payment_paid"
)

// AuditLogEntry is an immutable, append-only record of a sensitive action.
// Never mutated or deleted by application logic.
type AuditLogEntry struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Actor        string    `json:"actor"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Details      string    `json:"details,omitempty"`
	Origin       string    `json:"origin,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
