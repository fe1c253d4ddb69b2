package model

import "time"

// SignatureSession is one outstanding authorization to sign one document.
// Its ID is the capability token embedded in the shared link; holding the
// link grants the right to view and sign. Sessions are never deleted, they
// double as the signing audit trail.
// Exactly one of QuoteID/InvoiceID is set.
type SignatureSession struct {
	ID          string  `json:"id"`
	QuoteID     *string `json:"quote_id,omitempty"`
	InvoiceID   *string `json:"invoice_id,omitempty"`
	SignerEmail string  `json:"signer_email"`
	SignerName  string  `json:"signer_name"`

	Signed        bool       `json:"signed"`
	SignedAt      *time.Time `json:"signed_at,omitempty"`
	SignaturePath string     `json:"signature_path,omitempty"`

	PaymentLink       string     `json:"payment_link,omitempty"`
	PaymentLinkSentAt *time.Time `json:"payment_link_sent_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentID returns whichever document reference is set.
func (s *SignatureSession) DocumentID() string {
	if s.QuoteID != nil {
		return *s.QuoteID
	}
	if s.InvoiceID != nil {
		return *s.InvoiceID
	}
	return ""
}

// SignatureOTP binds a session to a proof-of-email-control step.
// Invariants: Attempts <= the configured cap; a verified code is never
// re-verified; an expired code is rejected even with attempts remaining.
// Rows are kept (marked verified/expired) rather than deleted.
type SignatureOTP struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id"`
	Code       string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	Attempts   int        `json:"attempts"`
	CreatedAt  time.Time  `json:"created_at"`
}
