package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"batiflow/internal/model"
	"batiflow/internal/repository"
)

// SignatureSessionPostgres is a PostgreSQL implementation of
// repository.SignatureSessionRepository.
type SignatureSessionPostgres struct {
	db *sql.DB
}

func NewSignatureSessionPostgres(db *sql.DB) *SignatureSessionPostgres {
	return &SignatureSessionPostgres{db: db}
}

var _ repository.SignatureSessionRepository = (*SignatureSessionPostgres)(nil)

const sessionColumns = `id, quote_id, invoice_id, signer_email, signer_name,
	signed, signed_at, signature_path, payment_link, payment_link_sent_at,
	created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (*model.SignatureSession, error) {
	var s model.SignatureSession
	var signedAt, linkSentAt sql.NullTime
	var signaturePath, paymentLink sql.NullString
	if err := row.Scan(
		&s.ID, &s.QuoteID, &s.InvoiceID, &s.SignerEmail, &s.SignerName,
		&s.Signed, &signedAt, &signaturePath, &paymentLink, &linkSentAt,
		&s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if signedAt.Valid {
		t := signedAt.Time
		s.SignedAt = &t
	}
	if linkSentAt.Valid {
		t := linkSentAt.Time
		s.PaymentLinkSentAt = &t
	}
	s.SignaturePath = signaturePath.String
	s.PaymentLink = paymentLink.String
	return &s, nil
}

// Create inserts a new unsigned session. The partial unique indexes on
// (quote_id)/(invoice_id) WHERE signed = false make a second active session
// for the same document fail with a unique violation.
func (r *SignatureSessionPostgres) Create(ctx context.Context, s *model.SignatureSession) (*model.SignatureSession, error) {
	const q = `
		INSERT INTO signature_sessions (id, quote_id, invoice_id, signer_email, signer_name, signed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, false, $6, $6)
		RETURNING ` + sessionColumns
	row := r.db.QueryRowContext(ctx, q,
		s.ID, s.QuoteID, s.InvoiceID, s.SignerEmail, s.SignerName, s.CreatedAt,
	)
	out, err := scanSession(row)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, fmt.Errorf("document already has an active signature session: %w", repository.ErrConflict)
		}
		return nil, err
	}
	return out, nil
}

// FindByID returns a session by its capability token.
func (r *SignatureSessionPostgres) FindByID(ctx context.Context, id string) (*model.SignatureSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM signature_sessions WHERE id = $1`
	return scanSession(r.db.QueryRowContext(ctx, q, id))
}

// MarkSigned is the sign-once guard: a conditional update branching on the
// affected-row count. Zero rows means the session was already signed and the
// caller must not fire the cascade again.
func (r *SignatureSessionPostgres) MarkSigned(ctx context.Context, id string, signedAt time.Time, signaturePath string) (bool, error) {
	const q = `
		UPDATE signature_sessions
		SET signed = true, signed_at = $2, signature_path = $3, updated_at = now()
		WHERE id = $1 AND signed = false`
	res, err := r.db.ExecContext(ctx, q, id, signedAt, signaturePath)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetPaymentLink records the issued checkout URL on the session.
func (r *SignatureSessionPostgres) SetPaymentLink(ctx context.Context, id, link string, sentAt time.Time) error {
	const q = `
		UPDATE signature_sessions
		SET payment_link = $2, payment_link_sent_at = $3, updated_at = now()
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, link, sentAt)
	return err
}

// SignatureOTPPostgres is a PostgreSQL implementation of
// repository.SignatureOTPRepository.
type SignatureOTPPostgres struct {
	db *sql.DB
}

func NewSignatureOTPPostgres(db *sql.DB) *SignatureOTPPostgres {
	return &SignatureOTPPostgres{db: db}
}

var _ repository.SignatureOTPRepository = (*SignatureOTPPostgres)(nil)

const otpColumns = `id, session_id, otp_code, expires_at, verified, verified_at, attempts, created_at`

func scanOTP(row interface{ Scan(...any) error }) (*model.SignatureOTP, error) {
	var o model.SignatureOTP
	var verifiedAt sql.NullTime
	if err := row.Scan(
		&o.ID, &o.SessionID, &o.Code, &o.ExpiresAt, &o.Verified, &verifiedAt, &o.Attempts, &o.CreatedAt,
	); err != nil {
		return nil, err
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		o.VerifiedAt = &t
	}
	return &o, nil
}

func (r *SignatureOTPPostgres) Create(ctx context.Context, otp *model.SignatureOTP) (*model.SignatureOTP, error) {
	const q = `
		INSERT INTO signature_otps (id, session_id, otp_code, expires_at, verified, attempts, created_at)
		VALUES ($1, $2, $3, $4, false, 0, $5)
		RETURNING ` + otpColumns
	row := r.db.QueryRowContext(ctx, q, otp.ID, otp.SessionID, otp.Code, otp.ExpiresAt, otp.CreatedAt)
	return scanOTP(row)
}

// FindLatestBySession returns the most recently issued code for the session,
// or nil when none exists. Spent and expired codes are returned too; the
// service layer decides what they mean.
func (r *SignatureOTPPostgres) FindLatestBySession(ctx context.Context, sessionID string) (*model.SignatureOTP, error) {
	const q = `
		SELECT ` + otpColumns + `
		FROM signature_otps
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	otp, err := scanOTP(r.db.QueryRowContext(ctx, q, sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return otp, nil
}

func (r *SignatureOTPPostgres) IncrementAttempts(ctx context.Context, id string) error {
	const q = `UPDATE signature_otps SET attempts = attempts + 1 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// MarkVerified flips verified once; a spent code reports false.
func (r *SignatureOTPPostgres) MarkVerified(ctx context.Context, id string, verifiedAt time.Time) (bool, error) {
	const q = `
		UPDATE signature_otps
		SET verified = true, verified_at = $2, attempts = attempts + 1
		WHERE id = $1 AND verified = false`
	res, err := r.db.ExecContext(ctx, q, id, verifiedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
