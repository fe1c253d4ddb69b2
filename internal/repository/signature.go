package repository

import (
	"context"
	"time"

	"batiflow/internal/model"
)

// SignatureSessionRepository persists signature sessions. Sessions are never
// deleted; they serve as the signing audit trail.
type SignatureSessionRepository interface {
	// Create inserts a new unsigned session. Partial unique indexes reject a
	// second active (unsigned) session for the same document.
	Create(ctx context.Context, s *model.SignatureSession) (*model.SignatureSession, error)

	// FindByID returns a session by its capability token.
	FindByID(ctx context.Context, id string) (*model.SignatureSession, error)

	// MarkSigned performs the sign-once conditional update:
	// UPDATE … SET signed = true … WHERE id = $1 AND signed = false.
	// It returns false when no row was affected, meaning the session was
	// already signed (or does not exist).
	MarkSigned(ctx context.Context, id string, signedAt time.Time, signaturePath string) (bool, error)

	// SetPaymentLink records the issued checkout URL on the session.
	SetPaymentLink(ctx context.Context, id, link string, sentAt time.Time) error
}

// SignatureOTPRepository persists one-time codes. Spent and expired codes are
// kept in place for audit, never deleted.
type SignatureOTPRepository interface {
	Create(ctx context.Context, otp *model.SignatureOTP) (*model.SignatureOTP, error)

	// FindLatestBySession returns the most recently issued code for a
	// session, verified or not, or nil when none exists.
	FindLatestBySession(ctx context.Context, sessionID string) (*model.SignatureOTP, error)

	// IncrementAttempts bumps the attempts counter.
	IncrementAttempts(ctx context.Context, id string) error

	// MarkVerified flips verified conditionally (WHERE verified = false) and
	// increments attempts. Returns false when the code was already spent.
	MarkVerified(ctx context.Context, id string, verifiedAt time.Time) (bool, error)
}
