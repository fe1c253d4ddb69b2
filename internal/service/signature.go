package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"batiflow/internal/config"
	"batiflow/internal/identifier"
	"batiflow/internal/logger"
	"batiflow/internal/model"
	"batiflow/internal/repository"
	"batiflow/internal/storage"
)

var (
	ErrSessionNotFound      = errors.New("signature session not found")
	ErrSessionConflict      = errors.New("document already has an active signature session")
	ErrAlreadySigned        = errors.New("document already signed")
	ErrInvalidSignature     = errors.New("signature image payload is invalid")
	ErrOTPNotVerified       = errors.New("email verification required before signing")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired verification code")
	ErrCodeAlreadyUsed      = errors.New("verification code already used")
	ErrTooManyAttempts      = errors.New("too many verification attempts")
)

// SignInput is the signer-submitted payload.
type SignInput struct {
	SignerName string
	// SignatureDataURL is the drawn signature as a PNG data URL
	// (data:image/png;base64,…).
	SignatureDataURL string
	// Origin identifies the caller context for the audit trail
	// (e.g. public_link, backoffice).
	Origin string
}

// SignatureView is what the public signing page renders: the session plus the
// document it covers. Totals and line items come along; the OTP code never
// does.
type SignatureView struct {
	Session  *model.SignatureSession `json:"session"`
	Document *model.Document         `json:"document"`
}

// SignatureService owns the e-signature lifecycle: issuing capability links,
// proving email control with one-time codes, and the sign-once transition
// that triggers the downstream cascade.
type SignatureService interface {
	// SendForSignature creates a signature session for the document and
	// queues the capability link email to the client. The document moves to
	// sent.
	SendForSignature(ctx context.Context, tenantID, documentID string) (*model.SignatureSession, error)

	// Get resolves a raw capability token to the session and its document.
	Get(ctx context.Context, rawToken string) (*SignatureView, error)

	// RequestOTP issues a fresh one-time code to the signer's email.
	RequestOTP(ctx context.Context, rawToken string) error

	// VerifyOTP checks a submitted code against the latest issued one.
	VerifyOTP(ctx context.Context, rawToken, code, origin string) error

	// Sign stores the signature image and performs the sign-once transition.
	// The document/payment follow-up runs asynchronously from the task
	// outbox, so a crash after the transition never loses the cascade.
	Sign(ctx context.Context, rawToken string, in SignInput) (*model.SignatureSession, error)
}

type signatureService struct {
	sessions  repository.SignatureSessionRepository
	otps      repository.SignatureOTPRepository
	docs      repository.DocumentRepository
	clients   repository.ClientRepository
	audit     repository.AuditRepository
	emails    repository.EmailOutboxRepository
	tasks     repository.TaskOutboxRepository
	store     storage.Storage
	extractor *identifier.Extractor
	cfg       config.SignatureConfig
	log       *logger.Logger
	now       func() time.Time
}

func NewSignatureService(
	sessions repository.SignatureSessionRepository,
	otps repository.SignatureOTPRepository,
	docs repository.DocumentRepository,
	clients repository.ClientRepository,
	audit repository.AuditRepository,
	emails repository.EmailOutboxRepository,
	tasks repository.TaskOutboxRepository,
	store storage.Storage,
	extractor *identifier.Extractor,
	cfg config.SignatureConfig,
	log *logger.Logger,
) SignatureService {
	return &signatureService{
		sessions:  sessions,
		otps:      otps,
		docs:      docs,
		clients:   clients,
		audit:     audit,
		emails:    emails,
		tasks:     tasks,
		store:     store,
		extractor: extractor,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

func (s *signatureService) SendForSignature(ctx context.Context, tenantID, documentID string) (*model.SignatureSession, error) {
	doc, err := s.docs.FindByID(ctx, tenantID, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	if doc.Signed {
		return nil, ErrAlreadySigned
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

	now := s.now().UTC()
	session := &model.SignatureSession{
		ID:          uuid.NewString(),
		SignerEmail: client.Email,
		SignerName:  client.Name,
		CreatedAt:   now,
	}
	if doc.Type == model.DocTypeQuote {
		session.QuoteID = &doc.ID
	} else {
		session.InvoiceID = &doc.ID
	}

	created, err := s.sessions.Create(ctx, session)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrSessionConflict
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	link := s.signingLink(doc.Type, created.ID)
	if _, err := s.emails.Enqueue(ctx, &model.EmailMessage{
		ID:        uuid.NewString(),
		To:        client.Email,
		Subject:   fmt.Sprintf("Signature demandée : %s", doc.Number),
		HTML:      signatureRequestEmail(client.Name, doc.Number, link),
		Status:    model.EmailStatusPending,
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("enqueue signature email: %w", err)
	}

	if err := s.docs.UpdateStatus(ctx, doc.ID, model.DocStatusSent); err != nil {
		return nil, fmt.Errorf("mark document sent: %w", err)
	}

	s.log.Infow("document sent for signature",
		"tenant_id", tenantID,
		"document_id", doc.ID,
		"session_id", created.ID)
	return created, nil
}

// signingLink builds the public capability URL. Quotes and invoices render on
// different pages, so their paths differ.
func (s *signatureService) signingLink(t model.DocType, token string) string {
	base := strings.TrimRight(s.cfg.BaseURL, "/")
	if t == model.DocTypeQuote {
		return fmt.Sprintf("%s/signature-quote/%s", base, token)
	}
	return fmt.Sprintf("%s/signature/%s", base, token)
}

// resolve maps a raw token (possibly mangled in transit) to its session.
func (s *signatureService) resolve(ctx context.Context, rawToken string) (*model.SignatureSession, error) {
	token, ok := s.extractor.Extract(rawToken)
	if !ok {
		return nil, ErrSessionNotFound
	}
	session, err := s.sessions.FindByID(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return session, nil
}

func (s *signatureService) Get(ctx context.Context, rawToken string) (*SignatureView, error) {
	session, err := s.resolve(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.GetByID(ctx, session.DocumentID())
	if err != nil {
		return nil, fmt.Errorf("find session document: %w", err)
	}
	return &SignatureView{Session: session, Document: doc}, nil
}

func (s *signatureService) RequestOTP(ctx context.Context, rawToken string) error {
	session, err := s.resolve(ctx, rawToken)
	if err != nil {
		return err
	}
	if session.Signed {
		return ErrAlreadySigned
	}

	code, err := generateOTPCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	now := s.now().UTC()
	otp := &model.SignatureOTP{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Code:      code,
		ExpiresAt: now.Add(time.Duration(s.cfg.OTPTTLMinutes) * time.Minute),
		CreatedAt: now,
	}
	if _, err := s.otps.Create(ctx, otp); err != nil {
		return fmt.Errorf("create otp: %w", err)
	}

	if _, err := s.emails.Enqueue(ctx, &model.EmailMessage{
		ID:        uuid.NewString(),
		To:        session.SignerEmail,
		Subject:   "Votre code de vérification",
		HTML:      otpEmail(code, s.cfg.OTPTTLMinutes),
		Status:    model.EmailStatusPending,
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("enqueue otp email: %w", err)
	}

	s.log.Infow("otp issued", "session_id", session.ID)
	return nil
}

func (s *signatureService) VerifyOTP(ctx context.Context, rawToken, code, origin string) error {
	session, err := s.resolve(ctx, rawToken)
	if err != nil {
		return err
	}

	otp, err := s.otps.FindLatestBySession(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("find otp: %w", err)
	}
	if otp == nil {
		return ErrInvalidOrExpiredCode
	}
	if otp.Verified {
		return ErrCodeAlreadyUsed
	}
	if otp.Attempts >= s.cfg.OTPMaxAttempts {
		return ErrTooManyAttempts
	}

	now := s.now().UTC()
	if now.After(otp.ExpiresAt) || otp.Code != code {
		if err := s.otps.IncrementAttempts(ctx, otp.ID); err != nil {
			return fmt.Errorf("record failed attempt: %w", err)
		}
		s.auditOTP(ctx, session, model.AuditActionOTPFailed, origin)
		return ErrInvalidOrExpiredCode
	}

	verified, err := s.otps.MarkVerified(ctx, otp.ID, now)
	if err != nil {
		return fmt.Errorf("mark otp verified: %w", err)
	}
	if !verified {
		// Lost a race with a concurrent verification of the same code.
		return ErrCodeAlreadyUsed
	}

	s.auditOTP(ctx, session, model.AuditActionOTPVerified, origin)
	return nil
}

// auditOTP writes the verification outcome. The audit trail must record the
// attempt even when the attempt itself fails, so append errors are logged and
// swallowed.
func (s *signatureService) auditOTP(ctx context.Context, session *model.SignatureSession, action, origin string) {
	tenantID := ""
	if doc, err := s.docs.GetByID(ctx, session.DocumentID()); err != nil {
		s.log.Errorw("audit tenant lookup failed",
			"session_id", session.ID,
			"document_id", session.DocumentID(),
			"error", err)
	} else {
		tenantID = doc.TenantID
	}
	entry := &model.AuditLogEntry{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Actor:        session.SignerEmail,
		Action:       action,
		ResourceType: "signature_session",
		ResourceID:   session.ID,
		Origin:       origin,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.Errorw("audit append failed",
			"action", action,
			"session_id", session.ID,
			"error", err)
	}
}

func (s *signatureService) Sign(ctx context.Context, rawToken string, in SignInput) (*model.SignatureSession, error) {
	session, err := s.resolve(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if session.Signed {
		return nil, ErrAlreadySigned
	}

	if s.cfg.OTPRequired {
		otp, err := s.otps.FindLatestBySession(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("find otp: %w", err)
		}
		if otp == nil || !otp.Verified {
			return nil, ErrOTPNotVerified
		}
	}

	png, err := decodeSignatureDataURL(in.SignatureDataURL)
	if err != nil {
		return nil, ErrInvalidSignature
	}

	// The key is unique per attempt so a losing concurrent submission only
	// ever deletes its own object, never the winner's stored image.
	key := fmt.Sprintf("signatures/%s-%s.png", session.ID, uuid.NewString())
	if _, err := s.store.Put(ctx, key, bytes.NewReader(png), storage.PutObjectOptions{
		Size:        int64(len(png)),
		ContentType: "image/png",
	}); err != nil {
		return nil, fmt.Errorf("store signature image: %w", err)
	}

	now := s.now().UTC()
	won, err := s.sessions.MarkSigned(ctx, session.ID, now, key)
	if err != nil {
		return nil, fmt.Errorf("mark session signed: %w", err)
	}
	if !won {
		// A concurrent request signed first. Our image is an orphan; remove
		// it and report the duplicate, without re-firing the cascade.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.log.Warnw("orphan signature image cleanup failed",
				"key", key, "error", delErr)
		}
		return nil, ErrAlreadySigned
	}

	doc, err := s.docs.GetByID(ctx, session.DocumentID())
	if err != nil {
		return nil, fmt.Errorf("find session document: %w", err)
	}

	signerName := in.SignerName
	if signerName == "" {
		signerName = session.SignerName
	}

	if err := s.audit.Append(ctx, &model.AuditLogEntry{
		ID:           uuid.NewString(),
		TenantID:     doc.TenantID,
		Actor:        session.SignerEmail,
		Action:       model.AuditActionDocumentSigned,
		ResourceType: "document",
		ResourceID:   doc.ID,
		Details:      fmt.Sprintf(`{"number":%q,"signer":%q}`, doc.Number, signerName),
		Origin:       in.Origin,
		CreatedAt:    now,
	}); err != nil {
		s.log.Errorw("audit append failed",
			"action", model.AuditActionDocumentSigned,
			"document_id", doc.ID,
			"error", err)
	}

	payload, _ := json.Marshal(signatureCascadePayload{
		SessionID:  session.ID,
		SignerName: signerName,
	})
	if _, err := s.tasks.Enqueue(ctx, &model.OutboxTask{
		ID:        uuid.NewString(),
		Kind:      model.TaskKindSignatureCascade,
		Payload:   string(payload),
		Status:    model.TaskStatusPending,
		RunAfter:  now,
		CreatedAt: now,
	}); err != nil {
		// The session is signed; only the follow-up failed to enqueue. Log
		// loudly so the cascade can be replayed by hand.
		s.log.Errorw("signature cascade enqueue failed",
			"session_id", session.ID,
			"error", err)
	}

	s.log.Infow("document signed",
		"document_id", doc.ID,
		"session_id", session.ID,
		"number", doc.Number)

	signed, err := s.sessions.FindByID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("reload session: %w", err)
	}
	return signed, nil
}

// signatureCascadePayload is the task outbox payload for the post-signature
// follow-up (document status + payment link).
type signatureCascadePayload struct {
	SessionID  string `json:"session_id"`
	SignerName string `json:"signer_name"`
}

// generateOTPCode draws a uniformly random 6-digit code.
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// decodeSignatureDataURL accepts a PNG data URL and returns the raw bytes.
func decodeSignatureDataURL(dataURL string) ([]byte, error) {
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(dataURL, prefix) {
		return nil, errors.New("not a png data url")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, prefix))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("empty image")
	}
	return raw, nil
}

func signatureRequestEmail(name, number, link string) string {
	return fmt.Sprintf(`<p>Bonjour %s,</p>
<p>Le document <strong>%s</strong> est prêt à être signé.</p>
<p><a href="%s">Consulter et signer le document</a></p>`, name, number, link)
}

func otpEmail(code string, ttlMinutes int) string {
	return fmt.Sprintf(`<p>Votre code de vérification : <strong>%s</strong></p>
<p>Il expire dans %d minutes.</p>`, code, ttlMinutes)
}
