package service

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"batiflow/internal/config"
	"batiflow/internal/identifier"
	"batiflow/internal/logger"
	"batiflow/internal/model"
	repomocks "batiflow/internal/repository/mocks"
	"batiflow/internal/storage"
	storagemocks "batiflow/internal/storage/mocks"
)

const (
	testToken = "63bd2333-2f2d-4a4d-a0f1-b0d3e588e8e8"
	testDocID = "0e9a5f0e-6bb9-4e2d-9a6e-8a2f1bfae111"
)

type signatureFixture struct {
	sessions *repomocks.MockSignatureSessionRepository
	otps     *repomocks.MockSignatureOTPRepository
	docs     *repomocks.MockDocumentRepository
	clients  *repomocks.MockClientRepository
	audit    *repomocks.MockAuditRepository
	emails   *repomocks.MockEmailOutboxRepository
	tasks    *repomocks.MockTaskOutboxRepository
	store    *storagemocks.MockStorage
	svc      *signatureService
	now      time.Time
}

func newSignatureFixture() *signatureFixture {
	f := &signatureFixture{
		sessions: new(repomocks.MockSignatureSessionRepository),
		otps:     new(repomocks.MockSignatureOTPRepository),
		docs:     new(repomocks.MockDocumentRepository),
		clients:  new(repomocks.MockClientRepository),
		audit:    new(repomocks.MockAuditRepository),
		emails:   new(repomocks.MockEmailOutboxRepository),
		tasks:    new(repomocks.MockTaskOutboxRepository),
		store:    new(storagemocks.MockStorage),
		now:      time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	log := logger.NewNop()
	cfg := config.SignatureConfig{
		BaseURL:        "https://app.batiflow.fr",
		OTPTTLMinutes:  10,
		OTPMaxAttempts: 5,
		OTPRequired:    true,
	}
	f.svc = NewSignatureService(
		f.sessions, f.otps, f.docs, f.clients, f.audit, f.emails, f.tasks,
		f.store, identifier.New(log), cfg, log,
	).(*signatureService)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *signatureFixture) unsignedSession() *model.SignatureSession {
	docID := testDocID
	return &model.SignatureSession{
		ID:          testToken,
		QuoteID:     &docID,
		SignerEmail: "contact@dupont.fr",
		SignerName:  "Dupont BTP",
	}
}

func (f *signatureFixture) quote() *model.Document {
	return &model.Document{
		ID:       testDocID,
		TenantID: "t1",
		ClientID: "c1",
		Type:     model.DocTypeQuote,
		Number:   "DEVIS-2026-001",
		Status:   model.DocStatusSent,
	}
}

func pngDataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("fake-png-bytes"))
}

func TestSignatureService_SendForSignature(t *testing.T) {
	f := newSignatureFixture()
	doc := f.quote()
	doc.Status = model.DocStatusDraft
	f.docs.On("FindByID", mock.Anything, "t1", testDocID).Return(doc, nil)
	f.clients.On("FindByID", mock.Anything, "t1", "c1").
		Return(&model.Client{ID: "c1", Name: "Dupont BTP", Email: "contact@dupont.fr"}, nil)
	f.sessions.On("Create", mock.Anything, mock.MatchedBy(func(s *model.SignatureSession) bool {
		return s.QuoteID != nil && *s.QuoteID == testDocID && s.InvoiceID == nil &&
			s.SignerEmail == "contact@dupont.fr"
	})).Return(f.unsignedSession(), nil)
	f.emails.On("Enqueue", mock.Anything, mock.MatchedBy(func(m *model.EmailMessage) bool {
		return m.To == "contact@dupont.fr" && m.Status == model.EmailStatusPending
	})).Return(&model.EmailMessage{}, nil)
	f.docs.On("UpdateStatus", mock.Anything, testDocID, model.DocStatusSent).Return(nil)

	session, err := f.svc.SendForSignature(context.Background(), "t1", testDocID)

	require.NoError(t, err)
	assert.Equal(t, testToken, session.ID)
	f.sessions.AssertExpectations(t)
	f.emails.AssertExpectations(t)
	f.docs.AssertExpectations(t)
}

func TestSignatureService_SendForSignature_NoClientEmail(t *testing.T) {
	f := newSignatureFixture()
	f.docs.On("FindByID", mock.Anything, "t1", testDocID).Return(f.quote(), nil)
	f.clients.On("FindByID", mock.Anything, "t1", "c1").
		Return(&model.Client{ID: "c1", Name: "Dupont BTP"}, nil)

	_, err := f.svc.SendForSignature(context.Background(), "t1", testDocID)

	require.ErrorIs(t, err, ErrMissingCustomerContact)
	f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSignatureService_Get_StripsTrackingSuffix(t *testing.T) {
	f := newSignatureFixture()
	f.sessions.On("FindByID", mock.Anything, testToken).Return(f.unsignedSession(), nil)
	f.docs.On("GetByID", mock.Anything, testDocID).Return(f.quote(), nil)

	view, err := f.svc.Get(context.Background(), testToken+"-mix72c7d")

	require.NoError(t, err)
	assert.Equal(t, testToken, view.Session.ID)
	assert.Equal(t, "DEVIS-2026-001", view.Document.Number)
}

func TestSignatureService_Get_UnusableToken(t *testing.T) {
	f := newSignatureFixture()

	_, err := f.svc.Get(context.Background(), "invalid-id")

	require.ErrorIs(t, err, ErrSessionNotFound)
	f.sessions.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestSignatureService_RequestOTP(t *testing.T) {
	f := newSignatureFixture()
	f.sessions.On("FindByID", mock.Anything, testToken).Return(f.unsignedSession(), nil)
	f.otps.On("Create", mock.Anything, mock.MatchedBy(func(o *model.SignatureOTP) bool {
		return o.SessionID == testToken &&
			len(o.Code) == 6 &&
			o.ExpiresAt.Equal(f.now.Add(10*time.Minute))
	})).Return(&model.SignatureOTP{}, nil)
	f.emails.On("Enqueue", mock.Anything, mock.MatchedBy(func(m *model.EmailMessage) bool {
		return m.To == "contact@dupont.fr"
	})).Return(&model.EmailMessage{}, nil)

	err := f.svc.RequestOTP(context.Background(), testToken)

	require.NoError(t, err)
	f.otps.AssertExpectations(t)
	f.emails.AssertExpectations(t)
}

func TestSignatureService_VerifyOTP(t *testing.T) {
	valid := func(f *signatureFixture) *model.SignatureOTP {
		return &model.SignatureOTP{
			ID:        "otp1",
			SessionID: testToken,
			Code:      "123456",
			ExpiresAt: f.now.Add(5 * time.Minute),
		}
	}

	tests := []struct {
		name       string
		code       string
		setupMocks func(f *signatureFixture)
		wantErr    error
	}{
		{
			name: "correct code verifies and audits",
			code: "123456",
			setupMocks: func(f *signatureFixture) {
				f.otps.On("FindLatestBySession", mock.Anything, testToken).Return(valid(f), nil)
				f.otps.On("MarkVerified", mock.Anything, "otp1", f.now).Return(true, nil)
				f.docs.On("GetByID", mock.Anything, testDocID).Return(f.quote(), nil)
				f.audit.On("Append", mock.Anything, mock.MatchedBy(func(e *model.AuditLogEntry) bool {
					return e.Action == model.AuditActionOTPVerified && e.Origin == "public_link"
				})).Return(nil)
			},
		},
		{
			name: "wrong code burns an attempt and audits the failure",
			code: "999999",
			setupMocks: func(f *signatureFixture) {
				f.otps.On("FindLatestBySession", mock.Anything, testToken).Return(valid(f), nil)
				f.otps.On("IncrementAttempts", mock.Anything, "otp1").Return(nil)
				f.docs.On("GetByID", mock.Anything, testDocID).Return(f.quote(), nil)
				f.audit.On("Append", mock.Anything, mock.MatchedBy(func(e *model.AuditLogEntry) bool {
					return e.Action == model.AuditActionOTPFailed && e.Origin == "public_link"
				})).Return(nil)
			},
			wantErr: ErrInvalidOrExpiredCode,
		},
		{
			name: "expired code rejected even when it matches",
			code: "123456",
			setupMocks: func(f *signatureFixture) {
				otp := valid(f)
				otp.ExpiresAt = f.now.Add(-time.Minute)
				f.otps.On("FindLatestBySession", mock.Anything, testToken).Return(otp, nil)
				f.otps.On("IncrementAttempts", mock.Anything, "otp1").Return(nil)
				f.docs.On("GetByID", mock.Anything, testDocID).Return(f.quote(), nil)
				f.audit.On("Append", mock.Anything, mock.Anything).Return(nil)
			},
			wantErr: ErrInvalidOrExpiredCode,
		},
		{
			name: "attempt cap blocks further tries",
			code: "123456",
			setupMocks: func(f *signatureFixture) {
				otp := valid(f)
				otp.Attempts = 5
				f.otps.On("FindLatestBySession", mock.Anything, testToken).Return(otp, nil)
			},
			wantErr: ErrTooManyAttempts,
		},
		{
			name: "spent code is single-use",
			code: "123456",
			setupMocks: func(f *signatureFixture) {
				otp := valid(f)
				otp.Verified = true
				f.otps.On("FindLatestBySession", mock.Anything, testToken).Return(otp, nil)
			},
			wantErr: ErrCodeAlreadyUsed,
		},
		{
			name: "no code ever issued",
			code: "123456",
			setupMocks: func(f *signatureFixture) {
				f.otps.On("FindLatestBySession", mock.Anything, testToken).Return(nil, nil)
			},
			wantErr: ErrInvalidOrExpiredCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSignatureFixture()
			f.sessions.On("FindByID", mock.Anything, testToken).Return(f.unsignedSession(), nil)
			tt.setupMocks(f)

			err := f.svc.VerifyOTP(context.Background(), testToken, tt.code, "public_link")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			f.otps.AssertExpectations(t)
			f.audit.AssertExpectations(t)
		})
	}
}

func TestSignatureService_VerifyOTP_AuditsEvenWhenTenantLookupFails(t *testing.T) {
	f := newSignatureFixture()
	f.sessions.On("FindByID", mock.Anything, testToken).Return(f.unsignedSession(), nil)
	f.otps.On("FindLatestBySession", mock.Anything, testToken).Return(&model.SignatureOTP{
		ID:        "otp1",
		SessionID: testToken,
		Code:      "123456",
		ExpiresAt: f.now.Add(5 * time.Minute),
	}, nil)
	f.otps.On("IncrementAttempts", mock.Anything, "otp1").Return(nil)
	f.docs.On("GetByID", mock.Anything, testDocID).Return(nil, assert.AnError)
	// The failed attempt still lands in the audit trail, just without a
	// tenant attribution.
	f.audit.On("Append", mock.Anything, mock.MatchedBy(func(e *model.AuditLogEntry) bool {
		return e.Action == model.AuditActionOTPFailed && e.TenantID == "" && e.ResourceID == testToken
	})).Return(nil)

	err := f.svc.VerifyOTP(context.Background(), testToken, "999999", "public_link")

	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
	f.audit.AssertExpectations(t)
}

func verifiedOTP(f *signatureFixture) *model.SignatureOTP {
	return &model.SignatureOTP{
		ID:        "otp1",
		SessionID: testToken,
		Code:      "123456",
		Verified:  true,
		ExpiresAt: f.now.Add(5 * time.Minute),
	}
}

// signatureKeyForSession matches the per-attempt object key shape.
func signatureKeyForSession(k string) bool {
	return strings.HasPrefix(k, "signatures/"+testToken+"-") && strings.HasSuffix(k, ".png")
}

func TestSignatureService_Sign(t *testing.T) {
	f := newSignatureFixture()
	var putKey string
	f.sessions.On("FindByID", mock.Anything, testToken).Return(f.unsignedSession(), nil).Once()
	f.otps.On("FindLatestBySession", mock.Anything, testToken).Return(verifiedOTP(f), nil)
	f.store.On("Put", mock.Anything, mock.MatchedBy(func(k string) bool {
		putKey = k
		return signatureKeyForSession(k)
	}), mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{}, nil)
	// The session records exactly the key the image was stored under.
	f.sessions.On("MarkSigned", mock.Anything, testToken, f.now, mock.MatchedBy(func(k string) bool {
		return k == putKey
	})).Return(true, nil)
	f.docs.On("GetByID", mock.Anything, testDocID).Return(f.quote(), nil)
	f.audit.On("Append", mock.Anything, mock.MatchedBy(func(e *model.AuditLogEntry) bool {
		return e.Action == model.AuditActionDocumentSigned && e.ResourceID == testDocID
	})).Return(nil)
	f.tasks.On("Enqueue", mock.Anything, mock.MatchedBy(func(task *model.OutboxTask) bool {
		return task.Kind == model.TaskKindSignatureCascade
	})).Return(&model.OutboxTask{}, nil)

	signedAt := f.now
	signed := f.unsignedSession()
	signed.Signed = true
	signed.SignedAt = &signedAt
	signed.SignaturePath = "signatures/" + testToken + "-stored.png"
	f.sessions.On("FindByID", mock.Anything, testToken).Return(signed, nil).Once()

	got, err := f.svc.Sign(context.Background(), testToken, SignInput{
		SignerName:       "Jean Dupont",
		SignatureDataURL: pngDataURL(),
		Origin:           "public_link",
	})

	require.NoError(t, err)
	assert.True(t, got.Signed)
	f.tasks.AssertNumberOfCalls(t, "Enqueue", 1)
	f.sessions.AssertExpectations(t)
	f.store.AssertExpectations(t)
}

func TestSignatureService_Sign_LosesRaceCleansUpOnlyItsOwnImage(t *testing.T) {
	f := newSignatureFixture()
	var putKey string
	winnerKey := "signatures/" + testToken + "-winner.png"
	f.sessions.On("FindByID", mock.Anything, testToken).Return(f.unsignedSession(), nil)
	f.otps.On("FindLatestBySession", mock.Anything, testToken).Return(verifiedOTP(f), nil)
	f.store.On("Put", mock.Anything, mock.MatchedBy(func(k string) bool {
		putKey = k
		return signatureKeyForSession(k)
	}), mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{}, nil)
	f.sessions.On("MarkSigned", mock.Anything, testToken, f.now, mock.Anything).Return(false, nil)
	// Cleanup targets this attempt's object, never the one the winning
	// submission stored and the session now points at.
	f.store.On("Delete", mock.Anything, mock.MatchedBy(func(k string) bool {
		return k == putKey && k != winnerKey
	})).Return(nil)

	_, err := f.svc.Sign(context.Background(), testToken, SignInput{
		SignatureDataURL: pngDataURL(),
	})

	require.ErrorIs(t, err, ErrAlreadySigned)
	f.store.AssertExpectations(t)
	f.tasks.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	f.docs.AssertNotCalled(t, "MarkSigned", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSignatureService_Sign_OTPOptionalWhenDisabled(t *testing.T) {
	f := newSignatureFixture()
	f.svc.cfg.OTPRequired = false
	f.sessions.On("FindByID", mock.Anything, testToken).Return(f.unsignedSession(), nil).Once()
	f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{}, nil)
	f.sessions.On("MarkSigned", mock.Anything, testToken, f.now, mock.Anything).Return(true, nil)
	f.docs.On("GetByID", mock.Anything, testDocID).Return(f.quote(), nil)
	f.audit.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.tasks.On("Enqueue", mock.Anything, mock.Anything).Return(&model.OutboxTask{}, nil)

	signedAt := f.now
	signed := f.unsignedSession()
	signed.Signed = true
	signed.SignedAt = &signedAt
	f.sessions.On("FindByID", mock.Anything, testToken).Return(signed, nil).Once()

	got, err := f.svc.Sign(context.Background(), testToken, SignInput{
		SignerName:       "Jean Dupont",
		SignatureDataURL: pngDataURL(),
	})

	require.NoError(t, err)
	assert.True(t, got.Signed)
	f.otps.AssertNotCalled(t, "FindLatestBySession", mock.Anything, mock.Anything)
}

func TestSignatureService_Sign_AlreadySignedSession(t *testing.T) {
	f := newSignatureFixture()
	signed := f.unsignedSession()
	signed.Signed = true
	f.sessions.On("FindByID", mock.Anything, testToken).Return(signed, nil)

	_, err := f.svc.Sign(context.Background(), testToken, SignInput{SignatureDataURL: pngDataURL()})

	require.ErrorIs(t, err, ErrAlreadySigned)
	f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSignatureService_Sign_RequiresVerifiedOTP(t *testing.T) {
	f := newSignatureFixture()
	f.sessions.On("FindByID", mock.Anything, testToken).Return(f.unsignedSession(), nil)
	f.otps.On("FindLatestBySession", mock.Anything, testToken).Return(nil, nil)

	_, err := f.svc.Sign(context.Background(), testToken, SignInput{SignatureDataURL: pngDataURL()})

	require.ErrorIs(t, err, ErrOTPNotVerified)
}

func TestSignatureService_Sign_RejectsBadPayload(t *testing.T) {
	f := newSignatureFixture()
	f.sessions.On("FindByID", mock.Anything, testToken).Return(f.unsignedSession(), nil)
	f.otps.On("FindLatestBySession", mock.Anything, testToken).Return(verifiedOTP(f), nil)

	_, err := f.svc.Sign(context.Background(), testToken, SignInput{SignatureDataURL: "not-a-data-url"})

	require.ErrorIs(t, err, ErrInvalidSignature)
	f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
