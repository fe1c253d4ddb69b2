package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"batiflow/internal/logger"
	"batiflow/internal/model"
	"batiflow/internal/payment"
	repomocks "batiflow/internal/repository/mocks"
)

// stubPaymentService lives here rather than in the shared mocks package,
// which cannot be imported from inside this package.
type stubPaymentService struct {
	mock.Mock
}

func (m *stubPaymentService) CreateLink(ctx context.Context, tenantID, documentID string, in CreateLinkInput) (*PaymentLinkResult, error) {
	args := m.Called(ctx, tenantID, documentID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PaymentLinkResult), args.Error(1)
}

func (m *stubPaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	args := m.Called(ctx, payload, signature)
	return args.Error(0)
}

type outboxFixture struct {
	tasks    *repomocks.MockTaskOutboxRepository
	sessions *repomocks.MockSignatureSessionRepository
	docs     *repomocks.MockDocumentRepository
	emails   *repomocks.MockEmailOutboxRepository
	payments *stubPaymentService
	worker   *OutboxWorker
	now      time.Time
}

func newOutboxFixture() *outboxFixture {
	f := &outboxFixture{
		tasks:    new(repomocks.MockTaskOutboxRepository),
		sessions: new(repomocks.MockSignatureSessionRepository),
		docs:     new(repomocks.MockDocumentRepository),
		emails:   new(repomocks.MockEmailOutboxRepository),
		payments: new(stubPaymentService),
		now:      time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	f.worker = NewOutboxWorker(f.tasks, f.sessions, f.docs, f.emails, f.payments,
		5*time.Second, logger.NewNop())
	f.worker.now = func() time.Time { return f.now }
	return f
}

func (f *outboxFixture) cascadeTask(attempts int) model.OutboxTask {
	return model.OutboxTask{
		ID:       "task1",
		Kind:     model.TaskKindSignatureCascade,
		Payload:  `{"session_id":"` + testToken + `","signer_name":"Jean Dupont"}`,
		Status:   model.TaskStatusPending,
		Attempts: attempts,
		RunAfter: f.now,
	}
}

func (f *outboxFixture) signedSession() *model.SignatureSession {
	docID := testDocID
	signedAt := f.now.Add(-time.Minute)
	return &model.SignatureSession{
		ID:            testToken,
		QuoteID:       &docID,
		SignerEmail:   "contact@dupont.fr",
		SignerName:    "Dupont BTP",
		Signed:        true,
		SignedAt:      &signedAt,
		SignaturePath: "signatures/" + testToken + ".png",
	}
}

func (f *outboxFixture) signedQuote() *model.Document {
	return &model.Document{
		ID:         testDocID,
		TenantID:   "t1",
		ClientID:   "c1",
		Type:       model.DocTypeQuote,
		Number:     "DEVIS-2026-001",
		TotalGross: d("1200.00"),
	}
}

func TestOutboxWorker_SignatureCascade(t *testing.T) {
	f := newOutboxFixture()
	session := f.signedSession()
	f.tasks.On("Due", mock.Anything, f.now, 10).Return([]model.OutboxTask{f.cascadeTask(0)}, nil)
	f.sessions.On("FindByID", mock.Anything, testToken).Return(session, nil)
	f.docs.On("GetByID", mock.Anything, testDocID).Return(f.signedQuote(), nil)
	f.docs.On("MarkSigned", mock.Anything, testDocID, "Jean Dupont",
		*session.SignedAt, session.SignaturePath).Return(nil)
	f.payments.On("CreateLink", mock.Anything, "t1", testDocID, CreateLinkInput{}).
		Return(&PaymentLinkResult{
			Payment:     &model.Payment{ID: "p1", Amount: d("360.00")},
			CheckoutURL: "https://checkout.stripe.com/cs_123",
		}, nil)
	f.sessions.On("SetPaymentLink", mock.Anything, testToken,
		"https://checkout.stripe.com/cs_123", f.now).Return(nil)
	f.emails.On("Enqueue", mock.Anything, mock.MatchedBy(func(m *model.EmailMessage) bool {
		return m.To == "contact@dupont.fr"
	})).Return(&model.EmailMessage{}, nil)
	f.tasks.On("MarkDone", mock.Anything, "task1").Return(nil)

	f.worker.Tick(context.Background())

	f.tasks.AssertExpectations(t)
	f.docs.AssertExpectations(t)
	f.sessions.AssertExpectations(t)
	f.emails.AssertExpectations(t)
}

func TestOutboxWorker_CascadeWithoutPaymentProvider(t *testing.T) {
	f := newOutboxFixture()
	session := f.signedSession()
	f.tasks.On("Due", mock.Anything, f.now, 10).Return([]model.OutboxTask{f.cascadeTask(0)}, nil)
	f.sessions.On("FindByID", mock.Anything, testToken).Return(session, nil)
	f.docs.On("GetByID", mock.Anything, testDocID).Return(f.signedQuote(), nil)
	f.docs.On("MarkSigned", mock.Anything, testDocID, "Jean Dupont",
		*session.SignedAt, session.SignaturePath).Return(nil)
	f.payments.On("CreateLink", mock.Anything, "t1", testDocID, CreateLinkInput{}).
		Return(nil, payment.ErrNotConfigured)
	f.tasks.On("MarkDone", mock.Anything, "task1").Return(nil)

	f.worker.Tick(context.Background())

	// The signature sticks even when payment cannot follow.
	f.tasks.AssertCalled(t, "MarkDone", mock.Anything, "task1")
	f.sessions.AssertNotCalled(t, "SetPaymentLink",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.emails.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestOutboxWorker_RetriedCascadeSkipsExistingLink(t *testing.T) {
	f := newOutboxFixture()
	session := f.signedSession()
	session.PaymentLink = "https://checkout.stripe.com/cs_prev"
	f.tasks.On("Due", mock.Anything, f.now, 10).Return([]model.OutboxTask{f.cascadeTask(1)}, nil)
	f.sessions.On("FindByID", mock.Anything, testToken).Return(session, nil)
	f.docs.On("GetByID", mock.Anything, testDocID).Return(f.signedQuote(), nil)
	f.docs.On("MarkSigned", mock.Anything, testDocID, "Jean Dupont",
		*session.SignedAt, session.SignaturePath).Return(nil)
	f.tasks.On("MarkDone", mock.Anything, "task1").Return(nil)

	f.worker.Tick(context.Background())

	f.payments.AssertNotCalled(t, "CreateLink",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.tasks.AssertCalled(t, "MarkDone", mock.Anything, "task1")
}

func TestOutboxWorker_FailedTaskReschedulesWithDelay(t *testing.T) {
	f := newOutboxFixture()
	f.tasks.On("Due", mock.Anything, f.now, 10).Return([]model.OutboxTask{f.cascadeTask(0)}, nil)
	f.sessions.On("FindByID", mock.Anything, testToken).
		Return(nil, assert.AnError)
	f.tasks.On("Reschedule", mock.Anything, "task1", mock.Anything,
		f.now.Add(2*time.Minute)).Return(nil)

	f.worker.Tick(context.Background())

	f.tasks.AssertCalled(t, "Reschedule", mock.Anything, "task1", mock.Anything, f.now.Add(2*time.Minute))
	f.tasks.AssertNotCalled(t, "MarkDone", mock.Anything, mock.Anything)
}

func TestOutboxWorker_ExhaustedTaskIsParked(t *testing.T) {
	f := newOutboxFixture()
	f.tasks.On("Due", mock.Anything, f.now, 10).Return([]model.OutboxTask{f.cascadeTask(maxTaskAttempts - 1)}, nil)
	f.sessions.On("FindByID", mock.Anything, testToken).
		Return(nil, assert.AnError)
	f.tasks.On("MarkFailed", mock.Anything, "task1", mock.Anything).Return(nil)

	f.worker.Tick(context.Background())

	f.tasks.AssertCalled(t, "MarkFailed", mock.Anything, "task1", mock.Anything)
	f.tasks.AssertNotCalled(t, "Reschedule", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOutboxWorker_UnsignedSessionRefusesCascade(t *testing.T) {
	f := newOutboxFixture()
	session := f.signedSession()
	session.Signed = false
	session.SignedAt = nil
	f.tasks.On("Due", mock.Anything, f.now, 10).Return([]model.OutboxTask{f.cascadeTask(0)}, nil)
	f.sessions.On("FindByID", mock.Anything, testToken).Return(session, nil)
	f.tasks.On("Reschedule", mock.Anything, "task1", mock.Anything, mock.Anything).Return(nil)

	f.worker.Tick(context.Background())

	f.docs.AssertNotCalled(t, "MarkSigned",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.tasks.AssertCalled(t, "Reschedule", mock.Anything, "task1", mock.Anything, mock.Anything)
}
