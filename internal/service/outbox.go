package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"batiflow/internal/logger"
	"batiflow/internal/model"
	"batiflow/internal/payment"
	"batiflow/internal/repository"
)

// maxTaskAttempts is how often a cascade task is retried before it is parked
// as failed for manual reconciliation.
const maxTaskAttempts = 5

// OutboxWorker drains the durable task queue. The signature cascade runs
// here: once a session wins the sign-once transition, this worker mirrors the
// signature onto the document and issues the payment link. Every step is
// idempotent so a task can be retried from the top.
type OutboxWorker struct {
	tasks    repository.TaskOutboxRepository
	sessions repository.SignatureSessionRepository
	docs     repository.DocumentRepository
	emails   repository.EmailOutboxRepository
	payments PaymentService
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time
}

func NewOutboxWorker(
	tasks repository.TaskOutboxRepository,
	sessions repository.SignatureSessionRepository,
	docs repository.DocumentRepository,
	emails repository.EmailOutboxRepository,
	payments PaymentService,
	interval time.Duration,
	log *logger.Logger,
) *OutboxWorker {
	return &OutboxWorker{
		tasks:    tasks,
		sessions: sessions,
		docs:     docs,
		emails:   emails,
		payments: payments,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

// Run polls until the context is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick processes one batch of due tasks.
func (w *OutboxWorker) Tick(ctx context.Context) {
	due, err := w.tasks.Due(ctx, w.now().UTC(), 10)
	if err != nil {
		w.log.Errorw("task outbox poll failed", "error", err)
		return
	}

	for i := range due {
		task := &due[i]
		if err := w.handle(ctx, task); err != nil {
			w.fail(ctx, task, err)
			continue
		}
		if err := w.tasks.MarkDone(ctx, task.ID); err != nil {
			w.log.Errorw("task done mark failed", "task_id", task.ID, "error", err)
		}
	}
}

func (w *OutboxWorker) handle(ctx context.Context, task *model.OutboxTask) error {
	switch task.Kind {
	case model.TaskKindSignatureCascade:
		return w.handleSignatureCascade(ctx, task)
	default:
		return fmt.Errorf("unknown task kind %q", task.Kind)
	}
}

// fail reschedules with a growing delay, or parks the task once the attempt
// cap is reached. A parked task stays in the table for manual replay.
func (w *OutboxWorker) fail(ctx context.Context, task *model.OutboxTask, taskErr error) {
	attempts := task.Attempts + 1
	if attempts >= maxTaskAttempts {
		w.log.Errorw("task parked after repeated failures",
			"task_id", task.ID,
			"kind", task.Kind,
			"attempts", attempts,
			"error", taskErr)
		if err := w.tasks.MarkFailed(ctx, task.ID, taskErr.Error()); err != nil {
			w.log.Errorw("task failed mark failed", "task_id", task.ID, "error", err)
		}
		return
	}

	delay := time.Duration(1<<uint(attempts)) * time.Minute
	w.log.Warnw("task failed, rescheduling",
		"task_id", task.ID,
		"kind", task.Kind,
		"attempts", attempts,
		"retry_in", delay,
		"error", taskErr)
	if err := w.tasks.Reschedule(ctx, task.ID, taskErr.Error(), w.now().UTC().Add(delay)); err != nil {
		w.log.Errorw("task reschedule failed", "task_id", task.ID, "error", err)
	}
}

// handleSignatureCascade mirrors a won signature onto the document and issues
// the follow-up payment link. Payment being unavailable (no provider
// credentials, tenant opt-out, client without email) ends the cascade
// cleanly: the signature itself already succeeded.
func (w *OutboxWorker) handleSignatureCascade(ctx context.Context, task *model.OutboxTask) error {
	var p signatureCascadePayload
	if err := json.Unmarshal([]byte(task.Payload), &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	session, err := w.sessions.FindByID(ctx, p.SessionID)
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}
	if !session.Signed || session.SignedAt == nil {
		return fmt.Errorf("session %s not signed, cascade refused", session.ID)
	}

	doc, err := w.docs.GetByID(ctx, session.DocumentID())
	if err != nil {
		return fmt.Errorf("find document: %w", err)
	}

	signerName := p.SignerName
	if signerName == "" {
		signerName = session.SignerName
	}
	if err := w.docs.MarkSigned(ctx, doc.ID, signerName, *session.SignedAt, session.SignaturePath); err != nil {
		return fmt.Errorf("mirror signature onto document: %w", err)
	}

	// Retried task after a partial run: the link exists, nothing left to do.
	if session.PaymentLink != "" {
		return nil
	}

	res, err := w.payments.CreateLink(ctx, doc.TenantID, doc.ID, CreateLinkInput{})
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) ||
			errors.Is(err, ErrPaymentDisabled) ||
			errors.Is(err, ErrMissingCustomerContact) {
			w.log.Infow("signature cascade finished without payment link",
				"session_id", session.ID,
				"document_id", doc.ID,
				"reason", err)
			return nil
		}
		return fmt.Errorf("create payment link: %w", err)
	}

	now := w.now().UTC()
	if err := w.sessions.SetPaymentLink(ctx, session.ID, res.CheckoutURL, now); err != nil {
		return fmt.Errorf("record payment link: %w", err)
	}

	if _, err := w.emails.Enqueue(ctx, &model.EmailMessage{
		ID:        uuid.NewString(),
		To:        session.SignerEmail,
		Subject:   fmt.Sprintf("Paiement : %s", doc.Number),
		HTML:      paymentLinkEmail(session.SignerName, doc.Number, res.Payment.Amount.StringFixed(2), res.CheckoutURL),
		Status:    model.EmailStatusPending,
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("enqueue payment email: %w", err)
	}

	w.log.Infow("signature cascade completed",
		"session_id", session.ID,
		"document_id", doc.ID,
		"payment_id", res.Payment.ID)
	return nil
}

func paymentLinkEmail(name, number, amount, link string) string {
	return fmt.Sprintf(`<p>Bonjour %s,</p>
<p>Merci pour votre signature du document <strong>%s</strong>.</p>
<p>Montant à régler : %s €</p>
<p><a href="%s">Procéder au paiement</a></p>`, name, number, amount, link)
}
