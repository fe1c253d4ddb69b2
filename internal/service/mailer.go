package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"batiflow/internal/logger"
	"batiflow/internal/mail"
	"batiflow/internal/repository"
)

// Mailer drains the email outbox. Delivery of each message is attempted with
// a short in-process backoff; a message that still fails gets its retry
// counter bumped and is picked up on a later tick, until the cap flips it to
// the terminal failed status.
type Mailer struct {
	emails   repository.EmailOutboxRepository
	sender   mail.Sender
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time
}

func NewMailer(emails repository.EmailOutboxRepository, sender mail.Sender, interval time.Duration, log *logger.Logger) *Mailer {
	return &Mailer{
		emails:   emails,
		sender:   sender,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

// Run polls until the context is cancelled.
func (m *Mailer) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick delivers one batch of pending messages.
func (m *Mailer) Tick(ctx context.Context) {
	pending, err := m.emails.Pending(ctx, 20)
	if err != nil {
		m.log.Errorw("email outbox poll failed", "error", err)
		return
	}

	for i := range pending {
		msg := &pending[i]
		send := func() error {
			return m.sender.Send(ctx, mail.Message{
				To:      msg.To,
				Subject: msg.Subject,
				HTML:    msg.HTML,
			})
		}
		err := backoff.Retry(send, backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx))
		if err != nil {
			m.log.Warnw("email delivery failed",
				"email_id", msg.ID,
				"to", msg.To,
				"retry_count", msg.RetryCount,
				"error", err)
			if markErr := m.emails.MarkRetry(ctx, msg.ID, err.Error()); markErr != nil {
				m.log.Errorw("email retry mark failed", "email_id", msg.ID, "error", markErr)
			}
			continue
		}

		if err := m.emails.MarkSent(ctx, msg.ID, m.now().UTC()); err != nil {
			m.log.Errorw("email sent mark failed", "email_id", msg.ID, "error", err)
			continue
		}
		m.log.Infow("email delivered", "email_id", msg.ID, "to", msg.To)
	}
}
