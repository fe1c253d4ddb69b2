package repository

import (
	"context"
	"time"

	"batiflow/internal/model"
)

// EmailOutboxRepository is the persisted queue behind the mailer worker.
type EmailOutboxRepository interface {
	Enqueue(ctx context.Context, m *model.EmailMessage) (*model.EmailMessage, error)

	// Pending returns queued messages still under the retry cap.
	Pending(ctx context.Context, limit int) ([]model.EmailMessage, error)

	MarkSent(ctx context.Context, id string, sentAt time.Time) error

	// MarkRetry increments retry_count and records the error; at
	// model.EmailMaxRetries the message flips to the terminal failed status.
	MarkRetry(ctx context.Context, id string, sendErr string) error
}

// TaskOutboxRepository stores durable follow-up tasks (the saga/outbox leg of
// the signature cascade).
type TaskOutboxRepository interface {
	Enqueue(ctx context.Context, t *model.OutboxTask) (*model.OutboxTask, error)

	// Due returns pending tasks whose run_after has passed.
	Due(ctx context.Context, now time.Time, limit int) ([]model.OutboxTask, error)

	MarkDone(ctx context.Context, id string) error

	// Reschedule records a failed attempt and pushes run_after forward.
	Reschedule(ctx context.Context, id string, taskErr string, runAfter time.Time) error

	// MarkFailed parks a task that keeps failing; it stays visible for
	// manual reconciliation.
	MarkFailed(ctx context.Context, id string, taskErr string) error
}
