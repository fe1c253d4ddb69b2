package model

import "time"

// EmailStatus for queued outbound mail.
type EmailStatus string

const (
	EmailStatusPending EmailStatus = "pending"
	EmailStatusSent    EmailStatus = "sent"
	EmailStatusFailed  EmailStatus = "failed"
)

// EmailMaxRetries is the delivery retry cap. Beyond it the message is marked
// failed and left in place; it is never silently dropped.
const EmailMaxRetries = 3

// EmailMessage is a persisted outbound email, drained by the mailer worker.
type EmailMessage struct {
	ID         string      `json:"id"`
	To         string      `json:"to"`
	Subject    string      `json:"subject"`
	HTML       string      `json:"html"`
	Status     EmailStatus `json:"status"`
	RetryCount int         `json:"retry_count"`
	LastError  string      `json:"last_error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	SentAt     *time.Time  `json:"sent_at,omitempty"`
}

// TaskStatus for durable outbox tasks.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusDone    TaskStatus = "done"
	TaskStatusFailed  TaskStatus = "failed"
)

// Outbox task kinds.
const (
	TaskKindSignatureCascade = "signature.cascade"
)

// OutboxTask is a durable unit of follow-up work recorded next to a primary
// state change, so cross-entity updates survive partial failure and can be
// retried until they succeed.
type OutboxTask struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"`
	Payload   string     `json:"payload"`
	Status    TaskStatus `json:"status"`
	Attempts  int        `json:"attempts"`
	LastError string     `json:"last_error,omitempty"`
	RunAfter  time.Time  `json:"run_after"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
