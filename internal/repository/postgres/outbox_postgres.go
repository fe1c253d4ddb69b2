package postgres

import (
	"context"
	"database/sql"
	"time"

	"batiflow/internal/model"
	"batiflow/internal/repository"
)

// EmailOutboxPostgres is a PostgreSQL implementation of
// repository.EmailOutboxRepository.
type EmailOutboxPostgres struct {
	db *sql.DB
}

func NewEmailOutboxPostgres(db *sql.DB) *EmailOutboxPostgres {
	return &EmailOutboxPostgres{db: db}
}

var _ repository.EmailOutboxRepository = (*EmailOutboxPostgres)(nil)

const emailColumns = `id, recipient, subject, html, status, retry_count, last_error, created_at, sent_at`

func scanEmail(row interface{ Scan(...any) error }) (*model.EmailMessage, error) {
	var m model.EmailMessage
	var sentAt sql.NullTime
	var lastError sql.NullString
	if err := row.Scan(
		&m.ID, &m.To, &m.Subject, &m.HTML, &m.Status, &m.RetryCount, &lastError, &m.CreatedAt, &sentAt,
	); err != nil {
		return nil, err
	}
	if sentAt.Valid {
		t := sentAt.Time
		m.SentAt = &t
	}
	m.LastError = lastError.String
	return &m, nil
}

func (r *EmailOutboxPostgres) Enqueue(ctx context.Context, m *model.EmailMessage) (*model.EmailMessage, error) {
	const q = `
		INSERT INTO email_outbox (id, recipient, subject, html, status, retry_count, created_at)
		VALUES ($1, $2, $3, $4, 'pending', 0, $5)
		RETURNING ` + emailColumns
	row := r.db.QueryRowContext(ctx, q, m.ID, m.To, m.Subject, m.HTML, m.CreatedAt)
	return scanEmail(row)
}

func (r *EmailOutboxPostgres) Pending(ctx context.Context, limit int) ([]model.EmailMessage, error) {
	const q = `
		SELECT ` + emailColumns + `
		FROM email_outbox
		WHERE status = 'pending' AND retry_count < $2
		ORDER BY created_at
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit, model.EmailMaxRetries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.EmailMessage, 0)
	for rows.Next() {
		m, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *m)
	}
	return items, rows.Err()
}

func (r *EmailOutboxPostgres) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	const q = `UPDATE email_outbox SET status = 'sent', sent_at = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, sentAt)
	return err
}

// MarkRetry bumps retry_count; at the cap the message becomes terminally
// failed but stays in the table, never silently dropped.
func (r *EmailOutboxPostgres) MarkRetry(ctx context.Context, id string, sendErr string) error {
	const q = `
		UPDATE email_outbox
		SET retry_count = retry_count + 1,
			last_error = $2,
			status = CASE WHEN retry_count + 1 >= $3 THEN 'failed' ELSE 'pending' END
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, sendErr, model.EmailMaxRetries)
	return err
}

// TaskOutboxPostgres is a PostgreSQL implementation of
// repository.TaskOutboxRepository.
type TaskOutboxPostgres struct {
	db *sql.DB
}

func NewTaskOutboxPostgres(db *sql.DB) *TaskOutboxPostgres {
	return &TaskOutboxPostgres{db: db}
}

var _ repository.TaskOutboxRepository = (*TaskOutboxPostgres)(nil)

const taskColumns = `id, kind, payload, status, attempts, last_error, run_after, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (*model.OutboxTask, error) {
	var t model.OutboxTask
	var lastError sql.NullString
	if err := row.Scan(
		&t.ID, &t.Kind, &t.Payload, &t.Status, &t.Attempts, &lastError, &t.RunAfter, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.LastError = lastError.String
	return &t, nil
}

func (r *TaskOutboxPostgres) Enqueue(ctx context.Context, t *model.OutboxTask) (*model.OutboxTask, error) {
	const q = `
		INSERT INTO outbox_tasks (id, kind, payload, status, attempts, run_after, created_at, updated_at)
		VALUES ($1, $2, $3, 'pending', 0, $4, $5, $5)
		RETURNING ` + taskColumns
	row := r.db.QueryRowContext(ctx, q, t.ID, t.Kind, t.Payload, t.RunAfter, t.CreatedAt)
	return scanTask(row)
}

func (r *TaskOutboxPostgres) Due(ctx context.Context, now time.Time, limit int) ([]model.OutboxTask, error) {
	const q = `
		SELECT ` + taskColumns + `
		FROM outbox_tasks
		WHERE status = 'pending' AND run_after <= $1
		ORDER BY run_after
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.OutboxTask, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *t)
	}
	return items, rows.Err()
}

func (r *TaskOutboxPostgres) MarkDone(ctx context.Context, id string) error {
	const q = `UPDATE outbox_tasks SET status = 'done', updated_at = now() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

func (r *TaskOutboxPostgres) Reschedule(ctx context.Context, id string, taskErr string, runAfter time.Time) error {
	const q = `
		UPDATE outbox_tasks
		SET attempts = attempts + 1, last_error = $2, run_after = $3, updated_at = now()
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, taskErr, runAfter)
	return err
}

func (r *TaskOutboxPostgres) MarkFailed(ctx context.Context, id string, taskErr string) error {
	const q = `
		UPDATE outbox_tasks
		SET status = 'failed', attempts = attempts + 1, last_error = $2, updated_at = now()
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, taskErr)
	return err
}
