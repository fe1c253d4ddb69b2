package postgres

import (
	"context"
	"database/sql"
	"time"

	"batiflow/internal/model"
	"batiflow/internal/repository"
)

// PaymentPostgres is a PostgreSQL implementation of
// repository.PaymentRepository.
type PaymentPostgres struct {
	db *sql.DB
}

func NewPaymentPostgres(db *sql.DB) *PaymentPostgres {
	return &PaymentPostgres{db: db}
}

var _ repository.PaymentRepository = (*PaymentPostgres)(nil)

const paymentColumns = `id, document_id, amount, currency, payment_type, status,
	provider_session_id, provider_payment_id, paid_date, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*model.Payment, error) {
	var p model.Payment
	var paidDate sql.NullTime
	var providerSessionID, providerPaymentID sql.NullString
	if err := row.Scan(
		&p.ID, &p.DocumentID, &p.Amount, &p.Currency, &p.Type, &p.Status,
		&providerSessionID, &providerPaymentID, &paidDate, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if paidDate.Valid {
		t := paidDate.Time
		p.PaidDate = &t
	}
	p.ProviderSessionID = providerSessionID.String
	p.ProviderPaymentID = providerPaymentID.String
	return &p, nil
}

func (r *PaymentPostgres) Create(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	const q = `
		INSERT INTO payments (id, document_id, amount, currency, payment_type, status, provider_session_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING ` + paymentColumns
	row := r.db.QueryRowContext(ctx, q,
		p.ID, p.DocumentID, p.Amount, p.Currency, p.Type, p.Status, p.ProviderSessionID, p.CreatedAt,
	)
	return scanPayment(row)
}

func (r *PaymentPostgres) FindByProviderSessionID(ctx context.Context, providerSessionID string) (*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE provider_session_id = $1`
	return scanPayment(r.db.QueryRowContext(ctx, q, providerSessionID))
}

// SettleByProviderSessionID is conditional on the pending status, so webhook
// redelivery settles a payment at most once.
func (r *PaymentPostgres) SettleByProviderSessionID(ctx context.Context, providerSessionID string, status model.PaymentStatus, providerPaymentID string, paidDate *time.Time) (bool, error) {
	const q = `
		UPDATE payments
		SET status = $2, provider_payment_id = NULLIF($3, ''), paid_date = $4, updated_at = now()
		WHERE provider_session_id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, q, providerSessionID, status, providerPaymentID, paidDate)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PaymentPostgres) ListByDocument(ctx context.Context, documentID string) ([]model.Payment, error) {
	const q = `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE document_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}
