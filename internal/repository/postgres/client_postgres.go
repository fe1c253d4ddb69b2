package postgres

import (
	"context"
	"database/sql"

	"batiflow/internal/model"
	"batiflow/internal/repository"
)

// ClientPostgres is a PostgreSQL implementation of
// repository.ClientRepository.
type ClientPostgres struct {
	db *sql.DB
}

func NewClientPostgres(db *sql.DB) *ClientPostgres {
	return &ClientPostgres{db: db}
}

var _ repository.ClientRepository = (*ClientPostgres)(nil)

const clientColumns = `id, tenant_id, name, email, phone, address, created_at`

func scanClient(row interface{ Scan(...any) error }) (*model.Client, error) {
	var c model.Client
	var phone, address sql.NullString
	if err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Email, &phone, &address, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Phone = phone.String
	c.Address = address.String
	return &c, nil
}

func (r *ClientPostgres) Create(ctx context.Context, c *model.Client) (*model.Client, error) {
	const q = `
		INSERT INTO clients (id, tenant_id, name, email, phone, address, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
		RETURNING ` + clientColumns
	row := r.db.QueryRowContext(ctx, q, c.ID, c.TenantID, c.Name, c.Email, c.Phone, c.Address, c.CreatedAt)
	return scanClient(row)
}

func (r *ClientPostgres) FindByID(ctx context.Context, tenantID, id string) (*model.Client, error) {
	const q = `SELECT ` + clientColumns + ` FROM clients WHERE tenant_id = $1 AND id = $2`
	return scanClient(r.db.QueryRowContext(ctx, q, tenantID, id))
}

// TenantSettingsPostgres is a PostgreSQL implementation of
// repository.TenantSettingsRepository.
type TenantSettingsPostgres struct {
	db *sql.DB
}

func NewTenantSettingsPostgres(db *sql.DB) *TenantSettingsPostgres {
	return &TenantSettingsPostgres{db: db}
}

var _ repository.TenantSettingsRepository = (*TenantSettingsPostgres)(nil)

func (r *TenantSettingsPostgres) Find(ctx context.Context, tenantID string) (*model.TenantSettings, error) {
	const q = `
		SELECT tenant_id, payment_enabled, deposit_percent, currency, created_at, updated_at
		FROM tenant_settings
		WHERE tenant_id = $1`
	var s model.TenantSettings
	if err := r.db.QueryRowContext(ctx, q, tenantID).Scan(
		&s.TenantID, &s.PaymentEnabled, &s.DepositPercent, &s.Currency, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}
