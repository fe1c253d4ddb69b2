package repository

import (
	"context"

	"batiflow/internal/model"
)

// ClientRepository persists document counterparties.
type ClientRepository interface {
	Create(ctx context.Context, c *model.Client) (*model.Client, error)
	FindByID(ctx context.Context, tenantID, id string) (*model.Client, error)
}

// TenantSettingsRepository reads per-tenant billing preferences.
type TenantSettingsRepository interface {
	// Find returns the tenant's settings row, or sql.ErrNoRows when the
	// tenant has never configured billing.
	Find(ctx context.Context, tenantID string) (*model.TenantSettings, error)
}
