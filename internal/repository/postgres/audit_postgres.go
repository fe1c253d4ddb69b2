package postgres

import (
	"context"
	"database/sql"

	"batiflow/internal/model"
	"batiflow/internal/repository"
)

// AuditPostgres appends to the audit_log table. Append-only: the table has
// no update or delete path in this codebase.
type AuditPostgres struct {
	db *sql.DB
}

func NewAuditPostgres(db *sql.DB) *AuditPostgres {
	return &AuditPostgres{db: db}
}

var _ repository.AuditRepository = (*AuditPostgres)(nil)

func (r *AuditPostgres) Append(ctx context.Context, e *model.AuditLogEntry) error {
	const q = `
		INSERT INTO audit_log (id, tenant_id, actor, action, resource_type, resource_id, details, origin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.TenantID, e.Actor, e.Action, e.ResourceType, e.ResourceID, e.Details, e.Origin, e.CreatedAt,
	)
	return err
}
