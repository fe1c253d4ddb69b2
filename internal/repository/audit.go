package repository

import (
	"context"

	"batiflow/internal/model"
)

// AuditRepository is append-only. There is deliberately no update or delete.
type AuditRepository interface {
	Append(ctx context.Context, e *model.AuditLogEntry) error
}
