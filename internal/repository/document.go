package repository

import (
	"context"
	"time"

	"batiflow/internal/model"
)

// DocumentRepository defines persistence for quotes and invoices. SQL only,
// no business logic. All reads and writes are tenant-scoped by the caller.
type DocumentRepository interface {
	// Create inserts a new document row. The documents table carries a
	// UNIQUE (tenant_id, number) constraint; callers retry allocation when
	// Create reports a uniqueness conflict.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by id within a tenant.
	FindByID(ctx context.Context, tenantID, id string) (*model.Document, error)

	// GetByID returns a document by id without tenant scoping. Reserved for
	// internal flows that start from a trusted reference (signature cascade,
	// payment webhook), never for request handlers.
	GetByID(ctx context.Context, id string) (*model.Document, error)

	// List returns a page of a tenant's documents, newest first, with the
	// total row count.
	List(ctx context.Context, tenantID string, pq PageQuery) (*PageResult[model.Document], error)

	// LatestNumber returns the number of the most recently created document
	// of the given type whose number starts with prefix, or "" when none
	// exists.
	LatestNumber(ctx context.Context, tenantID string, t model.DocType, prefix string) (string, error)

	// UpdateStatus sets only the status column.
	UpdateStatus(ctx context.Context, id string, status model.DocStatus) error

	// MarkSigned mirrors a completed signature onto the document with a
	// targeted update of the signature columns and status. It is idempotent:
	// re-applying the same signature is harmless.
	MarkSigned(ctx context.Context, id string, signedBy string, signedAt time.Time, signaturePath string) error
}
