package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"batiflow/internal/model"
	"batiflow/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of
// repository.DocumentRepository. Parameterized queries only, no business
// logic. Writes touch only the columns they own so concurrent writers
// (editing UI, signature cascade, payment webhook) never clobber each other.
type DocumentPostgres struct {
	db *sql.DB
}

func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, tenant_id, client_id, doc_type, number, status, line_items,
	total_net, total_tax, total_gross, tax_rate,
	signed, signed_at, signed_by, signature_path, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*model.Document, error) {
	var d model.Document
	var signedAt sql.NullTime
	var signedBy, signaturePath sql.NullString
	if err := row.Scan(
		&d.ID, &d.TenantID, &d.ClientID, &d.Type, &d.Number, &d.Status, &d.LineItems,
		&d.TotalNet, &d.TotalTax, &d.TotalGross, &d.TaxRate,
		&d.Signed, &signedAt, &signedBy, &signaturePath, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if signedAt.Valid {
		t := signedAt.Time
		d.SignedAt = &t
	}
	d.SignedBy = signedBy.String
	d.SignaturePath = signaturePath.String
	return &d, nil
}

// Create inserts a new document row and returns the stored record. A unique
// violation on (tenant_id, number) comes back wrapping repository.ErrConflict
// so the caller can retry allocation.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, tenant_id, client_id, doc_type, number, status, line_items,
			total_net, total_tax, total_gross, tax_rate, signed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, false, $12, $12)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID, doc.TenantID, doc.ClientID, doc.Type, doc.Number, doc.Status, doc.LineItems,
		doc.TotalNet, doc.TotalTax, doc.TotalGross, doc.TaxRate, doc.CreatedAt,
	)
	out, err := scanDocument(row)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, fmt.Errorf("document number %s already taken: %w", doc.Number, repository.ErrConflict)
		}
		return nil, err
	}
	return out, nil
}

// GetByID fetches a document without tenant scoping, for internal flows.
func (r *DocumentPostgres) GetByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// FindByID fetches a single document scoped to its tenant.
func (r *DocumentPostgres) FindByID(ctx context.Context, tenantID, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE tenant_id = $1 AND id = $2`
	return scanDocument(r.db.QueryRowContext(ctx, q, tenantID, id))
}

// List returns documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, tenantID string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `SELECT COUNT(*) FROM documents WHERE tenant_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, tenantID).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE tenant_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, qList, tenantID, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{Items: items, Total: total}, nil
}

// LatestNumber returns the most recently created matching number, or "" when
// the tenant has no documents of that type yet for the prefix.
func (r *DocumentPostgres) LatestNumber(ctx context.Context, tenantID string, t model.DocType, prefix string) (string, error) {
	const q = `
		SELECT number FROM documents
		WHERE tenant_id = $1 AND doc_type = $2 AND number LIKE $3
		ORDER BY created_at DESC, number DESC
		LIMIT 1`
	var number string
	err := r.db.QueryRowContext(ctx, q, tenantID, t, prefix+"%").Scan(&number)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return number, nil
}

// UpdateStatus sets only the status column.
func (r *DocumentPostgres) UpdateStatus(ctx context.Context, id string, status model.DocStatus) error {
	const q = `UPDATE documents SET status = $2, updated_at = now() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, status)
	return err
}

// MarkSigned mirrors the signature onto the document. Targeted columns only;
// re-applying the same values is harmless, which keeps the cascade task
// retryable.
func (r *DocumentPostgres) MarkSigned(ctx context.Context, id string, signedBy string, signedAt time.Time, signaturePath string) error {
	const q = `
		UPDATE documents
		SET status = $2, signed = true, signed_at = $3, signed_by = $4, signature_path = $5, updated_at = now()
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, model.DocStatusSigned, signedAt, signedBy, signaturePath)
	return err
}
