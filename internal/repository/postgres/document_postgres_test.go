package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"batiflow/internal/model"
	"batiflow/internal/repository"
)

var documentColumnList = []string{
	"id", "tenant_id", "client_id", "doc_type", "number", "status", "line_items",
	"total_net", "total_tax", "total_gross", "tax_rate",
	"signed", "signed_at", "signed_by", "signature_path", "created_at", "updated_at",
}

func documentRow(doc *model.Document) *sqlmock.Rows {
	return sqlmock.NewRows(documentColumnList).AddRow(
		doc.ID, doc.TenantID, doc.ClientID, doc.Type, doc.Number, doc.Status, doc.LineItems,
		doc.TotalNet.String(), doc.TotalTax.String(), doc.TotalGross.String(), doc.TaxRate.String(),
		doc.Signed, nil, nil, nil, doc.CreatedAt, doc.CreatedAt,
	)
}

func testDocument() *model.Document {
	return &model.Document{
		ID:         "doc-uuid",
		TenantID:   "t1",
		ClientID:   "c1",
		Type:       model.DocTypeQuote,
		Number:     "DEVIS-2026-001",
		Status:     model.DocStatusDraft,
		LineItems:  "[]",
		TotalNet:   decimal.RequireFromString("1000.00"),
		TotalTax:   decimal.RequireFromString("200.00"),
		TotalGross: decimal.RequireFromString("1200.00"),
		TaxRate:    decimal.RequireFromString("20"),
		CreatedAt:  time.Now().UTC(),
	}
}

func TestDocumentPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()
	doc := testDocument()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO documents").
			WithArgs(doc.ID, doc.TenantID, doc.ClientID, doc.Type, doc.Number, doc.Status, doc.LineItems,
				doc.TotalNet, doc.TotalTax, doc.TotalGross, doc.TaxRate, doc.CreatedAt).
			WillReturnRows(documentRow(doc))

		result, err := repo.Create(ctx, doc)

		assert.NoError(t, err)
		assert.NotNil(t, result)
		assert.Equal(t, "DEVIS-2026-001", result.Number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate number maps to conflict", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO documents").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "documents_tenant_number_key"})

		_, err := repo.Create(ctx, doc)

		assert.ErrorIs(t, err, repository.ErrConflict)
	})
}

func TestDocumentPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE tenant_id = (.+) AND id = ?").
			WithArgs("t1", "doc-uuid").
			WillReturnRows(documentRow(testDocument()))

		doc, err := repo.FindByID(ctx, "t1", "doc-uuid")

		assert.NoError(t, err)
		assert.NotNil(t, doc)
		assert.Equal(t, "doc-uuid", doc.ID)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE tenant_id = (.+) AND id = ?").
			WithArgs("t1", "missing").
			WillReturnError(sql.ErrNoRows)

		doc, err := repo.FindByID(ctx, "t1", "missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, doc)
	})
}

func TestDocumentPostgres_LatestNumber(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("returns the latest matching number", func(t *testing.T) {
		mock.ExpectQuery("SELECT number FROM documents").
			WithArgs("t1", model.DocTypeQuote, "DEVIS-2026-%").
			WillReturnRows(sqlmock.NewRows([]string{"number"}).AddRow("DEVIS-2026-007"))

		number, err := repo.LatestNumber(ctx, "t1", model.DocTypeQuote, "DEVIS-2026-")

		assert.NoError(t, err)
		assert.Equal(t, "DEVIS-2026-007", number)
	})

	t.Run("empty when no documents exist yet", func(t *testing.T) {
		mock.ExpectQuery("SELECT number FROM documents").
			WithArgs("t1", model.DocTypeQuote, "DEVIS-2026-%").
			WillReturnError(sql.ErrNoRows)

		number, err := repo.LatestNumber(ctx, "t1", model.DocTypeQuote, "DEVIS-2026-")

		assert.NoError(t, err)
		assert.Empty(t, number)
	})
}

func TestDocumentPostgres_MarkSigned(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()
	signedAt := time.Now().UTC()

	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-uuid", model.DocStatusSigned, signedAt, "Jean Dupont", "signatures/s1.png").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.MarkSigned(ctx, "doc-uuid", "Jean Dupont", signedAt, "signatures/s1.png")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
