package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"batiflow/internal/logger"
	"batiflow/internal/model"
	"batiflow/internal/repository"
)

var (
	ErrIDRequired       = errors.New("id is required")
	ErrDocumentNotFound = errors.New("document not found")
	ErrClientNotFound   = errors.New("client not found")
	ErrInvalidDocType   = errors.New("document type must be DEVIS or FACTURE")
	ErrInvalidAmount    = errors.New("exactly one of gross or net total must be positive")
	// ErrNumberConflict surfaces after allocation kept colliding with
	// concurrent creations; the user can simply retry.
	ErrNumberConflict = errors.New("document number conflict, please retry")
)

// allocRetries bounds how often creation re-runs number allocation after a
// uniqueness conflict before giving up.
const allocRetries = 3

// CreateDocumentInput is the service-level input for creating a quote or
// invoice. Amounts are gross-first (TTC) or net-first (HT): exactly one of
// GrossTotal/NetTotal must be positive, the other totals are derived.
type CreateDocumentInput struct {
	ClientID   string
	Type       model.DocType
	LineItems  string
	TaxRate    decimal.Decimal // percent, e.g. 20 for 20% VAT
	GrossTotal decimal.Decimal
	NetTotal   decimal.Decimal
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DocumentService defines the document use cases.
type DocumentService interface {
	// Create allocates a number and persists a draft document.
	Create(ctx context.Context, tenantID string, in CreateDocumentInput) (*model.Document, error)

	// Get returns a single document by its ID within the tenant.
	Get(ctx context.Context, tenantID, id string) (*model.Document, error)

	// List returns documents using limit/offset and a total count.
	List(ctx context.Context, tenantID string, limit, offset int) (*DocumentListResult, error)
}

type documentService struct {
	docs      repository.DocumentRepository
	clients   repository.ClientRepository
	allocator NumberAllocator
	log       *logger.Logger
	now       func() time.Time
}

func NewDocumentService(docs repository.DocumentRepository, clients repository.ClientRepository, allocator NumberAllocator, log *logger.Logger) DocumentService {
	return &documentService{
		docs:      docs,
		clients:   clients,
		allocator: allocator,
		log:       log,
		now:       time.Now,
	}
}

func (s *documentService) Create(ctx context.Context, tenantID string, in CreateDocumentInput) (*model.Document, error) {
	if in.Type != model.DocTypeQuote && in.Type != model.DocTypeInvoice {
		return nil, ErrInvalidDocType
	}

	if _, err := s.clients.FindByID(ctx, tenantID, in.ClientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("find client: %w", err)
	}

	net, tax, gross, err := computeTotals(in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	year := now.Year()

	// Allocation and insert race under concurrent creation; the UNIQUE
	// (tenant_id, number) constraint is the arbiter and we re-allocate on
	// conflict a bounded number of times.
	var lastErr error
	for attempt := 0; attempt < allocRetries; attempt++ {
		number, err := s.allocator.Next(ctx, tenantID, in.Type, year)
		if err != nil {
			return nil, fmt.Errorf("allocate number: %w", err)
		}

		doc := &model.Document{
			ID:         uuid.NewString(),
			TenantID:   tenantID,
			ClientID:   in.ClientID,
			Type:       in.Type,
			Number:     number,
			Status:     model.DocStatusDraft,
			LineItems:  in.LineItems,
			TotalNet:   net,
			TotalTax:   tax,
			TotalGross: gross,
			TaxRate:    in.TaxRate,
			CreatedAt:  now,
		}

		created, err := s.docs.Create(ctx, doc)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("create document: %w", err)
		}
		lastErr = err
		s.log.Warnw("document number collision, re-allocating",
			"tenant_id", tenantID,
			"number", number,
			"attempt", attempt+1)
	}

	s.log.Errorw("document number allocation exhausted retries",
		"tenant_id", tenantID,
		"doc_type", in.Type,
		"error", lastErr)
	return nil, ErrNumberConflict
}

func (s *documentService) Get(ctx context.Context, tenantID, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.docs.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) List(ctx context.Context, tenantID string, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.docs.List(ctx, tenantID, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

// computeTotals derives (net, tax, gross) from a gross-first or net-first
// entry. Rounding is to the cent; net + tax always equals gross exactly
// because tax is computed as the difference.
func computeTotals(in CreateDocumentInput) (net, tax, gross decimal.Decimal, err error) {
	grossFirst := in.GrossTotal.IsPositive()
	netFirst := in.NetTotal.IsPositive()
	if grossFirst == netFirst {
		return decimal.Zero, decimal.Zero, decimal.Zero, ErrInvalidAmount
	}
	if in.TaxRate.IsNegative() {
		return decimal.Zero, decimal.Zero, decimal.Zero, ErrInvalidAmount
	}

	hundred := decimal.NewFromInt(100)
	if grossFirst {
		gross = in.GrossTotal.Round(2)
		divisor := hundred.Add(in.TaxRate).Div(hundred)
		net = gross.Div(divisor).Round(2)
		tax = gross.Sub(net)
		return net, tax, gross, nil
	}

	net = in.NetTotal.Round(2)
	tax = net.Mul(in.TaxRate).Div(hundred).Round(2)
	gross = net.Add(tax)
	return net, tax, gross, nil
}
