package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"batiflow/internal/logger"
	"batiflow/internal/model"
	"batiflow/internal/repository"
	"batiflow/internal/repository/mocks"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newDocumentServiceForTest(docs *mocks.MockDocumentRepository, clients *mocks.MockClientRepository) *documentService {
	svc := NewDocumentService(docs, clients, NewNumberAllocator(docs, logger.NewNop()), logger.NewNop()).(*documentService)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }
	return svc
}

func expectClient(clients *mocks.MockClientRepository) {
	clients.On("FindByID", mock.Anything, "t1", "c1").
		Return(&model.Client{ID: "c1", TenantID: "t1", Name: "Dupont BTP", Email: "contact@dupont.fr"}, nil)
}

func TestDocumentService_Create_GrossFirstTotals(t *testing.T) {
	docs := new(mocks.MockDocumentRepository)
	clients := new(mocks.MockClientRepository)
	expectClient(clients)
	docs.On("LatestNumber", mock.Anything, "t1", model.DocTypeQuote, "DEVIS-2026-").
		Return("", nil)
	docs.On("Create", mock.Anything, mock.MatchedBy(func(doc *model.Document) bool {
		return doc.Number == "DEVIS-2026-001" &&
			doc.Status == model.DocStatusDraft &&
			doc.TotalNet.Equal(d("1000.00")) &&
			doc.TotalTax.Equal(d("200.00")) &&
			doc.TotalGross.Equal(d("1200.00"))
	})).Return(&model.Document{
		Number:     "DEVIS-2026-001",
		Status:     model.DocStatusDraft,
		TotalNet:   d("1000.00"),
		TotalTax:   d("200.00"),
		TotalGross: d("1200.00"),
	}, nil)

	svc := newDocumentServiceForTest(docs, clients)
	got, err := svc.Create(context.Background(), "t1", CreateDocumentInput{
		ClientID:   "c1",
		Type:       model.DocTypeQuote,
		TaxRate:    d("20"),
		GrossTotal: d("1200.00"),
	})

	require.NoError(t, err)
	assert.Equal(t, "DEVIS-2026-001", got.Number)
	assert.True(t, got.TotalNet.Add(got.TotalTax).Equal(got.TotalGross))
	docs.AssertExpectations(t)
	clients.AssertExpectations(t)
}

func TestDocumentService_Create_NetFirstTotals(t *testing.T) {
	docs := new(mocks.MockDocumentRepository)
	clients := new(mocks.MockClientRepository)
	expectClient(clients)
	docs.On("LatestNumber", mock.Anything, "t1", model.DocTypeInvoice, "FACTURE-2026-").
		Return("FACTURE-2026-011", nil)
	docs.On("Create", mock.Anything, mock.MatchedBy(func(doc *model.Document) bool {
		return doc.Number == "FACTURE-2026-012" &&
			doc.TotalNet.Equal(d("850.50")) &&
			doc.TotalTax.Equal(d("85.05")) &&
			doc.TotalGross.Equal(d("935.55"))
	})).Return(&model.Document{
		Number:     "FACTURE-2026-012",
		TotalNet:   d("850.50"),
		TotalTax:   d("85.05"),
		TotalGross: d("935.55"),
	}, nil)

	svc := newDocumentServiceForTest(docs, clients)
	got, err := svc.Create(context.Background(), "t1", CreateDocumentInput{
		ClientID: "c1",
		Type:     model.DocTypeInvoice,
		TaxRate:  d("10"),
		NetTotal: d("850.50"),
	})

	require.NoError(t, err)
	assert.True(t, got.TotalNet.Add(got.TotalTax).Equal(got.TotalGross))
}

func TestDocumentService_Create_ReallocatesOnNumberConflict(t *testing.T) {
	docs := new(mocks.MockDocumentRepository)
	clients := new(mocks.MockClientRepository)
	expectClient(clients)

	// A concurrent writer takes 002 between our scan and insert; the second
	// scan sees it and the retry lands on 003.
	docs.On("LatestNumber", mock.Anything, "t1", model.DocTypeQuote, "DEVIS-2026-").
		Return("DEVIS-2026-001", nil).Once()
	docs.On("LatestNumber", mock.Anything, "t1", model.DocTypeQuote, "DEVIS-2026-").
		Return("DEVIS-2026-002", nil).Once()
	docs.On("Create", mock.Anything, mock.MatchedBy(func(doc *model.Document) bool {
		return doc.Number == "DEVIS-2026-002"
	})).Return(nil, fmt.Errorf("taken: %w", repository.ErrConflict)).Once()
	docs.On("Create", mock.Anything, mock.MatchedBy(func(doc *model.Document) bool {
		return doc.Number == "DEVIS-2026-003"
	})).Return(&model.Document{Number: "DEVIS-2026-003"}, nil).Once()

	svc := newDocumentServiceForTest(docs, clients)
	got, err := svc.Create(context.Background(), "t1", CreateDocumentInput{
		ClientID:   "c1",
		Type:       model.DocTypeQuote,
		TaxRate:    d("20"),
		GrossTotal: d("600"),
	})

	require.NoError(t, err)
	assert.Equal(t, "DEVIS-2026-003", got.Number)
	docs.AssertExpectations(t)
}

func TestDocumentService_Create_GivesUpAfterRepeatedConflicts(t *testing.T) {
	docs := new(mocks.MockDocumentRepository)
	clients := new(mocks.MockClientRepository)
	expectClient(clients)
	docs.On("LatestNumber", mock.Anything, "t1", model.DocTypeQuote, "DEVIS-2026-").
		Return("DEVIS-2026-001", nil)
	docs.On("Create", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("taken: %w", repository.ErrConflict))

	svc := newDocumentServiceForTest(docs, clients)
	_, err := svc.Create(context.Background(), "t1", CreateDocumentInput{
		ClientID:   "c1",
		Type:       model.DocTypeQuote,
		TaxRate:    d("20"),
		GrossTotal: d("600"),
	})

	require.ErrorIs(t, err, ErrNumberConflict)
	docs.AssertNumberOfCalls(t, "Create", 3)
}

func TestDocumentService_Create_Validation(t *testing.T) {
	tests := []struct {
		name    string
		in      CreateDocumentInput
		wantErr error
	}{
		{
			name:    "unknown type",
			in:      CreateDocumentInput{ClientID: "c1", Type: "AVOIR", GrossTotal: d("100")},
			wantErr: ErrInvalidDocType,
		},
		{
			name:    "both totals set",
			in:      CreateDocumentInput{ClientID: "c1", Type: model.DocTypeQuote, GrossTotal: d("100"), NetTotal: d("80")},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "no total set",
			in:      CreateDocumentInput{ClientID: "c1", Type: model.DocTypeQuote},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative tax rate",
			in:      CreateDocumentInput{ClientID: "c1", Type: model.DocTypeQuote, GrossTotal: d("100"), TaxRate: d("-5")},
			wantErr: ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := new(mocks.MockDocumentRepository)
			clients := new(mocks.MockClientRepository)
			expectClient(clients)

			svc := newDocumentServiceForTest(docs, clients)
			_, err := svc.Create(context.Background(), "t1", tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestComputeTotals_NetPlusTaxEqualsGross(t *testing.T) {
	cases := []struct {
		gross string
		rate  string
	}{
		{"1200.00", "20"},
		{"99.99", "20"},
		{"1.01", "10"},
		{"733.37", "5.5"},
		{"100000.00", "2.1"},
		{"49.50", "0"},
	}

	for _, c := range cases {
		net, tax, gross, err := computeTotals(CreateDocumentInput{
			GrossTotal: d(c.gross),
			TaxRate:    d(c.rate),
		})
		require.NoError(t, err)
		assert.True(t, net.Add(tax).Equal(gross),
			"gross %s rate %s: %s + %s != %s", c.gross, c.rate, net, tax, gross)
		assert.True(t, gross.Equal(d(c.gross)))
	}
}
