package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"batiflow/internal/model"
)

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByProviderSessionID(ctx context.Context, providerSessionID string) (*model.Payment, error) {
	args := m.Called(ctx, providerSessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) SettleByProviderSessionID(ctx context.Context, providerSessionID string, status model.PaymentStatus, providerPaymentID string, paidDate *time.Time) (bool, error) {
	args := m.Called(ctx, providerSessionID, status, providerPaymentID, paidDate)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) ListByDocument(ctx context.Context, documentID string) ([]model.Payment, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Payment), args.Error(1)
}
