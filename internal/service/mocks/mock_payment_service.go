package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"batiflow/internal/service"
)

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) CreateLink(ctx context.Context, tenantID, documentID string, in service.CreateLinkInput) (*service.PaymentLinkResult, error) {
	args := m.Called(ctx, tenantID, documentID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PaymentLinkResult), args.Error(1)
}

func (m *MockPaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	args := m.Called(ctx, payload, signature)
	return args.Error(0)
}
