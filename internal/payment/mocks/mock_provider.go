package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"batiflow/internal/payment"
)

type MockCheckoutProvider struct {
	mock.Mock
}

func (m *MockCheckoutProvider) Configured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockCheckoutProvider) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CheckoutSession), args.Error(1)
}

func (m *MockCheckoutProvider) ParseWebhookEvent(payload []byte, signature string) (*payment.WebhookEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.WebhookEvent), args.Error(1)
}
