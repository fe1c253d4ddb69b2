package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"batiflow/internal/model"
	"batiflow/internal/service"
)

type MockSignatureService struct {
	mock.Mock
}

func (m *MockSignatureService) SendForSignature(ctx context.Context, tenantID, documentID string) (*model.SignatureSession, error) {
	args := m.Called(ctx, tenantID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SignatureSession), args.Error(1)
}

func (m *MockSignatureService) Get(ctx context.Context, rawToken string) (*service.SignatureView, error) {
	args := m.Called(ctx, rawToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SignatureView), args.Error(1)
}

func (m *MockSignatureService) RequestOTP(ctx context.Context, rawToken string) error {
	args := m.Called(ctx, rawToken)
	return args.Error(0)
}

func (m *MockSignatureService) VerifyOTP(ctx context.Context, rawToken, code, origin string) error {
	args := m.Called(ctx, rawToken, code, origin)
	return args.Error(0)
}

func (m *MockSignatureService) Sign(ctx context.Context, rawToken string, in service.SignInput) (*model.SignatureSession, error) {
	args := m.Called(ctx, rawToken, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SignatureSession), args.Error(1)
}
