package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"batiflow/internal/model"
)

type MockSignatureSessionRepository struct {
	mock.Mock
}

func (m *MockSignatureSessionRepository) Create(ctx context.Context, s *model.SignatureSession) (*model.SignatureSession, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SignatureSession), args.Error(1)
}

func (m *MockSignatureSessionRepository) FindByID(ctx context.Context, id string) (*model.SignatureSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SignatureSession), args.Error(1)
}

func (m *MockSignatureSessionRepository) MarkSigned(ctx context.Context, id string, signedAt time.Time, signaturePath string) (bool, error) {
	args := m.Called(ctx, id, signedAt, signaturePath)
	return args.Bool(0), args.Error(1)
}

func (m *MockSignatureSessionRepository) SetPaymentLink(ctx context.Context, id, link string, sentAt time.Time) error {
	args := m.Called(ctx, id, link, sentAt)
	return args.Error(0)
}

type MockSignatureOTPRepository struct {
	mock.Mock
}

func (m *MockSignatureOTPRepository) Create(ctx context.Context, otp *model.SignatureOTP) (*model.SignatureOTP, error) {
	args := m.Called(ctx, otp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SignatureOTP), args.Error(1)
}

func (m *MockSignatureOTPRepository) FindLatestBySession(ctx context.Context, sessionID string) (*model.SignatureOTP, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SignatureOTP), args.Error(1)
}

func (m *MockSignatureOTPRepository) IncrementAttempts(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSignatureOTPRepository) MarkVerified(ctx context.Context, id string, verifiedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, verifiedAt)
	return args.Bool(0), args.Error(1)
}
