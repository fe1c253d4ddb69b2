package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"batiflow/internal/model"
)

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, e *model.AuditLogEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

type MockEmailOutboxRepository struct {
	mock.Mock
}

func (m *MockEmailOutboxRepository) Enqueue(ctx context.Context, msg *model.EmailMessage) (*model.EmailMessage, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EmailMessage), args.Error(1)
}

func (m *MockEmailOutboxRepository) Pending(ctx context.Context, limit int) ([]model.EmailMessage, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EmailMessage), args.Error(1)
}

func (m *MockEmailOutboxRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	args := m.Called(ctx, id, sentAt)
	return args.Error(0)
}

func (m *MockEmailOutboxRepository) MarkRetry(ctx context.Context, id string, sendErr string) error {
	args := m.Called(ctx, id, sendErr)
	return args.Error(0)
}

type MockTaskOutboxRepository struct {
	mock.Mock
}

func (m *MockTaskOutboxRepository) Enqueue(ctx context.Context, t *model.OutboxTask) (*model.OutboxTask, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OutboxTask), args.Error(1)
}

func (m *MockTaskOutboxRepository) Due(ctx context.Context, now time.Time, limit int) ([]model.OutboxTask, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OutboxTask), args.Error(1)
}

func (m *MockTaskOutboxRepository) MarkDone(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskOutboxRepository) Reschedule(ctx context.Context, id string, taskErr string, runAfter time.Time) error {
	args := m.Called(ctx, id, taskErr, runAfter)
	return args.Error(0)
}

func (m *MockTaskOutboxRepository) MarkFailed(ctx context.Context, id string, taskErr string) error {
	args := m.Called(ctx, id, taskErr)
	return args.Error(0)
}

type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) Create(ctx context.Context, c *model.Client) (*model.Client, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

func (m *MockClientRepository) FindByID(ctx context.Context, tenantID, id string) (*model.Client, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

type MockTenantSettingsRepository struct {
	mock.Mock
}

func (m *MockTenantSettingsRepository) Find(ctx context.Context, tenantID string) (*model.TenantSettings, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TenantSettings), args.Error(1)
}
