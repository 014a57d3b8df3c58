package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"claimintake/internal/domain"
)

// MockSessionRepository is a mock implementation of port.SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, s *domain.IntakeSession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, clientID string, id uuid.UUID) (*domain.IntakeSession, error) {
	args := m.Called(ctx, clientID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IntakeSession), args.Error(1)
}

func (m *MockSessionRepository) GetByIDInternal(ctx context.Context, id uuid.UUID) (*domain.IntakeSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IntakeSession), args.Error(1)
}

func (m *MockSessionRepository) ListByClient(ctx context.Context, clientID string, status *domain.SessionStatus, offset, limit int) ([]domain.IntakeSession, int, error) {
	args := m.Called(ctx, clientID, status, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.IntakeSession), args.Int(1), args.Error(2)
}

func (m *MockSessionRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []domain.SessionStatus, to domain.SessionStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) SaveOutcome(ctx context.Context, s *domain.IntakeSession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionRepository) MarkSubmitted(ctx context.Context, s *domain.IntakeSession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionRepository) ClaimQueued(ctx context.Context, limit int) ([]domain.IntakeSession, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.IntakeSession), args.Error(1)
}

// MockReceiptRepository is a mock implementation of port.ReceiptRepository.
type MockReceiptRepository struct {
	mock.Mock
}

func (m *MockReceiptRepository) Create(ctx context.Context, r *domain.ReceiptUpload) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReceiptRepository) Append(ctx context.Context, r *domain.ReceiptUpload) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReceiptRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.ReceiptUpload, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReceiptUpload), args.Error(1)
}

func (m *MockReceiptRepository) UpdateResult(ctx context.Context, r *domain.ReceiptUpload) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReceiptRepository) ResetBySession(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// MockSessionAuditRepository is a mock implementation of port.SessionAuditRepository.
type MockSessionAuditRepository struct {
	mock.Mock
}

func (m *MockSessionAuditRepository) Create(ctx context.Context, entry *domain.SessionAuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockSessionAuditRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, offset, limit int) ([]domain.SessionAuditEntry, int, error) {
	args := m.Called(ctx, sessionID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.SessionAuditEntry), args.Int(1), args.Error(2)
}
