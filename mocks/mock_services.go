package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"claimintake/internal/domain"
	"claimintake/internal/schema"
	"claimintake/internal/service"
	"claimintake/internal/validator"
)

// MockIntakeService is a mock implementation of service.IntakeService.
type MockIntakeService struct {
	mock.Mock
}

func (m *MockIntakeService) CreateSession(ctx context.Context, input service.CreateSessionInput) (*domain.IntakeSession, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IntakeSession), args.Error(1)
}

func (m *MockIntakeService) GetSession(ctx context.Context, clientID string, id uuid.UUID) (*service.SessionView, error) {
	args := m.Called(ctx, clientID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SessionView), args.Error(1)
}

func (m *MockIntakeService) ListSessions(ctx context.Context, clientID string, status *domain.SessionStatus, offset, limit int) ([]domain.IntakeSession, int, error) {
	args := m.Called(ctx, clientID, status, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.IntakeSession), args.Int(1), args.Error(2)
}

func (m *MockIntakeService) UploadReceipt(ctx context.Context, input service.UploadReceiptInput) (*domain.ReceiptUpload, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReceiptUpload), args.Error(1)
}

func (m *MockIntakeService) ReceiptURL(ctx context.Context, clientID string, sessionID, receiptID uuid.UUID) (string, error) {
	args := m.Called(ctx, clientID, sessionID, receiptID)
	return args.String(0), args.Error(1)
}

func (m *MockIntakeService) Process(ctx context.Context, clientID string, id uuid.UUID, wait bool) (*domain.IntakeSession, error) {
	args := m.Called(ctx, clientID, id, wait)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IntakeSession), args.Error(1)
}

func (m *MockIntakeService) Retry(ctx context.Context, clientID string, id uuid.UUID, wait bool) (*domain.IntakeSession, error) {
	args := m.Called(ctx, clientID, id, wait)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IntakeSession), args.Error(1)
}

func (m *MockIntakeService) Cancel(ctx context.Context, clientID string, id uuid.UUID) (*domain.IntakeSession, error) {
	args := m.Called(ctx, clientID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IntakeSession), args.Error(1)
}

func (m *MockIntakeService) RunSession(ctx context.Context, sess *domain.IntakeSession) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

func (m *MockIntakeService) ListAudit(ctx context.Context, clientID string, id uuid.UUID, offset, limit int) ([]domain.SessionAuditEntry, int, error) {
	args := m.Called(ctx, clientID, id, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.SessionAuditEntry), args.Int(1), args.Error(2)
}

func (m *MockIntakeService) EligiblePolicies(ctx context.Context, clientID string) ([]domain.EligiblePolicy, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EligiblePolicy), args.Error(1)
}

func (m *MockIntakeService) DocumentChecklist(ctx context.Context, claimType string) ([]domain.DocumentChecklistItem, error) {
	args := m.Called(ctx, claimType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DocumentChecklistItem), args.Error(1)
}

// MockSubmissionService is a mock implementation of service.SubmissionService.
type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) Submit(ctx context.Context, clientID string, id uuid.UUID) (*domain.ClaimSubmitResponse, error) {
	args := m.Called(ctx, clientID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ClaimSubmitResponse), args.Error(1)
}

// MockClaimService is a mock implementation of service.ClaimService.
type MockClaimService struct {
	mock.Mock
}

func (m *MockClaimService) Validate(raw []byte) (*validator.Result, error) {
	args := m.Called(raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*validator.Result), args.Error(1)
}

func (m *MockClaimService) Schemas() []*schema.Schema {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*schema.Schema)
}

func (m *MockClaimService) Schema(claimType string) (*schema.Schema, error) {
	args := m.Called(claimType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schema.Schema), args.Error(1)
}
