package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"claimintake/internal/domain"
	"claimintake/internal/port"
)

// MockClaimAssistant is a mock implementation of port.ClaimAssistant.
type MockClaimAssistant struct {
	mock.Mock
}

func (m *MockClaimAssistant) Classify(ctx context.Context, receipts []domain.ReceiptRecord, policy *domain.PolicyContext) (string, error) {
	args := m.Called(ctx, receipts, policy)
	return args.String(0), args.Error(1)
}

func (m *MockClaimAssistant) Assemble(ctx context.Context, input port.AssembleInput) (*port.AssembleOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.AssembleOutput), args.Error(1)
}
