package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"claimintake/internal/domain"
)

// MockPolicyDirectory is a mock implementation of port.PolicyDirectory.
type MockPolicyDirectory struct {
	mock.Mock
}

func (m *MockPolicyDirectory) EligiblePolicies(ctx context.Context, clientID string) ([]domain.EligiblePolicy, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EligiblePolicy), args.Error(1)
}

func (m *MockPolicyDirectory) Currencies(ctx context.Context) ([]domain.Currency, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Currency), args.Error(1)
}

func (m *MockPolicyDirectory) DocumentChecklist(ctx context.Context, claimType domain.ClaimType) ([]domain.DocumentChecklistItem, error) {
	args := m.Called(ctx, claimType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DocumentChecklistItem), args.Error(1)
}

func (m *MockPolicyDirectory) PayoutMethods(ctx context.Context, policyID string) ([]domain.PayoutMethod, error) {
	args := m.Called(ctx, policyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PayoutMethod), args.Error(1)
}
