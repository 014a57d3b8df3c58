package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"claimintake/internal/domain"
)

// MockEmailSender is a mock implementation of port.EmailSender.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendClaimSubmitted(ctx context.Context, toEmail string, resp *domain.ClaimSubmitResponse) error {
	args := m.Called(ctx, toEmail, resp)
	return args.Error(0)
}
