package noop

import (
	"context"

	"go.uber.org/zap"

	"claimintake/internal/domain"
	"claimintake/internal/port"
)

type noopSender struct {
	logger *zap.Logger
}

// NewNoopSender creates a no-op EmailSender that only logs the confirmation.
func NewNoopSender(logger *zap.Logger) port.EmailSender {
	return &noopSender{logger: logger}
}

func (s *noopSender) SendClaimSubmitted(_ context.Context, toEmail string, resp *domain.ClaimSubmitResponse) error {
	s.logger.Info("[NOOP EMAIL] claim submitted",
		zap.String("to", toEmail),
		zap.String("claim_id", resp.ClaimID),
		zap.String("claim_type", string(resp.ClaimType)),
	)
	return nil
}
