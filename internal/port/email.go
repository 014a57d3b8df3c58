package port

import (
	"context"

	"claimintake/internal/domain"
)

// EmailSender defines the contract for sending claim notifications.
type EmailSender interface {
	SendClaimSubmitted(ctx context.Context, toEmail string, resp *domain.ClaimSubmitResponse) error
}
