package port

import (
	"context"
	"encoding/json"

	"claimintake/internal/domain"
)

// AssembleInput is the single request sent to the assembly client.
type AssembleInput struct {
	ClaimType domain.ClaimType
	Receipts  []domain.ReceiptRecord
	Policy    *domain.PolicyContext
	// Schema is the JSON Schema the claim must conform to.
	Schema json.RawMessage
}

// AssembleOutput is an untrusted candidate claim plus the assistant's
// conversational status.
type AssembleOutput struct {
	Claim     json.RawMessage
	Status    domain.AssistantStatus
	Message   string
	ModelUsed string
}

// ClaimAssistant classifies receipts and fills a claim. Both outputs are
// advisory: the claim type is resolved against the schema registry and the
// claim is always validated.
type ClaimAssistant interface {
	Classify(ctx context.Context, receipts []domain.ReceiptRecord, policy *domain.PolicyContext) (string, error)
	Assemble(ctx context.Context, input AssembleInput) (*AssembleOutput, error)
}
