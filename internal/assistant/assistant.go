// Package assistant is the claim assembly and classification client. The
// heuristic assistant applies fixed rules; LLM-backed assistants delegate to
// a chat model through a Completer.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"claimintake/internal/domain"
	"claimintake/internal/extractor"
	"claimintake/internal/port"
)

// Completer sends one prompt to a chat model and returns the text reply.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

// LLMAssistant implements port.ClaimAssistant on top of a Completer.
type LLMAssistant struct {
	completer Completer
	logger    *zap.Logger
}

// NewLLMAssistant creates an assistant backed by a chat model.
func NewLLMAssistant(c Completer, logger *zap.Logger) *LLMAssistant {
	return &LLMAssistant{completer: c, logger: logger}
}

// Classify returns the claim type exactly as the model wrote it. The caller
// resolves it against the schema registry.
func (a *LLMAssistant) Classify(ctx context.Context, receipts []domain.ReceiptRecord, policy *domain.PolicyContext) (string, error) {
	reply, err := a.completer.Complete(ctx, SystemInstruction, BuildClassifyPrompt(receipts, AvailableClaimTypes(policy)))
	if err != nil {
		return "", fmt.Errorf("assistant.Classify: %w", err)
	}

	env, err := ParseEnvelope(reply)
	if err != nil {
		// A bare claim type is an acceptable answer.
		bare := strings.Trim(strings.TrimSpace(reply), `"'.`)
		if bare == "" || strings.ContainsAny(bare, " \n{}") {
			return "", fmt.Errorf("assistant.Classify: %w (raw: %s)", err, extractor.Truncate(reply, 200))
		}
		return bare, nil
	}
	if env.ClaimType == "" {
		return "", errors.New("assistant.Classify: reply has no claimType")
	}

	a.logger.Debug("assistant.LLMAssistant: classified",
		zap.String("claim_type", env.ClaimType), zap.String("model", a.completer.Model()))
	return env.ClaimType, nil
}

func (a *LLMAssistant) Assemble(ctx context.Context, in port.AssembleInput) (*port.AssembleOutput, error) {
	reply, err := a.completer.Complete(ctx, SystemInstruction, BuildAssemblePrompt(in))
	if err != nil {
		return nil, fmt.Errorf("assistant.Assemble: %w", err)
	}

	env, err := ParseEnvelope(reply)
	if err != nil {
		return nil, fmt.Errorf("assistant.Assemble: %w (raw: %s)", err, extractor.Truncate(reply, 200))
	}
	if !env.HasClaim() {
		return nil, errors.New("assistant.Assemble: reply has no claim object")
	}
	if env.ClaimType != "" && env.ClaimType != string(in.ClaimType) {
		a.logger.Warn("assistant.LLMAssistant: reply changed the claim type",
			zap.String("requested", string(in.ClaimType)), zap.String("returned", env.ClaimType))
	}

	return &port.AssembleOutput{
		Claim:     env.Claim,
		Status:    env.AssistantStatus(),
		Message:   env.Message,
		ModelUsed: a.completer.Model(),
	}, nil
}
