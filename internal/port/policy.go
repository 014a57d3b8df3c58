package port

import (
	"context"

	"claimintake/internal/domain"
)

// PolicyDirectory reads policy and claim reference data from the domain services.
type PolicyDirectory interface {
	EligiblePolicies(ctx context.Context, clientID string) ([]domain.EligiblePolicy, error)
	Currencies(ctx context.Context) ([]domain.Currency, error)
	DocumentChecklist(ctx context.Context, claimType domain.ClaimType) ([]domain.DocumentChecklistItem, error)
	PayoutMethods(ctx context.Context, policyID string) ([]domain.PayoutMethod, error)
}
