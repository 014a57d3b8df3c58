package service

import (
	"errors"

	"claimintake/internal/domain"
	"claimintake/internal/schema"
	"claimintake/internal/validator"
)

// ClaimService validates claims submitted directly, outside an intake session.
type ClaimService interface {
	// Validate resolves the claim's claimType against the registry before
	// validating. An unregistered or missing claim type is ErrUnknownClaimType
	// and never reaches the validator.
	Validate(raw []byte) (*validator.Result, error)
	Schemas() []*schema.Schema
	Schema(claimType string) (*schema.Schema, error)
}

type claimService struct {
	registry *schema.Registry
}

// NewClaimService creates a new ClaimService.
func NewClaimService(registry *schema.Registry) ClaimService {
	return &claimService{registry: registry}
}

func (s *claimService) Validate(raw []byte) (*validator.Result, error) {
	candidate := validator.NewCandidate(raw)
	hint, ok := candidate.ClaimTypeHint()
	if !ok {
		return nil, errors.Join(domain.ErrUnknownClaimType, errors.New("claimType is missing or not a string"))
	}
	claimType, err := s.registry.Resolve(hint)
	if err != nil {
		return nil, err
	}
	sc, err := s.registry.GetSchema(claimType)
	if err != nil {
		return nil, err
	}
	result := validator.Validate(candidate, sc)
	return &result, nil
}

func (s *claimService) Schemas() []*schema.Schema {
	return s.registry.All()
}

func (s *claimService) Schema(claimType string) (*schema.Schema, error) {
	ct, err := s.registry.Resolve(claimType)
	if err != nil {
		return nil, err
	}
	return s.registry.GetSchema(ct)
}
