package validator

import (
	"encoding/json"
	"fmt"

	"claimintake/internal/domain"
)

// Candidate is claim data that has not been checked against a schema. It is
// produced by the assembly client or by a caller and is never trusted as a
// domain.Claim. The only way out is Validate.
type Candidate struct {
	raw json.RawMessage
}

// NewCandidate wraps raw claim JSON. The bytes are copied.
func NewCandidate(raw []byte) Candidate {
	c := make(json.RawMessage, len(raw))
	copy(c, raw)
	return Candidate{raw: c}
}

// CandidateFromClaim marshals a typed claim into a candidate.
func CandidateFromClaim(c domain.Claim) (Candidate, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return Candidate{}, fmt.Errorf("marshaling claim: %w", err)
	}
	return Candidate{raw: raw}, nil
}

// Raw returns the candidate bytes.
func (c Candidate) Raw() json.RawMessage { return c.raw }

// ClaimTypeHint returns the candidate's claimType field if it is a string.
// The value is untrusted and must be resolved against the schema registry.
func (c Candidate) ClaimTypeHint() (string, bool) {
	var hint struct {
		ClaimType *string `json:"claimType"`
	}
	if err := json.Unmarshal(c.raw, &hint); err != nil || hint.ClaimType == nil {
		return "", false
	}
	return *hint.ClaimType, true
}

// Accepted is a claim that conformed to the schema of its claim type. It can
// only be constructed by Validate.
type Accepted struct {
	claim    domain.Claim
	raw      json.RawMessage
	schemaID string
	version  string
}

// Claim returns the validated claim.
func (a Accepted) Claim() domain.Claim { return a.claim }

// Raw returns the JSON that was validated.
func (a Accepted) Raw() json.RawMessage { return a.raw }

// SchemaID identifies the schema the claim was validated against.
func (a Accepted) SchemaID() string { return a.schemaID }

// SchemaVersion is the version of that schema.
func (a Accepted) SchemaVersion() string { return a.version }
