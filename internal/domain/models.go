package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IntakeSession groups the receipts of one claim attempt for a client.
type IntakeSession struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	ClientID      string          `db:"client_id" json:"client_id"`
	PolicyID      string          `db:"policy_id" json:"policy_id"`
	LifeAssuredID string          `db:"life_assured_id" json:"life_assured_id"`
	NotifyEmail   string          `db:"notify_email" json:"notify_email,omitempty"`
	Status        SessionStatus   `db:"status" json:"status"`
	Attempt       int             `db:"attempt" json:"attempt"`
	ClaimType     *string         `db:"claim_type" json:"claim_type,omitempty"`
	Candidate     json.RawMessage `db:"candidate" json:"candidate,omitempty"`
	Violations    json.RawMessage `db:"violations" json:"violations,omitempty"`
	Outcome       json.RawMessage `db:"outcome" json:"outcome,omitempty"`
	FailureStage  *string         `db:"failure_stage" json:"failure_stage,omitempty"`
	FailureDetail *string         `db:"failure_detail" json:"failure_detail,omitempty"`
	AssistantNote *string         `db:"assistant_note" json:"assistant_note,omitempty"`
	ClaimID       *string         `db:"claim_id" json:"claim_id,omitempty"`
	SubmittedAt   *time.Time      `db:"submitted_at" json:"submitted_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// ReceiptUpload is one uploaded file within a session. Position is the
// user's upload order and is the order receipts appear in the claim.
type ReceiptUpload struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	SessionID     uuid.UUID       `db:"session_id" json:"session_id"`
	Position      int             `db:"position" json:"position"`
	FileName      string          `db:"file_name" json:"file_name"`
	ContentType   string          `db:"content_type" json:"content_type"`
	FileSize      int64           `db:"file_size" json:"file_size"`
	S3Bucket      string          `db:"s3_bucket" json:"-"`
	S3Key         string          `db:"s3_key" json:"-"`
	Status        ReceiptStatus   `db:"status" json:"status"`
	Record        json.RawMessage `db:"record" json:"record,omitempty"`
	Confidence    json.RawMessage `db:"confidence" json:"confidence,omitempty"`
	FailureReason *string         `db:"failure_reason" json:"failure_reason,omitempty"`
	FailureDetail *string         `db:"failure_detail" json:"failure_detail,omitempty"`
	ModelUsed     *string         `db:"model_used" json:"model_used,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// SessionAuditEntry is an append-only audit log entry for a session.
type SessionAuditEntry struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	SessionID uuid.UUID       `db:"session_id" json:"session_id"`
	ClientID  string          `db:"client_id" json:"client_id"`
	Action    AuditAction     `db:"action" json:"action"`
	Detail    json.RawMessage `db:"detail" json:"detail,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// PolicyStatus mirrors the policy service status block.
type PolicyStatus struct {
	Type     string `json:"type"`
	IsActive bool   `json:"isActive"`
}

// Coverage flags for a life assured.
type Coverage struct {
	MedicalMinor bool `json:"medicalMinor"`
	MedicalMajor bool `json:"medicalMajor"`
}

// Person is a policy owner or life assured.
type Person struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Coverage *Coverage `json:"coverage,omitempty"`
}

// Policy is the policy summary returned by the eligible policies endpoint.
type Policy struct {
	ID           string       `json:"id"`
	Code         string       `json:"code"`
	Name         string       `json:"name"`
	Status       PolicyStatus `json:"status"`
	LivesAssured []Person     `json:"livesAssured"`
	Owner        Person       `json:"owner"`
}

// EligiblePolicy is a policy the client can claim against.
type EligiblePolicy struct {
	Policy     Policy   `json:"policy"`
	Category   string   `json:"category"`
	ClaimTypes []string `json:"claimTypes"`
}

// PayoutAccount is the account block of a payout method.
type PayoutAccount struct {
	Name       string  `json:"name"`
	BranchCode *string `json:"branch_code,omitempty"`
	AccountNo  string  `json:"account_no"`
	Holder     string  `json:"account_name,omitempty"`
}

// PayoutMethod is a registered way of paying the client.
type PayoutMethod struct {
	ID       string        `json:"id"`
	Mode     string        `json:"mode"`
	Currency Currency      `json:"currency"`
	Account  PayoutAccount `json:"account"`
	Name     string        `json:"name"`
	Status   string        `json:"status"`
}

// DocumentChecklistItem lists a document the claim type expects.
type DocumentChecklistItem struct {
	Code             string   `json:"code"`
	Category         string   `json:"category"`
	Required         bool     `json:"required"`
	MaxSizeAllowed   int64    `json:"maxSizeAllowed"`
	FileTypesAllowed []string `json:"fileTypesAllowed"`
}

// PolicyContext is what the assembly client may use besides the receipts.
// Only ClientID is always set; the policy service fills the rest when configured.
type PolicyContext struct {
	ClientID       string           `json:"clientId"`
	PolicyID       string           `json:"policyId,omitempty"`
	LifeAssuredID  string           `json:"lifeAssured,omitempty"`
	Policies       []EligiblePolicy `json:"policies,omitempty"`
	PayoutMethods  []PayoutMethod   `json:"payoutMethods,omitempty"`
	Currencies     []Currency       `json:"currencies,omitempty"`
	AvailableTypes []string         `json:"availableClaimTypes,omitempty"`
}

// SelectedPolicy returns the policy matching PolicyID, or the first one.
func (p *PolicyContext) SelectedPolicy() *EligiblePolicy {
	if p == nil || len(p.Policies) == 0 {
		return nil
	}
	for i := range p.Policies {
		if p.Policies[i].Policy.ID == p.PolicyID {
			return &p.Policies[i]
		}
	}
	return &p.Policies[0]
}

// ClaimSubmitResponse is returned once a validated claim is submitted.
type ClaimSubmitResponse struct {
	ClaimID         string    `json:"claimId"`
	ClaimType       ClaimType `json:"claimType"`
	TransactionType string    `json:"transactionType"`
	SubmissionDate  time.Time `json:"submissionDate"`
	PolicyIDs       []string  `json:"policyIds"`
	LifeAssured     string    `json:"lifeAssured"`
	FinalAmount     float64   `json:"finalAmount"`
}
