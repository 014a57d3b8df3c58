package handler

import (
	"claimintake/internal/domain"
	"claimintake/internal/validator"
)

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// --- Request Types ---

// CreateSessionRequest represents the create session request body.
type CreateSessionRequest struct {
	PolicyID      string `json:"policy_id" binding:"required,max=128" example:"P-778"`
	LifeAssuredID string `json:"life_assured_id" binding:"required,max=128" example:"LA-1"`
	NotifyEmail   string `json:"notify_email" binding:"omitempty,email,max=320" example:"tan@example.com"`
}

// --- Response Types ---

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status     string   `json:"status" example:"ok"`
	Error      string   `json:"error,omitempty" example:"database not reachable"`
	ClaimTypes []string `json:"claim_types,omitempty" example:"HOSPITALISATION,OUTPATIENT"`
}

// SchemaSummary describes a registered claim type.
type SchemaSummary struct {
	ClaimType domain.ClaimType `json:"claimType" example:"OUTPATIENT"`
	ID        string           `json:"id" example:"https://schemas.example.com/claims/outpatient.json"`
	Version   string           `json:"version" example:"1.0.0"`
	Title     string           `json:"title" example:"Outpatient claim"`
}

// ValidationResponse is the outcome of validating a claim document.
type ValidationResponse struct {
	Valid         bool                              `json:"valid" example:"false"`
	ClaimType     domain.ClaimType                  `json:"claimType" example:"OUTPATIENT"`
	SchemaID      string                            `json:"schemaId"`
	SchemaVersion string                            `json:"schemaVersion" example:"1.0.0"`
	Violations    []validator.Violation             `json:"violations"`
	FieldStatuses map[string]*validator.FieldStatus `json:"fieldStatuses"`
}

// ReceiptURLResponse carries a time-limited download link.
type ReceiptURLResponse struct {
	URL string `json:"url" example:"https://receipts.s3.amazonaws.com/sessions/..."`
}

// --- Generic Response Wrappers ---

// Response wraps a successful response.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// ErrorResponseBody wraps an error response.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}
