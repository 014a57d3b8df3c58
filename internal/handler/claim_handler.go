package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"claimintake/internal/domain"
	"claimintake/internal/service"
	"claimintake/internal/validator"
)

const maxClaimBodyBytes = 1 << 20

// ClaimHandler serves the schema registry and standalone claim validation.
type ClaimHandler struct {
	claimService  service.ClaimService
	intakeService service.IntakeService
}

// NewClaimHandler creates a new ClaimHandler.
func NewClaimHandler(claimService service.ClaimService, intakeService service.IntakeService) *ClaimHandler {
	return &ClaimHandler{claimService: claimService, intakeService: intakeService}
}

// ListSchemas handles GET /api/v1/schemas
// @Summary List registered claim types
// @Tags schemas
// @Produce json
// @Success 200 {object} Response{data=[]SchemaSummary}
// @Router /schemas [get]
func (h *ClaimHandler) ListSchemas(c *gin.Context) {
	schemas := h.claimService.Schemas()
	out := make([]SchemaSummary, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, SchemaSummary{ClaimType: s.ClaimType, ID: s.ID, Version: s.Version, Title: s.Title})
	}
	RespondOK(c, out)
}

// GetSchema handles GET /api/v1/schemas/:claimType
// @Summary Get the JSON Schema document of a claim type
// @Tags schemas
// @Produce json
// @Param claimType path string true "Claim type" Enums(HOSPITALISATION, OUTPATIENT)
// @Success 200 {object} Response
// @Failure 404 {object} ErrorResponseBody "Unknown claim type"
// @Router /schemas/{claimType} [get]
func (h *ClaimHandler) GetSchema(c *gin.Context) {
	s, err := h.claimService.Schema(c.Param("claimType"))
	if err != nil {
		if errors.Is(err, domain.ErrUnknownClaimType) {
			RespondError(c, http.StatusNotFound, "UNKNOWN_CLAIM_TYPE", "claim type is not registered")
			return
		}
		HandleError(c, err)
		return
	}
	RespondOK(c, s.Document())
}

// Checklist handles GET /api/v1/schemas/:claimType/checklist
// @Summary Documents expected for a claim type
// @Tags schemas
// @Produce json
// @Param claimType path string true "Claim type"
// @Success 200 {object} Response{data=[]domain.DocumentChecklistItem}
// @Failure 404 {object} ErrorResponseBody "Unknown claim type"
// @Failure 502 {object} ErrorResponseBody "Policy service failure"
// @Router /schemas/{claimType}/checklist [get]
func (h *ClaimHandler) Checklist(c *gin.Context) {
	items, err := h.intakeService.DocumentChecklist(c.Request.Context(), c.Param("claimType"))
	if err != nil {
		if errors.Is(err, domain.ErrUnknownClaimType) {
			RespondError(c, http.StatusNotFound, "UNKNOWN_CLAIM_TYPE", "claim type is not registered")
			return
		}
		HandleError(c, err)
		return
	}
	RespondOK(c, items)
}

// Validate handles POST /api/v1/claims/validate
// @Summary Validate a claim document
// @Description The claimType is resolved against the registry before validation. Violations are returned in full.
// @Tags claims
// @Accept json
// @Produce json
// @Param claim body object true "Claim document"
// @Success 200 {object} Response{data=ValidationResponse}
// @Failure 400 {object} ErrorResponseBody "Body is not JSON"
// @Failure 422 {object} ErrorResponseBody "Unknown claim type"
// @Router /claims/validate [post]
func (h *ClaimHandler) Validate(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxClaimBodyBytes))
	if err != nil {
		RespondError(c, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "claim document exceeds 1MB")
		return
	}
	if !json.Valid(raw) {
		RespondError(c, http.StatusBadRequest, "INVALID_JSON", "request body must be a JSON document")
		return
	}

	result, err := h.claimService.Validate(raw)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, ValidationResponse{
		Valid:         result.Valid(),
		ClaimType:     result.ClaimType,
		SchemaID:      result.SchemaID,
		SchemaVersion: result.SchemaVersion,
		Violations:    nonNilViolations(result.Violations),
		FieldStatuses: validator.ComputeFieldStatuses(result.Violations, nil),
	})
}

func nonNilViolations(v []validator.Violation) []validator.Violation {
	if v == nil {
		return []validator.Violation{}
	}
	return v
}
