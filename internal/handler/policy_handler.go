package handler

import (
	"github.com/gin-gonic/gin"

	"claimintake/internal/middleware"
	"claimintake/internal/service"
)

// PolicyHandler proxies policy directory lookups for the client.
type PolicyHandler struct {
	intakeService service.IntakeService
}

// NewPolicyHandler creates a new PolicyHandler.
func NewPolicyHandler(intakeService service.IntakeService) *PolicyHandler {
	return &PolicyHandler{intakeService: intakeService}
}

// Eligible handles GET /api/v1/policies/eligible
// @Summary Policies the client can claim against
// @Description Empty when no policy service is configured.
// @Tags policies
// @Produce json
// @Param X-Client-ID header string true "Client identity"
// @Success 200 {object} Response{data=[]domain.EligiblePolicy}
// @Failure 502 {object} ErrorResponseBody "Policy service failure"
// @Router /policies/eligible [get]
func (h *PolicyHandler) Eligible(c *gin.Context) {
	policies, err := h.intakeService.EligiblePolicies(c.Request.Context(), middleware.GetClientID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, policies)
}
