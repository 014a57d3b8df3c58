package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"claimintake/internal/schema"
)

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db       Pinger
	registry *schema.Registry
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger, registry *schema.Registry) *HealthHandler {
	return &HealthHandler{db: db, registry: registry}
}

// Liveness handles GET /healthz
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Readiness handles GET /readyz
// @Summary Readiness check: database reachable and schemas loaded
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /readyz [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: "database not reachable"})
		return
	}
	types := h.registry.ClaimTypes()
	if len(types) == 0 {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: "no claim schemas registered"})
		return
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", ClaimTypes: names})
}
