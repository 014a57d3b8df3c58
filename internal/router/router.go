package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"claimintake/internal/handler"
	"claimintake/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	Health  *handler.HealthHandler
	Claim   *handler.ClaimHandler
	Session *handler.SessionHandler
	Policy  *handler.PolicyHandler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(h Handlers, allowedOrigins []string, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	// Registry and standalone validation need no client identity.
	v1.GET("/schemas", h.Claim.ListSchemas)
	v1.GET("/schemas/:claimType", h.Claim.GetSchema)
	v1.GET("/schemas/:claimType/checklist", h.Claim.Checklist)
	v1.POST("/claims/validate", h.Claim.Validate)

	client := v1.Group("")
	client.Use(middleware.ClientIdentity())

	sessions := client.Group("/sessions")
	sessions.POST("", h.Session.Create)
	sessions.GET("", h.Session.List)
	sessions.GET("/:id", h.Session.Get)
	sessions.POST("/:id/receipts", h.Session.UploadReceipt)
	sessions.GET("/:id/receipts/:receiptId/url", h.Session.ReceiptURL)
	sessions.POST("/:id/process", h.Session.Process)
	sessions.POST("/:id/retry", h.Session.Retry)
	sessions.POST("/:id/cancel", h.Session.Cancel)
	sessions.POST("/:id/submit", h.Session.Submit)
	sessions.GET("/:id/export", h.Session.Export)
	sessions.GET("/:id/audit", h.Session.Audit)

	client.GET("/policies/eligible", h.Policy.Eligible)

	return r
}
