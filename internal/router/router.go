package router

import (
	"github.com/gin-gonic/gin"

	"claimflow/internal/config"
	"claimflow/internal/handler"
	"claimflow/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware. Claim
// routes are protected only when an auth secret is configured.
func Setup(
	cfg *config.Config,
	claimH *handler.ClaimHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")
	if cfg.Auth.Secret != "" {
		v1.Use(middleware.AuthMiddleware(cfg.Auth.Secret, cfg.Auth.Issuer))
	}

	claims := v1.Group("/claims")
	claims.POST("/process", claimH.Process)
	claims.GET("", claimH.List)
	claims.GET("/:id", claimH.GetByID)
	claims.GET("/:id/export", claimH.Export)

	return r
}
