// Package v1 provides HTTP API version 1.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"

	"funcid/internal/domain/auth"
	"funcid/internal/domain/functionalid"
	"funcid/internal/infrastructure/http/v1/handlers"
	"funcid/internal/infrastructure/http/v1/middleware"
	"funcid/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Service allocates and manages functional ids
	Service *functionalid.Service

	// Health backs the /health endpoints
	Health *handlers.HealthHandler

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator guards administrative routes. Nil leaves them open.
	JWTValidator middleware.JWTValidator
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	router := gin.New()

	// order matters: errors registered by later handlers are rendered by ErrorHandler
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	if cfg.Health != nil {
		health := router.Group("/health")
		{
			health.GET("/live", cfg.Health.Live)
			health.GET("/ready", cfg.Health.Ready)
			health.GET("/info", cfg.Health.Info)
		}
	}

	v1 := router.Group("/api/v1")
	admin := v1.Group("")
	if cfg.JWTValidator != nil {
		admin.Use(middleware.Auth(cfg.JWTValidator))
		admin.Use(middleware.RequireAdmin(auth.RoleAdmin))
	}

	handlers.NewFunctionalIDHandler(cfg.Service).RegisterRoutes(v1, admin)

	return router
}

// NewHandler wraps the router with gzip response compression for clients
// that accept it.
func NewHandler(cfg RouterConfig) http.Handler {
	return gzhttp.GzipHandler(NewRouter(cfg))
}
