package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger reports store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsFunc returns store statistics for /health/info.
type StatsFunc func() any

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	store   Pinger
	backend string
	version string
	stats   StatsFunc
}

// NewHealthHandler creates a new health handler. backend names the store
// ("postgres" or "memory"); stats may be nil.
func NewHealthHandler(store Pinger, backend, version string, stats StatsFunc) *HealthHandler {
	return &HealthHandler{store: store, backend: backend, version: version, stats: stats}
}

// Live handles liveness probe.
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready handles readiness probe.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"checks": map[string]string{
				"store": "unhealthy: " + err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": map[string]string{
			"store": "healthy",
		},
	})
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	body := gin.H{
		"app":     "funcid",
		"version": h.version,
		"store":   h.backend,
	}
	if h.stats != nil {
		body["stats"] = h.stats()
	}
	c.JSON(http.StatusOK, body)
}
