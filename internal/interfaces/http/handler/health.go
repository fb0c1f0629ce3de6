package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves liveness probes
type HealthHandler struct{}

// NewHealthHandler creates a health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Register mounts the health endpoint directly on the engine, outside
// the versioned API group, so probes stay stable across API versions.
func (h *HealthHandler) Register(engine *gin.Engine) {
	engine.HEAD("/healthz", h.check)
	engine.GET("/healthz", h.check)
}

func (h *HealthHandler) check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
