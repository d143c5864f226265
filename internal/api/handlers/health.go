package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyforge/backend/internal/health"
	"github.com/studyforge/backend/pkg/utils"
)

// HealthHandler serves liveness and per-service health endpoints.
type HealthHandler struct {
	checker *health.HealthChecker
}

func NewHealthHandler(checker *health.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// HandleLiveness responds as long as the process is up.
func (h *HealthHandler) HandleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleHealth runs all service checks and reports aggregate status.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	overall := h.checker.CheckAll()

	code := http.StatusOK
	if overall.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}

	utils.SuccessResponse(c, code, "Health check completed", overall)
}
