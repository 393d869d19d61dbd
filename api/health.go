package api

import (
	"context"
	"net/http"

	"github.com/Domenick1991/cargobooking/internal/health"
	"github.com/gin-gonic/gin"
)

type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

type HealthHandler struct {
	checker HealthChecker
}

func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// get answers 503 only when the store is down; a missing redis shows up
// in the body but the service stays healthy.
func (h *HealthHandler) get(c *gin.Context) {
	report := h.checker.Check(c.Request.Context())
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
