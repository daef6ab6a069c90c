package handler

import (
	"context"

	"meta-anchor/controller/respond"
	"meta-anchor/service/health_service"

	"github.com/gin-gonic/gin"
)

// HealthChecker dependency probe
type HealthChecker interface {
	Check(ctx context.Context) *health_service.HealthStatus
}

// HealthHandler health handler
type HealthHandler struct {
	checker HealthChecker
}

// NewHealthHandler create health handler instance
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Health ledger and content store connectivity
// @Summary      Health check
// @Description  healthy only when both the ledger node and the content store answer
// @Tags         System
// @Produce      json
// @Success      200  {object}  respond.Response{data=respond.HealthResponse}
// @Failure      503  {object}  respond.Response{data=respond.HealthResponse}
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	status := h.checker.Check(c.Request.Context())
	if status.Status != health_service.StatusHealthy {
		respond.Unavailable(c, status.Status, respond.ToHealthResponse(status))
		return
	}
	respond.Success(c, respond.ToHealthResponse(status))
}
