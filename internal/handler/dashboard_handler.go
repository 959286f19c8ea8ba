package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lemore-app/lemore-api/internal/service"
	"github.com/lemore-app/lemore-api/pkg/response"
)

type dashboardService interface {
	Get(ctx context.Context, userID string) (*service.Dashboard, error)
}

// DashboardHandler wires the per-user overview to HTTP.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Get godoc
// @Summary Per-user dashboard counters
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	dashboard, err := h.service.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}
