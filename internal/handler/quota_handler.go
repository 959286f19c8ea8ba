package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lemore-app/lemore-api/internal/service"
	"github.com/lemore-app/lemore-api/pkg/response"
)

// QuotaHandler exposes the free-tier usage ledger.
type QuotaHandler struct {
	service *service.QuotaService
}

// NewQuotaHandler constructs the handler.
func NewQuotaHandler(service *service.QuotaService) *QuotaHandler {
	return &QuotaHandler{service: service}
}

// Get godoc
// @Summary Get the caller's free AI usage
// @Tags Quota
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /quota [get]
func (h *QuotaHandler) Get(c *gin.Context) {
	status := h.service.Check(c.Request.Context(), currentUserID(c))
	response.JSON(c, http.StatusOK, status, nil)
}
