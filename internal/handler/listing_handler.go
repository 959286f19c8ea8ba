package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lemore-app/lemore-api/internal/models"
	"github.com/lemore-app/lemore-api/internal/service"
	appErrors "github.com/lemore-app/lemore-api/pkg/errors"
	"github.com/lemore-app/lemore-api/pkg/response"
)

type listingService interface {
	Generate(ctx context.Context, userID string, req service.GenerateListingRequest) ([]models.Listing, error)
	ListByItem(ctx context.Context, userID, itemID string) ([]models.Listing, error)
}

// ListingHandler wires listing generation to HTTP endpoints.
type ListingHandler struct {
	service listingService
}

// NewListingHandler constructs the handler.
func NewListingHandler(service listingService) *ListingHandler {
	return &ListingHandler{service: service}
}

// Generate godoc
// @Summary Generate marketplace copy for an item
// @Tags Listings
// @Accept json
// @Produce json
// @Param payload body service.GenerateListingRequest true "Generation payload"
// @Success 201 {object} response.Envelope
// @Router /listings/generate [post]
func (h *ListingHandler) Generate(c *gin.Context) {
	var req service.GenerateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	listings, err := h.service.Generate(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, listings)
}

// ListByItem godoc
// @Summary List the listings generated for an item
// @Tags Listings
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /items/{id}/listings [get]
func (h *ListingHandler) ListByItem(c *gin.Context) {
	listings, err := h.service.ListByItem(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listings, nil)
}
