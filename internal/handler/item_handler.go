package handler

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lemore-app/lemore-api/internal/models"
	"github.com/lemore-app/lemore-api/internal/service"
	appErrors "github.com/lemore-app/lemore-api/pkg/errors"
	"github.com/lemore-app/lemore-api/pkg/response"
)

type itemService interface {
	Add(ctx context.Context, userID string, req service.AddItemRequest) (*models.Item, error)
	Get(ctx context.Context, userID, itemID string) (*models.Item, error)
	ListBySession(ctx context.Context, userID string, filter models.ItemFilter) ([]models.Item, *models.Pagination, error)
	RetryAnalysis(ctx context.Context, userID, itemID string) (*models.Item, error)
	SetDecision(ctx context.Context, userID, itemID string, req service.SetDecisionRequest) error
	SuggestPrice(ctx context.Context, userID, itemID string) (*models.Item, error)
	Delete(ctx context.Context, userID, itemID string) error
}

// UploadLimits bounds what the multipart boundary accepts before any bytes
// reach the service layer.
type UploadLimits struct {
	MaxFileSizeBytes int64
	MaxPhotos        int
	AllowedMIMEs     []string
}

// ItemHandler wires item workflows to HTTP endpoints.
type ItemHandler struct {
	service itemService
	limits  UploadLimits
}

// NewItemHandler constructs the handler.
func NewItemHandler(service itemService, limits UploadLimits) *ItemHandler {
	if limits.MaxFileSizeBytes <= 0 {
		limits.MaxFileSizeBytes = 5 << 20
	}
	if limits.MaxPhotos <= 0 {
		limits.MaxPhotos = 5
	}
	if len(limits.AllowedMIMEs) == 0 {
		limits.AllowedMIMEs = []string{"image/jpeg", "image/png", "image/webp"}
	}
	return &ItemHandler{service: service, limits: limits}
}

// Create godoc
// @Summary Register an item with photos and queue its AI analysis
// @Tags Items
// @Accept multipart/form-data
// @Produce json
// @Param session_id formData string true "Session ID"
// @Param title formData string true "Item title"
// @Param notes formData string false "Owner notes"
// @Param photos formData file true "1-5 item photos"
// @Success 201 {object} response.Envelope
// @Router /items [post]
func (h *ItemHandler) Create(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid multipart form"))
		return
	}

	req := service.AddItemRequest{
		SessionID: strings.TrimSpace(c.PostForm("session_id")),
		Title:     strings.TrimSpace(c.PostForm("title")),
	}
	// Session-scoped route variant carries the session in the path.
	if req.SessionID == "" {
		req.SessionID = c.Param("id")
	}
	if notes := strings.TrimSpace(c.PostForm("notes")); notes != "" {
		req.Notes = &notes
	}

	files := form.File["photos"]
	if len(files) > h.limits.MaxPhotos {
		response.Error(c, appErrors.Clone(appErrors.ErrPhotoLimit, fmt.Sprintf("an item can hold at most %d photos", h.limits.MaxPhotos)))
		return
	}
	for _, file := range files {
		upload, err := h.readUpload(file)
		if err != nil {
			response.Error(c, err)
			return
		}
		req.Photos = append(req.Photos, *upload)
	}

	item, err := h.service.Add(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// readUpload enforces size and content-type limits on one multipart file.
// The MIME type comes from sniffing the leading bytes, not the client
// supplied header.
func (h *ItemHandler) readUpload(file *multipart.FileHeader) (*service.PhotoUpload, error) {
	if file.Size > h.limits.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrFileTooLarge, fmt.Sprintf("file %s exceeds the %dMB limit", file.Filename, h.limits.MaxFileSizeBytes>>20))
	}
	src, err := file.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	defer src.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(src, h.limits.MaxFileSizeBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	if int64(len(data)) > h.limits.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrFileTooLarge, fmt.Sprintf("file %s exceeds the %dMB limit", file.Filename, h.limits.MaxFileSizeBytes>>20))
	}

	contentType := http.DetectContentType(data)
	allowed := false
	for _, mime := range h.limits.AllowedMIMEs {
		if contentType == mime {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedMedia, fmt.Sprintf("file %s has unsupported type %s", file.Filename, contentType))
	}

	return &service.PhotoUpload{Filename: file.Filename, Data: data}, nil
}

// Get godoc
// @Summary Get an item with photos
// @Tags Items
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /items/{id} [get]
func (h *ItemHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// ListBySession godoc
// @Summary List a session's items
// @Tags Items
// @Produce json
// @Param id path string true "Session ID"
// @Param analysis_status query string false "Analysis status filter"
// @Param decision query string false "Decision filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/items [get]
func (h *ItemHandler) ListBySession(c *gin.Context) {
	filter := models.ItemFilter{
		SessionID:      c.Param("id"),
		AnalysisStatus: models.AnalysisStatus(strings.TrimSpace(c.Query("analysis_status"))),
		Decision:       models.Decision(strings.TrimSpace(c.Query("decision"))),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	items, pagination, err := h.service.ListBySession(c.Request.Context(), currentUserID(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// RetryAnalysis godoc
// @Summary Re-queue AI analysis for a failed or refused item
// @Tags Items
// @Produce json
// @Param id path string true "Item ID"
// @Success 202 {object} response.Envelope
// @Router /items/{id}/analyze [post]
func (h *ItemHandler) RetryAnalysis(c *gin.Context) {
	item, err := h.service.RetryAnalysis(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, item, nil)
}

// SetDecision godoc
// @Summary Record the keep/sell/donate/dispose decision for an item
// @Tags Items
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body service.SetDecisionRequest true "Decision payload"
// @Success 204
// @Router /items/{id}/decision [put]
func (h *ItemHandler) SetDecision(c *gin.Context) {
	var req service.SetDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.service.SetDecision(c.Request.Context(), currentUserID(c), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SuggestPrice godoc
// @Summary Ask the AI for a resale price band
// @Tags Items
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /items/{id}/price [post]
func (h *ItemHandler) SuggestPrice(c *gin.Context) {
	item, err := h.service.SuggestPrice(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete an item, its photos and listings
// @Tags Items
// @Produce json
// @Param id path string true "Item ID"
// @Success 204
// @Router /items/{id} [delete]
func (h *ItemHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
