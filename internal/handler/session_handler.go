package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lemore-app/lemore-api/internal/models"
	"github.com/lemore-app/lemore-api/internal/service"
	appErrors "github.com/lemore-app/lemore-api/pkg/errors"
	"github.com/lemore-app/lemore-api/pkg/response"
)

type sessionService interface {
	Create(ctx context.Context, userID string, req service.CreateSessionRequest) (*models.Session, error)
	Get(ctx context.Context, userID, id string) (*models.Session, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, *models.Pagination, error)
	Complete(ctx context.Context, userID, id string) error
	Archive(ctx context.Context, userID, id string) error
	GenerateMovingPlan(ctx context.Context, userID, sessionID string) (*models.MovingPlan, error)
	GetMovingPlan(ctx context.Context, userID, sessionID string) (*models.MovingPlan, error)
}

type reportService interface {
	SessionReport(ctx context.Context, userID, sessionID string) ([]byte, error)
}

// SessionHandler wires session workflows to HTTP endpoints.
type SessionHandler struct {
	service sessionService
	reports reportService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(service sessionService, reports reportService) *SessionHandler {
	return &SessionHandler{service: service, reports: reports}
}

// Create godoc
// @Summary Start a declutter session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	session, err := h.service.Create(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Get godoc
// @Summary Get a session with derived counters
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.service.Get(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// List godoc
// @Summary List the caller's sessions
// @Tags Sessions
// @Produce json
// @Param scenario query string false "Scenario filter"
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	filter := models.SessionFilter{
		UserID:   currentUserID(c),
		Scenario: models.Scenario(strings.TrimSpace(c.Query("scenario"))),
		Status:   models.SessionStatus(strings.TrimSpace(c.Query("status"))),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	sessions, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// Complete godoc
// @Summary Mark a session completed
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id}/complete [post]
func (h *SessionHandler) Complete(c *gin.Context) {
	if err := h.service.Complete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Archive godoc
// @Summary Archive a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id}/archive [post]
func (h *SessionHandler) Archive(c *gin.Context) {
	if err := h.service.Archive(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GenerateMovingPlan godoc
// @Summary Generate the AI moving plan for a moving-assistant session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 201 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /sessions/{id}/moving-plan [post]
func (h *SessionHandler) GenerateMovingPlan(c *gin.Context) {
	plan, err := h.service.GenerateMovingPlan(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, plan)
}

// GetMovingPlan godoc
// @Summary Get the latest generated moving plan
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/moving-plan [get]
func (h *SessionHandler) GetMovingPlan(c *gin.Context) {
	plan, err := h.service.GetMovingPlan(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Report godoc
// @Summary Download the session report as PDF
// @Tags Sessions
// @Produce application/pdf
// @Param id path string true "Session ID"
// @Success 200 {file} binary
// @Router /sessions/{id}/report [get]
func (h *SessionHandler) Report(c *gin.Context) {
	sessionID := c.Param("id")
	pdf, err := h.reports.SessionReport(c.Request.Context(), currentUserID(c), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("session-%s-report.pdf", sessionID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
