package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lemore-app/lemore-api/internal/models"
	"github.com/lemore-app/lemore-api/internal/service"
	appErrors "github.com/lemore-app/lemore-api/pkg/errors"
	"github.com/lemore-app/lemore-api/pkg/response"
)

type challengeService interface {
	Schedule(ctx context.Context, userID string, req service.ScheduleTaskRequest) (*models.ChallengeTask, error)
	Complete(ctx context.Context, userID, taskID string, req service.CompleteTaskRequest) (*models.ChallengeTask, error)
	Delete(ctx context.Context, userID, taskID string) error
	List(ctx context.Context, filter models.ChallengeTaskFilter) ([]models.ChallengeTask, *models.Pagination, error)
	ExportCSV(ctx context.Context, filter models.ChallengeTaskFilter) ([]byte, error)
}

// ChallengeHandler wires the declutter calendar to HTTP endpoints.
type ChallengeHandler struct {
	service challengeService
}

// NewChallengeHandler constructs the handler.
func NewChallengeHandler(service challengeService) *ChallengeHandler {
	return &ChallengeHandler{service: service}
}

// Schedule godoc
// @Summary Put a task on the declutter calendar
// @Tags Challenges
// @Accept json
// @Produce json
// @Param payload body service.ScheduleTaskRequest true "Task payload"
// @Success 201 {object} response.Envelope
// @Router /challenges [post]
func (h *ChallengeHandler) Schedule(c *gin.Context) {
	var req service.ScheduleTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	task, err := h.service.Schedule(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, task)
}

// List godoc
// @Summary List calendar tasks within an optional date window
// @Tags Challenges
// @Produce json
// @Param from query string false "Window start (YYYY-MM-DD)"
// @Param to query string false "Window end (YYYY-MM-DD)"
// @Param completed query bool false "Completion filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /challenges [get]
func (h *ChallengeHandler) List(c *gin.Context) {
	filter, err := h.buildFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	tasks, pagination, err := h.service.List(c.Request.Context(), *filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tasks, pagination)
}

// Complete godoc
// @Summary Mark a calendar task done with an optional reflection
// @Tags Challenges
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param payload body service.CompleteTaskRequest false "Completion payload"
// @Success 200 {object} response.Envelope
// @Router /challenges/{id}/complete [post]
func (h *ChallengeHandler) Complete(c *gin.Context) {
	var req service.CompleteTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
			return
		}
	}
	task, err := h.service.Complete(c.Request.Context(), currentUserID(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// Delete godoc
// @Summary Remove a calendar task
// @Tags Challenges
// @Produce json
// @Param id path string true "Task ID"
// @Success 204
// @Router /challenges/{id} [delete]
func (h *ChallengeHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Download the calendar as CSV
// @Tags Challenges
// @Produce text/csv
// @Param from query string false "Window start (YYYY-MM-DD)"
// @Param to query string false "Window end (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Router /challenges/export [get]
func (h *ChallengeHandler) Export(c *gin.Context) {
	filter, err := h.buildFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	out, err := h.service.ExportCSV(c.Request.Context(), *filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="challenges.csv"`)
	c.Data(http.StatusOK, "text/csv", out)
}

func (h *ChallengeHandler) buildFilter(c *gin.Context) (*models.ChallengeTaskFilter, error) {
	filter := models.ChallengeTaskFilter{UserID: currentUserID(c)}
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD")
		}
		filter.From = &parsed
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD")
		}
		filter.To = &parsed
	}
	if raw := strings.TrimSpace(c.Query("completed")); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid completed filter")
		}
		filter.Completed = &completed
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))
	return &filter, nil
}
