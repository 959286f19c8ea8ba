package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lemore-app/lemore-api/internal/models"
	appErrors "github.com/lemore-app/lemore-api/pkg/errors"
	"github.com/lemore-app/lemore-api/pkg/export"
)

type challengeRepository interface {
	CreateBatch(ctx context.Context, tasks []models.ChallengeTask) error
	FindByIDForUser(ctx context.Context, id, userID string) (*models.ChallengeTask, error)
	List(ctx context.Context, filter models.ChallengeTaskFilter) ([]models.ChallengeTask, int, error)
	Upcoming(ctx context.Context, userID string, limit int) ([]models.ChallengeTask, error)
	Complete(ctx context.Context, id, userID string, reflection *string) error
	Delete(ctx context.Context, id, userID string) error
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ChallengeService manages the user's declutter calendar.
type ChallengeService struct {
	repo      challengeRepository
	csv       csvRenderer
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChallengeService constructs the service.
func NewChallengeService(repo challengeRepository, csv csvRenderer, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ChallengeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChallengeService{repo: repo, csv: csv, cache: cache, validator: validate, logger: logger}
}

// ScheduleTaskRequest describes a manually created calendar task.
type ScheduleTaskRequest struct {
	Name        string    `json:"name" validate:"required"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Tip         *string   `json:"tip"`
}

// Schedule creates one task on the user's calendar.
func (s *ChallengeService) Schedule(ctx context.Context, userID string, req ScheduleTaskRequest) (*models.ChallengeTask, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	task := models.ChallengeTask{
		UserID:      userID,
		Name:        req.Name,
		ScheduledAt: req.ScheduledAt.UTC(),
		Tip:         req.Tip,
	}
	tasks := []models.ChallengeTask{task}
	if err := s.repo.CreateBatch(ctx, tasks); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create task")
	}
	s.cache.InvalidateUser(ctx, userID)
	return &tasks[0], nil
}

// CompleteTaskRequest carries the optional reflection written on completion.
type CompleteTaskRequest struct {
	Reflection *string `json:"reflection"`
}

// Complete marks a task done. Completing an already completed task just
// refreshes the timestamp and reflection.
func (s *ChallengeService) Complete(ctx context.Context, userID, taskID string, req CompleteTaskRequest) (*models.ChallengeTask, error) {
	if err := s.repo.Complete(ctx, taskID, userID, req.Reflection); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete task")
	}
	s.cache.InvalidateUser(ctx, userID)
	task, err := s.repo.FindByIDForUser(ctx, taskID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	return task, nil
}

// Delete removes a task from the calendar.
func (s *ChallengeService) Delete(ctx context.Context, userID, taskID string) error {
	if err := s.repo.Delete(ctx, taskID, userID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete task")
	}
	s.cache.InvalidateUser(ctx, userID)
	return nil
}

// List returns the user's tasks inside an optional date window.
func (s *ChallengeService) List(ctx context.Context, filter models.ChallengeTaskFilter) ([]models.ChallengeTask, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	tasks, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return tasks, pagination, nil
}

// Upcoming returns the next incomplete tasks, used by the dashboard.
func (s *ChallengeService) Upcoming(ctx context.Context, userID string, limit int) ([]models.ChallengeTask, error) {
	tasks, err := s.repo.Upcoming(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load upcoming tasks")
	}
	return tasks, nil
}

// ExportCSV renders the user's calendar, honouring the same date window as
// List, into CSV bytes for download.
func (s *ChallengeService) ExportCSV(ctx context.Context, filter models.ChallengeTaskFilter) ([]byte, error) {
	filter.Page = 1
	filter.PageSize = 100
	var rows []map[string]string
	for {
		tasks, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
		}
		for _, task := range tasks {
			row := map[string]string{
				"name":         task.Name,
				"scheduled_at": task.ScheduledAt.Format("2006-01-02"),
				"completed":    "no",
				"completed_at": "",
				"reflection":   "",
			}
			if task.Completed {
				row["completed"] = "yes"
			}
			if task.CompletedAt != nil {
				row["completed_at"] = task.CompletedAt.Format(time.RFC3339)
			}
			if task.Reflection != nil {
				row["reflection"] = *task.Reflection
			}
			rows = append(rows, row)
		}
		if filter.Page*filter.PageSize >= total {
			break
		}
		filter.Page++
	}

	data := export.Dataset{
		Headers: []string{"name", "scheduled_at", "completed", "completed_at", "reflection"},
		Rows:    rows,
	}
	out, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return out, nil
}
