package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lemore-app/lemore-api/internal/models"
)

// ChallengeRepository provides persistence for calendar tasks.
type ChallengeRepository struct {
	db *sqlx.DB
}

// NewChallengeRepository creates the repository.
func NewChallengeRepository(db *sqlx.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

const challengeColumns = "id, user_id, session_id, name, scheduled_at, completed, completed_at, reflection, tip, created_at, updated_at"

// CreateBatch inserts a set of tasks atomically, so a mid-batch failure
// never leaves a partial task calendar.
func (r *ChallengeRepository) CreateBatch(ctx context.Context, tasks []models.ChallengeTask) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin challenge batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for i := range tasks {
		if tasks[i].ID == "" {
			tasks[i].ID = uuid.NewString()
		}
		if tasks[i].CreatedAt.IsZero() {
			tasks[i].CreatedAt = now
		}
		tasks[i].UpdatedAt = now
		query := `INSERT INTO challenge_tasks (id, user_id, session_id, name, scheduled_at, completed, completed_at, reflection, tip, created_at, updated_at)
VALUES (:id, :user_id, :session_id, :name, :scheduled_at, :completed, :completed_at, :reflection, :tip, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, tasks[i]); err != nil {
			return fmt.Errorf("create challenge task: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit challenge batch: %w", err)
	}
	return nil
}

// FindByIDForUser returns a task only when it belongs to the caller.
func (r *ChallengeRepository) FindByIDForUser(ctx context.Context, id, userID string) (*models.ChallengeTask, error) {
	query := fmt.Sprintf("SELECT %s FROM challenge_tasks WHERE id = $1 AND user_id = $2", challengeColumns)
	var task models.ChallengeTask
	if err := r.db.GetContext(ctx, &task, query, id, userID); err != nil {
		return nil, err
	}
	return &task, nil
}

// List returns the user's tasks inside an optional date window.
func (r *ChallengeRepository) List(ctx context.Context, filter models.ChallengeTaskFilter) ([]models.ChallengeTask, int, error) {
	where := []string{"user_id = $1"}
	args := []interface{}{filter.UserID}
	if filter.From != nil {
		where = append(where, fmt.Sprintf("scheduled_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("scheduled_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.Completed != nil {
		where = append(where, fmt.Sprintf("completed = $%d", len(args)+1))
		args = append(args, *filter.Completed)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM challenge_tasks WHERE %s
ORDER BY scheduled_at ASC
LIMIT %d OFFSET %d`, challengeColumns, whereClause, size, offset)
	var tasks []models.ChallengeTask
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list challenge tasks: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM challenge_tasks WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count challenge tasks: %w", err)
	}
	return tasks, total, nil
}

// Upcoming returns the next incomplete tasks for the dashboard.
func (r *ChallengeRepository) Upcoming(ctx context.Context, userID string, limit int) ([]models.ChallengeTask, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT %s FROM challenge_tasks
WHERE user_id = $1 AND completed = FALSE
ORDER BY scheduled_at ASC LIMIT %d`, challengeColumns, limit)
	var tasks []models.ChallengeTask
	if err := r.db.SelectContext(ctx, &tasks, query, userID); err != nil {
		return nil, fmt.Errorf("upcoming challenge tasks: %w", err)
	}
	return tasks, nil
}

// Complete marks a task done, stamping completed_at and storing the
// optional reflection. Backfilling past dates is allowed.
func (r *ChallengeRepository) Complete(ctx context.Context, id, userID string, reflection *string) error {
	now := time.Now().UTC()
	query := `UPDATE challenge_tasks SET completed = TRUE, completed_at = $1, reflection = $2, updated_at = $3
WHERE id = $4 AND user_id = $5`
	res, err := r.db.ExecContext(ctx, query, now, reflection, now, id, userID)
	if err != nil {
		return fmt.Errorf("complete challenge task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete challenge task: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a task owned by the caller.
func (r *ChallengeRepository) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM challenge_tasks WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("delete challenge task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete challenge task: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
