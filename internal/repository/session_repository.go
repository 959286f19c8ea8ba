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

// SessionRepository provides persistence for declutter sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = "id, user_id, scenario, title, status, move_date, region, trade_method, ai_plan_generated, created_at, updated_at"

// Create inserts a new session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	query := `INSERT INTO sessions (id, user_id, scenario, title, status, move_date, region, trade_method, ai_plan_generated, created_at, updated_at)
VALUES (:id, :user_id, :scenario, :title, :status, :move_date, :region, :trade_method, :ai_plan_generated, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindByIDForUser returns a session only when it belongs to the caller.
// Non-owned ids behave exactly like missing ones.
func (r *SessionRepository) FindByIDForUser(ctx context.Context, id, userID string) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE id = $1 AND user_id = $2", sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id, userID); err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns the user's sessions with pagination.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	where := []string{"user_id = $1"}
	args := []interface{}{filter.UserID}
	if filter.Scenario != "" {
		where = append(where, fmt.Sprintf("scenario = $%d", len(args)+1))
		args = append(args, filter.Scenario)
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE %s
ORDER BY created_at DESC
LIMIT %d OFFSET %d`, sessionColumns, whereClause, size, offset)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sessions WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}

// UpdateStatus applies a one-way status transition. Only the owning user's
// active session may move; zero rows affected surfaces as sql.ErrNoRows.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id, userID string, status models.SessionStatus) error {
	query := `UPDATE sessions SET status = $1, updated_at = $2
WHERE id = $3 AND user_id = $4 AND status = 'active'`
	res, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkPlanGenerated flips the moving-plan flag that the quota ledger counts.
func (r *SessionRepository) MarkPlanGenerated(ctx context.Context, id string) error {
	query := `UPDATE sessions SET ai_plan_generated = TRUE, updated_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark plan generated: %w", err)
	}
	return nil
}

// Aggregates recomputes the derived counters from child items. The result
// is a view over items, not stored state, so repeated calls with no
// intervening writes are identical.
func (r *SessionRepository) Aggregates(ctx context.Context, sessionID string) (*models.SessionAggregates, error) {
	query := `SELECT
COUNT(*) AS item_count,
COUNT(decision) AS decided_count,
COALESCE(SUM(price_mid) FILTER (WHERE decision = 'sell'), 0) AS expected_revenue
FROM items WHERE session_id = $1`
	var agg models.SessionAggregates
	if err := r.db.GetContext(ctx, &agg, query, sessionID); err != nil {
		return nil, fmt.Errorf("session aggregates: %w", err)
	}
	return &agg, nil
}

// CountPlansGenerated counts the user's sessions with a generated moving plan.
func (r *SessionRepository) CountPlansGenerated(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM sessions WHERE user_id = $1 AND ai_plan_generated = TRUE`
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count generated plans: %w", err)
	}
	return count, nil
}

// CountByStatus returns the user's session totals keyed by status.
func (r *SessionRepository) CountByStatus(ctx context.Context, userID string) (map[models.SessionStatus]int, error) {
	rows := []struct {
		Status models.SessionStatus `db:"status"`
		Count  int                  `db:"count"`
	}{}
	query := `SELECT status, COUNT(*) AS count FROM sessions WHERE user_id = $1 GROUP BY status`
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("count sessions by status: %w", err)
	}
	result := make(map[models.SessionStatus]int, len(rows))
	for _, row := range rows {
		result[row.Status] = row.Count
	}
	return result, nil
}
