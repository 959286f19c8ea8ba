package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lemore-app/lemore-api/internal/models"
)

// MovingPlanRepository stores generated moving plans.
type MovingPlanRepository struct {
	db *sqlx.DB
}

// NewMovingPlanRepository creates the repository.
func NewMovingPlanRepository(db *sqlx.DB) *MovingPlanRepository {
	return &MovingPlanRepository{db: db}
}

// Create inserts a plan for a session.
func (r *MovingPlanRepository) Create(ctx context.Context, plan *models.MovingPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO moving_plans (id, session_id, plan, created_at)
VALUES (:id, :session_id, :plan, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, plan); err != nil {
		return fmt.Errorf("create moving plan: %w", err)
	}
	return nil
}

// FindBySession returns the latest plan generated for a session.
func (r *MovingPlanRepository) FindBySession(ctx context.Context, sessionID string) (*models.MovingPlan, error) {
	query := `SELECT id, session_id, plan, created_at FROM moving_plans
WHERE session_id = $1 ORDER BY created_at DESC LIMIT 1`
	var plan models.MovingPlan
	if err := r.db.GetContext(ctx, &plan, query, sessionID); err != nil {
		return nil, err
	}
	return &plan, nil
}
