package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// MovingPlan is the AI-generated week-by-week preparation plan attached to
// a moving-assistant session. The raw plan is kept as JSON; the scheduler
// flattens it into dated challenge tasks.
type MovingPlan struct {
	ID        string         `db:"id" json:"id"`
	SessionID string         `db:"session_id" json:"session_id"`
	Plan      types.JSONText `db:"plan" json:"plan"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// PlanWeek is one week of a moving plan.
type PlanWeek struct {
	Week  int      `json:"week"`
	Theme string   `json:"theme"`
	Tasks []string `json:"tasks"`
}
