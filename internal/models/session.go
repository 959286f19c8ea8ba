package models

import "time"

// Scenario identifies the declutter-workflow mode a session runs.
type Scenario string

const (
	ScenarioItemTriage      Scenario = "item-triage"
	ScenarioMovingAssistant Scenario = "moving-assistant"
	ScenarioDailyChallenge  Scenario = "daily-challenge"
	ScenarioQuickListing    Scenario = "quick-listing"
)

// KnownScenario reports whether the tag is one of the four supported modes.
func KnownScenario(s Scenario) bool {
	switch s {
	case ScenarioItemTriage, ScenarioMovingAssistant, ScenarioDailyChallenge, ScenarioQuickListing:
		return true
	default:
		return false
	}
}

// SessionStatus tracks the one-way session lifecycle.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusArchived  SessionStatus = "archived"
)

// Session represents one declutter engagement owned by a user.
type Session struct {
	ID              string        `db:"id" json:"id"`
	UserID          string        `db:"user_id" json:"user_id"`
	Scenario        Scenario      `db:"scenario" json:"scenario"`
	Title           string        `db:"title" json:"title"`
	Status          SessionStatus `db:"status" json:"status"`
	MoveDate        *time.Time    `db:"move_date" json:"move_date,omitempty"`
	Region          *string       `db:"region" json:"region,omitempty"`
	TradeMethod     *string       `db:"trade_method" json:"trade_method,omitempty"`
	AIPlanGenerated bool          `db:"ai_plan_generated" json:"ai_plan_generated"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`

	// Derived counters, recomputed from child items on read. Never
	// written to the sessions table.
	Aggregates *SessionAggregates `db:"-" json:"aggregates,omitempty"`
}

// SessionAggregates is the per-session view over child items.
type SessionAggregates struct {
	ItemCount       int     `db:"item_count" json:"item_count"`
	DecidedCount    int     `db:"decided_count" json:"decided_count"`
	ExpectedRevenue float64 `db:"expected_revenue" json:"expected_revenue"`
}

// SessionFilter narrows session listings.
type SessionFilter struct {
	UserID   string
	Scenario Scenario
	Status   SessionStatus
	Page     int
	PageSize int
}
