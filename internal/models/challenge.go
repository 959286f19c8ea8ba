package models

import "time"

// ChallengeTask is a dated, completable to-do shown on the user's calendar.
// Tasks are owned by a user and optionally trace back to the session that
// spawned them (daily challenge or moving plan).
type ChallengeTask struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	SessionID   *string    `db:"session_id" json:"session_id,omitempty"`
	Name        string     `db:"name" json:"name"`
	ScheduledAt time.Time  `db:"scheduled_at" json:"scheduled_at"`
	Completed   bool       `db:"completed" json:"completed"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	Reflection  *string    `db:"reflection" json:"reflection,omitempty"`
	Tip         *string    `db:"tip" json:"tip,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// ChallengeTaskFilter narrows calendar listings to a date window.
type ChallengeTaskFilter struct {
	UserID    string
	From      *time.Time
	To        *time.Time
	Completed *bool
	Page      int
	PageSize  int
}
