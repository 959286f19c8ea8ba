package models

import "time"

// AnalysisStatus tags the AI classification lifecycle of an item.
// An explicit enum replaces the legacy habit of sniffing sentinel phrases
// out of the recommendation text.
type AnalysisStatus string

const (
	AnalysisPending      AnalysisStatus = "pending"
	AnalysisAnalyzing    AnalysisStatus = "analyzing"
	AnalysisSuccess      AnalysisStatus = "success"
	AnalysisFailed       AnalysisStatus = "failed"
	AnalysisLimitReached AnalysisStatus = "limit_reached"
)

// Decision is the user's final disposition choice for an item.
type Decision string

const (
	DecisionKeep    Decision = "keep"
	DecisionSell    Decision = "sell"
	DecisionDonate  Decision = "donate"
	DecisionDispose Decision = "dispose"
)

// KnownDecision reports whether the value is a supported disposition.
func KnownDecision(d Decision) bool {
	switch d {
	case DecisionKeep, DecisionSell, DecisionDonate, DecisionDispose:
		return true
	default:
		return false
	}
}

// Item is one physical object a user is deciding about, owned by a session.
type Item struct {
	ID             string         `db:"id" json:"id"`
	SessionID      string         `db:"session_id" json:"session_id"`
	Title          string         `db:"title" json:"title"`
	Notes          *string        `db:"notes" json:"notes,omitempty"`
	Category       *string        `db:"category" json:"category,omitempty"`
	Condition      *string        `db:"condition" json:"condition,omitempty"`
	UsageScore     *int           `db:"usage_score" json:"usage_score,omitempty"`
	Recommendation *string        `db:"recommendation" json:"recommendation,omitempty"`
	Rationale      *string        `db:"rationale" json:"rationale,omitempty"`
	Sentiment      *string        `db:"sentiment" json:"sentiment,omitempty"`
	AnalysisStatus AnalysisStatus `db:"analysis_status" json:"analysis_status"`
	Decision       *Decision      `db:"decision" json:"decision,omitempty"`
	DecisionReason *string        `db:"decision_reason" json:"decision_reason,omitempty"`
	PriceLow       *float64       `db:"price_low" json:"price_low,omitempty"`
	PriceMid       *float64       `db:"price_mid" json:"price_mid,omitempty"`
	PriceHigh      *float64       `db:"price_high" json:"price_high,omitempty"`
	PriceConf      *float64       `db:"price_confidence" json:"price_confidence,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`

	Photos []Photo `db:"-" json:"photos,omitempty"`
}

// ItemFilter narrows item listings within a session.
type ItemFilter struct {
	SessionID      string
	AnalysisStatus AnalysisStatus
	Decision       Decision
	Page           int
	PageSize       int
}
