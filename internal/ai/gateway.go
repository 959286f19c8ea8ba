package ai

import (
	"context"
	"time"
)

// ItemContext carries the item fields the prompts are built from.
type ItemContext struct {
	Title     string
	Notes     string
	Category  string
	Condition string
	PhotoURLs []string
}

// Classification is the parsed result of an item analysis.
type Classification struct {
	Category       string `json:"category"`
	Condition      string `json:"condition"`
	UsageScore     int    `json:"usage_score"`
	Recommendation string `json:"recommendation"`
	Rationale      string `json:"rationale"`
	Sentiment      string `json:"sentiment"`
}

// PriceSuggestion is the parsed result of a price-band request.
type PriceSuggestion struct {
	Low        float64 `json:"low"`
	Mid        float64 `json:"mid"`
	High       float64 `json:"high"`
	Confidence float64 `json:"confidence"`
}

// ListingRequest parameterises marketplace-copy generation.
type ListingRequest struct {
	Title     string
	Condition string
	Features  string
	Tone      string
	Language  string
}

// ListingCopy is one language's generated marketplace copy.
type ListingCopy struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Hashtags []string `json:"hashtags"`
}

// MovingContext parameterises moving-plan generation.
type MovingContext struct {
	MoveDate    time.Time
	Region      string
	TradeMethod string
	Weeks       int
}

// PlanWeek is one week of a generated moving plan.
type PlanWeek struct {
	Week  int      `json:"week"`
	Theme string   `json:"theme"`
	Tasks []string `json:"tasks"`
}

// Gateway is the LLM collaborator. Implementations shape the request,
// parse the response defensively and report failures as errors; they never
// persist anything themselves.
type Gateway interface {
	ClassifyItem(ctx context.Context, item ItemContext) (*Classification, error)
	SuggestPrice(ctx context.Context, item ItemContext) (*PriceSuggestion, error)
	ComposeListing(ctx context.Context, req ListingRequest) (*ListingCopy, error)
	BuildMovingPlan(ctx context.Context, mc MovingContext) ([]PlanWeek, error)
}
