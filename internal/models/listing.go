package models

import (
	"time"

	"github.com/lib/pq"
)

// Listing holds AI-generated marketplace copy for an item in one language.
// An item may carry zero or many listings, one per language and generation.
type Listing struct {
	ID        string         `db:"id" json:"id"`
	ItemID    string         `db:"item_id" json:"item_id"`
	Language  string         `db:"language" json:"language"`
	Title     string         `db:"title" json:"title"`
	Body      string         `db:"body" json:"body"`
	Hashtags  pq.StringArray `db:"hashtags" json:"hashtags"`
	Channels  pq.StringArray `db:"channels" json:"channels"`
	Tone      string         `db:"tone" json:"tone"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
