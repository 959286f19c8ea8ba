package models

import "time"

// Photo is an uploaded image exclusively owned by one item. At most five
// photos per item are accepted at the upload boundary.
type Photo struct {
	ID        string    `db:"id" json:"id"`
	ItemID    string    `db:"item_id" json:"item_id"`
	Path      string    `db:"path" json:"-"`
	URL       string    `db:"url" json:"url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
