package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lemore-app/lemore-api/internal/models"
)

// ListingRepository provides persistence for generated marketplace copy.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository creates the repository.
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// CreateBatch inserts one listing row per generated language.
func (r *ListingRepository) CreateBatch(ctx context.Context, listings []models.Listing) error {
	now := time.Now().UTC()
	for i := range listings {
		if listings[i].ID == "" {
			listings[i].ID = uuid.NewString()
		}
		if listings[i].CreatedAt.IsZero() {
			listings[i].CreatedAt = now
		}
		query := `INSERT INTO listings (id, item_id, language, title, body, hashtags, channels, tone, created_at)
VALUES (:id, :item_id, :language, :title, :body, :hashtags, :channels, :tone, :created_at)`
		if _, err := r.db.NamedExecContext(ctx, query, listings[i]); err != nil {
			return fmt.Errorf("create listing: %w", err)
		}
	}
	return nil
}

// ListByItem returns listings generated for an item, newest first.
func (r *ListingRepository) ListByItem(ctx context.Context, itemID string) ([]models.Listing, error) {
	var listings []models.Listing
	query := `SELECT id, item_id, language, title, body, hashtags, channels, tone, created_at
FROM listings WHERE item_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &listings, query, itemID); err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return listings, nil
}
