package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lemore-app/lemore-api/internal/models"
)

// PhotoRepository provides persistence for item photos.
type PhotoRepository struct {
	db *sqlx.DB
}

// NewPhotoRepository creates the repository.
func NewPhotoRepository(db *sqlx.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// CreateBatch inserts photos for one item atomically. The photo cap is
// re-checked inside the transaction so a batch that would push the item
// past the limit persists nothing.
func (r *PhotoRepository) CreateBatch(ctx context.Context, itemID string, photos []models.Photo, maxPerItem int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin photo batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existing int
	if err := tx.GetContext(ctx, &existing, "SELECT COUNT(*) FROM photos WHERE item_id = $1", itemID); err != nil {
		return fmt.Errorf("count item photos: %w", err)
	}
	if existing+len(photos) > maxPerItem {
		return ErrPhotoLimit
	}

	now := time.Now().UTC()
	for i := range photos {
		if photos[i].ID == "" {
			photos[i].ID = uuid.NewString()
		}
		photos[i].ItemID = itemID
		if photos[i].CreatedAt.IsZero() {
			photos[i].CreatedAt = now
		}
		query := `INSERT INTO photos (id, item_id, path, url, created_at)
VALUES (:id, :item_id, :path, :url, :created_at)`
		if _, err := tx.NamedExecContext(ctx, query, photos[i]); err != nil {
			return fmt.Errorf("insert photo: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit photo batch: %w", err)
	}
	return nil
}

// ListByItem returns the item's photos in upload order.
func (r *PhotoRepository) ListByItem(ctx context.Context, itemID string) ([]models.Photo, error) {
	var photos []models.Photo
	query := `SELECT id, item_id, path, url, created_at FROM photos WHERE item_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &photos, query, itemID); err != nil {
		return nil, fmt.Errorf("list item photos: %w", err)
	}
	return photos, nil
}

// CountByItem returns how many photos an item currently holds.
func (r *PhotoRepository) CountByItem(ctx context.Context, itemID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM photos WHERE item_id = $1", itemID); err != nil {
		return 0, fmt.Errorf("count item photos: %w", err)
	}
	return count, nil
}

// AllPaths returns every stored photo path. The orphan sweep uses this as
// its keep-set when deciding which files on disk are safe to remove.
func (r *PhotoRepository) AllPaths(ctx context.Context) (map[string]struct{}, error) {
	var paths []string
	if err := r.db.SelectContext(ctx, &paths, "SELECT path FROM photos"); err != nil {
		return nil, fmt.Errorf("list photo paths: %w", err)
	}
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set, nil
}

// ErrPhotoLimit is returned when a batch would exceed the per-item cap.
var ErrPhotoLimit = fmt.Errorf("photo limit exceeded")
