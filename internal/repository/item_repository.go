package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lemore-app/lemore-api/internal/models"
)

// ItemRepository provides persistence for declutter items.
type ItemRepository struct {
	db *sqlx.DB
}

// NewItemRepository creates the repository.
func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `i.id, i.session_id, i.title, i.notes, i.category, i.condition, i.usage_score,
i.recommendation, i.rationale, i.sentiment, i.analysis_status, i.decision, i.decision_reason,
i.price_low, i.price_mid, i.price_high, i.price_confidence, i.created_at, i.updated_at`

// Create inserts a new item.
func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	query := `INSERT INTO items (id, session_id, title, notes, category, condition, usage_score,
recommendation, rationale, sentiment, analysis_status, decision, decision_reason,
price_low, price_mid, price_high, price_confidence, created_at, updated_at)
VALUES (:id, :session_id, :title, :notes, :category, :condition, :usage_score,
:recommendation, :rationale, :sentiment, :analysis_status, :decision, :decision_reason,
:price_low, :price_mid, :price_high, :price_confidence, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// FindByID returns an item without an ownership check. Reserved for
// background workers that carry ids minted by this service.
func (r *ItemRepository) FindByID(ctx context.Context, id string) (*models.Item, error) {
	query := fmt.Sprintf("SELECT %s FROM items i WHERE i.id = $1", itemColumns)
	var item models.Item
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByIDForUser returns an item only when its session belongs to the
// caller. Non-owned ids behave like missing ones.
func (r *ItemRepository) FindByIDForUser(ctx context.Context, id, userID string) (*models.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM items i
JOIN sessions s ON s.id = i.session_id
WHERE i.id = $1 AND s.user_id = $2`, itemColumns)
	var item models.Item
	if err := r.db.GetContext(ctx, &item, query, id, userID); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListBySession returns the session's items with pagination.
func (r *ItemRepository) ListBySession(ctx context.Context, filter models.ItemFilter) ([]models.Item, int, error) {
	where := []string{"i.session_id = $1"}
	args := []interface{}{filter.SessionID}
	if filter.AnalysisStatus != "" {
		where = append(where, fmt.Sprintf("i.analysis_status = $%d", len(args)+1))
		args = append(args, filter.AnalysisStatus)
	}
	if filter.Decision != "" {
		where = append(where, fmt.Sprintf("i.decision = $%d", len(args)+1))
		args = append(args, filter.Decision)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM items i WHERE %s
ORDER BY i.created_at ASC
LIMIT %d OFFSET %d`, itemColumns, whereClause, size, offset)
	var items []models.Item
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM items i WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}
	return items, total, nil
}

// UpdateAnalysis overwrites the AI-populated fields and the analysis status.
// Re-classification is idempotent at the row level: later runs replace
// earlier ones.
func (r *ItemRepository) UpdateAnalysis(ctx context.Context, item *models.Item) error {
	item.UpdatedAt = time.Now().UTC()
	query := `UPDATE items SET category = :category, condition = :condition, usage_score = :usage_score,
recommendation = :recommendation, rationale = :rationale, sentiment = :sentiment,
analysis_status = :analysis_status, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update item analysis: %w", err)
	}
	return nil
}

// SetAnalysisStatus writes just the status and rationale, used for the
// analyzing/failed/limit_reached transitions.
func (r *ItemRepository) SetAnalysisStatus(ctx context.Context, id string, status models.AnalysisStatus, rationale *string) error {
	query := `UPDATE items SET analysis_status = $1, rationale = COALESCE($2, rationale), updated_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, status, rationale, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set analysis status: %w", err)
	}
	return nil
}

// SetDecision records the user's disposition choice. Overwrites are allowed
// and the write is independent of the analysis status.
func (r *ItemRepository) SetDecision(ctx context.Context, id, userID string, decision models.Decision, reason *string) error {
	query := `UPDATE items SET decision = $1, decision_reason = $2, updated_at = $3
WHERE id = $4 AND session_id IN (SELECT id FROM sessions WHERE user_id = $5)`
	res, err := r.db.ExecContext(ctx, query, decision, reason, time.Now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("set decision: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set decision: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetPriceEstimate stores the AI price band on the item.
func (r *ItemRepository) SetPriceEstimate(ctx context.Context, id string, low, mid, high, confidence float64) error {
	query := `UPDATE items SET price_low = $1, price_mid = $2, price_high = $3, price_confidence = $4, updated_at = $5
WHERE id = $6`
	if _, err := r.db.ExecContext(ctx, query, low, mid, high, confidence, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set price estimate: %w", err)
	}
	return nil
}

// Delete removes an item together with its photos and listings in one
// transaction. Photo storage paths are returned so the caller can remove
// the underlying files after the rows are gone.
func (r *ItemRepository) Delete(ctx context.Context, id, userID string) ([]string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete item: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var paths []string
	if err := tx.SelectContext(ctx, &paths, "SELECT path FROM photos WHERE item_id = $1", id); err != nil {
		return nil, fmt.Errorf("collect photo paths: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM photos WHERE item_id = $1", id); err != nil {
		return nil, fmt.Errorf("delete item photos: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM listings WHERE item_id = $1", id); err != nil {
		return nil, fmt.Errorf("delete item listings: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM items
WHERE id = $1 AND session_id IN (SELECT id FROM sessions WHERE user_id = $2)`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("delete item: %w", err)
	}
	if affected == 0 {
		return nil, sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete item: %w", err)
	}
	return paths, nil
}

// CountSuccessfulAnalyses counts the user's items whose classification
// completed. Only analysis_status = 'success' rows count toward the quota;
// analyzing, failed and limit_reached rows are noise.
func (r *ItemRepository) CountSuccessfulAnalyses(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM items i
JOIN sessions s ON s.id = i.session_id
WHERE s.user_id = $1 AND i.analysis_status = 'success'`
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count successful analyses: %w", err)
	}
	return count, nil
}

// CountByDecision returns the user's item totals keyed by decision.
func (r *ItemRepository) CountByDecision(ctx context.Context, userID string) (map[models.Decision]int, error) {
	rows := []struct {
		Decision models.Decision `db:"decision"`
		Count    int             `db:"count"`
	}{}
	query := `SELECT i.decision, COUNT(*) AS count FROM items i
JOIN sessions s ON s.id = i.session_id
WHERE s.user_id = $1 AND i.decision IS NOT NULL
GROUP BY i.decision`
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("count items by decision: %w", err)
	}
	result := make(map[models.Decision]int, len(rows))
	for _, row := range rows {
		result[row.Decision] = row.Count
	}
	return result, nil
}

// ExpectedRevenue sums the mid price band over the user's sell-decided
// items.
func (r *ItemRepository) ExpectedRevenue(ctx context.Context, userID string) (float64, error) {
	var total float64
	query := `SELECT COALESCE(SUM(i.price_mid) FILTER (WHERE i.decision = 'sell'), 0) FROM items i
JOIN sessions s ON s.id = i.session_id
WHERE s.user_id = $1`
	if err := r.db.GetContext(ctx, &total, query, userID); err != nil {
		return 0, fmt.Errorf("sum expected revenue: %w", err)
	}
	return total, nil
}

// FailStaleAnalyzing marks items stuck in 'analyzing' beyond the TTL as
// failed so users regain the retry action. Returns the number of rows swept.
func (r *ItemRepository) FailStaleAnalyzing(ctx context.Context, olderThan time.Duration, rationale string) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	query := `UPDATE items SET analysis_status = 'failed', rationale = $1, updated_at = $2
WHERE analysis_status = 'analyzing' AND updated_at < $3`
	res, err := r.db.ExecContext(ctx, query, rationale, time.Now().UTC(), cutoff)
	if err != nil {
		return 0, fmt.Errorf("fail stale analyses: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("fail stale analyses: %w", err)
	}
	return affected, nil
}
