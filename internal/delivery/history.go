package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/syndicate/internal/domain"
)

// HistoryEntry is one row of the delivery_history table.
type HistoryEntry struct {
	ID                 uuid.UUID      `db:"id" json:"id"`
	ExternalID         string         `db:"external_id" json:"external_id"`
	SourceID           string         `db:"source_id" json:"source_id"`
	Title              string         `db:"title" json:"title"`
	URL                string         `db:"url" json:"url"`
	DeliveredAt        time.Time      `db:"delivered_at" json:"delivered_at"`
	SucceededPlatforms pq.StringArray `db:"succeeded_platforms" json:"succeeded_platforms"`
}

// HistoryRepository persists delivery records to Postgres for the admin
// query surface. It is read-only from the outside world; only the
// dispatcher writes to it.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a history repository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Record inserts a delivery history row.
func (r *HistoryRepository) Record(ctx context.Context, record *domain.DeliveryRecord) (*HistoryEntry, error) {
	entry := &HistoryEntry{
		ID:                 uuid.New(),
		ExternalID:         record.ExternalID,
		SourceID:           record.SourceID,
		Title:              record.Title,
		URL:                record.URL,
		DeliveredAt:        record.DeliveredAt,
		SucceededPlatforms: pq.StringArray(record.SucceededPlatforms),
	}

	query := `
		INSERT INTO delivery_history (id, external_id, source_id, title, url, delivered_at, succeeded_platforms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, external_id, source_id, title, url, delivered_at, succeeded_platforms
	`

	err := r.db.QueryRowxContext(
		ctx, query,
		entry.ID, entry.ExternalID, entry.SourceID, entry.Title, entry.URL,
		entry.DeliveredAt, entry.SucceededPlatforms,
	).StructScan(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to create delivery history: %w", err)
	}
	return entry, nil
}

// Recent returns the most recent delivery history rows.
func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, external_id, source_id, title, url, delivered_at, succeeded_platforms
		FROM delivery_history
		ORDER BY delivered_at DESC
		LIMIT $1
	`

	entries := []HistoryEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list delivery history: %w", err)
	}
	return entries, nil
}

// CountSince returns the number of deliveries at or after the given time.
func (r *HistoryRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM delivery_history WHERE delivered_at >= $1`
	if err := r.db.GetContext(ctx, &count, query, since); err != nil {
		return 0, fmt.Errorf("failed to count delivery history: %w", err)
	}
	return count, nil
}

// Ping verifies database connectivity for health checks.
func (r *HistoryRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
