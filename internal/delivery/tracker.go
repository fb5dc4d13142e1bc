// Package delivery records which content items have been delivered.
// A Redis key per item is the deduplication truth; a Postgres history row
// is additionally written for the admin surface when configured.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/syndicate/internal/domain"
	"github.com/jonesrussell/syndicate/internal/logger"
)

// Tracker stores delivery records in Redis. Records carry no TTL; once an
// item is delivered it stays ineligible for re-dispatch permanently.
type Tracker struct {
	client redis.UniversalClient
	logger logger.Logger
}

// NewTracker creates a delivery tracker.
func NewTracker(client redis.UniversalClient, log logger.Logger) *Tracker {
	return &Tracker{client: client, logger: log}
}

func (t *Tracker) key(itemKey string) string {
	return fmt.Sprintf("delivered:item:%s", itemKey)
}

// HasDelivered checks if a delivery record exists for the item key.
// Redis errors are logged and treated as "not delivered" so a transient
// outage degrades to a duplicate-post risk rather than dropped content.
func (t *Tracker) HasDelivered(ctx context.Context, itemKey string) bool {
	exists, err := t.client.Exists(ctx, t.key(itemKey)).Result()
	if err != nil {
		t.logger.Error("Redis error checking delivery record",
			logger.String("item_key", itemKey),
			logger.Error(err),
		)
		return false
	}
	return exists == 1
}

// MarkDelivered writes the delivery record. Callers must only invoke this
// after at least one platform post succeeded.
func (t *Tracker) MarkDelivered(ctx context.Context, record *domain.DeliveryRecord) error {
	itemKey := record.SourceID + ":" + record.ExternalID
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode delivery record %s: %w", itemKey, err)
	}

	if err := t.client.Set(ctx, t.key(itemKey), data, 0).Err(); err != nil {
		t.logger.Error("Redis error marking item delivered",
			logger.String("item_key", itemKey),
			logger.Error(err),
		)
		return fmt.Errorf("mark delivered %s: %w", itemKey, err)
	}

	t.logger.Debug("Item marked delivered",
		logger.String("item_key", itemKey),
		logger.Strings("succeeded_platforms", record.SucceededPlatforms),
	)
	return nil
}

// Get returns the stored delivery record, or nil when none exists.
func (t *Tracker) Get(ctx context.Context, itemKey string) (*domain.DeliveryRecord, error) {
	data, err := t.client.Get(ctx, t.key(itemKey)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("get delivery record %s: %w", itemKey, err)
	}

	var record domain.DeliveryRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode delivery record %s: %w", itemKey, err)
	}
	return &record, nil
}
