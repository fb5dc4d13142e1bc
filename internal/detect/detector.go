// Package detect polls the upstream sources for newly published content
// and filters out anything already delivered.
package detect

import (
	"context"
	"time"

	"github.com/jonesrussell/syndicate/internal/credstore"
	"github.com/jonesrussell/syndicate/internal/delivery"
	"github.com/jonesrussell/syndicate/internal/domain"
	"github.com/jonesrussell/syndicate/internal/logger"
	"github.com/jonesrussell/syndicate/internal/platform"
)

const fetchTimeout = 15 * time.Second

// Detector produces the candidate list for one tick. A source failure is
// isolated to that source; the loop always visits every source.
type Detector struct {
	creds         *credstore.Store
	registry      *platform.Registry
	deliveries    *delivery.Tracker
	logger        logger.Logger
	recencyWindow time.Duration
	now           func() time.Time
}

// Option configures a Detector.
type Option func(*Detector)

// WithNowFunc replaces the clock. Test hook.
func WithNowFunc(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// NewDetector creates a detector. recencyWindow bounds how old an item
// may be and still count as new.
func NewDetector(creds *credstore.Store, registry *platform.Registry, deliveries *delivery.Tracker, recencyWindow time.Duration, log logger.Logger, opts ...Option) *Detector {
	d := &Detector{
		creds:         creds,
		registry:      registry,
		deliveries:    deliveries,
		logger:        log,
		recencyWindow: recencyWindow,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns at most one candidate item per enabled source: the most
// recent item, only if it is inside the recency window and has no
// delivery record yet.
func (d *Detector) Detect(ctx context.Context) []domain.ContentItem {
	var candidates []domain.ContentItem

	for _, sourceID := range d.registry.SourceIDs() {
		item := d.detectSource(ctx, sourceID)
		if item != nil {
			candidates = append(candidates, *item)
		}
	}
	return candidates
}

func (d *Detector) detectSource(ctx context.Context, sourceID string) *domain.ContentItem {
	cred, err := d.creds.Get(ctx, sourceID)
	if err != nil {
		d.logger.Debug("Source has no credential, skipping",
			logger.String("source_id", sourceID),
		)
		return nil
	}
	if !cred.Usable() {
		d.logger.Debug("Source disabled or unvalidated, skipping",
			logger.String("source_id", sourceID),
		)
		return nil
	}

	fetcher, ok := d.registry.Fetcher(sourceID)
	if !ok {
		d.logger.Warn("No fetcher registered for source",
			logger.String("source_id", sourceID),
		)
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	item, err := fetcher.FetchLatest(fetchCtx, cred)
	if err != nil {
		// One broken source must not block detection on the others.
		d.logger.Error("Source fetch failed",
			logger.String("source_id", sourceID),
			logger.Error(err),
		)
		return nil
	}
	if item == nil {
		return nil
	}

	age := d.now().Sub(item.PublishedAt)
	if age > d.recencyWindow {
		d.logger.Debug("Latest item outside recency window",
			logger.String("source_id", sourceID),
			logger.String("external_id", item.ExternalID),
			logger.Duration("age", age),
		)
		return nil
	}

	if d.deliveries.HasDelivered(ctx, item.Key()) {
		d.logger.Debug("Latest item already delivered",
			logger.String("source_id", sourceID),
			logger.String("external_id", item.ExternalID),
		)
		return nil
	}

	d.logger.Info("New content detected",
		logger.String("source_id", sourceID),
		logger.String("external_id", item.ExternalID),
		logger.String("title", item.Title),
	)
	return item
}
