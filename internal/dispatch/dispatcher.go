// Package dispatch fans one detected content item out to its target
// platforms with retries, aggregates the results, and decides whether
// the item counts as delivered.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/jonesrussell/syndicate/internal/archive"
	"github.com/jonesrussell/syndicate/internal/credstore"
	"github.com/jonesrussell/syndicate/internal/delivery"
	"github.com/jonesrussell/syndicate/internal/domain"
	"github.com/jonesrussell/syndicate/internal/logger"
	"github.com/jonesrussell/syndicate/internal/logstore"
	"github.com/jonesrussell/syndicate/internal/metrics"
	"github.com/jonesrussell/syndicate/internal/notify"
	"github.com/jonesrussell/syndicate/internal/platform"
	"github.com/jonesrussell/syndicate/internal/retry"
)

const (
	defaultPostTimeout = 30 * time.Second
	redisTimeout       = 5 * time.Second
)

// Dispatcher routes items to platforms and records the outcome.
type Dispatcher struct {
	creds      *credstore.Store
	registry   *platform.Registry
	deliveries *delivery.Tracker
	history    *delivery.HistoryRepository // optional
	archiver   *archive.Indexer            // optional
	logs       *logstore.Store
	notifier   *notify.Notifier
	metrics    *metrics.Metrics
	limiter    *rate.Limiter
	logger     logger.Logger
	tracer     trace.Tracer

	maxRetries   int
	initialDelay time.Duration
	postTimeout  time.Duration
}

// Config holds dispatcher tuning.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	PostTimeout  time.Duration
	RateLimitRPS int
}

// Deps carries the dispatcher's collaborators. History and Archiver may
// be nil when the optional backends are not configured.
type Deps struct {
	Creds      *credstore.Store
	Registry   *platform.Registry
	Deliveries *delivery.Tracker
	History    *delivery.HistoryRepository
	Archiver   *archive.Indexer
	Logs       *logstore.Store
	Notifier   *notify.Notifier
	Metrics    *metrics.Metrics
	Logger     logger.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg Config, deps Deps) *Dispatcher {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = retry.DefaultInitialDelay
	}
	if cfg.PostTimeout <= 0 {
		cfg.PostTimeout = defaultPostTimeout
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 1
	}

	return &Dispatcher{
		creds:        deps.Creds,
		registry:     deps.Registry,
		deliveries:   deps.Deliveries,
		history:      deps.History,
		archiver:     deps.Archiver,
		logs:         deps.Logs,
		notifier:     deps.Notifier,
		metrics:      deps.Metrics,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitRPS),
		logger:       deps.Logger,
		tracer:       otel.Tracer("dispatcher"),
		maxRetries:   cfg.MaxRetries,
		initialDelay: cfg.InitialDelay,
		postTimeout:  cfg.PostTimeout,
	}
}

// Dispatch posts one item to every target platform and returns the
// per-platform results. When at least one platform succeeds a delivery
// record is created; when every attempted platform fails the item stays
// eligible for the next tick.
func (d *Dispatcher) Dispatch(ctx context.Context, item *domain.ContentItem) []domain.DispatchResult {
	ctx, span := d.tracer.Start(ctx, "dispatch.item",
		trace.WithAttributes(
			attribute.String("source_id", item.SourceID),
			attribute.String("external_id", item.ExternalID),
			attribute.String("orientation", string(item.Orientation)),
		))
	defer span.End()

	targets := TargetPlatforms(item.Orientation)
	results := make([]domain.DispatchResult, len(targets))

	var wg sync.WaitGroup
	for i, platformID := range targets {
		wg.Add(1)
		go func(i int, platformID string) {
			defer wg.Done()
			results[i] = d.dispatchOne(ctx, platformID, item)
		}(i, platformID)
	}
	wg.Wait()

	d.recordResults(ctx, item, results)
	return results
}

// dispatchOne handles a single target platform end to end.
func (d *Dispatcher) dispatchOne(ctx context.Context, platformID string, item *domain.ContentItem) domain.DispatchResult {
	result := domain.DispatchResult{PlatformID: platformID, Outcome: domain.OutcomeSkipped}

	cred, err := d.creds.Get(ctx, platformID)
	if err != nil {
		result.Err = "no credential configured"
		return result
	}
	if !cred.Usable() {
		result.Err = "platform disabled or unvalidated"
		return result
	}

	poster, ok := d.registry.Poster(platformID)
	if !ok {
		result.Err = "no adapter registered"
		return result
	}

	// Configuration gaps are detected before any network call.
	if cfgErr := poster.CheckConfig(cred); cfgErr != nil {
		result.Err = cfgErr.Error()
		return result
	}

	if waitErr := d.limiter.Wait(ctx); waitErr != nil {
		result.Outcome = domain.OutcomeFailed
		result.Err = fmt.Sprintf("rate limit wait: %v", waitErr)
		return result
	}

	post, attempts, err := retry.Do(ctx, func(ctx context.Context) (*platform.PostResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, d.postTimeout)
		defer cancel()

		res, postErr := poster.Post(callCtx, cred, item)
		if postErr != nil && (errors.Is(postErr, platform.ErrUnauthorized) || errors.Is(postErr, platform.ErrMissingConfig)) {
			// Repeating these cannot help; surface immediately.
			return nil, retry.Permanent(postErr)
		}
		return res, postErr
	}, retry.WithMaxRetries(d.maxRetries), retry.WithInitialDelay(d.initialDelay))

	result.Attempts = attempts
	if err != nil {
		if errors.Is(err, platform.ErrMissingConfig) {
			result.Outcome = domain.OutcomeSkipped
		} else {
			result.Outcome = domain.OutcomeFailed
		}
		result.Err = err.Error()
		return result
	}

	result.Outcome = domain.OutcomeSuccess
	result.PostID = post.PostID
	result.PostURL = post.PostURL
	return result
}

// recordResults logs every result, updates counters, creates the
// delivery record when warranted, and emits one aggregated alert when
// anything failed.
func (d *Dispatcher) recordResults(ctx context.Context, item *domain.ContentItem, results []domain.DispatchResult) {
	var failures []notify.PlatformFailure
	successes := domain.SucceededPlatforms(results)

	for i := range results {
		res := &results[i]
		d.metrics.DispatchTotal.WithLabelValues(res.PlatformID, string(res.Outcome)).Inc()
		d.appendLog(ctx, item, res)

		switch res.Outcome {
		case domain.OutcomeFailed:
			failures = append(failures, notify.PlatformFailure{Platform: res.PlatformID, Error: res.Err})
			d.logger.Warn("Platform dispatch failed",
				logger.String("platform_id", res.PlatformID),
				logger.String("item", item.Key()),
				logger.Int("attempts", res.Attempts),
				logger.String("error", res.Err),
			)
		case domain.OutcomeSuccess:
			d.logger.Info("Platform dispatch succeeded",
				logger.String("platform_id", res.PlatformID),
				logger.String("item", item.Key()),
				logger.String("post_url", res.PostURL),
				logger.Int("attempts", res.Attempts),
			)
		case domain.OutcomeSkipped:
			d.logger.Debug("Platform skipped",
				logger.String("platform_id", res.PlatformID),
				logger.String("item", item.Key()),
				logger.String("reason", res.Err),
			)
		}
	}

	if len(successes) > 0 {
		d.markDelivered(ctx, item, successes)
	}

	if len(failures) > 0 {
		// One aggregated alert per dispatch, not one per platform.
		d.notifier.SendFailureAlert(ctx, &notify.Alert{
			ContentTitle:  item.Title,
			ContentURL:    item.URL,
			ContentSource: item.SourceID,
			Failures:      failures,
			Successes:     successes,
		})
	}
}

func (d *Dispatcher) appendLog(ctx context.Context, item *domain.ContentItem, res *domain.DispatchResult) {
	level := logstore.LevelInfo
	message := fmt.Sprintf("skipped %s for %s", res.PlatformID, item.Key())
	switch res.Outcome {
	case domain.OutcomeSuccess:
		level = logstore.LevelSuccess
		message = fmt.Sprintf("posted %s to %s", item.Key(), res.PlatformID)
	case domain.OutcomeFailed:
		level = logstore.LevelError
		message = fmt.Sprintf("failed to post %s to %s", item.Key(), res.PlatformID)
	}

	entry := logstore.Entry{
		Type:    logstore.TypeDispatch,
		Level:   level,
		Message: message,
		Details: map[string]any{
			"platform_id": res.PlatformID,
			"item":        item.Key(),
			"attempts":    res.Attempts,
		},
	}
	if res.Err != "" {
		entry.Details["error"] = res.Err
	}
	if res.PostURL != "" {
		entry.Details["post_url"] = res.PostURL
	}

	if err := d.logs.Append(ctx, entry); err != nil {
		d.logger.Warn("Failed to append dispatch log", logger.Error(err))
	}
}

// markDelivered writes the delivery record that makes the item
// permanently ineligible for re-dispatch, then feeds the optional
// history and archive backends.
func (d *Dispatcher) markDelivered(ctx context.Context, item *domain.ContentItem, successes []string) {
	record := &domain.DeliveryRecord{
		ExternalID:         item.ExternalID,
		SourceID:           item.SourceID,
		Title:              item.Title,
		URL:                item.URL,
		DeliveredAt:        time.Now().UTC(),
		SucceededPlatforms: successes,
	}

	markCtx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	if err := d.deliveries.MarkDelivered(markCtx, record); err != nil {
		// The posts went out but the record write failed; next tick may
		// re-detect the item and duplicate-protection falls to the
		// adapters. Loud log, nothing else to do.
		d.logger.Error("Failed to write delivery record",
			logger.String("item", item.Key()),
			logger.Error(err),
		)
	}

	if d.history != nil {
		if _, err := d.history.Record(ctx, record); err != nil {
			d.logger.Warn("Failed to write delivery history",
				logger.String("item", item.Key()),
				logger.Error(err),
			)
		}
	}

	if d.archiver != nil {
		d.archiver.IndexDelivery(ctx, record)
	}
}
