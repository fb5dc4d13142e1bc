// Package logstore keeps an append-only, date-partitioned log of every
// automation action in Redis, with daily summary aggregation and a
// fixed 7-day retention.
package logstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/syndicate/internal/logger"
)

// EntryType classifies what produced a log entry.
type EntryType string

const (
	TypeCheck    EntryType = "check"
	TypeDispatch EntryType = "dispatch"
	TypeRotation EntryType = "rotation"
	TypeSystem   EntryType = "system"
)

// Level is the severity of a log entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

// Entry is one automation action record.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EntryType      `json:"type"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// PlatformCounts is the per-platform success/failure tally of a day.
type PlatformCounts struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// Summary holds the aggregated counters of one day.
type Summary struct {
	TotalExecutions   int                       `json:"total_executions"`
	SuccessfulPosts   int                       `json:"successful_posts"`
	FailedPosts       int                       `json:"failed_posts"`
	PlatformBreakdown map[string]PlatformCounts `json:"platform_breakdown"`
}

// DailyLog is the log partition for one calendar date.
type DailyLog struct {
	Date    string  `json:"date"`
	Entries []Entry `json:"entries"`
	Summary Summary `json:"summary"`
}

const (
	dailyKeyPrefix = "logs:daily:"
	cleanupMarkKey = "logs:last_cleanup"

	// maxEntriesPerDay caps a day's entry list; the oldest entries are
	// dropped to bound storage size. The summary counters are not
	// affected by truncation.
	maxEntriesPerDay = 100

	// retentionDays is how many daily partitions are kept. Cleanup
	// deletes exactly the partition from retentionDays days prior,
	// a single-key deletion regardless of history size.
	retentionDays = 7

	dateLayout = "2006-01-02"
)

// Store is the Redis-backed daily log store. Writes are read-modify-write
// with last-writer-wins, which is acceptable because the scheduler
// invokes the engine serially.
type Store struct {
	client redis.UniversalClient
	logger logger.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithNowFunc replaces the clock. Test hook.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a daily log store.
func NewStore(client redis.UniversalClient, log logger.Logger, opts ...Option) *Store {
	s := &Store{
		client: client,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func dailyKey(date string) string {
	return dailyKeyPrefix + date
}

// Append records an entry into today's partition. On the first append of
// a new calendar day it also deletes the partition that just aged out of
// retention.
func (s *Store) Append(ctx context.Context, entry Entry) error {
	now := s.now().UTC()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now
	}
	today := now.Format(dateLayout)

	if err := s.maybeCleanup(ctx, now, today); err != nil {
		// Retention failure must not block logging.
		s.logger.Warn("Daily log cleanup failed", logger.Error(err))
	}

	day, err := s.load(ctx, today)
	if err != nil {
		return err
	}
	if day == nil {
		day = &DailyLog{Date: today, Summary: Summary{PlatformBreakdown: map[string]PlatformCounts{}}}
	}

	day.Entries = append(day.Entries, entry)
	if len(day.Entries) > maxEntriesPerDay {
		day.Entries = day.Entries[len(day.Entries)-maxEntriesPerDay:]
	}
	applyToSummary(&day.Summary, entry)

	return s.save(ctx, day)
}

// applyToSummary updates the day's counters incrementally for one entry.
func applyToSummary(sum *Summary, entry Entry) {
	if sum.PlatformBreakdown == nil {
		sum.PlatformBreakdown = map[string]PlatformCounts{}
	}

	switch entry.Type {
	case TypeCheck:
		sum.TotalExecutions++
	case TypeDispatch:
		platformID, _ := entry.Details["platform_id"].(string)
		counts := sum.PlatformBreakdown[platformID]
		switch entry.Level {
		case LevelSuccess:
			sum.SuccessfulPosts++
			counts.Success++
		case LevelError:
			sum.FailedPosts++
			counts.Failed++
		}
		if platformID != "" {
			sum.PlatformBreakdown[platformID] = counts
		}
	}
}

// maybeCleanup runs the once-per-day retention pass: when the cleanup
// marker is not today's date, delete exactly the partition that just
// left the 7-day read window and advance the marker.
func (s *Store) maybeCleanup(ctx context.Context, now time.Time, today string) error {
	last, err := s.client.Get(ctx, cleanupMarkKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("read cleanup marker: %w", err)
	}
	if last == today {
		return nil
	}

	expired := now.AddDate(0, 0, -retentionDays).Format(dateLayout)

	pipe := s.client.Pipeline()
	pipe.Del(ctx, dailyKey(expired))
	pipe.Set(ctx, cleanupMarkKey, today, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete expired partition %s: %w", expired, err)
	}

	s.logger.Debug("Expired log partition removed", logger.String("date", expired))
	return nil
}

func (s *Store) load(ctx context.Context, date string) (*DailyLog, error) {
	data, err := s.client.Get(ctx, dailyKey(date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load daily log %s: %w", date, err)
	}

	var day DailyLog
	if err := json.Unmarshal(data, &day); err != nil {
		return nil, fmt.Errorf("decode daily log %s: %w", date, err)
	}
	return &day, nil
}

func (s *Store) save(ctx context.Context, day *DailyLog) error {
	data, err := json.Marshal(day)
	if err != nil {
		return fmt.Errorf("encode daily log %s: %w", day.Date, err)
	}
	if err := s.client.Set(ctx, dailyKey(day.Date), data, 0).Err(); err != nil {
		return fmt.Errorf("store daily log %s: %w", day.Date, err)
	}
	return nil
}

// ForDate returns the log partition for an ISO date, or nil when none
// exists.
func (s *Store) ForDate(ctx context.Context, date string) (*DailyLog, error) {
	return s.load(ctx, date)
}

// Recent returns up to days partitions, newest first, skipping dates
// with no entries.
func (s *Store) Recent(ctx context.Context, days int) ([]DailyLog, error) {
	if days <= 0 {
		days = 1
	}
	if days > retentionDays {
		days = retentionDays
	}

	now := s.now().UTC()
	logs := make([]DailyLog, 0, days)
	for i := 0; i < days; i++ {
		date := now.AddDate(0, 0, -i).Format(dateLayout)
		day, err := s.load(ctx, date)
		if err != nil {
			return nil, err
		}
		if day != nil {
			logs = append(logs, *day)
		}
	}
	return logs, nil
}

// Summarize aggregates the summaries of the last days partitions.
func (s *Store) Summarize(ctx context.Context, days int) (*Summary, error) {
	logs, err := s.Recent(ctx, days)
	if err != nil {
		return nil, err
	}

	total := Summary{PlatformBreakdown: map[string]PlatformCounts{}}
	for i := range logs {
		day := &logs[i]
		total.TotalExecutions += day.Summary.TotalExecutions
		total.SuccessfulPosts += day.Summary.SuccessfulPosts
		total.FailedPosts += day.Summary.FailedPosts
		for platformID, counts := range day.Summary.PlatformBreakdown {
			agg := total.PlatformBreakdown[platformID]
			agg.Success += counts.Success
			agg.Failed += counts.Failed
			total.PlatformBreakdown[platformID] = agg
		}
	}
	return &total, nil
}
