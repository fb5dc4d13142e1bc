package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const statusKey = "automation:status"

// AutomationStatus is the persisted run-counter record. It replaces the
// in-memory counters a single long-lived process would keep, so restarts
// and stateless deployments do not lose it.
type AutomationStatus struct {
	LastDispatchRun *time.Time `json:"last_dispatch_run,omitempty"`
	LastRotationRun *time.Time `json:"last_rotation_run,omitempty"`
	TotalRuns       int64      `json:"total_runs"`
	TotalPosts      int64      `json:"total_posts"`
}

// GetStatus loads the automation status, returning a zero record when
// none has been written yet.
func (s *Store) GetStatus(ctx context.Context) (*AutomationStatus, error) {
	data, err := s.client.Get(ctx, statusKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return &AutomationStatus{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get automation status: %w", err)
	}

	var status AutomationStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("decode automation status: %w", err)
	}
	return &status, nil
}

func (s *Store) putStatus(ctx context.Context, status *AutomationStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode automation status: %w", err)
	}
	if err := s.client.Set(ctx, statusKey, data, 0).Err(); err != nil {
		return fmt.Errorf("store automation status: %w", err)
	}
	return nil
}

// RecordDispatchRun bumps the run counters after a detection+dispatch tick.
func (s *Store) RecordDispatchRun(ctx context.Context, posts int) error {
	status, err := s.GetStatus(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	status.LastDispatchRun = &now
	status.TotalRuns++
	status.TotalPosts += int64(posts)
	return s.putStatus(ctx, status)
}

// RecordRotationRun stamps the last rotation sweep time.
func (s *Store) RecordRotationRun(ctx context.Context) error {
	status, err := s.GetStatus(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	status.LastRotationRun = &now
	return s.putStatus(ctx, status)
}
