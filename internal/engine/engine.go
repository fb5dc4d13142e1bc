// Package engine ties detection, dispatch and rotation into the ticks
// the scheduler triggers.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/syndicate/internal/credstore"
	"github.com/jonesrussell/syndicate/internal/detect"
	"github.com/jonesrussell/syndicate/internal/dispatch"
	"github.com/jonesrussell/syndicate/internal/domain"
	"github.com/jonesrussell/syndicate/internal/logger"
	"github.com/jonesrussell/syndicate/internal/logstore"
	"github.com/jonesrussell/syndicate/internal/metrics"
	"github.com/jonesrussell/syndicate/internal/rotation"
)

// Engine runs one tick at a time; the scheduler guarantees ticks never
// overlap.
type Engine struct {
	detector   *detect.Detector
	dispatcher *dispatch.Dispatcher
	rotations  *rotation.Manager
	creds      *credstore.Store
	logs       *logstore.Store
	metrics    *metrics.Metrics
	logger     logger.Logger

	tickDeadline time.Duration
}

// New creates an engine.
func New(detector *detect.Detector, dispatcher *dispatch.Dispatcher, rotations *rotation.Manager, creds *credstore.Store, logs *logstore.Store, m *metrics.Metrics, log logger.Logger, tickDeadline time.Duration) *Engine {
	if tickDeadline <= 0 {
		tickDeadline = 60 * time.Second
	}
	return &Engine{
		detector:     detector,
		dispatcher:   dispatcher,
		rotations:    rotations,
		creds:        creds,
		logs:         logs,
		metrics:      m,
		logger:       log,
		tickDeadline: tickDeadline,
	}
}

// TickReport summarizes one detection+dispatch tick.
type TickReport struct {
	Candidates int                                `json:"candidates"`
	Posts      int                                `json:"posts"`
	Results    map[string][]domain.DispatchResult `json:"results"`
	Duration   time.Duration                      `json:"duration"`
}

// RunDispatchTick executes one detection+dispatch cycle under the tick
// deadline. Work not finished by the deadline is abandoned and resumed
// next tick; anything already posted stands.
func (e *Engine) RunDispatchTick(ctx context.Context) (report *TickReport, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.tickDeadline)
	defer cancel()

	start := time.Now()
	defer func() {
		e.metrics.TickDuration.Observe(time.Since(start).Seconds())

		// An unexpected panic must not crash the scheduler; log it at
		// the tick boundary and let the next tick proceed normally.
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch tick panicked: %v", r)
			e.logger.Error("Dispatch tick panicked", logger.Any("panic", r))
			e.appendSystemError(ctx, fmt.Sprintf("dispatch tick panicked: %v", r))
		}
	}()

	candidates := e.detector.Detect(ctx)
	e.metrics.DetectTotal.Inc()

	if logErr := e.logs.Append(ctx, logstore.Entry{
		Type:    logstore.TypeCheck,
		Level:   logstore.LevelInfo,
		Message: fmt.Sprintf("content check found %d candidate(s)", len(candidates)),
		Details: map[string]any{"candidates": len(candidates)},
	}); logErr != nil {
		e.logger.Warn("Failed to append check log", logger.Error(logErr))
	}

	report = &TickReport{
		Candidates: len(candidates),
		Results:    make(map[string][]domain.DispatchResult, len(candidates)),
	}

	for i := range candidates {
		item := &candidates[i]
		if ctx.Err() != nil {
			e.logger.Warn("Tick deadline reached, abandoning remaining items",
				logger.Int("remaining", len(candidates)-i),
			)
			break
		}

		results := e.dispatcher.Dispatch(ctx, item)
		report.Results[item.Key()] = results
		report.Posts += len(domain.SucceededPlatforms(results))
	}

	if statusErr := e.creds.RecordDispatchRun(ctx, report.Posts); statusErr != nil {
		e.logger.Warn("Failed to record automation status", logger.Error(statusErr))
	}

	report.Duration = time.Since(start)
	e.logger.Info("Dispatch tick finished",
		logger.Int("candidates", report.Candidates),
		logger.Int("posts", report.Posts),
		logger.Duration("duration", report.Duration),
	)
	return report, nil
}

// RunRotationTick executes one credential sweep under the tick deadline.
func (e *Engine) RunRotationTick(ctx context.Context) (results []rotation.Result, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.tickDeadline)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rotation tick panicked: %v", r)
			e.logger.Error("Rotation tick panicked", logger.Any("panic", r))
			e.appendSystemError(ctx, fmt.Sprintf("rotation tick panicked: %v", r))
		}
	}()

	results = e.rotations.Sweep(ctx)

	if statusErr := e.creds.RecordRotationRun(ctx); statusErr != nil {
		e.logger.Warn("Failed to record automation status", logger.Error(statusErr))
	}
	return results, nil
}

func (e *Engine) appendSystemError(ctx context.Context, message string) {
	// The tick context may already be dead; use a short independent one.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := e.logs.Append(logCtx, logstore.Entry{
		Type:    logstore.TypeSystem,
		Level:   logstore.LevelError,
		Message: message,
	}); err != nil {
		e.logger.Warn("Failed to append system log", logger.Error(err))
	}
}
