// Package rotation detects platform credentials approaching expiry and
// renews them without operator intervention.
package rotation

import (
	"context"
	"time"

	"github.com/jonesrussell/syndicate/internal/credstore"
	"github.com/jonesrussell/syndicate/internal/domain"
	"github.com/jonesrussell/syndicate/internal/logger"
	"github.com/jonesrussell/syndicate/internal/logstore"
	"github.com/jonesrussell/syndicate/internal/metrics"
)

// DefaultThresholdDays is how close to expiry a credential must be
// before a rotation attempt is made.
const DefaultThresholdDays = 7

// State is the rotation outcome for one credential.
type State string

const (
	// StateSkipped means no rotation was needed or possible without it
	// being an error (non-expiring, not yet close, missing prerequisites).
	StateSkipped State = "skipped"
	// StateRotated means a renewed token was persisted.
	StateRotated State = "rotated"
	// StateFailed means the rotation protocol failed; the previous token
	// is left untouched and remains usable until it actually expires.
	StateFailed State = "failed"
)

// Result reports the sweep outcome for one credential.
type Result struct {
	PlatformID string
	State      State
	Reason     string
}

// Rotator implements one platform family's rotation protocol.
type Rotator interface {
	// Rotate exchanges the current credential for a renewed token
	// bundle. It must not mutate the stored credential itself.
	Rotate(ctx context.Context, cred *domain.PlatformCredential) (*credstore.TokenUpdate, error)
}

// Manager runs the scheduled credential sweep.
type Manager struct {
	creds         *credstore.Store
	rotators      map[string]Rotator
	logs          *logstore.Store
	metrics       *metrics.Metrics
	logger        logger.Logger
	thresholdDays int
	now           func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithThresholdDays overrides the expiry threshold.
func WithThresholdDays(days int) Option {
	return func(m *Manager) { m.thresholdDays = days }
}

// WithNowFunc replaces the clock. Test hook.
func WithNowFunc(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a rotation manager. rotators maps platform id to
// that platform family's rotation protocol; credentials without an entry
// are skipped with a reason, never attempted.
func NewManager(creds *credstore.Store, rotators map[string]Rotator, logs *logstore.Store, m *metrics.Metrics, log logger.Logger, opts ...Option) *Manager {
	mgr := &Manager{
		creds:         creds,
		rotators:      rotators,
		logs:          logs,
		metrics:       m,
		logger:        log,
		thresholdDays: DefaultThresholdDays,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(mgr)
	}
	return mgr
}

// Sweep inspects every stored credential and rotates the ones close to
// expiry. One credential's failure never aborts the sweep.
func (m *Manager) Sweep(ctx context.Context) []Result {
	creds, err := m.creds.List(ctx)
	if err != nil {
		m.logger.Error("Credential sweep could not list credentials", logger.Error(err))
		m.appendLog(ctx, logstore.LevelError, "credential sweep aborted: cannot list credentials", nil)
		return nil
	}

	var results []Result
	for _, cred := range creds {
		res, attempted := m.sweepOne(ctx, cred)
		if !attempted {
			continue
		}
		results = append(results, res)
		m.metrics.RotationsTotal.WithLabelValues(string(res.State)).Inc()
	}

	m.logger.Info("Credential sweep finished", logger.Int("inspected", len(creds)), logger.Int("acted_on", len(results)))
	return results
}

// sweepOne evaluates a single credential. The second return is false
// when the credential needed no attention at all (disabled, non-expiring
// or comfortably valid), so it does not clutter the sweep report.
func (m *Manager) sweepOne(ctx context.Context, cred *domain.PlatformCredential) (Result, bool) {
	if !cred.Usable() {
		return Result{}, false
	}

	daysLeft, ok := cred.DaysUntilExpiration(m.now())
	if !ok {
		// "" or "never": nothing to rotate.
		return Result{}, false
	}
	if daysLeft > m.thresholdDays {
		return Result{}, false
	}

	m.logger.Info("Credential approaching expiry",
		logger.String("platform_id", cred.PlatformID),
		logger.Int("days_left", daysLeft),
	)

	rotator, ok := m.rotators[cred.PlatformID]
	if !ok {
		res := Result{PlatformID: cred.PlatformID, State: StateSkipped, Reason: "no rotation protocol for platform"}
		m.appendLog(ctx, logstore.LevelWarn, "rotation skipped: no protocol", map[string]any{"platform_id": cred.PlatformID})
		return res, true
	}

	update, err := rotator.Rotate(ctx, cred)
	if err != nil {
		// Not retried automatically; the previous token stays in place.
		m.logger.Error("Credential rotation failed",
			logger.String("platform_id", cred.PlatformID),
			logger.Error(err),
		)
		m.appendLog(ctx, logstore.LevelError, "rotation failed", map[string]any{
			"platform_id": cred.PlatformID,
			"error":       err.Error(),
		})
		return Result{PlatformID: cred.PlatformID, State: StateFailed, Reason: err.Error()}, true
	}
	if update == nil {
		// Prerequisites missing is an expected configuration gap, not an
		// error.
		res := Result{PlatformID: cred.PlatformID, State: StateSkipped, Reason: "rotation prerequisites not configured"}
		m.appendLog(ctx, logstore.LevelWarn, "rotation skipped: prerequisites not configured", map[string]any{"platform_id": cred.PlatformID})
		return res, true
	}

	if err := m.creds.UpdateToken(ctx, cred.PlatformID, *update); err != nil {
		m.logger.Error("Failed to persist rotated token",
			logger.String("platform_id", cred.PlatformID),
			logger.Error(err),
		)
		m.appendLog(ctx, logstore.LevelError, "rotation failed: persist", map[string]any{
			"platform_id": cred.PlatformID,
			"error":       err.Error(),
		})
		return Result{PlatformID: cred.PlatformID, State: StateFailed, Reason: err.Error()}, true
	}

	m.appendLog(ctx, logstore.LevelSuccess, "credential rotated", map[string]any{
		"platform_id":      cred.PlatformID,
		"token_expires_at": update.ExpiresAt,
	})
	return Result{PlatformID: cred.PlatformID, State: StateRotated}, true
}

func (m *Manager) appendLog(ctx context.Context, level logstore.Level, message string, details map[string]any) {
	entry := logstore.Entry{
		Type:    logstore.TypeRotation,
		Level:   level,
		Message: message,
		Details: details,
	}
	if err := m.logs.Append(ctx, entry); err != nil {
		m.logger.Warn("Failed to append rotation log", logger.Error(err))
	}
}
