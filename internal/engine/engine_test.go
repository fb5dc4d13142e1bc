package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/syndicate/internal/credstore"
	"github.com/jonesrussell/syndicate/internal/delivery"
	"github.com/jonesrussell/syndicate/internal/detect"
	"github.com/jonesrussell/syndicate/internal/dispatch"
	"github.com/jonesrussell/syndicate/internal/domain"
	"github.com/jonesrussell/syndicate/internal/engine"
	"github.com/jonesrussell/syndicate/internal/logger"
	"github.com/jonesrussell/syndicate/internal/logstore"
	"github.com/jonesrussell/syndicate/internal/metrics"
	"github.com/jonesrussell/syndicate/internal/notify"
	"github.com/jonesrussell/syndicate/internal/platform"
	"github.com/jonesrussell/syndicate/internal/rotation"
)

type stubFetcher struct {
	item *domain.ContentItem
}

func (f *stubFetcher) FetchLatest(context.Context, *domain.PlatformCredential) (*domain.ContentItem, error) {
	return f.item, nil
}

type stubPoster struct{}

func (stubPoster) CheckConfig(*domain.PlatformCredential) error { return nil }

func (stubPoster) Post(_ context.Context, cred *domain.PlatformCredential, _ *domain.ContentItem) (*platform.PostResult, error) {
	return &platform.PostResult{PostID: "p-1", PostURL: "https://posted.example/" + cred.PlatformID}, nil
}

type engineEnv struct {
	engine  *engine.Engine
	creds   *credstore.Store
	logs    *logstore.Store
	fetcher *stubFetcher
}

func newEngineEnv(t *testing.T) *engineEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := logger.NewNopLogger()
	creds := credstore.NewStore(client, log)
	deliveries := delivery.NewTracker(client, log)
	logs := logstore.NewStore(client, log)
	m := metrics.NewNop()

	registry := platform.NewRegistry()
	fetcher := &stubFetcher{}
	registry.RegisterFetcher(platform.SourceLongform, fetcher)
	for _, id := range dispatch.TargetPlatforms(domain.OrientationLandscape) {
		registry.RegisterPoster(id, stubPoster{})
	}

	dispatcher := dispatch.NewDispatcher(dispatch.Config{
		MaxRetries:   0,
		InitialDelay: time.Millisecond,
		RateLimitRPS: 1000,
	}, dispatch.Deps{
		Creds:      creds,
		Registry:   registry,
		Deliveries: deliveries,
		Logs:       logs,
		Notifier:   notify.NewNotifier("", nil, log),
		Metrics:    m,
		Logger:     log,
	})

	detector := detect.NewDetector(creds, registry, deliveries, 24*time.Hour, log)
	rotations := rotation.NewManager(creds, nil, logs, m, log)

	eng := engine.New(detector, dispatcher, rotations, creds, logs, m, log, 10*time.Second)
	return &engineEnv{engine: eng, creds: creds, logs: logs, fetcher: fetcher}
}

func enable(t *testing.T, env *engineEnv, platformID string, level int) {
	t.Helper()
	require.NoError(t, env.creds.Put(context.Background(), &domain.PlatformCredential{
		PlatformID: platformID,
		Level:      level,
		Fields:     map[string]string{"api_key": "k", "channel_id": "c", "access_token": "tok"},
		Enabled:    true,
		Validated:  true,
	}))
}

func TestRunDispatchTickEndToEnd(t *testing.T) {
	env := newEngineEnv(t)
	ctx := context.Background()

	enable(t, env, platform.SourceLongform, domain.LevelSource)
	for _, id := range dispatch.TargetPlatforms(domain.OrientationLandscape) {
		enable(t, env, id, domain.LevelPlatform)
	}

	env.fetcher.item = &domain.ContentItem{
		SourceID:    "longform",
		ExternalID:  "vid-1",
		Title:       "A new upload",
		URL:         "https://videos.example/watch/vid-1",
		PublishedAt: time.Now().UTC().Add(-time.Hour),
		Orientation: domain.OrientationLandscape,
	}

	report, err := env.engine.RunDispatchTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, 3, report.Posts)
	require.Contains(t, report.Results, "longform:vid-1")
	assert.Len(t, report.Results["longform:vid-1"], 3)

	status, err := env.creds.GetStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, status.TotalRuns)
	assert.EqualValues(t, 3, status.TotalPosts)
	assert.NotNil(t, status.LastDispatchRun)

	summary, err := env.logs.Summarize(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalExecutions)
	assert.Equal(t, 3, summary.SuccessfulPosts)
}

func TestRunDispatchTickSecondRunIsIdempotent(t *testing.T) {
	env := newEngineEnv(t)
	ctx := context.Background()

	enable(t, env, platform.SourceLongform, domain.LevelSource)
	for _, id := range dispatch.TargetPlatforms(domain.OrientationLandscape) {
		enable(t, env, id, domain.LevelPlatform)
	}
	env.fetcher.item = &domain.ContentItem{
		SourceID:    "longform",
		ExternalID:  "vid-1",
		Title:       "A new upload",
		URL:         "https://videos.example/watch/vid-1",
		PublishedAt: time.Now().UTC().Add(-time.Hour),
		Orientation: domain.OrientationLandscape,
	}

	first, err := env.engine.RunDispatchTick(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, first.Posts)

	// The upstream still reports the same latest item; it must not be
	// dispatched again.
	second, err := env.engine.RunDispatchTick(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Candidates)
	assert.Zero(t, second.Posts)
}

func TestRunDispatchTickNoSources(t *testing.T) {
	env := newEngineEnv(t)

	report, err := env.engine.RunDispatchTick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Candidates)
	assert.Zero(t, report.Posts)
}

func TestRunRotationTickStampsStatus(t *testing.T) {
	env := newEngineEnv(t)
	ctx := context.Background()

	results, err := env.engine.RunRotationTick(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)

	status, err := env.creds.GetStatus(ctx)
	require.NoError(t, err)
	assert.NotNil(t, status.LastRotationRun)
}
