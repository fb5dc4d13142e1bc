package app_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/syndicate/internal/app"
)

func writeConfig(t *testing.T, redisAddr string) string {
	t.Helper()

	content := fmt.Sprintf(`
server:
  address: "127.0.0.1:0"
  scheduler_secret: test-secret
redis:
  addr: %s
`, redisAddr)

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newTestApp(t *testing.T) *app.App {
	t.Helper()

	t.Setenv("REDIS_ADDR", "")
	t.Setenv("SCHEDULER_SECRET", "")

	mr := miniredis.RunT(t)
	a, err := app.New(app.Options{ConfigPath: writeConfig(t, mr.Addr()), Version: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNewFailsWithoutRedis(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("SCHEDULER_SECRET", "")

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := app.New(app.Options{ConfigPath: writeConfig(t, addr), Version: "test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to Redis")
}

func TestRunServerStopsOnContextCancel(t *testing.T) {
	a := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunServer(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after context cancellation")
	}
}

func TestRunWorkerStopsOnContextCancel(t *testing.T) {
	a := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunWorker(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}
