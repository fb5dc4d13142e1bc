package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/syndicate/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
redis:
  addr: localhost:6379
server:
  scheduler_secret: test-secret
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8075", cfg.Server.Address)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Service.RecencyWindow)
	assert.Equal(t, 60*time.Second, cfg.Service.TickDeadline)
	assert.Equal(t, time.Hour, cfg.Service.CheckInterval)
	assert.Equal(t, 24*time.Hour, cfg.Service.RotationInterval)
	assert.Equal(t, 2, cfg.Service.MaxRetries)
	assert.Equal(t, time.Second, cfg.Service.InitialRetryDelay)
	assert.Equal(t, 1, cfg.Service.RateLimitRPS)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, "delivered_content", cfg.Elasticsearch.Index)
	assert.False(t, cfg.Debug)
}

func TestLoadReadsValues(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
debug: true
redis:
  addr: redis.internal:6390
  db: 3
server:
  address: ":9000"
  scheduler_secret: s3cret
http:
  insecure_skip_verify: true
service:
  recency_window: 12h
  check_interval: 30m
  max_retries: 5
platforms:
  microblog_main:
    base_url: https://staging.microblog.example
`))
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "redis.internal:6390", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, 12*time.Hour, cfg.Service.RecencyWindow)
	assert.Equal(t, 30*time.Minute, cfg.Service.CheckInterval)
	assert.Equal(t, 5, cfg.Service.MaxRetries)
	assert.True(t, cfg.HTTP.InsecureSkipVerify)
	assert.Equal(t, "https://staging.microblog.example", cfg.PlatformBaseURL("microblog_main"))
	assert.Empty(t, cfg.PlatformBaseURL("pinwall"))
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "override:6379")
	t.Setenv("SCHEDULER_SECRET", "env-secret")
	t.Setenv("SYNDICATE_PORT", "8123")
	t.Setenv("APP_DEBUG", "yes")

	cfg, err := config.Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "override:6379", cfg.Redis.Addr)
	assert.Equal(t, "env-secret", cfg.Server.SchedulerSecret)
	assert.Equal(t, ":8123", cfg.Server.Address)
	assert.True(t, cfg.Debug)
}

func TestLoadValidation(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing redis addr",
			content: "server:\n  scheduler_secret: x\n",
			wantErr: "redis.addr is required",
		},
		{
			name:    "missing scheduler secret",
			content: "redis:\n  addr: localhost:6379\n",
			wantErr: "scheduler_secret is required",
		},
		{
			name: "postgres enabled without host",
			content: minimalConfig + `
postgres:
  enabled: true
`,
			wantErr: "postgres.host is required",
		},
		{
			name: "elasticsearch enabled without url",
			content: minimalConfig + `
elasticsearch:
  enabled: true
`,
			wantErr: "elasticsearch.url is required",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("REDIS_ADDR", "")
			t.Setenv("SCHEDULER_SECRET", "")

			_, err := config.Load(writeConfig(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
}
