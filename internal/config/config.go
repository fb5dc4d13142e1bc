// Package config loads and validates the engine configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultTickDeadline     = 60 * time.Second
	defaultRecencyWindow    = 24 * time.Hour
	defaultCheckInterval    = time.Hour
	defaultRotationInterval = 24 * time.Hour
	defaultRateLimitRPS     = 1
	defaultNotifyTimeout    = 10 * time.Second
)

// Config is the root configuration for the syndication engine.
type Config struct {
	Debug         bool                      `yaml:"debug"`
	Server        ServerConfig              `yaml:"server"`
	Redis         RedisConfig               `yaml:"redis"`
	Postgres      PostgresConfig            `yaml:"postgres"`
	Elasticsearch ElasticsearchConfig       `yaml:"elasticsearch"`
	HTTP          HTTPConfig                `yaml:"http"`
	Service       ServiceConfig             `yaml:"service"`
	Notify        NotifyConfig              `yaml:"notify"`
	Platforms     map[string]PlatformConfig `yaml:"platforms"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	SchedulerSecret string        `yaml:"scheduler_secret"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// RedisConfig configures the key-value backend shared by the credential
// store, delivery records, automation status and log store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PostgresConfig configures the optional delivery history database.
type PostgresConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// ElasticsearchConfig configures the optional delivered-item archive.
type ElasticsearchConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Index    string `yaml:"index"`
}

// HTTPConfig configures the outbound HTTP clients shared by the
// platform adapters.
type HTTPConfig struct {
	// InsecureSkipVerify disables TLS certificate verification, for
	// staging targets with self-signed certificates.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// ServiceConfig holds the engine tuning knobs.
type ServiceConfig struct {
	RecencyWindow     time.Duration `yaml:"recency_window"`     // how far back an item still counts as new
	TickDeadline      time.Duration `yaml:"tick_deadline"`      // overall deadline for one detection+dispatch tick
	CheckInterval     time.Duration `yaml:"check_interval"`     // worker mode: detection+dispatch cadence
	RotationInterval  time.Duration `yaml:"rotation_interval"`  // worker mode: credential sweep cadence
	RateLimitRPS      int           `yaml:"rate_limit_rps"`     // platform posts per second
	MaxRetries        int           `yaml:"max_retries"`        // retries after the initial attempt
	InitialRetryDelay time.Duration `yaml:"initial_retry_delay"`
}

// NotifyConfig configures the failure-alert webhook.
type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// PlatformConfig allows overriding a platform or source endpoint,
// mainly for staging and tests.
type PlatformConfig struct {
	BaseURL string `yaml:"base_url"`
}

// Validate checks the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}
	if c.Server.SchedulerSecret == "" {
		return errors.New("server.scheduler_secret is required")
	}
	if c.Service.CheckInterval <= 0 {
		return fmt.Errorf("service.check_interval must be positive, got %v", c.Service.CheckInterval)
	}
	if c.Postgres.Enabled && c.Postgres.Host == "" {
		return errors.New("postgres.host is required when postgres.enabled is true")
	}
	if c.Elasticsearch.Enabled && c.Elasticsearch.URL == "" {
		return errors.New("elasticsearch.url is required when elasticsearch.enabled is true")
	}
	return nil
}

// setDefaults fills zero-valued fields with defaults.
func setDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8075"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Service.RecencyWindow == 0 {
		cfg.Service.RecencyWindow = defaultRecencyWindow
	}
	if cfg.Service.TickDeadline == 0 {
		cfg.Service.TickDeadline = defaultTickDeadline
	}
	if cfg.Service.CheckInterval == 0 {
		cfg.Service.CheckInterval = defaultCheckInterval
	}
	if cfg.Service.RotationInterval == 0 {
		cfg.Service.RotationInterval = defaultRotationInterval
	}
	if cfg.Service.RateLimitRPS == 0 {
		cfg.Service.RateLimitRPS = defaultRateLimitRPS
	}
	if cfg.Service.MaxRetries == 0 {
		cfg.Service.MaxRetries = 2
	}
	if cfg.Service.InitialRetryDelay == 0 {
		cfg.Service.InitialRetryDelay = time.Second
	}
	if cfg.Notify.Timeout == 0 {
		cfg.Notify.Timeout = defaultNotifyTimeout
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.Elasticsearch.Index == "" {
		cfg.Elasticsearch.Index = "delivered_content"
	}
}

// overrideWithEnvVars overrides configuration with environment variables.
func overrideWithEnvVars(cfg *Config) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	if secret := os.Getenv("SCHEDULER_SECRET"); secret != "" {
		cfg.Server.SchedulerSecret = secret
	}
	if webhook := os.Getenv("NOTIFY_WEBHOOK_URL"); webhook != "" {
		cfg.Notify.WebhookURL = webhook
	}
	if port := os.Getenv("SYNDICATE_PORT"); port != "" {
		cfg.Server.Address = ":" + port
	}
	if esURL := os.Getenv("ES_URL"); esURL != "" {
		cfg.Elasticsearch.URL = esURL
	}
	if appDebug := os.Getenv("APP_DEBUG"); appDebug != "" {
		cfg.Debug = parseBool(appDebug)
	}
}

// Load reads, defaults, env-overrides and validates the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)
	overrideWithEnvVars(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// PlatformBaseURL returns the configured base URL override for a platform
// or source, or "" when none is set.
func (c *Config) PlatformBaseURL(id string) string {
	if c.Platforms == nil {
		return ""
	}
	return c.Platforms[id].BaseURL
}

// parseBool parses common boolean string representations.
// Returns true for "true", "1", "yes" (case-insensitive).
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}
