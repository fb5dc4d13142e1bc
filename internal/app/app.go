// Package app provides lifecycle management for the syndication engine.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/syndicate/internal/api"
	"github.com/jonesrussell/syndicate/internal/archive"
	"github.com/jonesrussell/syndicate/internal/config"
	"github.com/jonesrussell/syndicate/internal/credstore"
	"github.com/jonesrussell/syndicate/internal/delivery"
	"github.com/jonesrussell/syndicate/internal/detect"
	"github.com/jonesrussell/syndicate/internal/dispatch"
	"github.com/jonesrussell/syndicate/internal/engine"
	"github.com/jonesrussell/syndicate/internal/httpx"
	"github.com/jonesrussell/syndicate/internal/logger"
	"github.com/jonesrussell/syndicate/internal/logstore"
	"github.com/jonesrussell/syndicate/internal/metrics"
	"github.com/jonesrussell/syndicate/internal/notify"
	"github.com/jonesrussell/syndicate/internal/platform"
	redisx "github.com/jonesrussell/syndicate/internal/redis"
	"github.com/jonesrussell/syndicate/internal/rotation"
)

// DefaultShutdownTimeout is the timeout for graceful shutdown.
const DefaultShutdownTimeout = 30 * time.Second

// App holds the wired engine and its backends.
type App struct {
	config      *config.Config
	logger      logger.Logger
	redisClient redis.UniversalClient
	db          *sqlx.DB
	creds       *credstore.Store
	logs        *logstore.Store
	history     *delivery.HistoryRepository
	engine      *engine.Engine
	registry    prometheus.Gatherer
	httpServer  *http.Server
	version     string
	configPath  string
}

// Options contains configuration for creating a new App.
type Options struct {
	ConfigPath string
	Version    string
}

// New creates an App with all dependencies initialized.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	appLogger = appLogger.With(
		logger.String("service", "syndicate"),
		logger.String("version", opts.Version),
	)

	redisClient, err := redisx.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		_ = appLogger.Sync()
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)

	creds := credstore.NewStore(redisClient, appLogger)
	deliveries := delivery.NewTracker(redisClient, appLogger)
	logs := logstore.NewStore(redisClient, appLogger)

	var db *sqlx.DB
	var history *delivery.HistoryRepository
	if cfg.Postgres.Enabled {
		db, err = delivery.NewPostgresConnection(delivery.PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DBName,
			SSLMode:  cfg.Postgres.SSLMode,
		})
		if err != nil {
			_ = appLogger.Sync()
			return nil, fmt.Errorf("connect to Postgres: %w", err)
		}
		history = delivery.NewHistoryRepository(db)
	}

	var archiver *archive.Indexer
	if cfg.Elasticsearch.Enabled {
		archiver, err = archive.NewIndexer(archive.Config{
			URL:      cfg.Elasticsearch.URL,
			Username: cfg.Elasticsearch.Username,
			Password: cfg.Elasticsearch.Password,
			Index:    cfg.Elasticsearch.Index,
		}, appLogger)
		if err != nil {
			appLogger.Warn("Archive indexer unavailable, continuing without it", logger.Error(err))
			archiver = nil
		}
	}

	httpClient := httpx.NewClientWithTLS(0, cfg.HTTP.InsecureSkipVerify)
	registry := platform.NewDefaultRegistry(cfg.PlatformBaseURL, httpClient, appLogger)

	notifier := notify.NewNotifier(cfg.Notify.WebhookURL, httpx.NewClient(cfg.Notify.Timeout), appLogger)

	dispatcher := dispatch.NewDispatcher(dispatch.Config{
		MaxRetries:   cfg.Service.MaxRetries,
		InitialDelay: cfg.Service.InitialRetryDelay,
		RateLimitRPS: cfg.Service.RateLimitRPS,
	}, dispatch.Deps{
		Creds:      creds,
		Registry:   registry,
		Deliveries: deliveries,
		History:    history,
		Archiver:   archiver,
		Logs:       logs,
		Notifier:   notifier,
		Metrics:    m,
		Logger:     appLogger,
	})

	detector := detect.NewDetector(creds, registry, deliveries, cfg.Service.RecencyWindow, appLogger)

	exchange := platform.NewTokenExchange(cfg.PlatformBaseURL(platform.PlatformCommunityPage), httpClient)
	pagesRotator := rotation.NewPagesRotator(exchange)
	rotators := map[string]rotation.Rotator{
		platform.PlatformPhotoShare:    pagesRotator,
		platform.PlatformCommunityPage: pagesRotator,
	}
	rotationManager := rotation.NewManager(creds, rotators, logs, m, appLogger)

	eng := engine.New(detector, dispatcher, rotationManager, creds, logs, m, appLogger, cfg.Service.TickDeadline)

	return &App{
		config:      cfg,
		logger:      appLogger,
		redisClient: redisClient,
		db:          db,
		creds:       creds,
		logs:        logs,
		history:     history,
		engine:      eng,
		registry:    promRegistry,
		version:     opts.Version,
		configPath:  opts.ConfigPath,
	}, nil
}

// RunWorker runs the periodic dispatch and rotation tickers until the
// context is cancelled or a signal arrives.
func (a *App) RunWorker(ctx context.Context) error {
	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workerErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting syndication worker",
			logger.String("config_path", a.configPath),
			logger.Duration("check_interval", a.config.Service.CheckInterval),
			logger.Duration("rotation_interval", a.config.Service.RotationInterval),
		)
		workerErr <- a.runTickers(workerCtx)
	}()

	return a.waitForShutdown(workerCtx, cancel, nil, workerErr)
}

// RunServer runs the HTTP API until the context is cancelled or a
// signal arrives.
func (a *App) RunServer(ctx context.Context) error {
	router := api.NewRouter(a.config, api.Deps{
		Engine:  a.engine,
		Logs:    a.logs,
		Status:  a.creds,
		History: a.history,
		Redis:   a.redisClient,
		Metrics: a.registry,
		Logger:  a.logger,
	})
	a.httpServer = router.Server()

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", logger.String("address", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	serverCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	return a.waitForShutdown(serverCtx, cancel, serverErr, nil)
}

// runTickers drives the engine on its configured cadences. The first
// dispatch tick fires immediately so a fresh deploy does not wait a
// full interval.
func (a *App) runTickers(ctx context.Context) error {
	dispatchTicker := time.NewTicker(a.config.Service.CheckInterval)
	defer dispatchTicker.Stop()
	rotationTicker := time.NewTicker(a.config.Service.RotationInterval)
	defer rotationTicker.Stop()

	a.dispatchTick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-dispatchTicker.C:
			a.dispatchTick(ctx)
		case <-rotationTicker.C:
			a.rotationTick(ctx)
		}
	}
}

func (a *App) dispatchTick(ctx context.Context) {
	report, err := a.engine.RunDispatchTick(ctx)
	if err != nil {
		a.logger.Error("Dispatch tick failed", logger.Error(err))
		return
	}
	a.logger.Info("Dispatch tick complete",
		logger.Int("candidates", report.Candidates),
		logger.Int("posts", report.Posts),
		logger.Duration("duration", report.Duration),
	)
}

func (a *App) rotationTick(ctx context.Context) {
	results, err := a.engine.RunRotationTick(ctx)
	if err != nil {
		a.logger.Error("Rotation tick failed", logger.Error(err))
		return
	}
	a.logger.Info("Rotation tick complete", logger.Int("credentials_considered", len(results)))
}

// waitForShutdown blocks until the context is cancelled, a signal
// arrives or an error channel fires, then shuts down gracefully.
func (a *App) waitForShutdown(ctx context.Context, cancel context.CancelFunc, serverErr, workerErr chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var shutdownErr error

	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down gracefully", logger.String("reason", "context cancelled"))
		cancel()
		a.shutdownHTTPServer()
		if workerErr != nil {
			a.waitForWorker(workerErr)
		}

	case sig := <-sigChan:
		a.logger.Info("Shutting down gracefully", logger.String("signal", sig.String()))
		cancel()
		a.shutdownHTTPServer()
		if workerErr != nil {
			a.waitForWorker(workerErr)
		}

	case err := <-serverErr:
		a.logger.Error("Server error", logger.Error(err))
		cancel()
		shutdownErr = err

	case err := <-workerErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("Worker error", logger.Error(err))
			shutdownErr = err
		}
		a.shutdownHTTPServer()
	}

	a.logger.Info("Service stopped")
	return shutdownErr
}

func (a *App) shutdownHTTPServer() {
	if a.httpServer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown error", logger.Error(err))
	} else {
		a.logger.Info("HTTP server stopped")
	}
}

func (a *App) waitForWorker(workerErr chan error) {
	err := <-workerErr
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Worker error", logger.Error(err))
	} else {
		a.logger.Info("Worker stopped")
	}
}

// Close cleans up resources.
func (a *App) Close() error {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Failed to close Postgres connection", logger.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("Failed to close Redis client", logger.Error(err))
		}
	}
	return a.logger.Sync()
}

// Logger returns the application logger.
func (a *App) Logger() logger.Logger {
	return a.logger
}
