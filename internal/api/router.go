package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/syndicate/internal/config"
	"github.com/jonesrussell/syndicate/internal/credstore"
	"github.com/jonesrussell/syndicate/internal/delivery"
	"github.com/jonesrussell/syndicate/internal/engine"
	"github.com/jonesrussell/syndicate/internal/logger"
	"github.com/jonesrussell/syndicate/internal/logstore"
)

// Deps carries the collaborators the HTTP surface exposes.
type Deps struct {
	Engine  *engine.Engine
	Logs    *logstore.Store
	Status  *credstore.Store
	History *delivery.HistoryRepository // optional
	Redis   redis.UniversalClient
	Metrics prometheus.Gatherer
	Logger  logger.Logger
}

// Router wires the trigger and read-only endpoints onto a gin engine.
type Router struct {
	cfg  *config.Config
	deps Deps
}

func NewRouter(cfg *config.Config, deps Deps) *Router {
	return &Router{cfg: cfg, deps: deps}
}

// Handler builds the gin engine with all routes registered.
func (r *Router) Handler() http.Handler {
	if !r.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(r.cfg.Server.CORSOrigins))

	router.GET("/health", r.handleHealth)
	if r.deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.deps.Metrics, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	{
		run := v1.Group("/run", schedulerAuth(r.cfg.Server.SchedulerSecret))
		{
			run.POST("/dispatch", r.handleRunDispatch)
			run.POST("/rotation", r.handleRunRotation)
		}

		v1.GET("/logs/recent", r.handleLogsRecent)
		v1.GET("/logs/summary", r.handleLogsSummary)
		v1.GET("/status", r.handleStatus)
		v1.GET("/deliveries/recent", r.handleDeliveriesRecent)
	}

	return router
}

// Server builds an http.Server around the router using the configured
// address and timeouts.
func (r *Router) Server() *http.Server {
	return &http.Server{
		Addr:         r.cfg.Server.Address,
		Handler:      r.Handler(),
		ReadTimeout:  r.cfg.Server.ReadTimeout,
		WriteTimeout: r.cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
}
