package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/syndicate/internal/logger"
	redisx "github.com/jonesrussell/syndicate/internal/redis"
)

const (
	defaultLogDays      = 7
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	readEndpointTimeout = 10 * time.Second
)

func (r *Router) handleHealth(c *gin.Context) {
	if ok, err := redisx.CheckConnection(c.Request.Context(), r.deps.Redis); !ok {
		r.deps.Logger.Warn("Health check failed", logger.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "redis unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (r *Router) handleRunDispatch(c *gin.Context) {
	report, err := r.deps.Engine.RunDispatchTick(c.Request.Context())
	if err != nil {
		r.deps.Logger.Error("Dispatch tick failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dispatch tick failed"})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (r *Router) handleRunRotation(c *gin.Context) {
	results, err := r.deps.Engine.RunRotationTick(c.Request.Context())
	if err != nil {
		r.deps.Logger.Error("Rotation tick failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rotation tick failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (r *Router) handleLogsRecent(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readEndpointTimeout)
	defer cancel()

	days := queryInt(c, "days", defaultLogDays)
	logs, err := r.deps.Logs.Recent(ctx, days)
	if err != nil {
		r.deps.Logger.Error("Failed to load recent logs", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"days": logs})
}

func (r *Router) handleLogsSummary(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readEndpointTimeout)
	defer cancel()

	days := queryInt(c, "days", defaultLogDays)
	summary, err := r.deps.Logs.Summarize(ctx, days)
	if err != nil {
		r.deps.Logger.Error("Failed to summarize logs", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to summarize logs"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (r *Router) handleStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readEndpointTimeout)
	defer cancel()

	status, err := r.deps.Status.GetStatus(ctx)
	if err != nil {
		r.deps.Logger.Error("Failed to load automation status", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load status"})
		return
	}

	c.JSON(http.StatusOK, status)
}

func (r *Router) handleDeliveriesRecent(c *gin.Context) {
	if r.deps.History == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "delivery history not enabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readEndpointTimeout)
	defer cancel()

	limit := queryInt(c, "limit", defaultHistoryLimit)
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := r.deps.History.Recent(ctx, limit)
	if err != nil {
		r.deps.Logger.Error("Failed to load delivery history", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load deliveries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deliveries": entries})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
