// Package notify delivers aggregated failure alerts to an external
// webhook collaborator.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/jonesrussell/syndicate/internal/logger"
)

// PlatformFailure names one platform that failed during a dispatch.
type PlatformFailure struct {
	Platform string `json:"platform"`
	Error    string `json:"error"`
}

// Alert is the aggregated payload sent after a partial or total dispatch
// failure. One alert covers the whole dispatch, never one per platform.
type Alert struct {
	ContentTitle  string            `json:"contentTitle"`
	ContentURL    string            `json:"contentUrl"`
	ContentSource string            `json:"contentSource"`
	Failures      []PlatformFailure `json:"failures"`
	Successes     []string          `json:"successes"`
}

// Notifier sends failure alerts. A nil or unconfigured notifier is a
// no-op; alert delivery failure never fails the dispatch.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     logger.Logger
}

// NewNotifier creates a webhook notifier. An empty webhookURL disables
// sending.
func NewNotifier(webhookURL string, client *http.Client, log logger.Logger) *Notifier {
	return &Notifier{webhookURL: webhookURL, client: client, logger: log}
}

// SendFailureAlert posts the alert to the webhook. Errors are logged and
// swallowed.
func (n *Notifier) SendFailureAlert(ctx context.Context, alert *Alert) {
	if n == nil || n.webhookURL == "" {
		return
	}

	body, err := json.Marshal(alert)
	if err != nil {
		n.logger.Error("Failed to encode failure alert", logger.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("Failed to create alert request", logger.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Error("Failure alert delivery failed",
			logger.String("content_title", alert.ContentTitle),
			logger.Error(err),
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		n.logger.Error("Failure alert rejected",
			logger.String("content_title", alert.ContentTitle),
			logger.Int("status", resp.StatusCode),
		)
		return
	}

	n.logger.Debug("Failure alert sent",
		logger.String("content_title", alert.ContentTitle),
		logger.Int("failed_platforms", len(alert.Failures)),
	)
}
