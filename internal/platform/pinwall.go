package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jonesrussell/syndicate/internal/domain"
	"github.com/jonesrussell/syndicate/internal/logger"
)

const defaultPinwallBaseURL = "https://api.pinwall.example/v5"

// PinwallAdapter creates image pins on the pin-board platform. Mobile
// routing set only.
type PinwallAdapter struct {
	baseURL string
	client  *http.Client
	logger  logger.Logger
}

// NewPinwallAdapter creates a pin-board adapter.
func NewPinwallAdapter(baseURL string, client *http.Client, log logger.Logger) *PinwallAdapter {
	if baseURL == "" {
		baseURL = defaultPinwallBaseURL
	}
	return &PinwallAdapter{baseURL: baseURL, client: client, logger: log}
}

// CheckConfig verifies token and target board are configured.
func (a *PinwallAdapter) CheckConfig(cred *domain.PlatformCredential) error {
	return requireFields(cred, "access_token", "board_id")
}

// Post creates a pin from the item thumbnail linking back to the item.
func (a *PinwallAdapter) Post(ctx context.Context, cred *domain.PlatformCredential, item *domain.ContentItem) (*PostResult, error) {
	if item.ThumbnailURL == "" {
		return nil, fmt.Errorf("%w: item has no thumbnail for pin", ErrMissingConfig)
	}

	payload := map[string]any{
		"board_id":    cred.Field("board_id"),
		"title":       item.Title,
		"link":        item.URL,
		"description": item.Title,
		"media_source": map[string]any{
			"source_type": "image_url",
			"url":         item.ThumbnailURL,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode pin payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/pins", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create pin request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.Field("access_token"))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pinwall post: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var created struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(respBody, &created); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnexpectedResponse, err)
		}
		return &PostResult{
			PostID:  created.ID,
			PostURL: fmt.Sprintf("%s/pin/%s", a.baseURL, created.ID),
		}, nil

	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)

	default:
		return nil, fmt.Errorf("pinwall post failed: status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}
}
