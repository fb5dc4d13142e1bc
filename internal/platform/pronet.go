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

const defaultProNetBaseURL = "https://api.pronet.example/v2"

// ProNetAdapter shares items to the professional network using a bearer
// access token. Desktop routing set only.
type ProNetAdapter struct {
	baseURL string
	client  *http.Client
	logger  logger.Logger
}

// NewProNetAdapter creates a professional-network adapter.
func NewProNetAdapter(baseURL string, client *http.Client, log logger.Logger) *ProNetAdapter {
	if baseURL == "" {
		baseURL = defaultProNetBaseURL
	}
	return &ProNetAdapter{baseURL: baseURL, client: client, logger: log}
}

// CheckConfig verifies token and author identity are configured.
func (a *ProNetAdapter) CheckConfig(cred *domain.PlatformCredential) error {
	return requireFields(cred, "access_token", "author_urn")
}

// Post publishes a link share.
func (a *ProNetAdapter) Post(ctx context.Context, cred *domain.PlatformCredential, item *domain.ContentItem) (*PostResult, error) {
	payload := map[string]any{
		"author":     cred.Field("author_urn"),
		"visibility": "PUBLIC",
		"commentary": item.Title,
		"content": map[string]any{
			"article": map[string]any{
				"source":    item.URL,
				"title":     item.Title,
				"thumbnail": item.ThumbnailURL,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode share payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/posts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create share request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.Field("access_token"))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pronet post: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		// The post id is returned in a response header; fall back to the
		// body for older API versions.
		postID := resp.Header.Get("x-restli-id")
		if postID == "" {
			var created struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(respBody, &created); err != nil {
				return nil, fmt.Errorf("%w: %s", ErrUnexpectedResponse, err)
			}
			postID = created.ID
		}
		return &PostResult{
			PostID:  postID,
			PostURL: fmt.Sprintf("%s/feed/update/%s", a.baseURL, postID),
		}, nil

	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)

	default:
		return nil, fmt.Errorf("pronet post failed: status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}
}
