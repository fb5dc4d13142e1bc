package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonesrussell/syndicate/internal/domain"
	"github.com/jonesrussell/syndicate/internal/logger"
)

const defaultPagesBaseURL = "https://graph.pages.example/v19.0"

// PagesAdapter posts to the page-token platform family (community pages
// and the photo-sharing surface that hangs off them). Mobile routing set
// only. This family uses long-lived page tokens and is the one subject to
// the rotation protocol.
type PagesAdapter struct {
	baseURL string
	photos  bool // post to /photos instead of /feed
	client  *http.Client
	logger  logger.Logger
}

// NewCommunityPageAdapter creates an adapter posting link items to a
// community page feed.
func NewCommunityPageAdapter(baseURL string, client *http.Client, log logger.Logger) *PagesAdapter {
	if baseURL == "" {
		baseURL = defaultPagesBaseURL
	}
	return &PagesAdapter{baseURL: baseURL, client: client, logger: log}
}

// NewPhotoShareAdapter creates an adapter posting the item thumbnail as a
// captioned photo.
func NewPhotoShareAdapter(baseURL string, client *http.Client, log logger.Logger) *PagesAdapter {
	if baseURL == "" {
		baseURL = defaultPagesBaseURL
	}
	return &PagesAdapter{baseURL: baseURL, photos: true, client: client, logger: log}
}

// CheckConfig verifies the page identity and token are configured. The
// photo surface additionally needs a thumbnail to post.
func (a *PagesAdapter) CheckConfig(cred *domain.PlatformCredential) error {
	return requireFields(cred, "access_token", "page_id")
}

// Post publishes the item to the page.
func (a *PagesAdapter) Post(ctx context.Context, cred *domain.PlatformCredential, item *domain.ContentItem) (*PostResult, error) {
	pageID := cred.Field("page_id")

	form := url.Values{}
	form.Set("access_token", cred.Field("access_token"))

	var endpoint string
	if a.photos {
		if item.ThumbnailURL == "" {
			return nil, fmt.Errorf("%w: item has no thumbnail for photo post", ErrMissingConfig)
		}
		endpoint = fmt.Sprintf("%s/%s/photos", a.baseURL, pageID)
		form.Set("url", item.ThumbnailURL)
		form.Set("caption", fmt.Sprintf("%s\n%s", item.Title, item.URL))
	} else {
		endpoint = fmt.Sprintf("%s/%s/feed", a.baseURL, pageID)
		form.Set("message", item.Title)
		form.Set("link", item.URL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create page post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("page post: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		var created struct {
			ID     string `json:"id"`
			PostID string `json:"post_id"`
		}
		if err := json.Unmarshal(body, &created); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnexpectedResponse, err)
		}
		postID := created.PostID
		if postID == "" {
			postID = created.ID
		}
		return &PostResult{
			PostID:  postID,
			PostURL: fmt.Sprintf("%s/%s", a.baseURL, postID),
		}, nil
	}

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)

	const (
		codeInvalidToken   = 190
		codeDuplicatePost  = 506
		codePermissionsErr = 200
	)

	switch apiErr.Error.Code {
	case codeDuplicatePost:
		a.logger.Debug("Page reported duplicate post, counting as success",
			logger.String("platform_id", cred.PlatformID),
			logger.String("item", item.Key()),
		)
		return &PostResult{PostID: "duplicate"}, nil
	case codeInvalidToken, codePermissionsErr:
		return nil, fmt.Errorf("%w: %s (code %d)", ErrUnauthorized, apiErr.Error.Message, apiErr.Error.Code)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	}
	return nil, fmt.Errorf("page post failed: status %d: %s", resp.StatusCode, truncate(body, 200))
}
