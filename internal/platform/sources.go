package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jonesrussell/syndicate/internal/domain"
	"github.com/jonesrussell/syndicate/internal/logger"
)

// Upstream source ids. Longform feeds are landscape; shorts and reels
// are portrait.
const (
	SourceLongform = "longform"
	SourceShorts   = "shorts"
	SourceReels    = "reels"
)

const defaultFeedBaseURL = "https://feeds.upstream.example/v3"

// FeedSource fetches the most recent item from one upstream feed. All
// three upstream feed types speak the same JSON feed shape and differ
// only in path and orientation.
type FeedSource struct {
	sourceID    string
	orientation domain.Orientation
	baseURL     string
	client      *http.Client
	logger      logger.Logger
}

// NewFeedSource creates a fetcher for one upstream feed type.
func NewFeedSource(sourceID string, orientation domain.Orientation, baseURL string, client *http.Client, log logger.Logger) *FeedSource {
	if baseURL == "" {
		baseURL = defaultFeedBaseURL
	}
	return &FeedSource{
		sourceID:    sourceID,
		orientation: orientation,
		baseURL:     baseURL,
		client:      client,
		logger:      log,
	}
}

type feedItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	PublishedAt  time.Time `json:"published_at"`
}

// FetchLatest returns the newest item the feed reports, or nil when the
// feed is empty. The credential supplies the channel identity and API key.
func (s *FeedSource) FetchLatest(ctx context.Context, cred *domain.PlatformCredential) (*domain.ContentItem, error) {
	if err := requireFields(cred, "api_key", "channel_id"); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("channel", cred.Field("channel_id"))
	q.Set("key", cred.Field("api_key"))
	q.Set("limit", "1")

	endpoint := fmt.Sprintf("%s/%s/latest?%s", s.baseURL, s.sourceID, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s feed: %w", s.sourceID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s feed response: %w", s.sourceID, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%s feed failed: status %d: %s", s.sourceID, resp.StatusCode, truncate(body, 200))
	}

	var feed struct {
		Items []feedItem `json:"items"`
	}
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedResponse, err)
	}
	if len(feed.Items) == 0 {
		s.logger.Debug("Feed returned no items", logger.String("source_id", s.sourceID))
		return nil, nil
	}

	latest := feed.Items[0]
	return &domain.ContentItem{
		SourceID:     s.sourceID,
		ExternalID:   latest.ID,
		Title:        latest.Title,
		URL:          latest.URL,
		ThumbnailURL: latest.ThumbnailURL,
		PublishedAt:  latest.PublishedAt,
		Orientation:  s.orientation,
	}, nil
}
