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
	"github.com/jonesrussell/syndicate/internal/oauth1"
)

const defaultMicroblogBaseURL = "https://api.microblog.example/1.1"

// MicroblogAdapter posts status updates to a microblog account using
// OAuth 1.0a signed requests. The same adapter serves every microblog
// account; the credential bundle decides which account is posted to.
type MicroblogAdapter struct {
	baseURL string
	client  *http.Client
	logger  logger.Logger
}

// NewMicroblogAdapter creates a microblog adapter. baseURL may be empty
// to use the production endpoint.
func NewMicroblogAdapter(baseURL string, client *http.Client, log logger.Logger) *MicroblogAdapter {
	if baseURL == "" {
		baseURL = defaultMicroblogBaseURL
	}
	return &MicroblogAdapter{baseURL: baseURL, client: client, logger: log}
}

// CheckConfig verifies the four OAuth 1.0a secrets are present.
func (a *MicroblogAdapter) CheckConfig(cred *domain.PlatformCredential) error {
	return requireFields(cred, "api_key", "api_secret", "access_token", "access_token_secret")
}

// Post publishes a status containing the item title and URL.
func (a *MicroblogAdapter) Post(ctx context.Context, cred *domain.PlatformCredential, item *domain.ContentItem) (*PostResult, error) {
	endpoint := a.baseURL + "/statuses/update.json"
	status := fmt.Sprintf("%s %s", item.Title, item.URL)
	params := map[string]string{"status": status}

	form := url.Values{}
	form.Set("status", status)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create microblog request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", oauth1.AuthorizationHeader(http.MethodPost, endpoint, params, oauth1.Credentials{
		ConsumerKey:    cred.Field("api_key"),
		ConsumerSecret: cred.Field("api_secret"),
		Token:          cred.Field("access_token"),
		TokenSecret:    cred.Field("access_token_secret"),
	}))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("microblog post: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var posted struct {
			ID   string `json:"id_str"`
			User struct {
				ScreenName string `json:"screen_name"`
			} `json:"user"`
		}
		if err := json.Unmarshal(body, &posted); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnexpectedResponse, err)
		}
		return &PostResult{
			PostID:  posted.ID,
			PostURL: fmt.Sprintf("%s/%s/status/%s", strings.TrimSuffix(a.baseURL, "/1.1"), posted.User.ScreenName, posted.ID),
		}, nil

	case resp.StatusCode == http.StatusForbidden && isDuplicateStatus(body):
		// The platform refuses identical statuses. Treat as already
		// posted so the executor does not burn retries on it.
		a.logger.Debug("Microblog reported duplicate status, counting as success",
			logger.String("platform_id", cred.PlatformID),
			logger.String("item", item.Key()),
		)
		return &PostResult{PostID: "duplicate"}, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)

	default:
		return nil, fmt.Errorf("microblog post failed: status %d: %s", resp.StatusCode, truncate(body, 200))
	}
}

// isDuplicateStatus checks the error payload for the duplicate-status code.
func isDuplicateStatus(body []byte) bool {
	var payload struct {
		Errors []struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}
	const duplicateStatusCode = 187
	for _, e := range payload.Errors {
		if e.Code == duplicateStatusCode || strings.Contains(strings.ToLower(e.Message), "duplicate") {
			return true
		}
	}
	return false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
