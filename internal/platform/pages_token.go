package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// TokenExchange implements the page-family rotation protocol: an existing
// long-lived user token is exchanged for a renewed one, which is then
// exchanged for a page-scoped token.
type TokenExchange struct {
	baseURL string
	client  *http.Client
}

// NewTokenExchange creates a token-exchange client for the page family.
func NewTokenExchange(baseURL string, client *http.Client) *TokenExchange {
	if baseURL == "" {
		baseURL = defaultPagesBaseURL
	}
	return &TokenExchange{baseURL: baseURL, client: client}
}

// LongLivedToken is the result of a user-level token exchange.
type LongLivedToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	// ExpiresIn is seconds until expiry; 0 means the token never expires.
	ExpiresIn int64 `json:"expires_in"`
}

// ExchangeUserToken trades the current long-lived user token for a
// renewed one using the app credentials.
func (t *TokenExchange) ExchangeUserToken(ctx context.Context, appID, appSecret, currentToken string) (*LongLivedToken, error) {
	q := url.Values{}
	q.Set("grant_type", "fb_exchange_token")
	q.Set("client_id", appID)
	q.Set("client_secret", appSecret)
	q.Set("fb_exchange_token", currentToken)

	endpoint := fmt.Sprintf("%s/oauth/access_token?%s", t.baseURL, q.Encode())

	var token LongLivedToken
	if err := t.getJSON(ctx, endpoint, &token); err != nil {
		return nil, fmt.Errorf("exchange user token: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token in exchange response", ErrUnexpectedResponse)
	}
	return &token, nil
}

// PageToken trades a user token for the page-scoped token the posting
// adapters actually use. Page tokens derived from a long-lived user token
// do not expire on their own.
func (t *TokenExchange) PageToken(ctx context.Context, userToken, pageID string) (string, error) {
	q := url.Values{}
	q.Set("fields", "access_token")
	q.Set("access_token", userToken)

	endpoint := fmt.Sprintf("%s/%s?%s", t.baseURL, pageID, q.Encode())

	var page struct {
		AccessToken string `json:"access_token"`
		ID          string `json:"id"`
	}
	if err := t.getJSON(ctx, endpoint, &page); err != nil {
		return "", fmt.Errorf("fetch page token: %w", err)
	}
	if page.AccessToken == "" {
		return "", fmt.Errorf("%w: empty page token in response", ErrUnexpectedResponse)
	}
	return page.AccessToken, nil
}

func (t *TokenExchange) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
				Code    int    `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("token endpoint error: %s (code %d)", apiErr.Error.Message, apiErr.Error.Code)
		}
		return fmt.Errorf("token endpoint status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s", ErrUnexpectedResponse, err)
	}
	return nil
}
