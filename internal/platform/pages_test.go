package platform_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/syndicate/internal/domain"
	"github.com/jonesrussell/syndicate/internal/logger"
	"github.com/jonesrussell/syndicate/internal/platform"
)

func pagesCred(platformID string) *domain.PlatformCredential {
	return &domain.PlatformCredential{
		PlatformID: platformID,
		Level:      domain.LevelPlatform,
		Fields: map[string]string{
			"access_token": "page-token",
			"page_id":      "424242",
		},
		Enabled:   true,
		Validated: true,
	}
}

func TestCommunityPagePostsToFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/424242/feed", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "page-token", r.PostForm.Get("access_token"))
		assert.Equal(t, "A new upload", r.PostForm.Get("message"))
		assert.Equal(t, "https://videos.example/watch/vid-1", r.PostForm.Get("link"))
		_, _ = w.Write([]byte(`{"id":"424242_777"}`))
	}))
	defer server.Close()

	adapter := platform.NewCommunityPageAdapter(server.URL, server.Client(), logger.NewNopLogger())

	result, err := adapter.Post(context.Background(), pagesCred(platform.PlatformCommunityPage), testItem())
	require.NoError(t, err)
	assert.Equal(t, "424242_777", result.PostID)
}

func TestPhotoSharePostsThumbnail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/424242/photos", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "https://videos.example/thumb/vid-1.jpg", r.PostForm.Get("url"))
		assert.Contains(t, r.PostForm.Get("caption"), "A new upload")
		_, _ = w.Write([]byte(`{"id":"999","post_id":"424242_999"}`))
	}))
	defer server.Close()

	adapter := platform.NewPhotoShareAdapter(server.URL, server.Client(), logger.NewNopLogger())

	result, err := adapter.Post(context.Background(), pagesCred(platform.PlatformPhotoShare), testItem())
	require.NoError(t, err)
	assert.Equal(t, "424242_999", result.PostID)
}

func TestPhotoShareRequiresThumbnail(t *testing.T) {
	adapter := platform.NewPhotoShareAdapter("http://unused.example", http.DefaultClient, logger.NewNopLogger())

	item := testItem()
	item.ThumbnailURL = ""

	_, err := adapter.Post(context.Background(), pagesCred(platform.PlatformPhotoShare), item)
	require.Error(t, err)
	assert.ErrorIs(t, err, platform.ErrMissingConfig)
}

func TestPagesDuplicateCountsAsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Duplicate status message","code":506}}`))
	}))
	defer server.Close()

	adapter := platform.NewCommunityPageAdapter(server.URL, server.Client(), logger.NewNopLogger())

	result, err := adapter.Post(context.Background(), pagesCred(platform.PlatformCommunityPage), testItem())
	require.NoError(t, err)
	assert.Equal(t, "duplicate", result.PostID)
}

func TestPagesInvalidTokenIsUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Error validating access token","code":190}}`))
	}))
	defer server.Close()

	adapter := platform.NewCommunityPageAdapter(server.URL, server.Client(), logger.NewNopLogger())

	_, err := adapter.Post(context.Background(), pagesCred(platform.PlatformCommunityPage), testItem())
	require.Error(t, err)
	assert.ErrorIs(t, err, platform.ErrUnauthorized)
}

func TestTokenExchangeProtocol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/access_token":
			assert.Equal(t, "fb_exchange_token", r.URL.Query().Get("grant_type"))
			assert.Equal(t, "app-1", r.URL.Query().Get("client_id"))
			assert.Equal(t, "old-user-token", r.URL.Query().Get("fb_exchange_token"))
			_, _ = w.Write([]byte(`{"access_token":"new-user-token","token_type":"bearer","expires_in":5183944}`))
		case "/424242":
			assert.Equal(t, "new-user-token", r.URL.Query().Get("access_token"))
			_, _ = w.Write([]byte(`{"access_token":"new-page-token","id":"424242"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	exchange := platform.NewTokenExchange(server.URL, server.Client())
	ctx := context.Background()

	renewed, err := exchange.ExchangeUserToken(ctx, "app-1", "app-secret", "old-user-token")
	require.NoError(t, err)
	assert.Equal(t, "new-user-token", renewed.AccessToken)
	assert.EqualValues(t, 5183944, renewed.ExpiresIn)

	pageToken, err := exchange.PageToken(ctx, renewed.AccessToken, "424242")
	require.NoError(t, err)
	assert.Equal(t, "new-page-token", pageToken)
}

func TestTokenExchangeSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","code":190}}`))
	}))
	defer server.Close()

	exchange := platform.NewTokenExchange(server.URL, server.Client())

	_, err := exchange.ExchangeUserToken(context.Background(), "app-1", "app-secret", "expired")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid OAuth access token")
}
