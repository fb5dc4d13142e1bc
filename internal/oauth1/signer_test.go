package oauth1_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/syndicate/internal/oauth1"
)

func baseParams() map[string]string {
	return map[string]string{
		"status":                 "Morning update: new clip is live https://videos.example/watch/abc123",
		"oauth_consumer_key":     "consumer-key",
		"oauth_nonce":            "deadbeefdeadbeefdeadbeefdeadbeef",
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        "1756684800",
		"oauth_token":            "access-token",
		"oauth_version":          "1.0",
	}
}

func TestSignKnownVector(t *testing.T) {
	got := oauth1.Sign(
		"POST",
		"https://api.microblog.example/1.1/statuses/update.json",
		baseParams(),
		"consumer-secret",
		"token-secret",
	)

	assert.Equal(t, "MKRwxugxEbg+EyUy/vGYe8rMkL0=", got)
}

func TestSignIsDeterministic(t *testing.T) {
	url := "https://api.microblog.example/1.1/statuses/update.json"

	first := oauth1.Sign("POST", url, baseParams(), "consumer-secret", "token-secret")
	second := oauth1.Sign("POST", url, baseParams(), "consumer-secret", "token-secret")

	assert.Equal(t, first, second)
}

func TestSignChangesWithInput(t *testing.T) {
	url := "https://api.microblog.example/1.1/statuses/update.json"
	reference := oauth1.Sign("POST", url, baseParams(), "consumer-secret", "token-secret")

	testCases := []struct {
		name   string
		mutate func(params map[string]string) (method, rawurl, consumerSecret, tokenSecret string)
	}{
		{
			name: "different status text",
			mutate: func(params map[string]string) (string, string, string, string) {
				params["status"] = "a different post"
				return "POST", url, "consumer-secret", "token-secret"
			},
		},
		{
			name: "different nonce",
			mutate: func(params map[string]string) (string, string, string, string) {
				params["oauth_nonce"] = "cafebabecafebabecafebabecafebabe"
				return "POST", url, "consumer-secret", "token-secret"
			},
		},
		{
			name: "different method",
			mutate: func(params map[string]string) (string, string, string, string) {
				return "GET", url, "consumer-secret", "token-secret"
			},
		},
		{
			name: "different token secret",
			mutate: func(params map[string]string) (string, string, string, string) {
				return "POST", url, "consumer-secret", "other-secret"
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			params := baseParams()
			method, rawurl, consumerSecret, tokenSecret := tc.mutate(params)

			got := oauth1.Sign(method, rawurl, params, consumerSecret, tokenSecret)

			assert.NotEqual(t, reference, got)
		})
	}
}

func TestAuthorizationHeaderShape(t *testing.T) {
	creds := oauth1.Credentials{
		ConsumerKey:    "consumer-key",
		ConsumerSecret: "consumer-secret",
		Token:          "access-token",
		TokenSecret:    "token-secret",
	}

	header := oauth1.AuthorizationHeader(
		"POST",
		"https://api.microblog.example/1.1/statuses/update.json",
		map[string]string{"status": "hello"},
		creds,
	)

	require.True(t, strings.HasPrefix(header, "OAuth "))

	for _, key := range []string{
		"oauth_consumer_key", "oauth_nonce", "oauth_signature",
		"oauth_signature_method", "oauth_timestamp", "oauth_token", "oauth_version",
	} {
		assert.Contains(t, header, key+`="`, "header must carry %s", key)
	}

	// Request params are covered by the signature but never placed in
	// the header itself.
	assert.NotContains(t, header, "status=")
	assert.Contains(t, header, `oauth_signature_method="HMAC-SHA1"`)
	assert.Contains(t, header, `oauth_version="1.0"`)
}

func TestAuthorizationHeaderFreshNoncePerCall(t *testing.T) {
	creds := oauth1.Credentials{
		ConsumerKey:    "consumer-key",
		ConsumerSecret: "consumer-secret",
		Token:          "access-token",
		TokenSecret:    "token-secret",
	}
	url := "https://api.microblog.example/1.1/statuses/update.json"
	params := map[string]string{"status": "hello"}

	first := oauth1.AuthorizationHeader("POST", url, params, creds)
	second := oauth1.AuthorizationHeader("POST", url, params, creds)

	assert.NotEqual(t, first, second, "nonce must differ between calls")
}
