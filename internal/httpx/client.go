// Package httpx provides the shared HTTP client factory used by platform
// adapters and the notification sink.
package httpx

import (
	"crypto/tls"
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// NewClient returns an HTTP client with the given overall timeout.
// A zero timeout falls back to 30s; external calls must never hang a tick.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// NewClientWithTLS returns an HTTP client that optionally skips TLS
// certificate verification. Only intended for development targets.
func NewClientWithTLS(timeout time.Duration, skipVerify bool) *http.Client {
	client := NewClient(timeout)
	if skipVerify {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // development targets only
		}
	}
	return client
}
