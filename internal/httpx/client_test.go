package httpx_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/syndicate/internal/httpx"
)

func TestNewClientDefaultsTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, httpx.NewClient(0).Timeout)
	assert.Equal(t, 5*time.Second, httpx.NewClient(5*time.Second).Timeout)
}

func TestNewClientWithTLS(t *testing.T) {
	plain := httpx.NewClientWithTLS(0, false)
	assert.Nil(t, plain.Transport, "verification stays on the default transport")

	skipping := httpx.NewClientWithTLS(0, true)
	transport, ok := skipping.Transport.(*http.Transport)
	require.True(t, ok)
	require.NotNil(t, transport.TLSClientConfig)
	assert.True(t, transport.TLSClientConfig.InsecureSkipVerify)
	assert.Equal(t, 30*time.Second, skipping.Timeout)
}
