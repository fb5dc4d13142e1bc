package rotation_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonesrussell/syndicate/internal/platform"
	"github.com/jonesrussell/syndicate/internal/rotation"
)

type pagesExchangeEnv struct {
	rotator *rotation.PagesRotator
}

// newPagesExchangeEnv stands up a fake token endpoint implementing both
// exchange steps of the page-family protocol.
func newPagesExchangeEnv(t *testing.T) *pagesExchangeEnv {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/access_token":
			_, _ = w.Write([]byte(`{"access_token":"new-user-token","token_type":"bearer","expires_in":5183944}`))
		case "/424242":
			_, _ = w.Write([]byte(`{"access_token":"new-page-token","id":"424242"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	exchange := platform.NewTokenExchange(server.URL, server.Client())
	return &pagesExchangeEnv{rotator: rotation.NewPagesRotator(exchange)}
}
