// Package platform contains the adapters that translate a generic
// content item into each upstream or downstream platform's wire format.
package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonesrussell/syndicate/internal/domain"
)

// Error types shared by all adapters.
var (
	// ErrMissingConfig means a required credential field is absent. The
	// dispatcher records the platform as skipped without a network call.
	ErrMissingConfig = errors.New("missing required credential field")

	// ErrUnauthorized means the platform rejected the credential.
	// Never retried.
	ErrUnauthorized = errors.New("platform rejected credentials")

	// ErrUnexpectedResponse means the platform answered with something
	// the adapter could not parse.
	ErrUnexpectedResponse = errors.New("unexpected platform response")
)

// PostResult is the platform-side identity of a published post.
type PostResult struct {
	PostID  string
	PostURL string
}

// Poster publishes one content item to a downstream platform.
// Implementations must convert a "content already posted" platform error
// into a successful PostResult rather than surfacing it, so retries are
// not wasted on duplicates.
type Poster interface {
	// CheckConfig verifies the credential carries every field the
	// adapter needs. Called before any network I/O; a non-nil error
	// wraps ErrMissingConfig.
	CheckConfig(cred *domain.PlatformCredential) error

	// Post publishes the item and returns its platform identity.
	Post(ctx context.Context, cred *domain.PlatformCredential, item *domain.ContentItem) (*PostResult, error)
}

// Fetcher retrieves the most recent content item from an upstream source.
type Fetcher interface {
	// FetchLatest returns the newest item the source reports, or nil
	// when the source is empty.
	FetchLatest(ctx context.Context, cred *domain.PlatformCredential) (*domain.ContentItem, error)
}

// requireFields returns ErrMissingConfig naming the first absent field.
func requireFields(cred *domain.PlatformCredential, names ...string) error {
	for _, name := range names {
		if cred.Field(name) == "" {
			return fmt.Errorf("%w: %s", ErrMissingConfig, name)
		}
	}
	return nil
}
