package rotation

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/syndicate/internal/credstore"
	"github.com/jonesrussell/syndicate/internal/domain"
	"github.com/jonesrussell/syndicate/internal/platform"
)

// PagesRotator renews page-family credentials with the long-lived-token
// protocol: the current long-lived user token is exchanged for a renewed
// one, which is then exchanged for the page-scoped token the posting
// adapters use.
type PagesRotator struct {
	exchange *platform.TokenExchange
	now      func() time.Time
}

// NewPagesRotator creates a rotator for the page platform family.
func NewPagesRotator(exchange *platform.TokenExchange) *PagesRotator {
	return &PagesRotator{exchange: exchange, now: time.Now}
}

// Rotate runs the two token exchanges. A nil update with nil error means
// the rotation prerequisites are not configured, which is an expected
// gap rather than a failure.
func (r *PagesRotator) Rotate(ctx context.Context, cred *domain.PlatformCredential) (*credstore.TokenUpdate, error) {
	appID := cred.Field("app_id")
	appSecret := cred.Field("app_secret")
	userToken := cred.Field("user_token")
	pageID := cred.Field("page_id")

	if appID == "" || appSecret == "" || userToken == "" || pageID == "" {
		return nil, nil
	}

	renewed, err := r.exchange.ExchangeUserToken(ctx, appID, appSecret, userToken)
	if err != nil {
		return nil, fmt.Errorf("rotate %s: %w", cred.PlatformID, err)
	}

	pageToken, err := r.exchange.PageToken(ctx, renewed.AccessToken, pageID)
	if err != nil {
		return nil, fmt.Errorf("rotate %s: %w", cred.PlatformID, err)
	}

	now := r.now().UTC()
	expiresAt := domain.TokenNeverExpires
	if renewed.ExpiresIn > 0 {
		expiresAt = now.Add(time.Duration(renewed.ExpiresIn) * time.Second).Format(time.RFC3339)
	}

	return &credstore.TokenUpdate{
		AccessToken: pageToken,
		ExpiresAt:   expiresAt,
		RefreshedAt: now,
		ExtraFields: map[string]string{"user_token": renewed.AccessToken},
	}, nil
}
