// Package credstore persists platform credential bundles and the
// automation status record in Redis.
package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/syndicate/internal/domain"
	"github.com/jonesrussell/syndicate/internal/logger"
)

const (
	credKeyPrefix = "creds:platform:"
	credIndexKey  = "creds:platforms"
)

// ErrCredentialNotFound is returned when no credential is stored for a
// platform id.
var ErrCredentialNotFound = errors.New("credential not found")

// Store reads and writes PlatformCredential bundles. Credentials are
// never deleted by automation; rotation replaces the token fields in
// place.
type Store struct {
	client redis.UniversalClient
	logger logger.Logger
}

// NewStore creates a credential store backed by the given Redis client.
func NewStore(client redis.UniversalClient, log logger.Logger) *Store {
	return &Store{client: client, logger: log}
}

func credKey(platformID string) string {
	return credKeyPrefix + platformID
}

// Get returns the credential bundle for a platform.
func (s *Store) Get(ctx context.Context, platformID string) (*domain.PlatformCredential, error) {
	data, err := s.client.Get(ctx, credKey(platformID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrCredentialNotFound, platformID)
	}
	if err != nil {
		return nil, fmt.Errorf("get credential %s: %w", platformID, err)
	}

	var cred domain.PlatformCredential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("decode credential %s: %w", platformID, err)
	}
	return &cred, nil
}

// Put stores a credential bundle and registers it in the platform index.
func (s *Store) Put(ctx context.Context, cred *domain.PlatformCredential) error {
	if cred.PlatformID == "" {
		return errors.New("credential platform_id is required")
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential %s: %w", cred.PlatformID, err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, credKey(cred.PlatformID), data, 0)
	pipe.SAdd(ctx, credIndexKey, cred.PlatformID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store credential %s: %w", cred.PlatformID, err)
	}
	return nil
}

// List returns every stored credential. Platforms whose entry fails to
// load are logged and skipped so one bad record cannot hide the rest.
func (s *Store) List(ctx context.Context) ([]*domain.PlatformCredential, error) {
	ids, err := s.client.SMembers(ctx, credIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list credential ids: %w", err)
	}

	creds := make([]*domain.PlatformCredential, 0, len(ids))
	for _, id := range ids {
		cred, getErr := s.Get(ctx, id)
		if getErr != nil {
			s.logger.Warn("Skipping unreadable credential",
				logger.String("platform_id", id),
				logger.Error(getErr),
			)
			continue
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

// ListByLevel returns stored credentials at the given level.
func (s *Store) ListByLevel(ctx context.Context, level int) ([]*domain.PlatformCredential, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	creds := make([]*domain.PlatformCredential, 0, len(all))
	for _, cred := range all {
		if cred.Level == level {
			creds = append(creds, cred)
		}
	}
	return creds, nil
}

// TokenUpdate describes the in-place token replacement performed by the
// rotation sweep.
type TokenUpdate struct {
	AccessToken string
	ExpiresAt   string
	RefreshedAt time.Time
	// ExtraFields carries additional rotated secrets (e.g. the renewed
	// user-level token the page token was derived from).
	ExtraFields map[string]string
}

// UpdateToken replaces the access token and expiry of a stored credential
// in place and stamps token_refreshed_at. Used only by the rotation sweep.
func (s *Store) UpdateToken(ctx context.Context, platformID string, update TokenUpdate) error {
	cred, err := s.Get(ctx, platformID)
	if err != nil {
		return err
	}

	if cred.Fields == nil {
		cred.Fields = make(map[string]string)
	}
	cred.Fields["access_token"] = update.AccessToken
	for name, value := range update.ExtraFields {
		cred.Fields[name] = value
	}
	cred.TokenExpiresAt = update.ExpiresAt
	refreshedAt := update.RefreshedAt
	cred.TokenRefreshedAt = &refreshedAt

	if err := s.Put(ctx, cred); err != nil {
		return err
	}

	s.logger.Info("Credential token updated",
		logger.String("platform_id", platformID),
		logger.String("token_expires_at", update.ExpiresAt),
	)
	return nil
}
