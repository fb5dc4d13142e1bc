package domain

import "time"

// Credential levels. Level 1 is an upstream source content originates
// from; level 2 is a downstream platform content is syndicated to.
const (
	LevelSource   = 1
	LevelPlatform = 2
)

// TokenNeverExpires is the sentinel expiry for tokens the platform never
// invalidates. Credentials carrying it are skipped by the rotation sweep.
const TokenNeverExpires = "never"

// PlatformCredential is the stored credential bundle for one platform.
// Fields is an opaque map of platform-specific secrets (api_key,
// access_token, page_id, ...). Only the admin-configuration path and the
// rotation sweep mutate it.
type PlatformCredential struct {
	PlatformID       string            `json:"platform_id"`
	Level            int               `json:"level"`
	Fields           map[string]string `json:"fields"`
	Enabled          bool              `json:"enabled"`
	Validated        bool              `json:"validated"`
	TokenExpiresAt   string            `json:"token_expires_at,omitempty"`
	TokenRefreshedAt *time.Time        `json:"token_refreshed_at,omitempty"`
}

// Usable reports whether the credential may be used for automation.
func (c *PlatformCredential) Usable() bool {
	return c.Enabled && c.Validated
}

// Field returns a named secret, or "" when absent.
func (c *PlatformCredential) Field(name string) string {
	if c.Fields == nil {
		return ""
	}
	return c.Fields[name]
}

// ExpiresAt parses TokenExpiresAt. The second return is false when the
// credential has no numeric expiry ("", "never", or unparseable).
func (c *PlatformCredential) ExpiresAt() (time.Time, bool) {
	if c.TokenExpiresAt == "" || c.TokenExpiresAt == TokenNeverExpires {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, c.TokenExpiresAt)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// DaysUntilExpiration returns floor((expiresAt - now) / 24h). The second
// return is false when the credential has no numeric expiry.
func (c *PlatformCredential) DaysUntilExpiration(now time.Time) (int, bool) {
	ts, ok := c.ExpiresAt()
	if !ok {
		return 0, false
	}
	return int(ts.Sub(now).Hours() / 24), true
}
