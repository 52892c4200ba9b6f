package core

import "time"

// ExpiryMargin is how long before its literal expiry a token is already treated as expired.
// A token handed out must survive the request it is attached to.
const ExpiryMargin = 1 * time.Minute

// AuthToken is a bearer credential together with the instant it stops being accepted.
// It is a value type and never changes after creation; refreshing a token replaces it.
type AuthToken struct {
	// Token is the opaque bearer string (an app JWT or an installation access token).
	// Callers must not assume any particular format.
	Token string `json:"token"`

	// ExpiresAt is the absolute instant GitHub stops accepting Token.
	ExpiresAt time.Time `json:"expires_at"`
}

// NewAuthToken creates a token expiring at expiresAt.
func NewAuthToken(token string, expiresAt time.Time) AuthToken {
	return AuthToken{Token: token, ExpiresAt: expiresAt}
}

// Expired reports whether now+ExpiryMargin has reached ExpiresAt.
// The zero token is always expired.
func (t AuthToken) Expired(now time.Time) bool {
	return !now.Add(ExpiryMargin).Before(t.ExpiresAt)
}

// IsZero reports whether t carries no token at all.
func (t AuthToken) IsZero() bool {
	return t.Token == "" && t.ExpiresAt.IsZero()
}

// TTL returns how long the token may still be used, honoring ExpiryMargin.
// It never returns a negative duration.
func (t AuthToken) TTL(now time.Time) time.Duration {
	d := t.ExpiresAt.Sub(now) - ExpiryMargin
	if d < 0 {
		return 0
	}
	return d
}
