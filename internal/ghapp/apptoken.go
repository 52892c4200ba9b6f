package ghapp

import (
	"crypto/rsa"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/sasank-xyz/github-for-jira/internal/core"
	"github.com/sasank-xyz/github-for-jira/internal/metrics"
)

const (
	// DefaultAppTokenLifetime is the longest lifetime GitHub accepts for an app JWT.
	DefaultAppTokenLifetime = 10 * time.Minute

	// issuedAtDrift backdates "iat" so that a slightly fast local clock is not rejected.
	issuedAtDrift = 60 * time.Second
)

// AppTokenHolder signs and caches the JWT that authenticates as the GitHub App itself.
// Create one per app identity and share it; it is safe for concurrent use.
type AppTokenHolder struct {
	appID    int64
	key      *rsa.PrivateKey
	lifetime time.Duration
	now      func() time.Time

	current atomic.Pointer[core.AuthToken]
}

type AppTokenOption func(*AppTokenHolder)

// WithAppClock overrides the clock used for signing and expiry checks.
func WithAppClock(now func() time.Time) AppTokenOption {
	return func(h *AppTokenHolder) {
		if now != nil {
			h.now = now
		}
	}
}

// WithAppTokenLifetime overrides DefaultAppTokenLifetime.
func WithAppTokenLifetime(d time.Duration) AppTokenOption {
	return func(h *AppTokenHolder) {
		if d > 0 {
			h.lifetime = d
		}
	}
}

// NewAppTokenHolder parses the PEM encoded RSA private key of the app.
// A key that cannot be parsed yields an error matching ErrSigning.
func NewAppTokenHolder(appID int64, privateKeyPEM []byte, opts ...AppTokenOption) (*AppTokenHolder, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing github app private key: %w", ErrSigning, err)
	}
	h := &AppTokenHolder{
		appID:    appID,
		key:      key,
		lifetime: DefaultAppTokenLifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// AppID returns the id of the app this holder signs for.
func (h *AppTokenHolder) AppID() int64 {
	return h.appID
}

// Token returns the cached app token, or signs a new one if the cached token
// is expired (see core.ExpiryMargin).
// Concurrent callers may both sign; the last one stored wins and both tokens are valid.
func (h *AppTokenHolder) Token() (core.AuthToken, error) {
	now := h.now()
	if cur := h.current.Load(); cur != nil && !cur.Expired(now) {
		return *cur, nil
	}

	tok, err := h.sign(now)
	if err != nil {
		metrics.TokenErrors.WithLabelValues(metrics.KindApp).Inc()
		return core.AuthToken{}, err
	}
	h.current.Store(&tok)
	metrics.TokensMinted.WithLabelValues(metrics.KindApp).Inc()

	log.Debug().
		Int64("app_id", h.appID).
		Str("fingerprint", tok.Fingerprint()).
		Time("expires_at", tok.ExpiresAt).
		Msg("signed new github app token")
	return tok, nil
}

func (h *AppTokenHolder) sign(now time.Time) (core.AuthToken, error) {
	expiresAt := now.Add(h.lifetime)
	claims := jwt.MapClaims{
		"iat": now.Add(-issuedAtDrift).Unix(),
		"exp": expiresAt.Unix(),
		"iss": h.appID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(h.key)
	if err != nil {
		return core.AuthToken{}, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	// exp is truncated to seconds in the JWT, so is the token's expiry
	return core.NewAuthToken(signed, time.Unix(expiresAt.Unix(), 0)), nil
}
