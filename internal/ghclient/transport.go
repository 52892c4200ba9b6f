package ghclient

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/sasank-xyz/github-for-jira/internal/ghapp"
)

// AppTransport authenticates every request as the GitHub App itself.
// Use it for app management endpoints such as /app/installations.
type AppTransport struct {
	Base   http.RoundTripper
	Holder *ghapp.AppTokenHolder
}

func (t *AppTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.Holder.Token()
	if err != nil {
		return nil, fmt.Errorf("authenticating as github app: %w", err)
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	return base(t.Base).RoundTrip(req)
}

// InstallationTransport authenticates every request as one installation of the app.
// A 401 response drops the token that was used from the cache, so the next request
// exchanges a new one.
type InstallationTransport struct {
	Base           http.RoundTripper
	Cache          *ghapp.InstallationCache
	Fetch          ghapp.FetchFunc
	InstallationID int64
}

func (t *InstallationTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.Cache.Token(req.Context(), t.InstallationID, t.Fetch)
	if err != nil {
		return nil, fmt.Errorf("authenticating as installation %d: %w", t.InstallationID, err)
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+tok.Token)

	resp, err := base(t.Base).RoundTrip(req)
	if err == nil && resp.StatusCode == http.StatusUnauthorized {
		if t.Cache.Invalidate(t.InstallationID, tok.Token) {
			log.Ctx(req.Context()).Warn().
				Int64("installation_id", t.InstallationID).
				Str("fingerprint", tok.Fingerprint()).
				Msg("installation token rejected by github, dropped from cache")
		}
	}
	return resp, err
}

func base(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		return http.DefaultTransport
	}
	return rt
}
