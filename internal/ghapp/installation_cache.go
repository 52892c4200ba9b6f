package ghapp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/sasank-xyz/github-for-jira/internal/core"
	"github.com/sasank-xyz/github-for-jira/internal/metrics"
)

// DefaultMaxEntries bounds the number of installations the cache keeps tokens for.
const DefaultMaxEntries = 1000

// FetchFunc exchanges an app token for a fresh installation token.
// The cache calls it at most once at a time per installation.
type FetchFunc func(ctx context.Context, installationID int64) (core.AuthToken, error)

// pendingFetch is an in-flight fetch shared by every caller of the same installation.
// token and err are written once, before done is closed.
type pendingFetch struct {
	done    chan struct{}
	token   core.AuthToken
	err     error
	waiters int
}

// InstallationCache caches installation tokens by installation ID.
//
// An installation is in one of three states: absent, pending (a fetch is running)
// or present (a token is cached). Detecting a miss and registering the pending fetch
// happen under one lock hold, so concurrent callers for the same installation never
// start a second fetch; they wait for the first one and all observe its result.
// Entries only leave the cache by LRU eviction, replacement, or Invalidate.
type InstallationCache struct {
	mu      sync.Mutex
	tokens  *lru.Cache[int64, core.AuthToken]
	pending map[int64]*pendingFetch

	maxEntries int
	store      core.TokenStore
	now        func() time.Time
}

type CacheOption func(*InstallationCache)

// WithMaxEntries sets the capacity of the cache. Values <= 0 keep DefaultMaxEntries.
func WithMaxEntries(n int) CacheOption {
	return func(c *InstallationCache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) CacheOption {
	return func(c *InstallationCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithStore adds a shared second tier that is consulted before running the fetch function.
func WithStore(store core.TokenStore) CacheOption {
	return func(c *InstallationCache) {
		c.store = store
	}
}

func NewInstallationCache(opts ...CacheOption) (*InstallationCache, error) {
	c := &InstallationCache{
		pending:    make(map[int64]*pendingFetch),
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	tokens, err := lru.New[int64, core.AuthToken](c.maxEntries)
	if err != nil {
		return nil, fmt.Errorf("creating installation token cache: %w", err)
	}
	c.tokens = tokens
	return c, nil
}

// Token returns a valid token for the installation, running fetch if there is none.
//
// If ctx is done before the token is available, Token returns ctx.Err(), but the
// fetch keeps running and its result is cached for later callers.
// If the fetch fails, every waiting caller gets the same *FetchError and nothing is cached.
func (c *InstallationCache) Token(ctx context.Context, installationID int64, fetch FetchFunc) (core.AuthToken, error) {
	if fetch == nil {
		return core.AuthToken{}, errors.New("installation token cache: nil fetch function")
	}

	c.mu.Lock()
	if tok, ok := c.tokens.Get(installationID); ok {
		if !tok.Expired(c.now()) {
			c.mu.Unlock()
			metrics.CacheLookups.WithLabelValues(metrics.ResultHit).Inc()
			return tok, nil
		}
		c.tokens.Remove(installationID)
	}

	call, inFlight := c.pending[installationID]
	if !inFlight {
		call = &pendingFetch{done: make(chan struct{})}
		c.pending[installationID] = call
		go c.run(context.WithoutCancel(ctx), installationID, call, fetch)
	}
	call.waiters++
	c.mu.Unlock()

	if inFlight {
		metrics.CacheLookups.WithLabelValues(metrics.ResultCoalesced).Inc()
	} else {
		metrics.CacheLookups.WithLabelValues(metrics.ResultMiss).Inc()
	}

	select {
	case <-call.done:
		return call.token, call.err
	case <-ctx.Done():
		return core.AuthToken{}, ctx.Err()
	}
}

// Invalidate drops the cached token of the installation if it is still token.
// Passing an empty token drops whatever is cached.
func (c *InstallationCache) Invalidate(installationID int64, token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.tokens.Peek(installationID)
	if !ok || (token != "" && cur.Token != token) {
		return false
	}
	return c.tokens.Remove(installationID)
}

// Len returns the number of cached tokens, including expired ones not yet replaced.
func (c *InstallationCache) Len() int {
	return c.tokens.Len()
}

func (c *InstallationCache) run(ctx context.Context, installationID int64, call *pendingFetch, fetch FetchFunc) {
	tok, err := c.load(ctx, installationID, fetch)

	c.mu.Lock()
	if err == nil && c.tokens.Add(installationID, tok) {
		metrics.CacheEvictions.Inc()
	}
	delete(c.pending, installationID)
	call.token, call.err = tok, err
	c.mu.Unlock()

	close(call.done)
}

func (c *InstallationCache) load(ctx context.Context, installationID int64, fetch FetchFunc) (core.AuthToken, error) {
	logger := log.Ctx(ctx).With().Int64("installation_id", installationID).Logger()

	if c.store != nil {
		stored, found, err := c.store.Load(ctx, installationID)
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("loading installation token from store failed, fetching a new one")
		case found && !stored.Expired(c.now()):
			metrics.CacheLookups.WithLabelValues(metrics.ResultStore).Inc()
			logger.Debug().Str("fingerprint", stored.Fingerprint()).Msg("using installation token from store")
			return stored, nil
		}
	}

	tok, err := callFetch(ctx, installationID, fetch)
	if err != nil {
		metrics.TokenErrors.WithLabelValues(metrics.KindInstallation).Inc()
		return core.AuthToken{}, &FetchError{InstallationID: installationID, Err: err}
	}
	metrics.TokensMinted.WithLabelValues(metrics.KindInstallation).Inc()
	logger.Debug().
		Str("fingerprint", tok.Fingerprint()).
		Time("expires_at", tok.ExpiresAt).
		Msg("fetched new installation token")

	if c.store != nil {
		if err := c.store.Save(ctx, installationID, tok); err != nil {
			logger.Warn().Err(err).Msg("saving installation token to store failed")
		}
	}
	return tok, nil
}

// callFetch turns a panicking fetch function into an error, so that waiters are released.
func callFetch(ctx context.Context, installationID int64, fetch FetchFunc) (tok core.AuthToken, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch function panicked: %v", r)
		}
	}()
	return fetch(ctx, installationID)
}
