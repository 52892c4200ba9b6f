package ghclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v80/github"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sasank-xyz/github-for-jira/internal/buildinfo"
	"github.com/sasank-xyz/github-for-jira/internal/core"
	"github.com/sasank-xyz/github-for-jira/internal/ghapp"
)

const (
	defaultGraphQLURL = "https://api.github.com/graphql"
	defaultTimeout    = 30 * time.Second
	prewarmLimit      = 8
)

// Config describes the GitHub App the client authenticates as.
type Config struct {
	AppID      int64
	PrivateKey []byte

	// ServerURL is the GitHub Enterprise server URL. Empty means github.com.
	ServerURL string
	// GraphQLURL overrides the GraphQL endpoint derived from ServerURL.
	GraphQLURL string

	// MaxCachedInstallations bounds the installation token cache.
	MaxCachedInstallations int
	// Store is an optional shared second tier for installation tokens.
	Store core.TokenStore

	// Timeout applies to every outbound request, including token exchanges.
	Timeout time.Duration
	// Transport is the base transport. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// Client attaches app or installation credentials to outbound GitHub calls.
// Create one per app and share it; it is safe for concurrent use.
type Client struct {
	holder *ghapp.AppTokenHolder
	cache  *ghapp.InstallationCache

	serverURL  string
	graphqlURL string
	timeout    time.Duration
	transport  http.RoundTripper

	app *github.Client
}

// New builds the app token holder and installation cache for cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	holder, err := ghapp.NewAppTokenHolder(cfg.AppID, cfg.PrivateKey, o.appTokenOpts...)
	if err != nil {
		return nil, err
	}

	cacheOpts := append([]ghapp.CacheOption{ghapp.WithMaxEntries(cfg.MaxCachedInstallations)}, o.cacheOpts...)
	if cfg.Store != nil {
		cacheOpts = append(cacheOpts, ghapp.WithStore(cfg.Store))
	}
	cache, err := ghapp.NewInstallationCache(cacheOpts...)
	if err != nil {
		return nil, err
	}

	c := &Client{
		holder:     holder,
		cache:      cache,
		serverURL:  strings.TrimSuffix(cfg.ServerURL, "/"),
		graphqlURL: cfg.GraphQLURL,
		timeout:    cfg.Timeout,
		transport:  cfg.Transport,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.graphqlURL == "" {
		c.graphqlURL = defaultGraphQLURL
		if c.serverURL != "" {
			c.graphqlURL = c.serverURL + "/api/graphql"
		}
	}

	c.app, err = c.newGitHubClient(&AppTransport{Base: c.transport, Holder: holder})
	if err != nil {
		return nil, err
	}
	return c, nil
}

type options struct {
	appTokenOpts []ghapp.AppTokenOption
	cacheOpts    []ghapp.CacheOption
}

type Option func(*options)

// WithClock sets the clock of both the app token holder and the installation cache.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.appTokenOpts = append(o.appTokenOpts, ghapp.WithAppClock(now))
		o.cacheOpts = append(o.cacheOpts, ghapp.WithClock(now))
	}
}

// App returns a REST client authenticated as the GitHub App.
func (c *Client) App() *github.Client {
	return c.app
}

// Installation returns a REST client authenticated as the installation.
// Tokens are taken from the shared installation cache on every request.
func (c *Client) Installation(installationID int64) (*github.Client, error) {
	return c.newGitHubClient(c.installationTransport(installationID))
}

// AppToken returns the current app token.
func (c *Client) AppToken() (core.AuthToken, error) {
	return c.holder.Token()
}

// InstallationToken returns a valid token of the installation.
func (c *Client) InstallationToken(ctx context.Context, installationID int64) (core.AuthToken, error) {
	return c.cache.Token(ctx, installationID, c.exchangeInstallationToken)
}

// Prewarm fetches tokens for several installations concurrently.
// It fails with the first error encountered.
func (c *Client) Prewarm(ctx context.Context, installationIDs ...int64) (map[int64]core.AuthToken, error) {
	var mu sync.Mutex
	tokens := make(map[int64]core.AuthToken, len(installationIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prewarmLimit)
	for _, id := range installationIDs {
		g.Go(func() error {
			tok, err := c.InstallationToken(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			tokens[id] = tok
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tokens, nil
}

// ListInstallations lists every installation of the app, following pagination links.
func (c *Client) ListInstallations(ctx context.Context) ([]*github.Installation, error) {
	var all []*github.Installation
	opts := &github.ListOptions{PerPage: 100}
	for {
		page, resp, err := c.app.Apps.ListInstallations(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("listing installations (page %d): %w", opts.Page, err)
		}
		all = append(all, page...)
		if !HasNextPage(resp.Header.Values("Link")) || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// exchangeInstallationToken is the fetch function of the installation cache:
// it authenticates as the app and asks GitHub for a new installation token.
func (c *Client) exchangeInstallationToken(ctx context.Context, installationID int64) (core.AuthToken, error) {
	log.Ctx(ctx).Debug().Int64("installation_id", installationID).Msg("exchanging app token for installation token")

	token, _, err := c.app.Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		return core.AuthToken{}, fmt.Errorf("creating installation token for installation ID %d: %w", installationID, err)
	}
	if token.GetToken() == "" {
		return core.AuthToken{}, fmt.Errorf("github returned an empty installation token for installation ID %d", installationID)
	}
	return core.NewAuthToken(token.GetToken(), token.GetExpiresAt().Time), nil
}

func (c *Client) installationTransport(installationID int64) *InstallationTransport {
	return &InstallationTransport{
		Base:           c.transport,
		Cache:          c.cache,
		Fetch:          c.exchangeInstallationToken,
		InstallationID: installationID,
	}
}

func (c *Client) newGitHubClient(rt http.RoundTripper) (*github.Client, error) {
	client := github.NewClient(&http.Client{Transport: rt, Timeout: c.timeout})

	if c.serverURL != "" {
		// we don't interact with uploads, so the upload URL is the server URL as well
		var err error
		client, err = client.WithEnterpriseURLs(c.serverURL, c.serverURL)
		if err != nil {
			return nil, fmt.Errorf("creating github enterprise client: %w", err)
		}
	}
	client.UserAgent = buildinfo.UserAgent()
	return client, nil
}
