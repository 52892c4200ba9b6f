package ghclient

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sasank-xyz/github-for-jira/internal/ghapp"
)

const testAppID = 4711

// fakeGitHub is a minimal GitHub Enterprise API for the endpoints the client uses.
type fakeGitHub struct {
	key *rsa.PrivateKey
	mux *http.ServeMux
	srv *httptest.Server

	exchanges atomic.Int32

	mu           sync.Mutex
	failExchange bool
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &fakeGitHub{key: key, mux: http.NewServeMux()}
	f.mux.HandleFunc("POST /api/v3/app/installations/{id}/access_tokens", f.handleAccessToken)
	f.srv = httptest.NewServer(f.mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGitHub) privateKeyPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(f.key),
	})
}

func (f *fakeGitHub) client(t *testing.T) *Client {
	t.Helper()
	c, err := New(Config{
		AppID:      testAppID,
		PrivateKey: f.privateKeyPEM(),
		ServerURL:  f.srv.URL,
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)
	return c
}

// verifyAppJWT checks that the request carries a valid app JWT signed with the app key.
func (f *fakeGitHub) verifyAppJWT(r *http.Request) bool {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return &f.key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	return err == nil && claims["iss"] == float64(testAppID)
}

func (f *fakeGitHub) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	if !f.verifyAppJWT(r) {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
		return
	}
	n := f.exchanges.Add(1)

	f.mu.Lock()
	fail := f.failExchange
	f.mu.Unlock()
	if fail {
		http.Error(w, `{"message":"Internal error"}`, http.StatusInternalServerError)
		return
	}

	var id int64
	_, _ = fmt.Sscan(r.PathValue("id"), &id)
	token := fmt.Sprintf("ghs_%d_%d", id, n)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"token":      token,
		"expires_at": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	})
}

func TestClient_InstallationTokenIsCached(t *testing.T) {
	gh := newFakeGitHub(t)
	c := gh.client(t)
	ctx := context.Background()

	first, err := c.InstallationToken(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "ghs_42_1", first.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), first.ExpiresAt, 5*time.Second)

	second, err := c.InstallationToken(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), gh.exchanges.Load())
}

func TestClient_ConcurrentInstallationTokensExchangeOnce(t *testing.T) {
	gh := newFakeGitHub(t)
	c := gh.client(t)

	var wg sync.WaitGroup
	tokens := make([]string, 20)
	for i := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := c.InstallationToken(context.Background(), 42)
			assert.NoError(t, err)
			tokens[i] = tok.Token
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), gh.exchanges.Load())
	for _, tok := range tokens {
		assert.Equal(t, "ghs_42_1", tok)
	}
}

func TestClient_ExchangeFailure(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.mu.Lock()
	gh.failExchange = true
	gh.mu.Unlock()
	c := gh.client(t)

	_, err := c.InstallationToken(context.Background(), 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, ghapp.ErrFetch)

	gh.mu.Lock()
	gh.failExchange = false
	gh.mu.Unlock()

	tok, err := c.InstallationToken(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "ghs_42_2", tok.Token)
}

func TestClient_InstallationRESTClient(t *testing.T) {
	gh := newFakeGitHub(t)

	var unauthorizedOnce atomic.Bool
	unauthorizedOnce.Store(true)
	var seen []string
	var mu sync.Mutex
	gh.mux.HandleFunc("GET /api/v3/repos/octo/hello", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		if unauthorizedOnce.Swap(false) {
			http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1,"name":"hello"}`))
	})

	c := gh.client(t)
	ctx := context.Background()
	inst, err := c.Installation(42)
	require.NoError(t, err)
	assert.Contains(t, inst.UserAgent, "github-for-jira/")

	_, _, err = inst.Repositories.Get(ctx, "octo", "hello")
	require.Error(t, err)

	repo, _, err := inst.Repositories.Get(ctx, "octo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", repo.GetName())

	// the rejected token was dropped and a new one exchanged
	assert.Equal(t, []string{"Bearer ghs_42_1", "Bearer ghs_42_2"}, seen)
	assert.Equal(t, int32(2), gh.exchanges.Load())
}

func TestClient_ListInstallationsFollowsPages(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.mux.HandleFunc("GET /api/v3/app/installations", func(w http.ResponseWriter, r *http.Request) {
		if !gh.verifyAppJWT(r) {
			http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "", "1":
			next := gh.srv.URL + "/api/v3/app/installations?page=2&per_page=100"
			w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next", <%s>; rel="last"`, next, next))
			_, _ = w.Write([]byte(`[{"id":1,"account":{"login":"one"}},{"id":2,"account":{"login":"two"}}]`))
		case "2":
			_, _ = w.Write([]byte(`[{"id":3,"account":{"login":"three"}}]`))
		default:
			http.NotFound(w, r)
		}
	})

	c := gh.client(t)
	installations, err := c.ListInstallations(context.Background())
	require.NoError(t, err)

	var ids []int64
	for _, inst := range installations {
		ids = append(ids, inst.GetID())
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.Equal(t, "three", installations[2].GetAccount().GetLogin())
}

func TestClient_Prewarm(t *testing.T) {
	gh := newFakeGitHub(t)
	c := gh.client(t)

	tokens, err := c.Prewarm(context.Background(), 1, 2, 3)
	require.NoError(t, err)
	assert.Len(t, tokens, 3)
	assert.Equal(t, int32(3), gh.exchanges.Load())
	for id, tok := range tokens {
		assert.True(t, strings.HasPrefix(tok.Token, fmt.Sprintf("ghs_%d_", id)))
	}

	// all cached now
	_, err = c.Prewarm(context.Background(), 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(3), gh.exchanges.Load())
}

func TestClient_AppToken(t *testing.T) {
	gh := newFakeGitHub(t)
	c := gh.client(t)

	first, err := c.AppToken()
	require.NoError(t, err)
	second, err := c.AppToken()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNew_InvalidKey(t *testing.T) {
	_, err := New(Config{AppID: 1, PrivateKey: []byte("not a key")})
	assert.ErrorIs(t, err, ghapp.ErrSigning)
}

func TestNew_GraphQLURL(t *testing.T) {
	gh := newFakeGitHub(t)

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "GitHub.com", cfg: Config{}, want: "https://api.github.com/graphql"},
		{name: "Enterprise", cfg: Config{ServerURL: "https://ghe.example.com/"}, want: "https://ghe.example.com/api/graphql"},
		{name: "Override", cfg: Config{ServerURL: "https://ghe.example.com", GraphQLURL: "https://gql.example.com"}, want: "https://gql.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.AppID = testAppID
			tt.cfg.PrivateKey = gh.privateKeyPEM()
			c, err := New(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.graphqlURL)
		})
	}
}
