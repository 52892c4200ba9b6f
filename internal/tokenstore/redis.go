package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sasank-xyz/github-for-jira/internal/core"
)

const defaultKeyPrefix = "gh4j:installation-token:"

var _ core.TokenStore = (*RedisTokenStore)(nil)

// RedisTokenStore shares installation tokens between processes through Redis.
// Keys expire together with the token (minus core.ExpiryMargin).
type RedisTokenStore struct {
	client    redis.UniversalClient
	keyPrefix string
	now       func() time.Time
}

type RedisOption func(*RedisTokenStore)

// WithKeyPrefix overrides the prefix of all keys written by the store.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisTokenStore) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

// NewRedisTokenStore wraps an existing client.
func NewRedisTokenStore(client redis.UniversalClient, opts ...RedisOption) *RedisTokenStore {
	s := &RedisTokenStore{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRedisTokenStoreFromURL connects to the Redis server at url (redis://...) and pings it.
func NewRedisTokenStoreFromURL(ctx context.Context, url string, opts ...RedisOption) (*RedisTokenStore, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisTokenStore(client, opts...), nil
}

func (s *RedisTokenStore) key(installationID int64) string {
	return s.keyPrefix + strconv.FormatInt(installationID, 10)
}

func (s *RedisTokenStore) Load(ctx context.Context, installationID int64) (core.AuthToken, bool, error) {
	data, err := s.client.Get(ctx, s.key(installationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.AuthToken{}, false, nil
	}
	if err != nil {
		return core.AuthToken{}, false, fmt.Errorf("loading installation token %d from redis: %w", installationID, err)
	}

	var tok core.AuthToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return core.AuthToken{}, false, fmt.Errorf("decoding installation token %d: %w", installationID, err)
	}
	if tok.Expired(s.now()) {
		return core.AuthToken{}, false, nil
	}
	return tok, true, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, installationID int64, token core.AuthToken) error {
	ttl := token.TTL(s.now())
	if ttl <= 0 {
		// nobody could use it anyway
		return nil
	}
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encoding installation token %d: %w", installationID, err)
	}
	if err := s.client.Set(ctx, s.key(installationID), data, ttl).Err(); err != nil {
		return fmt.Errorf("saving installation token %d to redis: %w", installationID, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}
