package tokenstore

import (
	"context"
	"sync"
	"time"

	"github.com/sasank-xyz/github-for-jira/internal/core"
)

var _ core.TokenStore = (*InMemoryTokenStore)(nil)

// InMemoryTokenStore keeps tokens in process memory.
// It is useful for tests and for sharing tokens between caches of one process.
type InMemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[int64]core.AuthToken
	now    func() time.Time
}

func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{
		tokens: make(map[int64]core.AuthToken),
		now:    time.Now,
	}
}

func (s *InMemoryTokenStore) Load(_ context.Context, installationID int64) (core.AuthToken, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tok, ok := s.tokens[installationID]
	if !ok || tok.Expired(s.now()) {
		return core.AuthToken{}, false, nil
	}
	return tok, true, nil
}

func (s *InMemoryTokenStore) Save(_ context.Context, installationID int64, token core.AuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[installationID] = token
	return nil
}

// DeleteExpired drops all expired tokens and returns how many were dropped.
func (s *InMemoryTokenStore) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var deletedCount int64
	for id, tok := range s.tokens {
		if tok.Expired(now) {
			delete(s.tokens, id)
			deletedCount++
		}
	}
	return deletedCount, nil
}
