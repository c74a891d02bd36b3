package memory

import (
	"context"
	"time"

	"github.com/sre-portfolio/notetrack/internal/cache"
)

// TokenStore is a map-backed stand-in for the Redis refresh-token store.
type TokenStore struct {
	db *DB
}

func NewTokenStore(db *DB) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t := token{value: value}
	if ttl > 0 {
		t.expiresAt = s.db.now().Add(ttl)
	}
	s.db.tokens[key] = t
	return nil
}

func (s *TokenStore) Get(ctx context.Context, key string) (string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t, ok := s.db.tokens[key]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	if !t.expiresAt.IsZero() && !s.db.now().Before(t.expiresAt) {
		delete(s.db.tokens, key)
		return "", cache.ErrCacheMiss
	}
	return t.value, nil
}

func (s *TokenStore) Delete(ctx context.Context, key string) error {
	s.db.mu.Lock()
	delete(s.db.tokens, key)
	s.db.mu.Unlock()
	return nil
}
