package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/school-attendance/pkg/clock"
)

// MemoryAccessTokenStore tracks live bearer token ids in process memory.
type MemoryAccessTokenStore struct {
	mu     sync.Mutex
	clock  clock.Clock
	tokens map[string]time.Time
}

// NewMemoryAccessTokenStore constructs an empty store. Entries expire on clk.
func NewMemoryAccessTokenStore(clk clock.Clock) *MemoryAccessTokenStore {
	if clk == nil {
		clk = clock.System()
	}
	return &MemoryAccessTokenStore{clock: clk, tokens: make(map[string]time.Time)}
}

// Put records id as live for ttl and drops entries that already lapsed.
func (s *MemoryAccessTokenStore) Put(_ context.Context, id string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	for key, expiresAt := range s.tokens {
		if !now.Before(expiresAt) {
			delete(s.tokens, key)
		}
	}
	s.tokens[id] = now.Add(ttl)
	return nil
}

// Active reports whether id was recorded and neither revoked nor lapsed.
func (s *MemoryAccessTokenStore) Active(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt, ok := s.tokens[id]
	if !ok {
		return false, nil
	}
	if !s.clock.Now().Before(expiresAt) {
		delete(s.tokens, id)
		return false, nil
	}
	return true, nil
}

// Revoke forgets id.
func (s *MemoryAccessTokenStore) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, id)
	return nil
}

// RedisAccessTokenStore tracks live bearer token ids in Redis so every
// instance honours a logout.
type RedisAccessTokenStore struct {
	client *redis.Client
	prefix string
}

// NewRedisAccessTokenStore constructs a Redis backed store.
func NewRedisAccessTokenStore(client *redis.Client) *RedisAccessTokenStore {
	return &RedisAccessTokenStore{client: client, prefix: "access_token:"}
}

// Put records id under a key that Redis drops after ttl.
func (s *RedisAccessTokenStore) Put(ctx context.Context, id string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+id, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis set access token: %w", err)
	}
	return nil
}

// Active reports whether the key for id still exists.
func (s *RedisAccessTokenStore) Active(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("redis check access token: %w", err)
	}
	return n > 0, nil
}

// Revoke deletes the key for id.
func (s *RedisAccessTokenStore) Revoke(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("redis delete access token: %w", err)
	}
	return nil
}
