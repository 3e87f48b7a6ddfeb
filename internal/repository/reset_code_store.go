package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/school-attendance/internal/models"
)

// Session keys used by SessionResetCodeStore.
const (
	sessionResetCodePrefix    = "ResetCode:"
	sessionResetExpiresPrefix = "ResetCodeExpires:"
)

// MemoryResetCodeStore keeps reset codes in process memory, shared by all callers.
type MemoryResetCodeStore struct {
	mu    sync.Mutex
	codes map[string]models.ResetCode
}

// NewMemoryResetCodeStore constructs an empty in-memory store.
func NewMemoryResetCodeStore() *MemoryResetCodeStore {
	return &MemoryResetCodeStore{codes: make(map[string]models.ResetCode)}
}

// Get returns the code stored for email.
func (s *MemoryResetCodeStore) Get(_ context.Context, email string) (models.ResetCode, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[email]
	return code, ok, nil
}

// Put replaces the code stored for email.
func (s *MemoryResetCodeStore) Put(_ context.Context, email string, code models.ResetCode, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[email] = code
	return nil
}

// Delete removes the code stored for email.
func (s *MemoryResetCodeStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, email)
	return nil
}

// RedisResetCodeStore keeps reset codes in Redis so any instance can verify them.
type RedisResetCodeStore struct {
	client *redis.Client
	prefix string
}

// NewRedisResetCodeStore constructs a Redis backed store.
func NewRedisResetCodeStore(client *redis.Client) *RedisResetCodeStore {
	return &RedisResetCodeStore{client: client, prefix: "reset_code:"}
}

// Get returns the code stored for email.
func (s *RedisResetCodeStore) Get(ctx context.Context, email string) (models.ResetCode, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+email).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.ResetCode{}, false, nil
		}
		return models.ResetCode{}, false, fmt.Errorf("redis get reset code: %w", err)
	}
	var code models.ResetCode
	if err := json.Unmarshal(raw, &code); err != nil {
		return models.ResetCode{}, false, fmt.Errorf("decode reset code: %w", err)
	}
	return code, true, nil
}

// Put stores the code under a key that Redis drops after ttl.
func (s *RedisResetCodeStore) Put(ctx context.Context, email string, code models.ResetCode, ttl time.Duration) error {
	payload, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("encode reset code: %w", err)
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := s.client.Set(ctx, s.prefix+email, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set reset code: %w", err)
	}
	return nil
}

// Delete removes the code stored for email.
func (s *RedisResetCodeStore) Delete(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, s.prefix+email).Err(); err != nil {
		return fmt.Errorf("redis delete reset code: %w", err)
	}
	return nil
}

// SessionResetCodeStore keeps reset codes in the caller's browser session, so a
// code only verifies from the browser that requested it.
type SessionResetCodeStore struct {
	session sessions.Session
}

// NewSessionResetCodeStore wraps a gin session.
func NewSessionResetCodeStore(session sessions.Session) *SessionResetCodeStore {
	return &SessionResetCodeStore{session: session}
}

// Get returns the code stored for email.
func (s *SessionResetCodeStore) Get(_ context.Context, email string) (models.ResetCode, bool, error) {
	code, _ := s.session.Get(sessionResetCodePrefix + email).(string)
	rawExpiry, _ := s.session.Get(sessionResetExpiresPrefix + email).(string)
	if strings.TrimSpace(code) == "" || rawExpiry == "" {
		return models.ResetCode{}, false, nil
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, rawExpiry)
	if err != nil {
		return models.ResetCode{}, false, nil
	}
	return models.ResetCode{Code: code, ExpiresAt: expiresAt}, true, nil
}

// Put stores the code and its expiry as two session values.
func (s *SessionResetCodeStore) Put(_ context.Context, email string, code models.ResetCode, _ time.Duration) error {
	s.session.Set(sessionResetCodePrefix+email, code.Code)
	s.session.Set(sessionResetExpiresPrefix+email, code.ExpiresAt.Format(time.RFC3339Nano))
	if err := s.session.Save(); err != nil {
		return fmt.Errorf("save session reset code: %w", err)
	}
	return nil
}

// Delete removes both session values for email.
func (s *SessionResetCodeStore) Delete(_ context.Context, email string) error {
	s.session.Delete(sessionResetCodePrefix + email)
	s.session.Delete(sessionResetExpiresPrefix + email)
	if err := s.session.Save(); err != nil {
		return fmt.Errorf("clear session reset code: %w", err)
	}
	return nil
}
