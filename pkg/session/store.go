// Package session provides the Redis-backed store for forum login sessions.
// It replaces ad-hoc credential files and process-wide token globals with an
// explicit session value the caller loads at startup and passes into the
// client configuration.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound indicates no session is stored for the account.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidSession indicates the stored session is corrupted.
	ErrInvalidSession = errors.New("invalid session entry")
)

// DefaultTTL is how long a stored session stays valid, matching the remote's
// 30-day token lifetime.
const DefaultTTL = 30 * 24 * time.Hour

// Session is one stored login state.
type Session struct {
	// Token is the API session token.
	Token string `json:"token"`

	// Phone identifies the account the token belongs to.
	Phone string `json:"phone"`

	// LoggedInAt is when the token was obtained.
	LoggedInAt time.Time `json:"logged_in_at"`

	// ExpiresAt is when the token stops being usable.
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired returns true if the session token has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// TTL returns the time until expiration. Returns 0 if already expired.
func (s *Session) TTL() time.Duration {
	ttl := time.Until(s.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Store handles session persistence with a Redis backend.
type Store struct {
	redis *redis.Client
}

// NewStore creates a session store with a Redis backend.
func NewStore(redisClient *redis.Client) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Store{redis: redisClient}
}

func storeKey(phone string) string {
	return "circle:session:" + phone
}

// Get retrieves the stored session for an account.
// Returns ErrNotFound if none exists or the stored session has expired.
func (s *Store) Get(ctx context.Context, phone string) (*Session, error) {
	data, err := s.redis.Get(ctx, storeKey(phone)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	if sess.IsExpired() {
		_ = s.Delete(ctx, phone)
		return nil, ErrNotFound
	}

	return &sess, nil
}

// Set stores a session with a TTL derived from its expiry time.
// An already-expired session is not stored.
func (s *Store) Set(ctx context.Context, sess *Session) error {
	if sess == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if sess.Phone == "" {
		return fmt.Errorf("session phone is required")
	}
	if sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = time.Now().Add(DefaultTTL)
	}

	ttl := sess.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := s.redis.Set(ctx, storeKey(sess.Phone), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes the stored session for an account.
func (s *Store) Delete(ctx context.Context, phone string) error {
	if err := s.redis.Del(ctx, storeKey(phone)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
