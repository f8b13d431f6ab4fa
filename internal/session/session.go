package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/billing-console/pkg/logger"
	"github.com/nimasrn/billing-console/pkg/redis"
)

var (
	ErrNotFound    = errors.New("session not found")
	ErrEmptyAPIKey = errors.New("api key is required")
	ErrInvalidID   = errors.New("invalid session id")
)

// Store keeps the operator's API key server-side, keyed by an opaque session
// id. Entries expire after ttl of inactivity.
type Store struct {
	redis redis.RedisAdapter
	ttl   time.Duration
}

func NewStore(adapter redis.RedisAdapter, ttl time.Duration) *Store {
	return &Store{redis: adapter, ttl: ttl}
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create stores apiKey under a fresh session id.
func (s *Store) Create(ctx context.Context, apiKey string) (string, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return "", ErrEmptyAPIKey
	}
	id := uuid.NewString()
	if err := s.redis.Set(ctx, id, []byte(apiKey), s.ttl); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	logger.Info("Session created", "session", shortID(id), "api_key", apiKey, "ttl", s.ttl)
	return id, nil
}

// APIKey returns the key bound to id and extends the session's lifetime.
func (s *Store) APIKey(ctx context.Context, id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrInvalidID
	}
	b, err := s.redis.Get(ctx, id)
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	if _, err := s.redis.Expire(ctx, id, s.ttl); err != nil {
		logger.Warn("Failed to extend session", "session", shortID(id), "error", err)
	}
	return string(b), nil
}

// Destroy removes the session. Unknown ids are not an error.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if err := s.redis.Del(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	logger.Info("Session destroyed", "session", shortID(id))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
