package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimasrn/billing-console/pkg/logger"
	"github.com/nimasrn/billing-console/pkg/redis"
)

var (
	ErrInFlight     = errors.New("request with this key is still in flight")
	ErrLockAcquire  = errors.New("failed to acquire idempotency lock")
	ErrEmptyKey     = errors.New("idempotency key is empty")
	ErrReplayDecode = errors.New("stored response is unreadable")
)

type Config struct {
	// LockTTL bounds how long a crashed request keeps its key locked.
	LockTTL time.Duration

	// DoneTTL is how long a finished response is replayed.
	DoneTTL time.Duration

	LockKeyPrefix string

	DoneKeyPrefix string
}

func DefaultConfig() Config {
	return Config{
		LockTTL:       30 * time.Second,
		DoneTTL:       24 * time.Hour,
		LockKeyPrefix: "idem:lock:",
		DoneKeyPrefix: "idem:done:",
	}
}

// Response is a stored answer, replayed verbatim for a repeated key.
type Response struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

type Service struct {
	redis  redis.RedisAdapter
	config Config
}

func NewService(redisAdapter redis.RedisAdapter, config Config) *Service {
	return &Service{redis: redisAdapter, config: config}
}

// Lease is held while the request owning the key runs.
type Lease struct {
	Key      string
	acquired bool
	service  *Service
}

// Acquire claims key. A finished key returns its stored Response and no
// lease; a key held by a running request returns ErrInFlight.
func (s *Service) Acquire(ctx context.Context, key string) (*Lease, *Response, error) {
	if key == "" {
		return nil, nil, ErrEmptyKey
	}

	var res Response
	err := redis.GetJSON(ctx, s.redis, s.config.DoneKeyPrefix+key, &res)
	switch {
	case err == nil:
		logger.Info("Replaying finished request", "key", key, "status", res.Status)
		return nil, &res, nil
	case errors.Is(err, redis.ErrDecode):
		return nil, nil, fmt.Errorf("%w: %v", ErrReplayDecode, err)
	case !errors.Is(err, redis.NilError):
		// the lock below still prevents concurrent duplicates
		logger.Warn("Failed to check finished marker", "key", key, "error", err)
	}

	lockValue := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
	acquired, err := s.redis.SetNX(ctx, s.config.LockKeyPrefix+key, lockValue, s.config.LockTTL)
	if err != nil {
		logger.Error("Failed to acquire lock", "key", key, "error", err)
		return nil, nil, fmt.Errorf("%w: %v", ErrLockAcquire, err)
	}
	if !acquired {
		logger.Info("Lock already held by another request", "key", key)
		return nil, nil, ErrInFlight
	}

	logger.Debug("Idempotency lock acquired", "key", key, "lock_ttl", s.config.LockTTL)
	return &Lease{Key: key, acquired: true, service: s}, nil, nil
}

// Complete stores res for replay and releases the lock.
func (l *Lease) Complete(ctx context.Context, res Response) error {
	if l == nil || !l.acquired {
		return nil
	}
	s := l.service
	if err := redis.SetJSON(ctx, s.redis, s.config.DoneKeyPrefix+l.Key, res, s.config.DoneTTL); err != nil {
		logger.Error("Failed to store finished response", "key", l.Key, "error", err)
		_ = l.Release(ctx)
		return fmt.Errorf("failed to mark as done: %w", err)
	}
	return l.Release(ctx)
}

// Release drops the lock without storing anything so the key can be retried.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || !l.acquired {
		return nil
	}
	if err := l.service.redis.Del(ctx, l.service.config.LockKeyPrefix+l.Key); err != nil {
		logger.Warn("Failed to release lock", "key", l.Key, "error", err)
		return err
	}
	l.acquired = false
	return nil
}
