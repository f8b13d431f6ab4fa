package services

import (
	"context"
	"fmt"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService reports whether the session backend is reachable. The
// billing API is not checked: it needs an operator key.
type HealthService struct {
	sessions Pinger
	timeout  time.Duration
}

func NewHealthService(sessions Pinger) *HealthService {
	return &HealthService{sessions: sessions, timeout: 2 * time.Second}
}

func (s *HealthService) Get() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.sessions.Ping(ctx); err != nil {
		return fmt.Errorf("session store unreachable: %w", err)
	}
	return nil
}
