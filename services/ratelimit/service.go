package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds rate limiting configuration per client
type Config struct {
	// RequestsPerSecond is the sustained rate
	RequestsPerSecond float64
	// Burst is the maximum burst size
	Burst int
	// IdleTTL is how long an unused client bucket is kept
	IdleTTL time.Duration
}

// DefaultConfig returns conservative defaults for a public chat endpoint
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 1,
		Burst:             5,
		IdleTTL:           10 * time.Minute,
	}
}

// RateLimitResult represents the result of a rate limit check
type RateLimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitService keeps one token bucket per client key (usually the remote IP)
type RateLimitService struct {
	mu      sync.Mutex
	clients map[string]*client
	cfg     Config
	now     func() time.Time
	logger  *zap.Logger
}

// NewRateLimitService creates a new RateLimitService instance
func NewRateLimitService(cfg Config, logger *zap.Logger) *RateLimitService {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultConfig().RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultConfig().Burst
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultConfig().IdleTTL
	}
	return &RateLimitService{
		clients: make(map[string]*client),
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
	}
}

// CheckLimit consumes one token for key and reports whether the request may proceed
func (s *RateLimitService) CheckLimit(key string) RateLimitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Limit(s.cfg.RequestsPerSecond), s.cfg.Burst)}
		s.clients[key] = c
	}
	c.lastSeen = now

	r := c.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		s.logger.Debug("rate limit exceeded", zap.String("client", key), zap.Duration("retry_after", delay))
		return RateLimitResult{Allowed: false, RetryAfter: delay}
	}

	return RateLimitResult{
		Allowed:   true,
		Remaining: int(c.limiter.TokensAt(now)),
	}
}

// CleanupIdle drops buckets not used within IdleTTL and returns how many were removed
func (s *RateLimitService) CleanupIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.cfg.IdleTTL)
	removed := 0
	for key, c := range s.clients {
		if c.lastSeen.Before(cutoff) {
			delete(s.clients, key)
			removed++
		}
	}
	return removed
}

// Clients returns the number of tracked clients
func (s *RateLimitService) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// StartCleanupWorker periodically removes idle client buckets until ctx is done
func (s *RateLimitService) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.CleanupIdle(); n > 0 {
				s.logger.Debug("idle rate limit buckets removed", zap.Int("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}
