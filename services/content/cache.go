package content

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/upb/physics-tutor/models"
	"go.uber.org/zap"
)

// snapshot is an immutable set of documents loaded at a point in time
type snapshot struct {
	docs       []models.Document
	loadedAt   time.Time
	generation uint64
}

func (s *snapshot) isExpired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(s.loadedAt) > ttl
}

// CachedLoader keeps the last successful load of another Loader in memory.
// Readers share one snapshot; a reload swaps it atomically. A zero TTL never expires.
// A snapshot read before the latest Invalidate is never served.
type CachedLoader struct {
	next   Loader
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	current    atomic.Pointer[snapshot]
	generation atomic.Uint64
	reload     sync.Mutex

	hits    atomic.Uint64
	misses  atomic.Uint64
	reloads atomic.Uint64
}

// NewCachedLoader wraps next with a snapshot cache
func NewCachedLoader(next Loader, ttl time.Duration, logger *zap.Logger) *CachedLoader {
	return &CachedLoader{
		next:   next,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Load returns the cached documents, reloading when the snapshot is missing or expired.
// Failed loads are not cached.
func (c *CachedLoader) Load(ctx context.Context) ([]models.Document, error) {
	if s := c.fresh(); s != nil {
		c.hits.Add(1)
		return slices.Clone(s.docs), nil
	}

	c.reload.Lock()
	defer c.reload.Unlock()

	// another caller may have reloaded while we waited
	if s := c.fresh(); s != nil {
		c.hits.Add(1)
		return slices.Clone(s.docs), nil
	}

	c.misses.Add(1)
	gen := c.generation.Load()
	docs, err := c.next.Load(ctx)
	if err != nil {
		return nil, err
	}

	// an Invalidate during next.Load leaves this snapshot behind the current generation
	c.current.Store(&snapshot{docs: docs, loadedAt: c.now(), generation: gen})
	c.reloads.Add(1)
	c.logger.Debug("lesson cache reloaded", zap.Int("documents", len(docs)))

	return slices.Clone(docs), nil
}

// fresh returns the current snapshot when it is neither invalidated nor expired
func (c *CachedLoader) fresh() *snapshot {
	s := c.current.Load()
	if s == nil || s.generation != c.generation.Load() || s.isExpired(c.ttl, c.now()) {
		return nil
	}
	return s
}

// Invalidate drops the current snapshot so the next Load reloads.
// Loads already in flight store a snapshot that is never served.
func (c *CachedLoader) Invalidate() {
	c.generation.Add(1)
	if c.current.Swap(nil) != nil {
		c.logger.Debug("lesson cache invalidated")
	}
}

// CleanupExpired drops the snapshot if its TTL has passed. Returns true when it did.
func (c *CachedLoader) CleanupExpired() bool {
	s := c.current.Load()
	if s == nil || !s.isExpired(c.ttl, c.now()) {
		return false
	}
	return c.current.CompareAndSwap(s, nil)
}

// StartCleanupWorker periodically releases an expired snapshot until ctx is done
func (c *CachedLoader) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if c.CleanupExpired() {
				c.logger.Debug("expired lesson snapshot released")
			}
		case <-ctx.Done():
			return
		}
	}
}

// CacheStats represents cache statistics
type CacheStats struct {
	Documents int       `json:"documents"`
	Hits      uint64    `json:"hits"`
	Misses    uint64    `json:"misses"`
	Reloads   uint64    `json:"reloads"`
	HitRate   float64   `json:"hit_rate"`
	LoadedAt  time.Time `json:"loaded_at,omitempty"`
}

// Stats returns cache statistics
func (c *CachedLoader) Stats() CacheStats {
	stats := CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Reloads: c.reloads.Load(),
	}
	if s := c.current.Load(); s != nil {
		stats.Documents = len(s.docs)
		stats.LoadedAt = s.loadedAt
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}
