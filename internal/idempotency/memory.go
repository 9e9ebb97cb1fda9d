package idempotency

import (
	"context"
	"sync"
	"time"
)

var _ Guard = (*MemoryGuard)(nil)

// MemoryGuard is a process-local Guard. It protects against redeliveries
// landing on the same instance, which is enough for a single-replica
// deployment and for tests; multi-replica deployments should use the Redis
// guard instead.
type MemoryGuard struct {
	mu    sync.Mutex
	marks map[string]time.Time
}

// NewMemory creates an empty in-memory guard.
func NewMemory() *MemoryGuard {
	return &MemoryGuard{marks: make(map[string]time.Time)}
}

// MarkOnce implements Guard.
func (g *MemoryGuard) MarkOnce(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if expiry, ok := g.marks[key]; ok && now.Before(expiry) {
		return false, nil
	}
	g.marks[key] = now.Add(ttl)

	// Opportunistic purge keeps the map from growing without bound.
	for k, expiry := range g.marks {
		if now.After(expiry) {
			delete(g.marks, k)
		}
	}
	return true, nil
}

// Release implements Guard.
func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.marks, key)
	return nil
}
