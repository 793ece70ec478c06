// Package replay tracks consumed one-time nonces so a signed send
// request cannot be accepted twice.
package replay

import (
	"context"
	"sync"
)

// Guard decides, atomically, whether a nonce has been seen before.
// CheckAndConsume is a single operation rather than separate has/add
// calls so two concurrent requests sharing a nonce cannot both pass.
type Guard interface {
	// CheckAndConsume records nonce and returns true if it was fresh,
	// false if it was already consumed. An error means the guard's
	// backing store failed and the caller must not proceed.
	CheckAndConsume(ctx context.Context, nonce string) (bool, error)
}

// Default sizing for the in-memory guard.
const (
	DefaultMaxEntries = 10000
	DefaultEvictBatch = 1000
)

// MemoryGuard is a process-local bounded nonce set. When the set grows
// past its capacity, a batch of the oldest entries is dropped. An
// extremely old nonce can therefore become reusable after eviction;
// that is the accepted memory/correctness tradeoff, not a bug.
type MemoryGuard struct {
	mu         sync.Mutex
	seen       map[string]struct{}
	order      []string // insertion order, drives batch eviction
	maxEntries int
	evictBatch int
}

// NewMemoryGuard creates an in-memory guard. Non-positive sizes fall
// back to the defaults; the eviction batch is clamped below capacity so
// eviction can never remove the entry just inserted.
func NewMemoryGuard(maxEntries, evictBatch int) *MemoryGuard {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if evictBatch <= 0 {
		evictBatch = DefaultEvictBatch
	}
	if evictBatch >= maxEntries {
		evictBatch = maxEntries / 2
		if evictBatch == 0 {
			evictBatch = 1
		}
	}
	return &MemoryGuard{
		seen:       make(map[string]struct{}),
		maxEntries: maxEntries,
		evictBatch: evictBatch,
	}
}

// CheckAndConsume implements Guard. It never returns an error.
func (g *MemoryGuard) CheckAndConsume(_ context.Context, nonce string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, dup := g.seen[nonce]; dup {
		return false, nil
	}
	g.seen[nonce] = struct{}{}
	g.order = append(g.order, nonce)

	if len(g.seen) > g.maxEntries {
		n := g.evictBatch
		if n > len(g.order)-1 {
			n = len(g.order) - 1
		}
		for _, old := range g.order[:n] {
			delete(g.seen, old)
		}
		g.order = append([]string(nil), g.order[n:]...)
	}
	return true, nil
}

// Len reports the number of retained nonces.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
