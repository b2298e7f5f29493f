package deposit

import (
	"context"
	"sync"
	"time"
)

// HashCacheTTL is how long a processed hash is remembered in memory. The
// durable de-duplication authority is the ledger; this cache only shields
// it from rapid re-discovery between polls.
const HashCacheTTL = 30 * time.Minute

// sweepInterval is how often expired entries are purged.
const sweepInterval = time.Minute

// HashCache remembers recently processed transaction hashes.
type HashCache struct {
	mu   sync.Mutex
	seen map[string]time.Time // hash -> first seen
	ttl  time.Duration
	now  func() time.Time
}

// NewHashCache creates a cache with the default TTL.
func NewHashCache() *HashCache {
	return &HashCache{
		seen: make(map[string]time.Time),
		ttl:  HashCacheTTL,
		now:  time.Now,
	}
}

// Seen reports whether a hash was marked within the TTL.
func (c *HashCache) Seen(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	firstSeen, ok := c.seen[hash]
	return ok && c.now().Sub(firstSeen) < c.ttl
}

// Mark records a hash as processed. Only called after processing succeeds,
// so a failed attempt stays re-discoverable.
func (c *HashCache) Mark(hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[hash] = c.now()
}

// Sweep removes expired entries.
func (c *HashCache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for hash, firstSeen := range c.seen {
		if now.Sub(firstSeen) >= c.ttl {
			delete(c.seen, hash)
		}
	}
}

// Run sweeps once per minute until ctx is cancelled. Scheduled once
// process-wide by the owning service.
func (c *HashCache) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Len returns the number of live entries, for tests.
func (c *HashCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
