package dedup

import (
	"context"
	"sync"
	"time"
)

const (
	defaultSweepInterval = 30 * time.Second
)

type Option func(*Cache)

// WithClock replaces the cache's time source, for deterministic expiry tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithSweepInterval tunes how often the background sweep removes expired
// entries. Expiry is also checked lazily on Accept, so the sweep only bounds
// memory, not correctness.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Cache) { c.sweep = d }
}

// Cache is a process-wide, time-bounded membership set over notification
// identities. It answers exactly one question: has this identity already been
// accepted for processing within the retention window.
//
// The cache is process-local. Running multiple instances reintroduces
// duplicate effects across instances; that is a documented non-goal, not a
// bug here.
type Cache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	sweep   time.Duration
	now     func() time.Time
}

func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		sweep:   defaultSweepInterval,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Accept atomically records the given identities if none of them is already
// present and unexpired. It returns true only for the first observation of a
// logical action; every duplicate within the retention window gets false.
//
// Multiple keys exist because one logical action can arrive under two payload
// shapes (a payment notification and a subscription notification for the same
// billing cycle); the check must cover all aliases before any is recorded,
// inside a single critical section, or near-simultaneous duplicates both pass.
func (c *Cache) Accept(keys ...string) bool {
	if len(keys) == 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, key := range keys {
		deadline, ok := c.entries[key]
		if ok && now.Before(deadline) {
			return false
		}
	}

	deadline := now.Add(c.ttl)
	for _, key := range keys {
		c.entries[key] = deadline
	}
	return true
}

// Forget releases identities that were accepted but whose canonical fetch
// yielded no resource, so a corrected resend is not treated as a duplicate.
func (c *Cache) Forget(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
}

// Len reports the number of entries, expired ones included until swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Start runs the periodic sweep until ctx is cancelled. Run it in its own
// goroutine.
func (c *Cache) Start(ctx context.Context) {
	ticker := time.NewTicker(c.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, deadline := range c.entries {
		if !now.Before(deadline) {
			delete(c.entries, key)
		}
	}
}
