package controlplane

import (
	"context"
	"sync"
	"time"

	"github.com/aponysus/cadence/clock"
	"github.com/aponysus/cadence/policy"
)

type cacheEntry struct {
	policy    policy.EffectivePolicy
	expiresAt int64
	found     bool // false for a negative entry
}

// PolicyCache is a thread-safe cache for policies with TTL support.
//
// Every policy stored with Set is also remembered as the key's last-known-good value, which
// survives expiry and negative entries until Invalidate.
type PolicyCache struct {
	mu      sync.RWMutex
	entries map[policy.PolicyKey]cacheEntry
	lkg     map[policy.PolicyKey]policy.EffectivePolicy
	clock   clock.Clock
}

// NewPolicyCache creates a new, empty PolicyCache on the live clock.
func NewPolicyCache() *PolicyCache {
	return NewPolicyCacheWithClock(clock.Live{})
}

// NewPolicyCacheWithClock creates a PolicyCache that reads expiry times from c.
func NewPolicyCacheWithClock(c clock.Clock) *PolicyCache {
	if c == nil {
		c = clock.Live{}
	}
	return &PolicyCache{
		entries: make(map[policy.PolicyKey]cacheEntry),
		lkg:     make(map[policy.PolicyKey]policy.EffectivePolicy),
		clock:   c,
	}
}

// Get retrieves a live entry. negative reports a cached "not found".
func (c *PolicyCache) Get(key policy.PolicyKey) (pol policy.EffectivePolicy, foundInCache bool, negative bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now() >= entry.expiresAt {
		return policy.EffectivePolicy{}, false, false
	}
	return entry.policy, true, !entry.found
}

// LastKnownGood returns the most recent positive entry for key, expired or not.
func (c *PolicyCache) LastKnownGood(key policy.PolicyKey) (policy.EffectivePolicy, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pol, ok := c.lkg[key]
	return pol, ok
}

// Set adds or updates a policy in the cache.
func (c *PolicyCache) Set(key policy.PolicyKey, pol policy.EffectivePolicy, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		policy:    pol,
		expiresAt: c.now() + ttl.Milliseconds(),
		found:     true,
	}
	c.lkg[key] = pol
}

// SetMissing records a negative entry.
func (c *PolicyCache) SetMissing(key policy.PolicyKey, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		expiresAt: c.now() + ttl.Milliseconds(),
		found:     false,
	}
}

// Invalidate removes an entry from the cache.
func (c *PolicyCache) Invalidate(key policy.PolicyKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	delete(c.lkg, key)
}

func (c *PolicyCache) now() int64 {
	return c.clock.CurrentTime(context.Background())
}
