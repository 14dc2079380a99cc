package circuit

import (
	"sync"

	"github.com/aponysus/cadence/clock"
	"github.com/aponysus/cadence/policy"
)

// Registry holds one breaker per policy key.
type Registry struct {
	mu       sync.RWMutex
	breakers map[policy.PolicyKey]CircuitBreaker
	clock    clock.Clock
}

// NewRegistry creates a registry whose breakers read time through clock.Proxy, so the clock
// installed in each call's context is honored.
func NewRegistry() *Registry {
	return NewRegistryWithClock(clock.Proxy{})
}

// NewRegistryWithClock creates a registry whose breakers read time from c.
func NewRegistryWithClock(c clock.Clock) *Registry {
	return &Registry{
		breakers: make(map[policy.PolicyKey]CircuitBreaker),
		clock:    c,
	}
}

// Get returns the breaker for key, creating it from config on first use. It returns nil when the
// policy does not enable a circuit.
func (r *Registry) Get(key policy.PolicyKey, config policy.CircuitPolicy) CircuitBreaker {
	if r == nil || !config.Enabled {
		return nil
	}

	r.mu.RLock()
	cb, ok := r.breakers[key]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[key]; ok {
		return cb
	}
	cb = NewConsecutiveFailureBreakerWithClock(config.Threshold, config.Cooldown, r.clock)
	r.breakers[key] = cb
	return cb
}
