package circuit

import (
	"context"
	"sync"
	"time"

	"github.com/aponysus/cadence/clock"
)

// ConsecutiveFailureBreaker opens after threshold consecutive failures and stays open for
// cooldown. After the cooldown a single probe is let through; its result closes or reopens the
// breaker.
//
// Time comes from a clock.Clock, read with the context of the call, so a breaker built on
// clock.Proxy follows whatever clock the caller installed with clock.WithClock.
type ConsecutiveFailureBreaker struct {
	mu sync.Mutex

	state State

	threshold      int
	cooldown       int64 // ms
	maxProbes      int
	probesRequired int

	consecutiveFailures int
	openedAt            int64
	probesSent          int
	probesSuccessful    int

	clock clock.Clock
}

// NewConsecutiveFailureBreaker creates a breaker on the live clock.
func NewConsecutiveFailureBreaker(threshold int, cooldown time.Duration) *ConsecutiveFailureBreaker {
	return NewConsecutiveFailureBreakerWithClock(threshold, cooldown, clock.Live{})
}

// NewConsecutiveFailureBreakerWithClock creates a breaker reading time from c. Non-positive
// settings fall back to 5 failures and a 10s cooldown.
func NewConsecutiveFailureBreakerWithClock(threshold int, cooldown time.Duration, c clock.Clock) *ConsecutiveFailureBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 10 * time.Second
	}
	if c == nil {
		c = clock.Live{}
	}
	return &ConsecutiveFailureBreaker{
		state:          StateClosed,
		threshold:      threshold,
		cooldown:       cooldown.Milliseconds(),
		maxProbes:      1,
		probesRequired: 1,
		clock:          c,
	}
}

func (cb *ConsecutiveFailureBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.updateStateLocked(context.Background())
}

func (cb *ConsecutiveFailureBreaker) Allow(ctx context.Context) Decision {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.updateStateLocked(ctx) {
	case StateOpen:
		return Decision{
			Allowed:    false,
			State:      StateOpen,
			Reason:     ReasonCircuitOpen,
			RetryAfter: time.Duration(cb.openedAt+cb.cooldown-cb.clock.CurrentTime(ctx)) * time.Millisecond,
		}
	case StateHalfOpen:
		if cb.probesSent >= cb.maxProbes {
			return Decision{Allowed: false, State: StateHalfOpen, Reason: ReasonCircuitHalfOpenProbeLimit}
		}
		cb.probesSent++
		return Decision{Allowed: true, State: StateHalfOpen}
	}
	return Decision{Allowed: true, State: StateClosed}
}

func (cb *ConsecutiveFailureBreaker) RecordSuccess(ctx context.Context) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.updateStateLocked(ctx) {
	case StateClosed:
		cb.consecutiveFailures = 0
	case StateHalfOpen:
		cb.probesSuccessful++
		if cb.probesSuccessful >= cb.probesRequired {
			cb.transitionTo(ctx, StateClosed)
		} else {
			cb.probesSent--
		}
	}
}

func (cb *ConsecutiveFailureBreaker) RecordFailure(ctx context.Context) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.updateStateLocked(ctx) {
	case StateClosed:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.threshold {
			cb.transitionTo(ctx, StateOpen)
		}
	case StateHalfOpen:
		cb.transitionTo(ctx, StateOpen)
	}
}

func (cb *ConsecutiveFailureBreaker) updateStateLocked(ctx context.Context) State {
	if cb.state == StateOpen && cb.clock.CurrentTime(ctx)-cb.openedAt >= cb.cooldown {
		cb.transitionTo(ctx, StateHalfOpen)
	}
	return cb.state
}

func (cb *ConsecutiveFailureBreaker) transitionTo(ctx context.Context, next State) {
	cb.state = next
	switch next {
	case StateClosed:
		cb.consecutiveFailures = 0
		cb.probesSent = 0
		cb.probesSuccessful = 0
	case StateOpen:
		cb.openedAt = cb.clock.CurrentTime(ctx)
		cb.consecutiveFailures = 0
	case StateHalfOpen:
		cb.probesSent = 0
		cb.probesSuccessful = 0
	}
}
