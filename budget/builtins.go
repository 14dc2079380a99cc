package budget

import (
	"context"
	"math"
	"sync"

	"golang.org/x/time/rate"

	"github.com/aponysus/cadence/clock"
	"github.com/aponysus/cadence/policy"
)

// UnlimitedBudget allows every attempt.
type UnlimitedBudget struct{}

func (UnlimitedBudget) AllowAttempt(context.Context, policy.PolicyKey, int, policy.BudgetRef) Decision {
	return Decision{Allowed: true, Reason: ReasonAllowed}
}

// TokenBucketBudget is a token bucket over golang.org/x/time/rate.
//
// It starts full (capacity tokens) and refills at refillPerSecond tokens per second. Each attempt
// consumes ref.Cost tokens (at least 1). Time is read from the bucket's clock.Clock so tests can
// drive refills with a clock.TestClock.
type TokenBucketBudget struct {
	limiter *rate.Limiter
	clock   clock.Clock
}

// NewTokenBucketBudget returns a bucket on the live clock.
func NewTokenBucketBudget(capacity int, refillPerSecond float64) *TokenBucketBudget {
	return NewTokenBucketBudgetWithClock(capacity, refillPerSecond, clock.Live{})
}

// NewTokenBucketBudgetWithClock returns a bucket reading time from c. Negative or non-finite
// settings are treated as zero.
func NewTokenBucketBudgetWithClock(capacity int, refillPerSecond float64, c clock.Clock) *TokenBucketBudget {
	if capacity < 0 {
		capacity = 0
	}
	if refillPerSecond < 0 || math.IsNaN(refillPerSecond) || math.IsInf(refillPerSecond, 0) {
		refillPerSecond = 0
	}
	if c == nil {
		c = clock.Live{}
	}
	return &TokenBucketBudget{
		limiter: rate.NewLimiter(rate.Limit(refillPerSecond), capacity),
		clock:   c,
	}
}

func (b *TokenBucketBudget) AllowAttempt(ctx context.Context, _ policy.PolicyKey, _ int, ref policy.BudgetRef) Decision {
	if b == nil || b.limiter == nil {
		return Decision{Allowed: false, Reason: ReasonBudgetNil}
	}
	if b.limiter.AllowN(clock.Now(ctx, b.clock), max(ref.Cost, 1)) {
		return Decision{Allowed: true, Reason: ReasonAllowed}
	}
	return Decision{Allowed: false, Reason: ReasonBudgetDenied}
}

// Tokens returns the tokens currently available.
func (b *TokenBucketBudget) Tokens(ctx context.Context) float64 {
	if b == nil || b.limiter == nil {
		return 0
	}
	return b.limiter.TokensAt(clock.Now(ctx, b.clock))
}

// ConcurrencyBudget bounds the number of attempts in flight at once. An allowed attempt holds its
// slot until the executor calls Decision.Release.
type ConcurrencyBudget struct {
	mu       sync.Mutex
	limit    int
	inFlight int
}

// NewConcurrencyBudget allows at most limit concurrent attempts.
func NewConcurrencyBudget(limit int) *ConcurrencyBudget {
	return &ConcurrencyBudget{limit: max(limit, 0)}
}

func (b *ConcurrencyBudget) AllowAttempt(context.Context, policy.PolicyKey, int, policy.BudgetRef) Decision {
	if b == nil {
		return Decision{Allowed: false, Reason: ReasonBudgetNil}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight >= b.limit {
		return Decision{Allowed: false, Reason: ReasonBudgetDenied}
	}
	b.inFlight++

	var once sync.Once
	return Decision{Allowed: true, Reason: ReasonAllowed, Release: func() {
		once.Do(func() {
			b.mu.Lock()
			b.inFlight--
			b.mu.Unlock()
		})
	}}
}

// InFlight returns the number of attempts holding a slot.
func (b *ConcurrencyBudget) InFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight
}
