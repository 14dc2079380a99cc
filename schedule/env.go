package schedule

import (
	"context"
	"math/rand/v2"

	"github.com/aponysus/cadence/decision"
)

type envKey[E any] struct{}

// ProvideEnvironment captures env once and threads it into every step of s.
//
// Steps and effectful callbacks retrieve it with EnvironmentFrom.
func ProvideEnvironment[S, In, Out, E any](s Schedule[S, In, Out], env E) Schedule[S, In, Out] {
	return New(s.initial, func(ctx context.Context, now int64, in In, state S) (S, Out, decision.Decision, error) {
		return s.Step(context.WithValue(ctx, envKey[E]{}, env), now, in, state)
	})
}

// EnvironmentFrom returns the environment value of type E carried by ctx.
func EnvironmentFrom[E any](ctx context.Context) (E, bool) {
	var zero E
	if ctx == nil {
		return zero, false
	}
	v, ok := ctx.Value(envKey[E]{}).(E)
	return v, ok
}

// WithEnvironment returns a derived context carrying env, for callers stepping schedules directly.
func WithEnvironment[E any](ctx context.Context, env E) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, envKey[E]{}, env)
}

// Random is the source jitter draws from. *rand.Rand satisfies it.
type Random interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
}

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }

// ProvideRandom makes r the random source for every step of s.
func ProvideRandom[S, In, Out any](s Schedule[S, In, Out], r Random) Schedule[S, In, Out] {
	return ProvideEnvironment[S, In, Out, Random](s, r)
}

// RandomFrom returns the Random in ctx, or the process-wide source when none was provided.
func RandomFrom(ctx context.Context) Random {
	if r, ok := EnvironmentFrom[Random](ctx); ok && r != nil {
		return r
	}
	return globalRandom{}
}
