// Package cadence is the short entry point: run operations under the policy for a string key on
// the shared default executor, or drive a schedule directly.
package cadence

import (
	"context"

	"github.com/aponysus/cadence/observe"
	"github.com/aponysus/cadence/policy"
	"github.com/aponysus/cadence/retry"
	"github.com/aponysus/cadence/schedule"
)

// Key is the structured form of a policy key.
type Key = policy.PolicyKey

// ParseKey parses "namespace.name" into a Key.
func ParseKey(s string) Key { return policy.ParseKey(s) }

// Init installs exec as the executor behind Do and DoValue. It only takes effect before their
// first use and reports whether it did.
func Init(exec *retry.Executor) bool {
	return retry.SetGlobal(exec)
}

// Do executes op using the default executor and the policy for key.
func Do(ctx context.Context, key string, op retry.Operation) error {
	return retry.DefaultExecutor().Do(ctx, policy.ParseKey(key), op)
}

// DoValue executes op using the default executor and the policy for key.
func DoValue[T any](ctx context.Context, key string, op retry.OperationValue[T]) (T, error) {
	return retry.DoValue(ctx, retry.DefaultExecutor(), policy.ParseKey(key), op)
}

// DoWithTimeline executes op using the default executor and returns the call's timeline.
func DoWithTimeline(ctx context.Context, key string, op retry.Operation) (observe.Timeline, error) {
	_, tl, err := retry.DoValueWithTimeline(ctx, retry.DefaultExecutor(), policy.ParseKey(key), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return tl, err
}

// Repeat runs op on the schedule using the clock in ctx. See retry.Repeat.
func Repeat[S, A, Out any](ctx context.Context, sched schedule.Schedule[S, A, Out], op retry.Effect[A]) (Out, error) {
	return retry.Repeat(ctx, nil, sched, op)
}

// Retry runs op until it succeeds or the schedule is done, using the clock in ctx. See retry.Retry.
func Retry[S, A, Out any](ctx context.Context, sched schedule.Schedule[S, error, Out], op retry.Effect[A]) (A, error) {
	return retry.Retry(ctx, nil, sched, op)
}
