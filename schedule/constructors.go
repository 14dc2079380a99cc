package schedule

import (
	"context"
	"time"

	"github.com/aponysus/cadence/decision"
	"github.com/aponysus/cadence/interval"
)

// Identity recurs forever, immediately, echoing each input.
func Identity[A any]() Schedule[struct{}, A, A] {
	return New(struct{}{}, func(_ context.Context, now int64, in A, state struct{}) (struct{}, A, decision.Decision, error) {
		return state, in, decision.ContinueWith(interval.After(now)), nil
	})
}

// Succeed recurs forever, immediately, always emitting v.
func Succeed[In, A any](v A) Schedule[struct{}, In, A] {
	return New(struct{}{}, func(_ context.Context, now int64, _ In, state struct{}) (struct{}, A, decision.Decision, error) {
		return state, v, decision.ContinueWith(interval.After(now)), nil
	})
}

// Unfold recurs forever, immediately, emitting initial, f(initial), f(f(initial)), ...
func Unfold[In, A any](initial A, f func(A) A) Schedule[A, In, A] {
	return New(initial, func(_ context.Context, now int64, _ In, state A) (A, A, decision.Decision, error) {
		return f(state), state, decision.ContinueWith(interval.After(now)), nil
	})
}

// Forever recurs immediately without end, emitting the repetition count starting at zero.
func Forever[In any]() Schedule[int64, In, int64] {
	return Unfold[In](int64(0), func(n int64) int64 { return n + 1 })
}

// Recurs allows n recurrences. Zero or negative n stops on the first step.
func Recurs[In any](n int) Schedule[int64, In, int64] {
	return WhileOutput(Forever[In](), func(count int64) bool { return count < int64(n) })
}

// Stop is Done on its very first step.
func Stop[In any]() Schedule[int64, In, struct{}] {
	return As(Recurs[In](0), struct{}{})
}

// Once allows a single recurrence.
func Once[In any]() Schedule[int64, In, struct{}] {
	return As(Recurs[In](1), struct{}{})
}

// Spaced recurs forever, waiting d after each step, emitting the repetition count.
func Spaced[In any](d time.Duration) Schedule[int64, In, int64] {
	return AddDelay(Forever[In](), func(int64) time.Duration { return d })
}

// Linear recurs forever with delays base, 2*base, 3*base, ..., emitting the delay.
func Linear[In any](base time.Duration) Schedule[int64, In, time.Duration] {
	return DelayedByOutput(Map(Forever[In](), func(n int64) time.Duration {
		return scaleDuration(base, float64(n+1))
	}))
}

// Exponential recurs forever with delays base*factor^n, emitting the delay.
func Exponential[In any](base time.Duration, factor float64) Schedule[int64, In, time.Duration] {
	return DelayedByOutput(Map(Forever[In](), func(n int64) time.Duration {
		return scaleDuration(base, pow(factor, n))
	}))
}

// Fibonacci recurs forever with delays one, one, 2*one, 3*one, 5*one, ..., emitting the delay.
func Fibonacci[In any](one time.Duration) Schedule[Pair[time.Duration, time.Duration], In, time.Duration] {
	seed := PairOf(one, one)
	return DelayedByOutput(Map(
		Unfold[In](seed, func(p Pair[time.Duration, time.Duration]) Pair[time.Duration, time.Duration] {
			return PairOf(p.Second, addDuration(p.First, p.Second))
		}),
		func(p Pair[time.Duration, time.Duration]) time.Duration { return p.First },
	))
}

// FromDelays recurs once per delay, in order, emitting the delay used.
func FromDelays[In any](first time.Duration, rest ...time.Duration) Schedule[int, In, time.Duration] {
	delays := append([]time.Duration{first}, rest...)
	return New(0, func(_ context.Context, now int64, _ In, i int) (int, time.Duration, decision.Decision, error) {
		if i >= len(delays) {
			return i, delays[len(delays)-1], decision.Done, nil
		}
		d := delays[i]
		return i + 1, d, reschedule(now, decision.ContinueWith(interval.After(now)), d), nil
	})
}

// ElapsedState remembers when a run started.
type ElapsedState struct {
	Started bool
	Start   int64
}

// Elapsed recurs forever, immediately, emitting the time since the first step.
func Elapsed[In any]() Schedule[ElapsedState, In, time.Duration] {
	return New(ElapsedState{}, func(_ context.Context, now int64, _ In, state ElapsedState) (ElapsedState, time.Duration, decision.Decision, error) {
		if !state.Started {
			state = ElapsedState{Started: true, Start: now}
		}
		return state, millis(now - state.Start), decision.ContinueWith(interval.After(now)), nil
	})
}

// UpTo recurs immediately until d has elapsed since the first step, emitting the elapsed time.
func UpTo[In any](d time.Duration) Schedule[ElapsedState, In, time.Duration] {
	return WhileOutput(Elapsed[In](), func(elapsed time.Duration) bool { return elapsed < d })
}

// FixedState tracks the alignment of a Fixed schedule.
type FixedState struct {
	Started bool
	Start   int64
	LastRun int64
	Count   int64
}

// Fixed recurs on a fixed period aligned to the first step, emitting the repetition count.
//
// When a run overruns the period the next recurrence happens immediately and later runs realign to
// the original boundaries; missed boundaries are not replayed.
func Fixed[In any](period time.Duration) Schedule[FixedState, In, int64] {
	p := period.Milliseconds()
	return New(FixedState{}, func(_ context.Context, now int64, _ In, state FixedState) (FixedState, int64, decision.Decision, error) {
		if !state.Started {
			next := now + p
			return FixedState{Started: true, Start: now, LastRun: next, Count: 1}, 0, decision.ContinueWith(interval.After(next)), nil
		}
		runningBehind := now > state.LastRun+p
		var sleep int64
		if p > 0 {
			sleep = p - (now-state.Start)%p
			if sleep == 0 {
				sleep = p
			}
		}
		next := now + sleep
		if runningBehind {
			next = now
		}
		out := state.Count
		state.LastRun = next
		state.Count++
		return state, out, decision.ContinueWith(interval.After(next)), nil
	})
}

// RecurWhile recurs immediately while pred holds for the input, echoing the input.
func RecurWhile[A any](pred func(A) bool) Schedule[struct{}, A, A] {
	return WhileInput(Identity[A](), pred)
}

// RecurUntil recurs immediately until pred holds for the input, echoing the input.
func RecurUntil[A any](pred func(A) bool) Schedule[struct{}, A, A] {
	return UntilInput(Identity[A](), pred)
}
