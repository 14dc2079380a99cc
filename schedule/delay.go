package schedule

import (
	"context"
	"math"
	"time"

	"github.com/aponysus/cadence/decision"
	"github.com/aponysus/cadence/interval"
)

// ModifyDelay replaces the delay of every Continue decision with f(out, delay).
//
// The delay is the distance from now to the start of the earliest candidate window. Negative
// results are treated as zero.
func ModifyDelay[S, In, Out any](s Schedule[S, In, Out], f func(out Out, delay time.Duration) time.Duration) Schedule[S, In, Out] {
	return ModifyDelayEffect(s, func(_ context.Context, out Out, d time.Duration) time.Duration { return f(out, d) })
}

// ModifyDelayEffect is ModifyDelay with access to the environment in ctx.
func ModifyDelayEffect[S, In, Out any](s Schedule[S, In, Out], f func(ctx context.Context, out Out, delay time.Duration) time.Duration) Schedule[S, In, Out] {
	return New(s.initial, func(ctx context.Context, now int64, in In, state S) (S, Out, decision.Decision, error) {
		next, out, d, err := s.Step(ctx, now, in, state)
		if err != nil || d.IsDone() {
			return next, out, d, err
		}
		delay := f(ctx, out, delayOf(now, d))
		return next, out, reschedule(now, d, delay), nil
	})
}

// AddDelay adds f(out) to the delay of every Continue decision.
func AddDelay[S, In, Out any](s Schedule[S, In, Out], f func(Out) time.Duration) Schedule[S, In, Out] {
	return ModifyDelay(s, func(out Out, d time.Duration) time.Duration { return addDuration(d, f(out)) })
}

// Delayed transforms the delay of every Continue decision with f.
func Delayed[S, In, Out any](s Schedule[S, In, Out], f func(time.Duration) time.Duration) Schedule[S, In, Out] {
	return ModifyDelay(s, func(_ Out, d time.Duration) time.Duration { return f(d) })
}

// DelayedByOutput adds each output to the delay, turning a schedule of durations into a schedule
// that waits for them.
func DelayedByOutput[S, In any](s Schedule[S, In, time.Duration]) Schedule[S, In, time.Duration] {
	return AddDelay(s, func(d time.Duration) time.Duration { return d })
}

// MaxDelay caps every delay at limit.
func MaxDelay[S, In, Out any](s Schedule[S, In, Out], limit time.Duration) Schedule[S, In, Out] {
	return Delayed(s, func(d time.Duration) time.Duration { return min(d, limit) })
}

// Delays emits the delay chosen by each step instead of s's output.
func Delays[S, In, Out any](s Schedule[S, In, Out]) Schedule[S, In, time.Duration] {
	return New(s.initial, func(ctx context.Context, now int64, in In, state S) (S, time.Duration, decision.Decision, error) {
		next, _, d, err := s.Step(ctx, now, in, state)
		if err != nil || d.IsDone() {
			return next, 0, d, err
		}
		return next, delayOf(now, d), d, nil
	})
}

// Jittered randomizes every delay within [0.8, 1.2] of its value.
func Jittered[S, In, Out any](s Schedule[S, In, Out]) Schedule[S, In, Out] {
	return JitteredWith(s, 0.8, 1.2)
}

// JitteredWith randomizes every delay d to d*lo*(1-r) + d*hi*r for a fresh r in [0, 1) drawn from
// the Random in the environment on every step.
//
// Decisions have millisecond resolution, so the result is rounded to a whole millisecond that
// stays within [d*lo, d*hi] whenever that range contains one.
func JitteredWith[S, In, Out any](s Schedule[S, In, Out], lo, hi float64) Schedule[S, In, Out] {
	if lo > hi {
		lo, hi = hi, lo
	}
	return ModifyDelayEffect(s, func(ctx context.Context, _ Out, d time.Duration) time.Duration {
		r := RandomFrom(ctx).Float64()
		base := float64(d) / float64(time.Millisecond)
		ms := math.Round(base*lo*(1-r) + base*hi*r)
		if lowest, highest := math.Ceil(base*lo-1e-9), math.Floor(base*hi+1e-9); lowest <= highest {
			ms = min(max(ms, lowest), highest)
		}
		return floatMillis(ms)
	})
}

func delayOf(now int64, d decision.Decision) time.Duration {
	if d.IsDone() {
		return 0
	}
	return millis(max(d.Start()-now, 0))
}

// reschedule moves the earliest window so it starts delay after now, keeping its width.
func reschedule(now int64, d decision.Decision, delay time.Duration) decision.Decision {
	if delay < 0 {
		delay = 0
	}
	iv := d.Interval()
	start := min(now+roundMillis(delay), interval.MaxSafeInteger)
	end := iv.End
	if end != interval.MaxSafeInteger {
		end = start + max(iv.End-iv.Start, 0)
	}
	return d.WithInterval(interval.Make(start, end))
}

// millis converts whole milliseconds to a Duration, saturating at the largest Duration.
func millis(ms int64) time.Duration {
	if ms > maxDurationMillis {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ms) * time.Millisecond
}

const maxDurationMillis = int64(math.MaxInt64 / int64(time.Millisecond))

func floatMillis(ms float64) time.Duration {
	if ms <= 0 || math.IsNaN(ms) {
		return 0
	}
	if ms >= float64(maxDurationMillis) {
		return time.Duration(math.MaxInt64)
	}
	return millis(int64(ms))
}

// addDuration returns a+b, saturating instead of wrapping on overflow.
func addDuration(a, b time.Duration) time.Duration {
	sum := a + b
	switch {
	case a > 0 && b > 0 && sum < 0:
		return time.Duration(math.MaxInt64)
	case a < 0 && b < 0 && sum >= 0:
		return time.Duration(math.MinInt64)
	}
	return sum
}

func roundMillis(d time.Duration) int64 {
	return int64(math.Round(float64(d) / float64(time.Millisecond)))
}

func scaleDuration(d time.Duration, f float64) time.Duration {
	v := float64(d) * f
	if v >= math.MaxInt64 || math.IsInf(v, 1) || math.IsNaN(v) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(v)
}

func pow(base float64, n int64) float64 {
	return math.Pow(base, float64(n))
}
