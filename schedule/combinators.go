package schedule

import (
	"context"
	"slices"

	"github.com/aponysus/cadence/decision"
)

// Map transforms every output with f.
func Map[S, In, A, B any](s Schedule[S, In, A], f func(A) B) Schedule[S, In, B] {
	return New(s.initial, func(ctx context.Context, now int64, in In, state S) (S, B, decision.Decision, error) {
		next, out, d, err := s.Step(ctx, now, in, state)
		if err != nil {
			var zero B
			return next, zero, d, err
		}
		return next, f(out), d, nil
	})
}

// As replaces every output with v.
func As[S, In, A, B any](s Schedule[S, In, A], v B) Schedule[S, In, B] {
	return Map(s, func(A) B { return v })
}

// Contramap transforms every input with f before it reaches s.
func Contramap[S, In0, In, Out any](s Schedule[S, In, Out], f func(In0) In) Schedule[S, In0, Out] {
	return New(s.initial, func(ctx context.Context, now int64, in In0, state S) (S, Out, decision.Decision, error) {
		return s.Step(ctx, now, f(in), state)
	})
}

// TapOutput runs f on every output without changing the decision.
func TapOutput[S, In, Out any](s Schedule[S, In, Out], f func(ctx context.Context, out Out)) Schedule[S, In, Out] {
	return New(s.initial, func(ctx context.Context, now int64, in In, state S) (S, Out, decision.Decision, error) {
		next, out, d, err := s.Step(ctx, now, in, state)
		if err == nil {
			f(ctx, out)
		}
		return next, out, d, err
	})
}

// TapInput runs f on every input before stepping s.
func TapInput[S, In, Out any](s Schedule[S, In, Out], f func(ctx context.Context, in In)) Schedule[S, In, Out] {
	return New(s.initial, func(ctx context.Context, now int64, in In, state S) (S, Out, decision.Decision, error) {
		f(ctx, in)
		return s.Step(ctx, now, in, state)
	})
}

// Check continues only while pred holds for the input and output; otherwise it forces Done.
func Check[S, In, Out any](s Schedule[S, In, Out], pred func(in In, out Out) bool) Schedule[S, In, Out] {
	return CheckEffect(s, func(_ context.Context, in In, out Out) bool { return pred(in, out) })
}

// CheckEffect is Check with a predicate that may consult the environment in ctx.
func CheckEffect[S, In, Out any](s Schedule[S, In, Out], pred func(ctx context.Context, in In, out Out) bool) Schedule[S, In, Out] {
	return New(s.initial, func(ctx context.Context, now int64, in In, state S) (S, Out, decision.Decision, error) {
		next, out, d, err := s.Step(ctx, now, in, state)
		if err != nil || d.IsDone() {
			return next, out, d, err
		}
		if !pred(ctx, in, out) {
			return next, out, decision.Done, nil
		}
		return next, out, d, nil
	})
}

// WhileInput continues while pred holds for the input.
func WhileInput[S, In, Out any](s Schedule[S, In, Out], pred func(In) bool) Schedule[S, In, Out] {
	return Check(s, func(in In, _ Out) bool { return pred(in) })
}

// WhileOutput continues while pred holds for the output.
func WhileOutput[S, In, Out any](s Schedule[S, In, Out], pred func(Out) bool) Schedule[S, In, Out] {
	return Check(s, func(_ In, out Out) bool { return pred(out) })
}

// UntilInput continues until pred holds for the input.
func UntilInput[S, In, Out any](s Schedule[S, In, Out], pred func(In) bool) Schedule[S, In, Out] {
	return Check(s, func(in In, _ Out) bool { return !pred(in) })
}

// UntilOutput continues until pred holds for the output.
func UntilOutput[S, In, Out any](s Schedule[S, In, Out], pred func(Out) bool) Schedule[S, In, Out] {
	return Check(s, func(_ In, out Out) bool { return !pred(out) })
}

// WhileInputEffect continues while the effectful pred holds for the input.
func WhileInputEffect[S, In, Out any](s Schedule[S, In, Out], pred func(context.Context, In) bool) Schedule[S, In, Out] {
	return CheckEffect(s, func(ctx context.Context, in In, _ Out) bool { return pred(ctx, in) })
}

// WhileOutputEffect continues while the effectful pred holds for the output.
func WhileOutputEffect[S, In, Out any](s Schedule[S, In, Out], pred func(context.Context, Out) bool) Schedule[S, In, Out] {
	return CheckEffect(s, func(ctx context.Context, _ In, out Out) bool { return pred(ctx, out) })
}

// UntilInputEffect continues until the effectful pred holds for the input.
func UntilInputEffect[S, In, Out any](s Schedule[S, In, Out], pred func(context.Context, In) bool) Schedule[S, In, Out] {
	return CheckEffect(s, func(ctx context.Context, in In, _ Out) bool { return !pred(ctx, in) })
}

// UntilOutputEffect continues until the effectful pred holds for the output.
func UntilOutputEffect[S, In, Out any](s Schedule[S, In, Out], pred func(context.Context, Out) bool) Schedule[S, In, Out] {
	return CheckEffect(s, func(ctx context.Context, _ In, out Out) bool { return !pred(ctx, out) })
}

// CollectAll accumulates every output of a continuing step, emitting the accumulated slice.
//
// A Done step emits the accumulation unchanged. Accumulated slices are never shared between
// states, so replaying an earlier state reproduces the same outputs.
func CollectAll[S, In, Out any](s Schedule[S, In, Out]) Schedule[Pair[S, []Out], In, []Out] {
	return New(PairOf(s.initial, []Out(nil)), func(ctx context.Context, now int64, in In, state Pair[S, []Out]) (Pair[S, []Out], []Out, decision.Decision, error) {
		next, out, d, err := s.Step(ctx, now, in, state.First)
		if err != nil || d.IsDone() {
			return PairOf(next, state.Second), state.Second, d, err
		}
		acc := append(slices.Clip(state.Second), out)
		return PairOf(next, acc), acc, d, nil
	})
}

// Fold folds outputs of continuing steps into z with f, emitting the accumulator.
func Fold[S, In, Out, Z any](s Schedule[S, In, Out], z Z, f func(Z, Out) Z) Schedule[Pair[S, Z], In, Z] {
	return New(PairOf(s.initial, z), func(ctx context.Context, now int64, in In, state Pair[S, Z]) (Pair[S, Z], Z, decision.Decision, error) {
		next, out, d, err := s.Step(ctx, now, in, state.First)
		if err != nil || d.IsDone() {
			return PairOf(next, state.Second), state.Second, d, err
		}
		acc := f(state.Second, out)
		return PairOf(next, acc), acc, d, nil
	})
}

// Repetitions emits how many times s has decided to continue.
func Repetitions[S, In, Out any](s Schedule[S, In, Out]) Schedule[Pair[S, int64], In, int64] {
	return Fold(s, int64(0), func(n int64, _ Out) int64 { return n + 1 })
}
