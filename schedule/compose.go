package schedule

import (
	"context"

	"github.com/aponysus/cadence/decision"
	"github.com/aponysus/cadence/interval"
)

// MergeFunc combines the candidate windows of two continuing schedules.
type MergeFunc func(a, b interval.Interval) interval.Interval

// IntersectWith steps a and b with the same time and input and continues only while both do.
//
// If either side is Done the result is Done. Otherwise the earliest windows of both sides are
// combined with merge.
func IntersectWith[S1, S2, In, O1, O2 any](a Schedule[S1, In, O1], b Schedule[S2, In, O2], merge MergeFunc) Schedule[Pair[S1, S2], In, Pair[O1, O2]] {
	return New(PairOf(a.initial, b.initial), func(ctx context.Context, now int64, in In, state Pair[S1, S2]) (Pair[S1, S2], Pair[O1, O2], decision.Decision, error) {
		s1, o1, d1, s2, o2, d2, err := stepBoth(ctx, now, in, in, a, b, state)
		next, out := PairOf(s1, s2), PairOf(o1, o2)
		if err != nil {
			return next, out, decision.Done, err
		}
		if d1.IsDone() || d2.IsDone() {
			return next, out, decision.Done, nil
		}
		return next, out, decision.ContinueWith(merge(d1.Interval(), d2.Interval())), nil
	})
}

// UnionWith steps a and b with the same time and input and continues while either does.
//
// The result is Done only when both sides are Done. When one side is Done the other side's
// decision passes through unchanged; when both continue their earliest windows are combined with
// merge.
func UnionWith[S1, S2, In, O1, O2 any](a Schedule[S1, In, O1], b Schedule[S2, In, O2], merge MergeFunc) Schedule[Pair[S1, S2], In, Pair[O1, O2]] {
	return New(PairOf(a.initial, b.initial), func(ctx context.Context, now int64, in In, state Pair[S1, S2]) (Pair[S1, S2], Pair[O1, O2], decision.Decision, error) {
		s1, o1, d1, s2, o2, d2, err := stepBoth(ctx, now, in, in, a, b, state)
		next, out := PairOf(s1, s2), PairOf(o1, o2)
		switch {
		case err != nil:
			return next, out, decision.Done, err
		case d1.IsDone() && d2.IsDone():
			return next, out, decision.Done, nil
		case d1.IsDone():
			return next, out, d2, nil
		case d2.IsDone():
			return next, out, d1, nil
		}
		return next, out, decision.ContinueWith(merge(d1.Interval(), d2.Interval())), nil
	})
}

// Zip continues while both a and b continue, waiting for the window both agree on (or the later
// one when their windows do not overlap).
func Zip[S1, S2, In, O1, O2 any](a Schedule[S1, In, O1], b Schedule[S2, In, O2]) Schedule[Pair[S1, S2], In, Pair[O1, O2]] {
	return IntersectWith(a, b, interval.IntersectOrMax)
}

// ZipLeft is Zip keeping only a's output.
func ZipLeft[S1, S2, In, O1, O2 any](a Schedule[S1, In, O1], b Schedule[S2, In, O2]) Schedule[Pair[S1, S2], In, O1] {
	return Map(Zip(a, b), func(p Pair[O1, O2]) O1 { return p.First })
}

// ZipRight is Zip keeping only b's output.
func ZipRight[S1, S2, In, O1, O2 any](a Schedule[S1, In, O1], b Schedule[S2, In, O2]) Schedule[Pair[S1, S2], In, O2] {
	return Map(Zip(a, b), func(p Pair[O1, O2]) O2 { return p.Second })
}

// Or continues while either a or b continues, preferring the shared window and otherwise the
// earlier one.
func Or[S1, S2, In, O1, O2 any](a Schedule[S1, In, O1], b Schedule[S2, In, O2]) Schedule[Pair[S1, S2], In, Pair[O1, O2]] {
	return UnionWith(a, b, interval.UnionOrMin)
}

// Race continues while either side continues and keeps both candidate windows when they do not
// overlap, so the resulting decision may carry several intervals.
func Race[S1, S2, In, O1, O2 any](a Schedule[S1, In, O1], b Schedule[S2, In, O2]) Schedule[Pair[S1, S2], In, Pair[O1, O2]] {
	return New(PairOf(a.initial, b.initial), func(ctx context.Context, now int64, in In, state Pair[S1, S2]) (Pair[S1, S2], Pair[O1, O2], decision.Decision, error) {
		s1, o1, d1, s2, o2, d2, err := stepBoth(ctx, now, in, in, a, b, state)
		if err != nil {
			return PairOf(s1, s2), PairOf(o1, o2), decision.Done, err
		}
		return PairOf(s1, s2), PairOf(o1, o2), decision.Merge(d1, d2), nil
	})
}

// BothInOut runs a and b side by side on paired inputs, emitting paired outputs.
//
// It continues only while both continue. Their windows merge to the shared window when they
// overlap and to the earlier one otherwise, so the pair is never slower than its faster side.
func BothInOut[S1, S2, In1, In2, O1, O2 any](a Schedule[S1, In1, O1], b Schedule[S2, In2, O2]) Schedule[Pair[S1, S2], Pair[In1, In2], Pair[O1, O2]] {
	return New(PairOf(a.initial, b.initial), func(ctx context.Context, now int64, in Pair[In1, In2], state Pair[S1, S2]) (Pair[S1, S2], Pair[O1, O2], decision.Decision, error) {
		s1, o1, d1, s2, o2, d2, err := stepBoth(ctx, now, in.First, in.Second, a, b, state)
		next, out := PairOf(s1, s2), PairOf(o1, o2)
		if err != nil {
			return next, out, decision.Done, err
		}
		if d1.IsDone() || d2.IsDone() {
			return next, out, decision.Done, nil
		}
		return next, out, decision.ContinueWith(interval.UnionOrMin(d1.Interval(), d2.Interval())), nil
	})
}

// AndThenState tracks which side of an AndThen is running.
type AndThenState[S1, S2 any] struct {
	First   S1
	Second  S2
	OnRight bool
}

// AndThen runs a until it is Done, then continues with b within the same step.
func AndThen[S1, S2, In, O1, O2 any](a Schedule[S1, In, O1], b Schedule[S2, In, O2]) Schedule[AndThenState[S1, S2], In, Either[O1, O2]] {
	initial := AndThenState[S1, S2]{First: a.initial, Second: b.initial}
	return New(initial, func(ctx context.Context, now int64, in In, state AndThenState[S1, S2]) (AndThenState[S1, S2], Either[O1, O2], decision.Decision, error) {
		if !state.OnRight {
			s1, o1, d1, err := a.Step(ctx, now, in, state.First)
			state.First = s1
			if err != nil {
				return state, LeftOf[O1, O2](o1), decision.Done, err
			}
			if !d1.IsDone() {
				return state, LeftOf[O1, O2](o1), d1, nil
			}
			state.OnRight = true
		}
		s2, o2, d2, err := b.Step(ctx, now, in, state.Second)
		state.Second = s2
		return state, RightOf[O1](o2), d2, err
	})
}

// AndThenSame is AndThen for two schedules with the same output type.
func AndThenSame[S1, S2, In, Out any](a Schedule[S1, In, Out], b Schedule[S2, In, Out]) Schedule[AndThenState[S1, S2], In, Out] {
	return Map(AndThen(a, b), func(e Either[Out, Out]) Out {
		if e.IsRight {
			return e.Right
		}
		return e.Left
	})
}

// Choose routes Left inputs to l and Right inputs to r. The side not chosen keeps its state.
func Choose[S1, S2, In1, In2, O1, O2 any](l Schedule[S1, In1, O1], r Schedule[S2, In2, O2]) Schedule[Pair[S1, S2], Either[In1, In2], Either[O1, O2]] {
	return New(PairOf(l.initial, r.initial), func(ctx context.Context, now int64, in Either[In1, In2], state Pair[S1, S2]) (Pair[S1, S2], Either[O1, O2], decision.Decision, error) {
		if in.IsRight {
			s2, o2, d, err := r.Step(ctx, now, in.Right, state.Second)
			return PairOf(state.First, s2), RightOf[O1](o2), d, err
		}
		s1, o1, d, err := l.Step(ctx, now, in.Left, state.First)
		return PairOf(s1, state.Second), LeftOf[O1, O2](o1), d, err
	})
}

// Left lifts s to the Left side of an Either, echoing Right values of type C immediately.
func Left[C, S, In, Out any](s Schedule[S, In, Out]) Schedule[Pair[S, struct{}], Either[In, C], Either[Out, C]] {
	return Choose(s, Identity[C]())
}

// Right lifts s to the Right side of an Either, echoing Left values of type C immediately.
func Right[C, S, In, Out any](s Schedule[S, In, Out]) Schedule[Pair[struct{}, S], Either[C, In], Either[C, Out]] {
	return Choose(Identity[C](), s)
}

func stepBoth[S1, S2, In1, In2, O1, O2 any](
	ctx context.Context,
	now int64,
	in1 In1,
	in2 In2,
	a Schedule[S1, In1, O1],
	b Schedule[S2, In2, O2],
	state Pair[S1, S2],
) (S1, O1, decision.Decision, S2, O2, decision.Decision, error) {
	s1, o1, d1, err := a.Step(ctx, now, in1, state.First)
	if err != nil {
		var o2 O2
		return s1, o1, decision.Done, state.Second, o2, decision.Done, err
	}
	s2, o2, d2, err := b.Step(ctx, now, in2, state.Second)
	return s1, o1, d1, s2, o2, d2, err
}
