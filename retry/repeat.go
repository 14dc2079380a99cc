package retry

import (
	"context"
	"errors"

	"github.com/aponysus/cadence/clock"
	"github.com/aponysus/cadence/schedule"
)

// Effect is an action driven by a schedule.
type Effect[A any] func(ctx context.Context) (A, error)

// Repeat runs op once, then again every time sched continues after being fed op's result.
//
// When the schedule is done Repeat returns the schedule's last output; a schedule that recurs n
// times therefore runs op n+1 times. The first failure of op is returned as is. A nil clock reads
// the clock installed in ctx with clock.WithClock, falling back to clock.Live.
func Repeat[S, A, Out any](ctx context.Context, c clock.Clock, sched schedule.Schedule[S, A, Out], op Effect[A]) (Out, error) {
	return RepeatOrElse(ctx, c, sched, op, func(_ context.Context, err error, out Out, _ bool) (Out, error) {
		return out, err
	})
}

// RepeatOrElse is Repeat that hands a failure of op to orElse together with the schedule's last
// output, if there is one.
func RepeatOrElse[S, A, Out any](
	ctx context.Context,
	c clock.Clock,
	sched schedule.Schedule[S, A, Out],
	op Effect[A],
	orElse func(ctx context.Context, err error, last Out, hasLast bool) (Out, error),
) (Out, error) {
	ctx, drv := start(ctx, c, sched)
	for {
		a, err := op(ctx)
		if err != nil {
			last, lastErr := drv.Last()
			return orElse(ctx, err, last, lastErr == nil)
		}
		out, err := drv.Next(ctx, a)
		if errors.Is(err, schedule.ErrNoMoreDecisions) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}

// Retry runs op until it succeeds, feeding every failure to sched. When the schedule is done the
// last failure of op is returned.
func Retry[S, A, Out any](ctx context.Context, c clock.Clock, sched schedule.Schedule[S, error, Out], op Effect[A]) (A, error) {
	return RetryOrElse(ctx, c, sched, op, func(_ context.Context, err error, _ Out) (A, error) {
		var zero A
		return zero, err
	})
}

// RetryOrElse is Retry that hands the last failure and the schedule's final output to orElse once
// the schedule is done.
//
// Errors that are not failures of op, such as a canceled sleep or a schedule defect, are returned
// without calling orElse.
func RetryOrElse[S, A, Out any](
	ctx context.Context,
	c clock.Clock,
	sched schedule.Schedule[S, error, Out],
	op Effect[A],
	orElse func(ctx context.Context, err error, out Out) (A, error),
) (A, error) {
	ctx, drv := start(ctx, c, sched)
	var zero A
	for {
		a, opErr := op(ctx)
		if opErr == nil {
			return a, nil
		}
		out, err := drv.Next(ctx, opErr)
		if errors.Is(err, schedule.ErrNoMoreDecisions) {
			return orElse(ctx, opErr, out)
		}
		if err != nil {
			return zero, err
		}
	}
}

func start[S, In, Out any](ctx context.Context, c clock.Clock, sched schedule.Schedule[S, In, Out]) (context.Context, *schedule.Driver[S, In, Out]) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c == nil {
		c = clock.Proxy{}
	}
	return ctx, schedule.NewDriver(sched, c)
}
