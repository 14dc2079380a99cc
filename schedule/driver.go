package schedule

import (
	"context"

	"github.com/aponysus/cadence/clock"
)

// Driver steps a schedule against a clock, sleeping until each decision's start.
//
// A Driver owns a single cell holding the schedule state and the last output. It is not safe for
// concurrent use; give each goroutine its own Driver.
type Driver[S, In, Out any] struct {
	schedule Schedule[S, In, Out]
	clock    clock.Clock

	state   S
	last    Out
	hasLast bool
}

// NewDriver returns a Driver for s. A nil clock means clock.Live.
func NewDriver[S, In, Out any](s Schedule[S, In, Out], c clock.Clock) *Driver[S, In, Out] {
	if c == nil {
		c = clock.Live{}
	}
	return &Driver[S, In, Out]{schedule: s, clock: c, state: s.initial}
}

// Next feeds in to the schedule. When the schedule continues, Next sleeps until the start of the
// decision's interval and returns the output. When the schedule is done, Next returns the output
// together with ErrNoMoreDecisions.
//
// The state and last output are recorded before sleeping, so a canceled sleep leaves the Driver
// positioned after the step.
func (d *Driver[S, In, Out]) Next(ctx context.Context, in In) (Out, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	now := d.clock.CurrentTime(ctx)
	state, out, dec, err := d.schedule.Step(ctx, now, in, d.state)
	if err != nil {
		var zero Out
		return zero, err
	}
	d.state = state
	d.last = out
	d.hasLast = true

	if dec.IsDone() {
		return out, ErrNoMoreDecisions
	}
	if err := d.clock.Sleep(ctx, millis(max(dec.Start()-now, 0))); err != nil {
		return out, err
	}
	return out, nil
}

// Last returns the most recent output, or ErrNoSuchElement if the schedule has not produced one.
func (d *Driver[S, In, Out]) Last() (Out, error) {
	if !d.hasLast {
		var zero Out
		return zero, ErrNoSuchElement
	}
	return d.last, nil
}

// Reset returns the Driver to the schedule's initial state and forgets the last output.
func (d *Driver[S, In, Out]) Reset() {
	var zero Out
	d.state = d.schedule.initial
	d.last = zero
	d.hasLast = false
}

// State returns the current schedule state.
func (d *Driver[S, In, Out]) State() S {
	return d.state
}
