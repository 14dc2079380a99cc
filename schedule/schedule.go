// Package schedule implements composable recurrence policies.
//
// A Schedule is an immutable description: an initial state plus a step function that, given the
// current time, an input and the previous state, returns the next state, an output and a
// decision.Decision. Schedules never read the clock; the time always arrives as a parameter, which
// is what keeps every combinator deterministic and testable. A Driver threads the state and turns
// Continue decisions into sleeps on a clock.Clock.
//
// Steps never fail with a domain error. The error result of a step is reserved for defects such as
// an out-of-range calendar argument (see IllegalArgumentError); stopping is always expressed with
// decision.Done.
package schedule

import (
	"context"
	"fmt"

	"github.com/aponysus/cadence/clock"
	"github.com/aponysus/cadence/decision"
)

// StepFunc advances a schedule by one decision.
//
// now is in milliseconds since the Unix epoch. ctx carries the environment (see ProvideEnvironment).
type StepFunc[S, In, Out any] func(ctx context.Context, now int64, in In, state S) (S, Out, decision.Decision, error)

// Schedule is a recurrence policy with state type S that consumes In and produces Out.
type Schedule[S, In, Out any] struct {
	initial S
	step    StepFunc[S, In, Out]
}

// New builds a Schedule from an initial state and a step function.
func New[S, In, Out any](initial S, step StepFunc[S, In, Out]) Schedule[S, In, Out] {
	return Schedule[S, In, Out]{initial: initial, step: step}
}

// Initial returns the state a fresh run starts from.
func (s Schedule[S, In, Out]) Initial() S { return s.initial }

// Step runs one step. A nil step function behaves like Stop.
func (s Schedule[S, In, Out]) Step(ctx context.Context, now int64, in In, state S) (S, Out, decision.Decision, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.step == nil {
		var zero Out
		return state, zero, decision.Done, nil
	}
	return s.step(ctx, now, in, state)
}

// Run threads inputs through the schedule starting at now and returns the outputs.
//
// After a Continue the next step sees the decision's start as its time. The output of the first
// Done step is included and no further inputs are consumed.
func (s Schedule[S, In, Out]) Run(ctx context.Context, now int64, inputs []In) ([]Out, error) {
	outs := make([]Out, 0, len(inputs))
	state := s.initial
	for _, in := range inputs {
		next, out, d, err := s.Step(ctx, now, in, state)
		if err != nil {
			return outs, err
		}
		outs = append(outs, out)
		if d.IsDone() {
			break
		}
		state = next
		now = d.Start()
	}
	return outs, nil
}

// Driver returns a fresh Driver for s that reads and sleeps on c.
func (s Schedule[S, In, Out]) Driver(c clock.Clock) *Driver[S, In, Out] {
	return NewDriver(s, c)
}

// Erase hides the state type so schedules assembled at runtime can share one type.
func Erase[S, In, Out any](s Schedule[S, In, Out]) Schedule[any, In, Out] {
	return New[any, In, Out](s.initial, func(ctx context.Context, now int64, in In, state any) (any, Out, decision.Decision, error) {
		st, ok := state.(S)
		if !ok && state != nil {
			var zero Out
			return state, zero, decision.Done, fmt.Errorf("schedule: erased state has type %T", state)
		}
		next, out, d, err := s.Step(ctx, now, in, st)
		return next, out, d, err
	})
}
