package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMoreDecisions is the control signal a Driver returns when its schedule says Done.
	// It is not a failure of the scheduled work.
	ErrNoMoreDecisions = errors.New("cadence: no more decisions")

	// ErrNoSuchElement is returned by Driver.Last before any output was produced.
	ErrNoSuchElement = errors.New("cadence: no such element")

	// ErrIllegalArgument marks defects caused by invalid combinator arguments.
	ErrIllegalArgument = errors.New("cadence: illegal argument")
)

// IllegalArgumentError is the defect a step reports for arguments it cannot honor.
type IllegalArgumentError struct {
	Op    string
	Value int
	Want  string
}

func (e *IllegalArgumentError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("cadence: illegal argument to %s: %d (want %s)", e.Op, e.Value, e.Want)
}

func (e *IllegalArgumentError) Is(target error) bool {
	return target == ErrIllegalArgument
}
