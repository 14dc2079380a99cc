package policy

import (
	"errors"
	"fmt"
)

// ErrInvalidPolicy marks every NormalizeError.
var ErrInvalidPolicy = errors.New("cadence: invalid policy")

// NormalizeError indicates a fundamentally invalid policy configuration.
type NormalizeError struct {
	Field string
	Value string
	Err   error
}

func (e *NormalizeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("cadence: invalid policy config: %s=%q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("cadence: invalid policy config: %s=%q", e.Field, e.Value)
}

func (e *NormalizeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *NormalizeError) Is(target error) bool {
	return target == ErrInvalidPolicy
}
