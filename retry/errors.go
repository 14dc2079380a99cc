package retry

import (
	"errors"
	"fmt"
	"time"

	"github.com/aponysus/cadence/circuit"
	"github.com/aponysus/cadence/policy"
)

var (
	// ErrNoPolicy is returned when no policy is found and the missing policy mode is FailureDeny.
	ErrNoPolicy = errors.New("cadence: no policy found")

	// ErrBudgetDenied is matched by every BudgetDeniedError.
	ErrBudgetDenied = errors.New("cadence: attempt denied by budget")

	// ErrCircuitOpen is matched by every CircuitOpenError.
	ErrCircuitOpen = errors.New("cadence: circuit open")
)

// PanicError reports a panic recovered from a component when panic recovery is enabled.
type PanicError struct {
	Component string
	Key       policy.PolicyKey
	Value     any
	Stack     []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("cadence: panic in %s for %s: %v", e.Component, e.Key, e.Value)
}

type NoPolicyError struct {
	Key policy.PolicyKey
	Err error
}

func (e *NoPolicyError) Error() string {
	return fmt.Sprintf("cadence: policy not found for %s: %v", e.Key, e.Err)
}

func (e *NoPolicyError) Unwrap() error {
	return e.Err
}

func (e *NoPolicyError) Is(target error) bool {
	return target == ErrNoPolicy
}

type NoClassifierError struct {
	Name string
}

func (e *NoClassifierError) Error() string {
	return fmt.Sprintf("cadence: classifier not found: %s", e.Name)
}

// BudgetDeniedError is returned when a budget refuses the first attempt of a call. A denial on a
// later attempt returns the previous attempt's error instead.
type BudgetDeniedError struct {
	Key    policy.PolicyKey
	Budget string
	Reason string
}

func (e *BudgetDeniedError) Error() string {
	return fmt.Sprintf("cadence: budget %q denied attempt for %s: %s", e.Budget, e.Key, e.Reason)
}

func (e *BudgetDeniedError) Is(target error) bool {
	return target == ErrBudgetDenied
}

// CircuitOpenError is returned without running the operation while the key's breaker rejects
// calls.
type CircuitOpenError struct {
	Key        policy.PolicyKey
	State      circuit.State
	Reason     string
	RetryAfter time.Duration
}

func (e CircuitOpenError) Error() string {
	return fmt.Sprintf("cadence: circuit %s for %s (%s)", e.State, e.Key, e.Reason)
}

func (e CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}
