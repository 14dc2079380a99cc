// Package circuit gates calls with circuit breakers. The executor consults a breaker once per call,
// before the call's schedule starts, and records one success or failure when the call settles.
package circuit

import (
	"context"
	"time"
)

// State is the position of a breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown has elapsed.
	StateOpen
	// StateHalfOpen lets a limited number of probe calls through.
	StateHalfOpen
)

// Reasons reported by a rejecting Decision.
const (
	ReasonCircuitOpen               = "circuit_open"
	ReasonCircuitHalfOpenProbeLimit = "circuit_half_open_probe_limit"
)

var stateNames = [...]string{StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText renders s by name in JSON and YAML output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Decision is the answer of Allow.
type Decision struct {
	Allowed bool
	State   State
	Reason  string

	// RetryAfter is how long an open breaker will keep rejecting calls.
	RetryAfter time.Duration
}

// CircuitBreaker is a breaker guarding one policy key.
type CircuitBreaker interface {
	Allow(ctx context.Context) Decision
	RecordSuccess(ctx context.Context)
	RecordFailure(ctx context.Context)
	State() State
}
