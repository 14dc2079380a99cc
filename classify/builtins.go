package classify

import (
	"context"
	"errors"
)

// Built-in classifier registry names.
const (
	ClassifierAlwaysRetryOnError = "always"
	ClassifierHTTP               = "http"
	ClassifierAuto               = "auto"
	ClassifierNever              = "never"
)

// RegisterBuiltins registers core classifiers into reg.
func RegisterBuiltins(reg *Registry) {
	if reg == nil {
		return
	}
	reg.Register(ClassifierAlwaysRetryOnError, AlwaysRetryOnError{})
	reg.Register(ClassifierHTTP, HTTPClassifier{})
	reg.Register(ClassifierAuto, AutoClassifier{})
	reg.Register(ClassifierNever, NeverRetry{})
}

// AlwaysRetryOnError classifies nil errors as success and all other errors as retryable,
// except for context cancellation which aborts immediately.
type AlwaysRetryOnError struct{}

func (AlwaysRetryOnError) Classify(_ any, err error) Outcome {
	if err == nil {
		return Outcome{Kind: OutcomeSuccess, Reason: "success"}
	}
	if errors.Is(err, context.Canceled) {
		return Outcome{Kind: OutcomeAbort, Reason: "context_canceled"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		// A per-attempt timeout. The overall deadline is enforced by the executor.
		return Outcome{Kind: OutcomeRetryable, Reason: "context_deadline_exceeded"}
	}
	return Outcome{Kind: OutcomeRetryable, Reason: "retryable_error"}
}

// NeverRetry treats every error as terminal, turning a policy into a single attempt while keeping
// its budget and circuit checks.
type NeverRetry struct{}

func (NeverRetry) Classify(_ any, err error) Outcome {
	if err == nil {
		return Outcome{Kind: OutcomeSuccess, Reason: "success"}
	}
	if errors.Is(err, context.Canceled) {
		return Outcome{Kind: OutcomeAbort, Reason: "context_canceled"}
	}
	return Outcome{Kind: OutcomeNonRetryable, Reason: "never_retry"}
}
