package classify

import "time"

// OutcomeKind describes how an attempt result affects the schedule driving it.
type OutcomeKind int

const (
	OutcomeUnknown OutcomeKind = iota
	OutcomeSuccess
	OutcomeRetryable
	OutcomeNonRetryable
	OutcomeAbort
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeNonRetryable:
		return "non_retryable"
	case OutcomeAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Outcome is the classification of one attempt.
type Outcome struct {
	Kind   OutcomeKind
	Reason string

	// BackoffOverride, when positive, replaces the delay the schedule chose before the next
	// attempt. The executor still caps it at the policy's maximum delay.
	BackoffOverride time.Duration

	// Attributes carries classifier specific detail for observers, e.g. the HTTP status.
	Attributes map[string]string
}

// Continues reports whether the schedule should be stepped again after this outcome.
func (o Outcome) Continues() bool {
	return o.Kind == OutcomeRetryable
}

// Classifier maps an attempt's value and error to an Outcome.
type Classifier interface {
	Classify(val any, err error) Outcome
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(val any, err error) Outcome

func (f ClassifierFunc) Classify(val any, err error) Outcome { return f(val, err) }

// Retryable returns a predicate for schedule.WhileInput that keeps an error-driven schedule going
// only while c classifies the error as retryable.
func Retryable(c Classifier) func(error) bool {
	if c == nil {
		c = AlwaysRetryOnError{}
	}
	return func(err error) bool {
		return c.Classify(nil, err).Continues()
	}
}
