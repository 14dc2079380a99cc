package classify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type statusError struct {
	status     int
	method     string
	retryAfter time.Duration
}

func (e statusError) Error() string       { return fmt.Sprintf("%s: status %d", e.method, e.status) }
func (e statusError) HTTPStatusCode() int { return e.status }
func (e statusError) HTTPMethod() string  { return e.method }

func (e statusError) RetryAfter() (time.Duration, bool) { return e.retryAfter, e.retryAfter > 0 }

func TestBuiltinClassifiers(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name   string
		c      Classifier
		err    error
		kind   OutcomeKind
		reason string
	}{
		{"always/success", AlwaysRetryOnError{}, nil, OutcomeSuccess, "success"},
		{"always/canceled", AlwaysRetryOnError{}, context.Canceled, OutcomeAbort, "context_canceled"},
		{"always/deadline", AlwaysRetryOnError{}, context.DeadlineExceeded, OutcomeRetryable, "context_deadline_exceeded"},
		{"always/error", AlwaysRetryOnError{}, boom, OutcomeRetryable, "retryable_error"},
		{"never/success", NeverRetry{}, nil, OutcomeSuccess, "success"},
		{"never/canceled", NeverRetry{}, fmt.Errorf("op: %w", context.Canceled), OutcomeAbort, "context_canceled"},
		{"never/error", NeverRetry{}, boom, OutcomeNonRetryable, "never_retry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.c.Classify(nil, tt.err)
			assert.Equal(t, tt.kind, out.Kind)
			assert.Equal(t, tt.reason, out.Reason)
		})
	}
}

func TestHTTPClassifier(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   OutcomeKind
		reason string
	}{
		{"nil", nil, OutcomeSuccess, "success"},
		{"2xx", statusError{status: 204, method: "GET"}, OutcomeSuccess, "success"},
		{"5xx get", statusError{status: 503, method: "get"}, OutcomeRetryable, "http_5xx"},
		{"5xx post", statusError{status: 500, method: "POST"}, OutcomeNonRetryable, "http_non_idempotent"},
		{"transport put", statusError{method: "PUT"}, OutcomeRetryable, "http_transport_error"},
		{"transport patch", statusError{method: "PATCH"}, OutcomeNonRetryable, "http_non_idempotent"},
		{"408", statusError{status: 408, method: "GET"}, OutcomeRetryable, "http_408"},
		{"404", statusError{status: 404, method: "GET"}, OutcomeNonRetryable, "http_non_retryable_status"},
		{"canceled", context.Canceled, OutcomeAbort, "context_canceled"},
		{"plain error", errors.New("nope"), OutcomeNonRetryable, "classifier_type_mismatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := HTTPClassifier{}.Classify(nil, tt.err)
			assert.Equal(t, tt.kind, out.Kind)
			assert.Equal(t, tt.reason, out.Reason)
		})
	}
}

func TestHTTPClassifier_RetryAfterOverridesBackoff(t *testing.T) {
	out := HTTPClassifier{}.Classify(nil, fmt.Errorf("wrapped: %w", statusError{status: 429, method: "GET", retryAfter: 2 * time.Second}))

	assert.Equal(t, OutcomeRetryable, out.Kind)
	assert.Equal(t, 2*time.Second, out.BackoffOverride)
	assert.Equal(t, "2s", out.Attributes["retry_after"])
	assert.Equal(t, "429", out.Attributes["status"])
	assert.True(t, out.Continues())
}

func TestHTTPClassifier_ExtraRetryable4xx(t *testing.T) {
	c := HTTPClassifier{Retryable4xx: map[int]struct{}{425: {}}}

	assert.Equal(t, OutcomeRetryable, c.Classify(nil, statusError{status: 425, method: "GET"}).Kind)
	assert.Equal(t, OutcomeNonRetryable, HTTPClassifier{}.Classify(nil, statusError{status: 425, method: "GET"}).Kind)
}

func TestHTTPClassifier_TypeMismatchAttributes(t *testing.T) {
	out := HTTPClassifier{}.Classify(nil, errors.New("nope"))

	assert.Equal(t, "classify.HTTPError", out.Attributes["expected_type"])
	assert.Equal(t, "*errors.errorString", out.Attributes["got_type"])
}
