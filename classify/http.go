package classify

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// HTTPError exposes the parts of a failed HTTP exchange HTTPClassifier needs, so classification
// does not depend on any particular client. A status code of 0 means no response was received.
type HTTPError interface {
	HTTPStatusCode() int
	HTTPMethod() string
	RetryAfter() (time.Duration, bool)
}

// HTTPClassifier classifies HTTP attempts by status and method.
//
// Transport failures, 5xx, 408 and 429 are retryable, but only for idempotent methods. A
// Retry-After hint on a retryable 4xx becomes the outcome's BackoffOverride. Errors with no
// HTTPError in their chain are non-retryable with reason "classifier_type_mismatch".
type HTTPClassifier struct {
	// Retryable4xx adds status codes to the retryable 4xx set.
	Retryable4xx map[int]struct{}
}

func (c HTTPClassifier) Classify(_ any, err error) Outcome {
	switch {
	case err == nil:
		return Outcome{Kind: OutcomeSuccess, Reason: "success"}
	case errors.Is(err, context.Canceled):
		return Outcome{Kind: OutcomeAbort, Reason: "context_canceled"}
	case errors.Is(err, context.DeadlineExceeded):
		return Outcome{Kind: OutcomeRetryable, Reason: "context_deadline_exceeded"}
	}

	var he HTTPError
	if !errors.As(err, &he) {
		return Outcome{
			Kind:   OutcomeNonRetryable,
			Reason: "classifier_type_mismatch",
			Attributes: map[string]string{
				"expected_type": "classify.HTTPError",
				"got_type":      typeString(err),
			},
		}
	}

	status := he.HTTPStatusCode()
	method := strings.ToUpper(strings.TrimSpace(he.HTTPMethod()))
	out := Outcome{
		Kind:       OutcomeNonRetryable,
		Reason:     "http_non_retryable_status",
		Attributes: map[string]string{"status": strconv.Itoa(status), "method": method},
	}

	var reason string
	switch {
	case status >= 200 && status < 300:
		out.Kind, out.Reason = OutcomeSuccess, "success"
		return out
	case status == 0:
		reason = "http_transport_error"
	case status >= 500 && status < 600:
		reason = "http_5xx"
	case c.retryable4xx(status):
		reason = "http_" + strconv.Itoa(status)
		if d, ok := he.RetryAfter(); ok && d > 0 {
			out.BackoffOverride = d
			out.Attributes["retry_after"] = d.String()
		}
	default:
		return out
	}

	if !isIdempotentMethod(method) {
		out.Reason = "http_non_idempotent"
		out.BackoffOverride = 0
		delete(out.Attributes, "retry_after")
		return out
	}
	out.Kind, out.Reason = OutcomeRetryable, reason
	return out
}

func (c HTTPClassifier) retryable4xx(status int) bool {
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return true
	}
	_, ok := c.Retryable4xx[status]
	return ok
}

func isIdempotentMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func typeString(err error) string {
	if t := reflect.TypeOf(err); t != nil {
		return t.String()
	}
	return "<nil>"
}
