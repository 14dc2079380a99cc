// Package http runs HTTP requests under an executor's retry policies.
package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aponysus/cadence/observe"
	"github.com/aponysus/cadence/policy"
	"github.com/aponysus/cadence/retry"
)

// maxDrain bounds how much of a failed response body is read before closing it.
const maxDrain = 4096

// ErrBodyNotReplayable is returned for requests whose body cannot be sent twice.
var ErrBodyNotReplayable = errors.New("cadence: request body is not replayable (GetBody is nil)")

// DoHTTP executes an HTTP request with retries.
//
// Every attempt sends a clone of req with a fresh body from GetBody. Non-2xx responses are drained,
// closed and reported as a *StatusError, which the http and auto classifiers understand, including
// any Retry-After header.
func DoHTTP(ctx context.Context, exec *retry.Executor, key policy.PolicyKey, client *http.Client, req *http.Request) (*http.Response, observe.Timeline, error) {
	if !replayable(req) {
		return nil, observe.Timeline{}, ErrBodyNotReplayable
	}
	if client == nil {
		client = http.DefaultClient
	}
	return retry.DoValueWithTimeline(ctx, exec, key, func(ctx context.Context) (*http.Response, error) {
		return send(ctx, req, client.Do)
	})
}

// Transport is an http.RoundTripper that retries requests under the policy Key returns.
type Transport struct {
	Exec *retry.Executor
	Base http.RoundTripper
	// Key maps a request to its policy key. Nil keys requests by host and method, e.g.
	// "api.example.com.GET".
	Key func(*http.Request) policy.PolicyKey
}

// NewTransport returns a Transport over base, or http.DefaultTransport when base is nil.
func NewTransport(exec *retry.Executor, base http.RoundTripper) *Transport {
	return &Transport{Exec: exec, Base: base}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !replayable(req) {
		return nil, ErrBodyNotReplayable
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	key := RequestKey(req)
	if t.Key != nil {
		key = t.Key(req)
	}
	return retry.DoValue(req.Context(), t.Exec, key, func(ctx context.Context) (*http.Response, error) {
		return send(ctx, req, base.RoundTrip)
	})
}

// RequestKey keys a request by host and method.
func RequestKey(req *http.Request) policy.PolicyKey {
	return policy.PolicyKey{Namespace: req.URL.Host, Name: req.Method}
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func send(ctx context.Context, req *http.Request, do func(*http.Request) (*http.Response, error)) (*http.Response, error) {
	outReq := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		outReq.Body = body
	}

	resp, err := do(outReq)
	if err != nil {
		// Transport errors carry the method so idempotency rules still apply.
		return nil, &StatusError{Err: err, Method: req.Method}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	_, _ = io.CopyN(io.Discard, resp.Body, maxDrain)
	resp.Body.Close()

	return nil, &StatusError{
		Code:   resp.StatusCode,
		Method: req.Method,
		Header: resp.Header,
	}
}

// StatusError implements classify.HTTPError.
type StatusError struct {
	Code   int
	Method string
	Header http.Header
	Err    error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "http status " + strconv.Itoa(e.Code)
}

func (e *StatusError) Unwrap() error { return e.Err }

func (e *StatusError) HTTPStatusCode() int { return e.Code }
func (e *StatusError) HTTPMethod() string  { return e.Method }

// RetryAfter parses the Retry-After header as delta seconds or an HTTP date.
func (e *StatusError) RetryAfter() (time.Duration, bool) {
	if e.Header == nil {
		return 0, false
	}
	s := e.Header.Get("Retry-After")
	if s == "" {
		return 0, false
	}

	if secs, err := strconv.Atoi(s); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}

	if t, err := http.ParseTime(s); err == nil {
		return max(time.Until(t), 0), true
	}

	return 0, false
}
