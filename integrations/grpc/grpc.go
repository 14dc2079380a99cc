// Package grpc retries unary gRPC client calls under an executor's policies.
package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aponysus/cadence/classify"
	"github.com/aponysus/cadence/policy"
	"github.com/aponysus/cadence/retry"
)

// ClassifierName is the registry name Register uses.
const ClassifierName = "grpc"

// DefaultKeyFunc maps methods to policy keys.
// "/pkg.Service/Method" -> {Namespace: "pkg.Service", Name: "Method"}
func DefaultKeyFunc(method string) policy.PolicyKey {
	method = strings.TrimPrefix(method, "/")
	if svc, name, ok := strings.Cut(method, "/"); ok && !strings.Contains(name, "/") {
		return policy.PolicyKey{Namespace: svc, Name: name}
	}
	return policy.PolicyKey{Name: method}
}

// UnaryClientInterceptor returns a gRPC interceptor that retries calls using the executor.
func UnaryClientInterceptor(exec *retry.Executor, keyFunc func(method string) policy.PolicyKey) grpc.UnaryClientInterceptor {
	if keyFunc == nil {
		keyFunc = DefaultKeyFunc
	}
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return exec.Do(ctx, keyFunc(method), func(ctx context.Context) error {
			return invoker(ctx, method, req, reply, cc, opts...)
		})
	}
}

// StatusClassifier classifies errors carrying a gRPC status and reports OutcomeUnknown for the
// rest, so it can lead a classify.Chain.
type StatusClassifier struct{}

func (StatusClassifier) Classify(_ any, err error) classify.Outcome {
	if err == nil {
		return classify.Outcome{Kind: classify.OutcomeSuccess, Reason: "success"}
	}
	st, ok := status.FromError(err)
	if !ok {
		return classify.Outcome{Kind: classify.OutcomeUnknown}
	}

	code := st.Code()
	out := classify.Outcome{
		Kind:       classify.OutcomeNonRetryable,
		Reason:     "grpc_" + code.String(),
		Attributes: map[string]string{"grpc_code": code.String()},
	}
	switch code {
	case codes.OK:
		out.Kind = classify.OutcomeSuccess
		out.Reason = "success"
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
		out.Kind = classify.OutcomeRetryable
	case codes.DeadlineExceeded:
		out.Kind = classify.OutcomeRetryable
		out.Reason = "context_deadline_exceeded"
	case codes.Canceled:
		out.Kind = classify.OutcomeAbort
		out.Reason = "context_canceled"
	}
	return out
}

// Classifier handles gRPC status codes and falls back to classify.AutoClassifier for other errors.
func Classifier() classify.Classifier {
	return classify.Chain{StatusClassifier{}, classify.AutoClassifier{}}
}

// Register adds Classifier to reg under ClassifierName.
func Register(reg *classify.Registry) {
	reg.Register(ClassifierName, Classifier())
}

// WithClassifier makes Classifier the executor's default classifier.
func WithClassifier() retry.ExecutorOption {
	return retry.WithDefaultClassifier(Classifier())
}
