// Package otel records executor events on the OpenTelemetry span carried by the call's context.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aponysus/cadence/observe"
	"github.com/aponysus/cadence/policy"
)

// Event names added to the span.
const (
	EventStart    = "cadence.start"
	EventAttempt  = "cadence.attempt"
	EventBudget   = "cadence.budget_denied"
	EventSchedule = "cadence.schedule"
)

// Observer adds span events for each lifecycle callback. Calls without a recording span in their
// context are ignored.
type Observer struct {
	// SetStatus marks the span as failed when a call fails. Leave it unset when the span belongs
	// to a caller that decides its own status.
	SetStatus bool
}

func span(ctx context.Context) trace.Span {
	s := trace.SpanFromContext(ctx)
	if !s.IsRecording() {
		return nil
	}
	return s
}

func (o Observer) OnStart(ctx context.Context, key policy.PolicyKey, pol policy.EffectivePolicy) {
	s := span(ctx)
	if s == nil {
		return
	}
	s.AddEvent(EventStart, trace.WithAttributes(
		attribute.String("cadence.key", key.String()),
		attribute.String("cadence.policy_id", pol.ID),
		attribute.String("cadence.schedule.kind", string(pol.Schedule.Kind)),
		attribute.Int("cadence.schedule.max_attempts", pol.Schedule.MaxAttempts),
		attribute.String("cadence.policy_source", string(pol.Meta.Source)),
	))
}

func (o Observer) OnAttempt(ctx context.Context, key policy.PolicyKey, rec observe.AttemptRecord) {
	s := span(ctx)
	if s == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("cadence.key", key.String()),
		attribute.Int("cadence.attempt", rec.Attempt),
		attribute.Int64("cadence.delay_ms", rec.Delay.Milliseconds()),
		attribute.String("cadence.outcome", rec.Outcome.Kind.String()),
		attribute.String("cadence.reason", rec.Outcome.Reason),
	}
	if rec.Err != nil {
		attrs = append(attrs, attribute.String("cadence.error", rec.Err.Error()))
	}
	s.AddEvent(EventAttempt, trace.WithAttributes(attrs...))
}

func (o Observer) OnBudgetDecision(ctx context.Context, ev observe.BudgetDecisionEvent) {
	s := span(ctx)
	if s == nil || ev.Allowed {
		return
	}
	s.AddEvent(EventBudget, trace.WithAttributes(
		attribute.String("cadence.key", ev.Key.String()),
		attribute.Int("cadence.attempt", ev.Attempt),
		attribute.String("cadence.budget", ev.Budget),
		attribute.String("cadence.reason", ev.Reason),
	))
}

func (o Observer) OnSchedule(ctx context.Context, ev observe.ScheduleEvent) {
	s := span(ctx)
	if s == nil {
		return
	}
	s.AddEvent(EventSchedule, trace.WithAttributes(
		attribute.Int("cadence.attempt", ev.Attempt),
		attribute.Bool("cadence.done", ev.Done),
		attribute.Int64("cadence.delay_ms", ev.Delay.Milliseconds()),
		attribute.String("cadence.reason", ev.Reason),
	))
}

func (o Observer) OnSuccess(ctx context.Context, _ policy.PolicyKey, tl observe.Timeline) {
	if s := span(ctx); s != nil {
		s.SetAttributes(summary(tl)...)
	}
}

func (o Observer) OnFailure(ctx context.Context, _ policy.PolicyKey, tl observe.Timeline) {
	s := span(ctx)
	if s == nil {
		return
	}
	s.SetAttributes(summary(tl)...)
	if tl.FinalErr != nil {
		s.RecordError(tl.FinalErr)
		if o.SetStatus {
			s.SetStatus(codes.Error, tl.FinalErr.Error())
		}
	}
}

func summary(tl observe.Timeline) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("cadence.run_id", tl.RunID),
		attribute.Int("cadence.attempts", len(tl.Attempts)),
	}
}
