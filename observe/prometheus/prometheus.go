// Package prometheus exports executor events as Prometheus metrics.
package prometheus

import (
	"context"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/aponysus/cadence/observe"
	"github.com/aponysus/cadence/policy"
)

// Observer records attempts, budget denials, schedule delays and call results.
//
// All metrics are labelled by policy key. Attempts are additionally labelled by outcome kind and
// finished calls by result ("success" or "failure").
type Observer struct {
	observe.BaseObserver

	attempts       *prom.CounterVec
	budgetDenied   *prom.CounterVec
	scheduleDelay  *prom.HistogramVec
	calls          *prom.CounterVec
	callDuration   *prom.HistogramVec
	attemptsPerRun *prom.HistogramVec
}

// New creates an Observer and registers its collectors with reg.
func New(reg prom.Registerer, namespace string) (*Observer, error) {
	if namespace == "" {
		namespace = "cadence"
	}
	o := &Observer{
		attempts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Attempts executed, by policy key and outcome.",
		}, []string{"key", "outcome"}),
		budgetDenied: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "budget_denied_total",
			Help:      "Attempts denied by a budget, by policy key and budget.",
		}, []string{"key", "budget"}),
		scheduleDelay: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "schedule_delay_seconds",
			Help:      "Delay chosen by the schedule before the next attempt.",
			Buckets:   prom.ExponentialBuckets(0.001, 4, 10),
		}, []string{"key"}),
		calls: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Finished calls, by policy key and result.",
		}, []string{"key", "result"}),
		callDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Wall time of a call including every attempt and delay.",
			Buckets:   prom.DefBuckets,
		}, []string{"key"}),
		attemptsPerRun: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "attempts_per_call",
			Help:      "Attempts made per finished call.",
			Buckets:   prom.LinearBuckets(1, 1, 10),
		}, []string{"key"}),
	}

	for _, c := range []prom.Collector{o.attempts, o.budgetDenied, o.scheduleDelay, o.calls, o.callDuration, o.attemptsPerRun} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// MustNew is New that panics on registration errors.
func MustNew(reg prom.Registerer, namespace string) *Observer {
	o, err := New(reg, namespace)
	if err != nil {
		panic(err)
	}
	return o
}

func (o *Observer) OnAttempt(_ context.Context, key policy.PolicyKey, rec observe.AttemptRecord) {
	o.attempts.WithLabelValues(key.String(), rec.Outcome.Kind.String()).Inc()
}

func (o *Observer) OnBudgetDecision(_ context.Context, ev observe.BudgetDecisionEvent) {
	if ev.Allowed {
		return
	}
	o.budgetDenied.WithLabelValues(ev.Key.String(), ev.Budget).Inc()
}

func (o *Observer) OnSchedule(_ context.Context, ev observe.ScheduleEvent) {
	if ev.Done {
		return
	}
	o.scheduleDelay.WithLabelValues(ev.Key.String()).Observe(ev.Delay.Seconds())
}

func (o *Observer) OnSuccess(_ context.Context, key policy.PolicyKey, tl observe.Timeline) {
	o.finish(key, tl, "success")
}

func (o *Observer) OnFailure(_ context.Context, key policy.PolicyKey, tl observe.Timeline) {
	o.finish(key, tl, "failure")
}

func (o *Observer) finish(key policy.PolicyKey, tl observe.Timeline, result string) {
	k := key.String()
	o.calls.WithLabelValues(k, result).Inc()
	o.callDuration.WithLabelValues(k).Observe(tl.End.Sub(tl.Start).Seconds())
	o.attemptsPerRun.WithLabelValues(k).Observe(float64(len(tl.Attempts)))
}
