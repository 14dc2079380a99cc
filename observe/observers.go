package observe

import (
	"context"

	"github.com/aponysus/cadence/policy"
)

// BaseObserver implements Observer with no-op methods.
//
// Users can embed BaseObserver to implement only the callbacks they need.
type BaseObserver struct{}

func (BaseObserver) OnStart(context.Context, policy.PolicyKey, policy.EffectivePolicy) {}
func (BaseObserver) OnAttempt(context.Context, policy.PolicyKey, AttemptRecord)        {}
func (BaseObserver) OnBudgetDecision(context.Context, BudgetDecisionEvent)             {}
func (BaseObserver) OnSchedule(context.Context, ScheduleEvent)                         {}
func (BaseObserver) OnSuccess(context.Context, policy.PolicyKey, Timeline)             {}
func (BaseObserver) OnFailure(context.Context, policy.PolicyKey, Timeline)             {}

// MultiObserver fans out events to multiple observers.
type MultiObserver struct {
	Observers []Observer
}

// Multi returns a MultiObserver over the non-nil observers in obs.
func Multi(obs ...Observer) MultiObserver {
	m := MultiObserver{}
	for _, o := range obs {
		if o != nil {
			m.Observers = append(m.Observers, o)
		}
	}
	return m
}

func (m MultiObserver) each(f func(Observer)) {
	for _, o := range m.Observers {
		if o != nil {
			f(o)
		}
	}
}

func (m MultiObserver) OnStart(ctx context.Context, key policy.PolicyKey, pol policy.EffectivePolicy) {
	m.each(func(o Observer) { o.OnStart(ctx, key, pol) })
}

func (m MultiObserver) OnAttempt(ctx context.Context, key policy.PolicyKey, rec AttemptRecord) {
	m.each(func(o Observer) { o.OnAttempt(ctx, key, rec) })
}

func (m MultiObserver) OnBudgetDecision(ctx context.Context, ev BudgetDecisionEvent) {
	m.each(func(o Observer) { o.OnBudgetDecision(ctx, ev) })
}

func (m MultiObserver) OnSchedule(ctx context.Context, ev ScheduleEvent) {
	m.each(func(o Observer) { o.OnSchedule(ctx, ev) })
}

func (m MultiObserver) OnSuccess(ctx context.Context, key policy.PolicyKey, tl Timeline) {
	m.each(func(o Observer) { o.OnSuccess(ctx, key, tl) })
}

func (m MultiObserver) OnFailure(ctx context.Context, key policy.PolicyKey, tl Timeline) {
	m.each(func(o Observer) { o.OnFailure(ctx, key, tl) })
}
