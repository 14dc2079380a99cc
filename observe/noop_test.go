package observe_test

import (
	"context"
	"testing"

	"github.com/aponysus/cadence/observe"
	"github.com/aponysus/cadence/policy"
)

func fireAll(o observe.Observer) {
	ctx := context.Background()
	key := policy.PolicyKey{Name: "op"}
	pol := policy.DefaultPolicyFor(key)

	o.OnStart(ctx, key, pol)
	o.OnAttempt(ctx, key, observe.AttemptRecord{Attempt: 1})
	o.OnBudgetDecision(ctx, observe.BudgetDecisionEvent{Key: key, Attempt: 1})
	o.OnSchedule(ctx, observe.ScheduleEvent{Key: key, Attempt: 1})
	o.OnSuccess(ctx, key, observe.Timeline{Key: key})
	o.OnFailure(ctx, key, observe.Timeline{Key: key})
}

func TestNoopObserver_HandlesEvents(t *testing.T) {
	fireAll(observe.NoopObserver{})
}

func TestBaseObserver_HandlesEvents(t *testing.T) {
	fireAll(observe.BaseObserver{})
}

type counting struct {
	observe.BaseObserver
	attempts, schedules int
}

func (c *counting) OnAttempt(context.Context, policy.PolicyKey, observe.AttemptRecord) { c.attempts++ }
func (c *counting) OnSchedule(context.Context, observe.ScheduleEvent)                   { c.schedules++ }

func TestMultiObserver_FansOut(t *testing.T) {
	a, b := &counting{}, &counting{}
	m := observe.Multi(a, nil, b)
	if len(m.Observers) != 2 {
		t.Fatalf("observers=%d, want nil dropped", len(m.Observers))
	}
	fireAll(m)
	if a.attempts != 1 || b.attempts != 1 || a.schedules != 1 || b.schedules != 1 {
		t.Fatalf("a=%+v b=%+v", a, b)
	}
}
