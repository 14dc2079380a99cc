package observe

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aponysus/cadence/policy"
)

// LogObserver writes call lifecycle events to a zerolog.Logger.
//
// Attempts and schedule steps are logged at debug level, budget denials and failed calls at warn,
// successes at info.
type LogObserver struct {
	Logger zerolog.Logger
}

// NewLogObserver returns a LogObserver writing to l.
func NewLogObserver(l zerolog.Logger) LogObserver {
	return LogObserver{Logger: l}
}

func (o LogObserver) OnStart(_ context.Context, key policy.PolicyKey, pol policy.EffectivePolicy) {
	o.Logger.Debug().
		Str("key", key.String()).
		Str("policy_id", pol.ID).
		Str("kind", string(pol.Schedule.Kind)).
		Int("max_attempts", pol.Schedule.MaxAttempts).
		Str("source", string(pol.Meta.Source)).
		Msg("call started")
}

func (o LogObserver) OnAttempt(_ context.Context, key policy.PolicyKey, rec AttemptRecord) {
	e := o.Logger.Debug()
	if rec.Err != nil {
		e = e.Err(rec.Err)
	}
	e.Str("key", key.String()).
		Int("attempt", rec.Attempt).
		Dur("delay", rec.Delay).
		Dur("duration", rec.EndTime.Sub(rec.StartTime)).
		Str("outcome", rec.Outcome.Kind.String()).
		Str("reason", rec.Outcome.Reason).
		Msg("attempt finished")
}

func (o LogObserver) OnBudgetDecision(_ context.Context, ev BudgetDecisionEvent) {
	if ev.Allowed {
		return
	}
	o.Logger.Warn().
		Str("key", ev.Key.String()).
		Int("attempt", ev.Attempt).
		Str("budget", ev.Budget).
		Str("reason", ev.Reason).
		Msg("attempt denied by budget")
}

func (o LogObserver) OnSchedule(_ context.Context, ev ScheduleEvent) {
	e := o.Logger.Debug().Str("key", ev.Key.String()).Int("attempt", ev.Attempt)
	if ev.Done {
		e.Str("reason", ev.Reason).Msg("schedule done")
		return
	}
	e.Dur("delay", ev.Delay).Msg("schedule continues")
}

func (o LogObserver) OnSuccess(_ context.Context, key policy.PolicyKey, tl Timeline) {
	o.Logger.Info().
		Str("key", key.String()).
		Str("run_id", tl.RunID).
		Int("attempts", len(tl.Attempts)).
		Dur("elapsed", tl.End.Sub(tl.Start)).
		Msg("call succeeded")
}

func (o LogObserver) OnFailure(_ context.Context, key policy.PolicyKey, tl Timeline) {
	o.Logger.Warn().
		Err(tl.FinalErr).
		Str("key", key.String()).
		Str("run_id", tl.RunID).
		Int("attempts", len(tl.Attempts)).
		Dur("elapsed", tl.End.Sub(tl.Start)).
		Msg("call failed")
}
