package observe

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aponysus/cadence/classify"
	"github.com/aponysus/cadence/policy"
)

// AttemptRecord describes a single attempt.
type AttemptRecord struct {
	Attempt   int
	StartTime time.Time
	EndTime   time.Time

	Outcome classify.Outcome
	Err     error

	// Delay is how long the schedule waited before this attempt. It is zero for the first one.
	Delay time.Duration

	BudgetAllowed bool
	BudgetReason  string
}

// Timeline is the structured record of a single call and all of its attempts.
type Timeline struct {
	// RunID identifies the call across log lines, metrics exemplars and spans.
	RunID    string
	Key      policy.PolicyKey
	PolicyID string
	Start    time.Time
	End      time.Time

	// Attributes holds call-level metadata (policy source, fallbacks, normalization notes, etc.).
	Attributes map[string]string

	Attempts []AttemptRecord
	FinalErr error
}

// NewTimeline starts a timeline with a fresh run ID.
func NewTimeline(key policy.PolicyKey, policyID string, start time.Time) Timeline {
	return Timeline{
		RunID:      uuid.NewString(),
		Key:        key,
		PolicyID:   policyID,
		Start:      start,
		Attributes: make(map[string]string),
	}
}

// BudgetDecisionEvent reports the result of a budget check before an attempt.
type BudgetDecisionEvent struct {
	Key     policy.PolicyKey
	Attempt int
	Budget  string
	Cost    int
	Allowed bool
	Reason  string
}

// ScheduleEvent reports one step of the schedule driving a call.
type ScheduleEvent struct {
	Key     policy.PolicyKey
	Attempt int
	// Delay is the wait chosen before the next attempt. It is meaningless when Done is set.
	Delay time.Duration
	// Done is set when the schedule declined another attempt.
	Done bool
	// Reason names why the call stopped recurring, e.g. the outcome reason or "schedule_exhausted".
	Reason string
}

// Observer receives lifecycle callbacks for a single call.
type Observer interface {
	OnStart(ctx context.Context, key policy.PolicyKey, pol policy.EffectivePolicy)
	OnAttempt(ctx context.Context, key policy.PolicyKey, rec AttemptRecord)
	OnBudgetDecision(ctx context.Context, ev BudgetDecisionEvent)
	OnSchedule(ctx context.Context, ev ScheduleEvent)
	OnSuccess(ctx context.Context, key policy.PolicyKey, tl Timeline)
	OnFailure(ctx context.Context, key policy.PolicyKey, tl Timeline)
}
