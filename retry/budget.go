package retry

import (
	"context"
	"strings"
	"sync"

	"github.com/aponysus/cadence/budget"
	"github.com/aponysus/cadence/internal"
	"github.com/aponysus/cadence/observe"
	"github.com/aponysus/cadence/policy"
)

// allowAttempt consults the budget named by ref before attempt runs and reports the decision to
// the observer. Policies without a budget are always allowed and emit no event.
func (e *Executor) allowAttempt(ctx context.Context, key policy.PolicyKey, ref policy.BudgetRef, attempt int) (decision budget.Decision, allowed bool) {
	ref.Name = strings.TrimSpace(ref.Name)
	if ref.Name == "" {
		return budget.Decision{Allowed: true, Reason: budget.ReasonNoBudget}, true
	}

	emit := func(d budget.Decision) {
		e.observer.OnBudgetDecision(ctx, observe.BudgetDecisionEvent{
			Key:     key,
			Attempt: attempt,
			Budget:  ref.Name,
			Cost:    ref.Cost,
			Allowed: d.Allowed,
			Reason:  d.Reason,
		})
	}

	var missingReason string
	var b budget.Budget
	var ok bool

	if e.budgets == nil {
		missingReason = budget.ReasonBudgetRegistryNil
	} else if b, ok = e.budgets.Get(ref.Name); !ok {
		missingReason = budget.ReasonBudgetNotFound
	} else if internal.IsTypedNil(b) {
		missingReason = budget.ReasonBudgetNil
	}

	if missingReason != "" {
		d := e.handleMissingBudget(missingReason)
		emit(d)
		return d, d.Allowed
	}

	if e.recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				decision = budget.Decision{Allowed: false, Reason: budget.ReasonPanicInBudget}
				allowed = false
				emit(decision)
			}
		}()
	}

	decision = b.AllowAttempt(ctx, key, attempt, ref)
	if decision.Reason == "" {
		if decision.Allowed {
			decision.Reason = budget.ReasonAllowed
		} else {
			decision.Reason = budget.ReasonBudgetDenied
		}
	}

	if decision.Release != nil {
		release := decision.Release
		var once sync.Once
		decision.Release = func() { once.Do(release) }
		if !decision.Allowed {
			// A denied attempt never runs, so nothing else would release it.
			decision.Release()
			decision.Release = nil
		}
	}

	emit(decision)
	return decision, decision.Allowed
}

func (e *Executor) handleMissingBudget(reason string) budget.Decision {
	switch e.missingBudgetMode {
	case FailureAllow, FailureAllowUnsafe:
		return budget.Decision{Allowed: true, Reason: reason}
	default:
		return budget.Decision{Allowed: false, Reason: reason}
	}
}
