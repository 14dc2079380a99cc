package budget

import (
	"context"

	"github.com/aponysus/cadence/policy"
)

// Standard Decision.Reason strings.
const (
	ReasonAllowed           = "allowed"
	ReasonNoBudget          = "no_budget"
	ReasonBudgetNil         = "budget_nil"
	ReasonBudgetRegistryNil = "budget_registry_nil"
	ReasonBudgetNotFound    = "budget_not_found"
	ReasonBudgetDenied      = "budget_denied"
	ReasonPanicInBudget     = "panic_in_budget"
)

// Decision is the result of a budget check.
type Decision struct {
	Allowed bool
	Reason  string

	// Release, when non-nil, is called exactly once after an allowed attempt finishes.
	Release func()
}

// Budget gates the attempts a schedule asks for, so a burst of failures across many keys cannot
// turn into a retry storm. attempt is zero for the first call of an operation.
type Budget interface {
	AllowAttempt(ctx context.Context, key policy.PolicyKey, attempt int, ref policy.BudgetRef) Decision
}

// BudgetFunc adapts a function to Budget.
type BudgetFunc func(ctx context.Context, key policy.PolicyKey, attempt int, ref policy.BudgetRef) Decision

func (f BudgetFunc) AllowAttempt(ctx context.Context, key policy.PolicyKey, attempt int, ref policy.BudgetRef) Decision {
	return f(ctx, key, attempt, ref)
}
