package retry

import (
	"github.com/aponysus/cadence/budget"
	"github.com/aponysus/cadence/circuit"
	"github.com/aponysus/cadence/classify"
	"github.com/aponysus/cadence/observe"
)

// DefaultOption allows customizing the default executor.
// It is an alias for ExecutorOption for ergonomics.
type DefaultOption = ExecutorOption

// NewDefaultExecutor creates an Executor with conservative "happy path" defaults.
//
// Defaults:
//   - Provider: StaticProvider (empty), so every key gets DefaultPolicyFor.
//   - Classifiers: builtins registered, AutoClassifier as the default.
//   - Budgets: "unlimited" budget registered.
//   - Circuits: a fresh registry on the context clock.
//   - Observer: NoopObserver.
func NewDefaultExecutor(opts ...DefaultOption) *Executor {
	classifierReg := classify.NewRegistry()
	classify.RegisterBuiltins(classifierReg)

	budgetReg := budget.NewRegistry()
	budgetReg.MustRegister("unlimited", budget.UnlimitedBudget{})

	defaultOpts := []ExecutorOption{
		WithObserver(observe.NoopObserver{}),
		WithClassifiers(classifierReg),
		WithDefaultClassifier(classify.AutoClassifier{}),
		WithBudgetRegistry(budgetReg),
		WithCircuitRegistry(circuit.NewRegistry()),
	}
	defaultOpts = append(defaultOpts, opts...)

	return NewExecutor(defaultOpts...)
}
