package retry

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aponysus/cadence/budget"
	"github.com/aponysus/cadence/circuit"
	"github.com/aponysus/cadence/classify"
	"github.com/aponysus/cadence/clock"
	"github.com/aponysus/cadence/controlplane"
	"github.com/aponysus/cadence/observe"
	"github.com/aponysus/cadence/policy"
	"github.com/aponysus/cadence/schedule"
)

// FailureMode controls behavior when a dependency is missing.
type FailureMode int

const (
	FailureModeUnknown FailureMode = iota
	FailureDeny
	FailureAllow
	FailureFallback
	FailureAllowUnsafe
)

func failureModeString(mode FailureMode) string {
	switch mode {
	case FailureDeny:
		return "deny"
	case FailureAllow:
		return "allow"
	case FailureFallback:
		return "fallback"
	case FailureAllowUnsafe:
		return "allow_unsafe"
	default:
		return "unknown"
	}
}

type Operation func(ctx context.Context) error
type OperationValue[T any] func(ctx context.Context) (T, error)

// Executor runs operations under the policy resolved for their key.
//
// Every call builds the schedule described by its policy, gates it with the policy's classifier
// and drives it with a schedule.Driver on the executor's clock. Budgets are consulted before each
// attempt and an enabled circuit breaker before each call.
type Executor struct {
	provider              controlplane.PolicyProvider
	observer              observe.Observer
	clock                 clock.Clock
	logger                zerolog.Logger
	random                schedule.Random
	classifiers           *classify.Registry
	defaultClassifier     classify.Classifier
	budgets               *budget.Registry
	circuits              *circuit.Registry
	missingPolicyMode     FailureMode
	missingClassifierMode FailureMode
	missingBudgetMode     FailureMode
	recoverPanics         bool
}

type executorConfig struct {
	opts           ExecutorOptions
	staticPolicies map[policy.PolicyKey]policy.EffectivePolicy
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	Provider controlplane.PolicyProvider
	Observer observe.Observer
	// Clock drives schedule decisions and sleeps. Nil means clock.Proxy, which reads the clock
	// installed in each call's context and falls back to clock.Live.
	Clock clock.Clock
	// Logger receives debug logs about policy resolution and attempts. Nil means no logging.
	Logger *zerolog.Logger
	// Random feeds jitter. Nil means the process-wide source.
	Random                schedule.Random
	Classifiers           *classify.Registry
	DefaultClassifier     classify.Classifier
	Budgets               *budget.Registry
	Circuits              *circuit.Registry
	MissingPolicyMode     FailureMode
	MissingClassifierMode FailureMode
	MissingBudgetMode     FailureMode
	RecoverPanics         bool
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*executorConfig)

// NewExecutor creates an Executor from functional options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	cfg := &executorConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.opts.Provider == nil && len(cfg.staticPolicies) > 0 {
		cfg.opts.Provider = &controlplane.StaticProvider{
			Policies: cfg.staticPolicies,
		}
	}

	return NewExecutorFromOptions(cfg.opts)
}

// NewExecutorFromOptions creates an Executor from a config struct.
func NewExecutorFromOptions(opts ExecutorOptions) *Executor {
	e := &Executor{
		provider:              opts.Provider,
		observer:              opts.Observer,
		clock:                 opts.Clock,
		logger:                zerolog.Nop(),
		random:                opts.Random,
		classifiers:           opts.Classifiers,
		defaultClassifier:     opts.DefaultClassifier,
		budgets:               opts.Budgets,
		circuits:              opts.Circuits,
		missingPolicyMode:     normalizeFailureMode(opts.MissingPolicyMode, FailureDeny),
		missingClassifierMode: normalizeFailureMode(opts.MissingClassifierMode, FailureFallback),
		missingBudgetMode:     normalizeFailureMode(opts.MissingBudgetMode, FailureDeny),
		recoverPanics:         opts.RecoverPanics,
	}

	if opts.Logger != nil {
		e.logger = *opts.Logger
	}
	if e.provider == nil {
		e.provider = &controlplane.StaticProvider{}
	}
	if e.observer == nil {
		e.observer = observe.NoopObserver{}
	}
	if e.clock == nil {
		e.clock = clock.Proxy{}
	}
	if e.classifiers == nil {
		e.classifiers = classify.NewRegistry()
		classify.RegisterBuiltins(e.classifiers)
	}
	if e.defaultClassifier == nil {
		e.defaultClassifier = classify.AlwaysRetryOnError{}
	}
	if e.circuits == nil {
		e.circuits = circuit.NewRegistryWithClock(e.clock)
	}

	return e
}

// WithProvider sets the policy provider.
func WithProvider(p controlplane.PolicyProvider) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Provider = p
	}
}

// WithObserver sets the observer.
func WithObserver(o observe.Observer) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Observer = o
	}
}

// WithClock sets the clock that drives schedules.
func WithClock(clk clock.Clock) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Clock = clk
	}
}

// WithLogger sets the debug logger.
func WithLogger(l zerolog.Logger) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Logger = &l
	}
}

// WithRandom sets the jitter source.
func WithRandom(r schedule.Random) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Random = r
	}
}

// WithClassifiers sets the classifier registry.
func WithClassifiers(r *classify.Registry) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Classifiers = r
	}
}

// WithDefaultClassifier sets the default classifier.
func WithDefaultClassifier(cls classify.Classifier) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.DefaultClassifier = cls
	}
}

// WithBudgetRegistry sets the budget registry.
func WithBudgetRegistry(r *budget.Registry) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Budgets = r
	}
}

// WithCircuitRegistry sets the circuit breaker registry.
func WithCircuitRegistry(r *circuit.Registry) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Circuits = r
	}
}

// WithMissingPolicyMode sets the mode for handling missing policies.
func WithMissingPolicyMode(mode FailureMode) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.MissingPolicyMode = mode
	}
}

// WithMissingClassifierMode sets the mode for handling missing classifiers.
func WithMissingClassifierMode(mode FailureMode) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.MissingClassifierMode = mode
	}
}

// WithMissingBudgetMode sets the mode for handling missing budgets.
func WithMissingBudgetMode(mode FailureMode) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.MissingBudgetMode = mode
	}
}

// WithRecoverPanics sets whether to capture and report panics in user code.
func WithRecoverPanics(recover bool) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.RecoverPanics = recover
	}
}

// WithPolicy adds a static policy for a string key (e.g. "svc.Method").
func WithPolicy(key string, opts ...policy.Option) ExecutorOption {
	return func(c *executorConfig) {
		if c.staticPolicies == nil {
			c.staticPolicies = make(map[policy.PolicyKey]policy.EffectivePolicy)
		}
		p := policy.New(key, opts...)
		c.staticPolicies[p.Key] = p
	}
}

// WithPolicyKey adds a static policy for a structured key.
func WithPolicyKey(key policy.PolicyKey, opts ...policy.Option) ExecutorOption {
	return func(c *executorConfig) {
		if c.staticPolicies == nil {
			c.staticPolicies = make(map[policy.PolicyKey]policy.EffectivePolicy)
		}
		p := policy.NewFromKey(key, opts...)
		c.staticPolicies[p.Key] = p
	}
}

func normalizeFailureMode(mode FailureMode, defaultMode FailureMode) FailureMode {
	switch mode {
	case FailureFallback, FailureAllow, FailureDeny, FailureAllowUnsafe:
		return mode
	default:
		return defaultMode
	}
}

func (e *Executor) Do(ctx context.Context, key policy.PolicyKey, op Operation) error {
	_, err := DoValue[struct{}](ctx, e, key, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue runs op under the policy for key and returns the value of the first successful attempt.
//
// When the schedule is done the last attempt's error is returned. A timeline of the call is
// published to any capture requested with observe.RecordTimeline.
func DoValue[T any](ctx context.Context, exec *Executor, key policy.PolicyKey, op OperationValue[T]) (T, error) {
	val, _, err := doValue(ctx, exec, key, op)
	return val, err
}

// DoValueWithTimeline is DoValue that also returns the call's timeline.
func DoValueWithTimeline[T any](ctx context.Context, exec *Executor, key policy.PolicyKey, op OperationValue[T]) (T, observe.Timeline, error) {
	return doValue(ctx, exec, key, op)
}

// attemptResult is the input of the schedule driving a call.
type attemptResult struct {
	err     error
	outcome classify.Outcome
}

type call[T any] struct {
	exec *Executor
	key  policy.PolicyKey
	pol  policy.EffectivePolicy
	tl   observe.Timeline
}

func doValue[T any](ctx context.Context, exec *Executor, key policy.PolicyKey, op OperationValue[T]) (T, observe.Timeline, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	if exec == nil {
		exec = NewExecutor()
	}

	capture, _ := observe.TimelineCaptureFromContext(ctx)
	c := &call[T]{exec: exec, key: key}
	val, err := c.run(ctx, op)
	if capture != nil {
		tl := c.tl
		observe.StoreTimelineCapture(capture, &tl)
	}
	if err != nil {
		return zero, c.tl, err
	}
	return val, c.tl, nil
}

func (c *call[T]) now(ctx context.Context) time.Time {
	return clock.Now(ctx, c.exec.clock)
}

func (c *call[T]) run(ctx context.Context, op OperationValue[T]) (T, error) {
	var zero T
	e := c.exec
	start := c.now(ctx)

	pol, attrs, err := e.resolvePolicy(ctx, c.key)
	c.pol = pol
	c.tl = observe.NewTimeline(c.key, pol.ID, start)
	for k, v := range attrs {
		c.tl.Attributes[k] = v
	}
	e.observer.OnStart(ctx, c.key, pol)
	if err != nil {
		return zero, c.fail(ctx, err)
	}

	classifier, cmeta, err := e.resolveClassifier(pol)
	if cmeta.requested != "" {
		c.tl.Attributes["classifier_name"] = cmeta.requested
	}
	if err != nil {
		c.tl.Attributes["classifier_error"] = "classifier_not_found"
		return zero, c.fail(ctx, err)
	}

	sched, err := pol.Build()
	if err != nil {
		return zero, c.fail(ctx, &NoPolicyError{Key: c.key, Err: err})
	}

	breaker := e.circuits.Get(c.key, pol.Circuit)
	if breaker != nil {
		if d := breaker.Allow(ctx); !d.Allowed {
			c.tl.Attributes["circuit_state"] = d.State.String()
			return zero, c.fail(ctx, CircuitOpenError{Key: c.key, State: d.State, Reason: d.Reason, RetryAfter: d.RetryAfter})
		}
	}

	if pol.Schedule.OverallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pol.Schedule.OverallTimeout)
		defer cancel()
	}

	drv := schedule.NewDriver(e.retrySchedule(sched, pol), e.clock)
	e.logger.Debug().
		Str("key", c.key.String()).
		Str("run_id", c.tl.RunID).
		Str("kind", string(pol.Schedule.Kind)).
		Int("max_attempts", pol.Schedule.MaxAttempts).
		Msg("call started")

	var (
		last    T
		lastErr error
		delay   time.Duration
	)
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return last, c.fail(ctx, err)
		}

		dec, ok := e.allowAttempt(ctx, c.key, pol.Schedule.Budget, attempt)
		if !ok {
			now := c.now(ctx)
			c.record(ctx, observe.AttemptRecord{
				Attempt:       attempt,
				StartTime:     now,
				EndTime:       now,
				Delay:         delay,
				Outcome:       classify.Outcome{Kind: classify.OutcomeAbort, Reason: dec.Reason},
				BudgetAllowed: false,
				BudgetReason:  dec.Reason,
			})
			if lastErr != nil {
				return last, c.fail(ctx, lastErr)
			}
			return last, c.fail(ctx, &BudgetDeniedError{Key: c.key, Budget: pol.Schedule.Budget.Name, Reason: dec.Reason})
		}

		rec := observe.AttemptRecord{
			Attempt:       attempt,
			StartTime:     c.now(ctx),
			Delay:         delay,
			BudgetAllowed: true,
			BudgetReason:  dec.Reason,
		}
		val, opErr, panicErr := c.attempt(ctx, op, attempt, dec.Release)
		rec.EndTime = c.now(ctx)
		if panicErr != nil {
			rec.Err = panicErr
			rec.Outcome = classify.Outcome{Kind: classify.OutcomeAbort, Reason: "panic_in_operation"}
			c.record(ctx, rec)
			recordCircuit(ctx, breaker, false)
			return last, c.fail(ctx, panicErr)
		}

		out, panicErr := classifyWithRecovery(e.recoverPanics, classifier, val, opErr, c.key)
		annotateClassifierFallback(&out, cmeta)
		rec.Err = opErr
		rec.Outcome = out
		c.record(ctx, rec)
		if panicErr != nil {
			recordCircuit(ctx, breaker, false)
			return last, c.fail(ctx, panicErr)
		}

		if out.Kind == classify.OutcomeSuccess {
			recordCircuit(ctx, breaker, true)
			c.tl.End = c.now(ctx)
			e.observer.OnSuccess(ctx, c.key, c.tl)
			return val, nil
		}
		last, lastErr = val, opErr

		next, stepErr := drv.Next(ctx, attemptResult{err: opErr, outcome: out})
		if errors.Is(stepErr, schedule.ErrNoMoreDecisions) {
			reason := out.Reason
			if out.Continues() {
				reason = "schedule_exhausted"
			}
			e.observer.OnSchedule(ctx, observe.ScheduleEvent{Key: c.key, Attempt: attempt, Done: true, Reason: reason})
			recordCircuit(ctx, breaker, false)
			return last, c.fail(ctx, terminalError(ctx, opErr, out))
		}
		if stepErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return last, c.fail(ctx, ctxErr)
			}
			return last, c.fail(ctx, stepErr)
		}
		e.observer.OnSchedule(ctx, observe.ScheduleEvent{Key: c.key, Attempt: attempt, Delay: next})
		delay = next
	}
}

// retrySchedule gates sched with the attempt's classification. The schedule continues only for
// retryable outcomes, and an outcome's BackoffOverride replaces the chosen delay, capped at the
// policy's maximum delay. Its output is the delay actually waited.
func (e *Executor) retrySchedule(sched schedule.Schedule[any, error, time.Duration], pol policy.EffectivePolicy) schedule.Schedule[any, attemptResult, time.Duration] {
	fed := schedule.Contramap(sched, func(r attemptResult) error { return r.err })
	paired := schedule.Zip(schedule.Identity[attemptResult](), fed)
	gated := schedule.CheckEffect(paired, func(_ context.Context, r attemptResult, _ schedule.Pair[attemptResult, time.Duration]) bool {
		return r.outcome.Continues()
	})
	overridden := schedule.ModifyDelay(gated, func(out schedule.Pair[attemptResult, time.Duration], d time.Duration) time.Duration {
		if o := out.First.outcome.BackoffOverride; o > 0 {
			return capDelay(o, pol.Schedule.MaxDelay)
		}
		return d
	})
	final := schedule.Erase(schedule.Delays(overridden))
	if e.random != nil {
		final = schedule.ProvideRandom(final, e.random)
	}
	return final
}

func (c *call[T]) attempt(ctx context.Context, op OperationValue[T], attempt int, release func()) (val T, err error, panicErr error) {
	e := c.exec
	attemptCtx := ctx
	cancel := func() {}
	if c.pol.Schedule.TimeoutPerAttempt > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, c.pol.Schedule.TimeoutPerAttempt)
	}
	defer cancel()
	if release != nil {
		defer release()
	}

	attemptCtx = observe.WithoutTimelineCapture(attemptCtx)
	attemptCtx = observe.WithAttemptInfo(attemptCtx, observe.AttemptInfo{
		Attempt:    attempt,
		RetryIndex: attempt,
		RunID:      c.tl.RunID,
		PolicyID:   c.pol.ID,
	})

	if e.recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				panicErr = &PanicError{Component: "operation", Key: c.key, Value: r, Stack: debug.Stack()}
			}
		}()
	}
	val, err = op(attemptCtx)
	return val, err, nil
}

func (c *call[T]) record(ctx context.Context, rec observe.AttemptRecord) {
	c.tl.Attempts = append(c.tl.Attempts, rec)
	c.exec.observer.OnAttempt(ctx, c.key, rec)
	c.exec.logger.Debug().
		Err(rec.Err).
		Str("key", c.key.String()).
		Str("run_id", c.tl.RunID).
		Int("attempt", rec.Attempt).
		Dur("delay", rec.Delay).
		Str("outcome", rec.Outcome.Kind.String()).
		Str("reason", rec.Outcome.Reason).
		Msg("attempt finished")
}

func (c *call[T]) fail(ctx context.Context, err error) error {
	c.tl.End = c.now(ctx)
	c.tl.FinalErr = err
	c.exec.observer.OnFailure(ctx, c.key, c.tl)
	c.exec.logger.Debug().Err(err).Str("key", c.key.String()).Str("run_id", c.tl.RunID).Int("attempts", len(c.tl.Attempts)).Msg("call failed")
	return err
}

func recordCircuit(ctx context.Context, cb circuit.CircuitBreaker, success bool) {
	if cb == nil {
		return
	}
	if success {
		cb.RecordSuccess(ctx)
	} else {
		cb.RecordFailure(ctx)
	}
}

func (e *Executor) resolvePolicy(ctx context.Context, key policy.PolicyKey) (policy.EffectivePolicy, map[string]string, error) {
	attrs := make(map[string]string)

	var pol policy.EffectivePolicy
	var err error

	func() {
		if e.recoverPanics {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{
						Component: "policy_provider",
						Key:       key,
						Value:     r,
						Stack:     debug.Stack(),
					}
				}
			}()
		}
		pol, err = e.provider.GetEffectivePolicy(ctx, key)
	}()

	if err != nil {
		attrs["policy_error"] = policyErrorKind(err)
		attrs["missing_policy_mode"] = failureModeString(e.missingPolicyMode)
		e.logger.Debug().Err(err).Str("key", key.String()).Str("mode", failureModeString(e.missingPolicyMode)).Msg("policy lookup failed")
		switch e.missingPolicyMode {
		case FailureDeny:
			if pol.IsZero() {
				return policy.EffectivePolicy{}, attrs, &NoPolicyError{Key: key, Err: err}
			}
			// A last-known-good policy served alongside the error is still usable.
		case FailureAllow, FailureAllowUnsafe:
			pol = singleAttempt(key)
		case FailureFallback:
			if pol.IsZero() {
				pol = policy.DefaultPolicyFor(key)
			}
		}
	}
	if pol.IsZero() {
		pol = policy.DefaultPolicyFor(key)
	}
	pol.Key = key

	normalized, normErr := pol.Normalize()
	if normErr != nil {
		attrs["policy_error"] = fmt.Sprintf("normalization_failed: %v", normErr)
		switch e.missingPolicyMode {
		case FailureDeny:
			return policy.EffectivePolicy{}, attrs, &NoPolicyError{Key: key, Err: normErr}
		case FailureAllow, FailureAllowUnsafe:
			normalized, _ = singleAttempt(key).Normalize()
		default:
			normalized, _ = policy.DefaultPolicyFor(key).Normalize()
		}
	}
	attrs["policy_source"] = string(normalized.Meta.Source)
	return normalized, attrs, nil
}

func singleAttempt(key policy.PolicyKey) policy.EffectivePolicy {
	pol := policy.DefaultPolicyFor(key)
	pol.Schedule.MaxAttempts = 1
	return pol
}

func policyErrorKind(err error) string {
	switch {
	case errors.Is(err, controlplane.ErrPolicyNotFound):
		return "policy_not_found"
	case errors.Is(err, controlplane.ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, controlplane.ErrPolicyCorrupt):
		return "policy_corrupt"
	case errors.Is(err, controlplane.ErrPolicyFetchFailed):
		return "policy_fetch_failed"
	default:
		var pe *PanicError
		if errors.As(err, &pe) {
			return "panic"
		}
		return "unknown_error"
	}
}

type classifierMeta struct {
	requested string
	notFound  bool
}

func (e *Executor) resolveClassifier(pol policy.EffectivePolicy) (classify.Classifier, classifierMeta, error) {
	meta := classifierMeta{requested: strings.TrimSpace(pol.Schedule.ClassifierName)}

	classifier := e.defaultClassifier
	if meta.requested == "" {
		return classifier, meta, nil
	}

	if c, ok := e.classifiers.Get(meta.requested); ok {
		return c, meta, nil
	}

	meta.notFound = true
	if e.missingClassifierMode == FailureDeny {
		return nil, meta, &NoClassifierError{Name: meta.requested}
	}
	return classifier, meta, nil
}

func annotateClassifierFallback(out *classify.Outcome, meta classifierMeta) {
	if out == nil || !meta.notFound || meta.requested == "" {
		return
	}
	if out.Attributes == nil {
		out.Attributes = make(map[string]string, 3)
	}
	out.Attributes["classifier_not_found"] = "true"
	out.Attributes["classifier_name"] = meta.requested
	out.Attributes["classifier_fallback"] = "default"
}

func classifyWithRecovery(recoverPanics bool, classifier classify.Classifier, value any, err error, key policy.PolicyKey) (out classify.Outcome, panicErr error) {
	if recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				out = classify.Outcome{Kind: classify.OutcomeAbort, Reason: "panic_in_classifier"}
				panicErr = &PanicError{
					Component: "classifier",
					Key:       key,
					Value:     r,
					Stack:     debug.Stack(),
				}
			}
		}()
	}
	out = classifier.Classify(value, err)
	if out.Kind == classify.OutcomeUnknown {
		if out.Reason == "" {
			out.Reason = "unknown_outcome"
		}
		out.Kind = classify.OutcomeAbort
	}
	if out.Reason == "" {
		switch out.Kind {
		case classify.OutcomeSuccess:
			out.Reason = "success"
		case classify.OutcomeRetryable:
			out.Reason = "retryable_error"
		case classify.OutcomeNonRetryable:
			out.Reason = "non_retryable_error"
		default:
			out.Reason = "abort"
		}
	}
	return out, nil
}

func terminalError(ctx context.Context, opErr error, out classify.Outcome) error {
	if ctx != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && (errors.Is(opErr, context.Canceled) || errors.Is(opErr, context.DeadlineExceeded)) {
			return ctxErr
		}
	}
	if opErr != nil {
		return opErr
	}
	if out.Reason != "" {
		return errors.New("cadence: " + out.Reason)
	}
	return errors.New("cadence: operation failed")
}

func capDelay(d, limit time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if limit > 0 && d > limit {
		return limit
	}
	return d
}
