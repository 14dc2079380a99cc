package policy

import "time"

// Option mutates a policy under construction.
type Option func(*EffectivePolicy)

// New builds a normalized policy for key starting from DefaultPolicyFor.
//
// If the options produce a policy that cannot be normalized, New returns the default policy for
// key instead.
func New(key string, opts ...Option) EffectivePolicy {
	return NewFromKey(ParseKey(key), opts...)
}

// NewFromKey is New for a structured key.
func NewFromKey(key PolicyKey, opts ...Option) EffectivePolicy {
	p := DefaultPolicyFor(key)
	p.Meta.Source = PolicySourceStatic
	for _, opt := range opts {
		if opt != nil {
			opt(&p)
		}
	}
	p.Key = key

	normalized, err := p.Normalize()
	if err != nil {
		fallback, _ := DefaultPolicyFor(key).Normalize()
		return fallback
	}
	return normalized
}

func ID(id string) Option {
	return func(p *EffectivePolicy) { p.ID = id }
}

// WithKind selects the base recurrence.
func WithKind(k Kind) Option {
	return func(p *EffectivePolicy) { p.Schedule.Kind = k }
}

func MaxAttempts(n int) Option {
	return func(p *EffectivePolicy) { p.Schedule.MaxAttempts = n }
}

func BaseDelay(d time.Duration) Option {
	return func(p *EffectivePolicy) { p.Schedule.BaseDelay = d }
}

func Factor(f float64) Option {
	return func(p *EffectivePolicy) { p.Schedule.Factor = f }
}

func MaxDelay(d time.Duration) Option {
	return func(p *EffectivePolicy) { p.Schedule.MaxDelay = d }
}

func Jitter(j JitterKind) Option {
	return func(p *EffectivePolicy) { p.Schedule.Jitter = j }
}

// UpTo stops recurring once d has elapsed since the first recurrence decision.
func UpTo(d time.Duration) Option {
	return func(p *EffectivePolicy) { p.Schedule.UpTo = d }
}

// CronExpr switches the policy to cron recurrence.
func CronExpr(expr string) Option {
	return func(p *EffectivePolicy) {
		p.Schedule.Kind = KindCron
		p.Schedule.Cron = expr
	}
}

func TimeoutPerAttempt(d time.Duration) Option {
	return func(p *EffectivePolicy) { p.Schedule.TimeoutPerAttempt = d }
}

func OverallTimeout(d time.Duration) Option {
	return func(p *EffectivePolicy) { p.Schedule.OverallTimeout = d }
}

// Classifier names the classify.Registry entry that decides which outcomes recur.
func Classifier(name string) Option {
	return func(p *EffectivePolicy) { p.Schedule.ClassifierName = name }
}

// Budget gates every attempt on the named budget.
func Budget(name string) Option {
	return func(p *EffectivePolicy) { p.Schedule.Budget.Name = name }
}

func BudgetCost(cost int) Option {
	return func(p *EffectivePolicy) { p.Schedule.Budget.Cost = cost }
}

// Circuit enables a consecutive-failure breaker for the key.
func Circuit(threshold int, cooldown time.Duration) Option {
	return func(p *EffectivePolicy) {
		p.Circuit = CircuitPolicy{Enabled: true, Threshold: threshold, Cooldown: cooldown}
	}
}

// Presets

// ExponentialBackoff doubles from base up to maxDelay with equal jitter.
func ExponentialBackoff(base, maxDelay time.Duration) Option {
	return func(p *EffectivePolicy) {
		p.Schedule.Kind = KindExponential
		p.Schedule.BaseDelay = base
		p.Schedule.MaxDelay = maxDelay
		p.Schedule.Factor = 2
		p.Schedule.Jitter = JitterEqual
	}
}

// HTTPDefaults retries idempotent HTTP failures three times with jittered exponential backoff.
func HTTPDefaults() Option {
	return func(p *EffectivePolicy) {
		p.Schedule.Kind = KindExponential
		p.Schedule.MaxAttempts = 3
		p.Schedule.BaseDelay = 100 * time.Millisecond
		p.Schedule.MaxDelay = 2 * time.Second
		p.Schedule.Factor = 2
		p.Schedule.Jitter = JitterEqual
		p.Schedule.ClassifierName = "http"
	}
}

// Polling repeats every interval for up to total, for background loops.
func Polling(interval, total time.Duration) Option {
	return func(p *EffectivePolicy) {
		p.Schedule.Kind = KindSpaced
		p.Schedule.BaseDelay = interval
		p.Schedule.MaxAttempts = maxAttemptsCeiling
		p.Schedule.UpTo = total
		p.Schedule.Jitter = JitterBounded
	}
}
