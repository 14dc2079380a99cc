package policy

import (
	"slices"
	"strings"
	"time"

	"github.com/aponysus/cadence/schedule"
)

// Kind selects the base recurrence of a SchedulePolicy.
type Kind string

const (
	KindSpaced      Kind = "spaced"
	KindFixed       Kind = "fixed"
	KindExponential Kind = "exponential"
	KindFibonacci   Kind = "fibonacci"
	KindLinear      Kind = "linear"
	KindCron        Kind = "cron"
)

// Kinds lists every supported Kind.
var Kinds = []Kind{KindSpaced, KindFixed, KindExponential, KindFibonacci, KindLinear, KindCron}

type JitterKind string

const (
	JitterNone    JitterKind = "none"
	JitterFull    JitterKind = "full"
	JitterEqual   JitterKind = "equal"
	JitterBounded JitterKind = "bounded"
)

type BudgetRef struct {
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	Cost int    `yaml:"cost,omitempty" json:"cost,omitempty"`
}

// SchedulePolicy describes a recurrence declaratively; Schedule turns it into a schedule.
type SchedulePolicy struct {
	Kind Kind `yaml:"kind" json:"kind"`

	// MaxAttempts counts the first attempt. A policy with MaxAttempts 1 never recurs.
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	Factor      float64       `yaml:"factor,omitempty" json:"factor,omitempty"`
	MaxDelay    time.Duration `yaml:"max_delay,omitempty" json:"max_delay,omitempty"`
	Jitter      JitterKind    `yaml:"jitter,omitempty" json:"jitter,omitempty"`
	UpTo        time.Duration `yaml:"up_to,omitempty" json:"up_to,omitempty"`
	Cron        string        `yaml:"cron,omitempty" json:"cron,omitempty"`

	TimeoutPerAttempt time.Duration `yaml:"timeout_per_attempt,omitempty" json:"timeout_per_attempt,omitempty"`
	OverallTimeout    time.Duration `yaml:"overall_timeout,omitempty" json:"overall_timeout,omitempty"`

	ClassifierName string    `yaml:"classifier,omitempty" json:"classifier,omitempty"`
	Budget         BudgetRef `yaml:"budget,omitempty" json:"budget,omitempty"`
}

type CircuitPolicy struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	Threshold int           `yaml:"threshold,omitempty" json:"threshold,omitempty"` // Consecutive failures
	Cooldown  time.Duration `yaml:"cooldown,omitempty" json:"cooldown,omitempty"`
}

type PolicySource string

const (
	PolicySourceUnknown PolicySource = "unknown"
	PolicySourceStatic  PolicySource = "static"
	PolicySourceFile    PolicySource = "file"
	PolicySourceRemote  PolicySource = "remote"
	PolicySourceLKG     PolicySource = "lkg"
	PolicySourceDefault PolicySource = "default"
)

type NormalizationInfo struct {
	Changed       bool     `yaml:"-" json:"-"`
	ChangedFields []string `yaml:"-" json:"-"`
}

type Metadata struct {
	Source        PolicySource      `yaml:"-" json:"-"`
	Normalization NormalizationInfo `yaml:"-" json:"-"`
}

type EffectivePolicy struct {
	Key      PolicyKey      `yaml:"-" json:"key"`
	ID       string         `yaml:"id,omitempty" json:"id,omitempty"`
	Schedule SchedulePolicy `yaml:"schedule" json:"schedule"`
	Circuit  CircuitPolicy  `yaml:"circuit,omitempty" json:"circuit,omitempty"`

	Meta Metadata `yaml:"-" json:"-"`
}

// IsZero reports whether p carries no configuration at all.
func (p EffectivePolicy) IsZero() bool {
	return p.Key.IsZero() &&
		p.ID == "" &&
		p.Schedule == (SchedulePolicy{}) &&
		p.Circuit == (CircuitPolicy{})
}

func DefaultPolicyFor(key PolicyKey) EffectivePolicy {
	return EffectivePolicy{
		Key: key,
		Schedule: SchedulePolicy{
			Kind:        KindExponential,
			MaxAttempts: 3,
			BaseDelay:   10 * time.Millisecond,
			Factor:      2,
			MaxDelay:    250 * time.Millisecond,
			Jitter:      JitterNone,
			Budget: BudgetRef{
				Cost: 1,
			},
		},
		Meta: Metadata{
			Source: PolicySourceDefault,
		},
	}
}

const (
	maxAttemptsCeiling = 100

	minDelayFloor       = 1 * time.Millisecond
	maxDelayCeiling     = 1 * time.Hour
	minTimeoutFloor     = 1 * time.Millisecond
	maxFactor           = 10.0
	minCircuitThreshold = 1
	minCircuitCooldown  = 100 * time.Millisecond
)

// Normalize fills defaults and clamps out-of-range values, recording every field it touched.
// Values that cannot be repaired (unknown kinds, bad cron expressions) yield a NormalizeError.
func (p EffectivePolicy) Normalize() (EffectivePolicy, error) {
	normalized := p
	norm := &normalized.Meta.Normalization
	s := &normalized.Schedule

	markChanged := func(field string) {
		norm.Changed = true
		if !slices.Contains(norm.ChangedFields, field) {
			norm.ChangedFields = append(norm.ChangedFields, field)
		}
	}

	s.Kind = Kind(strings.ToLower(strings.TrimSpace(string(s.Kind))))
	switch {
	case s.Kind == "" && strings.TrimSpace(s.Cron) != "":
		s.Kind = KindCron
		markChanged("schedule.kind")
	case s.Kind == "":
		s.Kind = KindExponential
		markChanged("schedule.kind")
	case !slices.Contains(Kinds, s.Kind):
		return EffectivePolicy{}, &NormalizeError{Field: "schedule.kind", Value: string(s.Kind)}
	}

	if s.MaxAttempts == 0 {
		s.MaxAttempts = 3
		markChanged("schedule.max_attempts")
	}
	if s.MaxAttempts < 1 {
		s.MaxAttempts = 1
		markChanged("schedule.max_attempts")
	} else if s.MaxAttempts > maxAttemptsCeiling {
		s.MaxAttempts = maxAttemptsCeiling
		markChanged("schedule.max_attempts")
	}

	if s.Kind == KindCron {
		s.Cron = strings.TrimSpace(s.Cron)
		if _, err := schedule.Cron[error](s.Cron); err != nil {
			return EffectivePolicy{}, &NormalizeError{Field: "schedule.cron", Value: s.Cron, Err: err}
		}
	} else {
		if s.BaseDelay <= 0 {
			s.BaseDelay = 10 * time.Millisecond
			markChanged("schedule.base_delay")
		}
		if s.BaseDelay < minDelayFloor {
			s.BaseDelay = minDelayFloor
			markChanged("schedule.base_delay")
		}
	}

	if s.MaxDelay <= 0 {
		s.MaxDelay = max(250*time.Millisecond, s.BaseDelay)
		markChanged("schedule.max_delay")
	}
	if s.MaxDelay > maxDelayCeiling {
		s.MaxDelay = maxDelayCeiling
		markChanged("schedule.max_delay")
	}
	if s.MaxDelay < s.BaseDelay {
		s.MaxDelay = s.BaseDelay
		markChanged("schedule.max_delay")
	}

	if s.Factor == 0 {
		s.Factor = 2
		markChanged("schedule.factor")
	}
	if s.Factor < 1 {
		s.Factor = 1
		markChanged("schedule.factor")
	} else if s.Factor > maxFactor {
		s.Factor = maxFactor
		markChanged("schedule.factor")
	}

	switch s.Jitter {
	case "":
		s.Jitter = JitterNone
		markChanged("schedule.jitter")
	case JitterNone, JitterFull, JitterEqual, JitterBounded:
	default:
		return EffectivePolicy{}, &NormalizeError{Field: "schedule.jitter", Value: string(s.Jitter)}
	}

	if s.UpTo < 0 {
		s.UpTo = 0
		markChanged("schedule.up_to")
	}

	if s.TimeoutPerAttempt < 0 {
		s.TimeoutPerAttempt = 0
		markChanged("schedule.timeout_per_attempt")
	}
	if s.TimeoutPerAttempt > 0 && s.TimeoutPerAttempt < minTimeoutFloor {
		s.TimeoutPerAttempt = minTimeoutFloor
		markChanged("schedule.timeout_per_attempt")
	}

	if s.OverallTimeout < 0 {
		s.OverallTimeout = 0
		markChanged("schedule.overall_timeout")
	}
	if s.OverallTimeout > 0 && s.OverallTimeout < minTimeoutFloor {
		s.OverallTimeout = minTimeoutFloor
		markChanged("schedule.overall_timeout")
	}

	s.Budget.Name = strings.TrimSpace(s.Budget.Name)
	if s.Budget.Cost < 1 {
		s.Budget.Cost = 1
		markChanged("schedule.budget.cost")
	}

	if !normalized.Circuit.Enabled {
		return normalized, nil
	}

	if normalized.Circuit.Threshold <= 0 {
		normalized.Circuit.Threshold = 5
		markChanged("circuit.threshold")
	}
	if normalized.Circuit.Threshold < minCircuitThreshold {
		normalized.Circuit.Threshold = minCircuitThreshold
		markChanged("circuit.threshold")
	}

	if normalized.Circuit.Cooldown <= 0 {
		normalized.Circuit.Cooldown = 10 * time.Second
		markChanged("circuit.cooldown")
	}
	if normalized.Circuit.Cooldown < minCircuitCooldown {
		normalized.Circuit.Cooldown = minCircuitCooldown
		markChanged("circuit.cooldown")
	}

	return normalized, nil
}
