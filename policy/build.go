package policy

import (
	"time"

	"github.com/aponysus/cadence/schedule"
)

// Build builds the recurrence p describes. Its input is the error of the attempt that just
// finished and its output is the delay chosen before the next attempt.
//
// The schedule allows MaxAttempts-1 recurrences, stops once UpTo has elapsed (when set), caps
// backoff kinds at MaxDelay and applies Jitter last. p should be normalized first; a zero-valued
// policy is normalized on the fly.
func (p EffectivePolicy) Build() (schedule.Schedule[any, error, time.Duration], error) {
	pol, err := p.Normalize()
	if err != nil {
		return schedule.Schedule[any, error, time.Duration]{}, err
	}
	s := pol.Schedule

	base, err := baseSchedule(s)
	if err != nil {
		return schedule.Schedule[any, error, time.Duration]{}, err
	}

	limited := schedule.Erase(schedule.ZipLeft(base, schedule.Recurs[error](s.MaxAttempts-1)))
	if s.UpTo > 0 {
		limited = schedule.Erase(schedule.ZipLeft(limited, schedule.UpTo[error](s.UpTo)))
	}

	switch s.Jitter {
	case JitterFull:
		limited = schedule.JitteredWith(limited, 0, 1)
	case JitterEqual:
		limited = schedule.JitteredWith(limited, 0.5, 1)
	case JitterBounded:
		limited = schedule.Jittered(limited)
	}

	return schedule.Delays(limited), nil
}

func baseSchedule(s SchedulePolicy) (schedule.Schedule[any, error, time.Duration], error) {
	switch s.Kind {
	case KindSpaced:
		return schedule.Erase(schedule.Delays(schedule.Spaced[error](s.BaseDelay))), nil
	case KindFixed:
		return schedule.Erase(schedule.Delays(schedule.Fixed[error](s.BaseDelay))), nil
	case KindFibonacci:
		return schedule.Erase(schedule.MaxDelay(schedule.Fibonacci[error](s.BaseDelay), s.MaxDelay)), nil
	case KindLinear:
		return schedule.Erase(schedule.MaxDelay(schedule.Linear[error](s.BaseDelay), s.MaxDelay)), nil
	case KindCron:
		c, err := schedule.Cron[error](s.Cron)
		if err != nil {
			return schedule.Schedule[any, error, time.Duration]{}, &NormalizeError{Field: "schedule.cron", Value: s.Cron, Err: err}
		}
		return schedule.Erase(schedule.Delays(c)), nil
	default:
		return schedule.Erase(schedule.MaxDelay(schedule.Exponential[error](s.BaseDelay, s.Factor), s.MaxDelay)), nil
	}
}
