package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aponysus/cadence/decision"
	"github.com/aponysus/cadence/interval"
)

// CalendarOption configures calendar schedules.
type CalendarOption func(*calendarConfig)

type calendarConfig struct {
	loc *time.Location
}

// InLocation evaluates calendar boundaries in loc. The default is time.Local.
func InLocation(loc *time.Location) CalendarOption {
	return func(c *calendarConfig) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func newCalendarConfig(opts []CalendarOption) calendarConfig {
	cfg := calendarConfig{loc: time.Local}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// CalendarState remembers the end of the last window and how many windows were produced.
type CalendarState struct {
	End   int64
	Count int64
}

// nextWindow returns the first window [start, end) with end > from, or ok=false if none exists.
type nextWindow func(from time.Time) (start, end time.Time, ok bool)

func calendar[In any](validate func() error, next nextWindow, loc *time.Location) Schedule[CalendarState, In, int64] {
	return New(CalendarState{}, func(_ context.Context, now int64, _ In, state CalendarState) (CalendarState, int64, decision.Decision, error) {
		if err := validate(); err != nil {
			return state, state.Count, decision.Done, err
		}
		from := time.UnixMilli(max(now, state.End)).In(loc)
		start, end, ok := next(from)
		if !ok {
			return state, state.Count, decision.Done, nil
		}
		out := state.Count
		state = CalendarState{End: end.UnixMilli(), Count: state.Count + 1}
		return state, out, decision.ContinueWith(interval.Make(start.UnixMilli(), end.UnixMilli())), nil
	})
}

func checkRange(op string, v, lo, hi int) func() error {
	return func() error {
		if v < lo || v > hi {
			return &IllegalArgumentError{Op: op, Value: v, Want: fmt.Sprintf("%d..%d", lo, hi)}
		}
		return nil
	}
}

// DayOfMonth recurs on every occurrence of the given day of the month, emitting the count of
// recurrences so far. Months without that day are skipped.
//
// The argument is validated when the schedule is stepped; a day outside 1..31 makes the step
// report an IllegalArgumentError.
func DayOfMonth[In any](day int, opts ...CalendarOption) Schedule[CalendarState, In, int64] {
	cfg := newCalendarConfig(opts)
	return calendar[In](checkRange("DayOfMonth", day, 1, 31), func(from time.Time) (time.Time, time.Time, bool) {
		y, m, _ := from.Date()
		for i := 0; i < 48; i++ {
			start := time.Date(y, m+time.Month(i), day, 0, 0, 0, 0, from.Location())
			if start.Day() != day {
				continue
			}
			end := start.AddDate(0, 0, 1)
			if end.After(from) {
				return start, end, true
			}
		}
		return time.Time{}, time.Time{}, false
	}, cfg.loc)
}

// DayOfWeek recurs on every given weekday, emitting the count of recurrences so far.
func DayOfWeek[In any](day time.Weekday, opts ...CalendarOption) Schedule[CalendarState, In, int64] {
	cfg := newCalendarConfig(opts)
	return calendar[In](checkRange("DayOfWeek", int(day), int(time.Sunday), int(time.Saturday)), func(from time.Time) (time.Time, time.Time, bool) {
		y, m, d := from.Date()
		for i := 0; i < 8; i++ {
			start := time.Date(y, m, d+i, 0, 0, 0, 0, from.Location())
			if start.Weekday() != day {
				continue
			}
			end := start.AddDate(0, 0, 1)
			if end.After(from) {
				return start, end, true
			}
		}
		return time.Time{}, time.Time{}, false
	}, cfg.loc)
}

// HourOfDay recurs every day during the given hour, emitting the count of recurrences so far.
func HourOfDay[In any](hour int, opts ...CalendarOption) Schedule[CalendarState, In, int64] {
	cfg := newCalendarConfig(opts)
	return calendar[In](checkRange("HourOfDay", hour, 0, 23), func(from time.Time) (time.Time, time.Time, bool) {
		y, m, d := from.Date()
		for i := 0; i < 3; i++ {
			start := time.Date(y, m, d+i, hour, 0, 0, 0, from.Location())
			end := start.Add(time.Hour)
			if end.After(from) {
				return start, end, true
			}
		}
		return time.Time{}, time.Time{}, false
	}, cfg.loc)
}

// MinuteOfHour recurs every hour during the given minute, emitting the count of recurrences so far.
func MinuteOfHour[In any](minute int, opts ...CalendarOption) Schedule[CalendarState, In, int64] {
	cfg := newCalendarConfig(opts)
	return calendar[In](checkRange("MinuteOfHour", minute, 0, 59), func(from time.Time) (time.Time, time.Time, bool) {
		y, m, d := from.Date()
		for i := 0; i < 3; i++ {
			start := time.Date(y, m, d, from.Hour()+i, minute, 0, 0, from.Location())
			end := start.Add(time.Minute)
			if end.After(from) {
				return start, end, true
			}
		}
		return time.Time{}, time.Time{}, false
	}, cfg.loc)
}

// SecondOfMinute recurs every minute during the given second, emitting the count of recurrences so far.
func SecondOfMinute[In any](second int, opts ...CalendarOption) Schedule[CalendarState, In, int64] {
	cfg := newCalendarConfig(opts)
	return calendar[In](checkRange("SecondOfMinute", second, 0, 59), func(from time.Time) (time.Time, time.Time, bool) {
		y, m, d := from.Date()
		for i := 0; i < 3; i++ {
			start := time.Date(y, m, d, from.Hour(), from.Minute()+i, second, 0, from.Location())
			end := start.Add(time.Second)
			if end.After(from) {
				return start, end, true
			}
		}
		return time.Time{}, time.Time{}, false
	}, cfg.loc)
}

var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Cron recurs at every activation of a cron expression, emitting the count of recurrences so far.
//
// Both five-field and six-field (leading seconds) expressions are accepted, as are descriptors
// such as "@hourly" and "@every 5m". Each activation is a one-second window.
func Cron[In any](expr string, opts ...CalendarOption) (Schedule[CalendarState, In, int64], error) {
	spec, err := cronParser.Parse(expr)
	if err != nil {
		return Schedule[CalendarState, In, int64]{}, fmt.Errorf("cadence: parse cron %q: %w", expr, err)
	}
	cfg := newCalendarConfig(opts)
	return calendar[In](func() error { return nil }, func(from time.Time) (time.Time, time.Time, bool) {
		start := spec.Next(from.Add(-time.Millisecond))
		if start.IsZero() {
			return time.Time{}, time.Time{}, false
		}
		return start, start.Add(time.Second), true
	}, cfg.loc), nil
}
