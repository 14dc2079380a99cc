// Package decision holds the result of a single scheduling step.
package decision

import (
	"slices"
	"strings"

	"github.com/aponysus/cadence/interval"
)

// Kind distinguishes the two decision variants.
type Kind int

const (
	KindDone Kind = iota
	KindContinue
)

func (k Kind) String() string {
	switch k {
	case KindContinue:
		return "continue"
	case KindDone:
		return "done"
	default:
		return "unknown"
	}
}

// Decision is either Done or Continue with one or more candidate intervals for the next run.
//
// The zero value is Done.
type Decision struct {
	kind      Kind
	intervals []interval.Interval
}

// Done is the terminal decision.
var Done = Decision{kind: KindDone}

// Continue returns a Continue decision carrying the given candidate intervals in Min order.
func Continue(first interval.Interval, rest ...interval.Interval) Decision {
	ivs := make([]interval.Interval, 0, 1+len(rest))
	ivs = append(ivs, first)
	ivs = append(ivs, rest...)
	slices.SortStableFunc(ivs, compare)
	return Decision{kind: KindContinue, intervals: ivs}
}

// ContinueWith wraps a single interval.
func ContinueWith(iv interval.Interval) Decision {
	return Decision{kind: KindContinue, intervals: []interval.Interval{iv}}
}

// Kind returns the decision variant.
func (d Decision) Kind() Kind { return d.kind }

// IsDone reports whether the decision is terminal.
func (d Decision) IsDone() bool { return d.kind != KindContinue }

// Intervals returns a copy of the candidate intervals. It is nil for Done.
func (d Decision) Intervals() []interval.Interval {
	if d.IsDone() {
		return nil
	}
	return slices.Clone(d.intervals)
}

// Interval returns the earliest candidate interval, or interval.Empty for Done.
func (d Decision) Interval() interval.Interval {
	if d.IsDone() || len(d.intervals) == 0 {
		return interval.Empty
	}
	return d.intervals[0]
}

// Start returns the start of the earliest candidate interval.
func (d Decision) Start() int64 {
	return d.Interval().Start
}

// WithInterval returns a Continue decision whose only candidate is iv. Done stays Done.
func (d Decision) WithInterval(iv interval.Interval) Decision {
	if d.IsDone() {
		return d
	}
	return ContinueWith(iv)
}

// Merge combines two decisions, keeping every candidate window.
//
// Overlapping heads collapse into their shared window; otherwise both candidate lists are kept so
// the driver wakes at the earliest one. Done on either side yields the other decision.
func Merge(a, b Decision) Decision {
	switch {
	case a.IsDone():
		return b
	case b.IsDone():
		return a
	}
	if u, ok := interval.Union(a.Interval(), b.Interval()); ok {
		return ContinueWith(u)
	}
	all := append(slices.Clone(a.intervals), b.intervals...)
	return Continue(all[0], all[1:]...)
}

func (d Decision) String() string {
	if d.IsDone() {
		return "Done"
	}
	parts := make([]string, len(d.intervals))
	for i, iv := range d.intervals {
		parts[i] = iv.String()
	}
	return "Continue(" + strings.Join(parts, ", ") + ")"
}

func compare(a, b interval.Interval) int {
	if a == b {
		return 0
	}
	if interval.Min(a, b) == a {
		return -1
	}
	return 1
}
