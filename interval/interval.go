// Package interval implements the millisecond time ranges that schedule decisions are expressed in.
//
// An Interval is a half-open range [Start, End) over an integer millisecond timeline. Every
// operation is pure and total: intersecting disjoint ranges yields the empty interval rather than
// an error, and only Union is partial because the union of disjoint ranges is not one Interval.
package interval

import (
	"fmt"
	"time"
)

const (
	// MaxSafeInteger is the upper bound used for open-ended intervals (2^53 - 1).
	MaxSafeInteger int64 = 1<<53 - 1
	// MinSafeInteger is the lower bound used for open-ended intervals.
	MinSafeInteger int64 = -MaxSafeInteger
)

// Interval is the range [Start, End) in milliseconds since the Unix epoch.
type Interval struct {
	Start int64
	End   int64
}

// Empty is the canonical empty interval.
var Empty = Interval{}

// Make returns [start, end), or Empty when start > end.
func Make(start, end int64) Interval {
	if start > end {
		return Empty
	}
	return Interval{Start: start, End: end}
}

// Before returns the open-ended interval that ends at t.
func Before(t int64) Interval {
	return Make(MinSafeInteger, t)
}

// After returns the open-ended interval that starts at t.
func After(t int64) Interval {
	return Make(t, MaxSafeInteger)
}

// Min returns whichever of a and b comes first.
//
// A range that ends before the other starts wins outright; overlapping ranges are ordered by
// start, then by end.
func Min(a, b Interval) Interval {
	switch {
	case a.End <= b.Start:
		return a
	case b.End <= a.Start:
		return b
	case a.Start < b.Start:
		return a
	case b.Start < a.Start:
		return b
	case a.End <= b.End:
		return a
	default:
		return b
	}
}

// Max returns whichever of a and b Min did not pick.
func Max(a, b Interval) Interval {
	if Min(a, b) == a {
		return b
	}
	return a
}

// Intersect returns the range covered by both a and b. It may be empty.
func Intersect(a, b Interval) Interval {
	return Make(max(a.Start, b.Start), min(a.End, b.End))
}

// Union returns the window shared by a and b. It reports false when the ranges are disjoint or
// only touch, in which case callers keep both intervals or fall back to Min/Max.
func Union(a, b Interval) (Interval, bool) {
	start := max(a.Start, b.Start)
	end := min(a.End, b.End)
	if start < end {
		return Interval{Start: start, End: end}, true
	}
	return Empty, false
}

// UnionOrMin returns Union(a, b), or the earlier of the two when they do not overlap.
func UnionOrMin(a, b Interval) Interval {
	if u, ok := Union(a, b); ok {
		return u
	}
	return Min(a, b)
}

// IntersectOrMax returns Intersect(a, b), or the later of the two when the intersection is empty.
func IntersectOrMax(a, b Interval) Interval {
	if i := Intersect(a, b); !i.IsEmpty() {
		return i
	}
	return Max(a, b)
}

// IsEmpty reports whether the interval covers no instant.
func (i Interval) IsEmpty() bool {
	return i.Start >= i.End
}

// Size returns End - Start as a duration. It is zero for empty intervals.
func (i Interval) Size() time.Duration {
	if i.IsEmpty() {
		return 0
	}
	return time.Duration(i.End-i.Start) * time.Millisecond
}

// Contains reports whether t lies within [Start, End).
func (i Interval) Contains(t int64) bool {
	return t >= i.Start && t < i.End
}

// StartTime returns Start as a time.Time.
func (i Interval) StartTime() time.Time { return time.UnixMilli(i.Start) }

// EndTime returns End as a time.Time.
func (i Interval) EndTime() time.Time { return time.UnixMilli(i.End) }

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s)", bound(i.Start), bound(i.End))
}

func bound(t int64) string {
	switch t {
	case MaxSafeInteger:
		return "+inf"
	case MinSafeInteger:
		return "-inf"
	default:
		return fmt.Sprintf("%d", t)
	}
}
