// Package clock supplies the time source that schedule drivers read and sleep on.
//
// Schedules never read wall-clock time themselves; a Driver asks its Clock for the current time and
// passes it into each step. Swapping Live for a TestClock makes the whole algebra deterministic.
package clock

import (
	"context"
	"time"
)

// Clock is the time capability consumed by drivers.
//
// Implementations must be safe for concurrent use.
type Clock interface {
	// CurrentTime returns milliseconds since the Unix epoch.
	CurrentTime(ctx context.Context) int64

	// Sleep suspends for at least d, returning early with ctx.Err() when ctx is done.
	// Non-positive durations return immediately.
	Sleep(ctx context.Context, d time.Duration) error
}

// Live is the Clock backed by the host timer.
type Live struct{}

func (Live) CurrentTime(context.Context) int64 {
	return time.Now().UnixMilli()
}

func (Live) Sleep(ctx context.Context, d time.Duration) error {
	return SleepContext(ctx, d)
}

// SleepContext waits for d or until ctx is done, whichever happens first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	timer := time.NewTimer(d)
	defer func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Now returns c's current time as a time.Time.
func Now(ctx context.Context, c Clock) time.Time {
	return time.UnixMilli(c.CurrentTime(ctx))
}
