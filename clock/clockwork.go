package clock

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clockwork adapts a clockwork.Clock.
//
// Backed by clockwork.NewFakeClock, Sleep blocks until the fake clock is advanced past the
// deadline, which is useful when a test wants to observe a driver parked mid-sleep.
type Clockwork struct {
	C clockwork.Clock
}

// FromClockwork wraps c.
func FromClockwork(c clockwork.Clock) Clockwork {
	return Clockwork{C: c}
}

func (c Clockwork) CurrentTime(context.Context) int64 {
	return c.C.Now().UnixMilli()
}

func (c Clockwork) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	timer := c.C.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
