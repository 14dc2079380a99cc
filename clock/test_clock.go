package clock

import (
	"context"
	"sync/atomic"
	"time"
)

// TestClock is a deterministic Clock whose time only moves when told to.
//
// Sleep never blocks. With AutoAdvance set, Sleep moves the counter forward by the requested
// duration so a driven schedule observes the time it asked to wait for.
type TestClock struct {
	millis      atomic.Int64
	sleeps      atomic.Int64
	AutoAdvance bool
}

// NewTestClock returns a TestClock starting at start.
func NewTestClock(start time.Time) *TestClock {
	c := &TestClock{}
	c.millis.Store(start.UnixMilli())
	return c
}

// NewFastForward returns a TestClock that advances itself on every Sleep.
func NewFastForward(start time.Time) *TestClock {
	c := NewTestClock(start)
	c.AutoAdvance = true
	return c
}

func (c *TestClock) CurrentTime(context.Context) int64 {
	return c.millis.Load()
}

func (c *TestClock) Sleep(ctx context.Context, d time.Duration) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	c.sleeps.Add(1)
	if c.AutoAdvance && d > 0 {
		c.Adjust(d)
	}
	return nil
}

// Adjust moves the clock forward (or backward for negative d) and returns the new time in millis.
func (c *TestClock) Adjust(d time.Duration) int64 {
	return c.millis.Add(d.Milliseconds())
}

// SetTime moves the clock to t.
func (c *TestClock) SetTime(t time.Time) {
	c.millis.Store(t.UnixMilli())
}

// Sleeps returns how many times Sleep was called.
func (c *TestClock) Sleeps() int64 {
	return c.sleeps.Load()
}
