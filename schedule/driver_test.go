package schedule

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aponysus/cadence/clock"
	"github.com/aponysus/cadence/decision"
	"github.com/aponysus/cadence/interval"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestDriver_NextLastReset(t *testing.T) {
	ctx := context.Background()
	d := NewDriver(Recurs[string](2), clock.NewTestClock(epoch))

	_, err := d.Last()
	require.ErrorIs(t, err, ErrNoSuchElement)

	out, err := d.Next(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(0), out)

	out, err = d.Next(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), out)

	out, err = d.Next(ctx, "c")
	require.ErrorIs(t, err, ErrNoMoreDecisions)
	assert.Equal(t, int64(2), out)

	last, err := d.Last()
	require.NoError(t, err)
	assert.Equal(t, int64(2), last)

	d.Reset()
	assert.Equal(t, int64(0), d.State())
	_, err = d.Last()
	require.ErrorIs(t, err, ErrNoSuchElement)

	out, err = d.Next(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, int64(0), out)
}

func TestDriver_DoneDoesNotLatch(t *testing.T) {
	ctx := context.Background()
	d := NewDriver(Recurs[int](1), clock.NewTestClock(epoch))

	_, err := d.Next(ctx, 0)
	require.NoError(t, err)
	_, err = d.Next(ctx, 0)
	require.ErrorIs(t, err, ErrNoMoreDecisions)

	out, err := d.Next(ctx, 0)
	require.ErrorIs(t, err, ErrNoMoreDecisions)
	assert.Equal(t, int64(2), out)
}

func TestDriver_SpacedRecursProducesTimestamps(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFastForward(epoch)
	s := CollectAll(ZipLeft(Identity[int64](), Zip(Spaced[int64](10*time.Millisecond), Recurs[int64](5))))
	d := s.Driver(clk)

	var got []int64
	for {
		out, err := d.Next(ctx, clk.CurrentTime(ctx))
		if errors.Is(err, ErrNoMoreDecisions) {
			got = out
			break
		}
		require.NoError(t, err)
	}

	start := epoch.UnixMilli()
	assert.Equal(t, []int64{start, start + 10, start + 20, start + 30, start + 40}, got)
	assert.Equal(t, int64(5), clk.Sleeps())
	assert.Equal(t, start+50, clk.CurrentTime(ctx))
}

func TestDriver_ClockFromContext(t *testing.T) {
	clk := clock.NewFastForward(epoch)
	ctx := clock.WithClock(context.Background(), clk)
	d := NewDriver(Spaced[int](time.Second), clock.Proxy{})

	_, err := d.Next(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(time.Second).UnixMilli(), clk.CurrentTime(ctx))
}

func TestDriver_CancelKeepsSteppedState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDriver(Spaced[int](time.Hour), clock.Live{})
	out, err := d.Next(ctx, 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), out)
	assert.Equal(t, int64(1), d.State())

	last, err := d.Last()
	require.NoError(t, err)
	assert.Equal(t, int64(0), last)
}

func TestDriver_DefectLeavesStateUntouched(t *testing.T) {
	d := NewDriver(DayOfMonth[int](0, InLocation(time.UTC)), clock.NewTestClock(epoch))
	_, err := d.Next(context.Background(), 0)
	require.ErrorIs(t, err, ErrIllegalArgument)
	_, err = d.Last()
	require.ErrorIs(t, err, ErrNoSuchElement)
}

func TestDriver_NilClockIsLive(t *testing.T) {
	d := NewDriver(Recurs[int](0), nil)
	_, err := d.Next(context.Background(), 0)
	require.ErrorIs(t, err, ErrNoMoreDecisions)
}

func TestDriver_FarFutureDecisionSleepsMaxDuration(t *testing.T) {
	far := New(0, func(_ context.Context, now int64, _ int, n int) (int, int, decision.Decision, error) {
		return n + 1, n, decision.ContinueWith(interval.After(interval.MaxSafeInteger)), nil
	})
	tc := clock.NewFastForward(time.UnixMilli(0))
	d := NewDriver(far, tc)

	_, err := d.Next(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tc.Sleeps())
	assert.Equal(t, time.Duration(math.MaxInt64).Milliseconds(), tc.CurrentTime(context.Background()))
}
