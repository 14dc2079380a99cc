package clock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestLive_SleepHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Live{}.Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestLive_NonPositiveSleepReturnsImmediately(t *testing.T) {
	require.NoError(t, Live{}.Sleep(context.Background(), -time.Second))
	require.NoError(t, Live{}.Sleep(context.Background(), 0))
}

func TestTestClock_AdjustAndSleep(t *testing.T) {
	c := NewTestClock(epoch)
	ctx := context.Background()

	assert.Equal(t, epoch.UnixMilli(), c.CurrentTime(ctx))

	require.NoError(t, c.Sleep(ctx, time.Hour))
	assert.Equal(t, epoch.UnixMilli(), c.CurrentTime(ctx), "sleep must not move a manual clock")
	assert.Equal(t, int64(1), c.Sleeps())

	c.Adjust(10 * time.Second)
	assert.Equal(t, epoch.Add(10*time.Second).UnixMilli(), c.CurrentTime(ctx))
}

func TestTestClock_FastForward(t *testing.T) {
	c := NewFastForward(epoch)
	ctx := context.Background()

	require.NoError(t, c.Sleep(ctx, 250*time.Millisecond))
	assert.Equal(t, epoch.Add(250*time.Millisecond), Now(ctx, c))
}

func TestTestClock_ConcurrentAdjust(t *testing.T) {
	c := NewTestClock(epoch)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Adjust(time.Millisecond)
		}()
	}
	wg.Wait()
	assert.Equal(t, epoch.UnixMilli()+50, c.CurrentTime(context.Background()))
}

func TestTestClock_SleepReportsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewTestClock(epoch).Sleep(ctx, time.Second)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestProxy_ResolvesAmbientClock(t *testing.T) {
	tc := NewTestClock(epoch)
	ctx := WithClock(context.Background(), tc)

	assert.Equal(t, epoch.UnixMilli(), Proxy{}.CurrentTime(ctx))
	assert.IsType(t, Live{}, FromContext(context.Background()))
	assert.Same(t, tc, FromContext(ctx))
}

func TestClockwork_SleepBlocksUntilAdvanced(t *testing.T) {
	fake := clockwork.NewFakeClockAt(epoch)
	c := FromClockwork(fake)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Sleep(ctx, time.Minute) }()

	require.NoError(t, fake.BlockUntilContext(ctx, 1))
	fake.Advance(time.Minute)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("sleep did not return after advancing the fake clock")
	}
	assert.Equal(t, epoch.Add(time.Minute).UnixMilli(), c.CurrentTime(ctx))
}
