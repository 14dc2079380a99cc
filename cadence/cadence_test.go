package cadence_test

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aponysus/cadence/cadence"
	"github.com/aponysus/cadence/clock"
	"github.com/aponysus/cadence/controlplane"
	"github.com/aponysus/cadence/observe"
	"github.com/aponysus/cadence/policy"
	"github.com/aponysus/cadence/retry"
	"github.com/aponysus/cadence/schedule"
)

func TestMain(m *testing.M) {
	cadence.Init(newTestExecutor())
	os.Exit(m.Run())
}

func newTestExecutor() *retry.Executor {
	policies := map[policy.PolicyKey]policy.EffectivePolicy{
		policy.ParseKey("cadence.success"):  testPolicy(2),
		policy.ParseKey("cadence.retry"):    testPolicy(2),
		policy.ParseKey("cadence.timeline"): testPolicy(2),
	}
	provider := &controlplane.StaticProvider{Policies: policies}
	return retry.NewExecutor(retry.WithProvider(provider), retry.WithClock(clock.NewFastForward(time.Unix(0, 0))))
}

func testPolicy(maxAttempts int) policy.EffectivePolicy {
	return policy.EffectivePolicy{
		Schedule: policy.SchedulePolicy{
			Kind:        policy.KindSpaced,
			MaxAttempts: maxAttempts,
			BaseDelay:   time.Millisecond,
			Jitter:      policy.JitterNone,
		},
	}
}

func TestDoValue_SimpleSuccess(t *testing.T) {
	got, err := cadence.DoValue(context.Background(), "cadence.success", func(ctx context.Context) (int, error) {
		return 7, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
}

func TestDo_SimpleSuccess(t *testing.T) {
	err := cadence.Do(context.Background(), "cadence.success", func(context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDoValue_RetriesOnError(t *testing.T) {
	var attempts int32
	got, err := cadence.DoValue(context.Background(), "cadence.retry", func(ctx context.Context) (int, error) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return 0, errors.New("retry me")
		}
		return 99, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 99 || attempts != 2 {
		t.Fatalf("got=%d attempts=%d", got, attempts)
	}
}

func TestDoValue_WithTimelineCapture(t *testing.T) {
	ctx, capture := observe.RecordTimeline(context.Background())
	var attempts int32
	_, err := cadence.DoValue(ctx, "cadence.timeline", func(ctx context.Context) (int, error) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return 0, errors.New("retry once")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tl := capture.Timeline()
	if tl == nil {
		t.Fatal("expected timeline to be captured")
	}
	if tl.Key != policy.ParseKey("cadence.timeline") || len(tl.Attempts) != 2 {
		t.Fatalf("timeline=%+v", tl)
	}
}

func TestDoWithTimeline(t *testing.T) {
	tl, err := cadence.DoWithTimeline(context.Background(), "cadence.retry", func(context.Context) error {
		return errors.New("always")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(tl.Attempts) != 2 || tl.FinalErr == nil {
		t.Fatalf("timeline=%+v", tl)
	}
}

func TestRepeatAndRetry(t *testing.T) {
	tc := clock.NewFastForward(time.Unix(0, 0))
	ctx := clock.WithClock(context.Background(), tc)

	n := 0
	got, err := cadence.Repeat(ctx, schedule.Recurs[int](3), func(context.Context) (int, error) {
		n++
		return n, nil
	})
	if err != nil || got != 3 || n != 4 {
		t.Fatalf("repeat got=%d n=%d err=%v", got, n, err)
	}

	before := tc.Sleeps()
	calls := 0
	_, err = cadence.Retry(ctx, schedule.ZipLeft(schedule.Spaced[error](time.Second), schedule.Recurs[error](2)), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("down")
	})
	if err == nil || calls != 3 {
		t.Fatalf("retry calls=%d err=%v", calls, err)
	}
	if got := tc.Sleeps() - before; got != 2 {
		t.Fatalf("sleeps=%d, want 2", got)
	}
}

func TestParseKey_VariousFormats(t *testing.T) {
	cases := []struct {
		input string
		want  policy.PolicyKey
	}{
		{input: "service.method", want: policy.PolicyKey{Namespace: "service", Name: "method"}},
		{input: "method", want: policy.PolicyKey{Name: "method"}},
		{input: " service.method ", want: policy.PolicyKey{Namespace: "service", Name: "method"}},
		{input: "service.", want: policy.PolicyKey{Name: "service."}},
		{input: "", want: policy.PolicyKey{}},
	}

	for _, tc := range cases {
		if got := cadence.ParseKey(tc.input); got != tc.want {
			t.Fatalf("ParseKey(%q) = %+v, want %+v", tc.input, got, tc.want)
		}
	}
}
