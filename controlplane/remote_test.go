package controlplane

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aponysus/cadence/clock"
	"github.com/aponysus/cadence/policy"
)

// MockSource is a Source for testing.
type MockSource struct {
	GetPolicyFunc func(ctx context.Context, key policy.PolicyKey) (policy.EffectivePolicy, error)
	Calls         int32
}

func (m *MockSource) GetPolicy(ctx context.Context, key policy.PolicyKey) (policy.EffectivePolicy, error) {
	atomic.AddInt32(&m.Calls, 1)
	if m.GetPolicyFunc != nil {
		return m.GetPolicyFunc(ctx, key)
	}
	return policy.EffectivePolicy{}, ErrPolicyNotFound
}

func TestRemoteProvider_CacheHit(t *testing.T) {
	key := policy.ParseKey("test.key")
	expected := policy.EffectivePolicy{
		Schedule: policy.SchedulePolicy{MaxAttempts: 5},
	}

	source := &MockSource{
		GetPolicyFunc: func(ctx context.Context, k policy.PolicyKey) (policy.EffectivePolicy, error) {
			return expected, nil
		},
	}

	provider := NewRemoteProvider(source, WithCacheTTL(1*time.Minute))

	pol, err := provider.GetEffectivePolicy(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pol.Schedule.MaxAttempts != 5 {
		t.Errorf("got MaxAttempts=%d, want 5", pol.Schedule.MaxAttempts)
	}
	if pol.Meta.Source != policy.PolicySourceRemote {
		t.Errorf("source=%v, want %v", pol.Meta.Source, policy.PolicySourceRemote)
	}
	if atomic.LoadInt32(&source.Calls) != 1 {
		t.Errorf("expected 1 call to source, got %d", source.Calls)
	}

	pol, err = provider.GetEffectivePolicy(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pol.Schedule.MaxAttempts != 5 {
		t.Errorf("got MaxAttempts=%d, want 5", pol.Schedule.MaxAttempts)
	}
	if atomic.LoadInt32(&source.Calls) != 1 {
		t.Errorf("expected 1 call to source (cached), got %d", source.Calls)
	}
}

func TestRemoteProvider_CacheExpiry(t *testing.T) {
	key := policy.ParseKey("test.expiry")
	clk := clock.NewTestClock(time.Unix(0, 0))
	source := &MockSource{
		GetPolicyFunc: func(ctx context.Context, k policy.PolicyKey) (policy.EffectivePolicy, error) {
			return policy.EffectivePolicy{}, nil
		},
	}

	provider := NewRemoteProvider(source, WithCacheTTL(10*time.Millisecond), WithCacheClock(clk))

	if _, err := provider.GetEffectivePolicy(context.Background(), key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clk.Adjust(20 * time.Millisecond)
	if _, err := provider.GetEffectivePolicy(context.Background(), key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if atomic.LoadInt32(&source.Calls) != 2 {
		t.Errorf("expected 2 calls to source (expired), got %d", source.Calls)
	}
}

func TestRemoteProvider_NegativeCaching(t *testing.T) {
	key := policy.ParseKey("test.missing")
	source := &MockSource{}

	provider := NewRemoteProvider(source, WithNegativeCacheTTL(1*time.Minute))

	for i := 0; i < 2; i++ {
		_, err := provider.GetEffectivePolicy(context.Background(), key)
		if !errors.Is(err, ErrPolicyNotFound) {
			t.Fatalf("call %d: expected ErrPolicyNotFound, got %v", i, err)
		}
	}
	if atomic.LoadInt32(&source.Calls) != 1 {
		t.Errorf("expected 1 call to source (negative cached), got %d", source.Calls)
	}
}

func TestRemoteProvider_FetchErrorWithoutLastKnownGood(t *testing.T) {
	key := policy.ParseKey("test.error")
	networkErr := errors.New("network error")
	source := &MockSource{
		GetPolicyFunc: func(ctx context.Context, k policy.PolicyKey) (policy.EffectivePolicy, error) {
			return policy.EffectivePolicy{}, networkErr
		},
	}

	provider := NewRemoteProvider(source)

	pol, err := provider.GetEffectivePolicy(context.Background(), key)
	if !errors.Is(err, networkErr) || !errors.Is(err, ErrPolicyFetchFailed) {
		t.Errorf("expected wrapped network error, got %v", err)
	}
	if !pol.IsZero() {
		t.Errorf("expected zero policy, got %+v", pol)
	}
}

func TestRemoteProvider_ServesLastKnownGood(t *testing.T) {
	key := policy.ParseKey("test.lkg")
	clk := clock.NewTestClock(time.Unix(0, 0))
	fail := false
	source := &MockSource{
		GetPolicyFunc: func(ctx context.Context, k policy.PolicyKey) (policy.EffectivePolicy, error) {
			if fail {
				return policy.EffectivePolicy{}, ErrProviderUnavailable
			}
			return policy.EffectivePolicy{ID: "v7", Schedule: policy.SchedulePolicy{MaxAttempts: 4}}, nil
		},
	}

	provider := NewRemoteProvider(source, WithCacheTTL(time.Second), WithCacheClock(clk))
	if _, err := provider.GetEffectivePolicy(context.Background(), key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fail = true
	clk.Adjust(2 * time.Second)
	pol, err := provider.GetEffectivePolicy(context.Background(), key)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if pol.ID != "v7" || pol.Schedule.MaxAttempts != 4 {
		t.Fatalf("expected last-known-good policy, got %+v", pol)
	}
	if pol.Meta.Source != policy.PolicySourceLKG {
		t.Fatalf("source=%v, want %v", pol.Meta.Source, policy.PolicySourceLKG)
	}
}

func TestRemoteProvider_InvalidRemotePolicyIsNotCached(t *testing.T) {
	key := policy.ParseKey("test.corrupt")
	source := &MockSource{
		GetPolicyFunc: func(ctx context.Context, k policy.PolicyKey) (policy.EffectivePolicy, error) {
			return policy.EffectivePolicy{Schedule: policy.SchedulePolicy{Jitter: "wild"}}, nil
		},
	}

	provider := NewRemoteProvider(source)
	for i := 0; i < 2; i++ {
		if _, err := provider.GetEffectivePolicy(context.Background(), key); !errors.Is(err, policy.ErrInvalidPolicy) || !errors.Is(err, ErrPolicyCorrupt) {
			t.Fatalf("call %d: expected corrupt ErrInvalidPolicy, got %v", i, err)
		}
	}
	if atomic.LoadInt32(&source.Calls) != 2 {
		t.Errorf("expected 2 calls to source, got %d", source.Calls)
	}
}

func TestRemoteProvider_NilSource(t *testing.T) {
	provider := NewRemoteProvider(nil)
	if _, err := provider.GetEffectivePolicy(context.Background(), policy.ParseKey("a.b")); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}
