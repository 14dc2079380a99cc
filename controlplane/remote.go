package controlplane

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aponysus/cadence/clock"
	"github.com/aponysus/cadence/policy"
)

// Source is the interface for fetching raw policy configuration.
type Source interface {
	// GetPolicy returns the policy for the given key.
	// If the policy is not found, it must return ErrPolicyNotFound.
	GetPolicy(ctx context.Context, key policy.PolicyKey) (policy.EffectivePolicy, error)
}

// RemoteProvider is a PolicyProvider that fetches policies from a Source and caches them.
//
// When the source fails, the last policy successfully fetched for the key is returned together
// with the error, tagged policy.PolicySourceLKG.
type RemoteProvider struct {
	source           Source
	cache            *PolicyCache
	clock            clock.Clock
	cacheTTL         time.Duration
	negativeCacheTTL time.Duration
	logger           zerolog.Logger
}

// RemoteProviderOption configures a RemoteProvider.
type RemoteProviderOption func(*RemoteProvider)

// WithCacheTTL sets the TTL for successful policy lookups. Default is 1 minute.
func WithCacheTTL(ttl time.Duration) RemoteProviderOption {
	return func(p *RemoteProvider) {
		p.cacheTTL = ttl
	}
}

// WithNegativeCacheTTL sets the TTL for missing policy lookups. Default is 10 seconds.
func WithNegativeCacheTTL(ttl time.Duration) RemoteProviderOption {
	return func(p *RemoteProvider) {
		p.negativeCacheTTL = ttl
	}
}

// WithCacheClock sets the clock used for cache expiry.
func WithCacheClock(c clock.Clock) RemoteProviderOption {
	return func(p *RemoteProvider) {
		p.clock = c
	}
}

// WithLogger sets the logger used for fetch failures. Default is a no-op logger.
func WithLogger(l zerolog.Logger) RemoteProviderOption {
	return func(p *RemoteProvider) {
		p.logger = l
	}
}

// NewRemoteProvider creates a new RemoteProvider.
func NewRemoteProvider(source Source, opts ...RemoteProviderOption) *RemoteProvider {
	p := &RemoteProvider{
		source:           source,
		cacheTTL:         1 * time.Minute,
		negativeCacheTTL: 10 * time.Second,
		logger:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.cache = NewPolicyCacheWithClock(p.clock)
	return p
}

// GetEffectivePolicy returns the policy for key, checking the cache first.
func (p *RemoteProvider) GetEffectivePolicy(ctx context.Context, key policy.PolicyKey) (policy.EffectivePolicy, error) {
	if p == nil || p.source == nil {
		return policy.EffectivePolicy{}, ErrProviderUnavailable
	}

	pol, foundInCache, isNegative := p.cache.Get(key)
	if foundInCache {
		if isNegative {
			// Cached as missing; the executor applies its missing-policy mode.
			return policy.EffectivePolicy{}, ErrPolicyNotFound
		}
		return pol, nil
	}

	pol, err := p.source.GetPolicy(ctx, key)
	if err != nil {
		if errors.Is(err, ErrPolicyNotFound) {
			p.cache.SetMissing(key, p.negativeCacheTTL)
			return policy.EffectivePolicy{}, ErrPolicyNotFound
		}
		return p.fallback(key, err)
	}

	normalized, err := stamp(pol, key, policy.PolicySourceRemote).Normalize()
	if err != nil {
		// A corrupt policy is never cached.
		return p.fallback(key, fmt.Errorf("%w: %w", ErrPolicyCorrupt, err))
	}

	p.cache.Set(key, normalized, p.cacheTTL)
	return normalized, nil
}

func (p *RemoteProvider) fallback(key policy.PolicyKey, cause error) (policy.EffectivePolicy, error) {
	err := cause
	if !errors.Is(cause, ErrProviderUnavailable) && !errors.Is(cause, ErrPolicyFetchFailed) && !errors.Is(cause, ErrPolicyCorrupt) {
		err = fmt.Errorf("%w: %w", ErrPolicyFetchFailed, cause)
	}

	lkg, ok := p.cache.LastKnownGood(key)
	if !ok {
		p.logger.Warn().Err(cause).Str("key", key.String()).Msg("policy fetch failed")
		return policy.EffectivePolicy{}, err
	}
	p.logger.Warn().Err(cause).Str("key", key.String()).Str("policy_id", lkg.ID).Msg("policy fetch failed, serving last known good")
	lkg.Meta.Source = policy.PolicySourceLKG
	return lkg, err
}
