package controlplane

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/aponysus/cadence/policy"
)

// RedisGetter is the subset of a redis client used by RedisSource. *redis.Client,
// *redis.ClusterClient and *redis.Ring all satisfy it.
type RedisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// DefaultRedisPrefix is prepended to policy keys when looking them up in Redis.
const DefaultRedisPrefix = "cadence:policy:"

// RedisSource fetches YAML or JSON encoded policies stored as plain Redis strings under
// prefix + key.String().
type RedisSource struct {
	client RedisGetter
	prefix string
}

// RedisSourceOption configures a RedisSource.
type RedisSourceOption func(*RedisSource)

// WithRedisPrefix overrides DefaultRedisPrefix.
func WithRedisPrefix(prefix string) RedisSourceOption {
	return func(s *RedisSource) {
		s.prefix = prefix
	}
}

// NewRedisSource creates a RedisSource reading from client.
func NewRedisSource(client RedisGetter, opts ...RedisSourceOption) *RedisSource {
	s := &RedisSource{client: client, prefix: DefaultRedisPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetPolicy implements Source.
func (s *RedisSource) GetPolicy(ctx context.Context, key policy.PolicyKey) (policy.EffectivePolicy, error) {
	if s == nil || s.client == nil {
		return policy.EffectivePolicy{}, ErrProviderUnavailable
	}

	data, err := s.client.Get(ctx, s.prefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return policy.EffectivePolicy{}, ErrPolicyNotFound
	}
	if err != nil {
		return policy.EffectivePolicy{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	pol, err := policy.ParsePolicy(key, data)
	if err != nil {
		return policy.EffectivePolicy{}, fmt.Errorf("%w: %w", ErrPolicyCorrupt, err)
	}
	pol.Meta.Source = policy.PolicySourceRemote
	return pol, nil
}
