package controlplane

import (
	"context"

	"github.com/aponysus/cadence/policy"
)

// PolicyProvider supplies an EffectivePolicy for a PolicyKey.
type PolicyProvider interface {
	// GetEffectivePolicy returns the policy for key.
	//
	// Providers may return a non-zero policy alongside a non-nil error to
	// communicate that the policy was obtained via a fallback path (for example,
	// last-known-good).
	GetEffectivePolicy(ctx context.Context, key policy.PolicyKey) (policy.EffectivePolicy, error)
}

// StaticProvider is an in-process PolicyProvider backed by a map and an optional default.
type StaticProvider struct {
	Policies map[policy.PolicyKey]policy.EffectivePolicy
	Default  policy.EffectivePolicy
}

func (p *StaticProvider) GetEffectivePolicy(_ context.Context, key policy.PolicyKey) (policy.EffectivePolicy, error) {
	if p != nil && p.Policies != nil {
		if pol, ok := p.Policies[key]; ok {
			return stamp(pol, key, policy.PolicySourceStatic).Normalize()
		}
	}

	if p != nil && !p.Default.IsZero() {
		return stamp(p.Default, key, policy.PolicySourceStatic).Normalize()
	}

	return policy.DefaultPolicyFor(key).Normalize()
}

// DocumentProvider serves the policies of a parsed policy.Document.
func DocumentProvider(doc policy.Document) (*StaticProvider, error) {
	policies, err := doc.Resolve()
	if err != nil {
		return nil, err
	}
	p := &StaticProvider{Policies: policies}
	if def, ok, err := doc.DefaultPolicy(policy.PolicyKey{}); err != nil {
		return nil, err
	} else if ok {
		p.Default = def
	}
	return p, nil
}

func stamp(pol policy.EffectivePolicy, key policy.PolicyKey, source policy.PolicySource) policy.EffectivePolicy {
	pol.Key = key
	if pol.Meta.Source == "" || pol.Meta.Source == policy.PolicySourceUnknown {
		pol.Meta.Source = source
	}
	return pol
}
