package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"
)

// DocumentVersion is the only policy document version understood by ParseDocument.
const DocumentVersion = 1

// Document is a set of policies keyed by "namespace.name", usually loaded from YAML:
//
//	version: 1
//	default:
//	  schedule: {kind: exponential, max_attempts: 3, base_delay: 50ms}
//	policies:
//	  billing.charge:
//	    schedule: {kind: spaced, base_delay: 1s, max_attempts: 5, jitter: bounded}
//	    circuit: {enabled: true, threshold: 5, cooldown: 30s}
type Document struct {
	Version  int                        `yaml:"version"`
	Default  *EffectivePolicy           `yaml:"default,omitempty"`
	Policies map[string]EffectivePolicy `yaml:"policies"`
}

// ParseDocument decodes and validates a YAML (or JSON) policy document. Unknown fields are rejected.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Document{}, fmt.Errorf("cadence: decode policy document: %w", err)
	}
	if doc.Version == 0 {
		doc.Version = DocumentVersion
	}
	if doc.Version != DocumentVersion {
		return Document{}, fmt.Errorf("cadence: unsupported policy document version %d", doc.Version)
	}
	if _, err := doc.Resolve(); err != nil {
		return Document{}, err
	}
	if _, _, err := doc.DefaultPolicy(PolicyKey{Name: "default"}); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// LoadFile reads and parses the policy document at path.
func LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("cadence: read policy document: %w", err)
	}
	return ParseDocument(data)
}

// ParsePolicy decodes a single policy blob.
func ParsePolicy(key PolicyKey, data []byte) (EffectivePolicy, error) {
	var p EffectivePolicy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return EffectivePolicy{}, fmt.Errorf("cadence: decode policy %s: %w", key, err)
	}
	p.Key = key
	return p.Normalize()
}

// Resolve returns the normalized policies of the document keyed by PolicyKey, each tagged with
// PolicySourceFile.
func (d Document) Resolve() (map[PolicyKey]EffectivePolicy, error) {
	out := make(map[PolicyKey]EffectivePolicy, len(d.Policies))
	for raw, p := range d.Policies {
		key := ParseKey(raw)
		if key.IsZero() {
			return nil, &NormalizeError{Field: "policies", Value: raw}
		}
		p.Key = key
		p.Meta.Source = PolicySourceFile
		normalized, err := p.Normalize()
		if err != nil {
			return nil, fmt.Errorf("cadence: policy %s: %w", key, err)
		}
		out[key] = normalized
	}
	return out, nil
}

// DefaultPolicy returns the document's default for key, if one is declared.
func (d Document) DefaultPolicy(key PolicyKey) (EffectivePolicy, bool, error) {
	if d.Default == nil {
		return EffectivePolicy{}, false, nil
	}
	p := *d.Default
	p.Key = key
	p.Meta.Source = PolicySourceFile
	normalized, err := p.Normalize()
	if err != nil {
		return EffectivePolicy{}, false, fmt.Errorf("cadence: default policy: %w", err)
	}
	return normalized, true, nil
}

// Marshal renders d as YAML.
func (d Document) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}
