package controlplane

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aponysus/cadence/policy"
)

// FileSource serves policies from a YAML policy document on disk.
//
// The document is re-read whenever its modification time or size changes. A document that fails
// to parse is reported as ErrPolicyCorrupt and the previously loaded policies are kept, so a
// RemoteProvider wrapping the source falls back to its last known good policies.
type FileSource struct {
	path string

	mu       sync.Mutex
	modTime  time.Time
	size     int64
	loaded   bool
	policies map[policy.PolicyKey]policy.EffectivePolicy
	def      *policy.EffectivePolicy
}

// NewFileSource returns a FileSource reading path. The file is not read until first use.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// GetPolicy returns the document's policy for key, or its default when key is not listed.
func (s *FileSource) GetPolicy(_ context.Context, key policy.PolicyKey) (policy.EffectivePolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reloadLocked(); err != nil {
		return policy.EffectivePolicy{}, err
	}
	if pol, ok := s.policies[key]; ok {
		return pol, nil
	}
	if s.def != nil {
		pol := *s.def
		pol.Key = key
		return pol, nil
	}
	return policy.EffectivePolicy{}, ErrPolicyNotFound
}

func (s *FileSource) reloadLocked() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	if s.loaded && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return nil
	}

	doc, err := policy.LoadFile(s.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPolicyCorrupt, err)
	}
	policies, err := doc.Resolve()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPolicyCorrupt, err)
	}
	def, ok, err := doc.DefaultPolicy(policy.PolicyKey{})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPolicyCorrupt, err)
	}

	s.policies = policies
	s.def = nil
	if ok {
		s.def = &def
	}
	s.modTime = info.ModTime()
	s.size = info.Size()
	s.loaded = true
	return nil
}
