package controlplane

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aponysus/cadence/policy"
)

func writeDoc(t *testing.T, path, body string, mtime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestFileSource_LoadsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeDoc(t, path, `
policies:
  svc.call:
    id: v1
    schedule:
      kind: spaced
      base_delay: 1s
`, base)

	src := NewFileSource(path)
	key := policy.ParseKey("svc.call")

	pol, err := src.GetPolicy(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pol.ID != "v1" || pol.Meta.Source != policy.PolicySourceFile {
		t.Fatalf("got %+v", pol)
	}

	if _, err := src.GetPolicy(context.Background(), policy.ParseKey("svc.other")); !errors.Is(err, ErrPolicyNotFound) {
		t.Fatalf("expected ErrPolicyNotFound, got %v", err)
	}

	writeDoc(t, path, `
default:
  id: fallback
policies:
  svc.call:
    id: v2
`, base.Add(time.Minute))

	pol, err = src.GetPolicy(context.Background(), key)
	if err != nil || pol.ID != "v2" {
		t.Fatalf("after reload got %q, %v; want v2", pol.ID, err)
	}
	pol, err = src.GetPolicy(context.Background(), policy.ParseKey("svc.other"))
	if err != nil || pol.ID != "fallback" {
		t.Fatalf("default got %q, %v; want fallback", pol.ID, err)
	}
}

func TestFileSource_BrokenDocumentFallsBackThroughProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeDoc(t, path, "policies:\n  svc.call:\n    id: good\n", base)

	provider := NewRemoteProvider(NewFileSource(path), WithCacheTTL(0))
	key := policy.ParseKey("svc.call")
	if _, err := provider.GetEffectivePolicy(context.Background(), key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writeDoc(t, path, "policies: [not, a, map]\n", base.Add(time.Minute))
	pol, err := provider.GetEffectivePolicy(context.Background(), key)
	if !errors.Is(err, ErrPolicyCorrupt) {
		t.Fatalf("expected ErrPolicyCorrupt, got %v", err)
	}
	if pol.ID != "good" || pol.Meta.Source != policy.PolicySourceLKG {
		t.Fatalf("expected last-known-good, got %+v", pol)
	}
}

func TestFileSource_MissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := src.GetPolicy(context.Background(), policy.ParseKey("a.b")); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}
