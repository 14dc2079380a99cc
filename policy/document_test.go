package policy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `
version: 1
default:
  schedule:
    kind: exponential
    max_attempts: 4
    base_delay: 50ms
policies:
  billing.charge:
    id: charge-v3
    schedule:
      kind: spaced
      base_delay: 1s
      max_attempts: 5
      jitter: bounded
      budget:
        name: billing
    circuit:
      enabled: true
      threshold: 3
      cooldown: 30s
  reports.nightly:
    schedule:
      kind: cron
      cron: "0 2 * * *"
`

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleDocument))
	require.NoError(t, err)

	policies, err := doc.Resolve()
	require.NoError(t, err)
	require.Len(t, policies, 2)

	charge := policies[ParseKey("billing.charge")]
	assert.Equal(t, "charge-v3", charge.ID)
	assert.Equal(t, KindSpaced, charge.Schedule.Kind)
	assert.Equal(t, time.Second, charge.Schedule.BaseDelay)
	assert.Equal(t, JitterBounded, charge.Schedule.Jitter)
	assert.Equal(t, BudgetRef{Name: "billing", Cost: 1}, charge.Schedule.Budget)
	assert.Equal(t, CircuitPolicy{Enabled: true, Threshold: 3, Cooldown: 30 * time.Second}, charge.Circuit)
	assert.Equal(t, PolicySourceFile, charge.Meta.Source)

	nightly := policies[ParseKey("reports.nightly")]
	assert.Equal(t, KindCron, nightly.Schedule.Kind)
	assert.Equal(t, "0 2 * * *", nightly.Schedule.Cron)

	def, ok, err := doc.DefaultPolicy(ParseKey("other.op"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, def.Schedule.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, def.Schedule.BaseDelay)
	assert.Equal(t, ParseKey("other.op"), def.Key)
}

func TestParseDocument_Rejects(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{name: "unknown_field", doc: "policies:\n  a.b:\n    schedule:\n      retries: 3\n"},
		{name: "bad_version", doc: "version: 7\n"},
		{name: "bad_kind", doc: "policies:\n  a.b:\n    schedule:\n      kind: sometimes\n"},
		{name: "bad_cron", doc: "policies:\n  a.b:\n    schedule:\n      kind: cron\n      cron: nope\n"},
		{name: "bad_duration", doc: "policies:\n  a.b:\n    schedule:\n      base_delay: soon\n"},
		{name: "empty_key", doc: "policies:\n  \" \":\n    schedule:\n      kind: spaced\n"},
		{name: "bad_default", doc: "default:\n  schedule:\n    jitter: wild\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tc.doc))
			require.Error(t, err)
		})
	}
}

func TestParseDocument_Empty(t *testing.T) {
	doc, err := ParseDocument(nil)
	require.NoError(t, err)
	assert.Equal(t, DocumentVersion, doc.Version)

	_, ok, err := doc.DefaultPolicy(ParseKey("a.b"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDocument), 0o600))

	doc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, doc.Policies, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestParsePolicy_AcceptsJSON(t *testing.T) {
	p, err := ParsePolicy(ParseKey("svc.op"), []byte(`{"schedule": {"kind": "linear", "base_delay": "5ms", "max_attempts": 2}}`))
	require.NoError(t, err)
	assert.Equal(t, KindLinear, p.Schedule.Kind)
	assert.Equal(t, 5*time.Millisecond, p.Schedule.BaseDelay)
	assert.Equal(t, ParseKey("svc.op"), p.Key)
}

func TestDocument_MarshalRoundTrip(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleDocument))
	require.NoError(t, err)

	data, err := doc.Marshal()
	require.NoError(t, err)

	again, err := ParseDocument(data)
	require.NoError(t, err)
	assert.Equal(t, doc.Policies["billing.charge"].Schedule, again.Policies["billing.charge"].Schedule)
}
