package main

import (
	"bytes"
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aponysus/cadence/policy"
)

const testDocument = `version: 1
default:
  schedule: {kind: spaced, max_attempts: 2, base_delay: 5ms}
policies:
  billing.charge:
    schedule: {kind: exponential, max_attempts: 4, base_delay: 10ms, factor: 2, max_delay: 1s}
`

func writeDocument(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSimulate_ExponentialPlan(t *testing.T) {
	pol := policy.New("billing.charge",
		policy.MaxAttempts(4),
		policy.BaseDelay(10*time.Millisecond),
		policy.Factor(2),
		policy.MaxDelay(time.Second),
	)

	plan, err := simulate(context.Background(), pol, time.Unix(0, 0), nil, 0)
	require.NoError(t, err)
	require.Len(t, plan, 4)

	assert.Equal(t, []time.Duration{0, 10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond},
		[]time.Duration{plan[0].Delay, plan[1].Delay, plan[2].Delay, plan[3].Delay})
	assert.Equal(t, 70*time.Millisecond, plan[3].At)
}

func TestSimulate_SeededJitterIsReproducible(t *testing.T) {
	pol := policy.New("svc.poll",
		policy.MaxAttempts(6),
		policy.BaseDelay(100*time.Millisecond),
		policy.Jitter(policy.JitterFull),
	)

	a, err := simulate(context.Background(), pol, time.Unix(0, 0), rand.New(rand.NewPCG(7, 7)), 0)
	require.NoError(t, err)
	b, err := simulate(context.Background(), pol, time.Unix(0, 0), rand.New(rand.NewPCG(7, 7)), 0)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSimulate_LimitBoundsOutput(t *testing.T) {
	pol := policy.New("svc.poll", policy.MaxAttempts(50), policy.BaseDelay(time.Millisecond))

	plan, err := simulate(context.Background(), pol, time.Unix(0, 0), nil, 3)
	require.NoError(t, err)
	assert.Len(t, plan, 3)
}

func TestSimulateCmd_UsesDocumentPolicy(t *testing.T) {
	path := writeDocument(t, testDocument)

	out, err := execute(t, "simulate", "billing.charge", "--policies", path)
	require.NoError(t, err)
	assert.Contains(t, out, "policy billing.charge (exponential, source file)")
	assert.Contains(t, out, "40ms")
}

func TestSimulateCmd_FallsBackToDocumentDefault(t *testing.T) {
	path := writeDocument(t, testDocument)

	out, err := execute(t, "simulate", "other.op", "--policies", path)
	require.NoError(t, err)
	assert.Contains(t, out, "policy other.op (spaced, source file)")
}

func TestSimulateCmd_PoliciesFromEnvironment(t *testing.T) {
	path := writeDocument(t, testDocument)
	t.Setenv("CADENCE_POLICIES", path)

	out, err := execute(t, "simulate", "billing.charge")
	require.NoError(t, err)
	assert.Contains(t, out, "source file")
}

func TestValidateCmd(t *testing.T) {
	path := writeDocument(t, testDocument)

	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "billing.charge: ok")
	assert.Contains(t, out, "1 policies valid")
}

func TestValidateCmd_RejectsUnknownFields(t *testing.T) {
	path := writeDocument(t, "version: 1\npolicies:\n  a.b:\n    schedule: {kind: spaced, retries: 3}\n")

	_, err := execute(t, "validate", path)
	assert.Error(t, err)
}

func TestValidateCmd_RejectsUnknownClassifier(t *testing.T) {
	path := writeDocument(t, "version: 1\npolicies:\n  a.b:\n    schedule: {kind: spaced, classifier: psychic}\n")

	_, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown classifier "psychic"`)
	assert.Contains(t, err.Error(), "grpc")
}

func TestValidateCmd_RequiresDocument(t *testing.T) {
	_, err := execute(t, "validate")
	assert.Error(t, err)
}
