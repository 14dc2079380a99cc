package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClassifier OutcomeKind

func (f fixedClassifier) Classify(any, error) Outcome {
	return Outcome{Kind: OutcomeKind(f), Reason: "fixed"}
}

func TestRegistry_RegisterTrimsNames(t *testing.T) {
	reg := NewRegistry()
	reg.Register("  payments  ", fixedClassifier(OutcomeNonRetryable))

	got, ok := reg.Get("payments")
	require.True(t, ok)
	assert.Equal(t, OutcomeNonRetryable, got.Classify(nil, nil).Kind)

	_, ok = reg.Get(" payments")
	assert.True(t, ok)
}

func TestRegistry_LaterRegistrationWins(t *testing.T) {
	reg := NewRegistry()
	reg.Register("x", fixedClassifier(OutcomeRetryable))
	reg.Register("x", fixedClassifier(OutcomeAbort))

	got, ok := reg.Get("x")
	require.True(t, ok)
	assert.Equal(t, OutcomeAbort, got.Classify(nil, nil).Kind)
}

func TestRegistry_IgnoresInvalidEntries(t *testing.T) {
	var nilReg *Registry
	nilReg.Register("name", fixedClassifier(OutcomeSuccess))
	_, ok := nilReg.Get("name")
	assert.False(t, ok)
	assert.Empty(t, nilReg.Names())

	reg := NewRegistry()
	reg.Register("   ", fixedClassifier(OutcomeSuccess))
	reg.Register("name", nil)
	assert.Empty(t, reg.Names())
}

func TestRegisterBuiltins(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)
	RegisterBuiltins(nil)

	assert.Equal(t, []string{ClassifierAlwaysRetryOnError, ClassifierAuto, ClassifierHTTP, ClassifierNever}, reg.Names())
}
