package internal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type limiter interface{ Allow() bool }

type tokenLimiter struct{}

func (*tokenLimiter) Allow() bool { return true }

type funcLimiter func() bool

func (f funcLimiter) Allow() bool { return f() }

func TestIsTypedNil(t *testing.T) {
	var (
		nilPtr  *tokenLimiter
		nilFunc funcLimiter
		nilErr  error
	)

	t.Run("nil_interface", func(t *testing.T) {
		assert.True(t, IsTypedNil(nil))
		assert.True(t, IsTypedNil(nilErr))
	})
	t.Run("typed_nil_behind_interface", func(t *testing.T) {
		var l limiter = nilPtr
		assert.True(t, IsTypedNil(l))
		l = nilFunc
		assert.True(t, IsTypedNil(l))
		assert.True(t, IsTypedNil(map[string]limiter(nil)))
		assert.True(t, IsTypedNil([]limiter(nil)))
		assert.True(t, IsTypedNil((chan struct{})(nil)))
	})
	t.Run("usable_values", func(t *testing.T) {
		assert.False(t, IsTypedNil(&tokenLimiter{}))
		assert.False(t, IsTypedNil(funcLimiter(func() bool { return false })))
		assert.False(t, IsTypedNil(errors.New("x")))
		assert.False(t, IsTypedNil(3))
		assert.False(t, IsTypedNil(struct{}{}))
	})
}
