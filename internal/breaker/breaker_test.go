package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := New("embed", Config{FailureThreshold: 2, ResetTimeout: 10 * time.Millisecond, HalfOpenMaxCalls: 1})
	assert.Equal(t, Closed, b.State())

	boom := errors.New("boom")
	err := b.Execute(func() error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, Closed, b.State())

	err = b.Execute(func() error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, Open, b.State())

	err = b.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrOpen)
}

var errProbe = errors.New("x")

func TestBreakerHalfOpenRecoversAfterTimeout(t *testing.T) {
	b := New("tag", Config{FailureThreshold: 1, ResetTimeout: 5 * time.Millisecond, HalfOpenMaxCalls: 2})
	require.ErrorIs(t, b.Execute(func() error { return errProbe }), errProbe)
	assert.Equal(t, Open, b.State())

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, HalfOpen, b.State())

	require.NoError(t, b.Execute(func() error { return nil }))
	assert.Equal(t, HalfOpen, b.State(), "one success should not close when HalfOpenMaxCalls=2")

	require.NoError(t, b.Execute(func() error { return nil }))
	assert.Equal(t, Closed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := New("kw", Config{FailureThreshold: 1, ResetTimeout: 5 * time.Millisecond, HalfOpenMaxCalls: 3})
	_ = b.Execute(func() error { return errProbe })
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, HalfOpen, b.State())

	err := b.Execute(func() error { return errors.New("still broken") })
	require.Error(t, err)
	assert.Equal(t, Open, b.State())
}

func TestRegistryPerStepOverride(t *testing.T) {
	reg := NewRegistry(Config{FailureThreshold: 5, ResetTimeout: time.Second})
	reg.WithStep("generate_embeddings", Config{FailureThreshold: 1, ResetTimeout: time.Second})

	embed := reg.Get("generate_embeddings")
	_ = embed.Execute(func() error { return errors.New("down") })
	assert.Equal(t, Open, embed.State())

	other := reg.Get("summarize")
	assert.Equal(t, Closed, other.State())
	assert.Same(t, embed, reg.Get("generate_embeddings"))
}
