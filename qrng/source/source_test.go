package source

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheusHen/qrng/qrng/bits"
)

func TestCryptoDrawBatchLength(t *testing.T) {
	src := NewCrypto()
	for _, n := range []int{1, 5, 8, 13, 64} {
		b, err := src.DrawBatch(context.Background(), n)
		require.NoError(t, err)
		assert.Len(t, b, n)
		for _, bit := range b {
			assert.LessOrEqual(t, bit, bits.Bit(1))
		}
	}
}

func TestCryptoReaderFailureIsTrialSourceError(t *testing.T) {
	src := &Crypto{Reader: strings.NewReader("")}
	_, err := src.DrawBatch(context.Background(), 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTrialSource)
	assert.ErrorIs(t, err, io.EOF)

	var tse *TrialSourceError
	require.True(t, errors.As(err, &tse))
	assert.Equal(t, "crypto", tse.Source)
}

func TestInvalidChannelCount(t *testing.T) {
	sim, err := NewSimulator(DefaultSimulatorConfig())
	require.NoError(t, err)
	for _, src := range []TrialSource{NewCrypto(), sim} {
		_, err := src.DrawBatch(context.Background(), 0)
		assert.ErrorIs(t, err, ErrInvalidChannelCount)
		assert.ErrorIs(t, err, ErrTrialSource)
	}
}

func TestSimulatorShotsAndDeterminism(t *testing.T) {
	cfg := SimulatorConfig{Bias: 0.5, Shots: 3, Seed1: 9, Seed2: 10}
	a, err := NewSimulator(cfg)
	require.NoError(t, err)
	b, err := NewSimulator(cfg)
	require.NoError(t, err)

	ba, err := a.DrawBatch(context.Background(), 4)
	require.NoError(t, err)
	bb, err := b.DrawBatch(context.Background(), 4)
	require.NoError(t, err)

	assert.Len(t, ba, 12)
	assert.Equal(t, ba, bb)
}

func TestSimulatorBias(t *testing.T) {
	sim, err := NewSimulator(SimulatorConfig{Bias: 0.9, Shots: 1000, Seed1: 1, Seed2: 1})
	require.NoError(t, err)
	b, err := sim.DrawBatch(context.Background(), 10)
	require.NoError(t, err)
	ratio := float64(bits.Ones(b)) / float64(len(b))
	assert.InDelta(t, 0.9, ratio, 0.03)

	zero, err := NewSimulator(SimulatorConfig{Bias: 0, Shots: 4})
	require.NoError(t, err)
	b, err = zero.DrawBatch(context.Background(), 8)
	require.NoError(t, err)
	assert.Zero(t, bits.Ones(b))
}

func TestSimulatorRejectsBadBias(t *testing.T) {
	_, err := NewSimulator(SimulatorConfig{Bias: 1.5})
	assert.ErrorIs(t, err, ErrInvalidBias)
}

func TestFailKeepsExistingTrialSourceError(t *testing.T) {
	inner := &TrialSourceError{Source: "remote", Err: io.ErrUnexpectedEOF}
	assert.Same(t, inner, Fail("other", inner))
	assert.Nil(t, Fail("x", nil))
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCrypto().DrawBatch(ctx, 8)
	assert.ErrorIs(t, err, context.Canceled)
}
