package keys

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheusHen/qrng/qrng/bits"
)

func alternating(n int) []bits.Bit {
	out := make([]bits.Bit, n)
	for i := range out {
		out[i] = bits.Bit(i % 2)
	}
	return out
}

func TestDeriveSizes(t *testing.T) {
	for _, size := range Sizes {
		k, err := Derive(alternating(size), size)
		require.NoError(t, err)
		assert.Len(t, k, size/8)
		assert.Equal(t, size, k.Bits())
		assert.Equal(t, strings.Repeat("55", size/8), k.Hex())
	}
}

func TestDeriveIsPure(t *testing.T) {
	in := alternating(300)
	a, err := Derive(in, 256)
	require.NoError(t, err)
	b, err := Derive(in, 256)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDeriveUsesLeadingBits(t *testing.T) {
	in := append(alternating(128), make([]bits.Bit, 64)...)
	k, err := Derive(in, 128)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("55", 16), k.Hex())
}

func TestDeriveUnsupportedSize(t *testing.T) {
	for _, size := range []int{0, 64, 100, 512, -128} {
		_, err := Derive(alternating(512), size)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupportedKeySize)

		var use *UnsupportedKeySizeError
		require.True(t, errors.As(err, &use))
		assert.Equal(t, size, use.Bits)
	}
}

func TestDeriveInsufficientBits(t *testing.T) {
	_, err := Derive(alternating(100), 128)
	require.Error(t, err)

	var ibe *bits.InsufficientBitsError
	require.True(t, errors.As(err, &ibe))
	assert.Equal(t, 100, ibe.Have)
	assert.Equal(t, 128, ibe.Want)
}

func TestExpandRFC5869Case1(t *testing.T) {
	ikm := bytes.Repeat([]byte{0x0b}, 22)
	salt, _ := hex.DecodeString("000102030405060708090a0b0c")
	info, _ := hex.DecodeString("f0f1f2f3f4f5f6f7f8f9")

	okm, err := Expand(ikm, salt, info, 42)
	require.NoError(t, err)
	assert.Equal(t,
		"3cb25f25faacd57a90434f64d0362f2a2d2d0a90cf1a5a4c5db02d56ecc4c5bf34007208d5b887185865",
		hex.EncodeToString(okm))
}

func TestDeriveHKDF(t *testing.T) {
	in := alternating(256)

	k, salt, err := DeriveHKDF(in, 256, nil)
	require.NoError(t, err)
	assert.Len(t, k, 32)
	assert.Len(t, salt, SaltSize)

	again, _, err := DeriveHKDF(in, 256, salt)
	require.NoError(t, err)
	assert.Equal(t, k, again)

	truncated, err := Derive(in, 256)
	require.NoError(t, err)
	assert.NotEqual(t, truncated, k)

	other, _, err := DeriveHKDF(in, 256, bytes.Repeat([]byte{1}, SaltSize))
	require.NoError(t, err)
	assert.NotEqual(t, k, other)
}

func TestDeriveHKDFErrors(t *testing.T) {
	_, _, err := DeriveHKDF(alternating(7), 128, nil)
	assert.ErrorIs(t, err, ErrNoKeyingMaterial)

	_, _, err = DeriveHKDF(alternating(64), 96, nil)
	assert.ErrorIs(t, err, ErrUnsupportedKeySize)
}

func TestValidateSize(t *testing.T) {
	assert.NoError(t, ValidateSize(192))
	assert.ErrorIs(t, ValidateSize(191), ErrUnsupportedKeySize)
}
