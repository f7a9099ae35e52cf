package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheusHen/qrng/internal/config"
)

// Flag values persist across executions of rootCmd, so every test passes the
// flags it depends on explicitly.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("QRNG_LOG_LEVEL", "error")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func useSimulator(t *testing.T) {
	t.Setenv("QRNG_SOURCE", "sim")
	t.Setenv("QRNG_SIM_SEED", "7")
}

func TestKeygenJSON(t *testing.T) {
	useSimulator(t)
	out, err := run(t, "keygen", "--bits", "128", "--count", "1", "--hkdf=false", "--json")
	require.NoError(t, err)

	var keys []keygenOutput
	require.NoError(t, json.Unmarshal([]byte(out), &keys))
	require.Len(t, keys, 1)
	assert.Len(t, keys[0].KeyHex, 32)
	assert.Empty(t, keys[0].SaltHex)
	assert.Positive(t, keys[0].Draws)
}

func TestKeygenManyWithHKDF(t *testing.T) {
	useSimulator(t)
	out, err := run(t, "keygen", "--bits", "192", "--count", "3", "--hkdf", "--json=false")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for _, l := range lines {
		key, salt, ok := strings.Cut(l, " salt=")
		require.True(t, ok, l)
		assert.Len(t, key, 48)
		assert.Len(t, salt, 32)
	}
}

func TestKeygenRejectsBadSize(t *testing.T) {
	useSimulator(t)
	_, err := run(t, "keygen", "--bits", "100", "--count", "1")
	assert.Error(t, err)
}

func TestAnalyzeArgument(t *testing.T) {
	out, err := run(t, "analyze", "01010101", "--count", "0", "--file", "", "--json=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Length: 8 bits")
	assert.Contains(t, out, "Chi-square")
}

func TestAnalyzeGenerated(t *testing.T) {
	useSimulator(t)
	out, err := run(t, "analyze", "--count", "512", "--file", "", "--json")
	require.NoError(t, err)

	var got analyzeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 512, got.Length)
	assert.Contains(t, got.Metrics, "shannon_entropy")
}

func TestAnalyzeAmbiguousInput(t *testing.T) {
	_, err := run(t, "analyze", "0101", "--count", "16", "--file", "")
	assert.Error(t, err)
}

func TestEncryptDecrypt(t *testing.T) {
	key := strings.Repeat("ab", 16)
	out, err := run(t, "encrypt", "--key", key, "hello qrng")
	require.NoError(t, err)

	var iv, ct string
	for _, l := range strings.Split(strings.TrimSpace(out), "\n") {
		if v, ok := strings.CutPrefix(l, "iv="); ok {
			iv = v
		}
		if v, ok := strings.CutPrefix(l, "ciphertext="); ok {
			ct = v
		}
	}
	require.Len(t, iv, 32)
	require.NotEmpty(t, ct)

	out, err = run(t, "decrypt", "--key", key, "--iv", iv, ct)
	require.NoError(t, err)
	assert.Equal(t, "hello qrng", out)
}

func TestDecryptBadHex(t *testing.T) {
	_, err := run(t, "decrypt", "--key", strings.Repeat("ab", 16), "--iv", "zz", "00")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	t.Setenv("QRNG_SOURCE", "not-a-source")
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "qrng version dev")
}

func TestInvalidEnvironment(t *testing.T) {
	t.Setenv("QRNG_SOURCE", "not-a-source")
	_, err := run(t, "keygen", "--count", "1")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestSourceServeNeedsLocalSource(t *testing.T) {
	t.Setenv("QRNG_SOURCE", "remote")
	t.Setenv("QRNG_REMOTE_ADDR", "127.0.0.1:1")
	_, err := run(t, "source-serve")
	assert.ErrorIs(t, err, config.ErrInvalid)
}
