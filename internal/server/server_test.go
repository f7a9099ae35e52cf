package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheusHen/qrng/qrng"
	"github.com/TheusHen/qrng/qrng/bits"
	"github.com/TheusHen/qrng/qrng/generate"
	"github.com/TheusHen/qrng/qrng/source"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestRouter(t *testing.T, src source.TrialSource) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	cfg := generate.DefaultConfig()
	cfg.ChannelCount = 64
	cfg.RetryBudget = 64
	cfg.Logger = quiet()
	cfg.Metrics = generate.NewMetrics(reg)

	h := New(qrng.NewGenerator(src, cfg), quiet(), 256)
	return NewRouter(h, reg), reg
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHandleKeys(t *testing.T) {
	router, _ := newTestRouter(t, source.NewCrypto())

	w := post(t, router, "/v1/keys", map[string]any{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[keyResponse](t, w)
	assert.Len(t, resp.KeyHex, 64)
	assert.Equal(t, 256, resp.KeyBits)
	assert.NotEmpty(t, resp.RequestID)
	assert.Greater(t, resp.Draws, 0)

	w = post(t, router, "/v1/keys", map[string]any{"key_bits": 128, "hkdf": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp = decodeBody[keyResponse](t, w)
	assert.Len(t, resp.KeyHex, 32)
	assert.Len(t, resp.SaltHex, 32)
}

func TestHandleKeysErrors(t *testing.T) {
	router, _ := newTestRouter(t, source.NewCrypto())

	w := post(t, router, "/v1/keys", map[string]any{"key_bits": 100})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decodeBody[map[string]string](t, w)["error"])

	w = post(t, router, "/v1/keys", map[string]any{"key_size": 128})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	degenerate, _ := newTestRouter(t, source.Func(func(ctx context.Context, n int) (source.Batch, error) {
		return make(source.Batch, n), nil
	}))
	w = post(t, degenerate, "/v1/keys", map[string]any{"key_bits": 128})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "insufficient_entropy", decodeBody[map[string]string](t, w)["error"])

	broken, _ := newTestRouter(t, source.Func(func(ctx context.Context, n int) (source.Batch, error) {
		return nil, errors.New("device offline")
	}))
	w = post(t, broken, "/v1/keys", map[string]any{"key_bits": 128})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "trial_source_failure", decodeBody[map[string]string](t, w)["error"])
}

func TestHandleKeysRejectsOversizedOverrides(t *testing.T) {
	var draws atomic.Int32
	router, _ := newTestRouter(t, source.Func(func(ctx context.Context, n int) (source.Batch, error) {
		draws.Add(1)
		return nil, errors.New("unreachable")
	}))

	for _, body := range []map[string]any{
		{"key_bits": 256, "channel_count": 536870912},
		{"key_bits": 256, "channel_count": maxChannelCount + 1},
		{"key_bits": 256, "channel_count": -1},
		{"key_bits": 256, "retry_budget": maxRetryBudget + 1},
		{"key_bits": 256, "retry_budget": -3},
	} {
		w := post(t, router, "/v1/keys", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%v", body)
		assert.Equal(t, "invalid_request", decodeBody[map[string]string](t, w)["error"])
	}

	w := post(t, router, "/v1/run", map[string]any{"channel_count": maxChannelCount + 1, "message": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, draws.Load())
}

func TestHandleKeysDebiasOverride(t *testing.T) {
	// "0011" never survives extraction, so only a raw request succeeds.
	router, _ := newTestRouter(t, source.Func(func(ctx context.Context, n int) (source.Batch, error) {
		return source.Batch(bits.MustParse(strings.Repeat("0011", n/4))), nil
	}))

	w := post(t, router, "/v1/keys", map[string]any{"key_bits": 128})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = post(t, router, "/v1/keys", map[string]any{"key_bits": 128, "debias": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, strings.Repeat("33", 16), decodeBody[keyResponse](t, w).KeyHex)
}

func TestHandleAnalyze(t *testing.T) {
	router, _ := newTestRouter(t, source.NewCrypto())

	w := post(t, router, "/v1/analyze", map[string]any{"bits": strings.Repeat("01", 500)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[analyzeResponse](t, w)
	assert.Equal(t, 1000, resp.Length)
	assert.Equal(t, 1000.0, resp.Metrics["runs"])
	assert.InDelta(t, -0.999, resp.Metrics["autocorrelation_lag1"], 1e-9)
	assert.False(t, resp.Passes["runs"])

	w = post(t, router, "/v1/analyze", map[string]any{"count": 512})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 512, decodeBody[analyzeResponse](t, w).Length)

	w = post(t, router, "/v1/analyze", map[string]any{})
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeBody[analyzeResponse](t, w)
	assert.Contains(t, resp.Undefined, "chi_square")

	w = post(t, router, "/v1/analyze", map[string]any{"bits": "0102"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(t, router, "/v1/analyze", map[string]any{"bits": "01", "count": 8})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	router, _ := newTestRouter(t, source.NewCrypto())
	key := strings.Repeat("2b", 32)

	w := post(t, router, "/v1/encrypt", map[string]any{"key_hex": key, "plaintext": "secret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	enc := decodeBody[encryptResponse](t, w)

	w = post(t, router, "/v1/decrypt", map[string]any{
		"key_hex": key, "iv_hex": enc.IVHex, "ciphertext_hex": enc.CiphertextHex,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "secret", decodeBody[map[string]string](t, w)["plaintext"])

	w = post(t, router, "/v1/decrypt", map[string]any{
		"key_hex": key, "iv_hex": enc.IVHex, "ciphertext_hex": enc.CiphertextHex[:30],
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(t, router, "/v1/encrypt", map[string]any{"key_hex": "abcd", "plaintext": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRun(t *testing.T) {
	router, _ := newTestRouter(t, source.NewCrypto())

	w := post(t, router, "/v1/run", map[string]any{"key_bits": 128, "message": "hello qrng"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeBody[qrng.DemoResult](t, w)
	assert.Equal(t, "hello qrng", res.Decrypted)
	assert.Len(t, res.KeyHex, 32)
	assert.Equal(t, 128, res.BitsLen)
}

func TestHealthAndMetrics(t *testing.T) {
	router, _ := newTestRouter(t, source.NewCrypto())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	_ = post(t, router, "/v1/keys", map[string]any{"key_bits": 128})

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `qrng_generation_requests_total{result="satisfied"} 1`)
	assert.Contains(t, w.Body.String(), "qrng_trial_draws_total")
}

func TestClassify(t *testing.T) {
	code, status := Classify(errors.New("boom"))
	assert.Equal(t, CodeInternal, code)
	assert.Equal(t, http.StatusInternalServerError, status)

	code, status = Classify(generate.ErrGenerationCancelled)
	assert.Equal(t, CodeCancelled, code)
	assert.Equal(t, http.StatusGatewayTimeout, status)
}

func TestMethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(t, source.NewCrypto())
	req := httptest.NewRequest(http.MethodGet, "/v1/keys", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
