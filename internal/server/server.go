package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TheusHen/qrng/qrng"
	"github.com/TheusHen/qrng/qrng/analysis"
	"github.com/TheusHen/qrng/qrng/bits"
	"github.com/TheusHen/qrng/qrng/crypto"
	"github.com/TheusHen/qrng/qrng/keys"
	"github.com/TheusHen/qrng/qrng/source/remote"
)

const (
	maxBodyBytes   = 1 << 20
	maxAnalyzeBits = 1 << 20

	// Upper bounds for per-request loop overrides.
	maxChannelCount = remote.DefaultMaxChannels
	maxRetryBudget  = 1 << 16
)

// Generator is the part of qrng.Generator the HTTP API needs.
type Generator interface {
	GenerateKey(ctx context.Context, req qrng.KeyRequest) (*qrng.KeyResult, error)
	GenerateBits(ctx context.Context, n int) ([]bits.Bit, error)
	RunDemo(ctx context.Context, req qrng.KeyRequest, message string) (*qrng.DemoResult, error)
}

// Handler serves the key generation API. Keys are returned to the caller
// only; nothing is stored.
type Handler struct {
	gen        Generator
	logger     *slog.Logger
	defaultKey int
}

// New constructs a handler. defaultKeyBits is used when a request omits the key size.
func New(gen Generator, logger *slog.Logger, defaultKeyBits int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{gen: gen, logger: logger, defaultKey: defaultKeyBits}
}

// Register mounts the API endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/keys", h.HandleKeys)
	r.Post("/v1/analyze", h.HandleAnalyze)
	r.Post("/v1/encrypt", h.HandleEncrypt)
	r.Post("/v1/decrypt", h.HandleDecrypt)
	r.Post("/v1/run", h.HandleRun)
}

// NewRouter wires the API, health check and metrics endpoint.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	h.Register(r)
	return r
}

// NewHTTPServer builds an HTTP server with the project defaults.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func decode[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return v, nil
}

func decodeKey(s string) (keys.Key, error) {
	k, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: key_hex: %w", errBadRequest, err)
	}
	return keys.Key(k), nil
}

type keyRequest struct {
	KeyBits      int   `json:"key_bits"`
	ChannelCount int   `json:"channel_count"`
	RetryBudget  int   `json:"retry_budget"`
	Debias       *bool `json:"debias"`
	HKDF         bool  `json:"hkdf"`
}

func (k keyRequest) toDomain(defaultBits int) (qrng.KeyRequest, error) {
	if k.ChannelCount < 0 || k.ChannelCount > maxChannelCount {
		return qrng.KeyRequest{}, fmt.Errorf("%w: channel_count must be in [0, %d]", errBadRequest, maxChannelCount)
	}
	if k.RetryBudget < 0 || k.RetryBudget > maxRetryBudget {
		return qrng.KeyRequest{}, fmt.Errorf("%w: retry_budget must be in [0, %d]", errBadRequest, maxRetryBudget)
	}
	req := qrng.KeyRequest{
		KeySizeBits:  k.KeyBits,
		ChannelCount: k.ChannelCount,
		RetryBudget:  k.RetryBudget,
		Debias:       k.Debias,
		HKDF:         k.HKDF,
	}
	if req.KeySizeBits == 0 {
		req.KeySizeBits = defaultBits
	}
	return req, nil
}

type keyResponse struct {
	RequestID    string `json:"request_id"`
	KeyHex       string `json:"key_hex"`
	KeyBits      int    `json:"key_bits"`
	SaltHex      string `json:"salt_hex,omitempty"`
	Draws        int    `json:"draws"`
	RawBits      int    `json:"raw_bits"`
	DebiasedBits int    `json:"debiased_bits"`
}

// HandleKeys handles POST /v1/keys.
func (h *Handler) HandleKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, err := decode[keyRequest](w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := in.toDomain(h.defaultKey)
	if err != nil {
		writeError(w, err)
		return
	}

	kr, err := h.gen.GenerateKey(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "key generation failed",
			"http_request_id", middleware.GetReqID(ctx),
			"key_bits", req.KeySizeBits,
			"error", err,
		)
		writeError(w, err)
		return
	}

	resp := keyResponse{
		RequestID:    kr.Generation.RequestID,
		KeyHex:       kr.Key.Hex(),
		KeyBits:      kr.Key.Bits(),
		Draws:        kr.Generation.Draws,
		RawBits:      kr.Generation.RawBits,
		DebiasedBits: kr.Generation.DebiasedBits,
	}
	if kr.Salt != nil {
		resp.SaltHex = hex.EncodeToString(kr.Salt)
	}
	h.logger.InfoContext(ctx, "key issued",
		"http_request_id", middleware.GetReqID(ctx),
		"request_id", kr.Generation.RequestID,
		"key_bits", resp.KeyBits,
		"draws", resp.Draws,
	)
	writeJSON(w, http.StatusOK, resp)
}

type analyzeRequest struct {
	Bits  string `json:"bits"`
	Count int    `json:"count"`
	Lags  []int  `json:"lags"`
}

type analyzeResponse struct {
	Length    int                `json:"length"`
	Metrics   map[string]float64 `json:"metrics"`
	Undefined map[string]string  `json:"undefined"`
	Passes    map[string]bool    `json:"passes"`
}

// HandleAnalyze handles POST /v1/analyze. The sequence is either given as a
// 0/1 string or generated from the configured source when count is set.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, err := decode[analyzeRequest](w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	var seq []bits.Bit
	switch {
	case in.Bits != "" && in.Count != 0:
		writeError(w, fmt.Errorf("%w: set either bits or count", errBadRequest))
		return
	case in.Count < 0 || in.Count > maxAnalyzeBits:
		writeError(w, fmt.Errorf("%w: count must be within [1, %d]", errBadRequest, maxAnalyzeBits))
		return
	case in.Count > 0:
		seq, err = h.gen.GenerateBits(ctx, in.Count)
	default:
		seq, err = bits.Parse(in.Bits)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	for _, lag := range in.Lags {
		if lag < 1 {
			writeError(w, fmt.Errorf("%w: lag %d", errBadRequest, lag))
			return
		}
	}

	rep := analysis.AnalyzeWith(seq, analysis.Options{Lags: in.Lags})
	writeJSON(w, http.StatusOK, analyzeResponse{
		Length:    rep.Length,
		Metrics:   rep.Metrics(),
		Undefined: rep.UndefinedReasons(),
		Passes:    rep.Passes(),
	})
}

type encryptRequest struct {
	KeyHex    string `json:"key_hex"`
	Plaintext string `json:"plaintext"`
}

type encryptResponse struct {
	IVHex         string `json:"iv_hex"`
	CiphertextHex string `json:"ciphertext_hex"`
}

// HandleEncrypt handles POST /v1/encrypt.
func (h *Handler) HandleEncrypt(w http.ResponseWriter, r *http.Request) {
	in, err := decode[encryptRequest](w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	key, err := decodeKey(in.KeyHex)
	if err != nil {
		writeError(w, err)
		return
	}
	sealed, err := qrng.Encrypt(key, []byte(in.Plaintext))
	if err != nil {
		writeError(w, err)
		return
	}
	iv, ct := sealed.Hex()
	writeJSON(w, http.StatusOK, encryptResponse{IVHex: iv, CiphertextHex: ct})
}

type decryptRequest struct {
	KeyHex        string `json:"key_hex"`
	IVHex         string `json:"iv_hex"`
	CiphertextHex string `json:"ciphertext_hex"`
}

// HandleDecrypt handles POST /v1/decrypt.
func (h *Handler) HandleDecrypt(w http.ResponseWriter, r *http.Request) {
	in, err := decode[decryptRequest](w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	key, err := decodeKey(in.KeyHex)
	if err != nil {
		writeError(w, err)
		return
	}
	plain, err := crypto.DecryptHex(key, in.IVHex, in.CiphertextHex)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"plaintext": string(plain)})
}

type runRequest struct {
	keyRequest
	Message string `json:"message"`
}

// HandleRun handles POST /v1/run: generate a key, encrypt the message and
// decrypt it again in one call.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, err := decode[runRequest](w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if in.Message == "" {
		in.Message = "hello"
	}
	req, err := in.toDomain(h.defaultKey)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.gen.RunDemo(ctx, req, in.Message)
	if err != nil {
		h.logger.ErrorContext(ctx, "demo run failed",
			"http_request_id", middleware.GetReqID(ctx),
			"error", err,
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
