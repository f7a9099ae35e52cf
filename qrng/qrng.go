package qrng

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/TheusHen/qrng/qrng/analysis"
	"github.com/TheusHen/qrng/qrng/bits"
	"github.com/TheusHen/qrng/qrng/crypto"
	"github.com/TheusHen/qrng/qrng/generate"
	"github.com/TheusHen/qrng/qrng/keys"
	"github.com/TheusHen/qrng/qrng/source"
)

var ErrNoSource = errors.New("qrng: generator has no trial source")

// Generator produces keys from a trial source.
type Generator struct {
	Source source.TrialSource
	Config generate.Config
}

func NewGenerator(src source.TrialSource, cfg generate.Config) *Generator {
	return &Generator{Source: src, Config: cfg}
}

// KeyRequest describes one key. Zero ChannelCount or RetryBudget and a nil
// Debias fall back to the generator config; negative values are rejected.
type KeyRequest struct {
	KeySizeBits  int
	ChannelCount int
	RetryBudget  int
	Debias       *bool
	// HKDF runs the collected bits through HKDF-SHA256 instead of using
	// them as the key directly.
	HKDF bool
}

// KeyResult is a generated key with its provenance.
type KeyResult struct {
	Key        keys.Key
	Salt       []byte // set in HKDF mode
	Generation generate.Result
}

func (g *Generator) loop(channels, budget int, debias *bool) (*generate.Loop, error) {
	if g.Source == nil {
		return nil, ErrNoSource
	}
	if channels < 0 || budget < 0 {
		return nil, fmt.Errorf("%w: channel count %d, retry budget %d", generate.ErrInvalidConfig, channels, budget)
	}
	cfg := g.Config
	if channels > 0 {
		cfg.ChannelCount = channels
	}
	if budget > 0 {
		cfg.RetryBudget = budget
	}
	if debias != nil {
		cfg.Debias = *debias
	}
	return generate.NewLoop(g.Source, cfg)
}

// GenerateKey collects exactly KeySizeBits bits and derives a key from them.
// The key size is validated before the source is called.
func (g *Generator) GenerateKey(ctx context.Context, req KeyRequest) (*KeyResult, error) {
	if err := keys.ValidateSize(req.KeySizeBits); err != nil {
		return nil, err
	}
	loop, err := g.loop(req.ChannelCount, req.RetryBudget, req.Debias)
	if err != nil {
		return nil, err
	}
	res, err := loop.Run(ctx, req.KeySizeBits)
	if err != nil {
		return nil, err
	}

	out := &KeyResult{Generation: res}
	if req.HKDF {
		out.Key, out.Salt, err = keys.DeriveHKDF(res.Bits, req.KeySizeBits, nil)
	} else {
		out.Key, err = keys.Derive(res.Bits, req.KeySizeBits)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateBits collects n extracted bits with the generator config.
func (g *Generator) GenerateBits(ctx context.Context, n int) ([]bits.Bit, error) {
	loop, err := g.loop(0, 0, nil)
	if err != nil {
		return nil, err
	}
	return loop.Bits(ctx, n)
}

// GenerateInt returns a random integer built from n ≤ 64 extracted bits.
func (g *Generator) GenerateInt(ctx context.Context, n int) (uint64, error) {
	if n > 64 {
		return 0, fmt.Errorf("%w: %d", bits.ErrTooManyBits, n)
	}
	seq, err := g.GenerateBits(ctx, n)
	if err != nil {
		return 0, err
	}
	return bits.Uint64(seq)
}

// Analyze reports randomness metrics for seq.
func Analyze(seq []bits.Bit) analysis.Report { return analysis.Analyze(seq) }

// Encrypt encrypts plaintext under key with AES-CBC and a random IV.
func Encrypt(key keys.Key, plaintext []byte) (crypto.Sealed, error) {
	return crypto.Encrypt(key, plaintext)
}

// Decrypt reverses Encrypt.
func Decrypt(key keys.Key, iv, ciphertext []byte) ([]byte, error) {
	return crypto.Decrypt(key, iv, ciphertext)
}

// DemoResult is the outcome of RunDemo.
type DemoResult struct {
	KeyHex        string  `json:"key_hex"`
	SaltHex       string  `json:"kdf_salt,omitempty"`
	IVHex         string  `json:"iv_hex"`
	CiphertextHex string  `json:"ciphertext_hex"`
	Decrypted     string  `json:"decrypted"`
	BitsLen       int     `json:"bits_len"`
	Draws         int     `json:"draws"`
	Yield         float64 `json:"yield"`
}

// RunDemo generates a key, encrypts message with it and decrypts it again.
// Failures are returned as is; no weaker key is substituted.
func (g *Generator) RunDemo(ctx context.Context, req KeyRequest, message string) (*DemoResult, error) {
	kr, err := g.GenerateKey(ctx, req)
	if err != nil {
		return nil, err
	}
	sealed, err := Encrypt(kr.Key, []byte(message))
	if err != nil {
		return nil, err
	}
	plain, err := Decrypt(kr.Key, sealed.IV, sealed.Ciphertext)
	if err != nil {
		return nil, err
	}

	ivHex, ctHex := sealed.Hex()
	res := &DemoResult{
		KeyHex:        kr.Key.Hex(),
		IVHex:         ivHex,
		CiphertextHex: ctHex,
		Decrypted:     string(plain),
		BitsLen:       len(kr.Generation.Bits),
		Draws:         kr.Generation.Draws,
	}
	if !utf8.Valid(plain) {
		res.Decrypted = fmt.Sprintf("%x", plain)
	}
	if kr.Salt != nil {
		res.SaltHex = fmt.Sprintf("%x", kr.Salt)
	}
	if kr.Generation.RawBits > 0 {
		res.Yield = float64(kr.Generation.DebiasedBits) / float64(kr.Generation.RawBits)
	}
	return res, nil
}
