package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/TheusHen/qrng/qrng/generate"
	"github.com/TheusHen/qrng/qrng/identity"
	"github.com/TheusHen/qrng/qrng/keys"
	"github.com/TheusHen/qrng/qrng/source"
	"github.com/TheusHen/qrng/qrng/source/remote"
)

var ErrInvalid = errors.New("config: invalid value")

// Source kinds.
const (
	SourceCrypto    = "crypto"
	SourceSimulator = "sim"
	SourceRemote    = "remote"
)

// Config holds the process settings read from the environment.
type Config struct {
	ChannelCount int
	Shots        int
	RetryBudget  int
	KeyBits      int
	Debias       bool
	Timeout      time.Duration

	Source     string
	SimBias    float64
	SimSeed    uint64
	RemoteAddr string
	RemoteID   string

	HTTPAddr      string
	SourceAddr    string
	SourceKeyFile string

	LogLevel  string
	LogFormat string
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, applying defaults for unset keys.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	p := parser{lookup: lookup}
	def := generate.DefaultConfig()
	c := &Config{
		ChannelCount:  p.int("QRNG_CHANNELS", def.ChannelCount),
		Shots:         p.int("QRNG_SHOTS", 1),
		RetryBudget:   p.int("QRNG_RETRY_BUDGET", def.RetryBudget),
		KeyBits:       p.int("QRNG_KEY_BITS", 256),
		Debias:        p.bool("QRNG_DEBIAS", true),
		Timeout:       p.duration("QRNG_TIMEOUT", 0),
		Source:        p.str("QRNG_SOURCE", SourceCrypto),
		SimBias:       p.float("QRNG_SIM_BIAS", 0.5),
		SimSeed:       p.uint("QRNG_SIM_SEED", 0),
		RemoteAddr:    p.str("QRNG_REMOTE_ADDR", ""),
		RemoteID:      p.str("QRNG_REMOTE_ID", ""),
		HTTPAddr:      p.str("QRNG_HTTP_ADDR", ":8080"),
		SourceAddr:    p.str("QRNG_SOURCE_ADDR", ":4433"),
		SourceKeyFile: p.str("QRNG_SOURCE_KEY", ""),
		LogLevel:      p.str("QRNG_LOG_LEVEL", "info"),
		LogFormat:     p.str("QRNG_LOG_FORMAT", "text"),
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the combination of settings.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceCrypto, SourceSimulator:
	case SourceRemote:
		if c.RemoteAddr == "" {
			return fmt.Errorf("%w: QRNG_REMOTE_ADDR is required for the remote source", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: QRNG_SOURCE=%q (want crypto, sim or remote)", ErrInvalid, c.Source)
	}
	if err := keys.ValidateSize(c.KeyBits); err != nil {
		return fmt.Errorf("%w: QRNG_KEY_BITS: %w", ErrInvalid, err)
	}
	if c.Shots <= 0 {
		return fmt.Errorf("%w: QRNG_SHOTS must be positive", ErrInvalid)
	}
	if c.SimBias < 0 || c.SimBias > 1 {
		return fmt.Errorf("%w: QRNG_SIM_BIAS must be in [0, 1]", ErrInvalid)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: QRNG_LOG_FORMAT=%q (want text or json)", ErrInvalid, c.LogFormat)
	}
	if err := c.Generate(nil, nil).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Generate returns the generation loop config.
func (c *Config) Generate(logger *slog.Logger, metrics *generate.Metrics) generate.Config {
	return generate.Config{
		ChannelCount: c.ChannelCount,
		RetryBudget:  c.RetryBudget,
		Debias:       c.Debias,
		Timeout:      c.Timeout,
		Logger:       logger,
		Metrics:      metrics,
	}
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// OpenSource builds the configured trial source. The returned close function
// releases network resources and is never nil.
func (c *Config) OpenSource(ctx context.Context) (source.TrialSource, func() error, error) {
	noop := func() error { return nil }
	switch c.Source {
	case SourceSimulator:
		sc := source.DefaultSimulatorConfig()
		sc.Bias = c.SimBias
		sc.Shots = c.Shots
		if c.SimSeed != 0 {
			sc.Seed1, sc.Seed2 = c.SimSeed, c.SimSeed^0x9e3779b97f4a7c15
		}
		sim, err := source.NewSimulator(sc)
		if err != nil {
			return nil, nil, err
		}
		return sim, noop, nil
	case SourceRemote:
		var pinned identity.SourceID
		if c.RemoteID != "" {
			id, err := identity.ParseSourceIDHex(c.RemoteID)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: QRNG_REMOTE_ID: %w", ErrInvalid, err)
			}
			pinned = id
		}
		cl, err := remote.Dial(ctx, c.RemoteAddr, pinned)
		if err != nil {
			return nil, nil, err
		}
		return cl, cl.Close, nil
	default:
		return source.NewCrypto(), noop, nil
	}
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: QRNG_LOG_LEVEL=%q", ErrInvalid, s)
	}
	return l, nil
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) raw(key string) (string, bool) {
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) str(key, def string) string {
	if v, ok := p.raw(key); ok {
		return v
	}
	return def
}

func (p *parser) fail(key, v string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%w: %s=%q: %w", ErrInvalid, key, v, err))
}

func (p *parser) int(key string, def int) int {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) uint(key string, def uint64) uint64 {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return f
}

func (p *parser) bool(key string, def bool) bool {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}
