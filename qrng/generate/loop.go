package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TheusHen/qrng/qrng/bits"
	"github.com/TheusHen/qrng/qrng/extract"
	"github.com/TheusHen/qrng/qrng/source"
)

var (
	ErrInsufficientEntropy = errors.New("generate: insufficient entropy")
	ErrGenerationCancelled = errors.New("generate: generation cancelled")
	ErrInvalidTarget       = errors.New("generate: target bit count must be positive")
	ErrMalformedBatch      = errors.New("generate: batch length is not a multiple of the channel count")
)

const tracerName = "github.com/TheusHen/qrng/qrng/generate"

// State is the state of a generation request.
type State int

const (
	Accumulating State = iota
	Satisfied
	Exhausted
)

func (s State) String() string {
	switch s {
	case Accumulating:
		return "ACCUMULATING"
	case Satisfied:
		return "SATISFIED"
	case Exhausted:
		return "EXHAUSTED"
	default:
		return "UNKNOWN"
	}
}

// InsufficientEntropyError reports a request that spent its retry budget
// before collecting the target number of bits.
type InsufficientEntropyError struct {
	Target    int
	Collected int
	Draws     int
}

func (e *InsufficientEntropyError) Error() string {
	return fmt.Sprintf("generate: insufficient entropy: collected %d of %d bits in %d draws",
		e.Collected, e.Target, e.Draws)
}

func (e *InsufficientEntropyError) Unwrap() error { return ErrInsufficientEntropy }

// Result describes one generation request. Bits is set only when State is Satisfied.
type Result struct {
	RequestID    string
	State        State
	Bits         []bits.Bit
	Draws        int
	RawBits      int
	DebiasedBits int
	Duration     time.Duration
}

// Loop drives a trial source until enough extracted bits are collected.
//
// A Loop holds no stream between requests: every Run starts from an empty
// stream and discards surplus bits on return. Independent requests should use
// independent loops; Run is not meant to be called concurrently on one Loop.
type Loop struct {
	src  source.TrialSource
	cfg  Config
	ext  extract.Extractor
	name string
}

// NewLoop creates a generation loop over src.
func NewLoop(src source.TrialSource, cfg Config) (*Loop, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil trial source", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	name := "trial-source"
	if n, ok := src.(interface{ Name() string }); ok {
		name = n.Name()
	}
	return &Loop{src: src, cfg: cfg, ext: extract.For(cfg.Debias), name: name}, nil
}

// Config returns the loop configuration.
func (l *Loop) Config() Config { return l.cfg }

// Bits runs a request and returns exactly targetBits bits.
func (l *Loop) Bits(ctx context.Context, targetBits int) ([]bits.Bit, error) {
	res, err := l.Run(ctx, targetBits)
	if err != nil {
		return nil, err
	}
	return res.Bits, nil
}

// Run executes one generation request.
//
// Each iteration draws one batch, extracts it and appends the output to the
// request's stream. The request is satisfied as soon as the stream holds at
// least targetBits bits; the first targetBits are returned and the rest is
// dropped. A trial-source failure ends the request immediately without
// consuming the retry budget. The context is checked between draws.
// On any failure no bits are returned.
func (l *Loop) Run(ctx context.Context, targetBits int) (Result, error) {
	res := Result{RequestID: uuid.NewString(), State: Accumulating}
	if targetBits <= 0 {
		return res, fmt.Errorf("%w: %d", ErrInvalidTarget, targetBits)
	}

	if l.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.Timeout)
		defer cancel()
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "generate.Run", trace.WithAttributes(
		attribute.String("qrng.request_id", res.RequestID),
		attribute.String("qrng.source", l.name),
		attribute.Int("qrng.target_bits", targetBits),
		attribute.Int("qrng.channel_count", l.cfg.ChannelCount),
		attribute.Bool("qrng.debias", l.cfg.Debias),
	))
	defer span.End()

	logger := l.cfg.logger().With("request_id", res.RequestID, "source", l.name)
	start := time.Now()
	logger.DebugContext(ctx, "generation started",
		"target_bits", targetBits,
		"channel_count", l.cfg.ChannelCount,
		"retry_budget", l.cfg.RetryBudget,
		"debias", l.cfg.Debias,
	)

	out, err := l.accumulate(ctx, targetBits, &res)
	res.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("qrng.draws", res.Draws),
		attribute.String("qrng.state", res.State.String()),
	)

	if err != nil {
		result := "error"
		switch {
		case errors.Is(err, ErrInsufficientEntropy):
			result = "exhausted"
		case errors.Is(err, ErrGenerationCancelled):
			result = "cancelled"
		}
		l.cfg.Metrics.observeResult(result, start)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "generation failed",
			"state", res.State.String(),
			"draws", res.Draws,
			"collected_bits", res.DebiasedBits,
			"duration_ms", res.Duration.Milliseconds(),
			"error", err,
		)
		return res, err
	}

	res.Bits = out
	l.cfg.Metrics.observeResult("satisfied", start)
	logger.InfoContext(ctx, "generation satisfied",
		"target_bits", targetBits,
		"draws", res.Draws,
		"raw_bits", res.RawBits,
		"debiased_bits", res.DebiasedBits,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (l *Loop) accumulate(ctx context.Context, targetBits int, res *Result) ([]bits.Bit, error) {
	acc := bits.NewAccumulator(targetBits)

	for !acc.Satisfied(targetBits) {
		if res.Draws >= l.cfg.RetryBudget {
			res.State = Exhausted
			return nil, &InsufficientEntropyError{Target: targetBits, Collected: acc.Len(), Draws: res.Draws}
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGenerationCancelled, err)
		}

		batch, err := l.src.DrawBatch(ctx, l.cfg.ChannelCount)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrGenerationCancelled, ctxErr)
			}
			return nil, source.Fail(l.name, err)
		}
		res.Draws++
		if len(batch)%l.cfg.ChannelCount != 0 {
			return nil, source.Fail(l.name, fmt.Errorf("%w: %d bits for %d channels",
				ErrMalformedBatch, len(batch), l.cfg.ChannelCount))
		}

		extracted := l.ext.Extract(batch)
		acc.Append(extracted)
		res.RawBits += len(batch)
		res.DebiasedBits += len(extracted)
		l.cfg.Metrics.observeDraw(len(batch), len(extracted))
	}

	res.State = Satisfied
	return acc.Take(targetBits)
}
