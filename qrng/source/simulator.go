package source

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/TheusHen/qrng/qrng/bits"
)

var ErrInvalidBias = errors.New("source: bias must be within [0, 1]")

// Simulator imitates a register of Hadamard-prepared channels measured in the
// computational basis. Each shot measures every channel once; a channel reads 1
// with probability Bias. Outcomes are reported in natural order (channel 0 first),
// after reversing the register's little-endian readout.
//
// The generator is seeded, so a Simulator with a fixed seed is reproducible.
// It is safe for concurrent use.
type Simulator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	bias  float64
	shots int
}

// SimulatorConfig configures a Simulator.
type SimulatorConfig struct {
	Bias  float64 // probability of measuring 1; 0.5 for an ideal Hadamard channel
	Shots int     // shots per DrawBatch call (default: 1)
	Seed1 uint64
	Seed2 uint64
}

// DefaultSimulatorConfig returns an ideal single-shot simulator seeded from the runtime.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Bias:  0.5,
		Shots: 1,
		Seed1: rand.Uint64(),
		Seed2: rand.Uint64(),
	}
}

// NewSimulator creates a simulator.
func NewSimulator(cfg SimulatorConfig) (*Simulator, error) {
	if cfg.Bias < 0 || cfg.Bias > 1 {
		return nil, ErrInvalidBias
	}
	if cfg.Shots <= 0 {
		cfg.Shots = 1
	}
	return &Simulator{
		rng:   rand.New(rand.NewPCG(cfg.Seed1, cfg.Seed2)),
		bias:  cfg.Bias,
		shots: cfg.Shots,
	}, nil
}

// Name returns the source name used in errors and logs.
func (s *Simulator) Name() string { return "simulator" }

// Shots returns the number of shots per batch.
func (s *Simulator) Shots() int { return s.shots }

// DrawBatch returns channelCount*Shots outcomes.
func (s *Simulator) DrawBatch(ctx context.Context, channelCount int) (Batch, error) {
	if err := checkChannels(s.Name(), channelCount); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(Batch, 0, channelCount*s.shots)
	register := make([]bits.Bit, channelCount)
	for shot := 0; shot < s.shots; shot++ {
		// The register is read out with channel 0 as the rightmost bit.
		for i := channelCount - 1; i >= 0; i-- {
			register[i] = 0
			if s.rng.Float64() < s.bias {
				register[i] = 1
			}
		}
		out = append(out, bits.ReverseOrder(register)...)
	}
	return out, nil
}
