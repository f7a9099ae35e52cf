package generate

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var ErrInvalidConfig = errors.New("generate: invalid configuration")

// Config configures a generation loop. It is passed explicitly; the loop
// reads no process-wide settings.
type Config struct {
	ChannelCount int           // parallel measurement outcomes per trial-source call
	RetryBudget  int           // maximum trial-source calls per request
	Debias       bool          // apply the Von Neumann extractor to every batch
	Timeout      time.Duration // optional wall-clock bound per request (0 = disabled)
	Logger       *slog.Logger  // nil means slog.Default()
	Metrics      *Metrics      // nil disables metrics
}

// DefaultConfig returns the defaults used by the CLI and HTTP API.
func DefaultConfig() Config {
	return Config{
		ChannelCount: 8,
		RetryBudget:  1024,
		Debias:       true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.ChannelCount <= 0 {
		return fmt.Errorf("%w: channel count %d", ErrInvalidConfig, c.ChannelCount)
	}
	if c.RetryBudget <= 0 {
		return fmt.Errorf("%w: retry budget %d", ErrInvalidConfig, c.RetryBudget)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}
	return nil
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
