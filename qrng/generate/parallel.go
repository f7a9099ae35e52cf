package generate

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/TheusHen/qrng/qrng/bits"
	"github.com/TheusHen/qrng/qrng/source"
)

// SourceFactory builds the trial source for one independent request.
type SourceFactory func() (source.TrialSource, error)

// GenerateMany runs n independent requests of targetBits bits in parallel.
//
// Every request gets its own loop and stream. newSource is called once per
// request; it may return a shared source if that source is safe for concurrent
// use. The first failure cancels the remaining requests and is returned.
// Results are ordered by request index.
func GenerateMany(ctx context.Context, newSource SourceFactory, cfg Config, targetBits, n int) ([][]bits.Bit, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: request count %d", ErrInvalidConfig, n)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	out := make([][]bits.Bit, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			src, err := newSource()
			if err != nil {
				return source.Fail("factory", err)
			}
			loop, err := NewLoop(src, cfg)
			if err != nil {
				return err
			}
			b, err := loop.Bits(gctx, targetBits)
			if err != nil {
				return err
			}
			out[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
