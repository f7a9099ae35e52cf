package source

import (
	"context"
	"crypto/rand"
	"io"

	"github.com/TheusHen/qrng/qrng/bits"
)

// Crypto is a pseudo-random substitute backed by the operating system CSPRNG.
// It produces fair, independent outcomes and is the default backend when no
// measurement device is attached.
type Crypto struct {
	// Reader overrides the entropy source. Nil means crypto/rand.Reader.
	Reader io.Reader
}

// NewCrypto returns a Crypto source reading from crypto/rand.
func NewCrypto() *Crypto { return &Crypto{} }

// Name returns the source name used in errors and logs.
func (c *Crypto) Name() string { return "crypto" }

// DrawBatch returns channelCount fair bits.
func (c *Crypto) DrawBatch(ctx context.Context, channelCount int) (Batch, error) {
	if err := checkChannels(c.Name(), channelCount); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := c.Reader
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, (channelCount+7)/8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, Fail(c.Name(), err)
	}
	return Batch(bits.FromBytes(buf)[:channelCount]), nil
}
