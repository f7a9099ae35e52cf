package remote

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"sync"

	"github.com/TheusHen/qrng/qrng/identity"
	"github.com/TheusHen/qrng/qrng/protocol"
	"github.com/TheusHen/qrng/qrng/source"
	"github.com/TheusHen/qrng/qrng/transport/quic"
)

const sourceName = "remote"

var (
	ErrSourceMismatch = errors.New("remote: source id does not match pinned id")
	ErrReplayedBatch  = errors.New("remote: batch sequence did not advance")
	ErrClosed         = errors.New("remote: client closed")
)

// Client is a TrialSource backed by a remote Server.
//
// Every batch must be signed by the key the server presented during the TLS
// handshake. When a SourceID is pinned, connections to any other source are
// refused.
type Client struct {
	addr   string
	id     identity.SourceID
	pub    ed25519.PublicKey
	conn   quic.Conn
	mu     sync.Mutex
	last   uint64
	closed bool
}

// Dial connects to the source at addr. A zero pinned id accepts any source.
func Dial(ctx context.Context, addr string, pinned identity.SourceID) (*Client, error) {
	conn, id, err := quic.Dial(ctx, addr)
	if err != nil {
		return nil, source.Fail(sourceName, fmt.Errorf("dial %s: %w", addr, err))
	}
	if !pinned.IsZero() && id != pinned {
		_ = conn.CloseWithError(0, "source mismatch")
		return nil, source.Fail(sourceName, fmt.Errorf("%w: got %s", ErrSourceMismatch, id))
	}
	pub, err := quic.PeerPublicKey(conn.ConnectionState().TLS)
	if err != nil {
		_ = conn.CloseWithError(0, "no identity")
		return nil, source.Fail(sourceName, err)
	}
	return &Client{addr: addr, id: id, pub: pub, conn: conn}, nil
}

func (c *Client) Name() string { return sourceName }

// SourceID returns the identity of the connected source.
func (c *Client) SourceID() identity.SourceID { return c.id }

// DrawBatch requests one batch over a fresh stream.
func (c *Client) DrawBatch(ctx context.Context, channelCount int) (source.Batch, error) {
	if channelCount <= 0 {
		return nil, source.Fail(sourceName, fmt.Errorf("%w: %d", source.ErrInvalidChannelCount, channelCount))
	}
	// Above this a BATCH could not be framed, and the DRAW count field is 32 bits.
	if channelCount > protocol.MaxBatchBits {
		return nil, source.Fail(sourceName, fmt.Errorf("%w: %d channels in one draw", protocol.ErrFrameTooLarge, channelCount))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, source.Fail(sourceName, ErrClosed)
	}

	b, err := c.draw(ctx, channelCount)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, source.Fail(sourceName, err)
	}
	if b.Seq <= c.last {
		return nil, source.Fail(sourceName, fmt.Errorf("%w: %d after %d", ErrReplayedBatch, b.Seq, c.last))
	}
	c.last = b.Seq
	return source.Batch(b.Bits), nil
}

func (c *Client) draw(ctx context.Context, channelCount int) (protocol.Batch, error) {
	str, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return protocol.Batch{}, fmt.Errorf("open stream: %w", err)
	}
	defer str.CancelRead(0)
	if dl, ok := ctx.Deadline(); ok {
		_ = str.SetDeadline(dl)
	}

	if _, err := (protocol.Draw{ChannelCount: uint32(channelCount)}).Frame().WriteTo(str); err != nil {
		return protocol.Batch{}, fmt.Errorf("write draw: %w", err)
	}
	if err := str.Close(); err != nil {
		return protocol.Batch{}, err
	}

	f, err := protocol.ReadFrame(str)
	if err != nil {
		return protocol.Batch{}, fmt.Errorf("read batch: %w", err)
	}
	if err := protocol.Expect(f, protocol.MessageTypeBatch); err != nil {
		return protocol.Batch{}, err
	}
	b, err := protocol.DecodeBatch(f)
	if err != nil {
		return protocol.Batch{}, err
	}
	if err := b.Verify(c.pub); err != nil {
		return protocol.Batch{}, err
	}
	return b, nil
}

// Close closes the connection. Later draws fail.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.CloseWithError(0, "bye")
}
