package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/TheusHen/qrng/qrng/identity"
	"github.com/TheusHen/qrng/qrng/protocol"
	"github.com/TheusHen/qrng/qrng/source"
	"github.com/TheusHen/qrng/qrng/transport/quic"
)

// DefaultMaxChannels bounds the channel count a server accepts per draw.
const DefaultMaxChannels = 4096

var ErrTooManyChannels = errors.New("remote: channel count above server limit")

// ServerConfig configures a Server.
type ServerConfig struct {
	MaxChannels int
	DrawTimeout time.Duration // per stream, 0 = none
	Logger      *slog.Logger
}

// Server exposes a local TrialSource over QUIC. Every stream carries one
// DRAW request and one signed BATCH (or ERROR) response.
type Server struct {
	src    source.TrialSource
	kp     identity.KeyPair
	cfg    ServerConfig
	logger *slog.Logger
	seq    atomic.Uint64
}

func NewServer(src source.TrialSource, kp identity.KeyPair, cfg ServerConfig) *Server {
	if cfg.MaxChannels <= 0 {
		cfg.MaxChannels = DefaultMaxChannels
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		src:    src,
		kp:     kp,
		cfg:    cfg,
		logger: logger.With("component", "remote-source", "source_id", kp.SourceID().String()),
	}
}

// SourceID returns the identity clients should pin.
func (s *Server) SourceID() identity.SourceID { return s.kp.SourceID() }

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := quic.Listen(addr, s.kp)
	if err != nil {
		return fmt.Errorf("remote: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is done. It closes ln on return.
func (s *Server) Serve(ctx context.Context, ln *quic.Listener) error {
	defer ln.Close()
	s.logger.InfoContext(ctx, "trial source listening", "addr", ln.AddrString())

	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("remote: accept: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn quic.Conn) {
	peer := conn.RemoteAddr().String()
	s.logger.DebugContext(ctx, "client connected", "peer", peer)
	for {
		str, err := conn.AcceptStream(ctx)
		if err != nil {
			s.logger.DebugContext(ctx, "client disconnected", "peer", peer, "error", err)
			return
		}
		go s.handleStream(ctx, str, peer)
	}
}

func (s *Server) handleStream(ctx context.Context, str quic.Stream, peer string) {
	defer str.Close()
	if s.cfg.DrawTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DrawTimeout)
		defer cancel()
		_ = str.SetDeadline(time.Now().Add(s.cfg.DrawTimeout))
	}

	resp, err := s.answer(ctx, str)
	if err != nil {
		s.logger.WarnContext(ctx, "draw failed", "peer", peer, "error", err)
		resp = protocol.ErrorFrame(err.Error())
	}
	if _, err := resp.WriteTo(str); err != nil {
		s.logger.WarnContext(ctx, "write response", "peer", peer, "error", err)
	}
}

func (s *Server) answer(ctx context.Context, str quic.Stream) (protocol.Frame, error) {
	f, err := protocol.ReadFrame(str)
	if err != nil {
		return protocol.Frame{}, fmt.Errorf("read request: %w", err)
	}
	draw, err := protocol.DecodeDraw(f)
	if err != nil {
		return protocol.Frame{}, err
	}
	n := int(draw.ChannelCount)
	if n > s.cfg.MaxChannels {
		return protocol.Frame{}, fmt.Errorf("%w: %d > %d", ErrTooManyChannels, n, s.cfg.MaxChannels)
	}

	raw, err := s.src.DrawBatch(ctx, n)
	if err != nil {
		return protocol.Frame{}, err
	}
	b := protocol.Batch{Seq: s.seq.Add(1), Bits: raw}
	b.Sign(s.kp)
	return b.Frame()
}
