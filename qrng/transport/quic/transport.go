package quic

import (
	"context"
	"net"
	"time"

	q "github.com/quic-go/quic-go"

	"github.com/TheusHen/qrng/qrng/identity"
)

// Conn and Stream are the quic-go connection types used by callers.
type (
	Conn   = *q.Conn
	Stream = *q.Stream
)

func config() *q.Config {
	return &q.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 10 * time.Second,
	}
}

type Listener struct {
	inner *q.Listener
}

// Listen opens a QUIC listener presenting the identity kp.
func Listen(addr string, kp identity.KeyPair) (*Listener, error) {
	tlsConf, err := NewServerTLSConfig(kp)
	if err != nil {
		return nil, err
	}
	ln, err := q.ListenAddr(addr, tlsConf, config())
	if err != nil {
		return nil, err
	}
	return &Listener{inner: ln}, nil
}

func (l *Listener) Accept(ctx context.Context) (Conn, error) {
	return l.inner.Accept(ctx)
}

func (l *Listener) Addr() net.Addr { return l.inner.Addr() }

func (l *Listener) AddrString() string {
	if l.inner == nil {
		return ""
	}
	return l.inner.Addr().String()
}

func (l *Listener) Close() error { return l.inner.Close() }

// Dial connects to a trial source and returns the connection together with
// the SourceID derived from the certificate it presented.
func Dial(ctx context.Context, addr string) (Conn, identity.SourceID, error) {
	conn, err := q.DialAddr(ctx, addr, NewClientTLSConfig(), config())
	if err != nil {
		return nil, identity.SourceID{}, err
	}
	pub, err := PeerPublicKey(conn.ConnectionState().TLS)
	if err != nil {
		_ = conn.CloseWithError(0, "no identity")
		return nil, identity.SourceID{}, err
	}
	return conn, identity.SourceIDFromPublicKey(pub), nil
}
