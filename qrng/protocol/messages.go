package protocol

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/TheusHen/qrng/qrng/bits"
	"github.com/TheusHen/qrng/qrng/identity"
)

var (
	ErrMalformed    = errors.New("protocol: malformed message")
	ErrBadSignature = errors.New("protocol: invalid batch signature")
	ErrUnexpected   = errors.New("protocol: unexpected message type")
)

// MaxBatchBits bounds the bits carried by one BATCH frame.
const MaxBatchBits = (MaxFramePayload - 12 - ed25519.SignatureSize) * 8

// Draw asks the source for one batch.
type Draw struct {
	ChannelCount uint32
}

func (d Draw) Frame() Frame {
	p := make([]byte, 4)
	binary.BigEndian.PutUint32(p, d.ChannelCount)
	return Frame{Type: MessageTypeDraw, Payload: p}
}

func DecodeDraw(f Frame) (Draw, error) {
	if f.Type != MessageTypeDraw {
		return Draw{}, fmt.Errorf("%w: %s", ErrUnexpected, f.Type)
	}
	if len(f.Payload) != 4 {
		return Draw{}, fmt.Errorf("%w: draw payload is %d bytes", ErrMalformed, len(f.Payload))
	}
	return Draw{ChannelCount: binary.BigEndian.Uint32(f.Payload)}, nil
}

// Batch carries the raw outcomes of one draw, signed by the source.
// The signature is computed over SigningBytes().
type Batch struct {
	Seq       uint64
	Bits      []bits.Bit
	Signature []byte
}

func packedLen(n int) int { return (n + 7) / 8 }

// SigningBytes returns seq ‖ bit count ‖ packed bits. The last byte is zero
// padded when the bit count is not a multiple of 8.
func (b Batch) SigningBytes() []byte {
	out := make([]byte, 12+packedLen(len(b.Bits)))
	binary.BigEndian.PutUint64(out[0:8], b.Seq)
	binary.BigEndian.PutUint32(out[8:12], uint32(len(b.Bits)))
	for i, bit := range b.Bits {
		if bit == 1 {
			out[12+i/8] |= 0x80 >> (i % 8)
		}
	}
	return out
}

func (b *Batch) Sign(kp identity.KeyPair) {
	b.Signature = kp.Sign(b.SigningBytes())
}

// Verify checks the signature against publicKey.
func (b Batch) Verify(publicKey ed25519.PublicKey) error {
	if !identity.Verify(publicKey, b.SigningBytes(), b.Signature) {
		return ErrBadSignature
	}
	return nil
}

func (b Batch) Frame() (Frame, error) {
	if len(b.Bits) > MaxBatchBits {
		return Frame{}, fmt.Errorf("%w: %d bits", ErrFrameTooLarge, len(b.Bits))
	}
	if len(b.Signature) != ed25519.SignatureSize {
		return Frame{}, fmt.Errorf("%w: unsigned batch", ErrMalformed)
	}
	p := append(b.SigningBytes(), b.Signature...)
	return Frame{Type: MessageTypeBatch, Payload: p}, nil
}

func DecodeBatch(f Frame) (Batch, error) {
	if f.Type != MessageTypeBatch {
		return Batch{}, fmt.Errorf("%w: %s", ErrUnexpected, f.Type)
	}
	p := f.Payload
	if len(p) < 12+ed25519.SignatureSize {
		return Batch{}, fmt.Errorf("%w: batch payload is %d bytes", ErrMalformed, len(p))
	}
	count := binary.BigEndian.Uint32(p[8:12])
	if count > math.MaxInt32 || len(p) != 12+packedLen(int(count))+ed25519.SignatureSize {
		return Batch{}, fmt.Errorf("%w: %d bits in %d byte payload", ErrMalformed, count, len(p))
	}
	packed := p[12 : 12+packedLen(int(count))]
	return Batch{
		Seq:       binary.BigEndian.Uint64(p[0:8]),
		Bits:      bits.FromBytes(packed)[:count],
		Signature: append([]byte(nil), p[len(p)-ed25519.SignatureSize:]...),
	}, nil
}

// ErrorFrame reports a source-side failure to the client. Long messages are
// cut to MaxFramePayload bytes without splitting a UTF-8 sequence.
func ErrorFrame(msg string) Frame {
	if len(msg) > MaxFramePayload {
		n := MaxFramePayload
		for n > 0 && !utf8.RuneStart(msg[n]) {
			n--
		}
		msg = msg[:n]
	}
	return Frame{Type: MessageTypeError, Payload: []byte(msg)}
}

// RemoteError is an error reported by the other side in an ERROR frame.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return "protocol: remote error: " + e.Message }

// Expect decodes a response frame, turning ERROR frames into *RemoteError.
func Expect(f Frame, want MessageType) error {
	if f.Type == MessageTypeError {
		return &RemoteError{Message: string(f.Payload)}
	}
	if f.Type != want {
		return fmt.Errorf("%w: got %s, want %s", ErrUnexpected, f.Type, want)
	}
	return nil
}
