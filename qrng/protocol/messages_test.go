package protocol

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/TheusHen/qrng/qrng/bits"
	"github.com/TheusHen/qrng/qrng/identity"
)

func TestBatchSignAndVerify(t *testing.T) {
	kp, err := identity.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	b := Batch{Seq: 7, Bits: bits.MustParse("1011001110")}
	b.Sign(kp)
	if err := b.Verify(kp.PublicKey); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	f, err := b.Frame()
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	rf, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	decoded, err := DecodeBatch(rf)
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	if decoded.Seq != 7 || bits.String(decoded.Bits) != "1011001110" {
		t.Fatalf("decoded %d %s", decoded.Seq, bits.String(decoded.Bits))
	}
	if err := decoded.Verify(kp.PublicKey); err != nil {
		t.Fatalf("Verify decoded: %v", err)
	}

	// Flipping a bit breaks the signature.
	decoded.Bits[0] ^= 1
	if err := decoded.Verify(kp.PublicKey); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}

	other, _ := identity.GenerateKeyPair()
	if err := b.Verify(other.PublicKey); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for foreign key, got %v", err)
	}
}

func TestBatchSigningBytesLayout(t *testing.T) {
	b := Batch{Seq: 1, Bits: bits.MustParse("0000000100000010")}
	got := b.SigningBytes()
	want := []byte{0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 16, 0x01, 0x02}
	if !bytes.Equal(got, want) {
		t.Fatalf("signing bytes %x, want %x", got, want)
	}
}

func TestBatchFrameRequiresSignature(t *testing.T) {
	if _, err := (Batch{Bits: bits.MustParse("01")}).Frame(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestDecodeBatchMalformed(t *testing.T) {
	kp, _ := identity.GenerateKeyPair()
	b := Batch{Seq: 1, Bits: bits.MustParse("0101")}
	b.Sign(kp)
	f, _ := b.Frame()

	short := Frame{Type: MessageTypeBatch, Payload: f.Payload[:20]}
	if _, err := DecodeBatch(short); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for short payload, got %v", err)
	}

	trailing := Frame{Type: MessageTypeBatch, Payload: append(append([]byte(nil), f.Payload...), 0)}
	if _, err := DecodeBatch(trailing); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for trailing byte, got %v", err)
	}

	if _, err := DecodeBatch(Draw{ChannelCount: 1}.Frame()); !errors.Is(err, ErrUnexpected) {
		t.Fatalf("expected ErrUnexpected, got %v", err)
	}
}

func TestDecodeDrawMalformed(t *testing.T) {
	if _, err := DecodeDraw(Frame{Type: MessageTypeDraw, Payload: []byte{1}}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestErrorFrameTruncatesOnRuneBoundary(t *testing.T) {
	// One ASCII byte shifts every two-byte rune so the limit falls mid-rune.
	msg := "a" + strings.Repeat("é", MaxFramePayload/2)
	f := ErrorFrame(msg)
	if len(f.Payload) > MaxFramePayload {
		t.Fatalf("payload %d bytes exceeds limit", len(f.Payload))
	}
	if len(f.Payload) != MaxFramePayload-1 {
		t.Fatalf("payload %d bytes, want %d", len(f.Payload), MaxFramePayload-1)
	}
	if !utf8.Valid(f.Payload) {
		t.Fatalf("payload is not valid UTF-8")
	}
	if _, err := f.WriteTo(io.Discard); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	short := ErrorFrame("fine")
	if string(short.Payload) != "fine" {
		t.Fatalf("short message changed: %q", short.Payload)
	}
}

func TestExpect(t *testing.T) {
	err := Expect(ErrorFrame("no qubits today"), MessageTypeBatch)
	var re *RemoteError
	if !errors.As(err, &re) || re.Message != "no qubits today" {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if err := Expect(Draw{}.Frame(), MessageTypeBatch); !errors.Is(err, ErrUnexpected) {
		t.Fatalf("expected ErrUnexpected, got %v", err)
	}
	if err := Expect(Frame{Type: MessageTypeBatch}, MessageTypeBatch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
