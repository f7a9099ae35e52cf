package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := Frame{Type: MessageTypeError, Payload: []byte("backend down")}
	n, err := in.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != int64(headerLen+len(in.Payload)) {
		t.Fatalf("wrote %d bytes", n)
	}
	out, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if out.Type != in.Type || !bytes.Equal(out.Payload, in.Payload) {
		t.Fatalf("got %s %q", out.Type, out.Payload)
	}
}

func TestFrameHeaderLayout(t *testing.T) {
	var buf bytes.Buffer
	if _, err := (Draw{ChannelCount: 0x01020304}).Frame().WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	want := []byte{byte(MessageTypeDraw), 0, 0, 0, 4, 1, 2, 3, 4}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("wire bytes %x, want %x", buf.Bytes(), want)
	}
}

// countingWriter records how many Write calls a frame needs.
type countingWriter struct {
	bytes.Buffer
	calls int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.calls++
	return w.Buffer.Write(p)
}

func TestFrameSingleWrite(t *testing.T) {
	var w countingWriter
	if _, err := (Frame{Type: MessageTypeError, Payload: []byte("x")}).WriteTo(&w); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if w.calls != 1 {
		t.Fatalf("%d writes, want 1", w.calls)
	}
}

func TestReadFrameDoesNotOverRead(t *testing.T) {
	var buf bytes.Buffer
	_, _ = Draw{ChannelCount: 8}.Frame().WriteTo(&buf)
	_, _ = Draw{ChannelCount: 16}.Frame().WriteTo(&buf)

	for _, want := range []uint32{8, 16} {
		f, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		d, err := DecodeDraw(f)
		if err != nil {
			t.Fatalf("DecodeDraw: %v", err)
		}
		if d.ChannelCount != want {
			t.Fatalf("channel count %d, want %d", d.ChannelCount, want)
		}
	}
	if _, err := ReadFrame(&buf); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReadFrameShortPayload(t *testing.T) {
	wire := []byte{byte(MessageTypeError), 0, 0, 0, 10, 'a', 'b'}
	if _, err := ReadFrame(bytes.NewReader(wire)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestFrameRejectsInvalidType(t *testing.T) {
	if _, err := (Frame{}).WriteTo(io.Discard); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
	for _, typ := range []byte{0, 4, 0xff} {
		if _, err := ReadFrame(bytes.NewReader([]byte{typ, 0, 0, 0, 0})); !errors.Is(err, ErrInvalidType) {
			t.Fatalf("type %d: expected ErrInvalidType, got %v", typ, err)
		}
	}
}

func TestFrameTooLarge(t *testing.T) {
	big := Frame{Type: MessageTypeBatch, Payload: make([]byte, MaxFramePayload+1)}
	if _, err := big.WriteTo(io.Discard); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge on write, got %v", err)
	}

	hdr := make([]byte, headerLen)
	hdr[0] = byte(MessageTypeBatch)
	binary.BigEndian.PutUint32(hdr[1:], MaxFramePayload+1)
	if _, err := ReadFrame(bytes.NewReader(hdr)); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge on read, got %v", err)
	}
}

func TestMessageTypeString(t *testing.T) {
	for mt, want := range map[MessageType]string{
		MessageTypeDraw: "DRAW", MessageTypeBatch: "BATCH", MessageTypeError: "ERROR", 99: "UNKNOWN",
	} {
		if mt.String() != want {
			t.Fatalf("%d: %s", mt, mt.String())
		}
	}
}
