package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFramePayload limits a single frame payload.
const MaxFramePayload = 1 << 20

var (
	ErrFrameTooLarge = errors.New("protocol: frame payload too large")
	ErrInvalidType   = errors.New("protocol: invalid message type")
)

type MessageType uint8

const (
	MessageTypeDraw  MessageType = 1
	MessageTypeBatch MessageType = 2
	MessageTypeError MessageType = 3
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeDraw:
		return "DRAW"
	case MessageTypeBatch:
		return "BATCH"
	case MessageTypeError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (t MessageType) valid() bool {
	return t >= MessageTypeDraw && t <= MessageTypeError
}

// header is the fixed frame prefix: message type, then the payload length
// as a big-endian uint32.
type header [5]byte

const headerLen = len(header{})

func (h header) messageType() MessageType { return MessageType(h[0]) }
func (h header) payloadLen() uint32       { return binary.BigEndian.Uint32(h[1:]) }

func (h header) check() error {
	if !h.messageType().valid() {
		return fmt.Errorf("%w: %d", ErrInvalidType, h[0])
	}
	if n := h.payloadLen(); n > MaxFramePayload {
		return fmt.Errorf("%w: %d", ErrFrameTooLarge, n)
	}
	return nil
}

// Frame is one message on a stream: a header followed by the payload.
// Every remote draw uses its own stream carrying a DRAW frame from the
// client and a BATCH or ERROR frame back.
type Frame struct {
	Type    MessageType
	Payload []byte
}

func (f Frame) header() header {
	var h header
	h[0] = byte(f.Type)
	binary.BigEndian.PutUint32(h[1:], uint32(len(f.Payload)))
	return h
}

// WriteTo writes the frame with a single Write call.
func (f Frame) WriteTo(w io.Writer) (int64, error) {
	if len(f.Payload) > MaxFramePayload {
		return 0, fmt.Errorf("%w: %d", ErrFrameTooLarge, len(f.Payload))
	}
	h := f.header()
	if err := h.check(); err != nil {
		return 0, err
	}
	buf := make([]byte, 0, headerLen+len(f.Payload))
	buf = append(buf, h[:]...)
	buf = append(buf, f.Payload...)
	n, err := w.Write(buf)
	return int64(n), err
}

// ReadFrame reads exactly one frame and nothing past it.
func ReadFrame(r io.Reader) (Frame, error) {
	var h header
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return Frame{}, err
	}
	if err := h.check(); err != nil {
		return Frame{}, err
	}
	f := Frame{Type: h.messageType(), Payload: make([]byte, h.payloadLen())}
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		return Frame{}, fmt.Errorf("protocol: short %s payload: %w", f.Type, err)
	}
	return f, nil
}
