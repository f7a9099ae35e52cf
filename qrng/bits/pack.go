package bits

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientBits = errors.New("bits: insufficient bits")
	ErrUnalignedTarget  = errors.New("bits: target bit count must be a positive multiple of 8")
)

// InsufficientBitsError reports a packer starved of input.
// Callers must request more trials; the packer never pads.
type InsufficientBitsError struct {
	Have int
	Want int
}

func (e *InsufficientBitsError) Error() string {
	return fmt.Sprintf("bits: insufficient bits: have %d, want %d", e.Have, e.Want)
}

func (e *InsufficientBitsError) Unwrap() error { return ErrInsufficientBits }

// Pack converts the first targetBitCount bits of seq into bytes.
//
// Packing order is fixed: bits are consumed in stream order and placed
// most-significant-bit first within each byte. Bits beyond the target are
// discarded. The input is never padded with zero bits.
func Pack(seq []Bit, targetBitCount int) ([]byte, error) {
	if targetBitCount <= 0 || targetBitCount%8 != 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnalignedTarget, targetBitCount)
	}
	if len(seq) < targetBitCount {
		return nil, &InsufficientBitsError{Have: len(seq), Want: targetBitCount}
	}

	out := make([]byte, targetBitCount/8)
	for i := 0; i < targetBitCount; i++ {
		if seq[i]&1 == 1 {
			out[i/8] |= 0x80 >> uint(i%8)
		}
	}
	return out, nil
}

// Accumulator collects debiased bits for a single generation request.
// It only grows; Take copies out a prefix without retaining leftovers for later use.
type Accumulator struct {
	stream []Bit
}

// NewAccumulator creates an accumulator with room for capacity bits.
func NewAccumulator(capacity int) *Accumulator {
	if capacity < 0 {
		capacity = 0
	}
	return &Accumulator{stream: make([]Bit, 0, capacity)}
}

// Append adds bits to the end of the stream.
func (a *Accumulator) Append(seq []Bit) {
	a.stream = append(a.stream, seq...)
}

// Len returns the number of accumulated bits.
func (a *Accumulator) Len() int { return len(a.stream) }

// Satisfied reports whether at least target bits are available.
func (a *Accumulator) Satisfied(target int) bool { return len(a.stream) >= target }

// Take returns a copy of exactly the first target bits.
func (a *Accumulator) Take(target int) ([]Bit, error) {
	if target < 0 || len(a.stream) < target {
		return nil, &InsufficientBitsError{Have: len(a.stream), Want: target}
	}
	out := make([]Bit, target)
	copy(out, a.stream[:target])
	return out, nil
}
