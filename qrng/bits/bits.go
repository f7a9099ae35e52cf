package bits

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidBit  = errors.New("bits: invalid bit character")
	ErrTooManyBits = errors.New("bits: more than 64 bits cannot fit an integer")
)

// Bit is a single binary measurement outcome. Valid values are 0 and 1.
type Bit uint8

// Parse converts a string of '0' and '1' runes into a bit sequence.
func Parse(s string) ([]Bit, error) {
	out := make([]Bit, 0, len(s))
	for i, r := range s {
		switch r {
		case '0':
			out = append(out, 0)
		case '1':
			out = append(out, 1)
		default:
			return nil, fmt.Errorf("%w: %q at offset %d", ErrInvalidBit, r, i)
		}
	}
	return out, nil
}

// MustParse is like Parse but panics on invalid input. Intended for tests and constants.
func MustParse(s string) []Bit {
	b, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return b
}

// String renders a bit sequence as a string of '0' and '1'.
func String(seq []Bit) string {
	var sb strings.Builder
	sb.Grow(len(seq))
	for _, b := range seq {
		if b == 0 {
			sb.WriteByte('0')
		} else {
			sb.WriteByte('1')
		}
	}
	return sb.String()
}

// FromBytes unpacks bytes into bits, most significant bit first.
// It is the inverse of Pack for byte-aligned targets.
func FromBytes(data []byte) []Bit {
	out := make([]Bit, 0, len(data)*8)
	for _, by := range data {
		for shift := 7; shift >= 0; shift-- {
			out = append(out, Bit((by>>uint(shift))&1))
		}
	}
	return out
}

// Uint64 interprets up to 64 bits as a big-endian unsigned integer.
func Uint64(seq []Bit) (uint64, error) {
	if len(seq) > 64 {
		return 0, ErrTooManyBits
	}
	var v uint64
	for _, b := range seq {
		v = v<<1 | uint64(b&1)
	}
	return v, nil
}

// ReverseOrder returns a reversed copy of seq.
// Measurement registers report qubit 0 as the rightmost bit; reversing yields natural order.
func ReverseOrder(seq []Bit) []Bit {
	out := make([]Bit, len(seq))
	for i, b := range seq {
		out[len(seq)-1-i] = b
	}
	return out
}

// Ones counts the 1 bits in seq (its Hamming weight).
func Ones(seq []Bit) int {
	n := 0
	for _, b := range seq {
		if b != 0 {
			n++
		}
	}
	return n
}

// Zeros counts the 0 bits in seq.
func Zeros(seq []Bit) int { return len(seq) - Ones(seq) }
