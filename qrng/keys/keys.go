package keys

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/TheusHen/qrng/qrng/bits"
)

var ErrUnsupportedKeySize = errors.New("keys: unsupported key size")

// Supported key sizes in bits.
var Sizes = []int{128, 192, 256}

// UnsupportedKeySizeError reports a key size outside Sizes.
type UnsupportedKeySizeError struct {
	Bits int
}

func (e *UnsupportedKeySizeError) Error() string {
	return fmt.Sprintf("keys: unsupported key size %d (want 128, 192 or 256)", e.Bits)
}

func (e *UnsupportedKeySizeError) Unwrap() error { return ErrUnsupportedKeySize }

// Key is symmetric key material. Its length is the key size in bytes.
type Key []byte

// Hex returns the lowercase hex encoding of k.
func (k Key) Hex() string { return hex.EncodeToString(k) }

// Bits returns the key size in bits.
func (k Key) Bits() int { return len(k) * 8 }

// ValidateSize checks keySizeBits before any entropy is spent on it.
func ValidateSize(keySizeBits int) error {
	for _, s := range Sizes {
		if s == keySizeBits {
			return nil
		}
	}
	return &UnsupportedKeySizeError{Bits: keySizeBits}
}

// Derive packs the first keySizeBits bits of seq into a key.
//
// Bits beyond the key size are ignored. A short input fails with the
// *bits.InsufficientBitsError from the packer; no partial key is returned.
func Derive(seq []bits.Bit, keySizeBits int) (Key, error) {
	if err := ValidateSize(keySizeBits); err != nil {
		return nil, err
	}
	b, err := bits.Pack(seq, keySizeBits)
	if err != nil {
		return nil, err
	}
	return Key(b), nil
}
