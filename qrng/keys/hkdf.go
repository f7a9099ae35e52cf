package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/TheusHen/qrng/qrng/bits"
)

// Info binds HKDF output to this use.
const Info = "qrng-aes-key-derivation"

// SaltSize is the size of the random salt generated by DeriveHKDF.
const SaltSize = 16

var ErrNoKeyingMaterial = errors.New("keys: at least 8 bits of keying material required")

// SaltReader is the source of generated salts.
var SaltReader io.Reader = rand.Reader

// Expand derives length bytes from secret using HKDF-SHA256.
// A nil salt uses the zero salt.
func Expand(secret, salt, info []byte, length int) ([]byte, error) {
	hk := hkdf.New(sha256.New, secret, salt, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(hk, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeriveHKDF derives a key of keySizeBits bits from the whole bytes of seq.
//
// When salt is nil a random SaltSize salt is generated. The salt is returned
// so the key can be derived again.
func DeriveHKDF(seq []bits.Bit, keySizeBits int, salt []byte) (Key, []byte, error) {
	if err := ValidateSize(keySizeBits); err != nil {
		return nil, nil, err
	}
	whole := len(seq) / 8 * 8
	if whole == 0 {
		return nil, nil, fmt.Errorf("%w: have %d", ErrNoKeyingMaterial, len(seq))
	}
	ikm, err := bits.Pack(seq, whole)
	if err != nil {
		return nil, nil, err
	}
	if salt == nil {
		salt = make([]byte, SaltSize)
		if _, err := io.ReadFull(SaltReader, salt); err != nil {
			return nil, nil, fmt.Errorf("keys: read salt: %w", err)
		}
	}
	k, err := Expand(ikm, salt, []byte(Info), keySizeBits/8)
	if err != nil {
		return nil, nil, err
	}
	return Key(k), salt, nil
}
