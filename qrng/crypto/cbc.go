package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// BlockSize is the AES block size and IV length in bytes.
const BlockSize = aes.BlockSize

var (
	ErrInvalidKeySize    = errors.New("crypto: key must be 16, 24 or 32 bytes")
	ErrInvalidIV         = errors.New("crypto: iv must be 16 bytes")
	ErrCiphertextLength  = errors.New("crypto: ciphertext is not a positive multiple of the block size")
	ErrPadding           = errors.New("crypto: invalid padding")
	ErrInvalidHexPayload = errors.New("crypto: invalid hex payload")
)

// Reader is the source of IVs. It is never fed from the extracted bit stream.
var Reader io.Reader = rand.Reader

// Sealed is the output of Encrypt.
type Sealed struct {
	IV         []byte
	Ciphertext []byte
}

// Hex returns the IV and ciphertext hex encoded.
func (s Sealed) Hex() (iv, ciphertext string) {
	return hex.EncodeToString(s.IV), hex.EncodeToString(s.Ciphertext)
}

func newBlock(key []byte) (cipher.Block, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeySize, len(key))
	}
	return aes.NewCipher(key)
}

// Encrypt pads plaintext with PKCS#7 and encrypts it with AES-CBC under a
// fresh random IV. Any plaintext length, including zero, is accepted.
//
// CBC provides confidentiality only. Ciphertexts are not authenticated.
func Encrypt(key, plaintext []byte) (Sealed, error) {
	block, err := newBlock(key)
	if err != nil {
		return Sealed{}, err
	}
	iv := make([]byte, BlockSize)
	if _, err := io.ReadFull(Reader, iv); err != nil {
		return Sealed{}, fmt.Errorf("crypto: read iv: %w", err)
	}
	buf := pad(plaintext)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf, buf)
	return Sealed{IV: iv, Ciphertext: buf}, nil
}

// Decrypt reverses Encrypt. Structurally invalid padding fails with
// ErrPadding; with a wrong key this is likely but not guaranteed.
func Decrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != BlockSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidIV, len(iv))
	}
	if len(ciphertext) == 0 || len(ciphertext)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCiphertextLength, len(ciphertext))
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return unpad(out)
}

// DecryptHex decrypts hex encoded IV and ciphertext.
func DecryptHex(key []byte, ivHex, ciphertextHex string) ([]byte, error) {
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return nil, fmt.Errorf("%w: iv: %w", ErrInvalidHexPayload, err)
	}
	ct, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext: %w", ErrInvalidHexPayload, err)
	}
	return Decrypt(key, iv, ct)
}

func pad(data []byte) []byte {
	n := BlockSize - len(data)%BlockSize
	out := make([]byte, len(data)+n)
	copy(out, data)
	copy(out[len(data):], bytes.Repeat([]byte{byte(n)}, n))
	return out
}

func unpad(data []byte) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > BlockSize || n > len(data) {
		return nil, ErrPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrPadding
		}
	}
	return data[:len(data)-n], nil
}
