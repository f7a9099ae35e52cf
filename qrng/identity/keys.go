package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

var (
	ErrInvalidKey = errors.New("identity: invalid Ed25519 key")
	ErrBadKeyFile = errors.New("identity: malformed key file")
)

// KeyPair is the Ed25519 identity of a remote trial source. It signs every
// batch the source serves and backs its TLS certificate.
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// FromPrivateKey rebuilds a KeyPair from its private key.
func FromPrivateKey(priv ed25519.PrivateKey) (KeyPair, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return KeyPair{}, fmt.Errorf("%w: private key is %d bytes", ErrInvalidKey, len(priv))
	}
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return KeyPair{}, ErrInvalidKey
	}
	return KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

func (kp KeyPair) SourceID() SourceID {
	return SourceIDFromPublicKey(kp.PublicKey)
}

func (kp KeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(kp.PrivateKey, message)
}

func Verify(publicKey ed25519.PublicKey, message, signature []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(publicKey, message, signature)
}

// MarshalPEM encodes the private key as a PKCS#8 PEM block.
func (kp KeyPair) MarshalPEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(kp.PrivateKey)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// ParsePEM decodes a key written by MarshalPEM.
func ParsePEM(data []byte) (KeyPair, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "PRIVATE KEY" {
		return KeyPair{}, ErrBadKeyFile
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: %w", ErrBadKeyFile, err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return KeyPair{}, fmt.Errorf("%w: not an Ed25519 key", ErrBadKeyFile)
	}
	return FromPrivateKey(priv)
}

// LoadOrGenerate reads the key at path, creating and saving a new one when
// the file does not exist. An empty path always generates a fresh key.
func LoadOrGenerate(path string) (KeyPair, error) {
	if path == "" {
		return GenerateKeyPair()
	}
	data, err := os.ReadFile(path)
	if err == nil {
		return ParsePEM(data)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return KeyPair{}, err
	}

	kp, err := GenerateKeyPair()
	if err != nil {
		return KeyPair{}, err
	}
	out, err := kp.MarshalPEM()
	if err != nil {
		return KeyPair{}, err
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return KeyPair{}, err
	}
	return kp, nil
}
