package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrInvalidSourceID = errors.New("identity: invalid source id")

// SourceID is the stable identifier of a trial source.
// It is defined as: SourceID = SHA-256(PublicKey).
type SourceID [32]byte

func SourceIDFromPublicKey(publicKey []byte) SourceID {
	return SourceID(sha256.Sum256(publicKey))
}

func ParseSourceIDHex(s string) (SourceID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return SourceID{}, errors.Join(ErrInvalidSourceID, err)
	}
	if len(b) != len(SourceID{}) {
		return SourceID{}, ErrInvalidSourceID
	}
	var id SourceID
	copy(id[:], b)
	return id, nil
}

func (id SourceID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether id is unset.
func (id SourceID) IsZero() bool { return id == SourceID{} }
