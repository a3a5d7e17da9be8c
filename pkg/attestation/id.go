package attestation

import (
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

const IDSize = 32

// ID is the SHA3-256 digest of a serialized attestation.
type ID [IDSize]byte

// NewID hashes serialized attestation bytes.
func NewID(data []byte) ID {
	return ID(sha3.Sum256(data))
}

// ParseID decodes the base58 form returned by String.
func ParseID(s string) (ID, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return ID{}, fmt.Errorf("invalid attestation id: %w", err)
	}
	if len(b) != IDSize {
		return ID{}, fmt.Errorf("invalid attestation id length %d", len(b))
	}

	var id ID
	copy(id[:], b)
	return id, nil
}

func (id ID) String() string {
	return base58.Encode(id[:])
}

func (id ID) Bytes() []byte {
	return id[:]
}
