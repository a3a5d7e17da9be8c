// Package attestation encodes the attestation of an integer value as a public key
// followed by one BitPairAttestation per 2-bit chunk of the value.
package attestation

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/korthochain/korthoattest/pkg/codec"
	"github.com/korthochain/korthoattest/pkg/crypto/fp2"
)

const BitPairFields = 6

var (
	ErrMalformedAttestation = errors.New("malformed attestation")
	ErrNonCanonical         = errors.New("non-canonical encoding")
)

// BitPairAttestation attests a single bit pair of a larger Attestation. All three
// elements share the modulus of the enclosing public key.
type BitPairAttestation struct {
	A          *fp2.Value
	B          *fp2.Value
	Complement *fp2.Value
}

// NewBitPair
func NewBitPair(a, b, complement *fp2.Value) *BitPairAttestation {
	return &BitPairAttestation{A: a, B: b, Complement: complement}
}

// Compress multiplies the three elements into the value used for homomorphic
// aggregation.
func (bp *BitPairAttestation) Compress() *fp2.Value {
	return bp.A.Mul(bp.B).Mul(bp.Complement)
}

// Serialize frames a.a, a.b, b.a, b.b, complement.a and complement.b.
func (bp *BitPairAttestation) Serialize() ([]byte, error) {
	if bp == nil || bp.A == nil || bp.B == nil || bp.Complement == nil {
		return nil, fmt.Errorf("%w: missing bit pair element", ErrMalformedAttestation)
	}

	data, err := codec.FrameAll(bp.A.A, bp.A.B, bp.B.A, bp.B.B, bp.Complement.A, bp.Complement.B)
	if err != nil {
		return nil, fmt.Errorf("serialize bit pair: %w", err)
	}
	return data, nil
}

// Equal compares the elements component by component, without reducing.
func (bp *BitPairAttestation) Equal(o *BitPairAttestation) bool {
	if bp == nil || o == nil {
		return bp == o
	}
	return bp.A.Identical(o.A) && bp.B.Identical(o.B) && bp.Complement.Identical(o.Complement)
}

// DecodeBitPair reads six framed integers from the front of data and builds the
// elements under modulus. It returns the bit pair with the remaining bytes.
func DecodeBitPair(data []byte, modulus *big.Int) (*BitPairAttestation, []byte, error) {
	nums, rest, err := codec.UnframeN(data, BitPairFields)
	if errors.Is(err, codec.ErrMissingFields) {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedAttestation, err)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("decode bit pair: %w", err)
	}

	return &BitPairAttestation{
		A:          fp2.New(modulus, nums[0], nums[1]),
		B:          fp2.New(modulus, nums[2], nums[3]),
		Complement: fp2.New(modulus, nums[4], nums[5]),
	}, rest, nil
}

// DeserializeBitPair decodes a bit pair and ignores any bytes after it.
func DeserializeBitPair(data []byte, modulus *big.Int) (*BitPairAttestation, error) {
	bp, _, err := DecodeBitPair(data, modulus)
	return bp, err
}
