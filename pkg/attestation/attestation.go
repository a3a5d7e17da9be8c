package attestation

import (
	"bytes"
	"fmt"
	"io"

	"github.com/korthochain/korthoattest/pkg/boneh"
	cbg "github.com/whyrusleeping/cbor-gen"
)

// Attestation is an attestation for a public key of a value consisting of multiple
// bit pairs. The order of BitPairs is the order of the bit pairs in the value.
type Attestation struct {
	PublicKey *boneh.PublicKey
	BitPairs  []*BitPairAttestation
}

// New
func New(pk *boneh.PublicKey, bitPairs []*BitPairAttestation) *Attestation {
	return &Attestation{PublicKey: pk, BitPairs: bitPairs}
}

// Serialize writes the public key followed by every bit pair. There is no count or
// length field: a decoder recovers the boundaries by re-serializing what it read.
func (a *Attestation) Serialize() ([]byte, error) {
	if a.PublicKey == nil {
		return nil, fmt.Errorf("%w: missing public key", ErrMalformedAttestation)
	}

	buf := bytes.NewBuffer(nil)

	pk, err := a.PublicKey.Serialize()
	if err != nil {
		return nil, err
	}
	buf.Write(pk)

	for i, bp := range a.BitPairs {
		data, err := bp.Serialize()
		if err != nil {
			return nil, fmt.Errorf("bit pair %d: %w", i, err)
		}
		buf.Write(data)
	}

	return buf.Bytes(), nil
}

// Deserialize decodes an attestation. The public key length, and then each bit
// pair length, is measured by re-serializing the decoded value, so the consumed
// bytes must be the canonical encoding of what was decoded.
func Deserialize(data []byte) (*Attestation, error) {
	key, _, err := boneh.DecodeKey(data, true)
	if err != nil {
		return nil, err
	}
	pk := key.Public()

	rest, err := skipCanonical(data, pk)
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}

	bitPairs := make([]*BitPairAttestation, 0)
	for len(rest) > 0 {
		bp, _, err := DecodeBitPair(rest, pk.P)
		if err != nil {
			return nil, fmt.Errorf("bit pair %d: %w", len(bitPairs), err)
		}

		rest, err = skipCanonical(rest, bp)
		if err != nil {
			return nil, fmt.Errorf("bit pair %d: %w", len(bitPairs), err)
		}
		bitPairs = append(bitPairs, bp)
	}

	return &Attestation{PublicKey: pk, BitPairs: bitPairs}, nil
}

type serializer interface {
	Serialize() ([]byte, error)
}

// skipCanonical drops the serialization of v from the front of data.
func skipCanonical(data []byte, v serializer) ([]byte, error) {
	enc, err := v.Serialize()
	if err != nil {
		return nil, err
	}

	if !bytes.HasPrefix(data, enc) {
		return nil, ErrNonCanonical
	}
	return data[len(enc):], nil
}

// Equal compares the key and every bit pair in order.
func (a *Attestation) Equal(o *Attestation) bool {
	if a == nil || o == nil {
		return a == o
	}
	if !a.PublicKey.Equal(o.PublicKey) || len(a.BitPairs) != len(o.BitPairs) {
		return false
	}
	for i := range a.BitPairs {
		if !a.BitPairs[i].Equal(o.BitPairs[i]) {
			return false
		}
	}
	return true
}

// ID returns the identifier of the serialized attestation.
func (a *Attestation) ID() (ID, error) {
	data, err := a.Serialize()
	if err != nil {
		return ID{}, err
	}
	return NewID(data), nil
}

// MarshalCBOR writes the serialized attestation as a cbor byte string.
func (a *Attestation) MarshalCBOR(w io.Writer) error {
	if a == nil {
		_, err := w.Write(cbg.CborNull)
		return err
	}

	data, err := a.Serialize()
	if err != nil {
		return err
	}

	if err := cbg.WriteMajorTypeHeader(w, cbg.MajByteString, uint64(len(data))); err != nil {
		return err
	}

	_, err = w.Write(data)
	return err
}

func (a *Attestation) UnmarshalCBOR(r io.Reader) error {
	br := cbg.GetPeeker(r)

	maj, extra, err := cbg.CborReadHeader(br)
	if err != nil {
		return err
	}

	if maj != cbg.MajByteString {
		return fmt.Errorf("cbor type for attestation unmarshal was not byte string")
	}

	if extra > cbg.ByteArrayMaxLen {
		return fmt.Errorf("attestation: byte array too large (%d)", extra)
	}

	buf := make([]byte, extra)
	if _, err := io.ReadFull(br, buf); err != nil {
		return err
	}

	maybe, err := Deserialize(buf)
	if err != nil {
		return err
	}

	*a = *maybe
	return nil
}
