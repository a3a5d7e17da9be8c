package wallet

import (
	"bytes"
	"fmt"
	"io"

	"github.com/korthochain/korthoattest/pkg/attestation"
	cbg "github.com/whyrusleeping/cbor-gen"
)

const recordVersion = 1

// record is the stored form of an attestation.
type record struct {
	Version     uint64
	Received    uint64 // unix seconds
	Attestation *attestation.Attestation
}

func (r *record) MarshalCBOR(w io.Writer) error {
	if r == nil {
		_, err := w.Write(cbg.CborNull)
		return err
	}

	if _, err := w.Write([]byte{131}); err != nil {
		return err
	}

	scratch := make([]byte, 9)

	// Version
	if err := cbg.WriteMajorTypeHeaderBuf(scratch, w, cbg.MajUnsignedInt, r.Version); err != nil {
		return err
	}

	// Received
	if err := cbg.WriteMajorTypeHeaderBuf(scratch, w, cbg.MajUnsignedInt, r.Received); err != nil {
		return err
	}

	// Attestation
	return r.Attestation.MarshalCBOR(w)
}

func (r *record) UnmarshalCBOR(rd io.Reader) error {
	br := cbg.GetPeeker(rd)
	scratch := make([]byte, 8)

	maj, extra, err := cbg.CborReadHeaderBuf(br, scratch)
	if err != nil {
		return err
	}

	if maj != cbg.MajArray {
		return fmt.Errorf("cbor input should be of type array")
	}

	if extra != 3 {
		return fmt.Errorf("cbor input had wrong number of fields")
	}

	// Version
	{
		maj, extra, err = cbg.CborReadHeaderBuf(br, scratch)
		if err != nil {
			return err
		}

		if maj != cbg.MajUnsignedInt {
			return fmt.Errorf("wrong type for uint64 field Version")
		}

		if extra != recordVersion {
			return fmt.Errorf("unsupported record version %d", extra)
		}
		r.Version = extra
	}

	// Received
	{
		maj, extra, err = cbg.CborReadHeaderBuf(br, scratch)
		if err != nil {
			return err
		}

		if maj != cbg.MajUnsignedInt {
			return fmt.Errorf("wrong type for uint64 field Received")
		}
		r.Received = extra
	}

	r.Attestation = &attestation.Attestation{}
	return r.Attestation.UnmarshalCBOR(br)
}

func (r *record) Serialize() ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := r.MarshalCBOR(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deserializeRecord(data []byte) (*record, error) {
	r := &record{}
	if err := r.UnmarshalCBOR(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return r, nil
}
