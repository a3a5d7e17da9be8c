// Package codec converts non-negative integers to and from the length-prefixed
// byte form used by keys and attestations.
package codec

import (
	"errors"
	"fmt"
	"math/big"
)

// MaxIntegerSize is the largest canonical encoding a one-byte length prefix can
// describe.
const MaxIntegerSize = 255

var (
	ErrTruncatedInput   = errors.New("truncated input")
	ErrCapacityExceeded = errors.New("integer exceeds framing capacity")
	ErrNegativeInteger  = errors.New("negative integer")
	ErrNilInteger       = errors.New("nil integer")
	ErrMissingFields    = errors.New("input exhausted before all fields were read")
)

// EncodeInteger returns the minimal big-endian encoding of n. Zero encodes as a
// single zero byte.
func EncodeInteger(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) == 0 {
		return []byte{0}
	}
	return b
}

// DecodeInteger interprets b as an unsigned big-endian integer. Leading zero bytes
// are accepted.
func DecodeInteger(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// Frame prefixes the canonical encoding of n with its length.
func Frame(n *big.Int) ([]byte, error) {
	if n == nil {
		return nil, ErrNilInteger
	}
	if n.Sign() < 0 {
		return nil, ErrNegativeInteger
	}

	b := EncodeInteger(n)
	if len(b) > MaxIntegerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCapacityExceeded, len(b))
	}

	out := make([]byte, 0, len(b)+1)
	out = append(out, byte(len(b)))
	return append(out, b...), nil
}

// Unframe reads one framed integer from the front of data and returns it with the
// remaining bytes.
func Unframe(data []byte) (*big.Int, []byte, error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%w: missing length prefix", ErrTruncatedInput)
	}

	l := int(data[0])
	if len(data) < l+1 {
		return nil, nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedInput, l+1, len(data))
	}

	return DecodeInteger(data[1 : l+1]), data[l+1:], nil
}

// FrameAll concatenates the frames of nums in order.
func FrameAll(nums ...*big.Int) ([]byte, error) {
	var out []byte
	for i, n := range nums {
		b, err := Frame(n)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		out = append(out, b...)
	}
	return out, nil
}

// UnframeN reads exactly count framed integers from the front of data. It fails with
// ErrMissingFields when data ends on a frame boundary before count values were read.
func UnframeN(data []byte, count int) ([]*big.Int, []byte, error) {
	nums := make([]*big.Int, 0, count)
	rest := data
	for len(nums) < count {
		if len(rest) == 0 {
			return nil, nil, fmt.Errorf("%w: got %d of %d", ErrMissingFields, len(nums), count)
		}

		n, tail, err := Unframe(rest)
		if err != nil {
			return nil, nil, fmt.Errorf("field %d: %w", len(nums), err)
		}
		nums = append(nums, n)
		rest = tail
	}
	return nums, rest, nil
}
