package boneh

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/korthochain/korthoattest/pkg/codec"
	"github.com/korthochain/korthoattest/pkg/crypto/fp2"
)

// DecodeKey reads the six public fields from the front of data and, unless
// forcePublic is set, a seventh field t1 when bytes remain. It returns the key with
// the unconsumed tail.
func DecodeKey(data []byte, forcePublic bool) (Key, []byte, error) {
	nums, rest, err := decodeFields(data, PublicKeyFields)
	if err != nil {
		return nil, nil, err
	}

	pk := &PublicKey{
		N: nums[0],
		P: nums[1],
		G: fp2.New(nums[1], nums[2], nums[3]),
		H: fp2.New(nums[1], nums[4], nums[5]),
	}

	if forcePublic || len(rest) == 0 {
		return pk, rest, nil
	}

	t1, rest, err := codec.Unframe(rest)
	if err != nil {
		return nil, nil, fmt.Errorf("decode t1: %w", err)
	}

	return &PrivateKey{PublicKey: *pk, T1: t1}, rest, nil
}

// DeserializeKey decodes a key and ignores any bytes after it.
func DeserializeKey(data []byte, forcePublic bool) (Key, error) {
	key, _, err := DecodeKey(data, forcePublic)
	return key, err
}

// DeserializePublicKey decodes only the public fields of data.
func DeserializePublicKey(data []byte) (*PublicKey, error) {
	key, _, err := DecodeKey(data, true)
	if err != nil {
		return nil, err
	}
	return key.(*PublicKey), nil
}

// DeserializePrivateKey requires all seven fields.
func DeserializePrivateKey(data []byte) (*PrivateKey, error) {
	key, _, err := DecodeKey(data, false)
	if err != nil {
		return nil, err
	}

	sk, ok := key.(*PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: missing t1", ErrMalformedKey)
	}
	return sk, nil
}

func decodeFields(data []byte, count int) ([]*big.Int, []byte, error) {
	nums, rest, err := codec.UnframeN(data, count)
	if errors.Is(err, codec.ErrMissingFields) {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("decode key: %w", err)
	}
	return nums, rest, nil
}
