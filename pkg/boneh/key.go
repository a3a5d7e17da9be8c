// Package boneh holds the key types of the pairing-free Boneh et al. cryptosystem
// and their wire encoding.
package boneh

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/korthochain/korthoattest/pkg/codec"
	"github.com/korthochain/korthoattest/pkg/crypto/fp2"
)

const (
	PublicKeyFields  = 6
	PrivateKeyFields = 7
)

var (
	ErrMalformedKey  = errors.New("malformed key")
	ErrIncompleteKey = errors.New("incomplete key")
)

// Key is implemented by *PublicKey and *PrivateKey.
type Key interface {
	Serialize() ([]byte, error)
	Public() *PublicKey
}

// PublicKey
type PublicKey struct {
	N *big.Int
	P *big.Int
	G *fp2.Value
	H *fp2.Value
}

// NewPublicKey builds a key whose generators share the modulus p.
func NewPublicKey(n, p *big.Int, g, h *fp2.Value) *PublicKey {
	return &PublicKey{N: n, P: p, G: g, H: h}
}

// Serialize frames n, p, g.a, g.b, h.a and h.b in that order.
func (pk *PublicKey) Serialize() ([]byte, error) {
	if pk == nil || pk.G == nil || pk.H == nil {
		return nil, ErrIncompleteKey
	}

	data, err := codec.FrameAll(pk.N, pk.P, pk.G.A, pk.G.B, pk.H.A, pk.H.B)
	if err != nil {
		return nil, fmt.Errorf("serialize public key: %w", err)
	}
	return data, nil
}

// Public returns pk itself.
func (pk *PublicKey) Public() *PublicKey {
	return pk
}

// Equal compares every field of both keys. Generators are compared as encoded,
// not modulo p.
func (pk *PublicKey) Equal(o *PublicKey) bool {
	if pk == nil || o == nil {
		return pk == o
	}
	return pk.N.Cmp(o.N) == 0 && pk.P.Cmp(o.P) == 0 && pk.G.Identical(o.G) && pk.H.Identical(o.H)
}

// PrivateKey is a public key plus the secret exponent t1.
type PrivateKey struct {
	PublicKey
	T1 *big.Int
}

// NewPrivateKey
func NewPrivateKey(n, p *big.Int, g, h *fp2.Value, t1 *big.Int) *PrivateKey {
	return &PrivateKey{PublicKey: PublicKey{N: n, P: p, G: g, H: h}, T1: t1}
}

// Serialize writes the public fields followed by t1.
func (sk *PrivateKey) Serialize() ([]byte, error) {
	if sk == nil {
		return nil, ErrIncompleteKey
	}

	data, err := sk.PublicKey.Serialize()
	if err != nil {
		return nil, err
	}

	t1, err := codec.Frame(sk.T1)
	if err != nil {
		return nil, fmt.Errorf("serialize private key: %w", err)
	}
	return append(data, t1...), nil
}

// Public returns a copy of the public half, without t1.
func (sk *PrivateKey) Public() *PublicKey {
	return &PublicKey{N: sk.N, P: sk.P, G: sk.G, H: sk.H}
}

// Equal compares every field including t1.
func (sk *PrivateKey) Equal(o *PrivateKey) bool {
	if sk == nil || o == nil {
		return sk == o
	}
	return sk.PublicKey.Equal(&o.PublicKey) && sk.T1.Cmp(o.T1) == 0
}
