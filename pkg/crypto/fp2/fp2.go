// Package fp2 implements the quadratic extension field used by the attestation
// cryptosystem. An element is a + b*x in Z_p[x]/(x^2 + x + 1).
package fp2

import (
	"fmt"
	"math/big"
)

// Value is an element of the extension field. P is carried in memory only, it is
// never part of a serialized form.
type Value struct {
	P *big.Int
	A *big.Int
	B *big.Int
}

// New returns the element a + b*x modulo p. The components are copied as given and
// are not reduced, so a value serializes exactly the way it was constructed.
func New(p, a, b *big.Int) *Value {
	return &Value{
		P: new(big.Int).Set(p),
		A: new(big.Int).Set(a),
		B: new(big.Int).Set(b),
	}
}

// NewInt64 is New for small components.
func NewInt64(p, a, b int64) *Value {
	return New(big.NewInt(p), big.NewInt(a), big.NewInt(b))
}

// Add returns v + o.
func (v *Value) Add(o *Value) *Value {
	a := new(big.Int).Add(v.A, o.A)
	b := new(big.Int).Add(v.B, o.B)
	return v.reduced(a, b)
}

// Mul returns v * o using x^2 = -x - 1.
func (v *Value) Mul(o *Value) *Value {
	ac := new(big.Int).Mul(v.A, o.A)
	bd := new(big.Int).Mul(v.B, o.B)
	ad := new(big.Int).Mul(v.A, o.B)
	bc := new(big.Int).Mul(v.B, o.A)

	a := new(big.Int).Sub(ac, bd)
	b := new(big.Int).Add(ad, bc)
	b.Sub(b, bd)
	return v.reduced(a, b)
}

// Equal reports whether both values denote the same element under v's modulus.
func (v *Value) Equal(o *Value) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.P.Cmp(o.P) != 0 {
		return false
	}
	return v.mod(v.A).Cmp(v.mod(o.A)) == 0 && v.mod(v.B).Cmp(v.mod(o.B)) == 0
}

// Identical reports whether both values carry the same modulus and the same
// unreduced components, so they serialize to the same bytes.
func (v *Value) Identical(o *Value) bool {
	if v == nil || o == nil {
		return v == o
	}
	return v.P.Cmp(o.P) == 0 && v.A.Cmp(o.A) == 0 && v.B.Cmp(o.B) == 0
}

func (v *Value) String() string {
	return fmt.Sprintf("%s+%sx (mod %s)", v.A, v.B, v.P)
}

func (v *Value) reduced(a, b *big.Int) *Value {
	return &Value{P: new(big.Int).Set(v.P), A: v.mod(a), B: v.mod(b)}
}

func (v *Value) mod(n *big.Int) *big.Int {
	if v.P.Sign() <= 0 {
		return new(big.Int).Set(n)
	}
	return new(big.Int).Mod(n, v.P)
}
