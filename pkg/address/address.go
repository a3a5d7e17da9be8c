// Package address renders node public keys as printable addresses.
package address

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// Address is the ed25519 public key of a node.
type Address struct {
	string // string(public key)
}

// NetWork
type NetWork = byte

const (
	Mainnet NetWork = iota
	Testnet
)

const (
	ED25519PubKeySize = 32
)

const (
	AddressSize      = 47
	AddresPrefixSize = 3

	encodedSize = AddressSize - AddresPrefixSize
)

const (
	MainnetPrefix = "Kto"
	TestnetPrefix = "otK"
)

const (
	UndefAddressString = ""
)

var Undef = Address{}
var CurrentNetWork = Testnet

var prefixSet = map[byte]string{
	Mainnet: MainnetPrefix,
	Testnet: TestnetPrefix,
}

func (a Address) String() string {
	str, err := encode(CurrentNetWork, a)
	if err != nil {
		panic(err)
	}

	return str
}

func (a Address) Bytes() []byte {
	return []byte(a.string)
}

func NewEd25519Addr(pubkey []byte) (Address, error) {
	if len(pubkey) != ED25519PubKeySize {
		return Undef, fmt.Errorf("invalid public key")
	}

	return Address{string(pubkey)}, nil
}

func NewAddrFromString(str string) (Address, error) {
	return decode(str)
}

// encode writes the key as fixed width base58, left padded with the zero digit.
func encode(network NetWork, addr Address) (string, error) {
	if addr == Undef {
		return UndefAddressString, nil
	}

	prefix, ok := prefixSet[network]
	if !ok {
		return Undef.string, fmt.Errorf("unknown address network")
	}

	enc := base58.Encode([]byte(addr.string))
	return prefix + strings.Repeat("1", encodedSize-len(enc)) + enc, nil
}

func decode(str string) (Address, error) {
	if len(str) != AddressSize {
		return Undef, fmt.Errorf("invalid address string")
	}

	if str[:AddresPrefixSize] != prefixSet[CurrentNetWork] {
		return Undef, fmt.Errorf("unknow address network")
	}

	raw, err := base58.Decode(str[AddresPrefixSize:])
	if err != nil {
		return Undef, fmt.Errorf("invalid address string: %w", err)
	}

	if len(raw) > ED25519PubKeySize {
		extra := len(raw) - ED25519PubKeySize
		if !bytes.Equal(raw[:extra], make([]byte, extra)) {
			return Undef, fmt.Errorf("address overflows public key size")
		}
		raw = raw[extra:]
	}
	pub := make([]byte, ED25519PubKeySize)
	copy(pub[ED25519PubKeySize-len(raw):], raw)

	return Address{string(pub)}, nil
}
