package dht

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
)

// KeyPrefix tags serialized libnacl public keys. It is stripped before a key is
// stored in the DHT to stay under the value size limit.
const KeyPrefix = "LibNaCLPK:"

// SourceDHT marks introduction points learned from a DHT lookup.
const SourceDHT = "dht"

const fixedValueSize = 4 + 2 + 4 + 2

var ErrMalformedValue = errors.New("malformed introduction point value")

// Peer
type Peer struct {
	PublicKey []byte
	Address   *net.UDPAddr
}

// IntroductionPoint is a peer that introduces clients to a hidden seeder.
type IntroductionPoint struct {
	Peer     Peer
	SeederPK []byte
	Source   string
	LastSeen uint32
}

// EncodeValue serializes ip as
// IPv4 | port | last_seen | len | intro key | len | seeder key, big-endian.
func EncodeValue(ip *IntroductionPoint) ([]byte, error) {
	if ip.Peer.Address == nil {
		return nil, fmt.Errorf("introduction point has no address")
	}
	v4 := ip.Peer.Address.IP.To4()
	if v4 == nil {
		return nil, fmt.Errorf("introduction point address %s is not IPv4", ip.Peer.Address.IP)
	}

	introPK := bytes.TrimPrefix(ip.Peer.PublicKey, []byte(KeyPrefix))
	seederPK := bytes.TrimPrefix(ip.SeederPK, []byte(KeyPrefix))
	if len(introPK) > 0xffff || len(seederPK) > 0xffff {
		return nil, fmt.Errorf("public key too long")
	}

	buf := bytes.NewBuffer(make([]byte, 0, fixedValueSize+2+len(introPK)+len(seederPK)))
	buf.Write(v4)
	binary.Write(buf, binary.BigEndian, uint16(ip.Peer.Address.Port))
	binary.Write(buf, binary.BigEndian, ip.LastSeen)
	binary.Write(buf, binary.BigEndian, uint16(len(introPK)))
	buf.Write(introPK)
	binary.Write(buf, binary.BigEndian, uint16(len(seederPK)))
	buf.Write(seederPK)
	return buf.Bytes(), nil
}

// DecodeValue parses a value written by EncodeValue and restores the key prefixes.
func DecodeValue(value []byte) (*IntroductionPoint, error) {
	if len(value) < fixedValueSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedValue, len(value))
	}

	ip := net.IPv4(value[0], value[1], value[2], value[3])
	port := binary.BigEndian.Uint16(value[4:6])
	lastSeen := binary.BigEndian.Uint32(value[6:10])
	introLen := int(binary.BigEndian.Uint16(value[10:12]))

	rest := value[12:]
	if len(rest) < introLen+2 {
		return nil, fmt.Errorf("%w: intro key truncated", ErrMalformedValue)
	}
	introPK := rest[:introLen]
	rest = rest[introLen:]

	seederLen := int(binary.BigEndian.Uint16(rest[:2]))
	rest = rest[2:]
	if len(rest) < seederLen {
		return nil, fmt.Errorf("%w: seeder key truncated", ErrMalformedValue)
	}
	seederPK := rest[:seederLen]

	return &IntroductionPoint{
		Peer: Peer{
			PublicKey: withPrefix(introPK),
			Address:   &net.UDPAddr{IP: ip, Port: int(port)},
		},
		SeederPK: withPrefix(seederPK),
		Source:   SourceDHT,
		LastSeen: lastSeen,
	}, nil
}

func withPrefix(key []byte) []byte {
	out := make([]byte, 0, len(KeyPrefix)+len(key))
	out = append(out, KeyPrefix...)
	return append(out, key...)
}
