package p2p

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/korthochain/korthoattest/pkg/crypto"
	"github.com/korthochain/korthoattest/pkg/crypto/sigs"
	_ "github.com/korthochain/korthoattest/pkg/crypto/sigs/ed25519"
	"golang.org/x/crypto/sha3"
)

type messageType = uint8

const (
	// AttestationMessageType carries a serialized attestation.
	AttestationMessageType messageType = iota
	// StoreValueMessageType carries a DHT key/value pair.
	StoreValueMessageType
	pullPushMessageType
)

type message struct {
	LTime     LamportTime
	Type      messageType
	From      string
	Payload   []byte
	Key       []byte
	Signature []byte
}

type pullPushMessage struct {
	LTime LamportTime
}

type storeValueMessage struct {
	Key   []byte
	Value []byte
}

type receivedMessage struct {
	LTime LamportTime
	IDs   [][]byte
}

func (m *message) id() []byte {
	hash := sha3.New256()
	hash.Write([]byte{m.Type})
	hash.Write(m.Payload)
	return hash.Sum(nil)
}

// signingBytes is the encoding of m without its signature.
func (m *message) signingBytes() ([]byte, error) {
	unsigned := *m
	unsigned.Signature = nil
	return cbor.Marshal(&unsigned)
}

func (m *message) sign(priv []byte) error {
	data, err := m.signingBytes()
	if err != nil {
		return err
	}
	sig, err := sigs.Sign(crypto.TypeED25519, priv, data)
	if err != nil {
		return err
	}
	m.Signature = sig.Data
	return nil
}

func (m *message) verify() error {
	data, err := m.signingBytes()
	if err != nil {
		return err
	}
	return sigs.Verify(&crypto.Signature{SigType: crypto.TypeED25519, Data: m.Signature}, m.Key, data)
}

func encodeMessage(msgType messageType, msg interface{}) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	buf.WriteByte(byte(msgType))

	encoder := cbor.NewEncoder(buf)
	err := encoder.Encode(msg)
	return buf.Bytes(), err
}

func decodeMessage(buf []byte, out interface{}) error {
	return cbor.NewDecoder(bytes.NewReader(buf)).Decode(out)
}

// splitMessage returns the type byte and the encoded body of buf.
func splitMessage(buf []byte) (messageType, []byte, error) {
	if len(buf) < 2 {
		return 0, nil, fmt.Errorf("message too short: %d bytes", len(buf))
	}
	return messageType(buf[0]), buf[1:], nil
}
