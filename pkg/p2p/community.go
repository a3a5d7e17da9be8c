package p2p

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"net"

	"github.com/fxamacker/cbor/v2"
	"github.com/korthochain/korthoattest/pkg/dht"
	"github.com/korthochain/korthoattest/pkg/storage/store"
	"golang.org/x/crypto/sha3"
)

const memberIDSize = 20

// ValuePrefix prefix of stored DHT values
var ValuePrefix = []byte("dht/")

var _ dht.Community = &Node{}

// MemberID is the id a node with the raw ed25519 publicKey is looked up by.
func MemberID(publicKey []byte) []byte {
	sum := sha3.Sum256(publicKey)
	return sum[:memberIDSize]
}

func valueKey(key, value []byte) []byte {
	sum := sha3.Sum256(value)
	return []byte(fmt.Sprintf("%s%s/%s", ValuePrefix, hex.EncodeToString(key), hex.EncodeToString(sum[:])))
}

func keyPrefix(key []byte) []byte {
	return []byte(fmt.Sprintf("%s%s/", ValuePrefix, hex.EncodeToString(key)))
}

func (n *Node) putValue(key, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("empty key")
	}
	return n.db.Set(valueKey(key, value), value)
}

// StoreValue stores value under key and gossips it to the cluster.
func (n *Node) StoreValue(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(key) == 0 {
		return fmt.Errorf("empty key")
	}

	payload, err := cbor.Marshal(&storeValueMessage{Key: key, Value: value})
	if err != nil {
		return err
	}
	return n.SendMessage(StoreValueMessageType, payload)
}

// FindValues returns the values stored under key that this node has seen.
func (n *Node) FindValues(ctx context.Context, key []byte) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return store.Values(n.db, keyPrefix(key))
}

// ConnectPeer returns the member whose public key hashes to mid.
func (n *Node) ConnectPeer(ctx context.Context, mid []byte) (*dht.Peer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n.memberlist == nil {
		return nil, errNotStarted
	}

	for _, m := range n.memberlist.Members() {
		if len(m.Meta) == 0 || !bytes.Equal(MemberID(m.Meta), mid) {
			continue
		}
		return &dht.Peer{
			PublicKey: append([]byte(dht.KeyPrefix), m.Meta...),
			Address:   &net.UDPAddr{IP: m.Addr, Port: int(m.Port)},
		}, nil
	}
	return nil, fmt.Errorf("peer %s: %w", hex.EncodeToString(mid), store.NotExist)
}
