package main

import (
	"context"
	"time"

	"github.com/korthochain/korthoattest/pkg/attestation"
	"github.com/korthochain/korthoattest/pkg/crypto"
	"github.com/korthochain/korthoattest/pkg/crypto/sigs"
	_ "github.com/korthochain/korthoattest/pkg/crypto/sigs/ed25519"
	"github.com/korthochain/korthoattest/pkg/dht"
	"github.com/korthochain/korthoattest/pkg/logger"
	"github.com/korthochain/korthoattest/pkg/p2p"
	"github.com/korthochain/korthoattest/pkg/storage/store"
	"go.uber.org/zap"
)

var nodeKeyKey = []byte("node/privatekey")

// loadNodeKey returns the ed25519 private key this node signs gossip with,
// creating it on first start.
func loadNodeKey(db store.DB) ([]byte, error) {
	key, err := db.Get(nodeKeyKey)
	if err == nil {
		return key, nil
	}
	if err != store.NotExist {
		return nil, err
	}

	key, err = sigs.Generate(crypto.TypeED25519)
	if err != nil {
		return nil, err
	}
	if err := db.Set(nodeKeyKey, key); err != nil {
		return nil, err
	}
	return key, nil
}

// announcer gossips accepted attestations and announces this node as a peer
// holding them.
type announcer struct {
	node     *p2p.Node
	provider *dht.Provider
	self     dht.Peer
	now      func() time.Time
}

func (a *announcer) PublishAttestation(att *attestation.Attestation) error {
	if err := a.node.PublishAttestation(att); err != nil {
		return err
	}

	id, err := att.ID()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ip := &dht.IntroductionPoint{
		Peer:     a.self,
		SeederPK: a.self.PublicKey,
		Source:   dht.SourceDHT,
		LastSeen: uint32(a.now().Unix()),
	}
	if err := a.provider.Announce(ctx, id.Bytes(), ip); err != nil {
		logger.Warn("failed to announce attestation", zap.String("id", id.String()), zap.Error(err))
		return err
	}
	return nil
}
