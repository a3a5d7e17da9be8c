// Package dht discovers introduction points for hidden services through a DHT
// community.
package dht

import (
	"context"
	"encoding/hex"

	"github.com/korthochain/korthoattest/pkg/logger"
	"go.uber.org/zap"
)

// Community is the DHT the provider stores values in and looks them up from.
type Community interface {
	StoreValue(ctx context.Context, key, value []byte) error
	FindValues(ctx context.Context, key []byte) ([][]byte, error)
	ConnectPeer(ctx context.Context, mid []byte) (*Peer, error)
}

// Provider wraps a Community to announce and look up introduction points.
type Provider struct {
	community Community
	port      int
	logger    *zap.Logger
}

func NewProvider(community Community, port int) *Provider {
	return &Provider{
		community: community,
		port:      port,
		logger:    logger.Logger.Named("dht"),
	}
}

// PeerLookup resolves a peer by its member id.
func (p *Provider) PeerLookup(ctx context.Context, mid []byte) (*Peer, error) {
	return p.community.ConnectPeer(ctx, mid)
}

// Lookup returns the introduction points stored under infoHash. Values that cannot
// be decoded are skipped.
func (p *Provider) Lookup(ctx context.Context, infoHash []byte) ([]*IntroductionPoint, error) {
	values, err := p.community.FindValues(ctx, infoHash)
	if err != nil {
		p.logger.Info("failed to look up in the DHT community", zap.String("infohash", hex.EncodeToString(infoHash)), zap.Error(err))
		return nil, err
	}

	results := make([]*IntroductionPoint, 0, len(values))
	for _, value := range values {
		ip, err := DecodeValue(value)
		if err != nil {
			p.logger.Debug("skipping introduction point", zap.Error(err))
			continue
		}
		results = append(results, ip)
	}

	p.logger.Info("looked up in the DHT community",
		zap.String("infohash", hex.EncodeToString(infoHash)), zap.Int("results", len(results)))
	return results, nil
}

// Announce stores ip under infoHash. An address without a port is announced with
// the provider's port.
func (p *Provider) Announce(ctx context.Context, infoHash []byte, ip *IntroductionPoint) error {
	if ip.Peer.Address != nil && ip.Peer.Address.Port == 0 {
		withPort := *ip
		addr := *ip.Peer.Address
		addr.Port = p.port
		withPort.Peer.Address = &addr
		ip = &withPort
	}

	value, err := EncodeValue(ip)
	if err != nil {
		return err
	}

	if err := p.community.StoreValue(ctx, infoHash, value); err != nil {
		p.logger.Info("failed to announce to the DHT community", zap.String("infohash", hex.EncodeToString(infoHash)), zap.Error(err))
		return err
	}

	p.logger.Info("announced to the DHT community", zap.String("infohash", hex.EncodeToString(infoHash)))
	return nil
}
