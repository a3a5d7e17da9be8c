package p2p

import (
	"github.com/hashicorp/memberlist"
	"github.com/korthochain/korthoattest/pkg/address"
	"go.uber.org/zap"
)

type eventDelegate struct {
	node *Node
}

// memberAddress renders the key a member advertises, or "" if it has none.
func memberAddress(meta []byte) string {
	addr, err := address.NewEd25519Addr(meta)
	if err != nil {
		return ""
	}
	return addr.String()
}

func (ed *eventDelegate) NotifyJoin(node *memberlist.Node) {
	ed.node.logger.Info("A node has joined", zap.String("node", node.String()), zap.String("ip", node.Address()),
		zap.String("address", memberAddress(node.Meta)))
}

func (ed *eventDelegate) NotifyLeave(node *memberlist.Node) {
	ed.node.logger.Info("A node has left", zap.String("node", node.String()), zap.String("ip", node.Address()),
		zap.String("address", memberAddress(node.Meta)))
}

func (ed *eventDelegate) NotifyUpdate(node *memberlist.Node) {
	ed.node.logger.Debug("A node was updated", zap.String("node", node.String()), zap.String("ip", node.Address()))
}
