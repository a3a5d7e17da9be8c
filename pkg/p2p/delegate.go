package p2p

import (
	"github.com/hashicorp/memberlist"
	"go.uber.org/zap"
)

type delegate struct {
	node *Node
}

var _ memberlist.Delegate = &delegate{}

func (d *delegate) NodeMeta(limit int) []byte {
	if len(d.node.publicKey) > limit {
		d.node.logger.Warn("public key does not fit in node meta", zap.Int("limit", limit))
		return []byte{}
	}
	return d.node.publicKey
}

func (d *delegate) NotifyMsg(buf []byte) {
	msgType, body, err := splitMessage(buf)
	if err != nil {
		d.node.logger.Debug("dropping message", zap.Error(err))
		return
	}

	switch msgType {
	case AttestationMessageType, StoreValueMessageType:
	default:
		d.node.logger.Debug("unknown message type", zap.Uint8("type", msgType))
		return
	}

	msg := &message{}
	if err := decodeMessage(body, msg); err != nil {
		d.node.logger.Debug("failed to decode message", zap.Error(err))
		return
	}
	if msg.Type != msgType {
		d.node.logger.Debug("message type mismatch", zap.Uint8("header", msgType), zap.Uint8("body", msg.Type))
		return
	}

	if err := msg.verify(); err != nil {
		d.node.logger.Debug("dropping unsigned message", zap.String("from", msg.From), zap.Error(err))
		return
	}

	if !d.node.limiter.allow(string(msg.Key)) {
		d.node.logger.Debug("rate limited", zap.String("from", msg.From))
		return
	}

	if d.node.handleMessage(msg) {
		// memberlist reuses buf
		data := make([]byte, len(buf))
		copy(data, buf)
		d.node.broadcasts.QueueBroadcast(&broadcast{msg: data})
	}
}

func (d *delegate) GetBroadcasts(overhead, limit int) [][]byte {
	return d.node.broadcasts.GetBroadcasts(overhead, limit)
}

func (d *delegate) LocalState(join bool) []byte {
	ppmsg := pullPushMessage{
		LTime: d.node.messageClock.Time(),
	}

	data, err := encodeMessage(pullPushMessageType, &ppmsg)
	if err != nil {
		return []byte{}
	}

	return data
}

func (d *delegate) MergeRemoteState(buf []byte, join bool) {
	msgType, body, err := splitMessage(buf)
	if err != nil || msgType != pullPushMessageType {
		return
	}

	var ppmsg pullPushMessage
	if err := decodeMessage(body, &ppmsg); err != nil {
		return
	}

	if ppmsg.LTime > 0 {
		d.node.messageClock.Witness(ppmsg.LTime - 1)
	}
}
