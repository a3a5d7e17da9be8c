// Package p2p gossips attestations and DHT values between nodes over memberlist.
package p2p

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/hashicorp/memberlist"
	"github.com/korthochain/korthoattest/pkg/attestation"
	"github.com/korthochain/korthoattest/pkg/crypto"
	"github.com/korthochain/korthoattest/pkg/crypto/sigs"
	"github.com/korthochain/korthoattest/pkg/logger"
	"github.com/korthochain/korthoattest/pkg/storage/store"
	"go.uber.org/zap"
)

type Node struct {
	Config *Config

	memberlist *memberlist.Memberlist
	name       string

	messageBuffer      []*receivedMessage
	messageBufferMutex sync.Mutex
	broadcasts         *memberlist.TransmitLimitedQueue

	messageClock LamportClock

	privateKey []byte
	publicKey  []byte

	db      store.DB
	limiter *senderLimiter

	handleMu   sync.RWMutex
	handleFunc func([]byte) error

	stateLock sync.Mutex
	state     nodeStatus

	logger *zap.Logger
}

type nodeStatus int

const (
	nodeAlive nodeStatus = iota
	nodeLeave
	nodeShutdown
)

type nodeState struct {
	Name   string
	Addr   net.IP
	Port   uint16
	Meta   []byte
	Status nodeStatus
}

// newNode builds a node without joining the network.
func newNode(conf Config, db store.DB) (*Node, error) {
	if len(conf.NodeName) == 0 {
		return nil, fmt.Errorf("NodeName cannot be empty")
	}
	if db == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if conf.MessageBuffer <= 0 {
		conf.MessageBuffer = DefaultConfig().MessageBuffer
	}
	if conf.RateLimit <= 0 || conf.RateBurst <= 0 {
		def := DefaultConfig()
		conf.RateLimit, conf.RateBurst = def.RateLimit, def.RateBurst
	}

	if len(conf.PrivateKey) == 0 {
		priv, err := sigs.Generate(crypto.TypeED25519)
		if err != nil {
			return nil, err
		}
		conf.PrivateKey = priv
	}
	publicKey, err := sigs.ToPublic(crypto.TypeED25519, conf.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("node key: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	node := &Node{
		Config:        &conf,
		name:          conf.NodeName + "-" + id.String(),
		messageBuffer: make([]*receivedMessage, conf.MessageBuffer),
		privateKey:    conf.PrivateKey,
		publicKey:     publicKey,
		db:            db,
		limiter:       newSenderLimiter(conf.RateLimit, conf.RateBurst),
		handleFunc:    conf.HandleFunc,
		logger:        conf.Logger,
	}
	if node.logger == nil {
		node.logger = logger.Logger.Named("p2p")
	}

	retransmitMult := 4
	if conf.MemberlistConfig != nil {
		retransmitMult = conf.MemberlistConfig.RetransmitMult
	}
	node.broadcasts = &memberlist.TransmitLimitedQueue{
		NumNodes:       node.numMembers,
		RetransmitMult: retransmitMult,
	}

	node.messageClock.Increment()
	node.logger.Debug("startup message ltime", zap.Uint64("ltime", uint64(node.messageClock.Time())))
	return node, nil
}

// Create creates a new P2P instance that stores DHT values in db.
func Create(conf Config, db store.DB) (*Node, error) {
	if conf.MemberlistConfig == nil {
		return nil, fmt.Errorf("MemberlistConfig cannot be nil")
	}
	if len(conf.MemberlistConfig.AdvertiseAddr) == 0 {
		return nil, fmt.Errorf("invalid advertise address")
	}

	node, err := newNode(conf, db)
	if err != nil {
		return nil, err
	}

	mlConfig := conf.MemberlistConfig
	mlConfig.Name = node.name
	mlConfig.Delegate = &delegate{node: node}
	mlConfig.Events = &eventDelegate{node: node}
	mlConfig.LogOutput = nil
	mlConfig.Logger = zap.NewStdLog(node.logger.Named("memberlist"))
	mlConfig.HandoffQueueDepth = 1024 * 10

	ml, err := memberlist.Create(mlConfig)
	if err != nil {
		return nil, err
	}

	node.memberlist = ml
	return node, nil
}

func (n *Node) numMembers() int {
	if n.memberlist == nil {
		return 1
	}
	return n.memberlist.NumMembers()
}

// Name is the member name of this node.
func (n *Node) Name() string {
	return n.name
}

// PublicKey is the ed25519 key this node signs gossip with.
func (n *Node) PublicKey() []byte {
	return n.publicKey
}

// Address is the printable form of PublicKey.
func (n *Node) Address() string {
	return memberAddress(n.publicKey)
}

// RegisterHandleFunc replaces the attestation payload handler.
func (n *Node) RegisterHandleFunc(f func([]byte) error) {
	n.handleMu.Lock()
	defer n.handleMu.Unlock()
	n.handleFunc = f
}

// handleMessage processes msg and reports whether it is new and should be
// rebroadcast.
func (n *Node) handleMessage(msg *message) bool {
	msgc := *msg

	n.messageClock.Witness(msgc.LTime)
	// Check if this message is too old
	currTime := n.messageClock.Time()
	if currTime > LamportTime(len(n.messageBuffer)) && msgc.LTime < currTime-LamportTime(len(n.messageBuffer)) {
		return false
	}

	msgid := msgc.id()
	idx := msgc.LTime % LamportTime(len(n.messageBuffer))

	n.messageBufferMutex.Lock()
	seen := n.messageBuffer[idx]
	if seen != nil && seen.LTime == msgc.LTime {
		for _, id := range seen.IDs {
			if bytes.Equal(msgid, id) {
				n.messageBufferMutex.Unlock()
				return false
			}
		}
	} else {
		seen = &receivedMessage{LTime: msgc.LTime}
		n.messageBuffer[idx] = seen
	}
	seen.IDs = append(seen.IDs, msgid)
	n.messageBufferMutex.Unlock()

	switch msgc.Type {
	case AttestationMessageType:
		n.handleMu.RLock()
		f := n.handleFunc
		n.handleMu.RUnlock()
		if f != nil {
			go func() {
				if err := f(msgc.Payload); err != nil {
					n.logger.Info("attestation handler failed", zap.String("from", msgc.From), zap.Error(err))
				}
			}()
		}
	case StoreValueMessageType:
		var sv storeValueMessage
		if err := decodeMessage(msgc.Payload, &sv); err != nil {
			n.logger.Debug("failed to decode store value", zap.String("from", msgc.From), zap.Error(err))
			return false
		}
		if err := n.putValue(sv.Key, sv.Value); err != nil {
			n.logger.Warn("failed to store value", zap.String("from", msgc.From), zap.Error(err))
			return false
		}
	}

	return true
}

// SendMessage handles buf locally and queues it for gossip.
func (n *Node) SendMessage(msgType messageType, buf []byte) error {
	if msgType != AttestationMessageType && msgType != StoreValueMessageType {
		return fmt.Errorf("unknown message type %d", msgType)
	}

	msg := message{
		Type:    msgType,
		From:    n.name,
		Payload: buf,
		LTime:   n.messageClock.Increment(),
		Key:     n.publicKey,
	}
	if err := msg.sign(n.privateKey); err != nil {
		return err
	}

	msgData, err := encodeMessage(msgType, &msg)
	if err != nil {
		return err
	}

	n.handleMessage(&msg)
	n.broadcasts.QueueBroadcast(&broadcast{msg: msgData})
	return nil
}

// PublishAttestation gossips att to the cluster.
func (n *Node) PublishAttestation(att *attestation.Attestation) error {
	data, err := att.Serialize()
	if err != nil {
		return err
	}
	return n.SendMessage(AttestationMessageType, data)
}

// Join joins an existing P2P cluster. Returns the number of nodes successfully contacted.
// The returned error will be non-nil only in the case that no nodes could be contacted.
func (n *Node) Join(existing []string) (int, error) {
	if n.State() != nodeAlive {
		return 0, fmt.Errorf("node can't Join after Leave or Shutdown")
	}

	return n.memberlist.Join(existing)
}

// Leave leaves all nodes,and returns an error if it times out
func (n *Node) Leave() error {
	n.stateLock.Lock()
	if n.state == nodeLeave {
		n.stateLock.Unlock()
		return fmt.Errorf("Leave already in progress")
	} else if n.state == nodeShutdown {
		n.stateLock.Unlock()
		return fmt.Errorf("Leave called after Shutdown")
	} else {
		n.state = nodeLeave
	}
	n.stateLock.Unlock()

	return n.memberlist.Leave(n.Config.BroadcastTimeout)
}

// Shutdown stops all network activity without notifying other members.
func (n *Node) Shutdown() error {
	n.stateLock.Lock()
	defer n.stateLock.Unlock()
	if n.state == nodeShutdown {
		return nil
	}
	n.state = nodeShutdown
	if n.memberlist == nil {
		return nil
	}
	return n.memberlist.Shutdown()
}

// State is the current state of this Node instance.
func (n *Node) State() nodeStatus {
	n.stateLock.Lock()
	defer n.stateLock.Unlock()
	return n.state
}

var errNotStarted = errors.New("node is not connected")

// Members returns the status information of all members
func (n *Node) Members() []nodeState {
	if n.memberlist == nil {
		return nil
	}
	members := n.memberlist.Members()
	ret := make([]nodeState, 0, len(members))

	for _, v := range members {
		ret = append(ret, nodeState{
			Name:   v.Name,
			Addr:   v.Addr,
			Port:   v.Port,
			Meta:   v.Meta,
			Status: nodeAlive,
		})
	}

	return ret
}
