package p2p

import (
	"os"
	"time"

	"github.com/hashicorp/memberlist"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config is the configuration for creating a P2P-Node instance.
type Config struct {
	// NodeName of this node. A random suffix is appended to form the member
	// name, so several nodes may share it. Defaults to the host name.
	NodeName string

	// PrivateKey is the ed25519 key gossip is signed with. Its public key is
	// advertised as node metadata. A key is generated when it is empty.
	PrivateKey []byte

	// BroadcastTimeout is the amount of time to wait for a leave message to be sent
	// to the cluster.
	BroadcastTimeout time.Duration

	// MemberlistConfig is the memberlist configuration that P2P will
	// use to do the underlying membership management and gossip.
	MemberlistConfig *memberlist.Config

	// MessageBuffer is used to control how many messages are buffered.This is
	// used to prevent messages that have already been received from being redelivered.
	// The buffer must be large enough to handle all recent messages.
	MessageBuffer int

	// HandleFunc receives the payload of every new attestation message. It runs
	// on its own goroutine.
	HandleFunc func([]byte) error

	// RateLimit and RateBurst bound the messages accepted from one sender.
	RateLimit rate.Limit
	RateBurst int

	Logger *zap.Logger
}

// DefaultConfig provides a default p2p node configuration
func DefaultConfig() Config {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "korthoattest"
	}

	return Config{
		NodeName:         hostname,
		BroadcastTimeout: 5 * time.Second,
		MessageBuffer:    10000,
		RateLimit:        rate.Limit(50),
		RateBurst:        100,
		MemberlistConfig: memberlist.DefaultLocalConfig(),
	}
}
