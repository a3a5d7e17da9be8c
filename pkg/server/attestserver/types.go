package attestserver

import (
	"context"

	"github.com/buaazp/fasthttprouter"
	"github.com/korthochain/korthoattest/pkg/attestation"
	"github.com/korthochain/korthoattest/pkg/dht"
	"github.com/korthochain/korthoattest/pkg/wallet"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

const (
	Success = iota
	ErrData
	ErrNotFound
	ErrInternal
	ErrLimited
)

// Publisher gossips accepted attestations.
type Publisher interface {
	PublishAttestation(att *attestation.Attestation) error
}

// Locator finds the peers that announced an attestation.
type Locator interface {
	Lookup(ctx context.Context, infoHash []byte) ([]*dht.IntroductionPoint, error)
}

type Config struct {
	Address     string
	MaxBodySize int
	RateLimit   rate.Limit
	RateBurst   int
	// WhiteList holds client IPs that are never rate limited.
	WhiteList []string
}

func DefaultConfig() Config {
	return Config{
		Address:     ":8090",
		MaxBodySize: 4 * 1024 * 1024,
		RateLimit:   rate.Limit(100),
		RateBurst:   200,
		WhiteList:   []string{"127.0.0.1"},
	}
}

type Server struct {
	address   string
	wallet    *wallet.Wallet
	publisher Publisher
	locator   Locator
	r         *fasthttprouter.Router
	limiter   *ipRateLimiter
	whiteList map[string]struct{}
	srv       *fasthttp.Server
}

type resultInfo struct {
	ErrorCode int    `json:"code"`
	ErrorMsg  string `json:"message"`
}

type resultID struct {
	ErrorCode int    `json:"code"`
	ErrorMsg  string `json:"message"`
	ID        string `json:"id"`
}

type resultIDs struct {
	ErrorCode int      `json:"code"`
	ErrorMsg  string   `json:"message"`
	IDs       []string `json:"ids"`
}

type resultAttestation struct {
	ErrorCode   int              `json:"code"`
	ErrorMsg    string           `json:"message"`
	Attestation *AttestationInfo `json:"attestation"`
}

// AttestationInfo summarizes a stored attestation.
type AttestationInfo struct {
	ID       string `json:"id"`
	Received int64  `json:"received"`
	N        string `json:"n"`
	P        string `json:"p"`
	BitPairs int    `json:"bitpairs"`
	Data     string `json:"data"`
}

type resultPeers struct {
	ErrorCode int         `json:"code"`
	ErrorMsg  string      `json:"message"`
	Peers     []*PeerInfo `json:"peers"`
}

// PeerInfo is an introduction point for an attestation.
type PeerInfo struct {
	Address   string `json:"address"`
	PublicKey string `json:"publickey"`
	LastSeen  uint32 `json:"lastseen"`
}
