package attestserver

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/korthochain/korthoattest/pkg/attestation"
	"github.com/korthochain/korthoattest/pkg/boneh"
	"github.com/korthochain/korthoattest/pkg/crypto/fp2"
	"github.com/korthochain/korthoattest/pkg/dht"
	"github.com/korthochain/korthoattest/pkg/storage/store/bg"
	"github.com/korthochain/korthoattest/pkg/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

type recordingPublisher struct {
	published []*attestation.Attestation
	err       error
}

func (p *recordingPublisher) PublishAttestation(att *attestation.Attestation) error {
	p.published = append(p.published, att)
	return p.err
}

type staticLocator struct {
	points map[string][]*dht.IntroductionPoint
}

func (l *staticLocator) Lookup(_ context.Context, infoHash []byte) ([]*dht.IntroductionPoint, error) {
	return l.points[string(infoHash)], nil
}

func testAttestationBytes(t *testing.T) []byte {
	pk := boneh.NewPublicKey(big.NewInt(15), big.NewInt(7), fp2.NewInt64(7, 1, 2), fp2.NewInt64(7, 3, 4))
	att := attestation.New(pk, []*attestation.BitPairAttestation{
		attestation.NewBitPair(fp2.NewInt64(7, 1, 1), fp2.NewInt64(7, 2, 2), fp2.NewInt64(7, 3, 3)),
		attestation.NewBitPair(fp2.NewInt64(7, 4, 4), fp2.NewInt64(7, 5, 5), fp2.NewInt64(7, 6, 6)),
	})
	data, err := att.Serialize()
	require.NoError(t, err)
	return data
}

func newTestServer(t *testing.T, pub Publisher, cfg Config) *Server {
	db, err := bg.Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	wcfg := wallet.DefaultConfig()
	wcfg.Now = func() time.Time { return time.Unix(1700000000, 0) }
	return NewServer(wallet.New(db, wcfg), pub, cfg)
}

func do(s *Server, method, uri string, body []byte) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	req.SetBody(body)

	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, &net.TCPAddr{IP: net.IPv4(10, 1, 2, 3), Port: 40000}, nil)
	s.Handler()(ctx)
	return ctx
}

func TestPutGetAttestation(t *testing.T) {
	assert := assert.New(t)
	pub := &recordingPublisher{}
	s := newTestServer(t, pub, DefaultConfig())
	data := testAttestationBytes(t)

	ctx := do(s, http.MethodPost, "/attestation", data)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	var put resultID
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &put))
	assert.Equal(Success, put.ErrorCode)
	assert.Equal(attestation.NewID(data).String(), put.ID)
	assert.Len(pub.published, 1)

	ctx = do(s, http.MethodGet, "/attestation/"+put.ID, nil)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	var got resultAttestation
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &got))
	assert.Equal(&AttestationInfo{
		ID:       put.ID,
		Received: 1700000000,
		N:        "15",
		P:        "7",
		BitPairs: 2,
		Data:     hex.EncodeToString(data),
	}, got.Attestation)

	ctx = do(s, http.MethodGet, "/attestation/"+put.ID+"/raw", nil)
	assert.Equal(http.StatusOK, ctx.Response.StatusCode())
	assert.Equal(data, ctx.Response.Body())
	assert.Equal("application/octet-stream", string(ctx.Response.Header.ContentType()))

	ctx = do(s, http.MethodGet, "/attestations", nil)
	var list resultIDs
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &list))
	assert.Equal([]string{put.ID}, list.IDs)
}

func TestPutAttestationErrors(t *testing.T) {
	assert := assert.New(t)
	pub := &recordingPublisher{err: errors.New("no members")}
	s := newTestServer(t, pub, DefaultConfig())
	data := testAttestationBytes(t)

	ctx := do(s, http.MethodPost, "/attestation", data[:5])
	assert.Equal(http.StatusBadRequest, ctx.Response.StatusCode())
	var res resultInfo
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
	assert.Equal(ErrData, res.ErrorCode)
	assert.Empty(pub.published)

	ctx = do(s, http.MethodPost, "/attestation", data)
	assert.Equal(http.StatusOK, ctx.Response.StatusCode(), "publish failures are not fatal")
}

func TestGetAttestationErrors(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t, nil, DefaultConfig())

	ctx := do(s, http.MethodGet, "/attestation/not-base58-0OIl", nil)
	assert.Equal(http.StatusBadRequest, ctx.Response.StatusCode())

	missing := attestation.NewID([]byte("missing")).String()
	ctx = do(s, http.MethodGet, "/attestation/"+missing, nil)
	assert.Equal(http.StatusNotFound, ctx.Response.StatusCode())
	ctx = do(s, http.MethodGet, "/attestation/"+missing+"/raw", nil)
	assert.Equal(http.StatusNotFound, ctx.Response.StatusCode())

	ctx = do(s, http.MethodGet, "/attestations", nil)
	var list resultIDs
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &list))
	assert.Empty(list.IDs)
}

func TestRateLimit(t *testing.T) {
	assert := assert.New(t)
	cfg := DefaultConfig()
	cfg.RateLimit = rate.Limit(0.001)
	cfg.RateBurst = 1
	s := newTestServer(t, nil, cfg)

	assert.Equal(http.StatusOK, do(s, http.MethodGet, "/attestations", nil).Response.StatusCode())
	assert.Equal(http.StatusTooManyRequests, do(s, http.MethodGet, "/attestations", nil).Response.StatusCode())

	cfg.WhiteList = []string{"10.1.2.3"}
	s = newTestServer(t, nil, cfg)
	for i := 0; i < 3; i++ {
		assert.Equal(http.StatusOK, do(s, http.MethodGet, "/attestations", nil).Response.StatusCode())
	}
}

func TestGetPeers(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t, nil, DefaultConfig())
	id := attestation.NewID(testAttestationBytes(t))

	ctx := do(s, http.MethodGet, "/attestation/"+id.String()+"/peers", nil)
	assert.Equal(http.StatusNotFound, ctx.Response.StatusCode())

	s.SetLocator(&staticLocator{points: map[string][]*dht.IntroductionPoint{
		string(id.Bytes()): {{
			Peer: dht.Peer{
				PublicKey: []byte{0xab, 0xcd},
				Address:   &net.UDPAddr{IP: net.IPv4(10, 0, 0, 9), Port: 7946},
			},
			LastSeen: 42,
		}},
	}})

	ctx = do(s, http.MethodGet, "/attestation/"+id.String()+"/peers", nil)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())
	var res resultPeers
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
	assert.Equal([]*PeerInfo{{Address: "10.0.0.9:7946", PublicKey: "abcd", LastSeen: 42}}, res.Peers)

	ctx = do(s, http.MethodGet, "/attestation/bad0/peers", nil)
	assert.Equal(http.StatusBadRequest, ctx.Response.StatusCode())
}
