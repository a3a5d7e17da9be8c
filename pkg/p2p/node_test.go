package p2p

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/korthochain/korthoattest/pkg/address"
	"github.com/korthochain/korthoattest/pkg/attestation"
	"github.com/korthochain/korthoattest/pkg/boneh"
	"github.com/korthochain/korthoattest/pkg/crypto"
	"github.com/korthochain/korthoattest/pkg/crypto/fp2"
	"github.com/korthochain/korthoattest/pkg/crypto/sigs"
	"github.com/korthochain/korthoattest/pkg/storage/store/bg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestNode(t *testing.T, conf Config) *Node {
	db, err := bg.Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	n, err := newNode(conf, db)
	require.NoError(t, err)
	return n
}

type testPeer struct {
	name string
	priv []byte
	pub  []byte
}

func newTestPeer(t *testing.T, name string) *testPeer {
	priv, err := sigs.Generate(crypto.TypeED25519)
	require.NoError(t, err)
	pub, err := sigs.ToPublic(crypto.TypeED25519, priv)
	require.NoError(t, err)
	return &testPeer{name: name, priv: priv, pub: pub}
}

func (p *testPeer) storeValue(t *testing.T, ltime LamportTime, key, value []byte) *message {
	payload, err := cbor.Marshal(&storeValueMessage{Key: key, Value: value})
	require.NoError(t, err)
	msg := &message{
		LTime:   ltime,
		Type:    StoreValueMessageType,
		From:    p.name,
		Payload: payload,
		Key:     p.pub,
	}
	require.NoError(t, msg.sign(p.priv))
	return msg
}

func encode(t *testing.T, msg *message) []byte {
	data, err := encodeMessage(msg.Type, msg)
	require.NoError(t, err)
	return data
}

func TestNewNode(t *testing.T) {
	assert := assert.New(t)

	db, err := bg.Open(t.TempDir(), nil)
	require.NoError(t, err)
	defer db.Close()

	_, err = newNode(Config{}, db)
	assert.Error(err)
	_, err = newNode(DefaultConfig(), nil)
	assert.Error(err)

	conf := DefaultConfig()
	conf.NodeName = "alpha"
	a, err := newNode(conf, db)
	require.NoError(t, err)
	b, err := newNode(conf, db)
	require.NoError(t, err)
	assert.NotEqual(a.Name(), b.Name())
	assert.Contains(a.Name(), "alpha-")

	_, err = Create(conf, db)
	assert.Error(err, "missing advertise address")
}

func TestHandleMessageDedup(t *testing.T) {
	assert := assert.New(t)

	got := make(chan []byte, 2)
	conf := DefaultConfig()
	conf.HandleFunc = func(buf []byte) error {
		got <- buf
		return nil
	}
	n := newTestNode(t, conf)

	msg := &message{LTime: 5, Type: AttestationMessageType, From: "remote", Payload: []byte{1, 2, 3}}
	assert.True(n.handleMessage(msg))
	assert.False(n.handleMessage(msg))
	assert.True(n.messageClock.Time() > 5)

	select {
	case buf := <-got:
		assert.Equal([]byte{1, 2, 3}, buf)
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}
	select {
	case <-got:
		t.Fatal("duplicate delivered")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandleMessageTooOld(t *testing.T) {
	conf := DefaultConfig()
	conf.MessageBuffer = 4
	n := newTestNode(t, conf)

	n.messageClock.Witness(100)
	assert.False(t, n.handleMessage(&message{LTime: 10, Type: AttestationMessageType, Payload: []byte{1}}))
	assert.True(t, n.handleMessage(&message{LTime: 99, Type: AttestationMessageType, Payload: []byte{1}}))
}

func TestStoreValueFindValues(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	n := newTestNode(t, DefaultConfig())

	key := []byte("infohash-0123456789")
	require.NoError(t, n.StoreValue(ctx, key, []byte("first")))
	require.NoError(t, n.StoreValue(ctx, key, []byte("second")))
	require.NoError(t, n.StoreValue(ctx, []byte("other"), []byte("third")))
	assert.Error(n.StoreValue(ctx, nil, []byte("x")))

	values, err := n.FindValues(ctx, key)
	assert.NoError(err)
	assert.ElementsMatch([][]byte{[]byte("first"), []byte("second")}, values)
	assert.Equal(3, n.broadcasts.NumQueued())

	values, err = n.FindValues(ctx, []byte("missing"))
	assert.NoError(err)
	assert.Empty(values)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = n.FindValues(canceled, key)
	assert.ErrorIs(err, context.Canceled)
}

func TestNotifyMsg(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	n := newTestNode(t, DefaultConfig())
	d := &delegate{node: n}
	remote := newTestPeer(t, "remote")

	data := encode(t, remote.storeValue(t, 7, []byte("k"), []byte("v")))
	d.NotifyMsg(data)
	d.NotifyMsg(data)
	assert.Equal(1, n.broadcasts.NumQueued())

	values, err := n.FindValues(ctx, []byte("k"))
	assert.NoError(err)
	assert.Equal([][]byte{[]byte("v")}, values)

	d.NotifyMsg(nil)
	d.NotifyMsg([]byte{pullPushMessageType, 0xa0})
	d.NotifyMsg([]byte{AttestationMessageType, 0xff, 0xff})
	assert.Equal(1, n.broadcasts.NumQueued())

	forged := remote.storeValue(t, 8, []byte("k"), []byte("forged"))
	forged.Payload, _ = cbor.Marshal(&storeValueMessage{Key: []byte("k"), Value: []byte("swapped")})
	d.NotifyMsg(encode(t, forged))

	unsigned := remote.storeValue(t, 9, []byte("k"), []byte("unsigned"))
	unsigned.Signature = nil
	d.NotifyMsg(encode(t, unsigned))

	assert.Equal(1, n.broadcasts.NumQueued())
	values, err = n.FindValues(ctx, []byte("k"))
	assert.NoError(err)
	assert.Equal([][]byte{[]byte("v")}, values)
}

func TestNotifyMsgRateLimited(t *testing.T) {
	assert := assert.New(t)
	conf := DefaultConfig()
	conf.RateLimit = rate.Limit(0.001)
	conf.RateBurst = 2
	n := newTestNode(t, conf)
	d := &delegate{node: n}
	flood, quiet := newTestPeer(t, "flood"), newTestPeer(t, "quiet")

	for i := 0; i < 4; i++ {
		d.NotifyMsg(encode(t, flood.storeValue(t, LamportTime(i+1), []byte("k"), []byte{byte(i)})))
	}
	d.NotifyMsg(encode(t, quiet.storeValue(t, 1, []byte("k"), []byte{9})))

	values, err := n.FindValues(context.Background(), []byte("k"))
	assert.NoError(err)
	assert.ElementsMatch([][]byte{{0}, {1}, {9}}, values)
}

func TestRemoteState(t *testing.T) {
	assert := assert.New(t)
	a := newTestNode(t, DefaultConfig())
	b := newTestNode(t, DefaultConfig())

	a.messageClock.Witness(50)
	(&delegate{node: b}).MergeRemoteState((&delegate{node: a}).LocalState(false), false)
	assert.Equal(a.messageClock.Time(), b.messageClock.Time())

	(&delegate{node: b}).MergeRemoteState([]byte{AttestationMessageType, 0}, false)
	assert.Equal(a.messageClock.Time(), b.messageClock.Time())
}

func TestPublishAttestation(t *testing.T) {
	assert := assert.New(t)

	got := make(chan []byte, 1)
	conf := DefaultConfig()
	conf.HandleFunc = func(buf []byte) error {
		got <- buf
		return nil
	}
	n := newTestNode(t, conf)

	pk := boneh.NewPublicKey(big.NewInt(15), big.NewInt(7), fp2.NewInt64(7, 1, 2), fp2.NewInt64(7, 3, 4))
	att := attestation.New(pk, []*attestation.BitPairAttestation{
		attestation.NewBitPair(fp2.NewInt64(7, 1, 1), fp2.NewInt64(7, 2, 2), fp2.NewInt64(7, 3, 3)),
	})
	want, err := att.Serialize()
	require.NoError(t, err)

	require.NoError(t, n.PublishAttestation(att))
	assert.Equal(1, n.broadcasts.NumQueued())
	select {
	case buf := <-got:
		assert.Equal(want, buf)
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}

	assert.Error(n.SendMessage(pullPushMessageType, want))
}

func TestNodeKey(t *testing.T) {
	assert := assert.New(t)
	peer := newTestPeer(t, "fixed")

	conf := DefaultConfig()
	conf.PrivateKey = peer.priv
	n := newTestNode(t, conf)
	assert.Equal(peer.pub, n.PublicKey())
	assert.Len(n.Address(), address.AddressSize)
	assert.Empty(memberAddress(nil))
	assert.Equal(peer.pub, (&delegate{node: n}).NodeMeta(512))
	assert.Empty((&delegate{node: n}).NodeMeta(8))

	conf.PrivateKey = []byte{1, 2, 3}
	db, err := bg.Open(t.TempDir(), nil)
	require.NoError(t, err)
	defer db.Close()
	_, err = newNode(conf, db)
	assert.Error(err)
}

func TestSentMessageIsSigned(t *testing.T) {
	assert := assert.New(t)
	a := newTestNode(t, DefaultConfig())
	b := newTestNode(t, DefaultConfig())

	require.NoError(t, a.StoreValue(context.Background(), []byte("k"), []byte("v")))
	queued := a.broadcasts.GetBroadcasts(0, 4096)
	require.Len(t, queued, 1)

	(&delegate{node: b}).NotifyMsg(queued[0])
	values, err := b.FindValues(context.Background(), []byte("k"))
	assert.NoError(err)
	assert.Equal([][]byte{[]byte("v")}, values)
}

func TestConnectPeer(t *testing.T) {
	assert := assert.New(t)
	n := newTestNode(t, DefaultConfig())

	_, err := n.ConnectPeer(context.Background(), MemberID([]byte("pk")))
	assert.ErrorIs(err, errNotStarted)
	assert.Len(MemberID([]byte("pk")), memberIDSize)
	assert.NoError(n.Shutdown())
	assert.Equal(nodeShutdown, n.State())
}
