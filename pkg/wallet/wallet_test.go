package wallet

import (
	"math/big"
	"testing"
	"time"

	"github.com/korthochain/korthoattest/pkg/attestation"
	"github.com/korthochain/korthoattest/pkg/boneh"
	"github.com/korthochain/korthoattest/pkg/crypto/fp2"
	"github.com/korthochain/korthoattest/pkg/storage/store/bg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAttestation(pairs int64) *attestation.Attestation {
	pk := boneh.NewPublicKey(big.NewInt(15), big.NewInt(7), fp2.NewInt64(7, 1, 2), fp2.NewInt64(7, 3, 4))
	bitPairs := make([]*attestation.BitPairAttestation, 0, pairs)
	for i := int64(0); i < pairs; i++ {
		bitPairs = append(bitPairs, attestation.NewBitPair(fp2.NewInt64(7, i, i), fp2.NewInt64(7, i+1, i+1), fp2.NewInt64(7, i+2, i+2)))
	}
	return attestation.New(pk, bitPairs)
}

func newTestWallet(t *testing.T, now time.Time) *Wallet {
	db, err := bg.Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := DefaultConfig()
	cfg.CacheSize = 2
	cfg.Now = func() time.Time { return now }
	return New(db, cfg)
}

func TestRecordCodec(t *testing.T) {
	assert := assert.New(t)
	r := &record{Version: recordVersion, Received: 1700000000, Attestation: testAttestation(2)}

	data, err := r.Serialize()
	require.NoError(t, err)

	maybe, err := deserializeRecord(data)
	require.NoError(t, err)
	assert.Equal(r.Version, maybe.Version)
	assert.Equal(r.Received, maybe.Received)
	assert.True(r.Attestation.Equal(maybe.Attestation))

	data[1] = 9 // version
	_, err = deserializeRecord(data)
	assert.Error(err)
}

func TestWalletPutGet(t *testing.T) {
	assert := assert.New(t)
	now := time.Unix(1700000000, 0)
	w := newTestWallet(t, now)
	att := testAttestation(3)

	id, err := w.Put(att)
	require.NoError(t, err)

	want, err := att.ID()
	require.NoError(t, err)
	assert.Equal(want, id)

	e, err := w.Get(id)
	require.NoError(t, err)
	assert.True(att.Equal(e.Attestation))
	assert.Equal(now, e.Received)

	ok, err := w.Has(id)
	assert.NoError(err)
	assert.True(ok)
}

func TestWalletGetFromStore(t *testing.T) {
	assert := assert.New(t)
	w := newTestWallet(t, time.Unix(1700000000, 0))

	ids := make([]attestation.ID, 0, 4)
	for i := int64(0); i < 4; i++ {
		id, err := w.Put(testAttestation(i))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	// the cache holds two entries, the rest are decoded from the store
	for i, id := range ids {
		e, err := w.Get(id)
		require.NoError(t, err)
		assert.True(testAttestation(int64(i)).Equal(e.Attestation))
	}

	list, err := w.List()
	assert.NoError(err)
	assert.ElementsMatch(ids, list)
}

func TestWalletPutBytes(t *testing.T) {
	assert := assert.New(t)
	w := newTestWallet(t, time.Unix(1700000000, 0))

	data, err := testAttestation(2).Serialize()
	require.NoError(t, err)

	id, att, err := w.PutBytes(data)
	require.NoError(t, err)
	assert.Len(att.BitPairs, 2)
	assert.Equal(attestation.NewID(data), id)

	_, _, err = w.PutBytes(data[:len(data)-1])
	assert.Error(err)
}

func TestWalletDelete(t *testing.T) {
	assert := assert.New(t)
	w := newTestWallet(t, time.Unix(1700000000, 0))

	id, err := w.Put(testAttestation(1))
	require.NoError(t, err)
	assert.NoError(w.Delete(id))

	_, err = w.Get(id)
	assert.ErrorIs(err, ErrNotFound)

	ok, err := w.Has(id)
	assert.NoError(err)
	assert.False(ok)
}

func TestWalletPutKeepsFirstReceived(t *testing.T) {
	assert := assert.New(t)
	first := time.Unix(1700000000, 0)
	w := newTestWallet(t, first)

	id, err := w.Put(testAttestation(1))
	require.NoError(t, err)

	w.now = func() time.Time { return first.Add(time.Hour) }
	w.cache.Purge()
	_, err = w.Put(testAttestation(1))
	require.NoError(t, err)

	e, err := w.Get(id)
	require.NoError(t, err)
	assert.Equal(first, e.Received)
}
