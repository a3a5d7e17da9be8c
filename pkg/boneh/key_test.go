package boneh

import (
	"math/big"
	"testing"

	"github.com/korthochain/korthoattest/pkg/codec"
	"github.com/korthochain/korthoattest/pkg/crypto/fp2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPrivateKey() *PrivateKey {
	p := big.NewInt(7)
	return NewPrivateKey(big.NewInt(15), p, fp2.NewInt64(7, 1, 2), fp2.NewInt64(7, 3, 4), big.NewInt(5))
}

func TestPublicKeyCodec(t *testing.T) {
	assert := assert.New(t)
	pk := testPrivateKey().Public()

	data, err := pk.Serialize()
	require.NoError(t, err)
	assert.Equal([]byte{1, 15, 1, 7, 1, 1, 1, 2, 1, 3, 1, 4}, data)

	key, err := DeserializeKey(data, false)
	require.NoError(t, err)

	maybe, ok := key.(*PublicKey)
	require.True(t, ok)
	assert.True(pk.Equal(maybe))
}

func TestPublicKeyEqualUnreduced(t *testing.T) {
	assert := assert.New(t)
	pk := testPrivateKey().Public()
	other := NewPublicKey(big.NewInt(15), big.NewInt(7), fp2.NewInt64(7, 8, 2), fp2.NewInt64(7, 3, 4))

	assert.True(pk.G.Equal(other.G))
	assert.False(pk.Equal(other))
	assert.True(other.Equal(NewPublicKey(big.NewInt(15), big.NewInt(7), fp2.NewInt64(7, 8, 2), fp2.NewInt64(7, 3, 4))))
}

func TestSerializeIncomplete(t *testing.T) {
	assert := assert.New(t)

	_, err := (&PublicKey{}).Serialize()
	assert.ErrorIs(err, ErrIncompleteKey)

	var nilKey *PublicKey
	_, err = nilKey.Serialize()
	assert.ErrorIs(err, ErrIncompleteKey)

	var nilPrivate *PrivateKey
	_, err = nilPrivate.Serialize()
	assert.ErrorIs(err, ErrIncompleteKey)

	_, err = (&PrivateKey{}).Serialize()
	assert.ErrorIs(err, ErrIncompleteKey)

	pk := testPrivateKey().Public()
	_, err = NewPublicKey(nil, pk.P, pk.G, pk.H).Serialize()
	assert.ErrorIs(err, codec.ErrNilInteger)
}

func TestPrivateKeyCodec(t *testing.T) {
	assert := assert.New(t)
	sk := testPrivateKey()

	data, err := sk.Serialize()
	require.NoError(t, err)
	assert.Equal([]byte{1, 15, 1, 7, 1, 1, 1, 2, 1, 3, 1, 4, 1, 5}, data)

	key, err := DeserializeKey(data, false)
	require.NoError(t, err)
	maybe, ok := key.(*PrivateKey)
	require.True(t, ok)
	assert.True(sk.Equal(maybe))

	// forcing public drops t1
	key, err = DeserializeKey(data, true)
	require.NoError(t, err)
	_, ok = key.(*PublicKey)
	assert.True(ok)

	strict, err := DeserializePrivateKey(data)
	require.NoError(t, err)
	assert.True(sk.Equal(strict))
}

func TestPrivateKeyPublic(t *testing.T) {
	assert := assert.New(t)
	sk := testPrivateKey()

	direct := NewPublicKey(big.NewInt(15), big.NewInt(7), fp2.NewInt64(7, 1, 2), fp2.NewInt64(7, 3, 4))
	assert.True(direct.Equal(sk.Public()))

	pub, err := sk.Public().Serialize()
	assert.NoError(err)
	want, err := direct.Serialize()
	assert.NoError(err)
	assert.Equal(want, pub)
}

func TestDecodeKeyTail(t *testing.T) {
	assert := assert.New(t)
	pk := testPrivateKey().Public()

	data, err := pk.Serialize()
	require.NoError(t, err)
	trailing := []byte{1, 9, 2, 1}

	key, rest, err := DecodeKey(append(append([]byte{}, data...), trailing...), true)
	require.NoError(t, err)
	assert.True(pk.Equal(key.Public()))
	assert.Equal(trailing, rest)
}

func TestDecodeKeyMalformed(t *testing.T) {
	assert := assert.New(t)
	sk := testPrivateKey()
	data, err := sk.Serialize()
	require.NoError(t, err)

	_, err = DeserializeKey(nil, false)
	assert.ErrorIs(err, ErrMalformedKey)

	// ends on a frame boundary after five fields
	_, err = DeserializeKey(data[:10], false)
	assert.ErrorIs(err, ErrMalformedKey)

	// ends inside a frame
	_, err = DeserializeKey(data[:11], false)
	assert.ErrorIs(err, codec.ErrTruncatedInput)

	// six fields are a public key, never a private one
	_, err = DeserializePrivateKey(data[:12])
	assert.ErrorIs(err, ErrMalformedKey)

	_, err = DeserializePrivateKey(data[:13])
	assert.ErrorIs(err, codec.ErrTruncatedInput)
}

func TestSerializeCapacity(t *testing.T) {
	sk := testPrivateKey()
	sk.T1 = new(big.Int).Lsh(big.NewInt(1), 2048)

	_, err := sk.Serialize()
	assert.ErrorIs(t, err, codec.ErrCapacityExceeded)
}
