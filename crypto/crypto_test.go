package crypto_test

import (
	"encoding/json"
	"testing"

	"github.com/cspr-tools/cspr/cl/bytesrepr"
	"github.com/cspr-tools/cspr/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	JSONDigestValid = `"0100000000000000000000000000000000000000000000000000000000000000"`
	JSONDigestShort = `"0100"`
	JSONInvalidSym  = `"x100000000000000000000000000000000000000000000000000000000000000"`
)

func TestHash(t *testing.T) {
	assert := assert.New(t)
	// blake2b-256 of the empty string.
	assert.Equal(
		"0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8",
		crypto.Hash().String())
	assert.Equal(crypto.Hash([]byte("ab")), crypto.Hash([]byte("a"), []byte("b")),
		"Hash hashes the concatenation of its arguments")
	assert.NotEqual(crypto.Hash([]byte("a")), crypto.Hash([]byte("b")))
}

func TestDigestUnmarshalJSON(t *testing.T) {
	testDigestUnmarshalJSON(t, "InvalidType", `{}`,
		"*crypto.Digest: expected JSON string")
	testDigestUnmarshalJSON(t, "InvalidLength", JSONDigestShort,
		"*crypto.Digest: invalid length")
	testDigestUnmarshalJSON(t, "InvalidSymbol", JSONInvalidSym,
		"*crypto.Digest: encoding/hex: invalid byte: U+0078 'x'")
	t.Run("Valid", func(t *testing.T) {
		var d crypto.Digest
		require.NoError(t, d.UnmarshalJSON([]byte(JSONDigestValid)))
		assert.Equal(t, byte(1), d[0])
		data, err := json.Marshal(d)
		require.NoError(t, err)
		assert.Equal(t, JSONDigestValid, string(data))
	})
}

func testDigestUnmarshalJSON(t *testing.T, name, json, errStr string) {
	t.Run(name, func(t *testing.T) {
		var d crypto.Digest
		assert.EqualErrorf(t, d.UnmarshalJSON([]byte(json)),
			errStr, "json: %v", json)
	})
}

func TestBytesJSON(t *testing.T) {
	assert := assert.New(t)
	b := crypto.Bytes{0x01}
	assert.Equal("01", b.String())
	data, err := b.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(`"01"`, string(data))

	var empty crypto.Bytes
	require.NoError(t, empty.UnmarshalJSON([]byte(`""`)))
	assert.Len(empty, 0)
	assert.EqualError(empty.UnmarshalJSON([]byte(`5`)),
		"*crypto.Bytes: expected JSON string")
}

var signTests = []struct {
	Name string
	Algo crypto.KeyAlgorithm
	Size int
}{
	{Name: "ed25519", Algo: crypto.Ed25519, Size: 32},
	{Name: "secp256k1", Algo: crypto.Secp256k1, Size: 33},
}

func TestSignVerify(t *testing.T) {
	msg := crypto.Hash([]byte("deploy header"))
	for _, test := range signTests {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			key, err := crypto.GenerateKey(test.Algo)
			require.NoError(err)
			pub := key.PublicKey()
			assert.Equal(test.Algo, pub.Algorithm)
			assert.Len(pub.Key, test.Size)
			require.NoError(pub.Validate())

			sig, err := crypto.Sign(msg, key)
			require.NoError(err)
			assert.Equal(test.Algo, sig.Algorithm)
			assert.True(crypto.Verify(msg, sig, pub))

			other := crypto.Hash([]byte("other"))
			assert.False(crypto.Verify(other, sig, pub), "wrong message")

			tampered := sig
			tampered.Sig[5] ^= 0xff
			assert.False(crypto.Verify(msg, tampered, pub), "tampered")

			// Round trip the secret.
			restored, err := crypto.PrivateKeyFromBytes(test.Algo, key.Bytes())
			require.NoError(err)
			assert.True(pub.Equal(restored.PublicKey()))
		})
	}
}

func TestVerifyAlgorithmMismatch(t *testing.T) {
	msg := crypto.Hash([]byte("x"))
	ed, err := crypto.GenerateKey(crypto.Ed25519)
	require.NoError(t, err)
	sig, err := ed.Sign(msg)
	require.NoError(t, err)
	sig.Algorithm = crypto.Secp256k1
	assert.False(t, crypto.Verify(msg, sig, ed.PublicKey()))
}

func TestEd25519Deterministic(t *testing.T) {
	seed := make([]byte, 32)
	seed[0] = 7
	key, err := crypto.PrivateKeyFromBytes(crypto.Ed25519, seed)
	require.NoError(t, err)
	msg := crypto.Hash([]byte("x"))
	a, _ := key.Sign(msg)
	b, _ := key.Sign(msg)
	assert.Equal(t, a, b)
}

func TestPrivateKeyFromBytesErrors(t *testing.T) {
	assert := assert.New(t)
	_, err := crypto.PrivateKeyFromBytes(crypto.Ed25519, make([]byte, 5))
	assert.EqualError(err, "ed25519: invalid secret key length: 5")
	_, err = crypto.PrivateKeyFromBytes(crypto.Secp256k1, make([]byte, 32))
	assert.EqualError(err, "secp256k1: secret key out of range")
	_, err = crypto.PrivateKeyFromBytes(crypto.KeyAlgorithm(9), nil)
	assert.EqualError(err, "unknown key algorithm: KeyAlgorithm(9)")
}

func TestPublicKeyEncoding(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	key := make([]byte, 32)
	key[31] = 0xab
	pub := crypto.PublicKey{Algorithm: crypto.Ed25519, Key: key}
	hexStr := "01" + "00000000000000000000000000000000000000000000000000000000000000ab"
	assert.Equal(hexStr, pub.String())

	parsed, err := crypto.ParsePublicKey(hexStr)
	require.NoError(err)
	assert.True(pub.Equal(parsed))

	data, err := json.Marshal(pub)
	require.NoError(err)
	assert.Equal(`"`+hexStr+`"`, string(data))
	var fromJSON crypto.PublicKey
	require.NoError(json.Unmarshal(data, &fromJSON))
	assert.True(pub.Equal(fromJSON))

	_, _, err = crypto.DecodePublicKey([]byte{0x03, 0x00})
	assert.ErrorIs(err, bytesrepr.ErrUnknownDiscriminant)
	_, _, err = crypto.DecodePublicKey([]byte{0x02, 0x00})
	assert.ErrorIs(err, bytesrepr.ErrBufferTooShort)
	_, err = crypto.ParsePublicKey(hexStr + "00")
	assert.EqualError(err, "invalid length")
}

func TestAccountHash(t *testing.T) {
	pub := crypto.PublicKey{Algorithm: crypto.Ed25519, Key: make([]byte, 32)}
	want := crypto.Hash([]byte("ed25519"), []byte{0}, make([]byte, 32))
	assert.Equal(t, want, pub.AccountHash())

	secp := crypto.PublicKey{Algorithm: crypto.Secp256k1, Key: make([]byte, 33)}
	assert.NotEqual(t, secp.AccountHash(), pub.AccountHash())
}

func TestSignatureJSON(t *testing.T) {
	key, err := crypto.GenerateKey(crypto.Secp256k1)
	require.NoError(t, err)
	sig, err := key.Sign(crypto.Hash())
	require.NoError(t, err)

	data, err := json.Marshal(sig)
	require.NoError(t, err)
	assert.Len(t, string(data), 2+2*65)

	var decoded crypto.Signature
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, sig, decoded)
}
