package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec"
)

// PrivateKey is implemented by the two private key types: Ed25519PrivateKey
// and Secp256k1PrivateKey.
type PrivateKey interface {
	// Algorithm returns the curve of the key pair.
	Algorithm() KeyAlgorithm
	// PublicKey returns the tagged public key of the key pair.
	PublicKey() PublicKey
	// Sign returns a signature over the bytes of msg.
	Sign(msg Digest) (Signature, error)
	// Bytes returns the raw secret key.
	Bytes() []byte
}

var _ PrivateKey = Ed25519PrivateKey{}
var _ PrivateKey = Secp256k1PrivateKey{}

// Ed25519PrivateKey signs messages directly with ed25519.
type Ed25519PrivateKey struct {
	key ed25519.PrivateKey
}

func (Ed25519PrivateKey) Algorithm() KeyAlgorithm {
	return Ed25519
}

func (sk Ed25519PrivateKey) PublicKey() PublicKey {
	pub := sk.key.Public().(ed25519.PublicKey)
	return PublicKey{Algorithm: Ed25519, Key: append([]byte{}, pub...)}
}

func (sk Ed25519PrivateKey) Sign(msg Digest) (Signature, error) {
	sig := Signature{Algorithm: Ed25519}
	copy(sig.Sig[:], ed25519.Sign(sk.key, msg[:]))
	return sig, nil
}

// Bytes returns the 32 byte seed.
func (sk Ed25519PrivateKey) Bytes() []byte {
	return sk.key.Seed()
}

// Secp256k1PrivateKey signs the sha256 of messages with ECDSA over secp256k1
// and produces compact r || s signatures.
type Secp256k1PrivateKey struct {
	key *btcec.PrivateKey
}

func (Secp256k1PrivateKey) Algorithm() KeyAlgorithm {
	return Secp256k1
}

func (sk Secp256k1PrivateKey) PublicKey() PublicKey {
	return PublicKey{Algorithm: Secp256k1,
		Key: sk.key.PubKey().SerializeCompressed()}
}

func (sk Secp256k1PrivateKey) Sign(msg Digest) (Signature, error) {
	digest := sha256.Sum256(msg[:])
	ecSig, err := sk.key.Sign(digest[:])
	if err != nil {
		return Signature{}, fmt.Errorf("btcec.PrivateKey.Sign(): %w", err)
	}
	sig := Signature{Algorithm: Secp256k1}
	ecSig.R.FillBytes(sig.Sig[:32])
	ecSig.S.FillBytes(sig.Sig[32:])
	return sig, nil
}

// Bytes returns the 32 byte scalar.
func (sk Secp256k1PrivateKey) Bytes() []byte {
	return sk.key.Serialize()
}

// GenerateKey returns a new random PrivateKey for algo.
func GenerateKey(algo KeyAlgorithm) (PrivateKey, error) {
	switch algo {
	case Ed25519:
		_, key, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		return Ed25519PrivateKey{key: key}, nil
	case Secp256k1:
		key, err := btcec.NewPrivateKey(btcec.S256())
		if err != nil {
			return nil, err
		}
		return Secp256k1PrivateKey{key: key}, nil
	}
	return nil, fmt.Errorf("unknown key algorithm: %v", algo)
}

// PrivateKeyFromBytes returns the PrivateKey for algo from its raw secret.
// Ed25519 accepts a 32 byte seed or a 64 byte seed and public key. Secp256k1
// accepts a 32 byte scalar.
func PrivateKeyFromBytes(algo KeyAlgorithm, raw []byte) (PrivateKey, error) {
	switch algo {
	case Ed25519:
		switch len(raw) {
		case ed25519.SeedSize:
			return Ed25519PrivateKey{key: ed25519.NewKeyFromSeed(raw)}, nil
		case ed25519.PrivateKeySize:
			key := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
			if string(key[ed25519.SeedSize:]) !=
				string(raw[ed25519.SeedSize:]) {
				return nil, fmt.Errorf("ed25519: public key mismatch")
			}
			return Ed25519PrivateKey{key: key}, nil
		}
		return nil, fmt.Errorf("ed25519: invalid secret key length: %v",
			len(raw))
	case Secp256k1:
		if len(raw) != btcec.PrivKeyBytesLen {
			return nil, fmt.Errorf("secp256k1: invalid secret key length: %v",
				len(raw))
		}
		d := new(big.Int).SetBytes(raw)
		if d.Sign() == 0 || d.Cmp(btcec.S256().N) >= 0 {
			return nil, fmt.Errorf("secp256k1: secret key out of range")
		}
		key, _ := btcec.PrivKeyFromBytes(btcec.S256(), raw)
		return Secp256k1PrivateKey{key: key}, nil
	}
	return nil, fmt.Errorf("unknown key algorithm: %v", algo)
}

// ParsePrivateKey parses a hex encoded raw secret for algo.
func ParsePrivateKey(algo KeyAlgorithm, s string) (PrivateKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return PrivateKeyFromBytes(algo, raw)
}

// Sign msg with key.
func Sign(msg Digest, key PrivateKey) (Signature, error) {
	return key.Sign(msg)
}

// Verify returns true if sig is a valid signature by pub over msg. A
// signature and key of different algorithms never verify.
func Verify(msg Digest, sig Signature, pub PublicKey) bool {
	if sig.Algorithm != pub.Algorithm || pub.Validate() != nil {
		return false
	}
	switch pub.Algorithm {
	case Ed25519:
		return ed25519.Verify(ed25519.PublicKey(pub.Key), msg[:], sig.Sig[:])
	case Secp256k1:
		ecPub, err := btcec.ParsePubKey(pub.Key, btcec.S256())
		if err != nil {
			return false
		}
		ecSig := btcec.Signature{
			R: new(big.Int).SetBytes(sig.Sig[:32]),
			S: new(big.Int).SetBytes(sig.Sig[32:]),
		}
		digest := sha256.Sum256(msg[:])
		return ecSig.Verify(digest[:], ecPub)
	}
	return false
}
