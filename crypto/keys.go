package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cspr-tools/cspr/cl/bytesrepr"
)

// KeyAlgorithm identifies the curve of a key pair. Its value is the tag byte
// that prefixes public keys and signatures on the wire.
type KeyAlgorithm uint8

const (
	Ed25519   KeyAlgorithm = 1
	Secp256k1 KeyAlgorithm = 2
)

// SignatureSize is the size of a signature for either algorithm, without the
// tag byte.
const SignatureSize = 64

// ParseKeyAlgorithm parses the case insensitive name of an algorithm.
func ParseKeyAlgorithm(name string) (KeyAlgorithm, error) {
	switch strings.ToLower(name) {
	case "ed25519":
		return Ed25519, nil
	case "secp256k1":
		return Secp256k1, nil
	}
	return 0, fmt.Errorf("unknown key algorithm: %q", name)
}

func (algo KeyAlgorithm) String() string {
	switch algo {
	case Ed25519:
		return "ed25519"
	case Secp256k1:
		return "secp256k1"
	}
	return fmt.Sprintf("KeyAlgorithm(%d)", uint8(algo))
}

// PublicKeySize returns the length of the key material for algo, or 0 if algo
// is unknown.
func (algo KeyAlgorithm) PublicKeySize() int {
	switch algo {
	case Ed25519:
		return 32
	case Secp256k1:
		return 33
	}
	return 0
}

// Set implements pflag.Value.
func (algo *KeyAlgorithm) Set(name string) error {
	a, err := ParseKeyAlgorithm(name)
	if err != nil {
		return err
	}
	*algo = a
	return nil
}

// Type implements pflag.Value.
func (KeyAlgorithm) Type() string {
	return "ed25519|secp256k1"
}

func decodeAlgorithm(data []byte) (KeyAlgorithm, []byte, error) {
	tag, rest, err := bytesrepr.U8(data)
	if err != nil {
		return 0, data, err
	}
	algo := KeyAlgorithm(tag)
	if algo.PublicKeySize() == 0 {
		return 0, data, fmt.Errorf("%w: key algorithm %v",
			bytesrepr.ErrUnknownDiscriminant, tag)
	}
	return algo, rest, nil
}

// PublicKey is an algorithm tagged public key.
type PublicKey struct {
	Algorithm KeyAlgorithm
	Key       []byte
}

// DecodePublicKey decodes the tag byte and key material from the front of
// data and returns the remaining bytes.
func DecodePublicKey(data []byte) (PublicKey, []byte, error) {
	algo, rest, err := decodeAlgorithm(data)
	if err != nil {
		return PublicKey{}, data, err
	}
	key, rest, err := bytesrepr.Fixed(rest, algo.PublicKeySize())
	if err != nil {
		return PublicKey{}, data, err
	}
	return PublicKey{Algorithm: algo, Key: append([]byte{}, key...)}, rest, nil
}

// ParsePublicKey parses the hex encoded tag byte and key material.
func ParsePublicKey(s string) (PublicKey, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, err
	}
	pub, rest, err := DecodePublicKey(data)
	if err != nil {
		return PublicKey{}, err
	}
	if len(rest) > 0 {
		return PublicKey{}, fmt.Errorf("invalid length")
	}
	return pub, nil
}

// Bytes returns the tag byte followed by the key material.
func (pub PublicKey) Bytes() []byte {
	return append([]byte{byte(pub.Algorithm)}, pub.Key...)
}

// String returns the hex encoded Bytes of pub.
func (pub PublicKey) String() string {
	return hex.EncodeToString(pub.Bytes())
}

// IsZero returns true if pub has no algorithm or key material.
func (pub PublicKey) IsZero() bool {
	return pub.Algorithm == 0 && len(pub.Key) == 0
}

// Equal returns true if pub and other are the same key.
func (pub PublicKey) Equal(other PublicKey) bool {
	return pub.Algorithm == other.Algorithm &&
		string(pub.Key) == string(other.Key)
}

// Validate checks the key material length against the algorithm.
func (pub PublicKey) Validate() error {
	size := pub.Algorithm.PublicKeySize()
	if size == 0 {
		return fmt.Errorf("%w: key algorithm %v",
			bytesrepr.ErrUnknownDiscriminant, uint8(pub.Algorithm))
	}
	if len(pub.Key) != size {
		return fmt.Errorf("invalid %v public key length: %v",
			pub.Algorithm, len(pub.Key))
	}
	return nil
}

// AccountHash returns the account hash of pub: the blake2b-256 hash of the
// lower case algorithm name, a zero byte and the key material.
func (pub PublicKey) AccountHash() Digest {
	return Hash([]byte(pub.Algorithm.String()), []byte{0}, pub.Key)
}

// UnmarshalJSON unmarshals a hex encoded tagged public key.
func (pub *PublicKey) UnmarshalJSON(data []byte) error {
	b, err := hexUnmarshalJSON(data)
	if err != nil {
		return err
	}
	v, rest, err := DecodePublicKey(b)
	if err != nil {
		return fmt.Errorf("%T: %w", pub, err)
	}
	if len(rest) > 0 {
		return fmt.Errorf("%T: invalid length", pub)
	}
	*pub = v
	return nil
}

// MarshalJSON marshals pub into hex encoded data.
func (pub PublicKey) MarshalJSON() ([]byte, error) {
	return bytesMarshalJSON(pub.Bytes())
}

// Set implements pflag.Value.
func (pub *PublicKey) Set(s string) error {
	v, err := ParsePublicKey(s)
	if err != nil {
		return err
	}
	*pub = v
	return nil
}

// Type implements pflag.Value.
func (PublicKey) Type() string {
	return "public key"
}

// Signature is an algorithm tagged 64 byte signature.
type Signature struct {
	Algorithm KeyAlgorithm
	Sig       [SignatureSize]byte
}

// DecodeSignature decodes the tag byte and signature from the front of data
// and returns the remaining bytes.
func DecodeSignature(data []byte) (Signature, []byte, error) {
	algo, rest, err := decodeAlgorithm(data)
	if err != nil {
		return Signature{}, data, err
	}
	raw, rest, err := bytesrepr.Fixed(rest, SignatureSize)
	if err != nil {
		return Signature{}, data, err
	}
	sig := Signature{Algorithm: algo}
	copy(sig.Sig[:], raw)
	return sig, rest, nil
}

// Bytes returns the tag byte followed by the signature.
func (sig Signature) Bytes() []byte {
	return append([]byte{byte(sig.Algorithm)}, sig.Sig[:]...)
}

// String returns the hex encoded Bytes of sig.
func (sig Signature) String() string {
	return hex.EncodeToString(sig.Bytes())
}

// UnmarshalJSON unmarshals a hex encoded tagged signature.
func (sig *Signature) UnmarshalJSON(data []byte) error {
	b, err := hexUnmarshalJSON(data)
	if err != nil {
		return err
	}
	v, rest, err := DecodeSignature(b)
	if err != nil {
		return fmt.Errorf("%T: %w", sig, err)
	}
	if len(rest) > 0 {
		return fmt.Errorf("%T: invalid length", sig)
	}
	*sig = v
	return nil
}

// MarshalJSON marshals sig into hex encoded data.
func (sig Signature) MarshalJSON() ([]byte, error) {
	return bytesMarshalJSON(sig.Bytes())
}
