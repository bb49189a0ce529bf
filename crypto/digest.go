// Package crypto implements content addressing and the two signature schemes
// used by Casper accounts: ed25519 and secp256k1.
package crypto

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// DigestSize is the size of a Digest in bytes.
const DigestSize = blake2b.Size256

// Digest is a blake2b-256 hash. It implements json.Marshaler and
// json.Unmarshaler using hex encoding.
//
// A Digest decoded from JSON or a flag is only a claim. Callers must
// recompute it from the hashed content before trusting it.
type Digest [DigestSize]byte

// Hash returns the blake2b-256 Digest of the concatenation of data.
func Hash(data ...[]byte) Digest {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only possible with an oversized key.
		panic(err)
	}
	for _, d := range data {
		h.Write(d)
	}
	var d Digest
	h.Sum(d[:0])
	return d
}

// ParseDigest parses exactly 32 bytes of hex encoded data.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	if len(s) != len(d)*2 {
		return d, fmt.Errorf("invalid length")
	}
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return d, err
	}
	return d, nil
}

// String returns the hex encoded data of d.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero returns true if d is all zeros.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// UnmarshalJSON unmarshals a string with exactly 32 bytes of hex encoded data.
func (d *Digest) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("%T: expected JSON string", d)
	}
	v, err := ParseDigest(string(data[1 : len(data)-1]))
	if err != nil {
		return fmt.Errorf("%T: %w", d, err)
	}
	*d = v
	return nil
}

// MarshalJSON marshals d into hex encoded data.
func (d Digest) MarshalJSON() ([]byte, error) {
	return bytesMarshalJSON(d[:])
}

// Set implements pflag.Value.
func (d *Digest) Set(s string) error {
	v, err := ParseDigest(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Type implements pflag.Value.
func (Digest) Type() string {
	return "hash"
}

// Bytes implements json.Marshaler and json.Unmarshaler to encode and decode
// strings with hex encoded data, such as module bytes.
type Bytes []byte

// String returns the hex encoded data of b.
func (b Bytes) String() string {
	return hex.EncodeToString(b)
}

// UnmarshalJSON unmarshals a string of hex encoded data.
func (b *Bytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("%T: expected JSON string", b)
	}
	data = data[1 : len(data)-1]
	*b = make(Bytes, hex.DecodedLen(len(data)))
	if _, err := hex.Decode(*b, data); err != nil {
		return fmt.Errorf("%T: %w", b, err)
	}
	return nil
}

// MarshalJSON marshals b into hex encoded data.
func (b Bytes) MarshalJSON() ([]byte, error) {
	return bytesMarshalJSON(b)
}

// bytesMarshalJSON marshals b into hex encoded data.
func bytesMarshalJSON(b []byte) ([]byte, error) {
	l := hex.EncodedLen(len(b)) + 2
	data := make([]byte, l)
	hex.Encode(data[1:], b)
	data[0] = '"'
	data[len(data)-1] = '"'
	return data, nil
}

// hexUnmarshalJSON returns the decoded hex data of the JSON string data.
func hexUnmarshalJSON(data []byte) ([]byte, error) {
	var b Bytes
	if err := b.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return b, nil
}
