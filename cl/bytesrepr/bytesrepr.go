// Package bytesrepr implements the canonical little-endian byte
// representation of Casper primitives.
//
// Fixed width integers are little-endian. Big unsigned integers (U128, U256,
// U512) are a single length byte followed by that many significant
// little-endian bytes, so zero is the single byte 0x00. Strings and byte
// lists carry a 4 byte little-endian length prefix.
//
// Encoders append to dst and return the extended slice. Decoders consume a
// prefix of data and return the decoded value and the remaining suffix.
package bytesrepr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	"unicode/utf8"
)

// Decode errors. Every decode failure wraps one of these.
var (
	ErrBufferTooShort       = errors.New("buffer too short")
	ErrUnknownDiscriminant  = errors.New("unknown discriminant")
	ErrLengthPrefixOverflow = errors.New("length prefix overflow")
	ErrUTF8Invalid          = errors.New("invalid utf-8")

	ErrInvalidBool = fmt.Errorf("%w: bool must be 0 or 1",
		ErrUnknownDiscriminant)
	ErrNonCanonical = fmt.Errorf("%w: most significant byte is zero",
		ErrLengthPrefixOverflow)
)

// Sizes of the fixed width primitives.
const (
	U8Size  = 1
	U32Size = 4
	U64Size = 8

	U128MaxBytes = 16
	U256MaxBytes = 32
	U512MaxBytes = 64
)

func AppendU8(dst []byte, v uint8) []byte {
	return append(dst, v)
}

func AppendU32(dst []byte, v uint32) []byte {
	var buf [U32Size]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

func AppendU64(dst []byte, v uint64) []byte {
	var buf [U64Size]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

func AppendI32(dst []byte, v int32) []byte {
	return AppendU32(dst, uint32(v))
}

func AppendI64(dst []byte, v int64) []byte {
	return AppendU64(dst, uint64(v))
}

func AppendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 1)
	}
	return append(dst, 0)
}

// AppendLength appends n as an i32 length prefix.
func AppendLength(dst []byte, n int) ([]byte, error) {
	if n < 0 || n > math.MaxInt32 {
		return dst, fmt.Errorf("%w: %v", ErrLengthPrefixOverflow, n)
	}
	return AppendI32(dst, int32(n)), nil
}

// AppendBigUint appends the length prefixed little-endian representation of
// n. An n that is negative or does not fit in maxBytes fails with
// ErrLengthPrefixOverflow.
func AppendBigUint(dst []byte, n *big.Int, maxBytes int) ([]byte, error) {
	if n == nil {
		return append(dst, 0), nil
	}
	if n.Sign() < 0 {
		return dst, fmt.Errorf("%w: negative value", ErrLengthPrefixOverflow)
	}
	be := n.Bytes()
	if len(be) > maxBytes {
		return dst, fmt.Errorf("%w: %v bytes exceeds %v",
			ErrLengthPrefixOverflow, len(be), maxBytes)
	}
	dst = append(dst, uint8(len(be)))
	for i := len(be) - 1; i >= 0; i-- {
		dst = append(dst, be[i])
	}
	return dst, nil
}

// AppendBytes appends data with an i32 length prefix.
func AppendBytes(dst []byte, data []byte) ([]byte, error) {
	dst, err := AppendLength(dst, len(data))
	if err != nil {
		return dst, err
	}
	return append(dst, data...), nil
}

// AppendString appends the UTF-8 bytes of s with an i32 length prefix.
func AppendString(dst []byte, s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return dst, ErrUTF8Invalid
	}
	return AppendBytes(dst, []byte(s))
}

// Fixed returns the first n bytes of data.
func Fixed(data []byte, n int) ([]byte, []byte, error) {
	if len(data) < n {
		return nil, data, fmt.Errorf("%w: need %v bytes, have %v",
			ErrBufferTooShort, n, len(data))
	}
	return data[:n], data[n:], nil
}

func U8(data []byte) (uint8, []byte, error) {
	b, rest, err := Fixed(data, U8Size)
	if err != nil {
		return 0, data, err
	}
	return b[0], rest, nil
}

func U32(data []byte) (uint32, []byte, error) {
	b, rest, err := Fixed(data, U32Size)
	if err != nil {
		return 0, data, err
	}
	return binary.LittleEndian.Uint32(b), rest, nil
}

func U64(data []byte) (uint64, []byte, error) {
	b, rest, err := Fixed(data, U64Size)
	if err != nil {
		return 0, data, err
	}
	return binary.LittleEndian.Uint64(b), rest, nil
}

func I32(data []byte) (int32, []byte, error) {
	v, rest, err := U32(data)
	return int32(v), rest, err
}

func I64(data []byte) (int64, []byte, error) {
	v, rest, err := U64(data)
	return int64(v), rest, err
}

// Bool decodes a single byte which must be exactly 0 or 1.
func Bool(data []byte) (bool, []byte, error) {
	b, rest, err := U8(data)
	if err != nil {
		return false, data, err
	}
	switch b {
	case 0:
		return false, rest, nil
	case 1:
		return true, rest, nil
	}
	return false, data, fmt.Errorf("%w: 0x%02x", ErrInvalidBool, b)
}

// Length decodes an i32 length prefix. Negative lengths fail with
// ErrLengthPrefixOverflow.
func Length(data []byte) (int, []byte, error) {
	n, rest, err := I32(data)
	if err != nil {
		return 0, data, err
	}
	if n < 0 {
		return 0, data, fmt.Errorf("%w: negative length %v",
			ErrLengthPrefixOverflow, n)
	}
	return int(n), rest, nil
}

// BigUint decodes a length prefixed little-endian unsigned integer of at most
// maxBytes significant bytes.
func BigUint(data []byte, maxBytes int) (*big.Int, []byte, error) {
	n, rest, err := U8(data)
	if err != nil {
		return nil, data, err
	}
	if int(n) > maxBytes {
		return nil, data, fmt.Errorf("%w: %v bytes exceeds %v",
			ErrLengthPrefixOverflow, n, maxBytes)
	}
	le, rest, err := Fixed(rest, int(n))
	if err != nil {
		return nil, data, err
	}
	if n > 0 && le[n-1] == 0 {
		return nil, data, ErrNonCanonical
	}
	be := make([]byte, len(le))
	for i := range le {
		be[len(be)-1-i] = le[i]
	}
	return new(big.Int).SetBytes(be), rest, nil
}

// Bytes decodes an i32 length prefixed byte list. The returned slice is a
// copy.
func Bytes(data []byte) ([]byte, []byte, error) {
	n, rest, err := Length(data)
	if err != nil {
		return nil, data, err
	}
	b, rest, err := Fixed(rest, n)
	if err != nil {
		return nil, data, err
	}
	return append([]byte{}, b...), rest, nil
}

// String decodes an i32 length prefixed UTF-8 string.
func String(data []byte) (string, []byte, error) {
	b, rest, err := Bytes(data)
	if err != nil {
		return "", data, err
	}
	if !utf8.Valid(b) {
		return "", data, ErrUTF8Invalid
	}
	return string(b), rest, nil
}
