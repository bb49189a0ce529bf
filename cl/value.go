package cl

import (
	"math/big"

	"github.com/cspr-tools/cspr/crypto"
)

// Value is a typed CL value. The set of implementations is closed; it is
// exactly the concrete types declared in this file.
//
// There are no values of the Any and Result types.
type Value interface {
	// Type returns the Type the value encodes as.
	Type() Type
	isValue()
}

type (
	Bool   bool
	I32    int32
	I64    int64
	U8     uint8
	U32    uint32
	U64    uint64
	String string

	// Unit is the empty value. It encodes to zero bytes.
	Unit struct{}

	// ByteArray is a fixed length byte array. Its length is part of its
	// Type and is not encoded.
	ByteArray []byte
)

// U128 is an unsigned integer of at most 128 bits. A nil Int is zero.
type U128 struct{ Int *big.Int }

// U256 is an unsigned integer of at most 256 bits. A nil Int is zero.
type U256 struct{ Int *big.Int }

// U512 is an unsigned integer of at most 512 bits. A nil Int is zero.
type U512 struct{ Int *big.Int }

// NewU128 returns a U128 holding a copy of x.
func NewU128(x *big.Int) U128 { return U128{Int: copyInt(x)} }

// NewU256 returns a U256 holding a copy of x.
func NewU256(x *big.Int) U256 { return U256{Int: copyInt(x)} }

// NewU512 returns a U512 holding a copy of x.
func NewU512(x *big.Int) U512 { return U512{Int: copyInt(x)} }

// U512FromUint64 returns x as a U512. Most token amounts are built this way.
func U512FromUint64(x uint64) U512 {
	return U512{Int: new(big.Int).SetUint64(x)}
}

func copyInt(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}

// Option holds zero or one value of type Inner. Some is nil for None.
type Option struct {
	Inner Type
	Some  Value
}

// Some returns an Option holding v.
func Some(v Value) Option {
	return Option{Inner: v.Type(), Some: v}
}

// None returns an empty Option of type inner.
func None(inner Type) Option {
	return Option{Inner: inner}
}

// IsNone returns true if o holds no value.
func (o Option) IsNone() bool {
	return o.Some == nil
}

// List is an ordered sequence of values of type Elem.
type List struct {
	Elem  Type
	Items []Value
}

// NewList returns a List of elem holding items.
func NewList(elem Type, items ...Value) List {
	return List{Elem: elem, Items: items}
}

// MapEntry is a single key value pair of a Map.
type MapEntry struct {
	Key   Value
	Value Value
}

// Map is an ordered sequence of key value pairs. Insertion order is preserved
// and duplicate keys are permitted.
type Map struct {
	KeyType   Type
	ValueType Type
	Entries   []MapEntry
}

// Append adds an entry to the end of m.
func (m *Map) Append(key, value Value) {
	m.Entries = append(m.Entries, MapEntry{Key: key, Value: value})
}

type Tuple1 struct{ T0 Value }
type Tuple2 struct{ T0, T1 Value }
type Tuple3 struct{ T0, T1, T2 Value }

// PublicKey wraps a crypto.PublicKey as a CL value.
type PublicKey struct {
	Key crypto.PublicKey
}

func (Bool) Type() Type      { return TypeBool }
func (I32) Type() Type       { return TypeI32 }
func (I64) Type() Type       { return TypeI64 }
func (U8) Type() Type        { return TypeU8 }
func (U32) Type() Type       { return TypeU32 }
func (U64) Type() Type       { return TypeU64 }
func (U128) Type() Type      { return TypeU128 }
func (U256) Type() Type      { return TypeU256 }
func (U512) Type() Type      { return TypeU512 }
func (Unit) Type() Type      { return TypeUnit }
func (String) Type() Type    { return TypeString }
func (Key) Type() Type       { return TypeKey }
func (URef) Type() Type      { return TypeURef }
func (PublicKey) Type() Type { return TypePublicKey }

func (v ByteArray) Type() Type { return ByteArrayOf(uint32(len(v))) }
func (v Option) Type() Type    { return OptionOf(v.Inner) }
func (v List) Type() Type      { return ListOf(v.Elem) }
func (v Map) Type() Type       { return MapOf(v.KeyType, v.ValueType) }
func (v Tuple1) Type() Type    { return Tuple1Of(typeOf(v.T0)) }
func (v Tuple2) Type() Type    { return Tuple2Of(typeOf(v.T0), typeOf(v.T1)) }
func (v Tuple3) Type() Type {
	return Tuple3Of(typeOf(v.T0), typeOf(v.T1), typeOf(v.T2))
}

// typeOf returns TypeAny for a nil Value so that a malformed tuple fails to
// encode instead of panicking.
func typeOf(v Value) Type {
	if v == nil {
		return TypeAny
	}
	return v.Type()
}

func (Bool) isValue()      {}
func (I32) isValue()       {}
func (I64) isValue()       {}
func (U8) isValue()        {}
func (U32) isValue()       {}
func (U64) isValue()       {}
func (U128) isValue()      {}
func (U256) isValue()      {}
func (U512) isValue()      {}
func (Unit) isValue()      {}
func (String) isValue()    {}
func (ByteArray) isValue() {}
func (Option) isValue()    {}
func (List) isValue()      {}
func (Map) isValue()       {}
func (Tuple1) isValue()    {}
func (Tuple2) isValue()    {}
func (Tuple3) isValue()    {}
func (Key) isValue()       {}
func (URef) isValue()      {}
func (PublicKey) isValue() {}
