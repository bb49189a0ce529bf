package cl_test

import (
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/cspr-tools/cspr/cl"
	"github.com/cspr-tools/cspr/cl/bytesrepr"
	"github.com/cspr-tools/cspr/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	addr = [32]byte{0: 0xaa, 31: 0x01}
	ed   = crypto.PublicKey{Algorithm: crypto.Ed25519, Key: make([]byte, 32)}
	secp = crypto.PublicKey{Algorithm: crypto.Secp256k1,
		Key: append([]byte{0x02}, make([]byte, 32)...)}
)

func maxU128() *big.Int {
	x := new(big.Int).Lsh(big.NewInt(1), 128)
	return x.Sub(x, big.NewInt(1))
}

var roundTripTests = []struct {
	Name  string
	Value cl.Value
	Hex   string
}{{
	Name:  "Bool/true",
	Value: cl.Bool(true),
	Hex:   "01",
}, {
	Name:  "Bool/false",
	Value: cl.Bool(false),
	Hex:   "00",
}, {
	Name:  "I32",
	Value: cl.I32(-1),
	Hex:   "ffffffff",
}, {
	Name:  "I64",
	Value: cl.I64(-2),
	Hex:   "feffffffffffffff",
}, {
	Name:  "U8",
	Value: cl.U8(7),
	Hex:   "07",
}, {
	Name:  "U32",
	Value: cl.U32(0x01020304),
	Hex:   "04030201",
}, {
	Name:  "U64",
	Value: cl.U64(1),
	Hex:   "0100000000000000",
}, {
	Name:  "U128/zero",
	Value: cl.NewU128(new(big.Int)),
	Hex:   "00",
}, {
	Name:  "U128/max",
	Value: cl.NewU128(maxU128()),
	Hex:   "10ffffffffffffffffffffffffffffffff",
}, {
	Name:  "U256",
	Value: cl.NewU256(big.NewInt(256)),
	Hex:   "020001",
}, {
	Name:  "U512",
	Value: cl.U512FromUint64(2500000000),
	Hex:   "0400f90295",
}, {
	Name:  "Unit",
	Value: cl.Unit{},
	Hex:   "",
}, {
	Name:  "String",
	Value: cl.String("hello"),
	Hex:   "0500000068656c6c6f",
}, {
	Name:  "String/empty",
	Value: cl.String(""),
	Hex:   "00000000",
}, {
	Name:  "ByteArray",
	Value: cl.ByteArray{0x01, 0x02, 0x03},
	Hex:   "010203",
}, {
	Name:  "Option/None",
	Value: cl.None(cl.TypeU64),
	Hex:   "00",
}, {
	Name:  "Option/Some",
	Value: cl.Some(cl.U64(5)),
	Hex:   "010500000000000000",
}, {
	Name:  "List",
	Value: cl.NewList(cl.TypeU8, cl.U8(1), cl.U8(2)),
	Hex:   "020000000102",
}, {
	Name:  "List/empty",
	Value: cl.List{Elem: cl.TypeString},
	Hex:   "00000000",
}, {
	Name: "Map",
	Value: cl.Map{KeyType: cl.TypeString, ValueType: cl.TypeU64,
		Entries: []cl.MapEntry{
			{Key: cl.String("b"), Value: cl.U64(2)},
			{Key: cl.String("a"), Value: cl.U64(1)},
		}},
	Hex: "02000000" + "0100000062" + "0200000000000000" +
		"0100000061" + "0100000000000000",
}, {
	Name:  "Tuple1",
	Value: cl.Tuple1{T0: cl.U8(1)},
	Hex:   "01",
}, {
	Name:  "Tuple2",
	Value: cl.Tuple2{T0: cl.U8(1), T1: cl.String("a")},
	Hex:   "01" + "0100000061",
}, {
	Name:  "Tuple3",
	Value: cl.Tuple3{T0: cl.Bool(true), T1: cl.U8(2), T2: cl.Unit{}},
	Hex:   "0102",
}, {
	Name:  "Key/Account",
	Value: cl.Key{Kind: cl.KeyAccount, Addr: addr},
	Hex:   "00" + hex.EncodeToString(addr[:]),
}, {
	Name:  "Key/Hash",
	Value: cl.Key{Kind: cl.KeyHash, Addr: addr},
	Hex:   "01" + hex.EncodeToString(addr[:]),
}, {
	Name:  "URef",
	Value: cl.URef{Addr: addr, Rights: cl.AccessReadAddWrite},
	Hex:   hex.EncodeToString(addr[:]) + "07",
}, {
	Name:  "PublicKey/ed25519",
	Value: cl.PublicKey{Key: ed},
	Hex:   "01" + hex.EncodeToString(ed.Key),
}, {
	Name:  "PublicKey/secp256k1",
	Value: cl.PublicKey{Key: secp},
	Hex:   "02" + hex.EncodeToString(secp.Key),
}, {
	Name: "Nested",
	Value: cl.NewList(cl.OptionOf(cl.ListOf(cl.TypeString)),
		cl.Some(cl.NewList(cl.TypeString, cl.String("x"))),
		cl.None(cl.ListOf(cl.TypeString))),
	Hex: "02000000" + "01" + "01000000" + "0100000078" + "00",
}}

func TestRoundTrip(t *testing.T) {
	for _, test := range roundTripTests {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			data, err := cl.Encode(test.Value)
			require.NoError(err)
			assert.Equal(test.Hex, hex.EncodeToString(data))

			v, err := cl.DecodeAll(data, test.Value.Type())
			require.NoError(err)
			assert.Equal(test.Value, v)

			again, err := cl.Encode(v)
			require.NoError(err)
			assert.Equal(data, again, "encoding must be deterministic")
		})
	}
}

func TestEncodeWithType(t *testing.T) {
	for _, test := range roundTripTests {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			data, err := cl.EncodeWithType(test.Value)
			require.NoError(t, err)
			trailer := []byte{0xff}
			v, rest, err := cl.DecodeWithType(append(data, trailer...))
			require.NoError(t, err)
			assert.Equal(t, test.Value, v)
			assert.Equal(t, trailer, rest)
		})
	}
	t.Run("Layout", func(t *testing.T) {
		data, err := cl.EncodeWithType(cl.U512FromUint64(1))
		require.NoError(t, err)
		assert.Equal(t, "02000000"+"0101"+"08", hex.EncodeToString(data))
	})
}

func TestDecodeMapPreservesOrder(t *testing.T) {
	data, _ := hex.DecodeString("02000000" + "0100000061" + "0100000000000000" +
		"0100000062" + "0200000000000000")
	v, err := cl.DecodeAll(data, cl.MapOf(cl.TypeString, cl.TypeU64))
	require.NoError(t, err)
	m := v.(cl.Map)
	require.Len(t, m.Entries, 2)
	assert.Equal(t, cl.MapEntry{Key: cl.String("a"), Value: cl.U64(1)},
		m.Entries[0])
	assert.Equal(t, cl.MapEntry{Key: cl.String("b"), Value: cl.U64(2)},
		m.Entries[1])
}

func TestEncodeErrors(t *testing.T) {
	tests := []struct {
		Name  string
		Value cl.Value
		Is    error
	}{{
		Name:  "U128/overflow",
		Value: cl.NewU128(new(big.Int).Lsh(big.NewInt(1), 128)),
		Is:    bytesrepr.ErrLengthPrefixOverflow,
	}, {
		Name:  "String/invalid UTF-8",
		Value: cl.String("\xff"),
		Is:    bytesrepr.ErrUTF8Invalid,
	}, {
		Name:  "Key/kind",
		Value: cl.Key{Kind: 3},
		Is:    bytesrepr.ErrUnknownDiscriminant,
	}, {
		Name:  "URef/rights",
		Value: cl.URef{Rights: 8},
		Is:    bytesrepr.ErrUnknownDiscriminant,
	}}
	for _, test := range tests {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			_, err := cl.Encode(test.Value)
			assert.True(t, errors.Is(err, test.Is), "%v", err)
		})
	}
}

func TestTypeMismatch(t *testing.T) {
	tests := []struct {
		Name  string
		Value cl.Value
		Want  cl.Type
		Got   cl.Type
	}{{
		Name:  "List",
		Value: cl.NewList(cl.TypeU8, cl.U8(1), cl.U32(2)),
		Want:  cl.TypeU8,
		Got:   cl.TypeU32,
	}, {
		Name:  "Option",
		Value: cl.Option{Inner: cl.TypeString, Some: cl.Bool(true)},
		Want:  cl.TypeString,
		Got:   cl.TypeBool,
	}, {
		Name: "Map/value",
		Value: cl.Map{KeyType: cl.TypeString, ValueType: cl.TypeU64,
			Entries: []cl.MapEntry{{Key: cl.String("a"), Value: cl.U32(1)}}},
		Want: cl.TypeU64,
		Got:  cl.TypeU32,
	}, {
		Name:  "List/nil item",
		Value: cl.NewList(cl.TypeU8, nil),
		Want:  cl.TypeU8,
		Got:   cl.TypeAny,
	}}
	for _, test := range tests {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			_, err := cl.Encode(test.Value)
			var mismatch *cl.TypeMismatchError
			require.True(t, errors.As(err, &mismatch), "%v", err)
			assert.True(t, test.Want.Equal(mismatch.Want))
			assert.True(t, test.Got.Equal(mismatch.Got))
		})
	}
	t.Run("nil", func(t *testing.T) {
		_, err := cl.Encode(nil)
		assert.EqualError(t, err, "cannot encode nil Value")
	})
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		Name string
		Type cl.Type
		Hex  string
		Is   error
	}{{
		Name: "Bool/invalid",
		Type: cl.TypeBool,
		Hex:  "02",
		Is:   bytesrepr.ErrUnknownDiscriminant,
	}, {
		Name: "U64/short",
		Type: cl.TypeU64,
		Hex:  "01000000",
		Is:   bytesrepr.ErrBufferTooShort,
	}, {
		Name: "U128/too wide",
		Type: cl.TypeU128,
		Hex:  "11" + "0000000000000000000000000000000000",
		Is:   bytesrepr.ErrLengthPrefixOverflow,
	}, {
		Name: "String/negative length",
		Type: cl.TypeString,
		Hex:  "ffffffff",
		Is:   bytesrepr.ErrLengthPrefixOverflow,
	}, {
		Name: "String/invalid UTF-8",
		Type: cl.TypeString,
		Hex:  "01000000ff",
		Is:   bytesrepr.ErrUTF8Invalid,
	}, {
		Name: "Option/flag",
		Type: cl.OptionOf(cl.TypeU8),
		Hex:  "0201",
		Is:   bytesrepr.ErrUnknownDiscriminant,
	}, {
		Name: "List/count",
		Type: cl.ListOf(cl.TypeU64),
		Hex:  "ffffff7f00",
		Is:   bytesrepr.ErrBufferTooShort,
	}, {
		Name: "List/Unit count",
		Type: cl.ListOf(cl.TypeUnit),
		Hex:  "ffffff7f",
		Is:   bytesrepr.ErrLengthPrefixOverflow,
	}, {
		Name: "Key/kind",
		Type: cl.TypeKey,
		Hex:  "03" + hex.EncodeToString(addr[:]),
		Is:   bytesrepr.ErrUnknownDiscriminant,
	}, {
		Name: "URef/rights",
		Type: cl.TypeURef,
		Hex:  hex.EncodeToString(addr[:]) + "08",
		Is:   bytesrepr.ErrUnknownDiscriminant,
	}, {
		Name: "PublicKey/algorithm",
		Type: cl.TypePublicKey,
		Hex:  "03" + hex.EncodeToString(addr[:]),
		Is:   bytesrepr.ErrUnknownDiscriminant,
	}, {
		Name: "Any",
		Type: cl.TypeAny,
		Hex:  "00",
		Is:   cl.ErrUnsupportedType,
	}, {
		Name: "Result",
		Type: cl.ResultOf(cl.TypeU8, cl.TypeString),
		Hex:  "0100",
		Is:   cl.ErrUnsupportedType,
	}, {
		Name: "Nested Any",
		Type: cl.ListOf(cl.TypeAny),
		Hex:  "0100000000",
		Is:   cl.ErrUnsupportedType,
	}}
	for _, test := range tests {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			data, err := hex.DecodeString(test.Hex)
			require.NoError(t, err)
			v, rest, err := cl.Decode(data, test.Type)
			assert.True(t, errors.Is(err, test.Is), "%v", err)
			assert.Nil(t, v)
			assert.Equal(t, data, rest)
		})
	}
}

func TestDecodeAllTrailingBytes(t *testing.T) {
	_, err := cl.DecodeAll([]byte{0x01, 0x00}, cl.TypeU8)
	assert.EqualError(t, err, "U8: 1 trailing bytes")
}

func TestDecodeInvalidType(t *testing.T) {
	_, _, err := cl.Decode([]byte{0x00}, cl.Type{Tag: cl.TagList})
	assert.EqualError(t, err,
		"List: expected 1 type parameters but got 0")
}
