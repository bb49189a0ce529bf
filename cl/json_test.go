package cl_test

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/cspr-tools/cspr/cl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeJSON(t *testing.T) {
	tests := []struct {
		Type cl.Type
		JSON string
	}{
		{cl.TypeU512, `"U512"`},
		{cl.TypePublicKey, `"PublicKey"`},
		{cl.ByteArrayOf(32), `{"ByteArray":32}`},
		{cl.OptionOf(cl.ListOf(cl.TypeU8)), `{"Option":{"List":"U8"}}`},
		{cl.MapOf(cl.TypeString, cl.TypeU64),
			`{"Map":{"key":"String","value":"U64"}}`},
		{cl.ResultOf(cl.TypeUnit, cl.TypeString),
			`{"Result":{"ok":"Unit","err":"String"}}`},
		{cl.Tuple2Of(cl.TypeU8, cl.TypeString), `{"Tuple2":["U8","String"]}`},
	}
	for _, test := range tests {
		test := test
		t.Run(test.Type.String(), func(t *testing.T) {
			data, err := json.Marshal(test.Type)
			require.NoError(t, err)
			assert.JSONEq(t, test.JSON, string(data))

			var typ cl.Type
			require.NoError(t, json.Unmarshal(data, &typ))
			assert.True(t, test.Type.Equal(typ), "%v != %v", test.Type, typ)
		})
	}
}

func TestTypeUnmarshalJSONErrors(t *testing.T) {
	tests := []struct {
		Name  string
		JSON  string
		Error string
	}{{
		Name:  "UnknownScalar",
		JSON:  `"U9"`,
		Error: `*cl.Type: unknown type "U9"`,
	}, {
		Name:  "InvalidType",
		JSON:  `5`,
		Error: "*cl.Type: expected JSON string or object",
	}, {
		Name:  "MultipleKeys",
		JSON:  `{"List":"U8","Option":"U8"}`,
		Error: "*cl.Type: expected a single key object",
	}, {
		Name:  "WrongArity",
		JSON:  `{"Tuple2":["U8"]}`,
		Error: "*cl.Type: Tuple2: expected 2 type parameters but got 1",
	}}
	for _, test := range tests {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			var typ cl.Type
			assert.EqualError(t, json.Unmarshal([]byte(test.JSON), &typ),
				test.Error)
		})
	}
}

func TestCLValueJSON(t *testing.T) {
	m := cl.Map{KeyType: cl.TypeString, ValueType: cl.TypeU64}
	m.Append(cl.String("a"), cl.U64(1))
	tests := []struct {
		Name  string
		Value cl.Value
		JSON  string
	}{{
		Name:  "U512",
		Value: cl.U512FromUint64(2500000000),
		JSON:  `{"cl_type":"U512","bytes":"0400f90295","parsed":"2500000000"}`,
	}, {
		Name:  "U128/zero",
		Value: cl.U128{},
		JSON:  `{"cl_type":"U128","bytes":"00","parsed":"0"}`,
	}, {
		Name:  "Option/None",
		Value: cl.None(cl.TypeU64),
		JSON:  `{"cl_type":{"Option":"U64"},"bytes":"00","parsed":null}`,
	}, {
		Name:  "Map",
		Value: m,
		JSON: `{"cl_type":{"Map":{"key":"String","value":"U64"}},` +
			`"bytes":"0100000001000000610100000000000000",` +
			`"parsed":[{"key":"a","value":1}]}`,
	}, {
		Name:  "ByteArray",
		Value: cl.ByteArray{0xca, 0xfe},
		JSON:  `{"cl_type":{"ByteArray":2},"bytes":"cafe","parsed":"cafe"}`,
	}, {
		Name:  "URef",
		Value: cl.URef{Addr: addr, Rights: cl.AccessReadAddWrite},
		JSON: `{"cl_type":"URef","bytes":"` + hexAddr() + `07",` +
			`"parsed":"uref-` + hexAddr() + `-007"}`,
	}, {
		Name:  "Key",
		Value: cl.Key{Kind: cl.KeyAccount, Addr: addr},
		JSON: `{"cl_type":"Key","bytes":"00` + hexAddr() + `",` +
			`"parsed":"account-hash-` + hexAddr() + `"}`,
	}}
	for _, test := range tests {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			c, err := cl.ToJSON(test.Value)
			require.NoError(t, err)
			data, err := json.Marshal(c)
			require.NoError(t, err)
			assert.JSONEq(t, test.JSON, string(data))

			var back cl.CLValueJSON
			require.NoError(t, json.Unmarshal(data, &back))
			v, err := back.Value()
			require.NoError(t, err)
			want, _ := cl.Encode(test.Value)
			got, _ := cl.Encode(v)
			assert.Equal(t, want, got)
		})
	}
}

func TestCLValueJSONIgnoresParsed(t *testing.T) {
	var c cl.CLValueJSON
	require.NoError(t, json.Unmarshal(
		[]byte(`{"cl_type":"U8","bytes":"07","parsed":"nonsense"}`), &c))
	v, err := c.Value()
	require.NoError(t, err)
	assert.Equal(t, cl.U8(7), v)
}

func TestCLValueJSONTrailingBytes(t *testing.T) {
	var c cl.CLValueJSON
	require.NoError(t, json.Unmarshal(
		[]byte(`{"cl_type":"U8","bytes":"0700"}`), &c))
	_, err := c.Value()
	assert.EqualError(t, err, "clvalue: U8: 1 trailing bytes")
}

func TestParseTypeName(t *testing.T) {
	tests := []struct {
		Name string
		Type cl.Type
	}{
		{"U512", cl.TypeU512},
		{"PublicKey", cl.TypePublicKey},
		{"ByteArray(32)", cl.ByteArrayOf(32)},
		{"Option(U64)", cl.OptionOf(cl.TypeU64)},
		{"List(Option(String))", cl.ListOf(cl.OptionOf(cl.TypeString))},
	}
	for _, test := range tests {
		typ, err := cl.ParseTypeName(test.Name)
		require.NoError(t, err, test.Name)
		assert.True(t, test.Type.Equal(typ), test.Name)
	}
	for _, name := range []string{"u512", "Map(String)", "ByteArray(x)", ""} {
		_, err := cl.ParseTypeName(name)
		assert.Error(t, err, name)
	}
}

func TestParseSimple(t *testing.T) {
	tests := []struct {
		Type  cl.Type
		Input string
		Value cl.Value
	}{
		{cl.TypeBool, "true", cl.Bool(true)},
		{cl.TypeI32, "-5", cl.I32(-5)},
		{cl.TypeU64, "18446744073709551615", cl.U64(1<<64 - 1)},
		{cl.TypeU512, "2500000000", cl.U512FromUint64(2500000000)},
		{cl.TypeString, "hello", cl.String("hello")},
		{cl.TypeUnit, "", cl.Unit{}},
		{cl.ByteArrayOf(2), "cafe", cl.ByteArray{0xca, 0xfe}},
		{cl.OptionOf(cl.TypeU8), "", cl.None(cl.TypeU8)},
		{cl.OptionOf(cl.TypeU8), "3", cl.Some(cl.U8(3))},
		{cl.ListOf(cl.TypeU8), "1,2", cl.NewList(cl.TypeU8, cl.U8(1), cl.U8(2))},
		{cl.TypeKey, "hash-" + hexAddr(), cl.Key{Kind: cl.KeyHash, Addr: addr}},
		{cl.TypeURef, "uref-" + hexAddr() + "-003",
			cl.URef{Addr: addr, Rights: cl.AccessReadWrite}},
	}
	for _, test := range tests {
		v, err := cl.ParseSimple(test.Type, test.Input)
		require.NoError(t, err, "%v %q", test.Type, test.Input)
		assert.Equal(t, test.Value, v, "%v %q", test.Type, test.Input)
	}

	errs := []struct {
		Type  cl.Type
		Input string
	}{
		{cl.TypeU8, "256"},
		{cl.TypeU512, "-1"},
		{cl.TypeU128, new(big.Int).Lsh(big.NewInt(1), 128).String()},
		{cl.ByteArrayOf(3), "cafe"},
		{cl.TypeUnit, "x"},
		{cl.MapOf(cl.TypeString, cl.TypeU8), "a"},
		{cl.TypeURef, "uref-" + hexAddr() + "-010"},
	}
	for _, test := range errs {
		_, err := cl.ParseSimple(test.Type, test.Input)
		assert.Error(t, err, "%v %q", test.Type, test.Input)
	}
}

func TestKeyFormat(t *testing.T) {
	for _, k := range []cl.Key{
		{Kind: cl.KeyAccount, Addr: addr},
		{Kind: cl.KeyHash, Addr: addr},
		{Kind: cl.KeyURef, Addr: addr},
	} {
		parsed, err := cl.ParseKey(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := cl.ParseKey("balance-" + hexAddr())
	assert.Error(t, err)
	_, err = cl.ParseKey("hash-00")
	assert.EqualError(t, err, "key: invalid length")

	u := cl.URef{Addr: addr, Rights: cl.AccessAdd}
	assert.Equal(t, "uref-"+hexAddr()+"-004", u.String())
	parsed, err := cl.ParseURef(u.String())
	require.NoError(t, err)
	assert.Equal(t, u, parsed)
}

func TestURefText(t *testing.T) {
	type account struct {
		Hash      cl.Key  `json:"account_hash"`
		MainPurse cl.URef `json:"main_purse"`
	}
	data := `{"account_hash":"account-hash-` + hexAddr() +
		`","main_purse":"uref-` + hexAddr() + `-007"}`

	var a account
	require.NoError(t, json.Unmarshal([]byte(data), &a))
	assert.Equal(t, cl.Key{Kind: cl.KeyAccount, Addr: addr}, a.Hash)
	assert.Equal(t, cl.URef{Addr: addr, Rights: cl.AccessReadAddWrite},
		a.MainPurse)

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, data, string(out))

	assert.Error(t, json.Unmarshal(
		[]byte(`{"main_purse":"uref-00-007"}`), &a))
	_, err = json.Marshal(cl.URef{Rights: 0o10})
	assert.Error(t, err)
}

func hexAddr() string {
	return hex.EncodeToString(addr[:])
}
