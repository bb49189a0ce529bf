// MIT License
//
// Copyright 2018 Canonical Ledgers, LLC
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS
// IN THE SOFTWARE.

package cl

import (
	"encoding/json"
	"fmt"
)

type jsonMapType struct {
	Key   Type `json:"key"`
	Value Type `json:"value"`
}

type jsonResultType struct {
	Ok  Type `json:"ok"`
	Err Type `json:"err"`
}

// MarshalJSON renders scalar types as bare strings, such as "U64", and
// parametric types as single key objects, such as {"ByteArray":32} or
// {"Map":{"key":"String","value":"U64"}}.
func (t Type) MarshalJSON() ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	var v interface{}
	switch t.Tag {
	case TagOption, TagList:
		v = t.Params[0]
	case TagByteArray:
		v = t.Size
	case TagMap:
		v = jsonMapType{Key: t.Params[0], Value: t.Params[1]}
	case TagResult:
		v = jsonResultType{Ok: t.Params[0], Err: t.Params[1]}
	case TagTuple1, TagTuple2, TagTuple3:
		v = t.Params
	default:
		return json.Marshal(t.Tag.String())
	}
	return json.Marshal(map[string]interface{}{t.Tag.String(): v})
}

var scalarTypes = func() map[string]Type {
	m := make(map[string]Type)
	for _, t := range []Type{TypeBool, TypeI32, TypeI64, TypeU8, TypeU32,
		TypeU64, TypeU128, TypeU256, TypeU512, TypeUnit, TypeString,
		TypeKey, TypeURef, TypePublicKey, TypeAny} {
		m[t.Tag.String()] = t
	}
	return m
}()

// UnmarshalJSON parses the forms produced by MarshalJSON.
func (t *Type) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		scalar, ok := scalarTypes[name]
		if !ok {
			return fmt.Errorf("%T: unknown type %q", t, name)
		}
		*t = scalar
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("%T: expected JSON string or object", t)
	}
	if len(obj) != 1 {
		return fmt.Errorf("%T: expected a single key object", t)
	}
	for name, raw := range obj {
		parsed, err := unmarshalParametric(name, raw)
		if err != nil {
			return fmt.Errorf("%T: %v: %w", t, name, err)
		}
		if err := parsed.Validate(); err != nil {
			return fmt.Errorf("%T: %w", t, err)
		}
		*t = parsed
	}
	return nil
}

func unmarshalParametric(name string, raw json.RawMessage) (Type, error) {
	switch name {
	case "Option", "List":
		var inner Type
		if err := json.Unmarshal(raw, &inner); err != nil {
			return Type{}, err
		}
		if name == "Option" {
			return OptionOf(inner), nil
		}
		return ListOf(inner), nil
	case "ByteArray":
		var size uint32
		if err := json.Unmarshal(raw, &size); err != nil {
			return Type{}, err
		}
		return ByteArrayOf(size), nil
	case "Map":
		var m jsonMapType
		if err := json.Unmarshal(raw, &m); err != nil {
			return Type{}, err
		}
		return MapOf(m.Key, m.Value), nil
	case "Result":
		var r jsonResultType
		if err := json.Unmarshal(raw, &r); err != nil {
			return Type{}, err
		}
		return ResultOf(r.Ok, r.Err), nil
	case "Tuple1", "Tuple2", "Tuple3":
		var params []Type
		if err := json.Unmarshal(raw, &params); err != nil {
			return Type{}, err
		}
		tag := map[string]TypeTag{
			"Tuple1": TagTuple1, "Tuple2": TagTuple2, "Tuple3": TagTuple3,
		}[name]
		return Type{Tag: tag, Params: params}, nil
	}
	return Type{}, fmt.Errorf("unknown type")
}
