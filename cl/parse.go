package cl

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/cspr-tools/cspr/crypto"
)

// ParseTypeName parses a type name as written on a command line: any scalar
// type name, "ByteArray(N)", "Option(T)" or "List(T)".
func ParseTypeName(name string) (Type, error) {
	name = strings.TrimSpace(name)
	if t, ok := scalarTypes[name]; ok {
		return t, nil
	}
	open := strings.IndexByte(name, '(')
	if open < 0 || !strings.HasSuffix(name, ")") {
		return Type{}, fmt.Errorf("unknown type %q", name)
	}
	inner := name[open+1 : len(name)-1]
	switch name[:open] {
	case "ByteArray":
		size, err := strconv.ParseUint(inner, 10, 32)
		if err != nil {
			return Type{}, fmt.Errorf("ByteArray size: %w", err)
		}
		return ByteArrayOf(uint32(size)), nil
	case "Option", "List":
		t, err := ParseTypeName(inner)
		if err != nil {
			return Type{}, err
		}
		if name[:open] == "Option" {
			return OptionOf(t), nil
		}
		return ListOf(t), nil
	}
	return Type{}, fmt.Errorf("unknown type %q", name)
}

// ParseSimple parses s as a Value of type t. Lists are comma separated and
// an empty string is None for an Option.
func ParseSimple(t Type, s string) (Value, error) {
	switch t.Tag {
	case TagBool:
		b, err := strconv.ParseBool(s)
		return Bool(b), err
	case TagI32:
		i, err := strconv.ParseInt(s, 10, 32)
		return I32(i), err
	case TagI64:
		i, err := strconv.ParseInt(s, 10, 64)
		return I64(i), err
	case TagU8:
		u, err := strconv.ParseUint(s, 10, 8)
		return U8(u), err
	case TagU32:
		u, err := strconv.ParseUint(s, 10, 32)
		return U32(u), err
	case TagU64:
		u, err := strconv.ParseUint(s, 10, 64)
		return U64(u), err
	case TagU128, TagU256, TagU512:
		x, ok := new(big.Int).SetString(s, 10)
		if !ok || x.Sign() < 0 {
			return nil, fmt.Errorf("%v: invalid unsigned integer %q", t, s)
		}
		var v Value
		switch t.Tag {
		case TagU128:
			v = U128{Int: x}
		case TagU256:
			v = U256{Int: x}
		default:
			v = U512{Int: x}
		}
		// Reject values too large for the width.
		if _, err := Encode(v); err != nil {
			return nil, err
		}
		return v, nil
	case TagUnit:
		if s != "" {
			return nil, fmt.Errorf("Unit: expected empty value")
		}
		return Unit{}, nil
	case TagString:
		return String(s), nil
	case TagByteArray:
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, err
		}
		if len(b) != int(t.Size) {
			return nil, fmt.Errorf("%v: invalid length %v", t, len(b))
		}
		return ByteArray(b), nil
	case TagKey:
		return ParseKey(s)
	case TagURef:
		return ParseURef(s)
	case TagPublicKey:
		pub, err := crypto.ParsePublicKey(s)
		if err != nil {
			return nil, err
		}
		return PublicKey{Key: pub}, nil
	case TagOption:
		if s == "" {
			return None(t.Params[0]), nil
		}
		v, err := ParseSimple(t.Params[0], s)
		if err != nil {
			return nil, err
		}
		return Option{Inner: t.Params[0], Some: v}, nil
	case TagList:
		l := List{Elem: t.Params[0]}
		if s == "" {
			return l, nil
		}
		for _, item := range strings.Split(s, ",") {
			v, err := ParseSimple(l.Elem, item)
			if err != nil {
				return nil, err
			}
			l.Items = append(l.Items, v)
		}
		return l, nil
	}
	return nil, fmt.Errorf("%v: cannot be parsed from a string", t)
}
