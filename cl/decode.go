package cl

import (
	"fmt"

	"github.com/cspr-tools/cspr/cl/bytesrepr"
	"github.com/cspr-tools/cspr/crypto"
)

// Decode a Value of type t from the front of data and return the remaining
// bytes. On error the returned bytes are data.
func Decode(data []byte, t Type) (Value, []byte, error) {
	if err := t.Validate(); err != nil {
		return nil, data, err
	}
	v, rest, err := decode(data, t)
	if err != nil {
		return nil, data, err
	}
	return v, rest, nil
}

// DecodeAll decodes a Value of type t that must consume all of data.
func DecodeAll(data []byte, t Type) (Value, error) {
	v, rest, err := Decode(data, t)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%v: %v trailing bytes", t, len(rest))
	}
	return v, nil
}

// DecodeWithType decodes the form returned by EncodeWithType.
func DecodeWithType(data []byte) (Value, []byte, error) {
	raw, rest, err := bytesrepr.Bytes(data)
	if err != nil {
		return nil, data, err
	}
	t, rest, err := DecodeType(rest)
	if err != nil {
		return nil, data, err
	}
	v, err := DecodeAll(raw, t)
	if err != nil {
		return nil, data, err
	}
	return v, rest, nil
}

func decode(data []byte, t Type) (Value, []byte, error) {
	switch t.Tag {
	case TagBool:
		v, rest, err := bytesrepr.Bool(data)
		return Bool(v), rest, err
	case TagI32:
		v, rest, err := bytesrepr.I32(data)
		return I32(v), rest, err
	case TagI64:
		v, rest, err := bytesrepr.I64(data)
		return I64(v), rest, err
	case TagU8:
		v, rest, err := bytesrepr.U8(data)
		return U8(v), rest, err
	case TagU32:
		v, rest, err := bytesrepr.U32(data)
		return U32(v), rest, err
	case TagU64:
		v, rest, err := bytesrepr.U64(data)
		return U64(v), rest, err
	case TagU128:
		v, rest, err := bytesrepr.BigUint(data, bytesrepr.U128MaxBytes)
		return U128{Int: v}, rest, err
	case TagU256:
		v, rest, err := bytesrepr.BigUint(data, bytesrepr.U256MaxBytes)
		return U256{Int: v}, rest, err
	case TagU512:
		v, rest, err := bytesrepr.BigUint(data, bytesrepr.U512MaxBytes)
		return U512{Int: v}, rest, err
	case TagUnit:
		return Unit{}, data, nil
	case TagString:
		v, rest, err := bytesrepr.String(data)
		return String(v), rest, err
	case TagByteArray:
		v, rest, err := bytesrepr.Fixed(data, int(t.Size))
		if err != nil {
			return nil, data, err
		}
		return ByteArray(append([]byte{}, v...)), rest, nil
	case TagOption:
		some, rest, err := bytesrepr.Bool(data)
		if err != nil {
			return nil, data, fmt.Errorf("%v: %w", t, err)
		}
		if !some {
			return None(t.Params[0]), rest, nil
		}
		v, rest, err := decode(rest, t.Params[0])
		if err != nil {
			return nil, data, fmt.Errorf("%v: %w", t, err)
		}
		return Option{Inner: t.Params[0], Some: v}, rest, nil
	case TagList:
		elem := t.Params[0]
		n, rest, err := decodeCount(data, elem.minSize())
		if err != nil {
			return nil, data, fmt.Errorf("%v: %w", t, err)
		}
		l := List{Elem: elem}
		if n > 0 {
			l.Items = make([]Value, n)
		}
		for i := range l.Items {
			if l.Items[i], rest, err = decode(rest, elem); err != nil {
				return nil, data, fmt.Errorf("%v[%v]: %w", t, i, err)
			}
		}
		return l, rest, nil
	case TagMap:
		kt, vt := t.Params[0], t.Params[1]
		n, rest, err := decodeCount(data, kt.minSize()+vt.minSize())
		if err != nil {
			return nil, data, fmt.Errorf("%v: %w", t, err)
		}
		m := Map{KeyType: kt, ValueType: vt}
		if n > 0 {
			m.Entries = make([]MapEntry, n)
		}
		for i := range m.Entries {
			e := &m.Entries[i]
			if e.Key, rest, err = decode(rest, kt); err != nil {
				return nil, data, fmt.Errorf("%v[%v].key: %w", t, i, err)
			}
			if e.Value, rest, err = decode(rest, vt); err != nil {
				return nil, data, fmt.Errorf("%v[%v].value: %w", t, i, err)
			}
		}
		return m, rest, nil
	case TagTuple1, TagTuple2, TagTuple3:
		values := make([]Value, len(t.Params))
		rest := data
		var err error
		for i, p := range t.Params {
			if values[i], rest, err = decode(rest, p); err != nil {
				return nil, data, fmt.Errorf("%v.%v: %w", t, i, err)
			}
		}
		switch t.Tag {
		case TagTuple1:
			return Tuple1{T0: values[0]}, rest, nil
		case TagTuple2:
			return Tuple2{T0: values[0], T1: values[1]}, rest, nil
		default:
			return Tuple3{T0: values[0], T1: values[1], T2: values[2]},
				rest, nil
		}
	case TagKey:
		kind, rest, err := bytesrepr.U8(data)
		if err != nil {
			return nil, data, err
		}
		k := Key{Kind: KeyKind(kind)}
		if !k.Kind.valid() {
			return nil, data, fmt.Errorf("%w: key kind %v",
				bytesrepr.ErrUnknownDiscriminant, kind)
		}
		addr, rest, err := bytesrepr.Fixed(rest, AddressSize)
		if err != nil {
			return nil, data, err
		}
		copy(k.Addr[:], addr)
		return k, rest, nil
	case TagURef:
		addr, rest, err := bytesrepr.Fixed(data, AddressSize)
		if err != nil {
			return nil, data, err
		}
		rights, rest, err := bytesrepr.U8(rest)
		if err != nil {
			return nil, data, err
		}
		u := URef{Rights: AccessRights(rights)}
		if !u.Rights.valid() {
			return nil, data, fmt.Errorf("%w: access rights %v",
				bytesrepr.ErrUnknownDiscriminant, rights)
		}
		copy(u.Addr[:], addr)
		return u, rest, nil
	case TagPublicKey:
		pub, rest, err := crypto.DecodePublicKey(data)
		if err != nil {
			return nil, data, err
		}
		return PublicKey{Key: pub}, rest, nil
	case TagAny, TagResult:
		return nil, data, fmt.Errorf("%w: %v", ErrUnsupportedType, t.Tag)
	}
	return nil, data, fmt.Errorf("%w: type tag %v",
		bytesrepr.ErrUnknownDiscriminant, uint8(t.Tag))
}

// maxZeroSizeCount bounds the element count of collections whose elements
// encode to zero bytes, such as List(Unit).
const maxZeroSizeCount = 1 << 20

// decodeCount decodes an element count and rejects counts that cannot fit in
// the remaining bytes given the minimum element size.
func decodeCount(data []byte, minSize int) (int, []byte, error) {
	n, rest, err := bytesrepr.Length(data)
	if err != nil {
		return 0, data, err
	}
	if minSize == 0 && n > maxZeroSizeCount {
		return 0, data, fmt.Errorf("%w: %v zero size elements",
			bytesrepr.ErrLengthPrefixOverflow, n)
	}
	if minSize > 0 && n > len(rest)/minSize {
		return 0, data, fmt.Errorf("%w: %v elements of at least %v bytes",
			bytesrepr.ErrBufferTooShort, n, minSize)
	}
	return n, rest, nil
}
