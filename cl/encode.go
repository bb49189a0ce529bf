package cl

import (
	"errors"
	"fmt"

	"github.com/cspr-tools/cspr/cl/bytesrepr"
)

// ErrUnsupportedType is returned when decoding the Any or Result types.
var ErrUnsupportedType = errors.New("unsupported type")

// TypeMismatchError is returned when a Value does not match the Type it is
// declared to hold, such as a List item of the wrong type.
type TypeMismatchError struct {
	Want Type
	Got  Type
}

func (err *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: want %v, got %v", err.Want, err.Got)
}

func checkType(want Type, v Value) error {
	if v == nil {
		return &TypeMismatchError{Want: want, Got: TypeAny}
	}
	if got := v.Type(); !want.Equal(got) {
		return &TypeMismatchError{Want: want, Got: got}
	}
	return nil
}

// Encode returns the binary encoding of v.
func Encode(v Value) ([]byte, error) {
	return AppendValue(nil, v)
}

// AppendValue appends the binary encoding of v to dst.
func AppendValue(dst []byte, v Value) ([]byte, error) {
	switch v := v.(type) {
	case Bool:
		return bytesrepr.AppendBool(dst, bool(v)), nil
	case I32:
		return bytesrepr.AppendI32(dst, int32(v)), nil
	case I64:
		return bytesrepr.AppendI64(dst, int64(v)), nil
	case U8:
		return bytesrepr.AppendU8(dst, uint8(v)), nil
	case U32:
		return bytesrepr.AppendU32(dst, uint32(v)), nil
	case U64:
		return bytesrepr.AppendU64(dst, uint64(v)), nil
	case U128:
		return bytesrepr.AppendBigUint(dst, v.Int, bytesrepr.U128MaxBytes)
	case U256:
		return bytesrepr.AppendBigUint(dst, v.Int, bytesrepr.U256MaxBytes)
	case U512:
		return bytesrepr.AppendBigUint(dst, v.Int, bytesrepr.U512MaxBytes)
	case Unit:
		return dst, nil
	case String:
		return bytesrepr.AppendString(dst, string(v))
	case ByteArray:
		return append(dst, v...), nil
	case Option:
		if v.IsNone() {
			return bytesrepr.AppendU8(dst, 0), nil
		}
		if err := checkType(v.Inner, v.Some); err != nil {
			return dst, err
		}
		return AppendValue(bytesrepr.AppendU8(dst, 1), v.Some)
	case List:
		dst, err := bytesrepr.AppendLength(dst, len(v.Items))
		if err != nil {
			return dst, err
		}
		for i, item := range v.Items {
			if err := checkType(v.Elem, item); err != nil {
				return dst, fmt.Errorf("%v[%v]: %w", v.Type(), i, err)
			}
			if dst, err = AppendValue(dst, item); err != nil {
				return dst, fmt.Errorf("%v[%v]: %w", v.Type(), i, err)
			}
		}
		return dst, nil
	case Map:
		dst, err := bytesrepr.AppendLength(dst, len(v.Entries))
		if err != nil {
			return dst, err
		}
		for i, e := range v.Entries {
			if err := checkType(v.KeyType, e.Key); err != nil {
				return dst, fmt.Errorf("%v[%v].key: %w", v.Type(), i, err)
			}
			if err := checkType(v.ValueType, e.Value); err != nil {
				return dst, fmt.Errorf("%v[%v].value: %w", v.Type(), i, err)
			}
			if dst, err = AppendValue(dst, e.Key); err != nil {
				return dst, err
			}
			if dst, err = AppendValue(dst, e.Value); err != nil {
				return dst, err
			}
		}
		return dst, nil
	case Tuple1:
		return appendValues(dst, v.T0)
	case Tuple2:
		return appendValues(dst, v.T0, v.T1)
	case Tuple3:
		return appendValues(dst, v.T0, v.T1, v.T2)
	case Key:
		if !v.Kind.valid() {
			return dst, fmt.Errorf("%w: key kind %v",
				bytesrepr.ErrUnknownDiscriminant, uint8(v.Kind))
		}
		dst = bytesrepr.AppendU8(dst, uint8(v.Kind))
		return append(dst, v.Addr[:]...), nil
	case URef:
		if !v.Rights.valid() {
			return dst, fmt.Errorf("%w: access rights %v",
				bytesrepr.ErrUnknownDiscriminant, uint8(v.Rights))
		}
		dst = append(dst, v.Addr[:]...)
		return bytesrepr.AppendU8(dst, uint8(v.Rights)), nil
	case PublicKey:
		if err := v.Key.Validate(); err != nil {
			return dst, err
		}
		return append(dst, v.Key.Bytes()...), nil
	case nil:
		return dst, fmt.Errorf("cannot encode nil Value")
	}
	return dst, fmt.Errorf("unknown Value type %T", v)
}

func appendValues(dst []byte, values ...Value) ([]byte, error) {
	for _, v := range values {
		var err error
		if dst, err = AppendValue(dst, v); err != nil {
			return dst, err
		}
	}
	return dst, nil
}

// EncodeWithType returns the form in which values are carried by deploy
// arguments: the u32 length of the encoded value, the encoded value, then
// the encoded Type.
func EncodeWithType(v Value) ([]byte, error) {
	data, err := Encode(v)
	if err != nil {
		return nil, err
	}
	out, err := bytesrepr.AppendBytes(nil, data)
	if err != nil {
		return nil, err
	}
	return v.Type().appendBytes(out), nil
}
