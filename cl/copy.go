package cl

import (
	"math/big"

	"github.com/cspr-tools/cspr/crypto"
)

// Copy returns a deep copy of v that shares no memory with it. A nil slice
// or big.Int stays nil.
func Copy(v Value) Value {
	switch v := v.(type) {
	case U128:
		return U128{Int: copyIntOrNil(v.Int)}
	case U256:
		return U256{Int: copyIntOrNil(v.Int)}
	case U512:
		return U512{Int: copyIntOrNil(v.Int)}
	case ByteArray:
		if v == nil {
			return v
		}
		return append(ByteArray{}, v...)
	case Option:
		return Option{Inner: v.Inner.Copy(), Some: Copy(v.Some)}
	case List:
		l := List{Elem: v.Elem.Copy()}
		if v.Items != nil {
			l.Items = make([]Value, len(v.Items))
			for i, item := range v.Items {
				l.Items[i] = Copy(item)
			}
		}
		return l
	case Map:
		m := Map{KeyType: v.KeyType.Copy(), ValueType: v.ValueType.Copy()}
		if v.Entries != nil {
			m.Entries = make([]MapEntry, len(v.Entries))
			for i, e := range v.Entries {
				m.Entries[i] = MapEntry{Key: Copy(e.Key), Value: Copy(e.Value)}
			}
		}
		return m
	case Tuple1:
		return Tuple1{T0: Copy(v.T0)}
	case Tuple2:
		return Tuple2{T0: Copy(v.T0), T1: Copy(v.T1)}
	case Tuple3:
		return Tuple3{T0: Copy(v.T0), T1: Copy(v.T1), T2: Copy(v.T2)}
	case PublicKey:
		return PublicKey{Key: copyPublicKey(v.Key)}
	}
	// The remaining types hold no references.
	return v
}

// Copy returns a deep copy of t.
func (t Type) Copy() Type {
	if t.Params == nil {
		return t
	}
	params := make([]Type, len(t.Params))
	for i, p := range t.Params {
		params[i] = p.Copy()
	}
	t.Params = params
	return t
}

func copyIntOrNil(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return copyInt(x)
}

func copyPublicKey(pub crypto.PublicKey) crypto.PublicKey {
	if pub.Key != nil {
		pub.Key = append([]byte{}, pub.Key...)
	}
	return pub
}
