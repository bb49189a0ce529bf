package cl

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/cspr-tools/cspr/crypto"
)

// CLValueJSON is the JSON form of a Value used by nodes. Parsed is a best
// effort rendering for humans and is ignored when decoding.
type CLValueJSON struct {
	CLType Type            `json:"cl_type"`
	Bytes  crypto.Bytes    `json:"bytes"`
	Parsed json.RawMessage `json:"parsed,omitempty"`
}

// ToJSON returns the JSON form of v.
func ToJSON(v Value) (CLValueJSON, error) {
	data, err := Encode(v)
	if err != nil {
		return CLValueJSON{}, err
	}
	parsed, err := json.Marshal(render(v))
	if err != nil {
		return CLValueJSON{}, err
	}
	return CLValueJSON{CLType: v.Type(), Bytes: data, Parsed: parsed}, nil
}

// Value decodes Bytes against CLType. All of Bytes must be consumed.
func (c CLValueJSON) Value() (Value, error) {
	v, err := DecodeAll(c.Bytes, c.CLType)
	if err != nil {
		return nil, fmt.Errorf("clvalue: %w", err)
	}
	return v, nil
}

type jsonMapEntry struct {
	Key   interface{} `json:"key"`
	Value interface{} `json:"value"`
}

// render returns a value suitable for json.Marshal.
func render(v Value) interface{} {
	switch v := v.(type) {
	case Bool:
		return bool(v)
	case I32:
		return int32(v)
	case I64:
		return int64(v)
	case U8:
		return uint8(v)
	case U32:
		return uint32(v)
	case U64:
		return uint64(v)
	case U128:
		return bigString(v.Int)
	case U256:
		return bigString(v.Int)
	case U512:
		return bigString(v.Int)
	case Unit:
		return nil
	case String:
		return string(v)
	case ByteArray:
		return hex.EncodeToString(v)
	case Option:
		if v.IsNone() {
			return nil
		}
		return render(v.Some)
	case List:
		items := make([]interface{}, len(v.Items))
		for i, item := range v.Items {
			items[i] = render(item)
		}
		return items
	case Map:
		entries := make([]jsonMapEntry, len(v.Entries))
		for i, e := range v.Entries {
			entries[i] = jsonMapEntry{Key: render(e.Key), Value: render(e.Value)}
		}
		return entries
	case Tuple1:
		return []interface{}{render(v.T0)}
	case Tuple2:
		return []interface{}{render(v.T0), render(v.T1)}
	case Tuple3:
		return []interface{}{render(v.T0), render(v.T1), render(v.T2)}
	case Key:
		return v.String()
	case URef:
		return v.String()
	case PublicKey:
		return v.Key.String()
	}
	return nil
}

func bigString(x *big.Int) string {
	if x == nil {
		return "0"
	}
	return x.String()
}
