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

package deploy

import (
	"encoding/json"
	"fmt"

	"github.com/cspr-tools/cspr/cl/bytesrepr"
	"github.com/cspr-tools/cspr/crypto"
)

// ItemKind is the discriminant of an ExecutableItem.
type ItemKind uint8

const (
	KindModuleBytes ItemKind = iota
	KindStoredContractByHash
	KindStoredContractByName
	KindStoredContractByHashVersioned
	KindStoredContractByNameVersioned
	KindTransfer
)

var itemKindNames = [...]string{
	KindModuleBytes:                   "ModuleBytes",
	KindStoredContractByHash:          "StoredContractByHash",
	KindStoredContractByName:          "StoredContractByName",
	KindStoredContractByHashVersioned: "StoredVersionedContractByHash",
	KindStoredContractByNameVersioned: "StoredVersionedContractByName",
	KindTransfer:                      "Transfer",
}

func (kind ItemKind) String() string {
	if int(kind) < len(itemKindNames) {
		return itemKindNames[kind]
	}
	return fmt.Sprintf("ItemKind(%d)", uint8(kind))
}

// ExecutableItem is the payment or session code of a deploy. The set of
// implementations is closed; it is exactly the six types declared in this
// file.
type ExecutableItem interface {
	Kind() ItemKind
	// RuntimeArgs returns the arguments passed to the code.
	RuntimeArgs() Args
	isExecutableItem()
}

// ModuleBytes is wasm code carried in the deploy. Empty Code in a payment
// selects the standard payment.
type ModuleBytes struct {
	Code []byte
	Args Args
}

// StoredContractByHash calls an entry point of a contract stored under Hash.
type StoredContractByHash struct {
	Hash       crypto.Digest
	EntryPoint string
	Args       Args
}

// StoredContractByName calls an entry point of a contract stored under a
// named key of the caller's account.
type StoredContractByName struct {
	Name       string
	EntryPoint string
	Args       Args
}

// StoredContractByHashVersioned calls an entry point of a given Version of
// the contract package stored under Hash. A nil Version selects the latest.
type StoredContractByHashVersioned struct {
	Hash       crypto.Digest
	Version    *uint32
	EntryPoint string
	Args       Args
}

// StoredContractByNameVersioned is StoredContractByHashVersioned with the
// package found under a named key.
type StoredContractByNameVersioned struct {
	Name       string
	Version    *uint32
	EntryPoint string
	Args       Args
}

// Transfer moves motes between purses.
type Transfer struct {
	Args Args
}

func (ModuleBytes) Kind() ItemKind                   { return KindModuleBytes }
func (StoredContractByHash) Kind() ItemKind          { return KindStoredContractByHash }
func (StoredContractByName) Kind() ItemKind          { return KindStoredContractByName }
func (StoredContractByHashVersioned) Kind() ItemKind { return KindStoredContractByHashVersioned }
func (StoredContractByNameVersioned) Kind() ItemKind { return KindStoredContractByNameVersioned }
func (Transfer) Kind() ItemKind                      { return KindTransfer }

func (item ModuleBytes) RuntimeArgs() Args                   { return item.Args }
func (item StoredContractByHash) RuntimeArgs() Args          { return item.Args }
func (item StoredContractByName) RuntimeArgs() Args          { return item.Args }
func (item StoredContractByHashVersioned) RuntimeArgs() Args { return item.Args }
func (item StoredContractByNameVersioned) RuntimeArgs() Args { return item.Args }
func (item Transfer) RuntimeArgs() Args                      { return item.Args }

// CopyItem returns a deep copy of item.
func CopyItem(item ExecutableItem) ExecutableItem {
	switch item := item.(type) {
	case ModuleBytes:
		if item.Code != nil {
			item.Code = append([]byte{}, item.Code...)
		}
		item.Args = item.Args.Copy()
		return item
	case StoredContractByHash:
		item.Args = item.Args.Copy()
		return item
	case StoredContractByName:
		item.Args = item.Args.Copy()
		return item
	case StoredContractByHashVersioned:
		item.Version = copyVersion(item.Version)
		item.Args = item.Args.Copy()
		return item
	case StoredContractByNameVersioned:
		item.Version = copyVersion(item.Version)
		item.Args = item.Args.Copy()
		return item
	case Transfer:
		item.Args = item.Args.Copy()
		return item
	}
	return item
}

func copyVersion(version *uint32) *uint32 {
	if version == nil {
		return nil
	}
	v := *version
	return &v
}

func (ModuleBytes) isExecutableItem()                   {}
func (StoredContractByHash) isExecutableItem()          {}
func (StoredContractByName) isExecutableItem()          {}
func (StoredContractByHashVersioned) isExecutableItem() {}
func (StoredContractByNameVersioned) isExecutableItem() {}
func (Transfer) isExecutableItem()                      {}

// EncodeItem returns the binary encoding of item.
func EncodeItem(item ExecutableItem) ([]byte, error) {
	return AppendItem(nil, item)
}

// AppendItem appends the tag byte of item followed by its fields.
func AppendItem(dst []byte, item ExecutableItem) ([]byte, error) {
	if item == nil {
		return dst, fmt.Errorf("missing executable item")
	}
	dst = bytesrepr.AppendU8(dst, uint8(item.Kind()))
	var err error
	switch item := item.(type) {
	case ModuleBytes:
		dst, err = bytesrepr.AppendBytes(dst, item.Code)
	case StoredContractByHash:
		dst = append(dst, item.Hash[:]...)
		dst, err = bytesrepr.AppendString(dst, item.EntryPoint)
	case StoredContractByName:
		if dst, err = bytesrepr.AppendString(dst, item.Name); err == nil {
			dst, err = bytesrepr.AppendString(dst, item.EntryPoint)
		}
	case StoredContractByHashVersioned:
		dst = append(dst, item.Hash[:]...)
		dst = appendVersion(dst, item.Version)
		dst, err = bytesrepr.AppendString(dst, item.EntryPoint)
	case StoredContractByNameVersioned:
		if dst, err = bytesrepr.AppendString(dst, item.Name); err == nil {
			dst = appendVersion(dst, item.Version)
			dst, err = bytesrepr.AppendString(dst, item.EntryPoint)
		}
	case Transfer:
	default:
		return dst, fmt.Errorf("unknown ExecutableItem type %T", item)
	}
	if err != nil {
		return dst, fmt.Errorf("%v: %w", item.Kind(), err)
	}
	if dst, err = item.RuntimeArgs().AppendBinary(dst); err != nil {
		return dst, fmt.Errorf("%v: %w", item.Kind(), err)
	}
	return dst, nil
}

func appendVersion(dst []byte, version *uint32) []byte {
	if version == nil {
		return bytesrepr.AppendU8(dst, 0)
	}
	return bytesrepr.AppendU32(bytesrepr.AppendU8(dst, 1), *version)
}

func decodeVersion(data []byte) (*uint32, []byte, error) {
	some, rest, err := bytesrepr.Bool(data)
	if err != nil || !some {
		return nil, rest, err
	}
	v, rest, err := bytesrepr.U32(rest)
	if err != nil {
		return nil, data, err
	}
	return &v, rest, nil
}

func decodeHash(data []byte) (crypto.Digest, []byte, error) {
	var hash crypto.Digest
	b, rest, err := bytesrepr.Fixed(data, len(hash))
	if err != nil {
		return hash, data, err
	}
	copy(hash[:], b)
	return hash, rest, nil
}

// DecodeItem decodes an ExecutableItem from the front of data and returns
// the remaining bytes.
func DecodeItem(data []byte) (ExecutableItem, []byte, error) {
	tag, rest, err := bytesrepr.U8(data)
	if err != nil {
		return nil, data, err
	}
	kind := ItemKind(tag)
	var item ExecutableItem
	switch kind {
	case KindModuleBytes:
		var v ModuleBytes
		if v.Code, rest, err = bytesrepr.Bytes(rest); err == nil {
			v.Args, rest, err = DecodeArgs(rest)
		}
		item = v
	case KindStoredContractByHash:
		var v StoredContractByHash
		if v.Hash, rest, err = decodeHash(rest); err != nil {
			break
		}
		if v.EntryPoint, rest, err = bytesrepr.String(rest); err != nil {
			break
		}
		v.Args, rest, err = DecodeArgs(rest)
		item = v
	case KindStoredContractByName:
		var v StoredContractByName
		if v.Name, rest, err = bytesrepr.String(rest); err != nil {
			break
		}
		if v.EntryPoint, rest, err = bytesrepr.String(rest); err != nil {
			break
		}
		v.Args, rest, err = DecodeArgs(rest)
		item = v
	case KindStoredContractByHashVersioned:
		var v StoredContractByHashVersioned
		if v.Hash, rest, err = decodeHash(rest); err != nil {
			break
		}
		if v.Version, rest, err = decodeVersion(rest); err != nil {
			break
		}
		if v.EntryPoint, rest, err = bytesrepr.String(rest); err != nil {
			break
		}
		v.Args, rest, err = DecodeArgs(rest)
		item = v
	case KindStoredContractByNameVersioned:
		var v StoredContractByNameVersioned
		if v.Name, rest, err = bytesrepr.String(rest); err != nil {
			break
		}
		if v.Version, rest, err = decodeVersion(rest); err != nil {
			break
		}
		if v.EntryPoint, rest, err = bytesrepr.String(rest); err != nil {
			break
		}
		v.Args, rest, err = DecodeArgs(rest)
		item = v
	case KindTransfer:
		var v Transfer
		v.Args, rest, err = DecodeArgs(rest)
		item = v
	default:
		return nil, data, fmt.Errorf("%w: executable item %v",
			bytesrepr.ErrUnknownDiscriminant, tag)
	}
	if err != nil {
		return nil, data, fmt.Errorf("%v: %w", kind, err)
	}
	return item, rest, nil
}

type moduleBytesJSON struct {
	ModuleBytes crypto.Bytes `json:"module_bytes"`
	Args        Args         `json:"args"`
}

type storedJSON struct {
	Hash       *crypto.Digest `json:"hash,omitempty"`
	Name       string         `json:"name,omitempty"`
	EntryPoint string         `json:"entry_point"`
	Args       Args           `json:"args"`
}

type storedVersionedJSON struct {
	Hash       *crypto.Digest `json:"hash,omitempty"`
	Name       string         `json:"name,omitempty"`
	Version    *uint32        `json:"version"`
	EntryPoint string         `json:"entry_point"`
	Args       Args           `json:"args"`
}

type transferJSON struct {
	Args Args `json:"args"`
}

func nonNil(args Args) Args {
	if args == nil {
		return Args{}
	}
	return args
}

// MarshalItem renders item as a single key object named after its kind,
// such as {"Transfer":{"args":[...]}}.
func MarshalItem(item ExecutableItem) ([]byte, error) {
	var v interface{}
	switch item := item.(type) {
	case ModuleBytes:
		v = moduleBytesJSON{ModuleBytes: item.Code, Args: nonNil(item.Args)}
	case StoredContractByHash:
		v = storedJSON{Hash: &item.Hash, EntryPoint: item.EntryPoint,
			Args: nonNil(item.Args)}
	case StoredContractByName:
		v = storedJSON{Name: item.Name, EntryPoint: item.EntryPoint,
			Args: nonNil(item.Args)}
	case StoredContractByHashVersioned:
		v = storedVersionedJSON{Hash: &item.Hash, Version: item.Version,
			EntryPoint: item.EntryPoint, Args: nonNil(item.Args)}
	case StoredContractByNameVersioned:
		v = storedVersionedJSON{Name: item.Name, Version: item.Version,
			EntryPoint: item.EntryPoint, Args: nonNil(item.Args)}
	case Transfer:
		v = transferJSON{Args: nonNil(item.Args)}
	case nil:
		return nil, fmt.Errorf("missing executable item")
	default:
		return nil, fmt.Errorf("unknown ExecutableItem type %T", item)
	}
	return json.Marshal(map[string]interface{}{item.Kind().String(): v})
}

// UnmarshalItem parses the form produced by MarshalItem.
func UnmarshalItem(data []byte) (ExecutableItem, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("executable item: %w", err)
	}
	if len(obj) != 1 {
		return nil, fmt.Errorf("executable item: expected a single key object")
	}
	var name string
	var raw json.RawMessage
	for name, raw = range obj {
	}
	item, err := unmarshalItem(name, raw)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", name, err)
	}
	return item, nil
}

func unmarshalItem(name string, raw json.RawMessage) (ExecutableItem, error) {
	switch name {
	case KindModuleBytes.String():
		var v moduleBytesJSON
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return ModuleBytes{Code: v.ModuleBytes, Args: v.Args}, nil
	case KindStoredContractByHash.String():
		var v storedJSON
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		if v.Hash == nil {
			return nil, fmt.Errorf("missing hash")
		}
		return StoredContractByHash{Hash: *v.Hash,
			EntryPoint: v.EntryPoint, Args: v.Args}, nil
	case KindStoredContractByName.String():
		var v storedJSON
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return StoredContractByName{Name: v.Name,
			EntryPoint: v.EntryPoint, Args: v.Args}, nil
	case KindStoredContractByHashVersioned.String():
		var v storedVersionedJSON
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		if v.Hash == nil {
			return nil, fmt.Errorf("missing hash")
		}
		return StoredContractByHashVersioned{Hash: *v.Hash,
			Version: v.Version, EntryPoint: v.EntryPoint,
			Args: v.Args}, nil
	case KindStoredContractByNameVersioned.String():
		var v storedVersionedJSON
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return StoredContractByNameVersioned{Name: v.Name,
			Version: v.Version, EntryPoint: v.EntryPoint,
			Args: v.Args}, nil
	case KindTransfer.String():
		var v transferJSON
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return Transfer{Args: v.Args}, nil
	}
	return nil, fmt.Errorf("unknown executable item")
}
