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

// Package cl implements the Casper CL type system: type descriptors, typed
// values, and their binary and JSON encodings.
//
// Decoding is type directed. The caller must know the Type of a value before
// its bytes can be decoded, so wherever values are stored or transmitted the
// Type travels with the bytes.
package cl

import (
	"fmt"
	"strings"

	"github.com/cspr-tools/cspr/cl/bytesrepr"
)

// TypeTag identifies the variant of a Type. Its value is the tag byte of the
// binary encoding of a Type.
type TypeTag uint8

const (
	TagBool TypeTag = iota
	TagI32
	TagI64
	TagU8
	TagU32
	TagU64
	TagU128
	TagU256
	TagU512
	TagUnit
	TagString
	TagKey
	TagURef
	TagOption
	TagList
	TagByteArray
	TagResult
	TagMap
	TagTuple1
	TagTuple2
	TagTuple3
	TagAny
	TagPublicKey
)

var tagNames = [...]string{
	TagBool:      "Bool",
	TagI32:       "I32",
	TagI64:       "I64",
	TagU8:        "U8",
	TagU32:       "U32",
	TagU64:       "U64",
	TagU128:      "U128",
	TagU256:      "U256",
	TagU512:      "U512",
	TagUnit:      "Unit",
	TagString:    "String",
	TagKey:       "Key",
	TagURef:      "URef",
	TagOption:    "Option",
	TagList:      "List",
	TagByteArray: "ByteArray",
	TagResult:    "Result",
	TagMap:       "Map",
	TagTuple1:    "Tuple1",
	TagTuple2:    "Tuple2",
	TagTuple3:    "Tuple3",
	TagAny:       "Any",
	TagPublicKey: "PublicKey",
}

func (tag TypeTag) String() string {
	if int(tag) < len(tagNames) {
		return tagNames[tag]
	}
	return fmt.Sprintf("TypeTag(%d)", uint8(tag))
}

// arity returns the number of type parameters of tag, or -1 if tag is
// unknown.
func (tag TypeTag) arity() int {
	switch tag {
	case TagBool, TagI32, TagI64, TagU8, TagU32, TagU64,
		TagU128, TagU256, TagU512, TagUnit, TagString,
		TagKey, TagURef, TagPublicKey, TagAny, TagByteArray:
		return 0
	case TagOption, TagList, TagTuple1:
		return 1
	case TagMap, TagResult, TagTuple2:
		return 2
	case TagTuple3:
		return 3
	}
	return -1
}

// Type describes the shape of a Value. Types are plain data and are built
// with the Type variables and the ...Of constructors below.
type Type struct {
	Tag TypeTag
	// Size is the length of a ByteArray.
	Size uint32
	// Params holds the type parameters: the inner type of Option and
	// List, the key and value of Map, the ok and err of Result, and the
	// elements of the tuples.
	Params []Type
}

var (
	TypeBool      = Type{Tag: TagBool}
	TypeI32       = Type{Tag: TagI32}
	TypeI64       = Type{Tag: TagI64}
	TypeU8        = Type{Tag: TagU8}
	TypeU32       = Type{Tag: TagU32}
	TypeU64       = Type{Tag: TagU64}
	TypeU128      = Type{Tag: TagU128}
	TypeU256      = Type{Tag: TagU256}
	TypeU512      = Type{Tag: TagU512}
	TypeUnit      = Type{Tag: TagUnit}
	TypeString    = Type{Tag: TagString}
	TypeKey       = Type{Tag: TagKey}
	TypeURef      = Type{Tag: TagURef}
	TypePublicKey = Type{Tag: TagPublicKey}
	TypeAny       = Type{Tag: TagAny}
)

func OptionOf(inner Type) Type {
	return Type{Tag: TagOption, Params: []Type{inner}}
}

func ListOf(elem Type) Type {
	return Type{Tag: TagList, Params: []Type{elem}}
}

func ByteArrayOf(size uint32) Type {
	return Type{Tag: TagByteArray, Size: size}
}

func MapOf(key, value Type) Type {
	return Type{Tag: TagMap, Params: []Type{key, value}}
}

func ResultOf(ok, err Type) Type {
	return Type{Tag: TagResult, Params: []Type{ok, err}}
}

func Tuple1Of(t0 Type) Type {
	return Type{Tag: TagTuple1, Params: []Type{t0}}
}

func Tuple2Of(t0, t1 Type) Type {
	return Type{Tag: TagTuple2, Params: []Type{t0, t1}}
}

func Tuple3Of(t0, t1, t2 Type) Type {
	return Type{Tag: TagTuple3, Params: []Type{t0, t1, t2}}
}

// Equal returns true if t and other describe the same shape.
func (t Type) Equal(other Type) bool {
	if t.Tag != other.Tag || t.Size != other.Size ||
		len(t.Params) != len(other.Params) {
		return false
	}
	for i := range t.Params {
		if !t.Params[i].Equal(other.Params[i]) {
			return false
		}
	}
	return true
}

// String returns a readable form such as "Map(String, U64)" or
// "ByteArray(32)".
func (t Type) String() string {
	if t.Tag == TagByteArray {
		return fmt.Sprintf("ByteArray(%d)", t.Size)
	}
	if len(t.Params) == 0 {
		return t.Tag.String()
	}
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("%v(%v)", t.Tag, strings.Join(params, ", "))
}

// Validate returns an error if t has an unknown tag or the wrong number of
// type parameters anywhere within it.
func (t Type) Validate() error {
	return t.validate(0)
}

// maxTypeDepth bounds the nesting of decoded types.
const maxTypeDepth = 64

func (t Type) validate(depth int) error {
	if depth > maxTypeDepth {
		return fmt.Errorf("type nesting exceeds %v", maxTypeDepth)
	}
	arity := t.Tag.arity()
	if arity < 0 {
		return fmt.Errorf("%w: type tag %v",
			bytesrepr.ErrUnknownDiscriminant, uint8(t.Tag))
	}
	if len(t.Params) != arity {
		return fmt.Errorf("%v: expected %v type parameters but got %v",
			t.Tag, arity, len(t.Params))
	}
	for _, p := range t.Params {
		if err := p.validate(depth + 1); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the binary encoding of t: the tag byte, the u32 size of a
// ByteArray, then each type parameter in order.
func (t Type) Bytes() []byte {
	return t.appendBytes(nil)
}

func (t Type) appendBytes(dst []byte) []byte {
	dst = bytesrepr.AppendU8(dst, uint8(t.Tag))
	if t.Tag == TagByteArray {
		dst = bytesrepr.AppendU32(dst, t.Size)
	}
	for _, p := range t.Params {
		dst = p.appendBytes(dst)
	}
	return dst
}

// DecodeType decodes a Type from the front of data and returns the remaining
// bytes.
func DecodeType(data []byte) (Type, []byte, error) {
	return decodeType(data, 0)
}

func decodeType(data []byte, depth int) (Type, []byte, error) {
	if depth > maxTypeDepth {
		return Type{}, data, fmt.Errorf("type nesting exceeds %v",
			maxTypeDepth)
	}
	tag, rest, err := bytesrepr.U8(data)
	if err != nil {
		return Type{}, data, err
	}
	t := Type{Tag: TypeTag(tag)}
	arity := t.Tag.arity()
	if arity < 0 {
		return Type{}, data, fmt.Errorf("%w: type tag %v",
			bytesrepr.ErrUnknownDiscriminant, tag)
	}
	if t.Tag == TagByteArray {
		if t.Size, rest, err = bytesrepr.U32(rest); err != nil {
			return Type{}, data, err
		}
	}
	if arity > 0 {
		t.Params = make([]Type, arity)
		for i := range t.Params {
			if t.Params[i], rest, err = decodeType(rest, depth+1); err != nil {
				return Type{}, data, err
			}
		}
	}
	return t, rest, nil
}

// minSize returns the fewest bytes any value of t can encode to. It is used
// to reject impossible element counts before allocating.
func (t Type) minSize() int {
	switch t.Tag {
	case TagBool, TagU8, TagU128, TagU256, TagU512, TagOption:
		return 1
	case TagI32, TagU32, TagString, TagList, TagMap:
		return 4
	case TagI64, TagU64:
		return 8
	case TagByteArray:
		return int(t.Size)
	case TagKey, TagURef, TagPublicKey:
		return 33
	case TagTuple1, TagTuple2, TagTuple3:
		var n int
		for _, p := range t.Params {
			n += p.minSize()
		}
		return n
	}
	return 0
}
