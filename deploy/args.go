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

	"github.com/cspr-tools/cspr/cl"
	"github.com/cspr-tools/cspr/cl/bytesrepr"
)

// Arg is a named runtime argument.
type Arg struct {
	Name  string
	Value cl.Value
}

// Args are the runtime arguments of an ExecutableItem. Order is significant
// and preserved by both encodings.
type Args []Arg

// NewArg returns an Arg.
func NewArg(name string, v cl.Value) Arg {
	return Arg{Name: name, Value: v}
}

// Copy returns a deep copy of args.
func (args Args) Copy() Args {
	if args == nil {
		return nil
	}
	c := make(Args, len(args))
	for i, arg := range args {
		c[i] = Arg{Name: arg.Name}
		if arg.Value != nil {
			c[i].Value = cl.Copy(arg.Value)
		}
	}
	return c
}

// Get returns the value of the first argument called name.
func (args Args) Get(name string) (cl.Value, bool) {
	for _, arg := range args {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return nil, false
}

// AppendBinary appends the encoded args: a u32 count, then each name and
// value with its type.
func (args Args) AppendBinary(dst []byte) ([]byte, error) {
	dst = bytesrepr.AppendU32(dst, uint32(len(args)))
	for i, arg := range args {
		var err error
		if dst, err = bytesrepr.AppendString(dst, arg.Name); err != nil {
			return dst, fmt.Errorf("args[%v]: %w", i, err)
		}
		if arg.Value == nil {
			return dst, fmt.Errorf("args[%v]: %q: missing value", i, arg.Name)
		}
		v, err := cl.EncodeWithType(arg.Value)
		if err != nil {
			return dst, fmt.Errorf("args[%v]: %q: %w", i, arg.Name, err)
		}
		dst = append(dst, v...)
	}
	return dst, nil
}

// minArgSize is the size of an Arg with an empty name and a zero length
// value of a scalar type.
const minArgSize = 4 + 4 + 1

// DecodeArgs decodes Args from the front of data and returns the remaining
// bytes.
func DecodeArgs(data []byte) (Args, []byte, error) {
	n, rest, err := bytesrepr.U32(data)
	if err != nil {
		return nil, data, err
	}
	if uint64(n) > uint64(len(rest)/minArgSize) {
		return nil, data, fmt.Errorf("args: %w: %v args",
			bytesrepr.ErrBufferTooShort, n)
	}
	args := make(Args, n)
	for i := range args {
		arg := &args[i]
		if arg.Name, rest, err = bytesrepr.String(rest); err != nil {
			return nil, data, fmt.Errorf("args[%v]: %w", i, err)
		}
		if arg.Value, rest, err = cl.DecodeWithType(rest); err != nil {
			return nil, data, fmt.Errorf("args[%v]: %q: %w",
				i, arg.Name, err)
		}
	}
	return args, rest, nil
}

// MarshalJSON renders args as an array of [name, clvalue] pairs.
func (args Args) MarshalJSON() ([]byte, error) {
	pairs := make([][2]interface{}, len(args))
	for i, arg := range args {
		if arg.Value == nil {
			return nil, fmt.Errorf("args[%v]: %q: missing value", i, arg.Name)
		}
		v, err := cl.ToJSON(arg.Value)
		if err != nil {
			return nil, fmt.Errorf("args[%v]: %q: %w", i, arg.Name, err)
		}
		pairs[i] = [2]interface{}{arg.Name, v}
	}
	return json.Marshal(pairs)
}

func (args *Args) UnmarshalJSON(data []byte) error {
	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(data, &pairs); err != nil {
		return fmt.Errorf("%T: %w", args, err)
	}
	parsed := make(Args, len(pairs))
	for i, pair := range pairs {
		arg := &parsed[i]
		if err := json.Unmarshal(pair[0], &arg.Name); err != nil {
			return fmt.Errorf("%T[%v]: name: %w", args, i, err)
		}
		var v cl.CLValueJSON
		if err := json.Unmarshal(pair[1], &v); err != nil {
			return fmt.Errorf("%T[%v]: %q: %w", args, i, arg.Name, err)
		}
		var err error
		if arg.Value, err = v.Value(); err != nil {
			return fmt.Errorf("%T[%v]: %q: %w", args, i, arg.Name, err)
		}
	}
	*args = parsed
	return nil
}
