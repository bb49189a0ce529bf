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

// Package wasm checks session and payment code before it is placed in a
// deploy.
package wasm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero"
)

// EntryPoint is the function a node calls to execute module bytes.
const EntryPoint = "call"

var (
	ErrEmptyModule       = errors.New("empty wasm module")
	ErrMissingEntryPoint = fmt.Errorf("missing exported %q function", EntryPoint)
)

// InvalidEntryPointError is returned when the entry point takes arguments or
// returns values.
type InvalidEntryPointError struct {
	Params, Results int
}

func (err InvalidEntryPointError) Error() string {
	return fmt.Sprintf("%q must have no params and no results: "+
		"has %v params and %v results", EntryPoint, err.Params, err.Results)
}

// Validate compiles module with the interpreter and checks that it exports a
// "call" function with no params and no results. The module is never
// instantiated.
func Validate(ctx context.Context, module []byte) error {
	if len(module) == 0 {
		return ErrEmptyModule
	}
	r := wazero.NewRuntimeWithConfig(ctx,
		wazero.NewRuntimeConfigInterpreter().WithCloseOnContextDone(true))
	defer r.Close(ctx)

	mod, err := r.CompileModule(ctx, module)
	if err != nil {
		return fmt.Errorf("wazero.Runtime.CompileModule(): %w", err)
	}
	defer mod.Close(ctx)

	call, ok := mod.ExportedFunctions()[EntryPoint]
	if !ok {
		return ErrMissingEntryPoint
	}
	params, results := len(call.ParamTypes()), len(call.ResultTypes())
	if params > 0 || results > 0 {
		return InvalidEntryPointError{Params: params, Results: results}
	}
	return nil
}
