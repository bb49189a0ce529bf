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

package cmd

import (
	"context"
	"fmt"

	"github.com/cspr-tools/cspr/deploy"
	"github.com/cspr-tools/cspr/internal/db"
	flag "github.com/spf13/pflag"
)

var sendNow bool

// buildFlags are shared by every command that builds a new deploy.
var buildFlags = func() *flag.FlagSet {
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.BoolVar(&sendNow, "send", false,
		"Send the deploy to --node after saving it to the outbox")
	return flags
}()

// buildDeploy signs the deploy returned by build with --secret-key, saves it
// to the outbox in state pending and prints it. The deploy is sent if --send
// was given.
func buildDeploy(ctx context.Context,
	build func(params deploy.Params) (*deploy.Deploy, error)) error {
	key, err := loadKey()
	if err != nil {
		return err
	}
	d, err := build(deployParams(key.PublicKey()))
	if err != nil {
		return err
	}
	if err := d.Approve(key); err != nil {
		return err
	}

	outbox, err := openOutbox(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := outbox.Close(); err != nil {
			log.Error(err)
		}
	}()
	if _, err := db.SaveDeploy(outbox.Conn, d); err != nil {
		return fmt.Errorf("db.SaveDeploy(): %w", err)
	}
	log.Debugf("saved deploy %v to the outbox", d.Hash())

	if err := printJSON(d); err != nil {
		return err
	}
	if !sendNow {
		return nil
	}
	return dispatch(ctx, outbox.Conn, Client, []*deploy.Deploy{d}, 1)
}
