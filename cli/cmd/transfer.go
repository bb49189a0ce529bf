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
	"github.com/cspr-tools/cspr/crypto"
	"github.com/cspr-tools/cspr/deploy"
	"github.com/posener/complete"
	"github.com/spf13/cobra"
)

var (
	transferAmount Motes
	transferTarget crypto.PublicKey
	transferID     uint64
)

// transferCmd represents the transfer command
var transferCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		DisableFlagsInUseLine: true,
		Use: `
transfer --amount <CSPR> --target <public-key> [--id <id>] [--send]`[1:],
		Short: "Build a native transfer",
		Long: `
Build a deploy transferring --amount CSPR from the account of --secret-key to
the account of the --target public key.

The --amount is given in CSPR, such as 2.5, or in motes with a "motes" suffix,
such as 2500000000motes. The standard payment of 0.1 CSPR is used.

The optional --id is a memo stored with the transfer.
`[1:],
		Args:    cobra.ExactArgs(0),
		PreRunE: validateTransferFlags,
		RunE:    transfer,
	}
	rootCmd.AddCommand(cmd)
	rootCmplCmd.Sub["transfer"] = transferCmplCmd
	rootCmplCmd.Sub["help"].Sub["transfer"] = complete.Command{}

	flags := cmd.Flags()
	flags.Var(&transferAmount, "amount", "Amount to transfer")
	flags.Var(&transferTarget, "target", "Public key of the recipient")
	flags.Uint64Var(&transferID, "id", 0, "Transfer memo")
	flags.AddFlagSet(buildFlags)

	generateCmplFlags(cmd, transferCmplCmd.Flags)
	return cmd
}()

var transferCmplCmd = complete.Command{
	Flags: mergeFlags(apiCmplFlags, deployCmplFlags),
}

func validateTransferFlags(cmd *cobra.Command, _ []string) error {
	return requireFlags(cmd, "amount", "target")
}

func transfer(cmd *cobra.Command, _ []string) error {
	var id *uint64
	if cmd.Flags().Changed("id") {
		id = &transferID
	}
	target := transferTarget.AccountHash()
	return buildDeploy(cmd.Context(), func(params deploy.Params) (
		*deploy.Deploy, error) {
		return deploy.NewTransfer(params, transferAmount.Motes(), target, id)
	})
}
