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
	"fmt"

	"github.com/cspr-tools/cspr/api"
	"github.com/cspr-tools/cspr/crypto"
	"github.com/posener/complete"
	"github.com/spf13/cobra"
)

var blockHash crypto.Digest
var blockHeight uint64

// getCmd represents the get command
var getCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Query a node",
	}
	rootCmd.AddCommand(cmd)
	rootCmplCmd.Sub["get"] = getCmplCmd
	rootCmplCmd.Sub["help"].Sub["get"] = complete.Command{Sub: complete.Commands{}}
	generateCmplFlags(cmd, getCmplCmd.Flags)
	return cmd
}()

var getCmplCmd = complete.Command{
	Flags: mergeFlags(apiCmplFlags),
	Sub:   complete.Commands{},
}

// getDeployCmd represents the get-deploy command
var getDeployCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		DisableFlagsInUseLine: true,
		Use: `
get-deploy HASH`[1:],
		Short: "Fetch a deploy from the node",
		Long: `
Fetch the deploy with HASH from --node and print it. The deploy hash, body hash
and every approval are verified.
`[1:],
		Args: getDeployArgs,
		RunE: getDeploy,
	}
	rootCmd.AddCommand(cmd)
	rootCmplCmd.Sub["get-deploy"] = getDeployCmplCmd
	rootCmplCmd.Sub["help"].Sub["get-deploy"] = complete.Command{}
	generateCmplFlags(cmd, getDeployCmplCmd.Flags)
	return cmd
}()

var getDeployCmplCmd = complete.Command{
	Flags: mergeFlags(apiCmplFlags),
	Args:  PredictDeployHashes,
}

func getDeployArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return err
	}
	return deployHash.Set(args[0])
}

func getDeploy(cmd *cobra.Command, _ []string) error {
	d, err := Client.GetDeploy(cmd.Context(), deployHash)
	if err != nil {
		return err
	}
	return printJSON(d)
}

// getStatusCmd represents the get status command
var getStatusCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Fetch the status of the node",
		Args:  cobra.ExactArgs(0),
		RunE:  getStatus,
	}
	getCmd.AddCommand(cmd)
	getCmplCmd.Sub["status"] = complete.Command{Flags: mergeFlags(apiCmplFlags)}
	rootCmplCmd.Sub["help"].Sub["get"].Sub["status"] = complete.Command{}
	return cmd
}()

func getStatus(cmd *cobra.Command, _ []string) error {
	status, err := Client.GetStatus(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(status)
}

// getStateRootHashCmd represents the get state-root-hash command
var getStateRootHashCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		DisableFlagsInUseLine: true,
		Use: `
state-root-hash [--block <hash> | --height <height>]`[1:],
		Short: "Fetch the state root hash of a block",
		Long: `
Fetch the state root hash of the block with --block hash or --height, or of
the latest block.
`[1:],
		Args:    cobra.ExactArgs(0),
		PreRunE: validateBlockFlags,
		RunE:    getStateRootHash,
	}
	getCmd.AddCommand(cmd)
	getCmplCmd.Sub["state-root-hash"] = getStateRootHashCmplCmd
	rootCmplCmd.Sub["help"].Sub["get"].Sub["state-root-hash"] = complete.Command{}

	addBlockFlags(cmd)
	generateCmplFlags(cmd, getStateRootHashCmplCmd.Flags)
	return cmd
}()

var getStateRootHashCmplCmd = complete.Command{
	Flags: mergeFlags(apiCmplFlags, blockCmplFlags),
}

var blockCmplFlags = complete.Flags{
	"--block":  complete.PredictAnything,
	"--height": complete.PredictAnything,
}

func addBlockFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Var(&blockHash, "block", "Hash of the block")
	flags.Uint64Var(&blockHeight, "height", 0, "Height of the block")
}

func validateBlockFlags(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	if flags.Changed("block") && flags.Changed("height") {
		return fmt.Errorf("--block may not be used with --height")
	}
	return nil
}

// blockIdentifier returns the block selected by --block or --height, or nil
// for the latest block.
func blockIdentifier(cmd *cobra.Command) *api.BlockIdentifier {
	flags := cmd.Flags()
	switch {
	case flags.Changed("block"):
		return &api.BlockIdentifier{Hash: &blockHash}
	case flags.Changed("height"):
		return &api.BlockIdentifier{Height: &blockHeight}
	}
	return nil
}

func getStateRootHash(cmd *cobra.Command, _ []string) error {
	hash, err := Client.GetStateRootHash(cmd.Context(), blockIdentifier(cmd))
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

// newGetBlockCmd adds a get subcommand that selects a block with --block or
// --height.
func newGetBlockCmd(name, short, long string,
	run func(*cobra.Command, []string) error,
	args cobra.PositionalArgs, predict complete.Predictor) *cobra.Command {
	cmd := &cobra.Command{
		DisableFlagsInUseLine: true,
		Use:                   name,
		Short:                 short,
		Long:                  long,
		Args:                  args,
		PreRunE:               validateBlockFlags,
		RunE:                  run,
	}
	getCmd.AddCommand(cmd)
	cmpl := complete.Command{
		Flags: mergeFlags(apiCmplFlags, blockCmplFlags),
		Args:  predict,
	}
	sub := cmd.Name()
	getCmplCmd.Sub[sub] = cmpl
	rootCmplCmd.Sub["help"].Sub["get"].Sub[sub] = complete.Command{}
	addBlockFlags(cmd)
	generateCmplFlags(cmd, cmpl.Flags)
	return cmd
}

var getBlockCmd = newGetBlockCmd(`
block [--block <hash> | --height <height>]`[1:],
	"Fetch a block",
	`
Fetch the block with --block hash or --height, or the latest block, and print
it.
`[1:], getBlock, cobra.ExactArgs(0), complete.PredictNothing)

func getBlock(cmd *cobra.Command, _ []string) error {
	block, err := Client.GetBlock(cmd.Context(), blockIdentifier(cmd))
	if err != nil {
		return err
	}
	return printJSON(block)
}

var accountKey crypto.PublicKey

func accountArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return err
	}
	return accountKey.Set(args[0])
}

var getAccountCmd = newGetBlockCmd(`
account PUBKEY [--block <hash> | --height <height>]`[1:],
	"Fetch an account",
	`
Fetch the account of the hex encoded PUBKEY as of --block hash or --height, or
as of the latest block, and print it.
`[1:], getAccount, accountArgs, complete.PredictAnything)

func getAccount(cmd *cobra.Command, _ []string) error {
	account, err := Client.GetAccountInfo(cmd.Context(),
		accountKey, blockIdentifier(cmd))
	if err != nil {
		return err
	}
	return printJSON(account)
}

var getBalanceCmd = newGetBlockCmd(`
balance PUBKEY [--block <hash> | --height <height>]`[1:],
	"Fetch the balance of an account",
	`
Fetch the balance in motes of the main purse of the account of the hex encoded
PUBKEY as of --block hash or --height, or as of the latest block.
`[1:], getBalance, accountArgs, complete.PredictAnything)

func getBalance(cmd *cobra.Command, _ []string) error {
	block := blockIdentifier(cmd)
	purse, err := Client.GetAccountMainPurseURef(cmd.Context(),
		accountKey, block)
	if err != nil {
		return err
	}
	root, err := Client.GetStateRootHash(cmd.Context(), block)
	if err != nil {
		return err
	}
	balance, err := Client.GetBalance(cmd.Context(), root, purse)
	if err != nil {
		return err
	}
	fmt.Println(balance)
	return nil
}

var getEraSummaryCmd = newGetBlockCmd(`
era-summary [--block <hash> | --height <height>]`[1:],
	"Fetch the era summary of a switch block",
	`
Fetch the seigniorage allocations recorded in the switch block with --block
hash or --height, or in the latest switch block.
`[1:], getEraSummary, cobra.ExactArgs(0), complete.PredictNothing)

func getEraSummary(cmd *cobra.Command, _ []string) error {
	summary, err := Client.GetEraSummary(cmd.Context(), blockIdentifier(cmd))
	if err != nil {
		return err
	}
	if summary == nil {
		return fmt.Errorf("no era summary for block")
	}
	return printJSON(summary)
}

var getAuctionInfoCmd = newGetBlockCmd(`
auction-info [--block <hash> | --height <height>]`[1:],
	"Fetch the validator auction state",
	`
Fetch the validator weights and bids as of --block hash or --height, or as of
the latest block.
`[1:], getAuctionInfo, cobra.ExactArgs(0), complete.PredictNothing)

func getAuctionInfo(cmd *cobra.Command, _ []string) error {
	state, err := Client.GetAuctionInfo(cmd.Context(), blockIdentifier(cmd))
	if err != nil {
		return err
	}
	return printJSON(state)
}

// getPeersCmd represents the get peers command
var getPeersCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "List the peers of the node",
		Args:  cobra.ExactArgs(0),
		RunE:  getPeers,
	}
	getCmd.AddCommand(cmd)
	getCmplCmd.Sub["peers"] = complete.Command{Flags: mergeFlags(apiCmplFlags)}
	rootCmplCmd.Sub["help"].Sub["get"].Sub["peers"] = complete.Command{}
	return cmd
}()

func getPeers(cmd *cobra.Command, _ []string) error {
	peers, err := Client.GetPeers(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(peers)
}
