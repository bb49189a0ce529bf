package cmd

import (
	"context"
	"fmt"
	"math/big"

	"github.com/cspr-tools/cspr/crypto"
	"github.com/cspr-tools/cspr/deploy"
	"github.com/posener/complete"
	"github.com/spf13/cobra"
)

var (
	delegateAmount    Motes
	delegateValidator crypto.PublicKey
	delegateWasm      BinaryFile
)

var delegateLong = `
Build a deploy that runs the --wasm %[1]s contract code to %[1]s --amount
CSPR from the account of --secret-key to the --validator public key.

The --wasm file is checked to be a module a node can execute before the deploy
is built. A payment of 3 CSPR is used.
`[1:]

// delegateCmd represents the delegate command
var delegateCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		DisableFlagsInUseLine: true,
		Use: `
delegate --amount <CSPR> --validator <public-key> --wasm <file> [--send]`[1:],
		Short:   "Build a delegation",
		Long:    fmt.Sprintf(delegateLong, "delegate"),
		Args:    cobra.ExactArgs(0),
		PreRunE: validateDelegateFlags,
		RunE:    delegate(deploy.NewDelegation),
	}
	rootCmd.AddCommand(cmd)
	rootCmplCmd.Sub["delegate"] = delegateCmplCmd
	rootCmplCmd.Sub["help"].Sub["delegate"] = complete.Command{}
	addDelegateFlags(cmd)
	generateCmplFlags(cmd, delegateCmplCmd.Flags)
	return cmd
}()

// undelegateCmd represents the undelegate command
var undelegateCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		DisableFlagsInUseLine: true,
		Use: `
undelegate --amount <CSPR> --validator <public-key> --wasm <file> [--send]`[1:],
		Short:   "Build an undelegation",
		Long:    fmt.Sprintf(delegateLong, "undelegate"),
		Args:    cobra.ExactArgs(0),
		PreRunE: validateDelegateFlags,
		RunE:    delegate(deploy.NewUndelegation),
	}
	rootCmd.AddCommand(cmd)
	rootCmplCmd.Sub["undelegate"] = undelegateCmplCmd
	rootCmplCmd.Sub["help"].Sub["undelegate"] = complete.Command{}
	addDelegateFlags(cmd)
	generateCmplFlags(cmd, undelegateCmplCmd.Flags)
	return cmd
}()

func addDelegateFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Var(&delegateAmount, "amount", "Amount to delegate or undelegate")
	flags.Var(&delegateValidator, "validator", "Public key of the validator")
	flags.Var(&delegateWasm, "wasm", "Delegation contract code")
	flags.AddFlagSet(buildFlags)
}

var delegateCmplFlags = complete.Flags{
	"--wasm": complete.PredictFiles("*.wasm"),
}

var delegateCmplCmd = complete.Command{
	Flags: mergeFlags(apiCmplFlags, deployCmplFlags, delegateCmplFlags),
}

var undelegateCmplCmd = complete.Command{
	Flags: mergeFlags(apiCmplFlags, deployCmplFlags, delegateCmplFlags),
}

func validateDelegateFlags(cmd *cobra.Command, _ []string) error {
	return requireFlags(cmd, "amount", "validator", "wasm")
}

type delegationFactory func(ctx context.Context, params deploy.Params,
	amount *big.Int, delegator, validator crypto.PublicKey,
	code []byte) (*deploy.Deploy, error)

func delegate(factory delegationFactory) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		return buildDeploy(ctx, func(params deploy.Params) (
			*deploy.Deploy, error) {
			return factory(ctx, params, delegateAmount.Motes(),
				params.Account, delegateValidator, delegateWasm.Data)
		})
	}
}
