package cmd

import (
	"github.com/cspr-tools/cspr/crypto"
	"github.com/cspr-tools/cspr/deploy"
	"github.com/posener/complete"
	"github.com/spf13/cobra"
)

var (
	contractHash crypto.Digest
	entryPoint   string
)

// invokeCmd represents the invoke command
var invokeCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		DisableFlagsInUseLine: true,
		Use: `
invoke --contract-hash <hash> --entry-point <name> --payment <CSPR>
        [--arg name:TYPE=value]... [--send]`[1:],
		Short: "Build a stored contract call",
		Long: `
Build a deploy that calls --entry-point of the contract stored under
--contract-hash with the given runtime arguments, paying --payment CSPR.

`[1:] + argsUsage,
		Args:    cobra.ExactArgs(0),
		PreRunE: validateInvokeFlags,
		RunE:    invoke,
	}
	rootCmd.AddCommand(cmd)
	rootCmplCmd.Sub["invoke"] = invokeCmplCmd
	rootCmplCmd.Sub["help"].Sub["invoke"] = complete.Command{}

	flags := cmd.Flags()
	flags.Var(&contractHash, "contract-hash", "Hash of the stored contract")
	flags.StringVar(&entryPoint, "entry-point", "", "Entry point to call")
	flags.AddFlagSet(sessionFlags)
	flags.AddFlagSet(buildFlags)

	generateCmplFlags(cmd, invokeCmplCmd.Flags)
	return cmd
}()

var invokeCmplCmd = complete.Command{
	Flags: mergeFlags(apiCmplFlags, deployCmplFlags),
}

func validateInvokeFlags(cmd *cobra.Command, _ []string) error {
	return requireFlags(cmd, "contract-hash", "entry-point", "payment")
}

func invoke(cmd *cobra.Command, _ []string) error {
	return buildDeploy(cmd.Context(), func(params deploy.Params) (
		*deploy.Deploy, error) {
		return deploy.NewContractInvocation(params, contractHash, entryPoint,
			deploy.Args(sessionArgs), paymentAmount.Motes())
	})
}
