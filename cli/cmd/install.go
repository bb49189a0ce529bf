package cmd

import (
	"github.com/cspr-tools/cspr/deploy"
	"github.com/posener/complete"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
)

var (
	installWasm   BinaryFile
	sessionArgs   ArgsFlag
	paymentAmount Motes
)

// sessionFlags are shared by install and invoke.
var sessionFlags = func() *flag.FlagSet {
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.Var(&sessionArgs, "arg", "Runtime argument as name:TYPE=value")
	flags.Var(&paymentAmount, "payment", "Amount paid for execution")
	return flags
}()

var argsUsage = `
Arguments
        Runtime arguments are given with --arg, which may be used more than
        once. Each argument is written as name:TYPE=value, such as,
                amount:U512=2500000000
                target:PublicKey=01b92e36567350dd7b339d709bfe341df6fda853e85315418f1bb3ddd414d9f5be
                memo:Option(String)=
                ids:List(U64)=1,2,3
        An empty value is None for an Option type. List items are separated
        by commas. Argument order is preserved.
`[1:]

// installCmd represents the install command
var installCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		DisableFlagsInUseLine: true,
		Use: `
install --wasm <file> --payment <CSPR> [--arg name:TYPE=value]... [--send]`[1:],
		Short: "Build a contract install",
		Long: `
Build a deploy that runs the --wasm contract code with the given runtime
arguments, paying --payment CSPR. The --wasm file is checked to be a module a
node can execute before the deploy is built.

`[1:] + argsUsage,
		Args:    cobra.ExactArgs(0),
		PreRunE: validateInstallFlags,
		RunE:    installContract,
	}
	rootCmd.AddCommand(cmd)
	rootCmplCmd.Sub["install"] = installCmplCmd
	rootCmplCmd.Sub["help"].Sub["install"] = complete.Command{}

	flags := cmd.Flags()
	flags.Var(&installWasm, "wasm", "Contract code")
	flags.AddFlagSet(sessionFlags)
	flags.AddFlagSet(buildFlags)

	generateCmplFlags(cmd, installCmplCmd.Flags)
	return cmd
}()

var installCmplCmd = complete.Command{
	Flags: mergeFlags(apiCmplFlags, deployCmplFlags, delegateCmplFlags),
}

func validateInstallFlags(cmd *cobra.Command, _ []string) error {
	return requireFlags(cmd, "wasm", "payment")
}

func installContract(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	return buildDeploy(ctx, func(params deploy.Params) (*deploy.Deploy, error) {
		return deploy.NewContractInstall(ctx, params, installWasm.Data,
			deploy.Args(sessionArgs), paymentAmount.Motes())
	})
}
