package cmd

import (
	"fmt"
	"os"

	"github.com/posener/complete"
	"github.com/posener/complete/cmd/install"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
)

const cliName = "cspr-cli"

var (
	installCompletion   bool
	uninstallCompletion bool
	assumeYes           bool
)

var installCompletionFlags = func() *flag.FlagSet {
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.BoolVar(&installCompletion, "install", false,
		"Install shell completion for cspr-cli")
	flags.BoolVar(&uninstallCompletion, "uninstall", false,
		"Uninstall shell completion for cspr-cli")
	flags.BoolVarP(&assumeYes, "yes", "y", false,
		"Do not prompt before installing or uninstalling")
	return flags
}()

// Complete runs the completion program if the shell invoked cspr-cli for
// completion, or installs or uninstalls completion if requested. It returns
// true if any of these took place.
func Complete() bool {
	comp := complete.New(cliName, rootCmplCmd)
	if comp.Complete() {
		return true
	}
	switch {
	case installCompletion:
		if !confirm("install") {
			return true
		}
		if err := install.Install(cliName); err != nil {
			fmt.Fprintln(os.Stderr, "install completion:", err)
		}
		return true
	case uninstallCompletion:
		if !confirm("uninstall") {
			return true
		}
		if err := install.Uninstall(cliName); err != nil {
			fmt.Fprintln(os.Stderr, "uninstall completion:", err)
		}
		return true
	}
	return false
}

func confirm(action string) bool {
	if assumeYes {
		return true
	}
	fmt.Printf("%v completion for %v? (y/N): ", action, cliName)
	var answer string
	fmt.Scanln(&answer)
	return answer == "y" || answer == "Y"
}

func generateCmplFlags(cmd *cobra.Command, cmplFlags complete.Flags) {
	// Due to a bug in cobra.Command.Flags(), we must call LocalFlags()
	// first to get any parent flags merged into cmd.Flags().
	// https://github.com/spf13/cobra/issues/412
	cmd.LocalFlags()
	cmd.Flags().VisitAll(func(flg *flag.Flag) {
		name := "--" + flg.Name
		// If the flag already has a custom completion, there is
		// nothing to do.
		if _, ok := cmplFlags[name]; ok {
			return
		}
		var predict complete.Predictor = complete.PredictAnything
		if flg.Value.Type() == "bool" {
			predict = complete.PredictNothing
		}
		cmplFlags[name] = predict
	})
}

// mergeFlags returns a new complete.Flags that merges all flgs.
func mergeFlags(flgs ...complete.Flags) complete.Flags {
	var size int
	for _, flg := range flgs {
		size += len(flg)
	}
	f := make(complete.Flags, size)
	for _, flg := range flgs {
		for k, v := range flg {
			f[k] = v
		}
	}
	return f
}
