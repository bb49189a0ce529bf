package cmd

import (
	"fmt"

	"github.com/posener/complete"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command
var versionCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of cspr-cli",
		Args:  cobra.ExactArgs(0),
		Run: func(*cobra.Command, []string) {
			fmt.Println("cspr-cli:", Revision)
		},
	}
	rootCmd.AddCommand(cmd)
	rootCmplCmd.Sub["version"] = complete.Command{}
	rootCmplCmd.Sub["help"].Sub["version"] = complete.Command{}
	return cmd
}()
