package cmd

import (
	"fmt"
	"os"

	"github.com/cspr-tools/cspr/internal/db"
	"github.com/posener/complete"
	"github.com/spf13/cobra"
)

// showCmd represents the show command
var showCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		DisableFlagsInUseLine: true,
		Use: `
show --hash <hash>`[1:],
		Short: "Print a deploy from the outbox",
		Long: `
Print the JSON of the deploy in the outbox with --hash. Its state in the
outbox is printed to stderr.
`[1:],
		Args:    cobra.ExactArgs(0),
		PreRunE: validateHashFlag,
		RunE:    show,
	}
	rootCmd.AddCommand(cmd)
	rootCmplCmd.Sub["show"] = showCmplCmd
	rootCmplCmd.Sub["help"].Sub["show"] = complete.Command{}

	cmd.Flags().Var(&deployHash, "hash", "Hash of a deploy in the outbox")

	generateCmplFlags(cmd, showCmplCmd.Flags)
	return cmd
}()

var showCmplCmd = complete.Command{
	Flags: mergeFlags(apiCmplFlags, deployCmplFlags, hashCmplFlags),
}

func show(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	outbox, err := openOutbox(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := outbox.Close(); err != nil {
			log.Error(err)
		}
	}()

	conn := outbox.Pool.Get(ctx)
	if conn == nil {
		return ctx.Err()
	}
	defer outbox.Pool.Put(conn)

	d, row, err := db.LoadDeploy(conn, deployHash)
	if err != nil {
		return err
	}
	if row.Error != "" {
		fmt.Fprintf(os.Stderr, "status: %v: %v\n", row.Status, row.Error)
	} else {
		fmt.Fprintf(os.Stderr, "status: %v\n", row.Status)
	}
	return printJSON(d)
}
