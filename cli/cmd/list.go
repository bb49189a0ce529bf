package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cspr-tools/cspr/internal/db/approvals"
	"github.com/cspr-tools/cspr/internal/db/deploys"
	"github.com/posener/complete"
	"github.com/spf13/cobra"
)

var listStatus deploys.Status

// listCmd represents the list command
var listCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		DisableFlagsInUseLine: true,
		Use: `
list [--status <status>]`[1:],
		Aliases: []string{"ls"},
		Short:   "List the deploys in the outbox",
		Long: `
List the deploys in the outbox with --status, one of pending, dispatched,
rejected, processed or failed.
`[1:],
		Args: cobra.ExactArgs(0),
		RunE: list,
	}
	rootCmd.AddCommand(cmd)
	rootCmplCmd.Sub["list"] = listCmplCmd
	rootCmplCmd.Sub["help"].Sub["list"] = complete.Command{}

	cmd.Flags().Var(&listStatus, "status", "State of the deploys to list")

	generateCmplFlags(cmd, listCmplCmd.Flags)
	return cmd
}()

var listCmplCmd = complete.Command{
	Flags: mergeFlags(apiCmplFlags, deployCmplFlags, complete.Flags{
		"--status": complete.PredictSet("pending", "dispatched",
			"rejected", "processed", "failed"),
	}),
}

func list(cmd *cobra.Command, _ []string) error {
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

	rows, err := deploys.SelectByStatus(conn, listStatus)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "HASH\tTIMESTAMP\tAPPROVALS\tERROR")
	for _, row := range rows {
		count, err := approvals.SelectCount(conn, row.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n",
			row.Hash, row.Timestamp, count, row.Error)
	}
	return w.Flush()
}
