package cmd

import (
	"fmt"

	"github.com/cspr-tools/cspr/crypto"
	"github.com/cspr-tools/cspr/internal/db"
	"github.com/posener/complete"
	"github.com/spf13/cobra"
)

var deployHash crypto.Digest

// approveCmd represents the approve command
var approveCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		DisableFlagsInUseLine: true,
		Use: `
approve --hash <hash> --secret-key <key>`[1:],
		Short: "Approve a deploy in the outbox",
		Long: `
Sign the deploy in the outbox with --hash using --secret-key, and print it.

A key that has already approved the deploy is accepted without adding a second
approval. Approving does not change the state of the deploy, so a deploy that
was already sent must be sent again for the node to see the new approval.
`[1:],
		Args:    cobra.ExactArgs(0),
		PreRunE: validateHashFlag,
		RunE:    approve,
	}
	rootCmd.AddCommand(cmd)
	rootCmplCmd.Sub["approve"] = approveCmplCmd
	rootCmplCmd.Sub["help"].Sub["approve"] = complete.Command{}

	cmd.Flags().Var(&deployHash, "hash", "Hash of a deploy in the outbox")

	generateCmplFlags(cmd, approveCmplCmd.Flags)
	return cmd
}()

var approveCmplCmd = complete.Command{
	Flags: mergeFlags(apiCmplFlags, deployCmplFlags, hashCmplFlags),
}

func validateHashFlag(cmd *cobra.Command, _ []string) error {
	return requireFlags(cmd, "hash")
}

func approve(cmd *cobra.Command, _ []string) error {
	key, err := loadKey()
	if err != nil {
		return err
	}
	outbox, err := openOutbox(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if err := outbox.Close(); err != nil {
			log.Error(err)
		}
	}()

	d, _, err := db.LoadDeploy(outbox.Conn, deployHash)
	if err != nil {
		return err
	}
	if err := d.Approve(key); err != nil {
		return err
	}
	if _, err := db.SaveDeploy(outbox.Conn, d); err != nil {
		return fmt.Errorf("db.SaveDeploy(): %w", err)
	}
	return printJSON(d)
}
