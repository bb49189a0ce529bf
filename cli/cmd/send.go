package cmd

import (
	"context"
	"errors"
	"fmt"

	"crawshaw.io/sqlite"
	jrpc "github.com/AdamSLevy/jsonrpc2/v14"
	"github.com/cspr-tools/cspr/api"
	"github.com/cspr-tools/cspr/deploy"
	"github.com/cspr-tools/cspr/internal/db"
	"github.com/cspr-tools/cspr/internal/db/deploys"
	"github.com/posener/complete"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	sendHashes      Digests
	sendPending     bool
	sendConcurrency int
)

// sendCmd represents the send command
var sendCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		DisableFlagsInUseLine: true,
		Use: `
send --hash <hash>... | --pending`[1:],
		Short: "Send deploys from the outbox",
		Long: `
Send deploys from the outbox to --node. Use --hash to select deploys, or
--pending to send every deploy that has not yet been sent.

Deploys are sent concurrently. A deploy accepted by the node is marked
dispatched, and one refused by the node is marked rejected along with the
reason. Deploys that could not be sent stay in their current state.
`[1:],
		Args:    cobra.ExactArgs(0),
		PreRunE: validateSendFlags,
		RunE:    send,
	}
	rootCmd.AddCommand(cmd)
	rootCmplCmd.Sub["send"] = sendCmplCmd
	rootCmplCmd.Sub["help"].Sub["send"] = complete.Command{}

	flags := cmd.Flags()
	flags.Var(&sendHashes, "hash", "Hash of a deploy in the outbox")
	flags.BoolVar(&sendPending, "pending", false, "Send all pending deploys")
	flags.IntVar(&sendConcurrency, "concurrency", 4,
		"Maximum number of deploys sent at once")

	generateCmplFlags(cmd, sendCmplCmd.Flags)
	return cmd
}()

var sendCmplCmd = complete.Command{
	Flags: mergeFlags(apiCmplFlags, deployCmplFlags, hashCmplFlags),
}

func validateSendFlags(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	if flags.Changed("hash") == sendPending {
		return fmt.Errorf("exactly one of --hash or --pending is required")
	}
	if sendConcurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}
	return nil
}

func send(cmd *cobra.Command, _ []string) error {
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

	var ds []*deploy.Deploy
	if sendPending {
		if ds, err = db.LoadDeploys(outbox.Conn, deploys.Pending); err != nil {
			return err
		}
	}
	for _, hash := range sendHashes {
		d, _, err := db.LoadDeploy(outbox.Conn, hash)
		if err != nil {
			return err
		}
		ds = append(ds, d)
	}
	if len(ds) == 0 {
		fmt.Println("no deploys to send")
		return nil
	}
	return dispatch(ctx, outbox.Conn, Client, ds, sendConcurrency)
}

// sendResult is the outcome of sending a single deploy.
type sendResult struct {
	sent      bool
	rejection error
}

// dispatch sends ds to gw, at most limit at a time, and records the outcome
// of each deploy in the outbox on conn.
//
// A rejection by the node does not stop the other deploys from being sent.
// Any other error cancels the deploys not yet sent and is returned after the
// outcomes of the others have been recorded.
func dispatch(ctx context.Context, conn *sqlite.Conn, gw api.Gateway,
	ds []*deploy.Deploy, limit int) error {
	results := make([]sendResult, len(ds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, d := range ds {
		i, d := i, d
		g.Go(func() error {
			_, err := gw.PutDeploy(gctx, d)
			var rejection jrpc.Error
			switch {
			case err == nil:
				results[i].sent = true
			case errors.As(err, &rejection):
				results[i].rejection = err
			default:
				return fmt.Errorf("deploy %v: %w", d.Hash(), err)
			}
			return nil
		})
	}
	sendErr := g.Wait()

	var rejected int
	for i, d := range ds {
		var status deploys.Status
		var msg string
		switch res := results[i]; {
		case res.sent:
			status = deploys.Dispatched
		case res.rejection != nil:
			status, msg = deploys.Rejected, res.rejection.Error()
			rejected++
		default:
			continue
		}
		if err := deploys.SetStatus(conn, d.Hash(), status, msg); err != nil {
			return err
		}
		if msg != "" {
			fmt.Printf("%v %v: %v\n", d.Hash(), status, msg)
			continue
		}
		fmt.Println(d.Hash(), status)
	}

	if sendErr != nil {
		return sendErr
	}
	if rejected > 0 {
		return fmt.Errorf("%v of %v deploys rejected", rejected, len(ds))
	}
	return nil
}
