package cmd

import (
	"encoding/json"
	"fmt"

	"crawshaw.io/sqlite"
	"github.com/cspr-tools/cspr/api"
	"github.com/cspr-tools/cspr/internal/db/deploys"
	"github.com/posener/complete"
	"github.com/spf13/cobra"
)

var (
	watchStartFrom uint64
	watchFollow    bool
)

// watchCmd represents the watch command
var watchCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		DisableFlagsInUseLine: true,
		Use: `
watch [--follow] [--start-from <event-id>]`[1:],
		Short: "Record the execution of dispatched deploys",
		Long: `
Subscribe to the deploys event stream at --events and mark each dispatched
deploy in the outbox as processed or failed once it is executed in a block.

Without --follow, watch exits once no deploy in the outbox is dispatched. Use
--start-from to replay events the node has already emitted.
`[1:],
		Args: cobra.ExactArgs(0),
		RunE: watch,
	}
	rootCmd.AddCommand(cmd)
	rootCmplCmd.Sub["watch"] = watchCmplCmd
	rootCmplCmd.Sub["help"].Sub["watch"] = complete.Command{}

	flags := cmd.Flags()
	flags.BoolVar(&watchFollow, "follow", false,
		"Keep watching after every dispatched deploy is processed")
	flags.Uint64Var(&watchStartFrom, "start-from", 0,
		"Event ID to replay the stream from")

	generateCmplFlags(cmd, watchCmplCmd.Flags)
	return cmd
}()

var watchCmplCmd = complete.Command{
	Flags: mergeFlags(apiCmplFlags, deployCmplFlags),
}

func watch(cmd *cobra.Command, _ []string) error {
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

	if !watchFollow {
		if done, err := noneDispatched(outbox.Conn); err != nil || done {
			if done {
				fmt.Println("no dispatched deploys")
			}
			return err
		}
	}

	filter := api.EventFilter{Channel: api.ChannelDeploys}
	if cmd.Flags().Changed("start-from") {
		filter.StartFrom = &watchStartFrom
	}
	sub, err := Client.Subscribe(ctx, filter)
	if err != nil {
		return err
	}
	defer sub.Close()

	for e := range sub.Events() {
		if e.Type != "DeployProcessed" {
			continue
		}
		processed, err := e.DeployProcessed()
		if err != nil {
			log.Warnf("%v event: %v", e.Type, err)
			continue
		}
		marked, err := markProcessed(outbox.Conn, processed)
		if err != nil {
			return err
		}
		if !marked || watchFollow {
			continue
		}
		if done, err := noneDispatched(outbox.Conn); err != nil || done {
			return err
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return sub.Err()
}

func noneDispatched(conn *sqlite.Conn) (bool, error) {
	count, err := deploys.SelectCount(conn, deploys.Dispatched)
	return count == 0, err
}

type executionFailure struct {
	ErrorMessage string `json:"error_message"`
}

// markProcessed records the execution result of a dispatched deploy in the
// outbox. Deploys that are not in the outbox, or not dispatched, are ignored.
func markProcessed(conn *sqlite.Conn, p api.DeployProcessed) (bool, error) {
	row, err := deploys.SelectByHash(conn, p.DeployHash)
	if err != nil || row == nil || row.Status != deploys.Dispatched {
		return false, err
	}

	status, msg := deploys.Processed, ""
	if p.Failed() {
		status = deploys.Failed
		var failure executionFailure
		if err := json.Unmarshal(p.ExecutionResult["Failure"],
			&failure); err != nil {
			log.Warnf("deploy %v: execution result: %v", p.DeployHash, err)
		}
		msg = failure.ErrorMessage
		if msg == "" {
			msg = "execution failed"
		}
	}
	if err := deploys.SetStatus(conn, p.DeployHash, status, msg); err != nil {
		return false, err
	}
	if msg != "" {
		fmt.Printf("%v %v: %v\n", p.DeployHash, status, msg)
	} else {
		fmt.Println(p.DeployHash, status)
	}
	return true, nil
}
