package cmd

import (
	"context"
	"os"

	"github.com/cspr-tools/cspr/internal/db/deploys"
	"github.com/posener/complete"
	flag "github.com/spf13/pflag"
)

var hashCmplFlags = complete.Flags{
	"--hash": PredictDeployHashes,
}

// parseOutboxFlag parses just the --outbox flag out of the line being
// completed.
func parseOutboxFlag(args complete.Args) {
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.Usage = func() {}
	flags.StringVar(&outboxDir, "outbox", outboxDir, "")
	flags.SetOutput(nilWriter{})
	flags.Parse(args.All)
}

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }

// PredictDeployHashes predicts the hashes of the deploys in the outbox that
// are not already on the command line.
var PredictDeployHashes complete.PredictFunc = func(args complete.Args) []string {
	parseOutboxFlag(args)
	if _, err := os.Stat(expandOutbox()); err != nil {
		return nil
	}
	outbox, err := openOutbox(context.Background())
	if err != nil {
		return nil
	}
	defer outbox.Close()

	completed := make(map[string]struct{}, len(args.Completed))
	for _, arg := range args.Completed {
		completed[arg] = struct{}{}
	}
	var hashes []string
	for _, status := range []deploys.Status{deploys.Pending,
		deploys.Dispatched, deploys.Rejected} {
		rows, err := deploys.SelectByStatus(outbox.Conn, status)
		if err != nil {
			return nil
		}
		for _, row := range rows {
			hash := row.Hash.String()
			if _, ok := completed[hash]; ok {
				continue
			}
			hashes = append(hashes, hash)
		}
	}
	return hashes
}
