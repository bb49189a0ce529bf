package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/cspr-tools/cspr/api"
	"github.com/cspr-tools/cspr/crypto"
	"github.com/cspr-tools/cspr/deploy"
	"github.com/cspr-tools/cspr/internal/db"
	_log "github.com/cspr-tools/cspr/internal/log"
	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/posener/complete"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Revision is set at build time with -ldflags.
var Revision = "development"

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once
// to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

var (
	cfgFile string
	Client  = api.NewClient()
	Debug   bool

	chainName string
	outboxDir string
	secretKey string
	keyAlgo   = crypto.Ed25519
	ttl       = deploy.DefaultTTL
	gasPrice  uint64

	log = _log.New("cli")
)

var apiFlags = func() *flag.FlagSet {
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.StringVar(&Client.NodeServer, "node", api.NodeDefault,
		"scheme://host:port/rpc for the node JSON-RPC API")
	flags.StringVar(&Client.EventsServer, "events", api.EventsDefault,
		"scheme://host:port for the node event stream")
	flags.DurationVar(&Client.Timeout, "timeout", 15*time.Second,
		"Timeout for all API requests (i.e. 10s, 1m)")
	flags.BoolVar(&Debug, "debug", false,
		"Print debug logs and all RPC requests and responses")
	return flags
}()

var deployFlags = func() *flag.FlagSet {
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.StringVar(&chainName, "chain-name", "casper",
		"Name of the chain deploys are built for")
	flags.StringVar(&outboxDir, "outbox", "~/.cspr",
		"Directory of the outbox database")
	flags.StringVar(&secretKey, "secret-key", "",
		"Hex encoded secret key, or a file containing one")
	flags.Var(&keyAlgo, "key-algo", "Algorithm of --secret-key: ed25519 or secp256k1")
	flags.Var(&ttl, "ttl", "Time to live of new deploys (i.e. 30m, 1h 30m, 1day)")
	flags.Uint64Var(&gasPrice, "gas-price", deploy.DefaultGasPrice,
		"Gas price of new deploys")
	return flags
}()

// rootCmd represents the base command when called without any subcommands
var rootCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cspr-cli",
		Short: "Casper deploy toolkit",
		Long: `cspr-cli builds, signs, stores and sends deploys to a Casper network.

Outbox

Every deploy built by cspr-cli is signed with --secret-key and saved to the
outbox, a local database in the --outbox directory. Deploys in the outbox may
be approved by additional keys with 'approve', and sent with 'send'.

API Settings

cspr-cli sends deploys to the JSON-RPC API of a node. Use --node to specify
the endpoint, if not on http://localhost:7777/rpc. The 'watch' command reads
the node event stream at --events.

Configuration

Any flag may also be set in ~/.cspr-cli.yaml, or with an environment variable
such as CSPR_NODE or CSPR_SECRET_KEY. A .env file in the working directory is
loaded first.`,
		Args:              cobra.ExactArgs(0),
		PersistentPreRunE: initConfig,
		PreRunE:           validateRunCompletionFlags,
		Run:               runCompletion,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	cmd.Flags().AddFlagSet(installCompletionFlags)
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "",
		"Config file (default is $HOME/.cspr-cli.yaml)")
	flags.AddFlagSet(apiFlags)
	flags.AddFlagSet(deployFlags)

	generateCmplFlags(cmd, rootCmplCmd.Flags)
	return cmd
}()

var rootCmplCmd = complete.Command{
	Flags: mergeFlags(apiCmplFlags, deployCmplFlags),
	Sub:   complete.Commands{"help": complete.Command{Sub: complete.Commands{}}},
}
var apiCmplFlags = complete.Flags{
	"--help":   complete.PredictNothing,
	"--config": complete.PredictFiles("*.yaml"),
}
var deployCmplFlags = complete.Flags{
	"--outbox":     complete.PredictDirs("*"),
	"--secret-key": complete.PredictFiles("*"),
	"--key-algo":   complete.PredictSet("ed25519", "secp256k1"),
}

// initConfig loads .env, then the config file, and sets any flag that was
// not given on the command line from the config file or the environment.
func initConfig(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("godotenv.Load(): %w", err)
	}

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return err
		}
		v.AddConfigPath(home)
		v.SetConfigName(".cspr-cli")
	}
	v.SetEnvPrefix("CSPR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("config: %w", err)
		}
	} else {
		log.Debugf("using config file: %v", v.ConfigFileUsed())
	}

	if err := bindFlags(cmd.Flags(), v); err != nil {
		return err
	}

	_log.SetDebug(Debug)
	Client.DebugRequest = Debug
	return nil
}

func bindFlags(flags *flag.FlagSet, v *viper.Viper) error {
	var err error
	flags.VisitAll(func(flg *flag.Flag) {
		if err != nil || flg.Changed || flg.Name == "config" {
			return
		}
		if !v.IsSet(flg.Name) {
			return
		}
		if e := flags.Set(flg.Name, v.GetString(flg.Name)); e != nil {
			err = fmt.Errorf("config: %v: %w", flg.Name, e)
		}
	})
	return err
}

func validateRunCompletionFlags(cmd *cobra.Command, _ []string) error {
	// Ensure that the install completion flags are not ever used with any
	// other flags.
	flags := cmd.Flags()
	installCompletionMode := false
	otherFlags := false
	flags.Visit(func(flg *flag.Flag) {
		switch flg.Name {
		case "install", "uninstall", "yes":
			installCompletionMode = true
		default:
			otherFlags = true
		}
	})
	if installCompletionMode && otherFlags {
		return fmt.Errorf(
			"--install and --uninstall may not be used with any other flags")
	}
	return nil
}

func runCompletion(cmd *cobra.Command, _ []string) {
	// Complete() returns true if it attempts to install completion,
	// otherwise just output the help page.
	if !Complete() {
		cmd.Help()
	}
}

// loadKey parses --secret-key, which is either hex or the path of a file
// containing hex.
func loadKey() (crypto.PrivateKey, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("--secret-key is required")
	}
	text := secretKey
	if path, err := homedir.Expand(secretKey); err == nil {
		if data, err := os.ReadFile(path); err == nil {
			text = string(data)
		}
	}
	key, err := crypto.ParsePrivateKey(keyAlgo, strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("--secret-key: %w", err)
	}
	return key, nil
}

// deployParams returns the header parameters of a new deploy from account.
func deployParams(account crypto.PublicKey) deploy.Params {
	params := deploy.DefaultParams(account, chainName)
	params.TTL = ttl
	params.GasPrice = gasPrice
	return params
}

func openOutbox(ctx context.Context) (*db.Outbox, error) {
	return db.Open(ctx, expandOutbox())
}

func expandOutbox() string {
	dir, err := homedir.Expand(outboxDir)
	if err != nil {
		return outboxDir
	}
	return dir
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// requireFlags returns an error naming the first of names that was not set.
func requireFlags(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		if !cmd.Flags().Changed(name) {
			return fmt.Errorf("--%v is required", name)
		}
	}
	return nil
}
