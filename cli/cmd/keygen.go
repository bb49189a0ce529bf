package cmd

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/cspr-tools/cspr/crypto"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/posener/complete"
	"github.com/spf13/cobra"
)

var keygenOutput string

// keygenCmd represents the keygen command
var keygenCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		DisableFlagsInUseLine: true,
		Use: `
keygen [--key-algo <algorithm>] [--output <file>]`[1:],
		Short: "Generate a new key pair",
		Long: `
Generate a new --key-algo key pair and print the public key, the account hash
and the hex encoded secret key.

With --output, the secret key is written to a new file readable only by the
current user instead of being printed. The file may be used as --secret-key.
`[1:],
		Args: cobra.ExactArgs(0),
		RunE: keygen,
	}
	rootCmd.AddCommand(cmd)
	rootCmplCmd.Sub["keygen"] = keygenCmplCmd
	rootCmplCmd.Sub["help"].Sub["keygen"] = complete.Command{}

	cmd.Flags().StringVarP(&keygenOutput, "output", "o", "",
		"File to write the secret key to")

	generateCmplFlags(cmd, keygenCmplCmd.Flags)
	return cmd
}()

var keygenCmplCmd = complete.Command{
	Flags: mergeFlags(apiCmplFlags, deployCmplFlags, complete.Flags{
		"--output": complete.PredictFiles("*"),
		"-o":       complete.PredictFiles("*"),
	}),
}

type keyPair struct {
	Algorithm   string           `json:"algorithm"`
	PublicKey   crypto.PublicKey `json:"public_key"`
	AccountHash crypto.Digest    `json:"account_hash"`
	SecretKey   string           `json:"secret_key,omitempty"`
}

func keygen(cmd *cobra.Command, _ []string) error {
	key, err := crypto.GenerateKey(keyAlgo)
	if err != nil {
		return err
	}
	pub := key.PublicKey()
	pair := keyPair{
		Algorithm:   keyAlgo.String(),
		PublicKey:   pub,
		AccountHash: pub.AccountHash(),
	}
	secret := hex.EncodeToString(key.Bytes())

	if keygenOutput == "" {
		pair.SecretKey = secret
		return printJSON(pair)
	}

	path, err := homedir.Expand(keygenOutput)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(f, secret); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return printJSON(pair)
}
