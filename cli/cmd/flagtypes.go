package cmd

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/cspr-tools/cspr/cl"
	"github.com/cspr-tools/cspr/crypto"
	"github.com/cspr-tools/cspr/deploy"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/shopspring/decimal"
)

// motesDecimals is the number of decimal places of one CSPR in motes.
const motesDecimals = 9

// Motes parses an amount given in CSPR, such as "2.5", or in motes with a
// "motes" suffix, such as "2500000000motes".
type Motes struct {
	CSPR decimal.Decimal
}

func (m *Motes) Set(s string) error {
	var amount decimal.Decimal
	var err error
	if motes := strings.TrimSuffix(s, "motes"); motes != s {
		amount, err = decimal.NewFromString(strings.TrimSpace(motes))
		if err == nil && !amount.IsInteger() {
			return fmt.Errorf("motes must be an integer")
		}
		amount = amount.Shift(-motesDecimals)
	} else {
		amount, err = decimal.NewFromString(s)
	}
	if err != nil {
		return err
	}
	if amount.IsNegative() {
		return fmt.Errorf("amount must not be negative")
	}
	if !amount.Shift(motesDecimals).IsInteger() {
		return fmt.Errorf("amount has more than %v decimal places",
			motesDecimals)
	}
	m.CSPR = amount
	return nil
}

// Motes returns the amount in motes.
func (m Motes) Motes() *big.Int {
	return m.CSPR.Shift(motesDecimals).BigInt()
}

func (m Motes) String() string {
	return m.CSPR.String()
}

func (Motes) Type() string {
	return "CSPR"
}

// BinaryFile reads the file at the path given to the flag.
type BinaryFile struct {
	Path string
	Data []byte
}

func (f *BinaryFile) Set(path string) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f.Path = path
	f.Data = data
	return nil
}
func (f BinaryFile) String() string {
	return f.Path
}
func (BinaryFile) Type() string {
	return "file"
}

// ArgsFlag collects runtime arguments given as name:TYPE=value, such as
// "amount:U512=1000" or "owner:Option(PublicKey)=". The flag may be used
// more than once, and argument order is preserved.
type ArgsFlag deploy.Args

func (args *ArgsFlag) Set(s string) error {
	arg, err := parseArg(s)
	if err != nil {
		return err
	}
	if _, ok := deploy.Args(*args).Get(arg.Name); ok {
		return fmt.Errorf("duplicate argument: %q", arg.Name)
	}
	*args = append(*args, arg)
	return nil
}

func parseArg(s string) (deploy.Arg, error) {
	name, rest, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return deploy.Arg{}, fmt.Errorf("%q: expected name:TYPE=value", s)
	}
	typeName, value, ok := strings.Cut(rest, "=")
	if !ok {
		return deploy.Arg{}, fmt.Errorf("%q: expected name:TYPE=value", s)
	}
	t, err := cl.ParseTypeName(typeName)
	if err != nil {
		return deploy.Arg{}, fmt.Errorf("%v: %w", name, err)
	}
	v, err := cl.ParseSimple(t, value)
	if err != nil {
		return deploy.Arg{}, fmt.Errorf("%v: %w", name, err)
	}
	return deploy.NewArg(name, v), nil
}

func (args ArgsFlag) String() string {
	names := make([]string, len(args))
	for i, arg := range args {
		names[i] = arg.Name
	}
	return strings.Join(names, ",")
}

func (ArgsFlag) Type() string {
	return "name:TYPE=value"
}

// Digests collects deploy hashes given as repeated or comma separated flags.
type Digests []crypto.Digest

func (ds *Digests) Set(s string) error {
	for _, hex := range strings.Split(s, ",") {
		d, err := crypto.ParseDigest(strings.TrimSpace(hex))
		if err != nil {
			return err
		}
		*ds = append(*ds, d)
	}
	return nil
}

func (ds Digests) String() string {
	hexes := make([]string, len(ds))
	for i, d := range ds {
		hexes[i] = d.String()
	}
	return strings.Join(hexes, ",")
}

func (Digests) Type() string {
	return "hash"
}
