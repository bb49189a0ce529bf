package deploy

import (
	"context"
	"fmt"
	"math/big"

	"github.com/cspr-tools/cspr/cl"
	"github.com/cspr-tools/cspr/crypto"
	"github.com/cspr-tools/cspr/internal/wasm"
)

const (
	// MotesPerCSPR is the number of motes in one CSPR.
	MotesPerCSPR = 1_000_000_000

	// DefaultTransferPayment is the payment amount of NewTransfer.
	DefaultTransferPayment = 100_000_000

	// DelegationPayment is the payment amount of NewDelegation and
	// NewUndelegation.
	DelegationPayment = 3_000_000_000
)

// Runtime argument names.
const (
	ArgAmount    = "amount"
	ArgTarget    = "target"
	ArgID        = "id"
	ArgDelegator = "delegator"
	ArgValidator = "validator"
)

// NewStandardPayment returns a payment of amount motes using the node's
// built in payment code.
func NewStandardPayment(amount *big.Int) ModuleBytes {
	return ModuleBytes{Code: []byte{},
		Args: Args{NewArg(ArgAmount, cl.NewU512(amount))}}
}

// NewTransferSession returns a Transfer of amount motes to the account with
// hash target. A nil id is encoded as None.
func NewTransferSession(amount *big.Int, target crypto.Digest,
	id *uint64) Transfer {
	idArg := cl.None(cl.TypeU64)
	if id != nil {
		idArg = cl.Some(cl.U64(*id))
	}
	return Transfer{Args: Args{
		NewArg(ArgAmount, cl.NewU512(amount)),
		NewArg(ArgTarget, cl.ByteArray(target[:])),
		NewArg(ArgID, idArg),
	}}
}

// NewTransfer returns a Deploy transferring amount motes from the account of
// params to the account with hash target.
func NewTransfer(params Params, amount *big.Int, target crypto.Digest,
	id *uint64) (*Deploy, error) {
	payment := NewStandardPayment(big.NewInt(DefaultTransferPayment))
	return New(params, payment, NewTransferSession(amount, target, id))
}

// NewModuleBytesChecked returns ModuleBytes after checking that code is a
// wasm module a node can execute.
func NewModuleBytesChecked(ctx context.Context,
	code []byte, args Args) (ModuleBytes, error) {
	if err := wasm.Validate(ctx, code); err != nil {
		return ModuleBytes{}, fmt.Errorf("module bytes: %w", err)
	}
	return ModuleBytes{Code: code, Args: args}, nil
}

// NewDelegation returns a Deploy running the delegate contract code with
// amount motes from delegator to validator.
func NewDelegation(ctx context.Context, params Params, amount *big.Int,
	delegator, validator crypto.PublicKey, code []byte) (*Deploy, error) {
	return newDelegation(ctx, params, amount, delegator, validator, code)
}

// NewUndelegation returns a Deploy running the undelegate contract code.
// Its arguments and payment are those of NewDelegation.
func NewUndelegation(ctx context.Context, params Params, amount *big.Int,
	delegator, validator crypto.PublicKey, code []byte) (*Deploy, error) {
	return newDelegation(ctx, params, amount, delegator, validator, code)
}

func newDelegation(ctx context.Context, params Params, amount *big.Int,
	delegator, validator crypto.PublicKey, code []byte) (*Deploy, error) {
	session, err := NewModuleBytesChecked(ctx, code, Args{
		NewArg(ArgDelegator, cl.PublicKey{Key: delegator}),
		NewArg(ArgValidator, cl.PublicKey{Key: validator}),
		NewArg(ArgAmount, cl.NewU512(amount)),
	})
	if err != nil {
		return nil, err
	}
	payment := NewStandardPayment(big.NewInt(DelegationPayment))
	return New(params, payment, session)
}

// NewContractInstall returns a Deploy installing the contract code with args
// and a standard payment of payment motes.
func NewContractInstall(ctx context.Context, params Params, code []byte,
	args Args, payment *big.Int) (*Deploy, error) {
	session, err := NewModuleBytesChecked(ctx, code, args)
	if err != nil {
		return nil, err
	}
	return New(params, NewStandardPayment(payment), session)
}

// NewContractInvocation returns a Deploy calling entryPoint of the contract
// stored under hash.
func NewContractInvocation(params Params, hash crypto.Digest,
	entryPoint string, args Args, payment *big.Int) (*Deploy, error) {
	if entryPoint == "" {
		return nil, fmt.Errorf("missing entry point")
	}
	session := StoredContractByHash{Hash: hash,
		EntryPoint: entryPoint, Args: args}
	return New(params, NewStandardPayment(payment), session)
}
