package deploy

import (
	"errors"
	"fmt"
	"time"

	"github.com/cspr-tools/cspr/cl/bytesrepr"
	"github.com/cspr-tools/cspr/crypto"
)

const (
	// MaxTTL is the longest TTL a node accepts.
	MaxTTL = TTL(24 * time.Hour)

	// DefaultTTL is the TTL of DefaultParams.
	DefaultTTL = TTL(30 * time.Minute)

	// DefaultGasPrice is the gas price of DefaultParams.
	DefaultGasPrice = 1
)

var (
	ErrTTLExceeded     = fmt.Errorf("ttl exceeds maximum of %v", MaxTTL)
	ErrInvalidGasPrice = errors.New("gas price must be at least 1")
)

// Params are the inputs to a Header other than the body hash.
type Params struct {
	Account      crypto.PublicKey
	ChainName    string
	Dependencies []crypto.Digest
	GasPrice     uint64
	Timestamp    Timestamp
	TTL          TTL
}

// DefaultParams returns Params for account on chain with the current time,
// DefaultGasPrice and DefaultTTL.
func DefaultParams(account crypto.PublicKey, chain string) Params {
	return Params{
		Account:   account,
		ChainName: chain,
		GasPrice:  DefaultGasPrice,
		Timestamp: Now(),
		TTL:       DefaultTTL,
	}
}

// Header is the signed part of a deploy. Its hash is the deploy hash.
type Header struct {
	Account      crypto.PublicKey `json:"account"`
	Timestamp    Timestamp        `json:"timestamp"`
	TTL          TTL              `json:"ttl"`
	GasPrice     uint64           `json:"gas_price"`
	BodyHash     crypto.Digest    `json:"body_hash"`
	Dependencies []crypto.Digest  `json:"dependencies"`
	ChainName    string           `json:"chain_name"`
}

// NewHeader validates params and returns the Header committing to bodyHash.
func NewHeader(params Params, bodyHash crypto.Digest) (Header, error) {
	deps := make([]crypto.Digest, len(params.Dependencies))
	copy(deps, params.Dependencies)
	h := Header{
		Account:      params.Account,
		Timestamp:    NewTimestamp(params.Timestamp.Time),
		TTL:          params.TTL,
		GasPrice:     params.GasPrice,
		BodyHash:     bodyHash,
		Dependencies: deps,
		ChainName:    params.ChainName,
	}
	if err := h.validate(); err != nil {
		return Header{}, err
	}
	h.Account.Key = append([]byte{}, h.Account.Key...)
	h.TTL = TTLFromMillis(h.TTL.Millis())
	return h, nil
}

// validate applies the limits a node enforces on every header, however it
// was obtained.
func (h Header) validate() error {
	if err := h.Account.Validate(); err != nil {
		return fmt.Errorf("account: %w", err)
	}
	if h.ChainName == "" {
		return fmt.Errorf("missing chain name")
	}
	if h.Timestamp.IsZero() {
		return fmt.Errorf("missing timestamp")
	}
	if err := h.Timestamp.Validate(); err != nil {
		return err
	}
	if h.TTL < TTL(time.Millisecond) {
		return fmt.Errorf("ttl must be at least 1ms")
	}
	if h.TTL > MaxTTL {
		return ErrTTLExceeded
	}
	if h.GasPrice < 1 {
		return ErrInvalidGasPrice
	}
	return nil
}

// Expires returns the time after which a node rejects the deploy.
func (h Header) Expires() time.Time {
	return h.Timestamp.Add(time.Duration(h.TTL))
}

// AppendBinary appends the encoded header.
func (h Header) AppendBinary(dst []byte) ([]byte, error) {
	if err := h.Account.Validate(); err != nil {
		return dst, fmt.Errorf("account: %w", err)
	}
	if err := h.Timestamp.Validate(); err != nil {
		return dst, err
	}
	dst = append(dst, h.Account.Bytes()...)
	dst = bytesrepr.AppendU64(dst, h.Timestamp.Millis())
	dst = bytesrepr.AppendU64(dst, h.TTL.Millis())
	dst = bytesrepr.AppendU64(dst, h.GasPrice)
	dst = append(dst, h.BodyHash[:]...)
	dst = bytesrepr.AppendU32(dst, uint32(len(h.Dependencies)))
	for _, dep := range h.Dependencies {
		dst = append(dst, dep[:]...)
	}
	return bytesrepr.AppendString(dst, h.ChainName)
}

// Hash returns the deploy hash: the hash of the encoded header.
func (h Header) Hash() (crypto.Digest, error) {
	data, err := h.AppendBinary(nil)
	if err != nil {
		return crypto.Digest{}, err
	}
	return crypto.Hash(data), nil
}

// DecodeHeader decodes a Header from the front of data and returns the
// remaining bytes. The header must satisfy the same limits as NewHeader.
func DecodeHeader(data []byte) (Header, []byte, error) {
	var h Header
	var err error
	rest := data
	fail := func(field string, err error) (Header, []byte, error) {
		return Header{}, data, fmt.Errorf("header: %v: %w", field, err)
	}
	if h.Account, rest, err = crypto.DecodePublicKey(rest); err != nil {
		return fail("account", err)
	}
	var ms uint64
	if ms, rest, err = bytesrepr.U64(rest); err != nil {
		return fail("timestamp", err)
	}
	if h.Timestamp, err = TimestampFromMillis(ms); err != nil {
		return fail("timestamp", err)
	}
	if ms, rest, err = bytesrepr.U64(rest); err != nil {
		return fail("ttl", err)
	}
	h.TTL = TTLFromMillis(ms)
	if h.GasPrice, rest, err = bytesrepr.U64(rest); err != nil {
		return fail("gas_price", err)
	}
	if h.BodyHash, rest, err = decodeHash(rest); err != nil {
		return fail("body_hash", err)
	}
	n, rest, err := bytesrepr.U32(rest)
	if err != nil {
		return fail("dependencies", err)
	}
	if uint64(n) > uint64(len(rest)/len(crypto.Digest{})) {
		return fail("dependencies", bytesrepr.ErrBufferTooShort)
	}
	h.Dependencies = make([]crypto.Digest, n)
	for i := range h.Dependencies {
		if h.Dependencies[i], rest, err = decodeHash(rest); err != nil {
			return fail("dependencies", err)
		}
	}
	if h.ChainName, rest, err = bytesrepr.String(rest); err != nil {
		return fail("chain_name", err)
	}
	if err := h.validate(); err != nil {
		return Header{}, data, fmt.Errorf("header: %w", err)
	}
	return h, rest, nil
}
