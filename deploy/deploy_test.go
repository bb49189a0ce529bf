package deploy_test

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cspr-tools/cspr/cl"
	"github.com/cspr-tools/cspr/crypto"
	"github.com/cspr-tools/cspr/deploy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	scenarioTimestamp = 1605573564072
	scenarioBodyHash  = "f50b2317563d307508d39e55968b42dbaa2f7f37a004d2e936d2c5eeb4f57078"
	scenarioHash      = "00b23de9104c8e1fc1b7665cb64f5ebbf7cfa24120e51f4ad4996aa0d577215d"
	scenarioPayment   = "00000000000100000006000000616d6f756e74050000000400e1f50508"
	scenarioSession   = "050300000006000000616d6f756e74050000000400f9029508" +
		"060000007461726765742000000022222222222222222222222222222222222222" +
		"222222222222222222222222220f2000000002000000696401000000000d05"
)

var (
	scenarioAccount = crypto.PublicKey{Algorithm: crypto.Ed25519,
		Key: bytes.Repeat([]byte{0x11}, 32)}
	scenarioTarget = func() (d crypto.Digest) {
		copy(d[:], bytes.Repeat([]byte{0x22}, 32))
		return
	}()
)

func scenarioParams() deploy.Params {
	ts, err := deploy.TimestampFromMillis(scenarioTimestamp)
	if err != nil {
		panic(err)
	}
	return deploy.Params{
		Account:   scenarioAccount,
		ChainName: "casper-net-1",
		GasPrice:  1,
		Timestamp: ts,
		TTL:       deploy.TTLFromMillis(1800000),
	}
}

func scenarioDeploy(t *testing.T) *deploy.Deploy {
	d, err := deploy.NewTransfer(scenarioParams(),
		big.NewInt(2500000000), scenarioTarget, nil)
	require.NoError(t, err)
	return d
}

func mustKey(t *testing.T, algo crypto.KeyAlgorithm, b byte) crypto.PrivateKey {
	raw := make([]byte, 32)
	raw[31] = b
	key, err := crypto.PrivateKeyFromBytes(algo, raw)
	require.NoError(t, err)
	return key
}

func TestTransferScenario(t *testing.T) {
	assert := assert.New(t)
	d := scenarioDeploy(t)

	payment, err := deploy.EncodeItem(d.Payment())
	require.NoError(t, err)
	assert.Equal(scenarioPayment, hex.EncodeToString(payment))

	session, err := deploy.EncodeItem(d.Session())
	require.NoError(t, err)
	assert.Equal(scenarioSession, hex.EncodeToString(session))

	assert.Equal(scenarioBodyHash, d.Header().BodyHash.String())
	assert.Equal(scenarioHash, d.Hash().String())

	again := scenarioDeploy(t)
	assert.Equal(d.Hash(), again.Hash(), "building must be deterministic")
}

func TestTransferScenarioWithID(t *testing.T) {
	const (
		session = "050300000006000000616d6f756e74050000000400f9029508" +
			"060000007461726765742000000000000000000000000000000000000000" +
			"000000000000000000000000000f2000000002000000696409000000012a" +
			"000000000000000d05"
		bodyHash = "a682ffe1e1c2c8e1696025cd13fd0a65c7d6a7cbc2c9d0378360bb501be14d2a"
		hash     = "dfb243f4499acc74f46bd5b720efc2d80ac44a434abebb07dbd5b32a26617711"
	)
	build := func() *deploy.Deploy {
		id := uint64(42)
		d, err := deploy.NewTransfer(scenarioParams(),
			big.NewInt(2500000000), crypto.Digest{}, &id)
		require.NoError(t, err)
		return d
	}
	d := build()

	data, err := deploy.EncodeItem(d.Session())
	require.NoError(t, err)
	assert.Equal(t, session, hex.EncodeToString(data))
	assert.Equal(t, bodyHash, d.Header().BodyHash.String())
	assert.Equal(t, hash, d.Hash().String())
	assert.Equal(t, d.Hash(), build().Hash())
}

func TestBodyHashOrder(t *testing.T) {
	d := scenarioDeploy(t)
	body, err := deploy.BodyHash(d.Payment(), d.Session())
	require.NoError(t, err)
	assert.Equal(t, scenarioBodyHash, body.String())

	swapped, err := deploy.BodyHash(d.Session(), d.Payment())
	require.NoError(t, err)
	assert.NotEqual(t, body, swapped)
}

func TestArgOrderSensitivity(t *testing.T) {
	d := scenarioDeploy(t)
	args := d.Session().RuntimeArgs()
	reordered := deploy.Args{args[1], args[0], args[2]}
	other, err := deploy.New(scenarioParams(), d.Payment(),
		deploy.Transfer{Args: reordered})
	require.NoError(t, err)
	assert.NotEqual(t, d.Hash(), other.Hash())
	assert.NotEqual(t, d.Header().BodyHash, other.Header().BodyHash)
}

func TestNewHeader(t *testing.T) {
	tests := []struct {
		Name   string
		Modify func(*deploy.Params)
		Is     error
		Error  string
	}{{
		Name:   "MaxTTL",
		Modify: func(p *deploy.Params) { p.TTL = deploy.MaxTTL },
	}, {
		Name: "MaxTTL+1ms",
		Modify: func(p *deploy.Params) {
			p.TTL = deploy.MaxTTL + deploy.TTL(time.Millisecond)
		},
		Is: deploy.ErrTTLExceeded,
	}, {
		Name:   "ZeroGasPrice",
		Modify: func(p *deploy.Params) { p.GasPrice = 0 },
		Is:     deploy.ErrInvalidGasPrice,
	}, {
		Name:   "ZeroTTL",
		Modify: func(p *deploy.Params) { p.TTL = 0 },
		Error:  "ttl must be at least 1ms",
	}, {
		Name:   "MissingChainName",
		Modify: func(p *deploy.Params) { p.ChainName = "" },
		Error:  "missing chain name",
	}, {
		Name:   "MissingTimestamp",
		Modify: func(p *deploy.Params) { p.Timestamp = deploy.Timestamp{} },
		Error:  "missing timestamp",
	}, {
		Name:   "MissingAccount",
		Modify: func(p *deploy.Params) { p.Account = crypto.PublicKey{} },
		Error:  "account: unknown discriminant: key algorithm 0",
	}}
	for _, test := range tests {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			params := scenarioParams()
			test.Modify(&params)
			h, err := deploy.NewHeader(params, crypto.Digest{})
			switch {
			case test.Is != nil:
				assert.True(t, errors.Is(err, test.Is), "%v", err)
			case test.Error != "":
				assert.EqualError(t, err, test.Error)
			default:
				require.NoError(t, err)
				assert.Equal(t, params.TTL, h.TTL)
			}
		})
	}
}

func TestDecodeHeaderLimits(t *testing.T) {
	d := scenarioDeploy(t)
	data, err := d.MarshalBinary()
	require.NoError(t, err)

	// Offsets of the u64 fields following the ed25519 account.
	const (
		timestampOffset = 33
		ttlOffset       = timestampOffset + 8
		gasPriceOffset  = ttlOffset + 8
	)
	tests := []struct {
		Name   string
		Offset int
		Value  uint64
		Is     error
	}{
		{"TTL", ttlOffset, 2 * 24 * 60 * 60 * 1000, deploy.ErrTTLExceeded},
		{"MaxTTL+1ms", ttlOffset, 24*60*60*1000 + 1, deploy.ErrTTLExceeded},
		{"GasPrice", gasPriceOffset, 0, deploy.ErrInvalidGasPrice},
		{"ZeroTimestamp", timestampOffset, 0, deploy.ErrTimestampRange},
		{"FarTimestamp", timestampOffset, 1 << 63, deploy.ErrTimestampRange},
	}
	for _, test := range tests {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			tampered := append([]byte{}, data...)
			binary.LittleEndian.PutUint64(tampered[test.Offset:], test.Value)

			_, _, err := deploy.DecodeHeader(tampered)
			require.True(t, errors.Is(err, test.Is), "%v", err)

			var back deploy.Deploy
			err = back.UnmarshalBinary(tampered)
			require.True(t, errors.Is(err, test.Is), "%v", err)
		})
	}
}

func TestUnmarshalJSONHeaderLimits(t *testing.T) {
	d := scenarioDeploy(t)
	data, err := json.Marshal(d)
	require.NoError(t, err)

	tests := []struct {
		Name   string
		Modify func(*deploy.Header)
		Old    string
		New    string
		Is     error
	}{{
		Name:   "TTL",
		Modify: func(h *deploy.Header) { h.TTL = deploy.TTL(48 * time.Hour) },
		Old:    `"ttl":"30m"`,
		New:    `"ttl":"2days"`,
		Is:     deploy.ErrTTLExceeded,
	}, {
		Name:   "GasPrice",
		Modify: func(h *deploy.Header) { h.GasPrice = 0 },
		Old:    `"gas_price":1`,
		New:    `"gas_price":0`,
		Is:     deploy.ErrInvalidGasPrice,
	}}
	for _, test := range tests {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			// Claim the hash of the modified header so that only the
			// header limits can reject it.
			header := d.Header()
			test.Modify(&header)
			hash, err := header.Hash()
			require.NoError(t, err)

			tampered := strings.Replace(string(data), test.Old, test.New, 1)
			require.NotEqual(t, string(data), tampered)
			tampered = strings.Replace(tampered, scenarioHash, hash.String(), 1)

			var back deploy.Deploy
			err = json.Unmarshal([]byte(tampered), &back)
			require.True(t, errors.Is(err, test.Is), "%v", err)
		})
	}
}

func TestNewCopiesBody(t *testing.T) {
	code := append([]byte{}, callModule...)
	amount := big.NewInt(5)
	args := deploy.Args{
		deploy.NewArg("amount", cl.U512{Int: amount}),
		deploy.NewArg("name", cl.String("token")),
	}
	d, err := deploy.New(scenarioParams(),
		deploy.NewStandardPayment(big.NewInt(1000)),
		deploy.ModuleBytes{Code: code, Args: args})
	require.NoError(t, err)
	hash := d.Hash()
	encoded, err := deploy.EncodeItem(d.Session())
	require.NoError(t, err)

	args[1] = deploy.NewArg("name", cl.String("other"))
	amount.SetInt64(6)
	code[0] = 0xff
	require.NoError(t, d.Verify())

	session := d.Session().(deploy.ModuleBytes)
	session.Code[1] = 0xff
	session.Args[0].Value.(cl.U512).Int.SetInt64(7)
	session.Args[1] = deploy.NewArg("name", cl.String("other"))
	require.NoError(t, d.Verify())

	again, err := deploy.EncodeItem(d.Session())
	require.NoError(t, err)
	assert.Equal(t, encoded, again)
	assert.Equal(t, hash, d.Hash())

	header := d.Header()
	header.Account.Key[0] ^= 0xff
	assert.Equal(t, scenarioAccount, d.Header().Account)
}

func TestDefaultParams(t *testing.T) {
	params := deploy.DefaultParams(scenarioAccount, "casper-test")
	assert.Equal(t, uint64(1), params.GasPrice)
	assert.Equal(t, deploy.TTL(30*time.Minute), params.TTL)
	assert.WithinDuration(t, time.Now(), params.Timestamp.Time, time.Minute)
	_, err := deploy.NewHeader(params, crypto.Digest{})
	assert.NoError(t, err)
}

func TestApprove(t *testing.T) {
	assert := assert.New(t)
	d := scenarioDeploy(t)
	hash := d.Hash()

	ed := mustKey(t, crypto.Ed25519, 1)
	secp := mustKey(t, crypto.Secp256k1, 1)
	require.NoError(t, d.Approve(ed))
	require.NoError(t, d.Approve(secp))

	approvals := d.Approvals()
	require.Len(t, approvals, 2)
	assert.Equal(ed.PublicKey(), approvals[0].Signer)
	assert.Equal(secp.PublicKey(), approvals[1].Signer)
	assert.True(crypto.Verify(hash, approvals[0].Signature, ed.PublicKey()))
	assert.True(crypto.Verify(hash, approvals[1].Signature, secp.PublicKey()))
	assert.NoError(d.Verify())

	// A second approval by the same signer changes nothing.
	require.NoError(t, d.Approve(ed))
	require.NoError(t, d.AddApproval(approvals[1]))
	assert.Equal(approvals, d.Approvals())
	assert.Equal(hash, d.Hash())

	// Mutating the returned copy does not affect the deploy.
	approvals[0] = deploy.Approval{}
	assert.Equal(ed.PublicKey(), d.Approvals()[0].Signer)
}

func TestAddApproval(t *testing.T) {
	d := scenarioDeploy(t)
	other := scenarioDeploy(t)
	key := mustKey(t, crypto.Ed25519, 2)

	sig, err := key.Sign(d.Hash())
	require.NoError(t, err)
	require.NoError(t, d.AddApproval(
		deploy.Approval{Signer: key.PublicKey(), Signature: sig}))
	assert.Len(t, d.Approvals(), 1)

	wrong, err := key.Sign(crypto.Hash([]byte("something else")))
	require.NoError(t, err)
	err = other.AddApproval(
		deploy.Approval{Signer: key.PublicKey(), Signature: wrong})
	assert.True(t, errors.Is(err, deploy.ErrInvalidSignature), "%v", err)
	assert.Empty(t, other.Approvals())
}

func TestApproveConcurrent(t *testing.T) {
	d := scenarioDeploy(t)
	keys := []crypto.PrivateKey{
		mustKey(t, crypto.Ed25519, 1),
		mustKey(t, crypto.Ed25519, 2),
		mustKey(t, crypto.Secp256k1, 1),
		mustKey(t, crypto.Secp256k1, 2),
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		for _, key := range keys {
			wg.Add(1)
			go func(key crypto.PrivateKey) {
				defer wg.Done()
				assert.NoError(t, d.Approve(key))
			}(key)
		}
	}
	wg.Wait()

	approvals := d.Approvals()
	require.Len(t, approvals, len(keys))
	seen := make(map[string]bool)
	for _, a := range approvals {
		seen[a.Signer.String()] = true
	}
	assert.Len(t, seen, len(keys))
	assert.NoError(t, d.Verify())
}

func TestBinaryRoundTrip(t *testing.T) {
	assert := assert.New(t)
	d := scenarioDeploy(t)
	require.NoError(t, d.Approve(mustKey(t, crypto.Secp256k1, 3)))
	require.NoError(t, d.Approve(mustKey(t, crypto.Ed25519, 3)))

	data, err := d.MarshalBinary()
	require.NoError(t, err)

	header, err := d.Header().AppendBinary(nil)
	require.NoError(t, err)
	payment, _ := deploy.EncodeItem(d.Payment())
	session, _ := deploy.EncodeItem(d.Session())
	prefix := append(append(header, session...), payment...)
	assert.True(bytes.HasPrefix(data, prefix),
		"header, session then payment")
	assert.Equal([]byte{2, 0, 0, 0}, data[len(prefix):len(prefix)+4])

	var back deploy.Deploy
	require.NoError(t, back.UnmarshalBinary(data))
	assert.Equal(d.Hash(), back.Hash())
	assert.Equal(d.Approvals(), back.Approvals())
	again, err := back.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(data, again)

	t.Run("TamperedBody", func(t *testing.T) {
		tampered := append([]byte{}, data...)
		// The last byte of the payment amount.
		tampered[len(prefix)-2] ^= 0xff
		var d deploy.Deploy
		err := d.UnmarshalBinary(tampered)
		require.True(t, errors.Is(err, deploy.ErrBodyHashMismatch), "%v", err)
	})
	t.Run("TamperedSignature", func(t *testing.T) {
		tampered := append([]byte{}, data...)
		tampered[len(tampered)-1] ^= 0xff
		var d deploy.Deploy
		err := d.UnmarshalBinary(tampered)
		require.True(t, errors.Is(err, deploy.ErrInvalidSignature), "%v", err)
	})
	t.Run("Truncated", func(t *testing.T) {
		var d deploy.Deploy
		require.Error(t, d.UnmarshalBinary(data[:len(data)-1]))
	})
	t.Run("TrailingBytes", func(t *testing.T) {
		var d deploy.Deploy
		require.EqualError(t, d.UnmarshalBinary(append(data, 0)),
			"1 trailing bytes")
	})
}

func TestJSONRoundTrip(t *testing.T) {
	assert := assert.New(t)
	d := scenarioDeploy(t)
	require.NoError(t, d.Approve(mustKey(t, crypto.Ed25519, 4)))
	require.NoError(t, d.Approve(mustKey(t, crypto.Secp256k1, 4)))

	data, err := json.Marshal(d)
	require.NoError(t, err)

	var fields struct {
		Hash   string
		Header map[string]interface{}
		Payment,
		Session map[string]json.RawMessage
		Approvals []map[string]string
	}
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(scenarioHash, fields.Hash)
	assert.Equal("2020-11-17T00:39:24.072Z", fields.Header["timestamp"])
	assert.Equal("30m", fields.Header["ttl"])
	assert.Equal("casper-net-1", fields.Header["chain_name"])
	assert.Equal([]interface{}{}, fields.Header["dependencies"])
	assert.Contains(fields.Payment, "ModuleBytes")
	assert.Contains(fields.Session, "Transfer")
	require.Len(t, fields.Approvals, 2)
	assert.Contains(fields.Approvals[0], "signer")
	assert.Contains(fields.Approvals[0], "signature")

	var back deploy.Deploy
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(d.Hash(), back.Hash())
	assert.Equal(d.Approvals(), back.Approvals())
	again, err := json.Marshal(&back)
	require.NoError(t, err)
	assert.JSONEq(string(data), string(again))

	t.Run("TamperedHash", func(t *testing.T) {
		tampered := strings.Replace(string(data), scenarioHash,
			strings.Repeat("ab", 32), 1)
		var d deploy.Deploy
		err := json.Unmarshal([]byte(tampered), &d)
		require.True(t, errors.Is(err, deploy.ErrDeployHashMismatch), "%v", err)
	})
	t.Run("TamperedBody", func(t *testing.T) {
		// Change the transfer amount from 2500000000 motes.
		tampered := strings.Replace(string(data), "0400f90295", "0400f90296", 1)
		require.NotEqual(t, string(data), tampered)
		var d deploy.Deploy
		err := json.Unmarshal([]byte(tampered), &d)
		require.True(t, errors.Is(err, deploy.ErrBodyHashMismatch), "%v", err)
	})
}

func TestItemRoundTrip(t *testing.T) {
	version := uint32(2)
	args := deploy.Args{deploy.NewArg("x", cl.U8(1))}
	var hash crypto.Digest
	hash[0] = 0xab
	items := []deploy.ExecutableItem{
		deploy.ModuleBytes{Code: []byte{0x00, 0x61}, Args: args},
		deploy.StoredContractByHash{Hash: hash, EntryPoint: "ep", Args: args},
		deploy.StoredContractByName{Name: "faucet", EntryPoint: "ep"},
		deploy.StoredContractByHashVersioned{Hash: hash, Version: &version,
			EntryPoint: "ep", Args: args},
		deploy.StoredContractByHashVersioned{Hash: hash, EntryPoint: "ep"},
		deploy.StoredContractByNameVersioned{Name: "pkg", Version: &version,
			EntryPoint: "ep", Args: args},
		deploy.Transfer{Args: args},
	}
	for i, item := range items {
		item := item
		t.Run(item.Kind().String(), func(t *testing.T) {
			data, err := deploy.EncodeItem(item)
			require.NoError(t, err)
			assert.Equal(t, byte(item.Kind()), data[0])

			decoded, rest, err := deploy.DecodeItem(data)
			require.NoError(t, err)
			assert.Empty(t, rest)
			again, err := deploy.EncodeItem(decoded)
			require.NoError(t, err)
			assert.Equal(t, data, again, "item %v", i)

			js, err := deploy.MarshalItem(item)
			require.NoError(t, err)
			fromJSON, err := deploy.UnmarshalItem(js)
			require.NoError(t, err)
			again, err = deploy.EncodeItem(fromJSON)
			require.NoError(t, err)
			assert.Equal(t, data, again, "item %v", i)
		})
	}
}

func TestItemJSON(t *testing.T) {
	var hash crypto.Digest
	data, err := deploy.MarshalItem(deploy.StoredContractByHashVersioned{
		Hash: hash, EntryPoint: "ep"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"StoredVersionedContractByHash":{"hash":"`+
		hash.String()+`","version":null,"entry_point":"ep","args":[]}}`,
		string(data))

	data, err = deploy.MarshalItem(deploy.Transfer{Args: deploy.Args{
		deploy.NewArg("id", cl.Some(cl.U64(7)))}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Transfer":{"args":[["id",`+
		`{"cl_type":{"Option":"U64"},"bytes":"010700000000000000","parsed":7}]]}}`,
		string(data))

	_, err = deploy.UnmarshalItem([]byte(`{"Unknown":{}}`))
	assert.EqualError(t, err, "Unknown: unknown executable item")
	_, err = deploy.UnmarshalItem([]byte(`{"Transfer":{},"ModuleBytes":{}}`))
	assert.EqualError(t, err,
		"executable item: expected a single key object")
}

func TestDecodeItemErrors(t *testing.T) {
	_, _, err := deploy.DecodeItem([]byte{6})
	assert.EqualError(t, err, "unknown discriminant: executable item 6")

	// A Transfer claiming a billion args.
	_, _, err = deploy.DecodeItem([]byte{5, 0x00, 0xca, 0x9a, 0x3b})
	assert.Error(t, err)

	_, err = deploy.EncodeItem(deploy.Transfer{Args: deploy.Args{{Name: "x"}}})
	assert.EqualError(t, err, `Transfer: args[0]: "x": missing value`)
}
