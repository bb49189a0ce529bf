package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	jrpc "github.com/AdamSLevy/jsonrpc2/v14"
	"github.com/cspr-tools/cspr/api"
	"github.com/cspr-tools/cspr/crypto"
	"github.com/cspr-tools/cspr/deploy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     json.RawMessage `json:"id"`
}

// node returns a test server that answers each JSON-RPC request with the
// result or error returned by handle.
func node(t *testing.T,
	handle func(req rpcRequest) (interface{}, *jrpc.Error)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			var req rpcRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			result, rpcErr := handle(req)
			res := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
			if rpcErr != nil {
				res["error"] = rpcErr
			} else {
				res["result"] = result
			}
			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(res))
		}))
}

func newClient(url string) *api.Client {
	c := api.NewClient()
	c.NodeServer = url
	return c
}

func approvedDeploy(t *testing.T) *deploy.Deploy {
	key, err := crypto.GenerateKey(crypto.Ed25519)
	require.NoError(t, err)
	params := deploy.DefaultParams(key.PublicKey(), "casper-test")
	var target crypto.Digest
	target[0] = 1
	d, err := deploy.NewTransfer(params, big.NewInt(2500000000), target, nil)
	require.NoError(t, err)
	require.NoError(t, d.Approve(key))
	return d
}

func TestPutDeploy(t *testing.T) {
	d := approvedDeploy(t)
	srv := node(t, func(req rpcRequest) (interface{}, *jrpc.Error) {
		assert.Equal(t, "account_put_deploy", req.Method)
		var params struct {
			Deploy *deploy.Deploy `json:"deploy"`
		}
		require.NoError(t, json.Unmarshal(req.Params, &params))
		return api.ResultPutDeploy{APIVersion: "1.0.0",
			DeployHash: params.Deploy.Hash()}, nil
	})
	defer srv.Close()

	hash, err := newClient(srv.URL).PutDeploy(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, d.Hash(), hash)
}

func TestPutDeployRejected(t *testing.T) {
	rejection := jrpc.Error{Code: -32008, Message: "invalid deploy",
		Data: "the deploy is expired"}
	srv := node(t, func(req rpcRequest) (interface{}, *jrpc.Error) {
		return nil, &rejection
	})
	defer srv.Close()

	_, err := newClient(srv.URL).PutDeploy(context.Background(),
		approvedDeploy(t))
	var jErr jrpc.Error
	require.True(t, errors.As(err, &jErr), "%T", err)
	assert.Equal(t, rejection.Code, jErr.Code)
	assert.Equal(t, rejection.Message, jErr.Message)
	assert.Equal(t, rejection.Data, jErr.Data)
}

func TestPutDeployRefused(t *testing.T) {
	called := false
	srv := node(t, func(req rpcRequest) (interface{}, *jrpc.Error) {
		called = true
		return nil, nil
	})
	defer srv.Close()
	c := newClient(srv.URL)

	_, err := c.PutDeploy(context.Background(), nil)
	assert.EqualError(t, err, "nil deploy")

	key, err := crypto.GenerateKey(crypto.Secp256k1)
	require.NoError(t, err)
	d, err := deploy.NewTransfer(deploy.DefaultParams(key.PublicKey(), "c"),
		big.NewInt(1), crypto.Digest{}, nil)
	require.NoError(t, err)
	_, err = c.PutDeploy(context.Background(), d)
	assert.True(t, errors.Is(err, api.ErrNotApproved))
	assert.False(t, called, "no request may be made")
}

func TestGetDeploy(t *testing.T) {
	d := approvedDeploy(t)
	srv := node(t, func(req rpcRequest) (interface{}, *jrpc.Error) {
		assert.Equal(t, "info_get_deploy", req.Method)
		var params map[string]string
		require.NoError(t, json.Unmarshal(req.Params, &params))
		assert.Contains(t, params, "deploy_hash")
		return api.ResultGetDeploy{APIVersion: "1.0.0", Deploy: d}, nil
	})
	defer srv.Close()
	c := newClient(srv.URL)

	got, err := c.GetDeploy(context.Background(), d.Hash())
	require.NoError(t, err)
	assert.Equal(t, d.Hash(), got.Hash())
	assert.Equal(t, d.Approvals(), got.Approvals())

	_, err = c.GetDeploy(context.Background(), crypto.Digest{1})
	assert.True(t, errors.Is(err, deploy.ErrDeployHashMismatch), "%v", err)
}

func TestGetStateRootHash(t *testing.T) {
	root := crypto.Hash([]byte("root"))
	srv := node(t, func(req rpcRequest) (interface{}, *jrpc.Error) {
		assert.Equal(t, "chain_get_state_root_hash", req.Method)
		if len(req.Params) > 0 && string(req.Params) != "null" {
			assert.JSONEq(t, `{"block_identifier":{"Height":10}}`,
				string(req.Params))
		}
		return api.ResultGetStateRootHash{APIVersion: "1.0.0",
			StateRootHash: &root}, nil
	})
	defer srv.Close()
	c := newClient(srv.URL)

	hash, err := c.GetStateRootHash(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, root, hash)

	height := uint64(10)
	hash, err = c.GetStateRootHash(context.Background(),
		&api.BlockIdentifier{Height: &height})
	require.NoError(t, err)
	assert.Equal(t, root, hash)

	_, err = c.GetStateRootHash(context.Background(), &api.BlockIdentifier{})
	assert.Error(t, err)
}

func TestGetStatus(t *testing.T) {
	srv := node(t, func(req rpcRequest) (interface{}, *jrpc.Error) {
		assert.Equal(t, "info_get_status", req.Method)
		return json.RawMessage(`{"api_version":"1.4.3",` +
			`"chainspec_name":"casper-test",` +
			`"last_added_block_info":{"height":42,` +
			`"timestamp":"2021-01-01T00:00:00.000Z"}}`), nil
	})
	defer srv.Close()

	status, err := newClient(srv.URL).GetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.4.3", status.APIVersion)
	assert.Equal(t, "casper-test", status.ChainspecName)
	require.NotNil(t, status.LastAddedBlockInfo)
	assert.Equal(t, uint64(42), status.LastAddedBlockInfo.Height)
}
