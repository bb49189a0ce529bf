// MIT License
//
// Copyright 2018 Canonical Ledgers, LLC
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS
// IN THE SOFTWARE.

package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	jrpc "github.com/AdamSLevy/jsonrpc2/v14"
	"github.com/shopspring/decimal"

	"github.com/cspr-tools/cspr/cl"
	"github.com/cspr-tools/cspr/crypto"
	"github.com/cspr-tools/cspr/deploy"
	_log "github.com/cspr-tools/cspr/internal/log"
)

var log = _log.New("api")

// Gateway accepts deploys for execution.
type Gateway interface {
	PutDeploy(ctx context.Context, d *deploy.Deploy) (crypto.Digest, error)
}

var _ Gateway = &Client{}

// ErrNotApproved is returned by PutDeploy for a deploy without approvals.
var ErrNotApproved = errors.New("deploy has no approvals")

// Client makes RPC requests to a Casper node. Client embeds a jsonrpc2.Client,
// and thus also the http.Client. Use jsonrpc2.Client's BasicAuth settings to
// set up BasicAuth and http.Client's transport settings to configure TLS.
//
// Rejections by the node are returned as jsonrpc2.Error values.
type Client struct {
	NodeServer   string
	EventsServer string
	jrpc.Client
}

// Defaults for the node RPC and event stream endpoints.
const (
	NodeDefault   = "http://localhost:7777/rpc"
	EventsDefault = "http://localhost:9999"
)

// NewClient returns a pointer to a Client initialized with the default
// localhost endpoints and a 15 second timeout for the http.Client.
func NewClient() *Client {
	c := &Client{NodeServer: NodeDefault, EventsServer: EventsDefault}
	c.Timeout = 15 * time.Second
	return c
}

// Request makes a request to the node's RPC API.
func (c *Client) Request(ctx context.Context,
	method string, params, result interface{}) error {

	if c.DebugRequest {
		fmt.Println("node:", c.NodeServer)
	}
	return c.Client.Request(ctx, c.NodeServer, method, params, result)
}

// PutDeploy submits d and returns the deploy hash acknowledged by the node.
// A nil or unapproved deploy is refused without contacting the node.
func (c *Client) PutDeploy(ctx context.Context,
	d *deploy.Deploy) (crypto.Digest, error) {
	if d == nil {
		return crypto.Digest{}, fmt.Errorf("nil deploy")
	}
	if len(d.Approvals()) == 0 {
		return crypto.Digest{}, ErrNotApproved
	}
	var res ResultPutDeploy
	if err := c.Request(ctx, "account_put_deploy",
		ParamsPutDeploy{Deploy: d}, &res); err != nil {
		return crypto.Digest{}, err
	}
	if res.DeployHash != d.Hash() {
		return res.DeployHash, fmt.Errorf(
			"node acknowledged deploy %v, expected %v",
			res.DeployHash, d.Hash())
	}
	log.With("deploy", res.DeployHash).Debug("deploy accepted")
	return res.DeployHash, nil
}

// GetDeploy fetches the deploy with hash from the node. The returned deploy
// has been verified.
func (c *Client) GetDeploy(ctx context.Context,
	hash crypto.Digest) (*deploy.Deploy, error) {
	var res ResultGetDeploy
	if err := c.Request(ctx, "info_get_deploy",
		ParamsGetDeploy{DeployHash: hash}, &res); err != nil {
		return nil, err
	}
	if res.Deploy == nil {
		return nil, fmt.Errorf("info_get_deploy: missing deploy")
	}
	if res.Deploy.Hash() != hash {
		return nil, fmt.Errorf("info_get_deploy: %w", deploy.ErrDeployHashMismatch)
	}
	return res.Deploy, nil
}

// GetStateRootHash returns the state root hash of the block identified by
// block, or of the latest block if block is nil.
func (c *Client) GetStateRootHash(ctx context.Context,
	block *BlockIdentifier) (crypto.Digest, error) {
	var res ResultGetStateRootHash
	if err := c.Request(ctx, "chain_get_state_root_hash",
		blockParams(block), &res); err != nil {
		return crypto.Digest{}, err
	}
	if res.StateRootHash == nil {
		return crypto.Digest{}, fmt.Errorf(
			"chain_get_state_root_hash: block not found")
	}
	return *res.StateRootHash, nil
}

// blockParams returns nil params for the latest block.
func blockParams(block *BlockIdentifier) interface{} {
	if block == nil {
		return nil
	}
	return ParamsBlockIdentifier{BlockIdentifier: block}
}

// GetBlock returns the block identified by block, or the latest block if
// block is nil. The returned block matches the requested hash.
func (c *Client) GetBlock(ctx context.Context,
	block *BlockIdentifier) (*Block, error) {
	var res ResultGetBlock
	if err := c.Request(ctx, "chain_get_block",
		blockParams(block), &res); err != nil {
		return nil, err
	}
	if res.Block == nil {
		return nil, fmt.Errorf("chain_get_block: block not found")
	}
	if block != nil {
		switch {
		case block.Hash != nil && *block.Hash != res.Block.Hash:
			return nil, fmt.Errorf("chain_get_block: got block %v, "+
				"expected %v", res.Block.Hash, *block.Hash)
		case block.Height != nil && *block.Height != res.Block.Header.Height:
			return nil, fmt.Errorf("chain_get_block: got height %v, "+
				"expected %v", res.Block.Header.Height, *block.Height)
		}
	}
	return res.Block, nil
}

// GetAccountInfo returns the account of pub as of block, or as of the latest
// block if block is nil.
func (c *Client) GetAccountInfo(ctx context.Context,
	pub crypto.PublicKey, block *BlockIdentifier) (*Account, error) {
	var res ResultGetAccountInfo
	if err := c.Request(ctx, "state_get_account_info",
		ParamsGetAccountInfo{PublicKey: pub, BlockIdentifier: block},
		&res); err != nil {
		return nil, err
	}
	if res.Account == nil {
		return nil, fmt.Errorf("state_get_account_info: account not found")
	}
	want := cl.Key{Kind: cl.KeyAccount, Addr: pub.AccountHash()}
	if res.Account.AccountHash != want {
		return nil, fmt.Errorf("state_get_account_info: got account %v, "+
			"expected %v", res.Account.AccountHash, want)
	}
	return res.Account, nil
}

// GetAccountMainPurseURef returns the main purse of the account of pub.
func (c *Client) GetAccountMainPurseURef(ctx context.Context,
	pub crypto.PublicKey, block *BlockIdentifier) (cl.URef, error) {
	account, err := c.GetAccountInfo(ctx, pub, block)
	if err != nil {
		return cl.URef{}, err
	}
	return account.MainPurse, nil
}

// GetBalance returns the balance in motes of purse under stateRootHash.
func (c *Client) GetBalance(ctx context.Context,
	stateRootHash crypto.Digest, purse cl.URef) (decimal.Decimal, error) {
	var res ResultGetBalance
	if err := c.Request(ctx, "state_get_balance", ParamsGetBalance{
		StateRootHash: stateRootHash, PurseURef: purse,
	}, &res); err != nil {
		return decimal.Decimal{}, err
	}
	if res.BalanceValue == nil {
		return decimal.Decimal{}, fmt.Errorf(
			"state_get_balance: missing balance_value")
	}
	if res.BalanceValue.IsNegative() || !res.BalanceValue.IsInteger() {
		return decimal.Decimal{}, fmt.Errorf(
			"state_get_balance: invalid balance %v", res.BalanceValue)
	}
	return *res.BalanceValue, nil
}

// GetEraSummary returns the era summary recorded in the switch block
// identified by block, or in the latest switch block if block is nil. It
// returns nil without error when the node has no summary for block.
func (c *Client) GetEraSummary(ctx context.Context,
	block *BlockIdentifier) (*EraSummary, error) {
	var res ResultGetEraSummary
	if err := c.Request(ctx, "chain_get_era_summary",
		blockParams(block), &res); err != nil {
		return nil, err
	}
	return res.EraSummary, nil
}

// GetAuctionInfo returns the validator auction state as of block, or as of
// the latest block if block is nil.
func (c *Client) GetAuctionInfo(ctx context.Context,
	block *BlockIdentifier) (*AuctionState, error) {
	var res ResultGetAuctionInfo
	if err := c.Request(ctx, "state_get_auction_info",
		blockParams(block), &res); err != nil {
		return nil, err
	}
	if res.AuctionState == nil {
		return nil, fmt.Errorf("state_get_auction_info: missing auction_state")
	}
	return res.AuctionState, nil
}

// GetPeers returns the peers connected to the node.
func (c *Client) GetPeers(ctx context.Context) ([]Peer, error) {
	var res ResultGetPeers
	err := c.Request(ctx, "info_get_peers", nil, &res)
	return res.Peers, err
}

// GetStatus returns the status of the node.
func (c *Client) GetStatus(ctx context.Context) (ResultGetStatus, error) {
	var res ResultGetStatus
	err := c.Request(ctx, "info_get_status", nil, &res)
	return res, err
}

// Subscribe to an event stream of the node at c.EventsServer. The
// subscription does not time out; cancel ctx or call Close to end it.
func (c *Client) Subscribe(ctx context.Context,
	filter EventFilter) (*Subscription, error) {
	hc := c.Client.Client
	hc.Timeout = 0
	return subscribe(ctx, &hc, c.EventsServer, filter)
}
