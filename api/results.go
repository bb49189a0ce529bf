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
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cspr-tools/cspr/cl"
	"github.com/cspr-tools/cspr/crypto"
	"github.com/cspr-tools/cspr/deploy"
)

type ParamsPutDeploy struct {
	Deploy *deploy.Deploy `json:"deploy"`
}

type ResultPutDeploy struct {
	APIVersion string        `json:"api_version"`
	DeployHash crypto.Digest `json:"deploy_hash"`
}

type ParamsGetDeploy struct {
	DeployHash crypto.Digest `json:"deploy_hash"`
}

type ResultGetDeploy struct {
	APIVersion       string            `json:"api_version"`
	Deploy           *deploy.Deploy    `json:"deploy"`
	ExecutionResults []json.RawMessage `json:"execution_results,omitempty"`
}

// BlockIdentifier selects a block by either hash or height.
type BlockIdentifier struct {
	Hash   *crypto.Digest `json:"Hash,omitempty"`
	Height *uint64        `json:"Height,omitempty"`
}

func (b BlockIdentifier) MarshalJSON() ([]byte, error) {
	if (b.Hash == nil) == (b.Height == nil) {
		return nil, fmt.Errorf("block identifier: exactly one of " +
			"hash or height is required")
	}
	type identifier BlockIdentifier
	return json.Marshal(identifier(b))
}

type ParamsBlockIdentifier struct {
	BlockIdentifier *BlockIdentifier `json:"block_identifier"`
}

type ResultGetStateRootHash struct {
	APIVersion    string         `json:"api_version"`
	StateRootHash *crypto.Digest `json:"state_root_hash"`
}

type BlockInfo struct {
	Hash          crypto.Digest    `json:"hash"`
	Timestamp     deploy.Timestamp `json:"timestamp"`
	Height        uint64           `json:"height"`
	StateRootHash crypto.Digest    `json:"state_root_hash"`
}

type ResultGetStatus struct {
	APIVersion         string     `json:"api_version"`
	ChainspecName      string     `json:"chainspec_name"`
	StartingStateRoot  string     `json:"starting_state_root_hash,omitempty"`
	LastAddedBlockInfo *BlockInfo `json:"last_added_block_info"`
}

type ResultGetBlock struct {
	APIVersion string `json:"api_version"`
	Block      *Block `json:"block"`
}

// Block is a finalized block as reported by chain_get_block.
type Block struct {
	Hash   crypto.Digest `json:"hash"`
	Header BlockHeader   `json:"header"`
	Body   BlockBody     `json:"body"`
	Proofs []BlockProof  `json:"proofs"`
}

type BlockHeader struct {
	ParentHash      crypto.Digest    `json:"parent_hash"`
	StateRootHash   crypto.Digest    `json:"state_root_hash"`
	BodyHash        crypto.Digest    `json:"body_hash"`
	RandomBit       bool             `json:"random_bit"`
	AccumulatedSeed crypto.Digest    `json:"accumulated_seed"`
	EraEnd          json.RawMessage  `json:"era_end,omitempty"`
	Timestamp       deploy.Timestamp `json:"timestamp"`
	EraID           uint64           `json:"era_id"`
	Height          uint64           `json:"height"`
	ProtocolVersion string           `json:"protocol_version"`
}

type BlockBody struct {
	// Proposer is kept as hex since the system proposer "00" is not a
	// valid PublicKey.
	Proposer       string          `json:"proposer"`
	DeployHashes   []crypto.Digest `json:"deploy_hashes"`
	TransferHashes []crypto.Digest `json:"transfer_hashes"`
}

type BlockProof struct {
	PublicKey crypto.PublicKey `json:"public_key"`
	Signature crypto.Signature `json:"signature"`
}

type ParamsGetAccountInfo struct {
	PublicKey       crypto.PublicKey `json:"public_key"`
	BlockIdentifier *BlockIdentifier `json:"block_identifier,omitempty"`
}

type ResultGetAccountInfo struct {
	APIVersion string   `json:"api_version"`
	Account    *Account `json:"account"`
}

// Account is the on-chain record of an account.
type Account struct {
	AccountHash      cl.Key           `json:"account_hash"`
	NamedKeys        []NamedKey       `json:"named_keys"`
	MainPurse        cl.URef          `json:"main_purse"`
	AssociatedKeys   []AssociatedKey  `json:"associated_keys"`
	ActionThresholds ActionThresholds `json:"action_thresholds"`
}

// NamedKey keeps Key formatted since it may name any kind of global state
// key.
type NamedKey struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

type AssociatedKey struct {
	AccountHash cl.Key `json:"account_hash"`
	Weight      uint8  `json:"weight"`
}

type ActionThresholds struct {
	Deployment    uint8 `json:"deployment"`
	KeyManagement uint8 `json:"key_management"`
}

type ParamsGetBalance struct {
	StateRootHash crypto.Digest `json:"state_root_hash"`
	PurseURef     cl.URef       `json:"purse_uref"`
}

type ResultGetBalance struct {
	APIVersion   string           `json:"api_version"`
	BalanceValue *decimal.Decimal `json:"balance_value"`
	MerkleProof  string           `json:"merkle_proof,omitempty"`
}

type ResultGetEraSummary struct {
	APIVersion string      `json:"api_version"`
	EraSummary *EraSummary `json:"era_summary"`
}

// EraSummary describes the seigniorage allocations of the era that ended
// in a switch block.
type EraSummary struct {
	BlockHash     crypto.Digest `json:"block_hash"`
	EraID         uint64        `json:"era_id"`
	StoredValue   struct {
		EraInfo *EraInfo `json:"EraInfo"`
	} `json:"stored_value"`
	StateRootHash crypto.Digest `json:"state_root_hash"`
	MerkleProof   string        `json:"merkle_proof,omitempty"`
}

type EraInfo struct {
	SeigniorageAllocations []SeigniorageAllocation `json:"seigniorage_allocations"`
}

// SeigniorageAllocation holds exactly one of Delegator or Validator.
type SeigniorageAllocation struct {
	Delegator *DelegatorAllocation `json:"Delegator,omitempty"`
	Validator *ValidatorAllocation `json:"Validator,omitempty"`
}

type DelegatorAllocation struct {
	DelegatorPublicKey crypto.PublicKey `json:"delegator_public_key"`
	ValidatorPublicKey crypto.PublicKey `json:"validator_public_key"`
	Amount             decimal.Decimal  `json:"amount"`
}

type ValidatorAllocation struct {
	ValidatorPublicKey crypto.PublicKey `json:"validator_public_key"`
	Amount             decimal.Decimal  `json:"amount"`
}

type ResultGetAuctionInfo struct {
	APIVersion   string        `json:"api_version"`
	AuctionState *AuctionState `json:"auction_state"`
}

// AuctionState is the validator auction as of a block.
type AuctionState struct {
	StateRootHash crypto.Digest   `json:"state_root_hash"`
	BlockHeight   uint64          `json:"block_height"`
	EraValidators []EraValidators `json:"era_validators"`
	Bids          []Bid           `json:"bids"`
}

type EraValidators struct {
	EraID            uint64            `json:"era_id"`
	ValidatorWeights []ValidatorWeight `json:"validator_weights"`
}

type ValidatorWeight struct {
	PublicKey crypto.PublicKey `json:"public_key"`
	Weight    decimal.Decimal  `json:"weight"`
}

type Bid struct {
	PublicKey crypto.PublicKey `json:"public_key"`
	Bid       BidInfo          `json:"bid"`
}

type BidInfo struct {
	BondingPurse   cl.URef         `json:"bonding_purse"`
	StakedAmount   decimal.Decimal `json:"staked_amount"`
	DelegationRate uint8           `json:"delegation_rate"`
	Delegators     []Delegator     `json:"delegators"`
	Inactive       bool            `json:"inactive"`
}

type Delegator struct {
	PublicKey    crypto.PublicKey `json:"public_key"`
	StakedAmount decimal.Decimal  `json:"staked_amount"`
	BondingPurse cl.URef          `json:"bonding_purse"`
	Delegatee    crypto.PublicKey `json:"delegatee"`
}

type ResultGetPeers struct {
	APIVersion string `json:"api_version"`
	Peers      []Peer `json:"peers"`
}

type Peer struct {
	NodeID  string `json:"node_id"`
	Address string `json:"address"`
}
