// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package filler

import (
	"github.com/Fantom-foundation/Figaro/go/figaro"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// StateTest declares a single-transaction test: the transaction is
// wrapped into a one-block chain and its post-state reconciled against
// Post.
type StateTest struct {
	Name    string              `json:"-"`
	Fork    figaro.Fork         `json:"fork"`
	EIPs    []int               `json:"eips,omitempty"`
	ChainID uint64              `json:"chainId,omitempty"`
	Pre     figaro.Alloc        `json:"pre"`
	Env     figaro.Environment  `json:"env"`
	Tx      figaro.Transaction  `json:"transaction"`
	Post    ExpectedPostState   `json:"post"`

	// ExhaustivePost additionally requires every account of the
	// resulting allocation to be declared in Post.
	ExhaustivePost bool `json:"exhaustivePost,omitempty"`
}

// BlockchainTest declares a multi-block test. Blocks are filled in
// declared order; each block executes on the allocation produced by its
// predecessor.
type BlockchainTest struct {
	Name    string             `json:"-"`
	Fork    figaro.Fork        `json:"fork"`
	EIPs    []int              `json:"eips,omitempty"`
	ChainID uint64             `json:"chainId,omitempty"`
	Pre     figaro.Alloc       `json:"pre"`
	Genesis figaro.Environment `json:"genesis"`
	Blocks  []Block            `json:"blocks"`
	Post    ExpectedPostState  `json:"post"`

	ExhaustivePost bool `json:"exhaustivePost,omitempty"`
}

// Block is one declared block of a blockchain test. Zero-valued fields
// inherit from the genesis environment; the block number and parent
// linkage are always derived, never declared.
type Block struct {
	Txs         []figaro.Transaction `json:"transactions,omitempty"`
	Withdrawals []*types.Withdrawal  `json:"withdrawals,omitempty"`
	Timestamp   uint64               `json:"timestamp,omitempty"` // 0 inherits parent time + 12
	GasLimit    uint64               `json:"gasLimit,omitempty"`  // 0 inherits the genesis gas limit
	Coinbase    *common.Address      `json:"coinbase,omitempty"`

	// ExpectedException marks a block whose every transaction the tool
	// must reject; such a block contributes nothing to the final state
	// and is emitted as an invalid block.
	ExpectedException string `json:"expectException,omitempty"`

	// HeaderOverride mutates the computed header before hashing, to
	// produce a block that is deliberately inconsistent with the tool's
	// own result.
	HeaderOverride *HeaderOverride `json:"headerOverride,omitempty"`
}

// HeaderOverride is a post-processing transform on a computed block
// header. Nil fields leave the header untouched.
type HeaderOverride struct {
	ParentHash       *common.Hash  `json:"parentHash,omitempty"`
	StateRoot        *common.Hash  `json:"stateRoot,omitempty"`
	TransactionsRoot *common.Hash  `json:"transactionsRoot,omitempty"`
	ReceiptsRoot     *common.Hash  `json:"receiptsRoot,omitempty"`
	GasLimit         *uint64       `json:"gasLimit,omitempty"`
	GasUsed          *uint64       `json:"gasUsed,omitempty"`
	Timestamp        *uint64       `json:"timestamp,omitempty"`
	BaseFee          *uint256.Int  `json:"baseFee,omitempty"`
	ExtraData        hexutil.Bytes `json:"extraData,omitempty"`
}

// Apply mutates the header in place.
func (o *HeaderOverride) Apply(header *types.Header) {
	if o.ParentHash != nil {
		header.ParentHash = *o.ParentHash
	}
	if o.StateRoot != nil {
		header.Root = *o.StateRoot
	}
	if o.TransactionsRoot != nil {
		header.TxHash = *o.TransactionsRoot
	}
	if o.ReceiptsRoot != nil {
		header.ReceiptHash = *o.ReceiptsRoot
	}
	if o.GasLimit != nil {
		header.GasLimit = *o.GasLimit
	}
	if o.GasUsed != nil {
		header.GasUsed = *o.GasUsed
	}
	if o.Timestamp != nil {
		header.Time = *o.Timestamp
	}
	if o.BaseFee != nil {
		header.BaseFee = o.BaseFee.ToBig()
	}
	if o.ExtraData != nil {
		header.Extra = o.ExtraData
	}
}

func (t StateTest) chainID() uint64 {
	if t.ChainID == 0 {
		return 1
	}
	return t.ChainID
}

func (t BlockchainTest) chainID() uint64 {
	if t.ChainID == 0 {
		return 1
	}
	return t.ChainID
}
