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
	"math/big"

	"github.com/Fantom-foundation/Figaro/go/figaro"
	"github.com/Fantom-foundation/Figaro/go/t8n"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
)

// buildHeader assembles the canonical header of a filled block from its
// environment and the tool's execution result. The header hash derived
// from it is the block hash clients must observe.
func buildHeader(fork figaro.Fork, env figaro.Environment, parentHash common.Hash, res t8n.Result) *types.Header {
	header := &types.Header{
		ParentHash:  parentHash,
		UncleHash:   types.EmptyUncleHash,
		Coinbase:    env.Coinbase,
		Root:        res.StateRoot,
		TxHash:      res.TxRoot,
		ReceiptHash: res.ReceiptsRoot,
		Bloom:       res.LogsBloom,
		Difficulty:  big.NewInt(0),
		Number:      new(big.Int).SetUint64(env.Number),
		GasLimit:    env.GasLimit,
		GasUsed:     res.GasUsed,
		Time:        env.Timestamp,
	}
	if fork.HasPrevRandao() {
		if env.Random != nil {
			header.MixDigest = *env.Random
		}
	} else {
		if env.Difficulty != nil {
			header.Difficulty = env.Difficulty.ToBig()
		}
		if res.CurrentDifficulty != nil {
			header.Difficulty = res.CurrentDifficulty
		}
	}
	if fork.HasBaseFee() && env.BaseFee != nil {
		header.BaseFee = env.BaseFee.ToBig()
	}
	if fork.HasWithdrawals() {
		root := types.EmptyWithdrawalsHash
		if res.WithdrawalsRoot != nil {
			root = *res.WithdrawalsRoot
		}
		header.WithdrawalsHash = &root
	}
	if fork.HasBlobGas() {
		var blobGasUsed, excess uint64
		if res.BlobGasUsed != nil {
			blobGasUsed = *res.BlobGasUsed
		}
		if env.ExcessBlobGas != nil {
			excess = *env.ExcessBlobGas
		}
		header.BlobGasUsed = &blobGasUsed
		header.ExcessBlobGas = &excess
	}
	if fork.HasBeaconRoot() {
		root := common.Hash{}
		if env.BeaconRoot != nil {
			root = *env.BeaconRoot
		}
		header.ParentBeaconRoot = &root
	}
	return header
}

// genesisHeader assembles the block-0 header of a blockchain test. Its
// roots are the empty-trie constants except for the state root, which
// the tool computed from the pre-allocation.
func genesisHeader(fork figaro.Fork, env figaro.Environment, stateRoot common.Hash) *types.Header {
	res := t8n.Result{
		StateRoot:    stateRoot,
		TxRoot:       types.EmptyTxsHash,
		ReceiptsRoot: types.EmptyReceiptsHash,
	}
	header := buildHeader(fork, env, common.Hash{}, res)
	header.Number = big.NewInt(0)
	return header
}

// rlpBlock is the wire shape of one block: the transaction list is kept
// as the raw RLP the tool reported, so the fixture carries exactly the
// bytes the tool signed off on.
type rlpBlock struct {
	Header      *types.Header
	Txs         rlp.RawValue
	Uncles      []*types.Header
	Withdrawals types.Withdrawals `rlp:"optional"`
}

// emptyTxListRLP is the encoding of a transaction-less block body item.
var emptyTxListRLP = rlp.RawValue{0xc0}

func encodeBlock(fork figaro.Fork, header *types.Header, body []byte, withdrawals []*types.Withdrawal) ([]byte, error) {
	block := rlpBlock{
		Header: header,
		Txs:    emptyTxListRLP,
	}
	if len(body) > 0 {
		block.Txs = rlp.RawValue(body)
	}
	if fork.HasWithdrawals() {
		block.Withdrawals = types.Withdrawals{}
		for _, w := range withdrawals {
			block.Withdrawals = append(block.Withdrawals, w)
		}
	}
	return rlp.EncodeToBytes(block)
}

// decodeBodyTransactions splits the tool-reported body RLP into the
// individual encoded transactions, as the engine API expects them.
func decodeBodyTransactions(body []byte) ([]rlp.RawValue, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var txs []rlp.RawValue
	if err := rlp.DecodeBytes(body, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}
