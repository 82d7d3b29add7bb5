// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package t8n

import (
	"github.com/Fantom-foundation/Figaro/go/figaro"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// The helpers below probe a tool for a single root hash by submitting a
// transaction-less transition over a minimal environment. They never
// mutate caller state.

// ComputeStateRoot asks the tool for the state root of an allocation.
// For a fixed tool and allocation the result is deterministic.
func ComputeStateRoot(tool Tool, alloc figaro.Alloc, fork figaro.Fork) (common.Hash, error) {
	res, err := tool.Evaluate(Request{
		Alloc:   alloc,
		Env:     minimalEnvironment(fork),
		Fork:    fork.String(),
		ChainID: 1,
	})
	if err != nil {
		return common.Hash{}, err
	}
	return res.StateRoot, nil
}

// ComputeWithdrawalsRoot asks the tool for the trie root of a
// withdrawals list. An empty list short-circuits to the well-known
// empty-trie root without a tool invocation.
func ComputeWithdrawalsRoot(tool Tool, withdrawals []*types.Withdrawal, fork figaro.Fork) (common.Hash, error) {
	if len(withdrawals) == 0 {
		return types.EmptyWithdrawalsHash, nil
	}
	env := minimalEnvironment(fork)
	env.Withdrawals = withdrawals
	res, err := tool.Evaluate(Request{
		Alloc:   figaro.Alloc{},
		Env:     env,
		Fork:    fork.String(),
		ChainID: 1,
	})
	if err != nil {
		return common.Hash{}, err
	}
	if res.WithdrawalsRoot == nil {
		return common.Hash{}, &ProtocolError{
			Tool:    tool.Version(),
			Message: "result misses required field 'withdrawalsRoot'",
		}
	}
	return *res.WithdrawalsRoot, nil
}

// minimalEnvironment builds an environment containing exactly the
// fields the fork declares mandatory.
func minimalEnvironment(fork figaro.Fork) figaro.Environment {
	env := figaro.Environment{
		GasLimit: 30_000_000,
	}
	if fork.HasPrevRandao() {
		env.Random = &common.Hash{}
	} else {
		env.Difficulty = uint256.NewInt(0)
	}
	if fork.HasBaseFee() {
		env.BaseFee = uint256.NewInt(7)
	}
	if fork.HasWithdrawals() {
		env.Withdrawals = []*types.Withdrawal{}
	}
	if fork.HasBlobGas() {
		excess := uint64(0)
		env.ExcessBlobGas = &excess
	}
	if fork.HasBeaconRoot() {
		env.BeaconRoot = &common.Hash{}
	}
	return env
}
