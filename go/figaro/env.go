// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package figaro

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// Environment is the block-level execution context of a transition
// request. Which optional fields must be populated depends on the fork;
// see Fork's capability queries. BlockHashes provides the ancestors
// visible to the BLOCKHASH instruction, keyed by block number.
type Environment struct {
	Coinbase      common.Address
	Difficulty    *uint256.Int
	Random        *common.Hash
	GasLimit      uint64
	Number        uint64
	Timestamp     uint64
	BaseFee       *uint256.Int
	ExcessBlobGas *uint64
	BeaconRoot    *common.Hash
	Withdrawals   []*types.Withdrawal
	BlockHashes   map[uint64]common.Hash
}

type environmentJSON struct {
	Coinbase      common.Address                      `json:"currentCoinbase"`
	Difficulty    *math.HexOrDecimal256               `json:"currentDifficulty,omitempty"`
	Random        *common.Hash                        `json:"currentRandom,omitempty"`
	GasLimit      math.HexOrDecimal64                 `json:"currentGasLimit"`
	Number        math.HexOrDecimal64                 `json:"currentNumber"`
	Timestamp     math.HexOrDecimal64                 `json:"currentTimestamp"`
	BaseFee       *math.HexOrDecimal256               `json:"currentBaseFee,omitempty"`
	ExcessBlobGas *math.HexOrDecimal64                `json:"currentExcessBlobGas,omitempty"`
	BeaconRoot    *common.Hash                        `json:"parentBeaconBlockRoot,omitempty"`
	Withdrawals   []*types.Withdrawal                 `json:"withdrawals,omitempty"`
	BlockHashes   map[math.HexOrDecimal64]common.Hash `json:"blockHashes,omitempty"`
}

func (e Environment) MarshalJSON() ([]byte, error) {
	enc := environmentJSON{
		Coinbase:      e.Coinbase,
		Random:        e.Random,
		GasLimit:      math.HexOrDecimal64(e.GasLimit),
		Number:        math.HexOrDecimal64(e.Number),
		Timestamp:     math.HexOrDecimal64(e.Timestamp),
		BeaconRoot:    e.BeaconRoot,
		Withdrawals:   e.Withdrawals,
		ExcessBlobGas: (*math.HexOrDecimal64)(e.ExcessBlobGas),
	}
	if e.Difficulty != nil {
		enc.Difficulty = (*math.HexOrDecimal256)(e.Difficulty.ToBig())
	}
	if e.BaseFee != nil {
		enc.BaseFee = (*math.HexOrDecimal256)(e.BaseFee.ToBig())
	}
	if len(e.BlockHashes) > 0 {
		enc.BlockHashes = make(map[math.HexOrDecimal64]common.Hash, len(e.BlockHashes))
		for number, hash := range e.BlockHashes {
			enc.BlockHashes[math.HexOrDecimal64(number)] = hash
		}
	}
	return json.Marshal(enc)
}

func (e *Environment) UnmarshalJSON(data []byte) error {
	var dec environmentJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	*e = Environment{
		Coinbase:      dec.Coinbase,
		Random:        dec.Random,
		GasLimit:      uint64(dec.GasLimit),
		Number:        uint64(dec.Number),
		Timestamp:     uint64(dec.Timestamp),
		BeaconRoot:    dec.BeaconRoot,
		Withdrawals:   dec.Withdrawals,
		ExcessBlobGas: (*uint64)(dec.ExcessBlobGas),
	}
	if dec.Difficulty != nil {
		difficulty, overflow := uint256.FromBig((*big.Int)(dec.Difficulty))
		if overflow {
			return errValueOverflow("currentDifficulty")
		}
		e.Difficulty = difficulty
	}
	if dec.BaseFee != nil {
		baseFee, overflow := uint256.FromBig((*big.Int)(dec.BaseFee))
		if overflow {
			return errValueOverflow("currentBaseFee")
		}
		e.BaseFee = baseFee
	}
	if len(dec.BlockHashes) > 0 {
		e.BlockHashes = make(map[uint64]common.Hash, len(dec.BlockHashes))
		for number, hash := range dec.BlockHashes {
			e.BlockHashes[uint64(number)] = hash
		}
	}
	return nil
}

// Clone creates a deep copy of the environment.
func (e Environment) Clone() Environment {
	res := e
	if e.Difficulty != nil {
		res.Difficulty = new(uint256.Int).Set(e.Difficulty)
	}
	if e.Random != nil {
		random := *e.Random
		res.Random = &random
	}
	if e.BaseFee != nil {
		res.BaseFee = new(uint256.Int).Set(e.BaseFee)
	}
	if e.ExcessBlobGas != nil {
		excess := *e.ExcessBlobGas
		res.ExcessBlobGas = &excess
	}
	if e.BeaconRoot != nil {
		root := *e.BeaconRoot
		res.BeaconRoot = &root
	}
	if e.Withdrawals != nil {
		res.Withdrawals = make([]*types.Withdrawal, len(e.Withdrawals))
		for i, withdrawal := range e.Withdrawals {
			w := *withdrawal
			res.Withdrawals[i] = &w
		}
	}
	if e.BlockHashes != nil {
		res.BlockHashes = make(map[uint64]common.Hash, len(e.BlockHashes))
		for number, hash := range e.BlockHashes {
			res.BlockHashes[number] = hash
		}
	}
	return res
}
