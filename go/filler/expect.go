// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package filler drives transition tools to turn declarative test
// definitions into client-consumable fixtures, and reconciles the
// resulting state against the declared expectations.
package filler

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"
)

// ExpectedPostState is a partial account expectation. Mapping an address
// to nil asserts the account must not exist; addresses absent from the
// mapping are untested. In JSON a nil entry is spelled null.
type ExpectedPostState map[common.Address]*ExpectedAccount

// ExpectedAccount declares the account fields a test asserts. Nil fields
// are not checked. A non-nil empty Code asserts the account has no code,
// and declared storage slots with a zero value assert the slot is empty;
// undeclared slots are never checked.
type ExpectedAccount struct {
	Balance *uint256.Int
	Nonce   *uint64
	Code    []byte
	Storage map[common.Hash]common.Hash
}

type expectedAccountJSON struct {
	Balance *math.HexOrDecimal256       `json:"balance,omitempty"`
	Nonce   *math.HexOrDecimal64        `json:"nonce,omitempty"`
	Code    *hexutil.Bytes              `json:"code,omitempty"`
	Storage map[common.Hash]common.Hash `json:"storage,omitempty"`
}

func (a ExpectedAccount) MarshalJSON() ([]byte, error) {
	enc := expectedAccountJSON{
		Nonce:   (*math.HexOrDecimal64)(a.Nonce),
		Storage: a.Storage,
	}
	if a.Balance != nil {
		enc.Balance = (*math.HexOrDecimal256)(a.Balance.ToBig())
	}
	if a.Code != nil {
		code := hexutil.Bytes(a.Code)
		enc.Code = &code
	}
	return json.Marshal(enc)
}

func (a *ExpectedAccount) UnmarshalJSON(data []byte) error {
	var dec expectedAccountJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	res := ExpectedAccount{
		Nonce:   (*uint64)(dec.Nonce),
		Storage: dec.Storage,
	}
	if dec.Balance != nil {
		balance, overflow := uint256.FromBig((*big.Int)(dec.Balance))
		if overflow {
			return fmt.Errorf("expected balance does not fit in 256 bits")
		}
		res.Balance = balance
	}
	if dec.Code != nil {
		res.Code = *dec.Code
	}
	*a = res
	return nil
}
