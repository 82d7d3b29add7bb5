// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package figaro defines the data model shared by the transition-tool
// protocol and the fixture-fill pipeline: account allocations, block
// environments, transactions, and the fork metadata they depend on.
// All JSON encodings in this package are wire-exact with the formats
// consumed and produced by external transition tools.
package figaro

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"
)

// Alloc maps addresses to their account state. It is used both as the
// pre-state input of a transition and as its resulting post-state.
type Alloc map[common.Address]Account

// Account is the full state of a single account. A nil balance is
// treated as zero. Storage slots holding a zero value are semantically
// absent and are dropped when encoding.
type Account struct {
	Nonce   uint64
	Balance *uint256.Int
	Code    []byte
	Storage map[common.Hash]common.Hash
}

type accountJSON struct {
	Nonce   math.HexOrDecimal64         `json:"nonce,omitempty"`
	Balance *math.HexOrDecimal256       `json:"balance"`
	Code    hexutil.Bytes               `json:"code,omitempty"`
	Storage map[common.Hash]common.Hash `json:"storage,omitempty"`
}

func (a Account) MarshalJSON() ([]byte, error) {
	enc := accountJSON{
		Nonce:   math.HexOrDecimal64(a.Nonce),
		Balance: (*math.HexOrDecimal256)(a.BalanceOrZero().ToBig()),
		Code:    a.Code,
	}
	for key, value := range a.Storage {
		if value == (common.Hash{}) {
			continue
		}
		if enc.Storage == nil {
			enc.Storage = map[common.Hash]common.Hash{}
		}
		enc.Storage[key] = value
	}
	return json.Marshal(enc)
}

func (a *Account) UnmarshalJSON(data []byte) error {
	var dec accountJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	balance := new(uint256.Int)
	if dec.Balance != nil {
		if overflow := balance.SetFromBig((*big.Int)(dec.Balance)); overflow {
			return fmt.Errorf("account balance does not fit in 256 bits")
		}
	}
	a.Nonce = uint64(dec.Nonce)
	a.Balance = balance
	a.Code = dec.Code
	a.Storage = nil
	for key, value := range dec.Storage {
		if value == (common.Hash{}) {
			continue
		}
		if a.Storage == nil {
			a.Storage = map[common.Hash]common.Hash{}
		}
		a.Storage[key] = value
	}
	return nil
}

func errValueOverflow(field string) error {
	return fmt.Errorf("value of %q does not fit in 256 bits", field)
}

// BalanceOrZero returns the account balance, mapping nil to zero.
func (a Account) BalanceOrZero() *uint256.Int {
	if a.Balance == nil {
		return uint256.NewInt(0)
	}
	return a.Balance
}

// Clone creates a deep copy of the account.
func (a Account) Clone() Account {
	res := Account{
		Nonce:   a.Nonce,
		Balance: new(uint256.Int).Set(a.BalanceOrZero()),
	}
	if a.Code != nil {
		res.Code = append([]byte(nil), a.Code...)
	}
	if a.Storage != nil {
		res.Storage = make(map[common.Hash]common.Hash, len(a.Storage))
		for key, value := range a.Storage {
			res.Storage[key] = value
		}
	}
	return res
}

// Clone creates a deep copy of the allocation.
func (a Alloc) Clone() Alloc {
	res := make(Alloc, len(a))
	for addr, account := range a {
		res[addr] = account.Clone()
	}
	return res
}
