// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package fixture

import (
	"github.com/Fantom-foundation/Figaro/go/figaro"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// StateTest is a single-transaction fixture: a pre-state, one
// transaction, and the per-fork post-state roots a client must
// reproduce.
type StateTest struct {
	Info        Info                    `json:"_info"`
	Env         figaro.Environment      `json:"env"`
	Pre         figaro.Alloc            `json:"pre"`
	Transaction figaro.Transaction      `json:"transaction"`
	Post        map[string][]PostResult `json:"post"`
}

// PostResult is the expected outcome of running the transaction under
// one fork.
type PostResult struct {
	Hash            common.Hash   `json:"hash"`
	Logs            common.Hash   `json:"logs"`
	TxBytes         hexutil.Bytes `json:"txbytes,omitempty"`
	ExpectException string        `json:"expectException,omitempty"`
}

func (t *StateTest) Format() Format {
	return FormatStateTest
}

func (t *StateTest) MetaInfo() *Info {
	return &t.Info
}
