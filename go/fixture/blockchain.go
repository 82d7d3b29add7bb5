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
	"github.com/ethereum/go-ethereum/core/types"
)

// BlockchainTest is a multi-block fixture: a genesis, a sequence of
// RLP-encoded blocks to import (some deliberately invalid), and the
// final state a client must arrive at.
type BlockchainTest struct {
	Info          Info          `json:"_info"`
	Network       string        `json:"network"`
	SealEngine    string        `json:"sealEngine"`
	GenesisHeader *types.Header `json:"genesisBlockHeader"`
	GenesisRLP    hexutil.Bytes `json:"genesisRLP"`
	Blocks        []Block       `json:"blocks"`
	LastBlockHash common.Hash   `json:"lastblockhash"`
	Pre           figaro.Alloc  `json:"pre"`
	PostState     figaro.Alloc  `json:"postState"`
}

// Block is one block of a blockchain fixture. ExpectException marks a
// block the client must refuse to import.
type Block struct {
	RLP             hexutil.Bytes `json:"rlp"`
	Header          *types.Header `json:"blockHeader,omitempty"`
	ExpectException string        `json:"expectException,omitempty"`
}

func (t *BlockchainTest) Format() Format {
	return FormatBlockchainTest
}

func (t *BlockchainTest) MetaInfo() *Info {
	return &t.Info
}
