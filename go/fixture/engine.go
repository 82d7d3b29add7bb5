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

// BlockchainEngineTest delivers the same chain as a BlockchainTest, but
// as execution payloads fed through the engine API instead of RLP
// blocks.
type BlockchainEngineTest struct {
	Info          Info            `json:"_info"`
	Network       string          `json:"network"`
	GenesisHeader *types.Header   `json:"genesisBlockHeader"`
	Payloads      []EnginePayload `json:"engineNewPayloads"`
	LastBlockHash common.Hash     `json:"lastblockhash"`
	Pre           figaro.Alloc    `json:"pre"`
	PostState     figaro.Alloc    `json:"postState"`
}

// EnginePayload is one execution payload. ValidationError names the
// failure a client must report for a deliberately invalid payload.
type EnginePayload struct {
	ParentHash            common.Hash         `json:"parentHash"`
	FeeRecipient          common.Address      `json:"feeRecipient"`
	StateRoot             common.Hash         `json:"stateRoot"`
	ReceiptsRoot          common.Hash         `json:"receiptsRoot"`
	LogsBloom             types.Bloom         `json:"logsBloom"`
	PrevRandao            common.Hash         `json:"prevRandao"`
	BlockNumber           hexutil.Uint64      `json:"blockNumber"`
	GasLimit              hexutil.Uint64      `json:"gasLimit"`
	GasUsed               hexutil.Uint64      `json:"gasUsed"`
	Timestamp             hexutil.Uint64      `json:"timestamp"`
	ExtraData             hexutil.Bytes       `json:"extraData"`
	BaseFeePerGas         *hexutil.Big        `json:"baseFeePerGas,omitempty"`
	BlockHash             common.Hash         `json:"blockHash"`
	Transactions          []hexutil.Bytes     `json:"transactions"`
	Withdrawals           []*types.Withdrawal `json:"withdrawals,omitempty"`
	BlobGasUsed           *hexutil.Uint64     `json:"blobGasUsed,omitempty"`
	ExcessBlobGas         *hexutil.Uint64     `json:"excessBlobGas,omitempty"`
	ParentBeaconBlockRoot *common.Hash        `json:"parentBeaconBlockRoot,omitempty"`
	ValidationError       string              `json:"validationError,omitempty"`
}

// PayloadFromHeader projects an assembled header and its transaction
// list into the engine API shape.
func PayloadFromHeader(header *types.Header, txs []hexutil.Bytes, withdrawals []*types.Withdrawal) EnginePayload {
	payload := EnginePayload{
		ParentHash:            header.ParentHash,
		FeeRecipient:          header.Coinbase,
		StateRoot:             header.Root,
		ReceiptsRoot:          header.ReceiptHash,
		LogsBloom:             header.Bloom,
		PrevRandao:            header.MixDigest,
		BlockNumber:           hexutil.Uint64(header.Number.Uint64()),
		GasLimit:              hexutil.Uint64(header.GasLimit),
		GasUsed:               hexutil.Uint64(header.GasUsed),
		Timestamp:             hexutil.Uint64(header.Time),
		ExtraData:             header.Extra,
		BlockHash:             header.Hash(),
		Transactions:          txs,
		Withdrawals:           withdrawals,
		ParentBeaconBlockRoot: header.ParentBeaconRoot,
	}
	if payload.ExtraData == nil {
		payload.ExtraData = hexutil.Bytes{}
	}
	if payload.Transactions == nil {
		payload.Transactions = []hexutil.Bytes{}
	}
	if header.BaseFee != nil {
		payload.BaseFeePerGas = (*hexutil.Big)(header.BaseFee)
	}
	if header.BlobGasUsed != nil {
		payload.BlobGasUsed = (*hexutil.Uint64)(header.BlobGasUsed)
	}
	if header.ExcessBlobGas != nil {
		payload.ExcessBlobGas = (*hexutil.Uint64)(header.ExcessBlobGas)
	}
	return payload
}

func (t *BlockchainEngineTest) Format() Format {
	return FormatBlockchainEngineTest
}

func (t *BlockchainEngineTest) MetaInfo() *Info {
	return &t.Info
}
