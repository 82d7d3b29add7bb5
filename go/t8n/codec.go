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
	"encoding/json"
	"math/big"

	"github.com/Fantom-foundation/Figaro/go/figaro"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
)

// This file implements the JSON wire format shared by all tool variants.
// Field names and casing are part of the interoperability contract with
// externally maintained binaries and must not change.

// requestFiles is a transition request encoded into the three input
// documents a tool consumes.
type requestFiles struct {
	alloc []byte
	env   []byte
	txs   []byte
}

func encodeRequest(request Request) (requestFiles, error) {
	alloc, err := json.MarshalIndent(request.Alloc, "", "  ")
	if err != nil {
		return requestFiles{}, err
	}
	env, err := json.MarshalIndent(request.Env, "", "  ")
	if err != nil {
		return requestFiles{}, err
	}
	txList := request.Txs
	if txList == nil {
		txList = []figaro.Transaction{}
	}
	txs, err := json.MarshalIndent(txList, "", "  ")
	if err != nil {
		return requestFiles{}, err
	}
	return requestFiles{alloc: alloc, env: env, txs: txs}, nil
}

// stateParams is the sibling "state" object carrying the transition
// parameters that are not part of the three input documents.
type stateParams struct {
	Fork    string                `json:"fork"`
	ChainID math.HexOrDecimal64   `json:"chainid"`
	Reward  *math.HexOrDecimal256 `json:"reward"`
}

func encodeStateParams(request Request) stateParams {
	reward := request.Reward
	if reward == nil {
		reward = big.NewInt(0)
	}
	return stateParams{
		Fork:    request.Fork,
		ChainID: math.HexOrDecimal64(request.ChainID),
		Reward:  (*math.HexOrDecimal256)(reward),
	}
}

// requestEnvelope is the combined request document posted to server
// variants and streamed to stdin variants.
type requestEnvelope struct {
	State stateParams   `json:"state"`
	Input envelopeInput `json:"input"`
}

type envelopeInput struct {
	Alloc json.RawMessage `json:"alloc"`
	Env   json.RawMessage `json:"env"`
	Txs   json.RawMessage `json:"txs"`
}

func encodeEnvelope(request Request) ([]byte, error) {
	files, err := encodeRequest(request)
	if err != nil {
		return nil, err
	}
	return json.Marshal(requestEnvelope{
		State: encodeStateParams(request),
		Input: envelopeInput{Alloc: files.alloc, Env: files.env, Txs: files.txs},
	})
}

type resultJSON struct {
	StateRoot         *common.Hash          `json:"stateRoot"`
	TxRoot            common.Hash           `json:"txRoot"`
	ReceiptsRoot      common.Hash           `json:"receiptsRoot"`
	WithdrawalsRoot   *common.Hash          `json:"withdrawalsRoot,omitempty"`
	LogsHash          common.Hash           `json:"logsHash"`
	LogsBloom         types.Bloom           `json:"logsBloom"`
	GasUsed           math.HexOrDecimal64   `json:"gasUsed"`
	BlobGasUsed       *math.HexOrDecimal64  `json:"blobGasUsed,omitempty"`
	CurrentDifficulty *math.HexOrDecimal256 `json:"currentDifficulty,omitempty"`
	Receipts          []Receipt             `json:"receipts"`
	Rejected          []RejectedTx          `json:"rejected,omitempty"`
}

// parseResult validates and decodes the "result" document of a tool
// response. The state root is the one field every tool must report; its
// absence is a protocol violation.
func parseResult(tool string, data []byte) (Result, error) {
	var dec resultJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return Result{}, &ProtocolError{Tool: tool, Message: "malformed result document", Err: err}
	}
	if dec.StateRoot == nil {
		return Result{}, &ProtocolError{Tool: tool, Message: "result misses required field 'stateRoot'"}
	}
	res := Result{
		StateRoot:       *dec.StateRoot,
		TxRoot:          dec.TxRoot,
		ReceiptsRoot:    dec.ReceiptsRoot,
		WithdrawalsRoot: dec.WithdrawalsRoot,
		LogsHash:        dec.LogsHash,
		LogsBloom:       dec.LogsBloom,
		GasUsed:         uint64(dec.GasUsed),
		BlobGasUsed:     (*uint64)(dec.BlobGasUsed),
		Receipts:        dec.Receipts,
		Rejected:        dec.Rejected,
	}
	if dec.CurrentDifficulty != nil {
		res.CurrentDifficulty = (*big.Int)(dec.CurrentDifficulty)
	}
	return res, nil
}

func parseAlloc(tool string, data []byte) (figaro.Alloc, error) {
	var alloc figaro.Alloc
	if err := json.Unmarshal(data, &alloc); err != nil {
		return nil, &ProtocolError{Tool: tool, Message: "malformed alloc document", Err: err}
	}
	return alloc, nil
}

// responseEnvelope is the combined response document produced by server
// and stdin-streaming variants.
type responseEnvelope struct {
	Alloc  json.RawMessage `json:"alloc"`
	Result json.RawMessage `json:"result"`
	Body   hexutil.Bytes   `json:"body,omitempty"`
}

func parseEnvelope(tool string, data []byte) (Result, error) {
	var envelope responseEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Result{}, &ProtocolError{Tool: tool, Message: "malformed response envelope", Err: err}
	}
	if envelope.Result == nil {
		return Result{}, &ProtocolError{Tool: tool, Message: "response misses 'result' document"}
	}
	res, err := parseResult(tool, envelope.Result)
	if err != nil {
		return Result{}, err
	}
	if envelope.Alloc == nil {
		return Result{}, &ProtocolError{Tool: tool, Message: "response misses 'alloc' document"}
	}
	if res.Alloc, err = parseAlloc(tool, envelope.Alloc); err != nil {
		return Result{}, err
	}
	res.Body = envelope.Body
	return res, nil
}
