// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package t8n abstracts external state-transition tools behind a uniform
// request/response contract. A tool is an independently maintained binary
// that computes the outcome of executing a list of transactions in a
// block environment on top of a pre-state allocation. The package ships
// three process shapes: a one-shot command-line tool, a long-lived HTTP
// server, and a stdin/stdout streaming tool. The wire format is JSON and
// must remain bit-compatible across implementations.
package t8n

import (
	"math/big"

	"github.com/Fantom-foundation/Figaro/go/figaro"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

//go:generate mockgen -source tool.go -destination tool_mock.go -package t8n

// Tool is a handle on one external transition tool. Implementations are
// not safe for concurrent use; each worker owns its own instance.
// Process resources are acquired lazily on the first Evaluate call and
// must be released by calling Shutdown exactly once when the session
// ends.
type Tool interface {
	// Evaluate performs exactly one transition: one execution of a
	// one-shot binary, or one round-trip to a resident server. The
	// response is parsed and validated before it is returned; a failed
	// process, unparseable output, or a missing required field results
	// in an error and an undefined Result. Evaluate never retries.
	Evaluate(request Request) (Result, error)

	// Version reports the tool's version banner.
	Version() string

	// IsForkSupported reports whether the binary can process requests
	// for the given fork. Tools without a reliable way to answer this
	// report true.
	IsForkSupported(fork figaro.Fork) (bool, error)

	// Shutdown releases any long-lived process state. It is safe to call
	// on a tool that never ran.
	Shutdown() error
}

// Request is the complete input of one transition.
type Request struct {
	Alloc   figaro.Alloc
	Txs     []figaro.Transaction
	Env     figaro.Environment
	Fork    string // fork identifier, see figaro.Fork.Identifier
	ChainID uint64
	Reward  *big.Int // block reward credited to the coinbase, nil for none

	// DebugDir, when non-empty, names a directory under which the exact
	// request and response of this invocation are persisted. Purely a
	// side effect; the result is unaffected.
	DebugDir string
}

// Result is the outcome of one transition. It is owned exclusively by
// the caller that issued the request; results are never cached or
// shared.
type Result struct {
	Alloc             figaro.Alloc
	StateRoot         common.Hash
	TxRoot            common.Hash
	ReceiptsRoot      common.Hash
	WithdrawalsRoot   *common.Hash
	LogsHash          common.Hash
	LogsBloom         types.Bloom
	GasUsed           uint64
	BlobGasUsed       *uint64
	CurrentDifficulty *big.Int
	Receipts          []Receipt
	Rejected          []RejectedTx

	// Body is the RLP-encoded list of the transactions the tool included
	// in the block, signed. Empty if the tool does not report it.
	Body hexutil.Bytes
}

// Receipt is the per-transaction receipt reported by the tool. The
// fields mirror the tool's JSON verbatim.
type Receipt struct {
	Root             hexutil.Bytes  `json:"root,omitempty"`
	Status           hexutil.Uint64 `json:"status"`
	CumulativeGasUsed hexutil.Uint64 `json:"cumulativeGasUsed"`
	LogsBloom        types.Bloom    `json:"logsBloom"`
	Logs             []*types.Log   `json:"logs"`
	TxHash           common.Hash    `json:"transactionHash"`
	ContractAddress  common.Address `json:"contractAddress"`
	GasUsed          hexutil.Uint64 `json:"gasUsed"`
	BlockHash        common.Hash    `json:"blockHash"`
	TransactionIndex hexutil.Uint64 `json:"transactionIndex"`
}

// RejectedTx reports a transaction the tool refused to include.
type RejectedTx struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// RejectedIndex looks up the rejection entry for a transaction index.
func (r Result) RejectedIndex(index int) (RejectedTx, bool) {
	for _, rejected := range r.Rejected {
		if rejected.Index == index {
			return rejected, true
		}
	}
	return RejectedTx{}, false
}
