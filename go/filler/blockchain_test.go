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
	"reflect"
	"testing"

	"github.com/Fantom-foundation/Figaro/go/figaro"
	"github.com/Fantom-foundation/Figaro/go/t8n"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/mock/gomock"
)

// scriptedTool answers Evaluate calls from a fixed list of results and
// records every request it sees. The first call is always the genesis
// state root probe.
func scriptedTool(t *testing.T, requests *[]t8n.Request, results []t8n.Result) *t8n.MockTool {
	tool := newMockTool(t)
	tool.EXPECT().Evaluate(gomock.Any()).DoAndReturn(func(request t8n.Request) (t8n.Result, error) {
		index := len(*requests)
		*requests = append(*requests, request)
		if index >= len(results) {
			t.Fatalf("Unexpected Evaluate call %d", index)
		}
		return results[index], nil
	}).Times(len(results))
	return tool
}

func simpleBlockchainTest(blocks ...Block) BlockchainTest {
	return BlockchainTest{
		Name:   "simple_chain",
		Fork:   figaro.Shanghai,
		Pre:    figaro.Alloc{{0xaa}: {Balance: uint256.NewInt(100)}},
		Blocks: blocks,
		Post:   ExpectedPostState{},
	}
}

func TestFillBlockchainTest_BlocksChainTheirAllocations(t *testing.T) {
	alloc1 := figaro.Alloc{{0xaa}: {Balance: uint256.NewInt(90), Nonce: 1}}
	alloc2 := figaro.Alloc{{0xaa}: {Balance: uint256.NewInt(80), Nonce: 2}}
	var requests []t8n.Request
	tool := scriptedTool(t, &requests, []t8n.Result{
		{StateRoot: common.Hash{0x0a}}, // genesis root probe
		{Alloc: alloc1, StateRoot: common.Hash{0x01}},
		{Alloc: alloc2, StateRoot: common.Hash{0x02}},
	})

	test := simpleBlockchainTest(
		Block{Txs: []figaro.Transaction{{Gas: 21_000}}},
		Block{Txs: []figaro.Transaction{{Gas: 21_000}}},
	)
	doc, err := New(tool).FillBlockchainTest(test)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(requests) != 3 {
		t.Fatalf("Unexpected number of tool calls, wanted 3, got %d", len(requests))
	}
	if len(requests[0].Txs) != 0 {
		t.Errorf("Genesis root probe must carry no transactions")
	}
	if !reflect.DeepEqual(requests[1].Alloc, test.Pre) {
		t.Errorf("Block 1 must start from the pre-allocation")
	}
	if !reflect.DeepEqual(requests[2].Alloc, alloc1) {
		t.Errorf("Block 2 must start from the allocation block 1 produced")
	}
	if requests[1].Env.Number != 1 || requests[2].Env.Number != 2 {
		t.Errorf("Unexpected block numbers: %d, %d", requests[1].Env.Number, requests[2].Env.Number)
	}

	if len(doc.Blocks) != 2 {
		t.Fatalf("Unexpected number of fixture blocks: %d", len(doc.Blocks))
	}
	if doc.SealEngine != "NoProof" {
		t.Errorf("Unexpected seal engine: %v", doc.SealEngine)
	}
	if doc.Blocks[1].Header.ParentHash != doc.Blocks[0].Header.Hash() {
		t.Errorf("Block 2 does not link to block 1")
	}
	if doc.LastBlockHash != doc.Blocks[1].Header.Hash() {
		t.Errorf("Unexpected last block hash")
	}
	if !reflect.DeepEqual(doc.PostState, alloc2) {
		t.Errorf("Unexpected post state: %v", doc.PostState)
	}
}

func TestFillBlockchainTest_AncestorHashesAreExposed(t *testing.T) {
	var requests []t8n.Request
	tool := scriptedTool(t, &requests, []t8n.Result{
		{StateRoot: common.Hash{0x0a}},
		{Alloc: figaro.Alloc{}, StateRoot: common.Hash{0x01}},
		{Alloc: figaro.Alloc{}, StateRoot: common.Hash{0x02}},
	})

	test := simpleBlockchainTest(Block{}, Block{})
	if _, err := New(tool).FillBlockchainTest(test); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(requests[1].Env.BlockHashes) != 1 {
		t.Errorf("Block 1 must see exactly the genesis hash, got %v", requests[1].Env.BlockHashes)
	}
	if len(requests[2].Env.BlockHashes) != 2 {
		t.Errorf("Block 2 must see genesis and block 1, got %v", requests[2].Env.BlockHashes)
	}
}

func TestFillBlockchainTest_ExceptionBlockLeavesChainUntouched(t *testing.T) {
	alloc1 := figaro.Alloc{{0xaa}: {Balance: uint256.NewInt(90)}}
	var requests []t8n.Request
	tool := scriptedTool(t, &requests, []t8n.Result{
		{StateRoot: common.Hash{0x0a}},
		{Alloc: alloc1, StateRoot: common.Hash{0x01}},
		{ // the invalid block: every transaction rejected
			Alloc:     figaro.Alloc{{0xdd}: {}},
			StateRoot: common.Hash{0xdd},
			Rejected:  []t8n.RejectedTx{{Index: 0, Error: "nonce too low"}},
		},
		{Alloc: alloc1, StateRoot: common.Hash{0x03}},
	})

	test := simpleBlockchainTest(
		Block{Txs: []figaro.Transaction{{Gas: 21_000}}},
		Block{
			Txs:               []figaro.Transaction{{Gas: 21_000}},
			ExpectedException: "NONCE TOO LOW", // matching is case-insensitive
		},
		Block{},
	)
	doc, err := New(tool).FillBlockchainTest(test)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !reflect.DeepEqual(requests[3].Alloc, alloc1) {
		t.Errorf("The block after the exception must start from the last valid allocation")
	}
	if requests[2].Env.Number != 2 || requests[3].Env.Number != 2 {
		t.Errorf("The block after the exception must reuse the failed number, got %d and %d",
			requests[2].Env.Number, requests[3].Env.Number)
	}

	if len(doc.Blocks) != 3 {
		t.Fatalf("Unexpected number of fixture blocks: %d", len(doc.Blocks))
	}
	invalid := doc.Blocks[1]
	if invalid.Header != nil {
		t.Errorf("Invalid blocks must be delivered as opaque RLP only")
	}
	if len(invalid.RLP) == 0 {
		t.Errorf("Invalid blocks must still carry their RLP")
	}
	if invalid.ExpectException != "NONCE TOO LOW" {
		t.Errorf("Unexpected exception: %q", invalid.ExpectException)
	}
	if doc.Blocks[2].Header.ParentHash != doc.Blocks[0].Header.Hash() {
		t.Errorf("The block after the exception must link to the last valid block")
	}
	if !reflect.DeepEqual(doc.PostState, alloc1) {
		t.Errorf("The invalid block leaked into the post state: %v", doc.PostState)
	}
}

func TestFillBlockchainTest_ExceptionRequiresAllTransactionsRejected(t *testing.T) {
	var requests []t8n.Request
	tool := scriptedTool(t, &requests, []t8n.Result{
		{StateRoot: common.Hash{0x0a}},
		{ // one of two transactions slipped through
			Alloc:     figaro.Alloc{},
			StateRoot: common.Hash{0x01},
			Rejected:  []t8n.RejectedTx{{Index: 0, Error: "nonce too low"}},
		},
	})

	test := simpleBlockchainTest(Block{
		Txs:               []figaro.Transaction{{Gas: 21_000}, {Gas: 21_000}},
		ExpectedException: "nonce too low",
	})
	if _, err := New(tool).FillBlockchainTest(test); err == nil {
		t.Errorf("Expected an error when not every transaction is rejected")
	}
}

func TestFillBlockchainTest_HeaderOverrideShapesTheEmittedBlock(t *testing.T) {
	var requests []t8n.Request
	override := common.Hash{0xbe, 0xef}
	tool := scriptedTool(t, &requests, []t8n.Result{
		{StateRoot: common.Hash{0x0a}},
		{Alloc: figaro.Alloc{}, StateRoot: common.Hash{0x01}},
	})

	test := simpleBlockchainTest(Block{
		HeaderOverride: &HeaderOverride{StateRoot: &override},
	})
	doc, err := New(tool).FillBlockchainTest(test)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if doc.Blocks[0].Header.Root != override {
		t.Errorf("Unexpected state root, wanted the override %v, got %v", override, doc.Blocks[0].Header.Root)
	}
	if doc.LastBlockHash != doc.Blocks[0].Header.Hash() {
		t.Errorf("The overridden header must define the block hash")
	}
}

func TestFillBlockchainTest_BlockDeclarationsOverrideTheEnvironment(t *testing.T) {
	coinbase := common.Address{0xcb}
	var requests []t8n.Request
	tool := scriptedTool(t, &requests, []t8n.Result{
		{StateRoot: common.Hash{0x0a}},
		{Alloc: figaro.Alloc{}, StateRoot: common.Hash{0x01}},
	})

	test := simpleBlockchainTest(Block{
		Timestamp: 5000,
		GasLimit:  10_000_000,
		Coinbase:  &coinbase,
	})
	if _, err := New(tool).FillBlockchainTest(test); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	env := requests[1].Env
	if env.Timestamp != 5000 || env.GasLimit != 10_000_000 || env.Coinbase != coinbase {
		t.Errorf("Unexpected block environment: %+v", env)
	}
}

func TestFillBlockchainEngineTest_PayloadsCarryValidationErrors(t *testing.T) {
	var requests []t8n.Request
	tool := scriptedTool(t, &requests, []t8n.Result{
		{StateRoot: common.Hash{0x0a}},
		{Alloc: figaro.Alloc{}, StateRoot: common.Hash{0x01}},
		{
			Alloc:     figaro.Alloc{},
			StateRoot: common.Hash{0x02},
			Rejected:  []t8n.RejectedTx{{Index: 0, Error: "invalid opcode"}},
		},
	})

	test := simpleBlockchainTest(
		Block{},
		Block{
			Txs:               []figaro.Transaction{{Gas: 21_000}},
			ExpectedException: "invalid opcode",
		},
	)
	doc, err := New(tool).FillBlockchainEngineTest(test)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(doc.Payloads) != 2 {
		t.Fatalf("Unexpected number of payloads: %d", len(doc.Payloads))
	}
	if doc.Payloads[0].ValidationError != "" {
		t.Errorf("Unexpected validation error on a valid payload: %q", doc.Payloads[0].ValidationError)
	}
	if doc.Payloads[1].ValidationError != "invalid opcode" {
		t.Errorf("Unexpected validation error: %q", doc.Payloads[1].ValidationError)
	}
	if doc.Payloads[0].BlockNumber != 1 {
		t.Errorf("Unexpected block number: %d", doc.Payloads[0].BlockNumber)
	}
	if len(doc.Payloads[0].Transactions) != 0 {
		t.Errorf("Unexpected transactions in an empty payload: %v", doc.Payloads[0].Transactions)
	}
}

func TestExceptionCompatible_MatchesInBothDirections(t *testing.T) {
	tests := map[string]struct {
		reported string
		expected string
		match    bool
	}{
		"reported contains expected": {"err: nonce too low: have 1", "nonce too low", true},
		"expected contains reported": {"nonce too low", "block invalid: nonce too low somewhere", true},
		"case differences":           {"Nonce Too Low", "NONCE TOO LOW", true},
		"unrelated":                  {"gas limit reached", "nonce too low", false},
		"empty reported":             {"", "nonce too low", false},
		"empty expected":             {"nonce too low", "", false},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if got := exceptionCompatible(test.reported, test.expected); got != test.match {
				t.Errorf("Unexpected match result, wanted %v, got %v", test.match, got)
			}
		})
	}
}
