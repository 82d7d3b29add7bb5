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
	"errors"
	"testing"

	"github.com/Fantom-foundation/Figaro/go/figaro"
	"github.com/Fantom-foundation/Figaro/go/t8n"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/mock/gomock"
)

// newMockTool builds a mock tool with the ambient expectations every
// fill exercises.
func newMockTool(t *testing.T) *t8n.MockTool {
	ctrl := gomock.NewController(t)
	tool := t8n.NewMockTool(ctrl)
	tool.EXPECT().Version().Return("mock-tool 1.0").AnyTimes()
	tool.EXPECT().IsForkSupported(gomock.Any()).Return(true, nil).AnyTimes()
	return tool
}

func simpleStateTest() StateTest {
	return StateTest{
		Name: "simple_transfer",
		Fork: figaro.Shanghai,
		Pre: figaro.Alloc{
			{0xaa}: {Balance: uint256.NewInt(100)},
		},
		Tx: figaro.Transaction{Gas: 21_000, Value: uint256.NewInt(10)},
		Post: ExpectedPostState{
			{0xaa}: {Balance: uint256.NewInt(90)},
		},
	}
}

func TestFillStateTest_ProducesSealedFixtureContent(t *testing.T) {
	tool := newMockTool(t)
	root := common.Hash{0x01}
	logs := common.Hash{0x02}
	tool.EXPECT().Evaluate(gomock.Any()).DoAndReturn(func(request t8n.Request) (t8n.Result, error) {
		if len(request.Txs) != 1 {
			t.Errorf("Unexpected number of transactions: %d", len(request.Txs))
		}
		if request.Fork != "Shanghai" {
			t.Errorf("Unexpected fork: %v", request.Fork)
		}
		if request.ChainID != 1 {
			t.Errorf("Unexpected chain ID, wanted the default 1, got %d", request.ChainID)
		}
		return t8n.Result{
			Alloc:     figaro.Alloc{{0xaa}: {Balance: uint256.NewInt(90)}},
			StateRoot: root,
			LogsHash:  logs,
			Body:      []byte{0xc1, 0x80},
		}, nil
	})

	doc, err := New(tool).FillStateTest(simpleStateTest())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	results, found := doc.Post["Shanghai"]
	if !found || len(results) != 1 {
		t.Fatalf("Unexpected post section: %v", doc.Post)
	}
	if results[0].Hash != root {
		t.Errorf("Unexpected state root, wanted %v, got %v", root, results[0].Hash)
	}
	if results[0].Logs != logs {
		t.Errorf("Unexpected logs hash, wanted %v, got %v", logs, results[0].Logs)
	}
	if doc.Info.FillingTool != "mock-tool 1.0" {
		t.Errorf("Unexpected filling tool: %v", doc.Info.FillingTool)
	}
}

func TestFillStateTest_UnsupportedForkIsSkippable(t *testing.T) {
	ctrl := gomock.NewController(t)
	tool := t8n.NewMockTool(ctrl)
	tool.EXPECT().Version().Return("mock-tool 1.0").AnyTimes()
	tool.EXPECT().IsForkSupported(figaro.Shanghai).Return(false, nil)

	_, err := New(tool).FillStateTest(simpleStateTest())
	var unsupported *t8n.UnsupportedForkError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Unexpected error type, wanted UnsupportedForkError, got %v", err)
	}
}

func TestFillStateTest_UnexpectedRejectionFails(t *testing.T) {
	tool := newMockTool(t)
	tool.EXPECT().Evaluate(gomock.Any()).Return(t8n.Result{
		Alloc:     figaro.Alloc{},
		StateRoot: common.Hash{0x01},
		Rejected:  []t8n.RejectedTx{{Index: 0, Error: "nonce too low"}},
	}, nil)

	test := simpleStateTest()
	test.Post = ExpectedPostState{}
	if _, err := New(tool).FillStateTest(test); err == nil {
		t.Errorf("Expected an error for an unexpected rejection")
	}
}

func TestFillStateTest_ExpectedRejectionMustHappen(t *testing.T) {
	tool := newMockTool(t)
	tool.EXPECT().Evaluate(gomock.Any()).Return(t8n.Result{
		Alloc:     figaro.Alloc{},
		StateRoot: common.Hash{0x01},
	}, nil)

	test := simpleStateTest()
	test.Tx.ExpectedError = "intrinsic gas too low"
	test.Post = ExpectedPostState{}
	if _, err := New(tool).FillStateTest(test); err == nil {
		t.Errorf("Expected an error for a transaction that should have been rejected")
	}
}

func TestFillStateTest_CompatibleRejectionIsAccepted(t *testing.T) {
	tool := newMockTool(t)
	tool.EXPECT().Evaluate(gomock.Any()).Return(t8n.Result{
		Alloc:     figaro.Alloc{},
		StateRoot: common.Hash{0x01},
		Rejected:  []t8n.RejectedTx{{Index: 0, Error: "err: intrinsic gas too low: have 0, want 21000"}},
	}, nil)

	test := simpleStateTest()
	test.Tx.ExpectedError = "intrinsic gas too low"
	test.Post = ExpectedPostState{}
	doc, err := New(tool).FillStateTest(test)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := doc.Post["Shanghai"][0].ExpectException; got != "intrinsic gas too low" {
		t.Errorf("Unexpected recorded exception: %q", got)
	}
}

func TestFillStateTest_ReconciliationFailurePropagates(t *testing.T) {
	tool := newMockTool(t)
	tool.EXPECT().Evaluate(gomock.Any()).Return(t8n.Result{
		Alloc:     figaro.Alloc{{0xaa}: {Balance: uint256.NewInt(1)}},
		StateRoot: common.Hash{0x01},
	}, nil)

	_, err := New(tool).FillStateTest(simpleStateTest())
	var reconciliationErr *ReconciliationError
	if !errors.As(err, &reconciliationErr) {
		t.Fatalf("Unexpected error type, wanted ReconciliationError, got %v", err)
	}
}

func TestNormalizeEnvironment_FillsForkMandatoryFields(t *testing.T) {
	tests := map[string]struct {
		fork  figaro.Fork
		check func(t *testing.T, env figaro.Environment)
	}{
		"pre-merge difficulty default": {
			fork: figaro.Berlin,
			check: func(t *testing.T, env figaro.Environment) {
				if env.Difficulty == nil || env.Difficulty.Uint64() != 0x20000 {
					t.Errorf("Unexpected difficulty: %v", env.Difficulty)
				}
				if env.Random != nil || env.BaseFee != nil {
					t.Errorf("Unexpected post-fork fields: %+v", env)
				}
			},
		},
		"london base fee": {
			fork: figaro.London,
			check: func(t *testing.T, env figaro.Environment) {
				if env.BaseFee == nil || env.BaseFee.Uint64() != 7 {
					t.Errorf("Unexpected base fee: %v", env.BaseFee)
				}
			},
		},
		"merge random": {
			fork: figaro.Paris,
			check: func(t *testing.T, env figaro.Environment) {
				if env.Random == nil {
					t.Errorf("Missing random value")
				}
				if env.Difficulty != nil {
					t.Errorf("Unexpected difficulty past the merge: %v", env.Difficulty)
				}
			},
		},
		"shanghai withdrawals": {
			fork: figaro.Shanghai,
			check: func(t *testing.T, env figaro.Environment) {
				if env.Withdrawals == nil {
					t.Errorf("Missing withdrawals list")
				}
			},
		},
		"cancun blob fields": {
			fork: figaro.Cancun,
			check: func(t *testing.T, env figaro.Environment) {
				if env.ExcessBlobGas == nil {
					t.Errorf("Missing excess blob gas")
				}
				if env.BeaconRoot == nil {
					t.Errorf("Missing beacon root")
				}
			},
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			env := normalizeEnvironment(test.fork, figaro.Environment{})
			if env.GasLimit != 30_000_000 {
				t.Errorf("Unexpected default gas limit: %d", env.GasLimit)
			}
			test.check(t, env)
		})
	}
}

func TestNormalizeEnvironment_MovesDifficultyIntoRandomPastMerge(t *testing.T) {
	env := figaro.Environment{Difficulty: uint256.NewInt(0x1234)}
	res := normalizeEnvironment(figaro.Paris, env)
	if res.Random == nil || *res.Random != common.BytesToHash(uint256.NewInt(0x1234).Bytes()) {
		t.Errorf("Unexpected random value: %v", res.Random)
	}
	if res.Difficulty != nil {
		t.Errorf("Difficulty must be dropped past the merge")
	}
}

func TestNormalizeEnvironment_KeepsDeclaredFields(t *testing.T) {
	env := figaro.Environment{GasLimit: 5_000_000, BaseFee: uint256.NewInt(1000)}
	res := normalizeEnvironment(figaro.London, env)
	if res.GasLimit != 5_000_000 {
		t.Errorf("Unexpected gas limit: %d", res.GasLimit)
	}
	if res.BaseFee.Uint64() != 1000 {
		t.Errorf("Unexpected base fee: %v", res.BaseFee)
	}
}

func TestSanitizeTestName_ReplacesUnsafeCharacters(t *testing.T) {
	tests := map[string]string{
		"simple":        "simple",
		"with space":    "with_space",
		"path/like":     "path_like",
		"mixed: (case)": "mixed___case_",
	}
	for input, want := range tests {
		if got := sanitizeTestName(input); got != want {
			t.Errorf("Unexpected sanitized name for %q, wanted %q, got %q", input, want, got)
		}
	}
}
