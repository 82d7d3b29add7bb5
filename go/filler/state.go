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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Fantom-foundation/Figaro/go/figaro"
	"github.com/Fantom-foundation/Figaro/go/fixture"
	"github.com/Fantom-foundation/Figaro/go/t8n"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// Filler turns declarative test definitions into fixture documents by
// driving one transition tool. A filler is bound to a single worker;
// its fills run strictly one after another.
type Filler struct {
	tool t8n.Tool

	// DebugDir, when set, collects one dump directory per tool
	// invocation, grouped by test name.
	DebugDir string
}

func New(tool t8n.Tool) *Filler {
	return &Filler{tool: tool}
}

// checkFork gates the fill on the tool's fork support; an unsupported
// fork is a skip for the caller, not a failure.
func (f *Filler) checkFork(fork figaro.Fork) error {
	supported, err := f.tool.IsForkSupported(fork)
	if err != nil {
		return err
	}
	if !supported {
		return &t8n.UnsupportedForkError{Tool: f.tool.Version(), Fork: fork}
	}
	return nil
}

func (f *Filler) debugDirFor(testName string) string {
	if f.DebugDir == "" {
		return ""
	}
	return filepath.Join(f.DebugDir, sanitizeTestName(testName))
}

func sanitizeTestName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}

// FillStateTest synthesizes a one-block chain around the test's single
// transaction and reconciles the resulting allocation.
func (f *Filler) FillStateTest(test StateTest) (*fixture.StateTest, error) {
	if err := f.checkFork(test.Fork); err != nil {
		return nil, err
	}
	env := normalizeEnvironment(test.Fork, test.Env)
	res, err := f.tool.Evaluate(t8n.Request{
		Alloc:    test.Pre,
		Txs:      []figaro.Transaction{test.Tx},
		Env:      env,
		Fork:     test.Fork.Identifier(test.EIPs...),
		ChainID:  test.chainID(),
		DebugDir: f.debugDirFor(test.Name),
	})
	if err != nil {
		return nil, err
	}

	if err := checkRejections(res, []figaro.Transaction{test.Tx}); err != nil {
		return nil, fmt.Errorf("%s: %w", test.Name, err)
	}
	if err := Reconcile(res.Alloc, test.Post, test.ExhaustivePost); err != nil {
		return nil, fmt.Errorf("%s: %w", test.Name, err)
	}

	doc := &fixture.StateTest{
		Info:        fixture.Info{FillingTool: f.tool.Version()},
		Env:         env,
		Pre:         test.Pre,
		Transaction: test.Tx,
		Post: map[string][]fixture.PostResult{
			test.Fork.Identifier(test.EIPs...): {{
				Hash:            res.StateRoot,
				Logs:            res.LogsHash,
				TxBytes:         res.Body,
				ExpectException: test.Tx.ExpectedError,
			}},
		},
	}
	return doc, nil
}

// checkRejections matches the tool's rejected-transaction list against
// the declared expectations: every transaction tagged with an expected
// failure must be rejected for a compatible reason, and no untagged
// transaction may be rejected.
func checkRejections(res t8n.Result, txs []figaro.Transaction) error {
	for index, tx := range txs {
		rejected, wasRejected := res.RejectedIndex(index)
		if tx.ExpectedError == "" {
			if wasRejected {
				return fmt.Errorf("transaction %d was rejected: %s", index, rejected.Error)
			}
			continue
		}
		if !wasRejected {
			return fmt.Errorf("transaction %d was expected to be rejected with %q but was included", index, tx.ExpectedError)
		}
		if !strings.Contains(rejected.Error, tx.ExpectedError) {
			return fmt.Errorf("transaction %d was rejected with %q, expected %q", index, rejected.Error, tx.ExpectedError)
		}
	}
	return nil
}

// normalizeEnvironment adds the fields the fork declares mandatory,
// without touching anything the test declared.
func normalizeEnvironment(fork figaro.Fork, env figaro.Environment) figaro.Environment {
	res := env.Clone()
	if res.GasLimit == 0 {
		res.GasLimit = 30_000_000
	}
	if fork.HasPrevRandao() {
		if res.Random == nil {
			random := common.Hash{}
			if res.Difficulty != nil {
				random = common.BytesToHash(res.Difficulty.Bytes())
			}
			res.Random = &random
		}
		res.Difficulty = nil
	} else if res.Difficulty == nil {
		res.Difficulty = uint256.NewInt(0x20000)
	}
	if fork.HasBaseFee() && res.BaseFee == nil {
		res.BaseFee = uint256.NewInt(7)
	}
	if !fork.HasBaseFee() {
		res.BaseFee = nil
	}
	if fork.HasWithdrawals() && res.Withdrawals == nil {
		res.Withdrawals = []*types.Withdrawal{}
	}
	if !fork.HasWithdrawals() {
		res.Withdrawals = nil
	}
	if fork.HasBlobGas() && res.ExcessBlobGas == nil {
		excess := uint64(0)
		res.ExcessBlobGas = &excess
	}
	if !fork.HasBlobGas() {
		res.ExcessBlobGas = nil
	}
	if fork.HasBeaconRoot() && res.BeaconRoot == nil {
		res.BeaconRoot = &common.Hash{}
	}
	if !fork.HasBeaconRoot() {
		res.BeaconRoot = nil
	}
	return res
}
