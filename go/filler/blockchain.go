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
	"strings"

	"github.com/Fantom-foundation/Figaro/go/figaro"
	"github.com/Fantom-foundation/Figaro/go/fixture"
	"github.com/Fantom-foundation/Figaro/go/t8n"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// filledBlock is one block after its transition has been evaluated and
// its header assembled.
type filledBlock struct {
	header      *types.Header
	rlp         []byte
	body        []byte
	withdrawals []*types.Withdrawal
	exception   string
}

type filledChain struct {
	genesisHeader *types.Header
	genesisRLP    []byte
	blocks        []filledBlock
	lastBlockHash common.Hash
	post          figaro.Alloc
}

// fillChain evaluates every declared block in order. Each block starts
// from the allocation its predecessor produced; blocks with an expected
// exception leave the chain state untouched.
func (f *Filler) fillChain(test BlockchainTest) (*filledChain, error) {
	fork := test.Fork
	genesisEnv := normalizeEnvironment(fork, test.Genesis)

	genesisRoot, err := t8n.ComputeStateRoot(f.tool, test.Pre, fork)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to compute genesis state root: %w", test.Name, err)
	}
	genesis := genesisHeader(fork, genesisEnv, genesisRoot)
	genesisRLP, err := encodeBlock(fork, genesis, nil, nil)
	if err != nil {
		return nil, err
	}

	chain := &filledChain{
		genesisHeader: genesis,
		genesisRLP:    genesisRLP,
		lastBlockHash: genesis.Hash(),
		post:          test.Pre.Clone(),
	}
	blockHashes := map[uint64]common.Hash{0: genesis.Hash()}
	parent := genesis.Hash()
	number := uint64(0)
	parentTime := genesis.Time

	for _, block := range test.Blocks {
		number++
		env := blockEnvironment(fork, genesisEnv, block, number, parentTime, blockHashes)
		res, err := f.tool.Evaluate(t8n.Request{
			Alloc:    chain.post,
			Txs:      block.Txs,
			Env:      env,
			Fork:     fork.Identifier(test.EIPs...),
			ChainID:  test.chainID(),
			Reward:   fork.BlockReward(),
			DebugDir: f.debugDirFor(test.Name),
		})
		if err != nil {
			return nil, fmt.Errorf("%s: block %d: %w", test.Name, number, err)
		}

		header := buildHeader(fork, env, parent, res)
		if block.HeaderOverride != nil {
			block.HeaderOverride.Apply(header)
		}
		encoded, err := encodeBlock(fork, header, res.Body, block.Withdrawals)
		if err != nil {
			return nil, err
		}
		filled := filledBlock{
			header:      header,
			rlp:         encoded,
			body:        res.Body,
			withdrawals: block.Withdrawals,
			exception:   block.ExpectedException,
		}
		chain.blocks = append(chain.blocks, filled)

		if block.ExpectedException != "" {
			if err := checkBlockRejection(res, block); err != nil {
				return nil, fmt.Errorf("%s: block %d: %w", test.Name, number, err)
			}
			// An invalid block is emitted but never joins the chain:
			// the next block builds on the same parent and state.
			number--
			continue
		}
		if err := checkRejections(res, block.Txs); err != nil {
			return nil, fmt.Errorf("%s: block %d: %w", test.Name, number, err)
		}
		chain.post = res.Alloc
		parent = header.Hash()
		parentTime = header.Time
		blockHashes[number] = parent
		chain.lastBlockHash = parent
	}
	return chain, nil
}

// checkBlockRejection validates a block declared invalid: the tool must
// have rejected every transaction, each for a reason compatible with
// the declared exception.
func checkBlockRejection(res t8n.Result, block Block) error {
	if len(res.Rejected) != len(block.Txs) {
		return fmt.Errorf(
			"expected every transaction to be rejected with %q, got %d rejections out of %d transactions",
			block.ExpectedException, len(res.Rejected), len(block.Txs))
	}
	for index := range block.Txs {
		rejected, wasRejected := res.RejectedIndex(index)
		if !wasRejected {
			return fmt.Errorf("transaction %d was expected to be rejected with %q but was included",
				index, block.ExpectedException)
		}
		if !exceptionCompatible(rejected.Error, block.ExpectedException) {
			return fmt.Errorf("transaction %d was rejected with %q, expected %q",
				index, rejected.Error, block.ExpectedException)
		}
	}
	return nil
}

// exceptionCompatible matches a tool-reported reason against a declared
// exception. Reasons are free-form text; containment in either
// direction counts as a match.
func exceptionCompatible(reported, expected string) bool {
	if reported == "" || expected == "" {
		return false
	}
	return stringsContainsFold(reported, expected) || stringsContainsFold(expected, reported)
}

func stringsContainsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// blockEnvironment derives the environment of one block from the
// genesis template and the block's declared overrides.
func blockEnvironment(fork figaro.Fork, genesis figaro.Environment, block Block, number, parentTime uint64, blockHashes map[uint64]common.Hash) figaro.Environment {
	env := genesis.Clone()
	env.Number = number
	env.Timestamp = parentTime + 12
	if block.Timestamp != 0 {
		env.Timestamp = block.Timestamp
	}
	if block.GasLimit != 0 {
		env.GasLimit = block.GasLimit
	}
	if block.Coinbase != nil {
		env.Coinbase = *block.Coinbase
	}
	env.Withdrawals = nil
	if fork.HasWithdrawals() {
		env.Withdrawals = []*types.Withdrawal{}
		env.Withdrawals = append(env.Withdrawals, block.Withdrawals...)
	}
	env.BlockHashes = make(map[uint64]common.Hash, len(blockHashes))
	for n, hash := range blockHashes {
		env.BlockHashes[n] = hash
	}
	return env
}

// FillBlockchainTest fills a multi-block test into the RLP-based
// blockchain fixture format.
func (f *Filler) FillBlockchainTest(test BlockchainTest) (*fixture.BlockchainTest, error) {
	if err := f.checkFork(test.Fork); err != nil {
		return nil, err
	}
	chain, err := f.fillChain(test)
	if err != nil {
		return nil, err
	}
	if err := Reconcile(chain.post, test.Post, test.ExhaustivePost); err != nil {
		return nil, fmt.Errorf("%s: %w", test.Name, err)
	}

	doc := &fixture.BlockchainTest{
		Info:          fixture.Info{FillingTool: f.tool.Version()},
		Network:       test.Fork.Identifier(test.EIPs...),
		SealEngine:    "NoProof",
		GenesisHeader: chain.genesisHeader,
		GenesisRLP:    chain.genesisRLP,
		LastBlockHash: chain.lastBlockHash,
		Pre:           test.Pre,
		PostState:     chain.post,
	}
	for _, block := range chain.blocks {
		fixtureBlock := fixture.Block{
			RLP:             block.rlp,
			Header:          block.header,
			ExpectException: block.exception,
		}
		if block.exception != "" {
			// Invalid blocks are delivered as opaque RLP only.
			fixtureBlock.Header = nil
		}
		doc.Blocks = append(doc.Blocks, fixtureBlock)
	}
	return doc, nil
}

// FillBlockchainEngineTest fills the same chain as FillBlockchainTest,
// delivered as engine API payloads.
func (f *Filler) FillBlockchainEngineTest(test BlockchainTest) (*fixture.BlockchainEngineTest, error) {
	if err := f.checkFork(test.Fork); err != nil {
		return nil, err
	}
	chain, err := f.fillChain(test)
	if err != nil {
		return nil, err
	}
	if err := Reconcile(chain.post, test.Post, test.ExhaustivePost); err != nil {
		return nil, fmt.Errorf("%s: %w", test.Name, err)
	}

	doc := &fixture.BlockchainEngineTest{
		Info:          fixture.Info{FillingTool: f.tool.Version()},
		Network:       test.Fork.Identifier(test.EIPs...),
		GenesisHeader: chain.genesisHeader,
		LastBlockHash: chain.lastBlockHash,
		Pre:           test.Pre,
		PostState:     chain.post,
	}
	for _, block := range chain.blocks {
		raw, err := decodeBodyTransactions(block.body)
		if err != nil {
			return nil, fmt.Errorf("%s: malformed transaction body: %w", test.Name, err)
		}
		txs := make([]hexutil.Bytes, len(raw))
		for i, tx := range raw {
			txs[i] = hexutil.Bytes(tx)
		}
		payload := fixture.PayloadFromHeader(block.header, txs, block.withdrawals)
		payload.ValidationError = block.exception
		doc.Payloads = append(doc.Payloads, payload)
	}
	return doc, nil
}
