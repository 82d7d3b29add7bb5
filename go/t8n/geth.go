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
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/Fantom-foundation/Figaro/go/figaro"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// gethStyleTool drives a one-shot command-line tool following the `evm
// t8n` convention: inputs and outputs are JSON files named by flags, one
// process execution per transition.
type gethStyleTool struct {
	path    string
	version string
	dumper  debugDumper
}

func newGethStyleTool(path, version string) *gethStyleTool {
	return &gethStyleTool{path: path, version: version}
}

func (t *gethStyleTool) Evaluate(request Request) (Result, error) {
	return runFileTransition(t.path, t.version, request, &t.dumper)
}

func (t *gethStyleTool) Version() string {
	return t.version
}

func (t *gethStyleTool) IsForkSupported(fork figaro.Fork) (bool, error) {
	help, err := probeOutput(t.path, "t8n", "--help")
	if err != nil {
		return false, err
	}
	return helpSupportsFork(help, fork), nil
}

func (t *gethStyleTool) Shutdown() error {
	return nil // one-shot tools hold no process state
}

// runFileTransition performs one transition through temporary input and
// output files. The temporary directory is removed even when the output
// cannot be parsed.
func runFileTransition(path, version string, request Request, dumper *debugDumper) (Result, error) {
	files, err := encodeRequest(request)
	if err != nil {
		return Result{}, err
	}
	dir, err := os.MkdirTemp("", "figaro-t8n-*")
	if err != nil {
		return Result{}, err
	}
	defer os.RemoveAll(dir)

	inputs := map[string][]byte{
		"alloc.json": files.alloc,
		"env.json":   files.env,
		"txs.json":   files.txs,
	}
	for name, data := range inputs {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return Result{}, err
		}
	}

	reward := request.Reward
	if reward == nil {
		reward = big.NewInt(0)
	}
	args := []string{
		"t8n",
		"--input.alloc=" + filepath.Join(dir, "alloc.json"),
		"--input.env=" + filepath.Join(dir, "env.json"),
		"--input.txs=" + filepath.Join(dir, "txs.json"),
		"--output.alloc=" + filepath.Join(dir, "out_alloc.json"),
		"--output.result=" + filepath.Join(dir, "out_result.json"),
		"--output.body=" + filepath.Join(dir, "out_body.json"),
		"--state.fork=" + request.Fork,
		fmt.Sprintf("--state.chainid=%d", request.ChainID),
		fmt.Sprintf("--state.reward=%d", reward),
	}

	run, err := runCommand(path, args, nil)
	if err != nil {
		return Result{}, &ProtocolError{Tool: version, Message: "failed to execute", Err: err}
	}

	outAlloc, _ := os.ReadFile(filepath.Join(dir, "out_alloc.json"))
	outResult, _ := os.ReadFile(filepath.Join(dir, "out_result.json"))
	outBody, _ := os.ReadFile(filepath.Join(dir, "out_body.json"))

	if request.DebugDir != "" {
		// Dump failures do not affect the transition result.
		_ = dumper.dumpExecution(request.DebugDir, run, map[string][]byte{
			"input_alloc.json":  files.alloc,
			"input_env.json":    files.env,
			"input_txs.json":    files.txs,
			"output_alloc.json": outAlloc,
			"output_result.json": outResult,
			"output_body.json":  outBody,
		})
	}

	if run.exitCode != 0 {
		return Result{}, &ProtocolError{
			Tool:    version,
			Message: fmt.Sprintf("exited with code %d: %s", run.exitCode, string(run.stderr)),
		}
	}

	res, err := parseResult(version, outResult)
	if err != nil {
		return Result{}, err
	}
	if res.Alloc, err = parseAlloc(version, outAlloc); err != nil {
		return Result{}, err
	}
	if len(outBody) > 0 {
		var body hexutil.Bytes
		if err := json.Unmarshal(outBody, &body); err != nil {
			return Result{}, &ProtocolError{Tool: version, Message: "malformed body document", Err: err}
		}
		res.Body = body
	}
	return res, nil
}
