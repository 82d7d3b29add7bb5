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
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/Figaro/go/figaro"
)

// streamTool drives a one-shot binary that exchanges documents over its
// standard streams. Depending on the binary, input is supplied either as
// a single JSON envelope on stdin or as discrete file arguments; the
// result always arrives on stdout.
type streamTool struct {
	path     string
	version  string
	useStdin bool
	dumper   debugDumper
}

func newStreamTool(path, version string, useStdin bool) *streamTool {
	return &streamTool{path: path, version: version, useStdin: useStdin}
}

func (t *streamTool) Evaluate(request Request) (Result, error) {
	if !t.useStdin {
		return runFileTransition(t.path, t.version, request, &t.dumper)
	}

	payload, err := encodeEnvelope(request)
	if err != nil {
		return Result{}, err
	}
	reward := request.Reward
	if reward == nil {
		reward = big.NewInt(0)
	}
	args := []string{
		"t8n",
		"--input.alloc=stdin",
		"--input.env=stdin",
		"--input.txs=stdin",
		"--output.alloc=stdout",
		"--output.result=stdout",
		"--output.body=stdout",
		"--state.fork=" + request.Fork,
		fmt.Sprintf("--state.chainid=%d", request.ChainID),
		fmt.Sprintf("--state.reward=%d", reward),
	}
	run, err := runCommand(t.path, args, payload)
	if err != nil {
		return Result{}, &ProtocolError{Tool: t.version, Message: "failed to execute", Err: err}
	}
	if request.DebugDir != "" {
		// Dump failures do not affect the transition result.
		_ = t.dumper.dumpExecution(request.DebugDir, run, map[string][]byte{
			"request.json": payload,
		})
	}
	if run.exitCode != 0 {
		return Result{}, &ProtocolError{
			Tool:    t.version,
			Message: fmt.Sprintf("exited with code %d: %s", run.exitCode, string(run.stderr)),
		}
	}
	return parseEnvelope(t.version, run.stdout)
}

func (t *streamTool) Version() string {
	return t.version
}

// IsForkSupported trusts the caller; stream tools provide no reliable
// way to probe their fork set.
func (t *streamTool) IsForkSupported(fork figaro.Fork) (bool, error) {
	return true, nil
}

func (t *streamTool) Shutdown() error {
	return nil // one-shot tools hold no process state
}
