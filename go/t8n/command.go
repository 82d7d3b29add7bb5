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
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// execution captures one completed run of an external binary.
type execution struct {
	argv     []string
	stdout   []byte
	stderr   []byte
	exitCode int
}

// runCommand executes the binary once and waits for it to exit. A
// non-zero exit code is reported through execution.exitCode, not as an
// error; errors indicate the process could not be run at all.
func runCommand(path string, args []string, stdin []byte) (execution, error) {
	cmd := exec.Command(path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	res := execution{argv: append([]string{path}, args...)}
	err := cmd.Run()
	res.stdout = stdout.Bytes()
	res.stderr = stderr.Bytes()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return res, fmt.Errorf("failed to run %s: %w", path, err)
		}
		res.exitCode = exitErr.ExitCode()
	}
	return res, nil
}

func (e execution) String() string {
	return strings.Join(e.argv, " ")
}

// debugDumper persists request/response pairs for post-mortem debugging,
// one numbered subdirectory per invocation.
type debugDumper struct {
	seq atomic.Uint64
}

// dump writes the given named files below dir. Dump failures are
// reported but have no bearing on the invocation's result; callers log
// and move on.
func (d *debugDumper) dump(dir string, files map[string][]byte) error {
	sub := filepath.Join(dir, fmt.Sprintf("%04d", d.seq.Add(1)-1))
	if err := os.MkdirAll(sub, 0755); err != nil {
		return err
	}
	for name, data := range files {
		if data == nil {
			continue
		}
		if err := os.WriteFile(filepath.Join(sub, name), data, 0644); err != nil {
			return err
		}
	}
	return nil
}

// dumpExecution persists the full observable behavior of a one-shot
// invocation: argv, stdout, stderr, and the exit code.
func (d *debugDumper) dumpExecution(dir string, run execution, files map[string][]byte) error {
	all := map[string][]byte{
		"argv":      []byte(run.String() + "\n"),
		"stdout":    run.stdout,
		"stderr":    run.stderr,
		"exit_code": []byte(fmt.Sprintf("%d\n", run.exitCode)),
	}
	for name, data := range files {
		all[name] = data
	}
	return d.dump(dir, all)
}
