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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/Fantom-foundation/Figaro/go/figaro"
)

// serverStartupFailure is the banner a server binary prints when it
// cannot come up; seeing it fails initialization before any request is
// attempted.
const serverStartupFailure = "Failed to start transition server"

// serverRequestTimeout bounds every round-trip to the server. A timeout
// is a fatal invocation error, never a retry.
const serverRequestTimeout = 20 * time.Second

var listeningPattern = regexp.MustCompile(`listening on port (\d+)`)

// serverTool drives a long-lived transition server: the binary is
// spawned once, reports its port on stdout, and serves every subsequent
// transition as one HTTP POST. The process is the only long-lived
// resource of a worker and is torn down exactly once via Shutdown.
type serverTool struct {
	path    string
	version string
	proc    *exec.Cmd
	url     string
	client  http.Client
	dumper  debugDumper
}

func newServerTool(path, version string) *serverTool {
	return &serverTool{
		path:    path,
		version: version,
		client:  http.Client{Timeout: serverRequestTimeout},
	}
}

// start spawns the server and scans its stdout line by line until it
// reports the bound port or a startup failure.
func (t *serverTool) start() error {
	cmd := exec.Command(t.path, "t8n-server")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return &ProtocolError{Tool: t.version, Message: "failed to start server", Err: err}
	}
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, serverStartupFailure) {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return &ProtocolError{Tool: t.version, Message: fmt.Sprintf("server startup failed: %s", line)}
		}
		if match := listeningPattern.FindStringSubmatch(line); match != nil {
			t.proc = cmd
			t.url = fmt.Sprintf("http://localhost:%s/", match[1])
			// Keep draining stdout so the server never blocks on a full pipe.
			go func() {
				_, _ = io.Copy(io.Discard, stdout)
			}()
			return nil
		}
	}
	_ = cmd.Process.Kill()
	_ = cmd.Wait()
	return &ProtocolError{Tool: t.version, Message: "server exited before reporting a port"}
}

func (t *serverTool) Evaluate(request Request) (Result, error) {
	if t.proc == nil {
		if err := t.start(); err != nil {
			return Result{}, err
		}
	}
	payload, err := encodeEnvelope(request)
	if err != nil {
		return Result{}, err
	}
	resp, err := t.client.Post(t.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return Result{}, &ProtocolError{Tool: t.version, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &ProtocolError{Tool: t.version, Message: "failed to read response", Err: err}
	}
	if request.DebugDir != "" {
		// Dump failures do not affect the transition result.
		_ = t.dumper.dump(request.DebugDir, map[string][]byte{
			"request.json":  payload,
			"response.json": body,
		})
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, &ProtocolError{
			Tool:    t.version,
			Message: fmt.Sprintf("server answered %s: %s", resp.Status, string(body)),
		}
	}
	return parseEnvelope(t.version, body)
}

func (t *serverTool) Version() string {
	return t.version
}

// IsForkSupported reports support for everything from Istanbul on. The
// server protocol predates the older forks and provides no way to probe
// for them, so they are excluded outright.
func (t *serverTool) IsForkSupported(fork figaro.Fork) (bool, error) {
	return fork >= figaro.Istanbul, nil
}

func (t *serverTool) Shutdown() error {
	if t.proc == nil {
		return nil
	}
	proc := t.proc
	t.proc = nil
	if err := proc.Process.Kill(); err != nil {
		return err
	}
	_ = proc.Wait()
	return nil
}
