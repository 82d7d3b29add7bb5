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
	"strings"

	"github.com/Fantom-foundation/Figaro/go/figaro"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Fork support is probed by scanning the binary's help text for the fork
// name. This is a known approximation: the format of a tool's help text
// is unspecified upstream, and a false negative silently skips coverage.
// Tools without a usable help text report all forks as supported.

// probeCache retains the output of version/help invocations, keyed by
// the full command line. Probing is cheap but happens once per test at
// worst, so a small bound suffices.
var probeCache, _ = lru.New[string, string](64)

// probeOutput runs the binary with the given arguments and returns its
// combined output, caching the result. Probe commands are expected to
// succeed regardless of exit code; some tools report usage on a
// non-zero exit.
func probeOutput(path string, args ...string) (string, error) {
	key := path + "\x00" + strings.Join(args, "\x00")
	if cached, found := probeCache.Get(key); found {
		return cached, nil
	}
	run, err := runCommand(path, args, nil)
	if err != nil {
		return "", err
	}
	output := string(run.stdout) + string(run.stderr)
	probeCache.Add(key, output)
	return output, nil
}

// helpSupportsFork tests fork-name membership in free-form help text.
func helpSupportsFork(help string, fork figaro.Fork) bool {
	return strings.Contains(help, fork.String())
}
