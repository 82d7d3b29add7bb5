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
	"os/exec"
	"strings"
)

// Variant names a process/IPC shape a transition tool can take.
type Variant string

const (
	// VariantGethStyle is a one-shot command-line tool exchanging JSON
	// files named by flags. This is the default shape.
	VariantGethStyle Variant = "geth-style"
	// VariantServer is a resident HTTP server answering transition
	// requests until shut down.
	VariantServer Variant = "server"
	// VariantStream is a one-shot tool fed a single JSON envelope on
	// stdin and answering on stdout.
	VariantStream Variant = "stream"
	// VariantStreamFiles is a stream tool that insists on discrete file
	// arguments instead of stdin.
	VariantStreamFiles Variant = "stream-files"
)

// detector couples a recognition predicate over a binary's version
// banner with the constructor of the matching variant. The table is
// fixed at compile time; entries are checked in order and the final
// geth-style entry accepts anything.
type detector struct {
	variant Variant
	matches func(version string) bool
	build   func(path, version string) Tool
}

func versionContains(needles ...string) func(string) bool {
	return func(version string) bool {
		lower := strings.ToLower(version)
		for _, needle := range needles {
			if strings.Contains(lower, needle) {
				return true
			}
		}
		return false
	}
}

var detectors = []detector{
	{
		variant: VariantServer,
		matches: versionContains("besu"),
		build:   func(path, version string) Tool { return newServerTool(path, version) },
	},
	{
		variant: VariantStream,
		matches: versionContains("nimbus"),
		build:   func(path, version string) Tool { return newStreamTool(path, version, true) },
	},
	{
		variant: VariantStreamFiles,
		matches: versionContains("evmone"),
		build:   func(path, version string) Tool { return newStreamTool(path, version, false) },
	},
	{
		variant: VariantGethStyle,
		matches: func(string) bool { return true },
		build:   func(path, version string) Tool { return newGethStyleTool(path, version) },
	},
}

// NewTool resolves the binary, probes its version banner once, and
// constructs the variant recognized for it.
func NewTool(path string) (Tool, error) {
	resolved, version, err := resolveBinary(path)
	if err != nil {
		return nil, err
	}
	for _, d := range detectors {
		if d.matches(version) {
			return d.build(resolved, version), nil
		}
	}
	// Unreachable: the table ends in a catch-all.
	return nil, fmt.Errorf("no tool variant matches %q", version)
}

// NewToolVariant bypasses detection and constructs the named variant.
func NewToolVariant(variant Variant, path string) (Tool, error) {
	resolved, version, err := resolveBinary(path)
	if err != nil {
		return nil, err
	}
	switch variant {
	case VariantGethStyle:
		return newGethStyleTool(resolved, version), nil
	case VariantServer:
		return newServerTool(resolved, version), nil
	case VariantStream:
		return newStreamTool(resolved, version, true), nil
	case VariantStreamFiles:
		return newStreamTool(resolved, version, false), nil
	default:
		return nil, fmt.Errorf("unknown tool variant %q", variant)
	}
}

func resolveBinary(path string) (resolved, version string, err error) {
	resolved, err = exec.LookPath(path)
	if err != nil {
		return "", "", &ToolNotFoundError{Path: path, Err: err}
	}
	output, err := probeOutput(resolved, "--version")
	if err != nil {
		return "", "", &ToolNotFoundError{Path: path, Err: err}
	}
	version = strings.TrimSpace(output)
	if line, _, found := strings.Cut(version, "\n"); found {
		version = line
	}
	if version == "" {
		version = resolved
	}
	return resolved, version, nil
}

// DetectVariant resolves the binary and reports the variant the
// detection table selects for it, along with its version banner.
func DetectVariant(path string) (Variant, string, error) {
	_, version, err := resolveBinary(path)
	if err != nil {
		return "", "", err
	}
	return detectVariant(version), version, nil
}

// detectVariant reports which variant the table selects for a version
// banner, without constructing a tool.
func detectVariant(version string) Variant {
	for _, d := range detectors {
		if d.matches(version) {
			return d.variant
		}
	}
	return VariantGethStyle
}
