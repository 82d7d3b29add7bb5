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
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeScript installs an executable shell script to stand in for an
// external tool binary.
func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+content), 0755); err != nil {
		t.Fatalf("failed to write tool script: %v", err)
	}
	return path
}

func TestDetectVariant_RecognizesKnownBanners(t *testing.T) {
	tests := map[string]Variant{
		"besu/v24.1.0":               VariantServer,
		"Besu evmtool":               VariantServer,
		"nimbus-eth1 t8n 0.1.0":      VariantStream,
		"evmone-t8n 0.12.0":          VariantStreamFiles,
		"evm version 1.14.8-stable":  VariantGethStyle,
		"something entirely unknown": VariantGethStyle,
	}
	for banner, want := range tests {
		if got := detectVariant(banner); got != want {
			t.Errorf("Unexpected variant for %q, wanted %v, got %v", banner, want, got)
		}
	}
}

func TestNewTool_ConstructsVariantFromVersionBanner(t *testing.T) {
	path := writeScript(t, `echo "besu/v24.1.0"`)
	tool, err := NewTool(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer tool.Shutdown()
	if _, ok := tool.(*serverTool); !ok {
		t.Errorf("Unexpected tool type %T for a besu banner", tool)
	}
	if tool.Version() != "besu/v24.1.0" {
		t.Errorf("Unexpected version: %v", tool.Version())
	}
}

func TestNewTool_MissingBinaryIsToolNotFound(t *testing.T) {
	_, err := NewTool(filepath.Join(t.TempDir(), "does-not-exist"))
	var notFound *ToolNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Unexpected error type, wanted ToolNotFoundError, got %v", err)
	}
}

func TestNewToolVariant_OverridesDetection(t *testing.T) {
	path := writeScript(t, `echo "besu/v24.1.0"`)
	tool, err := NewToolVariant(VariantGethStyle, path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer tool.Shutdown()
	if _, ok := tool.(*gethStyleTool); !ok {
		t.Errorf("Unexpected tool type %T for an explicit geth-style request", tool)
	}
}

func TestNewToolVariant_RejectsUnknownVariant(t *testing.T) {
	path := writeScript(t, `echo "evm version 1.0.0"`)
	if _, err := NewToolVariant(Variant("bogus"), path); err == nil {
		t.Errorf("Expected an error for an unknown variant")
	}
}

func TestDetectVariant_ResolvesBinary(t *testing.T) {
	path := writeScript(t, `echo "nimbus-eth1 t8n 0.1.0"`)
	variant, version, err := DetectVariant(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if variant != VariantStream {
		t.Errorf("Unexpected variant, wanted %v, got %v", VariantStream, variant)
	}
	if version != "nimbus-eth1 t8n 0.1.0" {
		t.Errorf("Unexpected version: %v", version)
	}
}

func TestResolveBinary_UsesFirstOutputLine(t *testing.T) {
	path := writeScript(t, "echo \"line one\"\necho \"line two\"")
	_, version, err := resolveBinary(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if version != "line one" {
		t.Errorf("Unexpected version, wanted the first line, got %q", version)
	}
}
