// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package fixture

import (
	"fmt"
	"os/exec"
)

// Verifier cross-checks written fixture files with an independent
// implementation's own test runner. This is not a retry of the fill:
// the verifying binary is expected to differ from the tool that filled
// the fixture.
type Verifier struct {
	path string
}

// NewVerifier resolves the verifying binary; a binary that cannot be
// found fails the run before any fixture is checked.
func NewVerifier(path string) (*Verifier, error) {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("verification tool not found at %q: %w", path, err)
	}
	return &Verifier{path: resolved}, nil
}

// VerificationError reports a written fixture file the independent
// runner rejected.
type VerificationError struct {
	File   string
	Output string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("fixture verification failed for %s: %s", e.File, e.Output)
}

// Verify runs the format's subcommand against one written file. Engine
// fixtures have no standalone runner and pass unchecked.
func (v *Verifier) Verify(file string, format Format) error {
	var subcommand string
	switch format {
	case FormatStateTest:
		subcommand = "statetest"
	case FormatBlockchainTest:
		subcommand = "blocktest"
	default:
		return nil
	}
	output, err := exec.Command(v.path, subcommand, file).CombinedOutput()
	if err != nil {
		return &VerificationError{File: file, Output: string(output)}
	}
	return nil
}
