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

	"github.com/Fantom-foundation/Figaro/go/figaro"
)

// ToolNotFoundError reports that the configured binary could not be
// resolved. It is raised at configuration time, before any test runs.
type ToolNotFoundError struct {
	Path string
	Err  error
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("transition tool not found at %q: %v", e.Path, e.Err)
}

func (e *ToolNotFoundError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a violation of the tool's input/output contract:
// a non-zero exit, unreadable output, or a missing required field. It
// aborts the transition that triggered it; the caller must not retry.
type ProtocolError struct {
	Tool    string
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Tool, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Tool, e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// UnsupportedForkError reports that the configured tool cannot process
// the requested fork. Callers are expected to skip the affected test
// rather than fail it.
type UnsupportedForkError struct {
	Tool string
	Fork figaro.Fork
}

func (e *UnsupportedForkError) Error() string {
	return fmt.Sprintf("fork %s is not supported by %s", e.Fork, e.Tool)
}
