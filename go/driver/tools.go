// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"github.com/Fantom-foundation/Figaro/go/t8n"
	"github.com/urfave/cli/v2"

	cliUtils "github.com/Fantom-foundation/Figaro/go/driver/cli"
)

// openTool constructs the transition tool selected by the --t8n and
// --variant flags. The caller owns the returned tool and must shut it
// down when done.
func openTool(context *cli.Context) (t8n.Tool, error) {
	path := cliUtils.ToolFlag.Fetch(context)
	if variant := cliUtils.VariantFlag.Fetch(context); variant != "" {
		return t8n.NewToolVariant(t8n.Variant(variant), path)
	}
	return t8n.NewTool(path)
}
