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
	"encoding/json"
	"fmt"
	"os"

	"github.com/Fantom-foundation/Figaro/go/figaro"
	"github.com/Fantom-foundation/Figaro/go/t8n"
	"github.com/urfave/cli/v2"

	cliUtils "github.com/Fantom-foundation/Figaro/go/driver/cli"
)

var RootsCmd = cli.Command{
	Action:    doRoots,
	Name:      "roots",
	Usage:     "Compute the state root of an allocation file using a transition tool",
	ArgsUsage: "<alloc.json> ...",
	Flags: []cli.Flag{
		cliUtils.ToolFlag,
		cliUtils.VariantFlag,
		&cli.StringFlag{
			Name:  "fork",
			Usage: "fork to run the transition tool with",
			Value: figaro.Prague.String(),
		},
	},
}

func doRoots(context *cli.Context) error {
	if context.Args().Len() == 0 {
		return fmt.Errorf("no allocation files given")
	}

	fork, err := figaro.ForkByName(context.String("fork"))
	if err != nil {
		return err
	}

	tool, err := openTool(context)
	if err != nil {
		return err
	}
	defer tool.Shutdown()

	for _, file := range context.Args().Slice() {
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		var alloc figaro.Alloc
		if err := json.Unmarshal(data, &alloc); err != nil {
			return fmt.Errorf("failed to parse allocation in %s: %w", file, err)
		}
		root, err := t8n.ComputeStateRoot(tool, alloc, fork)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", file, root)
	}
	return nil
}
