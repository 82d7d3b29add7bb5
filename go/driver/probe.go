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
	"fmt"

	"github.com/Fantom-foundation/Figaro/go/figaro"
	"github.com/Fantom-foundation/Figaro/go/t8n"
	"github.com/urfave/cli/v2"

	cliUtils "github.com/Fantom-foundation/Figaro/go/driver/cli"
)

var ProbeCmd = cli.Command{
	Action:    doProbe,
	Name:      "probe",
	Usage:     "Report the detected variant and fork support of a transition tool",
	ArgsUsage: "<binary>",
	Flags: []cli.Flag{
		cliUtils.VariantFlag,
	},
}

func doProbe(context *cli.Context) error {
	if context.Args().Len() < 1 {
		return fmt.Errorf("no transition tool binary given")
	}
	path := context.Args().Get(0)

	variant, version, err := t8n.DetectVariant(path)
	if err != nil {
		return err
	}
	if override := cliUtils.VariantFlag.Fetch(context); override != "" {
		variant = t8n.Variant(override)
	}
	fmt.Printf("version: %s\n", version)
	fmt.Printf("variant: %s\n", variant)

	tool, err := t8n.NewToolVariant(variant, path)
	if err != nil {
		return err
	}
	defer tool.Shutdown()

	fmt.Printf("forks:\n")
	for _, fork := range figaro.AllForks() {
		supported, err := tool.IsForkSupported(fork)
		if err != nil {
			return err
		}
		state := "supported"
		if !supported {
			state = "not supported"
		}
		fmt.Printf("  %-20s %s\n", fork, state)
	}
	return nil
}
