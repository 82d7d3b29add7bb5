// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cliUtils

import (
	"fmt"
	"os"
	"regexp"
	"runtime/pprof"

	"github.com/urfave/cli/v2"
)

type filterFlagType struct {
	cli.StringFlag
}

var FilterFlag = &filterFlagType{
	cli.StringFlag{
		Name:    "filter",
		Aliases: []string{"f"},
		Usage:   "fill only tests whose name matches the given regex",
		Value:   "",
	},
}

func (f *filterFlagType) Fetch(context *cli.Context) (*regexp.Regexp, error) {
	return regexp.Compile(context.String(f.Name))
}

type toolFlagType struct {
	cli.StringFlag
}

var ToolFlag = &toolFlagType{
	cli.StringFlag{
		Name:      "t8n",
		Usage:     "transition tool binary to fill with",
		Required:  true,
		TakesFile: true,
	},
}

func (f *toolFlagType) Fetch(context *cli.Context) string {
	return context.String(f.Name)
}

type variantFlagType struct {
	cli.StringFlag
}

var VariantFlag = &variantFlagType{
	cli.StringFlag{
		Name:  "variant",
		Usage: "override tool variant detection (geth-style, server, stream, stream-files)",
	},
}

func (f *variantFlagType) Fetch(context *cli.Context) string {
	return context.String(f.Name)
}

var commonFlags = []cli.Flag{
	cpuProfileFlag,
}

var cpuProfileFlag = &cli.StringFlag{
	Name:  "cpuprofile",
	Usage: "store CPU profile in the provided filename",
}

func AddCommonFlags(command cli.Command) cli.Command {
	command.Flags = append(command.Flags, commonFlags...)

	action := command.Action
	command.Action = func(ctx *cli.Context) (err error) {

		if cpuprofileFilename := ctx.String(cpuProfileFlag.Name); cpuprofileFilename != "" {
			f, err := os.Create(cpuprofileFilename)
			if err != nil {
				return fmt.Errorf("could not create CPU profile: %w", err)
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				return fmt.Errorf("could not start CPU profile: %w", err)
			}
			defer pprof.StopCPUProfile()
		}

		return action(ctx)
	}
	return command
}
