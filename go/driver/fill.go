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
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Fantom-foundation/Figaro/go/filler"
	"github.com/Fantom-foundation/Figaro/go/fixture"
	"github.com/Fantom-foundation/Figaro/go/t8n"
	"github.com/dsnet/golib/unitconv"
	"github.com/urfave/cli/v2"

	cliUtils "github.com/Fantom-foundation/Figaro/go/driver/cli"
)

var FillCmd = cliUtils.AddCommonFlags(cli.Command{
	Action:    doFill,
	Name:      "fill",
	Usage:     "Fill test definitions into fixtures using a transition tool",
	ArgsUsage: "<test file or directory> ...",
	Flags: []cli.Flag{
		cliUtils.ToolFlag,
		cliUtils.VariantFlag,
		cliUtils.FilterFlag,
		&cli.StringFlag{
			Name:      "output",
			Aliases:   []string{"o"},
			Usage:     "directory to write fixture files into",
			Value:     "fixtures",
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:  "group",
			Usage: "group fixtures per \"source\" file or per \"test\"",
			Value: "source",
		},
		&cli.IntFlag{
			Name:  "jobs",
			Usage: "number of filling workers, each owning its own tool process",
			Value: runtime.NumCPU(),
		},
		&cli.IntFlag{
			Name:  "max-errors",
			Usage: "aborts filling after the given number of issues",
			Value: -1,
		},
		&cli.StringFlag{
			Name:      "debug-dump",
			Usage:     "directory to dump every tool interaction into",
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:      "verify-with",
			Usage:     "client binary used to re-verify written fixtures",
			TakesFile: true,
		},
	},
})

func doFill(context *cli.Context) error {
	if context.Args().Len() == 0 {
		return fmt.Errorf("no test files or directories given")
	}

	filter, err := cliUtils.FilterFlag.Fetch(context)
	if err != nil {
		return err
	}

	maxErrors := context.Int("max-errors")
	if maxErrors <= 0 {
		maxErrors = math.MaxInt
	}

	grouping, err := parseGrouping(context.String("group"))
	if err != nil {
		return err
	}

	jobCount := context.Int("jobs")
	if jobCount <= 0 {
		jobCount = runtime.NumCPU()
	}

	tests, err := filler.LoadTests(context.Args().Slice())
	if err != nil {
		return err
	}

	// Every worker owns its own tool process; within a worker all fills
	// run strictly one after another.
	toolVersion := ""
	fillers := make([]*filler.Filler, 0, jobCount)
	for i := 0; i < jobCount; i++ {
		tool, err := openTool(context)
		if err != nil {
			return err
		}
		defer tool.Shutdown()
		toolVersion = tool.Version()
		fill := filler.New(tool)
		fill.DebugDir = context.String("debug-dump")
		fillers = append(fillers, fill)
	}

	collector := fixture.NewCollector(grouping)
	if client := context.String("verify-with"); client != "" {
		verifier, err := fixture.NewVerifier(client)
		if err != nil {
			return err
		}
		collector.SetVerifier(verifier)
	}

	fmt.Printf("Filling %d tests using %s ...\n", len(tests), toolVersion)

	// Run a progress printer in the background.
	counter := atomic.Uint64{}
	stopProgressPrinter := make(chan struct{})
	var progressGroup sync.WaitGroup
	progressGroup.Add(1)
	go func() {
		defer progressGroup.Done()
		start := time.Now()
		last := uint64(0)
		for {
			select {
			case <-stopProgressPrinter:
				return
			case <-time.After(5 * time.Second):
				relativeTime := time.Since(start)
				current := counter.Load()
				diff := current - last
				last = current
				rate := float64(diff) / 5
				fmt.Printf(
					"[t=%4d:%02d] - Filling ~%s tests per second, total %d\n",
					int(relativeTime.Seconds())/60, int(relativeTime.Seconds())%60,
					unitconv.FormatPrefix(rate, unitconv.SI, 0), current,
				)
			}
		}
	}()

	var issuesMutex sync.Mutex
	var issues []error
	issueCount := atomic.Int32{}
	skipped := atomic.Int32{}

	workItems := make(chan filler.Test)
	var workers sync.WaitGroup
	for _, fill := range fillers {
		workers.Add(1)
		go func(fill *filler.Filler) {
			defer workers.Done()
			for test := range workItems {
				if int(issueCount.Load()) >= maxErrors {
					continue
				}
				doc, err := test.Fill(fill)
				if err != nil {
					var unsupported *t8n.UnsupportedForkError
					if errors.As(err, &unsupported) {
						skipped.Add(1)
						continue
					}
					issue := fmt.Errorf("%s/%s: %w", test.Source, test.Name, err)
					fmt.Printf("Error: %v\n", issue)
					issuesMutex.Lock()
					issues = append(issues, issue)
					issuesMutex.Unlock()
					issueCount.Add(1)
					continue
				}
				issuesMutex.Lock()
				collector.Add(test.Source, test.Name, doc)
				issuesMutex.Unlock()
				counter.Add(1)
			}
		}(fill)
	}

	for _, test := range tests {
		if !filter.MatchString(test.Name) {
			continue
		}
		workItems <- test
	}
	close(workItems)
	workers.Wait()

	close(stopProgressPrinter)
	progressGroup.Wait()

	files, writeErr := collector.Write(context.String("output"))
	for _, file := range files {
		fmt.Printf("Wrote %s\n", file)
	}
	if writeErr != nil {
		issues = append(issues, writeErr)
	}

	// Summarize the result.
	if skipped.Load() > 0 {
		fmt.Printf("Number of tests skipped for unsupported forks: %d\n", skipped.Load())
	}
	if len(issues) == 0 {
		fmt.Printf("All %d tests filled successfully!\n", counter.Load())
		return nil
	}
	for _, issue := range issues {
		fmt.Printf("----------------------------\n%v\n", issue)
	}
	return fmt.Errorf("failed to fill %d test cases", len(issues))
}

func parseGrouping(name string) (fixture.Grouping, error) {
	switch name {
	case "source":
		return fixture.GroupBySource, nil
	case "test":
		return fixture.GroupByTest, nil
	default:
		return 0, fmt.Errorf("unknown grouping %q, use \"source\" or \"test\"", name)
	}
}
