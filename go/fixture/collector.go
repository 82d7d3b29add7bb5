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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"
)

// Grouping selects how collected documents are distributed over output
// files.
type Grouping int

const (
	// GroupBySource writes one file per test source, holding every
	// fixture that source produced.
	GroupBySource Grouping = iota
	// GroupByTest writes one file per individual fixture.
	GroupByTest
)

var formatDirs = map[Format]string{
	FormatStateTest:            "state_tests",
	FormatBlockchainTest:       "blockchain_tests",
	FormatBlockchainEngineTest: "blockchain_tests_engine",
}

type entry struct {
	source string
	name   string
	doc    Document
}

// Collector batches fixture documents produced across many tests and
// writes them out once at session end. Adding is cheap; all I/O happens
// in Write.
type Collector struct {
	grouping Grouping
	verifier *Verifier
	entries  []entry
}

func NewCollector(grouping Grouping) *Collector {
	return &Collector{grouping: grouping}
}

// SetVerifier enables the independent re-verification pass over every
// written file.
func (c *Collector) SetVerifier(verifier *Verifier) {
	c.verifier = verifier
}

// Add records a filled fixture under its source (typically the
// definition file it came from) and its test name.
func (c *Collector) Add(source, name string, doc Document) {
	c.entries = append(c.entries, entry{source: source, name: name, doc: doc})
}

// Write seals and serializes every collected document into files below
// dir, one subdirectory per format. If a verifier is configured, each
// written file is re-checked by the independent binary after all files
// have been written; verification failures are reported together and do
// not roll back written files.
func (c *Collector) Write(dir string) ([]string, error) {
	groups := map[string]map[string]Document{}
	formats := map[string]Format{}
	for _, e := range c.entries {
		stem := sanitizeName(e.source)
		if c.grouping == GroupByTest {
			stem = sanitizeName(e.source + "_" + e.name)
		}
		path := filepath.Join(dir, formatDirs[e.doc.Format()], stem+".json")
		if existing, found := formats[path]; found && existing != e.doc.Format() {
			return nil, fmt.Errorf("fixture file %s mixes formats %s and %s", path, existing, e.doc.Format())
		}
		formats[path] = e.doc.Format()
		if groups[path] == nil {
			groups[path] = map[string]Document{}
		}
		if _, taken := groups[path][e.name]; taken {
			return nil, fmt.Errorf("duplicate fixture name %q in %s", e.name, path)
		}
		groups[path][e.name] = e.doc
	}

	paths := make([]string, 0, len(groups))
	for path := range groups {
		paths = append(paths, path)
	}
	slices.Sort(paths)

	for _, path := range paths {
		for _, doc := range groups[path] {
			if err := Seal(doc); err != nil {
				return nil, err
			}
		}
		raw, err := json.MarshalIndent(groups[path], "", "  ")
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, raw, 0644); err != nil {
			return nil, err
		}
	}

	if c.verifier != nil {
		var failures []error
		for _, path := range paths {
			if err := c.verifier.Verify(path, formats[path]); err != nil {
				failures = append(failures, err)
			}
		}
		if len(failures) > 0 {
			return paths, errors.Join(failures...)
		}
	}
	return paths, nil
}

func sanitizeName(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_", ":", "_")
	return replacer.Replace(name)
}
