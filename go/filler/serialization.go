// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package filler

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Fantom-foundation/Figaro/go/fixture"
	"golang.org/x/exp/slices"
)

// Definition is one declarative test as found in a definition file:
// exactly one of the payloads is set. Engine selects the engine-API
// fixture format for blockchain tests.
type Definition struct {
	StateTest      *StateTest      `json:"stateTest,omitempty"`
	BlockchainTest *BlockchainTest `json:"blockchainTest,omitempty"`
	Engine         bool            `json:"engine,omitempty"`
}

// Test is a named definition together with the source file it came
// from; the source decides which output file its fixture lands in.
type Test struct {
	Source string
	Name   string
	Definition
}

// Fill produces the fixture document the definition asks for.
func (t Test) Fill(f *Filler) (fixture.Document, error) {
	switch {
	case t.StateTest != nil:
		return f.FillStateTest(*t.StateTest)
	case t.BlockchainTest != nil && t.Engine:
		return f.FillBlockchainEngineTest(*t.BlockchainTest)
	case t.BlockchainTest != nil:
		return f.FillBlockchainTest(*t.BlockchainTest)
	default:
		return nil, fmt.Errorf("%s: definition %q declares no test payload", t.Source, t.Name)
	}
}

// LoadTests reads test definitions from the given files, or from every
// .json file below the given directories. Tests are ordered by source
// and name so fills are reproducible.
func LoadTests(inputs []string) ([]Test, error) {
	files, err := enumerateInputs(inputs)
	if err != nil {
		return nil, err
	}
	var tests []Test
	for _, file := range files {
		loaded, err := loadTestFile(file)
		if err != nil {
			return nil, err
		}
		tests = append(tests, loaded...)
	}
	slices.SortFunc(tests, func(a, b Test) int {
		if a.Source != b.Source {
			return strings.Compare(a.Source, b.Source)
		}
		return strings.Compare(a.Name, b.Name)
	})
	return tests, nil
}

func loadTestFile(path string) ([]Test, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var definitions map[string]Definition
	if err := json.Unmarshal(data, &definitions); err != nil {
		return nil, fmt.Errorf("failed to parse test definitions in %s: %w", path, err)
	}
	source := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tests := make([]Test, 0, len(definitions))
	for name, definition := range definitions {
		if definition.StateTest != nil && definition.BlockchainTest != nil {
			return nil, fmt.Errorf("%s: definition %q declares more than one test payload", path, name)
		}
		if definition.StateTest != nil {
			definition.StateTest.Name = name
		}
		if definition.BlockchainTest != nil {
			definition.BlockchainTest.Name = name
		}
		tests = append(tests, Test{Source: source, Name: name, Definition: definition})
	}
	return tests, nil
}

func enumerateInputs(inputs []string) ([]string, error) {
	var files []string
	for _, input := range inputs {
		path, err := filepath.Abs(input)
		if err != nil {
			return nil, err
		}
		stat, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !stat.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(entry string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(entry) == ".json" {
				files = append(files, entry)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
