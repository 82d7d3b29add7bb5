// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package figaro

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// Fork identifies a protocol revision understood by transition tools.
// The zero value is Frontier. Only the header-shape capabilities needed
// to build well-formed transition requests are modeled here; gas
// schedules and opcode availability are the tool's business.
type Fork int

const (
	Frontier Fork = iota
	Homestead
	Byzantium
	Constantinople
	Istanbul
	Berlin
	London
	Paris
	Shanghai
	Cancun
	Prague
	numForks
)

var forkNames = map[Fork]string{
	Frontier:       "Frontier",
	Homestead:      "Homestead",
	Byzantium:      "Byzantium",
	Constantinople: "ConstantinopleFix",
	Istanbul:       "Istanbul",
	Berlin:         "Berlin",
	London:         "London",
	Paris:          "Merge",
	Shanghai:       "Shanghai",
	Cancun:         "Cancun",
	Prague:         "Prague",
}

func (f Fork) String() string {
	if name, found := forkNames[f]; found {
		return name
	}
	return fmt.Sprintf("Fork(%d)", f)
}

// AllForks lists every known fork in activation order.
func AllForks() []Fork {
	res := make([]Fork, 0, numForks)
	for f := Frontier; f < numForks; f++ {
		res = append(res, f)
	}
	return res
}

// ForkByName resolves a fork from its canonical name (case-insensitive).
func ForkByName(name string) (Fork, error) {
	for fork, forkName := range forkNames {
		if strings.EqualFold(name, forkName) {
			return fork, nil
		}
	}
	return 0, fmt.Errorf("unknown fork: %q", name)
}

// HasBaseFee indicates whether block headers carry a base fee.
func (f Fork) HasBaseFee() bool {
	return f >= London
}

// HasPrevRandao indicates whether the difficulty field is replaced by
// the prev-randao value of the beacon chain.
func (f Fork) HasPrevRandao() bool {
	return f >= Paris
}

// HasWithdrawals indicates whether blocks carry a withdrawals list.
func (f Fork) HasWithdrawals() bool {
	return f >= Shanghai
}

// HasBlobGas indicates whether headers carry blob gas accounting fields.
func (f Fork) HasBlobGas() bool {
	return f >= Cancun
}

// HasBeaconRoot indicates whether headers carry the parent beacon block
// root.
func (f Fork) HasBeaconRoot() bool {
	return f >= Cancun
}

// BlockReward is the mining reward credited to the coinbase per block.
// It is zero from the merge on.
func (f Fork) BlockReward() *big.Int {
	switch {
	case f >= Paris:
		return big.NewInt(0)
	case f >= Constantinople:
		return new(big.Int).Mul(big.NewInt(2), big.NewInt(1e18))
	case f >= Byzantium:
		return new(big.Int).Mul(big.NewInt(3), big.NewInt(1e18))
	default:
		return new(big.Int).Mul(big.NewInt(5), big.NewInt(1e18))
	}
}

// Identifier builds the fork string passed to transition tools. Extra
// EIPs activated on top of the base fork are joined with '+', as in
// "Shanghai+2935".
func (f Fork) Identifier(eips ...int) string {
	parts := make([]string, 0, len(eips)+1)
	parts = append(parts, f.String())
	for _, eip := range eips {
		parts = append(parts, fmt.Sprintf("%d", eip))
	}
	return strings.Join(parts, "+")
}

func (f Fork) MarshalJSON() ([]byte, error) {
	if _, found := forkNames[f]; !found {
		return nil, fmt.Errorf("cannot marshal unknown fork %d", f)
	}
	return json.Marshal(f.String())
}

func (f *Fork) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	fork, err := ForkByName(name)
	if err != nil {
		return err
	}
	*f = fork
	return nil
}
