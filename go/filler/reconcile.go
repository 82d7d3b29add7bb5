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
	"bytes"
	"fmt"
	"strings"

	"github.com/Fantom-foundation/Figaro/go/figaro"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/exp/slices"
)

// Difference is one field-level mismatch between the resulting
// allocation and the declared expectation.
type Difference struct {
	Address common.Address
	Field   string
	Key     *common.Hash // set for storage differences
	Want    string
	Got     string
}

func (d Difference) String() string {
	if d.Key != nil {
		return fmt.Sprintf("%v: %s[%v]: wanted %s, got %s", d.Address, d.Field, *d.Key, d.Want, d.Got)
	}
	return fmt.Sprintf("%v: %s: wanted %s, got %s", d.Address, d.Field, d.Want, d.Got)
}

// ReconciliationError reports every mismatch found in one pass; it is
// never raised for a prefix of the differences.
type ReconciliationError struct {
	Diffs []Difference
}

func (e *ReconciliationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "post-state does not match expectation (%d differences)", len(e.Diffs))
	for _, diff := range e.Diffs {
		b.WriteString("\n\t")
		b.WriteString(diff.String())
	}
	return b.String()
}

// Reconcile compares the resulting allocation against the expectation.
// Only declared accounts and declared storage keys are checked;
// accounts the expectation does not mention may change freely. With
// exhaustive set, every account in the allocation must also be declared.
func Reconcile(actual figaro.Alloc, expected ExpectedPostState, exhaustive bool) error {
	var diffs []Difference

	for _, addr := range sortedAddresses(expected) {
		expectation := expected[addr]
		account, exists := actual[addr]
		if expectation == nil {
			if exists {
				diffs = append(diffs, Difference{
					Address: addr, Field: "existence", Want: "no account", Got: "account present",
				})
			}
			continue
		}
		if !exists {
			diffs = append(diffs, Difference{
				Address: addr, Field: "existence", Want: "account present", Got: "no account",
			})
			continue
		}
		diffs = append(diffs, diffAccount(addr, account, *expectation)...)
	}

	if exhaustive {
		for _, addr := range sortedAddresses(actual) {
			if _, declared := expected[addr]; !declared {
				diffs = append(diffs, Difference{
					Address: addr, Field: "existence", Want: "no account", Got: "undeclared account present",
				})
			}
		}
	}

	if len(diffs) > 0 {
		return &ReconciliationError{Diffs: diffs}
	}
	return nil
}

func diffAccount(addr common.Address, account figaro.Account, expectation ExpectedAccount) []Difference {
	var diffs []Difference
	if expectation.Balance != nil && expectation.Balance.Cmp(account.BalanceOrZero()) != 0 {
		diffs = append(diffs, Difference{
			Address: addr, Field: "balance",
			Want: expectation.Balance.String(), Got: account.BalanceOrZero().String(),
		})
	}
	if expectation.Nonce != nil && *expectation.Nonce != account.Nonce {
		diffs = append(diffs, Difference{
			Address: addr, Field: "nonce",
			Want: fmt.Sprintf("%d", *expectation.Nonce), Got: fmt.Sprintf("%d", account.Nonce),
		})
	}
	if expectation.Code != nil && !bytes.Equal(expectation.Code, account.Code) {
		diffs = append(diffs, Difference{
			Address: addr, Field: "code",
			Want: hexutil.Encode(expectation.Code), Got: hexutil.Encode(account.Code),
		})
	}
	for _, key := range sortedKeys(expectation.Storage) {
		want := expectation.Storage[key]
		got := account.Storage[key] // missing slots read as zero
		if want != got {
			k := key
			diffs = append(diffs, Difference{
				Address: addr, Field: "storage", Key: &k,
				Want: want.Hex(), Got: got.Hex(),
			})
		}
	}
	return diffs
}

func sortedAddresses[V any](m map[common.Address]V) []common.Address {
	res := make([]common.Address, 0, len(m))
	for addr := range m {
		res = append(res, addr)
	}
	slices.SortFunc(res, func(a, b common.Address) int {
		return bytes.Compare(a[:], b[:])
	})
	return res
}

func sortedKeys(m map[common.Hash]common.Hash) []common.Hash {
	res := make([]common.Hash, 0, len(m))
	for key := range m {
		res = append(res, key)
	}
	slices.SortFunc(res, func(a, b common.Hash) int {
		return bytes.Compare(a[:], b[:])
	})
	return res
}
