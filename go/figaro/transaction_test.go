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
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestTransaction_MarshalUsesWireFieldNames(t *testing.T) {
	data, err := json.Marshal(Transaction{})
	if err != nil {
		t.Fatalf("failed to marshal transaction: %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("failed to re-parse transaction: %v", err)
	}
	for _, key := range []string{"nonce", "gas", "value", "input", "v", "r", "s"} {
		if _, found := fields[key]; !found {
			t.Errorf("Missing field %q in %s", key, data)
		}
	}
	for _, key := range []string{"type", "chainId", "gasPrice", "maxFeePerGas", "secretKey", "protected"} {
		if _, found := fields[key]; found {
			t.Errorf("Unexpected optional field %q in %s", key, data)
		}
	}
}

func TestTransaction_JsonRoundTrip(t *testing.T) {
	txType := uint64(2)
	chainID := uint64(1)
	to := common.Address{0xaa}
	key := common.Hash{0xbb}
	tx := Transaction{
		Type:                 &txType,
		ChainID:              &chainID,
		Nonce:                3,
		MaxFeePerGas:         uint256.NewInt(10),
		MaxPriorityFeePerGas: uint256.NewInt(2),
		Gas:                  21_000,
		To:                   &to,
		Value:                uint256.NewInt(100),
		Input:                []byte{0x01, 0x02},
		V:                    uint256.NewInt(0),
		R:                    uint256.NewInt(1),
		S:                    uint256.NewInt(2),
		SecretKey:            &key,
		Protected:            true,
	}
	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("failed to marshal transaction: %v", err)
	}
	var restored Transaction
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("failed to unmarshal transaction: %v", err)
	}
	if !reflect.DeepEqual(tx, restored) {
		t.Errorf("Unexpected transaction after round trip, wanted %+v, got %+v", tx, restored)
	}
}

func TestTransaction_ExpectedErrorNeverCrossesTheWire(t *testing.T) {
	tx := Transaction{ExpectedError: "intrinsic gas too low"}
	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("failed to marshal transaction: %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("failed to re-parse transaction: %v", err)
	}
	for key := range fields {
		if key == "ExpectedError" || key == "expectedError" {
			t.Errorf("Expected error leaked into the wire format: %s", data)
		}
	}
}

func TestTransaction_IsSigned(t *testing.T) {
	key := common.Hash{0x01}
	if (Transaction{SecretKey: &key}).IsSigned() {
		t.Errorf("A transaction with a secret key is not signed")
	}
	if !(Transaction{V: uint256.NewInt(27)}).IsSigned() {
		t.Errorf("A transaction without a secret key is signed")
	}
}
