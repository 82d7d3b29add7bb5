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
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// Transaction is one transaction of a transition request, in the shape
// transition tools consume. A transaction is either pre-signed (V, R, S
// populated) or carries the sender's secret key, in which case the tool
// signs it. Once handed to a transition call it must not be mutated.
//
// ExpectedError tags a transaction the test author expects the tool to
// reject; it never crosses the wire.
type Transaction struct {
	Type                 *uint64
	ChainID              *uint64
	Nonce                uint64
	GasPrice             *uint256.Int
	MaxFeePerGas         *uint256.Int
	MaxPriorityFeePerGas *uint256.Int
	Gas                  uint64
	To                   *common.Address
	Value                *uint256.Int
	Input                []byte
	AccessList           types.AccessList
	BlobVersionedHashes  []common.Hash
	MaxFeePerBlobGas     *uint256.Int
	V, R, S              *uint256.Int
	SecretKey            *common.Hash
	Protected            bool

	ExpectedError string `json:"-"`
}

type transactionJSON struct {
	Type                 *math.HexOrDecimal64  `json:"type,omitempty"`
	ChainID              *math.HexOrDecimal64  `json:"chainId,omitempty"`
	Nonce                math.HexOrDecimal64   `json:"nonce"`
	GasPrice             *math.HexOrDecimal256 `json:"gasPrice,omitempty"`
	MaxFeePerGas         *math.HexOrDecimal256 `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *math.HexOrDecimal256 `json:"maxPriorityFeePerGas,omitempty"`
	Gas                  math.HexOrDecimal64   `json:"gas"`
	To                   *common.Address       `json:"to,omitempty"`
	Value                *math.HexOrDecimal256 `json:"value"`
	Input                hexutil.Bytes         `json:"input"`
	AccessList           types.AccessList      `json:"accessList,omitempty"`
	BlobVersionedHashes  []common.Hash         `json:"blobVersionedHashes,omitempty"`
	MaxFeePerBlobGas     *math.HexOrDecimal256 `json:"maxFeePerBlobGas,omitempty"`
	V                    *math.HexOrDecimal256 `json:"v"`
	R                    *math.HexOrDecimal256 `json:"r"`
	S                    *math.HexOrDecimal256 `json:"s"`
	SecretKey            *common.Hash          `json:"secretKey,omitempty"`
	Protected            *bool                 `json:"protected,omitempty"`
}

func toHexOrDecimal256(value *uint256.Int) *math.HexOrDecimal256 {
	if value == nil {
		return (*math.HexOrDecimal256)(uint256.NewInt(0).ToBig())
	}
	return (*math.HexOrDecimal256)(value.ToBig())
}

func optionalHexOrDecimal256(value *uint256.Int) *math.HexOrDecimal256 {
	if value == nil {
		return nil
	}
	return (*math.HexOrDecimal256)(value.ToBig())
}

func fromHexOrDecimal256(value *math.HexOrDecimal256, field string) (*uint256.Int, error) {
	if value == nil {
		return nil, nil
	}
	res, overflow := uint256.FromBig((*big.Int)(value))
	if overflow {
		return nil, errValueOverflow(field)
	}
	return res, nil
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	enc := transactionJSON{
		Type:                 (*math.HexOrDecimal64)(t.Type),
		ChainID:              (*math.HexOrDecimal64)(t.ChainID),
		Nonce:                math.HexOrDecimal64(t.Nonce),
		GasPrice:             optionalHexOrDecimal256(t.GasPrice),
		MaxFeePerGas:         optionalHexOrDecimal256(t.MaxFeePerGas),
		MaxPriorityFeePerGas: optionalHexOrDecimal256(t.MaxPriorityFeePerGas),
		Gas:                  math.HexOrDecimal64(t.Gas),
		To:                   t.To,
		Value:                toHexOrDecimal256(t.Value),
		Input:                t.Input,
		AccessList:           t.AccessList,
		BlobVersionedHashes:  t.BlobVersionedHashes,
		MaxFeePerBlobGas:     optionalHexOrDecimal256(t.MaxFeePerBlobGas),
		V:                    toHexOrDecimal256(t.V),
		R:                    toHexOrDecimal256(t.R),
		S:                    toHexOrDecimal256(t.S),
		SecretKey:            t.SecretKey,
	}
	if enc.Input == nil {
		enc.Input = hexutil.Bytes{}
	}
	if t.Protected {
		protected := true
		enc.Protected = &protected
	}
	return json.Marshal(enc)
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	var dec transactionJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	res := Transaction{
		Type:                (*uint64)(dec.Type),
		ChainID:             (*uint64)(dec.ChainID),
		Nonce:               uint64(dec.Nonce),
		Gas:                 uint64(dec.Gas),
		To:                  dec.To,
		Input:               dec.Input,
		AccessList:          dec.AccessList,
		BlobVersionedHashes: dec.BlobVersionedHashes,
		SecretKey:           dec.SecretKey,
	}
	var err error
	if res.GasPrice, err = fromHexOrDecimal256(dec.GasPrice, "gasPrice"); err != nil {
		return err
	}
	if res.MaxFeePerGas, err = fromHexOrDecimal256(dec.MaxFeePerGas, "maxFeePerGas"); err != nil {
		return err
	}
	if res.MaxPriorityFeePerGas, err = fromHexOrDecimal256(dec.MaxPriorityFeePerGas, "maxPriorityFeePerGas"); err != nil {
		return err
	}
	if res.Value, err = fromHexOrDecimal256(dec.Value, "value"); err != nil {
		return err
	}
	if res.MaxFeePerBlobGas, err = fromHexOrDecimal256(dec.MaxFeePerBlobGas, "maxFeePerBlobGas"); err != nil {
		return err
	}
	if res.V, err = fromHexOrDecimal256(dec.V, "v"); err != nil {
		return err
	}
	if res.R, err = fromHexOrDecimal256(dec.R, "r"); err != nil {
		return err
	}
	if res.S, err = fromHexOrDecimal256(dec.S, "s"); err != nil {
		return err
	}
	if dec.Protected != nil {
		res.Protected = *dec.Protected
	}
	*t = res
	return nil
}

// IsSigned indicates whether the transaction carries a signature of its
// own rather than relying on the tool to sign it.
func (t Transaction) IsSigned() bool {
	return t.SecretKey == nil
}
