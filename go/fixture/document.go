// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package fixture defines the serialized test-case formats produced by
// the fill pipeline, the collector that batches them into output files,
// and the independent re-verification pass over written files.
package fixture

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Format names one of the supported fixture document formats.
type Format string

const (
	FormatStateTest            Format = "state_test"
	FormatBlockchainTest       Format = "blockchain_test"
	FormatBlockchainEngineTest Format = "blockchain_engine_test"
)

// Info is the `_info` metadata section every fixture document carries.
// Hash digests the document with the metadata section removed and is
// the anchor for golden-file comparison.
type Info struct {
	Hash        common.Hash `json:"hash"`
	FillingTool string      `json:"filling-transition-tool,omitempty"`
	Source      string      `json:"source,omitempty"`
	Comment     string      `json:"comment,omitempty"`
}

// Document is one self-contained fixture.
type Document interface {
	Format() Format
	MetaInfo() *Info
}

// RemoveInfoMetadata strips the `_info` section from a serialized
// document, leaving the hashed content. Nested sections keep their
// byte-exact encoding; top-level keys are re-emitted in sorted order,
// which json.Marshal guarantees for maps.
func RemoveInfoMetadata(raw []byte) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("malformed fixture document: %w", err)
	}
	delete(doc, "_info")
	return json.Marshal(doc)
}

// HashContent digests a serialized document, ignoring its `_info`
// section.
func HashContent(raw []byte) (common.Hash, error) {
	content, err := RemoveInfoMetadata(raw)
	if err != nil {
		return common.Hash{}, err
	}
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(content)
	var hash common.Hash
	copy(hash[:], hasher.Sum(nil))
	return hash, nil
}

// Seal computes and stores the document's content hash. It must be
// called after the last content mutation and before serialization.
func Seal(doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	hash, err := HashContent(raw)
	if err != nil {
		return err
	}
	doc.MetaInfo().Hash = hash
	return nil
}

// CheckHash recomputes the content hash of a serialized document and
// compares it against the recorded `_info.hash`.
func CheckHash(raw []byte) error {
	var envelope struct {
		Info Info `json:"_info"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("malformed fixture document: %w", err)
	}
	hash, err := HashContent(raw)
	if err != nil {
		return err
	}
	if hash != envelope.Info.Hash {
		return fmt.Errorf("fixture hash mismatch: recorded %v, content hashes to %v", envelope.Info.Hash, hash)
	}
	return nil
}
