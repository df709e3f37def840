// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/Fantom-foundation/Shardkit/go/ledger"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
)

// Balance is a 256-bit amount given either as a decimal number or as a 0x
// prefixed hex string.
type Balance struct {
	uint256.Int
}

func NewBalance(value uint64) Balance {
	return Balance{*uint256.NewInt(value)}
}

func (b *Balance) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: balance must be a scalar", node.Line)
	}
	value, err := parseBalance(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	b.Int = *value
	return nil
}

func (b Balance) MarshalYAML() (any, error) {
	return b.Dec(), nil
}

func parseBalance(s string) (*uint256.Int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	value, ok := new(big.Int).SetString(s, 0)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid balance %q", s)
	}
	res, overflow := uint256.FromBig(value)
	if overflow {
		return nil, fmt.Errorf("balance %q exceeds 256 bits", s)
	}
	return res, nil
}

// Hash is a 32 byte hash in hex, with or without 0x prefix. An empty value
// denotes the zero hash.
type Hash ledger.Hash

func (h *Hash) UnmarshalText(data []byte) error {
	s := trimHexPrefix(string(data))
	if s == "" {
		*h = Hash{}
		return nil
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(decoded) != len(h) {
		return fmt.Errorf("invalid hash length, wanted %d bytes, got %d", len(h), len(decoded))
	}
	copy(h[:], decoded)
	return nil
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(h[:])), nil
}

// Bytes is an arbitrary byte string in hex, with or without 0x prefix.
type Bytes []byte

func (b *Bytes) UnmarshalText(data []byte) error {
	decoded, err := hex.DecodeString(trimHexPrefix(string(data)))
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

func (b Bytes) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(b)), nil
}

func trimHexPrefix(s string) string {
	return strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
}
