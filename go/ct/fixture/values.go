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
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// Number is an unsigned 256-bit integer given either as a 0x prefixed hex
// string, as a decimal string or as a plain JSON number. Empty strings
// denote zero.
type Number struct {
	uint256.Int
}

func NewNumber(value uint64) Number {
	return Number{*uint256.NewInt(value)}
}

func (n *Number) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var text string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	} else {
		text = string(data)
	}
	value, err := parseNumber(text)
	if err != nil {
		return err
	}
	n.Int = *value
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Hex())
}

// ToUint64 returns the value as a uint64 or fails if it does not fit.
func (n *Number) ToUint64() (uint64, error) {
	if !n.IsUint64() {
		return 0, fmt.Errorf("value %v exceeds 64 bits", n.Dec())
	}
	return n.Uint64(), nil
}

func parseNumber(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	if s == "" {
		return new(uint256.Int), nil
	}
	value, ok := new(big.Int).SetString(s, base)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	res, overflow := uint256.FromBig(value)
	if overflow {
		return nil, fmt.Errorf("number %q exceeds 256 bits", s)
	}
	return res, nil
}

// Bytes is a hex encoded byte string, with or without 0x prefix.
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
	return []byte("0x" + hex.EncodeToString(b)), nil
}

// Slot is a 32 byte storage key or value. Shorter encodings are interpreted
// as big-endian integers and left padded.
type Slot [32]byte

func (s *Slot) UnmarshalText(data []byte) error {
	value, err := parseNumber(string(data))
	if err != nil {
		return err
	}
	*s = value.Bytes32()
	return nil
}

func (s Slot) MarshalText() ([]byte, error) {
	return []byte("0x" + hex.EncodeToString(s[:])), nil
}

func trimHexPrefix(s string) string {
	return strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
}
