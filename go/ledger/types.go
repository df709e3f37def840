// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Recipient is the 160-bit (20 bytes) shard-independent part of an address.
type Recipient [20]byte

// FullShardId is a 32-bit value whose low bits select a shard and whose
// remaining high bits are an opaque, account-scoped identifier.
type FullShardId uint32

// TokenId identifies a token kept in the per-account balance map.
type TokenId uint64

// Key represents the 256-bit (32 bytes) key of a storage slot.
type Key [32]byte

// Word represents an arbitrary 256-bit (32 byte) storage value.
type Word [32]byte

// Hash is the digest type used for state roots, headers and transactions.
type Hash = common.Hash

// DefaultTokenId is the token used for genesis allocations, fixture balances,
// gas payments and synthetic transfers.
const DefaultTokenId TokenId = 1

// Address is an account address: a recipient plus the full shard id the
// account lives on. Its text form is the 24 byte hex string
// recipient || big-endian(full shard id).
type Address struct {
	Recipient   Recipient
	FullShardId FullShardId
}

// AddressLength is the length of the binary address encoding.
const AddressLength = 24

func NewAddress(recipient Recipient, fullShardId FullShardId) Address {
	return Address{Recipient: recipient, FullShardId: fullShardId}
}

// Bytes returns the 24 byte encoding of the address.
func (a Address) Bytes() []byte {
	res := make([]byte, AddressLength)
	copy(res, a.Recipient[:])
	binary.BigEndian.PutUint32(res[20:], uint32(a.FullShardId))
	return res
}

func (a Address) String() string {
	return fmt.Sprintf("0x%x", a.Bytes())
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(data []byte) error {
	var buffer [AddressLength]byte
	if err := decodeHexInto(buffer[:], string(data)); err != nil {
		return err
	}
	copy(a.Recipient[:], buffer[:20])
	a.FullShardId = FullShardId(binary.BigEndian.Uint32(buffer[20:]))
	return nil
}

// ParseAddress parses the hex encoding of an address; the 0x prefix is
// optional.
func ParseAddress(s string) (Address, error) {
	var res Address
	err := res.UnmarshalText([]byte(s))
	return res, err
}

func (r Recipient) String() string {
	return fmt.Sprintf("0x%x", r[:])
}

func (r Recipient) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Recipient) UnmarshalText(data []byte) error {
	return decodeHexInto(r[:], string(data))
}

func (k Key) String() string {
	return fmt.Sprintf("0x%x", k[:])
}

func (w Word) String() string {
	return fmt.Sprintf("0x%x", w[:])
}

func (id FullShardId) String() string {
	return fmt.Sprintf("0x%08x", uint32(id))
}

// Keccak256Hash computes the legacy Keccak-256 digest of the concatenated
// inputs.
func Keccak256Hash(data ...[]byte) (hash Hash) {
	hasher := sha3.NewLegacyKeccak256()
	for _, cur := range data {
		hasher.Write(cur)
	}
	hasher.Sum(hash[:0])
	return
}

func decodeHexInto(trg []byte, s string) error {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	data, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if want, got := len(trg), len(data); want != got {
		return fmt.Errorf("invalid format, wanted %d bytes, got %d", want, got)
	}
	copy(trg, data)
	return nil
}
