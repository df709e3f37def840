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
	"bytes"

	"github.com/holiman/uint256"
	"golang.org/x/exp/maps"
)

//go:generate mockgen -source world_state.go -destination world_state_mock.go -package ledger

// WorldState is an interface to access and manipulate the state of a shard.
// The state is a collection of accounts keyed by recipient, each with a
// nonce, a balance per token, optional code and storage.
//
// Modifications are tracked in a stack of snapshots. Commit makes pending
// modifications part of the canonical content and updates the root hash;
// RevertToSnapshot discards every modification, including commits, made
// since the given snapshot was taken. Reverting to a snapshot invalidates all
// snapshots taken after it.
type WorldState interface {
	AccountExists(Recipient) bool

	GetNonce(Recipient) uint64
	SetNonce(Recipient, uint64)

	GetBalance(Recipient, TokenId) uint256.Int
	SetBalance(Recipient, TokenId, uint256.Int)
	AddBalance(Recipient, TokenId, uint256.Int)

	GetCode(Recipient) []byte
	SetCode(Recipient, []byte)

	GetStorage(Recipient, Key) Word
	SetStorage(Recipient, Key, Word)

	// FullShardId returns the shard context used for accounts created by
	// subsequent writes.
	FullShardId() FullShardId
	SetFullShardId(FullShardId)

	Snapshot() Snapshot
	RevertToSnapshot(Snapshot)

	Commit(CommitMode)
	// RootHash is the root of the committed content. It is a pure function
	// of that content.
	RootHash() Hash

	// Dump returns a deep copy of the current content.
	Dump() Dump
}

// Snapshot is an opaque handle to a point in the modification history of a
// WorldState.
type Snapshot int

// CommitMode controls the treatment of empty accounts on commit.
type CommitMode int

const (
	// Strict removes accounts touched since the last commit that ended up
	// empty (zero nonce, zero balances, no code).
	Strict CommitMode = iota
	// AllowEmpties keeps empty accounts. Used when importing pre-states.
	AllowEmpties
)

func (m CommitMode) String() string {
	switch m {
	case Strict:
		return "strict"
	case AllowEmpties:
		return "allow-empties"
	}
	return "unknown"
}

// Dump is a full, account-keyed copy of a world state.
type Dump map[Recipient]AccountDump

// AccountDump is the content of a single account.
type AccountDump struct {
	Nonce       uint64
	Balances    map[TokenId]uint256.Int
	Code        []byte
	Storage     map[Key]Word
	FullShardId FullShardId
}

func (d Dump) Equal(other Dump) bool {
	return maps.EqualFunc(d, other, func(a, b AccountDump) bool {
		return a.Equal(&b)
	})
}

func (d Dump) Clone() Dump {
	if d == nil {
		return nil
	}
	res := make(Dump, len(d))
	for k, v := range d {
		res[k] = v.Clone()
	}
	return res
}

func (a *AccountDump) Equal(other *AccountDump) bool {
	return a.Nonce == other.Nonce &&
		a.FullShardId == other.FullShardId &&
		bytes.Equal(a.Code, other.Code) &&
		equalIgnoringZero(a.Balances, other.Balances) &&
		equalIgnoringZero(a.Storage, other.Storage)
}

func (a *AccountDump) Clone() AccountDump {
	return AccountDump{
		Nonce:       a.Nonce,
		Balances:    maps.Clone(a.Balances),
		Code:        bytes.Clone(a.Code),
		Storage:     maps.Clone(a.Storage),
		FullShardId: a.FullShardId,
	}
}

// IsEmpty reports whether the account has a zero nonce, only zero balances
// and no code.
func (a *AccountDump) IsEmpty() bool {
	if a.Nonce != 0 || len(a.Code) != 0 {
		return false
	}
	for _, balance := range a.Balances {
		if !balance.IsZero() {
			return false
		}
	}
	return true
}

// equalIgnoringZero compares two maps, ignoring zero-valued entries.
func equalIgnoringZero[K, V comparable](a, b map[K]V) bool {
	var zero V
	for k, v := range a {
		if v != b[k] {
			return false
		}
	}
	for k, v := range b {
		if v != zero && v != a[k] {
			return false
		}
	}
	return true
}
