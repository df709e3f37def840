// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package state provides an in-memory implementation of the ledger's world
// state. Modifications are recorded in an undo journal, which provides
// snapshots and reverts; commits compute a Merkle-Patricia root over the
// account content.
package state

import (
	"bytes"
	"cmp"
	"fmt"

	"github.com/Fantom-foundation/Shardkit/go/ledger"
	"github.com/holiman/uint256"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// State is a journaled, in-memory ledger.WorldState. It is not safe for
// concurrent use.
type State struct {
	accounts    map[ledger.Recipient]*account
	touched     map[ledger.Recipient]struct{}
	fullShardId ledger.FullShardId
	root        ledger.Hash
	undo        []func()

	// Valid snapshots in creation order.
	snapshots    []snapshot
	nextSnapshot ledger.Snapshot
}

type snapshot struct {
	id         ledger.Snapshot
	journalLen int
}

type account struct {
	nonce       uint64
	balances    map[ledger.TokenId]uint256.Int
	code        []byte
	storage     map[ledger.Key]ledger.Word
	fullShardId ledger.FullShardId
}

// New creates an empty state bound to the given shard context.
func New(fullShardId ledger.FullShardId) *State {
	return &State{
		accounts:    map[ledger.Recipient]*account{},
		touched:     map[ledger.Recipient]struct{}{},
		fullShardId: fullShardId,
		root:        emptyRoot,
	}
}

func (s *State) AccountExists(addr ledger.Recipient) bool {
	_, found := s.accounts[addr]
	return found
}

func (s *State) GetNonce(addr ledger.Recipient) uint64 {
	if account, found := s.accounts[addr]; found {
		return account.nonce
	}
	return 0
}

func (s *State) SetNonce(addr ledger.Recipient, nonce uint64) {
	account := s.getOrCreate(addr)
	original := account.nonce
	account.nonce = nonce
	s.undo = append(s.undo, func() { account.nonce = original })
}

func (s *State) GetBalance(addr ledger.Recipient, token ledger.TokenId) uint256.Int {
	if account, found := s.accounts[addr]; found {
		return account.balances[token]
	}
	return uint256.Int{}
}

func (s *State) SetBalance(addr ledger.Recipient, token ledger.TokenId, value uint256.Int) {
	account := s.getOrCreate(addr)
	original, present := account.balances[token]
	if value.IsZero() {
		delete(account.balances, token)
	} else {
		account.balances[token] = value
	}
	s.undo = append(s.undo, func() {
		if present {
			account.balances[token] = original
		} else {
			delete(account.balances, token)
		}
	})
}

func (s *State) AddBalance(addr ledger.Recipient, token ledger.TokenId, delta uint256.Int) {
	balance := s.GetBalance(addr, token)
	balance.Add(&balance, &delta)
	s.SetBalance(addr, token, balance)
}

func (s *State) GetCode(addr ledger.Recipient) []byte {
	if account, found := s.accounts[addr]; found {
		return bytes.Clone(account.code)
	}
	return nil
}

func (s *State) SetCode(addr ledger.Recipient, code []byte) {
	account := s.getOrCreate(addr)
	original := account.code
	account.code = bytes.Clone(code)
	s.undo = append(s.undo, func() { account.code = original })
}

func (s *State) GetStorage(addr ledger.Recipient, key ledger.Key) ledger.Word {
	if account, found := s.accounts[addr]; found {
		return account.storage[key]
	}
	return ledger.Word{}
}

// SetStorage updates a storage slot. Setting a slot to zero removes it.
func (s *State) SetStorage(addr ledger.Recipient, key ledger.Key, value ledger.Word) {
	account := s.getOrCreate(addr)
	original, present := account.storage[key]
	if value == (ledger.Word{}) {
		delete(account.storage, key)
	} else {
		account.storage[key] = value
	}
	s.undo = append(s.undo, func() {
		if present {
			account.storage[key] = original
		} else {
			delete(account.storage, key)
		}
	})
}

func (s *State) FullShardId() ledger.FullShardId {
	return s.fullShardId
}

func (s *State) SetFullShardId(id ledger.FullShardId) {
	original := s.fullShardId
	s.fullShardId = id
	s.undo = append(s.undo, func() { s.fullShardId = original })
}

func (s *State) Snapshot() ledger.Snapshot {
	id := s.nextSnapshot
	s.nextSnapshot++
	s.snapshots = append(s.snapshots, snapshot{id: id, journalLen: len(s.undo)})
	return id
}

// RevertToSnapshot undoes all modifications since the snapshot was taken.
// The snapshot stays valid while all snapshots taken after it are dropped.
// It panics if the snapshot has been invalidated by an earlier revert.
func (s *State) RevertToSnapshot(id ledger.Snapshot) {
	pos, found := slices.BinarySearchFunc(s.snapshots, id, func(e snapshot, id ledger.Snapshot) int {
		return cmp.Compare(e.id, id)
	})
	if !found {
		panic(fmt.Sprintf("invalid snapshot %d", id))
	}
	target := s.snapshots[pos].journalLen
	s.snapshots = s.snapshots[:pos+1]
	for len(s.undo) > target {
		s.undo[len(s.undo)-1]()
		s.undo = s.undo[:len(s.undo)-1]
	}
}

// Commit finalizes pending modifications and recomputes the root hash. In
// Strict mode, accounts touched since the last commit that ended up empty
// are removed. Commits are journaled too, so reverting to a snapshot taken
// before a commit restores the previous root.
func (s *State) Commit(mode ledger.CommitMode) {
	if mode == ledger.Strict {
		for addr := range s.touched {
			if account, found := s.accounts[addr]; found && account.isEmpty() {
				s.deleteAccount(addr)
			}
		}
	}

	touched := s.touched
	s.touched = map[ledger.Recipient]struct{}{}
	s.undo = append(s.undo, func() { s.touched = touched })

	root := s.root
	s.root = computeRoot(s.accounts)
	s.undo = append(s.undo, func() { s.root = root })
}

func (s *State) RootHash() ledger.Hash {
	return s.root
}

func (s *State) Dump() ledger.Dump {
	res := make(ledger.Dump, len(s.accounts))
	for addr, account := range s.accounts {
		res[addr] = ledger.AccountDump{
			Nonce:       account.nonce,
			Balances:    maps.Clone(account.balances),
			Code:        bytes.Clone(account.code),
			Storage:     maps.Clone(account.storage),
			FullShardId: account.fullShardId,
		}
	}
	return res
}

// getOrCreate returns the account of the given recipient, creating it in the
// current shard context if needed, and marks it as touched.
func (s *State) getOrCreate(addr ledger.Recipient) *account {
	if _, found := s.touched[addr]; !found {
		s.touched[addr] = struct{}{}
		s.undo = append(s.undo, func() { delete(s.touched, addr) })
	}
	if res, found := s.accounts[addr]; found {
		return res
	}
	res := &account{
		balances:    map[ledger.TokenId]uint256.Int{},
		storage:     map[ledger.Key]ledger.Word{},
		fullShardId: s.fullShardId,
	}
	s.accounts[addr] = res
	s.undo = append(s.undo, func() { delete(s.accounts, addr) })
	return res
}

func (s *State) deleteAccount(addr ledger.Recipient) {
	original := s.accounts[addr]
	delete(s.accounts, addr)
	s.undo = append(s.undo, func() { s.accounts[addr] = original })
}

func (a *account) isEmpty() bool {
	if a.nonce != 0 || len(a.code) != 0 {
		return false
	}
	for _, balance := range a.balances {
		if !balance.IsZero() {
			return false
		}
	}
	return true
}
