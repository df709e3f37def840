// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package st computes structured differences between world state dumps. The
// differences serve diagnostics of state transitions; they are not used to
// decide whether a transition is correct.
package st

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Fantom-foundation/Shardkit/go/ledger"
	"github.com/holiman/uint256"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Kind int

const (
	Created Kind = iota
	Deleted
	Modified
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	case Modified:
		return "modified"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Change is a field value before and after a transition.
type Change[T any] struct {
	Old T
	New T
}

// StorageDiff partitions the storage keys of an account into added, removed
// and changed keys. Zero words are treated like absent keys.
type StorageDiff struct {
	Added   map[ledger.Key]ledger.Word
	Removed map[ledger.Key]ledger.Word
	Changed map[ledger.Key]Change[ledger.Word]
}

func (d *StorageDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// AccountDiff describes the change of a single account. Created accounts
// carry their new record in New, deleted accounts their old record in Old.
// Modified accounts carry both records plus the field level deltas.
type AccountDiff struct {
	Kind        Kind
	Old         *ledger.AccountDump
	New         *ledger.AccountDump
	Nonce       *Change[uint64]
	Code        *Change[[]byte]
	FullShardId *Change[ledger.FullShardId]
	Balances    map[ledger.TokenId]Change[uint256.Int]
	Storage     StorageDiff
}

// StateDiff maps every account differing between two dumps to its change.
type StateDiff map[ledger.Recipient]*AccountDiff

// Diff computes the difference leading from prev to post.
func Diff(prev, post ledger.Dump) StateDiff {
	res := StateDiff{}
	for recipient, before := range prev {
		after, found := post[recipient]
		if !found {
			old := before.Clone()
			res[recipient] = &AccountDiff{Kind: Deleted, Old: &old}
			continue
		}
		if diff := diffAccount(&before, &after); diff != nil {
			res[recipient] = diff
		}
	}
	for recipient, after := range post {
		if _, found := prev[recipient]; !found {
			created := after.Clone()
			res[recipient] = &AccountDiff{Kind: Created, New: &created}
		}
	}
	return res
}

func diffAccount(before, after *ledger.AccountDump) *AccountDiff {
	if before.Equal(after) {
		return nil
	}
	old, updated := before.Clone(), after.Clone()
	res := &AccountDiff{
		Kind:     Modified,
		Old:      &old,
		New:      &updated,
		Balances: map[ledger.TokenId]Change[uint256.Int]{},
		Storage: StorageDiff{
			Added:   map[ledger.Key]ledger.Word{},
			Removed: map[ledger.Key]ledger.Word{},
			Changed: map[ledger.Key]Change[ledger.Word]{},
		},
	}
	if before.Nonce != after.Nonce {
		res.Nonce = &Change[uint64]{before.Nonce, after.Nonce}
	}
	if !bytes.Equal(before.Code, after.Code) {
		res.Code = &Change[[]byte]{old.Code, updated.Code}
	}
	if before.FullShardId != after.FullShardId {
		res.FullShardId = &Change[ledger.FullShardId]{before.FullShardId, after.FullShardId}
	}

	tokens := map[ledger.TokenId]struct{}{}
	for token := range before.Balances {
		tokens[token] = struct{}{}
	}
	for token := range after.Balances {
		tokens[token] = struct{}{}
	}
	for token := range tokens {
		a, b := before.Balances[token], after.Balances[token]
		if !a.Eq(&b) {
			res.Balances[token] = Change[uint256.Int]{a, b}
		}
	}

	for key, a := range before.Storage {
		b := after.Storage[key]
		switch {
		case a == b:
		case b == (ledger.Word{}):
			res.Storage.Removed[key] = a
		case a == (ledger.Word{}):
			res.Storage.Added[key] = b
		default:
			res.Storage.Changed[key] = Change[ledger.Word]{a, b}
		}
	}
	for key, b := range after.Storage {
		if _, found := before.Storage[key]; !found && b != (ledger.Word{}) {
			res.Storage.Added[key] = b
		}
	}
	return res
}

func (d StateDiff) IsEmpty() bool {
	return len(d) == 0
}

// Entries renders one line per differing account, sorted by recipient.
func (d StateDiff) Entries() []string {
	recipients := maps.Keys(d)
	slices.SortFunc(recipients, func(a, b ledger.Recipient) int {
		return bytes.Compare(a[:], b[:])
	})
	res := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		res = append(res, fmt.Sprintf("%v: %v", recipient, d[recipient]))
	}
	return res
}

func (d StateDiff) String() string {
	if d.IsEmpty() {
		return "no differences"
	}
	return strings.Join(d.Entries(), "\n")
}

func (d *AccountDiff) String() string {
	switch d.Kind {
	case Created:
		return fmt.Sprintf("created %s", formatAccount(d.New))
	case Deleted:
		return fmt.Sprintf("deleted %s", formatAccount(d.Old))
	}

	parts := []string{}
	if d.Nonce != nil {
		parts = append(parts, fmt.Sprintf("nonce %d -> %d", d.Nonce.Old, d.Nonce.New))
	}
	for _, token := range sortedKeys(d.Balances, cmpOrdered[ledger.TokenId]) {
		change := d.Balances[token]
		parts = append(parts, fmt.Sprintf("balance[%d] %s -> %s", token, change.Old.Dec(), change.New.Dec()))
	}
	if d.Code != nil {
		parts = append(parts, fmt.Sprintf("code %d bytes -> %d bytes", len(d.Code.Old), len(d.Code.New)))
	}
	if d.FullShardId != nil {
		parts = append(parts, fmt.Sprintf("full shard id %v -> %v", d.FullShardId.Old, d.FullShardId.New))
	}
	for _, key := range sortedKeys(d.Storage.Added, compareKeys) {
		parts = append(parts, fmt.Sprintf("storage[%v] added %v", key, d.Storage.Added[key]))
	}
	for _, key := range sortedKeys(d.Storage.Removed, compareKeys) {
		parts = append(parts, fmt.Sprintf("storage[%v] removed %v", key, d.Storage.Removed[key]))
	}
	for _, key := range sortedKeys(d.Storage.Changed, compareKeys) {
		change := d.Storage.Changed[key]
		parts = append(parts, fmt.Sprintf("storage[%v] %v -> %v", key, change.Old, change.New))
	}
	return "modified " + strings.Join(parts, ", ")
}

func formatAccount(a *ledger.AccountDump) string {
	balances := []string{}
	for _, token := range sortedKeys(a.Balances, cmpOrdered[ledger.TokenId]) {
		balance := a.Balances[token]
		balances = append(balances, fmt.Sprintf("%d:%s", token, balance.Dec()))
	}
	return fmt.Sprintf("{nonce: %d, balances: [%s], code: %d bytes, storage: %d keys, full shard id: %v}",
		a.Nonce, strings.Join(balances, " "), len(a.Code), len(a.Storage), a.FullShardId)
}

func compareKeys(a, b ledger.Key) int {
	return bytes.Compare(a[:], b[:])
}

func cmpOrdered[T ~uint64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func sortedKeys[K comparable, V any](m map[K]V, cmp func(a, b K) int) []K {
	keys := maps.Keys(m)
	slices.SortFunc(keys, cmp)
	return keys
}
