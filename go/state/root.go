// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package state

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/Shardkit/go/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var emptyRoot = types.EmptyRootHash

// rlpAccount is the trie leaf encoding of an account.
type rlpAccount struct {
	Nonce       uint64
	Balances    []rlpBalance
	StorageRoot common.Hash
	CodeHash    common.Hash
	FullShardId uint32
}

type rlpBalance struct {
	Token   uint64
	Balance *big.Int
}

// computeRoot derives the root of the trie mapping keccak(recipient) to the
// RLP encoding of the account. The result only depends on the content of the
// accounts, not on the order of the modifications producing it.
func computeRoot(accounts map[ledger.Recipient]*account) common.Hash {
	entries := make(map[common.Hash][]byte, len(accounts))
	for addr, account := range accounts {
		encoded, err := rlp.EncodeToBytes(account.toRlp())
		if err != nil {
			panic(fmt.Sprintf("failed to encode account %v: %v", addr, err))
		}
		entries[ledger.Keccak256Hash(addr[:])] = encoded
	}
	return hashSorted(entries)
}

func storageRoot(storage map[ledger.Key]ledger.Word) common.Hash {
	entries := make(map[common.Hash][]byte, len(storage))
	for key, value := range storage {
		if value == (ledger.Word{}) {
			continue
		}
		encoded, err := rlp.EncodeToBytes(common.TrimLeftZeroes(value[:]))
		if err != nil {
			panic(fmt.Sprintf("failed to encode storage value %v: %v", value, err))
		}
		entries[ledger.Keccak256Hash(key[:])] = encoded
	}
	return hashSorted(entries)
}

// hashSorted feeds the entries in ascending key order into a stack trie,
// which requires sorted insertion.
func hashSorted(entries map[common.Hash][]byte) common.Hash {
	if len(entries) == 0 {
		return emptyRoot
	}
	keys := maps.Keys(entries)
	slices.SortFunc(keys, func(a, b common.Hash) int {
		return bytes.Compare(a[:], b[:])
	})
	stack := trie.NewStackTrie(nil)
	for _, key := range keys {
		if err := stack.Update(key[:], entries[key]); err != nil {
			panic(fmt.Sprintf("failed to update stack trie: %v", err))
		}
	}
	return stack.Hash()
}

func (a *account) toRlp() *rlpAccount {
	tokens := maps.Keys(a.balances)
	slices.Sort(tokens)
	balances := make([]rlpBalance, 0, len(tokens))
	for _, token := range tokens {
		balance := a.balances[token]
		if balance.IsZero() {
			continue
		}
		balances = append(balances, rlpBalance{Token: uint64(token), Balance: balance.ToBig()})
	}
	codeHash := types.EmptyCodeHash
	if len(a.code) > 0 {
		codeHash = ledger.Keccak256Hash(a.code)
	}
	return &rlpAccount{
		Nonce:       a.nonce,
		Balances:    balances,
		StorageRoot: storageRoot(a.storage),
		CodeHash:    codeHash,
		FullShardId: uint32(a.fullShardId),
	}
}
