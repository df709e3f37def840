// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package loadgen

import (
	"crypto/ecdsa"
	"fmt"
	"strings"
	"sync"

	"github.com/Fantom-foundation/Shardkit/go/config"
	"github.com/Fantom-foundation/Shardkit/go/ledger"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/exp/slices"
)

//go:generate mockgen -source shard.go -destination shard_mock.go -package loadgen

// Shard is the view of the hosting shard required for generating load.
type Shard interface {
	// Initialized reports whether the shard's state is ready for use.
	Initialized() bool
	// GetTransactionCount returns the current nonce of the given account.
	GetTransactionCount(ledger.Recipient) uint64
	// AddTxList submits a batch of transactions to the pending pool.
	AddTxList([]*ledger.Transaction)
}

// Account is a member of the load test account pool.
type Account struct {
	Address ledger.Address
	Key     *ecdsa.PrivateKey
}

// AccountsFromConfig parses the load test accounts of a configuration,
// retaining their order.
func AccountsFromConfig(accounts []config.AccountConfig) ([]Account, error) {
	res := make([]Account, 0, len(accounts))
	for i, account := range accounts {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(account.Key, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid key of loadtest account %d: %w", i, err)
		}
		res = append(res, Account{Address: account.Address, Key: key})
	}
	return res, nil
}

// MemoryShard is a Shard collecting submitted batches in memory. Nonces are
// read from the wrapped world state, which is not modified.
type MemoryShard struct {
	mu      sync.Mutex
	state   ledger.WorldState
	batches [][]*ledger.Transaction
}

func NewMemoryShard(state ledger.WorldState) *MemoryShard {
	return &MemoryShard{state: state}
}

func (s *MemoryShard) Initialized() bool {
	return s.state != nil
}

func (s *MemoryShard) GetTransactionCount(recipient ledger.Recipient) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetNonce(recipient)
}

func (s *MemoryShard) AddTxList(txs []*ledger.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, slices.Clone(txs))
}

// Batches returns the batches submitted so far.
func (s *MemoryShard) Batches() [][]*ledger.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.batches)
}
