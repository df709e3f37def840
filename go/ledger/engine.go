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

import "github.com/holiman/uint256"

//go:generate mockgen -source engine.go -destination engine_mock.go -package ledger

// Engine is an interface for a component capable of executing transactions.
// Implementations apply one signed transaction to a world state, handling
// nonces, gas payments and value transfers.
type Engine interface {
	// Apply executes the transaction on the given state. Rejections of the
	// transaction itself are reported as errors wrapping
	// ErrInvalidTransaction; the state may still carry partial effects of
	// the rejected transaction. Any other error indicates a failure of the
	// engine.
	Apply(BlockParameters, WorldState, *Transaction) (Receipt, error)
}

// BlockParameters contains information about the block a transaction is
// executed in.
type BlockParameters struct {
	Config         ChainConfig
	Coinbase       Address
	Number         uint64
	Timestamp      uint64
	Difficulty     uint256.Int
	GasLimit       uint64
	PrevHash       Hash
	AncestorHashes []Hash // hashes of the preceding blocks, most recent first
}

// BlockHash returns the hash of the given ancestor block or the zero hash if
// the block is not among the recorded ancestors.
func (p *BlockParameters) BlockHash(number uint64) Hash {
	if number >= p.Number {
		return Hash{}
	}
	distance := p.Number - number - 1
	if distance >= uint64(len(p.AncestorHashes)) {
		return Hash{}
	}
	return p.AncestorHashes[distance]
}

// ChainConfig summarizes the protocol parameters a transaction is executed
// under.
type ChainConfig struct {
	Name      string
	NetworkId uint32
	ShardSize ShardSize
}

// Receipt summarizes the result of the execution of a transaction.
type Receipt struct {
	Success bool   // false if the execution failed after the transaction was accepted
	Output  []byte // the output produced by the transaction
	GasUsed uint64
}
