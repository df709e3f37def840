// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package genesis constructs the genesis blocks of the root chain and of
// every shard from a static cluster configuration.
package genesis

import (
	"bytes"
	"fmt"

	"github.com/Fantom-foundation/Shardkit/go/config"
	"github.com/Fantom-foundation/Shardkit/go/ledger"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Builder struct {
	config *config.Config
	logger log.Logger
}

// NewBuilder creates a genesis builder for the given configuration. An
// invalid configuration is reported as an error and should be treated as
// fatal by the host.
func NewBuilder(cfg *config.Config) (*Builder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis configuration: %w", err)
	}
	return &Builder{config: cfg, logger: log.Root()}, nil
}

// WithLogger replaces the logger used for reporting progress.
func (b *Builder) WithLogger(logger log.Logger) *Builder {
	b.logger = logger
	return b
}

// CreateRootBlock builds the genesis block of the root chain. It does not
// touch any state.
func (b *Builder) CreateRootBlock() *RootBlock {
	genesis := b.config.Root.Genesis
	return &RootBlock{
		Header: RootBlockHeader{
			Version:        genesis.Version,
			Height:         genesis.Height,
			ShardInfo:      ledger.NewShardInfo(b.config.ShardSize),
			HashPrevBlock:  ledger.Hash(genesis.HashPrevBlock),
			HashMerkleRoot: ledger.Hash(genesis.HashMerkleRoot),
			CreateTime:     genesis.Timestamp,
			Difficulty:     genesis.Difficulty.Int,
		},
		MinorBlockHeaderList: []MinorBlockHeader{},
	}
}

// CreateMinorBlock builds the genesis block of the given shard. The shard's
// allocation is credited to the given state, which is committed afterwards.
// All configured addresses are checked to belong to the shard before the
// state is modified; a mismatch yields an error wrapping
// ledger.ErrShardMismatch.
func (b *Builder) CreateMinorBlock(root *RootBlock, shardIndex uint32, state ledger.WorldState) (*MinorBlock, error) {
	size := b.config.ShardSize
	if shardIndex >= uint32(size) {
		return nil, fmt.Errorf("shard index %d out of range for %d shards", shardIndex, uint32(size))
	}
	genesis := b.config.Shards[shardIndex].Genesis

	coinbase := genesis.CoinbaseAddress
	if got := coinbase.ShardOf(size); got != shardIndex {
		return nil, fmt.Errorf("%w: coinbase %v belongs to shard %d, not %d", ledger.ErrShardMismatch, coinbase, got, shardIndex)
	}

	addresses := maps.Keys(genesis.Alloc)
	slices.SortFunc(addresses, func(a, b ledger.Address) int {
		return bytes.Compare(a.Bytes(), b.Bytes())
	})
	for _, address := range addresses {
		if got := address.ShardOf(size); got != shardIndex {
			return nil, fmt.Errorf("%w: allocation %v belongs to shard %d, not %d", ledger.ErrShardMismatch, address, got, shardIndex)
		}
	}

	for _, address := range addresses {
		amount := genesis.Alloc[address]
		state.SetFullShardId(address.FullShardId)
		state.AddBalance(address.Recipient, ledger.DefaultTokenId, amount.Int)
	}
	state.Commit(ledger.Strict)

	meta := MinorBlockMeta{
		HashMerkleRoot:   ledger.Hash(genesis.HashMerkleRoot),
		HashEvmStateRoot: state.RootHash(),
		Coinbase:         coinbase,
	}
	header := MinorBlockHeader{
		Version:            genesis.Version,
		Height:             genesis.Height,
		Branch:             ledger.NewBranch(size, shardIndex),
		HashPrevMinorBlock: ledger.Hash(genesis.HashPrevMinorBlock),
		HashPrevRootBlock:  root.Header.Hash(),
		EvmGasLimit:        genesis.GasLimit,
		HashMeta:           meta.Hash(),
		CoinbaseAmount:     genesis.CoinbaseAmount.Int,
		CreateTime:         genesis.Timestamp,
		Difficulty:         genesis.Difficulty.Int,
		ExtraData:          slices.Clone([]byte(genesis.ExtraData)),
	}

	b.logger.Debug("Created genesis minor block",
		"branch", header.Branch,
		"allocations", len(addresses),
		"state_root", meta.HashEvmStateRoot,
	)
	return &MinorBlock{
		Header: header,
		Meta:   meta,
		TxList: []*ledger.Transaction{},
	}, nil
}
