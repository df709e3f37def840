// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"

	cliUtils "github.com/Fantom-foundation/Shardkit/go/ct/driver/cli"
	"github.com/Fantom-foundation/Shardkit/go/genesis"
	"github.com/Fantom-foundation/Shardkit/go/ledger"
	"github.com/Fantom-foundation/Shardkit/go/state"
	"github.com/urfave/cli/v2"
)

var GenesisCmd = cli.Command{
	Action: doGenesis,
	Name:   "genesis",
	Usage:  "Builds the genesis blocks of a cluster configuration and prints their hashes",
	Flags: []cli.Flag{
		cliUtils.ConfigFlag,
	},
}

func doGenesis(context *cli.Context) error {
	cfg, err := cliUtils.ConfigFlag.Fetch(context)
	if err != nil {
		return err
	}
	builder, err := genesis.NewBuilder(cfg)
	if err != nil {
		return err
	}

	root := builder.CreateRootBlock()
	fmt.Printf("root: height %d, hash %v\n", root.Header.Height, root.Header.Hash())
	for i := range cfg.Shards {
		block, _, err := buildShardGenesis(builder, root, uint32(i))
		if err != nil {
			return err
		}
		fmt.Printf("shard %d (branch %v): height %d, hash %v, state root %v\n",
			i, block.Header.Branch, block.Header.Height, block.Header.Hash(), block.Meta.HashEvmStateRoot)
	}
	return nil
}

// buildShardGenesis creates the genesis block of the given shard on a fresh
// in-memory state and returns both.
func buildShardGenesis(builder *genesis.Builder, root *genesis.RootBlock, shardIndex uint32) (*genesis.MinorBlock, ledger.WorldState, error) {
	ws := state.New(0)
	block, err := builder.CreateMinorBlock(root, shardIndex, ws)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build genesis of shard %d: %w", shardIndex, err)
	}
	return block, ws, nil
}
