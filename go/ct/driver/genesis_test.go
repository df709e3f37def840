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
	"errors"
	"testing"

	"github.com/Fantom-foundation/Shardkit/go/config"
	"github.com/Fantom-foundation/Shardkit/go/genesis"
	"github.com/Fantom-foundation/Shardkit/go/ledger"
)

const singleShardConfig = `
shard_size: 1
network_id: 3
root:
  genesis:
    timestamp: 1519147489
    difficulty: 1000000
shards:
  - genesis:
      gas_limit: 12000000
      coinbase_address: 0x000000000000000000000000000000000000000a00000000
      alloc:
        0x000000000000000000000000000000000000000100000000: 1000
`

func TestBuildShardGenesis_StateHoldsAllocation(t *testing.T) {
	cfg, err := config.Parse([]byte(singleShardConfig))
	if err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}
	builder, err := genesis.NewBuilder(cfg)
	if err != nil {
		t.Fatalf("failed to create builder: %v", err)
	}
	block, ws, err := buildShardGenesis(builder, builder.CreateRootBlock(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := ws.RootHash(), block.Meta.HashEvmStateRoot; want != got {
		t.Errorf("unexpected state root, want %v, got %v", want, got)
	}
	balance := ws.GetBalance(ledger.Recipient{19: 1}, ledger.DefaultTokenId)
	if want, got := uint64(1000), balance.Uint64(); want != got {
		t.Errorf("unexpected balance, want %d, got %d", want, got)
	}
}

func TestBuildShardGenesis_UnknownShardIsReported(t *testing.T) {
	cfg, err := config.Parse([]byte(singleShardConfig))
	if err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}
	builder, err := genesis.NewBuilder(cfg)
	if err != nil {
		t.Fatalf("failed to create builder: %v", err)
	}
	if _, _, err := buildShardGenesis(builder, builder.CreateRootBlock(), 1); err == nil {
		t.Errorf("unknown shard should be reported")
	} else if errors.Is(err, ledger.ErrShardMismatch) {
		t.Errorf("unexpected error kind: %v", err)
	}
}
