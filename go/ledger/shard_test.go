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
	"math"
	"testing"

	"pgregory.net/rand"
)

func TestShardSize_Validate(t *testing.T) {
	tests := map[ShardSize]bool{
		0:              false,
		1:              true,
		2:              true,
		3:              false,
		4:              true,
		6:              false,
		64:             true,
		1 << 31:        true,
		math.MaxUint32: false,
	}
	for size, valid := range tests {
		err := size.Validate()
		if want, got := valid, err == nil; want != got {
			t.Errorf("unexpected validation result for %d, want valid %t, got error %v", size, want, err)
		}
	}
}

func TestShardSize_MaskAndLog2(t *testing.T) {
	for log := uint32(0); log < 32; log++ {
		size := ShardSize(1 << log)
		if want, got := uint32(size)-1, size.Mask(); want != got {
			t.Errorf("unexpected mask for %d, want %x, got %x", size, want, got)
		}
		if want, got := log, size.Log2(); want != got {
			t.Errorf("unexpected log2 for %d, want %d, got %d", size, want, got)
		}
	}
}

func TestShardOf_IsolatesLowBits(t *testing.T) {
	if want, got := uint32(3), ShardOf(0xABCD0003, 4); want != got {
		t.Errorf("unexpected shard, want %d, got %d", want, got)
	}
	if want, got := uint32(0), ShardOf(0xFFFFFFFF, 1); want != got {
		t.Errorf("unexpected shard, want %d, got %d", want, got)
	}
}

func TestWithShard_KeepsHighBits(t *testing.T) {
	id := WithShard(0xABCD0003, 8, 5)
	if want, got := FullShardId(0xABCD0005), id; want != got {
		t.Errorf("unexpected full shard id, want %v, got %v", want, got)
	}
}

func TestWithShard_ShardOfRoundTrip(t *testing.T) {
	rnd := rand.New(0)
	for log := uint32(0); log < 12; log++ {
		size := ShardSize(1 << log)
		for i := 0; i < 100; i++ {
			x := FullShardId(uint32(rnd.Uint64()))
			index := uint32(rnd.Uint64n(uint64(size)))
			if want, got := index, ShardOf(WithShard(x, size, index), size); want != got {
				t.Fatalf("round trip failed for x=%v, size=%d, want %d, got %d", x, size, want, got)
			}
		}
	}
}

func TestRandomFullShardId_IsInRequestedShard(t *testing.T) {
	rnd := rand.New(42)
	seen := map[FullShardId]bool{}
	for i := 0; i < 100; i++ {
		id := RandomFullShardId(rnd, 16, 7)
		if want, got := uint32(7), ShardOf(id, 16); want != got {
			t.Fatalf("unexpected shard of random id %v, want %d, got %d", id, want, got)
		}
		seen[id] = true
	}
	if len(seen) < 90 {
		t.Errorf("random full shard ids lack variety, got %d distinct values", len(seen))
	}
}

func TestAddress_WithShard(t *testing.T) {
	address := Address{Recipient: Recipient{1, 2, 3}, FullShardId: 0x10000001}
	moved := address.WithShard(4, 2)
	if moved.Recipient != address.Recipient {
		t.Errorf("recipient changed")
	}
	if want, got := uint32(2), moved.ShardOf(4); want != got {
		t.Errorf("unexpected shard, want %d, got %d", want, got)
	}
	if want, got := FullShardId(0x10000002), moved.FullShardId; want != got {
		t.Errorf("unexpected full shard id, want %v, got %v", want, got)
	}
}

func TestBranch_EncodesSizeAndIndex(t *testing.T) {
	for _, size := range []ShardSize{1, 2, 8, 256} {
		for index := uint32(0); index < uint32(size); index++ {
			branch := NewBranch(size, index)
			if want, got := size, branch.ShardSize(); want != got {
				t.Errorf("unexpected shard size, want %d, got %d", want, got)
			}
			if want, got := index, branch.ShardIndex(); want != got {
				t.Errorf("unexpected shard index, want %d, got %d", want, got)
			}
		}
	}
}

func TestShardInfo_RecoversShardSize(t *testing.T) {
	for _, size := range []ShardSize{1, 2, 4, 1024} {
		if want, got := size, NewShardInfo(size).ShardSize(); want != got {
			t.Errorf("unexpected shard size, want %d, got %d", want, got)
		}
	}
}
