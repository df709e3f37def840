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
	"fmt"
	"math/bits"

	"pgregory.net/rand"
)

// ShardSize is the number of shards of a chain. Valid sizes are powers of two.
type ShardSize uint32

// Validate checks that the shard size is a non-zero power of two.
func (s ShardSize) Validate() error {
	if s == 0 || s&(s-1) != 0 {
		return fmt.Errorf("invalid shard size %d, must be a power of two", uint32(s))
	}
	return nil
}

// Mask returns the bit mask isolating the shard index of a full shard id.
func (s ShardSize) Mask() uint32 {
	return uint32(s) - 1
}

// Log2 returns the number of low bits of a full shard id selecting the shard.
func (s ShardSize) Log2() uint32 {
	return uint32(bits.TrailingZeros32(uint32(s)))
}

// ShardOf returns the shard index encoded in the given full shard id.
func ShardOf(id FullShardId, size ShardSize) uint32 {
	return uint32(id) & size.Mask()
}

// WithShard replaces the shard index bits of id by the given shard index
// while retaining the shard-independent high bits.
func WithShard(id FullShardId, size ShardSize, shardIndex uint32) FullShardId {
	mask := size.Mask()
	return FullShardId(uint32(id)&^mask | shardIndex)
}

// RandomFullShardId draws a uniformly distributed full shard id located in
// the given shard.
func RandomFullShardId(rnd *rand.Rand, size ShardSize, shardIndex uint32) FullShardId {
	return WithShard(FullShardId(uint32(rnd.Uint64())), size, shardIndex)
}

// ShardOf returns the index of the shard the address lives on.
func (a Address) ShardOf(size ShardSize) uint32 {
	return ShardOf(a.FullShardId, size)
}

// WithShard returns a copy of the address moved to the given shard.
func (a Address) WithShard(size ShardSize, shardIndex uint32) Address {
	return Address{
		Recipient:   a.Recipient,
		FullShardId: WithShard(a.FullShardId, size, shardIndex),
	}
}

// Branch identifies a shard within a chain layout. The encoding is the shard
// size (a power of two) or-ed with the shard index.
type Branch uint32

func NewBranch(size ShardSize, shardIndex uint32) Branch {
	return Branch(uint32(size) | shardIndex)
}

// ShardSize recovers the shard size, the highest set bit of the branch.
func (b Branch) ShardSize() ShardSize {
	if b == 0 {
		return 0
	}
	return ShardSize(uint32(1) << (31 - bits.LeadingZeros32(uint32(b))))
}

func (b Branch) ShardIndex() uint32 {
	return uint32(b) & b.ShardSize().Mask()
}

func (b Branch) String() string {
	return fmt.Sprintf("%d/%d", b.ShardIndex(), uint32(b.ShardSize()))
}

// ShardInfo describes the shard layout of a root chain. It stores the
// logarithm of the shard size in its low byte; upper bits are reserved.
type ShardInfo uint32

func NewShardInfo(size ShardSize) ShardInfo {
	return ShardInfo(size.Log2())
}

func (i ShardInfo) ShardSize() ShardSize {
	return ShardSize(uint32(1) << (uint32(i) & 0xff))
}
