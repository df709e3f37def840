// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package fixture

import (
	"strconv"

	"github.com/Fantom-foundation/Shardkit/go/ledger"
	lru "github.com/hashicorp/golang-lru/v2"
)

// MaxAncestors is the number of preceding block hashes visible to a block.
const MaxAncestors = 256

// HeaderCache provides the hashes of the synthetic ancestor blocks of
// fixture environments. The hash of block n is the keccak256 digest of the
// decimal representation of n. A cache is meant to be scoped to a single
// verification run.
type HeaderCache struct {
	hashes *lru.Cache[uint64, ledger.Hash]
}

func NewHeaderCache(size int) *HeaderCache {
	if size <= 0 {
		size = MaxAncestors
	}
	hashes, err := lru.New[uint64, ledger.Hash](size)
	if err != nil {
		panic(err) // only fails for non-positive sizes
	}
	return &HeaderCache{hashes: hashes}
}

func (c *HeaderCache) Hash(number uint64) ledger.Hash {
	if hash, found := c.hashes.Get(number); found {
		return hash
	}
	hash := ledger.Keccak256Hash([]byte(strconv.FormatUint(number, 10)))
	c.hashes.Add(number, hash)
	return hash
}

// AncestorHashes returns the hashes of the up to MaxAncestors blocks
// preceding the given block, most recent first.
func (c *HeaderCache) AncestorHashes(number uint64) []ledger.Hash {
	res := []ledger.Hash{}
	for i := uint64(1); i <= MaxAncestors && i <= number; i++ {
		res = append(res, c.Hash(number-i))
	}
	return res
}
