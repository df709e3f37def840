// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package genesis

import (
	"fmt"

	"github.com/Fantom-foundation/Shardkit/go/ledger"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

type RootBlockHeader struct {
	Version        uint32
	Height         uint64
	ShardInfo      ledger.ShardInfo
	HashPrevBlock  ledger.Hash
	HashMerkleRoot ledger.Hash
	CreateTime     uint64
	Difficulty     uint256.Int
}

// Hash is the keccak256 digest of the RLP encoded header.
func (h *RootBlockHeader) Hash() ledger.Hash {
	return rlpHash(h)
}

type RootBlock struct {
	Header               RootBlockHeader
	MinorBlockHeaderList []MinorBlockHeader
}

// MinorBlockMeta holds the shard block fields derived from execution.
type MinorBlockMeta struct {
	HashMerkleRoot   ledger.Hash
	HashEvmStateRoot ledger.Hash
	Coinbase         ledger.Address
}

// Encode returns the RLP encoding of the meta, with the coinbase in its
// 24 byte serialized form.
func (m *MinorBlockMeta) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(rlpMeta{
		HashMerkleRoot:   m.HashMerkleRoot,
		HashEvmStateRoot: m.HashEvmStateRoot,
		Coinbase:         m.Coinbase.Bytes(),
	})
}

func (m *MinorBlockMeta) Hash() ledger.Hash {
	data, err := m.Encode()
	if err != nil {
		panic(fmt.Sprintf("failed to encode minor block meta: %v", err))
	}
	return ledger.Keccak256Hash(data)
}

type rlpMeta struct {
	HashMerkleRoot   ledger.Hash
	HashEvmStateRoot ledger.Hash
	Coinbase         []byte
}

type MinorBlockHeader struct {
	Version            uint32
	Height             uint64
	Branch             ledger.Branch
	HashPrevMinorBlock ledger.Hash
	HashPrevRootBlock  ledger.Hash
	EvmGasLimit        uint64
	HashMeta           ledger.Hash
	CoinbaseAmount     uint256.Int
	CreateTime         uint64
	Difficulty         uint256.Int
	ExtraData          []byte
}

func (h *MinorBlockHeader) Hash() ledger.Hash {
	return rlpHash(h)
}

type MinorBlock struct {
	Header MinorBlockHeader
	Meta   MinorBlockMeta
	TxList []*ledger.Transaction
}

func rlpHash(value any) ledger.Hash {
	data, err := rlp.EncodeToBytes(value)
	if err != nil {
		panic(fmt.Sprintf("failed to encode %T: %v", value, err))
	}
	return ledger.Keccak256Hash(data)
}
