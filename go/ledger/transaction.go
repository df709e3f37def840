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
	"bytes"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// TxData summarizes the unsigned parameters of a transaction.
type TxData struct {
	Nonce           uint64
	GasPrice        uint256.Int
	GasLimit        uint64
	To              *Recipient // nil if no recipient is fixed
	Value           uint256.Int
	Data            []byte
	FromFullShardId FullShardId
	ToFullShardId   FullShardId
	GasTokenId      TokenId
	TransferTokenId TokenId
	NetworkId       uint32
}

func (d TxData) clone() TxData {
	res := d
	if d.To != nil {
		to := *d.To
		res.To = &to
	}
	res.Data = bytes.Clone(d.Data)
	return res
}

// TxBuilder assembles a transaction. Builders are mutable; the transactions
// they produce are not. Every finalizing call produces an independent
// transaction, so a builder may be reused as a template.
type TxBuilder struct {
	data TxData
}

// NewTxBuilder creates a builder initialized with a copy of the template.
func NewTxBuilder(template TxData) *TxBuilder {
	return &TxBuilder{data: template.clone()}
}

func (b *TxBuilder) SetNonce(nonce uint64) *TxBuilder {
	b.data.Nonce = nonce
	return b
}

func (b *TxBuilder) SetGasPrice(price uint256.Int) *TxBuilder {
	b.data.GasPrice = price
	return b
}

func (b *TxBuilder) SetGasLimit(limit uint64) *TxBuilder {
	b.data.GasLimit = limit
	return b
}

func (b *TxBuilder) SetTo(to *Recipient) *TxBuilder {
	if to == nil {
		b.data.To = nil
	} else {
		recipient := *to
		b.data.To = &recipient
	}
	return b
}

func (b *TxBuilder) SetValue(value uint256.Int) *TxBuilder {
	b.data.Value = value
	return b
}

func (b *TxBuilder) SetData(data []byte) *TxBuilder {
	b.data.Data = bytes.Clone(data)
	return b
}

func (b *TxBuilder) SetFromFullShardId(id FullShardId) *TxBuilder {
	b.data.FromFullShardId = id
	return b
}

func (b *TxBuilder) SetToFullShardId(id FullShardId) *TxBuilder {
	b.data.ToFullShardId = id
	return b
}

func (b *TxBuilder) SetTokens(gasTokenId, transferTokenId TokenId) *TxBuilder {
	b.data.GasTokenId = gasTokenId
	b.data.TransferTokenId = transferTokenId
	return b
}

func (b *TxBuilder) SetNetworkId(id uint32) *TxBuilder {
	b.data.NetworkId = id
	return b
}

// Sign finalizes the transaction by signing it with the given key.
func (b *TxBuilder) Sign(key *ecdsa.PrivateKey) (*Transaction, error) {
	data := b.data.clone()
	hash := signingHash(&data)
	sig, err := crypto.Sign(hash[:], key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	tx := &Transaction{data: data, v: sig[64] + 27}
	tx.r.SetBytes(sig[:32])
	tx.s.SetBytes(sig[32:64])
	return tx, nil
}

// WithSignature finalizes the transaction using a precomputed signature.
// The signature is not checked; an invalid signature surfaces when the
// sender is recovered.
func (b *TxBuilder) WithSignature(v uint8, r, s uint256.Int) *Transaction {
	return &Transaction{data: b.data.clone(), v: v, r: r, s: s}
}

// Transaction is a finalized, immutable transaction.
type Transaction struct {
	data TxData
	v    uint8
	r, s uint256.Int
}

func (t *Transaction) Nonce() uint64                { return t.data.Nonce }
func (t *Transaction) GasPrice() uint256.Int        { return t.data.GasPrice }
func (t *Transaction) GasLimit() uint64             { return t.data.GasLimit }
func (t *Transaction) Value() uint256.Int           { return t.data.Value }
func (t *Transaction) Data() []byte                 { return bytes.Clone(t.data.Data) }
func (t *Transaction) FromFullShardId() FullShardId { return t.data.FromFullShardId }
func (t *Transaction) ToFullShardId() FullShardId   { return t.data.ToFullShardId }
func (t *Transaction) GasTokenId() TokenId          { return t.data.GasTokenId }
func (t *Transaction) TransferTokenId() TokenId     { return t.data.TransferTokenId }
func (t *Transaction) NetworkId() uint32            { return t.data.NetworkId }

// To returns the recipient of the transaction, nil if none is set.
func (t *Transaction) To() *Recipient {
	if t.data.To == nil {
		return nil
	}
	to := *t.data.To
	return &to
}

// TxData returns a copy of the unsigned parameters, suitable as a template
// for a new builder.
func (t *Transaction) TxData() TxData {
	return t.data.clone()
}

// Signature returns the v, r and s components of the signature.
func (t *Transaction) Signature() (uint8, uint256.Int, uint256.Int) {
	return t.v, t.r, t.s
}

// SigningHash is the digest covered by the signature.
func (t *Transaction) SigningHash() Hash {
	return signingHash(&t.data)
}

// Hash identifies the signed transaction.
func (t *Transaction) Hash() Hash {
	encoded, err := rlp.EncodeToBytes(t.toRlp(true))
	if err != nil {
		panic(fmt.Sprintf("failed to encode transaction: %v", err))
	}
	return Keccak256Hash(encoded)
}

// Sender recovers the recipient part of the sender address from the
// signature.
func (t *Transaction) Sender() (Recipient, error) {
	if t.v != 27 && t.v != 28 {
		return Recipient{}, fmt.Errorf("%w: invalid v %d", ErrNotSigned, t.v)
	}
	sig := make([]byte, 65)
	r, s := t.r.Bytes32(), t.s.Bytes32()
	copy(sig[:32], r[:])
	copy(sig[32:64], s[:])
	sig[64] = t.v - 27
	hash := t.SigningHash()
	pub, err := crypto.SigToPub(hash[:], sig)
	if err != nil {
		return Recipient{}, fmt.Errorf("%w: %v", ErrNotSigned, err)
	}
	return Recipient(crypto.PubkeyToAddress(*pub)), nil
}

func (t *Transaction) String() string {
	to := "<none>"
	if t.data.To != nil {
		to = t.data.To.String()
	}
	return fmt.Sprintf(
		"tx{nonce: %d, to: %v, value: %v, from shard: %v, to shard: %v, gas: %d}",
		t.data.Nonce, to, t.data.Value.Dec(), t.data.FromFullShardId, t.data.ToFullShardId, t.data.GasLimit,
	)
}

// rlpTransaction is the wire layout of a transaction. The network id is part
// of the signed payload to prevent replays across networks.
type rlpTransaction struct {
	Nonce           uint64
	GasPrice        *big.Int
	GasLimit        uint64
	To              []byte
	Value           *big.Int
	Data            []byte
	NetworkId       uint32
	FromFullShardId uint32
	ToFullShardId   uint32
	GasTokenId      uint64
	TransferTokenId uint64
	V               uint8    `rlp:"optional"`
	R               *big.Int `rlp:"optional"`
	S               *big.Int `rlp:"optional"`
}

func (t *Transaction) toRlp(withSignature bool) *rlpTransaction {
	res := unsignedRlp(&t.data)
	if withSignature {
		res.V = t.v
		res.R = t.r.ToBig()
		res.S = t.s.ToBig()
	}
	return res
}

func unsignedRlp(data *TxData) *rlpTransaction {
	var to []byte
	if data.To != nil {
		to = data.To[:]
	}
	return &rlpTransaction{
		Nonce:           data.Nonce,
		GasPrice:        data.GasPrice.ToBig(),
		GasLimit:        data.GasLimit,
		To:              to,
		Value:           data.Value.ToBig(),
		Data:            data.Data,
		NetworkId:       data.NetworkId,
		FromFullShardId: uint32(data.FromFullShardId),
		ToFullShardId:   uint32(data.ToFullShardId),
		GasTokenId:      uint64(data.GasTokenId),
		TransferTokenId: uint64(data.TransferTokenId),
	}
}

func signingHash(data *TxData) Hash {
	encoded, err := rlp.EncodeToBytes(unsignedRlp(data))
	if err != nil {
		panic(fmt.Sprintf("failed to encode transaction: %v", err))
	}
	return Keccak256Hash(encoded)
}
