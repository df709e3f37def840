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
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

func testTxData() TxData {
	to := Recipient{0xaa}
	return TxData{
		Nonce:           3,
		GasPrice:        *uint256.NewInt(1),
		GasLimit:        21_000,
		To:              &to,
		Value:           *uint256.NewInt(1000),
		Data:            []byte{1, 2, 3},
		FromFullShardId: 0x00010000,
		ToFullShardId:   0x00020001,
		GasTokenId:      DefaultTokenId,
		TransferTokenId: DefaultTokenId,
		NetworkId:       7,
	}
}

func TestTransaction_SignAndRecoverSender(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	tx, err := NewTxBuilder(testTxData()).Sign(key)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	sender, err := tx.Sender()
	if err != nil {
		t.Fatalf("failed to recover sender: %v", err)
	}
	if want, got := Recipient(crypto.PubkeyToAddress(key.PublicKey)), sender; want != got {
		t.Errorf("unexpected sender, want %v, got %v", want, got)
	}
}

func TestTransaction_SignatureCoversNetworkId(t *testing.T) {
	key, _ := crypto.GenerateKey()
	builder := NewTxBuilder(testTxData())
	a, _ := builder.Sign(key)
	b, _ := builder.SetNetworkId(8).Sign(key)
	if a.SigningHash() == b.SigningHash() {
		t.Errorf("network id not covered by signing hash")
	}
	if a.Hash() == b.Hash() {
		t.Errorf("different transactions have equal hashes")
	}
}

func TestTransaction_IsNotAffectedByLaterBuilderModifications(t *testing.T) {
	key, _ := crypto.GenerateKey()
	data := testTxData()
	builder := NewTxBuilder(data)
	tx, err := builder.Sign(key)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	hash := tx.Hash()

	builder.SetNonce(99).SetValue(*uint256.NewInt(1)).SetData([]byte{9}).SetTo(&Recipient{0xbb})
	data.Data[0] = 42
	data.To[0] = 42

	if want, got := hash, tx.Hash(); want != got {
		t.Errorf("transaction changed after finalization")
	}
	if want, got := uint64(3), tx.Nonce(); want != got {
		t.Errorf("unexpected nonce, want %d, got %d", want, got)
	}
	if want, got := []byte{1, 2, 3}, tx.Data(); !bytes.Equal(want, got) {
		t.Errorf("unexpected data, want %x, got %x", want, got)
	}
	if want, got := (Recipient{0xaa}), *tx.To(); want != got {
		t.Errorf("unexpected recipient, want %v, got %v", want, got)
	}
}

func TestTransaction_AccessorsReturnCopies(t *testing.T) {
	tx := NewTxBuilder(testTxData()).WithSignature(27, uint256.Int{}, uint256.Int{})
	tx.Data()[0] = 42
	tx.To()[0] = 42
	if tx.Data()[0] != 1 || tx.To()[0] != 0xaa {
		t.Errorf("accessors expose internal state")
	}
}

func TestTransaction_InvalidSignatureHasNoSender(t *testing.T) {
	tests := map[string]*Transaction{
		"unsigned": NewTxBuilder(testTxData()).WithSignature(0, uint256.Int{}, uint256.Int{}),
		"zero-rs":  NewTxBuilder(testTxData()).WithSignature(27, uint256.Int{}, uint256.Int{}),
	}
	for name, tx := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := tx.Sender(); !errors.Is(err, ErrNotSigned) {
				t.Errorf("expected ErrNotSigned, got %v", err)
			}
		})
	}
}

func TestTransaction_WithSignatureReproducesSignedTransaction(t *testing.T) {
	key, _ := crypto.GenerateKey()
	builder := NewTxBuilder(testTxData())
	signed, _ := builder.Sign(key)
	v, r, s := signed.Signature()
	restored := builder.WithSignature(v, r, s)
	if want, got := signed.Hash(), restored.Hash(); want != got {
		t.Errorf("unexpected hash, want %v, got %v", want, got)
	}
	sender, err := restored.Sender()
	if err != nil {
		t.Fatalf("failed to recover sender: %v", err)
	}
	if want, got := Recipient(crypto.PubkeyToAddress(key.PublicKey)), sender; want != got {
		t.Errorf("unexpected sender, want %v, got %v", want, got)
	}
}
