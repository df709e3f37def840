// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package loadgen

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/Fantom-foundation/Shardkit/go/config"
	"github.com/Fantom-foundation/Shardkit/go/ledger"
	"github.com/Fantom-foundation/Shardkit/go/state"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"go.uber.org/mock/gomock"
)

const finney = 1_000_000_000_000_000

func newAccounts(t *testing.T, n int) []Account {
	t.Helper()
	res := make([]Account, 0, n)
	for i := 0; i < n; i++ {
		key, err := crypto.GenerateKey()
		if err != nil {
			t.Fatalf("failed to generate key: %v", err)
		}
		address := ledger.NewAddress(ledger.Recipient(crypto.PubkeyToAddress(key.PublicKey)), ledger.FullShardId(i<<8))
		res = append(res, Account{Address: address, Key: key})
	}
	return res
}

func sampleTx() ledger.TxData {
	return ledger.TxData{GasPrice: *uint256.NewInt(1), GasLimit: 30_000}
}

func fastConfig() Config {
	return Config{
		ShardSize:  4,
		ShardIndex: 1,
		NetworkId:  3,
		MinPause:   1,
		MaxPause:   2,
		PauseUnit:  time.Millisecond,
		Seed:       42,
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		Idle:       "idle",
		Generating: "generating",
		State(7):   "State(7)",
	}
	for state, want := range tests {
		if got := state.String(); want != got {
			t.Errorf("unexpected print, want %q, got %q", want, got)
		}
	}
}

func TestAccountsFromConfig(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	address := ledger.NewAddress(ledger.Recipient(crypto.PubkeyToAddress(key.PublicKey)), 5)
	encoded := "0x" + hex.EncodeToString(crypto.FromECDSA(key))
	accounts, err := AccountsFromConfig([]config.AccountConfig{{Address: address, Key: encoded}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := address, accounts[0].Address; want != got {
		t.Errorf("unexpected address, want %v, got %v", want, got)
	}
	if !accounts[0].Key.Equal(key) {
		t.Errorf("unexpected key")
	}

	if _, err := AccountsFromConfig([]config.AccountConfig{{Address: address, Key: "0xzz"}}); err == nil {
		t.Errorf("invalid key should be rejected")
	}
}

func TestGenerator_ZeroTransactionsEndsIdle(t *testing.T) {
	ctrl := gomock.NewController(t)
	shard := NewMockShard(ctrl)
	shard.EXPECT().Initialized().Return(true)

	gen := New(fastConfig(), shard, newAccounts(t, 2))
	if !gen.Generate(0, 0, sampleTx()) {
		t.Fatalf("generation should start")
	}
	gen.Wait()
	if want, got := Idle, gen.State(); want != got {
		t.Errorf("unexpected state, want %v, got %v", want, got)
	}
	// A new run may be started afterwards.
	shard.EXPECT().Initialized().Return(true)
	if !gen.Generate(-1, 0, sampleTx()) {
		t.Errorf("generation should start again")
	}
	gen.Wait()
}

func TestGenerator_UninitializedShardIsRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	shard := NewMockShard(ctrl)
	shard.EXPECT().Initialized().Return(false)

	gen := New(fastConfig(), shard, newAccounts(t, 2))
	if gen.Generate(10, 0, sampleTx()) {
		t.Errorf("generation on uninitialized shard should be rejected")
	}
	if want, got := Idle, gen.State(); want != got {
		t.Errorf("unexpected state, want %v, got %v", want, got)
	}
}

func TestGenerator_OnlyOneRunAtATime(t *testing.T) {
	ctrl := gomock.NewController(t)
	shard := NewMockShard(ctrl)
	release := make(chan struct{})
	shard.EXPECT().Initialized().Return(true)
	shard.EXPECT().GetTransactionCount(gomock.Any()).Return(uint64(0)).AnyTimes()
	shard.EXPECT().AddTxList(gomock.Any()).Do(func([]*ledger.Transaction) { <-release })

	gen := New(fastConfig(), shard, newAccounts(t, 1))
	if !gen.Generate(1, 0, sampleTx()) {
		t.Fatalf("generation should start")
	}
	if want, got := Generating, gen.State(); want != got {
		t.Errorf("unexpected state, want %v, got %v", want, got)
	}
	if gen.Generate(1, 0, sampleTx()) {
		t.Errorf("second generation should be rejected while running")
	}
	close(release)
	gen.Wait()
	if want, got := Idle, gen.State(); want != got {
		t.Errorf("unexpected state, want %v, got %v", want, got)
	}
}

func TestGenerator_TransactionsAreSubmittedInBatches(t *testing.T) {
	tests := map[string]struct {
		accounts int
		numTx    int
		sizes    []int
	}{
		"exact":          {accounts: 6, numTx: 6, sizes: []int{3, 3}},
		"remainder":      {accounts: 7, numTx: 7, sizes: []int{3, 3, 1}},
		"limited":        {accounts: 7, numTx: 4, sizes: []int{3, 1}},
		"pool exhausted": {accounts: 4, numTx: 10, sizes: []int{3, 1}},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			config := fastConfig()
			config.BatchSize = 3
			shard := NewMemoryShard(state.New(0))
			gen := New(config, shard, newAccounts(t, test.accounts))
			if !gen.Generate(test.numTx, 0, sampleTx()) {
				t.Fatalf("generation should start")
			}
			gen.Wait()

			batches := shard.Batches()
			if want, got := len(test.sizes), len(batches); want != got {
				t.Fatalf("unexpected number of batches, want %d, got %d", want, got)
			}
			for i, batch := range batches {
				if want, got := test.sizes[i], len(batch); want != got {
					t.Errorf("unexpected size of batch %d, want %d, got %d", i, want, got)
				}
			}
		})
	}
}

func TestGenerator_DefaultBatchSize(t *testing.T) {
	gen := New(Config{}, NewMemoryShard(state.New(0)), nil)
	if want, got := DefaultBatchSize, gen.config.BatchSize; want != got {
		t.Errorf("unexpected batch size, want %d, got %d", want, got)
	}
	if want, got := time.Second, gen.config.PauseUnit; want != got {
		t.Errorf("unexpected pause unit, want %v, got %v", want, got)
	}
}

func TestGenerator_CloseAbortsPause(t *testing.T) {
	config := fastConfig()
	config.BatchSize = 1
	config.PauseUnit = time.Hour
	shard := NewMemoryShard(state.New(0))
	gen := New(config, shard, newAccounts(t, 5))
	if !gen.Generate(5, 0, sampleTx()) {
		t.Fatalf("generation should start")
	}
	gen.Close()
	if want, got := Idle, gen.State(); want != got {
		t.Errorf("unexpected state, want %v, got %v", want, got)
	}
	if want, got := 1, len(shard.Batches()); want != got {
		t.Errorf("unexpected number of batches, want %d, got %d", want, got)
	}
}

func TestGenerator_NoncesAreTakenFromShard(t *testing.T) {
	accounts := newAccounts(t, 1)
	ws := state.New(0)
	ws.SetNonce(accounts[0].Address.Recipient, 12)
	ws.Commit(ledger.AllowEmpties)

	shard := NewMemoryShard(ws)
	gen := New(fastConfig(), shard, accounts)
	gen.Generate(1, 0, sampleTx())
	gen.Wait()

	batches := shard.Batches()
	if len(batches) != 1 || len(batches[0]) != 1 {
		t.Fatalf("unexpected batches: %v", batches)
	}
	tx := batches[0][0]
	if want, got := uint64(12), tx.Nonce(); want != got {
		t.Errorf("unexpected nonce, want %d, got %d", want, got)
	}
	sender, err := tx.Sender()
	if err != nil {
		t.Fatalf("failed to recover sender: %v", err)
	}
	if want, got := accounts[0].Address.Recipient, sender; want != got {
		t.Errorf("unexpected sender, want %v, got %v", want, got)
	}
	if want, got := uint32(3), tx.NetworkId(); want != got {
		t.Errorf("unexpected network id, want %d, got %d", want, got)
	}
	if want, got := ledger.DefaultTokenId, tx.TransferTokenId(); want != got {
		t.Errorf("unexpected token, want %d, got %d", want, got)
	}
}

func TestCreateTransaction_SenderIsRelocatedToOwnShard(t *testing.T) {
	accounts := newAccounts(t, 8)
	gen := New(fastConfig(), NewMemoryShard(state.New(0)), accounts)
	for _, account := range accounts {
		tx := gen.CreateTransaction(account, 0, 0, sampleTx())
		if tx == nil {
			t.Fatalf("failed to create transaction")
		}
		if want, got := uint32(1), ledger.ShardOf(tx.FromFullShardId(), 4); want != got {
			t.Errorf("sender not in own shard, want %d, got %d", want, got)
		}
		if want, got := uint32(1), ledger.ShardOf(tx.ToFullShardId(), 4); want != got {
			t.Errorf("recipient not in own shard, want %d, got %d", want, got)
		}
		if want, got := account.Address.FullShardId>>2, tx.FromFullShardId()>>2; want != got {
			t.Errorf("high bits of sender changed, want %v, got %v", want, got)
		}
	}
}

func TestCreateTransaction_SampleOfOtherShardIsRejected(t *testing.T) {
	accounts := newAccounts(t, 1)
	gen := New(fastConfig(), NewMemoryShard(state.New(0)), accounts)

	sample := sampleTx()
	sample.FromFullShardId = ledger.WithShard(0x100, 4, 2)
	if tx := gen.CreateTransaction(accounts[0], 0, 0, sample); tx != nil {
		t.Errorf("transaction of other shard should not be created")
	}

	sample.FromFullShardId = ledger.WithShard(0x100, 4, 1)
	tx := gen.CreateTransaction(accounts[0], 0, 0, sample)
	if tx == nil {
		t.Fatalf("transaction of own shard should be created")
	}
	if want, got := sample.FromFullShardId, tx.FromFullShardId(); want != got {
		t.Errorf("unexpected sender shard id, want %v, got %v", want, got)
	}
}

func TestCreateTransaction_CrossShardTargetsOtherShards(t *testing.T) {
	accounts := newAccounts(t, 4)
	gen := New(fastConfig(), NewMemoryShard(state.New(0)), accounts)
	seen := map[uint32]bool{}
	for i := 0; i < 200; i++ {
		tx := gen.CreateTransaction(accounts[i%len(accounts)], 0, 100, sampleTx())
		target := ledger.ShardOf(tx.ToFullShardId(), 4)
		if target == 1 {
			t.Fatalf("cross shard transaction targets own shard")
		}
		seen[target] = true
	}
	if want, got := 3, len(seen); want != got {
		t.Errorf("unexpected number of target shards, want %d, got %d", want, got)
	}
}

func TestCreateTransaction_SingleShardNeverCrosses(t *testing.T) {
	config := fastConfig()
	config.ShardSize = 1
	config.ShardIndex = 0
	accounts := newAccounts(t, 2)
	gen := New(config, NewMemoryShard(state.New(0)), accounts)
	for i := 0; i < 20; i++ {
		tx := gen.CreateTransaction(accounts[0], 0, 100, sampleTx())
		if tx == nil {
			t.Fatalf("failed to create transaction")
		}
	}
}

func TestCreateTransaction_FixedRecipientStaysOnSenderShard(t *testing.T) {
	accounts := newAccounts(t, 1)
	gen := New(fastConfig(), NewMemoryShard(state.New(0)), accounts)
	recipient := ledger.Recipient{0x42}
	sample := sampleTx()
	sample.To = &recipient

	tx := gen.CreateTransaction(accounts[0], 0, 0, sample)
	if want, got := recipient, *tx.To(); want != got {
		t.Errorf("unexpected recipient, want %v, got %v", want, got)
	}
	if want, got := tx.FromFullShardId(), tx.ToFullShardId(); want != got {
		t.Errorf("recipient shard id should match sender, want %v, got %v", want, got)
	}
}

func TestCreateTransaction_ValueIsRandomForPlainTransfers(t *testing.T) {
	accounts := newAccounts(t, 2)
	gen := New(fastConfig(), NewMemoryShard(state.New(0)), accounts)
	unit := uint256.NewInt(finney)
	for i := 0; i < 100; i++ {
		tx := gen.CreateTransaction(accounts[0], 0, 0, sampleTx())
		value := tx.Value()
		var quotient, remainder uint256.Int
		quotient.DivMod(&value, unit, &remainder)
		if !remainder.IsZero() || quotient.IsZero() || quotient.GtUint64(100) {
			t.Fatalf("unexpected value %v", value.Dec())
		}
	}

	sample := sampleTx()
	sample.Data = []byte{1, 2, 3}
	sample.Value = *uint256.NewInt(7)
	tx := gen.CreateTransaction(accounts[0], 0, 0, sample)
	if want, got := uint256.NewInt(7), tx.Value(); !want.Eq(&got) {
		t.Errorf("value of transaction with payload should be kept, want %v, got %v", want, got.Dec())
	}
}

func TestGenerator_PauseDurationIsContinuous(t *testing.T) {
	config := fastConfig()
	config.MinPause, config.MaxPause = 8, 12
	config.PauseUnit = time.Second
	gen := New(config, NewMemoryShard(state.New(0)), nil)

	fractional := false
	for i := 0; i < 100; i++ {
		pause := gen.pauseDuration()
		if pause < 8*time.Second || pause > 12*time.Second {
			t.Fatalf("pause %v out of range", pause)
		}
		if pause%time.Second != 0 {
			fractional = true
		}
	}
	if !fractional {
		t.Errorf("pauses should not be restricted to whole units")
	}
}
