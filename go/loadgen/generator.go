// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package loadgen synthesizes signed transactions from a fixed account pool
// and submits them in batches to a shard's pending pool.
package loadgen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Fantom-foundation/Shardkit/go/ledger"
	"github.com/dsnet/golib/unitconv"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"pgregory.net/rand"
)

const (
	DefaultBatchSize = 600
	DefaultMinPause  = 8
	DefaultMaxPause  = 12
)

// Config configures a generator for one shard. Zero values of the batch
// and pause settings are replaced by their defaults.
type Config struct {
	ShardSize  ledger.ShardSize
	ShardIndex uint32
	NetworkId  uint32
	BatchSize  int
	// After each submitted batch the generator pauses for a uniformly
	// distributed duration of [MinPause, MaxPause) pause units.
	MinPause  int
	MaxPause  int
	PauseUnit time.Duration
	Seed      uint64
}

func (c *Config) setDefaults() {
	if c.ShardSize == 0 {
		c.ShardSize = 1
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MinPause <= 0 && c.MaxPause <= 0 {
		c.MinPause, c.MaxPause = DefaultMinPause, DefaultMaxPause
	}
	if c.MaxPause < c.MinPause {
		c.MaxPause = c.MinPause
	}
	if c.PauseUnit <= 0 {
		c.PauseUnit = time.Second
	}
}

type State int

const (
	Idle State = iota
	Generating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Generating:
		return "generating"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Generator produces load for a single shard. At most one generation run is
// active at any time; all transitions between Idle and Generating happen
// under the generator's lock.
type Generator struct {
	config   Config
	shard    Shard
	accounts []Account
	logger   log.Logger

	mu     sync.Mutex
	state  State
	done   chan struct{}
	cancel context.CancelFunc

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func New(config Config, shard Shard, accounts []Account) *Generator {
	config.setDefaults()
	return &Generator{
		config:   config,
		shard:    shard,
		accounts: accounts,
		logger:   log.Root(),
		rnd:      rand.New(config.Seed),
	}
}

func (g *Generator) WithLogger(logger log.Logger) *Generator {
	g.logger = logger
	return g
}

func (g *Generator) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Generate starts a background run producing up to numTx transactions, of
// which roughly crossShardPercent percent target another shard. The sample
// transaction provides gas settings, payload and optional fixed sender shard
// and recipient. It returns false without any effect if a run is already in
// progress or the shard is not initialized.
func (g *Generator) Generate(numTx int, crossShardPercent int, sample ledger.TxData) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == Generating || !g.shard.Initialized() {
		return false
	}
	g.state = Generating
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	g.done, g.cancel = done, cancel
	go func() {
		defer close(done)
		defer g.finish(cancel)
		g.run(ctx, numTx, crossShardPercent, sample)
	}()
	return true
}

func (g *Generator) finish(cancel context.CancelFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cancel()
	g.state = Idle
}

// Wait blocks until the current run, if any, has finished.
func (g *Generator) Wait() {
	g.mu.Lock()
	done := g.done
	g.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Close aborts the current run at its next pause and waits for it to end.
func (g *Generator) Close() {
	g.mu.Lock()
	cancel := g.cancel
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	g.Wait()
}

func (g *Generator) run(ctx context.Context, numTx int, crossShardPercent int, sample ledger.TxData) {
	logger := g.logger.New("shard", g.config.ShardIndex)
	logger.Info("Start generating transactions", "count", numTx, "cross_shard_percent", crossShardPercent)
	if numTx <= 0 {
		return
	}

	start := time.Now()
	total := 0
	batch := make([]*ledger.Transaction, 0, g.config.BatchSize)
	for _, account := range g.accounts {
		nonce := g.shard.GetTransactionCount(account.Address.Recipient)
		tx := g.CreateTransaction(account, nonce, crossShardPercent, sample)
		if tx == nil {
			continue
		}
		batch = append(batch, tx)
		total++
		if len(batch) < g.config.BatchSize && total < numTx {
			continue
		}
		g.shard.AddTxList(batch)
		batch = make([]*ledger.Transaction, 0, g.config.BatchSize)
		if total >= numTx || !g.pause(ctx) {
			break
		}
	}
	if len(batch) > 0 {
		g.shard.AddTxList(batch)
	}

	elapsed := time.Since(start)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(total) / elapsed.Seconds()
	}
	logger.Info("Generated transactions",
		"count", total,
		"elapsed", elapsed.Round(time.Millisecond),
		"rate", unitconv.FormatPrefix(rate, unitconv.SI, 1)+"tx/s",
	)
}

// pause suspends the run between batches. It returns false if the run got
// cancelled meanwhile.
func (g *Generator) pause(ctx context.Context) bool {
	timer := time.NewTimer(g.pauseDuration())
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// pauseDuration draws a uniformly distributed duration between MinPause and
// MaxPause pause units.
func (g *Generator) pauseDuration() time.Duration {
	g.rndMu.Lock()
	units := float64(g.config.MinPause) + g.rnd.Float64()*float64(g.config.MaxPause-g.config.MinPause)
	g.rndMu.Unlock()
	return time.Duration(units * float64(g.config.PauseUnit))
}

// CreateTransaction builds and signs a transaction sent by the given account
// based on the sample transaction. It returns nil if the sample is bound to
// a different shard or the transaction can not be signed.
func (g *Generator) CreateTransaction(account Account, nonce uint64, crossShardPercent int, sample ledger.TxData) *ledger.Transaction {
	size, shard := g.config.ShardSize, g.config.ShardIndex

	if sample.FromFullShardId != 0 && ledger.ShardOf(sample.FromFullShardId, size) != shard {
		return nil
	}
	from := sample.FromFullShardId
	if from == 0 {
		from = ledger.WithShard(account.Address.FullShardId, size, shard)
	}

	g.rndMu.Lock()
	defer g.rndMu.Unlock()

	var recipient ledger.Recipient
	var to ledger.FullShardId
	if sample.To == nil {
		if len(g.accounts) == 0 {
			return nil
		}
		target := g.accounts[g.rnd.Intn(len(g.accounts))].Address
		recipient = target.Recipient
		to = ledger.WithShard(target.FullShardId, size, shard)
	} else {
		recipient = *sample.To
		to = from
	}

	if size > 1 && g.rnd.Intn(100)+1 <= crossShardPercent {
		toShard := uint32(g.rnd.Intn(int(size)))
		if toShard == shard {
			toShard = (toShard + 1) % uint32(size)
		}
		to = ledger.WithShard(to, size, toShard)
	}

	value := sample.Value
	if len(sample.Data) == 0 {
		value.Mul(uint256.NewInt(uint64(g.rnd.Intn(100)+1)), uint256.NewInt(1_000_000_000_000_000))
	}

	tx, err := ledger.NewTxBuilder(sample).
		SetNonce(nonce).
		SetTo(&recipient).
		SetValue(value).
		SetFromFullShardId(from).
		SetToFullShardId(to).
		SetTokens(ledger.DefaultTokenId, ledger.DefaultTokenId).
		SetNetworkId(g.config.NetworkId).
		Sign(account.Key)
	if err != nil {
		g.logger.Warn("Failed to sign transaction", "sender", account.Address, "err", err)
		return nil
	}
	return tx
}
