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
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	cliUtils "github.com/Fantom-foundation/Shardkit/go/ct/driver/cli"
	"github.com/Fantom-foundation/Shardkit/go/genesis"
	"github.com/Fantom-foundation/Shardkit/go/ledger"
	"github.com/Fantom-foundation/Shardkit/go/loadgen"
	"github.com/dsnet/golib/unitconv"
	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var LoadgenCmd = cliUtils.AddCommonFlags(cli.Command{
	Action: doLoadgen,
	Name:   "loadgen",
	Usage:  "Generates transactions for a shard against its in-memory genesis state",
	Flags: []cli.Flag{
		cliUtils.ConfigFlag,
		cliUtils.SeedFlag,
		&cli.UintFlag{
			Name:  "shard",
			Usage: "index of the shard to generate transactions for",
		},
		&cli.IntFlag{
			Name:  "count",
			Usage: "number of transactions to generate",
			Value: loadgen.DefaultBatchSize,
		},
		&cli.IntFlag{
			Name:  "cross-shard",
			Usage: "percentage of transactions targeting another shard",
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "number of transactions submitted at once",
			Value: loadgen.DefaultBatchSize,
		},
		&cli.DurationFlag{
			Name:  "pause-unit",
			Usage: "unit of the random pause between batches",
			Value: time.Millisecond,
		},
		&cli.Uint64Flag{
			Name:  "gas-price",
			Usage: "gas price of generated transactions",
			Value: 1,
		},
		&cli.Uint64Flag{
			Name:  "gas-limit",
			Usage: "gas limit of generated transactions",
			Value: 30_000,
		},
	},
})

func doLoadgen(context *cli.Context) error {
	cfg, err := cliUtils.ConfigFlag.Fetch(context)
	if err != nil {
		return err
	}
	shardIndex := uint32(context.Uint("shard"))
	if shardIndex >= uint32(cfg.ShardSize) {
		return fmt.Errorf("shard index %d out of range for %d shards", shardIndex, cfg.ShardSize)
	}
	accounts, err := loadgen.AccountsFromConfig(cfg.LoadtestAccounts)
	if err != nil {
		return err
	}

	builder, err := genesis.NewBuilder(cfg)
	if err != nil {
		return err
	}
	_, ws, err := buildShardGenesis(builder, builder.CreateRootBlock(), shardIndex)
	if err != nil {
		return err
	}

	shard := loadgen.NewMemoryShard(ws)
	generator := loadgen.New(loadgen.Config{
		ShardSize:  cfg.ShardSize,
		ShardIndex: shardIndex,
		NetworkId:  cfg.NetworkId,
		BatchSize:  context.Int("batch-size"),
		PauseUnit:  context.Duration("pause-unit"),
		Seed:       cliUtils.SeedFlag.Fetch(context),
	}, shard, accounts)

	sample := ledger.TxData{
		GasPrice: *uint256.NewInt(context.Uint64("gas-price")),
		GasLimit: context.Uint64("gas-limit"),
	}
	count := context.Int("count")
	start := time.Now()
	if !generator.Generate(count, context.Int("cross-shard"), sample) {
		return fmt.Errorf("failed to start generation on shard %d", shardIndex)
	}

	ctx, stop := signal.NotifyContext(context.Context, os.Interrupt)
	defer stop()
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		generator.Wait()
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		generator.Close()
	}

	stats := newShardStatistics()
	for _, batch := range shard.Batches() {
		stats.registerBatch(batch, cfg.ShardSize)
	}
	elapsed := time.Since(start)
	fmt.Printf("Generated %d transactions in %d batches within %v (~%s tx/s)\n",
		stats.numTransactions(), stats.numBatches, elapsed.Round(time.Millisecond),
		unitconv.FormatPrefix(float64(stats.numTransactions())/elapsed.Seconds(), unitconv.SI, 0),
	)
	fmt.Printf("%v", stats)
	return nil
}

// shardStatistics counts generated transactions per target shard.
type shardStatistics struct {
	data       map[uint32]uint64
	numBatches int
	mu         sync.Mutex
}

func newShardStatistics() *shardStatistics {
	return &shardStatistics{data: map[uint32]uint64{}}
}

func (s *shardStatistics) registerBatch(batch []*ledger.Transaction, size ledger.ShardSize) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.numBatches++
	for _, tx := range batch {
		s.data[ledger.ShardOf(tx.ToFullShardId(), size)]++
	}
}

func (s *shardStatistics) numTransactions() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := uint64(0)
	for _, count := range s.data {
		total += count
	}
	return total
}

func (s *shardStatistics) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	builder := strings.Builder{}

	shards := maps.Keys(s.data)
	slices.Sort(shards)

	builder.WriteString("target_shard,num_tx\n")
	for _, shard := range shards {
		builder.WriteString(fmt.Sprintf("%d,%d\n", shard, s.data[shard]))
	}
	return builder.String()
}
