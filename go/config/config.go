// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package config defines the static cluster configuration: the shard
// layout, the genesis descriptors of the root chain and of every shard, and
// the account pool used for load tests. Configurations are YAML documents;
// since YAML is a superset of JSON, JSON files are accepted as well.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/Fantom-foundation/Shardkit/go/ledger"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ShardSize        ledger.ShardSize `yaml:"shard_size"`
	NetworkId        uint32           `yaml:"network_id"`
	Root             RootConfig       `yaml:"root"`
	Shards           []ShardConfig    `yaml:"shards"`
	LoadtestAccounts []AccountConfig  `yaml:"loadtest_accounts"`
}

type RootConfig struct {
	Genesis RootGenesis `yaml:"genesis"`
}

type RootGenesis struct {
	Version        uint32  `yaml:"version"`
	Height         uint64  `yaml:"height"`
	HashPrevBlock  Hash    `yaml:"hash_prev_block"`
	HashMerkleRoot Hash    `yaml:"hash_merkle_root"`
	Timestamp      uint64  `yaml:"timestamp"`
	Difficulty     Balance `yaml:"difficulty"`
}

type ShardConfig struct {
	Genesis ShardGenesis `yaml:"genesis"`
}

type ShardGenesis struct {
	Version            uint32                     `yaml:"version"`
	Height             uint64                     `yaml:"height"`
	HashPrevMinorBlock Hash                       `yaml:"hash_prev_minor_block"`
	HashMerkleRoot     Hash                       `yaml:"hash_merkle_root"`
	GasLimit           uint64                     `yaml:"gas_limit"`
	CoinbaseAddress    ledger.Address             `yaml:"coinbase_address"`
	CoinbaseAmount     Balance                    `yaml:"coinbase_amount"`
	Difficulty         Balance                    `yaml:"difficulty"`
	Timestamp          uint64                     `yaml:"timestamp"`
	ExtraData          Bytes                      `yaml:"extra_data"`
	Alloc              map[ledger.Address]Balance `yaml:"alloc"`
}

type AccountConfig struct {
	Address ledger.Address `yaml:"address"`
	Key     string         `yaml:"key"`
}

// Load reads and validates the configuration stored in the given file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	res := &Config{}
	if err := yaml.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

// Validate checks the structural consistency of the configuration. Shard
// membership of genesis addresses is checked when the genesis blocks are
// built.
func (c *Config) Validate() error {
	var errs []error
	if err := c.ShardSize.Validate(); err != nil {
		errs = append(errs, err)
	} else if want, got := int(c.ShardSize), len(c.Shards); want != got {
		errs = append(errs, fmt.Errorf("invalid shard list, wanted %d shards, got %d", want, got))
	}
	for i, account := range c.LoadtestAccounts {
		if account.Key == "" {
			errs = append(errs, fmt.Errorf("loadtest account %d has no key", i))
		}
	}
	return errors.Join(errs...)
}

// ChainConfig returns the protocol parameters derived from the cluster
// configuration.
func (c *Config) ChainConfig(name string) ledger.ChainConfig {
	return ledger.ChainConfig{
		Name:      name,
		NetworkId: c.NetworkId,
		ShardSize: c.ShardSize,
	}
}
