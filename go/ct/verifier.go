// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package ct implements the conformance test of ledger engines. Fixture
// vectors are replayed on a fresh world state and the resulting state roots
// are compared with the ones recorded by a reference implementation.
package ct

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/Fantom-foundation/Shardkit/go/ct/fixture"
	"github.com/Fantom-foundation/Shardkit/go/ct/runner"
	"github.com/Fantom-foundation/Shardkit/go/ct/st"
	"github.com/Fantom-foundation/Shardkit/go/ledger"
	"github.com/Fantom-foundation/Shardkit/go/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const ErrMissingEnv = ledger.ConstError("fixture vector has no env")

// DefaultConfigs returns the protocol configurations supported by default.
// Vectors may list results for further configurations; those are skipped.
func DefaultConfigs() map[string]ledger.ChainConfig {
	return map[string]ledger.ChainConfig{
		"Byzantium": {Name: "Byzantium", NetworkId: 1, ShardSize: 1},
	}
}

// TrialResult is the record of a single transaction variant of a vector.
type TrialResult struct {
	Vector  string
	Config  string
	Indexes fixture.Indexes
	Hash    ledger.Hash
	Diff    st.StateDiff
	Outcome runner.Outcome
}

// MismatchError reports a state root differing from the expected one. It
// carries the state difference produced by the transaction for diagnosis.
type MismatchError struct {
	Vector   string
	Config   string
	Indexes  fixture.Indexes
	Computed ledger.Hash
	Expected string
	Diff     st.StateDiff
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("hash mismatch in %s/%s (%v), computed: %v, supplied: %s\n%v",
		e.Vector, e.Config, e.Indexes, e.Computed, e.Expected, e.Diff)
}

type Verifier struct {
	factory      ledger.EngineFactory
	configs      map[string]ledger.ChainConfig
	headers      *fixture.HeaderCache
	logger       log.Logger
	stateFactory func() ledger.WorldState
}

type Option func(*Verifier)

// WithConfigs replaces the set of supported protocol configurations.
func WithConfigs(configs map[string]ledger.ChainConfig) Option {
	return func(v *Verifier) {
		v.configs = maps.Clone(configs)
	}
}

// WithHeaderCache shares a header cache between verifiers. By default each
// verifier owns its cache.
func WithHeaderCache(cache *fixture.HeaderCache) Option {
	return func(v *Verifier) {
		v.headers = cache
	}
}

func WithLogger(logger log.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// WithStateFactory replaces the world state implementation vectors are
// replayed on.
func WithStateFactory(factory func() ledger.WorldState) Option {
	return func(v *Verifier) {
		v.stateFactory = factory
	}
}

// NewVerifier creates a verifier testing engines produced by the given
// factory, one per protocol configuration.
func NewVerifier(factory ledger.EngineFactory, options ...Option) *Verifier {
	res := &Verifier{
		factory: factory,
		configs: DefaultConfigs(),
		logger:  log.Root(),
		stateFactory: func() ledger.WorldState {
			return state.New(0)
		},
	}
	for _, option := range options {
		option(res)
	}
	if res.headers == nil {
		res.headers = fixture.NewHeaderCache(fixture.MaxAncestors)
	}
	return res
}

// Verify replays all supported trials of the given vector. It stops at the
// first failing trial; a differing state root is reported as
// *MismatchError. The results of all completed trials are returned.
func (v *Verifier) Verify(vector *fixture.Vector) ([]TrialResult, error) {
	if vector.Env == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingEnv, vector.Name)
	}
	ws, err := v.initState(vector)
	if err != nil {
		return nil, fmt.Errorf("invalid pre-state in %s: %w", vector.Name, err)
	}

	results := []TrialResult{}
	names := maps.Keys(vector.Post)
	slices.Sort(names)
	for _, name := range names {
		config, supported := v.configs[name]
		if !supported {
			v.logger.Debug("Skipping unsupported configuration", "vector", vector.Name, "config", name)
			continue
		}
		params, err := v.blockParameters(vector.Env, config)
		if err != nil {
			return results, fmt.Errorf("invalid env in %s: %w", vector.Name, err)
		}
		run := runner.New(ws, v.factory(config))
		for _, entry := range vector.Post[name] {
			result, err := v.runTrial(run, params, vector, name, entry)
			if err != nil {
				return results, err
			}
			results = append(results, result)
		}
	}
	return results, nil
}

func (v *Verifier) initState(vector *fixture.Vector) (ledger.WorldState, error) {
	ws := v.stateFactory()
	recipients := maps.Keys(vector.Pre)
	slices.SortFunc(recipients, func(a, b ledger.Recipient) int {
		return bytes.Compare(a[:], b[:])
	})
	for _, recipient := range recipients {
		account := vector.Pre[recipient]
		nonce, err := account.Nonce.ToUint64()
		if err != nil {
			return nil, fmt.Errorf("nonce of %v: %w", recipient, err)
		}
		ws.SetNonce(recipient, nonce)
		ws.SetBalance(recipient, ledger.DefaultTokenId, account.Balance.Int)
		ws.SetCode(recipient, account.Code)
		for key, value := range account.Storage {
			ws.SetStorage(recipient, ledger.Key(key), ledger.Word(value))
		}
	}
	ws.Commit(ledger.AllowEmpties)
	return ws, nil
}

func (v *Verifier) blockParameters(env *fixture.Env, config ledger.ChainConfig) (ledger.BlockParameters, error) {
	number, err := env.CurrentNumber.ToUint64()
	if err != nil {
		return ledger.BlockParameters{}, fmt.Errorf("block number: %w", err)
	}
	timestamp, err := env.CurrentTimestamp.ToUint64()
	if err != nil {
		return ledger.BlockParameters{}, fmt.Errorf("timestamp: %w", err)
	}
	gasLimit, err := env.CurrentGasLimit.ToUint64()
	if err != nil {
		return ledger.BlockParameters{}, fmt.Errorf("gas limit: %w", err)
	}
	return ledger.BlockParameters{
		Config:         config,
		Coinbase:       ledger.Address{Recipient: env.CurrentCoinbase},
		Number:         number,
		Timestamp:      timestamp,
		Difficulty:     env.CurrentDifficulty.Int,
		GasLimit:       gasLimit,
		PrevHash:       env.PreviousHash,
		AncestorHashes: v.headers.AncestorHashes(number),
	}, nil
}

func (v *Verifier) runTrial(
	run *runner.Runner,
	params ledger.BlockParameters,
	vector *fixture.Vector,
	config string,
	entry fixture.PostEntry,
) (TrialResult, error) {
	snapshot := run.Snapshot()
	defer run.Revert(snapshot)

	logger := v.logger.New("vector", vector.Name, "config", config, "indexes", entry.Indexes)
	prev := run.Dump()

	// Transactions that can not be built are rejected like those failing
	// on execution; their trial still checks the resulting state root.
	var outcome runner.Outcome
	tx, err := vector.Transaction.Build(entry.Indexes, params.Config)
	switch {
	case errors.Is(err, ledger.ErrInvalidTransaction):
		logger.Debug("Transaction rejected", "err", err)
	case err != nil:
		return TrialResult{}, fmt.Errorf("invalid transaction in %s/%s (%v): %w", vector.Name, config, entry.Indexes, err)
	default:
		outcome, err = run.Apply(params, tx)
		if err != nil {
			return TrialResult{}, err
		}
		if !outcome.Success {
			logger.Debug("Transaction failed", "tx", tx.Hash())
		}
	}
	run.Commit(ledger.Strict)
	diff := st.Diff(prev, run.Dump())
	hash := run.RootHash()

	if !digestsMatch(hash, entry.Hash) {
		for _, line := range diff.Entries() {
			logger.Error("State difference", "entry", line)
		}
		return TrialResult{}, &MismatchError{
			Vector:   vector.Name,
			Config:   config,
			Indexes:  entry.Indexes,
			Computed: hash,
			Expected: entry.Hash,
			Diff:     diff,
		}
	}
	for _, line := range diff.Entries() {
		logger.Debug("State difference", "entry", line)
	}
	logger.Debug("Hash matched", "hash", hash)
	return TrialResult{
		Vector:  vector.Name,
		Config:  config,
		Indexes: entry.Indexes,
		Hash:    hash,
		Diff:    diff,
		Outcome: outcome,
	}, nil
}

// digestsMatch compares the hex digest of the computed hash with the
// trailing digest of the expected hash, ignoring any prefix such as 0x.
func digestsMatch(computed ledger.Hash, expected string) bool {
	const digestLength = 2 * common.HashLength
	suffix := func(s string) string {
		if len(s) > digestLength {
			return s[len(s)-digestLength:]
		}
		return s
	}
	return strings.EqualFold(hex.EncodeToString(computed[:]), suffix(strings.TrimSpace(expected)))
}
