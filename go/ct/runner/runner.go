// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package runner wraps a world state and an execution engine into a
// transactional unit applying one transaction at a time.
package runner

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/Shardkit/go/ledger"
)

// Outcome summarizes the effect of a single transaction. Transactions
// rejected by the engine are reported with Success set to false and no
// output; any partial effects remain in the state.
type Outcome struct {
	Success bool
	Output  []byte
	GasUsed uint64
}

type Runner struct {
	state  ledger.WorldState
	engine ledger.Engine
}

func New(state ledger.WorldState, engine ledger.Engine) *Runner {
	return &Runner{state: state, engine: engine}
}

func (r *Runner) State() ledger.WorldState {
	return r.state
}

func (r *Runner) Snapshot() ledger.Snapshot {
	return r.state.Snapshot()
}

// Apply runs the given transaction on the wrapped state. Invalid
// transactions are a regular outcome; any other engine failure is returned.
func (r *Runner) Apply(params ledger.BlockParameters, tx *ledger.Transaction) (Outcome, error) {
	receipt, err := r.engine.Apply(params, r.state, tx)
	if errors.Is(err, ledger.ErrInvalidTransaction) {
		return Outcome{Success: false}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to apply transaction %v: %w", tx.Hash(), err)
	}
	return Outcome{
		Success: receipt.Success,
		Output:  receipt.Output,
		GasUsed: receipt.GasUsed,
	}, nil
}

func (r *Runner) Commit(mode ledger.CommitMode) {
	r.state.Commit(mode)
}

func (r *Runner) Revert(snapshot ledger.Snapshot) {
	r.state.RevertToSnapshot(snapshot)
}

func (r *Runner) Dump() ledger.Dump {
	return r.state.Dump()
}

func (r *Runner) RootHash() ledger.Hash {
	return r.state.RootHash()
}
