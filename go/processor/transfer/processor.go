// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package transfer provides a reference ledger.Engine handling plain value
// transfers. It covers nonce handling, gas purchase and refund, intrinsic gas
// billing, coinbase payment and the local half of cross-shard transfers.
// Contract code is not executed.
package transfer

import (
	"fmt"

	"github.com/Fantom-foundation/Shardkit/go/ledger"
	"github.com/holiman/uint256"
)

const (
	TxGas                   = 21_000
	TxGasContractCreation   = 53_000
	TxGasCrossShard         = 9_000
	TxDataNonZeroGasEIP2028 = 16
	TxDataZeroGasEIP2028    = 4
)

func init() {
	ledger.RegisterEngineFactory("transfer", NewEngine)
}

// NewEngine creates a transfer engine for the given chain configuration.
func NewEngine(config ledger.ChainConfig) ledger.Engine {
	return &engine{config: config}
}

type engine struct {
	config ledger.ChainConfig
}

func (e *engine) Apply(
	params ledger.BlockParameters,
	state ledger.WorldState,
	tx *ledger.Transaction,
) (ledger.Receipt, error) {
	sender, err := tx.Sender()
	if err != nil {
		return ledger.Receipt{}, invalid("%v", err)
	}

	if tx.NetworkId() != e.config.NetworkId {
		return ledger.Receipt{}, invalid("network id mismatch: %d != %d", tx.NetworkId(), e.config.NetworkId)
	}

	if params.GasLimit != 0 && tx.GasLimit() > params.GasLimit {
		return ledger.Receipt{}, invalid("gas limit %d exceeds block gas limit %d", tx.GasLimit(), params.GasLimit)
	}

	isCrossShard := e.isCrossShard(tx)
	intrinsicGas := setupGasBilling(tx, isCrossShard)
	if tx.GasLimit() < intrinsicGas {
		return ledger.Receipt{}, invalid("intrinsic gas too low: %d < %d", tx.GasLimit(), intrinsicGas)
	}

	if err := checkNonce(tx, sender, state); err != nil {
		return ledger.Receipt{}, err
	}

	if err := checkFunds(tx, sender, state); err != nil {
		return ledger.Receipt{}, err
	}

	buyGas(tx, sender, state)
	state.SetNonce(sender, tx.Nonce()+1)

	gasUsed := tx.GasLimit()
	success := false
	if to := tx.To(); to != nil {
		transferValue(tx, sender, *to, isCrossShard, state)
		gasUsed = intrinsicGas
		success = true
	}

	refundGas(tx, sender, gasUsed, state)
	payCoinbase(tx, params.Coinbase.Recipient, gasUsed, state)

	return ledger.Receipt{
		Success: success,
		GasUsed: gasUsed,
	}, nil
}

func (e *engine) isCrossShard(tx *ledger.Transaction) bool {
	size := e.config.ShardSize
	if size == 0 {
		size = 1
	}
	return ledger.ShardOf(tx.FromFullShardId(), size) != ledger.ShardOf(tx.ToFullShardId(), size)
}

func setupGasBilling(tx *ledger.Transaction, isCrossShard bool) uint64 {
	var gas uint64
	if tx.To() == nil {
		gas = TxGasContractCreation
	} else {
		gas = TxGas
	}
	if isCrossShard {
		gas += TxGasCrossShard
	}

	data := tx.Data()
	nonZeroBytes := uint64(0)
	for _, cur := range data {
		if cur != 0 {
			nonZeroBytes++
		}
	}
	zeroBytes := uint64(len(data)) - nonZeroBytes
	gas += zeroBytes * TxDataZeroGasEIP2028
	gas += nonZeroBytes * TxDataNonZeroGasEIP2028
	return gas
}

func checkNonce(tx *ledger.Transaction, sender ledger.Recipient, state ledger.WorldState) error {
	stateNonce := state.GetNonce(sender)
	if tx.Nonce() != stateNonce {
		return invalid("nonce mismatch: %v != %v", tx.Nonce(), stateNonce)
	}
	return nil
}

// checkFunds verifies that the sender can pay for the full gas limit and the
// transferred value, which may be held in the same token.
func checkFunds(tx *ledger.Transaction, sender ledger.Recipient, state ledger.WorldState) error {
	gasCost := gasCost(tx, tx.GasLimit())
	value := tx.Value()

	gasBalance := state.GetBalance(sender, tx.GasTokenId())
	if tx.GasTokenId() == tx.TransferTokenId() {
		total, overflow := new(uint256.Int).AddOverflow(&gasCost, &value)
		if overflow || gasBalance.Lt(total) {
			return invalid("insufficient balance: %v < %v + %v", gasBalance.Dec(), gasCost.Dec(), value.Dec())
		}
		return nil
	}
	if gasBalance.Lt(&gasCost) {
		return invalid("insufficient balance for gas: %v < %v", gasBalance.Dec(), gasCost.Dec())
	}
	transferBalance := state.GetBalance(sender, tx.TransferTokenId())
	if transferBalance.Lt(&value) {
		return invalid("insufficient balance for transfer: %v < %v", transferBalance.Dec(), value.Dec())
	}
	return nil
}

func buyGas(tx *ledger.Transaction, sender ledger.Recipient, state ledger.WorldState) {
	cost := gasCost(tx, tx.GasLimit())
	balance := state.GetBalance(sender, tx.GasTokenId())
	balance.Sub(&balance, &cost)
	state.SetBalance(sender, tx.GasTokenId(), balance)
}

// transferValue moves the value to the recipient. For cross-shard
// transfers only the sender side is handled; the deposit is credited by the
// destination shard.
func transferValue(tx *ledger.Transaction, sender, recipient ledger.Recipient, isCrossShard bool, state ledger.WorldState) {
	value := tx.Value()
	balance := state.GetBalance(sender, tx.TransferTokenId())
	balance.Sub(&balance, &value)
	state.SetBalance(sender, tx.TransferTokenId(), balance)
	if isCrossShard {
		return
	}

	context := state.FullShardId()
	if !state.AccountExists(recipient) {
		state.SetFullShardId(tx.ToFullShardId())
	}
	state.AddBalance(recipient, tx.TransferTokenId(), value)
	if state.FullShardId() != context {
		state.SetFullShardId(context)
	}
}

func refundGas(tx *ledger.Transaction, sender ledger.Recipient, gasUsed uint64, state ledger.WorldState) {
	refund := gasCost(tx, tx.GasLimit()-gasUsed)
	if refund.IsZero() {
		return
	}
	state.AddBalance(sender, tx.GasTokenId(), refund)
}

func payCoinbase(tx *ledger.Transaction, coinbase ledger.Recipient, gasUsed uint64, state ledger.WorldState) {
	fee := gasCost(tx, gasUsed)
	if fee.IsZero() {
		return
	}
	state.AddBalance(coinbase, tx.GasTokenId(), fee)
}

func gasCost(tx *ledger.Transaction, gas uint64) uint256.Int {
	price := tx.GasPrice()
	var res uint256.Int
	res.Mul(&price, uint256.NewInt(gas))
	return res
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ledger.ErrInvalidTransaction, fmt.Sprintf(format, args...))
}
