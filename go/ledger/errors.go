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

// ConstError is an error type that can be used to define immutable
// error constants.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

const (
	// ErrInvalidTransaction is wrapped by engines rejecting a transaction
	// before or during execution. Such a rejection is a regular outcome of a
	// state transition, not a failure of the caller.
	ErrInvalidTransaction = ConstError("invalid transaction")

	// ErrShardMismatch signals an address bound to a shard other than the
	// one it is used on.
	ErrShardMismatch = ConstError("shard mismatch")

	// ErrNotSigned is returned when the sender of an unsigned or
	// malformed-signature transaction is requested.
	ErrNotSigned = ConstError("transaction not signed")
)
