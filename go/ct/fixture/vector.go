// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package fixture decodes conformance vectors in the general state test
// format: an environment, a pre-state, a transaction template with variants
// of gas limit, value and payload, and the expected post-state root hashes
// per protocol configuration.
package fixture

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Fantom-foundation/Shardkit/go/ledger"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Vector struct {
	// Name is the key of the vector in its file; it is not part of the JSON
	// body.
	Name        string                          `json:"-"`
	Env         *Env                            `json:"env"`
	Pre         map[ledger.Recipient]PreAccount `json:"pre"`
	Transaction TransactionTemplate             `json:"transaction"`
	Post        map[string][]PostEntry          `json:"post"`
}

type Env struct {
	CurrentCoinbase   ledger.Recipient `json:"currentCoinbase"`
	CurrentDifficulty Number           `json:"currentDifficulty"`
	CurrentGasLimit   Number           `json:"currentGasLimit"`
	CurrentNumber     Number           `json:"currentNumber"`
	CurrentTimestamp  Number           `json:"currentTimestamp"`
	PreviousHash      ledger.Hash      `json:"previousHash"`
}

type PreAccount struct {
	Balance Number        `json:"balance"`
	Code    Bytes         `json:"code"`
	Nonce   Number        `json:"nonce"`
	Storage map[Slot]Slot `json:"storage"`
}

// TransactionTemplate describes a family of transactions differing in gas
// limit, value and payload. A transaction is signed with SecretKey if
// present, otherwise the supplied signature components are used.
type TransactionTemplate struct {
	Data      []Bytes  `json:"data"`
	GasLimit  []Number `json:"gasLimit"`
	GasPrice  Number   `json:"gasPrice"`
	Nonce     Number   `json:"nonce"`
	To        string   `json:"to"`
	Value     []Number `json:"value"`
	SecretKey Bytes    `json:"secretKey,omitempty"`
	V         Number   `json:"v"`
	R         Number   `json:"r"`
	S         Number   `json:"s"`
}

type Indexes struct {
	Data  int `json:"data"`
	Gas   int `json:"gas"`
	Value int `json:"value"`
}

func (i Indexes) String() string {
	return fmt.Sprintf("g %d v %d d %d", i.Gas, i.Value, i.Data)
}

type PostEntry struct {
	Hash    string  `json:"hash"`
	Indexes Indexes `json:"indexes"`
}

// Build creates the transaction variant selected by the given indexes. The
// network id of the transaction is taken from the chain configuration.
// Numeric fields exceeding their range yield an error wrapping
// ledger.ErrInvalidTransaction; malformed indexes, recipients and keys are
// reported as plain errors.
func (t *TransactionTemplate) Build(indexes Indexes, config ledger.ChainConfig) (*ledger.Transaction, error) {
	if err := checkIndex("gas", indexes.Gas, len(t.GasLimit)); err != nil {
		return nil, err
	}
	if err := checkIndex("value", indexes.Value, len(t.Value)); err != nil {
		return nil, err
	}
	if err := checkIndex("data", indexes.Data, len(t.Data)); err != nil {
		return nil, err
	}
	gasLimit, err := t.GasLimit[indexes.Gas].ToUint64()
	if err != nil {
		return nil, fmt.Errorf("%w: gas limit: %v", ledger.ErrInvalidTransaction, err)
	}
	nonce, err := t.Nonce.ToUint64()
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", ledger.ErrInvalidTransaction, err)
	}

	var to *ledger.Recipient
	if trimHexPrefix(t.To) != "" {
		to = new(ledger.Recipient)
		if err := to.UnmarshalText([]byte(strings.TrimSpace(t.To))); err != nil {
			return nil, fmt.Errorf("invalid recipient %q: %w", t.To, err)
		}
	}

	builder := ledger.NewTxBuilder(ledger.TxData{
		Nonce:           nonce,
		GasPrice:        t.GasPrice.Int,
		GasLimit:        gasLimit,
		To:              to,
		Value:           t.Value[indexes.Value].Int,
		Data:            t.Data[indexes.Data],
		GasTokenId:      ledger.DefaultTokenId,
		TransferTokenId: ledger.DefaultTokenId,
		NetworkId:       config.NetworkId,
	})

	if len(t.SecretKey) > 0 {
		key, err := crypto.ToECDSA(t.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("invalid secret key: %w", err)
		}
		return builder.Sign(key)
	}
	v, err := t.V.ToUint64()
	if err != nil || v > 0xff {
		return nil, fmt.Errorf("invalid signature recovery id %v", t.V.Dec())
	}
	return builder.WithSignature(uint8(v), t.R.Int, t.S.Int), nil
}

func checkIndex(name string, index, length int) error {
	if index < 0 || index >= length {
		return fmt.Errorf("%s index %d out of range [0, %d)", name, index, length)
	}
	return nil
}

// Parse decodes a fixture document holding named vectors. The result is
// sorted by name.
func Parse(data []byte) ([]*Vector, error) {
	named := map[string]*Vector{}
	if err := json.Unmarshal(data, &named); err != nil {
		return nil, err
	}
	names := maps.Keys(named)
	slices.Sort(names)
	res := make([]*Vector, 0, len(names))
	for _, name := range names {
		vector := named[name]
		if vector == nil {
			return nil, fmt.Errorf("vector %q is empty", name)
		}
		vector.Name = name
		res = append(res, vector)
	}
	return res, nil
}

func LoadFile(path string) ([]*Vector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return res, nil
}

// LoadDir loads all .json files in the given directory tree in lexical
// path order.
func LoadDir(dir string) ([]*Vector, error) {
	res := []*Vector{}
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		vectors, err := LoadFile(path)
		if err != nil {
			return err
		}
		res = append(res, vectors...)
		return nil
	})
	return res, err
}
