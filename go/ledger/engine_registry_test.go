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
	"slices"
	"testing"

	gomock "go.uber.org/mock/gomock"
	"golang.org/x/exp/maps"
)

func TestEngineRegistry_CanListContent(t *testing.T) {
	myFactory := func(ChainConfig) Engine {
		return nil
	}

	name := "test1"
	RegisterEngineFactory(name, myFactory)

	factories := maps.Keys(GetAllRegisteredEngineFactories())
	if !slices.Contains(factories, name) {
		t.Errorf("%v not found in list of factories, found %v", name, factories)
	}
}

func TestEngineRegistry_RegisteredFactoryIsUsedByNewEngine(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := NewMockEngine(ctrl)

	name := "Test2"
	config := ChainConfig{Name: "Byzantium", NetworkId: 3, ShardSize: 4}
	RegisterEngineFactory(name, func(c ChainConfig) Engine {
		if c != config {
			t.Errorf("unexpected configuration passed to factory: %v", c)
		}
		return engine
	})

	got, err := NewEngine("test2", config)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	if got != engine {
		t.Errorf("unexpected engine instance")
	}
}

func TestEngineRegistry_NewEngineFailsForUnknownEngine(t *testing.T) {
	if _, err := NewEngine("something odd", ChainConfig{}); err == nil {
		t.Errorf("expected error for unknown engine")
	}
}

func TestEngineRegistry_FailToRegisterNilFactory(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic, got nil")
		}
	}()
	RegisterEngineFactory("nil", nil)
}

func TestEngineRegistry_FailToRegisterTwice(t *testing.T) {
	factory := func(ChainConfig) Engine { return nil }
	RegisterEngineFactory("twice", factory)
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic, got nil")
		}
	}()
	RegisterEngineFactory("TWICE", factory)
}

func TestBlockParameters_BlockHash(t *testing.T) {
	params := BlockParameters{
		Number:         10,
		AncestorHashes: []Hash{{9}, {8}, {7}},
	}
	tests := map[uint64]Hash{
		9:  {9},
		8:  {8},
		7:  {7},
		6:  {},
		10: {},
		11: {},
	}
	for number, want := range tests {
		if got := params.BlockHash(number); want != got {
			t.Errorf("unexpected hash of block %d, want %v, got %v", number, want, got)
		}
	}
}
