// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package loadgen is a generated GoMock package.
package loadgen

import (
	reflect "reflect"

	ledger "github.com/Fantom-foundation/Shardkit/go/ledger"
	gomock "go.uber.org/mock/gomock"
)

// MockShard is a mock of Shard interface.
type MockShard struct {
	ctrl     *gomock.Controller
	recorder *MockShardMockRecorder
}

// MockShardMockRecorder is the mock recorder for MockShard.
type MockShardMockRecorder struct {
	mock *MockShard
}

// NewMockShard creates a new mock instance.
func NewMockShard(ctrl *gomock.Controller) *MockShard {
	mock := &MockShard{ctrl: ctrl}
	mock.recorder = &MockShardMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockShard) EXPECT() *MockShardMockRecorder {
	return m.recorder
}

// AddTxList mocks base method.
func (m *MockShard) AddTxList(arg0 []*ledger.Transaction) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "AddTxList", arg0)
}

// AddTxList indicates an expected call of AddTxList.
func (mr *MockShardMockRecorder) AddTxList(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AddTxList", reflect.TypeOf((*MockShard)(nil).AddTxList), arg0)
}

// GetTransactionCount mocks base method.
func (m *MockShard) GetTransactionCount(arg0 ledger.Recipient) uint64 {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetTransactionCount", arg0)
	ret0, _ := ret[0].(uint64)
	return ret0
}

// GetTransactionCount indicates an expected call of GetTransactionCount.
func (mr *MockShardMockRecorder) GetTransactionCount(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetTransactionCount", reflect.TypeOf((*MockShard)(nil).GetTransactionCount), arg0)
}

// Initialized mocks base method.
func (m *MockShard) Initialized() bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Initialized")
	ret0, _ := ret[0].(bool)
	return ret0
}

// Initialized indicates an expected call of Initialized.
func (mr *MockShardMockRecorder) Initialized() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Initialized", reflect.TypeOf((*MockShard)(nil).Initialized))
}
