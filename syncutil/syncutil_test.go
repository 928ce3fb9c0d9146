// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syncutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSynchronizedLock(t *testing.T) {
	s := NewSynchronized(0)
	LockVoid(s, func(v *int) { *v = 42 })
	got := Lock(s, func(v *int) int { return *v })
	assert.Equal(t, 42, got)
}

func TestThreadMapLockCurrentCreatesOnce(t *testing.T) {
	calls := 0
	tm := NewThreadMap(2, func() int { calls++; return calls })

	var first, second int
	tm.LockCurrent(0, func(v *int) { first = *v })
	tm.LockCurrent(0, func(v *int) { second = *v })

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestThreadMapCapacityExceeded(t *testing.T) {
	tm := NewThreadMap(1, func() int { return 0 })
	tm.LockCurrent(0, func(v *int) {})
	assert.Panics(t, func() {
		tm.LockCurrent(1, func(v *int) {})
	})
}

func TestThreadMapLockAllOrder(t *testing.T) {
	tm := NewThreadMap(3, func() int { return 0 })
	tm.LockCurrent(2, func(v *int) { *v = 2 })
	tm.LockCurrent(0, func(v *int) { *v = 0 })
	tm.LockCurrent(1, func(v *int) { *v = 1 })

	var order []int
	tm.LockAll(func(workerID int, value *int) { order = append(order, workerID) })
	assert.Equal(t, []int{2, 0, 1}, order)
}
