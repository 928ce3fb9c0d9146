// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syncutil

import (
	"fmt"
	"sync"
)

// ThreadMap is a fixed-capacity set of (workerID, T) slots, seeded at
// construction. It backs Teide's per-worker command pools and descriptor
// pools (spec §4.B, §9 "per-thread command buffer/descriptor pools"):
// callers key by the CPU executor's worker index rather than the OS
// thread ID, so capacity is fixed and lookup is O(1).
type ThreadMap[T any] struct {
	mu       sync.Mutex
	capacity int
	newValue func() T
	slots    map[int]*T
	order    []int
}

// NewThreadMap returns a ThreadMap with room for capacity workers;
// newValue constructs the value for a worker's first encounter.
func NewThreadMap[T any](capacity int, newValue func() T) *ThreadMap[T] {
	return &ThreadMap[T]{
		capacity: capacity,
		newValue: newValue,
		slots:    make(map[int]*T),
	}
}

// LockCurrent locates (creating on first use) the slot for workerID and
// invokes fn with it. Because slots are owned by worker identity, no
// locking of the slot's contents happens here beyond protecting the map
// itself during creation.
func (tm *ThreadMap[T]) LockCurrent(workerID int, fn func(*T)) {
	tm.mu.Lock()
	slot, ok := tm.slots[workerID]
	if !ok {
		if len(tm.slots) >= tm.capacity {
			tm.mu.Unlock()
			panic(fmt.Sprintf("teide: syncutil.ThreadMap: capacity %d exceeded by worker %d", tm.capacity, workerID))
		}
		v := tm.newValue()
		slot = &v
		tm.slots[workerID] = slot
		tm.order = append(tm.order, workerID)
	}
	tm.mu.Unlock()
	fn(slot)
}

// LockAll iterates every slot in construction (insertion) order. Callers
// must guarantee no concurrent LockCurrent call, per spec §4.B.
func (tm *ThreadMap[T]) LockAll(fn func(workerID int, value *T)) {
	tm.mu.Lock()
	ids := append([]int(nil), tm.order...)
	tm.mu.Unlock()
	for _, id := range ids {
		fn(id, tm.slots[id])
	}
}
