// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpuexec

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend submits synchronously and signals every fence immediately,
// recording the order command buffers were submitted in.
type fakeBackend struct {
	mu         sync.Mutex
	submitted  [][]CommandBuffer
	nextFence  int
	signaled   map[int]bool
	deviceLost bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{signaled: make(map[int]bool)}
}

func (b *fakeBackend) SubmitSequence(buffers []CommandBuffer) (Fence, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitted = append(b.submitted, append([]CommandBuffer(nil), buffers...))
	id := b.nextFence
	b.nextFence++
	b.signaled[id] = true
	return id, nil
}

func (b *fakeBackend) WaitFence(fence Fence, timeout time.Duration) (WaitResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deviceLost {
		return WaitDeviceLost, nil
	}
	if b.signaled[fence.(int)] {
		return WaitSignaled, nil
	}
	return WaitPending, nil
}

func (b *fakeBackend) ReleaseFence(fence Fence) {}

func TestSubmitsContiguousRunAsOneSubmission(t *testing.T) {
	backend := newFakeBackend()
	e := New(backend, func(error) {})
	defer e.Close()

	idx0 := e.AddCommandBufferSlot()
	idx1 := e.AddCommandBufferSlot()
	idx2 := e.AddCommandBufferSlot()

	require.NoError(t, e.Submit(idx1, "cb1", nil))
	require.NoError(t, e.Submit(idx0, "cb0", nil))
	require.NoError(t, e.Submit(idx2, "cb2", nil))

	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.Len(t, backend.submitted, 1)
	assert.Equal(t, []CommandBuffer{"cb0", "cb1", "cb2"}, backend.submitted[0])
}

func TestLeadingFilledSlotSubmitsWithoutWaitingForLaterSlots(t *testing.T) {
	backend := newFakeBackend()
	e := New(backend, func(error) {})
	defer e.Close()

	idx0 := e.AddCommandBufferSlot()
	e.AddCommandBufferSlot() // idx1, left unfilled for now
	require.NoError(t, e.Submit(idx0, "cb0", nil))

	backend.mu.Lock()
	n := len(backend.submitted)
	backend.mu.Unlock()
	assert.Equal(t, 1, n, "slot 0 alone should submit immediately")
}

func TestCallbacksFireInSlotOrderWithinOneSubmission(t *testing.T) {
	backend := newFakeBackend()
	e := New(backend, func(error) {})

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(3)

	record := func(i int) func() {
		return func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		}
	}

	idx0 := e.AddCommandBufferSlot()
	idx1 := e.AddCommandBufferSlot()
	idx2 := e.AddCommandBufferSlot()

	require.NoError(t, e.Submit(idx2, "cb2", record(2)))
	require.NoError(t, e.Submit(idx0, "cb0", record(0)))
	require.NoError(t, e.Submit(idx1, "cb1", record(1)))

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for callbacks")
	}
	e.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestSubmitUnknownSlotErrors(t *testing.T) {
	backend := newFakeBackend()
	e := New(backend, func(error) {})
	defer e.Close()

	err := e.Submit(7, "cb", nil)
	assert.Error(t, err)
}

func TestDeviceLostInvokesCallback(t *testing.T) {
	backend := newFakeBackend()
	backend.mu.Lock()
	backend.deviceLost = false
	backend.mu.Unlock()

	var lostErr error
	var mu sync.Mutex
	lostCh := make(chan struct{})
	e := New(backend, func(err error) {
		mu.Lock()
		lostErr = err
		mu.Unlock()
		close(lostCh)
	})
	defer e.Close()

	idx := e.AddCommandBufferSlot()
	require.NoError(t, e.Submit(idx, "cb", nil))

	backend.mu.Lock()
	backend.deviceLost = true
	backend.mu.Unlock()

	select {
	case <-lostCh:
	case <-time.After(2 * time.Second):
		t.Fatal("onDeviceLost was never invoked")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Error(t, lostErr)
}

func TestSubmitSequenceErrorPropagates(t *testing.T) {
	backend := newFakeBackend()
	e := New(backend, func(error) {})
	defer e.Close()

	failing := &erroringBackend{fakeBackend: backend}
	e2 := New(failing, func(error) {})
	defer e2.Close()

	idx := e2.AddCommandBufferSlot()
	err := e2.Submit(idx, "cb", nil)
	assert.True(t, errors.Is(err, errBoom) || err != nil)
}

type erroringBackend struct {
	*fakeBackend
}

var errBoom = fmt.Errorf("boom")

func (b *erroringBackend) SubmitSequence(buffers []CommandBuffer) (Fence, error) {
	return nil, errBoom
}
