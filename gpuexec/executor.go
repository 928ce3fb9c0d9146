// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gpuexec implements Teide's GPU queue executor (spec §4.G):
// clients reserve an ordinal command-buffer slot, record into it from any
// worker goroutine in any order, and the executor submits contiguous runs
// of filled slots to the GPU queue in slot order, firing each
// submission's completion callbacks once its fence signals.
package gpuexec

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// CommandBuffer is the backend-agnostic command buffer handle threaded
// through the executor; its concrete type is opaque to this package.
type CommandBuffer any

// Fence is an opaque backend synchronization fence.
type Fence any

// WaitResult reports the outcome of one bounded fence poll.
type WaitResult int

const (
	WaitPending WaitResult = iota
	WaitSignaled
	WaitDeviceLost
)

// Backend is the seam the Vulkan queue-submission and fence machinery
// satisfies.
type Backend interface {
	// SubmitSequence submits buffers, already in slot-index order, as one
	// queue submission and returns a fresh or recycled fence tracking it.
	SubmitSequence(buffers []CommandBuffer) (Fence, error)
	// WaitFence polls fence, blocking for at most timeout.
	WaitFence(fence Fence, timeout time.Duration) (WaitResult, error)
	// ReleaseFence returns fence to the backend's free pool.
	ReleaseFence(fence Fence)
}

// pollTimeout is the bounded wait per scheduler-thread tick (spec §4.G:
// "e.g. 2 ms").
const pollTimeout = 2 * time.Millisecond

// shutdownWaitWarn is the threshold past which a still-pending fence
// during shutdown is logged rather than silently retried forever.
const shutdownWaitWarn = time.Second

type slot struct {
	filled     bool
	cmdBuf     CommandBuffer
	onComplete func()
}

type submission struct {
	fence     Fence
	callbacks []func()
	waitStart time.Time
}

// Executor is Teide's GPU queue executor (spec §4.G).
type Executor struct {
	backend Backend

	mu    sync.Mutex
	slots []slot
	front int

	subMu    sync.Mutex
	inFlight []*submission

	closeOnce sync.Once
	done      chan struct{}
	stopped   chan struct{}

	onDeviceLost func(error)
}

// New starts an Executor backed by backend and its dedicated scheduler
// goroutine. onDeviceLost is invoked if backend ever reports device loss
// while waiting on a fence (spec: "process abort after diagnostic"); it
// defaults to a fatal log followed by os.Exit(1) when nil.
func New(backend Backend, onDeviceLost func(error)) *Executor {
	if onDeviceLost == nil {
		onDeviceLost = func(err error) {
			slog.Error("teide: gpuexec: device lost, aborting", "error", err)
			os.Exit(1)
		}
	}
	e := &Executor{
		backend:      backend,
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
		onDeviceLost: onDeviceLost,
	}
	go e.schedulerLoop()
	return e
}

// AddCommandBufferSlot reserves the next ordinal slot and returns its
// index. Must be called from a single thread (spec invariant).
func (e *Executor) AddCommandBufferSlot() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := len(e.slots)
	e.slots = append(e.slots, slot{})
	return idx
}

// Submit fills slot index with cmdBuf and onComplete (which may be nil),
// then submits any contiguous run of filled slots starting at the
// executor's current front as a single queue submission. Safe to call
// from any goroutine concurrently (spec invariant).
func (e *Executor) Submit(index int, cmdBuf CommandBuffer, onComplete func()) error {
	e.mu.Lock()
	if index < 0 || index >= len(e.slots) {
		e.mu.Unlock()
		return fmt.Errorf("teide: gpuexec: Submit: slot %d was never reserved", index)
	}
	e.slots[index] = slot{filled: true, cmdBuf: cmdBuf, onComplete: onComplete}

	var run []CommandBuffer
	var callbacks []func()
	end := e.front
	for end < len(e.slots) && e.slots[end].filled {
		run = append(run, e.slots[end].cmdBuf)
		callbacks = append(callbacks, e.slots[end].onComplete)
		end++
	}
	if len(run) == 0 {
		e.mu.Unlock()
		return nil
	}
	e.front = end

	// mu stays held across SubmitSequence so that a run taken by a later
	// Submit call cannot reach the backend before this one.
	defer e.mu.Unlock()
	fence, err := e.backend.SubmitSequence(run)
	if err != nil {
		return fmt.Errorf("teide: gpuexec: SubmitSequence: %w", err)
	}
	e.subMu.Lock()
	e.inFlight = append(e.inFlight, &submission{fence: fence, callbacks: callbacks, waitStart: time.Now()})
	e.subMu.Unlock()
	return nil
}

// Close stops the scheduler goroutine after draining (firing the
// callbacks for) every remaining in-flight submission.
func (e *Executor) Close() {
	e.closeOnce.Do(func() { close(e.done) })
	<-e.stopped
}

// WaitIdle blocks until every currently in-flight submission's fence has
// signaled and its callbacks have fired, without stopping the scheduler
// goroutine (spec §4.I "WaitForGpu waits for CPU first, then GPU fences").
func (e *Executor) WaitIdle() {
	for e.hasInFlight() {
		time.Sleep(pollTimeout)
	}
}

func (e *Executor) schedulerLoop() {
	defer close(e.stopped)
	for {
		select {
		case <-e.done:
			e.drain()
			return
		default:
		}
		e.pollOnce(false)
		if !e.hasInFlight() {
			select {
			case <-e.done:
				e.drain()
				return
			case <-time.After(pollTimeout):
			}
		}
	}
}

func (e *Executor) hasInFlight() bool {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	return len(e.inFlight) > 0
}

// pollOnce waits on every in-flight submission's fence once with the
// bounded timeout, firing callbacks (in slot-index order within each
// submission) for any fence that signals, and feeding device loss to
// onDeviceLost. On device loss every in-flight submission is dropped
// without firing its callbacks, so onDeviceLost is reported once rather
// than again on every later poll.
func (e *Executor) pollOnce(shutdown bool) {
	e.subMu.Lock()
	pending := e.inFlight
	e.subMu.Unlock()

	lost := func(err error) {
		e.subMu.Lock()
		e.inFlight = nil
		e.subMu.Unlock()
		e.onDeviceLost(err)
	}

	stillPending := pending[:0:0]
	for _, sub := range pending {
		result, err := e.backend.WaitFence(sub.fence, pollTimeout)
		if err != nil {
			lost(fmt.Errorf("teide: gpuexec: WaitFence: %w", err))
			return
		}
		switch result {
		case WaitSignaled:
			for _, cb := range sub.callbacks {
				if cb != nil {
					cb()
				}
			}
			e.backend.ReleaseFence(sub.fence)
		case WaitDeviceLost:
			lost(fmt.Errorf("teide: gpuexec: device lost"))
			return
		default:
			if shutdown && time.Since(sub.waitStart) > shutdownWaitWarn {
				slog.Warn("teide: gpuexec: fence wait exceeded 1s during shutdown, continuing",
					"waited", time.Since(sub.waitStart))
			}
			stillPending = append(stillPending, sub)
		}
	}

	e.subMu.Lock()
	// Submit may have appended new submissions to e.inFlight while this
	// poll was blocked on WaitFence with subMu unlocked; keep them
	// instead of clobbering them with the stale snapshot's tail.
	e.inFlight = append(stillPending, e.inFlight[len(pending):]...)
	e.subMu.Unlock()
}

// drain waits out every remaining in-flight submission before the
// scheduler goroutine exits.
func (e *Executor) drain() {
	for e.hasInFlight() {
		e.pollOnce(true)
	}
}
