// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vk

import "sync"

// FrameRecycler implements scheduler.FrameRecycler: callers queue cleanup
// closures against the frame index that allocated the resource (a
// transient staging buffer, a one-off descriptor set, ...), and
// RecycleFrame runs every closure queued for a frame once the scheduler
// knows that frame's GPU work has retired (spec §4.I, §4.J in-flight
// frame bound).
type FrameRecycler struct {
	mu      sync.Mutex
	pending map[uint64][]func()
}

// NewFrameRecycler returns an empty recycler.
func NewFrameRecycler() *FrameRecycler {
	return &FrameRecycler{pending: make(map[uint64][]func())}
}

// Defer queues fn to run the next time RecycleFrame(frameIndex) is
// called. Callers pass the frame index active at allocation time, not
// the one they expect it to be recycled on.
func (r *FrameRecycler) Defer(frameIndex uint64, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[frameIndex] = append(r.pending[frameIndex], fn)
}

// RecycleFrame implements scheduler.FrameRecycler.
func (r *FrameRecycler) RecycleFrame(frameIndex uint64) {
	r.mu.Lock()
	fns := r.pending[frameIndex]
	delete(r.pending, frameIndex)
	r.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
