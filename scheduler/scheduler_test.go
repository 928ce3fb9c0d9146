// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teide-go/teide/cpuexec"
	"github.com/teide-go/teide/gpuexec"
)

type fakePool struct {
	mu       sync.Mutex
	acquired int
	released int
}

func (p *fakePool) Acquire(workerID int) (gpuexec.CommandBuffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acquired++
	return "cmdbuf", nil
}

func (p *fakePool) Release(cmdBuf gpuexec.CommandBuffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
}

type fakeGpuBackend struct {
	mu       sync.Mutex
	nextID   int
	signaled map[int]bool
}

func newFakeGpuBackend() *fakeGpuBackend {
	return &fakeGpuBackend{signaled: make(map[int]bool)}
}

func (b *fakeGpuBackend) SubmitSequence(buffers []gpuexec.CommandBuffer) (gpuexec.Fence, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.signaled[id] = true
	return id, nil
}

func (b *fakeGpuBackend) WaitFence(fence gpuexec.Fence, timeout time.Duration) (gpuexec.WaitResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.signaled[fence.(int)] {
		return gpuexec.WaitSignaled, nil
	}
	return gpuexec.WaitPending, nil
}

func (b *fakeGpuBackend) ReleaseFence(fence gpuexec.Fence) {}

type fakeRecycler struct {
	mu       sync.Mutex
	recycled []uint64
}

func (r *fakeRecycler) RecycleFrame(frameIndex uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recycled = append(r.recycled, frameIndex)
}

func TestScheduleRunsCpuOnly(t *testing.T) {
	cpu := cpuexec.New(2)
	defer cpu.Close()
	gpu := gpuexec.New(newFakeGpuBackend(), nil)
	defer gpu.Close()
	s := New(cpu, gpu, nil, nil)

	fut := Schedule(s, func(workerID int) int { return 7 })
	val, err := fut.Wait()
	require.NoError(t, err)
	assert.Equal(t, 7, val)
}

func TestScheduleGpuAcquiresRecordsAndSubmits(t *testing.T) {
	cpu := cpuexec.New(2)
	defer cpu.Close()
	gpu := gpuexec.New(newFakeGpuBackend(), nil)
	defer gpu.Close()
	pool := &fakePool{}
	s := New(cpu, gpu, pool, nil)

	var recordedOn gpuexec.CommandBuffer
	fut := ScheduleGpu(s, func(workerID int, cmdBuf gpuexec.CommandBuffer) int {
		recordedOn = cmdBuf
		return 99
	})

	val, err := fut.Wait()
	require.NoError(t, err)
	assert.Equal(t, 99, val)
	assert.Equal(t, "cmdbuf", recordedOn)

	pool.mu.Lock()
	defer pool.mu.Unlock()
	assert.Equal(t, 1, pool.acquired)
	assert.Equal(t, 1, pool.released)
}

func TestNextFrameRecyclesFramesOlderThanMaxInFlight(t *testing.T) {
	cpu := cpuexec.New(1)
	defer cpu.Close()
	gpu := gpuexec.New(newFakeGpuBackend(), nil)
	defer gpu.Close()
	rec := &fakeRecycler{}
	s := New(cpu, gpu, nil, rec)

	s.NextFrame() // frame 1, nothing old enough yet
	s.NextFrame() // frame 2, frame 0 retires
	s.NextFrame() // frame 3, frame 1 retires

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []uint64{0, 1}, rec.recycled)
}

func TestWaitForGpuWaitsCpuThenGpu(t *testing.T) {
	cpu := cpuexec.New(2)
	defer cpu.Close()
	gpu := gpuexec.New(newFakeGpuBackend(), nil)
	defer gpu.Close()
	pool := &fakePool{}
	s := New(cpu, gpu, pool, nil)

	done := make(chan struct{})
	_ = ScheduleGpu(s, func(workerID int, cmdBuf gpuexec.CommandBuffer) int {
		close(done)
		return 1
	})

	s.WaitForGpu()
	select {
	case <-done:
	default:
		t.Fatal("WaitForGpu returned before the scheduled task ran")
	}
}
