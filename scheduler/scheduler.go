// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scheduler fuses cpuexec and gpuexec into Teide's unified
// scheduling surface (spec §4.I): CPU-only tasks, chained CPU tasks, and
// GPU-bound tasks that record into a command buffer and submit it
// through the GPU queue executor, all sharing one per-frame recycling
// cadence.
package scheduler

import (
	"sync"

	"github.com/teide-go/teide/cpuexec"
	"github.com/teide-go/teide/gpuexec"
)

// MaxFramesInFlight bounds how many frames' worth of transient resources
// may be outstanding at once (spec §4.I, §4.J).
const MaxFramesInFlight = 2

// CommandBufferPool supplies the fresh-or-recycled command buffers
// ScheduleGpu records into, bound to the calling worker thread.
type CommandBufferPool interface {
	Acquire(workerID int) (gpuexec.CommandBuffer, error)
	Release(cmdBuf gpuexec.CommandBuffer)
}

// FrameRecycler reclaims transient allocations (and command buffers, via
// CommandBufferPool) tied to a completed frame.
type FrameRecycler interface {
	RecycleFrame(frameIndex uint64)
}

// Scheduler is Teide's unified CPU/GPU scheduling surface (spec §4.I).
type Scheduler struct {
	cpu  *cpuexec.Executor
	gpu  *gpuexec.Executor
	pool CommandBufferPool
	rec  FrameRecycler

	outstanding sync.WaitGroup
	frameIndex  uint64
}

// New returns a Scheduler driving cpu and gpu. pool and rec may be nil if
// the caller never invokes ScheduleGpu/NextFrame respectively.
func New(cpu *cpuexec.Executor, gpu *gpuexec.Executor, pool CommandBufferPool, rec FrameRecycler) *Scheduler {
	return &Scheduler{cpu: cpu, gpu: gpu, pool: pool, rec: rec}
}

// Schedule submits a CPU-only free task (spec §4.I "Schedule(fn)").
//
// Like cpuexec.Schedule, this is a free function: Go methods cannot
// introduce their own type parameters.
func Schedule[T any](s *Scheduler, fn func(workerID int) T) *cpuexec.Future[T] {
	s.outstanding.Add(1)
	return cpuexec.Schedule(s.cpu, func(workerID int) T {
		defer s.outstanding.Done()
		return fn(workerID)
	})
}

// ScheduleAfter chains a CPU task on dep (spec §4.I "ScheduleAfter").
func ScheduleAfter[A, B any](s *Scheduler, dep *cpuexec.Future[A], fn func(workerID int, val A) B) *cpuexec.Future[B] {
	s.outstanding.Add(1)
	return cpuexec.ScheduleAfter(s.cpu, dep, func(workerID int, val A) B {
		defer s.outstanding.Done()
		return fn(workerID, val)
	})
}

// ScheduleGpu acquires a GPU command-buffer slot, then schedules a CPU
// task that obtains a command buffer from the pool, invokes fn to record
// into it, and submits it to the GPU queue executor (spec §4.I
// "ScheduleGpu"). The returned future completes with fn's return value
// only once the GPU submission's fence has signaled.
func ScheduleGpu[T any](s *Scheduler, fn func(workerID int, cmdBuf gpuexec.CommandBuffer) T) *cpuexec.Future[T] {
	slot := s.gpu.AddCommandBufferSlot()
	s.outstanding.Add(1)
	return cpuexec.Schedule(s.cpu, func(workerID int) T {
		defer s.outstanding.Done()

		cmdBuf, err := s.pool.Acquire(workerID)
		if err != nil {
			panic(err)
		}
		result := fn(workerID, cmdBuf)

		gpuDone := make(chan struct{})
		if err := s.gpu.Submit(slot, cmdBuf, func() {
			s.pool.Release(cmdBuf)
			close(gpuDone)
		}); err != nil {
			panic(err)
		}
		<-gpuDone
		return result
	})
}

// NextFrame advances the scheduler's frame counter and recycles
// transient allocations belonging to any frame older than
// MaxFramesInFlight-1 (spec §4.I "NextFrame").
func (s *Scheduler) NextFrame() {
	s.frameIndex++
	if s.rec == nil {
		return
	}
	if s.frameIndex >= MaxFramesInFlight {
		s.rec.RecycleFrame(s.frameIndex - MaxFramesInFlight)
	}
}

// WaitForCpu blocks until every CPU task scheduled through this
// Scheduler (including the CPU-side portion of ScheduleGpu tasks, but
// not the GPU fence wait those tasks block on) has returned.
func (s *Scheduler) WaitForCpu() {
	s.outstanding.Wait()
}

// WaitForGpu waits for CPU first, then GPU fences (spec §4.I exact
// ordering), since a ScheduleGpu task's CPU half must record and submit
// before its fence even exists to wait on.
func (s *Scheduler) WaitForGpu() {
	s.WaitForCpu()
	s.gpu.WaitIdle()
}
