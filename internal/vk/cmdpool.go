// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vk

import (
	"fmt"
	"sync"

	vulkan "github.com/goki/vulkan"

	"github.com/teide-go/teide/gpuexec"
	"github.com/teide-go/teide/syncutil"
)

// workerPool is one worker's command pool plus the buffers it has ever
// allocated, recycled via a free list once their submission's fence has
// signaled (spec §9 "per-thread command buffer pools").
type workerPool struct {
	pool vulkan.CommandPool
	free []vulkan.CommandBuffer
}

// CommandBufferPool implements scheduler.CommandBufferPool: one
// vulkan.CommandPool per CPU executor worker (spec §4.B ThreadMap
// pattern), command buffers recycled across frames rather than freed.
type CommandBufferPool struct {
	device  *Device
	threads *syncutil.ThreadMap[workerPool]

	mu      sync.Mutex
	owner   map[vulkan.CommandBuffer]int
}

// NewCommandBufferPool returns a pool with room for numWorkers distinct
// worker IDs (the CPU executor's worker count).
func NewCommandBufferPool(d *Device, numWorkers int) *CommandBufferPool {
	p := &CommandBufferPool{
		device: d,
		owner:  make(map[vulkan.CommandBuffer]int),
	}
	p.threads = syncutil.NewThreadMap(numWorkers, func() workerPool {
		var pool vulkan.CommandPool
		checkResult(vulkan.CreateCommandPool(d.Logical, &vulkan.CommandPoolCreateInfo{
			SType:            vulkan.StructureTypeCommandPoolCreateInfo,
			QueueFamilyIndex: d.QueueIndex,
			Flags:            vulkan.CommandPoolCreateFlags(vulkan.CommandPoolCreateResetCommandBufferBit),
		}, nil, &pool), "CreateCommandPool (worker)")
		return workerPool{pool: pool}
	})
	return p
}

// Acquire implements scheduler.CommandBufferPool: returns a reset,
// already-begun command buffer owned by workerID's pool, reusing a
// previously released one when available. The caller records into it and
// hands it to gpuexec.Executor.Submit without calling vkBeginCommandBuffer
// itself; GpuBackend.SubmitSequence ends it right before submission.
func (p *CommandBufferPool) Acquire(workerID int) (gpuexec.CommandBuffer, error) {
	var result vulkan.CommandBuffer
	var allocErr error
	p.threads.LockCurrent(workerID, func(wp *workerPool) {
		if n := len(wp.free); n > 0 {
			result = wp.free[n-1]
			wp.free = wp.free[:n-1]
			checkResult(vulkan.ResetCommandBuffer(result, 0), "ResetCommandBuffer")
		} else {
			buffers := make([]vulkan.CommandBuffer, 1)
			ret := vulkan.AllocateCommandBuffers(p.device.Logical, &vulkan.CommandBufferAllocateInfo{
				SType:              vulkan.StructureTypeCommandBufferAllocateInfo,
				CommandPool:        wp.pool,
				Level:              vulkan.CommandBufferLevelPrimary,
				CommandBufferCount: 1,
			}, buffers)
			if ret != vulkan.Success {
				allocErr = fmt.Errorf("teide: vk: AllocateCommandBuffers failed: %d", ret)
				return
			}
			result = buffers[0]
		}
		checkResult(vulkan.BeginCommandBuffer(result, &vulkan.CommandBufferBeginInfo{
			SType: vulkan.StructureTypeCommandBufferBeginInfo,
		}), "BeginCommandBuffer")
	})
	if allocErr != nil {
		return nil, allocErr
	}
	p.mu.Lock()
	p.owner[result] = workerID
	p.mu.Unlock()
	return result, nil
}

// Release implements scheduler.CommandBufferPool: returns cmdBuf to its
// owning worker's free list once the GPU has finished with it.
func (p *CommandBufferPool) Release(cmdBuf gpuexec.CommandBuffer) {
	vkBuf, ok := cmdBuf.(vulkan.CommandBuffer)
	if !ok {
		return
	}
	p.mu.Lock()
	workerID, known := p.owner[vkBuf]
	p.mu.Unlock()
	if !known {
		return
	}
	p.threads.LockCurrent(workerID, func(wp *workerPool) {
		wp.free = append(wp.free, vkBuf)
	})
}

// Destroy releases every worker's command pool (and, with it, every
// command buffer allocated from it).
func (p *CommandBufferPool) Destroy() {
	p.threads.LockAll(func(_ int, wp *workerPool) {
		vulkan.DestroyCommandPool(p.device.Logical, wp.pool, nil)
	})
}
