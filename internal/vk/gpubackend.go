// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vk

import (
	"fmt"
	"sync"
	"time"

	vulkan "github.com/goki/vulkan"

	"github.com/teide-go/teide/gpuexec"
)

// GpuBackend implements gpuexec.Backend against one Device's graphics
// queue, grounded on vgpu's single-queue submission model. Fences are
// pooled and reset on release rather than recreated per submission.
type GpuBackend struct {
	device *Device

	mu   sync.Mutex
	free []vulkan.Fence
}

var _ gpuexec.Backend = (*GpuBackend)(nil)

// NewGpuBackend returns a gpuexec.Backend bound to d.
func NewGpuBackend(d *Device) *GpuBackend {
	return &GpuBackend{device: d}
}

func (g *GpuBackend) acquireFence() (vulkan.Fence, error) {
	g.mu.Lock()
	if n := len(g.free); n > 0 {
		f := g.free[n-1]
		g.free = g.free[:n-1]
		g.mu.Unlock()
		if err := checkResultErr(vulkan.ResetFences(g.device.Logical, 1, []vulkan.Fence{f}), "ResetFences"); err != nil {
			return nil, err
		}
		return f, nil
	}
	g.mu.Unlock()

	var fence vulkan.Fence
	ret := vulkan.CreateFence(g.device.Logical, &vulkan.FenceCreateInfo{
		SType: vulkan.StructureTypeFenceCreateInfo,
	}, nil, &fence)
	if ret != vulkan.Success {
		return nil, fmt.Errorf("teide: vk: CreateFence failed: %d", ret)
	}
	return fence, nil
}

// SubmitSequence implements gpuexec.Backend: submit buffers, in order,
// as one queue submission signaled by a fresh or recycled fence. Each
// buffer was begun by whichever pool acquired it (CommandBufferPool.Acquire
// or beginOneShotCommands) and is ended here, right before submission.
func (g *GpuBackend) SubmitSequence(buffers []gpuexec.CommandBuffer) (gpuexec.Fence, error) {
	cmds := make([]vulkan.CommandBuffer, len(buffers))
	for i, b := range buffers {
		cmd, ok := b.(vulkan.CommandBuffer)
		if !ok {
			return nil, fmt.Errorf("teide: vk: SubmitSequence: buffer %d has unexpected type %T", i, b)
		}
		if !g.device.isReusable(cmd) {
			if ret := vulkan.EndCommandBuffer(cmd); ret != vulkan.Success {
				return nil, fmt.Errorf("teide: vk: EndCommandBuffer failed: %d", ret)
			}
		}
		cmds[i] = cmd
	}

	fence, err := g.acquireFence()
	if err != nil {
		return nil, err
	}

	ret := vulkan.QueueSubmit(g.device.Queue, 1, []vulkan.SubmitInfo{{
		SType:              vulkan.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(cmds)),
		PCommandBuffers:    cmds,
	}}, fence)
	if ret != vulkan.Success {
		return nil, fmt.Errorf("teide: vk: QueueSubmit failed: %d", ret)
	}
	return fence, nil
}

// WaitFence implements gpuexec.Backend by polling with vkWaitForFences
// bounded to timeout.
func (g *GpuBackend) WaitFence(fence gpuexec.Fence, timeout time.Duration) (gpuexec.WaitResult, error) {
	vkFence, ok := fence.(vulkan.Fence)
	if !ok {
		return gpuexec.WaitPending, fmt.Errorf("teide: vk: WaitFence: unexpected fence type %T", fence)
	}
	ret := vulkan.WaitForFences(g.device.Logical, 1, []vulkan.Fence{vkFence}, vulkan.True, uint64(timeout.Nanoseconds()))
	switch ret {
	case vulkan.Success:
		return gpuexec.WaitSignaled, nil
	case vulkan.Timeout:
		return gpuexec.WaitPending, nil
	case vulkan.ErrorDeviceLost:
		return gpuexec.WaitDeviceLost, nil
	default:
		return gpuexec.WaitPending, fmt.Errorf("teide: vk: WaitForFences failed: %d", ret)
	}
}

// ReleaseFence implements gpuexec.Backend by returning fence to the free
// pool for reuse by a later SubmitSequence.
func (g *GpuBackend) ReleaseFence(fence gpuexec.Fence) {
	vkFence, ok := fence.(vulkan.Fence)
	if !ok {
		return
	}
	g.mu.Lock()
	g.free = append(g.free, vkFence)
	g.mu.Unlock()
}

// Destroy releases every pooled fence.
func (g *GpuBackend) Destroy() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, f := range g.free {
		vulkan.DestroyFence(g.device.Logical, f, nil)
	}
	g.free = nil
}

func checkResultErr(ret vulkan.Result, what string) error {
	if ret != vulkan.Success {
		return fmt.Errorf("teide: vk: %s failed: %d", what, ret)
	}
	return nil
}
