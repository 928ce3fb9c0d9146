// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package renderer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teide-go/teide/cpuexec"
	"github.com/teide-go/teide/gpuexec"
	"github.com/teide-go/teide/handle"
	"github.com/teide-go/teide/pblock"
	"github.com/teide-go/teide/render"
	"github.com/teide-go/teide/scheduler"
	"github.com/teide-go/teide/shaderdata"
	"github.com/teide-go/teide/surface"
)

// --- pblock.Backend fake, mirroring pblock_test.go's fakeBackend. ---

type fakePblockBackend struct {
	mu   sync.Mutex
	sets int
}

func (f *fakePblockBackend) AllocateUniformBuffer(size int) (handle.Handle[[]byte], error) {
	reg := handle.NewRegistry[[]byte]("test-uniform")
	return reg.Insert(make([]byte, size)), nil
}

func (f *fakePblockBackend) AllocateDescriptorSet(layout pblock.Layout) (pblock.DescriptorSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	return "fake-set", nil
}

func (f *fakePblockBackend) WriteTextureBinding(set pblock.DescriptorSet, bindingIndex int, texture handle.Handle[any]) error {
	return nil
}

func (f *fakePblockBackend) WriteUniformBuffer(buf handle.Handle[[]byte], data []byte) error {
	return nil
}

// --- gpuexec.Backend fake, mirroring scheduler_test.go's fakeGpuBackend. ---

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

// --- scheduler.CommandBufferPool fake. ---

type fakePool struct {
	mu       sync.Mutex
	acquired int
	released int
}

func (p *fakePool) Acquire(workerID int) (gpuexec.CommandBuffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acquired++
	return "surface-cmdbuf", nil
}

func (p *fakePool) Release(cmdBuf gpuexec.CommandBuffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
}

// --- renderer.Backend fake. ---

type fakeRendererBackend struct {
	mu sync.Mutex

	recorded      []DrawParams
	submittedCmds []gpuexec.CommandBuffer
	submittedWait []SemaphoreWait
	submittedSig  []any
	submittedFence any
	onDoneCalls   int

	nextFenceID int
	nextSemID   int
}

func (b *fakeRendererBackend) CreateRenderTexture(req RenderTargetRequest) (handle.Handle[any], handle.Handle[any], error) {
	reg := handle.NewRegistry[any]("fake-render-texture")
	var color, depth handle.Handle[any]
	if req.HasColor {
		color = reg.Insert("color-texture")
	}
	if req.HasDepthStencil {
		depth = reg.Insert("depth-texture")
	}
	return color, depth, nil
}

func (b *fakeRendererBackend) DestroyRenderTexture(tex handle.Handle[any]) {}
func (b *fakeRendererBackend) GetByteSize(tex handle.Handle[any]) int     { return 16 }

func (b *fakeRendererBackend) TransitionForColorTarget(cmdBuf gpuexec.CommandBuffer, tex handle.Handle[any])  {}
func (b *fakeRendererBackend) TransitionForDepthTarget(cmdBuf gpuexec.CommandBuffer, tex handle.Handle[any])  {}
func (b *fakeRendererBackend) TransitionForShaderReadOnly(cmdBuf gpuexec.CommandBuffer, tex handle.Handle[any]) {}

func (b *fakeRendererBackend) RecordDrawSequence(cmdBuf gpuexec.CommandBuffer, params DrawParams) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recorded = append(b.recorded, params)
	return nil
}

var fakeReadbackRegistry = handle.NewRegistry[any]("fake-readback")

func (b *fakeRendererBackend) ReadbackTexture(cmdBuf gpuexec.CommandBuffer, tex handle.Handle[any]) (handle.Handle[any], error) {
	return fakeReadbackRegistry.Insert([]byte{1, 2, 3, 4}), nil
}

func (b *fakeRendererBackend) MapReadback(buf handle.Handle[any]) []byte {
	return fakeReadbackRegistry.Get(buf).([]byte)
}

func (b *fakeRendererBackend) ReleaseReadback(buf handle.Handle[any]) { buf.Release() }

func (b *fakeRendererBackend) SubmitGraphics(cmds []gpuexec.CommandBuffer, waits []SemaphoreWait, signal []any, fence any, onDone func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submittedCmds = cmds
	b.submittedWait = waits
	b.submittedSig = signal
	b.submittedFence = fence
	if onDone != nil {
		onDone()
		b.onDoneCalls++
	}
	return nil
}

func (b *fakeRendererBackend) CreateFence(signaled bool) any {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextFenceID
	b.nextFenceID++
	return id
}

func (b *fakeRendererBackend) WaitFence(f any, timeout time.Duration) error { return nil }
func (b *fakeRendererBackend) ResetFence(f any)                            {}
func (b *fakeRendererBackend) DestroyFence(f any)                          {}

func (b *fakeRendererBackend) CreateSemaphore() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSemID
	b.nextSemID++
	return id
}

func (b *fakeRendererBackend) DestroySemaphore(s any) {}

// --- surface.Backend fake, mirroring surface_test.go's fakeBackend. ---

type fakeSurfaceBackend struct {
	images     int
	nextIndex  int
	presented  []int
	presentSem []surface.Semaphore
}

func (s *fakeSurfaceBackend) ImageCount() int { return s.images }
func (s *fakeSurfaceBackend) Extent() (uint32, uint32) { return 0, 0 }
func (s *fakeSurfaceBackend) AcquireNextImage(semaphore surface.Semaphore) (int, bool, bool, error) {
	idx := s.nextIndex
	s.nextIndex = (s.nextIndex + 1) % s.images
	return idx, false, false, nil
}
func (s *fakeSurfaceBackend) ImageAt(index int) surface.Image             { return index }
func (s *fakeSurfaceBackend) FramebufferAt(index int) surface.Framebuffer { return index }
func (s *fakeSurfaceBackend) PrePresentCommandBufferAt(index int) surface.CommandBuffer {
	return "pre-present-cmd"
}
func (s *fakeSurfaceBackend) WaitFence(fence surface.Fence) error { return nil }
func (s *fakeSurfaceBackend) Recreate() error                     { return nil }
func (s *fakeSurfaceBackend) Present(imageIndex int, waitSemaphore surface.Semaphore) error {
	s.presented = append(s.presented, imageIndex)
	s.presentSem = append(s.presentSem, waitSemaphore)
	return nil
}
