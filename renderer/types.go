// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package renderer implements Teide's per-frame state machine (spec
// §4.K): scene/view parameter blocks, render-to-texture and
// render-to-surface recording, and the CPU↔GPU synchronization that
// keeps up to two frames in flight. It stays free of any Vulkan import;
// the actual command recording, texture allocation, and submission are
// delegated to an injected Backend, the same seam pattern texture,
// pblock, rpcache, and surface use for internal/vk.
package renderer

import (
	"time"

	"github.com/teide-go/teide/format"
	"github.com/teide-go/teide/gpuexec"
	"github.com/teide-go/teide/handle"
	"github.com/teide-go/teide/pblock"
	"github.com/teide-go/teide/render"
	"github.com/teide-go/teide/texture"
)

// RenderTargetRequest extends render.RenderTargetInfo with the
// attributes needed to allocate a fresh renderable texture when the
// caller did not supply one: RenderTargetInfo alone (spec §3) carries no
// width/height/format, since a texture handle typically already names
// those, but RenderToTexture must be able to create attachments from
// scratch.
type RenderTargetRequest struct {
	render.RenderTargetInfo

	Width, Height                    uint32
	ColorFormat, DepthStencilFormat  format.Format
	SampleCount                      int
}

// SemaphoreWait pairs a semaphore a submission must wait on with the
// pipeline stage at which the wait applies (spec §4.J/§4.K: surface
// submissions wait on image-available semaphores at
// ColorAttachmentOutput).
type SemaphoreWait struct {
	Semaphore any
	Stage     texture.PipelineStage
}

// DrawParams is everything Backend.RecordDrawSequence needs to record
// one render pass's worth of draws into a command buffer (spec §4.K
// RenderToTexture/RenderToSurface): the resolved attachment handles and
// dimensions (so the backend can look up or build the render pass and
// framebuffer per §4.F), the populated scene/view parameter blocks, and
// the render list itself.
type DrawParams struct {
	Usage               render.RenderPassUsage
	ColorTexture        handle.Handle[any]
	HasColor            bool
	DepthStencilTexture handle.Handle[any]
	HasDepthStencil     bool
	Width, Height       uint32
	SampleCount         int
	Clear               render.ClearState
	Viewport            render.ViewportRegion
	Scissor             *render.ViewportRegion

	// Framebuffer, when non-nil, is the swapchain image's own framebuffer
	// object (surface.AcquireBundle.Framebuffer) that RecordDrawSequence
	// must render into directly rather than looking one up from rpcache
	// (spec §4.K RenderToSurface: the present path's framebuffer is the
	// swapchain's, built once per image by surface.Backend, not per draw).
	// Only ever set when Usage is render.UsagePresent.
	Framebuffer any

	Scene *pblock.Block
	View  *pblock.Block
	List  render.RenderList
}

// Backend is the seam the Vulkan implementation satisfies for the
// renderer package. It covers everything spec §4.K's algorithms name
// beyond parameter-block construction (already covered by pblock.Backend)
// and scheduling (already covered by scheduler.Scheduler): render
// texture allocation, layout transitions, draw-sequence recording,
// texture readback, and graphics-queue submission/sync-object lifetime.
type Backend interface {
	// CreateRenderTexture allocates a fresh color and/or depth-stencil
	// texture per req (spec §4.K "allocate renderable textures"); it is
	// only ever called for an aspect whose existing handle in req is not
	// Valid().
	CreateRenderTexture(req RenderTargetRequest) (color, depthStencil handle.Handle[any], err error)
	DestroyRenderTexture(tex handle.Handle[any])
	GetByteSize(tex handle.Handle[any]) int

	TransitionForColorTarget(cmdBuf gpuexec.CommandBuffer, tex handle.Handle[any])
	TransitionForDepthTarget(cmdBuf gpuexec.CommandBuffer, tex handle.Handle[any])
	TransitionForShaderReadOnly(cmdBuf gpuexec.CommandBuffer, tex handle.Handle[any])

	// RecordDrawSequence looks up (or builds, via rpcache) the render
	// pass and framebuffer for params' attachments, then records
	// beginRenderPass → setViewport → setScissor →
	// bindDescriptorSets(scene, view) → per-object draws → endRenderPass
	// (spec §4.K).
	RecordDrawSequence(cmdBuf gpuexec.CommandBuffer, params DrawParams) error

	// ReadbackTexture records a host-visible copy of every mip of tex
	// into a freshly allocated buffer (spec §4.K CopyTextureData) and
	// returns a handle to that buffer.
	ReadbackTexture(cmdBuf gpuexec.CommandBuffer, tex handle.Handle[any]) (handle.Handle[any], error)
	MapReadback(buf handle.Handle[any]) []byte
	ReleaseReadback(buf handle.Handle[any])

	// SubmitGraphics submits cmds, in order, as one sequence directly to
	// the graphics queue (bypassing the gpuexec/scheduler slot machinery,
	// spec §4.K EndFrame step 5), waiting on each of waits at its named
	// stage and signaling every semaphore in signal plus fence. onDone, if
	// non-nil, runs once the submission's fence has signaled (used to
	// return consumed command buffers to their pool).
	SubmitGraphics(cmds []gpuexec.CommandBuffer, waits []SemaphoreWait, signal []any, fence any, onDone func()) error

	CreateFence(signaled bool) any
	WaitFence(f any, timeout time.Duration) error
	ResetFence(f any)
	DestroyFence(f any)
	CreateSemaphore() any
	DestroySemaphore(s any)
}

// ParameterData is the raw uniform bytes plus texture list used to
// populate a Scene or View parameter block (spec §4.K BeginFrame,
// §4.K RenderToTexture/RenderToSurface's per-list view data).
type ParameterData struct {
	UniformData []byte
	Textures    []handle.Handle[any]
}

// TextureData is CopyTextureData's result: the raw bytes read back from
// every mip level of a texture, concatenated in mip order (spec §8
// scenario 3 "Mipmap generation").
type TextureData struct {
	Pixels []byte
}
