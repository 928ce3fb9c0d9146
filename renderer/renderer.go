// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package renderer

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jinzhu/copier"

	"github.com/teide-go/teide/cpuexec"
	"github.com/teide-go/teide/gpuexec"
	"github.com/teide-go/teide/handle"
	"github.com/teide-go/teide/pblock"
	"github.com/teide-go/teide/render"
	"github.com/teide-go/teide/scheduler"
	"github.com/teide-go/teide/shaderdata"
	"github.com/teide-go/teide/surface"
	"github.com/teide-go/teide/texture"
)

// frameState is the Idle/InFrame protocol state (spec §4.K "States").
type frameState int

const (
	stateIdle frameState = iota
	stateInFrame
)

// pendingSurfaceTask is one RenderToSurface call recorded but not yet
// submitted; EndFrame drains and submits every entry collected this
// frame (spec §4.K RenderToSurface/EndFrame).
type pendingSurfaceTask struct {
	surf    *surface.Surface
	bundle  *surface.AcquireBundle
	future  *cpuexec.Future[gpuexec.CommandBuffer]
}

// Renderer is Teide's per-frame state machine (spec §4.K): it owns the
// Scene/View parameter-block environment shared by every shader used
// through it, the in-flight fence/semaphore bookkeeping for up to
// MaxFramesInFlight frames, and the pending-surface-submission list
// EndFrame drains.
type Renderer struct {
	sched   *scheduler.Scheduler
	backend Backend
	pool    scheduler.CommandBufferPool

	sceneDesc    shaderdata.ParameterBlockDescriptor
	viewDesc     shaderdata.ParameterBlockDescriptor
	sceneBackend pblock.Backend
	viewBackend  pblock.Backend

	maxFramesInFlight int
	frameSlot         int
	frameNumber       uint64

	inFlightFences []any
	renderFinished []any

	mu      sync.Mutex
	state   frameState
	scene   *pblock.Block
	pending []pendingSurfaceTask
}

// New constructs a Renderer bound to one ShaderEnvironment (spec §6
// "createRenderer(shaderEnvironment)"). sceneBackend/viewBackend are the
// pblock.Backend instances allocating descriptor sets 0 and 1
// respectively; pool supplies the command buffers RenderToSurface
// records into outside the scheduler's own ScheduleGpu path, since that
// path submits and waits immediately while surface submission must wait
// for EndFrame.
func New(sched *scheduler.Scheduler, backend Backend, pool scheduler.CommandBufferPool, env shaderdata.ShaderEnvironmentData, sceneBackend, viewBackend pblock.Backend, maxFramesInFlight int) (*Renderer, error) {
	if maxFramesInFlight <= 0 {
		maxFramesInFlight = scheduler.MaxFramesInFlight
	}
	r := &Renderer{
		sched:             sched,
		backend:           backend,
		pool:              pool,
		sceneDesc:         env.ScenePblock,
		viewDesc:          env.ViewPblock,
		sceneBackend:      sceneBackend,
		viewBackend:       viewBackend,
		maxFramesInFlight: maxFramesInFlight,
		frameSlot:         -1,
		inFlightFences:    make([]any, maxFramesInFlight),
		renderFinished:    make([]any, maxFramesInFlight),
	}
	for i := range r.inFlightFences {
		r.inFlightFences[i] = backend.CreateFence(true)
		r.renderFinished[i] = backend.CreateSemaphore()
	}
	return r, nil
}

// GetFrameNumber returns the count of BeginFrame calls so far (spec §6
// "getFrameNumber").
func (r *Renderer) GetFrameNumber() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameNumber
}

// sceneViewLayout derives desc's layout with IsPushConstant forced
// false: Scene and View always bind via descriptor sets 0 and 1, never
// push constants (spec §4.C step 2 reserves push constants for set 3
// alone; pblock.DeriveLayout itself has no notion of which set it was
// called for).
func sceneViewLayout(desc shaderdata.ParameterBlockDescriptor) pblock.Layout {
	layout := pblock.DeriveLayout(desc)
	layout.IsPushConstant = false
	return layout
}

// BeginFrame advances to the next frame slot, waits for it to be free,
// recycles the scheduler's transient resources, and builds the
// transient Scene parameter block (spec §4.K BeginFrame).
func (r *Renderer) BeginFrame(sceneParameters ParameterData) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != stateIdle {
		return fmt.Errorf("teide: renderer: BeginFrame: called while already in a frame")
	}

	r.frameSlot = (r.frameSlot + 1) % r.maxFramesInFlight
	if err := r.backend.WaitFence(r.inFlightFences[r.frameSlot], time.Second); err != nil {
		return fmt.Errorf("teide: renderer: BeginFrame: waiting on in-flight fence: %w", err)
	}

	r.sched.NextFrame()
	r.frameNumber++

	scene, err := pblock.NewWithLayout(sceneViewLayout(r.sceneDesc), r.sceneBackend)
	if err != nil {
		return fmt.Errorf("teide: renderer: BeginFrame: building scene block: %w", err)
	}
	if err := pblock.Populate(scene, sceneParameters.UniformData, sceneParameters.Textures); err != nil {
		return fmt.Errorf("teide: renderer: BeginFrame: populating scene block: %w", err)
	}
	r.scene = scene

	r.state = stateInFrame
	r.pending = r.pending[:0]
	return nil
}

// cloneRenderList deep-copies renderList so the asynchronously scheduled
// recording closure never aliases the caller's backing arrays
// (RenderList.Objects and each object's ObjectUniformData/ObjectTextures
// are slices); the caller is free to mutate or reuse its RenderList value
// as soon as RenderToSurface/RenderToTexture returns.
func cloneRenderList(renderList render.RenderList) (render.RenderList, error) {
	var clone render.RenderList
	if err := copier.CopyWithOption(&clone, &renderList, copier.Option{DeepCopy: true}); err != nil {
		return render.RenderList{}, fmt.Errorf("cloning render list: %w", err)
	}
	return clone, nil
}

// buildViewBlock constructs and populates this frame's transient View
// parameter block from view (spec §4.K RenderToTexture/RenderToSurface
// both bind scene+view before any per-object state).
func (r *Renderer) buildViewBlock(view ParameterData) (*pblock.Block, error) {
	block, err := pblock.NewWithLayout(sceneViewLayout(r.viewDesc), r.viewBackend)
	if err != nil {
		return nil, fmt.Errorf("building view block: %w", err)
	}
	if err := pblock.Populate(block, view.UniformData, view.Textures); err != nil {
		return nil, fmt.Errorf("populating view block: %w", err)
	}
	return block, nil
}

// RenderToTexture renders renderList into target (spec §4.K
// RenderToTexture): allocates any renderable textures the caller did
// not already supply, records the draw sequence on the GPU scheduler,
// and returns the color/depth-stencil handles once the GPU work has
// been submitted.
func (r *Renderer) RenderToTexture(target RenderTargetRequest, view ParameterData, renderList render.RenderList) (colorTexture, depthStencilTexture handle.Handle[any], err error) {
	r.mu.Lock()
	if r.state != stateInFrame {
		r.mu.Unlock()
		return handle.Handle[any]{}, handle.Handle[any]{}, fmt.Errorf("teide: renderer: RenderToTexture: called outside a frame")
	}
	scene := r.scene
	r.mu.Unlock()

	renderList, err = cloneRenderList(renderList)
	if err != nil {
		return handle.Handle[any]{}, handle.Handle[any]{}, fmt.Errorf("teide: renderer: RenderToTexture: %w", err)
	}

	colorTexture, depthStencilTexture = target.ColorTexture, target.DepthStencilTexture
	if (target.HasColor && !colorTexture.Valid()) || (target.HasDepthStencil && !depthStencilTexture.Valid()) {
		colorTexture, depthStencilTexture, err = r.backend.CreateRenderTexture(target)
		if err != nil {
			return handle.Handle[any]{}, handle.Handle[any]{}, fmt.Errorf("teide: renderer: RenderToTexture: allocating render texture: %w", err)
		}
	}

	viewBlock, err := r.buildViewBlock(view)
	if err != nil {
		return handle.Handle[any]{}, handle.Handle[any]{}, fmt.Errorf("teide: renderer: RenderToTexture: %w", err)
	}

	future := scheduler.ScheduleGpu(r.sched, func(workerID int, cmdBuf gpuexec.CommandBuffer) struct{} {
		if target.HasColor {
			r.backend.TransitionForColorTarget(cmdBuf, colorTexture)
		}
		if target.HasDepthStencil {
			r.backend.TransitionForDepthTarget(cmdBuf, depthStencilTexture)
		}

		if err := r.backend.RecordDrawSequence(cmdBuf, DrawParams{
			Usage:               render.UsageOffscreen,
			ColorTexture:        colorTexture,
			HasColor:            target.HasColor,
			DepthStencilTexture: depthStencilTexture,
			HasDepthStencil:     target.HasDepthStencil,
			Width:               target.Width,
			Height:              target.Height,
			SampleCount:         target.SampleCount,
			Clear:               target.Clear,
			Viewport:            target.Viewport,
			Scissor:             target.Scissor,
			Scene:               scene,
			View:                viewBlock,
			List:                renderList,
		}); err != nil {
			panic(fmt.Errorf("teide: renderer: RenderToTexture: recording draw sequence: %w", err))
		}

		if target.CaptureColor && target.HasColor {
			r.backend.TransitionForShaderReadOnly(cmdBuf, colorTexture)
		}
		if target.CaptureDepthStencil && target.HasDepthStencil {
			r.backend.TransitionForShaderReadOnly(cmdBuf, depthStencilTexture)
		}
		return struct{}{}
	})

	if _, err := future.Wait(); err != nil {
		return handle.Handle[any]{}, handle.Handle[any]{}, fmt.Errorf("teide: renderer: RenderToTexture: %w", err)
	}
	if !target.CaptureColor {
		colorTexture = handle.Handle[any]{}
	}
	if !target.CaptureDepthStencil {
		depthStencilTexture = handle.Handle[any]{}
	}
	return colorTexture, depthStencilTexture, nil
}

// RenderToSurface acquires surf's next swapchain image and schedules a
// CPU task that records renderList into a thread-local command buffer,
// to be submitted together with every other surface recorded this frame
// at EndFrame (spec §4.K RenderToSurface). An out-of-date swapchain is
// recovered internally (spec §7 "OutOfDateSwapchain ... handled by
// OnResize") and simply skips this call for the current frame.
func (r *Renderer) RenderToSurface(surf *surface.Surface, target render.RenderTargetInfo, view ParameterData, renderList render.RenderList) error {
	r.mu.Lock()
	if r.state != stateInFrame {
		r.mu.Unlock()
		return fmt.Errorf("teide: renderer: RenderToSurface: called outside a frame")
	}
	scene := r.scene
	frameFence := r.inFlightFences[r.frameSlot]
	r.mu.Unlock()

	renderList, err := cloneRenderList(renderList)
	if err != nil {
		return fmt.Errorf("teide: renderer: RenderToSurface: %w", err)
	}

	bundle, err := surf.AcquireNextImage(surface.Fence(frameFence))
	if err != nil {
		if err == surface.ErrSwapchainOutOfDate {
			slog.Warn("teide: renderer: RenderToSurface: swapchain out of date, skipping this frame")
			return nil
		}
		return fmt.Errorf("teide: renderer: RenderToSurface: acquiring image: %w", err)
	}

	viewBlock, err := r.buildViewBlock(view)
	if err != nil {
		return fmt.Errorf("teide: renderer: RenderToSurface: %w", err)
	}

	future := scheduler.Schedule(r.sched, func(workerID int) gpuexec.CommandBuffer {
		cmdBuf, err := r.pool.Acquire(workerID)
		if err != nil {
			panic(fmt.Errorf("teide: renderer: RenderToSurface: acquiring command buffer: %w", err))
		}
		if err := r.backend.RecordDrawSequence(cmdBuf, DrawParams{
			Usage:               render.UsagePresent,
			ColorTexture:        handle.Handle[any]{},
			HasColor:            true,
			DepthStencilTexture: target.DepthStencilTexture,
			HasDepthStencil:     target.HasDepthStencil,
			Width:               bundle.Width,
			Height:              bundle.Height,
			Clear:               target.Clear,
			Viewport:            target.Viewport,
			Scissor:             target.Scissor,
			Framebuffer:         bundle.Framebuffer,
			Scene:               scene,
			View:                viewBlock,
			List:                renderList,
		}); err != nil {
			panic(fmt.Errorf("teide: renderer: RenderToSurface: recording draw sequence: %w", err))
		}
		return cmdBuf
	})

	r.mu.Lock()
	r.pending = append(r.pending, pendingSurfaceTask{surf: surf, bundle: bundle, future: future})
	r.mu.Unlock()
	return nil
}

// EndFrame drains the CPU queue, submits every surface command buffer
// recorded this frame as one sequence, and presents each acquired image
// (spec §4.K EndFrame). A frame with no RenderToSurface calls is a
// GPU-state no-op (spec §8 "beginFrame; endFrame is a no-op").
func (r *Renderer) EndFrame() error {
	r.sched.WaitForCpu()

	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	frameSlot := r.frameSlot
	r.state = stateIdle
	r.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	r.backend.ResetFence(r.inFlightFences[frameSlot])

	var cmds []gpuexec.CommandBuffer
	var recorded []gpuexec.CommandBuffer
	var waits []SemaphoreWait
	for _, task := range pending {
		cmdBuf, err := task.future.Wait()
		if err != nil {
			return fmt.Errorf("teide: renderer: EndFrame: recording surface draw: %w", err)
		}
		recorded = append(recorded, cmdBuf)
		cmds = append(cmds, cmdBuf, gpuexec.CommandBuffer(task.bundle.PrePresentCommandBuffer))
		waits = append(waits, SemaphoreWait{
			Semaphore: task.bundle.ImageAvailableSemaphore,
			Stage:     texture.StageColorAttachmentOutput,
		})
	}

	signal := []any{r.renderFinished[frameSlot]}
	err := r.backend.SubmitGraphics(cmds, waits, signal, r.inFlightFences[frameSlot], func() {
		for _, cmdBuf := range recorded {
			r.pool.Release(cmdBuf)
		}
	})
	if err != nil {
		return fmt.Errorf("teide: renderer: EndFrame: submitting graphics queue: %w", err)
	}

	for _, task := range pending {
		if err := task.surf.Present(task.bundle.ImageIndex, surface.Semaphore(r.renderFinished[frameSlot])); err != nil {
			return fmt.Errorf("teide: renderer: EndFrame: presenting: %w", err)
		}
	}
	return nil
}

// CopyTextureData reads every mip of tex back to the CPU (spec §4.K
// CopyTextureData): a GPU task copies each mip into a host-visible
// buffer, and a chained CPU task maps and copies the bytes out.
func (r *Renderer) CopyTextureData(tex handle.Handle[any]) *cpuexec.Future[TextureData] {
	gpuFuture := scheduler.ScheduleGpu(r.sched, func(workerID int, cmdBuf gpuexec.CommandBuffer) handle.Handle[any] {
		buf, err := r.backend.ReadbackTexture(cmdBuf, tex)
		if err != nil {
			panic(fmt.Errorf("teide: renderer: CopyTextureData: %w", err))
		}
		return buf
	})
	return scheduler.ScheduleAfter(r.sched, gpuFuture, func(workerID int, buf handle.Handle[any]) TextureData {
		bytes := r.backend.MapReadback(buf)
		out := append([]byte(nil), bytes...)
		r.backend.ReleaseReadback(buf)
		return TextureData{Pixels: out}
	})
}

// Destroy releases every fence and semaphore this Renderer owns. The
// caller must ensure no frame is in flight (spec §5 "Shutdown is a
// clean drain").
func (r *Renderer) Destroy() {
	for _, f := range r.inFlightFences {
		r.backend.DestroyFence(f)
	}
	for _, s := range r.renderFinished {
		r.backend.DestroySemaphore(s)
	}
}
