// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vk

import (
	"fmt"
	"sync"
	"time"
	"unsafe"

	vulkan "github.com/goki/vulkan"

	"github.com/teide-go/teide/format"
	"github.com/teide-go/teide/gpuexec"
	"github.com/teide-go/teide/handle"
	"github.com/teide-go/teide/pblock"
	"github.com/teide-go/teide/render"
	"github.com/teide-go/teide/renderer"
	"github.com/teide-go/teide/rpcache"
	"github.com/teide-go/teide/texture"
)

// RenderBackend implements renderer.Backend (spec §4.K): render texture
// allocation, the color/depth-stencil layout transitions RenderToTexture
// and RenderToSurface need around a draw, draw-sequence recording via the
// shared render-pass/framebuffer caches, readback staging, and direct
// graphics-queue submission bypassing gpuexec.
type RenderBackend struct {
	device *Device

	textures   *handle.Registry[any] // *Texture, shared with ParamBlockBackend
	meshes     *handle.Registry[any] // *Mesh
	pipelines  *handle.Registry[any] // *Pipeline
	pblocks    *handle.Registry[any] // *pblock.Block, material param blocks
	readback   *handle.Registry[any] // *Buffer, CopyTextureData staging buffers

	rpBuilder *RenderPassBuilder
	rpCache   *rpcache.RenderPassCache
	fbCache   *rpcache.FramebufferCache

	mu          sync.Mutex
	viewHandles map[uint64]handle.Handle[any]
}

var _ renderer.Backend = (*RenderBackend)(nil)

// NewRenderBackend returns a renderer.Backend over d. textures, meshes,
// pipelines, and pblocks are the registries shared with device's other
// constructors (reflectbuild/pblock object creation) so that a
// renderer.RenderList's handles resolve to the same underlying resources
// no matter which package created them.
func NewRenderBackend(d *Device, textures, meshes, pipelines, pblocks *handle.Registry[any]) *RenderBackend {
	imageViews := handle.NewRegistry[any]("image-view")
	rpBuilder := NewRenderPassBuilder(d, imageViews)
	return &RenderBackend{
		device:      d,
		textures:    textures,
		meshes:      meshes,
		pipelines:   pipelines,
		pblocks:     pblocks,
		readback:    handle.NewRegistry[any]("readback-buffer"),
		rpBuilder:   rpBuilder,
		rpCache:     rpcache.NewRenderPassCache(rpBuilder),
		fbCache:     rpcache.NewFramebufferCache(rpBuilder),
		viewHandles: make(map[uint64]handle.Handle[any]),
	}
}

// Caches returns the render-pass builder and the two content-addressed
// caches this backend was constructed with. A Swapchain must be built
// from the same triple as the Renderer it presents for: its present-pass
// framebuffers and RecordDrawSequence's presentRenderPassDescriptor both
// resolve through rpCache/fbCache, so a mismatched pair would build two
// incompatible render pass objects for the same swapchain images.
func (b *RenderBackend) Caches() (*RenderPassBuilder, *rpcache.RenderPassCache, *rpcache.FramebufferCache) {
	return b.rpBuilder, b.rpCache, b.fbCache
}

func (b *RenderBackend) registerView(texHandle handle.Handle[any], view vulkan.ImageView) handle.Handle[any] {
	h := b.rpBuilder.imageViews.Insert(view)
	b.mu.Lock()
	b.viewHandles[texHandle.Index()] = h
	b.mu.Unlock()
	return h
}

func (b *RenderBackend) viewHandleFor(texHandle handle.Handle[any]) (handle.Handle[any], bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.viewHandles[texHandle.Index()]
	return h, ok
}

// defaultRenderTargetSampler is used for every texture CreateRenderTexture
// allocates: render targets are read back by later material passes with
// clamped, linearly-filtered sampling far more often than they are
// wrapped or mip-biased.
var defaultRenderTargetSampler = render.SamplerState{
	MagFilter:     render.FilterLinear,
	MinFilter:     render.FilterLinear,
	MipmapMode:    render.MipmapModeLinear,
	AddressModeU:  render.AddressModeClampToEdge,
	AddressModeV:  render.AddressModeClampToEdge,
	AddressModeW:  render.AddressModeClampToEdge,
}

// CreateRenderTexture implements renderer.Backend.
func (b *RenderBackend) CreateRenderTexture(req renderer.RenderTargetRequest) (color, depthStencil handle.Handle[any], err error) {
	sampleCount := req.SampleCount
	if sampleCount < 1 {
		sampleCount = 1
	}

	if !req.ColorTexture.Valid() && req.HasColor {
		tex, err := b.device.CreateTexture(req.Width, req.Height, req.ColorFormat, 1, sampleCount, defaultRenderTargetSampler, nil)
		if err != nil {
			return handle.Handle[any]{}, handle.Handle[any]{}, fmt.Errorf("teide: vk: CreateRenderTexture: color: %w", err)
		}
		h := b.textures.Insert(tex)
		b.registerView(h, tex.ImageView())
		color = h
	} else {
		color = req.ColorTexture
	}

	if !req.DepthStencilTexture.Valid() && req.HasDepthStencil {
		tex, err := b.device.CreateTexture(req.Width, req.Height, req.DepthStencilFormat, 1, sampleCount, defaultRenderTargetSampler, nil)
		if err != nil {
			return handle.Handle[any]{}, handle.Handle[any]{}, fmt.Errorf("teide: vk: CreateRenderTexture: depth-stencil: %w", err)
		}
		h := b.textures.Insert(tex)
		b.registerView(h, tex.ImageView())
		depthStencil = h
	} else {
		depthStencil = req.DepthStencilTexture
	}

	return color, depthStencil, nil
}

// DestroyRenderTexture implements renderer.Backend.
func (b *RenderBackend) DestroyRenderTexture(tex handle.Handle[any]) {
	if !tex.Valid() {
		return
	}
	resource := b.textures.Get(tex)
	if t, ok := resource.(*Texture); ok {
		t.Destroy()
	}
	tex.Release()
}

// GetByteSize implements renderer.Backend: the sum, across every mip
// level, of width*height*format element size, halving each dimension
// (floored at 1) per level.
func (b *RenderBackend) GetByteSize(tex handle.Handle[any]) int {
	t, ok := b.textures.Get(tex).(*Texture)
	if !ok {
		return 0
	}
	elemSize := format.ElementSize(t.Format)
	w, h := int(t.Width), int(t.Height)
	total := 0
	for mip := 0; mip < t.MipLevels; mip++ {
		total += w * h * elemSize
		if w > 1 {
			w /= 2
		}
		if h > 1 {
			h /= 2
		}
	}
	return total
}

func (b *RenderBackend) transitionTexture(cmdBuf gpuexec.CommandBuffer, tex handle.Handle[any], target texture.Layout) {
	t, ok := b.textures.Get(tex).(*Texture)
	if !ok {
		return
	}
	cmd, ok := cmdBuf.(vulkan.CommandBuffer)
	if !ok {
		return
	}
	rec := &imageRecorder{image: t.image, cmd: cmd}
	for i := range t.MipStates {
		texture.Transition(&t.MipStates[i], rec, i, target)
	}
}

// TransitionForColorTarget implements renderer.Backend.
func (b *RenderBackend) TransitionForColorTarget(cmdBuf gpuexec.CommandBuffer, tex handle.Handle[any]) {
	b.transitionTexture(cmdBuf, tex, texture.ColorAttachment)
}

// TransitionForDepthTarget implements renderer.Backend.
func (b *RenderBackend) TransitionForDepthTarget(cmdBuf gpuexec.CommandBuffer, tex handle.Handle[any]) {
	b.transitionTexture(cmdBuf, tex, texture.DepthStencilAttachment)
}

// TransitionForShaderReadOnly implements renderer.Backend.
func (b *RenderBackend) TransitionForShaderReadOnly(cmdBuf gpuexec.CommandBuffer, tex handle.Handle[any]) {
	b.transitionTexture(cmdBuf, tex, texture.ShaderReadOnly)
}

// presentRenderPassDescriptor must match Swapchain.build()'s descriptor
// exactly (render.RenderPassDescriptor is cache-keyed by struct equality)
// so RecordDrawSequence's present path reuses the swapchain's own render
// pass rather than building an incompatible duplicate. The swapchain's
// framebuffer carries no depth-stencil attachment, so the present path
// never includes one either.
func presentRenderPassDescriptor(colorFormat format.Format) render.RenderPassDescriptor {
	return render.RenderPassDescriptor{
		FramebufferLayout: render.FramebufferLayout{
			ColorFormat:  colorFormat,
			HasColor:     true,
			SampleCount:  1,
			CaptureColor: true,
		},
		ColorLoadOp:  render.LoadOpClear,
		ColorStoreOp: render.StoreOpStore,
		Usage:        render.UsagePresent,
	}
}

// offscreenRenderPassDescriptor derives the render pass a RenderToTexture
// draw needs from its resolved attachments. Both CaptureColor and
// CaptureDepthStencil are always true here: Renderer.RenderToTexture
// always transitions its attachments to *Attachment layout itself,
// immediately before calling RecordDrawSequence, regardless of the
// caller's eventual post-pass sampling intent.
func offscreenRenderPassDescriptor(params renderer.DrawParams, colorFormat, depthFormat format.Format) render.RenderPassDescriptor {
	layout := render.FramebufferLayout{
		SampleCount:         params.SampleCount,
		CaptureColor:        true,
		CaptureDepthStencil: true,
	}
	if layout.SampleCount < 1 {
		layout.SampleCount = 1
	}
	colorLoad, colorStore := render.LoadOpLoad, render.StoreOpStore
	depthLoad, depthStore := render.LoadOpLoad, render.StoreOpStore
	if params.HasColor {
		layout.HasColor = true
		layout.ColorFormat = colorFormat
		if params.Clear.Color != nil {
			colorLoad = render.LoadOpClear
		}
	} else {
		colorStore = render.StoreOpDontCare
	}
	if params.HasDepthStencil {
		layout.HasDepthStencil = true
		layout.DepthStencilFormat = depthFormat
		if params.Clear.Depth != nil || params.Clear.Stencil != nil {
			depthLoad = render.LoadOpClear
		}
	} else {
		depthStore = render.StoreOpDontCare
	}
	return render.RenderPassDescriptor{
		FramebufferLayout: layout,
		ColorLoadOp:       colorLoad,
		ColorStoreOp:      colorStore,
		DepthLoadOp:       depthLoad,
		DepthStoreOp:      depthStore,
		Usage:             render.UsageOffscreen,
	}
}

func clearValuesFor(params renderer.DrawParams) ClearValues {
	var cv ClearValues
	if params.Clear.Color != nil {
		cv.HasColor = true
		cv.Color = [4]float32(*params.Clear.Color)
	}
	if params.Clear.Depth != nil {
		cv.HasDepth = true
		cv.Depth = *params.Clear.Depth
	}
	if params.Clear.Stencil != nil {
		cv.Stencil = *params.Clear.Stencil
	}
	return cv
}

// RecordDrawSequence implements renderer.Backend: it resolves (building
// through rpcache as needed) the render pass and framebuffer for params,
// then records beginRenderPass -> setViewport/scissor -> bind scene/view
// sets -> per-object draws -> endRenderPass.
func (b *RenderBackend) RecordDrawSequence(cmdBuf gpuexec.CommandBuffer, params renderer.DrawParams) error {
	cmd, ok := cmdBuf.(vulkan.CommandBuffer)
	if !ok {
		return fmt.Errorf("teide: vk: RecordDrawSequence: unexpected command buffer type %T", cmdBuf)
	}

	var rpHandle handle.Handle[any]
	var fb vulkan.Framebuffer

	switch params.Usage {
	case render.UsagePresent:
		colorFormat := format.Byte4Srgb
		if t, ok := b.textures.Get(params.ColorTexture).(*Texture); ok {
			colorFormat = t.Format
		}
		rawHandle, err := b.rpCache.Get(presentRenderPassDescriptor(colorFormat))
		if err != nil {
			return fmt.Errorf("teide: vk: RecordDrawSequence: present render pass: %w", err)
		}
		h, ok := rawHandle.(handle.Handle[any])
		if !ok {
			return fmt.Errorf("teide: vk: RecordDrawSequence: present render pass: unexpected cache value type %T", rawHandle)
		}
		rpHandle = h

		rawFb, ok := params.Framebuffer.(vulkan.Framebuffer)
		if !ok {
			return fmt.Errorf("teide: vk: RecordDrawSequence: present framebuffer: unexpected type %T", params.Framebuffer)
		}
		fb = rawFb

	case render.UsageOffscreen:
		var colorFormat, depthFormat format.Format
		if params.HasColor {
			if t, ok := b.textures.Get(params.ColorTexture).(*Texture); ok {
				colorFormat = t.Format
			}
		}
		if params.HasDepthStencil {
			if t, ok := b.textures.Get(params.DepthStencilTexture).(*Texture); ok {
				depthFormat = t.Format
			}
		}
		rpDesc := offscreenRenderPassDescriptor(params, colorFormat, depthFormat)
		rawHandle, err := b.rpCache.Get(rpDesc)
		if err != nil {
			return fmt.Errorf("teide: vk: RecordDrawSequence: offscreen render pass: %w", err)
		}
		h, ok := rawHandle.(handle.Handle[any])
		if !ok {
			return fmt.Errorf("teide: vk: RecordDrawSequence: offscreen render pass: unexpected cache value type %T", rawHandle)
		}
		rpHandle = h

		var views []handle.Handle[any]
		if params.HasColor {
			v, ok := b.viewHandleFor(params.ColorTexture)
			if !ok {
				return fmt.Errorf("teide: vk: RecordDrawSequence: no registered image view for color texture")
			}
			views = append(views, v)
		}
		if params.HasDepthStencil {
			v, ok := b.viewHandleFor(params.DepthStencilTexture)
			if !ok {
				return fmt.Errorf("teide: vk: RecordDrawSequence: no registered image view for depth-stencil texture")
			}
			views = append(views, v)
		}
		fbDesc := render.FramebufferDescriptor{
			RenderPass:      rpHandle,
			Width:           params.Width,
			Height:          params.Height,
			AttachmentViews: views,
		}
		rawFb, err := b.fbCache.Get(fbDesc)
		if err != nil {
			return fmt.Errorf("teide: vk: RecordDrawSequence: offscreen framebuffer: %w", err)
		}
		vkFb, ok := rawFb.(vulkan.Framebuffer)
		if !ok {
			return fmt.Errorf("teide: vk: RecordDrawSequence: offscreen framebuffer: unexpected cache value type %T", rawFb)
		}
		fb = vkFb

	default:
		return fmt.Errorf("teide: vk: RecordDrawSequence: unknown usage %v", params.Usage)
	}

	renderPass, err := b.rpBuilder.resolveRenderPass(rpHandle)
	if err != nil {
		return fmt.Errorf("teide: vk: RecordDrawSequence: resolving render pass: %w", err)
	}

	BeginRenderPass(cmd, renderPass, fb, params.Width, params.Height, clearValuesFor(params))
	SetViewportScissor(cmd, params.Width, params.Height, params.Viewport, params.Scissor)

	for _, obj := range params.List.Objects {
		pipeline, ok := b.pipelines.Get(obj.Pipeline).(*Pipeline)
		if !ok {
			EndRenderPass(cmd)
			return fmt.Errorf("teide: vk: RecordDrawSequence: object pipeline handle does not resolve to *Pipeline")
		}
		vkPipeline, err := pipeline.CompileForPass(renderPass, params.SampleCount)
		if err != nil {
			EndRenderPass(cmd)
			return fmt.Errorf("teide: vk: RecordDrawSequence: compiling pipeline: %w", err)
		}
		BindPipeline(cmd, vkPipeline)

		if params.Scene != nil && !params.Scene.IsEmpty() {
			if set, ok := params.Scene.DescriptorSet().(vulkan.DescriptorSet); ok {
				BindDescriptorSets(cmd, pipeline.layout, 0, []vulkan.DescriptorSet{set})
			}
		}
		if params.View != nil && !params.View.IsEmpty() {
			if set, ok := params.View.DescriptorSet().(vulkan.DescriptorSet); ok {
				BindDescriptorSets(cmd, pipeline.layout, 1, []vulkan.DescriptorSet{set})
			}
		}

		mesh, ok := b.meshes.Get(obj.Mesh).(*Mesh)
		if !ok {
			EndRenderPass(cmd)
			return fmt.Errorf("teide: vk: RecordDrawSequence: object mesh handle does not resolve to *Mesh")
		}
		mesh.BindForDraw(cmd)

		if obj.MaterialParamBlock.Valid() {
			if mat, ok := b.pblocks.Get(obj.MaterialParamBlock).(*pblock.Block); ok && !mat.IsEmpty() {
				if set, ok := mat.DescriptorSet().(vulkan.DescriptorSet); ok {
					BindDescriptorSets(cmd, pipeline.layout, 2, []vulkan.DescriptorSet{set})
				}
			}
		}

		// Object set (set 3) is always treated as push-constant data;
		// per-object texture bindings would need a ParameterBlockDescriptor
		// to derive a real descriptor-set layout, which RecordDrawSequence
		// is never given (spec §4.D only names raw bytes + handles here).
		PushConstants(cmd, pipeline.layout, obj.ObjectUniformData)

		if mesh.IndexCount > 0 {
			DrawIndexed(cmd, mesh.IndexCount)
		} else {
			Draw(cmd, mesh.VertexCount)
		}
	}

	EndRenderPass(cmd)
	return nil
}

// ReadbackTexture implements renderer.Backend: stage every mip of tex
// into one host-visible buffer via transfer barriers.
func (b *RenderBackend) ReadbackTexture(cmdBuf gpuexec.CommandBuffer, tex handle.Handle[any]) (handle.Handle[any], error) {
	cmd, ok := cmdBuf.(vulkan.CommandBuffer)
	if !ok {
		return handle.Handle[any]{}, fmt.Errorf("teide: vk: ReadbackTexture: unexpected command buffer type %T", cmdBuf)
	}
	t, ok := b.textures.Get(tex).(*Texture)
	if !ok {
		return handle.Handle[any]{}, fmt.Errorf("teide: vk: ReadbackTexture: handle does not resolve to *Texture")
	}

	size := b.GetByteSize(tex)
	rb, err := b.device.CreateBuffer(size, UsageGeneric, Transient, true, nil)
	if err != nil {
		return handle.Handle[any]{}, fmt.Errorf("teide: vk: ReadbackTexture: allocating staging buffer: %w", err)
	}

	rec := &imageRecorder{image: t.image, cmd: cmd}
	elemSize := format.ElementSize(t.Format)
	w, h := int(t.Width), int(t.Height)
	offset := 0
	for mip := range t.MipStates {
		texture.Transition(&t.MipStates[mip], rec, mip, texture.TransferSrc)
		mipSize := uint32(w * h * elemSize)
		vulkan.CmdCopyImageToBuffer(cmd, t.image, vulkan.ImageLayoutTransferSrcOptimal, rb.DeviceHandle(), 1, []vulkan.BufferImageCopy{{
			BufferOffset: vulkan.DeviceSize(offset),
			ImageSubresource: vulkan.ImageSubresourceLayers{
				AspectMask: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
				MipLevel:   uint32(mip),
				LayerCount: 1,
			},
			ImageExtent: vulkan.Extent3D{Width: uint32(w), Height: uint32(h), Depth: 1},
		}})
		offset += int(mipSize)
		texture.Transition(&t.MipStates[mip], rec, mip, texture.ShaderReadOnly)
		if w > 1 {
			w /= 2
		}
		if h > 1 {
			h /= 2
		}
	}

	return b.readback.Insert(rb), nil
}

// MapReadback implements renderer.Backend.
func (b *RenderBackend) MapReadback(buf handle.Handle[any]) []byte {
	rb, ok := b.readback.Get(buf).(*Buffer)
	if !ok || rb.hostPtr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(rb.hostPtr), rb.Size)
}

// ReleaseReadback implements renderer.Backend.
func (b *RenderBackend) ReleaseReadback(buf handle.Handle[any]) {
	if rb, ok := b.readback.Get(buf).(*Buffer); ok {
		rb.Destroy()
	}
	buf.Release()
}

// SubmitGraphics implements renderer.Backend: a direct vkQueueSubmit
// against the graphics queue, bypassing gpuexec/scheduler entirely (spec
// §4.K EndFrame step 5).
func (b *RenderBackend) SubmitGraphics(cmds []gpuexec.CommandBuffer, waits []renderer.SemaphoreWait, signal []any, fence any, onDone func()) error {
	vkCmds := make([]vulkan.CommandBuffer, len(cmds))
	for i, c := range cmds {
		cmd, ok := c.(vulkan.CommandBuffer)
		if !ok {
			return fmt.Errorf("teide: vk: SubmitGraphics: command buffer %d has unexpected type %T", i, c)
		}
		if !b.device.isReusable(cmd) {
			if ret := vulkan.EndCommandBuffer(cmd); ret != vulkan.Success {
				return fmt.Errorf("teide: vk: EndCommandBuffer failed: %d", ret)
			}
		}
		vkCmds[i] = cmd
	}

	waitSemaphores := make([]vulkan.Semaphore, len(waits))
	waitStages := make([]vulkan.PipelineStageFlags, len(waits))
	for i, w := range waits {
		s, ok := w.Semaphore.(vulkan.Semaphore)
		if !ok {
			return fmt.Errorf("teide: vk: SubmitGraphics: wait semaphore %d has unexpected type %T", i, w.Semaphore)
		}
		waitSemaphores[i] = s
		waitStages[i] = vulkan.PipelineStageFlags(pipelineStageFlags(w.Stage))
	}

	signalSemaphores := make([]vulkan.Semaphore, len(signal))
	for i, s := range signal {
		sem, ok := s.(vulkan.Semaphore)
		if !ok {
			return fmt.Errorf("teide: vk: SubmitGraphics: signal semaphore %d has unexpected type %T", i, s)
		}
		signalSemaphores[i] = sem
	}

	var vkFence vulkan.Fence
	if fence != nil {
		f, ok := fence.(vulkan.Fence)
		if !ok {
			return fmt.Errorf("teide: vk: SubmitGraphics: fence has unexpected type %T", fence)
		}
		vkFence = f
	}

	ret := vulkan.QueueSubmit(b.device.Queue, 1, []vulkan.SubmitInfo{{
		SType:                vulkan.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waitSemaphores)),
		PWaitSemaphores:      waitSemaphores,
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   uint32(len(vkCmds)),
		PCommandBuffers:      vkCmds,
		SignalSemaphoreCount: uint32(len(signalSemaphores)),
		PSignalSemaphores:    signalSemaphores,
	}}, vkFence)
	if ret != vulkan.Success {
		return fmt.Errorf("teide: vk: SubmitGraphics: QueueSubmit failed: %d", ret)
	}

	if onDone != nil && vkFence != nil {
		go func() {
			vulkan.WaitForFences(b.device.Logical, 1, []vulkan.Fence{vkFence}, vulkan.True, ^uint64(0))
			onDone()
		}()
	}
	return nil
}

// CreateFence implements renderer.Backend.
func (b *RenderBackend) CreateFence(signaled bool) any {
	f, err := b.device.CreateFence(signaled)
	if err != nil {
		panic(err)
	}
	return f
}

// WaitFence implements renderer.Backend.
func (b *RenderBackend) WaitFence(f any, timeout time.Duration) error {
	vkFence, ok := f.(vulkan.Fence)
	if !ok {
		return fmt.Errorf("teide: vk: WaitFence: unexpected fence type %T", f)
	}
	ret := vulkan.WaitForFences(b.device.Logical, 1, []vulkan.Fence{vkFence}, vulkan.True, uint64(timeout.Nanoseconds()))
	if ret != vulkan.Success && ret != vulkan.Timeout {
		return fmt.Errorf("teide: vk: WaitForFences failed: %d", ret)
	}
	return nil
}

// ResetFence implements renderer.Backend.
func (b *RenderBackend) ResetFence(f any) {
	vkFence, ok := f.(vulkan.Fence)
	if !ok {
		return
	}
	checkResult(vulkan.ResetFences(b.device.Logical, 1, []vulkan.Fence{vkFence}), "ResetFences")
}

// DestroyFence implements renderer.Backend.
func (b *RenderBackend) DestroyFence(f any) {
	if vkFence, ok := f.(vulkan.Fence); ok {
		vulkan.DestroyFence(b.device.Logical, vkFence, nil)
	}
}

// CreateSemaphore implements renderer.Backend.
func (b *RenderBackend) CreateSemaphore() any {
	s, err := b.device.CreateSemaphore()
	if err != nil {
		panic(err)
	}
	return s
}

// DestroySemaphore implements renderer.Backend.
func (b *RenderBackend) DestroySemaphore(s any) {
	if vkSem, ok := s.(vulkan.Semaphore); ok {
		b.device.DestroySemaphore(vkSem)
	}
}
