// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vk

import (
	"fmt"

	vulkan "github.com/goki/vulkan"

	"github.com/teide-go/teide/format"
	"github.com/teide-go/teide/handle"
	"github.com/teide-go/teide/render"
	"github.com/teide-go/teide/rpcache"
	"github.com/teide-go/teide/surface"
)

// Swapchain is the Vulkan-backed implementation of surface.Backend (spec
// §4.J): it owns the swapchain images/views, one framebuffer per image
// (built through the shared render-pass/framebuffer caches), a
// pre-recorded "transition to PresentSrc" command buffer per image. The
// prior-use fences AcquireNextImage waits on are tracked by
// surface.Surface; imageFences is sized to the image count but holds no
// fences.
type Swapchain struct {
	device  *Device
	window  surface.WindowHandle
	khrSurf vulkan.Surface

	format      format.Format
	colorSpace  vulkan.ColorSpace
	presentMode vulkan.PresentMode
	multisample bool

	swapchain   vulkan.Swapchain
	images      []vulkan.Image
	views       []vulkan.ImageView
	viewHandles []handle.Handle[any]
	extentW     uint32
	extentH     uint32

	renderPass     handle.Handle[any]
	framebuffers   []vulkan.Framebuffer
	prePresentCmds []vulkan.CommandBuffer
	prePresentPool vulkan.CommandPool

	rpBuilder *RenderPassBuilder
	fbCache   *rpcache.FramebufferCache
	rpCache   *rpcache.RenderPassCache

	imageFences []vulkan.Fence
}

// NewSwapchain creates an OS surface from window, picks the mailbox
// present mode when the surface supports it and FIFO otherwise, and
// builds the swapchain plus per-image framebuffers. The color format is
// always format.Byte4Srgb (R8G8B8A8 sRGB) in the sRGB-nonlinear color
// space; the surface's supported formats are not queried.
func NewSwapchain(d *Device, window surface.WindowHandle, multisample bool, rpBuilder *RenderPassBuilder, rpCache *rpcache.RenderPassCache, fbCache *rpcache.FramebufferCache) (*Swapchain, error) {
	rawSurf, err := window.CreateWindowSurface(d.Instance)
	if err != nil {
		return nil, fmt.Errorf("teide: vk: creating window surface: %w", err)
	}
	khrSurf, ok := rawSurf.(vulkan.Surface)
	if !ok {
		return nil, fmt.Errorf("teide: vk: window surface has unexpected type %T", rawSurf)
	}

	presentMode := vulkan.PresentModeFifo
	var modeCount uint32
	vulkan.GetPhysicalDeviceSurfacePresentModes(d.PhysicalDevice, khrSurf, &modeCount, nil)
	modes := make([]vulkan.PresentMode, modeCount)
	vulkan.GetPhysicalDeviceSurfacePresentModes(d.PhysicalDevice, khrSurf, &modeCount, modes)
	for _, m := range modes {
		if m == vulkan.PresentModeMailbox {
			presentMode = m
		}
	}

	sc := &Swapchain{
		device:      d,
		window:      window,
		khrSurf:     khrSurf,
		format:      format.Byte4Srgb,
		colorSpace:  vulkan.ColorSpaceSrgbNonlinear,
		presentMode: presentMode,
		multisample: multisample,
		rpBuilder:   rpBuilder,
		rpCache:     rpCache,
		fbCache:     fbCache,
	}
	if err := sc.build(); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *Swapchain) build() error {
	var caps vulkan.SurfaceCapabilities
	vulkan.GetPhysicalDeviceSurfaceCapabilities(sc.device.PhysicalDevice, sc.khrSurf, &caps)
	caps.Deref()
	caps.CurrentExtent.Deref()

	width, height := sc.window.FramebufferSize()
	extent := vulkan.Extent2D{Width: width, Height: height}
	sc.extentW, sc.extentH = width, height

	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	var swapchain vulkan.Swapchain
	ret := vulkan.CreateSwapchain(sc.device.Logical, &vulkan.SwapchainCreateInfo{
		SType:            vulkan.StructureTypeSwapchainCreateInfo,
		Surface:          sc.khrSurf,
		MinImageCount:    imageCount,
		ImageFormat:      vkFormat(sc.format),
		ImageColorSpace:  sc.colorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vulkan.ImageUsageFlags(vulkan.ImageUsageColorAttachmentBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vulkan.CompositeAlphaOpaqueBit,
		PresentMode:      sc.presentMode,
		Clipped:          vulkan.True,
	}, nil, &swapchain)
	if ret != vulkan.Success {
		return fmt.Errorf("teide: vk: CreateSwapchain failed: %d", ret)
	}
	sc.swapchain = swapchain

	var count uint32
	vulkan.GetSwapchainImages(sc.device.Logical, swapchain, &count, nil)
	images := make([]vulkan.Image, count)
	vulkan.GetSwapchainImages(sc.device.Logical, swapchain, &count, images)
	sc.images = images

	sc.views = make([]vulkan.ImageView, count)
	sc.viewHandles = make([]handle.Handle[any], count)
	for i, img := range images {
		var view vulkan.ImageView
		ret := vulkan.CreateImageView(sc.device.Logical, &vulkan.ImageViewCreateInfo{
			SType:    vulkan.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vulkan.ImageViewType2d,
			Format:   vkFormat(sc.format),
			SubresourceRange: vulkan.ImageSubresourceRange{
				AspectMask: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}, nil, &view)
		if ret != vulkan.Success {
			return fmt.Errorf("teide: vk: CreateImageView (swapchain image %d) failed: %d", i, ret)
		}
		sc.views[i] = view
		sc.viewHandles[i] = sc.rpBuilder.imageViews.Insert(view)
	}

	layout := render.FramebufferLayout{
		ColorFormat:  sc.format,
		HasColor:     true,
		SampleCount:  1,
		CaptureColor: true,
	}
	rpDesc := render.RenderPassDescriptor{
		FramebufferLayout: layout,
		ColorLoadOp:       render.LoadOpClear,
		ColorStoreOp:      render.StoreOpStore,
		Usage:             render.UsagePresent,
	}
	rawHandle, err := sc.rpCache.Get(rpDesc)
	if err != nil {
		return fmt.Errorf("teide: vk: building swapchain render pass: %w", err)
	}
	renderPassHandle, ok := rawHandle.(handle.Handle[any])
	if !ok {
		return fmt.Errorf("teide: vk: swapchain render pass: unexpected cache value type %T", rawHandle)
	}
	sc.renderPass = renderPassHandle

	sc.framebuffers = make([]vulkan.Framebuffer, count)
	for i := range images {
		fbDesc := render.FramebufferDescriptor{
			RenderPass:      renderPassHandle,
			Width:           extent.Width,
			Height:          extent.Height,
			AttachmentViews: []handle.Handle[any]{sc.viewHandles[i]},
		}
		rawFb, err := sc.fbCache.Get(fbDesc)
		if err != nil {
			return fmt.Errorf("teide: vk: building swapchain framebuffer (image %d): %w", i, err)
		}
		fb, ok := rawFb.(vulkan.Framebuffer)
		if !ok {
			return fmt.Errorf("teide: vk: swapchain framebuffer (image %d): unexpected cache value type %T", i, rawFb)
		}
		sc.framebuffers[i] = fb
	}

	sc.imageFences = make([]vulkan.Fence, count)
	return sc.recordPrePresentBarriers()
}

// recordPrePresentBarriers pre-records, once per image, the command
// buffer that transitions that image to PresentSrc (spec §4.J bundle
// "prePresentCommandBuffer").
func (sc *Swapchain) recordPrePresentBarriers() error {
	var pool vulkan.CommandPool
	ret := vulkan.CreateCommandPool(sc.device.Logical, &vulkan.CommandPoolCreateInfo{
		SType:            vulkan.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: sc.device.QueueIndex,
	}, nil, &pool)
	if ret != vulkan.Success {
		return fmt.Errorf("teide: vk: CreateCommandPool (present barriers) failed: %d", ret)
	}
	sc.prePresentPool = pool

	sc.prePresentCmds = make([]vulkan.CommandBuffer, len(sc.images))
	buffers := make([]vulkan.CommandBuffer, len(sc.images))
	ret = vulkan.AllocateCommandBuffers(sc.device.Logical, &vulkan.CommandBufferAllocateInfo{
		SType:              vulkan.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vulkan.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(len(buffers)),
	}, buffers)
	if ret != vulkan.Success {
		return fmt.Errorf("teide: vk: AllocateCommandBuffers (present barriers) failed: %d", ret)
	}
	sc.prePresentCmds = buffers

	for i, img := range sc.images {
		cmd := buffers[i]
		checkResult(vulkan.BeginCommandBuffer(cmd, &vulkan.CommandBufferBeginInfo{
			SType: vulkan.StructureTypeCommandBufferBeginInfo,
			Flags: vulkan.CommandBufferUsageFlags(vulkan.CommandBufferUsageSimultaneousUseBit),
		}), "BeginCommandBuffer")
		barrier := vulkan.ImageMemoryBarrier{
			SType:               vulkan.StructureTypeImageMemoryBarrier,
			DstAccessMask:       0,
			OldLayout:           vulkan.ImageLayoutColorAttachmentOptimal,
			NewLayout:           vulkan.ImageLayoutPresentSrcKhr,
			SrcQueueFamilyIndex: vulkan.QueueFamilyIgnored,
			DstQueueFamilyIndex: vulkan.QueueFamilyIgnored,
			Image:               img,
			SubresourceRange: vulkan.ImageSubresourceRange{
				AspectMask: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		vulkan.CmdPipelineBarrier(cmd,
			vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit),
			vulkan.PipelineStageFlags(vulkan.PipelineStageBottomOfPipeBit),
			0, 0, nil, 0, nil, 1, []vulkan.ImageMemoryBarrier{barrier})
		checkResult(vulkan.EndCommandBuffer(cmd), "EndCommandBuffer")
		sc.device.MarkReusable(cmd)
	}
	return nil
}

// ImageCount implements surface.Backend.
func (sc *Swapchain) ImageCount() int { return len(sc.images) }

// Extent implements surface.Backend.
func (sc *Swapchain) Extent() (width, height uint32) { return sc.extentW, sc.extentH }

// AcquireNextImage implements surface.Backend.
func (sc *Swapchain) AcquireNextImage(semaphore surface.Semaphore) (imageIndex int, suboptimal bool, outOfDate bool, err error) {
	sem, ok := semaphore.(vulkan.Semaphore)
	if !ok {
		return 0, false, false, fmt.Errorf("teide: vk: AcquireNextImage: semaphore has unexpected type")
	}
	var idx uint32
	ret := vulkan.AcquireNextImage(sc.device.Logical, sc.swapchain, ^uint64(0), sem, nil, &idx)
	switch ret {
	case vulkan.Success:
		return int(idx), false, false, nil
	case vulkan.Suboptimal:
		return int(idx), true, false, nil
	case vulkan.ErrorOutOfDate:
		return 0, false, true, nil
	default:
		return 0, false, false, fmt.Errorf("teide: vk: vkAcquireNextImageKHR failed: %d", ret)
	}
}

// ImageAt implements surface.Backend.
func (sc *Swapchain) ImageAt(index int) surface.Image { return sc.images[index] }

// FramebufferAt implements surface.Backend.
func (sc *Swapchain) FramebufferAt(index int) surface.Framebuffer { return sc.framebuffers[index] }

// PrePresentCommandBufferAt implements surface.Backend.
func (sc *Swapchain) PrePresentCommandBufferAt(index int) surface.CommandBuffer {
	return sc.prePresentCmds[index]
}

// WaitFence implements surface.Backend.
func (sc *Swapchain) WaitFence(fence surface.Fence) error {
	if fence == nil {
		return nil
	}
	vkFence, ok := fence.(vulkan.Fence)
	if !ok {
		return fmt.Errorf("teide: vk: WaitFence: fence has unexpected type")
	}
	checkResult(vulkan.WaitForFences(sc.device.Logical, 1, []vulkan.Fence{vkFence}, vulkan.True, ^uint64(0)), "WaitForFences")
	return nil
}

// Present implements surface.Backend: it queues imageIndex for
// presentation on the device's graphics/present queue, waiting on
// waitSemaphore. An out-of-date swapchain is recovered via Recreate, the
// same way AcquireNextImage recovers it.
func (sc *Swapchain) Present(imageIndex int, waitSemaphore surface.Semaphore) error {
	sem, ok := waitSemaphore.(vulkan.Semaphore)
	if !ok {
		return fmt.Errorf("teide: vk: Present: semaphore has unexpected type")
	}
	ret := vulkan.QueuePresent(sc.device.Queue, &vulkan.PresentInfo{
		SType:              vulkan.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vulkan.Semaphore{sem},
		SwapchainCount:     1,
		PSwapchains:        []vulkan.Swapchain{sc.swapchain},
		PImageIndices:      []uint32{uint32(imageIndex)},
	})
	switch ret {
	case vulkan.Success, vulkan.Suboptimal:
		return nil
	case vulkan.ErrorOutOfDate:
		return sc.Recreate()
	default:
		return fmt.Errorf("teide: vk: vkQueuePresentKHR failed: %d", ret)
	}
}

// Recreate implements surface.Backend's OnResize (spec §4.J): idle the
// device, free swapchain-scoped objects, and rebuild them against the
// window's current framebuffer size. Each rebuild allocates fresh image
// views, so the shared render-pass/framebuffer caches accumulate new
// entries rather than reusing old ones; acceptable since resizes are rare
// compared to frames.
func (sc *Swapchain) Recreate() error {
	sc.device.WaitIdle()
	sc.destroySwapchainObjects()
	return sc.build()
}

func (sc *Swapchain) destroySwapchainObjects() {
	dev := sc.device.Logical
	if sc.prePresentPool != nil {
		vulkan.DestroyCommandPool(dev, sc.prePresentPool, nil)
		sc.prePresentPool = nil
	}
	for _, fb := range sc.framebuffers {
		vulkan.DestroyFramebuffer(dev, fb, nil)
	}
	sc.framebuffers = nil
	for _, v := range sc.views {
		vulkan.DestroyImageView(dev, v, nil)
	}
	sc.views = nil
	if sc.swapchain != nil {
		vulkan.DestroySwapchain(dev, sc.swapchain, nil)
		sc.swapchain = nil
	}
}

// Destroy releases the swapchain and its OS-side surface.
func (sc *Swapchain) Destroy() {
	sc.destroySwapchainObjects()
	if sc.khrSurf != nil {
		vulkan.DestroySurface(sc.device.Instance, sc.khrSurf, nil)
		sc.khrSurf = nil
	}
}

var _ surface.Backend = (*Swapchain)(nil)
