// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vk

import (
	"fmt"

	vulkan "github.com/goki/vulkan"

	"github.com/teide-go/teide/handle"
	"github.com/teide-go/teide/render"
	"github.com/teide-go/teide/rpcache"
)

// RenderPassBuilder implements rpcache.Builder against one Device,
// constructing render passes and framebuffers the way spec §4.F
// describes: a single subpass, graphics bind point, one external
// dependency covering color-attachment-output and early-fragment-tests.
//
// BuildRenderPass returns its vulkan.RenderPass wrapped in a handle
// rather than the bare value, since FramebufferDescriptor.RenderPass
// (spec §3) is itself a handle the caller threads back into
// BuildFramebuffer; renderPasses is the registry that makes that handle
// resolvable again.
type RenderPassBuilder struct {
	device       *Device
	renderPasses *handle.Registry[any]
	imageViews   *handle.Registry[any]
}

var _ rpcache.Builder = (*RenderPassBuilder)(nil)

// NewRenderPassBuilder returns a Builder for d. imageViews is the
// registry the caller inserts attachment vulkan.ImageView values into
// (boxed as any) before referencing them from a FramebufferDescriptor.
func NewRenderPassBuilder(d *Device, imageViews *handle.Registry[any]) *RenderPassBuilder {
	return &RenderPassBuilder{
		device:       d,
		renderPasses: handle.NewRegistry[any]("render-pass"),
		imageViews:   imageViews,
	}
}

func vkLoadOp(op render.LoadOp) vulkan.AttachmentLoadOp {
	switch op {
	case render.LoadOpClear:
		return vulkan.AttachmentLoadOpClear
	case render.LoadOpDontCare:
		return vulkan.AttachmentLoadOpDontCare
	default:
		return vulkan.AttachmentLoadOpLoad
	}
}

func vkStoreOp(op render.StoreOp) vulkan.AttachmentStoreOp {
	if op == render.StoreOpStore {
		return vulkan.AttachmentStoreOpStore
	}
	return vulkan.AttachmentStoreOpDontCare
}

// BuildRenderPass constructs a vulkan.RenderPass from desc (spec §4.F
// "Render-pass construction").
func (b *RenderPassBuilder) BuildRenderPass(desc render.RenderPassDescriptor) (any, error) {
	layout := desc.FramebufferLayout
	var attachments []vulkan.AttachmentDescription
	var colorRefs []vulkan.AttachmentReference
	var depthRef *vulkan.AttachmentReference

	if layout.HasColor {
		finalLayout := vulkan.ImageLayoutShaderReadOnlyOptimal
		if desc.Usage == render.UsagePresent {
			finalLayout = vulkan.ImageLayoutPresentSrcKhr
		}
		initialLayout := vulkan.ImageLayoutUndefined
		if layout.CaptureColor {
			initialLayout = vulkan.ImageLayoutColorAttachmentOptimal
		}
		attachments = append(attachments, vulkan.AttachmentDescription{
			Format:         vkFormat(layout.ColorFormat),
			Samples:        sampleCountFlag(layout.SampleCount),
			LoadOp:         vkLoadOp(desc.ColorLoadOp),
			StoreOp:        vkStoreOp(desc.ColorStoreOp),
			StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
			StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
			InitialLayout:  initialLayout,
			FinalLayout:    finalLayout,
		})
		colorRefs = append(colorRefs, vulkan.AttachmentReference{
			Attachment: uint32(len(attachments) - 1),
			Layout:     vulkan.ImageLayoutColorAttachmentOptimal,
		})
	}

	if layout.HasDepthStencil {
		finalLayout := vulkan.ImageLayoutDepthStencilReadOnlyOptimal
		if !layout.CaptureDepthStencil {
			finalLayout = vulkan.ImageLayoutDepthStencilAttachmentOptimal
		}
		attachments = append(attachments, vulkan.AttachmentDescription{
			Format:         vkFormat(layout.DepthStencilFormat),
			Samples:        sampleCountFlag(layout.SampleCount),
			LoadOp:         vkLoadOp(desc.DepthLoadOp),
			StoreOp:        vkStoreOp(desc.DepthStoreOp),
			StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
			StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
			InitialLayout:  vulkan.ImageLayoutUndefined,
			FinalLayout:    finalLayout,
		})
		ref := vulkan.AttachmentReference{
			Attachment: uint32(len(attachments) - 1),
			Layout:     vulkan.ImageLayoutDepthStencilAttachmentOptimal,
		}
		depthRef = &ref
	}

	subpass := vulkan.SubpassDescription{
		PipelineBindPoint:    vulkan.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
	}
	if depthRef != nil {
		subpass.PDepthStencilAttachment = depthRef
	}

	dependency := vulkan.SubpassDependency{
		SrcSubpass: vulkan.SubpassExternal,
		DstSubpass: 0,
		SrcStageMask: vulkan.PipelineStageFlags(
			vulkan.PipelineStageColorAttachmentOutputBit | vulkan.PipelineStageEarlyFragmentTestsBit,
		),
		DstStageMask: vulkan.PipelineStageFlags(
			vulkan.PipelineStageColorAttachmentOutputBit | vulkan.PipelineStageEarlyFragmentTestsBit,
		),
		DstAccessMask: vulkan.AccessFlags(
			vulkan.AccessColorAttachmentWriteBit | vulkan.AccessDepthStencilAttachmentWriteBit,
		),
	}

	var renderPass vulkan.RenderPass
	ret := vulkan.CreateRenderPass(b.device.Logical, &vulkan.RenderPassCreateInfo{
		SType:           vulkan.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vulkan.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vulkan.SubpassDependency{dependency},
	}, nil, &renderPass)
	if ret != vulkan.Success {
		return nil, fmt.Errorf("teide: vk: CreateRenderPass failed: %d", ret)
	}

	return b.renderPasses.Insert(renderPass), nil
}

// resolveRenderPass looks up the vulkan.RenderPass a prior BuildRenderPass
// call boxed into h.
func (b *RenderPassBuilder) resolveRenderPass(h handle.Handle[any]) (vulkan.RenderPass, error) {
	if !h.Valid() {
		return nil, fmt.Errorf("teide: vk: resolveRenderPass: invalid handle")
	}
	rp, ok := b.renderPasses.Get(h).(vulkan.RenderPass)
	if !ok {
		return nil, fmt.Errorf("teide: vk: resolveRenderPass: handle does not hold a render pass")
	}
	return rp, nil
}

// resolveImageView looks up the vulkan.ImageView a caller boxed into h via
// b.imageViews before building a FramebufferDescriptor.
func (b *RenderPassBuilder) resolveImageView(h handle.Handle[any]) (vulkan.ImageView, error) {
	if !h.Valid() {
		return nil, fmt.Errorf("teide: vk: resolveImageView: invalid handle")
	}
	view, ok := b.imageViews.Get(h).(vulkan.ImageView)
	if !ok {
		return nil, fmt.Errorf("teide: vk: resolveImageView: handle does not hold an image view")
	}
	return view, nil
}

// BuildFramebuffer constructs a vulkan.Framebuffer bound to desc's
// render pass and attachment views.
func (b *RenderPassBuilder) BuildFramebuffer(desc render.FramebufferDescriptor) (any, error) {
	renderPass, err := b.resolveRenderPass(desc.RenderPass)
	if err != nil {
		return nil, err
	}

	views := make([]vulkan.ImageView, len(desc.AttachmentViews))
	for i, h := range desc.AttachmentViews {
		view, err := b.resolveImageView(h)
		if err != nil {
			return nil, err
		}
		views[i] = view
	}

	var framebuffer vulkan.Framebuffer
	ret := vulkan.CreateFramebuffer(b.device.Logical, &vulkan.FramebufferCreateInfo{
		SType:           vulkan.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           desc.Width,
		Height:          desc.Height,
		Layers:          1,
	}, nil, &framebuffer)
	if ret != vulkan.Success {
		return nil, fmt.Errorf("teide: vk: CreateFramebuffer failed: %d", ret)
	}
	return framebuffer, nil
}
