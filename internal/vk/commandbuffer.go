// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vk

import (
	vulkan "github.com/goki/vulkan"

	"github.com/teide-go/teide/texture"
)

// commandPool lazily creates one vulkan.CommandPool per Device for
// short-lived, immediately-submitted command buffers (staging uploads,
// layout transitions outside a render pass). Per-worker-thread pools for
// render-pass recording live in CommandBufferPool (cmdpool.go), which
// keys a pool per ThreadMap slot (spec §4.I "per-thread command pools").
func (d *Device) commandPool() vulkan.CommandPool {
	if d.oneShotPool != nil {
		return d.oneShotPool
	}
	var pool vulkan.CommandPool
	ret := vulkan.CreateCommandPool(d.Logical, &vulkan.CommandPoolCreateInfo{
		SType:            vulkan.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.QueueIndex,
		Flags:            vulkan.CommandPoolCreateFlags(vulkan.CommandPoolCreateTransientBit),
	}, nil, &pool)
	checkResult(ret, "CreateCommandPool")
	d.oneShotPool = pool
	return pool
}

func (d *Device) beginOneShotCommands() vulkan.CommandBuffer {
	pool := d.commandPool()
	buffers := make([]vulkan.CommandBuffer, 1)
	checkResult(vulkan.AllocateCommandBuffers(d.Logical, &vulkan.CommandBufferAllocateInfo{
		SType:              vulkan.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vulkan.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, buffers), "AllocateCommandBuffers")
	cmd := buffers[0]

	checkResult(vulkan.BeginCommandBuffer(cmd, &vulkan.CommandBufferBeginInfo{
		SType: vulkan.StructureTypeCommandBufferBeginInfo,
		Flags: vulkan.CommandBufferUsageFlags(vulkan.CommandBufferUsageOneTimeSubmitBit),
	}), "BeginCommandBuffer")
	return cmd
}

func (d *Device) endOneShotCommands(cmd vulkan.CommandBuffer) {
	checkResult(vulkan.EndCommandBuffer(cmd), "EndCommandBuffer")
	buffers := []vulkan.CommandBuffer{cmd}
	checkResult(vulkan.QueueSubmit(d.Queue, 1, []vulkan.SubmitInfo{{
		SType:              vulkan.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    buffers,
	}}, nil), "QueueSubmit")
	checkResult(vulkan.QueueWaitIdle(d.Queue), "QueueWaitIdle")
	vulkan.FreeCommandBuffers(d.Logical, d.commandPool(), 1, buffers)
}

// imageRecorder implements texture.Recorder against one vulkan.Image and
// a single command buffer, satisfying the Transition/GenerateMipmaps
// algorithms in package texture (spec §4.E).
type imageRecorder struct {
	image vulkan.Image
	cmd   vulkan.CommandBuffer
}

var _ texture.Recorder = (*imageRecorder)(nil)

func (r *imageRecorder) RecordBarrier(mipLevel int, b texture.Barrier) {
	barrier := vulkan.ImageMemoryBarrier{
		SType:               vulkan.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vulkan.AccessFlags(accessFlags(b.SrcAccess)),
		DstAccessMask:       vulkan.AccessFlags(accessFlags(b.DstAccess)),
		OldLayout:           imageLayout(b.OldLayout),
		NewLayout:           imageLayout(b.NewLayout),
		SrcQueueFamilyIndex: vulkan.QueueFamilyIgnored,
		DstQueueFamilyIndex: vulkan.QueueFamilyIgnored,
		Image:               r.image,
		SubresourceRange: vulkan.ImageSubresourceRange{
			AspectMask:     vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
			BaseMipLevel:   uint32(mipLevel),
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	vulkan.CmdPipelineBarrier(r.cmd,
		vulkan.PipelineStageFlags(pipelineStageFlags(b.SrcStage)),
		vulkan.PipelineStageFlags(pipelineStageFlags(b.DstStage)),
		0, 0, nil, 0, nil, 1, []vulkan.ImageMemoryBarrier{barrier})
}

func (r *imageRecorder) RecordBlit(srcMip, dstMip int, srcExtent, dstExtent [2]uint32) {
	blit := vulkan.ImageBlit{
		SrcSubresource: vulkan.ImageSubresourceLayers{
			AspectMask: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit), MipLevel: uint32(srcMip), LayerCount: 1,
		},
		DstSubresource: vulkan.ImageSubresourceLayers{
			AspectMask: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit), MipLevel: uint32(dstMip), LayerCount: 1,
		},
	}
	blit.SrcOffsets[1] = vulkan.Offset3D{X: int32(srcExtent[0]), Y: int32(srcExtent[1]), Z: 1}
	blit.DstOffsets[1] = vulkan.Offset3D{X: int32(dstExtent[0]), Y: int32(dstExtent[1]), Z: 1}

	vulkan.CmdBlitImage(r.cmd,
		r.image, vulkan.ImageLayoutTransferSrcOptimal,
		r.image, vulkan.ImageLayoutTransferDstOptimal,
		1, []vulkan.ImageBlit{blit}, vulkan.FilterLinear)
}

// NewOneShotImageRecorder wraps image in a texture.Recorder backed by a
// fresh one-shot command buffer, submits and waits once the caller is
// done recording. Used for one-off transitions/mip generation outside
// the per-frame render pass (e.g. right after texture upload).
func (d *Device) NewOneShotImageRecorder(image vulkan.Image, fn func(texture.Recorder)) {
	cmd := d.beginOneShotCommands()
	fn(&imageRecorder{image: image, cmd: cmd})
	d.endOneShotCommands(cmd)
}

func accessFlags(a texture.Access) vulkan.AccessFlagBits {
	var flags vulkan.AccessFlagBits
	if a&texture.AccessTransferWrite != 0 {
		flags |= vulkan.AccessTransferWriteBit
	}
	if a&texture.AccessTransferRead != 0 {
		flags |= vulkan.AccessTransferReadBit
	}
	if a&texture.AccessColorAttachmentRead != 0 {
		flags |= vulkan.AccessColorAttachmentReadBit
	}
	if a&texture.AccessColorAttachmentWrite != 0 {
		flags |= vulkan.AccessColorAttachmentWriteBit
	}
	if a&texture.AccessDepthStencilAttachmentRead != 0 {
		flags |= vulkan.AccessDepthStencilAttachmentReadBit
	}
	if a&texture.AccessDepthStencilAttachmentWrite != 0 {
		flags |= vulkan.AccessDepthStencilAttachmentWriteBit
	}
	if a&texture.AccessShaderRead != 0 {
		flags |= vulkan.AccessShaderReadBit
	}
	return flags
}

func pipelineStageFlags(s texture.PipelineStage) vulkan.PipelineStageFlagBits {
	var flags vulkan.PipelineStageFlagBits
	if s&texture.StageTopOfPipe != 0 {
		flags |= vulkan.PipelineStageTopOfPipeBit
	}
	if s&texture.StageTransfer != 0 {
		flags |= vulkan.PipelineStageTransferBit
	}
	if s&texture.StageColorAttachmentOutput != 0 {
		flags |= vulkan.PipelineStageColorAttachmentOutputBit
	}
	if s&texture.StageEarlyFragmentTests != 0 {
		flags |= vulkan.PipelineStageEarlyFragmentTestsBit
	}
	if s&texture.StageLateFragmentTests != 0 {
		flags |= vulkan.PipelineStageLateFragmentTestsBit
	}
	if s&texture.StageFragmentShader != 0 {
		flags |= vulkan.PipelineStageFragmentShaderBit
	}
	return flags
}

func imageLayout(l texture.Layout) vulkan.ImageLayout {
	switch l {
	case texture.Undefined:
		return vulkan.ImageLayoutUndefined
	case texture.TransferDst:
		return vulkan.ImageLayoutTransferDstOptimal
	case texture.TransferSrc:
		return vulkan.ImageLayoutTransferSrcOptimal
	case texture.ColorAttachment:
		return vulkan.ImageLayoutColorAttachmentOptimal
	case texture.DepthStencilAttachment:
		return vulkan.ImageLayoutDepthStencilAttachmentOptimal
	case texture.ShaderReadOnly:
		return vulkan.ImageLayoutShaderReadOnlyOptimal
	case texture.DepthStencilReadOnly:
		return vulkan.ImageLayoutDepthStencilReadOnlyOptimal
	case texture.PresentSrc:
		return vulkan.ImageLayoutPresentSrcKhr
	default:
		panic("teide: vk: imageLayout: unhandled texture.Layout")
	}
}
