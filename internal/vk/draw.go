// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vk

import (
	"math"

	vulkan "github.com/goki/vulkan"

	"github.com/teide-go/teide/render"
)

// ClearValues describes the clear color/depth-stencil values a
// BeginRenderPass call supplies, in attachment order (color first, then
// depth-stencil, matching RenderPassBuilder's attachment ordering).
type ClearValues struct {
	Color        [4]float32
	HasColor     bool
	Depth        float32
	Stencil      uint32
	HasDepth     bool
}

// BeginRenderPass records vkCmdBeginRenderPass against renderPass/fb,
// covering the full width x height area (spec §4.K draw sequence step 1).
func BeginRenderPass(cmd vulkan.CommandBuffer, renderPass vulkan.RenderPass, fb vulkan.Framebuffer, width, height uint32, clear ClearValues) {
	var values []vulkan.ClearValue
	if clear.HasColor {
		values = append(values, vulkan.NewClearValue(clear.Color[:]))
	}
	if clear.HasDepth {
		// VkClearDepthStencilValue packs as {float depth; uint32 stencil},
		// the same width as two float32 components, so the stencil bits
		// ride along as a reinterpreted float32 in NewClearValue's generic
		// byte packer.
		values = append(values, vulkan.NewClearValue([]float32{clear.Depth, math.Float32frombits(clear.Stencil)}))
	}
	vulkan.CmdBeginRenderPass(cmd, &vulkan.RenderPassBeginInfo{
		SType:       vulkan.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderPass,
		Framebuffer: fb,
		RenderArea: vulkan.Rect2D{
			Extent: vulkan.Extent2D{Width: width, Height: height},
		},
		ClearValueCount: uint32(len(values)),
		PClearValues:    values,
	}, vulkan.SubpassContentsInline)
}

// EndRenderPass records vkCmdEndRenderPass.
func EndRenderPass(cmd vulkan.CommandBuffer) {
	vulkan.CmdEndRenderPass(cmd)
}

// SetViewportScissor records the dynamic viewport and scissor state
// (spec §4.K "Viewport/scissor": viewport always dynamic) over a region
// normalized to [0,1] of the framebuffer's pixel extent.
func SetViewportScissor(cmd vulkan.CommandBuffer, fbWidth, fbHeight uint32, region render.ViewportRegion, scissor *render.ViewportRegion) {
	vp := vulkan.Viewport{
		X:        region.X * float32(fbWidth),
		Y:        region.Y * float32(fbHeight),
		Width:    region.Width * float32(fbWidth),
		Height:   region.Height * float32(fbHeight),
		MinDepth: 0,
		MaxDepth: 1,
	}
	vulkan.CmdSetViewport(cmd, 0, 1, []vulkan.Viewport{vp})

	sc := region
	if scissor != nil {
		sc = *scissor
	}
	rect := vulkan.Rect2D{
		Offset: vulkan.Offset2D{X: int32(sc.X * float32(fbWidth)), Y: int32(sc.Y * float32(fbHeight))},
		Extent: vulkan.Extent2D{Width: uint32(sc.Width * float32(fbWidth)), Height: uint32(sc.Height * float32(fbHeight))},
	}
	vulkan.CmdSetScissor(cmd, 0, 1, []vulkan.Rect2D{rect})
}

// BindPipeline records vkCmdBindPipeline for the graphics bind point.
func BindPipeline(cmd vulkan.CommandBuffer, pipeline vulkan.Pipeline) {
	vulkan.CmdBindPipeline(cmd, vulkan.PipelineBindPointGraphics, pipeline)
}

// BindDescriptorSets records vkCmdBindDescriptorSets starting at firstSet
// (spec §4.D "Scene/View/Material/Object bindings set in that order").
func BindDescriptorSets(cmd vulkan.CommandBuffer, layout vulkan.PipelineLayout, firstSet int, sets []vulkan.DescriptorSet) {
	if len(sets) == 0 {
		return
	}
	vulkan.CmdBindDescriptorSets(cmd, vulkan.PipelineBindPointGraphics, layout, uint32(firstSet), uint32(len(sets)), sets, 0, nil)
}

// PushConstants records a push-constant upload for the Object set (set 3,
// spec §4.D push-constant eligibility).
func PushConstants(cmd vulkan.CommandBuffer, layout vulkan.PipelineLayout, data []byte) {
	if len(data) == 0 {
		return
	}
	vulkan.CmdPushConstants(cmd, layout, vulkan.ShaderStageFlags(vulkan.ShaderStageVertexBit|vulkan.ShaderStageFragmentBit), 0, uint32(len(data)), data)
}

// Draw records a non-indexed draw call.
func Draw(cmd vulkan.CommandBuffer, vertexCount int) {
	vulkan.CmdDraw(cmd, uint32(vertexCount), 1, 0, 0)
}

// DrawIndexed records an indexed draw call.
func DrawIndexed(cmd vulkan.CommandBuffer, indexCount int) {
	vulkan.CmdDrawIndexed(cmd, uint32(indexCount), 1, 0, 0, 0)
}
