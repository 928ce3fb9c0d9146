// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vk

import (
	"fmt"

	vulkan "github.com/goki/vulkan"

	"github.com/teide-go/teide/render"
)

// Pipeline holds one graphics pipeline built for a particular render
// pass (spec §3 Pipeline entity: "one entry per render pass the pipeline
// was built for"). byRenderPass maps each vulkan.RenderPass to its
// compiled vulkan.Pipeline, built lazily by CompileForPass.
type Pipeline struct {
	device         *Device
	layout         vulkan.PipelineLayout
	vertexShader   *ShaderModule
	pixelShader    *ShaderModule
	vertexLayout   render.VertexLayout
	byRenderPass   map[vulkan.RenderPass]vulkan.Pipeline
}

// CreatePipelineLayout builds a pipeline layout from up to four
// descriptor-set layouts (Scene/View/Material/Object, spec §4.D) plus an
// optional push-constant range for set 3.
func (d *Device) CreatePipelineLayout(setLayouts []vulkan.DescriptorSetLayout, pushConstantSize int) (vulkan.PipelineLayout, error) {
	var ranges []vulkan.PushConstantRange
	if pushConstantSize > 0 {
		ranges = []vulkan.PushConstantRange{{
			StageFlags: vulkan.ShaderStageFlags(vulkan.ShaderStageVertexBit | vulkan.ShaderStageFragmentBit),
			Offset:     0,
			Size:       uint32(pushConstantSize),
		}}
	}
	var layout vulkan.PipelineLayout
	ret := vulkan.CreatePipelineLayout(d.Logical, &vulkan.PipelineLayoutCreateInfo{
		SType:                  vulkan.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: uint32(len(ranges)),
		PPushConstantRanges:    ranges,
	}, nil, &layout)
	if ret != vulkan.Success {
		return nil, fmt.Errorf("teide: vk: CreatePipelineLayout failed: %d", ret)
	}
	return layout, nil
}

// NewPipeline wraps a pipeline layout and compiled shader stages; the
// actual vulkan.Pipeline objects are built per render pass by
// CompileForPass (spec §3 "contains one entry per render pass").
func (d *Device) NewPipeline(layout vulkan.PipelineLayout, vertexShader, pixelShader *ShaderModule, vertexLayout render.VertexLayout) *Pipeline {
	return &Pipeline{
		device:       d,
		layout:       layout,
		vertexShader: vertexShader,
		pixelShader:  pixelShader,
		vertexLayout: vertexLayout,
		byRenderPass: make(map[vulkan.RenderPass]vulkan.Pipeline),
	}
}

// CompileForPass returns (building and caching on first use) the
// vulkan.Pipeline compatible with renderPass.
func (p *Pipeline) CompileForPass(renderPass vulkan.RenderPass, sampleCount int) (vulkan.Pipeline, error) {
	if existing, ok := p.byRenderPass[renderPass]; ok {
		return existing, nil
	}

	stages := []vulkan.PipelineShaderStageCreateInfo{
		{
			SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vulkan.ShaderStageVertexBit,
			Module: p.vertexShader.module,
			PName:  "main\x00",
		},
		{
			SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vulkan.ShaderStageFragmentBit,
			Module: p.pixelShader.module,
			PName:  "main\x00",
		},
	}

	bindings, attrs := p.vertexInputState()
	vertexInput := vulkan.PipelineVertexInputStateCreateInfo{
		SType:                           vulkan.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attrs)),
		PVertexAttributeDescriptions:    attrs,
	}

	assembly := vulkan.PipelineInputAssemblyStateCreateInfo{
		SType:    vulkan.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vkTopology(p.vertexLayout.Topology),
	}

	viewportState := vulkan.PipelineViewportStateCreateInfo{
		SType:         vulkan.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	raster := vulkan.PipelineRasterizationStateCreateInfo{
		SType:       vulkan.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vulkan.PolygonModeFill,
		CullMode:    vulkan.CullModeFlags(vulkan.CullModeBackBit),
		FrontFace:   vulkan.FrontFaceCounterClockwise,
		LineWidth:   1.0,
	}

	multisample := vulkan.PipelineMultisampleStateCreateInfo{
		SType:                vulkan.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: sampleCountFlag(sampleCount),
	}

	blendAttachment := vulkan.PipelineColorBlendAttachmentState{
		BlendEnable:         vulkan.True,
		SrcColorBlendFactor: vulkan.BlendFactorSrcAlpha,
		DstColorBlendFactor: vulkan.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vulkan.BlendOpAdd,
		SrcAlphaBlendFactor: vulkan.BlendFactorOne,
		DstAlphaBlendFactor: vulkan.BlendFactorZero,
		AlphaBlendOp:        vulkan.BlendOpAdd,
		ColorWriteMask: vulkan.ColorComponentFlags(
			vulkan.ColorComponentRBit | vulkan.ColorComponentGBit | vulkan.ColorComponentBBit | vulkan.ColorComponentABit,
		),
	}
	colorBlend := vulkan.PipelineColorBlendStateCreateInfo{
		SType:           vulkan.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vulkan.PipelineColorBlendAttachmentState{blendAttachment},
	}

	dynamicStates := []vulkan.DynamicState{vulkan.DynamicStateViewport, vulkan.DynamicStateScissor}
	dynamic := vulkan.PipelineDynamicStateCreateInfo{
		SType:             vulkan.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	infos := []vulkan.GraphicsPipelineCreateInfo{{
		SType:               vulkan.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &assembly,
		PViewportState:      &viewportState,
		PRasterizationState: &raster,
		PMultisampleState:   &multisample,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamic,
		Layout:              p.layout,
		RenderPass:          renderPass,
		Subpass:             0,
	}}

	pipelines := make([]vulkan.Pipeline, 1)
	ret := vulkan.CreateGraphicsPipelines(p.device.Logical, nil, 1, infos, nil, pipelines)
	if ret != vulkan.Success {
		return nil, fmt.Errorf("teide: vk: CreateGraphicsPipelines failed: %d", ret)
	}
	p.byRenderPass[renderPass] = pipelines[0]
	return pipelines[0], nil
}

func (p *Pipeline) vertexInputState() ([]vulkan.VertexInputBindingDescription, []vulkan.VertexInputAttributeDescription) {
	bindings := make([]vulkan.VertexInputBindingDescription, len(p.vertexLayout.BufferBindings))
	for i, b := range p.vertexLayout.BufferBindings {
		rate := vulkan.VertexInputRateVertex
		if b.PerInstance {
			rate = vulkan.VertexInputRateInstance
		}
		bindings[i] = vulkan.VertexInputBindingDescription{
			Binding:   uint32(i),
			Stride:    b.Stride,
			InputRate: rate,
		}
	}
	attrs := make([]vulkan.VertexInputAttributeDescription, len(p.vertexLayout.Attributes))
	for i, a := range p.vertexLayout.Attributes {
		attrs[i] = vulkan.VertexInputAttributeDescription{
			Location: a.Location,
			Binding:  0,
			Format:   vkFormat(a.Format),
			Offset:   a.Offset,
		}
	}
	return bindings, attrs
}

func vkTopology(t render.Topology) vulkan.PrimitiveTopology {
	switch t {
	case render.TopologyTriangleStrip:
		return vulkan.PrimitiveTopologyTriangleStrip
	case render.TopologyLineList:
		return vulkan.PrimitiveTopologyLineList
	case render.TopologyPointList:
		return vulkan.PrimitiveTopologyPointList
	default:
		return vulkan.PrimitiveTopologyTriangleList
	}
}

// Destroy releases every compiled pipeline variant and the layout.
func (p *Pipeline) Destroy() {
	for _, pl := range p.byRenderPass {
		vulkan.DestroyPipeline(p.device.Logical, pl, nil)
	}
	vulkan.DestroyPipelineLayout(p.device.Logical, p.layout, nil)
}
