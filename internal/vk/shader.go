// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vk

import (
	"fmt"

	vulkan "github.com/goki/vulkan"

	"github.com/teide-go/teide/pblock"
	"github.com/teide-go/teide/shaderdata"
)

// ShaderModule wraps a compiled SPIR-V stage (spec §4.C output).
type ShaderModule struct {
	device *Device
	module vulkan.ShaderModule
}

// CreateShaderModule loads SPIR-V bytes produced by reflectbuild.Build
// into a vulkan.ShaderModule.
func (d *Device) CreateShaderModule(spirv []byte) (*ShaderModule, error) {
	var module vulkan.ShaderModule
	ret := vulkan.CreateShaderModule(d.Logical, &vulkan.ShaderModuleCreateInfo{
		SType:    vulkan.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(spirv)),
		PCode:    sliceUint32(spirv),
	}, nil, &module)
	checkResult(ret, "CreateShaderModule")
	return &ShaderModule{device: d, module: module}, nil
}

// Destroy releases the shader module.
func (s *ShaderModule) Destroy() {
	if s.module != nil {
		vulkan.DestroyShaderModule(s.device.Logical, s.module, nil)
		s.module = nil
	}
}

// Shader bundles a shader's two compiled stages with its four derived
// parameter-block layouts and the pipeline layout built from them (spec
// §3 Shader entity: "vertex & pixel SPIR-V modules, four parameter-block
// layouts..., vertex-input variable list, pipeline layout").
//
// Scene and View (sets 0/1) always bind through real descriptor sets,
// even when a particular shader's environment declares no parameters for
// one of them, so every shader built against the same ShaderEnvironment
// shares pipeline-layout-compatible set indices. Object (set 3) is
// always push-constant backed, mirroring RecordDrawSequence's drawing
// loop, which binds object data exclusively via vkCmdPushConstants.
type Shader struct {
	VertexShader *ShaderModule
	PixelShader  *ShaderModule

	SceneLayout    pblock.Layout
	ViewLayout     pblock.Layout
	MaterialLayout pblock.Layout
	ObjectLayout   pblock.Layout

	sceneSetLayout    vulkan.DescriptorSetLayout
	viewSetLayout     vulkan.DescriptorSetLayout
	materialSetLayout vulkan.DescriptorSetLayout

	PipelineLayout vulkan.PipelineLayout
	VertexInputs   []shaderdata.ShaderVariable
}

// forceDescriptorSet returns layout with IsPushConstant cleared, since
// set-contiguity (below) requires scene/view/material to always bind via
// a real descriptor set regardless of DeriveLayout's size-based verdict.
func forceDescriptorSet(layout pblock.Layout) pblock.Layout {
	layout.IsPushConstant = false
	return layout
}

// ensureSetLayout returns d.CreateDescriptorSetLayout(layout)'s result,
// substituting a zero-binding placeholder when layout is empty: the
// pipeline layout's set array must stay contiguous across sets 0..2 even
// when a particular shader declares no Scene, View, or Material
// parameters, since a later set (Material, or the push-constant range
// for Object) still occupies a higher index.
func (d *Device) ensureSetLayout(layout pblock.Layout) (vulkan.DescriptorSetLayout, error) {
	setLayout, err := d.CreateDescriptorSetLayout(layout)
	if err != nil {
		return nil, err
	}
	if setLayout != nil {
		return setLayout, nil
	}
	var empty vulkan.DescriptorSetLayout
	ret := vulkan.CreateDescriptorSetLayout(d.Logical, &vulkan.DescriptorSetLayoutCreateInfo{
		SType: vulkan.StructureTypeDescriptorSetLayoutCreateInfo,
	}, nil, &empty)
	if ret != vulkan.Success {
		return nil, fmt.Errorf("teide: vk: ensureSetLayout: CreateDescriptorSetLayout failed: %d", ret)
	}
	return empty, nil
}

// CreateShaderEntity derives the four parameter-block layouts from data
// (spec §4.C step 5), builds their descriptor-set layouts plus the
// pipeline layout, and wraps the two already-compiled stages (spec §4.C
// step 4, performed by the caller's reflectbuild.Compiler) into a Shader.
func (d *Device) CreateShaderEntity(data shaderdata.ShaderData) (*Shader, error) {
	vertexModule, err := d.CreateShaderModule(data.VertexShader.SPIRV)
	if err != nil {
		return nil, fmt.Errorf("teide: vk: CreateShaderEntity: vertex module: %w", err)
	}
	pixelModule, err := d.CreateShaderModule(data.PixelShader.SPIRV)
	if err != nil {
		vertexModule.Destroy()
		return nil, fmt.Errorf("teide: vk: CreateShaderEntity: pixel module: %w", err)
	}

	sceneLayout := forceDescriptorSet(pblock.DeriveLayout(data.Environment.ScenePblock))
	viewLayout := forceDescriptorSet(pblock.DeriveLayout(data.Environment.ViewPblock))
	materialLayout := forceDescriptorSet(pblock.DeriveLayout(data.MaterialPblock))
	objectLayout := pblock.DeriveLayout(data.ObjectPblock)
	if !objectLayout.IsPushConstant && objectLayout.UniformsSize > 0 {
		vertexModule.Destroy()
		pixelModule.Destroy()
		return nil, fmt.Errorf("teide: vk: CreateShaderEntity: object parameter block is %d bytes, exceeding the %d-byte push-constant limit (spec §4.C); this backend binds object data exclusively via push constants",
			objectLayout.UniformsSize, pblock.PushConstantLimit())
	}
	objectLayout.IsPushConstant = true

	sceneSet, err := d.ensureSetLayout(sceneLayout)
	if err != nil {
		return nil, fmt.Errorf("teide: vk: CreateShaderEntity: scene set layout: %w", err)
	}
	viewSet, err := d.ensureSetLayout(viewLayout)
	if err != nil {
		return nil, fmt.Errorf("teide: vk: CreateShaderEntity: view set layout: %w", err)
	}
	materialSet, err := d.ensureSetLayout(materialLayout)
	if err != nil {
		return nil, fmt.Errorf("teide: vk: CreateShaderEntity: material set layout: %w", err)
	}

	pipelineLayout, err := d.CreatePipelineLayout(
		[]vulkan.DescriptorSetLayout{sceneSet, viewSet, materialSet},
		objectLayout.UniformsSize,
	)
	if err != nil {
		return nil, fmt.Errorf("teide: vk: CreateShaderEntity: pipeline layout: %w", err)
	}

	return &Shader{
		VertexShader:      vertexModule,
		PixelShader:       pixelModule,
		SceneLayout:       sceneLayout,
		ViewLayout:        viewLayout,
		MaterialLayout:    materialLayout,
		ObjectLayout:      objectLayout,
		sceneSetLayout:    sceneSet,
		viewSetLayout:     viewSet,
		materialSetLayout: materialSet,
		PipelineLayout:    pipelineLayout,
		VertexInputs:      data.VertexShader.Inputs,
	}, nil
}

// MaterialSetLayout returns the Vulkan descriptor-set layout device-level
// material parameter blocks for this shader must be allocated against.
func (s *Shader) MaterialSetLayout() vulkan.DescriptorSetLayout {
	return s.materialSetLayout
}

// Destroy releases both shader modules and the three descriptor-set
// layouts plus the pipeline layout built from them.
func (s *Shader) Destroy(d *Device) {
	s.VertexShader.Destroy()
	s.PixelShader.Destroy()
	d.DestroyDescriptorSetLayout(s.sceneSetLayout)
	d.DestroyDescriptorSetLayout(s.viewSetLayout)
	d.DestroyDescriptorSetLayout(s.materialSetLayout)
	if s.PipelineLayout != nil {
		vulkan.DestroyPipelineLayout(d.Logical, s.PipelineLayout, nil)
	}
}

// sliceUint32 reinterprets a SPIR-V byte slice as the []uint32 words the
// Vulkan API expects, assuming the input is already 4-byte aligned (true
// for any buffer the shader compiler produced).
func sliceUint32(b []byte) []uint32 {
	if len(b)%4 != 0 {
		panic("teide: vk: CreateShaderModule: SPIR-V byte length not a multiple of 4")
	}
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
	}
	return out
}
