// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vk

import (
	"fmt"

	vulkan "github.com/goki/vulkan"

	"github.com/teide-go/teide/pblock"
)

// CreateDescriptorSetLayout builds the vulkan.DescriptorSetLayout a
// pblock.Layout describes: binding 0 is the uniform buffer (if the block
// carries non-push-constant uniform data), followed by one combined
// image-sampler binding per texture parameter. A push-constant or empty
// layout needs no descriptor set at all and this returns a nil layout.
func (d *Device) CreateDescriptorSetLayout(layout pblock.Layout) (vulkan.DescriptorSetLayout, error) {
	if layout.IsEmpty() || layout.IsPushConstant {
		return nil, nil
	}

	var bindings []vulkan.DescriptorSetLayoutBinding
	binding := uint32(0)
	if layout.UniformsSize > 0 {
		bindings = append(bindings, vulkan.DescriptorSetLayoutBinding{
			Binding:         binding,
			DescriptorType:  vulkan.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vulkan.ShaderStageFlags(vulkan.ShaderStageVertexBit | vulkan.ShaderStageFragmentBit),
		})
		binding++
	}
	for range layout.TextureBindings {
		bindings = append(bindings, vulkan.DescriptorSetLayoutBinding{
			Binding:         binding,
			DescriptorType:  vulkan.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vulkan.ShaderStageFlags(vulkan.ShaderStageFragmentBit),
		})
		binding++
	}

	var setLayout vulkan.DescriptorSetLayout
	ret := vulkan.CreateDescriptorSetLayout(d.Logical, &vulkan.DescriptorSetLayoutCreateInfo{
		SType:        vulkan.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}, nil, &setLayout)
	if ret != vulkan.Success {
		return nil, fmt.Errorf("teide: vk: CreateDescriptorSetLayout failed: %d", ret)
	}
	return setLayout, nil
}

// DestroyDescriptorSetLayout releases a layout built by
// CreateDescriptorSetLayout. A nil layout (push-constant/empty blocks)
// is a no-op.
func (d *Device) DestroyDescriptorSetLayout(layout vulkan.DescriptorSetLayout) {
	if layout != nil {
		vulkan.DestroyDescriptorSetLayout(d.Logical, layout, nil)
	}
}
