// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pblock implements Teide's parameter-block layout inference and
// the ParameterBlock resource contract (spec §4.D). Layout derivation —
// uniform buffer size, texture count, push-constant eligibility — is pure
// data transformation and lives here; allocating the underlying
// descriptor set, uniform buffer, or push-constant range is delegated to
// the Vulkan backend (internal/vk) through the Backend interface below.
package pblock

import "github.com/teide-go/teide/shaderdata"

// pushConstantLimit mirrors reflectbuild's cutoff (spec §4.C, §4.D): a
// parameter block whose uniform bytes fit within this many bytes is
// eligible to be bound as a push constant instead of a uniform buffer.
const pushConstantLimit = 128

// PushConstantLimit returns the byte cutoff DeriveLayout uses to decide
// push-constant eligibility (spec §4.C "Push-constant selection rule").
func PushConstantLimit() int { return pushConstantLimit }

// Layout is the derived shape of one parameter block: the byte size its
// uniform data occupies (std430-aligned), how many texture bindings it
// declares, and whether it qualifies for push-constant binding.
type Layout struct {
	UniformsSize    int
	TextureCount    int
	IsPushConstant  bool
	UniformOffsets  []int
	TextureBindings []string
}

// DeriveLayout computes a Layout from a descriptor the way reflectbuild
// reasons about set contents: walk the parameters in declaration order,
// accumulating std430-aligned offsets for uniform data and a separate
// count for resource (texture) bindings.
func DeriveLayout(desc shaderdata.ParameterBlockDescriptor) Layout {
	var layout Layout
	offset := 0
	for _, p := range desc.Parameters {
		if p.IsResource() {
			layout.TextureBindings = append(layout.TextureBindings, p.Name)
			layout.TextureCount++
			continue
		}
		elemSize := componentByteSize(p)
		align := std430Align(elemSize)
		offset = alignUp(offset, align)
		layout.UniformOffsets = append(layout.UniformOffsets, offset)
		offset += elemSize
	}
	layout.UniformsSize = offset
	layout.IsPushConstant = layout.UniformsSize > 0 && layout.UniformsSize <= pushConstantLimit
	return layout
}

func componentByteSize(v shaderdata.ShaderVariable) int {
	switch v.Type {
	case shaderdata.Scalar:
		return 4
	case shaderdata.Vector2:
		return 8
	case shaderdata.Vector3, shaderdata.Vector4:
		return 16
	case shaderdata.Matrix4:
		return 64
	default:
		return 0
	}
}

// std430Align returns the alignment std430 imposes for a value of the
// given byte size: scalars and vec2 align to their own size, vec3/vec4
// and matrices (stored as 4 columns of vec4) align to 16.
func std430Align(byteSize int) int {
	switch {
	case byteSize <= 4:
		return 4
	case byteSize <= 8:
		return 8
	default:
		return 16
	}
}

func alignUp(offset, align int) int {
	if align == 0 {
		return offset
	}
	rem := offset % align
	if rem == 0 {
		return offset
	}
	return offset + (align - rem)
}

// IsEmpty reports whether a block carries neither uniform data nor
// texture bindings (spec §4.D "IsEmpty"): such a block needs no
// descriptor set or push-constant range at all.
func (l Layout) IsEmpty() bool {
	return l.UniformsSize == 0 && l.TextureCount == 0
}
