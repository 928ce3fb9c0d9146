// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package shaderdata holds the pure, backend-agnostic data types that
// describe shaders and parameter blocks before layout inference (spec §3,
// §4.C, §6 "Shader source format"): ShaderSource is what an application
// supplies, ShaderData is what the reflection/layout builder produces.
package shaderdata

import "github.com/teide-go/teide/format"

// Language identifies the shader source language. The compiler front end
// itself is an external collaborator (spec §1); Teide only needs to know
// which dialect's common preamble to emit.
type Language int

const (
	GLSL Language = iota
	HLSL
)

// ShaderVariableType enumerates the scalar/vector/matrix/resource types a
// shader variable can have.
type ShaderVariableType int

const (
	Scalar ShaderVariableType = iota
	Vector2
	Vector3
	Vector4
	Matrix4
	Texture2D
	Texture2DShadow
)

// ShaderVariable is a single named, typed shader input or output.
type ShaderVariable struct {
	Name string
	Type ShaderVariableType
}

// IsResource reports whether the variable binds a texture/sampler rather
// than contributing bytes to a uniform block.
func (v ShaderVariable) IsResource() bool {
	return v.Type == Texture2D || v.Type == Texture2DShadow
}

// Components returns the number of float32 components a non-resource
// variable occupies (1 for Scalar, 2/3/4 for VectorN, 16 for Matrix4).
func (v ShaderVariable) Components() int {
	switch v.Type {
	case Scalar:
		return 1
	case Vector2:
		return 2
	case Vector3:
		return 3
	case Vector4:
		return 4
	case Matrix4:
		return 16
	default:
		return 0
	}
}

// ParameterBlockDescriptor lists the parameters one parameter-block scope
// (Scene/View/Material/Object) exposes to shaders, plus which stages touch
// its uniform data (spec §4.C step 5 "fold its stage mask").
type ParameterBlockDescriptor struct {
	Parameters     []ShaderVariable
	UniformsStages StageMask
}

// StageMask is a bitmask of shader stages.
type StageMask uint32

const (
	StageVertex StageMask = 1 << iota
	StageFragment
)

// StageRecord is one shader stage's declarative record (spec §6).
type StageRecord struct {
	Inputs  []ShaderVariable
	Outputs []ShaderVariable
	Source  string
}

// ShaderSource is the declarative record an application supplies to
// CreateShader: language tag, the shared environment it binds against,
// the material/object parameter-block descriptors, and the vertex/pixel
// stage records.
type ShaderSource struct {
	Language        Language
	Environment     ShaderEnvironmentData
	MaterialPblock  ParameterBlockDescriptor
	ObjectPblock    ParameterBlockDescriptor
	VertexShader    StageRecord
	PixelShader     StageRecord
}

// ShaderEnvironmentData is the Scene+View parameter-block pair shared
// across every shader used by one Renderer (spec §3 ShaderEnvironment).
type ShaderEnvironmentData struct {
	ScenePblock ParameterBlockDescriptor
	ViewPblock  ParameterBlockDescriptor
}

// CompiledStage is one compiled shader stage: SPIR-V bytes (opaque, as
// produced by the external compiler front end) plus the input-variable
// list the vertex-input layout is built from.
type CompiledStage struct {
	SPIRV  []byte
	Inputs []ShaderVariable
}

// ShaderData is what the reflection/layout builder (spec §4.C) produces
// from a ShaderSource: layouts for all four parameter blocks plus the two
// compiled stages.
type ShaderData struct {
	Environment    ShaderEnvironmentData
	MaterialPblock ParameterBlockDescriptor
	ObjectPblock   ParameterBlockDescriptor
	VertexShader   CompiledStage
	PixelShader    CompiledStage
}

// VertexAttribute describes one vertex-input binding (spec §3 VertexLayout).
type VertexAttribute struct {
	Name     string
	Location uint32
	Format   format.Format
	Offset   uint32
}
