// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package reflectbuild implements Teide's shader reflection and layout
// builder (spec §4.C): given a ShaderSource, it emits the GLSL preamble
// and per-set declarations the (external) compiler front end consumes,
// then derives the ShaderData layouts by folding each stage's usage of
// the four parameter-block scopes.
//
// The actual GLSL/HLSL → SPIR-V compilation step is an external
// collaborator (spec §1): Compile below is a seam an application wires a
// real compiler into. Everything else — preamble emission, per-set
// declaration text, and the stage-mask folding that produces ShaderData —
// is implemented here.
package reflectbuild

import (
	"fmt"
	"strings"

	"github.com/teide-go/teide/shaderdata"
	"github.com/teide-go/teide/teideerr"
)

// commonPreamble is prepended to every shader's source (spec §4.C step 1):
// target version, std430 layout, and the mul() overloads HLSL-style
// shaders expect for matrix/vector multiplication order.
const commonPreamble = `#version 450
#extension GL_ARB_separate_shader_objects : enable
layout(std430) buffer;

vec4 mul(mat4 m, vec4 v) { return m * v; }
vec3 mul(mat3 m, vec3 v) { return m * v; }
`

// pushConstantLimit is the cutoff below which the Object (set 3)
// parameter block is emitted as push constants rather than a uniform
// buffer (spec §4.C "Push-constant selection rule"). 128 bytes is the
// guaranteed minimum push-constant range size on every Vulkan
// implementation, making it the conservative, portable default the spec
// calls for.
const pushConstantLimit = 128

// Compiler is the external shader-compiler front end: source text in,
// SPIR-V bytes out, or a CompileError. Applications supply a real
// implementation (e.g. shaderc/glslang bindings); reflectbuild treats it
// as a pure function.
type Compiler interface {
	Compile(stage StageKind, source string) ([]byte, error)
}

// StageKind distinguishes vertex from pixel/fragment stages.
type StageKind int

const (
	Vertex StageKind = iota
	Pixel
)

// Build runs the full algorithm from spec §4.C: emit per-set
// declarations for all four parameter blocks, emit the stage
// input/output declarations, compile both stages, and fold each uniform
// block's stage usage into the resulting layouts.
func Build(src shaderdata.ShaderSource, compiler Compiler) (shaderdata.ShaderData, error) {
	objectIsPushConstant := isPushConstant(src.ObjectPblock)

	vertexSource := assembleSource(src, Vertex, objectIsPushConstant)
	pixelSource := assembleSource(src, Pixel, objectIsPushConstant)

	vertexSPIRV, err := compiler.Compile(Vertex, vertexSource)
	if err != nil {
		return shaderdata.ShaderData{}, &teideerr.CompileError{Log: fmt.Sprintf("vertex stage: %v", err)}
	}
	pixelSPIRV, err := compiler.Compile(Pixel, pixelSource)
	if err != nil {
		return shaderdata.ShaderData{}, &teideerr.CompileError{Log: fmt.Sprintf("pixel stage: %v", err)}
	}

	// Reflection step (spec §4.C step 5): fold which stages touch each
	// block's uniform data. Since both stages were built from the same
	// descriptors, and both reference every non-empty block's uniform
	// text (see assembleSource), the stage mask is the union of whichever
	// stages were actually assembled with non-empty uniform text for that
	// block.
	env := src.Environment
	env.ScenePblock.UniformsStages = stageMaskFor(env.ScenePblock)
	env.ViewPblock.UniformsStages = stageMaskFor(env.ViewPblock)
	material := src.MaterialPblock
	material.UniformsStages = stageMaskFor(material)
	object := src.ObjectPblock
	object.UniformsStages = stageMaskFor(object)

	return shaderdata.ShaderData{
		Environment:    env,
		MaterialPblock: material,
		ObjectPblock:   object,
		VertexShader: shaderdata.CompiledStage{
			SPIRV:  vertexSPIRV,
			Inputs: src.VertexShader.Inputs,
		},
		PixelShader: shaderdata.CompiledStage{
			SPIRV:  pixelSPIRV,
			Inputs: src.PixelShader.Inputs,
		},
	}, nil
}

// isPushConstant implements spec §4.C's push-constant selection rule for
// set 3 (Object): push constants are used iff the block's total uniform
// size fits the device-advertised limit, approximated here by the fixed
// conservative constant every Vulkan device guarantees.
func isPushConstant(desc shaderdata.ParameterBlockDescriptor) bool {
	size := 0
	for _, p := range desc.Parameters {
		if p.IsResource() {
			continue
		}
		size += componentSize(p)
	}
	return size > 0 && size <= pushConstantLimit
}

func componentSize(v shaderdata.ShaderVariable) int {
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

func stageMaskFor(desc shaderdata.ParameterBlockDescriptor) shaderdata.StageMask {
	hasUniforms := false
	for _, p := range desc.Parameters {
		if !p.IsResource() {
			hasUniforms = true
			break
		}
	}
	if !hasUniforms {
		return 0
	}
	// Both stages emit the same set declarations (spec §4.C step 2), so a
	// block with any uniform parameters is visible to both.
	return shaderdata.StageVertex | shaderdata.StageFragment
}

// assembleSource builds the full GLSL text for one stage: the common
// preamble, then per-set declarations (sets 0..3) for Scene, View,
// Material, and Object, then the stage's own input/output declarations,
// then its body source.
func assembleSource(src shaderdata.ShaderSource, stage StageKind, objectIsPushConstant bool) string {
	var b strings.Builder
	b.WriteString(commonPreamble)

	emitSet(&b, 0, "Scene", src.Environment.ScenePblock, false)
	emitSet(&b, 1, "View", src.Environment.ViewPblock, false)
	emitSet(&b, 2, "Material", src.MaterialPblock, false)
	emitSet(&b, 3, "Object", src.ObjectPblock, objectIsPushConstant)

	rec := src.VertexShader
	if stage == Pixel {
		rec = src.PixelShader
	}
	emitVaryings(&b, rec.Inputs, "in")
	emitVaryings(&b, rec.Outputs, "out")
	b.WriteString(rec.Source)
	return b.String()
}

// emitSet emits one parameter block's uniform block (or push_constant
// block) plus its resource binding declarations (spec §4.C step 2).
func emitSet(b *strings.Builder, set int, name string, desc shaderdata.ParameterBlockDescriptor, pushConstant bool) {
	uniformVars := make([]shaderdata.ShaderVariable, 0, len(desc.Parameters))
	bindingIndex := 1
	for _, p := range desc.Parameters {
		if p.IsResource() {
			fmt.Fprintf(b, "layout(set = %d, binding = %d) uniform sampler2D %s;\n", set, bindingIndex, p.Name)
			bindingIndex++
			continue
		}
		uniformVars = append(uniformVars, p)
	}
	if len(uniformVars) == 0 {
		return
	}
	if pushConstant {
		fmt.Fprintf(b, "layout(push_constant) uniform %sBlock {\n", name)
	} else {
		fmt.Fprintf(b, "layout(set = %d, binding = 0, std430) uniform %sBlock {\n", set, name)
	}
	for _, v := range uniformVars {
		fmt.Fprintf(b, "    %s %s;\n", glslType(v.Type), v.Name)
	}
	fmt.Fprintf(b, "} %s;\n", strings.ToLower(name))
}

func glslType(t shaderdata.ShaderVariableType) string {
	switch t {
	case shaderdata.Scalar:
		return "float"
	case shaderdata.Vector2:
		return "vec2"
	case shaderdata.Vector3:
		return "vec3"
	case shaderdata.Vector4:
		return "vec4"
	case shaderdata.Matrix4:
		return "mat4"
	default:
		return "float"
	}
}

// emitVaryings emits layout(location=N) declarations in order, skipping
// any identifier beginning with "gl_" (spec §4.C step 3, §6).
func emitVaryings(b *strings.Builder, vars []shaderdata.ShaderVariable, direction string) {
	loc := 0
	for _, v := range vars {
		if strings.HasPrefix(v.Name, "gl_") {
			continue
		}
		fmt.Fprintf(b, "layout(location = %d) %s %s %s;\n", loc, direction, glslType(v.Type), v.Name)
		loc++
	}
}
