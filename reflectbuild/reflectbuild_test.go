// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reflectbuild

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teide-go/teide/shaderdata"
	"github.com/teide-go/teide/teideerr"
)

type stubCompiler struct {
	fail   bool
	source func(StageKind, string)
}

func (c *stubCompiler) Compile(stage StageKind, source string) ([]byte, error) {
	if c.source != nil {
		c.source(stage, source)
	}
	if c.fail {
		return nil, errors.New("boom")
	}
	return []byte("spirv:" + source), nil
}

func simpleSource() shaderdata.ShaderSource {
	return shaderdata.ShaderSource{
		Language: shaderdata.GLSL,
		Environment: shaderdata.ShaderEnvironmentData{
			ScenePblock: shaderdata.ParameterBlockDescriptor{
				Parameters: []shaderdata.ShaderVariable{{Name: "viewProj", Type: shaderdata.Matrix4}},
			},
		},
		MaterialPblock: shaderdata.ParameterBlockDescriptor{
			Parameters: []shaderdata.ShaderVariable{
				{Name: "baseColor", Type: shaderdata.Vector4},
				{Name: "albedo", Type: shaderdata.Texture2D},
			},
		},
		ObjectPblock: shaderdata.ParameterBlockDescriptor{
			Parameters: []shaderdata.ShaderVariable{{Name: "model", Type: shaderdata.Matrix4}},
		},
		VertexShader: shaderdata.StageRecord{
			Inputs:  []shaderdata.ShaderVariable{{Name: "position", Type: shaderdata.Vector3}},
			Outputs: []shaderdata.ShaderVariable{{Name: "gl_Position", Type: shaderdata.Vector4}},
			Source:  "void main() {}",
		},
		PixelShader: shaderdata.StageRecord{
			Inputs: []shaderdata.ShaderVariable{{Name: "uv", Type: shaderdata.Vector2}},
			Source: "void main() {}",
		},
	}
}

func TestBuildFoldsStageMask(t *testing.T) {
	data, err := Build(simpleSource(), &stubCompiler{})
	require.NoError(t, err)

	assert.Equal(t, shaderdata.StageVertex|shaderdata.StageFragment, data.Environment.ScenePblock.UniformsStages)
	assert.Equal(t, shaderdata.StageVertex|shaderdata.StageFragment, data.MaterialPblock.UniformsStages)
	// Object block is a single 64-byte mat4: fits the push-constant limit.
	assert.Equal(t, shaderdata.StageVertex|shaderdata.StageFragment, data.ObjectPblock.UniformsStages)
}

func TestBuildSkipsGlPrefixedVaryings(t *testing.T) {
	var vertexSource string
	compiler := &stubCompiler{source: func(stage StageKind, source string) {
		if stage == Vertex {
			vertexSource = source
		}
	}}
	_, err := Build(simpleSource(), compiler)
	require.NoError(t, err)
	assert.NotContains(t, vertexSource, "gl_Position")
}

func TestBuildCompileErrorWraps(t *testing.T) {
	_, err := Build(simpleSource(), &stubCompiler{fail: true})
	require.Error(t, err)
	var compileErr *teideerr.CompileError
	assert.ErrorAs(t, err, &compileErr)
}

func TestEmitSetPushConstantForObject(t *testing.T) {
	var vertexSource string
	compiler := &stubCompiler{source: func(stage StageKind, source string) {
		if stage == Vertex {
			vertexSource = source
		}
	}}
	_, err := Build(simpleSource(), compiler)
	require.NoError(t, err)
	assert.True(t, strings.Contains(vertexSource, "push_constant"))
}
