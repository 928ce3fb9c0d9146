// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teide-go/teide/handle"
	"github.com/teide-go/teide/shaderdata"
)

func TestDeriveLayoutAlignsStd430(t *testing.T) {
	desc := shaderdata.ParameterBlockDescriptor{
		Parameters: []shaderdata.ShaderVariable{
			{Name: "a", Type: shaderdata.Scalar},
			{Name: "b", Type: shaderdata.Vector3},
		},
	}
	layout := DeriveLayout(desc)
	// Scalar at offset 0 (size 4), vec3 must align to 16 -> offset 16.
	require.Len(t, layout.UniformOffsets, 2)
	assert.Equal(t, 0, layout.UniformOffsets[0])
	assert.Equal(t, 16, layout.UniformOffsets[1])
	assert.Equal(t, 32, layout.UniformsSize)
}

func TestDeriveLayoutPushConstantBoundary(t *testing.T) {
	// Exactly two mat4s of data: 2*64 = 128, at the cutoff.
	atLimit := shaderdata.ParameterBlockDescriptor{
		Parameters: []shaderdata.ShaderVariable{
			{Name: "a", Type: shaderdata.Matrix4},
			{Name: "b", Type: shaderdata.Matrix4},
		},
	}
	layout := DeriveLayout(atLimit)
	assert.Equal(t, 128, layout.UniformsSize)
	assert.True(t, layout.IsPushConstant)

	overLimit := shaderdata.ParameterBlockDescriptor{
		Parameters: append(atLimit.Parameters, shaderdata.ShaderVariable{Name: "c", Type: shaderdata.Scalar}),
	}
	layout2 := DeriveLayout(overLimit)
	assert.Greater(t, layout2.UniformsSize, 128)
	assert.False(t, layout2.IsPushConstant)
}

func TestDeriveLayoutResourcesDoNotContributeToUniformSize(t *testing.T) {
	desc := shaderdata.ParameterBlockDescriptor{
		Parameters: []shaderdata.ShaderVariable{
			{Name: "albedo", Type: shaderdata.Texture2D},
			{Name: "normal", Type: shaderdata.Texture2DShadow},
		},
	}
	layout := DeriveLayout(desc)
	assert.Equal(t, 0, layout.UniformsSize)
	assert.Equal(t, 2, layout.TextureCount)
	assert.False(t, layout.IsPushConstant)
}

func TestLayoutIsEmpty(t *testing.T) {
	empty := DeriveLayout(shaderdata.ParameterBlockDescriptor{})
	assert.True(t, empty.IsEmpty())
}

type fakeBackend struct {
	uniformData map[handle.Handle[[]byte]][]byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{uniformData: make(map[handle.Handle[[]byte]][]byte)}
}

func (f *fakeBackend) AllocateUniformBuffer(size int) (handle.Handle[[]byte], error) {
	reg := handle.NewRegistry[[]byte]("test-uniform")
	h := reg.Insert(make([]byte, size))
	return h, nil
}

func (f *fakeBackend) AllocateDescriptorSet(layout Layout) (DescriptorSet, error) {
	return "fake-set", nil
}

func (f *fakeBackend) WriteTextureBinding(set DescriptorSet, bindingIndex int, texture handle.Handle[any]) error {
	return nil
}

func (f *fakeBackend) WriteUniformBuffer(buf handle.Handle[[]byte], data []byte) error {
	f.uniformData[buf] = append([]byte(nil), data...)
	return nil
}

func TestNewEmptyBlockHasNoBackendResources(t *testing.T) {
	backend := newFakeBackend()
	b, err := New(shaderdata.ParameterBlockDescriptor{}, backend)
	require.NoError(t, err)
	assert.True(t, b.IsEmpty())
	assert.Nil(t, b.DescriptorSet())
}

func TestNewPushConstantBlockSkipsDescriptorSetForUniforms(t *testing.T) {
	backend := newFakeBackend()
	desc := shaderdata.ParameterBlockDescriptor{
		Parameters: []shaderdata.ShaderVariable{{Name: "model", Type: shaderdata.Matrix4}},
	}
	b, err := New(desc, backend)
	require.NoError(t, err)
	assert.True(t, b.Layout.IsPushConstant)
	assert.Nil(t, b.DescriptorSet())
	require.Len(t, b.PushConstantBytes(), 64)
	for _, byteVal := range b.PushConstantBytes() {
		assert.Equal(t, byte(0), byteVal)
	}
}

func TestSetUniformBytesOutOfBoundsPanics(t *testing.T) {
	backend := newFakeBackend()
	desc := shaderdata.ParameterBlockDescriptor{
		Parameters: []shaderdata.ShaderVariable{{Name: "model", Type: shaderdata.Matrix4}},
	}
	b, err := New(desc, backend)
	require.NoError(t, err)
	assert.Panics(t, func() { b.SetUniformBytes(100, []byte{1, 2, 3}) })
}

func TestFlushUploadsUniformBuffer(t *testing.T) {
	backend := newFakeBackend()
	desc := shaderdata.ParameterBlockDescriptor{
		Parameters: []shaderdata.ShaderVariable{
			{Name: "color", Type: shaderdata.Vector4},
			{Name: "albedo", Type: shaderdata.Texture2D},
		},
	}
	// A 16-byte block derives as push-constant backed; force the
	// descriptor-set path the way non-Object sets are built.
	layout := DeriveLayout(desc)
	layout.IsPushConstant = false
	b, err := NewWithLayout(layout, backend)
	require.NoError(t, err)
	require.NotNil(t, b.DescriptorSet())
	b.SetUniformBytes(0, []byte{1, 2, 3, 4})
	require.NoError(t, b.Flush())
	assert.Equal(t, []byte{1, 2, 3, 4}, backend.uniformData[b.uniformBuf][:4])
}
