// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pblock

import (
	"fmt"

	"github.com/teide-go/teide/handle"
	"github.com/teide-go/teide/shaderdata"
)

// DescriptorSet is an opaque backend-allocated descriptor set handle.
type DescriptorSet interface{}

// Backend is the seam the Vulkan implementation satisfies (spec §4.D):
// given a derived Layout, allocate the uniform buffer and descriptor set
// (or report that none is needed), and write texture bindings into it.
type Backend interface {
	AllocateUniformBuffer(size int) (handle.Handle[[]byte], error)
	AllocateDescriptorSet(layout Layout) (DescriptorSet, error)
	WriteTextureBinding(set DescriptorSet, bindingIndex int, texture handle.Handle[any]) error
	WriteUniformBuffer(buf handle.Handle[[]byte], data []byte) error
}

// Block is one live parameter block instance: its derived layout, the
// uniform bytes staged for upload (zero-filled at construction per spec
// §4.D "zero-fill"), and either a descriptor set or a push-constant byte
// range, whichever the layout selected.
type Block struct {
	Layout       Layout
	uniformBytes []byte
	pushConstant []byte
	descSet      DescriptorSet
	uniformBuf   handle.Handle[[]byte]
	backend      Backend
}

// New constructs a Block from a descriptor: derives the layout, then
// zero-fills the uniform storage and (for non-push-constant, non-empty
// blocks) asks the backend to allocate the descriptor set and uniform
// buffer.
func New(desc shaderdata.ParameterBlockDescriptor, backend Backend) (*Block, error) {
	return NewWithLayout(DeriveLayout(desc), backend)
}

// NewWithLayout is New with an already-derived Layout, for callers that
// must adjust DeriveLayout's output before allocation — e.g. forcing
// IsPushConstant false on every set but Object, since DeriveLayout has no
// notion of which set index it was called for (spec §4.C "Object (set 3)
// layout uses push constants").
func NewWithLayout(layout Layout, backend Backend) (*Block, error) {
	b := &Block{Layout: layout, backend: backend}

	if layout.IsEmpty() {
		return b, nil
	}

	if layout.IsPushConstant {
		b.pushConstant = make([]byte, layout.UniformsSize)
		return b, nil
	}

	if layout.UniformsSize > 0 {
		buf, err := backend.AllocateUniformBuffer(layout.UniformsSize)
		if err != nil {
			return nil, fmt.Errorf("pblock: allocate uniform buffer: %w", err)
		}
		b.uniformBuf = buf
		b.uniformBytes = make([]byte, layout.UniformsSize)
	}

	set, err := backend.AllocateDescriptorSet(layout)
	if err != nil {
		return nil, fmt.Errorf("pblock: allocate descriptor set: %w", err)
	}
	b.descSet = set
	return b, nil
}

// IsEmpty reports whether this block carries no data at all (spec §4.D).
func (b *Block) IsEmpty() bool {
	return b.Layout.IsEmpty()
}

// SetUniformBytes overwrites the staged uniform or push-constant bytes at
// the given offset within this block's layout (bounds-checked: writing
// past UniformsSize is a programming error and panics).
func (b *Block) SetUniformBytes(offset int, data []byte) {
	dst := b.uniformBytes
	if b.Layout.IsPushConstant {
		dst = b.pushConstant
	}
	if offset < 0 || offset+len(data) > len(dst) {
		panic("teide: pblock.Block.SetUniformBytes: write out of bounds")
	}
	copy(dst[offset:], data)
}

// PushConstantBytes returns the staged push-constant bytes, or nil if
// this block is not push-constant backed.
func (b *Block) PushConstantBytes() []byte {
	return b.pushConstant
}

// DescriptorSet returns the backend descriptor set, or nil for an empty
// or push-constant-only block.
func (b *Block) DescriptorSet() DescriptorSet {
	return b.descSet
}

// Flush uploads any staged uniform bytes to the backend buffer. Push
// constants are bound directly at draw time by the caller and need no
// flush step.
func (b *Block) Flush() error {
	if b.uniformBuf.Valid() && len(b.uniformBytes) > 0 {
		if err := b.backend.WriteUniformBuffer(b.uniformBuf, b.uniformBytes); err != nil {
			return fmt.Errorf("pblock: flush uniform buffer: %w", err)
		}
	}
	return nil
}

// BindTexture writes a texture binding into this block's descriptor set
// at the position DeriveLayout assigned it.
func (b *Block) BindTexture(bindingIndex int, texture handle.Handle[any]) error {
	if b.descSet == nil {
		panic("teide: pblock.Block.BindTexture: block has no descriptor set")
	}
	return b.backend.WriteTextureBinding(b.descSet, bindingIndex, texture)
}

// Populate stages uniformData at offset 0 (if non-empty) and binds
// textures at the binding indices immediately following the uniform
// buffer's own binding (starting at 1 when the block has uniform data,
// whose buffer sits at binding 0, else starting at 0), then flushes
// the uniform upload. A convenience wrapper around
// SetUniformBytes/BindTexture/Flush for the common case of filling a
// freshly constructed Block from a caller-supplied parameter payload
// (Scene/View per frame, Material per draw-call setup, Object per
// render object).
func Populate(b *Block, uniformData []byte, textures []handle.Handle[any]) error {
	if b.IsEmpty() {
		return nil
	}
	if len(uniformData) > 0 {
		b.SetUniformBytes(0, uniformData)
	}
	base := 0
	if b.Layout.UniformsSize > 0 {
		base = 1
	}
	for i, tex := range textures {
		if err := b.BindTexture(base+i, tex); err != nil {
			return fmt.Errorf("pblock: populate: binding texture %d: %w", i, err)
		}
	}
	return b.Flush()
}
