// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vk

import (
	"fmt"
	"sync"

	vulkan "github.com/goki/vulkan"

	"github.com/teide-go/teide/handle"
	"github.com/teide-go/teide/pblock"
)

// ParamBlockBackend implements pblock.Backend against one Device,
// allocating uniform buffers and descriptor sets from a shared
// descriptor pool. Grounded on vgpu.System.SetVals's
// WriteDescriptorSet-building loop (spec §4.D "Block contract").
type ParamBlockBackend struct {
	device      *Device
	descPool    vulkan.DescriptorPool
	setLayout   vulkan.DescriptorSetLayout
	textures    *handle.Registry[any]
	uniformRegs *handle.Registry[[]byte]

	mu          sync.Mutex
	uniformBufs map[uint64]*Buffer
	// pendingBuf holds the buffer an immediately preceding
	// AllocateUniformBuffer call produced, so the following
	// AllocateDescriptorSet call (Block.New always issues the two back to
	// back for one block) can bind it at set creation time.
	pendingBuf *Buffer
}

// NewParamBlockBackend creates the shared descriptor pool a Renderer
// draws all its parameter blocks' descriptor sets from. setLayout is
// produced once per ParameterBlockLayout by the caller (descriptor-set
// layouts are keyed by shape, not by instance). textures is the shared
// registry device.Device boxes every created texture into; it resolves
// the handles WriteTextureBinding receives.
func NewParamBlockBackend(d *Device, setLayout vulkan.DescriptorSetLayout, textures *handle.Registry[any], maxSets int) (*ParamBlockBackend, error) {
	sizes := []vulkan.DescriptorPoolSize{
		{Type: vulkan.DescriptorTypeUniformBuffer, DescriptorCount: uint32(maxSets)},
		{Type: vulkan.DescriptorTypeCombinedImageSampler, DescriptorCount: uint32(maxSets * 4)},
	}
	var pool vulkan.DescriptorPool
	ret := vulkan.CreateDescriptorPool(d.Logical, &vulkan.DescriptorPoolCreateInfo{
		SType:         vulkan.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(maxSets),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}, nil, &pool)
	if ret != vulkan.Success {
		return nil, fmt.Errorf("teide: vk: CreateDescriptorPool failed: %d", ret)
	}
	return &ParamBlockBackend{
		device:      d,
		descPool:    pool,
		setLayout:   setLayout,
		textures:    textures,
		uniformRegs: handle.NewRegistry[[]byte]("pblock-uniform"),
		uniformBufs: make(map[uint64]*Buffer),
	}, nil
}

var _ pblock.Backend = (*ParamBlockBackend)(nil)

// AllocateUniformBuffer creates a host-visible uniform buffer of size
// bytes (pblock re-uploads it every frame via WriteUniformBuffer, so
// there is no separate device-local copy).
func (b *ParamBlockBackend) AllocateUniformBuffer(size int) (handle.Handle[[]byte], error) {
	buf, err := b.device.CreateBuffer(size, UsageUniform, Transient, true, nil)
	if err != nil {
		return handle.Handle[[]byte]{}, err
	}
	h := b.uniformRegs.Insert(make([]byte, size))
	b.mu.Lock()
	b.uniformBufs[h.Index()] = buf
	b.pendingBuf = buf
	b.mu.Unlock()
	return h, nil
}

// AllocateDescriptorSet allocates one descriptor set of this backend's
// fixed layout, binding binding 0 to the uniform buffer a directly
// preceding AllocateUniformBuffer call produced if layout carries uniform
// data. The caller is responsible for writing texture bindings via
// WriteTextureBinding before first use.
func (b *ParamBlockBackend) AllocateDescriptorSet(layout pblock.Layout) (pblock.DescriptorSet, error) {
	layouts := []vulkan.DescriptorSetLayout{b.setLayout}
	sets := make([]vulkan.DescriptorSet, 1)
	ret := vulkan.AllocateDescriptorSets(b.device.Logical, &vulkan.DescriptorSetAllocateInfo{
		SType:              vulkan.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     b.descPool,
		DescriptorSetCount: 1,
		PSetLayouts:        layouts,
	}, sets)
	if ret != vulkan.Success {
		return nil, fmt.Errorf("teide: vk: AllocateDescriptorSets failed: %d", ret)
	}
	set := sets[0]

	if layout.UniformsSize > 0 {
		b.mu.Lock()
		buf := b.pendingBuf
		b.pendingBuf = nil
		b.mu.Unlock()
		if buf == nil {
			panic("teide: vk: AllocateDescriptorSet: no pending uniform buffer to bind")
		}
		bufferInfo := []vulkan.DescriptorBufferInfo{{
			Buffer: buf.DeviceHandle(),
			Offset: 0,
			Range:  vulkan.DeviceSize(layout.UniformsSize),
		}}
		write := vulkan.WriteDescriptorSet{
			SType:           vulkan.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vulkan.DescriptorTypeUniformBuffer,
			PBufferInfo:     bufferInfo,
		}
		vulkan.UpdateDescriptorSets(b.device.Logical, 1, []vulkan.WriteDescriptorSet{write}, 0, nil)
	}

	return set, nil
}

// WriteUniformBuffer uploads data into the uniform buffer referenced by
// buf. The buffer's descriptor binding was already written at
// AllocateDescriptorSet time.
func (b *ParamBlockBackend) WriteUniformBuffer(buf handle.Handle[[]byte], data []byte) error {
	b.mu.Lock()
	vkBuf, ok := b.uniformBufs[buf.Index()]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("teide: vk: WriteUniformBuffer: unknown buffer handle")
	}
	vkBuf.Write(0, data)
	return nil
}

// WriteTextureBinding writes a combined image-sampler binding into set
// at bindingIndex. texture is a handle boxed into this backend's shared
// textures registry by Device.CreateTexture, holding a *Texture.
func (b *ParamBlockBackend) WriteTextureBinding(set pblock.DescriptorSet, bindingIndex int, textureHandle handle.Handle[any]) error {
	vkSet, ok := set.(vulkan.DescriptorSet)
	if !ok {
		return fmt.Errorf("teide: vk: WriteTextureBinding: unexpected descriptor set type")
	}
	if !textureHandle.Valid() {
		return fmt.Errorf("teide: vk: WriteTextureBinding: invalid texture handle")
	}
	tex, ok := b.textures.Get(textureHandle).(*Texture)
	if !ok {
		return fmt.Errorf("teide: vk: WriteTextureBinding: handle does not hold a texture")
	}
	imageInfo := []vulkan.DescriptorImageInfo{{
		Sampler:     tex.sampler,
		ImageView:   tex.view,
		ImageLayout: vulkan.ImageLayoutShaderReadOnlyOptimal,
	}}
	write := vulkan.WriteDescriptorSet{
		SType:           vulkan.StructureTypeWriteDescriptorSet,
		DstSet:          vkSet,
		DstBinding:      uint32(bindingIndex),
		DescriptorCount: 1,
		DescriptorType:  vulkan.DescriptorTypeCombinedImageSampler,
		PImageInfo:      imageInfo,
	}
	vulkan.UpdateDescriptorSets(b.device.Logical, 1, []vulkan.WriteDescriptorSet{write}, 0, nil)
	return nil
}

// Destroy releases the descriptor pool and every allocated uniform
// buffer.
func (b *ParamBlockBackend) Destroy() {
	for _, buf := range b.uniformBufs {
		buf.Destroy()
	}
	if b.descPool != nil {
		vulkan.DestroyDescriptorPool(b.device.Logical, b.descPool, nil)
	}
}
