// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vk

import (
	"fmt"
	"unsafe"

	vulkan "github.com/goki/vulkan"
)

// BufferUsage mirrors spec §3's Buffer.usage enumeration.
type BufferUsage int

const (
	UsageVertex BufferUsage = iota
	UsageIndex
	UsageUniform
	UsageGeneric
)

func (u BufferUsage) vkFlags() vulkan.BufferUsageFlagBits {
	switch u {
	case UsageVertex:
		return vulkan.BufferUsageVertexBufferBit | vulkan.BufferUsageTransferDstBit
	case UsageIndex:
		return vulkan.BufferUsageIndexBufferBit | vulkan.BufferUsageTransferDstBit
	case UsageUniform:
		return vulkan.BufferUsageUniformBufferBit | vulkan.BufferUsageTransferDstBit
	default:
		return vulkan.BufferUsageStorageBufferBit | vulkan.BufferUsageTransferSrcBit | vulkan.BufferUsageTransferDstBit
	}
}

// Lifetime mirrors spec §3's Buffer.lifetime enumeration.
type Lifetime int

const (
	Permanent Lifetime = iota
	Transient
)

// Buffer is a device buffer, grounded on vgpu.MemBuff's host+device
// split: host-visible memory for staging uploads and a device-local
// buffer for GPU access, with the host copy retained only while mapped
// uniform writes (e.g. pblock uniform buffers) need it.
type Buffer struct {
	device *Device

	Size     int
	Usage    BufferUsage
	Lifetime Lifetime

	host    vulkan.Buffer
	hostMem vulkan.DeviceMemory
	hostPtr unsafe.Pointer

	dev    vulkan.Buffer
	devMem vulkan.DeviceMemory

	// hostVisible buffers (uniform buffers written every frame) skip the
	// device-local copy and are read directly by the GPU from host memory.
	hostVisible bool
}

// CreateBuffer allocates a buffer of size bytes and, if data is
// non-nil, uploads it immediately. hostVisible should be true for
// buffers written frequently from the CPU (uniform buffers); false for
// buffers uploaded once and read many times (vertex/index buffers).
func (d *Device) CreateBuffer(size int, usage BufferUsage, lifetime Lifetime, hostVisible bool, data []byte) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("teide: vk: CreateBuffer: size must be > 0, got %d", size)
	}
	b := &Buffer{device: d, Size: size, Usage: usage, Lifetime: lifetime, hostVisible: hostVisible}

	hostUsage := usage.vkFlags() | vulkan.BufferUsageTransferSrcBit
	b.host = newVkBuffer(d.Logical, size, hostUsage)
	b.hostMem = allocBufferMemory(d, b.host, vulkan.MemoryPropertyHostVisibleBit|vulkan.MemoryPropertyHostCoherentBit)
	b.hostPtr = mapMemory(d.Logical, b.hostMem, size)

	if !hostVisible {
		devUsage := usage.vkFlags() | vulkan.BufferUsageTransferDstBit
		b.dev = newVkBuffer(d.Logical, size, devUsage)
		b.devMem = allocBufferMemory(d, b.dev, vulkan.MemoryPropertyDeviceLocalBit)
	}

	if data != nil {
		b.Write(0, data)
		if !hostVisible {
			b.flushToDevice()
		}
	}
	return b, nil
}

// Write copies data into the buffer's mapped host memory at offset.
// Callers using a device-local buffer must call flushToDevice (done
// automatically by CreateBuffer's initial upload) or re-record a copy
// command for subsequent writes.
func (b *Buffer) Write(offset int, data []byte) {
	if offset < 0 || offset+len(data) > b.Size {
		panic("teide: vk: Buffer.Write: out of bounds")
	}
	if b.hostPtr == nil {
		panic("teide: vk: Buffer.Write: buffer not mapped")
	}
	dst := unsafe.Slice((*byte)(unsafe.Add(b.hostPtr, offset)), len(data))
	copy(dst, data)
}

// DeviceHandle returns the vulkan.Buffer the GPU actually reads from:
// the device-local buffer if one was allocated, else the host buffer.
func (b *Buffer) DeviceHandle() vulkan.Buffer {
	if b.hostVisible {
		return b.host
	}
	return b.dev
}

func (b *Buffer) flushToDevice() {
	cmd := b.device.beginOneShotCommands()
	region := vulkan.BufferCopy{Size: vulkan.DeviceSize(b.Size)}
	vulkan.CmdCopyBuffer(cmd, b.host, b.dev, 1, []vulkan.BufferCopy{region})
	b.device.endOneShotCommands(cmd)
}

// Destroy releases both the host and (if present) device-local buffer.
func (b *Buffer) Destroy() {
	dev := b.device.Logical
	if b.hostMem != nil {
		vulkan.UnmapMemory(dev, b.hostMem)
		vulkan.FreeMemory(dev, b.hostMem, nil)
		b.hostMem = nil
	}
	if b.host != nil {
		vulkan.DestroyBuffer(dev, b.host, nil)
		b.host = nil
	}
	if b.devMem != nil {
		vulkan.FreeMemory(dev, b.devMem, nil)
		b.devMem = nil
	}
	if b.dev != nil {
		vulkan.DestroyBuffer(dev, b.dev, nil)
		b.dev = nil
	}
}

func newVkBuffer(dev vulkan.Device, size int, usage vulkan.BufferUsageFlagBits) vulkan.Buffer {
	var buffer vulkan.Buffer
	ret := vulkan.CreateBuffer(dev, &vulkan.BufferCreateInfo{
		SType:       vulkan.StructureTypeBufferCreateInfo,
		Usage:       vulkan.BufferUsageFlags(usage),
		Size:        vulkan.DeviceSize(size),
		SharingMode: vulkan.SharingModeExclusive,
	}, nil, &buffer)
	checkResult(ret, "CreateBuffer")
	return buffer
}

func allocBufferMemory(d *Device, buffer vulkan.Buffer, properties vulkan.MemoryPropertyFlagBits) vulkan.DeviceMemory {
	var reqs vulkan.MemoryRequirements
	vulkan.GetBufferMemoryRequirements(d.Logical, buffer, &reqs)
	reqs.Deref()

	typeIndex, ok := findMemoryType(d.MemProperties, reqs.MemoryTypeBits, properties)
	if !ok {
		panic("teide: vk: no memory type satisfies buffer requirements")
	}

	var memory vulkan.DeviceMemory
	ret := vulkan.AllocateMemory(d.Logical, &vulkan.MemoryAllocateInfo{
		SType:           vulkan.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: typeIndex,
	}, nil, &memory)
	checkResult(ret, "AllocateMemory")
	checkResult(vulkan.BindBufferMemory(d.Logical, buffer, memory, 0), "BindBufferMemory")
	return memory
}

func mapMemory(dev vulkan.Device, mem vulkan.DeviceMemory, size int) unsafe.Pointer {
	var ptr unsafe.Pointer
	ret := vulkan.MapMemory(dev, mem, 0, vulkan.DeviceSize(size), 0, &ptr)
	checkResult(ret, "MapMemory")
	return ptr
}
