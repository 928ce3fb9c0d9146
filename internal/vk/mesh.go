// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vk

import (
	"fmt"

	vulkan "github.com/goki/vulkan"
)

// Mesh is a device-resident vertex buffer plus an optional 16-bit index
// buffer (spec §3 Mesh entity).
type Mesh struct {
	VertexBuffer *Buffer
	IndexBuffer  *Buffer
	VertexCount  int
	IndexCount   int
}

// CreateMesh uploads vertexData (and, if non-nil, 16-bit indexData) into
// permanent, device-local buffers.
func (d *Device) CreateMesh(vertexData []byte, vertexStride int, indexData []uint16) (*Mesh, error) {
	if vertexStride <= 0 || len(vertexData)%vertexStride != 0 {
		return nil, fmt.Errorf("teide: vk: CreateMesh: vertex data length %d not a multiple of stride %d", len(vertexData), vertexStride)
	}
	vb, err := d.CreateBuffer(len(vertexData), UsageVertex, Permanent, false, vertexData)
	if err != nil {
		return nil, fmt.Errorf("teide: vk: CreateMesh: vertex buffer: %w", err)
	}
	mesh := &Mesh{
		VertexBuffer: vb,
		VertexCount:  len(vertexData) / vertexStride,
	}
	if indexData != nil {
		raw := make([]byte, len(indexData)*2)
		for i, idx := range indexData {
			raw[i*2] = byte(idx)
			raw[i*2+1] = byte(idx >> 8)
		}
		ib, err := d.CreateBuffer(len(raw), UsageIndex, Permanent, false, raw)
		if err != nil {
			vb.Destroy()
			return nil, fmt.Errorf("teide: vk: CreateMesh: index buffer: %w", err)
		}
		mesh.IndexBuffer = ib
		mesh.IndexCount = len(indexData)
	}
	return mesh, nil
}

// BindForDraw records the vertex (and, if present, index) buffer bind
// commands for this mesh into cmd.
func (m *Mesh) BindForDraw(cmd vulkan.CommandBuffer) {
	buffers := []vulkan.Buffer{m.VertexBuffer.DeviceHandle()}
	offsets := []vulkan.DeviceSize{0}
	vulkan.CmdBindVertexBuffers(cmd, 0, 1, buffers, offsets)
	if m.IndexBuffer != nil {
		vulkan.CmdBindIndexBuffer(cmd, m.IndexBuffer.DeviceHandle(), 0, vulkan.IndexTypeUint16)
	}
}

// Destroy releases the vertex and (if present) index buffer.
func (m *Mesh) Destroy() {
	if m.VertexBuffer != nil {
		m.VertexBuffer.Destroy()
	}
	if m.IndexBuffer != nil {
		m.IndexBuffer.Destroy()
	}
}
