// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package render holds Teide's pure, hashable render descriptors (spec
// §3): the values that key the render-pass and framebuffer caches
// (rpcache), describe vertex layouts and samplers, and carry one frame's
// worth of draw commands (RenderList/RenderObject) down to the renderer.
package render

import (
	"github.com/teide-go/teide/format"
	"github.com/teide-go/teide/handle"
	"github.com/teide-go/teide/linear"
	"github.com/teide-go/teide/shaderdata"
)

// LoadOp and StoreOp mirror the Vulkan attachment load/store operations
// the render-pass cache compiles a FramebufferLayout/RenderPassDescriptor
// pair down into (spec §4.F).
type LoadOp int

const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDontCare
)

type StoreOp int

const (
	StoreOpStore StoreOp = iota
	StoreOpDontCare
)

// RenderPassUsage distinguishes a render pass that ends in a
// presentable surface image from one that ends in a sampled texture.
type RenderPassUsage int

const (
	UsageOffscreen RenderPassUsage = iota
	UsagePresent
)

// FramebufferLayout is the hash/equality key the render-pass cache and
// pipeline-per-pass table both use (spec §3): the attachment formats and
// sample count, independent of any particular image view.
type FramebufferLayout struct {
	ColorFormat         format.Format
	HasColor            bool
	DepthStencilFormat  format.Format
	HasDepthStencil     bool
	SampleCount         int
	CaptureColor        bool
	CaptureDepthStencil bool
}

// RenderPassDescriptor is the render-pass cache key (spec §3, §4.F).
type RenderPassDescriptor struct {
	FramebufferLayout FramebufferLayout
	ColorLoadOp       LoadOp
	ColorStoreOp      StoreOp
	DepthLoadOp       LoadOp
	DepthStoreOp      StoreOp
	Usage             RenderPassUsage
}

// FramebufferDescriptor is the framebuffer cache key (spec §3, §4.F):
// the render pass it is compatible with, the pixel dimensions, and the
// specific attachment image views it binds.
type FramebufferDescriptor struct {
	RenderPass      handle.Handle[any]
	Width           uint32
	Height          uint32
	AttachmentViews []handle.Handle[any]
}

// Topology enumerates primitive assembly modes for a VertexLayout.
type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
	TopologyLineList
	TopologyPointList
)

// VertexBufferBinding describes one vertex-buffer binding slot: its
// stride and whether it advances per-vertex or per-instance.
type VertexBufferBinding struct {
	Stride      uint32
	PerInstance bool
}

// VertexLayout is the pure description of how vertex data is assembled
// for a draw (spec §3): primitive topology, buffer bindings, and the
// attribute list (reusing shaderdata.VertexAttribute since both describe
// the same location/format/offset triples).
type VertexLayout struct {
	Topology        Topology
	BufferBindings  []VertexBufferBinding
	Attributes      []shaderdata.VertexAttribute
}

// Filter and MipmapMode mirror the Vulkan sampler enums.
type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

type MipmapMode int

const (
	MipmapModeNearest MipmapMode = iota
	MipmapModeLinear
)

// AddressMode mirrors the Vulkan sampler address-mode enum.
type AddressMode int

const (
	AddressModeRepeat AddressMode = iota
	AddressModeMirroredRepeat
	AddressModeClampToEdge
	AddressModeClampToBorder
)

// CompareOp mirrors the Vulkan comparison-op enum used for shadow
// samplers.
type CompareOp int

const (
	CompareOpNever CompareOp = iota
	CompareOpLess
	CompareOpLessOrEqual
	CompareOpGreater
	CompareOpGreaterOrEqual
)

// SamplerState is a pure, hashable sampler descriptor (spec §3).
type SamplerState struct {
	MagFilter      Filter
	MinFilter      Filter
	MipmapMode     MipmapMode
	AddressModeU   AddressMode
	AddressModeV   AddressMode
	AddressModeW   AddressMode
	MaxAnisotropy  float32
	HasAnisotropy  bool
	CompareOp      CompareOp
	HasCompare     bool
}

// ViewportRegion is a normalized [0,1] sub-rectangle of a framebuffer
// (spec §4.K "Viewport/scissor"): the Renderer derives the actual
// viewport in pixels from the framebuffer extent and this region.
type ViewportRegion struct {
	X, Y          float32
	Width, Height float32
}

// FullViewport is the default region covering the whole framebuffer.
var FullViewport = ViewportRegion{X: 0, Y: 0, Width: 1, Height: 1}

// ClearState holds the optional clear values for a render pass; a nil
// Color, Depth or Stencil means the corresponding aspect's loadOp is Load or
// DontCare rather than Clear (spec §4.F).
type ClearState struct {
	Color           *linear.V4
	Depth           *float32
	Stencil         *uint32
}

// RenderTargetInfo names the textures (or surface) a RenderToTexture or
// RenderToSurface call targets, plus the clear state and viewport region
// for that pass.
type RenderTargetInfo struct {
	ColorTexture        handle.Handle[any]
	HasColor            bool
	DepthStencilTexture handle.Handle[any]
	HasDepthStencil     bool
	Clear               ClearState
	Viewport            ViewportRegion
	Scissor             *ViewportRegion
}

// RenderObject is one indexed or non-indexed draw: a mesh, the pipeline
// to draw it with, and the material/object parameter data bound for
// this specific object (spec, GLOSSARY "Render object").
type RenderObject struct {
	Mesh               handle.Handle[any]
	Pipeline           handle.Handle[any]
	MaterialParamBlock handle.Handle[any]
	ObjectUniformData  []byte
	ObjectTextures     []handle.Handle[any]
}

// RenderList is a value-type description of one render pass (spec,
// GLOSSARY "Render list"): the view-level parameter data shared by every
// object in the pass, plus the ordered list of objects to draw.
type RenderList struct {
	ViewUniformData []byte
	ViewTextures    []handle.Handle[any]
	Objects         []RenderObject
}
