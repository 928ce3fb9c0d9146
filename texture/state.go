// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package texture implements Teide's texture layout state machine and
// mipmap-generation algorithm (spec §4.E). The transition table and the
// mip loop are pure, backend-agnostic logic; the actual barrier/blit
// commands are recorded through the injected Recorder interface, which
// internal/vk implements atop real Vulkan command buffers.
package texture

// Layout enumerates the image layouts a texture may occupy. Only the
// transitions listed in the permitted-states table (spec §4.E) are ever
// requested by this package's algorithms.
type Layout int

const (
	Undefined Layout = iota
	TransferDst
	TransferSrc
	ColorAttachment
	DepthStencilAttachment
	ShaderReadOnly
	DepthStencilReadOnly
	PresentSrc
)

// Access is a bitmask of memory-access types a layout permits.
type Access uint32

const (
	AccessNone Access = 0
	AccessTransferWrite Access = 1 << iota
	AccessTransferRead
	AccessColorAttachmentRead
	AccessColorAttachmentWrite
	AccessDepthStencilAttachmentRead
	AccessDepthStencilAttachmentWrite
	AccessShaderRead
)

// PipelineStage is a bitmask of pipeline stages a layout is used at.
type PipelineStage uint32

const (
	StageTopOfPipe PipelineStage = 1 << iota
	StageTransfer
	StageColorAttachmentOutput
	StageEarlyFragmentTests
	StageLateFragmentTests
	StageFragmentShader
)

// stateInfo is one row of the permitted-states table (spec §4.E).
type stateInfo struct {
	access Access
	stage  PipelineStage
}

var permittedStates = map[Layout]stateInfo{
	Undefined:              {AccessNone, StageTopOfPipe},
	TransferDst:             {AccessTransferWrite, StageTransfer},
	TransferSrc:             {AccessTransferRead, StageTransfer},
	ColorAttachment:         {AccessColorAttachmentRead | AccessColorAttachmentWrite, StageColorAttachmentOutput},
	DepthStencilAttachment:  {AccessDepthStencilAttachmentRead | AccessDepthStencilAttachmentWrite, StageEarlyFragmentTests | StageLateFragmentTests},
	ShaderReadOnly:          {AccessShaderRead, StageFragmentShader},
	DepthStencilReadOnly:    {AccessShaderRead, StageFragmentShader},
	PresentSrc:              {AccessNone, StageColorAttachmentOutput},
}

// State is a texture's current position in the layout state machine.
type State struct {
	Layout            Layout
	LastPipelineStage PipelineStage
}

// Barrier describes one layout transition to be recorded by a Recorder:
// the old and new state plus the access/stage masks each side uses.
type Barrier struct {
	OldLayout Layout
	NewLayout Layout
	SrcAccess Access
	DstAccess Access
	SrcStage  PipelineStage
	DstStage  PipelineStage
}

// Recorder is the seam the Vulkan backend satisfies: record one image
// memory barrier, and one blit between two mip levels of the same image.
type Recorder interface {
	RecordBarrier(mipLevel int, barrier Barrier)
	RecordBlit(srcMip, dstMip int, srcExtent, dstExtent [2]uint32)
}

// Transition advances state to target, recording a barrier via rec
// unless the layout (and therefore access/stage masks) already match —
// transitions are no-ops when target equals the current layout (spec
// §4.E "Transitions are no-ops if both target layout and stage match").
func Transition(state *State, rec Recorder, mipLevel int, target Layout) {
	if state.Layout == target {
		return
	}
	oldInfo, ok := permittedStates[state.Layout]
	if !ok {
		panic("teide: texture.Transition: current layout has no permitted-state entry")
	}
	newInfo, ok := permittedStates[target]
	if !ok {
		panic("teide: texture.Transition: target layout has no permitted-state entry")
	}
	rec.RecordBarrier(mipLevel, Barrier{
		OldLayout: state.Layout,
		NewLayout: target,
		SrcAccess: oldInfo.access,
		DstAccess: newInfo.access,
		SrcStage:  state.LastPipelineStage,
		DstStage:  newInfo.stage,
	})
	state.Layout = target
	state.LastPipelineStage = newInfo.stage
}

// halveExtent halves a 2D extent, clamping each dimension to a minimum
// of 1 (spec §4.E "halving extents (min 1)").
func halveExtent(extent [2]uint32) [2]uint32 {
	half := func(v uint32) uint32 {
		if v <= 1 {
			return 1
		}
		return v / 2
	}
	return [2]uint32{half(extent[0]), half(extent[1])}
}

// GenerateMipmaps implements spec §4.E's mipmap-generation loop: a
// texture uploaded at mip 0 in TransferDst is iteratively blitted down
// to mipLevelCount-1 levels, finishing with every mip in ShaderReadOnly.
// mipStates holds one State per mip level (index 0..mipLevelCount-1); all
// work is recorded into a single command buffer via rec, matching the
// spec's "all work occurs within one command buffer".
func GenerateMipmaps(mipStates []State, rec Recorder, baseExtent [2]uint32) {
	if len(mipStates) == 0 {
		return
	}
	if len(mipStates) == 1 {
		Transition(&mipStates[0], rec, 0, ShaderReadOnly)
		return
	}

	extent := baseExtent
	for i := 1; i < len(mipStates); i++ {
		prev := i - 1
		nextExtent := halveExtent(extent)

		Transition(&mipStates[prev], rec, prev, TransferSrc)
		rec.RecordBlit(prev, i, extent, nextExtent)
		Transition(&mipStates[prev], rec, prev, ShaderReadOnly)

		extent = nextExtent
	}
	last := len(mipStates) - 1
	Transition(&mipStates[last], rec, last, ShaderReadOnly)
}
