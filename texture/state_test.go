// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package texture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedBarrier struct {
	mip     int
	barrier Barrier
}

type recordedBlit struct {
	srcMip, dstMip         int
	srcExtent, dstExtent [2]uint32
}

type fakeRecorder struct {
	barriers []recordedBarrier
	blits    []recordedBlit
}

func (f *fakeRecorder) RecordBarrier(mipLevel int, barrier Barrier) {
	f.barriers = append(f.barriers, recordedBarrier{mipLevel, barrier})
}

func (f *fakeRecorder) RecordBlit(srcMip, dstMip int, srcExtent, dstExtent [2]uint32) {
	f.blits = append(f.blits, recordedBlit{srcMip, dstMip, srcExtent, dstExtent})
}

func TestTransitionNoOpWhenLayoutMatches(t *testing.T) {
	state := State{Layout: ShaderReadOnly, LastPipelineStage: StageFragmentShader}
	rec := &fakeRecorder{}
	Transition(&state, rec, 0, ShaderReadOnly)
	assert.Empty(t, rec.barriers)
}

func TestTransitionRecordsBarrier(t *testing.T) {
	state := State{Layout: Undefined, LastPipelineStage: StageTopOfPipe}
	rec := &fakeRecorder{}
	Transition(&state, rec, 0, TransferDst)
	require.Len(t, rec.barriers, 1)
	assert.Equal(t, TransferDst, state.Layout)
	assert.Equal(t, StageTransfer, state.LastPipelineStage)
	assert.Equal(t, Undefined, rec.barriers[0].barrier.OldLayout)
	assert.Equal(t, TransferDst, rec.barriers[0].barrier.NewLayout)
}

func TestGenerateMipmapsSingleMipTransitionsDirectly(t *testing.T) {
	states := []State{{Layout: TransferDst, LastPipelineStage: StageTransfer}}
	rec := &fakeRecorder{}
	GenerateMipmaps(states, rec, [2]uint32{4, 4})
	assert.Equal(t, ShaderReadOnly, states[0].Layout)
	assert.Empty(t, rec.blits)
}

func TestGenerateMipmapsEndsEveryMipInShaderReadOnly(t *testing.T) {
	states := make([]State, 3)
	for i := range states {
		states[i] = State{Layout: TransferDst, LastPipelineStage: StageTransfer}
	}
	rec := &fakeRecorder{}
	GenerateMipmaps(states, rec, [2]uint32{4, 4})

	for i, s := range states {
		assert.Equalf(t, ShaderReadOnly, s.Layout, "mip %d", i)
	}
	require.Len(t, rec.blits, 2)
	assert.Equal(t, [2]uint32{4, 4}, rec.blits[0].srcExtent)
	assert.Equal(t, [2]uint32{2, 2}, rec.blits[0].dstExtent)
	assert.Equal(t, [2]uint32{2, 2}, rec.blits[1].srcExtent)
	assert.Equal(t, [2]uint32{1, 1}, rec.blits[1].dstExtent)
}

func TestGenerateMipmapsHalvingClampsToMinOne(t *testing.T) {
	states := make([]State, 2)
	for i := range states {
		states[i] = State{Layout: TransferDst, LastPipelineStage: StageTransfer}
	}
	rec := &fakeRecorder{}
	GenerateMipmaps(states, rec, [2]uint32{1, 1})
	require.Len(t, rec.blits, 1)
	assert.Equal(t, [2]uint32{1, 1}, rec.blits[0].dstExtent)
}
