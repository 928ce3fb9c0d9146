// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFullViewportCoversWholeFramebuffer(t *testing.T) {
	assert.Equal(t, float32(0), FullViewport.X)
	assert.Equal(t, float32(0), FullViewport.Y)
	assert.Equal(t, float32(1), FullViewport.Width)
	assert.Equal(t, float32(1), FullViewport.Height)
}

func TestFramebufferLayoutEquality(t *testing.T) {
	a := FramebufferLayout{HasColor: true, SampleCount: 1}
	b := FramebufferLayout{HasColor: true, SampleCount: 1}
	c := FramebufferLayout{HasColor: true, SampleCount: 2}
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestRenderPassDescriptorUsableAsMapKey(t *testing.T) {
	cache := map[RenderPassDescriptor]int{}
	desc := RenderPassDescriptor{
		FramebufferLayout: FramebufferLayout{HasColor: true, SampleCount: 1},
		ColorLoadOp:       LoadOpClear,
		ColorStoreOp:      StoreOpStore,
		Usage:             UsagePresent,
	}
	cache[desc] = 1
	same := desc
	assert.Equal(t, 1, cache[same])
}

func TestRenderListDefaultsToEmptyObjects(t *testing.T) {
	var list RenderList
	assert.Empty(t, list.Objects)
}
