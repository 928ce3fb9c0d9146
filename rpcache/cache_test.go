// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpcache

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teide-go/teide/render"
)

type countingBuilder struct {
	renderPassBuilds int32
	framebufferBuilds int32
}

func (b *countingBuilder) BuildRenderPass(desc render.RenderPassDescriptor) (any, error) {
	atomic.AddInt32(&b.renderPassBuilds, 1)
	return "renderpass", nil
}

func (b *countingBuilder) BuildFramebuffer(desc render.FramebufferDescriptor) (any, error) {
	atomic.AddInt32(&b.framebufferBuilds, 1)
	return "framebuffer", nil
}

func TestRenderPassCacheHit(t *testing.T) {
	builder := &countingBuilder{}
	cache := NewRenderPassCache(builder)
	desc := render.RenderPassDescriptor{
		FramebufferLayout: render.FramebufferLayout{HasColor: true, SampleCount: 1},
		Usage:             render.UsagePresent,
	}

	first, err := cache.Get(desc)
	require.NoError(t, err)
	second, err := cache.Get(desc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), builder.renderPassBuilds)
	assert.Equal(t, 1, cache.Len())
}

func TestRenderPassCacheDistinctKeysBuildSeparately(t *testing.T) {
	builder := &countingBuilder{}
	cache := NewRenderPassCache(builder)
	a := render.RenderPassDescriptor{FramebufferLayout: render.FramebufferLayout{SampleCount: 1}}
	b := render.RenderPassDescriptor{FramebufferLayout: render.FramebufferLayout{SampleCount: 2}}

	_, err := cache.Get(a)
	require.NoError(t, err)
	_, err = cache.Get(b)
	require.NoError(t, err)

	assert.Equal(t, int32(2), builder.renderPassBuilds)
	assert.Equal(t, 2, cache.Len())
}

func TestFramebufferCacheHit(t *testing.T) {
	builder := &countingBuilder{}
	cache := NewFramebufferCache(builder)
	desc := render.FramebufferDescriptor{Width: 1920, Height: 1080}

	_, err := cache.Get(desc)
	require.NoError(t, err)
	_, err = cache.Get(desc)
	require.NoError(t, err)

	assert.Equal(t, int32(1), builder.framebufferBuilds)
	assert.Equal(t, 1, cache.Len())
}
