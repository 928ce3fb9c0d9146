// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rpcache implements Teide's render-pass and framebuffer caches
// (spec §4.F): two content-addressed caches, each protected by its own
// mutex, keyed by the pure descriptors in package render. A cache miss
// constructs the GPU object via the injected Builder and inserts it; a
// cache hit returns the existing handle.
package rpcache

import (
	"sync"

	"github.com/teide-go/teide/render"
)

// Builder is the seam the Vulkan backend satisfies: construct the actual
// GPU render pass or framebuffer object for a descriptor.
type Builder interface {
	BuildRenderPass(desc render.RenderPassDescriptor) (any, error)
	BuildFramebuffer(desc render.FramebufferDescriptor) (any, error)
}

// RenderPassCache is a content-addressed cache from RenderPassDescriptor
// to the opaque GPU render-pass object the Builder constructs.
type RenderPassCache struct {
	builder Builder

	mu    sync.RWMutex
	byKey map[render.RenderPassDescriptor]any
}

// NewRenderPassCache returns an empty cache backed by builder.
func NewRenderPassCache(builder Builder) *RenderPassCache {
	return &RenderPassCache{builder: builder, byKey: make(map[render.RenderPassDescriptor]any)}
}

// Get returns the render pass for desc, building and inserting it on a
// cache miss (spec §4.F). Cached objects live for the cache's lifetime.
func (c *RenderPassCache) Get(desc render.RenderPassDescriptor) (any, error) {
	c.mu.RLock()
	if rp, ok := c.byKey[desc]; ok {
		c.mu.RUnlock()
		return rp, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if rp, ok := c.byKey[desc]; ok {
		return rp, nil
	}
	rp, err := c.builder.BuildRenderPass(desc)
	if err != nil {
		return nil, err
	}
	c.byKey[desc] = rp
	return rp, nil
}

// Len reports the number of distinct render passes currently cached;
// mainly useful for tests asserting cache-hit behavior.
func (c *RenderPassCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byKey)
}

// framebufferKey adapts a FramebufferDescriptor (which holds a slice and
// therefore isn't itself comparable) into a comparable map key by
// stringifying its attachment view indices.
type framebufferKey struct {
	renderPass uint64
	width      uint32
	height     uint32
	views      string
}

func keyFor(desc render.FramebufferDescriptor) framebufferKey {
	var b []byte
	for _, v := range desc.AttachmentViews {
		idx := v.Index()
		for i := 0; i < 8; i++ {
			b = append(b, byte(idx>>(8*i)))
		}
	}
	return framebufferKey{
		renderPass: desc.RenderPass.Index(),
		width:      desc.Width,
		height:     desc.Height,
		views:      string(b),
	}
}

// FramebufferCache is a content-addressed cache from FramebufferDescriptor
// to the opaque GPU framebuffer object the Builder constructs.
type FramebufferCache struct {
	builder Builder

	mu    sync.RWMutex
	byKey map[framebufferKey]any
}

// NewFramebufferCache returns an empty cache backed by builder.
func NewFramebufferCache(builder Builder) *FramebufferCache {
	return &FramebufferCache{builder: builder, byKey: make(map[framebufferKey]any)}
}

// Get returns the framebuffer for desc, building and inserting it on a
// cache miss.
func (c *FramebufferCache) Get(desc render.FramebufferDescriptor) (any, error) {
	key := keyFor(desc)

	c.mu.RLock()
	if fb, ok := c.byKey[key]; ok {
		c.mu.RUnlock()
		return fb, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if fb, ok := c.byKey[key]; ok {
		return fb, nil
	}
	fb, err := c.builder.BuildFramebuffer(desc)
	if err != nil {
		return nil, err
	}
	c.byKey[key] = fb
	return fb, nil
}

// Len reports the number of distinct framebuffers currently cached.
func (c *FramebufferCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byKey)
}
