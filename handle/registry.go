// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package handle implements Teide's reference-counted, index-based
// resource ownership (spec §3, §4.A): a Registry[T] holds slots of T
// behind a single mutex, and Handle[T] is an opaque, comparable,
// ref-counted reference into one slot.
package handle

import (
	"fmt"
	"log/slog"
	"sync"
)

// Handle is an opaque, ref-counted reference to a slot in a Registry[T].
// The zero Handle is invalid and must not be used. Handles are comparable:
// two handles compare equal iff they reference the same slot in the same
// registry.
type Handle[T any] struct {
	index uint64
	reg   *Registry[T]
}

// Index returns the handle's opaque slot index. It exists for callers
// (e.g. the GPU executor's per-frame resource buckets) that need a
// stable, hashable key; it is not meaningful across registries.
func (h Handle[T]) Index() uint64 { return h.index }

// Valid reports whether h references a registry (the zero Handle does not).
func (h Handle[T]) Valid() bool { return h.reg != nil }

// AddRef returns a new handle to the same slot, incrementing the slot's
// refcount. It is the Go equivalent of the teacher's copy-constructor
// refcount bump.
func (h Handle[T]) AddRef() Handle[T] {
	h.reg.addRef(h.index)
	return h
}

// Release decrements the slot's refcount, clearing and releasing the
// slot's resource when the count reaches zero. Callers that copy a Handle
// by value (Go has no destructors) must call Release exactly once per
// AddRef/Insert.
func (h Handle[T]) Release() {
	if h.reg != nil {
		h.reg.decRef(h.index)
	}
}

type slot[T any] struct {
	refCount uint32
	resource T
	live     bool
}

// Registry is indexed, ref-counted storage for one resource type. All
// operations are serialized by a single mutex (spec §4.A); slot indices
// are assigned monotonically and are never reused (§9 Open Question,
// resolved in SPEC_FULL.md §12), so a stale Handle's index is always
// either still live or permanently cleared — never silently reassigned
// to a different resource.
type Registry[T any] struct {
	resourceType string
	mu           sync.Mutex
	slots        []slot[T]
}

// NewRegistry returns an empty registry. resourceType is used only for
// diagnostic logging (e.g. "texture", "buffer").
func NewRegistry[T any](resourceType string) *Registry[T] {
	return &Registry[T]{resourceType: resourceType}
}

// Insert takes ownership of resource, stores it in a new slot with
// refcount 1, and returns a Handle referencing it.
func (r *Registry[T]) Insert(resource T) Handle[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	index := uint64(len(r.slots))
	r.slots = append(r.slots, slot[T]{refCount: 1, resource: resource, live: true})
	slog.Debug("registry insert", "type", r.resourceType, "index", index)
	return Handle[T]{index: index, reg: r}
}

// Get returns the resource referenced by h. It panics if h's slot has
// already been cleared (a programming error per spec §4.A).
func (r *Registry[T]) Get(h Handle[T]) T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(h.index)
}

func (r *Registry[T]) getLocked(index uint64) T {
	if index >= uint64(len(r.slots)) || !r.slots[index].live {
		panic(fmt.Sprintf("teide: handle.Registry[%s].Get: slot %d is not live", r.resourceType, index))
	}
	return r.slots[index].resource
}

func (r *Registry[T]) addRef(index uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &r.slots[index]
	if !s.live {
		panic(fmt.Sprintf("teide: handle.Registry[%s].addRef: slot %d is not live", r.resourceType, index))
	}
	s.refCount++
	slog.Debug("registry addref", "type", r.resourceType, "index", index, "refcount", s.refCount)
}

func (r *Registry[T]) decRef(index uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &r.slots[index]
	if !s.live {
		panic(fmt.Sprintf("teide: handle.Registry[%s].decRef: slot %d is not live", r.resourceType, index))
	}
	if s.refCount == 0 {
		panic(fmt.Sprintf("teide: handle.Registry[%s].decRef: refcount underflow on slot %d", r.resourceType, index))
	}
	s.refCount--
	slog.Debug("registry decref", "type", r.resourceType, "index", index, "refcount", s.refCount)
	if s.refCount == 0 {
		var zero T
		s.resource = zero
		s.live = false
		slog.Debug("registry destroy", "type", r.resourceType, "index", index)
	}
}

// Len returns the number of slots ever allocated (live or cleared); it is
// mainly useful for tests asserting distinct handles.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}
