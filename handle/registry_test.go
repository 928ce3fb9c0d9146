// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertGetDistinct(t *testing.T) {
	r := NewRegistry[int]("int")
	h1 := r.Insert(1)
	h2 := r.Insert(2)

	assert.NotEqual(t, h1, h2)
	assert.Equal(t, 1, r.Get(h1))
	assert.Equal(t, 2, r.Get(h2))
}

func TestAddRefRelease(t *testing.T) {
	r := NewRegistry[string]("string")
	h := r.Insert("hello")
	h2 := h.AddRef()

	h.Release()
	// still live: h2 holds a ref
	assert.Equal(t, "hello", r.Get(h2))

	h2.Release()
	assert.Panics(t, func() { r.Get(h2) })
}

func TestGetClearedSlotPanics(t *testing.T) {
	r := NewRegistry[int]("int")
	h := r.Insert(42)
	h.Release()
	assert.Panics(t, func() { r.Get(h) })
}

func TestDecRefUnderflowPanics(t *testing.T) {
	r := NewRegistry[int]("int")
	h := r.Insert(1)
	h.Release()
	require.Panics(t, func() { h.Release() })
}

func TestSlotIndicesNeverReused(t *testing.T) {
	r := NewRegistry[int]("int")
	h1 := r.Insert(1)
	h1.Release()
	h2 := r.Insert(2)
	assert.NotEqual(t, h1.Index(), h2.Index())
	assert.Equal(t, 2, r.Len())
}
