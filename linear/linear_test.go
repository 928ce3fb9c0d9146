// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linear

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestV3Normalize(t *testing.T) {
	var v V3
	v.Normalize(V3{3, 0, 4})
	assert.InDelta(t, 1.0, v.Len(), 1e-6)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[2], 1e-6)
}

func TestV3NormalizeZero(t *testing.T) {
	var v V3
	v.Normalize(V3{0, 0, 0})
	assert.Equal(t, V3{0, 0, 0}, v)
}

func TestM4IdentityMul(t *testing.T) {
	var id, a, out M4
	id.Identity()
	a.Translation(V3{1, 2, 3})
	out.Mul(id, a)
	assert.Equal(t, a, out)
}

func TestM4AppendStd430(t *testing.T) {
	var m M4
	m.Identity()
	buf := m.AppendStd430(nil)
	assert.Len(t, buf, 64)
}

func TestStd430Size(t *testing.T) {
	assert.Equal(t, 4, Std430Size(1))
	assert.Equal(t, 8, Std430Size(2))
	assert.Equal(t, 16, Std430Size(3))
	assert.Equal(t, 16, Std430Size(4))
}
