// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package linear implements the small amount of vector/matrix math Teide
// needs to build Scene and View uniform blocks (model/view/projection
// matrices, light directions, colors).
package linear

import "math"

// V3 is a 3-component float32 vector.
type V3 [3]float32

// Add sets v to l + r.
func (v *V3) Add(l, r V3) {
	for i := range v {
		v[i] = l[i] + r[i]
	}
}

// Sub sets v to l - r.
func (v *V3) Sub(l, r V3) {
	for i := range v {
		v[i] = l[i] - r[i]
	}
}

// Scale sets v to s*w.
func (v *V3) Scale(s float32, w V3) {
	for i := range v {
		v[i] = s * w[i]
	}
}

// Dot returns v . w.
func (v V3) Dot(w V3) float32 {
	var d float32
	for i := range v {
		d += v[i] * w[i]
	}
	return d
}

// Len returns the Euclidean length of v.
func (v V3) Len() float32 {
	return float32(math.Sqrt(float64(v.Dot(v))))
}

// Normalize sets v to w scaled to unit length; the zero vector is left
// unchanged.
func (v *V3) Normalize(w V3) {
	l := w.Len()
	if l == 0 {
		*v = w
		return
	}
	v.Scale(1/l, w)
}

// Cross sets v to l x r.
func (v *V3) Cross(l, r V3) {
	*v = V3{
		l[1]*r[2] - l[2]*r[1],
		l[2]*r[0] - l[0]*r[2],
		l[0]*r[1] - l[1]*r[0],
	}
}

// V4 is a 4-component float32 vector, commonly used for homogeneous
// coordinates and RGBA colors.
type V4 [4]float32

// Add sets v to l + r.
func (v *V4) Add(l, r V4) {
	for i := range v {
		v[i] = l[i] + r[i]
	}
}

// Std430Size returns the std430 alignment size in bytes for n scalar
// components (1..4), matching spec.md's uniform layout rule (scalars 4,
// vec2 8, vec3/vec4 16).
func Std430Size(components int) int {
	switch components {
	case 1:
		return 4
	case 2:
		return 8
	case 3, 4:
		return 16
	default:
		return 16 * ((components + 3) / 4)
	}
}
