// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linear

import "math"

// M4 is a 4x4 float32 matrix stored as four column vectors, matching the
// column-major layout std430 uniform blocks and the GPU expect.
type M4 [4]V4

// Identity sets m to the identity matrix.
func (m *M4) Identity() {
	*m = M4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Mul sets m to l * r.
func (m *M4) Mul(l, r M4) {
	var out M4
	for c := 0; c < 4; c++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += l[k][row] * r[c][k]
			}
			out[c][row] = sum
		}
	}
	*m = out
}

// Transpose sets m to the transpose of n.
func (m *M4) Transpose(n M4) {
	var out M4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[c][r] = n[r][c]
		}
	}
	*m = out
}

// Translation sets m to a translation matrix by v.
func (m *M4) Translation(v V3) {
	m.Identity()
	m[3][0], m[3][1], m[3][2] = v[0], v[1], v[2]
}

// LookAt sets m to a right-handed view matrix placing the camera at eye,
// looking toward center, with the given up vector.
func (m *M4) LookAt(eye, center, up V3) {
	var f, s, u V3
	f.Sub(center, eye)
	f.Normalize(f)
	s.Cross(f, up)
	s.Normalize(s)
	u.Cross(s, f)

	*m = M4{
		{s[0], u[0], -f[0], 0},
		{s[1], u[1], -f[1], 0},
		{s[2], u[2], -f[2], 0},
		{-s.Dot(eye), -u.Dot(eye), f.Dot(eye), 1},
	}
}

// Perspective sets m to a projection matrix for the given vertical field
// of view (radians), aspect ratio, and near/far clip planes, producing
// clip-space Z in [0,1] as Vulkan expects.
func (m *M4) Perspective(fovY, aspect, near, far float32) {
	f := float32(1 / math.Tan(float64(fovY)/2))
	*m = M4{}
	m[0][0] = f / aspect
	m[1][1] = -f // flip Y for Vulkan's top-left clip-space origin
	m[2][2] = far / (near - far)
	m[2][3] = -1
	m[3][2] = (near * far) / (near - far)
}

// AppendStd430 appends m's 16 float32 components, in column-major order,
// to dst using std430 packing (a mat4 is 4 aligned vec4 columns).
func (m M4) AppendStd430(dst []byte) []byte {
	for _, col := range m {
		dst = appendV4(dst, col)
	}
	return dst
}

func appendV4(dst []byte, v V4) []byte {
	for _, f := range v {
		bits := math.Float32bits(f)
		dst = append(dst, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
	}
	return dst
}
