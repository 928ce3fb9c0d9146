// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package format defines Teide's pixel/vertex format enumeration and the
// per-format byte-size table (spec §8 "Format sizes").
package format

// Format identifies a pixel or vertex-attribute element format.
type Format int

const (
	Unknown Format = iota
	Byte4Norm
	Byte4Srgb
	Float
	Float2
	Float3
	Float4
	Depth16
	Depth32
	Depth24Stencil8
)

var elementSize = map[Format]int{
	Unknown:         0,
	Byte4Norm:       4,
	Byte4Srgb:       4,
	Float:           4,
	Float2:          8,
	Float3:          12,
	Float4:          16,
	Depth16:         2,
	Depth32:         4,
	Depth24Stencil8: 4,
}

// ElementSize returns the backend block size in bytes for f. It panics for
// Unknown, since no well-formed resource should carry that format.
func ElementSize(f Format) int {
	sz, ok := elementSize[f]
	if !ok || f == Unknown {
		panic("teide: format.ElementSize: unknown format")
	}
	return sz
}

// IsDepth reports whether f is a depth or depth/stencil format.
func IsDepth(f Format) bool {
	switch f {
	case Depth16, Depth32, Depth24Stencil8:
		return true
	default:
		return false
	}
}

// IsSRGB reports whether f is treated as sRGB-encoded color data.
func IsSRGB(f Format) bool {
	return f == Byte4Srgb
}
