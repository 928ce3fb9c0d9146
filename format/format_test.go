// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElementSizeAllKnownFormats(t *testing.T) {
	for f := range elementSize {
		if f == Unknown {
			continue
		}
		assert.Greater(t, ElementSize(f), 0)
	}
}

func TestElementSizeUnknownPanics(t *testing.T) {
	assert.Panics(t, func() { ElementSize(Unknown) })
}

func TestIsDepth(t *testing.T) {
	assert.True(t, IsDepth(Depth16))
	assert.True(t, IsDepth(Depth24Stencil8))
	assert.False(t, IsDepth(Byte4Srgb))
}
