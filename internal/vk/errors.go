// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vk is Teide's concrete Vulkan backend: it satisfies the
// Recorder/Backend seams exposed by texture, pblock, render, and the
// scheduler/renderer packages using github.com/goki/vulkan. Every other
// package in this module is backend-agnostic; this is the one package
// that calls into the Vulkan API directly.
package vk

import (
	"fmt"

	vulkan "github.com/goki/vulkan"
)

// checkResult panics on any non-success Vulkan return code. Vulkan
// result codes surfaced here are programming errors or device loss
// (spec §7); recoverable outcomes (CompileError, SurfaceError) are
// constructed explicitly by the calling package instead of coming
// through this helper.
func checkResult(ret vulkan.Result, what string) {
	if ret != vulkan.Success {
		panic(fmt.Sprintf("teide: vk: %s failed: %d", what, ret))
	}
}
