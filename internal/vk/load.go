// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vk

import (
	"fmt"
	"sync"

	vulkan "github.com/goki/vulkan"
)

var loadOnce sync.Once
var loadErr error

// EnsureLoaded loads the platform Vulkan loader exactly once per
// process, grounded on the teacher's vkinit.LoadVulkan (dlopen +
// vkGetInstanceProcAddr resolution). NewDevice calls this before
// creating an instance; callers never need to invoke it directly.
func EnsureLoaded() error {
	loadOnce.Do(func() {
		loadErr = vulkan.Init()
		if loadErr != nil {
			loadErr = fmt.Errorf("teide: vk: loading Vulkan: %w", loadErr)
		}
	})
	return loadErr
}
