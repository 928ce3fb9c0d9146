// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vk

import (
	"fmt"

	vulkan "github.com/goki/vulkan"
)

// CreateSemaphore creates a binary vulkan.Semaphore, used for the
// image-available ring package surface drives (spec §4.J).
func (d *Device) CreateSemaphore() (vulkan.Semaphore, error) {
	var sem vulkan.Semaphore
	ret := vulkan.CreateSemaphore(d.Logical, &vulkan.SemaphoreCreateInfo{
		SType: vulkan.StructureTypeSemaphoreCreateInfo,
	}, nil, &sem)
	if ret != vulkan.Success {
		return nil, fmt.Errorf("teide: vk: CreateSemaphore failed: %d", ret)
	}
	return sem, nil
}

// CreateFence creates a fence, signaled initially if signaled is true
// (used for the first frame of each in-flight slot, which has no prior
// submission to wait on).
func (d *Device) CreateFence(signaled bool) (vulkan.Fence, error) {
	var flags vulkan.FenceCreateFlags
	if signaled {
		flags = vulkan.FenceCreateFlags(vulkan.FenceCreateSignaledBit)
	}
	var fence vulkan.Fence
	ret := vulkan.CreateFence(d.Logical, &vulkan.FenceCreateInfo{
		SType: vulkan.StructureTypeFenceCreateInfo,
		Flags: flags,
	}, nil, &fence)
	if ret != vulkan.Success {
		return nil, fmt.Errorf("teide: vk: CreateFence failed: %d", ret)
	}
	return fence, nil
}

// DestroySemaphore releases a semaphore created by CreateSemaphore.
func (d *Device) DestroySemaphore(s vulkan.Semaphore) {
	if s != nil {
		vulkan.DestroySemaphore(d.Logical, s, nil)
	}
}

// DestroyFence releases a fence created by CreateFence.
func (d *Device) DestroyFence(f vulkan.Fence) {
	if f != nil {
		vulkan.DestroyFence(d.Logical, f, nil)
	}
}
