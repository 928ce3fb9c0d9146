// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package surface

// WindowHandle is the seam an OS window satisfies for CreateDeviceAndSurface
// (spec §1 "window-system glue... external collaborator", §6): Teide only
// needs a raw platform surface handle and the current framebuffer extent,
// never ownership of the window or its event loop.
//
// instance and the returned surface handle are typed as any so this
// package stays free of a Vulkan import, matching every other
// backend-agnostic type in this file (Semaphore, Image, Fence, ...);
// internal/vk performs the concrete type assertions.
type WindowHandle interface {
	CreateWindowSurface(instance any) (any, error)
	FramebufferSize() (width, height uint32)
	// RequiredInstanceExtensions lists the instance extensions the
	// windowing toolkit needs enabled (e.g. VK_KHR_surface plus a
	// platform surface extension) before a surface can be created.
	RequiredInstanceExtensions() []string
}
