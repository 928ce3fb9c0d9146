// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package surface

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vulkan "github.com/goki/vulkan"
)

// GlfwWindow adapts a *glfw.Window to WindowHandle, grounded on the
// teacher's desktop window driver (glfw.WindowHint/CreateWindow/
// GetFramebufferSize) and wired for Vulkan instead of an OpenGL
// context.
type GlfwWindow struct {
	win *glfw.Window
}

// NewGlfwWindow initializes GLFW, disables its OpenGL context creation
// (Teide renders through Vulkan), and opens a resizable window.
func NewGlfwWindow(width, height int, title string) (*GlfwWindow, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("teide: surface: initializing glfw: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("teide: surface: creating glfw window: %w", err)
	}
	return &GlfwWindow{win: win}, nil
}

// Window exposes the underlying *glfw.Window for callers that need to
// register input callbacks or drive the event loop.
func (g *GlfwWindow) Window() *glfw.Window { return g.win }

// ShouldClose reports whether the user has requested the window close.
func (g *GlfwWindow) ShouldClose() bool { return g.win.ShouldClose() }

// CreateWindowSurface implements WindowHandle by asking GLFW to create
// a VkSurfaceKHR bound to instance.
func (g *GlfwWindow) CreateWindowSurface(instance any) (any, error) {
	vkInstance, ok := instance.(vulkan.Instance)
	if !ok {
		return nil, fmt.Errorf("teide: surface: CreateWindowSurface: instance has unexpected type %T", instance)
	}
	var surfacePtr uintptr
	result := glfw.CreateWindowSurface(unsafe.Pointer(vkInstance), g.win, nil, unsafe.Pointer(&surfacePtr))
	if vulkan.Result(result) != vulkan.Success {
		return nil, fmt.Errorf("teide: surface: glfwCreateWindowSurface failed: %d", result)
	}
	return vulkan.SurfaceFromPointer(surfacePtr), nil
}

// FramebufferSize implements WindowHandle.
func (g *GlfwWindow) FramebufferSize() (width, height uint32) {
	w, h := g.win.GetFramebufferSize()
	return uint32(w), uint32(h)
}

// RequiredInstanceExtensions implements WindowHandle: GLFW reports the
// platform surface extension (e.g. VK_KHR_xcb_surface) that must be
// enabled on the instance before CreateWindowSurface can succeed.
func (g *GlfwWindow) RequiredInstanceExtensions() []string {
	return glfw.GetRequiredInstanceExtensions()
}

// Destroy closes the window and terminates GLFW.
func (g *GlfwWindow) Destroy() {
	g.win.Destroy()
	glfw.Terminate()
}

var _ WindowHandle = (*GlfwWindow)(nil)
