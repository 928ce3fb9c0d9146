// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package teideerr defines Teide's recoverable error taxonomy (spec §7).
// Programming errors (ref-count underflow, invalid handle, ThreadMap
// overflow) are not modeled here: they panic at the point of detection,
// matching the teacher's own fatal-assert style in vgpu.
package teideerr

import "fmt"

// CompileError reports a shader compilation or link failure.
type CompileError struct {
	Log string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("shader compile error: %s", e.Log)
}

// DeviceCreationError reports failure to create a graphics device: no
// suitable GPU, missing required extensions, or no matching queue family.
// Fatal at startup.
type DeviceCreationError struct {
	Reason string
}

func (e *DeviceCreationError) Error() string {
	return fmt.Sprintf("device creation error: %s", e.Reason)
}

// SurfaceError reports failure to create an OS-side surface or swapchain.
type SurfaceError struct {
	Reason string
}

func (e *SurfaceError) Error() string {
	return fmt.Sprintf("surface error: %s", e.Reason)
}

// DeviceLost is unrecoverable: callers that observe it should log at
// critical severity and abort the process.
type DeviceLost struct {
	Reason string
}

func (e *DeviceLost) Error() string {
	return fmt.Sprintf("device lost: %s", e.Reason)
}

// OutOfDateSwapchain signals that a surface needs to rebuild its
// swapchain (e.g. after a resize). Surface.AcquireNextImage recovers an
// out-of-date swapchain itself via Surface.Recreate and reports it with
// surface.ErrSwapchainOutOfDate, not with this type.
type OutOfDateSwapchain struct {
	Surface string
}

func (e *OutOfDateSwapchain) Error() string {
	return fmt.Sprintf("swapchain out of date: %s", e.Surface)
}
