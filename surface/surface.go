// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package surface implements Teide's surface/swapchain acquire-present
// cycle (spec §4.J): a semaphore ring for image-available signals, a
// parallel per-image array of prior-use fences, and the exact
// AcquireNextImage algorithm the spec describes. The actual Vulkan
// swapchain construction and image acquisition live behind the Backend
// seam so this package stays backend-agnostic and unit-testable.
package surface

import (
	"errors"
	"fmt"
	"log/slog"
)

// MaxFramesInFlight bounds the image-available semaphore ring (spec
// §4.J), matching scheduler.MaxFramesInFlight.
const MaxFramesInFlight = 2

// ErrSwapchainOutOfDate is returned by AcquireNextImage when the
// swapchain was out of date and has already been recreated; the caller
// should skip this frame and try again next tick.
var ErrSwapchainOutOfDate = errors.New("teide: surface: swapchain out of date, recreated")

// Opaque backend object types; concrete types live in internal/vk.
type (
	Semaphore     any
	Image         any
	Framebuffer   any
	CommandBuffer any
	Fence         any
)

// Backend is the seam a Vulkan swapchain implementation satisfies.
type Backend interface {
	// ImageCount reports the current number of swapchain images.
	ImageCount() int
	// Extent reports the current swapchain image size in pixels.
	Extent() (width, height uint32)
	// AcquireNextImage calls the platform's acquire-next-image operation,
	// signaling semaphore on completion.
	AcquireNextImage(semaphore Semaphore) (imageIndex int, suboptimal bool, outOfDate bool, err error)
	ImageAt(index int) Image
	FramebufferAt(index int) Framebuffer
	// PrePresentCommandBufferAt returns the command buffer that
	// transitions image index into a presentable layout.
	PrePresentCommandBufferAt(index int) CommandBuffer
	// WaitFence blocks until fence signals. A nil fence returns immediately.
	WaitFence(fence Fence) error
	// Recreate idles the device, frees swapchain-scoped allocations, and
	// rebuilds swapchain-dependent objects (spec §4.J "OnResize").
	Recreate() error
	// Present queues imageIndex for presentation, waiting on
	// waitSemaphore before the GPU is allowed to present (spec §4.K
	// EndFrame step 6). An out-of-date swapchain reported here is
	// recovered the same way AcquireNextImage recovers: via Recreate.
	Present(imageIndex int, waitSemaphore Semaphore) error
}

// AcquireBundle is everything AcquireNextImage hands back on success
// (spec §4.J: "a bundle of (surface, swapchain, imageIndex,
// imageAvailableSemaphore, image, framebuffer, prePresentCommandBuffer)").
// The surface and swapchain themselves are the Surface/Backend the
// caller already holds, so the bundle carries only the per-acquire parts.
type AcquireBundle struct {
	ImageIndex              int
	ImageAvailableSemaphore Semaphore
	Image                   Image
	Framebuffer             Framebuffer
	PrePresentCommandBuffer CommandBuffer
	Width, Height           uint32
}

// Surface drives one window-backed swapchain's acquire/present cycle.
type Surface struct {
	backend Backend

	semaphores    []Semaphore
	nextSemaphore int

	priorUseFence []Fence
}

// New returns a Surface over backend. semaphores must have length
// MaxFramesInFlight; the backend constructs them since they are
// Vulkan-specific objects.
func New(backend Backend, semaphores []Semaphore) (*Surface, error) {
	if len(semaphores) != MaxFramesInFlight {
		return nil, fmt.Errorf("teide: surface: New: expected %d image-available semaphores, got %d", MaxFramesInFlight, len(semaphores))
	}
	return &Surface{
		backend:       backend,
		semaphores:    semaphores,
		priorUseFence: make([]Fence, backend.ImageCount()),
	}, nil
}

// AcquireNextImage implements spec §4.J's AcquireNextImage algorithm
// exactly: wait frameFence, take the next image-available semaphore,
// acquire, handle OutOfDate/Suboptimal, wait the acquired image's own
// prior-use fence if set, record frameFence as that image's new
// prior-use fence, and return the bundle.
func (s *Surface) AcquireNextImage(frameFence Fence) (*AcquireBundle, error) {
	if frameFence != nil {
		if err := s.backend.WaitFence(frameFence); err != nil {
			return nil, fmt.Errorf("teide: surface: waiting on frame fence: %w", err)
		}
	}

	semaphore := s.semaphores[s.nextSemaphore]
	s.nextSemaphore = (s.nextSemaphore + 1) % len(s.semaphores)

	imageIndex, suboptimal, outOfDate, err := s.backend.AcquireNextImage(semaphore)
	if err != nil {
		return nil, fmt.Errorf("teide: surface: AcquireNextImage: %w", err)
	}
	if outOfDate {
		if err := s.Recreate(); err != nil {
			return nil, fmt.Errorf("teide: surface: recreating out-of-date swapchain: %w", err)
		}
		return nil, ErrSwapchainOutOfDate
	}
	if suboptimal {
		slog.Warn("teide: surface: swapchain suboptimal, proceeding this frame")
	}

	if prior := s.priorUseFence[imageIndex]; prior != nil {
		if err := s.backend.WaitFence(prior); err != nil {
			return nil, fmt.Errorf("teide: surface: waiting on image's prior-use fence: %w", err)
		}
	}
	s.priorUseFence[imageIndex] = frameFence

	width, height := s.backend.Extent()
	return &AcquireBundle{
		ImageIndex:              imageIndex,
		ImageAvailableSemaphore: semaphore,
		Image:                   s.backend.ImageAt(imageIndex),
		Framebuffer:             s.backend.FramebufferAt(imageIndex),
		PrePresentCommandBuffer: s.backend.PrePresentCommandBufferAt(imageIndex),
		Width:                   width,
		Height:                  height,
	}, nil
}

// Recreate rebuilds the swapchain (spec §4.J "OnResize") and resets this
// Surface's per-image fence tracking to match the new image count.
func (s *Surface) Recreate() error {
	if err := s.backend.Recreate(); err != nil {
		return fmt.Errorf("teide: surface: Recreate: %w", err)
	}
	s.priorUseFence = make([]Fence, s.backend.ImageCount())
	s.nextSemaphore = 0
	return nil
}

// Present queues imageIndex for presentation, waiting on waitSemaphore
// (spec §4.K EndFrame step 6: "Present, waiting on
// renderFinished[frameSlot]"). The backend recovers an out-of-date
// swapchain internally (there is no frame-local retry for a failed
// present), so Present only reports a genuine error.
func (s *Surface) Present(imageIndex int, waitSemaphore Semaphore) error {
	if err := s.backend.Present(imageIndex, waitSemaphore); err != nil {
		return fmt.Errorf("teide: surface: Present: %w", err)
	}
	return nil
}
