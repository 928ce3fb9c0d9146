// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package surface

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	images       int
	nextIndex    int
	suboptimal   bool
	outOfDate    bool
	acquireErr   error
	waitedFences []Fence
	recreated    int
	waitErr      error

	presented        []int
	presentSems      []Semaphore
	presentErr       error
	presentOutOfDate bool
}

func (b *fakeBackend) ImageCount() int { return b.images }

func (b *fakeBackend) Extent() (uint32, uint32) { return 0, 0 }

func (b *fakeBackend) AcquireNextImage(semaphore Semaphore) (int, bool, bool, error) {
	if b.acquireErr != nil {
		return 0, false, false, b.acquireErr
	}
	idx := b.nextIndex
	b.nextIndex = (b.nextIndex + 1) % b.images
	return idx, b.suboptimal, b.outOfDate, nil
}

func (b *fakeBackend) ImageAt(index int) Image             { return index }
func (b *fakeBackend) FramebufferAt(index int) Framebuffer { return index }
func (b *fakeBackend) PrePresentCommandBufferAt(index int) CommandBuffer {
	return index
}

func (b *fakeBackend) WaitFence(fence Fence) error {
	b.waitedFences = append(b.waitedFences, fence)
	return b.waitErr
}

func (b *fakeBackend) Recreate() error {
	b.recreated++
	b.outOfDate = false
	return nil
}

func (b *fakeBackend) Present(imageIndex int, waitSemaphore Semaphore) error {
	if b.presentErr != nil {
		return b.presentErr
	}
	if b.presentOutOfDate {
		return b.Recreate()
	}
	b.presented = append(b.presented, imageIndex)
	b.presentSems = append(b.presentSems, waitSemaphore)
	return nil
}

func newTestSurface(t *testing.T, backend *fakeBackend) *Surface {
	t.Helper()
	s, err := New(backend, []Semaphore{"sem0", "sem1"})
	require.NoError(t, err)
	return s
}

func TestNewRejectsWrongSemaphoreCount(t *testing.T) {
	_, err := New(&fakeBackend{images: 3}, []Semaphore{"only-one"})
	assert.Error(t, err)
}

func TestAcquireNextImageReturnsBundle(t *testing.T) {
	backend := &fakeBackend{images: 3}
	s := newTestSurface(t, backend)

	bundle, err := s.AcquireNextImage(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, bundle.ImageIndex)
	assert.Equal(t, Semaphore("sem0"), bundle.ImageAvailableSemaphore)
	assert.Equal(t, Image(0), bundle.Image)
}

func TestAcquireNextImageCyclesSemaphoreRing(t *testing.T) {
	backend := &fakeBackend{images: 3}
	s := newTestSurface(t, backend)

	first, err := s.AcquireNextImage(nil)
	require.NoError(t, err)
	second, err := s.AcquireNextImage(nil)
	require.NoError(t, err)
	third, err := s.AcquireNextImage(nil)
	require.NoError(t, err)

	assert.Equal(t, Semaphore("sem0"), first.ImageAvailableSemaphore)
	assert.Equal(t, Semaphore("sem1"), second.ImageAvailableSemaphore)
	assert.Equal(t, Semaphore("sem0"), third.ImageAvailableSemaphore)
}

func TestAcquireNextImageWaitsFrameFenceFirst(t *testing.T) {
	backend := &fakeBackend{images: 2}
	s := newTestSurface(t, backend)

	_, err := s.AcquireNextImage("frame-fence-1")
	require.NoError(t, err)
	require.Len(t, backend.waitedFences, 1)
	assert.Equal(t, Fence("frame-fence-1"), backend.waitedFences[0])
}

func TestAcquireNextImageWaitsPriorUseFenceOnReuse(t *testing.T) {
	backend := &fakeBackend{images: 1}
	s := newTestSurface(t, backend)

	_, err := s.AcquireNextImage("fence-a")
	require.NoError(t, err)
	backend.waitedFences = nil

	_, err = s.AcquireNextImage("fence-b")
	require.NoError(t, err)
	require.Len(t, backend.waitedFences, 2)
	assert.Equal(t, Fence("fence-b"), backend.waitedFences[0], "new frameFence waited first")
	assert.Equal(t, Fence("fence-a"), backend.waitedFences[1], "then the image's recorded prior-use fence")
}

func TestAcquireNextImageOutOfDateTriggersRecreateAndReturnsSentinel(t *testing.T) {
	backend := &fakeBackend{images: 2, outOfDate: true}
	s := newTestSurface(t, backend)

	bundle, err := s.AcquireNextImage(nil)
	assert.Nil(t, bundle)
	assert.ErrorIs(t, err, ErrSwapchainOutOfDate)
	assert.Equal(t, 1, backend.recreated)
}

func TestAcquireNextImageSuboptimalProceeds(t *testing.T) {
	backend := &fakeBackend{images: 2, suboptimal: true}
	s := newTestSurface(t, backend)

	bundle, err := s.AcquireNextImage(nil)
	require.NoError(t, err)
	assert.NotNil(t, bundle)
	assert.Equal(t, 0, backend.recreated)
}

func TestAcquireNextImagePropagatesAcquireError(t *testing.T) {
	backend := &fakeBackend{images: 2, acquireErr: errors.New("device lost")}
	s := newTestSurface(t, backend)

	_, err := s.AcquireNextImage(nil)
	assert.Error(t, err)
}

func TestPresentForwardsImageIndexAndSemaphore(t *testing.T) {
	backend := &fakeBackend{images: 2}
	s := newTestSurface(t, backend)

	err := s.Present(1, "render-finished-0")
	require.NoError(t, err)
	require.Len(t, backend.presented, 1)
	assert.Equal(t, 1, backend.presented[0])
	assert.Equal(t, Semaphore("render-finished-0"), backend.presentSems[0])
}

func TestPresentPropagatesError(t *testing.T) {
	backend := &fakeBackend{images: 2, presentErr: errors.New("queue lost")}
	s := newTestSurface(t, backend)

	err := s.Present(0, "sem")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSwapchainOutOfDate)
}

func TestRecreateResetsPriorUseFencesAndSemaphoreRing(t *testing.T) {
	// One image, so the acquire after Recreate gets the same image whose
	// prior-use fence was recorded before it.
	backend := &fakeBackend{images: 1}
	s := newTestSurface(t, backend)

	_, err := s.AcquireNextImage("fence-a")
	require.NoError(t, err)

	require.NoError(t, s.Recreate())
	assert.Equal(t, 1, backend.recreated)

	backend.waitedFences = nil
	bundle, err := s.AcquireNextImage(nil)
	require.NoError(t, err)
	assert.Equal(t, Semaphore("sem0"), bundle.ImageAvailableSemaphore, "semaphore ring restarts at index 0")
	assert.Empty(t, backend.waitedFences, "prior-use fence tracking was reset by Recreate")
}
