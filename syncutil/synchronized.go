// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package syncutil implements the synchronization primitives spec §4.B
// describes: Synchronized[T], which pairs a value with a mutex and only
// exposes access via a locked callback, and ThreadMap[T], a fixed-capacity
// slot map keyed by CPU executor worker index.
package syncutil

import "sync"

// Synchronized owns a T and a mutex; the only way to touch the T is
// through Lock, which runs fn with the lock held.
type Synchronized[T any] struct {
	mu    sync.Mutex
	value T
}

// NewSynchronized wraps initial behind a mutex.
func NewSynchronized[T any](initial T) *Synchronized[T] {
	return &Synchronized[T]{value: initial}
}

// Lock runs fn with the lock held and returns fn's result.
func Lock[T, R any](s *Synchronized[T], fn func(*T) R) R {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.value)
}

// LockVoid is Lock for callbacks with no return value.
func LockVoid[T any](s *Synchronized[T], fn func(*T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.value)
}
