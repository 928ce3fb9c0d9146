// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpuexec

// Future is a shareable handle to a CPU task's eventual result (spec
// §4.H). Any number of goroutines may call Wait or TryGet concurrently;
// closing done broadcasts completion to all of them.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) complete(val T, err error) {
	f.val = val
	f.err = err
	close(f.done)
}

// Wait blocks until the task completes and returns its result or error.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// TryGet is the Go equivalent of the teacher's wait_for(0): a
// non-blocking readiness poll used by ScheduleAfter's scheduler thread.
func (f *Future[T]) TryGet() (val T, err error, ready bool) {
	select {
	case <-f.done:
		return f.val, f.err, true
	default:
		var zero T
		return zero, nil, false
	}
}
