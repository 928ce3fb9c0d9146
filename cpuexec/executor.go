// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpuexec implements Teide's CPU executor (spec §4.H): a
// fixed-size worker pool for free tasks, plus a scheduler goroutine that
// polls dependency futures and dispatches dependent tasks once their
// input is ready.
package cpuexec

import (
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// dependencyPollInterval is how often the scheduler thread polls pending
// dependent tasks' input futures (the Go analogue of repeated
// wait_for(0) calls).
const dependencyPollInterval = time.Millisecond

// Executor is a fixed-size worker pool plus a dependency scheduler (spec
// §4.H). The zero value is not usable; construct with New.
type Executor struct {
	jobs chan func(workerID int)

	pendingMu sync.Mutex
	pending   []func() bool

	done         chan struct{}
	schedStopped chan struct{}
	closeOnce    sync.Once

	group *errgroup.Group
}

// New starts an Executor with the given number of workers (hardware
// concurrency if workers <= 0, per spec §4.H).
func New(workers int) *Executor {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g := &errgroup.Group{}
	e := &Executor{
		jobs:         make(chan func(int)),
		done:         make(chan struct{}),
		schedStopped: make(chan struct{}),
		group:        g,
	}
	for i := 0; i < workers; i++ {
		workerID := i
		g.Go(func() error {
			e.runWorker(workerID)
			return nil
		})
	}
	g.Go(func() error {
		e.schedulerLoop()
		return nil
	})
	return e
}

func (e *Executor) runWorker(workerID int) {
	for job := range e.jobs {
		runJobRecovered(workerID, job)
	}
}

func runJobRecovered(workerID int, job func(int)) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("teide: cpuexec: worker task panicked", "worker", workerID, "panic", r)
		}
	}()
	job(workerID)
}

// Schedule submits a free task (spec §4.H "no dependency") to the pool
// and returns a Future for its result.
//
// Schedule is a free function, not a method: Go methods cannot introduce
// additional type parameters, so the result type T must be inferred at
// the call site instead.
func Schedule[T any](e *Executor, fn func(workerID int) T) *Future[T] {
	fut := newFuture[T]()
	e.jobs <- func(workerID int) {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				fut.complete(zero, panicError(r))
			}
		}()
		fut.complete(fn(workerID), nil)
	}
	return fut
}

// ScheduleAfter registers a dependent task (spec §4.H "scheduled task
// with dependency"): once dep is ready, fn is dispatched to the pool
// with dep's value, and the returned Future completes with fn's result.
// If dep completed with an error, fn never runs and that error is
// forwarded instead.
func ScheduleAfter[A, B any](e *Executor, dep *Future[A], fn func(workerID int, val A) B) *Future[B] {
	fut := newFuture[B]()
	e.addPending(func() bool {
		val, err, ready := dep.TryGet()
		if !ready {
			return false
		}
		e.jobs <- func(workerID int) {
			defer func() {
				if r := recover(); r != nil {
					var zero B
					fut.complete(zero, panicError(r))
				}
			}()
			if err != nil {
				var zero B
				fut.complete(zero, err)
				return
			}
			fut.complete(fn(workerID, val), nil)
		}
		return true
	})
	return fut
}

func (e *Executor) addPending(tryFire func() bool) {
	e.pendingMu.Lock()
	e.pending = append(e.pending, tryFire)
	e.pendingMu.Unlock()
}

func (e *Executor) pollPending() {
	e.pendingMu.Lock()
	remaining := e.pending[:0:0]
	for _, tryFire := range e.pending {
		if !tryFire() {
			remaining = append(remaining, tryFire)
		}
	}
	e.pending = remaining
	e.pendingMu.Unlock()
}

func (e *Executor) pendingCount() int {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	return len(e.pending)
}

func (e *Executor) schedulerLoop() {
	defer close(e.schedStopped)
	ticker := time.NewTicker(dependencyPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.done:
			for e.pendingCount() > 0 {
				e.pollPending()
				if e.pendingCount() > 0 {
					time.Sleep(dependencyPollInterval)
				}
			}
			return
		case <-ticker.C:
			e.pollPending()
		}
	}
}

// Close drains the pool (spec §4.H "shutdown drains the pool and waits
// for all outstanding tasks"): it keeps polling until every pending
// dependent task has been dispatched to the pool (waiting on their
// dependencies as needed), then waits for every worker to finish its
// queued and in-flight jobs.
func (e *Executor) Close() error {
	e.closeOnce.Do(func() {
		close(e.done)
		<-e.schedStopped
		close(e.jobs)
	})
	return e.group.Wait()
}

func panicError(r any) error {
	return &panicErr{value: r}
}

type panicErr struct{ value any }

func (p *panicErr) Error() string {
	return "teide: cpuexec: task panicked: " + formatPanic(p.value)
}

func formatPanic(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "non-string panic value"
}
