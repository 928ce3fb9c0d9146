// Copyright (c) 2026, The Teide Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpuexec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleRunsFreeTask(t *testing.T) {
	e := New(4)
	defer e.Close()

	fut := Schedule(e, func(workerID int) int { return 21 * 2 })
	val, err := fut.Wait()
	require.NoError(t, err)
	assert.Equal(t, 42, val)
}

func TestScheduleAfterRunsOnceDependencyReady(t *testing.T) {
	e := New(2)
	defer e.Close()

	producer := Schedule(e, func(workerID int) int {
		time.Sleep(10 * time.Millisecond)
		return 10
	})
	consumer := ScheduleAfter(e, producer, func(workerID int, val int) int {
		return val + 5
	})

	val, err := consumer.Wait()
	require.NoError(t, err)
	assert.Equal(t, 15, val)
}

func TestScheduleAfterForwardsProducerError(t *testing.T) {
	e := New(2)
	defer e.Close()

	producer := Schedule(e, func(workerID int) int {
		panic("boom")
	})
	consumer := ScheduleAfter(e, producer, func(workerID int, val int) int {
		t.Fatal("dependent task must not run when producer panicked")
		return 0
	})

	_, err := producer.Wait()
	assert.Error(t, err)
	_, err = consumer.Wait()
	assert.Error(t, err)
}

func TestTryGetIsNonBlockingBeforeCompletion(t *testing.T) {
	e := New(1)
	defer e.Close()

	release := make(chan struct{})
	fut := Schedule(e, func(workerID int) int {
		<-release
		return 1
	})

	_, _, ready := fut.TryGet()
	assert.False(t, ready)
	close(release)
	val, err := fut.Wait()
	require.NoError(t, err)
	assert.Equal(t, 1, val)
}

func TestWorkerIDIsBoundPerDispatch(t *testing.T) {
	e := New(3)
	defer e.Close()

	seen := make(chan int, 3)
	var futs []*Future[struct{}]
	for i := 0; i < 3; i++ {
		futs = append(futs, Schedule(e, func(workerID int) struct{} {
			seen <- workerID
			return struct{}{}
		}))
	}
	for _, f := range futs {
		_, err := f.Wait()
		require.NoError(t, err)
	}
	close(seen)
	for id := range seen {
		assert.GreaterOrEqual(t, id, 0)
		assert.Less(t, id, 3)
	}
}

func TestCloseDrainsOutstandingTasks(t *testing.T) {
	e := New(2)

	started := make(chan struct{})
	finished := make(chan struct{})
	_ = Schedule(e, func(workerID int) int {
		close(started)
		time.Sleep(20 * time.Millisecond)
		close(finished)
		return 0
	})
	<-started

	err := e.Close()
	require.NoError(t, err)
	select {
	case <-finished:
	default:
		t.Fatal("Close returned before outstanding task finished")
	}
}

func TestDefaultWorkerCountIsPositive(t *testing.T) {
	e := New(0)
	defer e.Close()
	fut := Schedule(e, func(workerID int) bool { return true })
	val, err := fut.Wait()
	require.NoError(t, err)
	assert.True(t, val)
}
