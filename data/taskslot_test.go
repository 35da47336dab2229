// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package data

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pollUntilDone spins the way a frame loop would until the slot reports a
// finished operation.
func pollUntilDone(t *testing.T, slot *TaskSlot) Poll {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		p := slot.Poll()
		switch p.State {
		case Done:
			return p
		case Idle:
			t.Fatal("slot went idle without delivering a result")
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("operation did not finish in time")
	return Poll{}
}

func TestTaskSlotIdlePoll(t *testing.T) {
	slot := NewTaskSlot(nil)
	assert.False(t, slot.Busy())
	assert.Equal(t, Poll{State: Idle}, slot.Poll())
}

func TestTaskSlotDeliversResult(t *testing.T) {
	slot := NewTaskSlot(nil)

	want := &Snapshot{}
	require.NoError(t, slot.Submit(func(ctx context.Context) (*Snapshot, error) {
		return want, nil
	}))

	p := pollUntilDone(t, slot)
	assert.Same(t, want, p.Snapshot)
	assert.NoError(t, p.Err)

	// Consumed: the slot is idle again.
	assert.False(t, slot.Busy())
	assert.Equal(t, Poll{State: Idle}, slot.Poll())
}

func TestTaskSlotDeliversError(t *testing.T) {
	slot := NewTaskSlot(nil)

	boom := errors.New("boom")
	require.NoError(t, slot.Submit(func(ctx context.Context) (*Snapshot, error) {
		return nil, boom
	}))

	p := pollUntilDone(t, slot)
	assert.Nil(t, p.Snapshot)
	assert.ErrorIs(t, p.Err, boom)
}

func TestTaskSlotRejectsOverlap(t *testing.T) {
	slot := NewTaskSlot(nil)

	release := make(chan struct{})
	require.NoError(t, slot.Submit(func(ctx context.Context) (*Snapshot, error) {
		<-release
		return nil, nil
	}))

	assert.True(t, slot.Busy())
	assert.Equal(t, Pending, slot.Poll().State)

	err := slot.Submit(func(ctx context.Context) (*Snapshot, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrAlreadyPending)

	close(release)
	pollUntilDone(t, slot)

	// After the first finished, a new submission is accepted.
	require.NoError(t, slot.Submit(func(ctx context.Context) (*Snapshot, error) {
		return nil, nil
	}))
	pollUntilDone(t, slot)
}

func TestTaskSlotPanicBecomesNoResponse(t *testing.T) {
	slot := NewTaskSlot(nil)

	require.NoError(t, slot.Submit(func(ctx context.Context) (*Snapshot, error) {
		panic("worker died")
	}))

	p := pollUntilDone(t, slot)
	assert.Nil(t, p.Snapshot)
	assert.ErrorIs(t, p.Err, ErrNoResponse)
	assert.False(t, slot.Busy())
}

func TestTaskSlotNotifiesOnCompletion(t *testing.T) {
	var calls atomic.Int32
	notified := make(chan struct{}, 2)
	slot := NewTaskSlot(func() {
		calls.Add(1)
		notified <- struct{}{}
	})

	require.NoError(t, slot.Submit(func(ctx context.Context) (*Snapshot, error) {
		return nil, nil
	}))

	select {
	case <-notified:
	case <-time.After(5 * time.Second):
		t.Fatal("notify was not called")
	}
	assert.Equal(t, int32(1), calls.Load())

	p := pollUntilDone(t, slot)
	assert.Equal(t, Done, p.State)
}
