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
	"log"
	"sync"
)

// Operation is a long-running data operation producing a new snapshot.
// Operations run to completion; there is no cancellation.
type Operation func(ctx context.Context) (*Snapshot, error)

// PollState describes what a Poll call observed.
type PollState int

const (
	// Idle means no operation is in flight and none just finished.
	Idle PollState = iota
	// Pending means an operation is still running.
	Pending
	// Done means an operation finished and its result is in the Poll value.
	Done
)

// Poll is the outcome of a single TaskSlot poll. When State is Done exactly
// one of Snapshot and Err is set.
type Poll struct {
	State    PollState
	Snapshot *Snapshot
	Err      error
}

type outcome struct {
	snap *Snapshot
	err  error
}

// TaskSlot runs at most one background operation at a time on behalf of the
// event-driven UI. Submit spawns the operation on its own goroutine and
// arranges for exactly one result to be delivered through a single-use
// channel; Poll consumes it without blocking. On completion the slot invokes
// the notify callback so the UI can schedule a repaint and poll promptly
// instead of waiting for the next input event.
type TaskSlot struct {
	mu      sync.Mutex
	pending chan outcome
	notify  func()
}

// NewTaskSlot creates a slot. notify is called (from the worker goroutine)
// every time an operation finishes; it may be nil.
func NewTaskSlot(notify func()) *TaskSlot {
	return &TaskSlot{notify: notify}
}

// Busy reports whether an operation is in flight.
func (s *TaskSlot) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Submit starts the operation in the background. It returns
// ErrAlreadyPending if one is already in flight: the viewer has a single
// current view, so overlapping operations are a caller bug, and a second
// submission neither queues nor preempts.
func (s *TaskSlot) Submit(op Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return ErrAlreadyPending
	}

	ch := make(chan outcome, 1)
	s.pending = ch

	go func() {
		delivered := false
		defer func() {
			if r := recover(); r != nil {
				log.Printf("background operation panicked: %v", r)
			}
			if !delivered {
				// Closing without a value is reported by Poll as
				// ErrNoResponse, never mistaken for still-pending.
				close(ch)
			}
			if s.notify != nil {
				s.notify()
			}
		}()

		snap, err := op(context.Background())
		ch <- outcome{snap: snap, err: err}
		delivered = true
	}()

	return nil
}

// Poll checks the slot without blocking. It is safe to call on every frame:
// on an idle slot it does nothing and returns Idle. A finished operation is
// consumed exactly once; after a Done result the slot is idle again.
func (s *TaskSlot) Poll() Poll {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Poll{State: Idle}
	}

	select {
	case out, ok := <-s.pending:
		s.pending = nil
		if !ok {
			return Poll{State: Done, Err: ErrNoResponse}
		}
		return Poll{State: Done, Snapshot: out.snap, Err: out.err}
	default:
		return Poll{State: Pending}
	}
}
