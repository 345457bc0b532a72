// Copyright (C) 2024 The Dagu Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package equeue implements the scheduler's tag-ordered event queue: a
// min-heap keyed by Tag, where two events scheduled for the same tag
// (a timer firing and an action armed to the same instant, say) merge
// into one rather than being processed as separate passes.
package equeue

import (
	"container/heap"
	"sync"

	"github.com/reactorflow/rtr/internal/ids"
	"github.com/reactorflow/rtr/internal/tag"
)

// Event is everything that must happen at one tag: a set of reactions to
// mark triggered, a set of arm thunks to run first (to make scheduled
// action/timer values present before those reactions run), and whether
// this tag carries the shutdown wave.
type Event struct {
	Tag       tag.Tag
	Terminate bool
	Reactions map[ids.GlobalReactionID]bool
	Arm       []func()
}

func newEvent(t tag.Tag) *Event {
	return &Event{Tag: t, Reactions: map[ids.GlobalReactionID]bool{}}
}

// heapSlice is the container/heap backing store, ordered earliest-tag
// first.
type heapSlice []*Event

func (h heapSlice) Len() int            { return len(h) }
func (h heapSlice) Less(i, j int) bool  { return h[i].Tag.Before(h[j].Tag) }
func (h heapSlice) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *heapSlice) Push(x interface{}) { *h = append(*h, x.(*Event)) }
func (h *heapSlice) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Queue is the scheduler's pending-event set. Safe for concurrent use:
// physical actions are armed from arbitrary goroutines via
// reactor.PhysicalSender, which ultimately calls Push.
type Queue struct {
	mu    sync.Mutex
	heap  heapSlice
	byTag map[tag.Tag]*Event
}

// New constructs an empty queue.
func New() *Queue {
	return &Queue{byTag: map[tag.Tag]*Event{}}
}

// Push schedules reactions (and, if arm is non-nil, one thunk to run
// before they fire) at tag t. If an event is already pending for t, the
// reactions and arm thunk are merged into it instead of creating a
// second event for the same tag.
func (q *Queue) Push(t tag.Tag, reactions []ids.GlobalReactionID, arm func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.eventFor(t)
	for _, r := range reactions {
		e.Reactions[r] = true
	}
	if arm != nil {
		e.Arm = append(e.Arm, arm)
	}
}

// PushTerminate schedules the shutdown wave at tag t. Terminate
// supersedes any Reactions already merged for the same tag: the queue
// keeps them in the event, but the scheduler's event loop stops on a
// Terminate event without dispatching them or running its arm thunks,
// and runs the shutdown wave instead.
func (q *Queue) PushTerminate(t tag.Tag) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.eventFor(t)
	e.Terminate = true
}

// eventFor returns the pending event for t, creating and heap-pushing a
// fresh one if none exists yet. Caller must hold q.mu.
func (q *Queue) eventFor(t tag.Tag) *Event {
	if e, ok := q.byTag[t]; ok {
		return e
	}
	e := newEvent(t)
	q.byTag[t] = e
	heap.Push(&q.heap, e)
	return e
}

// TakeEarliest removes and returns the event with the smallest tag, or
// false if the queue is empty.
func (q *Queue) TakeEarliest() (*Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.heap.Len() == 0 {
		return nil, false
	}
	e := heap.Pop(&q.heap).(*Event)
	delete(q.byTag, e.Tag)
	return e, true
}

// PeekTag returns the smallest pending tag without removing its event.
func (q *Queue) PeekTag() (tag.Tag, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.heap.Len() == 0 {
		return tag.Tag{}, false
	}
	return q.heap[0].Tag, true
}

// Len returns the number of distinct pending tags.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}
