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

// Package reactor defines the interface generated reactor code is
// expected to satisfy, and the pool the scheduler dispatches against. It
// intentionally knows nothing about assembly or the event loop: those
// depend on it, not the other way around.
package reactor

import (
	"sync"
	"time"

	"github.com/reactorflow/rtr/internal/ids"
	"github.com/reactorflow/rtr/internal/tag"
)

// PhysicalSender lets a reaction hand out a clonable capability to
// schedule physical-action events from another goroutine.
type PhysicalSender interface {
	Send(trigger ids.TriggerID, arm func())
}

// ReactionCtx is the API surface exposed to a running reaction body. A
// context is only valid for the duration of the React/EnqueueStartup/
// EnqueueShutdown call it was passed to; reactor code must not retain it.
type ReactionCtx interface {
	// Tag is the logical tag currently being processed.
	Tag() tag.Tag
	// PhysicalTag reads the physical clock, floored at the current
	// logical instant, for basing physical-action schedules.
	PhysicalTag() tag.Tag
	// Reaction identifies the reaction currently executing.
	Reaction() ids.GlobalReactionID
	// DeclaresEffect reports whether the current reaction is allowed to
	// set the given port trigger.
	DeclaresEffect(t ids.TriggerID) bool
	// MarkTriggered unions every reaction registered for trigger t into
	// the current tag's working set, at its precomputed level.
	MarkTriggered(t ids.TriggerID)
	// ScheduleEvent enqueues a future event for trigger t at the given
	// tag, running arm (if non-nil) just before that trigger's
	// reactions are dispatched.
	ScheduleEvent(t ids.TriggerID, at tag.Tag, arm func())
	// RequestStop asks for a shutdown wave at tag()+offset, or sooner
	// if another reaction already requested an earlier one.
	RequestStop(offset time.Duration)
	// SpawnPhysicalSender hands out a sender usable from other
	// goroutines to push physical-action events.
	SpawnPhysicalSender() PhysicalSender
}

// CleanupCtx is passed to CleanupTag. Ports and actions are cleared
// generically by the scheduler; this is for reactor-local scratch state.
type CleanupCtx interface {
	Tag() tag.Tag
}

// Behavior is the interface every assembled reactor satisfies. It is
// kept object-safe (no generic methods) so the pool can dispatch through
// a plain interface value per reactor.
type Behavior interface {
	ID() ids.ReactorID
	React(ctx ReactionCtx, local ids.LocalReactionID)
	CleanupTag(ctx CleanupCtx)
	EnqueueStartup(ctx ReactionCtx)
	EnqueueShutdown(ctx ReactionCtx)
}

// Pool is the dense vector of assembled reactors the scheduler owns for
// the program's lifetime, plus the per-reactor mutex that guards against
// two goroutines dispatching the same reactor at once (the precedence
// graph should make that impossible within a batch; the mutex is a
// runtime assertion backstop, not a scheduling mechanism).
type Pool struct {
	reactors []Behavior
	locks    []sync.Mutex
}

// NewPool wraps an assembled reactor vector, indexed by ReactorID.
func NewPool(reactors []Behavior) *Pool {
	return &Pool{reactors: reactors, locks: make([]sync.Mutex, len(reactors))}
}

// Len returns the number of reactors in the pool.
func (p *Pool) Len() int { return len(p.reactors) }

// All returns every reactor in ReactorID order, for cleanup/startup
// sweeps that touch all of them.
func (p *Pool) All() []Behavior { return p.reactors }

// Dispatch runs fn with exclusive access to the reactor identified by
// id. It panics if the reactor is already borrowed, which can only
// happen if the precedence graph failed to keep a batch's reactors
// disjoint — a runtime bug, not a user error.
func (p *Pool) Dispatch(id ids.ReactorID, fn func(Behavior)) {
	lock := &p.locks[id]
	if !lock.TryLock() {
		panic("reactor: double borrow of reactor " + id.String() + "; precedence graph did not keep this batch disjoint")
	}
	defer lock.Unlock()
	fn(p.reactors[id])
}
