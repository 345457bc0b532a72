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

// Package action implements logical and physical actions: self-scheduled
// deferred triggers with a minimum delay. A value scheduled onto an
// action becomes visible only at the tag it was scheduled for, and only
// for that tag's duration, exactly like a port.
package action

import (
	"time"

	"github.com/reactorflow/rtr/internal/cell"
	"github.com/reactorflow/rtr/internal/ids"
	"github.com/reactorflow/rtr/internal/tag"
)

// Action is a logical or physical action carrying values of type T.
type Action[T any] struct {
	id       ids.TriggerID
	minDelay time.Duration
	physical bool
	cell     *cell.Value[T]
}

// NewLogical constructs a logical action. Scheduling it bases the target
// tag on the current logical tag of the scheduling reaction.
func NewLogical[T any](id ids.TriggerID, minDelay time.Duration) *Action[T] {
	return &Action[T]{id: id, minDelay: minDelay, cell: cell.New[T](id)}
}

// NewPhysical constructs a physical action. Scheduling it bases the
// target tag on the physical clock instead, and is safe to call from
// outside a reaction (including from another goroutine).
func NewPhysical[T any](id ids.TriggerID, minDelay time.Duration) *Action[T] {
	return &Action[T]{id: id, minDelay: minDelay, physical: true, cell: cell.New[T](id)}
}

// ID returns the action's trigger id.
func (a *Action[T]) ID() ids.TriggerID { return a.id }

// MinDelay returns the action's declared minimum delay.
func (a *Action[T]) MinDelay() time.Duration { return a.minDelay }

// IsPhysical reports whether this is a physical action.
func (a *Action[T]) IsPhysical() bool { return a.physical }

// Get reads the value scheduled for the tag currently being processed,
// if any.
func (a *Action[T]) Get() (T, bool) { return a.cell.Get() }

// Handle returns the type-erased cleanup handle for this action's cell.
func (a *Action[T]) Handle() cell.Handle { return a.cell }

// Arm is called by the scheduler when the event carrying this action's
// scheduled value reaches the front of the queue, just before the
// reactions it triggers are dispatched.
func (a *Action[T]) Arm(v T) { a.cell.Set(v) }

// EffectiveDelay returns max(minDelay, requested), the delay actually
// applied to a schedule call.
func (a *Action[T]) EffectiveDelay(requested time.Duration) time.Duration {
	if requested > a.minDelay {
		return requested
	}
	return a.minDelay
}

// TargetTag computes the tag a schedule call from current with the given
// requested delay lands on: the effective delay applied to current via
// Tag.Delay, so a zero effective delay bumps the microstep instead of
// the instant.
func (a *Action[T]) TargetTag(current tag.Tag, requested time.Duration) tag.Tag {
	return current.Delay(a.EffectiveDelay(requested))
}
