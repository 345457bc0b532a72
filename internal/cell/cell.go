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

// Package cell holds the single mutex-guarded value slot shared by ports
// and actions: both are "present for this tag, then absent" values, and
// both need a type-erased handle so the scheduler can sweep every
// present value at tag cleanup without knowing each one's element type.
package cell

import (
	"sync"

	"github.com/reactorflow/rtr/internal/ids"
)

// Handle is the type-erased view used for the per-tag cleanup sweep.
type Handle interface {
	TriggerID() ids.TriggerID
	Present() bool
	Clear()
}

// Value is the backing store for one trigger's transient value.
type Value[T any] struct {
	mu      sync.Mutex
	id      ids.TriggerID
	present bool
	value   T
}

// New constructs an empty, absent cell for the given trigger.
func New[T any](id ids.TriggerID) *Value[T] {
	return &Value[T]{id: id}
}

// TriggerID identifies which trigger this cell backs.
func (c *Value[T]) TriggerID() ids.TriggerID { return c.id }

// Set marks the cell present with v, for the duration of the current tag.
func (c *Value[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.present = true
	c.value = v
}

// Get returns the current value and whether one was set this tag.
func (c *Value[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.present
}

// Present reports presence without copying the value.
func (c *Value[T]) Present() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.present
}

// Clear returns the cell to absent. Called once per tag at cleanup.
func (c *Value[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.present = false
	c.value = zero
}
