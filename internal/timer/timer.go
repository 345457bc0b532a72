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

// Package timer implements periodic and one-shot self-rescheduling
// triggers: a timer fires once at its offset after startup, and again
// every period thereafter until the program shuts down. A zero period
// makes it one-shot.
package timer

import (
	"time"

	"github.com/reactorflow/rtr/internal/ids"
	"github.com/reactorflow/rtr/internal/tag"
)

// Timer is a periodic (or one-shot, if Period == 0) trigger.
type Timer struct {
	id     ids.TriggerID
	offset time.Duration
	period time.Duration
}

// New constructs a timer that first fires at offset after startup and
// subsequently every period, unless period is zero (one-shot).
func New(id ids.TriggerID, offset, period time.Duration) *Timer {
	return &Timer{id: id, offset: offset, period: period}
}

// ID returns the timer's trigger id.
func (t *Timer) ID() ids.TriggerID { return t.id }

// Offset returns the delay of the first firing relative to startup.
func (t *Timer) Offset() time.Duration { return t.offset }

// Period returns the repeat interval, or zero for a one-shot timer.
func (t *Timer) Period() time.Duration { return t.period }

// Periodic reports whether the timer reschedules itself.
func (t *Timer) Periodic() bool { return t.period > 0 }

// FirstFire returns the tag of the timer's first firing. A zero offset
// fires at the startup tag itself (microstep zero); any positive offset
// fires at a future tag with microstep zero.
func (t *Timer) FirstFire() tag.Tag {
	return tag.Tag{Instant: t.offset, Microstep: 0}
}

// NextFire returns the tag of the following firing after current, or
// false if the timer is one-shot. A period is always > 0, so the next
// firing is a fresh instant at microstep zero, never a same-instant
// microstep bump.
func (t *Timer) NextFire(current tag.Tag) (tag.Tag, bool) {
	if !t.Periodic() {
		return tag.Tag{}, false
	}
	return tag.Tag{Instant: current.Instant + t.period, Microstep: 0}, true
}
