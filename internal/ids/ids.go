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

// Package ids defines the dense integer identifiers used throughout the
// runtime: reactors, reactions, and triggers are all addressed by small
// unsigned integers so the assembler can lay them out in flat slices
// instead of maps.
package ids

import "fmt"

// ReactorID is the program-wide unique index of an assembled reactor.
type ReactorID uint32

// LocalReactionID is a reaction's index within its own reactor, starting
// at 0. It is only meaningful together with a ReactorID.
type LocalReactionID uint32

// TriggerID is the program-wide unique index of a trigger (port, logical
// action, physical action, timer, or one of the synthetic Startup/Shutdown
// triggers).
type TriggerID uint32

// Invalid is the all-ones sentinel (the largest uint32) for an ID that
// has not been assigned.
const Invalid = ^uint32(0)

// Startup and Shutdown are synthetic triggers present in every program.
// They are allocated TriggerID 0 and 1 respectively by the assembler
// before any reactor-declared trigger.
const (
	Startup  TriggerID = 0
	Shutdown TriggerID = 1
)

// GlobalReactionID packs a (ReactorID, LocalReactionID) pair into a single
// uint64 so it can be used as a map key and, crucially, as a stable sort
// key: reactions compare by ReactorID first, then LocalReactionID, giving
// the deterministic tie-break the tag processor relies on within a batch.
type GlobalReactionID uint64

// NewGlobalReactionID packs the pair.
func NewGlobalReactionID(r ReactorID, l LocalReactionID) GlobalReactionID {
	return GlobalReactionID(uint64(r)<<32 | uint64(l))
}

// Reactor unpacks the ReactorID half.
func (g GlobalReactionID) Reactor() ReactorID {
	return ReactorID(uint64(g) >> 32)
}

// Local unpacks the LocalReactionID half.
func (g GlobalReactionID) Local() LocalReactionID {
	return LocalReactionID(uint64(g) & 0xffffffff)
}

func (g GlobalReactionID) String() string {
	return fmt.Sprintf("%d/%d", g.Reactor(), g.Local())
}

func (r ReactorID) String() string  { return fmt.Sprintf("reactor#%d", uint32(r)) }
func (t TriggerID) String() string  { return fmt.Sprintf("trigger#%d", uint32(t)) }
