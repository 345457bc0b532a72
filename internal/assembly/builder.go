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

package assembly

import (
	"sync"

	"github.com/reactorflow/rtr/internal/cell"
	"github.com/reactorflow/rtr/internal/ids"
	"github.com/reactorflow/rtr/internal/reactor"
	"github.com/reactorflow/rtr/internal/timer"
)

// Builder accumulates state shared by every Ctx in an assembly tree: it
// is the single source of truth the root Ctx creates and every child Ctx
// borrows. Nothing about it is exposed to reactor authors directly; they
// only ever see a *Ctx.
type Builder struct {
	mu sync.Mutex

	reactors       []reactor.Behavior
	paths          []string
	reactionCounts []ids.LocalReactionID

	names map[string]bool

	nextReactorID ids.ReactorID
	nextTriggerID ids.TriggerID

	// rootResolvers holds, for every port trigger id, a closure that
	// returns the CURRENT root of its binding chain. It is only
	// queried after assembly finishes, by which point every Bind call
	// has already happened.
	rootResolvers map[ids.TriggerID]func() ids.TriggerID

	triggersOf map[ids.GlobalReactionID][]ids.TriggerID
	effectsOf  map[ids.GlobalReactionID][]ids.TriggerID

	cleanupHandles []cell.Handle
	timers         map[ids.TriggerID]*timer.Timer
}

// NewBuilder constructs an empty builder for one assembly run.
func NewBuilder() *Builder {
	return &Builder{
		names:         map[string]bool{},
		nextTriggerID: ids.TriggerID(2), // 0, 1 reserved for Startup/Shutdown
		rootResolvers: map[ids.TriggerID]func() ids.TriggerID{},
		triggersOf:    map[ids.GlobalReactionID][]ids.TriggerID{},
		effectsOf:     map[ids.GlobalReactionID][]ids.TriggerID{},
		timers:        map[ids.TriggerID]*timer.Timer{},
	}
}

func (b *Builder) allocateReactorID(path string) (ids.ReactorID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.names[path] {
		return 0, newErr(DuplicateName, path, nil)
	}
	b.names[path] = true
	id := b.nextReactorID
	b.nextReactorID++
	b.reactors = append(b.reactors, nil)
	b.paths = append(b.paths, path)
	b.reactionCounts = append(b.reactionCounts, 0)
	return id, nil
}

func (b *Builder) allocateTriggerID() ids.TriggerID {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextTriggerID
	b.nextTriggerID++
	return id
}

func (b *Builder) registerPortResolver(id ids.TriggerID, resolve func() ids.TriggerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rootResolvers[id] = resolve
}

func (b *Builder) registerCleanup(h cell.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleanupHandles = append(b.cleanupHandles, h)
}

func (b *Builder) declareTriggers(r ids.GlobalReactionID, trig ...ids.TriggerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.triggersOf[r] = append(b.triggersOf[r], trig...)
}

func (b *Builder) declareEffect(r ids.GlobalReactionID, port ids.TriggerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.effectsOf[r] = append(b.effectsOf[r], port)
}

func (b *Builder) finishReactor(id ids.ReactorID, reactionCount ids.LocalReactionID, behavior reactor.Behavior) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reactors[id] = behavior
	b.reactionCounts[id] = reactionCount
}

func (b *Builder) resolve(t ids.TriggerID) ids.TriggerID {
	if f, ok := b.rootResolvers[t]; ok {
		return f()
	}
	return t
}

func (b *Builder) registerTimer(t *timer.Timer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timers[t.ID()] = t
}

// Reactors returns the assembled reactor vector, indexed by ReactorID.
// Every slot must be non-nil by the time assembly finishes; a nil slot
// means some Ctx was created but never Finish'd.
func (b *Builder) Reactors() []reactor.Behavior { return b.reactors }

// Paths returns the assembled path name of each reactor, parallel to
// Reactors.
func (b *Builder) Paths() []string { return b.paths }

// ReactionCounts returns the declared reaction count of each reactor,
// parallel to Reactors.
func (b *Builder) ReactionCounts() []ids.LocalReactionID { return b.reactionCounts }

// TriggersOf returns the full triggers-of-reaction index accumulated
// during assembly. Callers must treat it as read-only.
func (b *Builder) TriggersOf() map[ids.GlobalReactionID][]ids.TriggerID { return b.triggersOf }

// EffectsOf returns the full effects-of-reaction index accumulated
// during assembly. Callers must treat it as read-only.
func (b *Builder) EffectsOf() map[ids.GlobalReactionID][]ids.TriggerID { return b.effectsOf }

// Timers returns every timer declared anywhere in the program, keyed by
// trigger id.
func (b *Builder) Timers() map[ids.TriggerID]*timer.Timer { return b.timers }

// CleanupHandles returns every port/action cell handle declared anywhere
// in the program, for the scheduler's per-tag cleanup sweep.
func (b *Builder) CleanupHandles() []cell.Handle { return b.cleanupHandles }

// Resolve follows a port's binding chain to its root trigger id. Ports
// that were never bound, and non-port triggers, resolve to themselves.
func (b *Builder) Resolve(t ids.TriggerID) ids.TriggerID { return b.resolve(t) }
