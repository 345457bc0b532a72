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

package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/reactorflow/rtr/internal/ids"
	"github.com/reactorflow/rtr/internal/reactor"
	"github.com/reactorflow/rtr/internal/tag"
)

// workingSet is the mutable ExecutableReactions under construction for
// one tag: reactions already known to run, indexed by level, plus the
// highest level touched so far. Port writes and Startup/Shutdown marks
// can add reactions to any level at or above the one currently
// dispatching (the precedence guarantee rules out anything lower), from
// possibly-concurrent goroutines within a parallel batch, so every
// mutation is mutex-guarded.
type workingSet struct {
	mu       sync.Mutex
	byLevel  map[int]map[ids.GlobalReactionID]bool
	maxLevel int
}

func newWorkingSet() *workingSet {
	return &workingSet{byLevel: map[int]map[ids.GlobalReactionID]bool{}}
}

func (w *workingSet) add(level int, r ids.GlobalReactionID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.byLevel[level] == nil {
		w.byLevel[level] = map[ids.GlobalReactionID]bool{}
	}
	w.byLevel[level][r] = true
	if level > w.maxLevel {
		w.maxLevel = level
	}
}

// batch returns the sorted reaction ids at level, for deterministic
// dispatch order.
func (w *workingSet) batch(level int) []ids.GlobalReactionID {
	w.mu.Lock()
	defer w.mu.Unlock()
	set := w.byLevel[level]
	if len(set) == 0 {
		return nil
	}
	out := make([]ids.GlobalReactionID, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (w *workingSet) highestLevel() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.maxLevel
}

// reactionCtx is the concrete reactor.ReactionCtx handed to exactly one
// dispatched reaction. It must not be retained past that call: its
// working set and current-reaction identity are only valid for the
// reaction's own React invocation.
type reactionCtx struct {
	s       *Scheduler
	tag     tag.Tag
	current ids.GlobalReactionID
	working *workingSet
}

func (c *reactionCtx) Tag() tag.Tag { return c.tag }

func (c *reactionCtx) PhysicalTag() tag.Tag {
	return c.s.physicalTagFloor()
}

func (c *reactionCtx) Reaction() ids.GlobalReactionID { return c.current }

func (c *reactionCtx) DeclaresEffect(t ids.TriggerID) bool {
	for _, e := range c.s.info.EffectsOf[c.current] {
		if e == t {
			return true
		}
	}
	return false
}

// MarkTriggered unions every reaction registered for trigger t into the
// working set, at each reaction's precomputed level. Used for port
// writes and the synthetic Startup/Shutdown triggers: all of these take
// hold within the tag currently being processed.
func (c *reactionCtx) MarkTriggered(t ids.TriggerID) {
	for _, r := range c.s.info.ByTrigger[t] {
		c.working.add(c.s.info.Levels[r], r)
	}
}

// ScheduleEvent enqueues trigger t's reactions at tag at, running arm
// first. Action schedules always go through the event queue, even when
// at's instant equals the current tag's instant (a zero-effective-delay
// schedule only bumps the microstep, landing on a logically later tag
// that the event loop picks up on its very next iteration rather than
// being folded into the batch currently dispatching).
func (c *reactionCtx) ScheduleEvent(t ids.TriggerID, at tag.Tag, arm func()) {
	c.s.queue.Push(at, c.s.info.ByTrigger[t], arm)
}

func (c *reactionCtx) RequestStop(offset time.Duration) {
	c.s.requestStop(c.tag.Delay(offset))
}

func (c *reactionCtx) SpawnPhysicalSender() reactor.PhysicalSender {
	return &physicalSender{s: c.s}
}

// cleanupCtx is handed to CleanupTag; it carries nothing beyond the tag
// that just finished, since port/action cells are swept generically by
// the scheduler itself.
type cleanupCtx struct{ tag tag.Tag }

func (c cleanupCtx) Tag() tag.Tag { return c.tag }

// physicalSender lets a reaction hand out a capability usable from
// another goroutine to push a physical-action event through the async
// channel, without exposing the scheduler's internals.
type physicalSender struct{ s *Scheduler }

func (p *physicalSender) Send(trigger ids.TriggerID, arm func()) {
	at := p.s.physicalTagFloor()
	p.s.pushAsync(asyncEvent{tag: at, reactions: p.s.info.ByTrigger[trigger], arm: arm})
}
