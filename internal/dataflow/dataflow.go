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

// Package dataflow turns an assembled Builder into the static indices the
// scheduler drives off of at run time: which reactions a trigger wakes
// and what level each reaction runs at. All of it is computed once, after
// assembly finishes and before the first tag is processed; a cycle
// anywhere in the precedence graph is a fatal assembly-time error, never
// a run time one.
package dataflow

import (
	"fmt"
	"sort"

	"github.com/reactorflow/rtr/internal/assembly"
	"github.com/reactorflow/rtr/internal/ids"
	"github.com/reactorflow/rtr/internal/timer"
)

// Batch is the set of reactions at a single level within one reaction's
// downstream closure, sorted for deterministic iteration.
type Batch []ids.GlobalReactionID

// Info is the full static index computed from one assembled program.
type Info struct {
	Levels    map[ids.GlobalReactionID]int
	ByTrigger map[ids.TriggerID][]ids.GlobalReactionID
	// Closure holds, for every reaction, the level-ordered batches of
	// every reaction transitively woken by its own port effects within
	// the same tag (spec.md §3's "pre-built ExecutableReactions of its
	// downstream closure"). The scheduler itself re-derives the same
	// reachable set incrementally via ByTrigger at dispatch time (see
	// reactionCtx.MarkTriggered); Closure is kept as the static,
	// assembly-time-validated artifact callers can inspect or use to
	// pre-size a tag's working set.
	Closure   map[ids.GlobalReactionID][]Batch
	EffectsOf map[ids.GlobalReactionID][]ids.TriggerID
	Timers    map[ids.TriggerID]*timer.Timer
	NumLevels int
}

// edge is a directed precedence arrow, reaction A before reaction B.
type edge struct{ from, to ids.GlobalReactionID }

// Compute validates and indexes the program assembled by b. It returns
// an *assembly.Error (CyclicDependency or CannotSet) if the program is
// invalid; the scheduler must not run a program Compute rejected.
func Compute(b *assembly.Builder) (*Info, error) {
	reactors := b.Reactors()
	counts := b.ReactionCounts()

	all := make([]ids.GlobalReactionID, 0)
	for rid := range reactors {
		for local := ids.LocalReactionID(0); local < counts[rid]; local++ {
			all = append(all, ids.NewGlobalReactionID(ids.ReactorID(rid), local))
		}
	}

	if err := checkCannotSet(b, all); err != nil {
		return nil, err
	}

	orderingEdges, closureEdges := buildEdges(b, counts, all)

	levels, err := assignLevels(all, orderingEdges)
	if err != nil {
		return nil, err
	}

	byTrigger := map[ids.TriggerID][]ids.GlobalReactionID{}
	for r, triggers := range b.TriggersOf() {
		for _, t := range triggers {
			root := b.Resolve(t)
			byTrigger[root] = append(byTrigger[root], r)
		}
	}
	for t := range byTrigger {
		sort.Slice(byTrigger[t], func(i, j int) bool { return byTrigger[t][i] < byTrigger[t][j] })
	}

	closure := computeClosures(all, closureEdges, byTrigger, levels)

	numLevels := 0
	for _, l := range levels {
		if l+1 > numLevels {
			numLevels = l + 1
		}
	}

	return &Info{
		Levels:    levels,
		ByTrigger: byTrigger,
		Closure:   closure,
		EffectsOf: b.EffectsOf(),
		Timers:    b.Timers(),
		NumLevels: numLevels,
	}, nil
}

// checkCannotSet rejects any reaction that declares an effect on a port
// which is not the root of its binding chain: such a port is never
// actually written by anyone, so a reaction "effecting" it could never
// observe its own write taking hold.
func checkCannotSet(b *assembly.Builder, all []ids.GlobalReactionID) error {
	for _, r := range all {
		for _, t := range b.EffectsOf()[r] {
			if b.Resolve(t) != t {
				return &assembly.Error{
					Kind:  assembly.CannotSet,
					Path:  b.Paths()[r.Reactor()],
					Cause: fmt.Errorf("reaction %s effects trigger %s, which is bound downstream of another port", r, t),
				}
			}
		}
	}
	return nil
}

// buildEdges derives two edge sets from the builder's raw trigger/effect
// indices:
//
//   - ordering edges, used only to compute each reaction's level: a port
//     effect edge (writer before every reader of the same root port) plus
//     an intra-reactor sequencing edge (reaction i before reaction i+1
//     within the same reactor, matching declaration order) so reactions
//     that merely happen to share a reactor but no data dependency still
//     get a stable relative order.
//   - closure edges, used to compute each reaction's downstream
//     ExecutableReactions set: port effect edges only. Intra-reactor
//     ordering must not drag unrelated reactions into a tag's working
//     set just because they live in the same reactor.
func buildEdges(b *assembly.Builder, counts []ids.LocalReactionID, all []ids.GlobalReactionID) ([]edge, []edge) {
	var ordering, closure []edge

	writersOf := map[ids.TriggerID][]ids.GlobalReactionID{}
	for _, r := range all {
		for _, t := range b.EffectsOf()[r] {
			writersOf[t] = append(writersOf[t], r)
		}
	}

	for _, r := range all {
		for _, t := range b.TriggersOf()[r] {
			root := b.Resolve(t)
			for _, w := range writersOf[root] {
				if w == r {
					continue
				}
				ordering = append(ordering, edge{from: w, to: r})
				closure = append(closure, edge{from: w, to: r})
			}
		}
	}

	for rid := range counts {
		for local := ids.LocalReactionID(1); local < counts[rid]; local++ {
			prev := ids.NewGlobalReactionID(ids.ReactorID(rid), local-1)
			cur := ids.NewGlobalReactionID(ids.ReactorID(rid), local)
			ordering = append(ordering, edge{from: prev, to: cur})
		}
	}

	return ordering, closure
}

// assignLevels runs Kahn's algorithm over the ordering edges: a
// reaction's level is one more than the longest chain of predecessors
// reaching it. A reaction with no predecessors sits at level 0.
func assignLevels(all []ids.GlobalReactionID, edges []edge) (map[ids.GlobalReactionID]int, error) {
	indegree := map[ids.GlobalReactionID]int{}
	adj := map[ids.GlobalReactionID][]ids.GlobalReactionID{}
	for _, r := range all {
		indegree[r] = 0
	}
	for _, e := range edges {
		adj[e.from] = append(adj[e.from], e.to)
		indegree[e.to]++
	}

	levels := map[ids.GlobalReactionID]int{}
	queue := make([]ids.GlobalReactionID, 0)
	for _, r := range all {
		if indegree[r] == 0 {
			queue = append(queue, r)
			levels[r] = 0
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i] < queue[j] })

	visited := 0
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range adj[r] {
			if levels[r]+1 > levels[next] {
				levels[next] = levels[r] + 1
			}
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if visited != len(all) {
		return nil, &assembly.Error{Kind: assembly.CyclicDependency, Path: "", Cause: fmt.Errorf("reaction precedence graph contains a cycle")}
	}
	return levels, nil
}

// computeClosures runs a BFS from every reaction over the closure edges
// (port-effect edges only) to find every reaction transitively woken by
// its own effects, then groups that set by level into dispatch batches.
func computeClosures(all []ids.GlobalReactionID, edges []edge, byTrigger map[ids.TriggerID][]ids.GlobalReactionID, levels map[ids.GlobalReactionID]int) map[ids.GlobalReactionID][]Batch {
	adj := map[ids.GlobalReactionID][]ids.GlobalReactionID{}
	for _, e := range edges {
		adj[e.from] = append(adj[e.from], e.to)
	}

	result := map[ids.GlobalReactionID][]Batch{}
	for _, r := range all {
		seen := map[ids.GlobalReactionID]bool{r: true}
		queue := []ids.GlobalReactionID{r}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, next := range adj[cur] {
				if !seen[next] {
					seen[next] = true
					queue = append(queue, next)
				}
			}
		}
		delete(seen, r)

		byLevel := map[int][]ids.GlobalReactionID{}
		var presentLevels []int
		for woken := range seen {
			lvl := levels[woken]
			if _, ok := byLevel[lvl]; !ok {
				presentLevels = append(presentLevels, lvl)
			}
			byLevel[lvl] = append(byLevel[lvl], woken)
		}
		sort.Ints(presentLevels)

		var batches []Batch
		for _, lvl := range presentLevels {
			b := Batch(byLevel[lvl])
			sort.Slice(b, func(i, j int) bool { return b[i] < b[j] })
			batches = append(batches, b)
		}
		result[r] = batches
	}
	return result
}
