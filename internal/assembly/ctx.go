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

// Package assembly is where generated reactor constructors run. A Ctx is
// handed to each reactor's assemble function; it allocates the reactor's
// ports, actions, timers and reaction declarations against a shared
// Builder, the same way dagu's DAG builder accumulates one shared graph
// across a tree of step definitions.
package assembly

import (
	"fmt"
	"strings"
	"time"

	"github.com/reactorflow/rtr/internal/action"
	"github.com/reactorflow/rtr/internal/ids"
	"github.com/reactorflow/rtr/internal/port"
	"github.com/reactorflow/rtr/internal/reactor"
	"github.com/reactorflow/rtr/internal/timer"
)

// Ctx is the assembly-time handle for exactly one reactor instance. It is
// only valid during that reactor's assemble call; nothing about it should
// be retained past Finish.
type Ctx struct {
	b         *Builder
	reactorID ids.ReactorID
	path      string
}

// NewRootCtx starts a fresh assembly: a new Builder and the Ctx for the
// program's single top-level reactor.
func NewRootCtx(name string) (*Ctx, *Builder) {
	b := NewBuilder()
	id, err := b.allocateReactorID(name)
	if err != nil {
		// The builder is freshly minted; a name collision at the root is
		// unreachable.
		panic(err)
	}
	return &Ctx{b: b, reactorID: id, path: name}, b
}

// Path returns the dotted assembly path of the reactor this Ctx belongs
// to, for diagnostics and child naming.
func (c *Ctx) Path() string { return c.path }

// ReactorID returns the id the builder allocated for this reactor.
func (c *Ctx) ReactorID() ids.ReactorID { return c.reactorID }

// child allocates a nested Ctx for a contained reactor named name,
// scoped under this Ctx's path.
func (c *Ctx) child(name string) (*Ctx, error) {
	path := c.path + "." + name
	id, err := c.b.allocateReactorID(path)
	if err != nil {
		return nil, err
	}
	return &Ctx{b: c.b, reactorID: id, path: path}, nil
}

// WithChild assembles one contained reactor under parent, named name.
// assemble is handed the child's own Ctx and must call Finish on it
// before returning.
func WithChild(parent *Ctx, name string, assemble func(child *Ctx) (reactor.Behavior, error)) (reactor.Behavior, error) {
	child, err := parent.child(name)
	if err != nil {
		return nil, err
	}
	return assemble(child)
}

// Finish registers behavior as the fully-assembled reactor for c, along
// with the number of reactions it declares. Every Ctx, root or child,
// must be Finish'd exactly once.
func (c *Ctx) Finish(reactionCount ids.LocalReactionID, behavior reactor.Behavior) {
	c.b.finishReactor(c.reactorID, reactionCount, behavior)
}

// NewPort declares a port of kind Input or Output. name is not recorded
// anywhere. The returned port starts unbound and absent.
func NewPort[T any](c *Ctx, name string, kind port.Kind) *port.Port[T] {
	id := c.b.allocateTriggerID()
	p := port.New[T](id, kind, c.path)
	c.b.registerPortResolver(id, func() ids.TriggerID { return p.Root().ID() })
	c.b.registerCleanup(p.Handle())
	return p
}

// NewLogicalAction declares a logical action with the given minimum
// delay. Logical actions are scheduled relative to the scheduling
// reaction's current logical tag.
func NewLogicalAction[T any](c *Ctx, name string, minDelay time.Duration) *action.Action[T] {
	id := c.b.allocateTriggerID()
	a := action.NewLogical[T](id, minDelay)
	c.b.registerCleanup(a.Handle())
	return a
}

// NewPhysicalAction declares a physical action with the given minimum
// delay. Physical actions are scheduled relative to the physical clock
// and may be armed from outside the scheduler goroutine.
func NewPhysicalAction[T any](c *Ctx, name string, minDelay time.Duration) *action.Action[T] {
	id := c.b.allocateTriggerID()
	a := action.NewPhysical[T](id, minDelay)
	c.b.registerCleanup(a.Handle())
	return a
}

// NewTimer declares a timer that first fires offset after startup and,
// if period is nonzero, every period thereafter.
func NewTimer(c *Ctx, name string, offset, period time.Duration) *timer.Timer {
	id := c.b.allocateTriggerID()
	t := timer.New(id, offset, period)
	c.b.registerTimer(t)
	return t
}

// DeclareTriggers records that reaction local, within c's reactor, is
// triggered by every id in triggers.
func DeclareTriggers(c *Ctx, local ids.LocalReactionID, triggers ...ids.TriggerID) {
	c.b.declareTriggers(ids.NewGlobalReactionID(c.reactorID, local), triggers...)
}

// EffectsPort records that reaction local, within c's reactor, is
// allowed to set p. The finalize pass rejects the program if p turns
// out not to be the root of its binding chain.
func EffectsPort[T any](c *Ctx, local ids.LocalReactionID, p *port.Port[T]) {
	c.b.declareEffect(ids.NewGlobalReactionID(c.reactorID, local), p.ID())
}

// BindPortsZip binds downstreams[i] to upstreams[i] for every i. It
// rejects a length mismatch, a downstream that is already bound, and any
// bind that would close a cycle in the port forest.
func BindPortsZip[T any](c *Ctx, upstreams, downstreams []*port.Port[T]) error {
	if len(upstreams) != len(downstreams) {
		return newErr(CannotBind, c.path, fmt.Errorf("zip length mismatch: %d upstreams, %d downstreams", len(upstreams), len(downstreams)))
	}
	for i, d := range downstreams {
		if err := BindPort(c, upstreams[i], d); err != nil {
			return err
		}
	}
	return nil
}

// BindPort binds downstream to upstream, the single-pair form of
// BindPortsZip.
func BindPort[T any](c *Ctx, upstream, downstream *port.Port[T]) error {
	if downstream.Bound() {
		return newErr(CannotBind, c.path, port.ErrAlreadyBound)
	}
	for anc := upstream; anc != nil; anc = anc.Upstream() {
		if anc == downstream {
			return newErr(CyclicDependency, c.path, fmt.Errorf("binding port#%d to port#%d would close a cycle", downstream.ID(), upstream.ID()))
		}
	}
	if err := checkBindKinds(upstream, downstream); err != nil {
		return newErr(CannotBind, c.path, err)
	}
	if err := downstream.Bind(upstream); err != nil {
		return newErr(CannotBind, c.path, err)
	}
	return nil
}

// treeRelation classifies how two reactors' assembly paths relate, as
// seen by whichever reactor scope declared the connection between them.
type treeRelation int

const (
	relSameReactor treeRelation = iota
	relParentToChild
	relChildToParent
	relSiblings
	relUnrelated
)

// parentPath returns path's immediate parent in the dotted assembly
// tree, or false if path is already a root.
func parentPath(path string) (string, bool) {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return "", false
	}
	return path[:i], true
}

func classifyRelation(a, b string) treeRelation {
	if a == b {
		return relSameReactor
	}
	if p, ok := parentPath(b); ok && p == a {
		return relParentToChild
	}
	if p, ok := parentPath(a); ok && p == b {
		return relChildToParent
	}
	if pa, aok := parentPath(a); aok {
		if pb, bok := parentPath(b); bok && pa == pb {
			return relSiblings
		}
	}
	return relUnrelated
}

// checkBindKinds validates that a port bind's kinds are legal for its
// position in the assembly tree. Exactly one kind pairing is legal per
// relationship:
//   - same reactor: an input port passed straight through to an output
//     port of that same reactor;
//   - parent-to-child: a reactor's own input port delegated down into a
//     direct child's input port;
//   - child-to-parent: a direct child's output port bubbled up to its
//     parent's own output port;
//   - siblings: one direct child's output port wired to another direct
//     child's input port.
//
// Every other kind/topology combination is rejected.
func checkBindKinds[T any](upstream, downstream *port.Port[T]) error {
	uk, dk := upstream.Kind(), downstream.Kind()
	legal := false
	switch classifyRelation(upstream.OwnerPath(), downstream.OwnerPath()) {
	case relSameReactor:
		legal = uk == port.Input && dk == port.Output
	case relParentToChild:
		legal = uk == port.Input && dk == port.Input
	case relChildToParent:
		legal = uk == port.Output && dk == port.Output
	case relSiblings:
		legal = uk == port.Output && dk == port.Input
	}
	if legal {
		return nil
	}
	return fmt.Errorf("illegal bind: %s port#%d (%s) -> %s port#%d (%s)",
		uk, upstream.ID(), upstream.OwnerPath(), dk, downstream.ID(), downstream.OwnerPath())
}

// Run assembles the whole program from its single root reactor and
// returns the finished Builder, ready for dataflow.Compute. assemble is
// handed the root Ctx and must call Finish before returning.
func Run(rootName string, assemble func(root *Ctx) (reactor.Behavior, error)) (*Builder, error) {
	root, b := NewRootCtx(rootName)
	if _, err := assemble(root); err != nil {
		return nil, err
	}
	for i, r := range b.Reactors() {
		if r == nil {
			return nil, newErr(DuplicateName, b.Paths()[i], fmt.Errorf("reactor %q assembled but never Finish'd", b.Paths()[i]))
		}
	}
	return b, nil
}
