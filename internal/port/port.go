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

// Package port implements the transient, bindable value cells reactions
// read and write. A port's value only exists for the duration of the tag
// it was written in; bound ports form an alias chain rooted at the one
// port in the chain that is actually written.
package port

import (
	"github.com/reactorflow/rtr/internal/cell"
	"github.com/reactorflow/rtr/internal/ids"
)

// Kind distinguishes an input port from an output port. The assembler
// uses it to validate connection legality; the port itself does not
// behave differently by kind.
type Kind int

const (
	Input Kind = iota
	Output
)

func (k Kind) String() string {
	if k == Input {
		return "input"
	}
	return "output"
}

// Handle is the type-erased view of a port's backing cell, used by the
// scheduler to clear every present value at tag cleanup regardless of
// element type.
type Handle = cell.Handle

// Port is the typed handle a reactor holds for one of its declared ports.
// It may be bound downstream-to-upstream, forming an alias chain; only
// the chain's root (the port with no Upstream) ever has its own cell
// written to directly.
type Port[T any] struct {
	id        ids.TriggerID
	kind      Kind
	ownerPath string
	cell      *cell.Value[T]
	upstream  *Port[T]
}

// New constructs an unbound port backed by its own cell, declared by the
// reactor at ownerPath. ownerPath is the assembler's dotted path for the
// declaring reactor; the assembler uses it to classify a bind's topology
// (same reactor, parent-to-child, child-to-parent, siblings) when
// validating kind compatibility.
func New[T any](id ids.TriggerID, kind Kind, ownerPath string) *Port[T] {
	return &Port[T]{id: id, kind: kind, ownerPath: ownerPath, cell: cell.New[T](id)}
}

// ID returns the port's trigger id.
func (p *Port[T]) ID() ids.TriggerID { return p.id }

// Kind returns input/output.
func (p *Port[T]) Kind() Kind { return p.kind }

// OwnerPath returns the assembly path of the reactor that declared this
// port.
func (p *Port[T]) OwnerPath() string { return p.ownerPath }

// Bound reports whether this port already has an upstream.
func (p *Port[T]) Bound() bool { return p.upstream != nil }

// Upstream returns this port's immediate predecessor, or nil if p is a
// root. Used by the assembler to walk a chain before binding, so it can
// reject a bind that would close a cycle.
func (p *Port[T]) Upstream() *Port[T] { return p.upstream }

// Root follows the binding chain to the port that actually owns a
// writable cell.
func (p *Port[T]) Root() *Port[T] {
	r := p
	for r.upstream != nil {
		r = r.upstream
	}
	return r
}

// Handle returns the type-erased handle of this port's root cell, for
// registration with the scheduler's per-tag cleanup sweep. Only the
// port that owns the cell (the ultimate root created by New) should be
// registered; bound ports share their root's handle.
func (p *Port[T]) Handle() Handle { return p.Root().cell }

// Bind attaches upstream as this port's immediate predecessor in the
// alias chain. It is the runtime-side half of binding; the assembler is
// responsible for validating the forest property (no cycles, one
// upstream per downstream) before calling this.
func (p *Port[T]) Bind(upstream *Port[T]) error {
	if p.upstream != nil {
		return ErrAlreadyBound
	}
	p.upstream = upstream
	return nil
}

// Get reads the current value following the binding chain to its root.
// The boolean is false if nothing was written to the root this tag.
func (p *Port[T]) Get() (T, bool) {
	return p.Root().cell.Get()
}

// Set writes a value to this port's root cell. It must only be called
// when p IS the root (downstream-bound ports are never writable
// directly); the assembler rejects programs that declare an effect on a
// bound-downstream port, so getting ErrCannotSet back here is a runtime
// bug, not a user error.
func (p *Port[T]) Set(v T) error {
	if p.upstream != nil {
		return ErrCannotSet
	}
	p.cell.Set(v)
	return nil
}
