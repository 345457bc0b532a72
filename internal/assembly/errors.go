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

import "fmt"

// Kind taxonomizes the ways a program can fail to assemble. All are
// fatal: they abort RunMain before any reaction runs.
type Kind int

const (
	// CannotBind: the downstream port already has an upstream, or the
	// bind's kind/topology combination is illegal. Exactly one kind
	// pairing is legal per relationship: input->output within one
	// reactor, input->input parent-to-child, output->output
	// child-to-parent, output->input across siblings. Every other
	// combination (e.g. output->output parent-to-child, input->input
	// child-to-parent) is a CannotBind.
	CannotBind Kind = iota
	// CyclicDependency: adding the edge would create a cycle in the
	// reaction-precedence graph.
	CyclicDependency
	// CannotSet: a reaction declares an effect on a port that is bound
	// downstream of another port (and so is never a write root).
	CannotSet
	// DuplicateName: two reactors were assembled under the same path.
	// Trigger names are not checked. Run also reports a reactor that was
	// allocated but never Finish'd under this kind.
	DuplicateName
)

func (k Kind) String() string {
	switch k {
	case CannotBind:
		return "CannotBind"
	case CyclicDependency:
		return "CyclicDependency"
	case CannotSet:
		return "CannotSet"
	case DuplicateName:
		return "DuplicateName"
	default:
		return "UnknownAssemblyError"
	}
}

// Error is the taxonomized, path-annotated error the assembler raises.
// It satisfies errors.As-style matching via Is, and Unwrap for any
// wrapped cause.
type Error struct {
	Kind  Kind
	Path  string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("assembly: %s at %q: %v", e.Kind, e.Path, e.Cause)
	}
	return fmt.Sprintf("assembly: %s at %q", e.Kind, e.Path)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, &Error{Kind: CannotBind}) match any Error of
// the same Kind regardless of Path/Cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, path string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Cause: cause}
}
