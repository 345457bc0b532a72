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

package port

import "errors"

var (
	// ErrAlreadyBound is returned by Bind when the downstream port
	// already has an upstream (the forest property forbids a second).
	ErrAlreadyBound = errors.New("port: downstream already bound to an upstream")
	// ErrCannotSet is returned by Set when called on a port that is not
	// the root of its binding chain. The assembler should have already
	// rejected any program that declares such an effect; seeing this at
	// runtime indicates a generator or runtime bug.
	ErrCannotSet = errors.New("port: cannot set a port that is bound downstream of another")
)
