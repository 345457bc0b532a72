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
	"context"

	"github.com/reactorflow/rtr/internal/assembly"
	"github.com/reactorflow/rtr/internal/dataflow"
	"github.com/reactorflow/rtr/internal/reactor"
)

// RunMain is the process-level entry point: it validates and indexes an
// already-assembled program, builds the reactor pool, and runs it to
// completion under opts. A non-nil error means assembly rejected the
// program (an *assembly.Error); nothing ran.
func RunMain(ctx context.Context, b *assembly.Builder, opts Options) error {
	info, err := dataflow.Compute(b)
	if err != nil {
		return err
	}

	pool := reactor.NewPool(b.Reactors())
	handles := make([]handle, len(b.CleanupHandles()))
	for i, h := range b.CleanupHandles() {
		handles[i] = h
	}

	s := New(pool, info, handles, opts)
	return s.Run(ctx)
}
