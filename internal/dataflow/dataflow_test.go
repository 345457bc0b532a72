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

package dataflow

import (
	"testing"

	"github.com/reactorflow/rtr/internal/assembly"
	"github.com/reactorflow/rtr/internal/ids"
	"github.com/reactorflow/rtr/internal/port"
	"github.com/reactorflow/rtr/internal/reactor"
	"github.com/stretchr/testify/require"
)

type noop struct{ id ids.ReactorID }

func (n *noop) ID() ids.ReactorID                                  { return n.id }
func (n *noop) React(reactor.ReactionCtx, ids.LocalReactionID)      {}
func (n *noop) CleanupTag(reactor.CleanupCtx)                       {}
func (n *noop) EnqueueStartup(reactor.ReactionCtx)                  {}
func (n *noop) EnqueueShutdown(reactor.ReactionCtx)                 {}

// chain assembles a single reactor with 3 reactions: reaction 0 effects
// an input port passed straight through to an output port of the same
// reactor, which triggers reaction 1; reaction 1 effects a second such
// pair, triggering reaction 2.
func chain(t *testing.T) *assembly.Builder {
	t.Helper()
	b, err := assembly.Run("main", func(c *assembly.Ctx) (reactor.Behavior, error) {
		up0 := assembly.NewPort[int](c, "up0", port.Input)
		down1 := assembly.NewPort[int](c, "down1", port.Output)
		require.NoError(t, assembly.BindPort(c, up0, down1))

		up1 := assembly.NewPort[int](c, "up1", port.Input)
		down2 := assembly.NewPort[int](c, "down2", port.Output)
		require.NoError(t, assembly.BindPort(c, up1, down2))

		assembly.EffectsPort(c, 0, up0)
		assembly.DeclareTriggers(c, 1, down1.ID())
		assembly.EffectsPort(c, 1, up1)
		assembly.DeclareTriggers(c, 2, down2.ID())

		beh := &noop{id: c.ReactorID()}
		c.Finish(3, beh)
		return beh, nil
	})
	require.NoError(t, err)
	return b
}

func TestComputeAssignsIncreasingLevelsAlongChain(t *testing.T) {
	b := chain(t)
	info, err := Compute(b)
	require.NoError(t, err)

	r0 := ids.NewGlobalReactionID(0, 0)
	r1 := ids.NewGlobalReactionID(0, 1)
	r2 := ids.NewGlobalReactionID(0, 2)

	require.Equal(t, 0, info.Levels[r0])
	require.Equal(t, 1, info.Levels[r1])
	require.Equal(t, 2, info.Levels[r2])
	require.Equal(t, 3, info.NumLevels)
}

func TestComputeClosureFollowsPortEffectsOnly(t *testing.T) {
	b := chain(t)
	info, err := Compute(b)
	require.NoError(t, err)

	r0 := ids.NewGlobalReactionID(0, 0)
	r1 := ids.NewGlobalReactionID(0, 1)
	r2 := ids.NewGlobalReactionID(0, 2)

	batches := info.Closure[r0]
	require.Len(t, batches, 2)
	require.Equal(t, Batch{r1}, batches[0])
	require.Equal(t, Batch{r2}, batches[1])
}

func TestComputeRejectsCannotSet(t *testing.T) {
	b, err := assembly.Run("main", func(c *assembly.Ctx) (reactor.Behavior, error) {
		up := assembly.NewPort[int](c, "up", port.Input)
		down := assembly.NewPort[int](c, "down", port.Output)
		require.NoError(t, assembly.BindPort(c, up, down))
		// Illegally declare an effect on down, which is bound downstream.
		assembly.EffectsPort(c, 0, down)
		beh := &noop{id: c.ReactorID()}
		c.Finish(1, beh)
		return beh, nil
	})
	require.NoError(t, err)

	_, err = Compute(b)
	require.Error(t, err)
	var aerr *assembly.Error
	require.ErrorAs(t, err, &aerr)
	require.Equal(t, assembly.CannotSet, aerr.Kind)
}

func TestComputeRejectsCyclicReactionGraph(t *testing.T) {
	b, err := assembly.Run("main", func(c *assembly.Ctx) (reactor.Behavior, error) {
		pA := assembly.NewPort[int](c, "a", port.Output)
		pB := assembly.NewPort[int](c, "b", port.Output)

		// Reaction 0 triggers on pB and effects pA; reaction 1 triggers
		// on pA and effects pB: a two-node cycle in the precedence graph
		// even though the ports themselves never alias each other.
		assembly.DeclareTriggers(c, 0, pB.ID())
		assembly.EffectsPort(c, 0, pA)
		assembly.DeclareTriggers(c, 1, pA.ID())
		assembly.EffectsPort(c, 1, pB)

		beh := &noop{id: c.ReactorID()}
		c.Finish(2, beh)
		return beh, nil
	})
	require.NoError(t, err)

	_, err = Compute(b)
	require.Error(t, err)
	var aerr *assembly.Error
	require.ErrorAs(t, err, &aerr)
	require.Equal(t, assembly.CyclicDependency, aerr.Kind)
}

func TestComputeIndexesByTriggerThroughBinding(t *testing.T) {
	b := chain(t)
	info, err := Compute(b)
	require.NoError(t, err)

	r1 := ids.NewGlobalReactionID(0, 1)
	up0ID := ids.TriggerID(2) // first allocated trigger id in chain()
	require.Contains(t, info.ByTrigger[up0ID], r1)
}
