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

package demo

import (
	"fmt"
	"sync/atomic"

	"github.com/reactorflow/rtr/internal/assembly"
	"github.com/reactorflow/rtr/internal/ids"
	"github.com/reactorflow/rtr/internal/port"
	"github.com/reactorflow/rtr/internal/reactor"
)

// Precedence is a single reactor with two reactions joined by one port:
// reaction 0 writes Mid, reaction 1 triggers off it and records, via
// Observed, the sequence number reaction 0 had reached when it last ran.
// Because the port-effect edge puts reaction 1 at a strictly higher
// level than reaction 0, a worker pool with Workers > 1 must still run
// reaction 0 to completion before reaction 1 starts within the same
// tag: Observed should never trail Sequence by more than the write that
// just happened.
type Precedence struct {
	id ids.ReactorID

	Mid *port.Port[int64]

	sequence int64
	Observed []int64
}

// NewPrecedence assembles a Precedence reactor under c. Every startup
// tag, reaction 0 increments the sequence counter and writes it to Mid;
// reaction 1 appends whatever it reads back to Observed.
func NewPrecedence(c *assembly.Ctx) *Precedence {
	p := &Precedence{
		id:  c.ReactorID(),
		Mid: assembly.NewPort[int64](c, "mid", port.Output),
	}

	assembly.DeclareTriggers(c, 0, ids.Startup)
	assembly.EffectsPort(c, 0, p.Mid)
	assembly.DeclareTriggers(c, 1, p.Mid.ID())

	c.Finish(2, p)
	return p
}

func (p *Precedence) ID() ids.ReactorID { return p.id }

func (p *Precedence) React(ctx reactor.ReactionCtx, local ids.LocalReactionID) {
	switch local {
	case 0:
		next := atomic.AddInt64(&p.sequence, 1)
		_ = p.Mid.Set(next)
		ctx.MarkTriggered(p.Mid.ID())
	case 1:
		v, _ := p.Mid.Get()
		p.Observed = append(p.Observed, v)
	}
}

func (p *Precedence) CleanupTag(reactor.CleanupCtx) {}

func (p *Precedence) EnqueueStartup(ctx reactor.ReactionCtx) { ctx.MarkTriggered(ids.Startup) }
func (p *Precedence) EnqueueShutdown(reactor.ReactionCtx)    {}

// BuildPrecedenceFleet assembles n independent Precedence reactors as
// children of one root, so a single startup tag's level-0 batch holds n
// reaction-0's and its level-1 batch holds n reaction-1's: the shape
// needed to exercise the precedence guarantee under a parallel worker
// pool (Workers > 1), not just a single disjoint pair.
func BuildPrecedenceFleet(n int) (*assembly.Builder, []*Precedence, error) {
	fleet := make([]*Precedence, n)
	b, err := assembly.Run("main", func(root *assembly.Ctx) (reactor.Behavior, error) {
		children := make([]reactor.Behavior, n)
		for i := 0; i < n; i++ {
			i := i
			beh, err := assembly.WithChild(root, fmt.Sprintf("p%d", i), func(c *assembly.Ctx) (reactor.Behavior, error) {
				fleet[i] = NewPrecedence(c)
				return fleet[i], nil
			})
			if err != nil {
				return nil, err
			}
			children[i] = beh
		}
		beh := &passthroughRoot{id: root.ReactorID(), children: children}
		root.Finish(0, beh)
		return beh, nil
	})
	return b, fleet, err
}
