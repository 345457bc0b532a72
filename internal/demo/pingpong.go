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

// Package demo holds small, handwritten reactor fixtures of the shape a
// surface compiler would emit. They exist to exercise the scheduler end
// to end in its own tests and from the cmd/reactorctl smoke harness; they
// are not part of the engine itself.
package demo

import (
	"sync/atomic"

	"github.com/reactorflow/rtr/internal/action"
	"github.com/reactorflow/rtr/internal/assembly"
	"github.com/reactorflow/rtr/internal/ids"
	"github.com/reactorflow/rtr/internal/port"
	"github.com/reactorflow/rtr/internal/reactor"
)

// Ping sends decreasing counter values and asks the loop to continue
// (via a self-scheduled logical action) until it has sent Total pings,
// then requests a stop.
type Ping struct {
	id ids.ReactorID

	SendOut  *port.Port[int]
	ReplyIn  *port.Port[int]
	serve    *action.Action[int]

	total      int
	pingsLeft  int
}

// NewPing assembles a Ping reactor under c that will send exactly total
// pings before requesting a stop.
func NewPing(c *assembly.Ctx, total int) *Ping {
	p := &Ping{
		id:        c.ReactorID(),
		SendOut:   assembly.NewPort[int](c, "send", port.Output),
		ReplyIn:   assembly.NewPort[int](c, "reply", port.Input),
		total:     total,
		pingsLeft: total,
	}
	p.serve = assembly.NewLogicalAction[int](c, "serve", 0)

	assembly.DeclareTriggers(c, 0, ids.Startup, p.serve.ID())
	assembly.EffectsPort(c, 0, p.SendOut)
	assembly.DeclareTriggers(c, 1, p.ReplyIn.ID())

	c.Finish(2, p)
	return p
}

func (p *Ping) ID() ids.ReactorID { return p.id }

func (p *Ping) React(ctx reactor.ReactionCtx, local ids.LocalReactionID) {
	switch local {
	case 0:
		if p.pingsLeft <= 0 {
			ctx.RequestStop(0)
			return
		}
		sendValue := p.pingsLeft
		p.pingsLeft--
		_ = p.SendOut.Set(sendValue)
		ctx.MarkTriggered(p.SendOut.ID())
	case 1:
		at := p.serve.TargetTag(ctx.Tag(), 0)
		ctx.ScheduleEvent(p.serve.ID(), at, func() { p.serve.Arm(0) })
	}
}

func (p *Ping) CleanupTag(reactor.CleanupCtx) {}

func (p *Ping) EnqueueStartup(ctx reactor.ReactionCtx) { ctx.MarkTriggered(ids.Startup) }
func (p *Ping) EnqueueShutdown(reactor.ReactionCtx)    {}

// Pong counts every ping it receives and echoes the value straight back.
// A CountReached callback, if set, is invoked from the Shutdown reaction
// with the final tally, for tests to observe without racing the
// scheduler's own goroutine.
type Pong struct {
	id ids.ReactorID

	RecvIn  *port.Port[int]
	EchoOut *port.Port[int]

	count        int64
	CountReached func(final int64)
}

// NewPong assembles a Pong reactor under c.
func NewPong(c *assembly.Ctx) *Pong {
	p := &Pong{
		id:      c.ReactorID(),
		RecvIn:  assembly.NewPort[int](c, "recv", port.Input),
		EchoOut: assembly.NewPort[int](c, "echo", port.Output),
	}

	assembly.DeclareTriggers(c, 0, p.RecvIn.ID())
	assembly.EffectsPort(c, 0, p.EchoOut)
	assembly.DeclareTriggers(c, 1, ids.Shutdown)

	c.Finish(2, p)
	return p
}

func (p *Pong) ID() ids.ReactorID { return p.id }

func (p *Pong) React(ctx reactor.ReactionCtx, local ids.LocalReactionID) {
	switch local {
	case 0:
		v, _ := p.RecvIn.Get()
		atomic.AddInt64(&p.count, 1)
		_ = p.EchoOut.Set(v)
		ctx.MarkTriggered(p.EchoOut.ID())
	case 1:
		if p.CountReached != nil {
			p.CountReached(atomic.LoadInt64(&p.count))
		}
	}
}

func (p *Pong) CleanupTag(reactor.CleanupCtx) {}

func (p *Pong) EnqueueStartup(reactor.ReactionCtx) {}
func (p *Pong) EnqueueShutdown(ctx reactor.ReactionCtx) {
	ctx.MarkTriggered(ids.Shutdown)
}

// BuildPingPong assembles the two-reactor ping-pong program under one
// root, wiring send/reply in parent scope as spec requires.
func BuildPingPong(total int) (*assembly.Builder, *Ping, *Pong, error) {
	var ping *Ping
	var pong *Pong
	b, err := assembly.Run("main", func(root *assembly.Ctx) (reactor.Behavior, error) {
		pingBeh, err := assembly.WithChild(root, "ping", func(c *assembly.Ctx) (reactor.Behavior, error) {
			ping = NewPing(c, total)
			return ping, nil
		})
		if err != nil {
			return nil, err
		}
		pongBeh, err := assembly.WithChild(root, "pong", func(c *assembly.Ctx) (reactor.Behavior, error) {
			pong = NewPong(c)
			return pong, nil
		})
		if err != nil {
			return nil, err
		}

		if err := assembly.BindPort(root, ping.SendOut, pong.RecvIn); err != nil {
			return nil, err
		}
		if err := assembly.BindPort(root, pong.EchoOut, ping.ReplyIn); err != nil {
			return nil, err
		}

		beh := &passthroughRoot{id: root.ReactorID(), children: []reactor.Behavior{pingBeh, pongBeh}}
		root.Finish(0, beh)
		return beh, nil
	})
	return b, ping, pong, err
}

// passthroughRoot is the trivial "composition" reactor: it declares no
// reactions of its own and exists only so the assembler has a root
// Behavior to register; all real work happens in its children.
type passthroughRoot struct {
	id       ids.ReactorID
	children []reactor.Behavior
}

func (r *passthroughRoot) ID() ids.ReactorID                           { return r.id }
func (r *passthroughRoot) React(reactor.ReactionCtx, ids.LocalReactionID) {}
func (r *passthroughRoot) CleanupTag(reactor.CleanupCtx)                {}
func (r *passthroughRoot) EnqueueStartup(reactor.ReactionCtx)           {}
func (r *passthroughRoot) EnqueueShutdown(reactor.ReactionCtx)          {}
