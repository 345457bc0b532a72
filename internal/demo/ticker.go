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
	"sync"
	"time"

	"github.com/reactorflow/rtr/internal/action"
	"github.com/reactorflow/rtr/internal/assembly"
	"github.com/reactorflow/rtr/internal/ids"
	"github.com/reactorflow/rtr/internal/reactor"
	"github.com/reactorflow/rtr/internal/tag"
	"github.com/reactorflow/rtr/internal/timer"
)

// Ticker fires on a periodic, zero-offset timer and, from that same
// reaction, schedules a logical action at a fixed additional delay. It
// records every tag instant its two reactions observe, in arrival
// order, for asserting the interleave a timer and a same-reactor action
// produce: Tick's own firing is a timer-driven tag; Settle's firing is
// an action-driven tag delay later.
type Ticker struct {
	id ids.ReactorID

	clock  *timer.Timer
	settle *action.Action[struct{}]
	delay  time.Duration

	mu       sync.Mutex
	Instants []time.Duration
}

// NewTicker assembles a Ticker that fires every period starting at
// startup (offset zero) and schedules settle delay after each tick.
func NewTicker(c *assembly.Ctx, period, delay time.Duration) *Ticker {
	t := &Ticker{delay: delay}
	t.id = c.ReactorID()
	t.clock = assembly.NewTimer(c, "clock", 0, period)
	t.settle = assembly.NewLogicalAction[struct{}](c, "settle", 0)

	assembly.DeclareTriggers(c, 0, t.clock.ID())
	assembly.DeclareTriggers(c, 1, t.settle.ID())

	c.Finish(2, t)
	return t
}

func (t *Ticker) ID() ids.ReactorID { return t.id }

func (t *Ticker) React(ctx reactor.ReactionCtx, local ids.LocalReactionID) {
	switch local {
	case 0:
		t.record(ctx.Tag())
		at := t.settle.TargetTag(ctx.Tag(), t.delay)
		ctx.ScheduleEvent(t.settle.ID(), at, func() { t.settle.Arm(struct{}{}) })
	case 1:
		t.record(ctx.Tag())
	}
}

func (t *Ticker) record(tg tag.Tag) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Instants = append(t.Instants, tg.Instant)
}

func (t *Ticker) CleanupTag(reactor.CleanupCtx) {}

func (t *Ticker) EnqueueStartup(reactor.ReactionCtx)  {}
func (t *Ticker) EnqueueShutdown(reactor.ReactionCtx) {}

// BuildTicker assembles a single Ticker reactor as the whole program.
func BuildTicker(period, delay time.Duration) (*assembly.Builder, *Ticker, error) {
	var tk *Ticker
	b, err := assembly.Run("main", func(root *assembly.Ctx) (reactor.Behavior, error) {
		tk = NewTicker(root, period, delay)
		return tk, nil
	})
	return b, tk, err
}
