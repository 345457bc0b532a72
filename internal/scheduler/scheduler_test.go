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
	"sync"
	"testing"
	"time"

	"github.com/reactorflow/rtr/internal/action"
	"github.com/reactorflow/rtr/internal/assembly"
	"github.com/reactorflow/rtr/internal/ids"
	"github.com/reactorflow/rtr/internal/reactor"
	"github.com/reactorflow/rtr/internal/tag"
	"github.com/stretchr/testify/require"
)

// asyncRacer has a one-shot timer far enough out that a physical action
// fired from a background goroutine, shortly after startup, must be
// dispatched first: the event loop's sleep has to notice the async
// arrival and reorder around it rather than blindly waiting out the
// timer it was already sleeping on.
type asyncRacer struct {
	id ids.ReactorID

	ping *action.Action[struct{}]

	mu    sync.Mutex
	order []string
}

func newAsyncRacer(c *assembly.Ctx, timerDelay time.Duration) *asyncRacer {
	r := &asyncRacer{id: c.ReactorID()}
	r.ping = assembly.NewPhysicalAction[struct{}](c, "ping", 0)
	clock := assembly.NewTimer(c, "clock", timerDelay, 0)

	assembly.DeclareTriggers(c, 0, clock.ID())
	assembly.DeclareTriggers(c, 1, r.ping.ID())

	c.Finish(2, r)
	return r
}

func (r *asyncRacer) ID() ids.ReactorID { return r.id }

func (r *asyncRacer) React(ctx reactor.ReactionCtx, local ids.LocalReactionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch local {
	case 0:
		r.order = append(r.order, "timer")
	case 1:
		r.order = append(r.order, "async")
	}
}

func (r *asyncRacer) CleanupTag(reactor.CleanupCtx) {}

func (r *asyncRacer) EnqueueStartup(ctx reactor.ReactionCtx) {
	sender := ctx.SpawnPhysicalSender()
	go func() {
		time.Sleep(50 * time.Millisecond)
		sender.Send(r.ping.ID(), func() { r.ping.Arm(struct{}{}) })
	}()
}

func (r *asyncRacer) EnqueueShutdown(reactor.ReactionCtx) {}

// TestAsyncEventPreemptsSleepingTimer is the async-interrupt scenario:
// a queued event far in the future must not block a nearer async
// arrival from being dispatched first.
func TestAsyncEventPreemptsSleepingTimer(t *testing.T) {
	var racer *asyncRacer
	b, err := assembly.Run("main", func(root *assembly.Ctx) (reactor.Behavior, error) {
		racer = newAsyncRacer(root, 300*time.Millisecond)
		return racer, nil
	})
	require.NoError(t, err)

	require.NoError(t, RunMain(context.Background(), b, Options{}))

	require.Equal(t, []string{"async", "timer"}, racer.order)
}

// shutdownRacer requests a stop from two independent reactions at the
// startup tag, each with a different offset, and records the tag the
// shutdown wave actually ran at.
type shutdownRacer struct {
	id     ids.ReactorID
	offset time.Duration

	mu       *sync.Mutex
	observed *tag.Tag
}

func newShutdownRacer(c *assembly.Ctx, offset time.Duration, mu *sync.Mutex, observed *tag.Tag) *shutdownRacer {
	r := &shutdownRacer{id: c.ReactorID(), offset: offset, mu: mu, observed: observed}
	assembly.DeclareTriggers(c, 0, ids.Startup)
	assembly.DeclareTriggers(c, 1, ids.Shutdown)
	c.Finish(2, r)
	return r
}

func (r *shutdownRacer) ID() ids.ReactorID { return r.id }

func (r *shutdownRacer) React(ctx reactor.ReactionCtx, local ids.LocalReactionID) {
	switch local {
	case 0:
		ctx.RequestStop(r.offset)
	case 1:
		r.mu.Lock()
		defer r.mu.Unlock()
		*r.observed = ctx.Tag()
	}
}

func (r *shutdownRacer) CleanupTag(reactor.CleanupCtx) {}

func (r *shutdownRacer) EnqueueStartup(ctx reactor.ReactionCtx) { ctx.MarkTriggered(ids.Startup) }
func (r *shutdownRacer) EnqueueShutdown(ctx reactor.ReactionCtx) {
	ctx.MarkTriggered(ids.Shutdown)
}

// TestShutdownTakesEarliestRequestedTag is the shutdown-idempotence
// scenario: two reactions request a stop at the same startup tag with
// different offsets; the program must shut down once, at the earlier
// of the two requested tags.
func TestShutdownTakesEarliestRequestedTag(t *testing.T) {
	var mu sync.Mutex
	var observed tag.Tag

	b, err := assembly.Run("main", func(root *assembly.Ctx) (reactor.Behavior, error) {
		slow, err := assembly.WithChild(root, "slow", func(c *assembly.Ctx) (reactor.Behavior, error) {
			return newShutdownRacer(c, 50*time.Millisecond, &mu, &observed), nil
		})
		if err != nil {
			return nil, err
		}
		fast, err := assembly.WithChild(root, "fast", func(c *assembly.Ctx) (reactor.Behavior, error) {
			return newShutdownRacer(c, 10*time.Millisecond, &mu, &observed), nil
		})
		if err != nil {
			return nil, err
		}
		beh := &multiRoot{id: root.ReactorID(), children: []reactor.Behavior{slow, fast}}
		root.Finish(0, beh)
		return beh, nil
	})
	require.NoError(t, err)

	require.NoError(t, RunMain(context.Background(), b, Options{}))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, tag.Tag{Instant: 10 * time.Millisecond, Microstep: 0}, observed)
}

type multiRoot struct {
	id       ids.ReactorID
	children []reactor.Behavior
}

func (r *multiRoot) ID() ids.ReactorID                             { return r.id }
func (r *multiRoot) React(reactor.ReactionCtx, ids.LocalReactionID) {}
func (r *multiRoot) CleanupTag(reactor.CleanupCtx)                 {}
func (r *multiRoot) EnqueueStartup(reactor.ReactionCtx)            {}
func (r *multiRoot) EnqueueShutdown(reactor.ReactionCtx)           {}
