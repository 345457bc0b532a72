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

// Package scheduler implements the event loop: tag selection, physical
// time catchup, asynchronous (physical-action) integration, and the
// per-tag dispatch of reactions level by level. It is the component that
// ties the static dataflow.Info and a reactor.Pool together into a
// running program.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reactorflow/rtr/internal/dataflow"
	"github.com/reactorflow/rtr/internal/equeue"
	"github.com/reactorflow/rtr/internal/ids"
	"github.com/reactorflow/rtr/internal/reactor"
	"github.com/reactorflow/rtr/internal/tag"
	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/reactorflow/rtr/internal/scheduler")

// Options configures one RunMain invocation.
type Options struct {
	// KeepAlive makes the event loop block on the async channel instead
	// of exiting when the queue drains, waiting for a physical action or
	// the timeout (if set).
	KeepAlive bool
	// Timeout, if positive, sets shutdown_time = initial_time + Timeout.
	// Events with a later tag are dropped.
	Timeout time.Duration
	// Workers controls batch parallelism: <=1 runs each batch
	// sequentially on the event-loop goroutine; >1 partitions the batch
	// across an errgroup with SetLimit(Workers). Zero means "use
	// Workers<=1 (sequential)" UNLESS AutoWorkers is also set.
	Workers int
	// AutoWorkers, when true and Workers==0, sizes Workers from the
	// host's logical core count via gopsutil at RunMain starttime.
	AutoWorkers bool
	// Logger receives structured lifecycle events. A nil Logger falls
	// back to slog.Default().
	Logger *slog.Logger
}

func (o Options) resolveWorkers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	if o.AutoWorkers {
		n, err := cpu.Counts(true)
		if err == nil && n > 0 {
			return n
		}
	}
	return 1
}

// asyncEvent is what crosses the async boundary: a physical-action
// producer's tag, the reactions it wakes, and an arm thunk to run first.
type asyncEvent struct {
	tag       tag.Tag
	reactions []ids.GlobalReactionID
	arm       func()
}

// Scheduler owns the reactor pool, the static dataflow info, the event
// queue, and the async channel for one program run.
type Scheduler struct {
	pool    *reactor.Pool
	info    *dataflow.Info
	queue   *equeue.Queue
	cleanup []handle
	opts    Options
	log     *slog.Logger

	asyncCh chan asyncEvent

	runID string

	mu                 sync.Mutex
	startPhysical      time.Time
	latestProcessedTag tag.Tag
	shutdownTime       *tag.Tag
}

// handle is the minimal cleanup capability a port/action cell exposes;
// cell.Handle values satisfy it structurally.
type handle interface {
	Clear()
}

// New constructs a scheduler over an already-assembled program. cleanup
// is every port/action cell handle in the program, swept after each tag.
func New(pool *reactor.Pool, info *dataflow.Info, cleanup []handle, opts Options) *Scheduler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		pool:    pool,
		info:    info,
		queue:   equeue.New(),
		cleanup: cleanup,
		opts:    opts,
		log:     log,
		runID:   uuid.NewString(),
		asyncCh: make(chan asyncEvent, 1024),
	}
}

// Run executes the program to completion: startup wave, main loop,
// shutdown wave. It returns only once the shutdown wave has finished.
func (s *Scheduler) Run(ctx context.Context) error {
	s.opts.Workers = s.opts.resolveWorkers()
	s.startPhysical = time.Now()
	s.setLatestProcessedTag(tag.Zero)

	if s.opts.Timeout > 0 {
		deadline := tag.Tag{Instant: s.opts.Timeout, Microstep: 0}
		s.shutdownTime = &deadline
	}

	startupRoot := map[ids.GlobalReactionID]bool{}
	for _, r := range s.info.ByTrigger[ids.Startup] {
		startupRoot[r] = true
	}

	// Timers whose first fire lands exactly at tag zero are part of the
	// startup wave itself, not a separately queued event; timers with a
	// positive offset are scheduled normally through the queue.
	var startupArms []func()
	for _, t := range s.info.Timers {
		t := t
		first := t.FirstFire()
		if first == tag.Zero {
			for _, r := range s.info.ByTrigger[t.ID()] {
				startupRoot[r] = true
			}
			startupArms = append(startupArms, func() {
				if next, ok := t.NextFire(first); ok {
					s.scheduleTimer(t.ID(), next)
				}
			})
			continue
		}
		s.scheduleTimer(t.ID(), first)
	}

	for _, beh := range s.pool.All() {
		beh.EnqueueStartup(&startupCollector{s: s, set: startupRoot})
	}

	s.log.Info("scheduler startup wave", "run_id", s.runID)
	for _, arm := range startupArms {
		arm()
	}
	s.runWave(ctx, tag.Zero, startupRoot)

	s.mainLoop(ctx)

	shutdownAt := s.getLatestProcessedTag()
	if s.shutdownTime != nil && s.shutdownTime.After(shutdownAt) {
		shutdownAt = *s.shutdownTime
	}
	s.log.Info("scheduler shutdown wave", "run_id", s.runID, "tag", shutdownAt.String())
	s.runWave(ctx, shutdownAt, s.shutdownReactions())

	return nil
}

func (s *Scheduler) shutdownReactions() map[ids.GlobalReactionID]bool {
	set := map[ids.GlobalReactionID]bool{}
	for _, r := range s.info.ByTrigger[ids.Shutdown] {
		set[r] = true
	}
	for _, beh := range s.pool.All() {
		sc := &startupCollector{s: s, set: set}
		beh.EnqueueShutdown(sc)
	}
	return set
}

// startupCollector is a minimal reactor.ReactionCtx usable from
// EnqueueStartup/EnqueueShutdown, before any tag processing begins: it
// only supports MarkTriggered, which is all those two hooks need.
type startupCollector struct {
	s   *Scheduler
	set map[ids.GlobalReactionID]bool
}

func (c *startupCollector) Tag() tag.Tag         { return tag.Zero }
func (c *startupCollector) PhysicalTag() tag.Tag { return c.s.physicalTagFloor() }
func (c *startupCollector) Reaction() ids.GlobalReactionID {
	return ids.NewGlobalReactionID(0, 0)
}
func (c *startupCollector) DeclaresEffect(ids.TriggerID) bool { return false }
func (c *startupCollector) MarkTriggered(t ids.TriggerID) {
	for _, r := range c.s.info.ByTrigger[t] {
		c.set[r] = true
	}
}
func (c *startupCollector) ScheduleEvent(t ids.TriggerID, at tag.Tag, arm func()) {
	c.s.queue.Push(at, c.s.info.ByTrigger[t], arm)
}
func (c *startupCollector) RequestStop(offset time.Duration) {
	c.s.requestStop(tag.Zero.Delay(offset))
}
func (c *startupCollector) SpawnPhysicalSender() reactor.PhysicalSender {
	return &physicalSender{s: c.s}
}

func (s *Scheduler) scheduleTimer(id ids.TriggerID, at tag.Tag) {
	reactions := s.info.ByTrigger[id]
	timers := s.info.Timers
	s.queue.Push(at, reactions, func() {
		t := timers[id]
		if next, ok := t.NextFire(at); ok {
			s.scheduleTimer(id, next)
		}
	})
}

// mainLoop implements §4.3: drain async, take earliest, sleep
// interruptibly, dispatch, repeat; block on keep-alive when empty.
func (s *Scheduler) mainLoop(ctx context.Context) {
	for {
		s.drainAsyncNonBlocking()

		e, ok := s.queue.TakeEarliest()
		if !ok {
			if !s.opts.KeepAlive {
				return
			}
			if !s.blockForAsync(ctx) {
				return
			}
			continue
		}

		if s.shutdownTime != nil && e.Tag.After(*s.shutdownTime) {
			return
		}

		if !s.sleepUntilOrInterrupted(ctx, e) {
			// An async event pre-empted e; e has been re-pushed by
			// sleepUntilOrInterrupted. Restart the iteration.
			continue
		}

		if e.Terminate {
			return
		}

		for _, arm := range e.Arm {
			arm()
		}
		s.runWave(ctx, e.Tag, e.Reactions)
	}
}

// drainAsyncNonBlocking pushes every already-arrived async event into
// the queue without waiting.
func (s *Scheduler) drainAsyncNonBlocking() {
	for {
		select {
		case a := <-s.asyncCh:
			s.queue.Push(a.tag, a.reactions, a.arm)
		default:
			return
		}
	}
}

// blockForAsync waits indefinitely (bounded by shutdownTime if set) for
// one async event, pushes it, and reports whether it should keep
// looping (false means the channel disconnected or the deadline blew
// past shutdownTime, both exit conditions).
func (s *Scheduler) blockForAsync(ctx context.Context) bool {
	var timeoutCh <-chan time.Time
	if s.shutdownTime != nil {
		d := s.shutdownTime.Instant - time.Since(s.startPhysical)
		if d < 0 {
			return false
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	select {
	case a, open := <-s.asyncCh:
		if !open {
			panic(ErrAsyncChannelClosed)
		}
		s.queue.Push(a.tag, a.reactions, a.arm)
		return true
	case <-timeoutCh:
		return false
	case <-ctx.Done():
		return false
	}
}

// sleepUntilOrInterrupted waits for physical time to reach e.Tag's
// instant. It returns true if the wait completed undisturbed, or was
// interrupted by an async event that does not precede e (e should now
// be dispatched either way). It returns false if an async event strictly
// precedes e: both e and the async event have been pushed back into the
// queue already, and mainLoop must restart to pick the earliest again.
func (s *Scheduler) sleepUntilOrInterrupted(ctx context.Context, e *equeue.Event) bool {
	remaining := e.Tag.Instant - time.Since(s.startPhysical)
	if remaining <= 0 {
		return true
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case a := <-s.asyncCh:
		if a.tag.Before(e.Tag) {
			s.requeue(e)
			s.queue.Push(a.tag, a.reactions, a.arm)
			return false
		}
		s.queue.Push(a.tag, a.reactions, a.arm)
		return true
	case <-timer.C:
		return true
	case <-ctx.Done():
		s.requeue(e)
		return false
	}
}

func (s *Scheduler) requeue(e *equeue.Event) {
	s.queue.Push(e.Tag, reactionSlice(e.Reactions), nil)
	if e.Terminate {
		s.queue.PushTerminate(e.Tag)
	}
	for _, arm := range e.Arm {
		s.queue.Push(e.Tag, nil, arm)
	}
}

func reactionSlice(set map[ids.GlobalReactionID]bool) []ids.GlobalReactionID {
	out := make([]ids.GlobalReactionID, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	return out
}

func (s *Scheduler) pushAsync(a asyncEvent) {
	s.asyncCh <- a
}

// runWave processes one tag end to end: dispatch root reactions level by
// level, collecting any new reactions their effects trigger into later
// levels of the same working set, then clean up.
func (s *Scheduler) runWave(ctx context.Context, t tag.Tag, root map[ids.GlobalReactionID]bool) {
	spanCtx, span := tracer.Start(ctx, "scheduler.process_tag", trace.WithAttributes(
		attribute.String("run.id", s.runID),
		attribute.Int64("tag.instant_ns", int64(t.Instant)),
		attribute.Int64("tag.microstep", int64(t.Microstep)),
	))
	defer span.End()

	working := newWorkingSet()
	for r := range root {
		working.add(s.info.Levels[r], r)
	}

	for level := 0; level <= working.highestLevel(); level++ {
		batch := working.batch(level)
		if len(batch) == 0 {
			continue
		}
		s.runBatch(spanCtx, t, level, batch, working)
	}

	s.setLatestProcessedTag(t)
	s.cleanupTag(t)
}

func (s *Scheduler) runBatch(ctx context.Context, t tag.Tag, level int, batch []ids.GlobalReactionID, working *workingSet) {
	if s.opts.Workers <= 1 {
		for _, r := range batch {
			s.dispatch(ctx, t, r, working)
		}
		return
	}

	chunks := chunk(batch, s.opts.Workers)
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for _, c := range chunks {
		c := c
		g.Go(func() error {
			for _, r := range c {
				s.dispatch(ctx, t, r, working)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// chunk partitions a stably-sorted batch into at most n contiguous
// pieces, the deterministic split the design calls for.
func chunk(batch []ids.GlobalReactionID, n int) [][]ids.GlobalReactionID {
	if n > len(batch) {
		n = len(batch)
	}
	if n <= 0 {
		return nil
	}
	size := (len(batch) + n - 1) / n
	var out [][]ids.GlobalReactionID
	for i := 0; i < len(batch); i += size {
		end := i + size
		if end > len(batch) {
			end = len(batch)
		}
		out = append(out, batch[i:end])
	}
	return out
}

func (s *Scheduler) dispatch(ctx context.Context, t tag.Tag, r ids.GlobalReactionID, working *workingSet) {
	_, span := tracer.Start(ctx, fmt.Sprintf("reaction:%s", r))
	defer span.End()

	rctx := &reactionCtx{s: s, tag: t, current: r, working: working}
	s.pool.Dispatch(r.Reactor(), func(beh reactor.Behavior) {
		beh.React(rctx, r.Local())
	})
}

func (s *Scheduler) cleanupTag(t tag.Tag) {
	cctx := cleanupCtx{tag: t}
	for _, beh := range s.pool.All() {
		beh.CleanupTag(cctx)
	}
	for _, h := range s.cleanup {
		h.Clear()
	}
}

func (s *Scheduler) requestStop(candidate tag.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdownTime == nil || candidate.Before(*s.shutdownTime) {
		c := candidate
		s.shutdownTime = &c
		s.queue.PushTerminate(candidate)
	}
}

func (s *Scheduler) setLatestProcessedTag(t tag.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latestProcessedTag = t
}

func (s *Scheduler) getLatestProcessedTag() tag.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestProcessedTag
}

// physicalTagFloor reads the physical clock relative to scheduler start
// and floors it at the latest processed logical instant, per the
// physical-action open question resolution: forward progress is
// guaranteed by bumping the microstep when the physical clock hasn't
// yet advanced past the current logical instant.
func (s *Scheduler) physicalTagFloor() tag.Tag {
	elapsed := time.Since(s.startPhysical)
	latest := s.getLatestProcessedTag()
	if elapsed > latest.Instant {
		return tag.Tag{Instant: elapsed, Microstep: 0}
	}
	return tag.Tag{Instant: latest.Instant, Microstep: latest.Microstep + 1}
}
