// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package browserloop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Engine is a simulated browser event loop, see the package documentation.
//
// Engine instances are independent, and must be created using [New].
type Engine struct {
	// Prevent copying
	_ [0]func()

	renderer    Renderer
	reportError ErrorReporter
	scheduler   HostScheduler
	log         *engineLogger
	metrics     *metrics // nil unless enabled
	window      *Window

	// current (or last) driver run, nil if Start was never called
	run atomic.Pointer[driverRun]

	queues queueStore
	budget timeBudget
	state  stateCell

	renderDelay time.Duration
	id          uint64
}

// driverRun models a single call to Engine.Start.
type driverRun struct {
	done      chan struct{}
	err       error
	stopAfter func() bool // unregisters the ctx watcher
	pending   func() bool // cancels the scheduled cycle, nil if none
	mu        sync.Mutex  // guards stopAfter, pending, stopped
	finish    sync.Once
	stopped   bool
}

var (
	engineIDCounter atomic.Uint64

	closedChan = func() chan struct{} {
		ch := make(chan struct{})
		close(ch)
		return ch
	}()
)

// New creates a new engine, in [StateStopped], with empty queues.
func New(opts ...Option) (*Engine, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	x := &Engine{
		renderer:    cfg.renderer,
		reportError: cfg.reportError,
		scheduler:   cfg.scheduler,
		budget: timeBudget{
			clock:     cfg.clock,
			threshold: cfg.jsTimeThreshold,
		},
		renderDelay: cfg.renderDelay,
		id:          engineIDCounter.Add(1),
	}
	x.log = newEngineLogger(cfg.logger, x.id)
	x.window = &Window{engine: x}
	if x.renderer == nil {
		x.renderer = RendererFunc(x.logRender)
	}
	if cfg.metricsEnabled {
		x.metrics = &metrics{}
	}

	return x, nil
}

// Window returns the registration facade for this engine.
func (x *Engine) Window() *Window {
	return x.window
}

// RunMain queues a single macrotask, which calls main with the engine's
// [Window], providing application code an entry point.
func (x *Engine) RunMain(main func(w *Window)) {
	x.queues.enqueue(QueueMacrotask, func() {
		main(x.window)
	})
}

// State returns the current engine state.
func (x *Engine) State() EngineState {
	return x.state.Load()
}

// QueueLen returns the number of tasks pending in the identified queue, or
// 0 if the queue is not recognized.
func (x *Engine) QueueLen(queue QueueID) int {
	if !queue.valid() {
		return 0
	}
	return x.queues.len(queue)
}

// JSTimeThreshold returns the configured macrotask time threshold.
func (x *Engine) JSTimeThreshold() time.Duration {
	return x.budget.threshold
}

// RenderDelay returns the configured delay between cycles.
func (x *Engine) RenderDelay() time.Duration {
	return x.renderDelay
}

// Metrics returns a snapshot of the engine's metrics, or nil if the engine
// was not configured [WithMetrics].
func (x *Engine) Metrics() *MetricsSnapshot {
	return x.metrics.snapshot()
}

// Start begins the driver loop, running cycles indefinitely, with each cycle
// scheduled on the [HostScheduler], after the render delay. Start does not
// block, see also [Engine.Done].
//
// The run ends when:
//   - A cycle fails, in which case the state transitions to [StateError], the
//     [ErrorReporter] is called, then the state transitions to [StateStopped]
//   - [Engine.Stop] is called, or ctx is canceled, in which case the run
//     ends at the next yield point, without interrupting a running cycle
//
// Calling Start while a previous run is active is a programming error, and
// will result in undefined ordering. Start may be called again after a run
// has ended, e.g. to resume after a failure.
func (x *Engine) Start(ctx context.Context) {
	if ctx == nil {
		panic(`browserloop: nil context`)
	}

	r := &driverRun{done: make(chan struct{})}
	x.run.Store(r)

	r.mu.Lock()
	r.stopAfter = context.AfterFunc(ctx, func() { x.stopRun(r) })
	r.mu.Unlock()

	x.log.debug(logCategoryDriver).Log(`driver started`)

	x.scheduleNext(r)
}

// Stop requests the current run end, at the next yield point. Stop does not
// wait, see [Engine.Done].
func (x *Engine) Stop() {
	if r := x.run.Load(); r != nil {
		x.stopRun(r)
	}
}

// Done returns a channel that is closed when the current (or last) run has
// ended. If Start has never been called, the returned channel is closed.
func (x *Engine) Done() <-chan struct{} {
	if r := x.run.Load(); r != nil {
		return r.done
	}
	return closedChan
}

// Err returns the failure that ended the current (or last) run, or nil if
// it is still active, or ended due to [Engine.Stop] or context cancel.
func (x *Engine) Err() error {
	r := x.run.Load()
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// scheduleNext yields to the host, scheduling the next cycle.
//
// WARNING: The scheduler must not call the callback before AfterFunc returns.
func (x *Engine) scheduleNext(r *driverRun) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		x.finishRun(r, nil)
		return
	}
	x.state.Store(StateChecking)
	r.pending = x.scheduler.AfterFunc(x.renderDelay, func() {
		x.driverCycle(r)
	})
	r.mu.Unlock()
}

// driverCycle is the callback scheduled by scheduleNext.
func (x *Engine) driverCycle(r *driverRun) {
	r.mu.Lock()
	r.pending = nil
	stopped := r.stopped
	r.mu.Unlock()

	if stopped {
		x.finishRun(r, nil)
		return
	}

	if err := x.RunCycle(); err != nil {
		x.state.Store(StateError)
		x.reportFailure(err)
		x.state.Store(StateStopped)
		x.finishRun(r, err)
		return
	}

	x.scheduleNext(r)
}

func (x *Engine) stopRun(r *driverRun) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	cancel := r.pending
	r.pending = nil
	r.mu.Unlock()

	// if the cycle was not prevented, it will observe stopped, and finish
	if cancel != nil && cancel() {
		x.finishRun(r, nil)
	}
}

func (x *Engine) finishRun(r *driverRun, err error) {
	r.finish.Do(func() {
		r.mu.Lock()
		r.stopped = true
		stopAfter := r.stopAfter
		r.mu.Unlock()
		if stopAfter != nil {
			stopAfter()
		}

		if err == nil {
			x.state.TryTransition(StateChecking, StateStopped)
			x.log.debug(logCategoryDriver).Log(`driver stopped`)
		}

		r.err = err
		close(r.done)
	})
}

// reportFailure passes err to the configured ErrorReporter, or logs it.
func (x *Engine) reportFailure(err error) {
	if x.reportError != nil {
		x.reportError(err)
		return
	}
	x.log.err(logCategoryDriver).
		Err(err).
		Log(`cycle failed, driver halted`)
}

// logRender is the default renderer.
func (x *Engine) logRender() error {
	x.log.debug(logCategoryRender).Log(`render`)
	return nil
}
