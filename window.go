// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package browserloop

import (
	"slices"
	"time"
)

// Window is the registration surface exposed to application code, modeled on
// the corresponding browser APIs. It only ever appends to the engine's
// queues.
//
// All methods are safe to call from any goroutine, including from within a
// running task, and never fail.
type Window struct {
	engine *Engine
}

// RequestMacrotask queues a macrotask.
func (x *Window) RequestMacrotask(task Task) {
	x.engine.queues.enqueue(QueueMacrotask, task)
}

// RequestMicrotask queues a microtask, which will run before the engine
// proceeds past the current unit of work (or the next one, if called outside
// a cycle).
func (x *Window) RequestMicrotask(task Task) {
	x.engine.queues.enqueue(QueueMicrotask, task)
}

// RequestAnimationFrame queues a callback to run prior to the next render.
// Callbacks queued from within an animation frame callback run prior to the
// render after that.
func (x *Window) RequestAnimationFrame(task Task) {
	x.engine.queues.enqueue(QueueAnimationFrame, task)
}

// RequestIdleCallback queues a callback to run after a render, once no other
// work is pending. At most one idle callback runs per cycle.
func (x *Window) RequestIdleCallback(task Task) {
	x.engine.queues.enqueue(QueueIdle, task)
}

// SetTimeout uses the [HostScheduler] to queue task as a macrotask, after
// delay. A negative delay is treated as zero. The returned function may be
// used to cancel the timeout, and returns true if it prevented the task being
// queued.
func (x *Window) SetTimeout(task Task, delay time.Duration) (cancel func() bool) {
	if delay < 0 {
		delay = 0
	}
	return x.engine.scheduler.AfterFunc(delay, func() {
		x.RequestMacrotask(task)
	})
}

// ProxyEvent wraps handler, returning a function that, when called, captures
// its arguments, and queues a macrotask that calls handler with them. This
// is intended to funnel host events (callbacks) into the macrotask queue,
// rather than running them synchronously.
func (x *Window) ProxyEvent(handler func(args ...any)) func(args ...any) {
	return func(args ...any) {
		args = slices.Clone(args)
		x.RequestMacrotask(func() {
			handler(args...)
		})
	}
}
