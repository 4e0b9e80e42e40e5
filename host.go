// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package browserloop

import (
	"time"
)

type (
	// HostScheduler models the host's timer subsystem. It is used by the
	// driver to yield between cycles, and by [Window.SetTimeout].
	//
	// AfterFunc must call fn once, after (approximately) d, on any goroutine,
	// unless the returned stop function is called first. The stop function
	// must return true if it prevented fn from being called.
	HostScheduler interface {
		AfterFunc(d time.Duration, fn func()) (stop func() bool)
	}

	// HostSchedulerFunc implements [HostScheduler].
	HostSchedulerFunc func(d time.Duration, fn func()) (stop func() bool)

	// Clock supplies the time used to measure macrotask execution.
	Clock interface {
		Now() time.Time
	}

	// ClockFunc implements [Clock].
	ClockFunc func() time.Time

	// Renderer models the host's paint step, invoked exactly once per cycle.
	// A non-nil error fails the cycle, see [RenderError].
	Renderer interface {
		Render() error
	}

	// RendererFunc implements [Renderer].
	RendererFunc func() error

	// ErrorReporter receives the failure that ended a run, see
	// [Engine.Start].
	ErrorReporter func(err error)

	realScheduler struct{}

	realClock struct{}
)

var (
	_ HostScheduler = HostSchedulerFunc(nil)
	_ HostScheduler = realScheduler{}
	_ Clock         = ClockFunc(nil)
	_ Clock         = realClock{}
	_ Renderer      = RendererFunc(nil)
)

func (x HostSchedulerFunc) AfterFunc(d time.Duration, fn func()) (stop func() bool) {
	return x(d, fn)
}

func (x ClockFunc) Now() time.Time { return x() }

func (x RendererFunc) Render() error { return x() }

// AfterFunc uses [time.AfterFunc].
func (realScheduler) AfterFunc(d time.Duration, fn func()) (stop func() bool) {
	return time.AfterFunc(d, fn).Stop
}

// Now uses [time.Now], which includes a monotonic reading.
func (realClock) Now() time.Time { return time.Now() }
