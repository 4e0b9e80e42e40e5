// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package browserloop provides a deterministic simulator of a browser-style
// event loop, with four fixed priority classes of work, and a render phase.
//
// # Architecture
//
// An [Engine] owns four FIFO queues (macrotask, microtask, animation frame,
// and idle), an [EngineState] indicator, and a per-cycle time budget. A
// [Window] is the registration surface handed to application code, see
// [Window.RequestMacrotask], [Window.RequestMicrotask],
// [Window.RequestAnimationFrame], [Window.RequestIdleCallback],
// [Window.SetTimeout], and [Window.ProxyEvent].
//
// # Cycle Ordering
//
// Each call to [Engine.RunCycle] performs exactly one turn:
//  1. Macrotasks, while the budget allows, each followed by a full microtask
//     drain
//  2. Animation frame callbacks queued before the phase began, each followed
//     by a full microtask drain
//  3. A single call to the [Renderer]
//  4. At most one idle callback, only if every other queue is empty
//
// Microtasks are drained to a fixpoint, i.e. microtasks queued by microtasks
// run in the same drain. Animation frame callbacks queued during the animation
// frame phase run in the following cycle.
//
// # Driver
//
// [Engine.Start] runs cycles indefinitely, yielding to the [HostScheduler]
// between each one. A task that panics, or a renderer that fails, ends the
// run: the state becomes [StateError], the [ErrorReporter] is called, and the
// state then settles at [StateStopped]. Queued work is retained, and the
// engine may be started again.
//
// Calling [Engine.Start] while a run is active is not supported.
//
// # Thread Safety
//
// Tasks always run on the goroutine executing the current cycle, and cycles
// never overlap, so application code observes a single thread. The [Window]
// methods are safe to call from any goroutine, e.g. from host timer
// callbacks. [Engine.State], [Engine.Done], [Engine.Err], and
// [Engine.Metrics] are safe to call from any goroutine.
//
// # Usage
//
//	engine, err := browserloop.New(
//	    browserloop.WithRenderer(browserloop.RendererFunc(func() error {
//	        fmt.Println("render")
//	        return nil
//	    })),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	engine.RunMain(func(w *browserloop.Window) {
//	    w.RequestMacrotask(func() { fmt.Println("macrotask") })
//	    w.RequestMicrotask(func() { fmt.Println("microtask") })
//	})
//
//	engine.Start(ctx)
//	<-engine.Done()
package browserloop
