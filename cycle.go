// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package browserloop

// RunCycle synchronously performs exactly one scheduling cycle:
//  1. Macrotasks are run while the queue is non-empty, and the accumulated
//     (measured) execution time is below the threshold, each followed by a
//     microtask drain
//  2. The budget is reset, and the state moves to [StateChecking]
//  3. Animation frame callbacks queued prior to this step are run, each
//     followed by a microtask drain
//  4. The renderer is invoked, exactly once
//  5. If the macrotask, microtask, and animation frame queues are all empty,
//     at most one idle callback is run, followed by a microtask drain
//  6. The state moves to [StateStopped]
//
// Microtask drains run until the microtask queue is empty, including any
// microtasks queued during the drain. Only the body of each macrotask counts
// towards the budget, and the budget is only checked before starting a
// macrotask, so a single slow macrotask may overshoot it.
//
// The first failure aborts the cycle, and is returned, as either a
// [*TaskError] or a [*RenderError]. The state is left as it was when the
// failure occurred, and no queue modifications are rolled back.
//
// RunCycle is used by the driver (see [Engine.Start]), and may be called
// directly, to step the engine deterministically, provided no run is active.
func (x *Engine) RunCycle() error {
	if x.metrics != nil {
		var depths [queueCount]int
		for i := range depths {
			depths[i] = x.queues.len(QueueID(i))
		}
		x.metrics.cycleStarted(depths)
	}

	if err := x.cycle(); err != nil {
		x.metrics.failed()
		x.log.debug(logCategoryCycle).
			Str(`state`, x.state.Load().String()).
			Err(err).
			Log(`cycle aborted`)
		return err
	}

	return nil
}

func (x *Engine) cycle() error {
	if err := x.runMacrotasks(); err != nil {
		return err
	}

	x.state.Store(StateChecking)

	if err := x.runAnimationFrames(); err != nil {
		return err
	}

	x.state.Store(StateRenderWork)

	if err := x.render(); err != nil {
		return err
	}

	if err := x.runIdleCallback(); err != nil {
		return err
	}

	x.state.Store(StateStopped)

	return nil
}

// runMacrotasks runs macrotasks, subject to the time budget.
func (x *Engine) runMacrotasks() error {
	// reset on entry as well as exit, as a failed cycle skips the latter
	x.budget.reset()

	for !x.budget.exhausted() {
		task, ok := x.queues.dequeueOne(QueueMacrotask)
		if !ok {
			break
		}

		x.state.Store(StateJsWork)

		elapsed, err := x.budget.measure(func() error {
			return x.execute(QueueMacrotask, task)
		})
		if err != nil {
			return err
		}
		x.metrics.macrotaskMeasured(elapsed)
		if elapsed >= x.budget.threshold {
			x.log.budgetOverrun(QueueMacrotask, elapsed, x.budget.threshold)
		}

		if err := x.drainMicrotasks(); err != nil {
			return err
		}

		x.budget.add(elapsed)
	}

	if x.budget.exhausted() {
		if n := x.queues.len(QueueMacrotask); n > 0 {
			x.metrics.macrotasksDeferred(n)
			x.log.debug(logCategoryBudget).
				Int(`deferred`, n).
				Dur(`used`, x.budget.used).
				Log(`budget exhausted`)
		}
	}

	x.budget.reset()

	return nil
}

// runAnimationFrames runs a snapshot of the animation frame queue. On
// failure, the callbacks that were not reached are put back at the head of
// the queue.
func (x *Engine) runAnimationFrames() error {
	tasks := x.queues.takeAll(QueueAnimationFrame)
	if len(tasks) == 0 {
		return nil
	}

	x.state.Store(StateJsWork)

	for i, task := range tasks {
		tasks[i] = nil
		err := x.execute(QueueAnimationFrame, task)
		if err == nil {
			err = x.drainMicrotasks()
		}
		if err != nil {
			x.queues.requeueFront(QueueAnimationFrame, tasks[i+1:])
			return err
		}
	}

	return nil
}

// runIdleCallback runs at most one idle callback, only if no other work is
// pending.
func (x *Engine) runIdleCallback() error {
	if !x.queues.isEmpty(QueueMacrotask) ||
		!x.queues.isEmpty(QueueMicrotask) ||
		!x.queues.isEmpty(QueueAnimationFrame) {
		return nil
	}

	task, ok := x.queues.dequeueOne(QueueIdle)
	if !ok {
		return nil
	}

	x.state.Store(StateJsWork)

	if err := x.execute(QueueIdle, task); err != nil {
		return err
	}

	return x.drainMicrotasks()
}

// drainMicrotasks runs microtasks until the queue is empty.
func (x *Engine) drainMicrotasks() error {
	for {
		task, ok := x.queues.dequeueOne(QueueMicrotask)
		if !ok {
			return nil
		}
		if err := x.execute(QueueMicrotask, task); err != nil {
			return err
		}
	}
}

// execute runs a dequeued task, converting a panic into a *TaskError.
func (x *Engine) execute(queue QueueID, task Task) (err error) {
	x.metrics.taskExecuted(queue)

	if task == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = &TaskError{Queue: queue, Cause: PanicError{Value: r}}
		}
	}()

	task()

	return nil
}

// render invokes the renderer, converting a panic or error into a
// *RenderError.
func (x *Engine) render() (err error) {
	x.metrics.rendered()

	defer func() {
		if r := recover(); r != nil {
			err = &RenderError{Cause: PanicError{Value: r}}
		}
	}()

	if e := x.renderer.Render(); e != nil {
		return &RenderError{Cause: e}
	}

	return nil
}
