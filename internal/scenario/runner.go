// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scenario

import (
	"context"
	"fmt"

	"github.com/joeycumines/go-browserloop"
	"github.com/joeycumines/logiface"
)

// Event kinds, see [Event.Kind].
const (
	EventTask   = "task"
	EventRender = "render"
	EventError  = "error"
)

// Options configures [Run].
type Options struct {
	// Logger is passed to the engine, and may be nil.
	Logger *logiface.Logger[logiface.Event]

	// RunID is copied to the trace, to correlate it with logs.
	RunID string

	// Cycles overrides Scenario.Cycles, if positive.
	Cycles int
}

// Trace is the outcome of a [Run].
type Trace struct {
	Scenario string  `json:"scenario" yaml:"scenario"`
	RunID    string  `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Events   []Event `json:"events" yaml:"events"`
	Pending  Pending `json:"pending" yaml:"pending"`
	Summary  Summary `json:"summary" yaml:"summary"`

	// Error is the failure that ended the run, if any.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Event is a single observation. At is the virtual time elapsed since the
// run started, and State is the engine state at the time.
type Event struct {
	At    string   `json:"at" yaml:"at"`
	Kind  string   `json:"kind" yaml:"kind"`
	State string   `json:"state" yaml:"state"`
	Queue string   `json:"queue,omitempty" yaml:"queue,omitempty"`
	Name  string   `json:"name,omitempty" yaml:"name,omitempty"`
	Args  []string `json:"args,omitempty" yaml:"args,omitempty"`
	Error string   `json:"error,omitempty" yaml:"error,omitempty"`
	Cycle uint64   `json:"cycle" yaml:"cycle"`
}

// Pending is the number of tasks left in each queue, when the run ended.
type Pending struct {
	Macrotask      int `json:"macrotask" yaml:"macrotask"`
	Microtask      int `json:"microtask" yaml:"microtask"`
	AnimationFrame int `json:"animation_frame" yaml:"animation_frame"`
	Idle           int `json:"idle" yaml:"idle"`
}

// Summary is derived from the engine's metrics.
type Summary struct {
	Cycles   uint64 `json:"cycles" yaml:"cycles"`
	Renders  uint64 `json:"renders" yaml:"renders"`
	Tasks    uint64 `json:"tasks" yaml:"tasks"`
	Deferred uint64 `json:"deferred" yaml:"deferred"`
}

// Failed returns true if the run ended in a failure.
func (x *Trace) Failed() bool {
	return x.Error != ""
}

type runner struct {
	host    *virtualHost
	engine  *browserloop.Engine
	trace   *Trace
	renders int
}

// Run replays s against a new engine, driven by virtual time, until the
// requested number of cycles have rendered, or a cycle fails. A failed cycle
// is reported via [Trace.Error], not as an error.
func Run(s *Scenario, opts Options) (*Trace, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	cycles := s.Cycles
	if opts.Cycles > 0 {
		cycles = opts.Cycles
	}

	x := &runner{
		host: &virtualHost{},
		trace: &Trace{
			Scenario: s.Name,
			RunID:    opts.RunID,
			Events:   []Event{},
		},
	}

	engineOpts := []browserloop.Option{
		browserloop.WithHostScheduler(x.host),
		browserloop.WithClock(x.host),
		browserloop.WithLogger(opts.Logger),
		browserloop.WithMetrics(true),
		browserloop.WithRenderer(browserloop.RendererFunc(x.render)),
		browserloop.WithErrorReporter(x.reportError),
	}
	if s.RenderDelay > 0 {
		engineOpts = append(engineOpts, browserloop.WithRenderDelay(s.RenderDelay))
	}
	if s.JSTimeThreshold > 0 {
		engineOpts = append(engineOpts, browserloop.WithJSTimeThreshold(s.JSTimeThreshold))
	}

	engine, err := browserloop.New(engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	x.engine = engine

	engine.RunMain(func(w *browserloop.Window) {
		x.record(Event{Kind: EventTask, Queue: browserloop.QueueMacrotask.String(), Name: `main`})
		for _, step := range s.Main {
			x.register(w, step)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine.Start(ctx)
	for x.renders < cycles && !isDone(engine.Done()) && x.host.runNext() {
	}
	engine.Stop()
	<-engine.Done()

	x.trace.Pending = Pending{
		Macrotask:      engine.QueueLen(browserloop.QueueMacrotask),
		Microtask:      engine.QueueLen(browserloop.QueueMicrotask),
		AnimationFrame: engine.QueueLen(browserloop.QueueAnimationFrame),
		Idle:           engine.QueueLen(browserloop.QueueIdle),
	}

	m := engine.Metrics()
	x.trace.Summary = Summary{
		Cycles:   m.Cycles,
		Renders:  m.Renders,
		Deferred: m.DeferredMacrotasks,
	}
	for _, n := range m.Executed {
		x.trace.Summary.Tasks += n
	}

	return x.trace, nil
}

func isDone(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func (x *runner) record(e Event) {
	e.At = x.host.elapsed().String()
	e.State = x.engine.State().String()
	e.Cycle = x.engine.Metrics().Cycles
	x.trace.Events = append(x.trace.Events, e)
}

func (x *runner) render() error {
	x.record(Event{Kind: EventRender})
	x.renders++
	return nil
}

func (x *runner) reportError(err error) {
	x.record(Event{Kind: EventError, Error: err.Error()})
	x.trace.Error = err.Error()
}

// register queues step, per its kind.
func (x *runner) register(w *browserloop.Window, step Step) {
	switch step.Queue {
	case KindMacrotask:
		w.RequestMacrotask(x.task(step, browserloop.QueueMacrotask, nil))
	case KindMicrotask:
		w.RequestMicrotask(x.task(step, browserloop.QueueMicrotask, nil))
	case KindAnimationFrame:
		w.RequestAnimationFrame(x.task(step, browserloop.QueueAnimationFrame, nil))
	case KindIdle:
		w.RequestIdleCallback(x.task(step, browserloop.QueueIdle, nil))
	case KindTimeout:
		w.SetTimeout(x.task(step, browserloop.QueueMacrotask, nil), step.Delay)
	case KindEvent:
		handler := w.ProxyEvent(func(args ...any) {
			values := make([]string, len(args))
			for i, v := range args {
				values[i] = fmt.Sprint(v)
			}
			x.task(step, browserloop.QueueMacrotask, values)()
		})
		args := make([]any, len(step.Args))
		for i, v := range step.Args {
			args[i] = v
		}
		handler(args...)
	default:
		panic(fmt.Sprintf(`scenario: unexpected queue %q`, step.Queue))
	}
}

// task builds the body for step: record, register children, consume the
// cost, then (optionally) fail.
func (x *runner) task(step Step, queue browserloop.QueueID, args []string) browserloop.Task {
	return func() {
		x.record(Event{Kind: EventTask, Queue: queue.String(), Name: step.Name, Args: args})
		for _, child := range step.Then {
			x.register(x.engine.Window(), child)
		}
		x.host.consume(step.Cost)
		if step.Fail {
			panic(fmt.Errorf(`%s failed`, step.Name))
		}
	}
}
