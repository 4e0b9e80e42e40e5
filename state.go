// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package browserloop

import (
	"sync/atomic"
)

// EngineState represents the coarse phase the engine is in.
//
// State Machine:
//
//	StateStopped (0) → StateJsWork (2)         [macrotask admitted]
//	StateStopped (0) → StateChecking (1)       [macrotask phase complete]
//	StateJsWork (2) → StateChecking (1)        [macrotask phase complete]
//	StateChecking (1) → StateJsWork (2)        [animation frames pending]
//	StateChecking (1) → StateRenderWork (3)    [render]
//	StateJsWork (2) → StateRenderWork (3)      [render]
//	StateRenderWork (3) → StateJsWork (2)      [idle callback admitted]
//	StateRenderWork (3) → StateStopped (0)     [cycle complete]
//	StateJsWork (2) → StateStopped (0)         [cycle complete]
//	StateStopped (0) → StateChecking (1)       [driver waiting for next cycle]
//	any → StateError (9)                       [driver caught a failure]
//	StateError (9) → StateStopped (0)          [driver halted]
//
// The numeric values are stable status codes, hence the gap before
// StateError.
type EngineState uint32

const (
	// StateStopped indicates no cycle is in progress.
	StateStopped EngineState = 0
	// StateChecking indicates the engine is between phases, or waiting on
	// the host to schedule the next cycle.
	StateChecking EngineState = 1
	// StateJsWork indicates a task (of any class) is being executed.
	StateJsWork EngineState = 2
	// StateRenderWork indicates the renderer is being invoked.
	StateRenderWork EngineState = 3
	// StateError indicates a cycle failed, and the failure is being reported.
	StateError EngineState = 9
)

// String returns a human-readable representation of the state.
func (s EngineState) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateChecking:
		return "Checking"
	case StateJsWork:
		return "JsWork"
	case StateRenderWork:
		return "RenderWork"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// stateCell holds the current EngineState. It is written by the goroutine
// running the cycle, and may be read from any goroutine.
type stateCell struct {
	v atomic.Uint32
}

// Load returns the current state atomically.
func (s *stateCell) Load() EngineState {
	return EngineState(s.v.Load())
}

// Store atomically stores a new state, without validating the transition.
func (s *stateCell) Store(state EngineState) {
	s.v.Store(uint32(state))
}

// TryTransition attempts to atomically transition from one state to another.
// Returns true if the transition was successful.
func (s *stateCell) TryTransition(from, to EngineState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
