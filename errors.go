// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package browserloop

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrInvalidOption is returned (wrapped) by [New] when an option has an
	// invalid value.
	ErrInvalidOption = errors.New("browserloop: invalid option")

	// ErrNilRenderer is returned (wrapped) by [New] when [WithRenderer] is
	// given a nil value.
	ErrNilRenderer = fmt.Errorf("%w: nil renderer", ErrInvalidOption)
)

// PanicError wraps a value recovered from a panicking task or renderer.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("browserloop: panic: %v", e.Value)
}

// Unwrap returns the panic value if it is an error, enabling [errors.Is] and
// [errors.As] through the cause chain. Returns nil otherwise.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// TaskError indicates a task failed, aborting the cycle.
type TaskError struct {
	Cause error
	// Queue the task was drawn from. Microtask failures report
	// QueueMicrotask, regardless of which phase drained them.
	Queue QueueID
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("browserloop: %s task failed: %v", e.Queue, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *TaskError) Unwrap() error {
	return e.Cause
}

// RenderError indicates the [Renderer] failed, aborting the cycle.
type RenderError struct {
	Cause error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("browserloop: render failed: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e *RenderError) Unwrap() error {
	return e.Cause
}
