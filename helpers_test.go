// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package browserloop

import (
	"bytes"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/require"
)

// manualScheduler is a deterministic HostScheduler. Callbacks only fire
// during Advance, on the calling goroutine.
type manualScheduler struct {
	timers []*manualTimer
	now    time.Duration
	seq    int
	mu     sync.Mutex
}

type manualTimer struct {
	fn      func()
	at      time.Duration
	seq     int
	stopped bool
	fired   bool
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) (stop func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTimer{fn: fn, at: s.now + d, seq: s.seq}
	s.timers = append(s.timers, t)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.stopped || t.fired {
			return false
		}
		t.stopped = true
		return true
	}
}

// next pops the earliest due timer, if any.
func (s *manualScheduler) next(until time.Duration) *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers = slices.DeleteFunc(s.timers, func(t *manualTimer) bool { return t.stopped || t.fired })
	var due *manualTimer
	for _, t := range s.timers {
		if t.at > until {
			continue
		}
		if due == nil || t.at < due.at || (t.at == due.at && t.seq < due.seq) {
			due = t
		}
	}
	if due != nil {
		due.fired = true
		if due.at > s.now {
			s.now = due.at
		}
	}
	return due
}

// Advance moves time forward by d, firing every timer that becomes due,
// including timers scheduled by fired callbacks.
func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	until := s.now + d
	s.mu.Unlock()
	for {
		t := s.next(until)
		if t == nil {
			break
		}
		t.fn()
	}
	s.mu.Lock()
	s.now = until
	s.mu.Unlock()
}

// Pending returns the number of timers that have not fired or been stopped.
func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// manualClock is a Clock that only moves when advanced, e.g. by a task
// simulating a slow operation.
type manualClock struct {
	now time.Time
	mu  sync.Mutex
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recorder collects labels, in the order they were recorded.
type recorder struct {
	events []string
	mu     sync.Mutex
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// task returns a Task recording event.
func (r *recorder) task(event string) Task {
	return func() { r.add(event) }
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newTestLogger returns a debug level JSON logger, writing to the returned
// buffer.
func newTestLogger() (*logiface.Logger[logiface.Event], *syncBuffer) {
	var buf syncBuffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(&buf),
			stumpy.WithTimeField(``),
		),
		stumpy.L.WithLevel(logiface.LevelDebug),
	).Logger()
	return logger, &buf
}

// newTestEngine creates an engine using a manual scheduler and clock, and a
// renderer that records "render".
func newTestEngine(t *testing.T, rec *recorder, opts ...Option) (*Engine, *manualScheduler, *manualClock) {
	t.Helper()
	scheduler := &manualScheduler{}
	clock := newManualClock()
	opts = append([]Option{
		WithHostScheduler(scheduler),
		WithClock(clock),
		WithRenderer(RendererFunc(func() error {
			rec.add(`render`)
			return nil
		})),
	}, opts...)
	engine, err := New(opts...)
	require.NoError(t, err)
	return engine, scheduler, clock
}
