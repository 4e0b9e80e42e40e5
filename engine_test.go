// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package browserloop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestNew_Defaults(t *testing.T) {
	engine, err := New()
	require.NoError(t, err)
	assert.Equal(t, StateStopped, engine.State())
	assert.Equal(t, DefaultRenderDelay, engine.RenderDelay())
	assert.Equal(t, 160*time.Millisecond, engine.JSTimeThreshold())
	assert.Nil(t, engine.Metrics())
	assert.NotNil(t, engine.Window())
	assert.Same(t, engine.Window(), engine.Window())
	for queue := QueueID(0); queue < queueCount; queue++ {
		assert.Zero(t, engine.QueueLen(queue))
	}
	assert.Zero(t, engine.QueueLen(QueueID(99)))

	// never started
	assert.True(t, isClosed(engine.Done()))
	assert.NoError(t, engine.Err())
	engine.Stop()

	// the default renderer only logs
	require.NoError(t, engine.RunCycle())
}

func TestNew_InvalidOption(t *testing.T) {
	engine, err := New(WithRenderDelay(-time.Second))
	assert.Nil(t, engine)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestEngine_Independent(t *testing.T) {
	var rec1, rec2 recorder
	engine1, _, _ := newTestEngine(t, &rec1)
	engine2, _, _ := newTestEngine(t, &rec2)

	engine1.Window().RequestMacrotask(rec1.task(`one`))
	assert.Zero(t, engine2.QueueLen(QueueMacrotask))

	require.NoError(t, engine2.RunCycle())
	assert.Equal(t, []string{`render`}, rec2.get())
	assert.Empty(t, rec1.get())
	assert.Equal(t, 1, engine1.QueueLen(QueueMacrotask))
}

func TestEngine_RunMain(t *testing.T) {
	var rec recorder
	engine, _, _ := newTestEngine(t, &rec)

	engine.RunMain(func(w *Window) {
		assert.Same(t, engine.Window(), w)
		rec.add(`main`)
		w.RequestMicrotask(rec.task(`main.m`))
	})
	assert.Equal(t, 1, engine.QueueLen(QueueMacrotask))
	assert.Empty(t, rec.get())

	require.NoError(t, engine.RunCycle())
	assert.Equal(t, []string{`main`, `main.m`, `render`}, rec.get())
}

func TestEngine_StartSchedulesCycles(t *testing.T) {
	var rec recorder
	engine, scheduler, _ := newTestEngine(t, &rec)

	engine.RunMain(func(w *Window) {
		rec.add(`main`)
		w.RequestAnimationFrame(rec.task(`frame`))
	})

	engine.Start(context.Background())
	assert.Equal(t, StateChecking, engine.State())
	assert.Equal(t, 1, scheduler.Pending())
	assert.False(t, isClosed(engine.Done()))
	// nothing runs until the host yields
	assert.Empty(t, rec.get())

	scheduler.Advance(99 * time.Millisecond)
	assert.Empty(t, rec.get())

	scheduler.Advance(time.Millisecond)
	assert.Equal(t, []string{`main`, `frame`, `render`}, rec.get())
	assert.Equal(t, StateChecking, engine.State())
	assert.Equal(t, 1, scheduler.Pending())

	scheduler.Advance(300 * time.Millisecond)
	assert.Equal(t, []string{`main`, `frame`, `render`, `render`, `render`, `render`}, rec.get())

	engine.Stop()
	assert.True(t, isClosed(engine.Done()))
	assert.NoError(t, engine.Err())
	assert.Equal(t, StateStopped, engine.State())
	assert.Zero(t, scheduler.Pending())

	// idempotent
	engine.Stop()

	scheduler.Advance(time.Second)
	assert.Len(t, rec.get(), 6)
}

func TestEngine_StopFromTask(t *testing.T) {
	var rec recorder
	engine, scheduler, _ := newTestEngine(t, &rec)

	engine.Window().RequestMacrotask(func() {
		rec.add(`A`)
		engine.Stop()
	})
	engine.Window().RequestIdleCallback(rec.task(`idle`))

	engine.Start(context.Background())
	scheduler.Advance(100 * time.Millisecond)

	// the cycle completes, but no further cycle is scheduled
	assert.Equal(t, []string{`A`, `render`, `idle`}, rec.get())
	assert.True(t, isClosed(engine.Done()))
	assert.NoError(t, engine.Err())
	assert.Equal(t, StateStopped, engine.State())
	assert.Zero(t, scheduler.Pending())
}

func TestEngine_ContextCancel(t *testing.T) {
	var rec recorder
	engine, scheduler, _ := newTestEngine(t, &rec)

	ctx, cancel := context.WithCancel(context.Background())
	engine.Start(ctx)
	scheduler.Advance(100 * time.Millisecond)
	require.Equal(t, []string{`render`}, rec.get())

	cancel()
	select {
	case <-engine.Done():
	case <-time.After(5 * time.Second):
		t.Fatal(`timed out waiting for the run to end`)
	}
	assert.NoError(t, engine.Err())
	assert.Equal(t, StateStopped, engine.State())
	assert.Zero(t, scheduler.Pending())
}

func TestEngine_FailureHaltsDriver(t *testing.T) {
	var (
		rec      recorder
		mu       sync.Mutex
		reported []error
		states   []EngineState
		engine   *Engine
	)
	engine, scheduler, _ := newTestEngine(t, &rec, WithErrorReporter(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, err)
		states = append(states, engine.State())
	}))
	w := engine.Window()

	errBoom := errors.New(`boom`)
	w.RequestMacrotask(func() { panic(errBoom) })
	w.RequestMacrotask(rec.task(`B`))

	engine.Start(context.Background())
	scheduler.Advance(100 * time.Millisecond)

	assert.True(t, isClosed(engine.Done()))
	assert.Equal(t, StateStopped, engine.State())
	assert.Zero(t, scheduler.Pending())

	mu.Lock()
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], errBoom)
	assert.Equal(t, []EngineState{StateError}, states)
	mu.Unlock()

	err := engine.Err()
	var taskErr *TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, QueueMacrotask, taskErr.Queue)

	// no further cycles, and pending work is retained
	scheduler.Advance(time.Second)
	assert.Empty(t, rec.get())
	assert.Equal(t, 1, engine.QueueLen(QueueMacrotask))

	// restarting resumes
	engine.Start(context.Background())
	assert.False(t, isClosed(engine.Done()))
	assert.NoError(t, engine.Err())
	scheduler.Advance(100 * time.Millisecond)
	assert.Equal(t, []string{`B`, `render`}, rec.get())
	engine.Stop()
	assert.True(t, isClosed(engine.Done()))
}

func TestEngine_FailureLoggedWithoutReporter(t *testing.T) {
	logger, buf := newTestLogger()
	var rec recorder
	engine, scheduler, _ := newTestEngine(t, &rec, WithLogger(logger))

	engine.Window().RequestMacrotask(func() { panic(`boom`) })
	engine.Start(context.Background())
	scheduler.Advance(100 * time.Millisecond)

	require.True(t, isClosed(engine.Done()))
	out := buf.String()
	assert.Contains(t, out, `"lvl":"err"`)
	assert.Contains(t, out, `cycle failed, driver halted`)
	assert.Contains(t, out, `browserloop: macrotask task failed: browserloop: panic: boom`)
	assert.Contains(t, out, `driver started`)
}

func TestEngine_RealScheduler(t *testing.T) {
	engine, err := New(WithRenderDelay(time.Millisecond))
	require.NoError(t, err)

	var (
		rec  recorder
		done = make(chan struct{})
	)
	engine.RunMain(func(w *Window) {
		rec.add(`main`)
		w.SetTimeout(func() {
			rec.add(`timeout`)
			w.RequestAnimationFrame(func() {
				rec.add(`frame`)
				close(done)
			})
		}, 5*time.Millisecond)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.Start(ctx)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal(`timed out waiting for the animation frame`)
	}
	assert.Equal(t, []string{`main`, `timeout`, `frame`}, rec.get())

	engine.Stop()
	select {
	case <-engine.Done():
	case <-time.After(5 * time.Second):
		t.Fatal(`timed out waiting for the run to end`)
	}
	assert.NoError(t, engine.Err())
	assert.Equal(t, StateStopped, engine.State())
}
