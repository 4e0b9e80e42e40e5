// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scenario

import (
	"container/heap"
	"sync"
	"time"

	"github.com/joeycumines/go-browserloop"
)

// epoch is the wall time corresponding to virtual time zero.
var epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// virtualHost is a browserloop.HostScheduler and browserloop.Clock sharing
// a single virtual timeline. Timers only fire during runNext, on the calling
// goroutine, in order of due time then registration.
type virtualHost struct {
	timers timerHeap
	now    time.Duration
	seq    uint64
	mu     sync.Mutex
}

var (
	_ browserloop.HostScheduler = (*virtualHost)(nil)
	_ browserloop.Clock         = (*virtualHost)(nil)
)

// timer represents a scheduled callback
type timer struct {
	fn      func()
	at      time.Duration
	seq     uint64
	stopped bool
}

// timerHeap is a min-heap of timers
type timerHeap []*timer

// Implement heap.Interface for timerHeap
func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(*timer))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

func (x *virtualHost) AfterFunc(d time.Duration, fn func()) (stop func() bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.seq++
	t := &timer{fn: fn, at: x.now + d, seq: x.seq}
	heap.Push(&x.timers, t)
	return func() bool {
		x.mu.Lock()
		defer x.mu.Unlock()
		if t.stopped {
			return false
		}
		t.stopped = true
		return true
	}
}

func (x *virtualHost) Now() time.Time {
	return epoch.Add(x.elapsed())
}

// elapsed returns the current virtual time.
func (x *virtualHost) elapsed() time.Duration {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.now
}

// consume moves virtual time forward by d, without firing timers, modeling
// time spent inside a task.
func (x *virtualHost) consume(d time.Duration) {
	x.mu.Lock()
	x.now += d
	x.mu.Unlock()
}

// runNext advances virtual time to the earliest pending timer (if it is in
// the future), then calls it. It returns false if no timers are pending.
func (x *virtualHost) runNext() bool {
	x.mu.Lock()
	var next *timer
	for x.timers.Len() != 0 {
		t := heap.Pop(&x.timers).(*timer)
		if !t.stopped {
			// stopping a timer that is firing must fail
			t.stopped = true
			next = t
			break
		}
	}
	if next == nil {
		x.mu.Unlock()
		return false
	}
	if next.at > x.now {
		x.now = next.at
	}
	x.mu.Unlock()

	next.fn()

	return true
}
