// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package browserloop

import (
	"slices"
	"sync"
	"time"
)

// sampleSize is the maximum number of latency samples to retain.
const sampleSize = 1000

// metrics tracks runtime statistics for an engine. It is written by the
// goroutine running the cycle, and snapshotted from any goroutine.
type metrics struct {
	latency  latencySamples
	executed [queueCount]uint64
	maxDepth [queueCount]int
	cycles   uint64
	renders  uint64
	failures uint64
	deferred uint64
	mu       sync.Mutex
}

// latencySamples is a rolling buffer of macrotask execution times.
type latencySamples struct {
	samples [sampleSize]time.Duration
	idx     int
	count   int
	sum     time.Duration
}

func (l *latencySamples) record(d time.Duration) {
	if l.count >= sampleSize {
		l.sum -= l.samples[l.idx]
	}
	l.samples[l.idx] = d
	l.sum += d
	l.idx++
	if l.idx >= sampleSize {
		l.idx = 0
	}
	if l.count < sampleSize {
		l.count++
	}
}

func (l *latencySamples) summary() LatencySummary {
	if l.count == 0 {
		return LatencySummary{}
	}
	sorted := slices.Clone(l.samples[:l.count])
	slices.Sort(sorted)
	return LatencySummary{
		Count: l.count,
		P50:   sorted[percentileIndex(l.count, 50)],
		P90:   sorted[percentileIndex(l.count, 90)],
		P99:   sorted[percentileIndex(l.count, 99)],
		Max:   sorted[l.count-1],
		Mean:  l.sum / time.Duration(l.count),
	}
}

// percentileIndex computes the index for a given percentile (0-100).
func percentileIndex(n, p int) int {
	index := (p * n) / 100
	if index >= n {
		return n - 1
	}
	return index
}

// MetricsSnapshot is a point-in-time copy of an engine's metrics, see
// [Engine.Metrics].
type MetricsSnapshot struct {
	// Executed is the number of tasks dequeued and run, per queue,
	// including those that failed.
	Executed map[QueueID]uint64

	// MaxDepth is the largest observed length of each queue, sampled at the
	// start of every cycle.
	MaxDepth map[QueueID]int

	// MacrotaskLatency summarizes the measured execution time of (up to)
	// the last 1000 macrotasks.
	MacrotaskLatency LatencySummary

	// Cycles is the number of cycles started.
	Cycles uint64

	// Renders is the number of times the renderer was invoked.
	Renders uint64

	// Failures is the number of cycles that ended in an error.
	Failures uint64

	// DeferredMacrotasks is the number of macrotasks that remained queued
	// when the budget was exhausted, summed over all cycles.
	DeferredMacrotasks uint64
}

// LatencySummary describes a distribution of durations.
type LatencySummary struct {
	P50   time.Duration
	P90   time.Duration
	P99   time.Duration
	Max   time.Duration
	Mean  time.Duration
	Count int
}

func (m *metrics) cycleStarted(depths [queueCount]int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles++
	for i, d := range depths {
		if d > m.maxDepth[i] {
			m.maxDepth[i] = d
		}
	}
}

func (m *metrics) taskExecuted(queue QueueID) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.executed[queue]++
	m.mu.Unlock()
}

func (m *metrics) macrotaskMeasured(d time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.latency.record(d)
	m.mu.Unlock()
}

func (m *metrics) macrotasksDeferred(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.mu.Lock()
	m.deferred += uint64(n)
	m.mu.Unlock()
}

func (m *metrics) rendered() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.renders++
	m.mu.Unlock()
}

func (m *metrics) failed() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.failures++
	m.mu.Unlock()
}

func (m *metrics) snapshot() *MetricsSnapshot {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &MetricsSnapshot{
		Executed:           make(map[QueueID]uint64, queueCount),
		MaxDepth:           make(map[QueueID]int, queueCount),
		MacrotaskLatency:   m.latency.summary(),
		Cycles:             m.cycles,
		Renders:            m.renders,
		Failures:           m.failures,
		DeferredMacrotasks: m.deferred,
	}
	for i := QueueID(0); i < queueCount; i++ {
		s.Executed[i] = m.executed[i]
		s.MaxDepth[i] = m.maxDepth[i]
	}
	return s
}
