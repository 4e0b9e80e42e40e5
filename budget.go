// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package browserloop

import (
	"time"
)

// timeBudget accumulates the measured execution time of macrotasks within a
// single cycle.
//
// Thread Safety: NOT thread-safe, only used by the goroutine running the
// cycle.
type timeBudget struct {
	clock     Clock
	threshold time.Duration
	used      time.Duration
}

// measure executes fn synchronously, returning the elapsed time, as reported
// by the clock. The returned error is that of fn.
func (x *timeBudget) measure(fn func() error) (time.Duration, error) {
	start := x.clock.Now()
	err := fn()
	elapsed := x.clock.Now().Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed, err
}

func (x *timeBudget) add(d time.Duration) {
	x.used += d
}

func (x *timeBudget) reset() {
	x.used = 0
}

// remaining may be negative, if the last admitted task overshot.
func (x *timeBudget) remaining() time.Duration {
	return x.threshold - x.used
}

// exhausted reports whether no further macrotask may start this cycle.
func (x *timeBudget) exhausted() bool {
	return x.remaining() <= 0
}
