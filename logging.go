// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package browserloop

import (
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// Log categories, added to every event as the "category" field.
const (
	logCategoryCycle  = "cycle"
	logCategoryDriver = "driver"
	logCategoryBudget = "budget"
	logCategoryRender = "render"
)

// overrunRates limits "macrotask overran budget" warnings, per queue.
var overrunRates = map[time.Duration]int{
	time.Second: 1,
	time.Minute: 10,
}

// engineLogger decorates the (optional) logger with fields common to all
// events from a given engine. All methods are nil-safe, via logiface.
type engineLogger struct {
	logger  *logiface.Logger[logiface.Event]
	overrun *catrate.Limiter
	id      uint64
}

func newEngineLogger(logger *logiface.Logger[logiface.Event], id uint64) *engineLogger {
	return &engineLogger{
		logger:  logger,
		overrun: catrate.NewLimiter(overrunRates),
		id:      id,
	}
}

func (x *engineLogger) build(level logiface.Level, category string) *logiface.Builder[logiface.Event] {
	return x.logger.Build(level).
		Str(`category`, category).
		Uint64(`engine`, x.id)
}

func (x *engineLogger) debug(category string) *logiface.Builder[logiface.Event] {
	return x.build(logiface.LevelDebug, category)
}

func (x *engineLogger) warning(category string) *logiface.Builder[logiface.Event] {
	return x.build(logiface.LevelWarning, category)
}

func (x *engineLogger) err(category string) *logiface.Builder[logiface.Event] {
	return x.build(logiface.LevelError, category)
}

// budgetOverrun logs a single macrotask consuming the entire budget, subject
// to rate limiting.
func (x *engineLogger) budgetOverrun(queue QueueID, elapsed, threshold time.Duration) {
	b := x.warning(logCategoryBudget)
	if !b.Enabled() {
		return
	}
	if _, ok := x.overrun.Allow(queue); !ok {
		b.Release()
		return
	}
	b.Str(`queue`, queue.String()).
		Dur(`elapsed`, elapsed).
		Dur(`threshold`, threshold).
		Log(`macrotask overran budget`)
}
