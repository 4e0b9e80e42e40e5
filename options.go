// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package browserloop

import (
	"fmt"
	"time"

	"github.com/joeycumines/logiface"
)

const (
	// DefaultRenderDelay is the default delay between cycles, see
	// [WithRenderDelay].
	DefaultRenderDelay = 100 * time.Millisecond

	// jsTimeHeadroom is added to the render delay to derive the default
	// macrotask time threshold.
	jsTimeHeadroom = 60 * time.Millisecond
)

// engineOptions holds configuration options for Engine creation.
type engineOptions struct {
	renderer        Renderer
	reportError     ErrorReporter
	scheduler       HostScheduler
	clock           Clock
	logger          *logiface.Logger[logiface.Event]
	renderDelay     time.Duration
	jsTimeThreshold time.Duration
	metricsEnabled  bool
}

// --- Engine Options ---

// Option configures an Engine instance.
type Option interface {
	applyEngine(*engineOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyEngineFunc func(*engineOptions) error
}

func (o *optionImpl) applyEngine(opts *engineOptions) error {
	return o.applyEngineFunc(opts)
}

// WithRenderDelay sets the delay the driver yields to the host for, between
// cycles. Unless [WithJSTimeThreshold] is also provided, the macrotask time
// threshold is derived from this value, as renderDelay + 60ms.
// Defaults to [DefaultRenderDelay]. Must not be negative.
func WithRenderDelay(d time.Duration) Option {
	return &optionImpl{func(opts *engineOptions) error {
		if d < 0 {
			return fmt.Errorf("%w: negative render delay: %s", ErrInvalidOption, d)
		}
		opts.renderDelay = d
		return nil
	}}
}

// WithJSTimeThreshold sets the accumulated macrotask execution time, after
// which no further macrotasks are started, within a single cycle.
// Must be positive.
func WithJSTimeThreshold(d time.Duration) Option {
	return &optionImpl{func(opts *engineOptions) error {
		if d <= 0 {
			return fmt.Errorf("%w: non-positive js time threshold: %s", ErrInvalidOption, d)
		}
		opts.jsTimeThreshold = d
		return nil
	}}
}

// WithRenderer sets the renderer, invoked once per cycle.
// Defaults to a renderer that logs at debug level.
func WithRenderer(renderer Renderer) Option {
	return &optionImpl{func(opts *engineOptions) error {
		if renderer == nil {
			return ErrNilRenderer
		}
		opts.renderer = renderer
		return nil
	}}
}

// WithErrorReporter sets the callback that receives the failure ending a run.
// If unset (or nil), failures are logged at error level.
func WithErrorReporter(reporter ErrorReporter) Option {
	return &optionImpl{func(opts *engineOptions) error {
		opts.reportError = reporter
		return nil
	}}
}

// WithHostScheduler sets the host timer subsystem, used by the driver and by
// [Window.SetTimeout]. Defaults to an implementation using [time.AfterFunc].
func WithHostScheduler(scheduler HostScheduler) Option {
	return &optionImpl{func(opts *engineOptions) error {
		opts.scheduler = scheduler
		return nil
	}}
}

// WithClock sets the clock used to measure macrotask execution time.
// Defaults to [time.Now].
func WithClock(clock Clock) Option {
	return &optionImpl{func(opts *engineOptions) error {
		opts.clock = clock
		return nil
	}}
}

// WithLogger sets the structured logger. A nil logger disables logging,
// which is the default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *engineOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithMetrics enables runtime metrics collection, see [Engine.Metrics].
func WithMetrics(enabled bool) Option {
	return &optionImpl{func(opts *engineOptions) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

// resolveOptions applies Option instances to engineOptions, then fills in
// defaults.
func resolveOptions(opts []Option) (*engineOptions, error) {
	cfg := &engineOptions{
		renderDelay: DefaultRenderDelay,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyEngine(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.jsTimeThreshold == 0 {
		cfg.jsTimeThreshold = cfg.renderDelay + jsTimeHeadroom
	}
	if cfg.scheduler == nil {
		cfg.scheduler = realScheduler{}
	}
	if cfg.clock == nil {
		cfg.clock = realClock{}
	}
	return cfg, nil
}
