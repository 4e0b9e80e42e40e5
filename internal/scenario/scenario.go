// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package scenario replays scripted workloads against a browserloop engine,
// using virtual time, producing a deterministic trace.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Step kinds, see [Step.Queue]. The first four map directly to engine
// queues, the remainder are bridged into macrotasks.
const (
	KindMacrotask      = "macrotask"
	KindMicrotask      = "microtask"
	KindAnimationFrame = "animation_frame"
	KindIdle           = "idle"
	KindTimeout        = "timeout"
	KindEvent          = "event"
)

// ErrInvalidScenario is returned (wrapped) when a scenario fails validation.
var ErrInvalidScenario = errors.New("scenario: invalid")

// Scenario is a scripted workload. Main is registered from the entry point
// macrotask (see browserloop.Engine.RunMain), then the driver runs until
// Cycles cycles have rendered, or a cycle fails.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// RenderDelay and JSTimeThreshold are passed to the engine, if set.
	RenderDelay     time.Duration `yaml:"render_delay,omitempty"`
	JSTimeThreshold time.Duration `yaml:"js_time_threshold,omitempty"`

	Cycles int    `yaml:"cycles"`
	Main   []Step `yaml:"main"`
}

// Step is a task registration. When the task runs, it is recorded, registers
// Then, consumes Cost of virtual time, then fails if Fail is set.
type Step struct {
	Name  string `yaml:"name"`
	Queue string `yaml:"queue"`

	// Cost is the virtual time consumed by the task body.
	Cost time.Duration `yaml:"cost,omitempty"`

	// Delay applies to KindTimeout only.
	Delay time.Duration `yaml:"delay,omitempty"`

	// Args apply to KindEvent only, and are passed through the event proxy.
	Args []string `yaml:"args,omitempty"`

	Fail bool   `yaml:"fail,omitempty"`
	Then []Step `yaml:"then,omitempty"`
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a scenario. Unknown fields are rejected.
func Parse(r io.Reader) (*Scenario, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Validate checks required fields, and the consistency of every step.
func (x *Scenario) Validate() error {
	if x.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidScenario)
	}
	if x.Cycles <= 0 {
		return fmt.Errorf("%w: cycles must be positive", ErrInvalidScenario)
	}
	if x.RenderDelay < 0 {
		return fmt.Errorf("%w: render_delay must not be negative", ErrInvalidScenario)
	}
	if x.JSTimeThreshold < 0 {
		return fmt.Errorf("%w: js_time_threshold must not be negative", ErrInvalidScenario)
	}
	if len(x.Main) == 0 {
		return fmt.Errorf("%w: main must be non-empty", ErrInvalidScenario)
	}
	return validateSteps(`main`, x.Main)
}

func validateSteps(path string, steps []Step) error {
	for i := range steps {
		if err := steps[i].validate(fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func (x *Step) validate(path string) error {
	if x.Name == "" {
		return fmt.Errorf("%w: %s: name is required", ErrInvalidScenario, path)
	}
	switch x.Queue {
	case KindMacrotask, KindMicrotask, KindAnimationFrame, KindIdle, KindTimeout, KindEvent:
	case "":
		return fmt.Errorf("%w: %s: queue is required", ErrInvalidScenario, path)
	default:
		return fmt.Errorf("%w: %s: unknown queue %q", ErrInvalidScenario, path, x.Queue)
	}
	if x.Cost < 0 {
		return fmt.Errorf("%w: %s: cost must not be negative", ErrInvalidScenario, path)
	}
	if x.Delay != 0 && x.Queue != KindTimeout {
		return fmt.Errorf("%w: %s: delay is only valid for %s", ErrInvalidScenario, path, KindTimeout)
	}
	if x.Delay < 0 {
		return fmt.Errorf("%w: %s: delay must not be negative", ErrInvalidScenario, path)
	}
	if len(x.Args) != 0 && x.Queue != KindEvent {
		return fmt.Errorf("%w: %s: args are only valid for %s", ErrInvalidScenario, path, KindEvent)
	}
	return validateSteps(path+`.then`, x.Then)
}
