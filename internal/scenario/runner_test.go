// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scenario

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRun_Golden compares the text trace of each scenario in testdata
// against testdata/golden. To regenerate, run:
//
//	go test ./internal/scenario -update
func TestRun_Golden(t *testing.T) {
	for _, name := range []string{`ordering`, `budget`, `failure`} {
		t.Run(name, func(t *testing.T) {
			s, err := Load(`testdata/` + name + `.yaml`)
			require.NoError(t, err)

			trace, err := Run(s, Options{})
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, Write(&buf, trace, FormatText))

			g := goldie.New(t,
				goldie.WithFixtureDir(`testdata/golden`),
				goldie.WithNameSuffix(`.golden`),
			)
			g.Assert(t, name, buf.Bytes())
		})
	}
}

func TestRun_Failure(t *testing.T) {
	s, err := Load(`testdata/failure.yaml`)
	require.NoError(t, err)

	trace, err := Run(s, Options{})
	require.NoError(t, err)
	assert.True(t, trace.Failed())
	assert.Equal(t, `browserloop: microtask task failed: browserloop: panic: A.m failed`, trace.Error)

	last := trace.Events[len(trace.Events)-1]
	assert.Equal(t, EventError, last.Kind)
	assert.Equal(t, `Error`, last.State)
	assert.Equal(t, trace.Error, last.Error)
}

func TestRun_CyclesOverride(t *testing.T) {
	s, err := Load(`testdata/ordering.yaml`)
	require.NoError(t, err)

	trace, err := Run(s, Options{Cycles: 4, RunID: `run-1`})
	require.NoError(t, err)
	assert.False(t, trace.Failed())
	assert.Equal(t, `run-1`, trace.RunID)
	assert.Equal(t, uint64(4), trace.Summary.Renders)

	last := trace.Events[len(trace.Events)-1]
	assert.Equal(t, EventRender, last.Kind)
	assert.Equal(t, `400ms`, last.At)
	assert.Equal(t, uint64(4), last.Cycle)
}

func TestRun_RenderDelayAndThreshold(t *testing.T) {
	s := &Scenario{
		Name:            `custom`,
		Cycles:          2,
		RenderDelay:     16 * time.Millisecond,
		JSTimeThreshold: 10 * time.Millisecond,
		Main: []Step{
			{Name: `A`, Queue: KindMacrotask, Cost: 10 * time.Millisecond},
			{Name: `B`, Queue: KindMacrotask},
		},
	}

	trace, err := Run(s, Options{})
	require.NoError(t, err)

	var got []string
	for _, e := range trace.Events {
		got = append(got, e.At+` `+e.Kind+` `+e.Name)
	}
	assert.Equal(t, []string{
		`16ms task main`,
		`16ms task A`,
		`26ms render `,
		`42ms task B`,
		`42ms render `,
	}, got)
	assert.Equal(t, uint64(1), trace.Summary.Deferred)
}

func TestRun_Invalid(t *testing.T) {
	_, err := Run(&Scenario{Name: `x`}, Options{})
	assert.ErrorIs(t, err, ErrInvalidScenario)
}

func TestRun_Logger(t *testing.T) {
	var buf bytes.Buffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelWarning),
	).Logger()

	s := &Scenario{
		Name:   `slow`,
		Cycles: 1,
		Main:   []Step{{Name: `A`, Queue: KindMacrotask, Cost: time.Second}},
	}
	_, err := Run(s, Options{Logger: logger})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(buf.String(), `macrotask overran budget`))
}
