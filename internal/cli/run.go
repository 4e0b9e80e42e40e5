// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/joeycumines/go-browserloop/internal/scenario"
	"github.com/spf13/cobra"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	RunID        string
	Cycles       int
	AllowFailure bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Replay a scenario, and print the trace",
		Long: `Replay a scenario against a new engine, using virtual time, until the
scenario's cycle count is reached, or a cycle fails.

A failed cycle results in a non-zero exit status, after printing the trace,
unless --allow-failure is set.

Example:
  browserloop run ./scenario.yaml
  browserloop run --format json --cycles 10 ./scenario.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "identifier added to the trace (default: a new UUIDv7)")
	cmd.Flags().IntVar(&opts.Cycles, "cycles", 0, "override the scenario's cycle count")
	cmd.Flags().BoolVar(&opts.AllowFailure, "allow-failure", false, "exit zero even if a cycle fails")

	return cmd
}

func runScenario(cmd *cobra.Command, opts *RunOptions, path string) error {
	if opts.Cycles < 0 {
		return fmt.Errorf("invalid cycles %d: must not be negative", opts.Cycles)
	}

	s, err := scenario.Load(path)
	if err != nil {
		return err
	}

	runID := opts.RunID
	if runID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate run id: %w", err)
		}
		runID = id.String()
	}

	logger := newLogger(cmd, opts.RootOptions)
	logger.Debug().
		Str(`scenario`, s.Name).
		Str(`run`, runID).
		Log(`running scenario`)

	trace, err := scenario.Run(s, scenario.Options{
		Logger: logger,
		RunID:  runID,
		Cycles: opts.Cycles,
	})
	if err != nil {
		return err
	}

	if err := scenario.Write(cmd.OutOrStdout(), trace, opts.Format); err != nil {
		return err
	}

	if trace.Failed() && !opts.AllowFailure {
		return fmt.Errorf("scenario %q failed: %s", s.Name, trace.Error)
	}

	return nil
}
