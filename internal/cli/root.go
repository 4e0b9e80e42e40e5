// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package cli implements the browserloop command.
package cli

import (
	"fmt"

	"github.com/joeycumines/go-browserloop/internal/scenario"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format  string
	Verbose bool
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "browserloop",
		Short: "Deterministic browser event loop simulator",
		Long: `Replays scripted workloads against a simulated browser event loop,
using virtual time, and prints the resulting trace.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !scenario.ValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, scenario.Formats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log engine internals at debug level")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", scenario.FormatText, "output format (text|json|yaml)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// newLogger returns a JSON logger writing to the command's stderr. Only
// warnings and above are logged, unless verbose.
func newLogger(cmd *cobra.Command, opts *RootOptions) *logiface.Logger[logiface.Event] {
	level := logiface.LevelWarning
	if opts.Verbose {
		level = logiface.LevelDebug
	}
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(cmd.ErrOrStderr())),
		stumpy.L.WithLevel(level),
	).Logger()
}
