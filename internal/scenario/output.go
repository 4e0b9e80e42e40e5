// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Output formats, see [Write].
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists the supported output formats.
var Formats = []string{FormatText, FormatJSON, FormatYAML}

// ValidFormat returns true if format is one of [Formats].
func ValidFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Write encodes t to w, in the given format.
func Write(w io.Writer, t *Trace, format string) error {
	var buf bytes.Buffer
	switch format {
	case FormatText:
		writeText(&buf, t)
	case FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent(``, `  `)
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
	default:
		return fmt.Errorf("invalid format %q: must be one of %v", format, Formats)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// writeText writes one line per event, bracketed by a header, and the final
// queue lengths and summary.
func writeText(buf *bytes.Buffer, t *Trace) {
	fmt.Fprintf(buf, "scenario %s\n", t.Scenario)
	if t.RunID != "" {
		fmt.Fprintf(buf, "run %s\n", t.RunID)
	}

	for _, e := range t.Events {
		fmt.Fprintf(buf, "@%s cycle=%d state=%s ", e.At, e.Cycle, e.State)
		switch e.Kind {
		case EventTask:
			fmt.Fprintf(buf, "%s %s", e.Queue, e.Name)
			if len(e.Args) != 0 {
				fmt.Fprintf(buf, " %v", e.Args)
			}
		case EventError:
			fmt.Fprintf(buf, "error %s", e.Error)
		default:
			buf.WriteString(e.Kind)
		}
		buf.WriteByte('\n')
	}

	fmt.Fprintf(buf, "pending macrotask=%d microtask=%d animationFrame=%d idle=%d\n",
		t.Pending.Macrotask, t.Pending.Microtask, t.Pending.AnimationFrame, t.Pending.Idle)

	fmt.Fprintf(buf, "summary cycles=%s renders=%s tasks=%s deferred=%s\n",
		humanize.Comma(int64(t.Summary.Cycles)),
		humanize.Comma(int64(t.Summary.Renders)),
		humanize.Comma(int64(t.Summary.Tasks)),
		humanize.Comma(int64(t.Summary.Deferred)))
}
