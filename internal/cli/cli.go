// Package cli implements the evaluate command: it scores one or more event
// logs and optionally renders their plots.
package cli

import (
	"fmt"
	"io"

	"github.com/okian/rallyeval/pkg/logger"
)

// SetupLogging sends structured logs to w so stdout stays reserved for
// results.
func SetupLogging(w io.Writer, verbose bool) error {
	if err := logger.InitWithWriter(w); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.SetLevelString(level)
}

// ShowHelp prints usage information for the evaluate tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `rallyeval evaluate
==================

Scores predicted hit/bounce labels against annotated ones. A ground-truth
event is correct when a prediction of the same type lies within
-tolerance frames of it.

Usage:
  go run ./cmd/evaluate [options] [log.json ...]

Options:
  -input string
        Event log to evaluate, "-" for stdin (default: stdin when no args)
  -tolerance int
        Matching window half-width in frames (default 5)
  -mode string
        Pairing mode: any or one_to_one (default "any")
  -format string
        Output format: text or json (default "text")
  -plot string
        Write the stacked actual/predicted plot to a .png or .svg file
  -chart string
        Write the interactive chart page to an .html file
  -parallel int
        Maximum logs evaluated at once (default CPU cores)
  -verbose
        Enable debug logging on stderr
  -help
        Show this help message

Examples:
  # Contingency table with the default window
  go run ./cmd/evaluate -input match.json

  # Tighter window, JSON report and an SVG plot
  go run ./cmd/evaluate -tolerance 2 -format json -plot match.svg match.json

  # Several logs at once
  go run ./cmd/evaluate set1.json set2.json set3.json
`)
}
