// Package output provides consistent CLI output formatting: colored status
// lines for human mode, a plain table renderer, and a JSON encoder for
// --json mode.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
)

// ANSI color codes used when color is enabled.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// Writer provides formatted output for the CLI. Zero value is usable (no
// color, JSON mode off) but New/NewJSON are the normal constructors.
type Writer struct {
	out      io.Writer
	useColor bool
	jsonMode bool
}

// New creates a Writer for human-readable output. Color is enabled only
// when out is a terminal and noColor is false.
func New(out io.Writer, noColor bool) *Writer {
	useColor := !noColor && isTerminal(out)
	return &Writer{out: out, useColor: useColor}
}

// NewJSON creates a Writer in JSON mode: Status/Success/Warning/Error become
// no-ops so stdout stays a single machine-readable payload, and JSON is the
// only way to emit structured results.
func NewJSON(out io.Writer) *Writer {
	return &Writer{out: out, jsonMode: true}
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// JSONMode reports whether this writer suppresses human-readable status
// output in favor of a single JSON payload.
func (w *Writer) JSONMode() bool {
	return w.jsonMode
}

func (w *Writer) colorize(code, msg string) string {
	if !w.useColor {
		return msg
	}
	return code + msg + colorReset
}

// Status prints a status message with an icon, suppressed in JSON mode.
func (w *Writer) Status(icon, msg string) {
	if w.jsonMode {
		return
	}
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "  %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a green checkmark status message.
func (w *Writer) Success(msg string) {
	w.Status("✓", w.colorize(colorGreen, msg))
}

// Warning prints a yellow warning status message.
func (w *Writer) Warning(msg string) {
	w.Status("!", w.colorize(colorYellow, msg))
}

// Error prints a red error status message to this writer's stream (use for
// non-fatal, continue-the-loop errors; fatal errors go through FormatForCLI
// on stderr instead).
func (w *Writer) Error(msg string) {
	w.Status("✗", w.colorize(colorRed, msg))
}

// Heading prints a bold section heading, suppressed in JSON mode.
func (w *Writer) Heading(msg string) {
	if w.jsonMode {
		return
	}
	_, _ = fmt.Fprintln(w.out, w.colorize(colorBold, msg))
}

// Newline prints a blank line.
func (w *Writer) Newline() {
	if w.jsonMode {
		return
	}
	_, _ = fmt.Fprintln(w.out)
}

// Table renders rows of equal-length columns, tab-aligned, with headers
// in bold when color is enabled. Suppressed in JSON mode.
func (w *Writer) Table(headers []string, rows [][]string) {
	if w.jsonMode {
		return
	}
	tw := tabwriter.NewWriter(w.out, 0, 2, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, w.colorize(colorBold, strings.Join(headers, "\t")))
	for _, row := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

// JSON encodes v as indented JSON. Used both for --json mode output and for
// any payload that is always structured regardless of mode.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// Emit writes v as JSON in JSON mode, or runs human in human mode. Most
// commands that support both output shapes go through this.
func (w *Writer) Emit(v any, human func()) error {
	if w.jsonMode {
		return w.JSON(v)
	}
	human()
	return nil
}
