package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"dictate/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const statusLabelWidth = 16

var (
	titleCaser = cases.Title(language.Und)

	statusColors = map[statusKind]text.Colors{
		statusInfo:  {text.FgBlue},
		statusOK:    {text.FgGreen},
		statusWarn:  {text.FgYellow},
		statusError: {text.FgRed},
	}
	statusMarks = map[statusKind]string{
		statusInfo:  "·",
		statusOK:    "✓",
		statusWarn:  "!",
		statusError: "✗",
	}
)

// statusWriter prints the status report. Colour is applied only when the
// output is a terminal.
type statusWriter struct {
	out      io.Writer
	colorize bool
	sections int
}

func newStatusWriter(out io.Writer) *statusWriter {
	return &statusWriter{out: out, colorize: shouldColorize(out)}
}

func (w *statusWriter) section(title string) {
	if w.sections > 0 {
		fmt.Fprintln(w.out)
	}
	w.sections++
	heading := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	fmt.Fprintln(w.out, w.paint(statusInfo, heading))
}

func (w *statusWriter) line(label string, kind statusKind, message string) {
	mark := w.paint(kind, statusMarks[kind])
	fmt.Fprintf(w.out, "  %s %-*s %s\n", mark, statusLabelWidth, label, message)
}

func (w *statusWriter) check(result preflight.Result) {
	kind := statusOK
	if !result.Passed {
		kind = statusWarn
	}
	w.line(result.Name, kind, result.Detail)
}

func (w *statusWriter) table(t stateTable) {
	fmt.Fprint(w.out, renderTable(t, w.colorize))
}

func (w *statusWriter) paint(kind statusKind, s string) string {
	return paint(w.colorize, kind, s)
}

func paint(colorize bool, kind statusKind, s string) string {
	if !colorize || s == "" {
		return s
	}
	return text.Escape(s, statusColors[kind].EscapeSeq())
}

// stateKind classifies a service or artifact state cell by its first word,
// so "unknown (dbus: no bus)" still reads as a warning.
func stateKind(state string) statusKind {
	fields := strings.Fields(strings.ToLower(state))
	if len(fields) == 0 {
		return statusInfo
	}
	switch fields[0] {
	case "ok", "ready", "active":
		return statusOK
	case "modified", "inactive", "unknown":
		return statusWarn
	case "missing", "failed":
		return statusError
	default:
		return statusInfo
	}
}

// titleLabel turns identifiers such as "succeeded" or "input_unit" into
// display labels.
func titleLabel(value string) string {
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
