package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jedib0t/go-pretty/v6/text"

	"dictate/internal/preflight"
)

func TestStateKind(t *testing.T) {
	cases := map[string]statusKind{
		"ok":                     statusOK,
		"ready":                  statusOK,
		"active":                 statusOK,
		"Modified":               statusWarn,
		"inactive":               statusWarn,
		"unknown (dbus: no bus)": statusWarn,
		"missing":                statusError,
		"missing (stat: denied)": statusError,
		"":                       statusInfo,
		"yes":                    statusInfo,
	}
	for state, want := range cases {
		if got := stateKind(state); got != want {
			t.Errorf("stateKind(%q) = %d, want %d", state, got, want)
		}
	}
}

func TestRenderTableColorsStateColumnOnly(t *testing.T) {
	tbl := stateTable{
		headers:     []string{"Path", "State"},
		rows:        [][]string{{"/a/unit", "ok"}, {"/a/script", "modified"}, {"/a/venv", "missing"}, {"/a/short"}},
		stateColumn: 1,
		footer:      "4 files, 3 drifted",
	}

	plain := renderTable(tbl, false)
	if strings.Contains(plain, "\x1b[") {
		t.Fatalf("uncoloured table has escape sequences:\n%s", plain)
	}
	for _, want := range []string{"PATH", "/a/script", "modified", "4 files, 3 drifted"} {
		if !strings.Contains(plain, want) {
			t.Fatalf("expected %q in:\n%s", want, plain)
		}
	}

	colored := renderTable(tbl, true)
	for state, colors := range map[string]text.Colors{
		"ok":       {text.FgGreen},
		"modified": {text.FgYellow},
		"missing":  {text.FgRed},
	} {
		if !strings.Contains(colored, colors.EscapeSeq()+state) {
			t.Fatalf("expected %q coloured with %q in:\n%q", state, colors.EscapeSeq(), colored)
		}
	}
	if strings.Contains(colored, text.Colors{text.FgGreen}.EscapeSeq()+"/a/unit") {
		t.Fatal("path column must not be coloured")
	}
}

func TestRenderTableWithoutHeaders(t *testing.T) {
	if got := renderTable(stateTable{stateColumn: noStateColumn}, true); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestStatusWriterLines(t *testing.T) {
	var buf bytes.Buffer
	w := &statusWriter{out: &buf}
	w.section("Configuration")
	w.line("Model", statusInfo, "small.en")
	w.check(preflight.Result{Name: "Venv", Passed: false, Detail: "not created"})
	w.section("Runtime")

	out := buf.String()
	for _, want := range []string{
		"== Configuration ==\n",
		"  · Model            small.en\n",
		"  ! Venv             not created\n",
		"\n== Runtime ==\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatal("non-terminal output must not be coloured")
	}

	buf.Reset()
	w.colorize = true
	w.line("Ledger", statusError, "schema version mismatch")
	if !strings.Contains(buf.String(), text.Colors{text.FgRed}.EscapeSeq()+"✗") {
		t.Fatalf("expected red mark, got %q", buf.String())
	}
}
