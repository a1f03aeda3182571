package main

import (
	"errors"
	"humanlang/internal/diag"
	"humanlang/internal/span"
	"testing"
)

func TestExitCode(t *testing.T) {
	loc := span.Line(1, 0)
	cases := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{errors.New("open x.hl: no such file"), exitUsage},
		{diag.Errorf(diag.StructuralParseError, "E1003", loc, "unclosed"), exitStatic},
		{diag.Errorf(diag.TypeMismatchError, "E2101", loc, "mismatch"), exitStatic},
		{diag.Errorf(diag.RuntimeFailure, "E3003", loc, "unknown command"), exitRuntime},
	}
	for _, c := range cases {
		if got := exitCode(c.err); got != c.want {
			t.Errorf("exitCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestPrepareFailuresAreStatic(t *testing.T) {
	loc := span.Line(1, 0)
	imported := diag.Wrap("E3013", loc, errors.New(`cannot use library "missing": not found`))
	if got := prepareExitCode(imported); got != exitStatic {
		t.Errorf("import failure exited with %d, want %d", got, exitStatic)
	}
	libraryRun := diag.Errorf(diag.RuntimeFailure, "E3003", loc, "I don't understand the command: 'x'")
	if got := prepareExitCode(libraryRun); got != exitStatic {
		t.Errorf("library failure exited with %d, want %d", got, exitStatic)
	}
	if got := prepareExitCode(errors.New("boom")); got != exitUsage {
		t.Errorf("plain error exited with %d, want %d", got, exitUsage)
	}
	if got := prepareExitCode(nil); got != exitOK {
		t.Errorf("nil exited with %d", got)
	}
}
