package main

import (
	"encoding/json"
	"fmt"
	"humanlang/internal/diag"
	"humanlang/internal/token"
	"io"
	"os"
	"strings"
)

// Exit statuses.
const (
	exitOK      = 0
	exitUsage   = 1 // bad arguments, unreadable files
	exitStatic  = 2 // rejected before execution
	exitRuntime = 3 // failed while running
)

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	d, ok := diag.As(err)
	if !ok {
		return exitUsage
	}
	if strings.HasPrefix(d.Code, "E1") || strings.HasPrefix(d.Code, "E2") {
		return exitStatic
	}
	return exitRuntime
}

// prepareExitCode maps a failure from the pre-pass (imports, registration,
// checking). Every diagnostic there stops the program before it runs.
func prepareExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if _, ok := diag.As(err); ok {
		return exitStatic
	}
	return exitUsage
}

// ---- output helpers ----

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "error: JSON encoding failed: %v\n", err)
		os.Exit(exitUsage)
	}
}

func printDiagsText(w io.Writer, diags []*diag.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, d.String())
	}
}

func diagsToSlice(diags []*diag.Diagnostic) []map[string]interface{} {
	result := make([]map[string]interface{}, len(diags))
	for i, d := range diags {
		result[i] = map[string]interface{}{
			"code":     d.Code,
			"kind":     d.Kind.String(),
			"severity": d.Severity.String(),
			"message":  d.Message,
			"line":     d.Span.Start.Line,
			"column":   d.Span.Start.Column,
		}
		if d.Hint != "" {
			result[i]["hint"] = d.Hint
		}
	}
	return result
}

// ---- token output helpers ----

func printTokensText(tokens []token.Token) {
	for _, tok := range tokens {
		if tok.Kind == token.EOF {
			continue
		}
		fmt.Printf("%-12s %-20s %d:%d\n", tok.Kind, tok.Lexeme, tok.Span.Start.Line, tok.Span.Start.Column)
	}
}

func printTokensJSON(tokens []token.Token, diags []*diag.Diagnostic) {
	type tokenJSON struct {
		Kind   string `json:"kind"`
		Lexeme string `json:"lexeme"`
		Line   int    `json:"line"`
		Column int    `json:"column"`
	}

	toks := []tokenJSON{}
	for _, tok := range tokens {
		if tok.Kind == token.EOF {
			continue
		}
		toks = append(toks, tokenJSON{
			Kind:   tok.Kind.String(),
			Lexeme: tok.Lexeme,
			Line:   tok.Span.Start.Line,
			Column: tok.Span.Start.Column,
		})
	}

	output := map[string]interface{}{
		"tokens":      toks,
		"diagnostics": diagsToSlice(diags),
	}
	printJSON(output)
}
