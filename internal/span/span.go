// Package span provides source position and span types shared by the parser,
// checker and runtime diagnostics.
package span

import "fmt"

// Position represents a position in source code.
type Position struct {
	Offset int `json:"offset"` // byte offset within the line (expressions) or file
	Line   int `json:"line"`   // 1-based line number
	Column int `json:"column"` // 1-based column number
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span represents a range in source code [Start, End).
type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

func (s Span) String() string {
	return fmt.Sprintf("%s..%s", s.Start, s.End)
}

// Len returns the byte length of the span.
func (s Span) Len() int {
	return s.End.Offset - s.Start.Offset
}

// IsZero reports whether the span carries no location.
func (s Span) IsZero() bool {
	return s.Start.Line == 0
}

// Line returns a span covering a whole source line of the given width.
func Line(line, width int) Span {
	return Span{
		Start: Position{Line: line, Column: 1},
		End:   Position{Offset: width, Line: line, Column: width + 1},
	}
}

// Shift moves a span computed relative to a single expression onto the given
// source line, starting at column col.
func (s Span) Shift(line, col int) Span {
	s.Start.Line, s.End.Line = line, line
	s.Start.Column += col - 1
	s.End.Column += col - 1
	return s
}
