package parser

import (
	"humanlang/internal/ast"
	"humanlang/internal/diag"
	"humanlang/internal/span"
	"regexp"
	"strings"
)

// ============================================================
// Line classification
// ============================================================

type opener struct {
	re   *regexp.Regexp
	kind ast.BlockKind
}

var openers = []opener{
	{regexp.MustCompile(`(?i)^if\b`), ast.BlockIf},
	{regexp.MustCompile(`(?i)^for\b`), ast.BlockFor},
	{regexp.MustCompile(`(?i)^while\b`), ast.BlockWhile},
	{regexp.MustCompile(`(?i)^try to\b`), ast.BlockTry},
	{regexp.MustCompile(`(?i)^define an? class\b`), ast.BlockClass},
	{regexp.MustCompile(`(?i)^define an? (asynchronous )?task\b`), ast.BlockTask},
}

var closers = map[string]ast.BlockKind{
	"end if":    ast.BlockIf,
	"end for":   ast.BlockFor,
	"end while": ast.BlockWhile,
	"end try":   ast.BlockTry,
	"end class": ast.BlockClass,
	"end task":  ast.BlockTask,
}

var markers = map[string]bool{
	"else":      true,
	"otherwise": true,
	"on error":  true,
}

// OpenerKind reports whether line opens a block and which kind.
func OpenerKind(line string) (ast.BlockKind, bool) {
	for _, o := range openers {
		if o.re.MatchString(line) {
			return o.kind, true
		}
	}
	return 0, false
}

// CloserKind reports whether line closes a block and which kind it names.
func CloserKind(line string) (ast.BlockKind, bool) {
	kind, ok := closers[normalize(line)]
	return kind, ok
}

// IsMarker reports whether line is a continuation marker.
func IsMarker(line string) bool {
	return markers[normalize(line)]
}

// IsElse reports whether line is the else/otherwise marker of a conditional.
func IsElse(line string) bool {
	n := normalize(line)
	return n == "else" || n == "otherwise"
}

// IsOnError reports whether line is the handler marker of a try block.
func IsOnError(line string) bool {
	return normalize(line) == "on error"
}

func normalize(line string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimRight(line, ".:, "))), " ")
}

// DepthDelta returns +1 for an opener, -1 for a closer and 0 otherwise.
func DepthDelta(line string) int {
	line = CleanLine(line)
	if _, ok := CloserKind(line); ok {
		return -1
	}
	if _, ok := OpenerKind(line); ok {
		return 1
	}
	return 0
}

// ============================================================
// BlockParser
// ============================================================

// BlockParser turns logical lines into a nested block tree in a single pass.
type BlockParser struct {
	file  *ast.File
	stack []*ast.Block
	diags []*diag.Diagnostic
}

// NewBlockParser creates a parser for a file with the given display name.
func NewBlockParser(name string) *BlockParser {
	return &BlockParser{file: &ast.File{Name: name}}
}

// Parse reads source and returns the block tree. Diagnostics are warnings
// only; a block tree is always produced.
func Parse(name, source string) (*ast.File, []*diag.Diagnostic) {
	bp := NewBlockParser(name)
	for _, line := range Lines(source) {
		bp.Add(line)
	}
	return bp.Finish()
}

// Add consumes one logical line.
func (bp *BlockParser) Add(line SourceLine) {
	s := span.Line(line.Number, len(line.Text))

	if kind, ok := CloserKind(line.Text); ok {
		if len(bp.stack) == 0 {
			bp.diags = append(bp.diags, diag.Warningf("W1001", s,
				"'%s' has no open block and is ignored", line.Text))
			return
		}
		top := bp.stack[len(bp.stack)-1]
		if top.Kind != kind {
			bp.diags = append(bp.diags, diag.Warningf("W1003", s,
				"'%s' closes the %s block opened on line %d", line.Text, top.Kind, top.Line()))
		}
		top.Span.End = s.End
		bp.stack = bp.stack[:len(bp.stack)-1]
		return
	}

	if kind, ok := OpenerKind(line.Text); ok {
		block := &ast.Block{Kind: kind, Head: line.Text}
		block.Span = s
		bp.append(block)
		bp.stack = append(bp.stack, block)
		return
	}

	stmt := &ast.Stmt{Text: line.Text, Marker: IsMarker(line.Text)}
	stmt.Span = s
	bp.append(stmt)
}

func (bp *BlockParser) append(e ast.Element) {
	if len(bp.stack) == 0 {
		bp.file.Body = append(bp.file.Body, e)
		return
	}
	top := bp.stack[len(bp.stack)-1]
	top.Body = append(top.Body, e)
}

// Depth returns the number of currently open blocks.
func (bp *BlockParser) Depth() int {
	return len(bp.stack)
}

// Finish closes any blocks still open and returns the tree.
func (bp *BlockParser) Finish() (*ast.File, []*diag.Diagnostic) {
	for i := len(bp.stack) - 1; i >= 0; i-- {
		b := bp.stack[i]
		bp.diags = append(bp.diags, diag.Warningf("W1002", b.Span,
			"%s block opened on line %d is never closed", b.Kind, b.Line()))
	}
	bp.stack = nil
	if n := len(bp.file.Body); n > 0 {
		bp.file.Span = span.Span{Start: bp.file.Body[0].GetSpan().Start, End: bp.file.Body[n-1].GetSpan().End}
	}
	return bp.file, bp.diags
}

// SplitBranches splits a conditional body at its first else/otherwise marker.
func SplitBranches(body []ast.Element) (then, otherwise []ast.Element) {
	for i, e := range body {
		if s, ok := e.(*ast.Stmt); ok && s.Marker && IsElse(s.Text) {
			return body[:i], body[i+1:]
		}
	}
	return body, nil
}

// SplitHandler splits a try body at its "on error" marker. ok is false when
// the marker is missing.
func SplitHandler(body []ast.Element) (guarded, handler []ast.Element, ok bool) {
	for i, e := range body {
		if s, isStmt := e.(*ast.Stmt); isStmt && s.Marker && IsOnError(s.Text) {
			return body[:i], body[i+1:], true
		}
	}
	return body, nil, false
}

// MissingHandler is the structural error for a try block with no "on error"
// marker.
func MissingHandler(b *ast.Block) *diag.Diagnostic {
	return diag.Errorf(diag.StructuralParseError, "E1303", span.Line(b.Line(), len(b.Head)),
		"a 'try to' block must have a matching 'on error' part")
}
