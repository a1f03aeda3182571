package parser

import (
	"encoding/json"
	"humanlang/internal/ast"
	"humanlang/internal/diag"
	"humanlang/internal/token"
	"strings"
	"testing"
)

// helper: parse source into a block tree and fail on any diagnostic
func parseOK(t *testing.T, source string) *ast.File {
	t.Helper()
	file, diags := Parse("test.hl", source)
	if len(diags) > 0 {
		t.Fatalf("parse diagnostics: %v", diags)
	}
	return file
}

// helper: parse an expression and fail on error
func exprOK(t *testing.T, text string) ast.Expr {
	t.Helper()
	expr, err := Expression(text)
	if err != nil {
		t.Fatalf("expression %q: %v", text, err)
	}
	return expr
}

// ============================================================
// Source lines
// ============================================================

func TestLinesStripsCommentsAndPeriods(t *testing.T) {
	src := "# comment\n\n  declare x as a Number.  \nset x to 3.5.\n"
	lines := Lines(src)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %v", len(lines), lines)
	}
	if lines[0].Number != 3 || lines[0].Text != "declare x as a Number" {
		t.Errorf("unexpected first line: %+v", lines[0])
	}
	if lines[1].Text != "set x to 3.5" {
		t.Errorf("unexpected second line: %+v", lines[1])
	}
}

// ============================================================
// Block structure
// ============================================================

func TestParseFlatStatements(t *testing.T) {
	file := parseOK(t, "declare x as a Number.\nset x to 10.\nshow me x.")
	if len(file.Body) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(file.Body))
	}
	for _, e := range file.Body {
		if _, ok := e.(*ast.Stmt); !ok {
			t.Errorf("expected Stmt, got %T", e)
		}
	}
}

func TestParseIfElse(t *testing.T) {
	src := `declare x as a Number.
set x to 10.
if x is greater than 5 then.
show me "big".
else.
show me "small".
end if.`
	file := parseOK(t, src)
	if len(file.Body) != 3 {
		t.Fatalf("expected 3 top-level elements, got %d", len(file.Body))
	}
	block, ok := file.Body[2].(*ast.Block)
	if !ok {
		t.Fatalf("expected Block, got %T", file.Body[2])
	}
	if block.Kind != ast.BlockIf || block.Head != "if x is greater than 5 then" {
		t.Errorf("unexpected block: %s %q", block.Kind, block.Head)
	}
	if len(block.Body) != 3 {
		t.Fatalf("expected 3 body elements, got %d", len(block.Body))
	}
	marker := block.Body[1].(*ast.Stmt)
	if !marker.Marker || marker.Text != "else" {
		t.Errorf("expected else marker, got %+v", marker)
	}
	if block.Line() != 3 {
		t.Errorf("expected block on line 3, got %d", block.Line())
	}
}

func TestParseOpenersCaseInsensitive(t *testing.T) {
	src := `Define A Class named "Dog".
it has a property named "name" of type String.
Define an asynchronous task named "bark".
show me "woof".
End Task.
END CLASS.
For each item in items.
show me item.
end for.
While running is true.
set running to false.
end while.
Try to.
show me 1.
On error.
show me error_message.
end try.`
	file := parseOK(t, src)
	kinds := []ast.BlockKind{ast.BlockClass, ast.BlockFor, ast.BlockWhile, ast.BlockTry}
	if len(file.Body) != len(kinds) {
		t.Fatalf("expected %d blocks, got %d", len(kinds), len(file.Body))
	}
	for i, k := range kinds {
		b, ok := file.Body[i].(*ast.Block)
		if !ok || b.Kind != k {
			t.Errorf("element %d: expected %s block, got %#v", i, k, file.Body[i])
		}
	}
	class := file.Body[0].(*ast.Block)
	task, ok := class.Body[1].(*ast.Block)
	if !ok || task.Kind != ast.BlockTask {
		t.Fatalf("expected nested task block, got %#v", class.Body[1])
	}
}

func TestParseWordBoundary(t *testing.T) {
	// "iffy" and "format" are not openers.
	file := parseOK(t, "iffy is a word.\nformat the disk.\nwhileaway.")
	for _, e := range file.Body {
		if _, ok := e.(*ast.Stmt); !ok {
			t.Errorf("expected Stmt, got %T", e)
		}
	}
}

func TestFlattenReconstructsLineOrder(t *testing.T) {
	src := `set a to 1.
if a is equal to 1 then.
while a is less than 3.
add 1 to a.
if a is equal to 2 then.
show me "two".
end if.
end while.
otherwise.
show me "other".
end if.
show me a.`
	file := parseOK(t, src)

	var want []string
	for _, l := range Lines(src) {
		if _, ok := CloserKind(l.Text); !ok {
			want = append(want, l.Text)
		}
	}
	got := ast.Flatten(file.Body)
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("flatten mismatch:\n got: %v\nwant: %v", got, want)
	}
	if d := ast.Depth(file.Body); d != 3 {
		t.Errorf("expected depth 3, got %d", d)
	}
}

func TestStrayCloserIsWarning(t *testing.T) {
	file, diags := Parse("test.hl", "end if.\nshow me 1.")
	if len(file.Body) != 1 {
		t.Fatalf("expected 1 element, got %d", len(file.Body))
	}
	if len(diags) != 1 || diags[0].Code != "W1001" || diags[0].Severity != diag.Warning {
		t.Fatalf("expected W1001 warning, got %v", diags)
	}
}

func TestUnclosedBlockIsWarning(t *testing.T) {
	file, diags := Parse("test.hl", "if x then.\nshow me 1.")
	if len(file.Body) != 1 {
		t.Fatalf("expected 1 element, got %d", len(file.Body))
	}
	if len(diags) != 1 || diags[0].Code != "W1002" {
		t.Fatalf("expected W1002 warning, got %v", diags)
	}
	if diag.HasErrors(diags) {
		t.Error("warnings must not count as errors")
	}
}

func TestMismatchedCloserPopsAndWarns(t *testing.T) {
	file, diags := Parse("test.hl", "while x.\nshow me 1.\nend if.\nshow me 2.")
	if len(file.Body) != 2 {
		t.Fatalf("expected 2 top-level elements, got %d", len(file.Body))
	}
	if len(diags) != 1 || diags[0].Code != "W1003" {
		t.Fatalf("expected W1003 warning, got %v", diags)
	}
}

func TestDepthDelta(t *testing.T) {
	cases := []struct {
		line string
		want int
	}{
		{"if x then.", 1},
		{"end if.", -1},
		{"show me x.", 0},
		{`define a task named "t"`, 1},
		{"# if comment", 0},
	}
	for _, c := range cases {
		if got := DepthDelta(c.line); got != c.want {
			t.Errorf("DepthDelta(%q) = %d, want %d", c.line, got, c.want)
		}
	}
}

func TestBlockTreeJSON(t *testing.T) {
	file := parseOK(t, "if x then.\nshow me x.\nend if.")
	data, err := json.Marshal(ast.NodeToMap(file))
	if err != nil {
		t.Fatalf("json error: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"kind":"Block"`, `"block":"if"`, `"head":"if x then"`, `"text":"show me x"`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
}

// ============================================================
// Expressions
// ============================================================

func TestParsePrecedence(t *testing.T) {
	expr := exprOK(t, "1 plus 2 times 3")
	bin, ok := expr.(*ast.BinaryExpr)
	if !ok || bin.Op != token.PLUS {
		t.Fatalf("expected + at the root, got %#v", expr)
	}
	right, ok := bin.Right.(*ast.BinaryExpr)
	if !ok || right.Op != token.STAR {
		t.Fatalf("expected * on the right, got %#v", bin.Right)
	}
}

func TestParseComparisonAndLogic(t *testing.T) {
	expr := exprOK(t, "x is greater than 5 and y is less than 3 or done")
	bin := expr.(*ast.BinaryExpr)
	if bin.Op != token.OR {
		t.Fatalf("expected or at the root, got %s", bin.Op)
	}
	and := bin.Left.(*ast.BinaryExpr)
	if and.Op != token.AND {
		t.Fatalf("expected and, got %s", and.Op)
	}
}

func TestParseIsTrue(t *testing.T) {
	expr := exprOK(t, "running is true")
	bin := expr.(*ast.BinaryExpr)
	if bin.Op != token.EQ {
		t.Fatalf("expected ==, got %s", bin.Op)
	}
	lit, ok := bin.Right.(*ast.BoolLiteral)
	if !ok || !lit.Value {
		t.Fatalf("expected true literal, got %#v", bin.Right)
	}
}

func TestParsePossessiveChain(t *testing.T) {
	expr := exprOK(t, "this's owner's name")
	outer, ok := expr.(*ast.PossessiveExpr)
	if !ok || outer.Key != "name" {
		t.Fatalf("expected possessive name, got %#v", expr)
	}
	inner, ok := outer.Object.(*ast.PossessiveExpr)
	if !ok || inner.Key != "owner" {
		t.Fatalf("expected possessive owner, got %#v", outer.Object)
	}
	if _, ok := inner.Object.(*ast.ThisExpr); !ok {
		t.Fatalf("expected this receiver, got %#v", inner.Object)
	}
}

func TestParsePossessiveBindsTighterThanPlus(t *testing.T) {
	expr := exprOK(t, "items's length plus 1")
	bin := expr.(*ast.BinaryExpr)
	if _, ok := bin.Left.(*ast.PossessiveExpr); !ok {
		t.Fatalf("expected possessive on the left, got %#v", bin.Left)
	}
}

func TestParseLiterals(t *testing.T) {
	list := exprOK(t, `[1, "two", true]`).(*ast.ListLiteral)
	if len(list.Elements) != 3 {
		t.Errorf("expected 3 elements, got %d", len(list.Elements))
	}
	m := exprOK(t, `{"a": 1, b: 2}`).(*ast.MapLiteral)
	if len(m.Keys) != 2 {
		t.Errorf("expected 2 keys, got %d", len(m.Keys))
	}
	if k := m.Keys[1].(*ast.StringLiteral); k.Value != "b" {
		t.Errorf("expected bare key b, got %q", k.Value)
	}
	un := exprOK(t, "not done").(*ast.UnaryExpr)
	if un.Op != token.NOT {
		t.Errorf("expected not, got %s", un.Op)
	}
}

func TestParseErrors(t *testing.T) {
	for _, text := range []string{
		"",
		"1 plus",
		"(1 plus 2",
		"hello world",
		"x's",
		"[1, 2",
	} {
		if _, err := Expression(text); err == nil {
			t.Errorf("expected error for %q", text)
		}
	}
}

func TestParseErrorIsStructural(t *testing.T) {
	_, err := Expression("1 plus")
	if diag.KindOf(err) != diag.StructuralParseError {
		t.Errorf("expected StructuralParseError, got %s", diag.KindOf(err))
	}
}

func TestSplitBranches(t *testing.T) {
	file := parseOK(t, "if x then.\nshow me 1.\notherwise.\nshow me 2.\nend if.\n")
	b := file.Body[0].(*ast.Block)
	then, otherwise := SplitBranches(b.Body)
	if len(then) != 1 || len(otherwise) != 1 {
		t.Fatalf("expected 1/1 branch statements, got %d/%d", len(then), len(otherwise))
	}
	if then[0].(*ast.Stmt).Text != "show me 1" {
		t.Errorf("unexpected then branch %q", then[0].(*ast.Stmt).Text)
	}
}

func TestSplitHandler(t *testing.T) {
	file := parseOK(t, "try to.\nshow me 1.\non error.\nshow me error_message.\nend try.\n")
	guarded, handler, ok := SplitHandler(file.Body[0].(*ast.Block).Body)
	if !ok || len(guarded) != 1 || len(handler) != 1 {
		t.Fatalf("unexpected split: ok=%v guarded=%d handler=%d", ok, len(guarded), len(handler))
	}

	file = parseOK(t, "try to.\nshow me 1.\nend try.\n")
	if _, _, ok := SplitHandler(file.Body[0].(*ast.Block).Body); ok {
		t.Error("expected missing handler to be reported")
	}
}
