// Package ast defines the block tree produced by the block parser and the
// expression tree produced by the expression parser.
package ast

import (
	"humanlang/internal/span"
	"humanlang/internal/token"
)

// ============================================================
// Node interfaces
// ============================================================

// Node is the interface implemented by all AST nodes.
type Node interface {
	nodeNode()
	GetSpan() span.Span
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Element is a child of a block: either a *Stmt or a nested *Block.
type Element interface {
	Node
	elementNode()
	// Line returns the 1-based source line the element starts on.
	Line() int
}

// ============================================================
// Base types (embedded to provide common fields)
// ============================================================

// NodeBase provides the common Span field for all AST nodes.
type NodeBase struct {
	Span span.Span
}

func (n NodeBase) nodeNode()          {}
func (n NodeBase) GetSpan() span.Span { return n.Span }

// ExprBase is embedded by all expression nodes.
type ExprBase struct{ NodeBase }

func (ExprBase) exprNode() {}

// ElementBase is embedded by block tree elements.
type ElementBase struct{ NodeBase }

func (ElementBase) elementNode() {}
func (e ElementBase) Line() int  { return e.Span.Start.Line }

// ============================================================
// Block tree
// ============================================================

// BlockKind identifies the opener that started a block.
type BlockKind int

const (
	BlockIf BlockKind = iota
	BlockWhile
	BlockFor
	BlockTry
	BlockClass
	BlockTask
)

var blockKindNames = map[BlockKind]string{
	BlockIf:    "if",
	BlockWhile: "while",
	BlockFor:   "for",
	BlockTry:   "try",
	BlockClass: "class",
	BlockTask:  "task",
}

func (k BlockKind) String() string { return blockKindNames[k] }

// IsDefinition reports whether the block defines a class or task.
func (k BlockKind) IsDefinition() bool {
	return k == BlockClass || k == BlockTask
}

// File is the root of a parsed source file.
type File struct {
	NodeBase
	Name string    // path or display name
	Body []Element // top-level statements and blocks
}

// Block is a head line plus its ordered child elements.
type Block struct {
	ElementBase
	Kind BlockKind
	Head string    // head line, trimmed, trailing period removed
	Body []Element // statements, markers and nested blocks
}

// Stmt is a single sentence line. Markers (else, otherwise, on error) are
// statements with Marker set.
type Stmt struct {
	ElementBase
	Text   string
	Marker bool
}

// ============================================================
// Expressions
// ============================================================

// IdentExpr represents an identifier reference.
type IdentExpr struct {
	ExprBase
	Name string
}

// NumberLiteral represents a numeric literal.
type NumberLiteral struct {
	ExprBase
	Value float64
}

// StringLiteral represents a quoted string literal.
type StringLiteral struct {
	ExprBase
	Value string
}

// BoolLiteral represents true or false.
type BoolLiteral struct {
	ExprBase
	Value bool
}

// NullLiteral represents null, none or nothing.
type NullLiteral struct {
	ExprBase
}

// ThisExpr represents the 'this' keyword.
type ThisExpr struct {
	ExprBase
}

// UnaryExpr represents a prefix operation: not x, -x.
type UnaryExpr struct {
	ExprBase
	Op      token.Kind
	Operand Expr
}

// BinaryExpr represents a binary operation: a plus b, x is equal to y.
type BinaryExpr struct {
	ExprBase
	Op    token.Kind
	Left  Expr
	Right Expr
}

// PossessiveExpr represents a property step: dog's name.
type PossessiveExpr struct {
	ExprBase
	Object Expr
	Key    string
}

// ListLiteral represents a list literal: [a, b, c].
type ListLiteral struct {
	ExprBase
	Elements []Expr
}

// MapLiteral represents a map literal: {"key": value, ...}.
type MapLiteral struct {
	ExprBase
	Keys   []Expr
	Values []Expr
}

// ============================================================
// Tree helpers
// ============================================================

// Flatten returns the text of every line in depth-first order, heads before
// their bodies. Closers are not part of the tree and never appear.
func Flatten(elems []Element) []string {
	var out []string
	for _, e := range elems {
		switch n := e.(type) {
		case *Block:
			out = append(out, n.Head)
			out = append(out, Flatten(n.Body)...)
		case *Stmt:
			out = append(out, n.Text)
		}
	}
	return out
}

// Depth returns the maximum block nesting depth below elems.
func Depth(elems []Element) int {
	deepest := 0
	for _, e := range elems {
		if b, ok := e.(*Block); ok {
			if d := 1 + Depth(b.Body); d > deepest {
				deepest = d
			}
		}
	}
	return deepest
}

// Walk calls fn for every element in depth-first order. Returning false from
// fn skips the children of a block.
func Walk(elems []Element, fn func(Element) bool) {
	for _, e := range elems {
		if !fn(e) {
			continue
		}
		if b, ok := e.(*Block); ok {
			Walk(b.Body, fn)
		}
	}
}
