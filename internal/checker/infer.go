package checker

import (
	"humanlang/internal/ast"
	"humanlang/internal/parser"
	"humanlang/internal/scope"
	"humanlang/internal/sentence"
	"humanlang/internal/token"
	"strings"
)

// Infer returns the static type of expression text. Text that does not parse
// is "any".
func (c *Checker) Infer(text string, line int, sc *scope.Scope) string {
	expr, err := parser.ExpressionAt(text, line)
	if err != nil {
		return sentence.TypeAny
	}
	return c.inferExpr(expr, sc)
}

func (c *Checker) inferExpr(expr ast.Expr, sc *scope.Scope) string {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return sentence.TypeNumber
	case *ast.StringLiteral:
		return sentence.TypeString
	case *ast.BoolLiteral:
		return sentence.TypeBoolean
	case *ast.IdentExpr:
		return sc.Type(e.Name)
	case *ast.ThisExpr:
		return sc.Type("this")
	case *ast.ListLiteral:
		return c.inferList(e, sc)
	case *ast.MapLiteral:
		return sentence.TypeObject
	case *ast.UnaryExpr:
		if e.Op == token.NOT {
			return sentence.TypeBoolean
		}
		return sentence.TypeNumber
	case *ast.BinaryExpr:
		switch e.Op {
		case token.PLUS:
			return plusType(c.inferExpr(e.Left, sc), c.inferExpr(e.Right, sc))
		case token.MINUS, token.STAR, token.SLASH:
			return sentence.TypeNumber
		default:
			return sentence.TypeBoolean
		}
	case *ast.PossessiveExpr:
		if strings.EqualFold(e.Key, "length") {
			return sentence.TypeNumber
		}
		cls, ok := c.reg.Class(c.inferExpr(e.Object, sc))
		if !ok {
			return sentence.TypeAny
		}
		if typ, ok := c.reg.FindProperty(cls, e.Key); ok {
			return typ
		}
	}
	return sentence.TypeAny
}

func (c *Checker) inferList(e *ast.ListLiteral, sc *scope.Scope) string {
	if len(e.Elements) == 0 {
		return sentence.TypeList
	}
	first := c.inferExpr(e.Elements[0], sc)
	if first == sentence.TypeAny {
		return sentence.TypeList
	}
	for _, el := range e.Elements[1:] {
		if c.inferExpr(el, sc) != first {
			return sentence.TypeList
		}
	}
	return sentence.TypeList + " of " + first
}

// plusType is String when either side is a String, Number when both are
// Numbers and any otherwise.
func plusType(left, right string) string {
	switch {
	case left == sentence.TypeString || right == sentence.TypeString:
		return sentence.TypeString
	case left == sentence.TypeNumber && right == sentence.TypeNumber:
		return sentence.TypeNumber
	}
	return sentence.TypeAny
}
