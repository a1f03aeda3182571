package ast

import (
	"humanlang/internal/span"
	"humanlang/internal/token"
)

// NodeToMap converts an AST node to a map suitable for JSON serialization.
// Every node has a "kind" field.
func NodeToMap(node Node) map[string]interface{} {
	if node == nil {
		return nil
	}

	switch n := node.(type) {
	case *File:
		return m("File", n.Span, "name", n.Name, "body", elementSlice(n.Body))

	// ---- Block tree ----
	case *Block:
		return m("Block", n.Span,
			"block", n.Kind.String(),
			"head", n.Head,
			"body", elementSlice(n.Body))
	case *Stmt:
		if n.Marker {
			return m("Marker", n.Span, "text", n.Text)
		}
		return m("Stmt", n.Span, "text", n.Text)

	// ---- Expressions ----
	case *IdentExpr:
		return m("IdentExpr", n.Span, "name", n.Name)
	case *NumberLiteral:
		return m("NumberLiteral", n.Span, "value", n.Value)
	case *StringLiteral:
		return m("StringLiteral", n.Span, "value", n.Value)
	case *BoolLiteral:
		return m("BoolLiteral", n.Span, "value", n.Value)
	case *NullLiteral:
		return m("NullLiteral", n.Span)
	case *ThisExpr:
		return m("ThisExpr", n.Span)
	case *UnaryExpr:
		return m("UnaryExpr", n.Span, "op", opStr(n.Op), "operand", NodeToMap(n.Operand))
	case *BinaryExpr:
		return m("BinaryExpr", n.Span,
			"op", opStr(n.Op),
			"left", NodeToMap(n.Left),
			"right", NodeToMap(n.Right))
	case *PossessiveExpr:
		return m("PossessiveExpr", n.Span,
			"object", NodeToMap(n.Object),
			"key", n.Key)
	case *ListLiteral:
		return m("ListLiteral", n.Span, "elements", exprSlice(n.Elements))
	case *MapLiteral:
		return m("MapLiteral", n.Span,
			"keys", exprSlice(n.Keys),
			"values", exprSlice(n.Values))

	default:
		return map[string]interface{}{"kind": "Unknown"}
	}
}

// ---- helpers ----

// m builds a map with kind, span, and extra key-value pairs.
func m(kind string, s span.Span, kvs ...interface{}) map[string]interface{} {
	result := map[string]interface{}{
		"kind": kind,
		"span": spanToMap(s),
	}
	for i := 0; i+1 < len(kvs); i += 2 {
		key := kvs[i].(string)
		result[key] = kvs[i+1]
	}
	return result
}

func spanToMap(s span.Span) map[string]interface{} {
	return map[string]interface{}{
		"start": map[string]interface{}{
			"offset": s.Start.Offset,
			"line":   s.Start.Line,
			"column": s.Start.Column,
		},
		"end": map[string]interface{}{
			"offset": s.End.Offset,
			"line":   s.End.Line,
			"column": s.End.Column,
		},
	}
}

func elementSlice(elems []Element) []interface{} {
	result := make([]interface{}, len(elems))
	for i, e := range elems {
		result[i] = NodeToMap(e)
	}
	return result
}

func exprSlice(exprs []Expr) []interface{} {
	result := make([]interface{}, len(exprs))
	for i, e := range exprs {
		result[i] = NodeToMap(e)
	}
	return result
}

func opStr(kind token.Kind) string {
	return kind.String()
}
