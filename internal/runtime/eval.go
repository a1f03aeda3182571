package runtime

import (
	"fmt"
	"humanlang/internal/ast"
	"humanlang/internal/diag"
	"humanlang/internal/parser"
	"humanlang/internal/scope"
	"humanlang/internal/token"
	"humanlang/internal/value"
	"strings"
)

// ============================================================
// Expression evaluation
// ============================================================

// exprKey identifies a cached parse; spans depend on the line.
type exprKey struct {
	text string
	line int
}

// parsed is a cache entry: the expression tree or the parse failure.
type parsed struct {
	expr ast.Expr
	err  error
}

func (i *Interpreter) parse(text string, line int) (ast.Expr, error) {
	key := exprKey{text, line}
	if hit, ok := i.exprs.Load(key); ok {
		p := hit.(parsed)
		return p.expr, p.err
	}
	expr, err := parser.ExpressionAt(text, line)
	i.exprs.Store(key, parsed{expr: expr, err: err})
	return expr, err
}

// evalText evaluates expression text leniently: a bound identifier yields its
// value, and text that does not parse or evaluate is taken literally.
func (i *Interpreter) evalText(text string, line int, sc *scope.Scope) value.Value {
	text = strings.TrimSpace(text)
	if v, ok := sc.Get(text); ok {
		return v
	}
	v, err := i.evalStrict(text, line, sc)
	if err != nil {
		return literal(text)
	}
	return v
}

// evalStrict evaluates expression text and reports every failure.
func (i *Interpreter) evalStrict(text string, line int, sc *scope.Scope) (value.Value, error) {
	expr, err := i.parse(strings.TrimSpace(text), line)
	if err != nil {
		return nil, err
	}
	return i.eval(expr, sc)
}

// literal is the fallback reading of unparseable text: the content between
// the outermost quotes, or the trimmed text itself.
func literal(text string) value.Value {
	first, last := strings.Index(text, `"`), strings.LastIndex(text, `"`)
	if first >= 0 && last > first {
		return value.StringVal(text[first+1 : last])
	}
	return value.StringVal(strings.Trim(strings.TrimSpace(text), `"`))
}

func (i *Interpreter) eval(expr ast.Expr, sc *scope.Scope) (value.Value, error) {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return value.NumberVal(e.Value), nil
	case *ast.StringLiteral:
		return value.StringVal(e.Value), nil
	case *ast.BoolLiteral:
		return value.BoolVal(e.Value), nil
	case *ast.NullLiteral:
		return value.Null, nil
	case *ast.IdentExpr:
		if v, ok := sc.Get(e.Name); ok {
			return v, nil
		}
		return nil, diag.Errorf(diag.UnknownIdentifierError, "E3008", e.Span, "'%s' is not defined", e.Name)
	case *ast.ThisExpr:
		if v, ok := sc.Get("this"); ok {
			return v, nil
		}
		return nil, diag.Errorf(diag.UnknownIdentifierError, "E3008", e.Span, "'this' can only be used inside a class method")
	case *ast.ListLiteral:
		elems := make([]value.Value, 0, len(e.Elements))
		for _, el := range e.Elements {
			v, err := i.eval(el, sc)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		return value.NewList(elems...), nil
	case *ast.MapLiteral:
		m := value.NewMap()
		for n := range e.Keys {
			k, err := i.eval(e.Keys[n], sc)
			if err != nil {
				return nil, err
			}
			v, err := i.eval(e.Values[n], sc)
			if err != nil {
				return nil, err
			}
			m.Set(k.String(), v)
		}
		return m, nil
	case *ast.UnaryExpr:
		return i.evalUnary(e, sc)
	case *ast.BinaryExpr:
		return i.evalBinary(e, sc)
	case *ast.PossessiveExpr:
		obj, err := i.eval(e.Object, sc)
		if err != nil {
			return nil, err
		}
		return property(obj, e.Key), nil
	default:
		return nil, fmt.Errorf("unsupported expression %T", expr)
	}
}

func (i *Interpreter) evalUnary(e *ast.UnaryExpr, sc *scope.Scope) (value.Value, error) {
	operand, err := i.eval(e.Operand, sc)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case token.NOT:
		return value.BoolVal(!value.IsTruthy(operand)), nil
	case token.MINUS:
		n, ok := operand.(value.NumberVal)
		if !ok {
			return nil, diag.Errorf(diag.RuntimeFailure, "E3014", e.Span, "cannot negate a %s", operand.TypeName())
		}
		return -n, nil
	}
	return nil, diag.Errorf(diag.RuntimeFailure, "E3014", e.Span, "unknown unary operator %s", e.Op)
}

func (i *Interpreter) evalBinary(e *ast.BinaryExpr, sc *scope.Scope) (value.Value, error) {
	left, err := i.eval(e.Left, sc)
	if err != nil {
		return nil, err
	}

	// Short-circuit logical operators
	switch e.Op {
	case token.AND:
		if !value.IsTruthy(left) {
			return left, nil
		}
		return i.eval(e.Right, sc)
	case token.OR:
		if value.IsTruthy(left) {
			return left, nil
		}
		return i.eval(e.Right, sc)
	}

	right, err := i.eval(e.Right, sc)
	if err != nil {
		return nil, err
	}
	v, err := binaryOp(e.Op, left, right)
	if err != nil {
		return nil, diag.Errorf(diag.RuntimeFailure, "E3014", e.Span, "%s", err)
	}
	return v, nil
}

// binaryOp applies a non-logical binary operator. It is shared by
// expressions and the in-place arithmetic sentences.
func binaryOp(op token.Kind, left, right value.Value) (value.Value, error) {
	switch op {
	case token.PLUS:
		_, ls := left.(value.StringVal)
		_, rs := right.(value.StringVal)
		if ls || rs {
			return value.StringVal(left.String() + right.String()), nil
		}
	case token.EQ:
		return value.BoolVal(value.Equal(left, right)), nil
	case token.NEQ:
		return value.BoolVal(!value.Equal(left, right)), nil
	case token.LT, token.LTE, token.GT, token.GTE:
		cmp, ok := value.Compare(left, right)
		if !ok {
			return nil, fmt.Errorf("cannot compare %s with %s", left.TypeName(), right.TypeName())
		}
		switch op {
		case token.LT:
			return value.BoolVal(cmp < 0), nil
		case token.LTE:
			return value.BoolVal(cmp <= 0), nil
		case token.GT:
			return value.BoolVal(cmp > 0), nil
		default:
			return value.BoolVal(cmp >= 0), nil
		}
	}

	l, lok := left.(value.NumberVal)
	r, rok := right.(value.NumberVal)
	if !lok || !rok {
		return nil, fmt.Errorf("unsupported operand types for %s: %s and %s", op, left.TypeName(), right.TypeName())
	}
	switch op {
	case token.PLUS:
		return l + r, nil
	case token.MINUS:
		return l - r, nil
	case token.STAR:
		return l * r, nil
	case token.SLASH:
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return l / r, nil
	}
	return nil, fmt.Errorf("unknown operator %s", op)
}

// property reads key from v. Missing properties read as null.
func property(v value.Value, key string) value.Value {
	if strings.EqualFold(key, "length") {
		if n, ok := value.Length(v); ok {
			return value.NumberVal(n)
		}
	}
	r, ok := v.(value.PropertyReader)
	if !ok {
		return value.Null
	}
	if p, ok := r.Property(key); ok {
		return p
	}
	if p, ok := r.Property(strings.ToLower(key)); ok {
		return p
	}
	return value.Null
}
