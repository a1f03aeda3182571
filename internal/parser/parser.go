// Package parser turns humanlang source into trees: the block parser builds
// the nested block structure from lines, and the Pratt parser in this file
// builds expression trees from the tokens of a single expression.
package parser

import (
	"fmt"
	"humanlang/internal/ast"
	"humanlang/internal/diag"
	"humanlang/internal/lexer"
	"humanlang/internal/span"
	"humanlang/internal/token"
	"strconv"
)

// ============================================================
// Binding power (precedence) levels
// ============================================================

const (
	bpNone       = 0
	bpOr         = 10 // or ||
	bpAnd        = 20 // and &&
	bpEquality   = 30 // is equal to, is not equal to, is true, is false
	bpComparison = 40 // is greater than, is less than, >= <=
	bpAdditive   = 50 // plus minus
	bpMultiply   = 60 // times, divided by
	bpPrefix     = 70 // not, unary minus
	bpPossessive = 80 // 's
)

// infixBP returns the left binding power for an infix/postfix operator.
func infixBP(kind token.Kind) int {
	switch kind {
	case token.OR:
		return bpOr
	case token.AND:
		return bpAnd
	case token.EQ, token.NEQ, token.IS_TRUE, token.IS_FALSE:
		return bpEquality
	case token.LT, token.LTE, token.GT, token.GTE:
		return bpComparison
	case token.PLUS, token.MINUS:
		return bpAdditive
	case token.STAR, token.SLASH:
		return bpMultiply
	case token.POSSESSIVE:
		return bpPossessive
	default:
		return bpNone
	}
}

// ============================================================
// Parser
// ============================================================

// Parser performs syntax analysis on the tokens of one expression.
type Parser struct {
	tokens []token.Token
	pos    int
	diags  []*diag.Diagnostic
}

// New creates a new parser from a token slice.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens, pos: 0}
}

// ParseExpression parses the whole token stream as a single expression.
// Trailing tokens are an error.
func (p *Parser) ParseExpression() (ast.Expr, []*diag.Diagnostic) {
	expr := p.parseExpr(bpNone)
	if expr != nil && !p.isAtEnd() {
		tok := p.peek()
		p.error("E1203", tok.Span, fmt.Sprintf("unexpected '%s' after expression", tok.Lexeme))
	}
	return expr, p.diags
}

// Expression tokenizes and parses text, returning the first diagnostic as
// the error.
func Expression(text string) (ast.Expr, error) {
	return ExpressionAt(text, 1)
}

// ExpressionAt is Expression with spans starting on the given line.
func ExpressionAt(text string, line int) (ast.Expr, error) {
	tokens, diags := lexer.NewAt(text, line).Tokenize()
	if len(diags) > 0 {
		return nil, diags[0]
	}
	expr, diags := New(tokens).ParseExpression()
	if len(diags) > 0 {
		return nil, diags[0]
	}
	if expr == nil {
		return nil, diag.Errorf(diag.StructuralParseError, "E1202", span.Line(line, len(text)), "empty expression")
	}
	return expr, nil
}

// ---- navigation helpers ----

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekKind() token.Kind {
	return p.peek().Kind
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) check(kind token.Kind) bool {
	return p.peekKind() == kind
}

func (p *Parser) expect(kind token.Kind) (token.Token, bool) {
	if p.check(kind) {
		return p.advance(), true
	}
	tok := p.peek()
	p.error("E1201", tok.Span, fmt.Sprintf("expected '%s', got '%s'", kind, tok.Kind))
	return tok, false
}

func (p *Parser) isAtEnd() bool {
	return p.peekKind() == token.EOF
}

func (p *Parser) error(code string, s span.Span, msg string) {
	p.diags = append(p.diags, diag.Errorf(diag.StructuralParseError, code, s, "%s", msg))
}

// ============================================================
// Pratt expression parsing
// ============================================================

func (p *Parser) parseExpr(minBP int) ast.Expr {
	left := p.nud()
	if left == nil {
		return nil
	}

	for {
		kind := p.peekKind()
		bp := infixBP(kind)
		if bp <= minBP {
			break
		}
		left = p.led(left)
		if left == nil {
			return nil
		}
	}

	return left
}

// nud handles prefix (null denotation) parsing.
func (p *Parser) nud() ast.Expr {
	tok := p.peek()

	switch tok.Kind {
	case token.NUMBER:
		p.advance()
		val, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			p.error("E1204", tok.Span, fmt.Sprintf("invalid number %q", tok.Lexeme))
			return nil
		}
		return &ast.NumberLiteral{
			ExprBase: makeExprBase(tok.Span.Start, tok.Span.End),
			Value:    val,
		}

	case token.STRING:
		p.advance()
		return &ast.StringLiteral{
			ExprBase: makeExprBase(tok.Span.Start, tok.Span.End),
			Value:    tok.Lexeme,
		}

	case token.KW_TRUE, token.KW_FALSE:
		p.advance()
		return &ast.BoolLiteral{
			ExprBase: makeExprBase(tok.Span.Start, tok.Span.End),
			Value:    tok.Kind == token.KW_TRUE,
		}

	case token.KW_NULL:
		p.advance()
		return &ast.NullLiteral{
			ExprBase: makeExprBase(tok.Span.Start, tok.Span.End),
		}

	case token.KW_THIS:
		p.advance()
		return &ast.ThisExpr{
			ExprBase: makeExprBase(tok.Span.Start, tok.Span.End),
		}

	case token.IDENT:
		p.advance()
		return &ast.IdentExpr{
			ExprBase: makeExprBase(tok.Span.Start, tok.Span.End),
			Name:     tok.Lexeme,
		}

	case token.LPAREN:
		p.advance() // consume '('
		expr := p.parseExpr(bpNone)
		if expr == nil {
			return nil
		}
		if _, ok := p.expect(token.RPAREN); !ok {
			return nil
		}
		return expr

	case token.NOT, token.MINUS:
		p.advance()
		operand := p.parseExpr(bpPrefix)
		if operand == nil {
			return nil
		}
		return &ast.UnaryExpr{
			ExprBase: makeExprBase(tok.Span.Start, operand.GetSpan().End),
			Op:       tok.Kind,
			Operand:  operand,
		}

	case token.LBRACKET:
		return p.parseListLiteral()

	case token.LBRACE:
		return p.parseMapLiteral()

	default:
		p.error("E1202", tok.Span, fmt.Sprintf("unexpected '%s'", tok.Kind))
		return nil
	}
}

// led handles infix/postfix (left denotation) parsing.
func (p *Parser) led(left ast.Expr) ast.Expr {
	tok := p.peek()

	switch tok.Kind {
	case token.PLUS, token.MINUS, token.STAR, token.SLASH,
		token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE,
		token.AND, token.OR:
		// Binary infix operator (left-associative)
		bp := infixBP(tok.Kind)
		p.advance()
		right := p.parseExpr(bp)
		if right == nil {
			return nil
		}
		return &ast.BinaryExpr{
			ExprBase: makeExprBase(left.GetSpan().Start, right.GetSpan().End),
			Op:       tok.Kind,
			Left:     left,
			Right:    right,
		}

	case token.IS_TRUE, token.IS_FALSE:
		// Postfix "is true" / "is false" compare against a boolean literal.
		p.advance()
		return &ast.BinaryExpr{
			ExprBase: makeExprBase(left.GetSpan().Start, tok.Span.End),
			Op:       token.EQ,
			Left:     left,
			Right: &ast.BoolLiteral{
				ExprBase: makeExprBase(tok.Span.Start, tok.Span.End),
				Value:    tok.Kind == token.IS_TRUE,
			},
		}

	case token.POSSESSIVE:
		p.advance() // consume 's
		key := p.peek()
		if key.Kind != token.IDENT && key.Kind != token.STRING && !key.Kind.IsKeyword() {
			p.error("E1201", key.Span, fmt.Sprintf("expected a property name after 's, got '%s'", key.Kind))
			return nil
		}
		p.advance()
		return &ast.PossessiveExpr{
			ExprBase: makeExprBase(left.GetSpan().Start, key.Span.End),
			Object:   left,
			Key:      key.Lexeme,
		}

	default:
		return left
	}
}

// parseListLiteral parses: [ a, b, c ]
func (p *Parser) parseListLiteral() ast.Expr {
	start := p.advance() // consume '['
	var elems []ast.Expr

	if !p.check(token.RBRACKET) {
		for {
			elem := p.parseExpr(bpNone)
			if elem == nil {
				return nil
			}
			elems = append(elems, elem)
			if !p.check(token.COMMA) {
				break
			}
			p.advance()
		}
	}
	end, ok := p.expect(token.RBRACKET)
	if !ok {
		return nil
	}
	return &ast.ListLiteral{
		ExprBase: makeExprBase(start.Span.Start, end.Span.End),
		Elements: elems,
	}
}

// parseMapLiteral parses: { "key": value, other: value }
// Bare identifier keys are taken as strings.
func (p *Parser) parseMapLiteral() ast.Expr {
	start := p.advance() // consume '{'
	lit := &ast.MapLiteral{}

	if !p.check(token.RBRACE) {
		for {
			var key ast.Expr
			if tok := p.peek(); tok.Kind == token.IDENT {
				p.advance()
				key = &ast.StringLiteral{
					ExprBase: makeExprBase(tok.Span.Start, tok.Span.End),
					Value:    tok.Lexeme,
				}
			} else {
				key = p.parseExpr(bpNone)
			}
			if key == nil {
				return nil
			}
			if _, ok := p.expect(token.COLON); !ok {
				return nil
			}
			val := p.parseExpr(bpNone)
			if val == nil {
				return nil
			}
			lit.Keys = append(lit.Keys, key)
			lit.Values = append(lit.Values, val)
			if !p.check(token.COMMA) {
				break
			}
			p.advance()
		}
	}
	end, ok := p.expect(token.RBRACE)
	if !ok {
		return nil
	}
	lit.ExprBase = makeExprBase(start.Span.Start, end.Span.End)
	return lit
}

func makeExprBase(start, end span.Position) ast.ExprBase {
	return ast.ExprBase{NodeBase: ast.NodeBase{Span: span.Span{Start: start, End: end}}}
}
