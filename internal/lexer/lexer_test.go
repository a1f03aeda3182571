package lexer

import (
	"humanlang/internal/token"
	"testing"
)

func expectKinds(t *testing.T, source string, expected ...token.Kind) []token.Token {
	t.Helper()
	tokens, diags := New(source).Tokenize()
	if len(diags) > 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	expected = append(expected, token.EOF)
	if len(tokens) != len(expected) {
		t.Fatalf("%q: expected %d tokens, got %d: %v", source, len(expected), len(tokens), tokens)
	}
	for i, exp := range expected {
		if tokens[i].Kind != exp {
			t.Errorf("%q token[%d]: expected %s, got %s (%q)", source, i, exp, tokens[i].Kind, tokens[i].Lexeme)
		}
	}
	return tokens
}

func TestTokenizeSimple(t *testing.T) {
	expectKinds(t, `3 plus 4`, token.NUMBER, token.PLUS, token.NUMBER)
	expectKinds(t, `3 + 4 * 2`, token.NUMBER, token.PLUS, token.NUMBER, token.STAR, token.NUMBER)
}

func TestTokenizePhrases(t *testing.T) {
	expectKinds(t, `x is greater than 5`, token.IDENT, token.GT, token.NUMBER)
	expectKinds(t, `x is less than 5`, token.IDENT, token.LT, token.NUMBER)
	expectKinds(t, `x is equal to y`, token.IDENT, token.EQ, token.IDENT)
	expectKinds(t, `x is not equal to y`, token.IDENT, token.NEQ, token.IDENT)
	expectKinds(t, `a divided by b minus c times d`,
		token.IDENT, token.SLASH, token.IDENT, token.MINUS, token.IDENT, token.STAR, token.IDENT)
	expectKinds(t, `done is true and not failed is false`,
		token.IDENT, token.IS_TRUE, token.AND, token.NOT, token.IDENT, token.IS_FALSE)
	expectKinds(t, `x is greater than or equal to 5`, token.IDENT, token.GTE, token.NUMBER)
}

func TestTokenizePhrasesCaseInsensitive(t *testing.T) {
	expectKinds(t, `X Is Greater Than 5 AND y IS TRUE`,
		token.IDENT, token.GT, token.NUMBER, token.AND, token.IDENT, token.IS_TRUE)
}

func TestTokenizePhraseWordBoundary(t *testing.T) {
	// "island" and "plusses" are identifiers, not operator phrases.
	toks := expectKinds(t, `island plusses is_true`, token.IDENT, token.IDENT, token.IDENT)
	if toks[0].Lexeme != "island" {
		t.Errorf("expected island, got %q", toks[0].Lexeme)
	}
}

func TestTokenizeSymbolic(t *testing.T) {
	expectKinds(t, `== != < <= > >= + - * / ! && ||`,
		token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE,
		token.PLUS, token.MINUS, token.STAR, token.SLASH,
		token.NOT, token.AND, token.OR)
}

func TestTokenizeStrings(t *testing.T) {
	toks := expectKinds(t, `"hello world" plus 'single'`, token.STRING, token.PLUS, token.STRING)
	if toks[0].Lexeme != "hello world" {
		t.Errorf("expected 'hello world', got %q", toks[0].Lexeme)
	}
	if toks[2].Lexeme != "single" {
		t.Errorf("expected 'single', got %q", toks[2].Lexeme)
	}
}

func TestTokenizeStringKeepsPhrases(t *testing.T) {
	toks := expectKinds(t, `"x is greater than y"`, token.STRING)
	if toks[0].Lexeme != "x is greater than y" {
		t.Errorf("phrase inside string was rewritten: %q", toks[0].Lexeme)
	}
}

func TestTokenizePossessive(t *testing.T) {
	expectKinds(t, `dog's name`, token.IDENT, token.POSSESSIVE, token.IDENT)
	expectKinds(t, `this's owner's age`,
		token.KW_THIS, token.POSSESSIVE, token.IDENT, token.POSSESSIVE, token.IDENT)
	expectKinds(t, `items's length plus 1`,
		token.IDENT, token.POSSESSIVE, token.IDENT, token.PLUS, token.NUMBER)
}

func TestTokenizeLiteralsAndKeywords(t *testing.T) {
	expectKinds(t, `true False NULL none nothing this`,
		token.KW_TRUE, token.KW_FALSE, token.KW_NULL, token.KW_NULL, token.KW_NULL, token.KW_THIS)
	expectKinds(t, `[1, 2.5] {"a": 1}`,
		token.LBRACKET, token.NUMBER, token.COMMA, token.NUMBER, token.RBRACKET,
		token.LBRACE, token.STRING, token.COLON, token.NUMBER, token.RBRACE)
}

func TestTokenizeUnicodeIdent(t *testing.T) {
	toks := expectKinds(t, `größe plus 1`, token.IDENT, token.PLUS, token.NUMBER)
	if toks[0].Lexeme != "größe" {
		t.Errorf("expected größe, got %q", toks[0].Lexeme)
	}
}

func TestUnterminatedString(t *testing.T) {
	_, diags := New(`"hello`).Tokenize()
	if len(diags) != 1 || diags[0].Code != "E1101" {
		t.Fatalf("expected E1101, got %v", diags)
	}
}

func TestIllegalCharacter(t *testing.T) {
	toks, diags := New(`a @ b`).Tokenize()
	if len(diags) != 1 || diags[0].Code != "E1103" {
		t.Fatalf("expected E1103, got %v", diags)
	}
	if toks[1].Kind != token.ILLEGAL {
		t.Errorf("expected ILLEGAL, got %s", toks[1].Kind)
	}
}

func TestSpans(t *testing.T) {
	toks, _ := NewAt(`x plus 10`, 7).Tokenize()
	if toks[2].Span.Start.Line != 7 || toks[2].Span.Start.Column != 8 {
		t.Errorf("unexpected span for 10: %s", toks[2].Span)
	}
}
