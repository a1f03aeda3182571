// Package lexer implements the tokenizer for humanlang expressions. Besides the
// usual symbolic operators it recognises the English operator phrases
// ("is greater than", "divided by", ...) and the possessive "'s".
package lexer

import (
	"fmt"
	"humanlang/internal/diag"
	"humanlang/internal/span"
	"humanlang/internal/token"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes an expression into a sequence of tokens.
type Lexer struct {
	source string

	pos  int // current read position in source
	line int // current line (1-based)
	col  int // current column (1-based)

	prev  token.Kind // kind of the last emitted token
	diags []*diag.Diagnostic
}

// New creates a new Lexer for the given expression text.
func New(source string) *Lexer {
	return NewAt(source, 1)
}

// NewAt creates a Lexer whose spans start on the given source line.
func NewAt(source string, line int) *Lexer {
	return &Lexer{
		source: source,
		line:   line,
		col:    1,
		prev:   token.ILLEGAL,
	}
}

// Tokenize scans the entire source and returns all tokens and diagnostics.
func (l *Lexer) Tokenize() ([]token.Token, []*diag.Diagnostic) {
	var tokens []token.Token
	for {
		tok := l.nextToken()
		tokens = append(tokens, tok)
		l.prev = tok.Kind
		if tok.Kind == token.EOF {
			break
		}
	}
	return tokens, l.diags
}

// ---- internal helpers ----

// peek returns the current character without advancing, or 0 if at end.
func (l *Lexer) peek() byte {
	return l.peekAt(l.pos)
}

func (l *Lexer) peekAt(i int) byte {
	if i >= len(l.source) {
		return 0
	}
	return l.source[i]
}

// advance consumes the current character and returns it.
func (l *Lexer) advance() byte {
	ch := l.source[l.pos]
	l.pos++
	l.col++
	return ch
}

func (l *Lexer) advanceTo(end int) {
	for l.pos < end {
		l.advance()
	}
}

func (l *Lexer) curPos() span.Position {
	return span.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: l.curPos()}
}

func (l *Lexer) makeToken(kind token.Kind, lexeme string, start span.Position) token.Token {
	return token.Token{Kind: kind, Lexeme: lexeme, Span: l.makeSpan(start)}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.source) && isSpace(l.source[l.pos]) {
		l.advance()
	}
}

func (l *Lexer) addError(code string, s span.Span, msg string) {
	l.diags = append(l.diags, diag.Errorf(diag.StructuralParseError, code, s, "%s", msg))
}

// ---- token reading ----

func (l *Lexer) nextToken() token.Token {
	l.skipWhitespace()

	if l.pos >= len(l.source) {
		return l.makeToken(token.EOF, "", l.curPos())
	}

	start := l.curPos()
	ch := l.peek()

	if ch == '\'' && l.atPossessive() {
		l.advance()
		l.advance()
		return l.makeToken(token.POSSESSIVE, "'s", start)
	}

	if ch == '"' || ch == '\'' {
		return l.readString(start, ch)
	}

	if isDigit(ch) {
		return l.readNumber(start)
	}

	if l.isIdentStartAt(l.pos) {
		if tok, ok := l.readPhrase(start); ok {
			return tok
		}
		return l.readIdentifier(start)
	}

	return l.readOperator(start)
}

// atPossessive reports whether the quote at the current position is the
// possessive suffix of the previous operand rather than the start of a string.
func (l *Lexer) atPossessive() bool {
	switch l.prev {
	case token.IDENT, token.KW_THIS, token.RPAREN, token.RBRACKET, token.STRING:
	default:
		return false
	}
	if l.pos > 0 && isSpace(l.source[l.pos-1]) {
		return false
	}
	next := l.peekAt(l.pos + 1)
	if next != 's' && next != 'S' {
		return false
	}
	return !l.isIdentPartAt(l.pos + 2)
}

// readString reads a string literal delimited by quote.
func (l *Lexer) readString(start span.Position, quote byte) token.Token {
	l.advance() // skip opening quote
	var value []byte

	for l.pos < len(l.source) {
		ch := l.peek()
		if ch == quote {
			l.advance()
			return l.makeToken(token.STRING, string(value), start)
		}
		if ch == '\\' && l.pos+1 < len(l.source) {
			l.advance()
			esc := l.peek()
			switch esc {
			case 'n':
				value = append(value, '\n')
			case 't':
				value = append(value, '\t')
			case '\\':
				value = append(value, '\\')
			case '"', '\'':
				value = append(value, esc)
			default:
				l.addError("E1102", l.makeSpan(start), fmt.Sprintf("unknown escape sequence: \\%c", esc))
				value = append(value, esc)
			}
			l.advance()
			continue
		}
		value = append(value, ch)
		l.advance()
	}

	l.addError("E1101", l.makeSpan(start), "unterminated string literal")
	return l.makeToken(token.STRING, string(value), start)
}

// readNumber reads an integer or decimal literal.
func (l *Lexer) readNumber(start span.Position) token.Token {
	numStart := l.pos
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekAt(l.pos+1)) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	return l.makeToken(token.NUMBER, l.source[numStart:l.pos], start)
}

// readPhrase tries every operator phrase at the current position. Words are
// compared case-insensitively and must end on a word boundary.
func (l *Lexer) readPhrase(start span.Position) (token.Token, bool) {
	for _, ph := range token.Phrases {
		end, ok := l.matchWords(l.pos, ph.Words)
		if !ok {
			continue
		}
		lexeme := l.source[l.pos:end]
		l.advanceTo(end)
		return l.makeToken(ph.Kind, lexeme, start), true
	}
	return token.Token{}, false
}

func (l *Lexer) matchWords(pos int, words []string) (int, bool) {
	for i, w := range words {
		if i > 0 {
			if pos >= len(l.source) || !isSpace(l.source[pos]) {
				return 0, false
			}
			for pos < len(l.source) && isSpace(l.source[pos]) {
				pos++
			}
		}
		end := pos + len(w)
		if end > len(l.source) || !strings.EqualFold(l.source[pos:end], w) {
			return 0, false
		}
		if l.isIdentPartAt(end) {
			return 0, false
		}
		pos = end
	}
	return pos, true
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier(start span.Position) token.Token {
	identStart := l.pos
	for l.isIdentPartAt(l.pos) {
		_, size := utf8.DecodeRuneInString(l.source[l.pos:])
		l.advanceTo(l.pos + size)
	}
	lexeme := l.source[identStart:l.pos]
	return l.makeToken(token.LookupIdent(lexeme), lexeme, start)
}

// readOperator reads an operator or delimiter token.
func (l *Lexer) readOperator(start span.Position) token.Token {
	ch := l.advance()

	switch ch {
	case '(':
		return l.makeToken(token.LPAREN, "(", start)
	case ')':
		return l.makeToken(token.RPAREN, ")", start)
	case '[':
		return l.makeToken(token.LBRACKET, "[", start)
	case ']':
		return l.makeToken(token.RBRACKET, "]", start)
	case '{':
		return l.makeToken(token.LBRACE, "{", start)
	case '}':
		return l.makeToken(token.RBRACE, "}", start)
	case ',':
		return l.makeToken(token.COMMA, ",", start)
	case ':':
		return l.makeToken(token.COLON, ":", start)
	case '+':
		return l.makeToken(token.PLUS, "+", start)
	case '-':
		return l.makeToken(token.MINUS, "-", start)
	case '*':
		return l.makeToken(token.STAR, "*", start)
	case '/':
		return l.makeToken(token.SLASH, "/", start)
	case '!':
		if l.peek() == '=' {
			l.advance()
			return l.makeToken(token.NEQ, "!=", start)
		}
		return l.makeToken(token.NOT, "!", start)
	case '=':
		if l.peek() == '=' {
			l.advance()
		}
		return l.makeToken(token.EQ, "==", start)
	case '<':
		if l.peek() == '=' {
			l.advance()
			return l.makeToken(token.LTE, "<=", start)
		}
		return l.makeToken(token.LT, "<", start)
	case '>':
		if l.peek() == '=' {
			l.advance()
			return l.makeToken(token.GTE, ">=", start)
		}
		return l.makeToken(token.GT, ">", start)
	case '&':
		if l.peek() == '&' {
			l.advance()
			return l.makeToken(token.AND, "&&", start)
		}
		l.addError("E1103", l.makeSpan(start), "unexpected character: '&', did you mean 'and'?")
		return l.makeToken(token.ILLEGAL, "&", start)
	case '|':
		if l.peek() == '|' {
			l.advance()
			return l.makeToken(token.OR, "||", start)
		}
		l.addError("E1103", l.makeSpan(start), "unexpected character: '|', did you mean 'or'?")
		return l.makeToken(token.ILLEGAL, "|", start)
	default:
		l.addError("E1103", l.makeSpan(start), fmt.Sprintf("unexpected character: '%c'", ch))
		return l.makeToken(token.ILLEGAL, string(ch), start)
	}
}

// ---- character classification ----

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}

func (l *Lexer) isIdentStartAt(i int) bool {
	if i >= len(l.source) {
		return false
	}
	ch := l.source[i]
	if ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
		return true
	}
	if ch >= utf8.RuneSelf {
		r, _ := utf8.DecodeRuneInString(l.source[i:])
		return unicode.IsLetter(r)
	}
	return false
}

func (l *Lexer) isIdentPartAt(i int) bool {
	return l.isIdentStartAt(i) || isDigit(l.peekAt(i))
}
