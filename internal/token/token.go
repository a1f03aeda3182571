// Package token defines the token types produced by the expression lexer.
package token

import (
	"fmt"
	"humanlang/internal/span"
	"strings"
)

// Kind represents the type of a token.
type Kind int

const (
	// Special tokens
	ILLEGAL Kind = iota
	EOF

	// Literals
	IDENT  // identifiers: x, total_count
	NUMBER // numeric literals: 123, 3.14
	STRING // string literals: "hello", 'hello'

	// Operators
	PLUS  // + plus
	MINUS // - minus
	STAR  // * times
	SLASH // / divided by
	NOT   // ! not

	EQ  // == is equal to
	NEQ // != is not equal to
	LT  // < is less than
	LTE // <=
	GT  // > is greater than
	GTE // >=

	AND // and &&
	OR  // or ||

	IS_TRUE  // is true
	IS_FALSE // is false

	POSSESSIVE // 's

	// Delimiters
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	LBRACE   // {
	RBRACE   // }
	COMMA    // ,
	COLON    // :

	// Keywords
	KW_THIS
	KW_TRUE
	KW_FALSE
	KW_NULL
)

var kindNames = map[Kind]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",

	PLUS:  "+",
	MINUS: "-",
	STAR:  "*",
	SLASH: "/",
	NOT:   "not",
	EQ:    "==",
	NEQ:   "!=",
	LT:    "<",
	LTE:   "<=",
	GT:    ">",
	GTE:   ">=",
	AND:   "and",
	OR:    "or",

	IS_TRUE:    "is true",
	IS_FALSE:   "is false",
	POSSESSIVE: "'s",

	LPAREN:   "(",
	RPAREN:   ")",
	LBRACKET: "[",
	RBRACKET: "]",
	LBRACE:   "{",
	RBRACE:   "}",
	COMMA:    ",",
	COLON:    ":",

	KW_THIS:  "this",
	KW_TRUE:  "true",
	KW_FALSE: "false",
	KW_NULL:  "null",
}

// String returns the human-readable name for a token kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsKeyword returns true if the kind is a keyword.
func (k Kind) IsKeyword() bool {
	return k >= KW_THIS && k <= KW_NULL
}

// IsLiteral returns true if the kind is a literal (ident/number/string).
func (k Kind) IsLiteral() bool {
	return k >= IDENT && k <= STRING
}

var keywords = map[string]Kind{
	"this":    KW_THIS,
	"true":    KW_TRUE,
	"false":   KW_FALSE,
	"null":    KW_NULL,
	"none":    KW_NULL,
	"nothing": KW_NULL,
	"and":     AND,
	"or":      OR,
	"not":     NOT,
	"plus":    PLUS,
	"minus":   MINUS,
	"times":   STAR,
}

// LookupIdent returns the keyword Kind for ident, or IDENT if it is not a
// keyword. Keywords are matched case-insensitively.
func LookupIdent(ident string) Kind {
	if kind, ok := keywords[strings.ToLower(ident)]; ok {
		return kind
	}
	return IDENT
}

// Phrase is a multi-word operator spelled out in English.
type Phrase struct {
	Words []string
	Kind  Kind
}

// Phrases lists the multi-word operators, longest first. The lexer tries them
// in order before falling back to single-word keywords.
var Phrases = []Phrase{
	{Words: []string{"is", "not", "equal", "to"}, Kind: NEQ},
	{Words: []string{"is", "greater", "than", "or", "equal", "to"}, Kind: GTE},
	{Words: []string{"is", "less", "than", "or", "equal", "to"}, Kind: LTE},
	{Words: []string{"is", "greater", "than"}, Kind: GT},
	{Words: []string{"is", "less", "than"}, Kind: LT},
	{Words: []string{"is", "equal", "to"}, Kind: EQ},
	{Words: []string{"divided", "by"}, Kind: SLASH},
	{Words: []string{"is", "true"}, Kind: IS_TRUE},
	{Words: []string{"is", "false"}, Kind: IS_FALSE},
}

// Token represents a lexical token with its kind, text, and source location.
type Token struct {
	Kind   Kind      `json:"kind"`
	Lexeme string    `json:"lexeme"`
	Span   span.Span `json:"span"`
}

// String returns a human-readable representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("%s %q %s", t.Kind, t.Lexeme, t.Span.Start)
}
