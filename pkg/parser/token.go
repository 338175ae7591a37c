package parser

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // function, parameter or type name
	INTEGER    // integer literal with its type suffix, e.g. 42i32

	// Keywords
	DEF   // "def"
	FUN   // "fun"
	IN    // "in"
	OUT   // "out"
	INOUT // "inout"

	// Paired delimiters
	LBRACE // {
	RBRACE // }
	LPAREN // (
	RPAREN // )

	// Punctuation
	SEMICOLON // ;
	COMMA     // ,
	COLON     // :
	ASSIGN    // =

	// Arithmetic operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
)

var tokenNames = [...]string{
	EOF:        "EOF",
	IDENTIFIER: "IDENTIFIER",
	INTEGER:    "INTEGER",
	DEF:        "DEF",
	FUN:        "FUN",
	IN:         "IN",
	OUT:        "OUT",
	INOUT:      "INOUT",
	LBRACE:     "LBRACE",
	RBRACE:     "RBRACE",
	LPAREN:     "LPAREN",
	RPAREN:     "RPAREN",
	SEMICOLON:  "SEMICOLON",
	COMMA:      "COMMA",
	COLON:      "COLON",
	ASSIGN:     "ASSIGN",
	PLUS:       "PLUS",
	MINUS:      "MINUS",
	STAR:       "STAR",
	SLASH:      "SLASH",
	PERCENT:    "PERCENT",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// isDirection reports whether tt is one of the parameter direction keywords.
func (tt TokenType) isDirection() bool {
	return tt == IN || tt == OUT || tt == INOUT
}

// isBinaryOperator reports whether tt can join two terms.
func (tt TokenType) isBinaryOperator() bool {
	switch tt {
	case PLUS, MINUS, STAR, SLASH, PERCENT:
		return true
	}
	return false
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Line   int    // 1-based source line
	Pos    int    // rune offset of the first character
	End    int    // rune offset just past the last character
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  line %d", t.Type, t.Lexeme, t.Line)
}
