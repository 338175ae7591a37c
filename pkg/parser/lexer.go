package parser

import (
	"fmt"
	"unicode"
)

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"def":   DEF,
	"fun":   FUN,
	"in":    IN,
	"out":   OUT,
	"inout": INOUT,
}

var punctuation = map[rune]TokenType{
	'{': LBRACE,
	'}': RBRACE,
	'(': LPAREN,
	')': RPAREN,
	';': SEMICOLON,
	',': COMMA,
	':': COLON,
	'=': ASSIGN,
	'+': PLUS,
	'-': MINUS,
	'*': STAR,
	'/': SLASH,
	'%': PERCENT,
}

// LexError reports a rune that starts no token.
type LexError struct {
	Char rune
	Line int // 1-based source line
	Pos  int // rune offset of Char
}

func (e *LexError) Error() string {
	return fmt.Sprintf("unexpected character %q on line %d", e.Char, e.Line)
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
}

func newLexer(src []rune) *Lexer {
	return &Lexer{src: src, pos: 0, line: 1}
}

// peekAt returns the rune offset positions ahead without consuming it, or 0
// past the end of input.
func (l *Lexer) peekAt(offset int) rune {
	if i := l.pos + offset; i < len(l.src) {
		return l.src[i]
	}
	return 0
}

// peek returns the next rune without consuming it.
func (l *Lexer) peek() rune { return l.peekAt(0) }

// done reports whether every rune has been consumed.
func (l *Lexer) done() bool { return l.pos >= len(l.src) }

// advance consumes one rune, keeping the line count current.
func (l *Lexer) advance() rune {
	r := l.peek()
	if l.done() {
		return r
	}
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

// skipTrivia discards whitespace and "//" comments up to the next token.
func (l *Lexer) skipTrivia() {
	for !l.done() {
		switch {
		case unicode.IsSpace(l.peek()):
			l.advance()
		case l.peek() == '/' && l.peekAt(1) == '/':
			for !l.done() && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// scanWord collects an identifier or keyword.
func (l *Lexer) scanWord() Token {
	line, start := l.line, l.pos
	for !l.done() && isIdentRune(l.peek()) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	tt := IDENTIFIER
	if kw, ok := keywords[lexeme]; ok {
		tt = kw
	}
	return Token{Type: tt, Lexeme: lexeme, Line: line, Pos: start, End: l.pos}
}

// scanNumber collects the digits of an integer literal together with its
// type suffix, so "42i32" is a single INTEGER token. The parser checks the
// suffix.
func (l *Lexer) scanNumber() Token {
	line, start := l.line, l.pos
	for !l.done() && unicode.IsDigit(l.peek()) {
		l.advance()
	}
	for !l.done() && isIdentRune(l.peek()) {
		l.advance()
	}
	return Token{Type: INTEGER, Lexeme: string(l.src[start:l.pos]), Line: line, Pos: start, End: l.pos}
}

// nextToken skips whitespace and comments and returns the next Token.
func (l *Lexer) nextToken() (Token, error) {
	l.skipTrivia()
	if l.done() {
		return Token{Type: EOF, Line: l.line, Pos: l.pos, End: l.pos}, nil
	}

	ch := l.peek()
	if unicode.IsLetter(ch) || ch == '_' {
		return l.scanWord(), nil
	}
	if unicode.IsDigit(ch) {
		return l.scanNumber(), nil
	}

	line, start := l.line, l.pos
	l.advance()
	if tt, ok := punctuation[ch]; ok {
		return Token{Type: tt, Lexeme: string(ch), Line: line, Pos: start, End: l.pos}, nil
	}
	return Token{}, &LexError{Char: ch, Line: line, Pos: start}
}

// Lex tokenises src and returns all tokens including the final EOF token.
func Lex(src string) ([]Token, error) {
	return lexRunes([]rune(src))
}

func lexRunes(src []rune) ([]Token, error) {
	l := newLexer(src)
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}
