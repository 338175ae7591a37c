// Package parser turns hobby-lang source into an *ast.Program.
//
// Grammar:
//
//	program   = def* EOF
//	def       = "def" IDENTIFIER "=" funcType body ";"
//	funcType  = "fun" "(" [ param { "," param } ] ")"
//	param     = ("in" | "out" | "inout") IDENTIFIER ":" type
//	type      = "i32" | funcType
//	body      = "{" IDENTIFIER "=" expr ";" "}"
//	expr      = term { ("+" | "-" | "*" | "/" | "%") term }
//	term      = ["-"] INTEGER | IDENTIFIER | IDENTIFIER "(" [ arg { "," arg } ] ")" | "(" expr ")"
//	arg       = [ direction ] IDENTIFIER "=" expr
//
// Binary operators have equal precedence and associate left to right.
package parser

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"hobbylang/pkg/ast"
)

var (
	ErrNoMain            = errors.New("no main function")
	ErrMultipleMain      = errors.New("multiple main functions found")
	ErrWrongMainType     = errors.New("wrong type for main")
	ErrDuplicateFunction = errors.New("duplicate function")
)

// literalSuffix is the type suffix every integer literal carries.
const literalSuffix = ast.I32

// Parser consumes the flat token slice produced by the Lexer and builds a Program.
type Parser struct {
	name        string
	src         []rune
	tokens      []Token
	pos         int
	sourceLines []string
	program     *ast.Program
}

func newParser(name string, src []rune, tokens []Token) *Parser {
	return &Parser{
		name:        name,
		src:         src,
		tokens:      tokens,
		sourceLines: strings.Split(string(src), "\n"),
		program:     &ast.Program{},
	}
}

// errorf wraps a message with the file name, line and source line of tok.
// The format may use %w.
func (p *Parser) errorf(tok Token, format string, args ...any) error {
	snippet := "<source unavailable>"
	if idx := tok.Line - 1; idx >= 0 && idx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[idx])
	}
	args = append([]any{p.name, tok.Line}, args...)
	args = append(args, snippet)
	return fmt.Errorf("%s:%d: "+format+"\n  |> %s", args...)
}

func (p *Parser) peek() Token {
	return p.peekAt(0)
}

func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return Token{Type: EOF, Pos: len(p.src), End: len(p.src)}
	}
	return p.tokens[p.pos+offset]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it matches tt, otherwise returns an error.
func (p *Parser) expect(tt TokenType, context string) (Token, error) {
	tok := p.advance()
	if tok.Type != tt {
		return tok, p.errorf(tok, "expected %s %s, got %s (%q)", tt, context, tok.Type, tok.Lexeme)
	}
	return tok, nil
}

// text returns the source between two rune offsets.
func (p *Parser) text(start, end int) string {
	return string(p.src[start:end])
}

// Parse reads a whole source file and returns its resolved Program.
// name is recorded as the source file of every function and used in errors.
func Parse(r io.Reader, name string) (*ast.Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return ParseString(string(data), name)
}

// ParseString is Parse for source already in memory.
func ParseString(source, name string) (*ast.Program, error) {
	src := []rune(source)
	tokens, err := lexRunes(src)
	p := newParser(name, src, tokens)
	if err != nil {
		var lexErr *LexError
		if errors.As(err, &lexErr) {
			tok := Token{Lexeme: string(lexErr.Char), Line: lexErr.Line, Pos: lexErr.Pos, End: lexErr.Pos + 1}
			return nil, p.errorf(tok, "unexpected character %q", lexErr.Char)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	for p.peek().Type != EOF {
		if err := p.parseDef(); err != nil {
			return nil, err
		}
	}

	if p.program.MainFunction == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNoMain)
	}
	if err := Resolve(p.program); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return p.program, nil
}

// parseDef handles one top-level definition.
func (p *Parser) parseDef() error {
	if _, err := p.expect(DEF, "at start of definition"); err != nil {
		return err
	}
	nameTok, err := p.expect(IDENTIFIER, "after def")
	if err != nil {
		return err
	}
	if _, err := p.expect(ASSIGN, "in def"); err != nil {
		return err
	}

	if tok := p.peek(); tok.Type != FUN {
		return p.errorf(tok, "non-function definitions not implemented: %q", tok.Lexeme)
	}
	typ, err := p.parseType()
	if err != nil {
		return err
	}

	body, err := p.parseBody()
	if err != nil {
		return err
	}
	if _, err := p.expect(SEMICOLON, "after def"); err != nil {
		return err
	}

	fn := &ast.Function{
		Name:       nameTok.Lexeme,
		SourceFile: p.name,
		Type:       typ,
		Expression: body,
	}

	if fn.Name == "main" {
		if !ast.IsMainFuncType(fn.Type) {
			return p.errorf(nameTok, "%w: %s", ErrWrongMainType, fn.Type.Rep)
		}
		if p.program.MainFunction != nil {
			return p.errorf(nameTok, "%w", ErrMultipleMain)
		}
		p.program.MainFunction = fn
	} else if _, exists := p.program.Function(fn.Name); exists {
		return p.errorf(nameTok, "%w: %s", ErrDuplicateFunction, fn.Name)
	}

	p.program.Functions = append(p.program.Functions, fn)
	return nil
}

// parseType handles i32 and function types and interns the result.
func (p *Parser) parseType() (*ast.Type, error) {
	tok := p.peek()
	switch {
	case tok.Type == FUN:
		return p.parseFuncType()
	case tok.Type == IDENTIFIER && tok.Lexeme == ast.I32:
		p.advance()
		return p.program.FindOrAddType(ast.NewBuiltInType(ast.I32)), nil
	}
	return nil, p.errorf(tok, "type not implemented: %q", tok.Lexeme)
}

func (p *Parser) parseFuncType() (*ast.Type, error) {
	if _, err := p.expect(FUN, "in function type"); err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN, "after fun"); err != nil {
		return nil, err
	}

	var params []ast.FuncParameter
	if p.peek().Type != RPAREN {
		for {
			param, err := p.parseParam(params)
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			if p.peek().Type != COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(RPAREN, "after parameters"); err != nil {
		return nil, err
	}

	return p.program.FindOrAddType(ast.NewFuncType(params...)), nil
}

func (p *Parser) parseParam(seen []ast.FuncParameter) (ast.FuncParameter, error) {
	dirTok := p.advance()
	if !dirTok.Type.isDirection() {
		return ast.FuncParameter{}, p.errorf(dirTok, "parameter direction not found: %q", dirTok.Lexeme)
	}
	dir, _ := ast.ParseDirection(dirTok.Lexeme)

	nameTok := p.advance()
	if nameTok.Type != IDENTIFIER {
		return ast.FuncParameter{}, p.errorf(nameTok, "parameter name not found: %q", nameTok.Lexeme)
	}
	for _, s := range seen {
		if s.Name == nameTok.Lexeme {
			return ast.FuncParameter{}, p.errorf(nameTok, "duplicate parameter %q", nameTok.Lexeme)
		}
	}
	if _, err := p.expect(COLON, "after parameter name"); err != nil {
		return ast.FuncParameter{}, err
	}

	typ, err := p.parseType()
	if err != nil {
		return ast.FuncParameter{}, err
	}
	return ast.FuncParameter{Name: nameTok.Lexeme, Direction: dir, Type: typ}, nil
}

// parseBody handles { name = expr; }. The resulting Rep spans the braces.
func (p *Parser) parseBody() (ast.Expression, error) {
	open, err := p.expect(LBRACE, "at start of function body")
	if err != nil {
		return ast.Expression{}, err
	}
	varTok, err := p.expect(IDENTIFIER, "as assignment target")
	if err != nil {
		return ast.Expression{}, err
	}
	if _, err := p.expect(ASSIGN, "in assignment"); err != nil {
		return ast.Expression{}, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return ast.Expression{}, err
	}
	if _, err := p.expect(SEMICOLON, "at end of expression"); err != nil {
		return ast.Expression{}, err
	}
	closeTok, err := p.expect(RBRACE, "at end of function body")
	if err != nil {
		return ast.Expression{}, err
	}

	return ast.Expression{
		Rep:  p.text(open.Pos, closeTok.End),
		Expr: &ast.InitAssignment{Var: varTok.Lexeme, Value: value},
	}, nil
}

// parseExpr folds terms left to right: a - b * c is (a - b) * c.
func (p *Parser) parseExpr() (*ast.Expression, error) {
	start := p.peek().Pos
	head, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.peek().Type.isBinaryOperator() {
		opTok := p.advance()
		op, _ := ast.ParseBinaryOperator(opTok.Lexeme)
		rhs, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		head = &ast.Expression{
			Rep:  p.text(start, p.lastEnd()),
			Expr: &ast.BinaryOpExpression{Op: op, LHS: head, RHS: rhs},
		}
	}
	return head, nil
}

// lastEnd is the end offset of the most recently consumed token.
func (p *Parser) lastEnd() int {
	if p.pos == 0 {
		return 0
	}
	return p.tokens[p.pos-1].End
}

func (p *Parser) parseTerm() (*ast.Expression, error) {
	tok := p.peek()
	switch tok.Type {
	case LPAREN:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		closeTok, err := p.expect(RPAREN, "after parenthesised expression")
		if err != nil {
			return nil, err
		}
		return &ast.Expression{Rep: p.text(tok.Pos, closeTok.End), Expr: inner.Expr}, nil

	case MINUS:
		// The sign belongs to the literal, so nothing may separate them.
		if next := p.peekAt(1); next.Type != INTEGER || next.Pos != tok.End {
			return nil, p.errorf(tok, "expected number term after '-'")
		}
		p.advance()
		return p.parseLiteral(tok, p.advance(), true)

	case INTEGER:
		p.advance()
		return p.parseLiteral(tok, tok, false)

	case IDENTIFIER:
		if p.peekAt(1).Type == LPAREN {
			return p.parseCall()
		}
		p.advance()
		return &ast.Expression{Rep: tok.Lexeme, Expr: &ast.VarExpression{VarName: tok.Lexeme}}, nil
	}
	return nil, p.errorf(tok, "expected term, got %s (%q)", tok.Type, tok.Lexeme)
}

// parseLiteral checks the i32 suffix and range of an INTEGER token.
func (p *Parser) parseLiteral(first, numTok Token, negative bool) (*ast.Expression, error) {
	digitsEnd := strings.IndexFunc(numTok.Lexeme, func(r rune) bool { return r < '0' || r > '9' })
	if digitsEnd < 0 {
		digitsEnd = len(numTok.Lexeme)
	}
	digits, suffix := numTok.Lexeme[:digitsEnd], numTok.Lexeme[digitsEnd:]
	if suffix != literalSuffix {
		return nil, p.errorf(numTok, "expected type %s after value in %q", literalSuffix, numTok.Lexeme)
	}

	if negative {
		digits = "-" + digits
	}
	value, err := strconv.ParseInt(digits, 10, 32)
	if err != nil {
		return nil, p.errorf(numTok, "literal %s out of range for %s", digits, literalSuffix)
	}

	return &ast.Expression{
		Rep:  p.text(first.Pos, numTok.End),
		Expr: &ast.Literal{Value: int32(value)},
	}, nil
}

// parseCall handles name(arg = expr, ...).
func (p *Parser) parseCall() (*ast.Expression, error) {
	nameTok := p.advance()
	p.advance() // (

	call := &ast.FunctionCall{FunctionName: nameTok.Lexeme}
	if p.peek().Type != RPAREN {
		for {
			arg, err := p.parseArgument()
			if err != nil {
				return nil, err
			}
			call.Arguments = append(call.Arguments, arg)
			if p.peek().Type != COMMA {
				break
			}
			p.advance()
		}
	}
	closeTok, err := p.expect(RPAREN, "after call arguments")
	if err != nil {
		return nil, err
	}
	return &ast.Expression{Rep: p.text(nameTok.Pos, closeTok.End), Expr: call}, nil
}

func (p *Parser) parseArgument() (ast.FuncArgument, error) {
	dir := ast.In
	if tok := p.peek(); tok.Type.isDirection() {
		p.advance()
		dir, _ = ast.ParseDirection(tok.Lexeme)
	}
	nameTok, err := p.expect(IDENTIFIER, "as argument name")
	if err != nil {
		return ast.FuncArgument{}, err
	}
	if _, err := p.expect(ASSIGN, "after argument name"); err != nil {
		return ast.FuncArgument{}, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return ast.FuncArgument{}, err
	}
	return ast.FuncArgument{Name: nameTok.Lexeme, Direction: dir, Expr: *value}, nil
}
