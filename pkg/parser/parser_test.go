package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hobbylang/pkg/ast"
)

const minimalProgram = "def main = fun(out exitCode: i32) { exitCode = 0i32; };"

func TestParseMinimalProgram(t *testing.T) {
	program, err := Parse(strings.NewReader(minimalProgram), "test name")
	require.NoError(t, err)

	require.Len(t, program.Types, 2)
	require.Len(t, program.Functions, 1)
	assert.Same(t, program.Functions[0], program.MainFunction)

	main := program.MainFunction
	assert.Equal(t, "main", main.Name)
	assert.Equal(t, "test name", main.SourceFile)
	assert.Equal(t, "fun(out exitCode: i32)", main.Type.Rep)
	assert.Equal(t, "{ exitCode = 0i32; }", main.Expression.Rep)

	assert.Equal(t, "i32", program.Types[0].Rep)
	assert.Same(t, program.Types[1], main.Type)
	assert.Same(t, program.Types[0], main.Type.Func().Parameters[0].Type)

	assign, ok := main.Expression.Expr.(*ast.InitAssignment)
	require.True(t, ok)
	assert.Equal(t, "exitCode", assign.Var)
	assert.Equal(t, &ast.Expression{Rep: "0i32", Expr: &ast.Literal{Value: 0}}, assign.Value)
}

// bodyValue parses src and returns the value assigned in the named function.
func bodyValue(t *testing.T, src, fn string) *ast.Expression {
	t.Helper()
	program, err := ParseString(src, "test")
	require.NoError(t, err)
	f, ok := program.Function(fn)
	require.True(t, ok)
	assign, ok := f.Expression.Expr.(*ast.InitAssignment)
	require.True(t, ok)
	return assign.Value
}

func lit(rep string, v int32) *ast.Expression {
	return &ast.Expression{Rep: rep, Expr: &ast.Literal{Value: v}}
}

func TestParseExpressions(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected *ast.Expression
	}{
		{
			name:     "negative literal",
			value:    "-7i32",
			expected: lit("-7i32", -7),
		},
		{
			name:  "left to right",
			value: "1i32 + 2i32 * 3i32",
			expected: &ast.Expression{
				Rep: "1i32 + 2i32 * 3i32",
				Expr: &ast.BinaryOpExpression{
					Op: ast.Multiply,
					LHS: &ast.Expression{
						Rep:  "1i32 + 2i32",
						Expr: &ast.BinaryOpExpression{Op: ast.Add, LHS: lit("1i32", 1), RHS: lit("2i32", 2)},
					},
					RHS: lit("3i32", 3),
				},
			},
		},
		{
			name:  "parentheses group",
			value: "1i32 + (2i32 % 3i32)",
			expected: &ast.Expression{
				Rep: "1i32 + (2i32 % 3i32)",
				Expr: &ast.BinaryOpExpression{
					Op:  ast.Add,
					LHS: lit("1i32", 1),
					RHS: &ast.Expression{
						Rep:  "(2i32 % 3i32)",
						Expr: &ast.BinaryOpExpression{Op: ast.Modulo, LHS: lit("2i32", 2), RHS: lit("3i32", 3)},
					},
				},
			},
		},
		{
			name:  "subtract negative",
			value: "5i32 - -2i32",
			expected: &ast.Expression{
				Rep:  "5i32 - -2i32",
				Expr: &ast.BinaryOpExpression{Op: ast.Subtract, LHS: lit("5i32", 5), RHS: lit("-2i32", -2)},
			},
		},
		{
			name:     "int32 bounds",
			value:    "-2147483648i32",
			expected: lit("-2147483648i32", -2147483648),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "def main = fun(out exitCode: i32) { exitCode = " + tt.value + "; };"
			assert.Equal(t, tt.expected, bodyValue(t, src, "main"))
		})
	}
}

func TestParseCallsAndVariables(t *testing.T) {
	src := `
// doubles its input
def twice = fun(in x: i32, out result: i32) { result = x + x; };
def main = fun(out exitCode: i32) { exitCode = twice(x = 20i32) + 2i32; };
`
	program, err := ParseString(src, "calls.hl")
	require.NoError(t, err)
	require.Len(t, program.Functions, 2)

	// i32, twice's type, main's type
	assert.Len(t, program.Types, 3)

	twice := bodyValue(t, src, "twice")
	assert.Equal(t, &ast.Expression{
		Rep: "x + x",
		Expr: &ast.BinaryOpExpression{
			Op:  ast.Add,
			LHS: &ast.Expression{Rep: "x", Expr: &ast.VarExpression{VarName: "x"}},
			RHS: &ast.Expression{Rep: "x", Expr: &ast.VarExpression{VarName: "x"}},
		},
	}, twice)

	main := bodyValue(t, src, "main")
	binop, ok := main.Expr.(*ast.BinaryOpExpression)
	require.True(t, ok)
	assert.Equal(t, &ast.Expression{
		Rep: "twice(x = 20i32)",
		Expr: &ast.FunctionCall{
			FunctionName: "twice",
			Arguments:    []ast.FuncArgument{{Name: "x", Direction: ast.In, Expr: *lit("20i32", 20)}},
		},
	}, binop.LHS)
}

func TestParseAllowsMultilineDefinitions(t *testing.T) {
	src := "def main =\n  fun(out exitCode: i32)\n  {\n    exitCode = 3i32;\n  };\n"
	program, err := ParseString(src, "multi")
	require.NoError(t, err)
	assert.Equal(t, "{\n    exitCode = 3i32;\n  }", program.MainFunction.Expression.Rep)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		wantMsg string
	}{
		{name: "empty", input: "", wantErr: ErrNoMain},
		{name: "no main", input: "def other = fun(out r: i32) { r = 1i32; };", wantErr: ErrNoMain},
		{
			name:    "wrong main type",
			input:   "def main = fun(out code: i32) { code = 1i32; };",
			wantErr: ErrWrongMainType,
		},
		{
			name:    "multiple main",
			input:   minimalProgram + "\n" + minimalProgram,
			wantErr: ErrMultipleMain,
		},
		{
			name: "duplicate function",
			input: "def f = fun(out r: i32) { r = 1i32; };\n" +
				"def f = fun(out r: i32) { r = 2i32; };\n" + minimalProgram,
			wantErr: ErrDuplicateFunction,
		},
		{
			name:    "missing def",
			input:   "main = fun(out exitCode: i32) { exitCode = 0i32; };",
			wantMsg: "test:1: expected DEF at start of definition",
		},
		{
			name:    "missing suffix",
			input:   "def main = fun(out exitCode: i32) { exitCode = 0; };",
			wantMsg: `expected type i32 after value in "0"`,
		},
		{
			name:    "wrong suffix",
			input:   "def main = fun(out exitCode: i32) { exitCode = 0i64; };",
			wantMsg: `expected type i32 after value in "0i64"`,
		},
		{
			name:    "out of range",
			input:   "def main = fun(out exitCode: i32) { exitCode = 2147483648i32; };",
			wantMsg: "literal 2147483648 out of range for i32",
		},
		{
			name:    "missing direction",
			input:   "def main = fun(exitCode: i32) { exitCode = 0i32; };",
			wantMsg: `parameter direction not found: "exitCode"`,
		},
		{
			name:    "unknown type",
			input:   "def main = fun(out exitCode: i64) { exitCode = 0i32; };",
			wantMsg: `type not implemented: "i64"`,
		},
		{
			name:    "missing semicolon",
			input:   "def main = fun(out exitCode: i32) { exitCode = 0i32 };",
			wantMsg: "expected SEMICOLON at end of expression",
		},
		{
			name:    "missing def end",
			input:   "def main = fun(out exitCode: i32) { exitCode = 0i32; }",
			wantMsg: "expected SEMICOLON after def",
		},
		{
			name:    "non-function definition",
			input:   "def answer = i32;",
			wantMsg: `non-function definitions not implemented: "i32"`,
		},
		{
			name:    "undeclared variable",
			input:   "def main = fun(out exitCode: i32) { result = 0i32; };",
			wantErr: ErrUndeclaredVariable,
		},
		{
			name:    "unknown function",
			input:   "def main = fun(out exitCode: i32) { exitCode = nope(); };",
			wantErr: ErrUnknownFunction,
		},
		{
			name: "missing argument",
			input: "def id = fun(in x: i32, out r: i32) { r = x; };\n" +
				"def main = fun(out exitCode: i32) { exitCode = id(); };",
			wantErr: ErrBadCall,
		},
		{
			name: "unknown argument",
			input: "def one = fun(out r: i32) { r = 1i32; };\n" +
				"def main = fun(out exitCode: i32) { exitCode = one(y = 1i32); };",
			wantErr: ErrBadCall,
		},
		{
			name:    "read out parameter",
			input:   "def main = fun(out exitCode: i32) { exitCode = exitCode; };",
			wantMsg: "cannot read out parameter exitCode",
		},
		{
			name:    "assign in parameter",
			input:   "def f = fun(in x: i32) { x = 1i32; };\n" + minimalProgram,
			wantMsg: "cannot assign to in parameter x",
		},
		{
			name:    "sign separated from literal",
			input:   "def main = fun(out exitCode: i32) { exitCode = - 5i32; };",
			wantMsg: "test:1: expected number term after '-'",
		},
		{
			name:    "unknown operator",
			input:   "def main = fun(out exitCode: i32) {\n  exitCode = 1i32 & 2i32;\n};",
			wantMsg: "test:2: unexpected character '&'\n  |> exitCode = 1i32 & 2i32;",
		},
		{
			name:    "duplicate parameter",
			input:   "def f = fun(in x: i32, out x: i32) { x = 1i32; };",
			wantMsg: `duplicate parameter "x"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input, "test")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParseErrorShowsSourceLine(t *testing.T) {
	src := minimalProgram + "\ndef broken = fun(out r: i32) { r = 1i32 ^ 2i32; };"
	_, err := ParseString(src, "prog.hl")
	require.Error(t, err)
	var lexErr *LexError
	assert.False(t, errors.As(err, &lexErr), "lexer errors are reported like parse errors")
	assert.Contains(t, err.Error(), "prog.hl:2: unexpected character '^'")
	assert.Contains(t, err.Error(), "|> def broken = fun(out r: i32) { r = 1i32 ^ 2i32; };")
}

func TestParseSnippet(t *testing.T) {
	src := minimalProgram + "\n  def other = fun(out r: i32) { r = 1; };"
	_, err := ParseString(src, "prog.hl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prog.hl:2:")
	assert.Contains(t, err.Error(), "|> def other = fun(out r: i32) { r = 1; };")
}
