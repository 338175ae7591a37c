// Package interpreter executes a parsed program by walking its AST.
package interpreter

import (
	"errors"
	"fmt"
	"math"

	"hobbylang/pkg/ast"
)

var (
	ErrMissingMain       = errors.New("missing main function")
	ErrDivisionByZero    = errors.New("integer divide by zero")
	ErrIntegerOverflow   = errors.New("integer overflow")
	ErrCallDepthExceeded = errors.New("call depth exceeded")
	ErrUnsupported       = errors.New("unsupported")
)

// DefaultMaxCallDepth bounds recursion; the language has no conditionals, so
// any recursive program would otherwise never terminate.
const DefaultMaxCallDepth = 1024

type options struct {
	maxCallDepth int
}

// Option configures Execute.
type Option func(*options)

// WithMaxCallDepth limits how many frames may be live at once.
func WithMaxCallDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxCallDepth = n
		}
	}
}

// local is the storage of one parameter inside a callFrame.
type local struct {
	value int32
	set   bool
}

// callFrame holds the locals of one active call, keyed by parameter name.
type callFrame struct {
	locals map[string]*local
}

// state tracks the program being run and the current call depth.
type state struct {
	program *ast.Program
	opts    options
	depth   int
}

// Execute runs the program's main function and returns its exit code.
func Execute(program *ast.Program, opts ...Option) (int32, error) {
	o := options{maxCallDepth: DefaultMaxCallDepth}
	for _, opt := range opts {
		opt(&o)
	}
	if program == nil || program.MainFunction == nil {
		return 0, ErrMissingMain
	}

	s := &state{program: program, opts: o}
	exitCode := &local{}
	if err := s.executeFunction(program.MainFunction, nil, exitCode); err != nil {
		return 0, err
	}
	return exitCode.value, nil
}

// executeFunction binds in-arguments, evaluates the body and stores the
// assigned value in result.
func (s *state) executeFunction(fn *ast.Function, args map[string]int32, result *local) error {
	if s.depth >= s.opts.maxCallDepth {
		return fmt.Errorf("%w: %d frames calling %s", ErrCallDepthExceeded, s.depth, fn.Name)
	}
	s.depth++
	defer func() { s.depth-- }()

	ft := fn.Type.Func()
	if ft == nil {
		return fmt.Errorf("%w: %s is not a function", ErrUnsupported, fn.Name)
	}

	frame := &callFrame{locals: make(map[string]*local, len(ft.Parameters))}
	var out *ast.FuncParameter
	for i, param := range ft.Parameters {
		b := param.Type.Builtin()
		if b == nil || b.Name != ast.I32 {
			return fmt.Errorf("%w: only %s parameters are implemented: %s", ErrUnsupported, ast.I32, ft.Rep)
		}
		switch param.Direction {
		case ast.In:
			v, ok := args[param.Name]
			if !ok {
				return fmt.Errorf("missing argument %s calling %s", param.Name, fn.Name)
			}
			frame.locals[param.Name] = &local{value: v, set: true}
		case ast.Out:
			if out != nil {
				return fmt.Errorf("%w: multiple out parameters: %s", ErrUnsupported, ft.Rep)
			}
			out = &ft.Parameters[i]
			frame.locals[param.Name] = result
		default:
			return fmt.Errorf("%w: %s parameters: %s", ErrUnsupported, param.Direction, ft.Rep)
		}
	}

	assign, ok := fn.Expression.Expr.(*ast.InitAssignment)
	if !ok {
		return fmt.Errorf("%w: expression %s", ErrUnsupported, fn.Expression.Rep)
	}
	if out == nil || assign.Var != out.Name {
		return fmt.Errorf("undeclared variable: %s", assign.Var)
	}

	v, err := s.evaluate(frame, assign.Value)
	if err != nil {
		return err
	}
	result.value, result.set = v, true
	return nil
}

func (s *state) evaluate(frame *callFrame, e *ast.Expression) (int32, error) {
	switch n := e.Expr.(type) {
	case *ast.Literal:
		return n.Value, nil

	case *ast.VarExpression:
		l, ok := frame.locals[n.VarName]
		if !ok || !l.set {
			return 0, fmt.Errorf("undeclared variable: %s", n.VarName)
		}
		return l.value, nil

	case *ast.BinaryOpExpression:
		lhs, err := s.evaluate(frame, n.LHS)
		if err != nil {
			return 0, err
		}
		rhs, err := s.evaluate(frame, n.RHS)
		if err != nil {
			return 0, err
		}
		v, err := apply(n.Op, lhs, rhs)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", e.Rep, err)
		}
		return v, nil

	case *ast.FunctionCall:
		return s.call(frame, n)
	}
	return 0, fmt.Errorf("%w: expression %s", ErrUnsupported, e.Rep)
}

func (s *state) call(frame *callFrame, call *ast.FunctionCall) (int32, error) {
	callee, ok := s.program.Function(call.FunctionName)
	if !ok {
		return 0, fmt.Errorf("unknown function: %s", call.FunctionName)
	}

	args := make(map[string]int32, len(call.Arguments))
	for i := range call.Arguments {
		v, err := s.evaluate(frame, &call.Arguments[i].Expr)
		if err != nil {
			return 0, err
		}
		args[call.Arguments[i].Name] = v
	}

	result := &local{}
	if err := s.executeFunction(callee, args, result); err != nil {
		return 0, err
	}
	return result.value, nil
}

// apply computes an i32 operation with WebAssembly semantics: wrapping
// arithmetic, trapping on division by zero and on MinInt32 / -1.
func apply(op ast.BinaryOperator, lhs, rhs int32) (int32, error) {
	switch op {
	case ast.Add:
		return lhs + rhs, nil
	case ast.Subtract:
		return lhs - rhs, nil
	case ast.Multiply:
		return lhs * rhs, nil
	case ast.Divide:
		if rhs == 0 {
			return 0, ErrDivisionByZero
		}
		if lhs == math.MinInt32 && rhs == -1 {
			return 0, ErrIntegerOverflow
		}
		return lhs / rhs, nil
	case ast.Modulo:
		if rhs == 0 {
			return 0, ErrDivisionByZero
		}
		if rhs == -1 {
			return 0, nil
		}
		return lhs % rhs, nil
	}
	return 0, fmt.Errorf("%w: operator %s", ErrUnsupported, op)
}
