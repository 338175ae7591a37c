package parser

import (
	"errors"
	"fmt"

	"hobbylang/pkg/ast"
)

var (
	ErrUndeclaredVariable = errors.New("undeclared variable")
	ErrUnknownFunction    = errors.New("unknown function")
	ErrBadCall            = errors.New("invalid call")
)

// Resolve checks that every name in the program refers to something it may
// use: assignments target out/inout parameters, reads use in/inout i32
// parameters, and calls bind exactly the callee's input parameters.
func Resolve(program *ast.Program) error {
	for _, fn := range program.Functions {
		if err := resolveFunction(program, fn); err != nil {
			return fmt.Errorf("function %s: %w", fn.Name, err)
		}
	}
	return nil
}

func resolveFunction(program *ast.Program, fn *ast.Function) error {
	ft := fn.Type.Func()
	if ft == nil {
		return fmt.Errorf("type %s is not a function type", fn.Type.Rep)
	}
	assign, ok := fn.Expression.Expr.(*ast.InitAssignment)
	if !ok {
		return fmt.Errorf("unsupported expression: %s", fn.Expression.Rep)
	}

	target, ok := ft.Param(assign.Var)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUndeclaredVariable, assign.Var)
	}
	if target.Direction == ast.In {
		return fmt.Errorf("cannot assign to in parameter %s", assign.Var)
	}
	return resolveExpr(program, ft, assign.Value)
}

func resolveExpr(program *ast.Program, scope *ast.FuncType, e *ast.Expression) error {
	switch n := e.Expr.(type) {
	case *ast.Literal:
		return nil

	case *ast.VarExpression:
		param, ok := scope.Param(n.VarName)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUndeclaredVariable, n.VarName)
		}
		if param.Direction == ast.Out {
			return fmt.Errorf("cannot read out parameter %s", n.VarName)
		}
		if b := param.Type.Builtin(); b == nil || b.Name != ast.I32 {
			return fmt.Errorf("parameter %s of type %s is not an %s value", n.VarName, param.Type.Rep, ast.I32)
		}
		return nil

	case *ast.BinaryOpExpression:
		if err := resolveExpr(program, scope, n.LHS); err != nil {
			return err
		}
		return resolveExpr(program, scope, n.RHS)

	case *ast.FunctionCall:
		return resolveCall(program, scope, n)

	case nil:
		return fmt.Errorf("empty expression")
	}
	return fmt.Errorf("unexpected expression %s", e.Rep)
}

func resolveCall(program *ast.Program, scope *ast.FuncType, call *ast.FunctionCall) error {
	callee, ok := program.Function(call.FunctionName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFunction, call.FunctionName)
	}
	ft := callee.Type.Func()
	if outs := ft.Params(ast.Out); len(outs) != 1 {
		return fmt.Errorf("%w: %s must have exactly one out parameter to be used as a value", ErrBadCall, call.FunctionName)
	}

	bound := make(map[string]bool, len(call.Arguments))
	for i := range call.Arguments {
		arg := &call.Arguments[i]
		param, ok := ft.Param(arg.Name)
		if !ok {
			return fmt.Errorf("%w: %s has no parameter %s", ErrBadCall, call.FunctionName, arg.Name)
		}
		if bound[arg.Name] {
			return fmt.Errorf("%w: argument %s given twice", ErrBadCall, arg.Name)
		}
		if param.Direction == ast.Out {
			return fmt.Errorf("%w: out parameter %s of %s cannot be bound", ErrBadCall, arg.Name, call.FunctionName)
		}
		if arg.Direction != param.Direction {
			return fmt.Errorf("%w: argument %s is %s but parameter is %s", ErrBadCall, arg.Name, arg.Direction, param.Direction)
		}
		bound[arg.Name] = true
		if err := resolveExpr(program, scope, &arg.Expr); err != nil {
			return err
		}
	}

	for _, param := range ft.Parameters {
		if param.Direction != ast.Out && !bound[param.Name] {
			return fmt.Errorf("%w: missing argument %s for %s", ErrBadCall, param.Name, call.FunctionName)
		}
	}
	return nil
}
