// Package ast defines the syntax tree produced by the parser and consumed by
// the interpreter and the WebAssembly backend.
//
// Pipeline: source → parser.Parse → *Program → interpreter.Execute | wasm.Compile
package ast

import (
	"fmt"
	"strings"
)

//  Types

// ParameterDirection says how a value flows through a function parameter.
type ParameterDirection int

const (
	In    ParameterDirection = iota // caller → callee
	Out                             // callee → caller
	InOut                           // both ways
)

var directionNames = [...]string{
	In:    "in",
	Out:   "out",
	InOut: "inout",
}

func (d ParameterDirection) String() string {
	if int(d) >= 0 && int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("ParameterDirection(%d)", int(d))
}

// ParseDirection maps a direction keyword to its ParameterDirection.
func ParseDirection(s string) (ParameterDirection, bool) {
	for d, name := range directionNames {
		if name == s {
			return ParameterDirection(d), true
		}
	}
	return 0, false
}

// TypeKind is implemented by every concrete kind of Type.
type TypeKind interface {
	typeKind()
	String() string
}

// BuiltInType is a type the language knows by name, e.g. i32.
type BuiltInType struct {
	Name string
}

func (*BuiltInType) typeKind()        {}
func (b *BuiltInType) String() string { return b.Name }

func (b *BuiltInType) Equal(o *BuiltInType) bool {
	if b == nil || o == nil {
		return b == o
	}
	return b.Name == o.Name
}

// FuncParameter is one entry of a function type's parameter list.
//
//	fun(out exitCode: i32)
//	    ^^^^^^^^^^^^^^^^^  FuncParameter{Name: "exitCode", Direction: Out, Type: i32}
type FuncParameter struct {
	Name      string
	Direction ParameterDirection
	Type      *Type
}

func (p FuncParameter) Equal(o FuncParameter) bool {
	return p.Name == o.Name && p.Direction == o.Direction && p.Type.Equal(o.Type)
}

func (p FuncParameter) String() string {
	return fmt.Sprintf("%s %s: %s", p.Direction, p.Name, p.Type)
}

// FuncType is the type of a function value.
type FuncType struct {
	Rep        string
	Parameters []FuncParameter
}

func (*FuncType) typeKind() {}
func (f *FuncType) String() string {
	parts := make([]string, len(f.Parameters))
	for i, p := range f.Parameters {
		parts[i] = p.String()
	}
	return "fun(" + strings.Join(parts, ", ") + ")"
}

func (f *FuncType) Equal(o *FuncType) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.Rep != o.Rep || len(f.Parameters) != len(o.Parameters) {
		return false
	}
	for i := range f.Parameters {
		if !f.Parameters[i].Equal(o.Parameters[i]) {
			return false
		}
	}
	return true
}

// Params returns the parameters with the given direction, in declaration order.
func (f *FuncType) Params(dir ParameterDirection) []FuncParameter {
	var out []FuncParameter
	for _, p := range f.Parameters {
		if p.Direction == dir {
			out = append(out, p)
		}
	}
	return out
}

// Param looks a parameter up by name.
func (f *FuncType) Param(name string) (FuncParameter, bool) {
	for _, p := range f.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return FuncParameter{}, false
}

// Type is a named or structural type. Rep is the canonical spelling.
type Type struct {
	Rep string
	T   TypeKind
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.T.String()
}

func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Rep != o.Rep {
		return false
	}
	switch a := t.T.(type) {
	case *BuiltInType:
		b, ok := o.T.(*BuiltInType)
		return ok && a.Equal(b)
	case *FuncType:
		b, ok := o.T.(*FuncType)
		return ok && a.Equal(b)
	case nil:
		return o.T == nil
	}
	return false
}

// Func returns the FuncType of t, or nil if t is not a function type.
func (t *Type) Func() *FuncType {
	if t == nil {
		return nil
	}
	f, _ := t.T.(*FuncType)
	return f
}

// Builtin returns the BuiltInType of t, or nil.
func (t *Type) Builtin() *BuiltInType {
	if t == nil {
		return nil
	}
	b, _ := t.T.(*BuiltInType)
	return b
}

// I32 is the name of the only built-in value type.
const I32 = "i32"

// NewBuiltInType returns a Type for a built-in name.
func NewBuiltInType(name string) *Type {
	return &Type{Rep: name, T: &BuiltInType{Name: name}}
}

// NewFuncType returns a Type for the given parameters with a canonical Rep.
func NewFuncType(params ...FuncParameter) *Type {
	ft := &FuncType{Parameters: params}
	rep := ft.String()
	ft.Rep = strings.TrimPrefix(rep, "fun")
	return &Type{Rep: rep, T: ft}
}

// MainFuncType is the type every program's main function must have.
func MainFuncType() *Type {
	return NewFuncType(FuncParameter{Name: "exitCode", Direction: Out, Type: NewBuiltInType(I32)})
}

// IsMainFuncType reports whether t is fun(out exitCode: i32).
func IsMainFuncType(t *Type) bool {
	ft := t.Func()
	if ft == nil || len(ft.Parameters) != 1 {
		return false
	}
	p := ft.Parameters[0]
	if p.Name != "exitCode" || p.Direction != Out {
		return false
	}
	b := p.Type.Builtin()
	return b != nil && b.Name == I32
}

//  Expressions

// ExprKind is implemented by every concrete kind of Expression.
type ExprKind interface {
	exprKind()
	String() string
}

// BinaryOperator is an arithmetic operator on i32 values.
type BinaryOperator int

const (
	Add BinaryOperator = iota
	Subtract
	Multiply
	Divide
	Modulo
)

var operatorSymbols = [...]string{
	Add:      "+",
	Subtract: "-",
	Multiply: "*",
	Divide:   "/",
	Modulo:   "%",
}

func (op BinaryOperator) String() string {
	if int(op) >= 0 && int(op) < len(operatorSymbols) {
		return operatorSymbols[op]
	}
	return fmt.Sprintf("BinaryOperator(%d)", int(op))
}

// ParseBinaryOperator maps an operator symbol to its BinaryOperator.
func ParseBinaryOperator(sym string) (BinaryOperator, bool) {
	for op, s := range operatorSymbols {
		if s == sym {
			return BinaryOperator(op), true
		}
	}
	return 0, false
}

// Literal is an i32 constant.
//
//	exitCode = 42i32;
//	           ^^^^^  Literal{Value: 42}
type Literal struct {
	Value int32
}

func (*Literal) exprKind()        {}
func (l *Literal) String() string { return fmt.Sprintf("%di32", l.Value) }

// InitAssignment assigns Value to the parameter named Var.
type InitAssignment struct {
	Var   string
	Value *Expression
}

func (*InitAssignment) exprKind() {}
func (a *InitAssignment) String() string {
	return fmt.Sprintf("%s = %s", a.Var, a.Value)
}

// BinaryOpExpression is LHS Op RHS.
type BinaryOpExpression struct {
	Op  BinaryOperator
	LHS *Expression
	RHS *Expression
}

func (*BinaryOpExpression) exprKind() {}
func (b *BinaryOpExpression) String() string {
	return fmt.Sprintf("(%s %s %s)", b.LHS, b.Op, b.RHS)
}

// FuncArgument binds one parameter of a call by name.
type FuncArgument struct {
	Name      string
	Direction ParameterDirection
	Expr      Expression
}

// FunctionCall evaluates to the callee's out parameter.
type FunctionCall struct {
	FunctionName string
	Arguments    []FuncArgument
}

func (*FunctionCall) exprKind() {}
func (c *FunctionCall) String() string {
	parts := make([]string, len(c.Arguments))
	for i, a := range c.Arguments {
		parts[i] = fmt.Sprintf("%s = %s", a.Name, &a.Expr)
	}
	return fmt.Sprintf("%s(%s)", c.FunctionName, strings.Join(parts, ", "))
}

// Argument looks an argument up by parameter name.
func (c *FunctionCall) Argument(name string) (*FuncArgument, bool) {
	for i := range c.Arguments {
		if c.Arguments[i].Name == name {
			return &c.Arguments[i], true
		}
	}
	return nil, false
}

// VarExpression reads a parameter.
type VarExpression struct {
	VarName string
}

func (*VarExpression) exprKind()        {}
func (v *VarExpression) String() string { return v.VarName }

// Expression pairs a node with the source text it was parsed from.
type Expression struct {
	Rep  string
	Expr ExprKind
}

func (e *Expression) String() string {
	if e == nil || e.Expr == nil {
		return "<empty>"
	}
	return e.Expr.String()
}

//  Program

// Function is a named definition.
type Function struct {
	Name       string
	SourceFile string
	Type       *Type
	Expression Expression
}

func (f *Function) String() string {
	return fmt.Sprintf("%s: %s %s", f.Name, f.Type.Rep, f.Expression.Rep)
}

// Program is the result of parsing one source file.
type Program struct {
	Types        []*Type
	Functions    []*Function
	MainFunction *Function
}

// FindOrAddType returns the interned Type structurally equal to t, adding t
// if no such type exists yet.
func (p *Program) FindOrAddType(t *Type) *Type {
	for _, existing := range p.Types {
		if existing.Equal(t) {
			return existing
		}
	}
	p.Types = append(p.Types, t)
	return t
}

// Function looks a function up by name.
func (p *Program) Function(name string) (*Function, bool) {
	for _, f := range p.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}
