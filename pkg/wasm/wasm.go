// Package wasm compiles a parsed program to a WebAssembly 1.0 binary module
// that runs under a WASI host.
//
// The module imports wasi_snapshot_preview1.proc_exit and exports a generated
// _start function that calls main and passes its exit code to proc_exit.
package wasm

import (
	"errors"
	"fmt"
	"io"

	"hobbylang/pkg/ast"
)

var (
	ErrMissingMain = errors.New("missing main function")
	ErrUnsupported = errors.New("not supported by the wasm backend")
)

const (
	// WASIModule is the import module of the exit hook.
	WASIModule = "wasi_snapshot_preview1"
	// ProcExit is the name of the imported exit hook.
	ProcExit = "proc_exit"
	// StartExport is the export name WASI hosts run.
	StartExport = "_start"
	// MemoryExport is the export name of the module's memory.
	MemoryExport = "memory"

	// DefaultMemoryMaxPages is the maximum memory size in 64KiB pages.
	DefaultMemoryMaxPages uint32 = 1024
)

type options struct {
	memoryMaxPages uint32
}

// Option configures Compile.
type Option func(*options)

// WithMemoryMaxPages sets the maximum of the exported memory's limits.
// Zero is a valid maximum and yields a module without usable memory.
func WithMemoryMaxPages(n uint32) Option {
	return func(o *options) { o.memoryMaxPages = n }
}

// funcSig is a function type in wasm terms: in parameters and results.
type funcSig struct {
	params  []byte
	results []byte
}

type importInfo struct {
	module string
	name   string
	typ    *ast.Type
}

type exportInfo struct {
	name string
	fn   *ast.Function
}

// module is the lowered view of a program: every function has an index and
// every function type a signature.
type module struct {
	program *ast.Program
	opts    options

	sigs      []funcSig
	typeIndex map[*ast.Type]uint32

	imports   []importInfo
	functions []*ast.Function
	funcIndex map[*ast.Function]uint32
	exports   []exportInfo

	start *ast.Function
}

// Compile writes the binary module for program to w.
func Compile(program *ast.Program, w io.Writer, opts ...Option) error {
	o := options{memoryMaxPages: DefaultMemoryMaxPages}
	for _, opt := range opts {
		opt(&o)
	}
	if program == nil || program.MainFunction == nil {
		return ErrMissingMain
	}

	m := &module{
		program:   program,
		opts:      o,
		typeIndex: make(map[*ast.Type]uint32),
		funcIndex: make(map[*ast.Function]uint32),
	}

	types := append([]*ast.Type(nil), program.Types...)
	types = m.injectFunctions(types)
	if err := m.translateFuncTypes(types); err != nil {
		return err
	}
	m.createIndex()

	sections := []struct {
		id    byte
		build func() ([]byte, error)
	}{
		{SectionType, m.typeSection},
		{SectionImport, m.importSection},
		{SectionFunction, m.functionSection},
		{SectionMemory, m.memorySection},
		{SectionExport, m.exportSection},
		{SectionCode, m.codeSection},
	}

	enc := &encoder{w: w}
	enc.write(magic)
	enc.write(version)
	for _, s := range sections {
		contents, err := s.build()
		if err != nil {
			return err
		}
		enc.section(s.id, contents)
	}
	return enc.err
}

// injectFunctions adds the generated _start function and the proc_exit import.
func (m *module) injectFunctions(types []*ast.Type) []*ast.Type {
	startType := ast.NewFuncType()
	m.start = &ast.Function{
		Name:       StartExport,
		SourceFile: "generated",
		Type:       startType,
	}
	m.functions = append(append([]*ast.Function(nil), m.program.Functions...), m.start)
	m.exports = append(m.exports, exportInfo{name: StartExport, fn: m.start})

	procExitType := ast.NewFuncType(ast.FuncParameter{
		Name:      "exitCode",
		Direction: ast.In,
		Type:      ast.NewBuiltInType(ast.I32),
	})
	m.imports = append(m.imports, importInfo{module: WASIModule, name: ProcExit, typ: procExitType})

	return append(types, startType, procExitType)
}

func translateFuncType(ft *ast.FuncType) (funcSig, error) {
	var sig funcSig
	for _, p := range ft.Parameters {
		if p.Direction == ast.InOut {
			return funcSig{}, fmt.Errorf("%w: inout parameter %s in %s", ErrUnsupported, p.Name, ft.Rep)
		}
		b := p.Type.Builtin()
		if b == nil {
			return funcSig{}, fmt.Errorf("%w: parameter %s of type %s, only built-in types are implemented", ErrUnsupported, p.Name, p.Type.Rep)
		}
		if b.Name != ast.I32 {
			return funcSig{}, fmt.Errorf("%w: built-in type %s", ErrUnsupported, b.Name)
		}
		if p.Direction == ast.Out {
			sig.results = append(sig.results, ValueTypeI32)
		} else {
			sig.params = append(sig.params, ValueTypeI32)
		}
	}
	if len(sig.results) > 1 {
		return funcSig{}, fmt.Errorf("%w: multiple out parameters in %s", ErrUnsupported, ft.Rep)
	}
	return sig, nil
}

func (m *module) translateFuncTypes(types []*ast.Type) error {
	for _, t := range types {
		ft := t.Func()
		if ft == nil {
			continue
		}
		sig, err := translateFuncType(ft)
		if err != nil {
			return err
		}
		m.typeIndex[t] = uint32(len(m.sigs))
		m.sigs = append(m.sigs, sig)
	}
	return nil
}

// createIndex numbers functions after the imports, in definition order.
func (m *module) createIndex() {
	next := uint32(len(m.imports))
	for _, fn := range m.functions {
		m.funcIndex[fn] = next
		next++
	}
}

func (m *module) typeOf(t *ast.Type) (uint32, error) {
	idx, ok := m.typeIndex[t]
	if !ok {
		return 0, fmt.Errorf("function type %s not found", t.Rep)
	}
	return idx, nil
}

func (m *module) typeSection() ([]byte, error) {
	b := AppendULEB128(nil, uint32(len(m.sigs)))
	for _, sig := range m.sigs {
		b = append(b, FuncTypeTag)
		b = AppendVector(b, sig.params)
		b = AppendVector(b, sig.results)
	}
	return b, nil
}

func (m *module) importSection() ([]byte, error) {
	b := AppendULEB128(nil, uint32(len(m.imports)))
	for _, imp := range m.imports {
		idx, err := m.typeOf(imp.typ)
		if err != nil {
			return nil, err
		}
		b = AppendName(b, imp.module)
		b = AppendName(b, imp.name)
		b = append(b, ExternalFunc)
		b = AppendULEB128(b, idx)
	}
	return b, nil
}

func (m *module) functionSection() ([]byte, error) {
	b := AppendULEB128(nil, uint32(len(m.functions)))
	for _, fn := range m.functions {
		idx, err := m.typeOf(fn.Type)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", fn.Name, err)
		}
		b = AppendULEB128(b, idx)
	}
	return b, nil
}

func (m *module) memorySection() ([]byte, error) {
	b := AppendULEB128(nil, 1)
	b = append(b, LimitsMinMax)
	b = AppendULEB128(b, 0)
	b = AppendULEB128(b, m.opts.memoryMaxPages)
	return b, nil
}

func (m *module) exportSection() ([]byte, error) {
	b := AppendULEB128(nil, uint32(len(m.exports)+1))
	for _, exp := range m.exports {
		b = AppendName(b, exp.name)
		b = append(b, ExternalFunc)
		b = AppendULEB128(b, m.funcIndex[exp.fn])
	}
	b = AppendName(b, MemoryExport)
	b = append(b, ExternalMemory, 0x00)
	return b, nil
}

func (m *module) codeSection() ([]byte, error) {
	b := AppendULEB128(nil, uint32(len(m.functions)))
	for _, fn := range m.functions {
		code, err := m.functionBody(fn)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", fn.Name, err)
		}
		b = AppendVector(b, code)
	}
	return b, nil
}

// functionBody encodes an empty locals vector, the body and the end marker.
func (m *module) functionBody(fn *ast.Function) ([]byte, error) {
	code := AppendULEB128(nil, 0)

	var err error
	if fn == m.start {
		code, err = m.appendStart(code)
	} else {
		code, err = m.appendExpr(code, fn, &fn.Expression)
	}
	if err != nil {
		return nil, err
	}
	return append(code, OpEnd), nil
}

// appendStart calls main and hands its result to proc_exit.
func (m *module) appendStart(b []byte) ([]byte, error) {
	mainIdx, ok := m.funcIndex[m.program.MainFunction]
	if !ok {
		return nil, ErrMissingMain
	}
	b = append(b, OpCall)
	b = AppendULEB128(b, mainIdx)
	b = append(b, OpCall)
	b = AppendULEB128(b, 0)
	return b, nil
}

var binaryOpcodes = map[ast.BinaryOperator]byte{
	ast.Add:      OpI32Add,
	ast.Subtract: OpI32Sub,
	ast.Multiply: OpI32Mul,
	ast.Divide:   OpI32DivS,
	ast.Modulo:   OpI32RemS,
}

func (m *module) appendExpr(b []byte, fn *ast.Function, e *ast.Expression) ([]byte, error) {
	switch n := e.Expr.(type) {
	case *ast.Literal:
		b = append(b, OpI32Const)
		return AppendSLEB128(b, n.Value), nil

	case *ast.InitAssignment:
		if p, ok := fn.Type.Func().Param(n.Var); !ok || p.Direction != ast.Out {
			return nil, fmt.Errorf("%w: assignment to %s", ErrUnsupported, n.Var)
		}
		return m.appendExpr(b, fn, n.Value)

	case *ast.BinaryOpExpression:
		var err error
		if b, err = m.appendExpr(b, fn, n.LHS); err != nil {
			return nil, err
		}
		if b, err = m.appendExpr(b, fn, n.RHS); err != nil {
			return nil, err
		}
		op, ok := binaryOpcodes[n.Op]
		if !ok {
			return nil, fmt.Errorf("%w: operator %s", ErrUnsupported, n.Op)
		}
		return append(b, op), nil

	case *ast.VarExpression:
		for i, p := range fn.Type.Func().Params(ast.In) {
			if p.Name == n.VarName {
				b = append(b, OpLocalGet)
				return AppendULEB128(b, uint32(i)), nil
			}
		}
		return nil, fmt.Errorf("undeclared variable: %s", n.VarName)

	case *ast.FunctionCall:
		return m.appendCall(b, fn, n)
	}
	return nil, fmt.Errorf("%w: expression %q", ErrUnsupported, e.Rep)
}

// appendCall pushes arguments in the callee's parameter order, then calls it.
func (m *module) appendCall(b []byte, fn *ast.Function, call *ast.FunctionCall) ([]byte, error) {
	callee, ok := m.program.Function(call.FunctionName)
	if !ok {
		return nil, fmt.Errorf("unknown function: %s", call.FunctionName)
	}
	for _, p := range callee.Type.Func().Params(ast.In) {
		arg, ok := call.Argument(p.Name)
		if !ok {
			return nil, fmt.Errorf("missing argument %s calling %s", p.Name, callee.Name)
		}
		var err error
		if b, err = m.appendExpr(b, fn, &arg.Expr); err != nil {
			return nil, err
		}
	}
	b = append(b, OpCall)
	return AppendULEB128(b, m.funcIndex[callee]), nil
}
