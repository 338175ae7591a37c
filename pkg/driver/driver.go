// Package driver wires the compiler stages together: it loads source files,
// caches parsed programs and hands them to the interpreter or the wasm backend.
package driver

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"hobbylang/pkg/ast"
	"hobbylang/pkg/interpreter"
	"hobbylang/pkg/parser"
	"hobbylang/pkg/utils"
	"hobbylang/pkg/wasm"
)

// DefaultCacheSize is the number of parsed programs kept in memory.
const DefaultCacheSize = 64

// Driver runs the pipeline for source files on disk.
type Driver struct {
	log            zerolog.Logger
	cacheSize      int
	cache          *lru.Cache[string, *ast.Program]
	maxCallDepth   int
	memoryMaxPages uint32
}

// Option configures a Driver.
type Option func(*Driver)

func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) { d.log = l }
}

func WithCacheSize(n int) Option {
	return func(d *Driver) { d.cacheSize = n }
}

func WithMaxCallDepth(n int) Option {
	return func(d *Driver) { d.maxCallDepth = n }
}

func WithMemoryMaxPages(n uint32) Option {
	return func(d *Driver) { d.memoryMaxPages = n }
}

func New(opts ...Option) (*Driver, error) {
	d := &Driver{
		log:            zerolog.Nop(),
		cacheSize:      DefaultCacheSize,
		maxCallDepth:   interpreter.DefaultMaxCallDepth,
		memoryMaxPages: wasm.DefaultMemoryMaxPages,
	}
	for _, opt := range opts {
		opt(d)
	}

	cache, err := lru.New[string, *ast.Program](d.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create program cache: %w", err)
	}
	d.cache = cache
	return d, nil
}

// Load reads and parses path. Programs are cached by absolute path and
// content hash, so an unchanged file is parsed once.
func (d *Driver) Load(path string) (*ast.Program, error) {
	src, err := utils.ResolveSource(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(src.Abs)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	sum := sha256.Sum256(data)
	key := src.Abs + "@" + hex.EncodeToString(sum[:])
	if program, ok := d.cache.Get(key); ok {
		d.log.Debug().Str("file", src.Abs).Msg("program cache hit")
		return program, nil
	}

	program, err := parser.Parse(bytes.NewReader(data), src.Abs)
	if err != nil {
		return nil, err
	}
	d.cache.Add(key, program)
	d.log.Debug().
		Str("file", src.Abs).
		Int("functions", len(program.Functions)).
		Int("types", len(program.Types)).
		Msg("parsed program")
	return program, nil
}

// Execute interprets the program in path and returns its exit code.
func (d *Driver) Execute(path string) (int32, error) {
	program, err := d.Load(path)
	if err != nil {
		return 0, err
	}
	return interpreter.Execute(program, interpreter.WithMaxCallDepth(d.maxCallDepth))
}

// CompileBytes compiles the program in path to a wasm module in memory.
func (d *Driver) CompileBytes(path string) ([]byte, error) {
	program, err := d.Load(path)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := wasm.Compile(program, &buf, wasm.WithMemoryMaxPages(d.memoryMaxPages)); err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

// Build compiles path and writes the module to out. An empty out places
// <name>.wasm next to the source. It returns the written path.
func (d *Driver) Build(path, out string) (string, error) {
	if out == "" {
		src, err := utils.ResolveSource(path)
		if err != nil {
			return "", err
		}
		out = src.Sibling("", ".wasm")
	}

	module, err := d.CompileBytes(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(out, module, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", out, err)
	}

	d.log.Info().Str("source", path).Str("output", out).Int("bytes", len(module)).Msg("built module")
	return out, nil
}

// Describe prints the types, functions and main function of a program.
func Describe(w io.Writer, program *ast.Program) {
	fmt.Fprintln(w, "Types:")
	for _, t := range program.Types {
		fmt.Fprintf(w, "  %s\n", t.Rep)
	}
	fmt.Fprintln(w, "Functions:")
	for _, fn := range program.Functions {
		fmt.Fprintf(w, "  %s\n", fn)
	}
	if program.MainFunction != nil {
		fmt.Fprintf(w, "Main function: %s\n", program.MainFunction.Name)
	}
}
