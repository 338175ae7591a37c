package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/agilira/orpheus/pkg/orpheus"

	"hobbylang/pkg/driver"
	"hobbylang/pkg/manifest"
	"hobbylang/pkg/utils"
	"hobbylang/pkg/wasmrun"
)

func (c *cli) runCommand(ctx *orpheus.Context) error {
	if len(ctx.Args) != 1 {
		return orpheus.ExecutionError("run", "expected exactly one input file")
	}
	return c.run(context.Background(), ctx.Args[0], ctx.GetFlagBool("wasm"), ctx.GetFlagBool("quiet"))
}

func (c *cli) run(ctx context.Context, path string, useWasm, quiet bool) error {
	program, err := c.driver.Load(path)
	if err != nil {
		return commandError("run", err)
	}
	if !quiet {
		driver.Describe(c.out, program)
		fmt.Fprintln(c.out)
	}

	var result int32
	if useWasm {
		module, err := c.driver.CompileBytes(path)
		if err != nil {
			return commandError("run", err)
		}
		result, err = wasmrun.RunWithOutput(ctx, module, c.out, os.Stderr)
		if err != nil {
			return commandError("run", err)
		}
	} else {
		result, err = c.driver.Execute(path)
		if err != nil {
			return commandError("run", err)
		}
	}
	fmt.Fprintf(c.out, "Result from execution: %d\n", result)
	return nil
}

func (c *cli) buildCommand(ctx *orpheus.Context) error {
	_, err := c.build(ctx.Args, ctx.GetFlagString("out"), ctx.GetFlagString("build-type"))
	return err
}

// build compiles every input and returns the written module paths.
func (c *cli) build(inputs []string, out, buildType string) ([]string, error) {
	if len(inputs) == 0 {
		return nil, orpheus.ExecutionError("build", "missing input files")
	}
	if out != "" && len(inputs) > 1 {
		return nil, orpheus.ExecutionError("build", "--out needs a single input file")
	}
	l, _, err := c.layout(buildType)
	if err != nil {
		return nil, orpheus.ExecutionError("build", err.Error())
	}

	var written []string
	for _, in := range inputs {
		target, err := outputPath(in, out, l)
		if err != nil {
			return written, commandError("build", err)
		}
		path, err := c.driver.Build(in, target)
		if err != nil {
			return written, commandError("build", err)
		}
		fmt.Fprintln(c.out, path)
		written = append(written, path)
	}
	return written, nil
}

func outputPath(in, out string, l manifest.Layout) (string, error) {
	if out != "" {
		return out, nil
	}
	src, err := utils.ResolveSource(in)
	if err != nil {
		return "", err
	}
	return src.Sibling(l.Build, ".wasm"), nil
}

func (c *cli) layoutCommand(ctx *orpheus.Context) error {
	opts, err := parseOptions(ctx.GetFlagString("options"))
	if err != nil {
		return orpheus.ExecutionError("layout", err.Error())
	}
	return c.printLayout(ctx.GetFlagString("build-type"), ctx.GetFlagBool("generate"), opts)
}

func (c *cli) printLayout(buildType string, generate bool, opts map[string]any) error {
	l, s, err := c.layout(buildType)
	if err != nil {
		return orpheus.ExecutionError("layout", err.Error())
	}
	fmt.Fprintf(c.out, "source:     %s\n", l.Source)
	fmt.Fprintf(c.out, "build:      %s\n", l.Build)
	fmt.Fprintf(c.out, "generators: %s\n", l.Generators)
	if !generate {
		return nil
	}

	written, err := c.manifest.Generate(l, s, opts)
	if err != nil {
		return orpheus.ExecutionError("layout", err.Error())
	}
	for _, path := range written {
		c.log.Info().Str("file", path).Msg("generated")
	}
	return nil
}

// layout places the build folders under the working directory.
func (c *cli) layout(buildType string) (manifest.Layout, manifest.Settings, error) {
	s, err := manifest.ResolveSettings(buildType)
	if err != nil {
		return manifest.Layout{}, manifest.Settings{}, err
	}
	root, err := os.Getwd()
	if err != nil {
		return manifest.Layout{}, manifest.Settings{}, fmt.Errorf("working directory: %w", err)
	}
	return c.manifest.Layout(root, s), s, nil
}

// parseOptions reads "name=value,..." overrides. Boolean values are decoded
// so they compare equal to the manifest's option domains.
func parseOptions(raw string) (map[string]any, error) {
	opts := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return opts, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("option %q: want name=value", pair)
		}
		if b, err := strconv.ParseBool(value); err == nil {
			opts[name] = b
		} else {
			opts[name] = value
		}
	}
	return opts, nil
}

func commandError(cmd string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return orpheus.NotFoundError(cmd, err.Error())
	}
	return orpheus.ExecutionError(cmd, err.Error())
}
