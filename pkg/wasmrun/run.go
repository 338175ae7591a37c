// Package wasmrun executes compiled modules in an embedded WASI host.
package wasmrun

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

// Run instantiates module, which runs its _start export, and returns the
// code passed to proc_exit. A module that returns without exiting exits 0.
func Run(ctx context.Context, module []byte) (int32, error) {
	return RunWithOutput(ctx, module, io.Discard, io.Discard)
}

// RunWithOutput is Run with the guest's stdout and stderr connected.
func RunWithOutput(ctx context.Context, module []byte, stdout, stderr io.Writer) (int32, error) {
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		return 0, fmt.Errorf("instantiate wasi: %w", err)
	}

	compiled, err := r.CompileModule(ctx, module)
	if err != nil {
		return 0, fmt.Errorf("compile module: %w", err)
	}

	cfg := wazero.NewModuleConfig().
		WithStdout(stdout).
		WithStderr(stderr)
	mod, err := r.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) {
			return int32(exitErr.ExitCode()), nil
		}
		return 0, fmt.Errorf("run module: %w", err)
	}
	_ = mod.Close(ctx)
	return 0, nil
}
