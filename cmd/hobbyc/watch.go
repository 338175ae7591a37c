package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/fsnotify/fsnotify"

	"hobbylang/pkg/utils"
)

// settle is how long a burst of write events must be quiet before rebuilding.
const settle = 50 * time.Millisecond

func (c *cli) watchCommand(ctx *orpheus.Context) error {
	if len(ctx.Args) != 1 {
		return orpheus.ExecutionError("watch", "expected exactly one input file")
	}
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.watch(sigCtx, ctx.Args[0], ctx.GetFlagString("out"), ctx.GetFlagString("build-type"))
}

// watch builds path once and again after every change until ctx is done.
// Build failures are logged and do not stop watching.
func (c *cli) watch(ctx context.Context, path, out, buildType string) error {
	src, err := utils.ResolveSource(path)
	if err != nil {
		return commandError("watch", err)
	}
	if _, err := os.Stat(src.Abs); err != nil {
		return commandError("watch", err)
	}
	l, _, err := c.layout(buildType)
	if err != nil {
		return orpheus.ExecutionError("watch", err.Error())
	}
	target, err := outputPath(src.Abs, out, l)
	if err != nil {
		return commandError("watch", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return orpheus.ExecutionError("watch", fmt.Sprintf("create watcher: %v", err))
	}
	defer w.Close()
	// Editors often replace the file instead of writing it, so watch the directory.
	if err := w.Add(src.Dir); err != nil {
		return orpheus.ExecutionError("watch", fmt.Sprintf("watch %s: %v", src.Dir, err))
	}

	c.rebuild(src.Abs, target)
	c.log.Info().Str("file", src.Abs).Msg("watching for changes")

	timer := time.NewTimer(settle)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != src.Abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			timer.Reset(settle)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.log.Warn().Err(err).Msg("watcher error")
		case <-timer.C:
			c.rebuild(src.Abs, target)
		}
	}
}

func (c *cli) rebuild(path, target string) {
	if _, err := os.Stat(path); err != nil {
		c.log.Debug().Str("file", path).Msg("source not present, waiting")
		return
	}
	out, err := c.driver.Build(path, target)
	if err != nil {
		c.log.Error().Err(err).Str("file", path).Msg("build failed")
		return
	}
	fmt.Fprintln(c.out, out)
}
