package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/rs/zerolog"

	"hobbylang"
	"hobbylang/pkg/config"
	"hobbylang/pkg/driver"
	"hobbylang/pkg/manifest"
)

func main() {
	log := newLogger(os.Stderr, zerolog.InfoLevel)

	cfg, err := config.Load(config.DefaultPath, config.DefaultEnvFile)
	if err != nil {
		log.Error().Err(err).Msg("load configuration")
		os.Exit(1)
	}
	log = log.Level(cfg.Level())

	m, err := hobbylang.Manifest()
	if err != nil {
		log.Error().Err(err).Msg("load manifest")
		os.Exit(1)
	}

	d, err := driver.New(cfg.DriverOptions(log)...)
	if err != nil {
		log.Error().Err(err).Msg("create driver")
		os.Exit(1)
	}

	c := &cli{
		out:      os.Stdout,
		log:      log,
		cfg:      cfg,
		manifest: m,
		driver:   d,
	}
	if err := c.app().Run(os.Args[1:]); err != nil {
		log.Error().Err(err).Msg("hobbyc failed")
		os.Exit(1)
	}
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

type cli struct {
	out      io.Writer
	log      zerolog.Logger
	cfg      *config.Config
	manifest *manifest.Manifest
	driver   *driver.Driver
}

func (c *cli) app() *orpheus.App {
	app := orpheus.New("hobbyc").
		SetDescription(fmt.Sprintf("%s version %s", c.manifest.Name, c.manifest.Version)).
		SetVersion(c.manifest.Version)

	app.AddCommand(orpheus.NewCommand("run", "Execute a program and print its exit code").
		SetHandler(c.runCommand).
		AddBoolFlag("wasm", "w", false, "Compile to wasm and run the module instead of interpreting").
		AddBoolFlag("quiet", "q", false, "Do not print the program listing"))

	app.AddCommand(orpheus.NewCommand("build", "Compile programs to wasm modules").
		SetHandler(c.buildCommand).
		AddFlag("out", "o", "", "Output path (single input only)").
		AddFlag("build-type", "b", c.cfg.BuildType, "Build type selecting the output folder"))

	app.AddCommand(orpheus.NewCommand("watch", "Rebuild a program whenever it changes").
		SetHandler(c.watchCommand).
		AddFlag("out", "o", "", "Output path").
		AddFlag("build-type", "b", c.cfg.BuildType, "Build type selecting the output folder"))

	app.AddCommand(orpheus.NewCommand("layout", "Print the build layout").
		SetHandler(c.layoutCommand).
		AddBoolFlag("generate", "g", false, "Create the layout and run the generators").
		AddFlag("build-type", "b", c.cfg.BuildType, "Build type selecting the output folder").
		AddFlag("options", "", "", "Option overrides as name=value,..."))

	return app
}
