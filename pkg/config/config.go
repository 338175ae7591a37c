// Package config loads hobbyc settings. Later sources win:
// defaults < hobbyc.yaml < .env file < process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"hobbylang/pkg/driver"
	"hobbylang/pkg/interpreter"
	"hobbylang/pkg/manifest"
	"hobbylang/pkg/wasm"
)

const (
	DefaultPath    = "hobbyc.yaml"
	DefaultEnvFile = ".env"

	// maxMemoryPages is the wasm32 limit on linear memory pages.
	maxMemoryPages = 65536
)

// Config holds the hobbyc settings.
type Config struct {
	LogLevel       string `yaml:"log_level"`
	BuildType      string `yaml:"build_type"`
	CacheSize      int    `yaml:"cache_size"`
	MaxCallDepth   int    `yaml:"max_call_depth"`
	MemoryMaxPages uint32 `yaml:"memory_max_pages"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:       "info",
		BuildType:      manifest.Release,
		CacheSize:      driver.DefaultCacheSize,
		MaxCallDepth:   interpreter.DefaultMaxCallDepth,
		MemoryMaxPages: wasm.DefaultMemoryMaxPages,
	}
}

// Load builds the configuration from path and envFile. Either file may be
// missing; a file that exists but does not parse is an error.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	env := map[string]string{}
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		default:
			env = vars
		}
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(env[key])
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) string) error {
	if v := lookup("HOBBYC_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := lookup("HOBBYC_BUILD_TYPE"); v != "" {
		c.BuildType = v
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"HOBBYC_CACHE_SIZE", &c.CacheSize},
		{"HOBBYC_MAX_CALL_DEPTH", &c.MaxCallDepth},
	}
	for _, e := range ints {
		v := lookup(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
		*e.dst = n
	}
	if v := lookup("HOBBYC_MEMORY_MAX_PAGES"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("HOBBYC_MEMORY_MAX_PAGES: %w", err)
		}
		c.MemoryMaxPages = uint32(n)
	}
	return nil
}

// Validate checks every setting and reports all problems together.
func (c *Config) Validate() error {
	var errs []error
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if !slices.Contains(manifest.BuildTypes, c.BuildType) {
		errs = append(errs, fmt.Errorf("build_type: %q is not one of %v", c.BuildType, manifest.BuildTypes))
	}
	if c.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("cache_size: must be positive, got %d", c.CacheSize))
	}
	if c.MaxCallDepth <= 0 {
		errs = append(errs, fmt.Errorf("max_call_depth: must be positive, got %d", c.MaxCallDepth))
	}
	if c.MemoryMaxPages == 0 {
		errs = append(errs, errors.New("memory_max_pages: must be positive, got 0"))
	} else if c.MemoryMaxPages > maxMemoryPages {
		errs = append(errs, fmt.Errorf("memory_max_pages: at most %d, got %d", maxMemoryPages, c.MemoryMaxPages))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level.
func (c *Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}

// DriverOptions turns the settings into driver options.
func (c *Config) DriverOptions(log zerolog.Logger) []driver.Option {
	return []driver.Option{
		driver.WithLogger(log),
		driver.WithCacheSize(c.CacheSize),
		driver.WithMaxCallDepth(c.MaxCallDepth),
		driver.WithMemoryMaxPages(c.MemoryMaxPages),
	}
}
