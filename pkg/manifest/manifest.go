// Package manifest reads the project manifest: metadata, build settings and
// options, pinned requirements, generators and the build layout they imply.
package manifest

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// KnownSettings are the build matrix axes a manifest may declare.
var KnownSettings = []string{"os", "compiler", "build_type", "arch"}

// Manifest is the decoded project manifest.
type Manifest struct {
	Name           string           `yaml:"name"`
	Version        string           `yaml:"version"`
	Description    string           `yaml:"description"`
	URL            string           `yaml:"url"`
	Licence        string           `yaml:"licence"`
	Author         string           `yaml:"author"`
	Topics         []string         `yaml:"topics"`
	Settings       []string         `yaml:"settings"`
	Options        map[string][]any `yaml:"options"`
	DefaultOptions map[string]any   `yaml:"default_options"`
	Requires       []string         `yaml:"requires"`
	Generators     []string         `yaml:"generators"`
}

// Coordinate pins one required module.
type Coordinate struct {
	Path    string
	Version string
}

func (c Coordinate) String() string { return c.Path + "@" + c.Version }

// ParseCoordinate splits "path@version" and checks both halves.
func ParseCoordinate(s string) (Coordinate, error) {
	path, version, ok := strings.Cut(s, "@")
	if !ok {
		return Coordinate{}, fmt.Errorf("requirement %q: missing @version", s)
	}
	if err := module.CheckPath(path); err != nil {
		return Coordinate{}, fmt.Errorf("requirement %q: %w", s, err)
	}
	if !semver.IsValid(version) {
		return Coordinate{}, fmt.Errorf("requirement %q: invalid version %q", s, version)
	}
	return Coordinate{Path: path, Version: version}, nil
}

// Parse decodes a YAML manifest. It does not validate it.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// Validate reports every malformed or missing field at once.
func (m *Manifest) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if m.Name == "" {
		add("name is required")
	}
	if m.Version == "" {
		add("version is required")
	} else if !semver.IsValid("v" + m.Version) {
		add("version %q is not a semantic version", m.Version)
	}
	for _, field := range []struct{ name, value string }{
		{"description", m.Description},
		{"url", m.URL},
		{"licence", m.Licence},
		{"author", m.Author},
	} {
		if field.value == "" {
			add("%s is required", field.name)
		}
	}
	if len(m.Topics) == 0 {
		add("topics is required")
	}

	if len(m.Settings) == 0 {
		add("settings is required")
	}
	if len(m.Options) == 0 {
		add("options is required")
	}
	if len(m.DefaultOptions) == 0 {
		add("default_options is required")
	}
	if len(m.Generators) == 0 {
		add("generators is required")
	}

	seen := make(map[string]bool)
	for _, s := range m.Settings {
		if !slices.Contains(KnownSettings, s) {
			add("unknown setting %q", s)
		}
		if seen[s] {
			add("setting %q declared twice", s)
		}
		seen[s] = true
	}

	for _, name := range slices.Sorted(maps.Keys(m.Options)) {
		domain := m.Options[name]
		if len(domain) == 0 {
			add("option %q has no values", name)
		}
		def, ok := m.DefaultOptions[name]
		if !ok {
			add("option %q has no default", name)
			continue
		}
		if !inDomain(domain, def) {
			add("default %v for option %q is not one of %v", def, name, domain)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(m.DefaultOptions)) {
		if _, ok := m.Options[name]; !ok {
			add("default given for undeclared option %q", name)
		}
	}

	if len(m.Requires) == 0 {
		add("requires is required")
	}
	for _, r := range m.Requires {
		if _, err := ParseCoordinate(r); err != nil {
			errs = append(errs, err)
		}
	}

	for _, g := range m.Generators {
		if _, ok := generators[g]; !ok {
			add("unknown generator %q", g)
		}
	}

	return errors.Join(errs...)
}

func inDomain(domain []any, v any) bool {
	for _, d := range domain {
		if fmt.Sprint(d) == fmt.Sprint(v) {
			return true
		}
	}
	return false
}

// Requirements returns the parsed requirement coordinates in manifest order.
func (m *Manifest) Requirements() ([]Coordinate, error) {
	coords := make([]Coordinate, 0, len(m.Requires))
	for _, r := range m.Requires {
		c, err := ParseCoordinate(r)
		if err != nil {
			return nil, err
		}
		coords = append(coords, c)
	}
	return coords, nil
}

// VerifyGoMod checks that every requirement is pinned at the same version in
// the given go.mod.
func (m *Manifest) VerifyGoMod(gomod []byte) error {
	f, err := modfile.ParseLax("go.mod", gomod, nil)
	if err != nil {
		return fmt.Errorf("parse go.mod: %w", err)
	}
	pinned := make(map[string]string, len(f.Require))
	for _, r := range f.Require {
		pinned[r.Mod.Path] = r.Mod.Version
	}

	coords, err := m.Requirements()
	if err != nil {
		return err
	}
	var errs []error
	for _, c := range coords {
		v, ok := pinned[c.Path]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("%s is not required by go.mod", c.Path))
		case v != c.Version:
			errs = append(errs, fmt.Errorf("%s: manifest pins %s, go.mod has %s", c.Path, c.Version, v))
		}
	}
	return errors.Join(errs...)
}

// EffectiveOptions merges overrides into the defaults. Overrides must name
// declared options and use values from their domain.
func (m *Manifest) EffectiveOptions(overrides map[string]any) (map[string]any, error) {
	opts := maps.Clone(m.DefaultOptions)
	if opts == nil {
		opts = make(map[string]any, len(overrides))
	}
	for _, k := range slices.Sorted(maps.Keys(overrides)) {
		v := overrides[k]
		domain, ok := m.Options[k]
		if !ok {
			return nil, fmt.Errorf("unknown option %q", k)
		}
		if !inDomain(domain, v) {
			return nil, fmt.Errorf("value %v for option %q is not one of %v", v, k, domain)
		}
		opts[k] = v
	}
	return opts, nil
}
