package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type generator func(m *Manifest, l Layout, s Settings, opts map[string]any) (string, any, error)

var generators = map[string]generator{
	"toolchain": toolchainGenerator,
	"deps":      depsGenerator,
}

type toolchainFile struct {
	Project  string         `yaml:"project"`
	Version  string         `yaml:"version"`
	Settings Settings       `yaml:"settings"`
	Options  map[string]any `yaml:"options"`
	Source   string         `yaml:"source_folder"`
	Build    string         `yaml:"build_folder"`
}

func toolchainGenerator(m *Manifest, l Layout, s Settings, opts map[string]any) (string, any, error) {
	effective, err := m.EffectiveOptions(opts)
	if err != nil {
		return "", nil, err
	}
	return "toolchain.yaml", toolchainFile{
		Project:  m.Name,
		Version:  m.Version,
		Settings: s,
		Options:  effective,
		Source:   l.Source,
		Build:    l.Build,
	}, nil
}

type depsFile struct {
	Requires []depEntry `yaml:"requires"`
}

type depEntry struct {
	Path    string `yaml:"path"`
	Version string `yaml:"version"`
}

func depsGenerator(m *Manifest, _ Layout, _ Settings, _ map[string]any) (string, any, error) {
	coords, err := m.Requirements()
	if err != nil {
		return "", nil, err
	}
	out := depsFile{Requires: make([]depEntry, 0, len(coords))}
	for _, c := range coords {
		out.Requires = append(out.Requires, depEntry{Path: c.Path, Version: c.Version})
	}
	return "deps.yaml", out, nil
}

// Generate runs every declared generator into the generators folder and
// returns the written files in generator order.
func (m *Manifest) Generate(l Layout, s Settings, opts map[string]any) ([]string, error) {
	if err := os.MkdirAll(l.Generators, 0o755); err != nil {
		return nil, fmt.Errorf("create generators folder: %w", err)
	}

	var written []string
	for _, name := range m.Generators {
		gen, ok := generators[name]
		if !ok {
			return written, fmt.Errorf("unknown generator %q", name)
		}
		file, doc, err := gen(m, l, s, opts)
		if err != nil {
			return written, fmt.Errorf("generator %s: %w", name, err)
		}
		data, err := yaml.Marshal(doc)
		if err != nil {
			return written, fmt.Errorf("generator %s: encode: %w", name, err)
		}
		path := filepath.Join(l.Generators, file)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, fmt.Errorf("generator %s: %w", name, err)
		}
		written = append(written, path)
	}
	return written, nil
}
