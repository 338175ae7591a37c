package manifest

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sample = `
name: hobby-lang
version: 0.0.1
description: A hobby project to create a programming language.
url: https://example.com/hobby-lang
licence: MIT
author: Someone (someone@example.com)
topics: [compiler]
settings: [os, compiler, build_type, arch]
options:
  shared: [true, false]
  fPIC: [true, false]
default_options:
  shared: false
  fPIC: true
requires:
  - github.com/stretchr/testify@v1.9.0
  - github.com/agilira/orpheus@v1.1.10
  - github.com/rs/zerolog@v1.33.0
generators: [toolchain, deps]
`

func parseSample(t *testing.T) *Manifest {
	t.Helper()
	m, err := Parse([]byte(sample))
	require.NoError(t, err)
	return m
}

func TestParse(t *testing.T) {
	m := parseSample(t)
	assert.Equal(t, "hobby-lang", m.Name)
	assert.Equal(t, "0.0.1", m.Version)
	assert.Equal(t, []string{"compiler"}, m.Topics)
	assert.Equal(t, []string{"os", "compiler", "build_type", "arch"}, m.Settings)
	assert.Equal(t, []any{true, false}, m.Options["shared"])
	assert.Equal(t, false, m.DefaultOptions["shared"])
	assert.Equal(t, true, m.DefaultOptions["fPIC"])
	assert.Len(t, m.Requires, 3)
	assert.Equal(t, []string{"toolchain", "deps"}, m.Generators)
	require.NoError(t, m.Validate())
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("name: [unterminated"))
	assert.ErrorContains(t, err, "decode manifest")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Manifest)
		want   string
	}{
		{"missing name", func(m *Manifest) { m.Name = "" }, "name is required"},
		{"bad version", func(m *Manifest) { m.Version = "one" }, `version "one" is not a semantic version`},
		{"missing licence", func(m *Manifest) { m.Licence = "" }, "licence is required"},
		{"no topics", func(m *Manifest) { m.Topics = nil }, "topics is required"},
		{"unknown setting", func(m *Manifest) { m.Settings = append(m.Settings, "cppstd") }, `unknown setting "cppstd"`},
		{"repeated setting", func(m *Manifest) { m.Settings = append(m.Settings, "os") }, `setting "os" declared twice`},
		{"empty option domain", func(m *Manifest) { m.Options["shared"] = nil }, `option "shared" has no values`},
		{"default outside domain", func(m *Manifest) { m.DefaultOptions["fPIC"] = "yes" }, `default yes for option "fPIC"`},
		{"missing default", func(m *Manifest) { delete(m.DefaultOptions, "shared") }, `option "shared" has no default`},
		{"undeclared default", func(m *Manifest) { m.DefaultOptions["lto"] = true }, `undeclared option "lto"`},
		{"no requirements", func(m *Manifest) { m.Requires = nil }, "requires is required"},
		{"requirement without version", func(m *Manifest) { m.Requires = []string{"github.com/rs/zerolog"} }, "missing @version"},
		{"requirement bad version", func(m *Manifest) { m.Requires = []string{"github.com/rs/zerolog@1.33"} }, `invalid version "1.33"`},
		{"requirement bad path", func(m *Manifest) { m.Requires = []string{"Bad Path@v1.0.0"} }, `requirement "Bad Path@v1.0.0"`},
		{"no settings", func(m *Manifest) { m.Settings = nil }, "settings is required"},
		{"no options", func(m *Manifest) { m.Options = nil; m.DefaultOptions = nil }, "options is required"},
		{"no default options", func(m *Manifest) { m.DefaultOptions = nil }, "default_options is required"},
		{"no generators", func(m *Manifest) { m.Generators = nil }, "generators is required"},
		{"unknown generator", func(m *Manifest) { m.Generators = []string{"cmake"} }, `unknown generator "cmake"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := parseSample(t)
			tt.mutate(m)
			assert.ErrorContains(t, m.Validate(), tt.want)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	err := (&Manifest{}).Validate()
	require.Error(t, err)
	for _, want := range []string{
		"name is required", "version is required", "url is required", "author is required",
		"settings is required", "options is required", "default_options is required",
		"generators is required", "requires is required",
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestValidateReportsInStableOrder(t *testing.T) {
	m := parseSample(t)
	m.DefaultOptions = map[string]any{"shared": "no", "fPIC": "no", "lto": true, "asan": true}

	first := m.Validate()
	require.Error(t, first)
	for range 20 {
		assert.Equal(t, first.Error(), m.Validate().Error())
	}
	msg := first.Error()
	assert.Less(t, strings.Index(msg, `option "fPIC"`), strings.Index(msg, `option "shared"`))
	assert.Less(t, strings.Index(msg, `option "asan"`), strings.Index(msg, `option "lto"`))
}

func TestEffectiveOptionsReportsFirstBadOverrideByName(t *testing.T) {
	m := parseSample(t)
	for range 20 {
		_, err := m.EffectiveOptions(map[string]any{"zeta": true, "alpha": true, "shared": "maybe"})
		assert.EqualError(t, err, `unknown option "alpha"`)
	}
}

func TestRequirements(t *testing.T) {
	coords, err := parseSample(t).Requirements()
	require.NoError(t, err)
	assert.Equal(t, []Coordinate{
		{Path: "github.com/stretchr/testify", Version: "v1.9.0"},
		{Path: "github.com/agilira/orpheus", Version: "v1.1.10"},
		{Path: "github.com/rs/zerolog", Version: "v1.33.0"},
	}, coords)
	assert.Equal(t, "github.com/rs/zerolog@v1.33.0", coords[2].String())
}

func TestVerifyGoMod(t *testing.T) {
	m := parseSample(t)

	good := []byte(`module example.com/x

go 1.24

require (
	github.com/agilira/orpheus v1.1.10
	github.com/rs/zerolog v1.33.0
	github.com/stretchr/testify v1.9.0
)
`)
	require.NoError(t, m.VerifyGoMod(good))

	drifted := []byte(`module example.com/x

require (
	github.com/agilira/orpheus v1.1.9
	github.com/stretchr/testify v1.9.0
)
`)
	err := m.VerifyGoMod(drifted)
	assert.ErrorContains(t, err, "manifest pins v1.1.10, go.mod has v1.1.9")
	assert.ErrorContains(t, err, "github.com/rs/zerolog is not required by go.mod")

	assert.ErrorContains(t, m.VerifyGoMod([]byte("require (")), "parse go.mod")
}

func TestResolveSettings(t *testing.T) {
	s, err := ResolveSettings("")
	require.NoError(t, err)
	assert.Equal(t, Settings{
		OS:        runtime.GOOS,
		Compiler:  runtime.Compiler,
		BuildType: Release,
		Arch:      runtime.GOARCH,
	}, s)

	s, err = ResolveSettings(Debug)
	require.NoError(t, err)
	assert.Equal(t, Debug, s.BuildType)

	_, err = ResolveSettings("Fast")
	assert.ErrorContains(t, err, `unknown build type "Fast"`)
}

func TestLayout(t *testing.T) {
	s, err := ResolveSettings(RelWithDebInfo)
	require.NoError(t, err)
	l := parseSample(t).Layout("/src/hobby", s)
	assert.Equal(t, Layout{
		Source:     "/src/hobby",
		Build:      filepath.Join("/src/hobby", "build", "RelWithDebInfo"),
		Generators: filepath.Join("/src/hobby", "build", "RelWithDebInfo", "generators"),
	}, l)
}

func TestGenerate(t *testing.T) {
	m := parseSample(t)
	s, err := ResolveSettings(Debug)
	require.NoError(t, err)
	l := m.Layout(t.TempDir(), s)

	written, err := m.Generate(l, s, map[string]any{"shared": true})
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(l.Generators, "toolchain.yaml"),
		filepath.Join(l.Generators, "deps.yaml"),
	}, written)

	var toolchain toolchainFile
	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, &toolchain))
	assert.Equal(t, "hobby-lang", toolchain.Project)
	assert.Equal(t, s, toolchain.Settings)
	assert.Equal(t, map[string]any{"shared": true, "fPIC": true}, toolchain.Options)
	assert.Equal(t, l.Build, toolchain.Build)

	var deps depsFile
	data, err = os.ReadFile(written[1])
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, &deps))
	require.Len(t, deps.Requires, 3)
	assert.Equal(t, depEntry{Path: "github.com/agilira/orpheus", Version: "v1.1.10"}, deps.Requires[1])
}

func TestGenerateRejectsOptionsOutsideDomain(t *testing.T) {
	m := parseSample(t)
	s, err := ResolveSettings("")
	require.NoError(t, err)
	l := m.Layout(t.TempDir(), s)

	_, err = m.Generate(l, s, map[string]any{"fPIC": "maybe"})
	assert.ErrorContains(t, err, `value maybe for option "fPIC"`)

	_, err = m.Generate(l, s, map[string]any{"lto": true})
	assert.ErrorContains(t, err, `unknown option "lto"`)
}
