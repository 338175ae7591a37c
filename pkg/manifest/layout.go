package manifest

import (
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
)

// Build types accepted by ResolveSettings.
const (
	Debug          = "Debug"
	Release        = "Release"
	RelWithDebInfo = "RelWithDebInfo"
	MinSizeRel     = "MinSizeRel"
)

var BuildTypes = []string{Debug, Release, RelWithDebInfo, MinSizeRel}

// Settings is one point in the build matrix.
type Settings struct {
	OS        string `yaml:"os"`
	Compiler  string `yaml:"compiler"`
	BuildType string `yaml:"build_type"`
	Arch      string `yaml:"arch"`
}

// ResolveSettings fills the settings for the host. An empty buildType means
// Release.
func ResolveSettings(buildType string) (Settings, error) {
	if buildType == "" {
		buildType = Release
	}
	if !slices.Contains(BuildTypes, buildType) {
		return Settings{}, fmt.Errorf("unknown build type %q, want one of %v", buildType, BuildTypes)
	}
	return Settings{
		OS:        runtime.GOOS,
		Compiler:  runtime.Compiler,
		BuildType: buildType,
		Arch:      runtime.GOARCH,
	}, nil
}

// Layout is where sources, build outputs and generated files live.
type Layout struct {
	Source     string
	Build      string
	Generators string
}

// Layout derives the build folders from root and the build type.
func (m *Manifest) Layout(root string, s Settings) Layout {
	build := filepath.Join(root, "build", s.BuildType)
	return Layout{
		Source:     root,
		Build:      build,
		Generators: filepath.Join(build, "generators"),
	}
}
