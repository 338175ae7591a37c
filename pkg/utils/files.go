package utils

import (
	"path/filepath"
	"strings"
)

// SourcePath is a source file location resolved to absolute form.
type SourcePath struct {
	Abs  string // absolute, cleaned path
	Dir  string // directory containing the file
	Stem string // base name without extension
}

// ResolveSource converts path to absolute form (resolving ../ and cleaning
// the result) and splits it into its parts.
func ResolveSource(path string) (SourcePath, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return SourcePath{}, err
	}
	base := filepath.Base(abs)
	return SourcePath{
		Abs:  abs,
		Dir:  filepath.Dir(abs),
		Stem: strings.TrimSuffix(base, filepath.Ext(base)),
	}, nil
}

// Sibling returns the path of a file next to the source with extension ext,
// placed in dir when dir is non-empty.
func (s SourcePath) Sibling(dir, ext string) string {
	if dir == "" {
		dir = s.Dir
	}
	return filepath.Join(dir, s.Stem+ext)
}
