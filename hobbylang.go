// Package hobbylang carries the project manifest.
package hobbylang

import (
	_ "embed"
	"fmt"

	"hobbylang/pkg/manifest"
)

//go:embed hobby.yaml
var manifestYAML []byte

// Manifest decodes and validates the embedded manifest.
func Manifest() (*manifest.Manifest, error) {
	m, err := manifest.Parse(manifestYAML)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return m, nil
}
