package hobbylang

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hobbylang/pkg/manifest"
)

func TestManifestSmoke(t *testing.T) {
	m, err := Manifest()
	require.NoError(t, err)
	assert.Equal(t, "hobby-lang", m.Name)
	assert.Equal(t, "0.0.1", m.Version)
	assert.Equal(t, "MIT", m.Licence)

	s, err := manifest.ResolveSettings("")
	require.NoError(t, err)
	l := m.Layout(".", s)
	assert.NotEmpty(t, l.Build)
	assert.NotEmpty(t, l.Generators)
}

func TestManifestRequirementsMatchGoMod(t *testing.T) {
	m, err := Manifest()
	require.NoError(t, err)
	gomod, err := os.ReadFile("go.mod")
	require.NoError(t, err)
	assert.NoError(t, m.VerifyGoMod(gomod))
}
