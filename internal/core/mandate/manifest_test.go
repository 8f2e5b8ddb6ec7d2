package mandate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.js"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.js"), nil, 0o644))

	input := "ignored before sections\r\n" +
		"[REF]\r\n" +
		"lib/util.js\r\n" +
		"\r\n" +
		"[SRC]\r\n" +
		"a.js\r\n" +
		"missing.js\r\n" +
		"  b.js  \r\n"

	m, err := ParseManifest(strings.NewReader(input), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/util.js"}, m.Refs)
	assert.Equal(t, []string{filepath.Join(dir, "a.js"), filepath.Join(dir, "b.js")}, m.Sources)
	assert.Equal(t, []string{"missing.js"}, m.Missing)
}

func TestParseManifest_SectionsMayRepeat(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), nil, 0o644))

	m, err := ParseManifest(strings.NewReader("[SRC]\na.go\n[REF]\nnetgo\n[REF]\nosusergo\n"), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"netgo", "osusergo"}, m.Refs)
	assert.Len(t, m.Sources, 1)
}

func TestParseManifest_DirectoryIsMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	m, err := ParseManifest(strings.NewReader("[SRC]\nsub\n"), dir)
	require.NoError(t, err)
	assert.Empty(t, m.Sources)
	assert.Equal(t, []string{"sub"}, m.Missing)
}

func TestManifest_WatchPaths(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.js")
	require.NoError(t, os.WriteFile(lib, nil, 0o644))
	man := filepath.Join(dir, "x.sbr")

	m := Manifest{Refs: []string{"lib.js", "netgo"}, Sources: []string{filepath.Join(dir, "a.js")}}
	assert.Equal(t, []string{man, filepath.Join(dir, "a.js"), lib}, m.WatchPaths(man, dir))
}

func TestNameOf(t *testing.T) {
	assert.Equal(t, "blog", NameOf("/srv/Sites/blog.sbr"))
}

func TestBuildError(t *testing.T) {
	assert.Equal(t, "build failed", (&BuildError{}).Error())
	assert.Equal(t, "build failed: x", (&BuildError{Diagnostics: []string{"x"}}).Error())
	assert.Equal(t, "build failed: x (and 2 more)", (&BuildError{Diagnostics: []string{"x", "y", "z"}}).Error())

	be := Diagnosticsf("a\r\n\n  b\n")
	assert.Equal(t, []string{"a", "  b"}, be.Diagnostics)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "valid", Valid.String())
	assert.Equal(t, "unknown", State(99).String())
}
