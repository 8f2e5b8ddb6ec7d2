package mandate

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ManifestExt is the manifest file extension.
const ManifestExt = ".sbr"

// Manifest section markers.
const (
	sectionRef = "[REF]"
	sectionSrc = "[SRC]"
)

// Manifest is a parsed <name>.sbr file.
type Manifest struct {
	// Refs are build reference lines in file order.
	Refs []string
	// Sources are absolute source paths that exist.
	Sources []string
	// Missing are source entries that did not resolve to a file.
	Missing []string
}

// NameOf returns the mandate name for a manifest path.
func NameOf(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ManifestExt)
}

// ReadManifest parses the manifest at path. Source entries resolve against
// the manifest's directory.
func ReadManifest(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, err
	}
	defer f.Close()
	return ParseManifest(f, filepath.Dir(path))
}

// ParseManifest reads manifest lines from r. Lines before the first section
// marker are ignored, as are blank lines.
func ParseManifest(r io.Reader, dir string) (Manifest, error) {
	var (
		m       Manifest
		section string
	)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, sectionRef) {
			section = sectionRef
			continue
		}
		if strings.HasPrefix(line, sectionSrc) {
			section = sectionSrc
			continue
		}

		switch section {
		case sectionRef:
			m.Refs = append(m.Refs, line)
		case sectionSrc:
			p := line
			if !filepath.IsAbs(p) {
				p = filepath.Join(dir, p)
			}
			if fi, err := os.Stat(p); err != nil || fi.IsDir() {
				m.Missing = append(m.Missing, line)
				continue
			}
			m.Sources = append(m.Sources, p)
		}
	}
	if err := sc.Err(); err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	return m, nil
}

// WatchPaths returns every file whose change should trigger a rebuild:
// the manifest, the sources and any reference that names a file.
func (m Manifest) WatchPaths(manifestPath, dir string) []string {
	paths := make([]string, 0, 1+len(m.Sources)+len(m.Refs))
	paths = append(paths, manifestPath)
	paths = append(paths, m.Sources...)
	for _, ref := range m.Refs {
		p := ref
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			paths = append(paths, p)
		}
	}
	return paths
}
